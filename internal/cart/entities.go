package cart

import "time"

// Cart is created lazily on first access and never deleted; it persists
// across orders.
type Cart struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Item is one product line in a cart. UnitPrice is the price snapshot
// taken when the line was created, in minor units; it is not a live
// reference to the catalog price.
type Item struct {
	ID          string
	CartID      string
	ProductID   string
	ProductName string
	Quantity    int32
	UnitPrice   int64
}

// LineTotal is always derived, never stored.
func (i Item) LineTotal() int64 {
	return int64(i.Quantity) * i.UnitPrice
}

type ItemView struct {
	ID          string `json:"id"`
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    int32  `json:"quantity"`
	UnitPrice   int64  `json:"unitPrice"`
	LineTotal   int64  `json:"lineTotal"`
}

type View struct {
	Items       []ItemView `json:"items"`
	TotalAmount int64      `json:"totalAmount"`
}

// BuildView projects cart lines into the client-facing shape. An empty
// cart yields an empty items slice, not null.
func BuildView(items []Item) View {
	view := View{Items: make([]ItemView, 0, len(items))}
	for _, it := range items {
		lineTotal := it.LineTotal()
		view.Items = append(view.Items, ItemView{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			LineTotal:   lineTotal,
		})
		view.TotalAmount += lineTotal
	}
	return view
}
