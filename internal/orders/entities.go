package orders

import (
	"fmt"
	"time"

	"github.com/storehq/storefront/internal/apperr"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// ParseStatus validates a client-supplied status value. Transitions are
// deliberately unguarded: any valid status overwrites any other, and
// cancelling never returns stock to inventory.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusCompleted, StatusCancelled:
		return Status(s), nil
	default:
		return "", fmt.Errorf("status %q: %w", s, apperr.ErrInvalidStatus)
	}
}

// Order is immutable after creation except for Status. TotalAmount is the
// frozen sum of line totals in minor units.
type Order struct {
	ID          string
	UserID      string
	TotalAmount int64
	Status      Status
	CreatedAt   time.Time
}

// Item is a frozen order line. ProductID is nullable because the product
// may be deleted after the order; the monetary fields never change once
// written.
type Item struct {
	ID          string
	OrderID     string
	ProductID   *string
	ProductName string
	Quantity    int32
	UnitPrice   int64
	LineTotal   int64
}

type ItemView struct {
	ID          string  `json:"id"`
	ProductID   *string `json:"productId"`
	ProductName string  `json:"productName"`
	Quantity    int32   `json:"quantity"`
	UnitPrice   int64   `json:"unitPrice"`
	LineTotal   int64   `json:"lineTotal"`
}

type View struct {
	ID          string     `json:"id"`
	TotalAmount int64      `json:"totalAmount"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	Items       []ItemView `json:"items"`
}

func BuildView(order Order, items []Item) View {
	view := View{
		ID:          order.ID,
		TotalAmount: order.TotalAmount,
		Status:      order.Status,
		CreatedAt:   order.CreatedAt,
		Items:       make([]ItemView, 0, len(items)),
	}
	for _, it := range items {
		view.Items = append(view.Items, ItemView{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			LineTotal:   it.LineTotal,
		})
	}
	return view
}
