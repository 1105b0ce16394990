package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/storehq/storefront/internal/apperr"
	"github.com/storehq/storefront/internal/catalog"
)

// StockReader is the inventory gate's advisory read. Cart mutations never
// consume stock; they only refuse quantities the current counter cannot
// satisfy.
type StockReader interface {
	CheckAvailable(ctx context.Context, productID string) (int32, error)
}

// ProductReader resolves catalog entries for price snapshots.
type ProductReader interface {
	GetProduct(ctx context.Context, id string) (catalog.Product, error)
}

// UseCase owns one cart per user and its lines. Every mutation runs in a
// transaction holding the cart row lock, so two concurrent AddItem calls
// for the same user cannot both read the same pre-merge quantity.
type UseCase struct {
	repository Repository
	stock      StockReader
	products   ProductReader
}

func NewUseCase(repository Repository, stock StockReader, products ProductReader) *UseCase {
	return &UseCase{
		repository: repository,
		stock:      stock,
		products:   products,
	}
}

func (uc *UseCase) GetCart(ctx context.Context, userID string) (View, error) {
	cart, err := uc.repository.GetOrCreate(ctx, userID)
	if err != nil {
		return View{}, err
	}
	return uc.view(ctx, cart.ID)
}

// AddItem validates the requested quantity against current stock and
// either merges into the existing line for the product or creates a new
// line with the product's current price snapshotted. A merged line is
// re-validated on its new total quantity, not the delta.
func (uc *UseCase) AddItem(ctx context.Context, userID, productID string, quantity int32) (View, error) {
	if quantity < 1 {
		return View{}, fmt.Errorf("quantity must be at least 1: %w", apperr.ErrInvalidInput)
	}

	product, err := uc.products.GetProduct(ctx, productID)
	if err != nil {
		return View{}, err
	}

	available, err := uc.stock.CheckAvailable(ctx, productID)
	if err != nil {
		return View{}, err
	}
	if quantity > available {
		return View{}, &apperr.InsufficientStockError{
			ProductID:   productID,
			ProductName: product.Name,
			Available:   available,
		}
	}

	cart, err := uc.repository.GetOrCreate(ctx, userID)
	if err != nil {
		return View{}, err
	}

	tx, err := uc.repository.Begin(ctx)
	if err != nil {
		return View{}, err
	}
	defer tx.Rollback(ctx)

	if err := uc.repository.LockCart(ctx, tx, cart.ID); err != nil {
		return View{}, err
	}

	existing, found, err := uc.repository.FindItemByProduct(ctx, tx, cart.ID, productID)
	if err != nil {
		return View{}, err
	}

	if found {
		newQuantity := existing.Quantity + quantity
		if newQuantity > available {
			return View{}, &apperr.InsufficientStockError{
				ProductID:   productID,
				ProductName: product.Name,
				Available:   available,
			}
		}
		if err := uc.repository.SetItemQuantity(ctx, tx, existing.ID, newQuantity); err != nil {
			return View{}, err
		}
	} else {
		err := uc.repository.InsertItem(ctx, tx, Item{
			ID:        uuid.New().String(),
			CartID:    cart.ID,
			ProductID: productID,
			Quantity:  quantity,
			UnitPrice: product.Price,
		})
		if err != nil {
			return View{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return View{}, fmt.Errorf("commit add item: %w", err)
	}
	return uc.view(ctx, cart.ID)
}

// UpdateItemQuantity replaces the line's quantity after re-validating it
// against the product's current stock. The snapshotted unit price is left
// alone.
func (uc *UseCase) UpdateItemQuantity(ctx context.Context, userID, itemID string, quantity int32) (View, error) {
	if quantity < 1 {
		return View{}, fmt.Errorf("quantity must be at least 1: %w", apperr.ErrInvalidInput)
	}

	cart, err := uc.repository.GetOrCreate(ctx, userID)
	if err != nil {
		return View{}, err
	}

	tx, err := uc.repository.Begin(ctx)
	if err != nil {
		return View{}, err
	}
	defer tx.Rollback(ctx)

	if err := uc.repository.LockCart(ctx, tx, cart.ID); err != nil {
		return View{}, err
	}

	item, err := uc.repository.GetItem(ctx, tx, cart.ID, itemID)
	if err != nil {
		return View{}, err
	}

	available, err := uc.stock.CheckAvailable(ctx, item.ProductID)
	if err != nil {
		return View{}, err
	}
	if quantity > available {
		return View{}, &apperr.InsufficientStockError{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Available:   available,
		}
	}

	if err := uc.repository.SetItemQuantity(ctx, tx, item.ID, quantity); err != nil {
		return View{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return View{}, fmt.Errorf("commit quantity update: %w", err)
	}
	return uc.view(ctx, cart.ID)
}

func (uc *UseCase) RemoveItem(ctx context.Context, userID, itemID string) (View, error) {
	cart, err := uc.repository.GetOrCreate(ctx, userID)
	if err != nil {
		return View{}, err
	}

	tx, err := uc.repository.Begin(ctx)
	if err != nil {
		return View{}, err
	}
	defer tx.Rollback(ctx)

	if err := uc.repository.LockCart(ctx, tx, cart.ID); err != nil {
		return View{}, err
	}

	item, err := uc.repository.GetItem(ctx, tx, cart.ID, itemID)
	if err != nil {
		return View{}, err
	}
	if err := uc.repository.DeleteItem(ctx, tx, item.ID); err != nil {
		return View{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return View{}, fmt.Errorf("commit item removal: %w", err)
	}
	return uc.view(ctx, cart.ID)
}

func (uc *UseCase) view(ctx context.Context, cartID string) (View, error) {
	items, err := uc.repository.ListItems(ctx, cartID)
	if err != nil {
		return View{}, err
	}
	return BuildView(items), nil
}
