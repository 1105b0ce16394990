package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/storehq/storefront/internal/apperr"
	"github.com/storehq/storefront/pkg/postgres"
)

// StockDecrementer is the inventory gate's atomic check-and-decrement.
// The engine never reads and writes stock as separate steps.
type StockDecrementer interface {
	Decrement(ctx context.Context, tx postgres.Tx, productID string, quantity int32, orderID string) (int32, error)
}

// UseCase is the order conversion engine plus the order queries and the
// status update.
type UseCase struct {
	repository Repository
	gate       StockDecrementer
	log        *slog.Logger
	tracer     trace.Tracer

	ordersCreated       metric.Int64Counter
	conversionsRejected metric.Int64Counter
}

func NewUseCase(repository Repository, gate StockDecrementer, log *slog.Logger, tracer trace.Tracer, meter metric.Meter) (*UseCase, error) {
	created, err := meter.Int64Counter("orders_created_total",
		metric.WithDescription("Orders created from carts"))
	if err != nil {
		return nil, fmt.Errorf("create orders counter: %w", err)
	}
	rejected, err := meter.Int64Counter("order_conversions_rejected_total",
		metric.WithDescription("Cart conversions rejected before commit"))
	if err != nil {
		return nil, fmt.Errorf("create rejections counter: %w", err)
	}

	return &UseCase{
		repository:          repository,
		gate:                gate,
		log:                 log,
		tracer:              tracer,
		ordersCreated:       created,
		conversionsRejected: rejected,
	}, nil
}

// CreateOrderFromCart converts the user's cart into an immutable order as
// one transaction: lock the cart, re-validate and decrement stock for
// every line through the gate, freeze prices and totals, write the order
// and its items, clear the cart. Any failure rolls the whole attempt
// back; no partial order, decrement or cleared cart is ever observable.
func (uc *UseCase) CreateOrderFromCart(ctx context.Context, userID string) (View, error) {
	ctx, span := uc.tracer.Start(ctx, "create_order_from_cart")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userID))

	view, err := uc.convert(ctx, userID)
	if err != nil {
		span.RecordError(err)
		uc.conversionsRejected.Add(ctx, 1)
		return View{}, err
	}

	uc.ordersCreated.Add(ctx, 1)
	span.SetAttributes(attribute.String("order_id", view.ID))
	uc.log.Info("order created",
		slog.String("order_id", view.ID),
		slog.String("user_id", userID),
		slog.Int64("total_amount", view.TotalAmount),
	)
	return view, nil
}

func (uc *UseCase) convert(ctx context.Context, userID string) (View, error) {
	tx, err := uc.repository.Begin(ctx)
	if err != nil {
		return View{}, err
	}
	defer tx.Rollback(ctx)

	cartID, err := uc.repository.GetCartForUpdate(ctx, tx, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		return View{}, apperr.ErrEmptyCart
	}
	if err != nil {
		return View{}, err
	}

	lines, err := uc.repository.ListCartItems(ctx, tx, cartID)
	if err != nil {
		return View{}, err
	}
	if len(lines) == 0 {
		return View{}, apperr.ErrEmptyCart
	}

	// Lock product rows in a fixed order so two conversions touching the
	// same products cannot deadlock.
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })

	orderID := uuid.New().String()
	orderItems := make([]Item, 0, len(lines))
	var totalAmount int64

	for _, line := range lines {
		if _, err := uc.gate.Decrement(ctx, tx, line.ProductID, line.Quantity, orderID); err != nil {
			var shortfall *apperr.InsufficientStockError
			if errors.As(err, &shortfall) && shortfall.ProductName == "" {
				shortfall.ProductName = line.ProductName
			}
			return View{}, err
		}

		productID := line.ProductID
		lineTotal := line.LineTotal()
		orderItems = append(orderItems, Item{
			ID:          uuid.New().String(),
			OrderID:     orderID,
			ProductID:   &productID,
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			LineTotal:   lineTotal,
		})
		totalAmount += lineTotal
	}

	order := Order{
		ID:          orderID,
		UserID:      userID,
		TotalAmount: totalAmount,
		Status:      StatusPending,
		CreatedAt:   time.Now(),
	}

	if err := uc.repository.InsertOrder(ctx, tx, order); err != nil {
		return View{}, err
	}
	if err := uc.repository.InsertOrderItems(ctx, tx, orderItems); err != nil {
		return View{}, err
	}
	if err := uc.repository.ClearCart(ctx, tx, cartID); err != nil {
		return View{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return View{}, fmt.Errorf("commit conversion: %w", err)
	}

	view, err := uc.GetOrder(ctx, userID, orderID)
	if errors.Is(err, apperr.ErrNotFound) {
		// The transaction committed, so the order must exist.
		return View{}, fmt.Errorf("order %s missing after commit: %w", orderID, apperr.ErrIntegrity)
	}
	return view, err
}

func (uc *UseCase) ListOrders(ctx context.Context, userID string) ([]View, error) {
	list, err := uc.repository.ListOrders(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(list))
	for _, o := range list {
		ids = append(ids, o.ID)
	}
	itemsByOrder, err := uc.repository.ListOrderItems(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]View, 0, len(list))
	for _, o := range list {
		views = append(views, BuildView(o, itemsByOrder[o.ID]))
	}
	return views, nil
}

func (uc *UseCase) GetOrder(ctx context.Context, userID, orderID string) (View, error) {
	order, err := uc.repository.GetOrder(ctx, userID, orderID)
	if err != nil {
		return View{}, err
	}
	itemsByOrder, err := uc.repository.ListOrderItems(ctx, []string{order.ID})
	if err != nil {
		return View{}, err
	}
	return BuildView(order, itemsByOrder[order.ID]), nil
}

// UpdateStatus overwrites the order's status. No transition guard and no
// inventory side effect: cancelling does not restock.
func (uc *UseCase) UpdateStatus(ctx context.Context, userID, orderID, status string) (View, error) {
	parsed, err := ParseStatus(status)
	if err != nil {
		return View{}, err
	}
	if err := uc.repository.UpdateStatus(ctx, userID, orderID, parsed); err != nil {
		return View{}, err
	}
	return uc.GetOrder(ctx, userID, orderID)
}
