package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/storehq/storefront/internal/apperr"
	"github.com/storehq/storefront/internal/cart"
	"github.com/storehq/storefront/pkg/postgres"
)

// Repository defines the persistence operations of the conversion engine
// and the order queries.
type Repository interface {
	Begin(ctx context.Context) (postgres.Tx, error)

	// GetCartForUpdate locks the user's cart row, serializing the
	// conversion against concurrent cart mutations for the same user.
	GetCartForUpdate(ctx context.Context, tx postgres.Tx, userID string) (string, error)
	ListCartItems(ctx context.Context, tx postgres.Tx, cartID string) ([]cart.Item, error)
	InsertOrder(ctx context.Context, tx postgres.Tx, order Order) error
	InsertOrderItems(ctx context.Context, tx postgres.Tx, items []Item) error
	ClearCart(ctx context.Context, tx postgres.Tx, cartID string) error

	GetOrder(ctx context.Context, userID, orderID string) (Order, error)
	ListOrders(ctx context.Context, userID string) ([]Order, error)
	ListOrderItems(ctx context.Context, orderIDs []string) (map[string][]Item, error)
	UpdateStatus(ctx context.Context, userID, orderID string, status Status) error
}

type PostgresRepository struct {
	db postgres.Querier
	tx postgres.Beginner
}

func NewPostgresRepository(db postgres.Querier, tx postgres.Beginner) *PostgresRepository {
	return &PostgresRepository{db: db, tx: tx}
}

func (r *PostgresRepository) Begin(ctx context.Context) (postgres.Tx, error) {
	return r.tx.Begin(ctx)
}

func (r *PostgresRepository) GetCartForUpdate(ctx context.Context, tx postgres.Tx, userID string) (string, error) {
	var cartID string
	err := tx.QueryRow(ctx, `
		SELECT id FROM carts WHERE user_id = $1 FOR UPDATE
	`, userID).Scan(&cartID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", apperr.NotFoundf("cart for user %s", userID)
	}
	if err != nil {
		return "", fmt.Errorf("lock cart: %w", err)
	}
	return cartID, nil
}

func (r *PostgresRepository) ListCartItems(ctx context.Context, tx postgres.Tx, cartID string) ([]cart.Item, error) {
	rows, err := tx.Query(ctx, `
		SELECT ci.id, ci.cart_id, ci.product_id, COALESCE(p.name, ''), ci.quantity, ci.unit_price_cents
		FROM cart_items ci
		LEFT JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.created_at
	`, cartID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	defer rows.Close()

	var items []cart.Item
	for rows.Next() {
		var it cart.Item
		if err := rows.Scan(&it.ID, &it.CartID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *PostgresRepository) InsertOrder(ctx context.Context, tx postgres.Tx, order Order) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO orders (id, user_id, total_amount_cents, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, order.ID, order.UserID, order.TotalAmount, order.Status, order.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *PostgresRepository) InsertOrderItems(ctx context.Context, tx postgres.Tx, items []Item) error {
	for _, it := range items {
		_, err := tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, product_id, quantity, unit_price_cents, line_total_cents)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, it.ID, it.OrderID, it.ProductID, it.Quantity, it.UnitPrice, it.LineTotal)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepository) ClearCart(ctx context.Context, tx postgres.Tx, cartID string) error {
	_, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

const orderColumns = `id, user_id, total_amount_cents, status, created_at`

func (r *PostgresRepository) GetOrder(ctx context.Context, userID, orderID string) (Order, error) {
	var o Order
	err := r.db.QueryRow(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = $1 AND user_id = $2
	`, orderID, userID).Scan(&o.ID, &o.UserID, &o.TotalAmount, &o.Status, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, apperr.NotFoundf("order %s", orderID)
	}
	if err != nil {
		return Order{}, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

func (r *PostgresRepository) ListOrders(ctx context.Context, userID string) ([]Order, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.TotalAmount, &o.Status, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) ListOrderItems(ctx context.Context, orderIDs []string) (map[string][]Item, error) {
	if len(orderIDs) == 0 {
		return map[string][]Item{}, nil
	}

	rows, err := r.db.Query(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, COALESCE(p.name, ''), oi.quantity, oi.unit_price_cents, oi.line_total_cents
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = ANY($1::uuid[])
	`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()

	byOrder := make(map[string][]Item, len(orderIDs))
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice, &it.LineTotal); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		byOrder[it.OrderID] = append(byOrder[it.OrderID], it)
	}
	return byOrder, rows.Err()
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, userID, orderID string, status Status) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE orders
		SET status = $1
		WHERE id = $2 AND user_id = $3
	`, status, orderID, userID)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFoundf("order %s", orderID)
	}
	return nil
}
