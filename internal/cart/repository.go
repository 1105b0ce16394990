package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/storehq/storefront/internal/apperr"
	"github.com/storehq/storefront/pkg/postgres"
)

// Repository defines the cart persistence operations. Mutations run inside
// a transaction that holds the cart's row lock, so writes for one user are
// serialized.
type Repository interface {
	Begin(ctx context.Context) (postgres.Tx, error)

	GetOrCreate(ctx context.Context, userID string) (Cart, error)
	// LockCart takes the cart row lock for the duration of the transaction.
	LockCart(ctx context.Context, tx postgres.Tx, cartID string) error

	ListItems(ctx context.Context, cartID string) ([]Item, error)
	FindItemByProduct(ctx context.Context, tx postgres.Tx, cartID, productID string) (Item, bool, error)
	GetItem(ctx context.Context, tx postgres.Tx, cartID, itemID string) (Item, error)
	InsertItem(ctx context.Context, tx postgres.Tx, item Item) error
	SetItemQuantity(ctx context.Context, tx postgres.Tx, itemID string, quantity int32) error
	DeleteItem(ctx context.Context, tx postgres.Tx, itemID string) error
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

// GetOrCreate is idempotent and safe under concurrent first access: the
// insert is a no-op when another request created the cart first.
func (r *PostgresRepository) GetOrCreate(ctx context.Context, userID string) (Cart, error) {
	_, err := r.db.Exec(ctx, `
		INSERT INTO carts (id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING
	`, uuid.New().String(), userID)
	if err != nil {
		return Cart{}, fmt.Errorf("create cart: %w", err)
	}

	var cart Cart
	err = r.db.QueryRow(ctx, `
		SELECT id, user_id, created_at, updated_at
		FROM carts
		WHERE user_id = $1
	`, userID).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		return Cart{}, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}

func (r *PostgresRepository) LockCart(ctx context.Context, tx postgres.Tx, cartID string) error {
	var id string
	err := tx.QueryRow(ctx, `
		SELECT id FROM carts WHERE id = $1 FOR UPDATE
	`, cartID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFoundf("cart %s", cartID)
	}
	if err != nil {
		return fmt.Errorf("lock cart: %w", err)
	}
	return nil
}

const itemSelect = `
	SELECT ci.id, ci.cart_id, ci.product_id, COALESCE(p.name, ''), ci.quantity, ci.unit_price_cents
	FROM cart_items ci
	LEFT JOIN products p ON p.id = ci.product_id
`

func (r *PostgresRepository) ListItems(ctx context.Context, cartID string) ([]Item, error) {
	rows, err := r.db.Query(ctx, itemSelect+`
		WHERE ci.cart_id = $1
		ORDER BY ci.created_at
	`, cartID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.CartID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *PostgresRepository) FindItemByProduct(ctx context.Context, tx postgres.Tx, cartID, productID string) (Item, bool, error) {
	var it Item
	err := tx.QueryRow(ctx, itemSelect+`
		WHERE ci.cart_id = $1 AND ci.product_id = $2
	`, cartID, productID).Scan(&it.ID, &it.CartID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice)
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, false, nil
	}
	if err != nil {
		return Item{}, false, fmt.Errorf("find cart item: %w", err)
	}
	return it, true, nil
}

func (r *PostgresRepository) GetItem(ctx context.Context, tx postgres.Tx, cartID, itemID string) (Item, error) {
	var it Item
	err := tx.QueryRow(ctx, itemSelect+`
		WHERE ci.cart_id = $1 AND ci.id = $2
	`, cartID, itemID).Scan(&it.ID, &it.CartID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice)
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, apperr.NotFoundf("cart item %s", itemID)
	}
	if err != nil {
		return Item{}, fmt.Errorf("get cart item: %w", err)
	}
	return it, nil
}

func (r *PostgresRepository) InsertItem(ctx context.Context, tx postgres.Tx, item Item) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO cart_items (id, cart_id, product_id, quantity, unit_price_cents)
		VALUES ($1, $2, $3, $4, $5)
	`, item.ID, item.CartID, item.ProductID, item.Quantity, item.UnitPrice)
	if err != nil {
		return fmt.Errorf("insert cart item: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SetItemQuantity(ctx context.Context, tx postgres.Tx, itemID string, quantity int32) error {
	tag, err := tx.Exec(ctx, `
		UPDATE cart_items
		SET quantity = $1, updated_at = NOW()
		WHERE id = $2
	`, quantity, itemID)
	if err != nil {
		return fmt.Errorf("set cart item quantity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFoundf("cart item %s", itemID)
	}
	return nil
}

func (r *PostgresRepository) DeleteItem(ctx context.Context, tx postgres.Tx, itemID string) error {
	tag, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE id = $1`, itemID)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFoundf("cart item %s", itemID)
	}
	return nil
}
