// Package inventory is the authoritative keeper of the per-product stock
// counter. Decrement is the only way stock is consumed; the check and the
// subtraction are indivisible under concurrency because both happen while
// holding the product's row lock.
package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/storehq/storefront/internal/apperr"
	"github.com/storehq/storefront/pkg/postgres"
)

type Gate struct {
	db postgres.Querier
}

func NewGate(db postgres.Querier) *Gate {
	return &Gate{db: db}
}

// CheckAvailable reads the current stock without reserving anything. Cart
// mutations use it to refuse obviously impossible carts; the number may be
// stale by the time the cart converts.
func (g *Gate) CheckAvailable(ctx context.Context, productID string) (int32, error) {
	var stock int32
	err := g.db.QueryRow(ctx, `
		SELECT stock FROM products WHERE id = $1
	`, productID).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, apperr.NotFoundf("product %s", productID)
	}
	if err != nil {
		return 0, fmt.Errorf("read stock: %w", err)
	}
	return stock, nil
}

// Decrement locks the product row, re-reads stock and applies the
// subtraction, all inside the caller's transaction. On shortfall it fails
// with the fresh available amount and leaves the row untouched; the caller
// decides whether to abort the surrounding operation. A movement row is
// recorded for auditing. No internal retries.
func (g *Gate) Decrement(ctx context.Context, tx postgres.Tx, productID string, quantity int32, orderID string) (int32, error) {
	if quantity < 1 {
		return 0, fmt.Errorf("quantity must be at least 1: %w", apperr.ErrInvalidInput)
	}

	var stock int32
	err := tx.QueryRow(ctx, `
		SELECT stock FROM products WHERE id = $1 FOR UPDATE
	`, productID).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, apperr.NotFoundf("product %s", productID)
	}
	if err != nil {
		return 0, fmt.Errorf("lock product row: %w", err)
	}

	if quantity > stock {
		return 0, &apperr.InsufficientStockError{ProductID: productID, Available: stock}
	}

	var newStock int32
	err = tx.QueryRow(ctx, `
		UPDATE products
		SET stock = stock - $1, updated_at = NOW()
		WHERE id = $2
		RETURNING stock
	`, quantity, productID).Scan(&newStock)
	if err != nil {
		return 0, fmt.Errorf("decrement stock: %w", err)
	}

	var orderRef *string
	if orderID != "" {
		orderRef = &orderID
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO inventory_movements (id, product_id, order_id, change_quantity, movement_type)
		VALUES ($1, $2, $3, $4, 'decreased')
	`, uuid.New().String(), productID, orderRef, quantity)
	if err != nil {
		return 0, fmt.Errorf("record inventory movement: %w", err)
	}

	return newStock, nil
}
