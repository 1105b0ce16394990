package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/storehq/storefront/internal/apperr"
	"github.com/storehq/storefront/pkg/postgres"
)

// Repository defines the database operations the catalog needs.
type Repository interface {
	Begin(ctx context.Context) (postgres.Tx, error)

	ListProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, id string) (Product, error)
	CreateProduct(ctx context.Context, p Product) error
	UpdateProduct(ctx context.Context, p Product) error

	// HasPendingOrderLines reports whether any order line for the product
	// belongs to an order still in PENDING status.
	HasPendingOrderLines(ctx context.Context, tx postgres.Tx, productID string) (bool, error)
	// DetachOrderLines nulls product_id on historical order lines so the
	// frozen lines survive the product's deletion.
	DetachOrderLines(ctx context.Context, tx postgres.Tx, productID string) error
	DeleteProduct(ctx context.Context, tx postgres.Tx, productID string) error
}

// PostgresRepository implements Repository on pgx.
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

const productColumns = `id, name, description, image_url, price_cents, stock, created_at, updated_at`

func (r *PostgresRepository) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+productColumns+`
		FROM products
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *PostgresRepository) GetProduct(ctx context.Context, id string) (Product, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = $1
	`, id)

	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, apperr.NotFoundf("product %s", id)
	}
	return p, err
}

func (r *PostgresRepository) CreateProduct(ctx context.Context, p Product) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO products (id, name, description, image_url, price_cents, stock, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, p.ID, p.Name, p.Description, p.ImageURL, p.Price, p.Stock, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UpdateProduct(ctx context.Context, p Product) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE products
		SET name = $1, description = $2, image_url = $3, price_cents = $4, stock = $5, updated_at = NOW()
		WHERE id = $6
	`, p.Name, p.Description, p.ImageURL, p.Price, p.Stock, p.ID)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFoundf("product %s", p.ID)
	}
	return nil
}

func (r *PostgresRepository) HasPendingOrderLines(ctx context.Context, tx postgres.Tx, productID string) (bool, error) {
	var pending bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1
			FROM order_items oi
			JOIN orders o ON o.id = oi.order_id
			WHERE oi.product_id = $1 AND o.status = 'PENDING'
		)
	`, productID).Scan(&pending)
	if err != nil {
		return false, fmt.Errorf("check pending order lines: %w", err)
	}
	return pending, nil
}

func (r *PostgresRepository) DetachOrderLines(ctx context.Context, tx postgres.Tx, productID string) error {
	_, err := tx.Exec(ctx, `
		UPDATE order_items
		SET product_id = NULL
		WHERE product_id = $1
	`, productID)
	if err != nil {
		return fmt.Errorf("detach order lines: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteProduct(ctx context.Context, tx postgres.Tx, productID string) error {
	tag, err := tx.Exec(ctx, `DELETE FROM products WHERE id = $1`, productID)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFoundf("product %s", productID)
	}
	return nil
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.ImageURL,
		&p.Price,
		&p.Stock,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return Product{}, err
	}
	return p, nil
}
