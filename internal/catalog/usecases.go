package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/storehq/storefront/internal/apperr"
)

// UseCase holds the catalog business logic: product CRUD plus the
// delete-with-detach rule that keeps historical order lines intact.
type UseCase struct {
	repository Repository
}

func NewUseCase(repository Repository) *UseCase {
	return &UseCase{repository: repository}
}

type CreateProductInput struct {
	Name        string
	Description string
	ImageURL    *string
	Price       int64
	Stock       int32
}

type UpdateProductInput struct {
	Name        *string
	Description *string
	ImageURL    *string
	Price       *int64
	Stock       *int32
}

func (uc *UseCase) ListProducts(ctx context.Context) ([]Product, error) {
	return uc.repository.ListProducts(ctx)
}

func (uc *UseCase) GetProduct(ctx context.Context, id string) (Product, error) {
	if strings.TrimSpace(id) == "" {
		return Product{}, apperr.ErrInvalidInput
	}
	return uc.repository.GetProduct(ctx, id)
}

func (uc *UseCase) CreateProduct(ctx context.Context, in CreateProductInput) (Product, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" || in.Price <= 0 || in.Stock < 0 {
		return Product{}, apperr.ErrInvalidInput
	}

	now := time.Now()
	p := Product{
		ID:          uuid.New().String(),
		Name:        in.Name,
		Description: in.Description,
		ImageURL:    in.ImageURL,
		Price:       in.Price,
		Stock:       in.Stock,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.repository.CreateProduct(ctx, p); err != nil {
		return Product{}, err
	}
	return p, nil
}

func (uc *UseCase) UpdateProduct(ctx context.Context, id string, in UpdateProductInput) (Product, error) {
	p, err := uc.repository.GetProduct(ctx, id)
	if err != nil {
		return Product{}, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return Product{}, apperr.ErrInvalidInput
		}
		p.Name = name
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.ImageURL != nil {
		p.ImageURL = in.ImageURL
	}
	if in.Price != nil {
		if *in.Price <= 0 {
			return Product{}, apperr.ErrInvalidInput
		}
		p.Price = *in.Price
	}
	if in.Stock != nil {
		if *in.Stock < 0 {
			return Product{}, apperr.ErrInvalidInput
		}
		p.Stock = *in.Stock
	}

	if err := uc.repository.UpdateProduct(ctx, p); err != nil {
		return Product{}, err
	}
	return uc.repository.GetProduct(ctx, id)
}

// DeleteProduct removes a product from the catalog. Products referenced
// by a PENDING order cannot be deleted; historical order lines keep
// their frozen values and only lose the product reference.
func (uc *UseCase) DeleteProduct(ctx context.Context, id string) error {
	if _, err := uc.repository.GetProduct(ctx, id); err != nil {
		return err
	}

	tx, err := uc.repository.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	pending, err := uc.repository.HasPendingOrderLines(ctx, tx, id)
	if err != nil {
		return err
	}
	if pending {
		return fmt.Errorf("product %s is in pending orders and cannot be deleted: %w", id, apperr.ErrConflict)
	}

	if err := uc.repository.DetachOrderLines(ctx, tx, id); err != nil {
		return err
	}
	if err := uc.repository.DeleteProduct(ctx, tx, id); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit product deletion: %w", err)
	}
	return nil
}
