package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/niksmo/storefront/internal/core/domain"
)

const defaultCurrency = "€"

// productInput carries the admin form rules of the storefront.
type productInput struct {
	Name        string  `validate:"required,min=2"`
	Description string  `validate:"required"`
	Price       float64 `validate:"gte=0"`
	Currency    string  `validate:"required"`
	Stock       int     `validate:"gte=0"`
	Category    string  `validate:"required"`
}

func newProductValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func (s *Storefront) prepare(p domain.Product) (domain.Product, error) {
	const op = "Storefront.prepare"

	if p.Price.Currency == "" {
		p.Price.Currency = s.defaults.Currency
	}
	p = p.WithDefaultImage(s.defaults.Image)

	in := productInput{
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.Amount,
		Currency:    p.Price.Currency,
		Stock:       p.AvailableStock,
		Category:    p.Category,
	}
	if err := s.validate.Struct(in); err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w: %w", op, domain.ErrInvalidProduct, err)
	}
	return p, nil
}

func (s *Storefront) CreateProduct(
	ctx context.Context, p domain.Product,
) (domain.Product, error) {
	const op = "Storefront.CreateProduct"

	if err := ctx.Err(); err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	p, err := s.prepare(p)
	if err != nil {
		s.deps.Notifier.Notify(ctx, domain.NotifyError, "fill in all the fields")
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}
	if p.ProductID == "" {
		p.ProductID = uuid.NewString()
	}

	created, err := s.deps.Admin.CreateProduct(ctx, p)
	if err != nil {
		s.deps.Notifier.Notify(ctx, domain.NotifyError, "failed to create the product")
		if errors.Is(err, domain.ErrAlreadyExists) {
			return domain.Product{}, fmt.Errorf("%s: %w", op, err)
		}
		return domain.Product{}, fmt.Errorf("%s: %w: %w", op, domain.ErrDataSource, err)
	}

	s.deps.Notifier.Notify(ctx, domain.NotifySuccess, "product created")
	s.afterChange(ctx, domain.CatalogChange{ProductID: created.ProductID, Kind: "created"})
	return created, nil
}

func (s *Storefront) UpdateProduct(
	ctx context.Context, id string, p domain.Product,
) (domain.Product, error) {
	const op = "Storefront.UpdateProduct"

	if err := ctx.Err(); err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	p, err := s.prepare(p)
	if err != nil {
		s.deps.Notifier.Notify(ctx, domain.NotifyError, "invalid form")
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}
	p.ProductID = id

	updated, err := s.deps.Admin.UpdateProduct(ctx, id, p)
	if err != nil {
		s.deps.Notifier.Notify(ctx, domain.NotifyError, "failed to update the product")
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Product{}, fmt.Errorf("%s: %w", op, err)
		}
		return domain.Product{}, fmt.Errorf("%s: %w: %w", op, domain.ErrDataSource, err)
	}

	s.deps.Notifier.Notify(ctx, domain.NotifySuccess, "product updated")
	s.afterChange(ctx, domain.CatalogChange{ProductID: id, Kind: "updated"})
	return updated, nil
}

// DeleteProduct asks for confirmation before deleting. Cart lines of the
// deleted product keep their snapshot and stay in the cart.
func (s *Storefront) DeleteProduct(ctx context.Context, id string) error {
	const op = "Storefront.DeleteProduct"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	msg := fmt.Sprintf("delete %s?", s.productName(id))
	if !s.deps.Notifier.Confirm(ctx, msg) {
		return fmt.Errorf("%s: %w", op, domain.ErrCanceled)
	}

	if err := s.deps.Admin.DeleteProduct(ctx, id); err != nil {
		s.deps.Notifier.Notify(ctx, domain.NotifyError, "failed to delete the product")
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, err)
		}
		return fmt.Errorf("%s: %w: %w", op, domain.ErrDataSource, err)
	}

	s.removeFromCatalog(id)

	s.deps.Notifier.Notify(ctx, domain.NotifySuccess, "product deleted")
	s.afterChange(ctx, domain.CatalogChange{ProductID: id, Kind: "deleted"})
	return nil
}

// afterChange announces a CRUD change and reloads the catalog.
// The CRUD call already succeeded, so a failed reload is only logged;
// LoadCatalog notifies the user itself.
func (s *Storefront) afterChange(ctx context.Context, change domain.CatalogChange) {
	const op = "Storefront.afterChange"
	log := slog.With("op", op, "productID", change.ProductID, "kind", change.Kind)

	if err := s.deps.CatalogChanges.PublishCatalogChange(ctx, change); err != nil {
		log.Error("failed to publish catalog change", "err", err)
	}
	if err := s.LoadCatalog(ctx); err != nil {
		log.Error("failed to reload catalog", "err", err)
	}
}

func (s *Storefront) removeFromCatalog(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog.Remove(id)
}
