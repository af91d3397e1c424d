// Package catalog holds the authoritative product and category collections
// of a storefront session.
package catalog

import (
	"fmt"
	"sync"

	"github.com/niksmo/storefront/internal/core/domain"
)

// A Catalog is the single source of truth for product stock.
//
// AdjustStock is the only way to change stock; it checks and writes
// under one lock so two concurrent reservations never both pass the check.
type Catalog struct {
	mu         sync.RWMutex
	order      []string
	products   map[string]*domain.Product
	categories []domain.Category
}

func New() *Catalog {
	return &Catalog{products: make(map[string]*domain.Product)}
}

// Load replaces the products wholesale, keeping the given order.
// A later duplicate id overrides an earlier one.
func (c *Catalog) Load(ps []domain.Product) {
	order := make([]string, 0, len(ps))
	products := make(map[string]*domain.Product, len(ps))
	for _, p := range ps {
		if _, ok := products[p.ProductID]; !ok {
			order = append(order, p.ProductID)
		}
		v := p.Clone()
		products[p.ProductID] = &v
	}

	c.mu.Lock()
	c.order = order
	c.products = products
	c.mu.Unlock()
}

func (c *Catalog) LoadCategories(cs []domain.Category) {
	categories := make([]domain.Category, len(cs))
	copy(categories, cs)

	c.mu.Lock()
	c.categories = categories
	c.mu.Unlock()
}

func (c *Catalog) Find(id string) (domain.Product, error) {
	const op = "Catalog.Find"

	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.products[id]
	if !ok {
		return domain.Product{}, fmt.Errorf("%s: %q: %w", op, id, domain.ErrNotFound)
	}
	return p.Clone(), nil
}

// AdjustStock applies stock += delta and returns the updated product.
func (c *Catalog) AdjustStock(id string, delta int) (domain.Product, error) {
	const op = "Catalog.AdjustStock"

	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.products[id]
	if !ok {
		return domain.Product{}, fmt.Errorf("%s: %q: %w", op, id, domain.ErrNotFound)
	}

	next := p.AvailableStock + delta
	if next < 0 {
		return domain.Product{}, fmt.Errorf(
			"%s: %q stock %d delta %d: %w",
			op, id, p.AvailableStock, delta, domain.ErrInvalidState,
		)
	}
	p.AvailableStock = next
	return p.Clone(), nil
}

// Remove drops a product. Reports whether it was present.
func (c *Catalog) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.products[id]; !ok {
		return false
	}
	delete(c.products, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// Products returns a copy of all products in load order.
func (c *Catalog) Products() []domain.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.Product, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.products[id].Clone())
	}
	return out
}

func (c *Catalog) Categories() []domain.Category {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.Category, len(c.categories))
	copy(out, c.categories)
	return out
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}
