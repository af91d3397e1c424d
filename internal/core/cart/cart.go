// Package cart keeps the units a session reserved from the catalog.
package cart

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/shopspring/decimal"
)

type Opt func(*Cart)

// ClockOpt sets the time source stamped on stock events.
func ClockOpt(now func() time.Time) Opt {
	return func(c *Cart) {
		if now != nil {
			c.rec.now = now
		}
	}
}

// A Cart holds one line per reserved product in insertion order.
type Cart struct {
	mu    sync.Mutex
	rec   reconciler
	order []string
	lines map[string]*domain.CartLine
}

func New(stock StockKeeper, opts ...Opt) *Cart {
	c := &Cart{
		rec:   reconciler{stock: stock, now: time.Now},
		lines: make(map[string]*domain.CartLine),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Add reserves one unit of the product and counts it on its line,
// creating the line with a name and price snapshot on first add.
func (c *Cart) Add(id string) (domain.StockEvent, error) {
	const op = "Cart.Add"

	c.mu.Lock()
	defer c.mu.Unlock()

	evt, err := c.rec.reserveOne(id, func(p domain.Product) {
		if l, ok := c.lines[id]; ok {
			l.Quantity++
			return
		}
		c.lines[id] = &domain.CartLine{
			ProductID: id,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  1,
		}
		c.order = append(c.order, id)
	})
	if err != nil {
		return domain.StockEvent{}, fmt.Errorf("%s: %w", op, err)
	}
	return evt, nil
}

// Remove drops the whole line and returns all of its units to stock.
// Removing a product that is not in the cart is a no-op. The line of a
// product that left the catalog is dropped without returning stock.
func (c *Cart) Remove(id string) ([]domain.StockEvent, error) {
	const op = "Cart.Remove"

	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.lines[id]
	if !ok {
		return nil, nil
	}

	evt, err := c.rec.release(id, l.Quantity, domain.StockRelease, func() {
		c.dropLine(id)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return []domain.StockEvent{evt}, nil
}

// Clear returns every line to stock and empties the cart.
//
// Each line is released independently; failures are collected and
// reported together after every line was attempted.
func (c *Cart) Clear() ([]domain.StockEvent, error) {
	const op = "Cart.Clear"

	c.mu.Lock()
	defer c.mu.Unlock()

	var (
		evts []domain.StockEvent
		errs []error
	)
	for _, id := range c.order {
		l := c.lines[id]
		evt, err := c.rec.release(id, l.Quantity, domain.StockClear, func() {})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		evts = append(evts, evt)
	}

	c.order = nil
	c.lines = make(map[string]*domain.CartLine)

	if err := errors.Join(errs...); err != nil {
		return evts, fmt.Errorf("%s: %w", op, err)
	}
	return evts, nil
}

// ReapplyResult describes how reservations were carried over to a freshly
// loaded catalog.
type ReapplyResult struct {
	Events []domain.StockEvent

	// Trimmed lists lines that could not be fully reserved again.
	// Quantity holds the units that were given up.
	Trimmed []domain.CartLine
}

// Reapply reserves the cart's quantities again from a catalog whose stock
// was replaced by a reload. Lines of vanished products stay untouched.
// Lines whose product has less stock than reserved are reduced to what is
// available, and dropped when nothing is left.
//
// Each reapplied line yields a pair of events: the previous quantity given
// back, then the quantity taken from the fresh stock. Folding the deltas of
// all events ever emitted therefore always equals the reserved units.
func (c *Cart) Reapply() ReapplyResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	var res ReapplyResult
	for _, id := range append([]string(nil), c.order...) {
		l := c.lines[id]

		p, err := c.rec.stock.Find(id)
		if err != nil {
			continue
		}

		res.Events = append(res.Events,
			c.rec.event(id, l.Quantity, domain.StockReapply, p.AvailableStock))

		take := min(l.Quantity, p.AvailableStock)
		if lost := l.Quantity - take; lost > 0 {
			trimmed := *l
			trimmed.Quantity = lost
			res.Trimmed = append(res.Trimmed, trimmed)
		}

		if take == 0 {
			c.dropLine(id)
			continue
		}

		evt, err := c.rec.move(id, take, domain.StockReapply, func(domain.Product) {
			l.Quantity = take
		})
		if err != nil {
			c.dropLine(id)
			continue
		}
		res.Events = append(res.Events, evt)
	}
	return res
}

func (c *Cart) dropLine(id string) {
	delete(c.lines, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i:i], c.order[i+1:]...)
			return
		}
	}
}

// Lines returns a copy of the lines in insertion order.
func (c *Cart) Lines() []domain.CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.linesLocked()
}

func (c *Cart) linesLocked() []domain.CartLine {
	out := make([]domain.CartLine, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.lines[id])
	}
	return out
}

// Quantity returns the reserved units of a product, 0 when not in the cart.
func (c *Cart) Quantity(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if l, ok := c.lines[id]; ok {
		return l.Quantity
	}
	return 0
}

// Count is the number of reserved units across all lines.
func (c *Cart) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.countLocked()
}

func (c *Cart) countLocked() int {
	var n int
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// Total sums the snapshot price of every reserved unit.
func (c *Cart) Total() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalLocked()
}

func (c *Cart) totalLocked() float64 {
	sum := decimal.Zero
	for _, l := range c.lines {
		price := decimal.NewFromFloat(l.Price.Amount)
		sum = sum.Add(price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum.InexactFloat64()
}

func (c *Cart) Summary() domain.CartSummary {
	c.mu.Lock()
	defer c.mu.Unlock()

	return domain.CartSummary{
		Lines: c.linesLocked(),
		Count: c.countLocked(),
		Total: c.totalLocked(),
	}
}
