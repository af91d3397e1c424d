package cart

import (
	"errors"
	"fmt"
	"time"

	"github.com/niksmo/storefront/internal/core/domain"
)

// StockKeeper is the catalog side of a reservation.
type StockKeeper interface {
	Find(id string) (domain.Product, error)
	AdjustStock(id string, delta int) (domain.Product, error)
}

// A reconciler moves units between available stock and cart lines.
//
// Every cart operation goes through move: the stock adjustment runs first and
// the line mutation is applied only when it succeeded, so the sum of
// available and reserved units stays constant.
type reconciler struct {
	stock StockKeeper
	now   func() time.Time
}

// move adjusts stock by -units (reserve when units > 0, release when < 0)
// and then calls apply with the updated product.
func (r reconciler) move(
	id string, units int, reason domain.StockReason, apply func(domain.Product),
) (domain.StockEvent, error) {
	const op = "reconciler.move"

	p, err := r.stock.AdjustStock(id, -units)
	if err != nil {
		return domain.StockEvent{}, fmt.Errorf("%s: %w", op, err)
	}
	apply(p)

	return r.event(id, -units, reason, p.AvailableStock), nil
}

// release returns units of a line to stock and then calls drop. A product
// that left the catalog has no stock to take them back; the line is dropped
// all the same and the event reports zero available.
func (r reconciler) release(
	id string, units int, reason domain.StockReason, drop func(),
) (domain.StockEvent, error) {
	evt, err := r.move(id, -units, reason, func(domain.Product) { drop() })
	if errors.Is(err, domain.ErrNotFound) {
		drop()
		return r.event(id, units, reason, 0), nil
	}
	return evt, err
}

func (r reconciler) event(
	id string, delta int, reason domain.StockReason, available int,
) domain.StockEvent {
	return domain.StockEvent{
		ProductID:  id,
		Delta:      delta,
		Reason:     reason,
		Available:  available,
		OccurredAt: r.now(),
	}
}

// reserveOne checks availability before moving one unit into the cart.
// Losing a race against another reservation also reads as out of stock.
func (r reconciler) reserveOne(
	id string, apply func(domain.Product),
) (domain.StockEvent, error) {
	const op = "reconciler.reserveOne"

	p, err := r.stock.Find(id)
	if err != nil {
		return domain.StockEvent{}, fmt.Errorf("%s: %w", op, err)
	}
	if p.AvailableStock <= 0 {
		return domain.StockEvent{}, fmt.Errorf("%s: %q: %w", op, id, domain.ErrOutOfStock)
	}

	evt, err := r.move(id, 1, domain.StockReserve, apply)
	if errors.Is(err, domain.ErrInvalidState) {
		return domain.StockEvent{}, fmt.Errorf("%s: %q: %w", op, id, domain.ErrOutOfStock)
	}
	if err != nil {
		return domain.StockEvent{}, fmt.Errorf("%s: %w", op, err)
	}
	return evt, nil
}
