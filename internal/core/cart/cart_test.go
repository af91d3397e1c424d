package cart

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/niksmo/storefront/internal/core/catalog"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

func newTestCart(t *testing.T, ps ...domain.Product) (*Cart, *catalog.Catalog) {
	t.Helper()
	c := catalog.New()
	c.Load(ps)
	return New(c, ClockOpt(func() time.Time { return fixedNow })), c
}

func stockOf(t *testing.T, c *catalog.Catalog, id string) int {
	t.Helper()
	p, err := c.Find(id)
	require.NoError(t, err)
	return p.AvailableStock
}

// rejectingStock refuses stock adjustments of one product.
type rejectingStock struct {
	*catalog.Catalog
	id string
}

func (s rejectingStock) AdjustStock(id string, delta int) (domain.Product, error) {
	if id == s.id {
		return domain.Product{}, domain.ErrInvalidState
	}
	return s.Catalog.AdjustStock(id, delta)
}

// fold sums reserved units per product the way a ledger of stock events does.
func fold(ledger map[string]int, evts ...domain.StockEvent) {
	for _, e := range evts {
		ledger[e.ProductID] -= e.Delta
	}
}

func scenarioProducts() []domain.Product {
	return []domain.Product{
		{ProductID: "p1", Name: "Sedan X", Category: "car", AvailableStock: 3,
			Price: domain.ProductPrice{Amount: 100, Currency: "€"}},
		{ProductID: "p2", Name: "Truck Y", Category: "truck", AvailableStock: 0,
			Price: domain.ProductPrice{Amount: 50, Currency: "€"}},
	}
}

func TestCartAdd(t *testing.T) {
	t.Run("ReservesAndSnapshots", func(t *testing.T) {
		cart, cat := newTestCart(t, scenarioProducts()...)

		evt, err := cart.Add("p1")
		require.NoError(t, err)
		assert.Equal(t, domain.StockEvent{
			ProductID: "p1", Delta: -1, Reason: domain.StockReserve,
			Available: 2, OccurredAt: fixedNow,
		}, evt)

		_, err = cart.Add("p1")
		require.NoError(t, err)

		assert.Equal(t, 1, stockOf(t, cat, "p1"))
		assert.Equal(t, 2, cart.Count())
		assert.Equal(t, []domain.CartLine{{
			ProductID: "p1", Name: "Sedan X",
			Price: domain.ProductPrice{Amount: 100, Currency: "€"}, Quantity: 2,
		}}, cart.Lines())
	})

	t.Run("OutOfStock", func(t *testing.T) {
		cart, cat := newTestCart(t, scenarioProducts()...)

		_, err := cart.Add("p2")
		require.ErrorIs(t, err, domain.ErrOutOfStock)
		assert.Equal(t, 0, stockOf(t, cat, "p2"))
		assert.Empty(t, cart.Lines())
	})

	t.Run("UnknownProduct", func(t *testing.T) {
		cart, _ := newTestCart(t, scenarioProducts()...)

		_, err := cart.Add("nope")
		require.ErrorIs(t, err, domain.ErrNotFound)
		assert.Zero(t, cart.Count())
	})

	t.Run("UntilExhausted", func(t *testing.T) {
		cart, cat := newTestCart(t, scenarioProducts()...)

		for range 3 {
			_, err := cart.Add("p1")
			require.NoError(t, err)
		}
		_, err := cart.Add("p1")
		require.ErrorIs(t, err, domain.ErrOutOfStock)
		assert.Equal(t, 3, cart.Quantity("p1"))
		assert.Equal(t, 0, stockOf(t, cat, "p1"))
	})

	t.Run("SnapshotSurvivesCatalogChange", func(t *testing.T) {
		cart, cat := newTestCart(t, scenarioProducts()...)
		_, err := cart.Add("p1")
		require.NoError(t, err)

		cat.Load([]domain.Product{{ProductID: "p1", Name: "Renamed", AvailableStock: 5,
			Price: domain.ProductPrice{Amount: 999}}})
		_, err = cart.Add("p1")
		require.NoError(t, err)

		l := cart.Lines()[0]
		assert.Equal(t, "Sedan X", l.Name)
		assert.Equal(t, 100.0, l.Price.Amount)
		assert.Equal(t, 200.0, cart.Total())
	})

	t.Run("DeletedProduct", func(t *testing.T) {
		cart, cat := newTestCart(t, scenarioProducts()...)
		_, err := cart.Add("p1")
		require.NoError(t, err)

		cat.Remove("p1")
		_, err = cart.Add("p1")
		require.ErrorIs(t, err, domain.ErrNotFound)
		assert.Equal(t, 1, cart.Quantity("p1"), "existing line stays valid")
	})
}

func TestCartRemove(t *testing.T) {
	t.Run("RestoresWholeLine", func(t *testing.T) {
		cart, cat := newTestCart(t, scenarioProducts()...)
		for range 3 {
			_, err := cart.Add("p1")
			require.NoError(t, err)
		}

		evts, err := cart.Remove("p1")
		require.NoError(t, err)
		require.Len(t, evts, 1)
		assert.Equal(t, 3, evts[0].Delta)
		assert.Equal(t, domain.StockRelease, evts[0].Reason)
		assert.Equal(t, 3, stockOf(t, cat, "p1"))
		assert.Zero(t, cart.Quantity("p1"))
		assert.Empty(t, cart.Lines())
	})

	t.Run("AbsentLineIsNoop", func(t *testing.T) {
		cart, cat := newTestCart(t, scenarioProducts()...)
		_, err := cart.Add("p1")
		require.NoError(t, err)

		evts, err := cart.Remove("p2")
		require.NoError(t, err)
		assert.Empty(t, evts)
		evts, err = cart.Remove("unknown")
		require.NoError(t, err)
		assert.Empty(t, evts)

		assert.Equal(t, 2, stockOf(t, cat, "p1"))
		assert.Equal(t, 0, stockOf(t, cat, "p2"))
		assert.Equal(t, 1, cart.Count())
	})

	t.Run("VanishedProductDropsLine", func(t *testing.T) {
		cart, cat := newTestCart(t, scenarioProducts()...)
		for range 2 {
			_, err := cart.Add("p1")
			require.NoError(t, err)
		}
		_, err := cart.Add("p2")
		require.ErrorIs(t, err, domain.ErrOutOfStock)
		cat.Remove("p1")

		evts, err := cart.Remove("p1")
		require.NoError(t, err)
		require.Len(t, evts, 1)
		assert.Equal(t, 2, evts[0].Delta)
		assert.Zero(t, evts[0].Available)
		assert.Zero(t, cart.Quantity("p1"))
		assert.Empty(t, cart.Lines())
	})

	t.Run("RejectedReleaseKeepsLine", func(t *testing.T) {
		cat := catalog.New()
		cat.Load(scenarioProducts())
		cart := New(cat)
		_, err := cart.Add("p1")
		require.NoError(t, err)

		cart.rec.stock = rejectingStock{cat, "p1"}
		_, err = cart.Remove("p1")
		require.ErrorIs(t, err, domain.ErrInvalidState)
		assert.Equal(t, 1, cart.Quantity("p1"))
	})
}

func TestCartClear(t *testing.T) {
	t.Run("RestoresAll", func(t *testing.T) {
		ps := []domain.Product{
			{ProductID: "a", AvailableStock: 4},
			{ProductID: "b", AvailableStock: 2},
		}
		cart, cat := newTestCart(t, ps...)
		for _, id := range []string{"a", "b", "a", "b", "a"} {
			_, err := cart.Add(id)
			require.NoError(t, err)
		}

		evts, err := cart.Clear()
		require.NoError(t, err)
		assert.Len(t, evts, 2)
		assert.Empty(t, cart.Lines())
		assert.Equal(t, 4, stockOf(t, cat, "a"))
		assert.Equal(t, 2, stockOf(t, cat, "b"))
	})

	t.Run("VanishedProduct", func(t *testing.T) {
		ps := []domain.Product{
			{ProductID: "a", AvailableStock: 4},
			{ProductID: "b", AvailableStock: 2},
		}
		cart, cat := newTestCart(t, ps...)
		for _, id := range []string{"a", "b"} {
			_, err := cart.Add(id)
			require.NoError(t, err)
		}
		cat.Remove("b")

		evts, err := cart.Clear()
		require.NoError(t, err)
		assert.Len(t, evts, 2)
		assert.Empty(t, cart.Lines())
		assert.Equal(t, 4, stockOf(t, cat, "a"))
	})

	t.Run("PartialFailure", func(t *testing.T) {
		ps := []domain.Product{
			{ProductID: "a", AvailableStock: 4},
			{ProductID: "b", AvailableStock: 2},
			{ProductID: "c", AvailableStock: 1},
		}
		cat := catalog.New()
		cat.Load(ps)
		cart := New(cat)
		for _, id := range []string{"a", "b", "c"} {
			_, err := cart.Add(id)
			require.NoError(t, err)
		}
		cart.rec.stock = rejectingStock{cat, "b"}

		evts, err := cart.Clear()
		require.ErrorIs(t, err, domain.ErrInvalidState)
		assert.Len(t, evts, 2)
		assert.Empty(t, cart.Lines())
		assert.Equal(t, 4, stockOf(t, cat, "a"))
		assert.Equal(t, 1, stockOf(t, cat, "c"))
	})

	t.Run("Empty", func(t *testing.T) {
		cart, _ := newTestCart(t)
		evts, err := cart.Clear()
		require.NoError(t, err)
		assert.Empty(t, evts)
	})
}

func TestCartTotal(t *testing.T) {
	ps := []domain.Product{
		{ProductID: "a", AvailableStock: 5, Price: domain.ProductPrice{Amount: 100}},
		{ProductID: "b", AvailableStock: 5, Price: domain.ProductPrice{Amount: 50}},
		{ProductID: "c", AvailableStock: 5, Price: domain.ProductPrice{Amount: 0.1}},
	}
	cart, _ := newTestCart(t, ps...)
	for _, id := range []string{"a", "a", "b"} {
		_, err := cart.Add(id)
		require.NoError(t, err)
	}
	assert.Equal(t, 250.0, cart.Total())
	assert.Equal(t, 3, cart.Count())

	for range 3 {
		_, err := cart.Add("c")
		require.NoError(t, err)
	}
	assert.Equal(t, 250.3, cart.Total())

	_, err := cart.Remove("a")
	require.NoError(t, err)
	s := cart.Summary()
	assert.Equal(t, 50.3, s.Total)
	assert.Equal(t, 4, s.Count)
	assert.Len(t, s.Lines, 2)
}

func TestCartReapply(t *testing.T) {
	ps := []domain.Product{
		{ProductID: "a", AvailableStock: 5},
		{ProductID: "b", AvailableStock: 5},
		{ProductID: "c", AvailableStock: 5},
		{ProductID: "d", AvailableStock: 5},
	}
	cart, cat := newTestCart(t, ps...)
	ledger := make(map[string]int)
	for _, id := range []string{"a", "a", "b", "b", "b", "c", "d"} {
		evt, err := cart.Add(id)
		require.NoError(t, err)
		fold(ledger, evt)
	}

	cat.Load([]domain.Product{
		{ProductID: "a", AvailableStock: 10},
		{ProductID: "b", AvailableStock: 1},
		{ProductID: "c", AvailableStock: 0},
	})

	res := cart.Reapply()

	assert.Equal(t, 8, stockOf(t, cat, "a"))
	assert.Equal(t, 0, stockOf(t, cat, "b"))
	assert.Equal(t, 0, stockOf(t, cat, "c"))

	assert.Equal(t, 2, cart.Quantity("a"))
	assert.Equal(t, 1, cart.Quantity("b"))
	assert.Equal(t, 0, cart.Quantity("c"))
	assert.Equal(t, 1, cart.Quantity("d"), "vanished product keeps its line")

	require.Len(t, res.Trimmed, 2)
	assert.Equal(t, "b", res.Trimmed[0].ProductID)
	assert.Equal(t, 2, res.Trimmed[0].Quantity)
	assert.Equal(t, "c", res.Trimmed[1].ProductID)
	assert.Equal(t, 1, res.Trimmed[1].Quantity)

	require.Len(t, res.Events, 5)
	for _, e := range res.Events {
		assert.Equal(t, domain.StockReapply, e.Reason)
	}

	fold(ledger, res.Events...)
	for _, id := range []string{"a", "b", "c", "d"} {
		assert.Equal(t, cart.Quantity(id), ledger[id], "ledger of %s", id)
	}

	cat.Load([]domain.Product{
		{ProductID: "a", AvailableStock: 10},
		{ProductID: "b", AvailableStock: 1},
	})
	fold(ledger, cart.Reapply().Events...)
	for _, id := range []string{"a", "b", "c", "d"} {
		assert.Equal(t, cart.Quantity(id), ledger[id], "ledger of %s after second reload", id)
	}
}

func TestCartConservation(t *testing.T) {
	initial := map[string]int{"a": 3, "b": 0, "c": 7, "d": 1}
	var ps []domain.Product
	for _, id := range []string{"a", "b", "c", "d"} {
		ps = append(ps, domain.Product{ProductID: id, AvailableStock: initial[id]})
	}
	ids := []string{"a", "b", "c", "d", "missing"}

	for seed := range uint64(20) {
		cart, cat := newTestCart(t, ps...)
		rnd := rand.New(rand.NewPCG(seed, seed^0x5eed))

		for range 300 {
			id := ids[rnd.IntN(len(ids))]
			switch n := rnd.IntN(10); {
			case n < 6:
				_, _ = cart.Add(id)
			case n < 9:
				_, err := cart.Remove(id)
				require.NoError(t, err)
			default:
				_, err := cart.Clear()
				require.NoError(t, err)
			}

			for pid, want := range initial {
				got := stockOf(t, cat, pid) + cart.Quantity(pid)
				require.Equal(t, want, got, "seed %d product %s", seed, pid)
			}
		}

		_, err := cart.Clear()
		require.NoError(t, err)
		for pid, want := range initial {
			assert.Equal(t, want, stockOf(t, cat, pid))
		}
	}
}
