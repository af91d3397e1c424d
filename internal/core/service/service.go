package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/niksmo/storefront/internal/core/cart"
	"github.com/niksmo/storefront/internal/core/catalog"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/filterview"
	"github.com/niksmo/storefront/internal/core/port"
	"golang.org/x/sync/errgroup"
)

var _ port.CatalogLoader = (*Storefront)(nil)
var _ port.ProductsBrowser = (*Storefront)(nil)
var _ port.CartManager = (*Storefront)(nil)
var _ port.ProductsManager = (*Storefront)(nil)

// Deps are the collaborators of a [Storefront].
//
// Source, Admin and Notifier are required. The publishers and metrics
// fall back to no-ops when nil.
type Deps struct {
	Source         port.ProductsSource
	Admin          port.ProductsAdmin
	Notifier       port.Notifier
	StockEvents    port.StockEventsPublisher
	CatalogChanges port.CatalogChangesPublisher
	Metrics        port.CartMetrics
}

type Defaults struct {
	PageSize int
	Image    string
	Currency string
}

// A Storefront is one shopping session: it owns the catalog, the cart and the
// filter state of the current view.
//
// Operations are serialised; the visible page is derived again after every
// mutation so displayed stock never goes stale.
type Storefront struct {
	mu       sync.Mutex
	catalog  *catalog.Catalog
	cart     *cart.Cart
	view     domain.FilterState
	deps     Deps
	defaults Defaults
	validate *validator.Validate
}

func New(deps Deps, defaults Defaults, cartOpts ...cart.Opt) *Storefront {
	const op = "service.New"

	if deps.Source == nil || deps.Admin == nil || deps.Notifier == nil {
		panic(fmt.Errorf("%s: source, admin and notifier are required", op)) // develop mistake
	}
	if deps.StockEvents == nil {
		deps.StockEvents = nopPublisher{}
	}
	if deps.CatalogChanges == nil {
		deps.CatalogChanges = nopPublisher{}
	}
	if deps.Metrics == nil {
		deps.Metrics = nopMetrics{}
	}
	if defaults.Image == "" {
		defaults.Image = domain.DefaultImage
	}
	if defaults.Currency == "" {
		defaults.Currency = defaultCurrency
	}

	c := catalog.New()
	return &Storefront{
		catalog:  c,
		cart:     cart.New(c, cartOpts...),
		view:     domain.NewFilterState(defaults.PageSize),
		deps:     deps,
		defaults: defaults,
		validate: newProductValidator(),
	}
}

// LoadCatalog fetches products and categories and replaces the catalog.
//
// Reservations held by the cart are taken again from the fresh stock.
func (s *Storefront) LoadCatalog(ctx context.Context) error {
	const op = "Storefront.LoadCatalog"
	log := slog.With("op", op)

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var (
		products   []domain.Product
		categories []domain.Category
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		products, err = s.deps.Source.FetchProducts(gCtx)
		return err
	})
	g.Go(func() (err error) {
		categories, err = s.deps.Source.FetchCategories(gCtx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.deps.Notifier.Notify(ctx, domain.NotifyError, "failed to load the catalog")
		return fmt.Errorf("%s: %w: %w", op, domain.ErrDataSource, err)
	}

	for i := range products {
		products[i] = products[i].WithDefaultImage(s.defaults.Image)
	}

	res := s.replaceCatalog(products, categories)

	for _, l := range res.Trimmed {
		s.deps.Notifier.Notify(ctx, domain.NotifyWarning, fmt.Sprintf(
			"%d unit(s) of %q are no longer available and left the cart",
			l.Quantity, l.Name,
		))
	}
	s.publishStockEvents(ctx, res.Events)

	log.Info("catalog loaded",
		"nProducts", len(products),
		"nCategories", len(categories),
		"nTrimmed", len(res.Trimmed),
	)
	return nil
}

// Browse makes state the current view and returns its page.
func (s *Storefront) Browse(
	ctx context.Context, state domain.FilterState,
) (domain.ProductPage, error) {
	const op = "Storefront.Browse"

	if err := ctx.Err(); err != nil {
		return domain.ProductPage{}, fmt.Errorf("%s: %w", op, err)
	}

	if state.PageSize < 1 {
		state.PageSize = s.defaults.PageSize
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.view = state.Normalize()
	return s.pageLocked(), nil
}

func (s *Storefront) Categories(ctx context.Context) ([]domain.Category, error) {
	const op = "Storefront.Categories"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.catalog.Categories(), nil
}

func (s *Storefront) AddToCart(
	ctx context.Context, productID string,
) (domain.Snapshot, error) {
	const op = "Storefront.AddToCart"

	if err := ctx.Err(); err != nil {
		return domain.Snapshot{}, fmt.Errorf("%s: %w", op, err)
	}

	var evt domain.StockEvent
	snap, err := s.mutateCart(func() (err error) {
		evt, err = s.cart.Add(productID)
		return err
	})

	s.observe(ctx, "add", snap, err)
	if err != nil {
		if errors.Is(err, domain.ErrOutOfStock) {
			s.deps.Notifier.Notify(ctx, domain.NotifyWarning,
				fmt.Sprintf("product %q is out of stock", s.productName(productID)))
		}
		return domain.Snapshot{}, fmt.Errorf("%s: %w", op, err)
	}

	s.publishStockEvents(ctx, []domain.StockEvent{evt})
	return snap, nil
}

func (s *Storefront) RemoveFromCart(
	ctx context.Context, productID string,
) (domain.Snapshot, error) {
	const op = "Storefront.RemoveFromCart"

	if err := ctx.Err(); err != nil {
		return domain.Snapshot{}, fmt.Errorf("%s: %w", op, err)
	}

	var evts []domain.StockEvent
	snap, err := s.mutateCart(func() (err error) {
		evts, err = s.cart.Remove(productID)
		return err
	})

	s.observe(ctx, "remove", snap, err)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("%s: %w", op, err)
	}

	s.publishStockEvents(ctx, evts)
	return snap, nil
}

// ClearCart empties the cart. On partial failure the cart is still empty and
// the returned snapshot is valid next to the aggregated error.
func (s *Storefront) ClearCart(ctx context.Context) (domain.Snapshot, error) {
	const op = "Storefront.ClearCart"

	if err := ctx.Err(); err != nil {
		return domain.Snapshot{}, fmt.Errorf("%s: %w", op, err)
	}

	var evts []domain.StockEvent
	snap, err := s.mutateCart(func() (err error) {
		evts, err = s.cart.Clear()
		return err
	})

	s.observe(ctx, "clear", snap, err)
	s.publishStockEvents(ctx, evts)
	if err != nil {
		s.deps.Notifier.Notify(ctx, domain.NotifyWarning,
			"some cart lines could not be returned to stock")
		return snap, fmt.Errorf("%s: %w", op, err)
	}
	return snap, nil
}

func (s *Storefront) Cart(ctx context.Context) (domain.CartSummary, error) {
	const op = "Storefront.Cart"

	if err := ctx.Err(); err != nil {
		return domain.CartSummary{}, fmt.Errorf("%s: %w", op, err)
	}
	return s.cart.Summary(), nil
}

func (s *Storefront) replaceCatalog(
	products []domain.Product, categories []domain.Category,
) cart.ReapplyResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.catalog.Load(products)
	s.catalog.LoadCategories(categories)
	res := s.cart.Reapply()
	s.deps.Metrics.SetCartSize(s.cart.Count())
	return res
}

// mutateCart runs fn and derives the snapshot under the session lock.
func (s *Storefront) mutateCart(fn func() error) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := fn()
	return s.snapshotLocked(), err
}

func (s *Storefront) snapshotLocked() domain.Snapshot {
	return domain.Snapshot{
		Cart: s.cart.Summary(),
		Page: s.pageLocked(),
	}
}

func (s *Storefront) pageLocked() domain.ProductPage {
	return filterview.Apply(s.catalog.Products(), s.view)
}

func (s *Storefront) productName(id string) string {
	if p, err := s.catalog.Find(id); err == nil {
		return p.Name
	}
	return id
}

func (s *Storefront) observe(
	ctx context.Context, cartOp string, snap domain.Snapshot, err error,
) {
	s.deps.Metrics.ObserveCartOp(cartOp, err)
	s.deps.Metrics.SetCartSize(snap.Cart.Count)

	if errors.Is(err, domain.ErrInvalidState) {
		slog.ErrorContext(ctx, "stock conservation violated",
			"op", "Storefront.observe", "cartOp", cartOp, "err", err)
	}
}

func (s *Storefront) publishStockEvents(ctx context.Context, evts []domain.StockEvent) {
	const op = "Storefront.publishStockEvents"

	if len(evts) == 0 {
		return
	}
	if err := s.deps.StockEvents.PublishStockEvents(ctx, evts); err != nil {
		slog.Error("failed to publish stock events",
			"op", op, "nEvents", len(evts), "err", err)
	}
}
