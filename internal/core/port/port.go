package port

import (
	"context"

	"github.com/niksmo/storefront/internal/core/domain"
)

type (
	runner interface {
		Run(context.Context)
	}

	closer interface {
		Close()
	}
)

// Inbound ports.

type CatalogLoader interface {
	LoadCatalog(context.Context) error
}

type ProductsBrowser interface {
	Browse(context.Context, domain.FilterState) (domain.ProductPage, error)
	Categories(context.Context) ([]domain.Category, error)
}

type CartManager interface {
	AddToCart(ctx context.Context, productID string) (domain.Snapshot, error)
	RemoveFromCart(ctx context.Context, productID string) (domain.Snapshot, error)
	ClearCart(context.Context) (domain.Snapshot, error)
	Cart(context.Context) (domain.CartSummary, error)
}

type ProductsManager interface {
	CreateProduct(context.Context, domain.Product) (domain.Product, error)
	UpdateProduct(ctx context.Context, id string, p domain.Product) (domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

type ReservationLedger interface {
	Reserved(ctx context.Context, productID string) (int, error)
}

// Outbound ports.

type ProductsSource interface {
	FetchProducts(context.Context) ([]domain.Product, error)
	FetchCategories(context.Context) ([]domain.Category, error)
}

type ProductsAdmin interface {
	CreateProduct(context.Context, domain.Product) (domain.Product, error)
	UpdateProduct(ctx context.Context, id string, p domain.Product) (domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

type Notifier interface {
	Notify(ctx context.Context, kind domain.NotificationKind, msg string)
	Confirm(ctx context.Context, msg string) bool
}

type StockEventsPublisher interface {
	PublishStockEvents(context.Context, []domain.StockEvent) error
}

type CatalogChangesPublisher interface {
	PublishCatalogChange(context.Context, domain.CatalogChange) error
}

type CartMetrics interface {
	ObserveCartOp(op string, err error)
	SetCartSize(units int)
}

// Background components.

type CatalogChangesConsumer interface {
	runner
	closer
}

type ReservationLedgerProcessor interface {
	runner
	closer
}
