package service

import (
	"context"

	"github.com/niksmo/storefront/internal/core/domain"
)

type nopPublisher struct{}

func (nopPublisher) PublishStockEvents(context.Context, []domain.StockEvent) error {
	return nil
}

func (nopPublisher) PublishCatalogChange(context.Context, domain.CatalogChange) error {
	return nil
}

type nopMetrics struct{}

func (nopMetrics) ObserveCartOp(string, error) {}

func (nopMetrics) SetCartSize(int) {}
