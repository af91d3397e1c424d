package app

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/niksmo/storefront/config"
	"github.com/niksmo/storefront/internal/adapter"
	"github.com/niksmo/storefront/internal/adapter/httphandler"
	"github.com/niksmo/storefront/internal/adapter/kafka"
	"github.com/niksmo/storefront/internal/adapter/metrics"
	"github.com/niksmo/storefront/internal/adapter/notify"
	"github.com/niksmo/storefront/internal/adapter/storage"
	"github.com/niksmo/storefront/internal/core/port"
	"github.com/niksmo/storefront/internal/core/service"
	"github.com/niksmo/storefront/pkg/schema"
)

type serdes struct {
	stockEvent    schema.Serde
	catalogChange schema.Serde
}

type producers struct {
	stockEvents    *kafka.StockEventsProducer
	catalogChanges *kafka.CatalogChangesProducer
}

type background struct {
	catalogChanges port.CatalogChangesConsumer
	ledgerProc     port.ReservationLedgerProcessor
	ledgerView     *kafka.ReservationLedgerView
}

// App wires the storefront. Without seed brokers it runs with the HTTP API
// and the database only.
type App struct {
	ctx        context.Context
	cfg        config.Config
	tlsConfig  *tls.Config
	sqlDB      storage.SQLDB
	serdes     serdes
	producers  producers
	metrics    *metrics.CartMetrics
	storefront *service.Storefront
	background background
	httpServer httphandler.HTTPServer

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

func New(ctx context.Context, cfg config.Config) *App {
	app := &App{ctx: ctx, cfg: cfg}

	app.initLogger()
	app.initStorage()
	if app.brokerEnabled() {
		app.initTLS()
		app.initSerdes()
		app.initProducers()
	}
	app.initCoreService()
	if app.brokerEnabled() {
		app.initBackground()
	}
	app.initInboundAdapters()

	return app
}

func (app *App) brokerEnabled() bool {
	return len(app.cfg.Broker.SeedBrokers) != 0
}

func (app *App) initLogger() {
	opts := &slog.HandlerOptions{Level: app.cfg.LogLevel}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, opts))
	slog.SetDefault(logger)
}

func (app *App) initStorage() {
	const op = "App.initStorage"

	db, err := storage.NewSQLDB(app.ctx, app.cfg.SQLDB)
	if err != nil {
		app.fallDown(op, err)
	}
	app.sqlDB = db
}

func (app *App) initTLS() {
	const op = "App.initTLS"

	t := app.cfg.Broker.TLS
	tlsConfig, err := adapter.MakeTLSConfig(t.CA, t.Cert, t.Key)
	if err != nil {
		app.fallDown(op, err)
	}
	app.tlsConfig = tlsConfig
	kafka.ConfigureGoka(tlsConfig)
}

func (app *App) initSerdes() {
	const op = "App.initSerdes"

	registry, err := schema.NewRegistry(app.cfg.Broker.SchemaRegistryURLs...)
	if err != nil {
		app.fallDown(op, err)
	}

	topics := app.cfg.Broker.Topics
	stockEventSerde, err := schema.NewSerdeStockEventV1(
		app.ctx,
		schema.SubjectOpt(schema.ValueSubject(topics.StockEvents)),
		schema.SchemaIdentifierOpt(registry),
	)
	if err != nil {
		app.fallDown(op, err)
	}

	catalogChangeSerde, err := schema.NewSerdeCatalogChangeV1(
		app.ctx,
		schema.SubjectOpt(schema.ValueSubject(topics.CatalogChanges)),
		schema.SchemaIdentifierOpt(registry),
	)
	if err != nil {
		app.fallDown(op, err)
	}

	app.serdes.stockEvent = stockEventSerde
	app.serdes.catalogChange = catalogChangeSerde
}

func (app *App) initProducers() {
	const op = "App.initProducers"

	seedBrokers := app.cfg.Broker.SeedBrokers
	topics := app.cfg.Broker.Topics

	stockEvents, err := kafka.NewStockEventsProducer(
		kafka.ProducerClientOpt(app.ctx, seedBrokers, topics.StockEvents, app.tlsConfig),
		kafka.ProducerEncoderOpt(app.serdes.stockEvent),
	)
	if err != nil {
		app.fallDown(op, err)
	}

	catalogChanges, err := kafka.NewCatalogChangesProducer(
		kafka.ProducerClientOpt(app.ctx, seedBrokers, topics.CatalogChanges, app.tlsConfig),
		kafka.ProducerEncoderOpt(app.serdes.catalogChange),
	)
	if err != nil {
		app.fallDown(op, err)
	}

	app.producers.stockEvents = &stockEvents
	app.producers.catalogChanges = &catalogChanges
}

func (app *App) initCoreService() {
	repo := storage.NewProductsRepository(app.sqlDB)
	app.metrics = metrics.NewCartMetrics()

	deps := service.Deps{
		Source:   repo,
		Admin:    repo,
		Notifier: notify.NewLogNotifier(slog.Default(), app.cfg.Catalog.AutoConfirm),
		Metrics:  app.metrics,
	}
	if app.producers.stockEvents != nil {
		deps.StockEvents = app.producers.stockEvents
	}
	if app.producers.catalogChanges != nil {
		deps.CatalogChanges = app.producers.catalogChanges
	}

	app.storefront = service.New(deps, service.Defaults{
		PageSize: app.cfg.Catalog.PageSize,
		Image:    app.cfg.Catalog.DefaultImage,
		Currency: app.cfg.Catalog.DefaultCurrency,
	})
}

func (app *App) initBackground() {
	const op = "App.initBackground"

	b := app.cfg.Broker

	consumer, err := kafka.NewCatalogChangesConsumer(
		kafka.ConsumerClientOpt(
			b.SeedBrokers, b.Topics.CatalogChanges,
			b.Consumers.CatalogReloadGroup, app.tlsConfig,
		),
		kafka.ConsumerDecoderOpt(app.serdes.catalogChange),
		kafka.ConsumerCatalogLoaderOpt(app.storefront),
	)
	if err != nil {
		app.fallDown(op, err)
	}

	ledgerProc, err := kafka.NewReservationLedgerProcessor(
		b.SeedBrokers, b.Topics.StockEvents,
		b.Consumers.ReservationLedgerGroup, app.serdes.stockEvent,
	)
	if err != nil {
		app.fallDown(op, err)
	}

	ledgerView, err := kafka.NewReservationLedgerView(
		b.SeedBrokers, b.Consumers.ReservationLedgerGroup,
	)
	if err != nil {
		app.fallDown(op, err)
	}

	app.background.catalogChanges = consumer
	app.background.ledgerProc = ledgerProc
	app.background.ledgerView = ledgerView
}

func (app *App) initInboundAdapters() {
	mux := http.NewServeMux()
	httphandler.RegisterCatalog(mux, app.storefront, app.storefront)
	httphandler.RegisterCart(mux, app.storefront)
	httphandler.RegisterProducts(mux, app.storefront)
	if app.background.ledgerView != nil {
		httphandler.RegisterLedger(mux, app.background.ledgerView)
	}
	mux.Handle("GET /metrics", app.metrics.Handler())

	app.httpServer = httphandler.NewHTTPServer(app.cfg.HTTPServerAddr, mux)
}

// Run loads the catalog and starts serving. stopFn is called when the HTTP
// server stops.
func (app *App) Run(stopFn context.CancelFunc) {
	const op = "App.Run"
	log := slog.With("op", op)

	if err := app.storefront.LoadCatalog(app.ctx); err != nil {
		log.Error("initial catalog load failed", "err", err)
	}

	bgCtx, cancel := context.WithCancel(app.ctx)
	app.bgCancel = cancel

	if app.brokerEnabled() {
		app.goBackground(func() { app.background.catalogChanges.Run(bgCtx) })
		app.goBackground(func() { app.background.ledgerProc.Run(bgCtx) })
		app.goBackground(func() { app.background.ledgerView.Run(bgCtx) })
	}

	go app.httpServer.Run(stopFn)

	log.Info("application is running")
}

func (app *App) goBackground(fn func()) {
	app.bgWG.Add(1)
	go func() {
		defer app.bgWG.Done()
		fn()
	}()
}

func (app *App) Close(ctx context.Context) {
	slog.Info("application is closing...")

	app.httpServer.Close(ctx)

	if app.bgCancel != nil {
		app.bgCancel()
	}
	if app.brokerEnabled() {
		app.background.ledgerProc.Close()
		app.background.catalogChanges.Close()
	}
	app.bgWG.Wait()

	if app.producers.stockEvents != nil {
		app.producers.stockEvents.Close()
	}
	if app.producers.catalogChanges != nil {
		app.producers.catalogChanges.Close()
	}
	app.sqlDB.Close()

	slog.Info("application is closed")
}

func (app *App) fallDown(op string, err error) {
	panic(fmt.Errorf("%s: %w", op, err))
}
