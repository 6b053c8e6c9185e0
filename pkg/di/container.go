// Package di wires the shopsearch components together: database,
// repositories, record cache, per-entity search caches and the HTTP
// server. The search services receive their supervisor handles explicitly
// at construction; nothing is looked up through a global registry.
package di

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/arvik/shopsearch/cache"
	"github.com/arvik/shopsearch/httpapi"
	"github.com/arvik/shopsearch/internal/config"
	"github.com/arvik/shopsearch/internal/recordcache"
	"github.com/arvik/shopsearch/search"
	"github.com/arvik/shopsearch/storage"
)

// SummaryService is the search service shape shared by all entity types.
type SummaryService = search.Service[storage.EntitySummary]

// Container owns the object graph for one server process.
type Container struct {
	cfg    config.Config
	logger *zap.Logger
	db     *bun.DB

	records *recordcache.Service

	productSup  *cache.Supervisor[[]storage.EntitySummary]
	customerSup *cache.Supervisor[[]storage.EntitySummary]

	productSearch  *SummaryService
	customerSearch *SummaryService

	products   *storage.CachedRepository[storage.Product]
	customers  *storage.CachedRepository[storage.Customer]
	orders     *storage.CachedRepository[storage.Order]
	deliveries *storage.CachedRepository[storage.Delivery]

	server *httpapi.Server
}

// New builds the container. Supervisors are not started until Start.
func New(cfg config.Config, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := storage.Open(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	records, err := recordcache.New(recordcache.Config{
		Capacity:           cfg.RecordCache.Capacity,
		NumShards:          cfg.RecordCache.NumShards,
		TTL:                cfg.RecordCache.TTL.Std(),
		EvictionPercentage: cfg.RecordCache.EvictionPercentage,
	})
	if err != nil {
		return nil, fmt.Errorf("di: record cache: %w", err)
	}

	supCfg := cache.SupervisorConfig{
		MaxRestarts: cfg.SearchCache.MaxRestarts,
		Window:      cfg.SearchCache.RestartWindow.Std(),
		MailboxSize: cfg.SearchCache.MailboxSize,
	}
	productSup, err := cache.NewSupervisor[[]storage.EntitySummary](storage.EntityProduct, supCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("di: product supervisor: %w", err)
	}
	customerSup, err := cache.NewSupervisor[[]storage.EntitySummary](storage.EntityCustomer, supCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("di: customer supervisor: %w", err)
	}

	meter := otel.Meter("github.com/arvik/shopsearch")
	metrics, err := search.NewMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("di: search metrics: %w", err)
	}
	if err := search.RegisterBacklogGauge(meter, productSup, customerSup); err != nil {
		return nil, fmt.Errorf("di: backlog gauge: %w", err)
	}

	searchOpts := search.Options{
		PutTimeout: cfg.SearchCache.PutTimeout.Std(),
		Logger:     logger,
		Metrics:    metrics,
	}

	productRepo := storage.NewProductRepository(db)
	customerRepo := storage.NewCustomerRepository(db)

	productSearch := search.NewService[storage.EntitySummary](productSup, productRepo.SearchByName, searchOpts)
	customerSearch := search.NewService[storage.EntitySummary](customerSup, customerRepo.SearchByName, searchOpts)

	c := &Container{
		cfg:            cfg,
		logger:         logger,
		db:             db,
		records:        records,
		productSup:     productSup,
		customerSup:    customerSup,
		productSearch:  productSearch,
		customerSearch: customerSearch,
	}

	c.products = storage.NewCached[storage.Product](storage.EntityProduct, productRepo, records, productSearch, logger)
	c.customers = storage.NewCached[storage.Customer](storage.EntityCustomer, customerRepo, records, customerSearch, logger)
	// Orders and deliveries carry no autocomplete cache; only their
	// record caches are invalidated on write.
	c.orders = storage.NewCached[storage.Order](storage.EntityOrder, storage.NewOrderRepository(db), records, nil, logger)
	c.deliveries = storage.NewCached[storage.Delivery](storage.EntityDelivery, storage.NewDeliveryRepository(db), records, nil, logger)

	srv := httpapi.NewServer(httpapi.Config{
		SearchRatePerSecond: cfg.Server.SearchRatePerSecond,
		SearchRateBurst:     cfg.Server.SearchRateBurst,
	}, logger)
	srv.RegisterSearch("products", productSearch)
	srv.RegisterSearch("customers", customerSearch)
	httpapi.RegisterResource[storage.Product](srv, "products", c.products)
	httpapi.RegisterResource[storage.Customer](srv, "customers", c.customers)
	httpapi.RegisterResource[storage.Order](srv, "orders", c.orders)
	httpapi.RegisterResource[storage.Delivery](srv, "deliveries", c.deliveries)
	c.server = srv

	return c, nil
}

// Start migrates the schema and launches the cache supervisors.
func (c *Container) Start(ctx context.Context) error {
	if err := storage.Migrate(ctx, c.db); err != nil {
		return err
	}
	c.productSup.Start()
	c.customerSup.Start()
	return nil
}

// Stop shuts the supervisors down and closes the database.
func (c *Container) Stop() error {
	c.productSup.Stop()
	c.customerSup.Stop()
	return c.db.Close()
}

// Server returns the wired HTTP server.
func (c *Container) Server() *httpapi.Server { return c.server }

// DB exposes the database handle, mainly for seeding and tests.
func (c *Container) DB() *bun.DB { return c.db }

// ProductSearch returns the product autocomplete service.
func (c *Container) ProductSearch() *SummaryService { return c.productSearch }

// CustomerSearch returns the customer autocomplete service.
func (c *Container) CustomerSearch() *SummaryService { return c.customerSearch }

// Products returns the cached product repository.
func (c *Container) Products() *storage.CachedRepository[storage.Product] { return c.products }

// Customers returns the cached customer repository.
func (c *Container) Customers() *storage.CachedRepository[storage.Customer] { return c.customers }
