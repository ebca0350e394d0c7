package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cbw-coffee/api/internal/domain"
	"github.com/cbw-coffee/api/internal/platform/config"
	"github.com/cbw-coffee/api/internal/platform/observability"
	"github.com/cbw-coffee/api/internal/repositories"
	"github.com/cbw-coffee/api/internal/services"
)

// Services bundles the service-layer contracts that handlers and cbwctl rely upon. Concrete
// implementations are assembled in NewContainer.
type Services struct {
	Orders   services.OrderService
	Catalog  services.CatalogService
	Counters services.CounterService
	Audit    services.AuditLogService
}

// Container wires repositories and services for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// Option customises container construction.
type Option func(*options)

type options struct {
	clock   func() time.Time
	idGen   func() string
	events  services.OrderEventPublisher
	metrics *observability.OrderMetrics
	logger  *zap.Logger
}

// WithClock overrides the clock shared by every service.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithIDGenerator overrides the ID source shared by every service.
func WithIDGenerator(gen func() string) Option {
	return func(o *options) {
		if gen != nil {
			o.idGen = gen
		}
	}
}

// WithEventPublisher sets where order lifecycle events go.
func WithEventPublisher(events services.OrderEventPublisher) Option {
	return func(o *options) { o.events = events }
}

// WithOrderMetrics sets the order instruments.
func WithOrderMetrics(metrics *observability.OrderMetrics) Option {
	return func(o *options) { o.metrics = metrics }
}

// WithLogger sets the base logger services derive named loggers from.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewContainer constructs the runtime dependencies. Production wiring passes the Firestore
// registry while tests can supply the in-memory store.
func NewContainer(cfg config.Config, reg repositories.Registry, opts ...Option) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}
	o := options{clock: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	svc, err := buildServices(reg, cfg, o)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: reg,
		Services:     svc,
	}, nil
}

// Close releases the registry's datastore clients.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(reg repositories.Registry, cfg config.Config, o options) (Services, error) {
	var svc Services

	auditSvc, err := services.NewAuditLogService(services.AuditLogServiceDeps{
		Repository:  reg.AuditLogs(),
		Clock:       o.clock,
		IDGenerator: o.idGen,
		Logger:      observability.EventLogger(o.logger.Named("audit")),
		HashSalt:    cfg.Auth.AdminJWTSecret,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build audit log service: %w", err)
	}
	svc.Audit = auditSvc

	catalogSvc, err := services.NewCatalogService(services.CatalogServiceDeps{
		Products:    reg.Products(),
		Clock:       o.clock,
		IDGenerator: o.idGen,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build catalog service: %w", err)
	}
	svc.Catalog = catalogSvc

	counterSvc, err := services.NewCounterService(services.CounterServiceDeps{
		Repository:   reg.Counters(),
		NumberPrefix: cfg.Orders.NumberPrefix,
		Clock:        o.clock,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build counter service: %w", err)
	}
	svc.Counters = counterSvc

	orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
		Orders: reg.Orders(),
		Store:  reg.OrderStore(),
		Pricing: domain.PricingPolicy{
			Currency:       cfg.Orders.Currency,
			DeliveryFee:    cfg.Orders.DeliveryFee,
			VATBasisPoints: cfg.Orders.VATBasisPoints,
		},
		NumberPrefix:    cfg.Orders.NumberPrefix,
		MaxLineQuantity: cfg.Orders.MaxLineQuantity,
		Clock:           o.clock,
		IDGenerator:     o.idGen,
		Events:          o.events,
		Metrics:         o.metrics,
		Logger:          observability.EventLogger(o.logger.Named("orders")),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order service: %w", err)
	}
	svc.Orders = orderSvc

	return svc, nil
}
