package container

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/garyjia/expense-wizard/internal/application/dispatcher"
	"github.com/garyjia/expense-wizard/internal/application/notify"
	"github.com/garyjia/expense-wizard/internal/application/port"
	"github.com/garyjia/expense-wizard/internal/application/service"
	"github.com/garyjia/expense-wizard/internal/config"
	"github.com/garyjia/expense-wizard/internal/infrastructure/document"
	"github.com/garyjia/expense-wizard/internal/infrastructure/export"
	"github.com/garyjia/expense-wizard/internal/infrastructure/worker"
	httpapi "github.com/garyjia/expense-wizard/internal/interfaces/http"
)

// Container holds every component of a running wizard. Components are
// built in dependency order by Start and released in reverse by Close.
type Container struct {
	config *config.Config
	logger *zap.Logger

	store      port.DraftStore
	gateway    port.AIGateway
	dispatcher dispatcher.Dispatcher
	service    *service.WizardService
	workers    *worker.Manager
	server     *httpapi.Server

	mu     sync.Mutex
	ready  atomic.Bool
	closed atomic.Bool
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a container from validated configuration.
// It does not build components; call Start.
func NewContainer(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Container{config: cfg, logger: logger}, nil
}

// Start builds the store, AI gateway, event dispatcher with notifiers,
// wizard service, janitor and HTTP server, in that order. Nothing is
// serving yet when Start returns; see Run.
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return errors.New("container has been closed")
	}
	if c.ready.Load() {
		return errors.New("container already started")
	}

	c.logger.Info("Starting container initialization")

	store, err := ProvideStore(ctx, c.config.Storage, c.logger)
	if err != nil {
		return err
	}
	c.store = store
	c.logger.Info("Draft store opened", zap.String("driver", c.config.Storage.Driver))

	gateway, err := ProvideGateway(ctx, c.config.AI, c.config.Wizard.Company, c.logger)
	if err != nil {
		c.release()
		return err
	}
	c.gateway = gateway
	c.logger.Info("AI gateway ready", zap.String("provider", c.config.AI.Provider))

	c.dispatcher = dispatcher.New(c.logger)
	notify.Register(c.dispatcher, "log", notify.NewLogNotifier(c.logger))
	notifiers, err := ProvideNotifiers(c.config.Notify, c.logger)
	if err != nil {
		c.release()
		return err
	}
	for _, n := range notifiers {
		notify.Register(c.dispatcher, n.Name, n.Notifier)
		c.logger.Info("Notifier registered", zap.String("name", n.Name))
	}

	c.service = service.NewWizardService(
		service.Config{
			Company:   c.config.Wizard.Company,
			AITimeout: c.config.AI.Timeout,
			DraftTTL:  c.config.Wizard.DraftTTL,
		},
		c.store,
		c.gateway,
		export.NewXLSXExporter(c.logger),
		c.dispatcher,
		c.logger,
	)

	c.workers = worker.NewManager(c.logger)
	c.workers.Register(worker.NewJanitor(c.service, c.config.Worker.JanitorInterval, c.logger))

	sugar := c.logger.Sugar()
	handlers := httpapi.NewHandlers(
		c.service,
		document.NewNormalizer(c.config.Wizard.MaxUploadBytes),
		c.config.Wizard.Company,
		sugar,
	)
	c.server = httpapi.NewServer(httpapi.ServerConfig{
		Addr:            c.config.Server.Addr(),
		Mode:            c.config.Server.Mode,
		ReadTimeout:     c.config.Server.ReadTimeout,
		WriteTimeout:    c.config.Server.WriteTimeout,
		ShutdownTimeout: c.config.Server.ShutdownTimeout,
		AllowedOrigins:  c.config.Server.AllowedOrigins,
		MaxUploadBytes:  c.config.Wizard.MaxUploadBytes,
	}, handlers, sugar)

	c.ready.Store(true)
	c.logger.Info("Container started successfully")
	return nil
}

// Run serves HTTP and runs the background workers until ctx is cancelled
// or one of them fails.
func (c *Container) Run(ctx context.Context) error {
	if !c.ready.Load() {
		return errors.New("container not started")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.server.Start(gctx) })
	g.Go(func() error { return c.workers.Run(gctx) })
	return g.Wait()
}

// Close releases components in reverse order. The dispatcher is drained
// before the store closes so pending notifications still go out.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Swap(true) {
		return errors.New("container already closed")
	}
	c.logger.Info("Closing container")
	c.ready.Store(false)

	if err := c.release(); err != nil {
		c.logger.Error("Container closed with errors", zap.Error(err))
		return err
	}
	c.logger.Info("Container closed successfully")
	return nil
}

func (c *Container) release() error {
	var errs []error

	if c.workers != nil && c.workers.Running() {
		if err := c.workers.StopAll(); err != nil {
			errs = append(errs, fmt.Errorf("stop workers: %w", err))
		}
	}
	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil && !errors.Is(err, dispatcher.ErrClosed) {
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		}
	}
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Ready returns true when all components are built.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Service returns the wizard service
func (c *Container) Service() *service.WizardService {
	return c.service
}

// Server returns the HTTP server
func (c *Container) Server() *httpapi.Server {
	return c.server
}

// Health returns health status of all components.
func (c *Container) Health() *HealthStatus {
	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}
	set := func(name string, ok bool, msg string) {
		status.Components[name] = ComponentHealth{Healthy: ok, Message: msg}
		if !ok {
			status.Overall = false
		}
	}

	if c.store != nil {
		set("store", true, c.config.Storage.Driver)
	} else {
		set("store", false, "not initialized")
	}

	if c.gateway != nil {
		set("gateway", true, c.config.AI.Provider)
	} else {
		set("gateway", false, "not initialized")
	}

	if c.dispatcher != nil {
		set("dispatcher", true, "")
	} else {
		set("dispatcher", false, "not initialized")
	}

	if c.workers != nil {
		set("workers", true, fmt.Sprintf("worker count: %d, running: %t", c.workers.Count(), c.workers.Running()))
	} else {
		set("workers", false, "not initialized")
	}

	return status
}
