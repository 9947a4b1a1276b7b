package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/garyjia/bizflow/internal/application/dispatcher"
	"github.com/garyjia/bizflow/internal/application/pipeline"
	"github.com/garyjia/bizflow/internal/application/port"
	"github.com/garyjia/bizflow/internal/application/query"
	"github.com/garyjia/bizflow/internal/config"
	"github.com/garyjia/bizflow/internal/infrastructure/scheduler"
)

// Container manages all application dependencies and lifecycle.
// Components start in dependency order and close in reverse order.
type Container struct {
	config *config.Config
	logger *zap.Logger

	// Infrastructure - Data
	data         *DatabaseBundle
	repositories *RepositoryBundle
	sequence     port.SequenceGenerator
	redis        *redis.Client

	// Application
	dispatcher   dispatcher.Dispatcher
	pubSub       *gochannel.GoChannel
	services     *ServiceBundle
	orchestrator *pipeline.Orchestrator
	query        *query.Service

	// Background jobs
	sweeper *scheduler.OverdueSweeper

	// Lifecycle
	mu     sync.RWMutex
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

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components in dependency order:
// 1. Database and repositories
// 2. Sequence generator
// 3. Event dispatcher and watermill bridge
// 4. Application services, orchestrator and query service
// 5. Overdue sweeper
//
// A failed start releases whatever was already opened.
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.logger.Info("Starting container initialization")

	if err := c.start(ctx); err != nil {
		c.shutdown()
		return err
	}

	c.ready.Store(true)
	c.logger.Info("Container started successfully")
	return nil
}

func (c *Container) start(ctx context.Context) error {
	// Step 1: Initialize database and repositories
	if err := c.initDatabase(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized", zap.String("driver", c.config.Database.Driver))

	// Step 2: Initialize sequence generator
	seq, client, err := ProvideSequence(ctx, c.config, c.data)
	if err != nil {
		return fmt.Errorf("failed to initialize sequence: %w", err)
	}
	c.sequence, c.redis = seq, client
	c.logger.Info("Sequence generator initialized", zap.String("backend", c.config.Sequence.Backend))

	// Step 3: Initialize dispatcher and event bridge
	disp, err := ProvideDispatcher(c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize dispatcher: %w", err)
	}
	c.dispatcher = disp
	pubSub, err := ProvideEventBridge(disp, c.logger)
	if err != nil {
		return err
	}
	c.pubSub = pubSub

	// Step 4: Initialize application services
	services, err := ProvideServices(&ServiceDeps{
		Repos:      c.repositories,
		TxManager:  c.data.TxManager,
		Sequence:   c.sequence,
		Dispatcher: c.dispatcher,
		Config:     c.config,
		Logger:     c.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.services = services
	c.orchestrator = ProvideOrchestrator(services, c.dispatcher, &c.config.Pipeline, c.logger)
	c.query = ProvideQuery(c.repositories)
	c.logger.Info("Application services initialized")

	// Step 5: Start background jobs
	sweeper, err := ProvideOverdueSweeper(&c.config.Scheduler, services.Invoices, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize scheduler: %w", err)
	}
	if sweeper != nil {
		if err := sweeper.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		c.sweeper = sweeper
	}

	return nil
}

func (c *Container) initDatabase(ctx context.Context) error {
	bundle, err := ProvideDatabase(ctx, &c.config.Database, c.logger)
	if err != nil {
		return err
	}
	c.data = bundle

	repos, err := ProvideRepositories(bundle, c.logger)
	if err != nil {
		return err
	}
	c.repositories = repos
	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")
	errs := c.shutdown()

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors: %w", len(errs), errs[0])
	}

	c.logger.Info("Container closed successfully")
	return nil
}

func (c *Container) shutdown() []error {
	var errs []error

	// Step 1: Stop background jobs
	if c.sweeper != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := c.sweeper.Stop(ctx); err != nil {
			c.logger.Error("Failed to stop scheduler", zap.Error(err))
			errs = append(errs, fmt.Errorf("stop scheduler: %w", err))
		}
		cancel()
		c.sweeper = nil
	}

	// Step 2: Close dispatcher, then the pub/sub it feeds
	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		}
		c.dispatcher = nil
	}
	if c.pubSub != nil {
		if err := c.pubSub.Close(); err != nil {
			c.logger.Error("Failed to close pub/sub", zap.Error(err))
			errs = append(errs, fmt.Errorf("close pub/sub: %w", err))
		}
		c.pubSub = nil
	}

	// Step 3: Close sequence backend
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			c.logger.Error("Failed to close redis client", zap.Error(err))
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
		c.redis = nil
	}

	// Step 4: Close database
	if c.data != nil && c.data.DB != nil {
		if err := c.data.DB.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
		c.data.DB = nil
	}

	return errs
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}
	set := func(name string, err error) {
		if err != nil {
			status.Components[name] = ComponentHealth{Healthy: false, Message: err.Error()}
			status.Overall = false
			return
		}
		status.Components[name] = ComponentHealth{Healthy: true}
	}

	switch {
	case c.data != nil && c.data.DB != nil:
		if err := c.data.DB.PingContext(ctx); err != nil {
			set("database", fmt.Errorf("ping failed: %w", err))
			break
		}
		version, err := c.data.Migrator.Version(ctx)
		if err != nil {
			set("database", err)
			break
		}
		status.Components["database"] = ComponentHealth{
			Healthy: true,
			Message: fmt.Sprintf("%s schema v%d", c.data.DB.Path(), version),
		}
	case c.repositories != nil:
		status.Components["database"] = ComponentHealth{Healthy: true, Message: "in-memory"}
	default:
		set("database", fmt.Errorf("not initialized"))
	}

	if c.redis != nil {
		if err := c.redis.Ping(ctx).Err(); err != nil {
			set("sequence", fmt.Errorf("redis ping failed: %w", err))
		} else {
			set("sequence", nil)
		}
	} else if c.sequence != nil {
		set("sequence", nil)
	} else {
		set("sequence", fmt.Errorf("not initialized"))
	}

	if c.dispatcher != nil {
		set("dispatcher", nil)
	} else {
		set("dispatcher", fmt.Errorf("not initialized"))
	}

	if c.config.Scheduler.Enabled {
		if c.sweeper != nil {
			set("scheduler", nil)
		} else {
			set("scheduler", fmt.Errorf("not running"))
		}
	}

	return status
}

// Getters for accessing container components

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Events returns the pub/sub carrying every dispatched event on
// messaging.Topic.
func (c *Container) Events() *gochannel.GoChannel {
	return c.pubSub
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Orchestrator returns the pipeline orchestrator.
func (c *Container) Orchestrator() *pipeline.Orchestrator {
	return c.orchestrator
}

// Query returns the read-only query service.
func (c *Container) Query() *query.Service {
	return c.query
}

// Sweeper returns the overdue invoice job, nil when disabled.
func (c *Container) Sweeper() *scheduler.OverdueSweeper {
	return c.sweeper
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *config.Config {
	return c.config
}
