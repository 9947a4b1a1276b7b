// Package container wires configuration, storage, services and background
// jobs together and manages their lifecycle.
package container

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/garyjia/bizflow/internal/application/dispatcher"
	"github.com/garyjia/bizflow/internal/application/pipeline"
	"github.com/garyjia/bizflow/internal/application/port"
	"github.com/garyjia/bizflow/internal/application/query"
	"github.com/garyjia/bizflow/internal/application/service"
	"github.com/garyjia/bizflow/internal/config"
	"github.com/garyjia/bizflow/internal/infrastructure/finance"
	"github.com/garyjia/bizflow/internal/infrastructure/messaging"
	"github.com/garyjia/bizflow/internal/infrastructure/persistence/memory"
	"github.com/garyjia/bizflow/internal/infrastructure/persistence/repository"
	"github.com/garyjia/bizflow/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/bizflow/internal/infrastructure/scheduler"
	"github.com/garyjia/bizflow/internal/infrastructure/sequence"
	"github.com/garyjia/bizflow/migrations"
	"github.com/garyjia/bizflow/pkg/database"
)

// DatabaseBundle holds the store and its transaction manager. DB and
// Migrator are nil for the memory driver.
type DatabaseBundle struct {
	DB        *database.DB
	Migrator  *database.Migrator
	TxManager port.TransactionManager
	sqlite    *sqlite.DB
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Opportunities port.OpportunityRepository
	Contracts     port.ContractRepository
	Projects      port.ProjectRepository
	Invoices      port.InvoiceRepository
	Purchases     port.PurchaseRequestRepository
	Expenses      port.ExpenseRequestRepository
	Approvals     port.ApprovalRepository
	Vouchers      port.VoucherRepository
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Opportunities service.OpportunityService
	Contracts     service.ContractService
	Projects      service.ProjectService
	Invoices      service.InvoiceService
	Purchases     service.PurchaseService
	Expenses      service.ExpenseService
	Vouchers      *service.VoucherService
}

// ProvideDatabase opens the configured store. For sqlite it also runs any
// pending migrations.
func ProvideDatabase(ctx context.Context, cfg *config.DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if cfg.Driver == config.DriverMemory {
		logger.Info("Using in-memory store")
		return &DatabaseBundle{TxManager: memory.NewTxManager()}, nil
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		BusyTimeout:     cfg.BusyTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	migrator := database.NewMigrator(db, logger.Named("migrate"))
	if _, err := migrator.Migrate(ctx, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	tx := sqlite.NewDB(db, logger)
	return &DatabaseBundle{DB: db, Migrator: migrator, TxManager: tx, sqlite: tx}, nil
}

// ProvideRepositories creates the repositories matching the database bundle
func ProvideRepositories(bundle *DatabaseBundle, logger *zap.Logger) (*RepositoryBundle, error) {
	if bundle == nil {
		return nil, fmt.Errorf("database bundle is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if bundle.sqlite == nil {
		return &RepositoryBundle{
			Opportunities: memory.NewOpportunityRepository(),
			Contracts:     memory.NewContractRepository(),
			Projects:      memory.NewProjectRepository(),
			Invoices:      memory.NewInvoiceRepository(),
			Purchases:     memory.NewPurchaseRequestRepository(),
			Expenses:      memory.NewExpenseRequestRepository(),
			Approvals:     memory.NewApprovalRepository(),
			Vouchers:      memory.NewVoucherRepository(),
		}, nil
	}

	db := bundle.sqlite
	return &RepositoryBundle{
		Opportunities: repository.NewOpportunityRepository(db, logger),
		Contracts:     repository.NewContractRepository(db, logger),
		Projects:      repository.NewProjectRepository(db, logger),
		Invoices:      repository.NewInvoiceRepository(db, logger),
		Purchases:     repository.NewPurchaseRequestRepository(db, logger),
		Expenses:      repository.NewExpenseRequestRepository(db, logger),
		Approvals:     repository.NewApprovalRepository(db, logger),
		Vouchers:      repository.NewVoucherRepository(db, logger),
	}, nil
}

// ProvideSequence creates the business code generator. The returned client
// is non-nil only for the redis backend and must be closed by the caller.
func ProvideSequence(ctx context.Context, cfg *config.Config, bundle *DatabaseBundle) (port.SequenceGenerator, *redis.Client, error) {
	switch cfg.Sequence.Backend {
	case config.SequenceMemory:
		return sequence.NewMemory(), nil, nil
	case config.SequenceSQLite:
		if bundle == nil || bundle.sqlite == nil {
			return nil, nil, fmt.Errorf("sqlite sequence requires the sqlite database driver")
		}
		return sequence.NewSQLite(bundle.sqlite), nil, nil
	case config.SequenceRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return sequence.NewRedis(client, cfg.Redis.KeyPrefix), client, nil
	default:
		return nil, nil, fmt.Errorf("unknown sequence backend %q", cfg.Sequence.Backend)
	}
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return dispatcher.NewDispatcher(
		dispatcher.WithLogger(NewLogger(logger.Named("dispatcher"))),
	), nil
}

// ProvideEventBridge republishes every dispatched event on an in-process
// watermill pub/sub and returns it for subscribers.
func ProvideEventBridge(d dispatcher.Dispatcher, logger *zap.Logger) (*gochannel.GoChannel, error) {
	pubSub := messaging.NewGoChannel(logger.Named("watermill"))
	if err := messaging.NewBridge(pubSub, logger).Attach(d); err != nil {
		_ = pubSub.Close()
		return nil, fmt.Errorf("failed to attach event bridge: %w", err)
	}
	return pubSub, nil
}

// ServiceDeps holds dependencies required for creating services.
type ServiceDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Sequence   port.SequenceGenerator
	Dispatcher dispatcher.Dispatcher
	Config     *config.Config
	Logger     *zap.Logger
}

// ProvideServices creates all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Sequence == nil {
		return nil, fmt.Errorf("sequence generator is required")
	}
	if deps.Config == nil {
		return nil, fmt.Errorf("config is required")
	}

	renderer, err := finance.NewExcelRenderer(
		deps.Config.Voucher.OutputDir,
		deps.Config.Voucher.CompanyName,
		deps.Config.Voucher.TemplatePath,
		deps.Logger.Named("voucher"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create voucher renderer: %w", err)
	}

	shared := service.Deps{
		TxManager: deps.TxManager,
		Sequence:  deps.Sequence,
		Events:    deps.Dispatcher,
		Logger:    NewLogger(deps.Logger.Named("service")),
	}
	repos := deps.Repos
	threshold := deps.Config.Pipeline.Threshold()

	return &ServiceBundle{
		Opportunities: service.NewOpportunityService(repos.Opportunities, shared),
		Contracts:     service.NewContractService(repos.Contracts, repos.Opportunities, repos.Approvals, shared),
		Projects:      service.NewProjectService(repos.Projects, repos.Contracts, shared),
		Invoices:      service.NewInvoiceService(repos.Invoices, repos.Projects, repos.Purchases, repos.Approvals, shared),
		Purchases:     service.NewPurchaseService(repos.Purchases, repos.Approvals, shared),
		Expenses:      service.NewExpenseService(repos.Expenses, repos.Approvals, threshold, shared),
		Vouchers: service.NewVoucherService(repos.Vouchers, repos.Expenses, service.VoucherOptions{
			Renderer:  renderer,
			Threshold: threshold,
			IssuerID:  deps.Config.Voucher.IssuerID,
		}, shared),
	}, nil
}

// ProvideOrchestrator creates the pipeline orchestrator
func ProvideOrchestrator(services *ServiceBundle, d dispatcher.Dispatcher, cfg *config.PipelineConfig, logger *zap.Logger) *pipeline.Orchestrator {
	return pipeline.NewOrchestrator(
		pipeline.Services{
			Opportunities: services.Opportunities,
			Contracts:     services.Contracts,
			Projects:      services.Projects,
			Invoices:      services.Invoices,
			Purchases:     services.Purchases,
			Expenses:      services.Expenses,
			Vouchers:      services.Vouchers,
		},
		pipeline.WithTimeout(cfg.Timeout),
		pipeline.WithActors(pipeline.Actors{
			Owner:            cfg.Actors.Owner,
			ContractApprover: cfg.Actors.ContractApprover,
			PurchaseApprover: cfg.Actors.PurchaseApprover,
			PaymentApprover:  cfg.Actors.PaymentApprover,
			Manager:          cfg.Actors.Manager,
			Finance:          cfg.Actors.Finance,
			CEO:              cfg.Actors.CEO,
		}),
		pipeline.WithEvents(d),
		pipeline.WithLogger(NewLogger(logger.Named("pipeline"))),
	)
}

// ProvideQuery creates the read-only query service
func ProvideQuery(repos *RepositoryBundle) *query.Service {
	return query.NewService(query.Repositories{
		Opportunities: repos.Opportunities,
		Contracts:     repos.Contracts,
		Projects:      repos.Projects,
		Invoices:      repos.Invoices,
		Purchases:     repos.Purchases,
		Expenses:      repos.Expenses,
		Approvals:     repos.Approvals,
	})
}

// ProvideOverdueSweeper creates the overdue invoice job; nil when the
// scheduler is disabled
func ProvideOverdueSweeper(cfg *config.SchedulerConfig, invoices service.InvoiceService, logger *zap.Logger) (*scheduler.OverdueSweeper, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	return scheduler.NewOverdueSweeper(cfg.OverdueCron, invoices, logger.Named("scheduler"))
}

// KVLogger adapts zap.Logger to the key-value Logger interfaces of the
// application and interface layers.
type KVLogger struct {
	logger *zap.Logger
}

// NewLogger wraps logger
func NewLogger(logger *zap.Logger) *KVLogger {
	return &KVLogger{logger: logger}
}

func (a *KVLogger) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *KVLogger) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

// convertToZapFields converts key-value pairs to zap fields.
func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		if err, ok := keysAndValues[i+1].(error); ok {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
