// Package pipeline drives the three fixed business pipelines through the
// workflow services and reports a step-by-step trace of each run.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/garyjia/bizflow/internal/application/dispatcher"
	"github.com/garyjia/bizflow/internal/application/port"
	"github.com/garyjia/bizflow/internal/application/service"
	"github.com/garyjia/bizflow/internal/domain/entity"
	"github.com/garyjia/bizflow/internal/domain/event"
	"github.com/garyjia/bizflow/pkg/utils"
)

// Pipeline names reported in traces
const (
	NameSalesToReceipt       = "sales_to_receipt"
	NameProcureToPay         = "procure_to_pay"
	NameExpenseReimbursement = "expense_reimbursement"
)

// DefaultTimeout bounds a single pipeline run
const DefaultTimeout = 30 * time.Second

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Actors are the user ids acting at each gate of the pipelines
type Actors struct {
	Owner            int64
	ContractApprover int64
	PurchaseApprover int64
	PaymentApprover  int64
	Manager          int64
	Finance          int64
	CEO              int64
}

// DefaultActors returns the gate actors used when none are configured
func DefaultActors() Actors {
	return Actors{
		Owner:            1,
		ContractApprover: 2,
		PurchaseApprover: 2,
		PaymentApprover:  3,
		Manager:          2,
		Finance:          3,
		CEO:              4,
	}
}

// Services are the workflow services a pipeline calls
type Services struct {
	Opportunities service.OpportunityService
	Contracts     service.ContractService
	Projects      service.ProjectService
	Invoices      service.InvoiceService
	Purchases     service.PurchaseService
	Expenses      service.ExpenseService
	Vouchers      port.VoucherGenerator
}

// Orchestrator runs the sales, procurement and expense pipelines. Steps are
// individually committed; a failing step stops the run and leaves earlier
// steps in place.
type Orchestrator struct {
	svc      Services
	actors   Actors
	timeout  time.Duration
	events   dispatcher.Publisher
	logger   Logger
	now      func() time.Time
	validate *validator.Validate
}

// Option configures the orchestrator
type Option func(*Orchestrator)

// WithTimeout sets the time budget of a single run
func WithTimeout(timeout time.Duration) Option {
	return func(o *Orchestrator) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

// WithActors sets the gate actors
func WithActors(actors Actors) Option {
	return func(o *Orchestrator) {
		o.actors = actors
	}
}

// WithEvents sets where pipeline completion events are published
func WithEvents(p dispatcher.Publisher) Option {
	return func(o *Orchestrator) {
		o.events = p
	}
}

// WithLogger sets the logger
func WithLogger(logger Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithClock overrides the time source used for dates and trace timestamps
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// NewOrchestrator creates a new Orchestrator
func NewOrchestrator(svc Services, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		svc:      svc,
		actors:   DefaultActors(),
		timeout:  DefaultTimeout,
		logger:   nopLogger{},
		now:      time.Now,
		validate: utils.NewValidator(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Step is the outcome of one pipeline stage
type Step struct {
	Name       string `json:"name"`
	Success    bool   `json:"success"`
	EntityKind string `json:"entity_kind,omitempty"`
	EntityID   int64  `json:"entity_id,omitempty"`
	Code       string `json:"code,omitempty"`
	Status     string `json:"status,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Trace is the ordered record of a pipeline run
type Trace struct {
	CorrelationID string    `json:"correlation_id"`
	Pipeline      string    `json:"pipeline"`
	Steps         []Step    `json:"steps"`
	Success       bool      `json:"success"`
	Message       string    `json:"message"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
}

// Step returns the step with the given name
func (t *Trace) Step(name string) (Step, bool) {
	for _, s := range t.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return Step{}, false
}

// StepNames lists the names of the recorded steps in order
func (t *Trace) StepNames() []string {
	names := make([]string, len(t.Steps))
	for i, s := range t.Steps {
		names[i] = s.Name
	}
	return names
}

// ref identifies the entity a step produced or advanced
type ref struct {
	kind   entity.Kind
	id     int64
	code   string
	status string
}

// run is the state of one pipeline execution
type run struct {
	ctx   context.Context
	trace *Trace
}

// step executes fn unless the run was cancelled and appends its outcome
func (r *run) step(name string, fn func(ctx context.Context) (ref, error)) error {
	if err := r.ctx.Err(); err != nil {
		r.trace.Steps = append(r.trace.Steps, Step{Name: name, Error: err.Error()})
		return fmt.Errorf("step %s: %w", name, err)
	}

	res, err := fn(r.ctx)
	s := Step{
		Name:       name,
		Success:    err == nil,
		EntityKind: string(res.kind),
		EntityID:   res.id,
		Code:       res.code,
		Status:     res.status,
	}
	if err != nil {
		s.Error = err.Error()
	}
	r.trace.Steps = append(r.trace.Steps, s)
	if err != nil {
		return fmt.Errorf("step %s: %w", name, err)
	}
	return nil
}

// execute runs body under the pipeline timeout with a fresh correlation id
// and completes the trace
func (o *Orchestrator) execute(ctx context.Context, name string, input interface{}, body func(r *run) error) (*Trace, error) {
	correlationID := uuid.NewString()
	trace := &Trace{
		CorrelationID: correlationID,
		Pipeline:      name,
		Steps:         []Step{},
		StartedAt:     o.now(),
	}

	if err := o.validate.Struct(input); err != nil {
		err = fmt.Errorf("%w: %s", entity.ErrValidation, utils.ValidationMessage(err))
		o.finish(ctx, trace, err)
		return trace, err
	}

	runCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	runCtx = event.WithCorrelationID(runCtx, correlationID)

	o.logger.Info("Pipeline started", "pipeline", name, "correlation_id", correlationID)
	err := body(&run{ctx: runCtx, trace: trace})
	o.finish(runCtx, trace, err)
	return trace, err
}

func (o *Orchestrator) finish(ctx context.Context, trace *Trace, err error) {
	trace.FinishedAt = o.now()
	trace.Success = err == nil
	if err != nil {
		trace.Message = fmt.Sprintf("%s failed: %v", trace.Pipeline, err)
		o.logger.Error("Pipeline failed",
			"pipeline", trace.Pipeline,
			"correlation_id", trace.CorrelationID,
			"completed_steps", completed(trace),
			"error", err,
		)
	} else {
		trace.Message = fmt.Sprintf("%s completed in %d steps", trace.Pipeline, len(trace.Steps))
		o.logger.Info("Pipeline completed",
			"pipeline", trace.Pipeline,
			"correlation_id", trace.CorrelationID,
			"steps", len(trace.Steps),
		)
	}

	if o.events != nil {
		ctx = event.WithCorrelationID(context.WithoutCancel(ctx), trace.CorrelationID)
		o.events.Publish(ctx, event.NewEvent(ctx, event.TypePipelineFinished, trace.Pipeline, 0, "", event.Payload{
			"success": trace.Success,
			"steps":   trace.StepNames(),
			"message": trace.Message,
		}))
	}
}

func completed(trace *Trace) int {
	n := 0
	for _, s := range trace.Steps {
		if s.Success {
			n++
		}
	}
	return n
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{}) {}
func (nopLogger) Error(string, ...interface{}) {}
