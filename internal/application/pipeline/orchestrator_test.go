package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/bizflow/internal/application/dispatcher"
	"github.com/garyjia/bizflow/internal/application/port"
	"github.com/garyjia/bizflow/internal/application/service"
	"github.com/garyjia/bizflow/internal/domain/entity"
	"github.com/garyjia/bizflow/internal/domain/event"
	"github.com/garyjia/bizflow/internal/infrastructure/persistence/memory"
	"github.com/garyjia/bizflow/internal/infrastructure/sequence"
)

var testNow = time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*event.Event
}

var _ dispatcher.Publisher = (*recordingPublisher)(nil)

func (d *recordingPublisher) Publish(_ context.Context, evt *event.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, evt)
}

func (d *recordingPublisher) all() []*event.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*event.Event(nil), d.events...)
}

// mockVoucherGenerator is a mock implementation of port.VoucherGenerator
type mockVoucherGenerator struct {
	GenerateVoucherFunc func(ctx context.Context, req *entity.ExpenseRequest) (*entity.Voucher, error)
}

func (m *mockVoucherGenerator) GenerateVoucher(ctx context.Context, req *entity.ExpenseRequest) (*entity.Voucher, error) {
	return m.GenerateVoucherFunc(ctx, req)
}

type harness struct {
	invoices  *memory.InvoiceRepository
	purchases *memory.PurchaseRequestRepository
	expenses  *memory.ExpenseRequestRepository
	approvals *memory.ApprovalRepository
	vouchers  *memory.VoucherRepository
	events    *recordingPublisher
	services  Services
}

func newHarness() *harness {
	h := &harness{
		invoices:  memory.NewInvoiceRepository(),
		purchases: memory.NewPurchaseRequestRepository(),
		expenses:  memory.NewExpenseRequestRepository(),
		approvals: memory.NewApprovalRepository(),
		vouchers:  memory.NewVoucherRepository(),
		events:    &recordingPublisher{},
	}
	opportunities := memory.NewOpportunityRepository()
	contracts := memory.NewContractRepository()
	projects := memory.NewProjectRepository()

	deps := service.Deps{
		TxManager: memory.NewTxManager(),
		Sequence:  sequence.NewMemory(),
		Events:    h.events,
		Now:       func() time.Time { return testNow },
	}
	h.services = Services{
		Opportunities: service.NewOpportunityService(opportunities, deps),
		Contracts:     service.NewContractService(contracts, opportunities, h.approvals, deps),
		Projects:      service.NewProjectService(projects, contracts, deps),
		Invoices:      service.NewInvoiceService(h.invoices, projects, h.purchases, h.approvals, deps),
		Purchases:     service.NewPurchaseService(h.purchases, h.approvals, deps),
		Expenses:      service.NewExpenseService(h.expenses, h.approvals, decimal.Zero, deps),
		Vouchers:      service.NewVoucherService(h.vouchers, h.expenses, service.VoucherOptions{}, deps),
	}
	return h
}

func (h *harness) orchestrator(opts ...Option) *Orchestrator {
	opts = append([]Option{WithEvents(h.events), WithClock(func() time.Time { return testNow })}, opts...)
	return NewOrchestrator(h.services, opts...)
}

func assertAllSucceeded(t *testing.T, trace *Trace) {
	t.Helper()
	for _, s := range trace.Steps {
		assert.True(t, s.Success, "step %s: %s", s.Name, s.Error)
		assert.NotZero(t, s.EntityID, "step %s", s.Name)
		assert.NotEmpty(t, s.Code, "step %s", s.Name)
	}
}

func TestOrchestrator_SalesToReceipt(t *testing.T) {
	h := newHarness()
	o := h.orchestrator()

	trace, err := o.SalesToReceipt(context.Background(), SalesToReceiptInput{
		CustomerID:        42,
		OpportunityAmount: decimal.NewFromInt(50000),
		ContractAmount:    decimal.NewFromInt(45000),
	})
	require.NoError(t, err)

	assert.True(t, trace.Success)
	assert.Equal(t, NameSalesToReceipt, trace.Pipeline)
	assert.Equal(t, []string{
		StepCreateOpportunity,
		StepQualifyOpportunity,
		StepCreateContract,
		StepApproveContract,
		StepCreateProject,
		StepUpdateProgress,
		StepIssueInvoice,
		StepReconcileInvoice,
	}, trace.StepNames())
	assertAllSucceeded(t, trace)

	step, ok := trace.Step(StepReconcileInvoice)
	require.True(t, ok)
	inv, err := h.invoices.GetByID(context.Background(), step.EntityID)
	require.NoError(t, err)
	assert.True(t, inv.Amount.Equal(decimal.NewFromInt(45000)))
	assert.True(t, inv.ReceivedAmount.Equal(decimal.NewFromInt(45000)))
	assert.Equal(t, entity.PaymentStatusPaid, inv.PaymentStatus)
	assert.Equal(t, entity.InvoiceStatusPaid, inv.Status)
	assert.Equal(t, testNow.AddDate(0, 0, 30), inv.DueDate)

	approve, _ := trace.Step(StepApproveContract)
	assert.Equal(t, entity.ContractStatusApproved, approve.Status)
	progress, _ := trace.Step(StepUpdateProgress)
	assert.Equal(t, entity.ProjectStatusExecuting, progress.Status)
}

func TestOrchestrator_ProcureToPay(t *testing.T) {
	h := newHarness()
	o := h.orchestrator()

	trace, err := o.ProcureToPay(context.Background(), ProcureToPayInput{
		DepartmentID:    4,
		ItemName:        "Workstation",
		Quantity:        3,
		EstimatedAmount: decimal.NewFromInt(18000),
	})
	require.NoError(t, err)
	assert.Len(t, trace.Steps, 7)
	assertAllSucceeded(t, trace)

	receive, _ := trace.Step(StepReceiveGoods)
	assert.Equal(t, entity.PurchaseStatusCompleted, receive.Status)

	register, _ := trace.Step(StepRegisterSupplierInvoice)
	assert.Equal(t, "SUP000001", register.Code)

	inv, err := h.invoices.GetByID(context.Background(), register.EntityID)
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusPaid, inv.Status)
	assert.Equal(t, entity.InvoiceTypePurchase, inv.InvoiceType)

	pr, err := h.purchases.GetByID(context.Background(), receive.EntityID)
	require.NoError(t, err)
	assert.Equal(t, DefaultSupplier, pr.SupplierName)

	records, err := h.approvals.List(context.Background(), port.ApprovalFilter{})
	require.NoError(t, err)
	require.Len(t, records, 2)
	byType := map[string]*entity.Approval{}
	for _, a := range records {
		byType[a.BusinessType] = a
	}
	assert.Equal(t, int64(2), byType[entity.BusinessTypePurchaseRequest].ApproverID)
	assert.Equal(t, int64(3), byType[entity.BusinessTypeInvoice].ApproverID)
	assert.Equal(t, entity.ApprovalLevelSingleGate, byType[entity.BusinessTypeInvoice].ApprovalLevel)
}

func TestOrchestrator_ExpenseReimbursement(t *testing.T) {
	tests := []struct {
		name        string
		expenseType string
		amount      int64
		description string
		wantSteps   []string
	}{
		{
			name:        "above threshold includes CEO approval",
			expenseType: entity.ExpenseTypeTravel,
			amount:      15000,
			description: "conference",
			wantSteps: []string{
				StepCreateExpenseRequest, StepSubmitExpense, StepManagerApprove,
				StepFinanceReview, StepCEOApprove, StepGenerateVoucher, StepPayExpense,
			},
		},
		{
			name:        "below threshold skips CEO approval",
			expenseType: entity.ExpenseTypeMeal,
			amount:      200,
			description: "lunch",
			wantSteps: []string{
				StepCreateExpenseRequest, StepSubmitExpense, StepManagerApprove,
				StepFinanceReview, StepGenerateVoucher, StepPayExpense,
			},
		},
		{
			name:        "exactly the threshold skips CEO approval",
			expenseType: entity.ExpenseTypeOffice,
			amount:      10000,
			description: "chairs",
			wantSteps: []string{
				StepCreateExpenseRequest, StepSubmitExpense, StepManagerApprove,
				StepFinanceReview, StepGenerateVoucher, StepPayExpense,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			o := h.orchestrator()

			trace, err := o.ExpenseReimbursement(context.Background(), ExpenseInput{
				EmployeeID:  7,
				ExpenseType: tt.expenseType,
				Amount:      decimal.NewFromInt(tt.amount),
				Description: tt.description,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantSteps, trace.StepNames())
			assertAllSucceeded(t, trace)

			pay, _ := trace.Step(StepPayExpense)
			req, err := h.expenses.GetByID(context.Background(), pay.EntityID)
			require.NoError(t, err)
			assert.Equal(t, entity.ExpenseStatusPaid, req.Status)
			assert.Equal(t, "VCH000001", req.VoucherNo)
			assert.Equal(t, PaymentMethodBankTransfer, req.PaymentMethod)

			voucher, err := h.vouchers.GetByExpenseRequestID(context.Background(), req.ID)
			require.NoError(t, err)
			assert.True(t, voucher.TotalAmount.Equal(decimal.NewFromInt(tt.amount)))
		})
	}
}

func TestOrchestrator_PartialFailureKeepsCommittedSteps(t *testing.T) {
	h := newHarness()
	h.services.Vouchers = &mockVoucherGenerator{
		GenerateVoucherFunc: func(context.Context, *entity.ExpenseRequest) (*entity.Voucher, error) {
			return nil, errors.New("finance system unavailable")
		},
	}
	o := h.orchestrator()

	trace, err := o.ExpenseReimbursement(context.Background(), ExpenseInput{
		EmployeeID:  7,
		ExpenseType: entity.ExpenseTypeTransport,
		Amount:      decimal.NewFromInt(300),
		Description: "taxi",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), StepGenerateVoucher)

	assert.False(t, trace.Success)
	assert.Contains(t, trace.Message, "finance system unavailable")
	require.Len(t, trace.Steps, 5)
	for _, s := range trace.Steps[:4] {
		assert.True(t, s.Success, s.Name)
	}
	last := trace.Steps[4]
	assert.Equal(t, StepGenerateVoucher, last.Name)
	assert.False(t, last.Success)
	assert.Equal(t, "finance system unavailable", last.Error)

	created, _ := trace.Step(StepCreateExpenseRequest)
	req, err := h.expenses.GetByID(context.Background(), created.EntityID)
	require.NoError(t, err)
	assert.Equal(t, entity.ExpenseStatusFinanceReviewed, req.Status)
	assert.Empty(t, req.VoucherNo)
}

func TestOrchestrator_StepErrorsKeepSentinels(t *testing.T) {
	h := newHarness()
	h.services.Vouchers = &mockVoucherGenerator{
		GenerateVoucherFunc: func(context.Context, *entity.ExpenseRequest) (*entity.Voucher, error) {
			return nil, entity.ErrInvalidTransition
		},
	}
	o := h.orchestrator()

	_, err := o.ExpenseReimbursement(context.Background(), ExpenseInput{
		EmployeeID:  7,
		ExpenseType: entity.ExpenseTypeOther,
		Amount:      decimal.NewFromInt(10),
	})
	assert.True(t, errors.Is(err, entity.ErrInvalidTransition))
}

func TestOrchestrator_InvalidInput(t *testing.T) {
	h := newHarness()
	o := h.orchestrator()

	trace, err := o.SalesToReceipt(context.Background(), SalesToReceiptInput{CustomerID: 42})
	assert.True(t, errors.Is(err, entity.ErrValidation))
	assert.False(t, trace.Success)
	assert.Empty(t, trace.Steps)

	_, err = o.ExpenseReimbursement(context.Background(), ExpenseInput{
		EmployeeID:  7,
		ExpenseType: "GIFT",
		Amount:      decimal.NewFromInt(10),
	})
	assert.True(t, errors.Is(err, entity.ErrValidation))
}

func TestOrchestrator_CancelledBeforeStart(t *testing.T) {
	h := newHarness()
	o := h.orchestrator()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	trace, err := o.ProcureToPay(ctx, ProcureToPayInput{
		DepartmentID:    4,
		ItemName:        "Desk",
		Quantity:        1,
		EstimatedAmount: decimal.NewFromInt(900),
	})
	assert.True(t, errors.Is(err, context.Canceled))
	require.Len(t, trace.Steps, 1)
	assert.Equal(t, StepCreatePurchaseRequest, trace.Steps[0].Name)
	assert.False(t, trace.Steps[0].Success)

	requests, err := h.purchases.List(context.Background(), port.PurchaseRequestFilter{})
	require.NoError(t, err)
	assert.Empty(t, requests)
}

func TestOrchestrator_Timeout(t *testing.T) {
	h := newHarness()
	h.services.Vouchers = &mockVoucherGenerator{
		GenerateVoucherFunc: func(ctx context.Context, _ *entity.ExpenseRequest) (*entity.Voucher, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	o := h.orchestrator(WithTimeout(50 * time.Millisecond))

	trace, err := o.ExpenseReimbursement(context.Background(), ExpenseInput{
		EmployeeID:  7,
		ExpenseType: entity.ExpenseTypeMeal,
		Amount:      decimal.NewFromInt(50),
	})
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	names := trace.StepNames()
	require.NotEmpty(t, names)
	assert.Equal(t, StepGenerateVoucher, names[len(names)-1])
	assert.False(t, trace.Success)
}

func TestOrchestrator_EventsShareCorrelationID(t *testing.T) {
	h := newHarness()
	o := h.orchestrator()

	trace, err := o.ExpenseReimbursement(context.Background(), ExpenseInput{
		EmployeeID:  7,
		ExpenseType: entity.ExpenseTypeMeal,
		Amount:      decimal.NewFromInt(80),
	})
	require.NoError(t, err)
	require.NotEmpty(t, trace.CorrelationID)

	events := h.events.all()
	require.NotEmpty(t, events)

	var finished *event.Event
	for _, evt := range events {
		assert.Equal(t, trace.CorrelationID, evt.CorrelationID, "event %s", evt.Type)
		if evt.Type == event.TypePipelineFinished {
			finished = evt
		}
	}
	require.NotNil(t, finished)
	assert.True(t, finished.Payload.Bool("success"))
	assert.Equal(t, NameExpenseReimbursement, finished.EntityKind)
}

func TestOrchestrator_ConcurrentRunsGetDistinctCodes(t *testing.T) {
	h := newHarness()
	o := h.orchestrator()

	const runs = 8
	var wg sync.WaitGroup
	codes := make(chan string, runs)
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			trace, err := o.SalesToReceipt(context.Background(), SalesToReceiptInput{
				CustomerID:        42,
				OpportunityAmount: decimal.NewFromInt(1000),
				ContractAmount:    decimal.NewFromInt(900),
			})
			if err != nil {
				return
			}
			step, _ := trace.Step(StepIssueInvoice)
			codes <- step.Code
		}()
	}
	wg.Wait()
	close(codes)

	seen := map[string]bool{}
	for code := range codes {
		assert.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true
	}
	assert.Len(t, seen, runs)
}

func TestDefaultActors(t *testing.T) {
	actors := DefaultActors()
	assert.Equal(t, int64(2), actors.ContractApprover)
	assert.Equal(t, int64(2), actors.PurchaseApprover)
	assert.Equal(t, int64(3), actors.PaymentApprover)
	assert.Equal(t, int64(2), actors.Manager)
	assert.Equal(t, int64(3), actors.Finance)
	assert.Equal(t, int64(4), actors.CEO)
}
