package service

import (
	"context"
	"sync"
	"time"

	"github.com/garyjia/bizflow/internal/application/dispatcher"
	"github.com/garyjia/bizflow/internal/application/port"
	"github.com/garyjia/bizflow/internal/domain/entity"
	"github.com/garyjia/bizflow/internal/domain/event"
	"github.com/garyjia/bizflow/internal/infrastructure/persistence/memory"
	"github.com/garyjia/bizflow/internal/infrastructure/sequence"
)

var testNow = time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC)

// recordingPublisher captures published events synchronously
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

func (d *recordingPublisher) ofType(t event.Type) []*event.Event {
	d.mu.Lock()
	defer d.mu.Unlock()

	var result []*event.Event
	for _, evt := range d.events {
		if evt.Type == t {
			result = append(result, evt)
		}
	}
	return result
}

// mockLogger is a mock implementation of Logger
type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

type testEnv struct {
	opportunities *memory.OpportunityRepository
	contracts     *memory.ContractRepository
	projects      *memory.ProjectRepository
	invoices      *memory.InvoiceRepository
	purchases     *memory.PurchaseRequestRepository
	expenses      *memory.ExpenseRequestRepository
	approvals     *memory.ApprovalRepository
	vouchers      *memory.VoucherRepository
	events        *recordingPublisher
	deps          Deps
}

func newTestEnv() *testEnv {
	events := &recordingPublisher{}
	return &testEnv{
		opportunities: memory.NewOpportunityRepository(),
		contracts:     memory.NewContractRepository(),
		projects:      memory.NewProjectRepository(),
		invoices:      memory.NewInvoiceRepository(),
		purchases:     memory.NewPurchaseRequestRepository(),
		expenses:      memory.NewExpenseRequestRepository(),
		approvals:     memory.NewApprovalRepository(),
		vouchers:      memory.NewVoucherRepository(),
		events:        events,
		deps: Deps{
			TxManager: memory.NewTxManager(),
			Sequence:  sequence.NewMemory(),
			Events:    events,
			Logger:    &mockLogger{},
			Now:       func() time.Time { return testNow },
		},
	}
}

func (e *testEnv) ledgerFor(businessType string, id int64) []*entity.Approval {
	records, _ := e.approvals.List(context.Background(), port.ApprovalFilter{BusinessType: &businessType, BusinessID: &id})
	return records
}
