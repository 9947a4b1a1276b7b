package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/bizflow/internal/application/port"
	"github.com/garyjia/bizflow/internal/domain/entity"
	"github.com/garyjia/bizflow/internal/domain/event"
)

func newInvoiceFixture(t *testing.T, env *testEnv, amount int64) (InvoiceService, *entity.Invoice) {
	t.Helper()
	ctx := context.Background()

	contracts := NewContractService(env.contracts, env.opportunities, env.approvals, env.deps)
	projects := NewProjectService(env.projects, env.contracts, env.deps)
	svc := NewInvoiceService(env.invoices, env.projects, env.purchases, env.approvals, env.deps)

	c, err := contracts.Create(ctx, newContractInput())
	require.NoError(t, err)
	p, err := projects.Create(ctx, CreateProjectInput{ContractID: c.ID, Name: "Delivery"})
	require.NoError(t, err)

	inv, err := svc.IssueSales(ctx, IssueSalesInput{
		ProjectID:  p.ID,
		CustomerID: c.CustomerID,
		Amount:     decimal.NewFromInt(amount),
		DueDate:    testNow.AddDate(0, 0, 30),
	})
	require.NoError(t, err)
	return svc, inv
}

func TestInvoiceService_IssueSales(t *testing.T) {
	env := newTestEnv()
	_, inv := newInvoiceFixture(t, env, 1000)

	assert.Equal(t, "INV000001", inv.Code)
	assert.Equal(t, entity.InvoiceStatusIssued, inv.Status)
	assert.Equal(t, entity.PaymentStatusUnpaid, inv.PaymentStatus)
	assert.True(t, inv.ReceivedAmount.IsZero())
	assert.Equal(t, testNow, inv.InvoiceDate)
}

func TestInvoiceService_IssueSalesUnknownProject(t *testing.T) {
	env := newTestEnv()
	svc := NewInvoiceService(env.invoices, env.projects, env.purchases, env.approvals, env.deps)

	_, err := svc.IssueSales(context.Background(), IssueSalesInput{ProjectID: 5, Amount: decimal.NewFromInt(10)})
	assert.True(t, errors.Is(err, entity.ErrNotFound))
}

func TestInvoiceService_Reconcile(t *testing.T) {
	tests := []struct {
		name         string
		payments     []string
		wantErr      error
		wantReceived string
		wantPayment  string
		wantStatus   string
	}{
		{
			name:         "partial payment",
			payments:     []string{"400"},
			wantReceived: "400",
			wantPayment:  entity.PaymentStatusPartial,
			wantStatus:   entity.InvoiceStatusIssued,
		},
		{
			name:         "exact full payment in two steps",
			payments:     []string{"400", "600"},
			wantReceived: "1000",
			wantPayment:  entity.PaymentStatusPaid,
			wantStatus:   entity.InvoiceStatusPaid,
		},
		{
			name:         "overpayment by one cent is refused",
			payments:     []string{"400", "600.01"},
			wantErr:      entity.ErrOverpayment,
			wantReceived: "400",
			wantPayment:  entity.PaymentStatusPartial,
			wantStatus:   entity.InvoiceStatusIssued,
		},
		{
			name:         "zero delta",
			payments:     []string{"0"},
			wantErr:      entity.ErrValidation,
			wantReceived: "0",
			wantPayment:  entity.PaymentStatusUnpaid,
			wantStatus:   entity.InvoiceStatusIssued,
		},
		{
			name:         "payment after settlement",
			payments:     []string{"1000", "1"},
			wantErr:      entity.ErrInvalidTransition,
			wantReceived: "1000",
			wantPayment:  entity.PaymentStatusPaid,
			wantStatus:   entity.InvoiceStatusPaid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			svc, inv := newInvoiceFixture(t, env, 1000)
			ctx := context.Background()

			var lastErr error
			for _, p := range tt.payments {
				_, lastErr = svc.Reconcile(ctx, inv.ID, decimal.RequireFromString(p))
			}
			if tt.wantErr != nil {
				assert.True(t, errors.Is(lastErr, tt.wantErr), "got %v", lastErr)
			} else {
				require.NoError(t, lastErr)
			}

			stored, err := svc.Get(ctx, inv.ID)
			require.NoError(t, err)
			assert.True(t, stored.ReceivedAmount.Equal(decimal.RequireFromString(tt.wantReceived)), "received %s", stored.ReceivedAmount)
			assert.Equal(t, tt.wantPayment, stored.PaymentStatus)
			assert.Equal(t, tt.wantStatus, stored.Status)
		})
	}
}

func TestInvoiceService_ConcurrentReconcileNeverOverpays(t *testing.T) {
	env := newTestEnv()
	svc, inv := newInvoiceFixture(t, env, 100)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Reconcile(context.Background(), inv.ID, decimal.NewFromInt(10))
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	stored, err := svc.Get(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, succeeded)
	assert.True(t, stored.ReceivedAmount.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, entity.InvoiceStatusPaid, stored.Status)
	assert.Len(t, env.events.ofType(event.TypeInvoiceReconciled), 10)
}

func TestInvoiceService_MarkOverdue(t *testing.T) {
	env := newTestEnv()
	svc, inv := newInvoiceFixture(t, env, 1000)
	ctx := context.Background()

	n, err := svc.MarkOverdue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	later := NewInvoiceService(env.invoices, env.projects, env.purchases, env.approvals, Deps{
		TxManager: env.deps.TxManager,
		Sequence:  env.deps.Sequence,
		Events:    env.events,
		Now:       func() time.Time { return testNow.AddDate(0, 0, 31) },
	})
	n, err = later.MarkOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, err := svc.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusOverdue, stored.Status)

	stored, err = svc.Reconcile(ctx, inv.ID, decimal.NewFromInt(1000))
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusPaid, stored.Status)
}

// listHookRepository runs afterList once the snapshot of a List call has
// been taken, so a test can change the store behind the caller's back
type listHookRepository struct {
	port.InvoiceRepository
	afterList func()
}

func (r *listHookRepository) List(ctx context.Context, filter port.InvoiceFilter) ([]*entity.Invoice, error) {
	list, err := r.InvoiceRepository.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	snapshot := make([]*entity.Invoice, len(list))
	for i, inv := range list {
		copied := *inv
		snapshot[i] = &copied
	}
	if r.afterList != nil {
		r.afterList()
	}
	return snapshot, nil
}

func TestInvoiceService_MarkOverdueSkipsInvoicePaidMeanwhile(t *testing.T) {
	env := newTestEnv()
	svc, inv := newInvoiceFixture(t, env, 1000)
	ctx := context.Background()

	repo := &listHookRepository{InvoiceRepository: env.invoices}
	sweeper := NewInvoiceService(repo, env.projects, env.purchases, env.approvals, Deps{
		TxManager: env.deps.TxManager,
		Sequence:  env.deps.Sequence,
		Events:    env.events,
		Now:       func() time.Time { return testNow.AddDate(0, 0, 31) },
	})
	repo.afterList = func() {
		_, err := svc.Reconcile(ctx, inv.ID, decimal.NewFromInt(1000))
		require.NoError(t, err)
	}

	n, err := sweeper.MarkOverdue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	stored, err := svc.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusPaid, stored.Status)
}

func TestInvoiceService_CreatedEventCarriesInvoiceKind(t *testing.T) {
	env := newTestEnv()
	svc, sales := newInvoiceFixture(t, env, 1000)
	ctx := context.Background()

	purchases := NewPurchaseService(env.purchases, env.approvals, env.deps)
	pr, err := purchases.Create(ctx, CreatePurchaseInput{
		DepartmentID: 4, ItemName: "Desk", Quantity: 1, Unit: "pcs",
		EstimatedTotalAmount: decimal.NewFromInt(500),
	})
	require.NoError(t, err)
	sup, err := svc.RegisterSupplier(ctx, RegisterSupplierInput{PurchaseRequestID: pr.ID, Amount: decimal.NewFromInt(500)})
	require.NoError(t, err)

	kinds := map[string]string{}
	for _, evt := range env.events.ofType(event.TypeEntityCreated) {
		kinds[evt.Code] = evt.EntityKind
	}
	assert.Equal(t, string(entity.KindInvoice), kinds[sales.Code])
	assert.Equal(t, string(entity.KindSupplierInvoice), kinds[sup.Code])
}

func TestInvoiceService_ApprovePaymentAndCancel(t *testing.T) {
	env := newTestEnv()
	svc, inv := newInvoiceFixture(t, env, 1000)
	ctx := context.Background()

	record, err := svc.ApprovePayment(ctx, inv.ID, Decision{ApproverID: 3, Approved: true})
	require.NoError(t, err)
	assert.Equal(t, entity.BusinessTypeInvoice, record.BusinessType)
	assert.Equal(t, entity.ApprovalLevelSingleGate, record.ApprovalLevel)

	cancelled, err := svc.Cancel(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusCancelled, cancelled.Status)

	_, err = svc.ApprovePayment(ctx, inv.ID, Decision{ApproverID: 3, Approved: true})
	assert.True(t, errors.Is(err, entity.ErrInvalidTransition))
	assert.Len(t, env.ledgerFor(entity.BusinessTypeInvoice, inv.ID), 1)
}

func TestInvoiceService_CancelAfterPaymentRefused(t *testing.T) {
	env := newTestEnv()
	svc, inv := newInvoiceFixture(t, env, 1000)
	ctx := context.Background()

	_, err := svc.Reconcile(ctx, inv.ID, decimal.NewFromInt(1))
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, inv.ID)
	assert.True(t, errors.Is(err, entity.ErrInvalidTransition))
}

func TestPurchaseService_Flow(t *testing.T) {
	env := newTestEnv()
	svc := NewPurchaseService(env.purchases, env.approvals, env.deps)
	invoices := NewInvoiceService(env.invoices, env.projects, env.purchases, env.approvals, env.deps)
	ctx := context.Background()

	pr, err := svc.Create(ctx, CreatePurchaseInput{
		DepartmentID:         4,
		ItemName:             "Laptop",
		Quantity:             3,
		Unit:                 "pcs",
		EstimatedTotalAmount: decimal.NewFromInt(10000),
	})
	require.NoError(t, err)
	assert.Equal(t, "PR000001", pr.Code)
	assert.True(t, pr.EstimatedUnitPrice.Equal(decimal.RequireFromString("3333.33")))

	_, err = svc.SelectSupplier(ctx, pr.ID, "Acme")
	assert.True(t, errors.Is(err, entity.ErrInvalidTransition))

	pr, err = svc.Submit(ctx, pr.ID)
	require.NoError(t, err)
	pr, err = svc.Decide(ctx, pr.ID, Decision{ApproverID: 2, Approved: true})
	require.NoError(t, err)
	assert.Equal(t, entity.ApprovalStatusApproved, pr.ApprovalStatus)

	_, err = svc.SelectSupplier(ctx, pr.ID, "")
	assert.True(t, errors.Is(err, entity.ErrValidation))

	pr, err = svc.SelectSupplier(ctx, pr.ID, "Acme")
	require.NoError(t, err)
	assert.Equal(t, "Acme", pr.SupplierName)
	pr, err = svc.Receive(ctx, pr.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.PurchaseStatusCompleted, pr.Status)

	sup, err := invoices.RegisterSupplier(ctx, RegisterSupplierInput{PurchaseRequestID: pr.ID, Amount: pr.EstimatedTotalAmount})
	require.NoError(t, err)
	assert.Equal(t, "SUP000001", sup.Code)
	assert.Equal(t, entity.InvoiceTypePurchase, sup.InvoiceType)
	require.NotNil(t, sup.PurchaseRequestID)
	assert.Equal(t, pr.ID, *sup.PurchaseRequestID)
}

func TestPurchaseService_RejectionIsTerminal(t *testing.T) {
	env := newTestEnv()
	svc := NewPurchaseService(env.purchases, env.approvals, env.deps)
	ctx := context.Background()

	pr, err := svc.Create(ctx, CreatePurchaseInput{DepartmentID: 4, ItemName: "Desk", Quantity: 1, EstimatedTotalAmount: decimal.NewFromInt(800)})
	require.NoError(t, err)

	pr, err = svc.Decide(ctx, pr.ID, Decision{ApproverID: 2, Approved: false})
	require.NoError(t, err)
	assert.Equal(t, entity.PurchaseStatusRejected, pr.Status)

	_, err = svc.Decide(ctx, pr.ID, Decision{ApproverID: 2, Approved: true})
	assert.True(t, errors.Is(err, entity.ErrInvalidTransition))
	assert.Len(t, env.ledgerFor(entity.BusinessTypePurchaseRequest, pr.ID), 1)
}
