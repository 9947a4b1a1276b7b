package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/bizflow/internal/domain/entity"
	"github.com/garyjia/bizflow/internal/domain/event"
)

func newContractInput() CreateContractInput {
	return CreateContractInput{
		CustomerID:   11,
		Name:         "Annual maintenance",
		ContractType: entity.ContractTypeMaintenance,
		Amount:       decimal.NewFromInt(50000),
		StartDate:    testNow,
		EndDate:      testNow.AddDate(1, 0, 0),
	}
}

func TestOpportunityService_Lifecycle(t *testing.T) {
	env := newTestEnv()
	svc := NewOpportunityService(env.opportunities, env.deps)
	ctx := context.Background()

	o, err := svc.Create(ctx, CreateOpportunityInput{
		CustomerID:     11,
		Name:           "ERP rollout",
		Amount:         decimal.NewFromInt(120000),
		WinProbability: 80,
	})
	require.NoError(t, err)
	assert.Equal(t, "OPP000001", o.Code)
	assert.Equal(t, entity.OpportunityStatusLead, o.Status)

	_, err = svc.Close(ctx, o.ID, true)
	assert.True(t, errors.Is(err, entity.ErrInvalidTransition), "a lead cannot be closed")

	o, err = svc.Qualify(ctx, o.ID)
	require.NoError(t, err)
	o, err = svc.Close(ctx, o.ID, true)
	require.NoError(t, err)
	assert.Equal(t, entity.OpportunityStatusClosedWon, o.Status)

	stored, err := svc.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OpportunityStatusClosedWon, stored.Status)
	assert.Len(t, env.events.ofType(event.TypeStatusChanged), 2)
}

func TestOpportunityService_CreateValidation(t *testing.T) {
	env := newTestEnv()
	svc := NewOpportunityService(env.opportunities, env.deps)

	_, err := svc.Create(context.Background(), CreateOpportunityInput{
		CustomerID:     11,
		Name:           "Bad",
		Amount:         decimal.NewFromInt(-1),
		WinProbability: 120,
	})
	assert.True(t, errors.Is(err, entity.ErrValidation))
}

func TestContractService_RejectResubmitApprove(t *testing.T) {
	env := newTestEnv()
	svc := NewContractService(env.contracts, env.opportunities, env.approvals, env.deps)
	ctx := context.Background()

	c, err := svc.Create(ctx, newContractInput())
	require.NoError(t, err)
	assert.Equal(t, "CON000001", c.Code)
	assert.Equal(t, entity.DefaultCurrency, c.Currency)

	c, err = svc.Decide(ctx, c.ID, Decision{ApproverID: 2, Approved: false, Comments: "price too low"})
	require.NoError(t, err)
	assert.Equal(t, entity.ContractStatusDraft, c.Status)
	assert.Equal(t, entity.ApprovalStatusRejected, c.ApprovalStatus)

	_, err = svc.Decide(ctx, c.ID, Decision{ApproverID: 2, Approved: true})
	assert.True(t, errors.Is(err, entity.ErrInvalidTransition), "a rejected contract needs resubmission first")

	c, err = svc.Resubmit(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ContractStatusPendingApproval, c.Status)
	assert.Equal(t, entity.ApprovalStatusPending, c.ApprovalStatus)

	c, err = svc.Decide(ctx, c.ID, Decision{ApproverID: 2, Approved: true})
	require.NoError(t, err)
	assert.Equal(t, entity.ContractStatusApproved, c.Status)

	records := env.ledgerFor(entity.BusinessTypeContract, c.ID)
	require.Len(t, records, 2)
	assert.Equal(t, entity.ApprovalResultRejected, records[0].Result)
	assert.Equal(t, "price too low", records[0].Comments)
	assert.Equal(t, entity.ApprovalResultApproved, records[1].Result)
	assert.Len(t, env.events.ofType(event.TypeApprovalRecorded), 2)
}

func TestContractService_ExecutionAndTermination(t *testing.T) {
	env := newTestEnv()
	svc := NewContractService(env.contracts, env.opportunities, env.approvals, env.deps)
	ctx := context.Background()

	c, err := svc.Create(ctx, newContractInput())
	require.NoError(t, err)

	_, err = svc.Sign(ctx, c.ID)
	assert.True(t, errors.Is(err, entity.ErrInvalidTransition))

	_, err = svc.Decide(ctx, c.ID, Decision{ApproverID: 2, Approved: true})
	require.NoError(t, err)
	_, err = svc.Sign(ctx, c.ID)
	require.NoError(t, err)
	c, err = svc.Execute(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ContractStatusExecuting, c.Status)

	c, err = svc.Terminate(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ContractStatusTerminated, c.Status)

	_, err = svc.Complete(ctx, c.ID)
	assert.True(t, errors.Is(err, entity.ErrInvalidTransition))
}

func TestContractService_DecisionNotSavedWhenLedgerFails(t *testing.T) {
	env := newTestEnv()
	failing := &mockApprovalRepo{
		appendFunc: func(ctx context.Context, a *entity.Approval) error {
			return errors.New("ledger unavailable")
		},
	}
	svc := NewContractService(env.contracts, env.opportunities, failing, env.deps)
	ctx := context.Background()

	c, err := svc.Create(ctx, newContractInput())
	require.NoError(t, err)

	_, err = svc.Decide(ctx, c.ID, Decision{ApproverID: 2, Approved: true})
	require.Error(t, err)

	stored, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ContractStatusDraft, stored.Status)
	assert.Equal(t, entity.ApprovalStatusPending, stored.ApprovalStatus)
}

func TestContractService_UnknownOpportunity(t *testing.T) {
	env := newTestEnv()
	svc := NewContractService(env.contracts, env.opportunities, env.approvals, env.deps)

	input := newContractInput()
	missing := int64(99)
	input.OpportunityID = &missing

	_, err := svc.Create(context.Background(), input)
	assert.True(t, errors.Is(err, entity.ErrNotFound))
}

func TestContractService_EndBeforeStart(t *testing.T) {
	env := newTestEnv()
	svc := NewContractService(env.contracts, env.opportunities, env.approvals, env.deps)

	input := newContractInput()
	input.EndDate = input.StartDate.AddDate(0, -1, 0)

	_, err := svc.Create(context.Background(), input)
	assert.True(t, errors.Is(err, entity.ErrValidation))
}

func TestProjectService_ProgressAndStickyCompletion(t *testing.T) {
	env := newTestEnv()
	contracts := NewContractService(env.contracts, env.opportunities, env.approvals, env.deps)
	svc := NewProjectService(env.projects, env.contracts, env.deps)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateProjectInput{ContractID: 1, Name: "Orphan"})
	assert.True(t, errors.Is(err, entity.ErrNotFound))

	c, err := contracts.Create(ctx, newContractInput())
	require.NoError(t, err)

	p, err := svc.Create(ctx, CreateProjectInput{ContractID: c.ID, Name: "Delivery", Budget: decimal.NewFromInt(30000)})
	require.NoError(t, err)
	assert.Equal(t, "PRJ000001", p.Code)
	assert.Equal(t, entity.ProjectStatusPlanning, p.Status)

	tests := []struct {
		progress     int
		wantProgress int
		wantStatus   string
	}{
		{progress: 30, wantProgress: 30, wantStatus: entity.ProjectStatusPlanning},
		{progress: 50, wantProgress: 50, wantStatus: entity.ProjectStatusExecuting},
		{progress: 150, wantProgress: 100, wantStatus: entity.ProjectStatusCompleted},
		{progress: 20, wantProgress: 100, wantStatus: entity.ProjectStatusCompleted},
	}
	for _, tt := range tests {
		p, err = svc.SetProgress(ctx, p.ID, tt.progress)
		require.NoError(t, err)
		assert.Equal(t, tt.wantProgress, p.Progress, "progress %d", tt.progress)
		assert.Equal(t, tt.wantStatus, p.Status, "progress %d", tt.progress)
	}

	_, err = svc.Cancel(ctx, p.ID)
	assert.True(t, errors.Is(err, entity.ErrInvalidTransition))
}

func TestProjectService_SuspendResumeCancel(t *testing.T) {
	env := newTestEnv()
	contracts := NewContractService(env.contracts, env.opportunities, env.approvals, env.deps)
	svc := NewProjectService(env.projects, env.contracts, env.deps)
	ctx := context.Background()

	c, err := contracts.Create(ctx, newContractInput())
	require.NoError(t, err)
	p, err := svc.Create(ctx, CreateProjectInput{ContractID: c.ID, Name: "Delivery"})
	require.NoError(t, err)

	p, err = svc.Suspend(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ProjectStatusSuspended, p.Status)

	p, err = svc.Resume(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ProjectStatusExecuting, p.Status)

	p, err = svc.StartTesting(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ProjectStatusTesting, p.Status)

	p, err = svc.Cancel(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ProjectStatusCancelled, p.Status)

	_, err = svc.SetProgress(ctx, p.ID, 60)
	assert.True(t, errors.Is(err, entity.ErrInvalidTransition))
}
