package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/bizflow/internal/application/port"
	"github.com/garyjia/bizflow/internal/domain/entity"
	"github.com/garyjia/bizflow/internal/domain/event"
)

// mockApprovalRepo is a func-field mock of port.ApprovalRepository
type mockApprovalRepo struct {
	appendFunc func(ctx context.Context, a *entity.Approval) error
	listFunc   func(ctx context.Context, filter port.ApprovalFilter) ([]*entity.Approval, error)
}

func (m *mockApprovalRepo) Append(ctx context.Context, a *entity.Approval) error {
	if m.appendFunc != nil {
		return m.appendFunc(ctx, a)
	}
	a.ID = 1
	return nil
}

func (m *mockApprovalRepo) List(ctx context.Context, filter port.ApprovalFilter) ([]*entity.Approval, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, filter)
	}
	return nil, nil
}

func TestLedgerService_RecordValidation(t *testing.T) {
	valid := RecordInput{
		BusinessType: entity.BusinessTypeContract,
		BusinessID:   1,
		ApproverID:   2,
		Level:        1,
		Result:       entity.ApprovalResultApproved,
	}

	tests := []struct {
		name    string
		mutate  func(in *RecordInput)
		wantErr bool
	}{
		{name: "valid record", mutate: func(in *RecordInput) {}},
		{name: "unknown business type", mutate: func(in *RecordInput) { in.BusinessType = "CUSTOMER" }, wantErr: true},
		{name: "unknown result", mutate: func(in *RecordInput) { in.Result = "MAYBE" }, wantErr: true},
		{name: "level zero", mutate: func(in *RecordInput) { in.Level = 0 }, wantErr: true},
		{name: "level four", mutate: func(in *RecordInput) { in.Level = 4 }, wantErr: true},
		{name: "non-positive business id", mutate: func(in *RecordInput) { in.BusinessID = 0 }, wantErr: true},
		{name: "non-positive approver", mutate: func(in *RecordInput) { in.ApproverID = -1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			ledger := NewLedgerService(env.approvals, env.deps)

			input := valid
			tt.mutate(&input)

			record, err := ledger.Record(context.Background(), input)
			if tt.wantErr {
				assert.True(t, errors.Is(err, entity.ErrValidation), "got %v", err)
				assert.Empty(t, env.ledgerFor(input.BusinessType, input.BusinessID))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testNow, record.ApprovedAt)
			assert.Len(t, env.events.ofType(event.TypeApprovalRecorded), 1)
		})
	}
}

func TestLedgerService_QueryOrdersByLevel(t *testing.T) {
	env := newTestEnv()
	ledger := NewLedgerService(env.approvals, env.deps)
	ctx := context.Background()

	for _, level := range []int{3, 1, 2} {
		_, err := ledger.Record(ctx, RecordInput{
			BusinessType: entity.BusinessTypeExpenseRequest,
			BusinessID:   9,
			ApproverID:   int64(level + 1),
			Level:        level,
			Result:       entity.ApprovalResultApproved,
		})
		require.NoError(t, err)
	}

	bt := entity.BusinessTypeExpenseRequest
	records, err := ledger.Query(ctx, port.ApprovalFilter{BusinessType: &bt})
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i, r := range records {
		assert.Equal(t, i+1, r.ApprovalLevel)
	}
}

func TestLedgerService_RecordRepositoryError(t *testing.T) {
	env := newTestEnv()
	repo := &mockApprovalRepo{
		appendFunc: func(ctx context.Context, a *entity.Approval) error {
			return errors.New("disk full")
		},
	}
	ledger := NewLedgerService(repo, env.deps)

	_, err := ledger.Record(context.Background(), RecordInput{
		BusinessType: entity.BusinessTypeInvoice,
		BusinessID:   1,
		ApproverID:   3,
		Level:        1,
		Result:       entity.ApprovalResultApproved,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Empty(t, env.events.ofType(event.TypeApprovalRecorded))
}
