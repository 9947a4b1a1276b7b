package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/bizflow/internal/application/port"
	"github.com/garyjia/bizflow/internal/domain/entity"
)

func TestContractRepository_CopiesOnReadAndWrite(t *testing.T) {
	repo := NewContractRepository()
	ctx := context.Background()

	c := &entity.Contract{Code: "CON000001", Status: entity.ContractStatusDraft, Amount: decimal.NewFromInt(10)}
	require.NoError(t, repo.Create(ctx, c))
	assert.Equal(t, int64(1), c.ID)

	c.Status = entity.ContractStatusApproved
	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ContractStatusDraft, got.Status)

	got.Status = entity.ContractStatusSigned
	again, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ContractStatusDraft, again.Status)
}

func TestRepositories_NotFound(t *testing.T) {
	ctx := context.Background()

	_, err := NewInvoiceRepository().GetByID(ctx, 9)
	assert.True(t, errors.Is(err, entity.ErrNotFound))

	err = NewProjectRepository().Update(ctx, &entity.Project{ID: 9})
	assert.True(t, errors.Is(err, entity.ErrNotFound))

	_, err = NewVoucherRepository().GetByExpenseRequestID(ctx, 9)
	assert.True(t, errors.Is(err, entity.ErrNotFound))
}

func TestInvoiceRepository_ListByOptionalProject(t *testing.T) {
	repo := NewInvoiceRepository()
	ctx := context.Background()
	projectID := int64(5)

	require.NoError(t, repo.Create(ctx, &entity.Invoice{Code: "INV000001", ProjectID: &projectID, Status: entity.InvoiceStatusIssued}))
	require.NoError(t, repo.Create(ctx, &entity.Invoice{Code: "SUP000001", Status: entity.InvoiceStatusIssued}))

	list, err := repo.List(ctx, port.InvoiceFilter{ProjectID: &projectID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "INV000001", list[0].Code)

	all, err := repo.List(ctx, port.InvoiceFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestApprovalRepository_Ordering(t *testing.T) {
	repo := NewApprovalRepository()
	ctx := context.Background()
	at := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Append(ctx, &entity.Approval{BusinessType: entity.BusinessTypeExpenseRequest, BusinessID: 1, ApprovalLevel: 3, ApprovedAt: at}))
	require.NoError(t, repo.Append(ctx, &entity.Approval{BusinessType: entity.BusinessTypeExpenseRequest, BusinessID: 1, ApprovalLevel: 1, ApprovedAt: at.Add(time.Minute)}))
	require.NoError(t, repo.Append(ctx, &entity.Approval{BusinessType: entity.BusinessTypeExpenseRequest, BusinessID: 1, ApprovalLevel: 1, ApprovedAt: at}))

	list, err := repo.List(ctx, port.ApprovalFilter{})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, int64(3), list[0].ID)
	assert.Equal(t, int64(2), list[1].ID)
	assert.Equal(t, int64(1), list[2].ID)
}

func TestTxManager_NestedCallsJoin(t *testing.T) {
	tx := NewTxManager()

	calls := 0
	err := tx.WithTransaction(context.Background(), func(ctx context.Context) error {
		calls++
		return tx.WithTransaction(ctx, func(context.Context) error {
			calls++
			return nil
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}
