package port

import (
	"context"

	"github.com/garyjia/bizflow/internal/domain/entity"
)

// VoucherGenerator is the finance collaborator producing the accounting
// voucher for an expense request. Calling it twice for the same request
// returns the voucher created by the first call.
type VoucherGenerator interface {
	GenerateVoucher(ctx context.Context, req *entity.ExpenseRequest) (*entity.Voucher, error)
}
