package port

import (
	"context"

	"github.com/garyjia/bizflow/internal/domain/entity"
)

// VoucherRenderer writes a voucher document and returns its file path
type VoucherRenderer interface {
	Render(ctx context.Context, voucher *entity.Voucher, req *entity.ExpenseRequest) (string, error)
}
