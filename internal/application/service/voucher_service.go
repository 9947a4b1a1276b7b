package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/garyjia/bizflow/internal/application/port"
	"github.com/garyjia/bizflow/internal/domain/accounting"
	"github.com/garyjia/bizflow/internal/domain/entity"
	"github.com/garyjia/bizflow/internal/domain/event"
	"github.com/garyjia/bizflow/internal/domain/lifecycle"
)

// VoucherService produces the accounting voucher for an approved expense.
// It implements port.VoucherGenerator.
type VoucherService struct {
	base
	vouchers port.VoucherRepository
	expenses port.ExpenseRequestRepository
	renderer port.VoucherRenderer
	subjects *accounting.SubjectMapper
	policy   lifecycle.ExpensePolicy
	issuerID int64
}

var _ port.VoucherGenerator = (*VoucherService)(nil)

// VoucherOptions configures voucher generation
type VoucherOptions struct {
	// Renderer writes the voucher document; nil skips rendering
	Renderer  port.VoucherRenderer
	Threshold decimal.Decimal
	IssuerID  int64
}

// NewVoucherService creates a new VoucherService
func NewVoucherService(
	vouchers port.VoucherRepository,
	expenses port.ExpenseRequestRepository,
	opts VoucherOptions,
	deps Deps,
) *VoucherService {
	return &VoucherService{
		base:     newBase(deps),
		vouchers: vouchers,
		expenses: expenses,
		renderer: opts.Renderer,
		subjects: accounting.NewSubjectMapper(),
		policy:   lifecycle.NewExpensePolicy(opts.Threshold),
		issuerID: opts.IssuerID,
	}
}

// GenerateVoucher returns the voucher of a fully approved expense request,
// creating it on first call. Repeated calls return the stored voucher.
func (s *VoucherService) GenerateVoucher(ctx context.Context, req *entity.ExpenseRequest) (*entity.Voucher, error) {
	s.logger.Info("Generating voucher", "expense_request_id", req.ID)

	var (
		voucher *entity.Voucher
		created bool
	)
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.vouchers.GetByExpenseRequestID(ctx, req.ID)
		switch {
		case err == nil:
			voucher = existing
			return nil
		case !errors.Is(err, entity.ErrNotFound):
			return fmt.Errorf("failed to look up voucher: %w", err)
		}

		current, err := s.expenses.GetByID(ctx, req.ID)
		if err != nil {
			return err
		}
		if !s.policy.ReadyForPayment(current) {
			return fmt.Errorf("%w: %s %s: voucher requires a fully approved request, status %s",
				entity.ErrInvalidTransition, entity.KindExpenseRequest, current.Code, current.Status)
		}

		voucher, err = s.build(ctx, current)
		if err != nil {
			return err
		}
		if s.renderer != nil {
			path, err := s.renderer.Render(ctx, voucher, current)
			if err != nil {
				return fmt.Errorf("failed to render voucher: %w", err)
			}
			voucher.FilePath = path
		}
		if err := s.vouchers.Create(ctx, voucher); err != nil {
			return fmt.Errorf("failed to create voucher record: %w", err)
		}

		current.VoucherNo = voucher.VoucherNo
		current.UpdatedAt = s.now()
		if err := s.expenses.Update(ctx, current); err != nil {
			return fmt.Errorf("failed to link voucher: %w", err)
		}
		created = true
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to generate voucher", "expense_request_id", req.ID, "error", err)
		return nil, err
	}

	req.VoucherNo = voucher.VoucherNo
	if !created {
		s.logger.Info("Voucher already exists", "expense_request_id", req.ID, "voucher_no", voucher.VoucherNo)
		return voucher, nil
	}

	s.logger.Info("Voucher generated successfully",
		"expense_request_id", req.ID,
		"voucher_no", voucher.VoucherNo,
		"file_path", voucher.FilePath,
	)
	s.publish(ctx, event.NewEvent(ctx, event.TypeVoucherGenerated, string(entity.KindExpenseRequest), req.ID, req.Code, event.Payload{
		"voucher_no": voucher.VoucherNo,
		"amount":     voucher.TotalAmount.String(),
		"file_path":  voucher.FilePath,
	}))
	return voucher, nil
}

func (s *VoucherService) build(ctx context.Context, req *entity.ExpenseRequest) (*entity.Voucher, error) {
	code, err := s.nextCode(ctx, entity.KindVoucher)
	if err != nil {
		return nil, err
	}

	now := s.now()
	summary := fmt.Sprintf("报销%s %s", s.subjects.DisplayName(req.ExpenseType), req.Code)
	if req.Description != "" {
		summary += " " + req.Description
	}

	return &entity.Voucher{
		ExpenseRequestID: req.ID,
		VoucherNo:        code,
		VoucherDate:      now,
		Summary:          summary,
		TotalAmount:      req.Amount,
		VoucherType:      entity.VoucherTypePayment,
		Status:           entity.VoucherStatusDraft,
		DebitSubject:     s.subjects.DebitSubject(req.ExpenseType),
		CreditSubject:    s.subjects.CreditSubject(req.ExpenseType),
		CreatedBy:        s.issuerID,
		CreatedAt:        now,
	}, nil
}
