package pipeline

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/garyjia/bizflow/internal/application/service"
	"github.com/garyjia/bizflow/internal/domain/entity"
)

// Expense reimbursement step names
const (
	StepCreateExpenseRequest = "create_expense_request"
	StepSubmitExpense        = "submit_expense"
	StepManagerApprove       = "manager_approve"
	StepFinanceReview        = "finance_review"
	StepCEOApprove           = "ceo_approve"
	StepGenerateVoucher      = "generate_voucher"
	StepPayExpense           = "pay_expense"
)

// PaymentMethodBankTransfer is the method used to pay reimbursements
const PaymentMethodBankTransfer = "BANK_TRANSFER"

// ExpenseInput starts an expense reimbursement run
type ExpenseInput struct {
	EmployeeID    int64           `json:"employee_id" validate:"gt=0"`
	ExpenseType   string          `json:"expense_type" validate:"oneof=TRAVEL MEAL OFFICE TRANSPORT OTHER"`
	Amount        decimal.Decimal `json:"amount" validate:"gt=0"`
	Description   string          `json:"description" validate:"max=2000"`
	AttachmentRef string          `json:"attachment_ref,omitempty" validate:"max=500"`
}

// ExpenseReimbursement takes an expense claim through its approval gates,
// the accounting voucher and payment. The CEO gate runs only above the
// configured threshold.
func (o *Orchestrator) ExpenseReimbursement(ctx context.Context, input ExpenseInput) (*Trace, error) {
	return o.execute(ctx, NameExpenseReimbursement, input, func(r *run) error {
		var request *entity.ExpenseRequest

		if err := r.step(StepCreateExpenseRequest, func(ctx context.Context) (ref, error) {
			var err error
			request, err = o.svc.Expenses.Create(ctx, service.CreateExpenseInput{
				EmployeeID:  input.EmployeeID,
				ExpenseType: input.ExpenseType,
				Amount:      input.Amount,
				Description: input.Description,
				ExpenseDate: o.now(),
			})
			return expenseRef(request), err
		}); err != nil {
			return err
		}

		attachment := input.AttachmentRef
		if attachment == "" {
			attachment = fmt.Sprintf("attachments/%s/invoice", request.Code)
		}

		gates := []struct {
			name     string
			apply    func(ctx context.Context) (*entity.ExpenseRequest, error)
			required bool
		}{
			{StepSubmitExpense, func(ctx context.Context) (*entity.ExpenseRequest, error) {
				return o.svc.Expenses.Submit(ctx, request.ID, attachment)
			}, true},
			{StepManagerApprove, func(ctx context.Context) (*entity.ExpenseRequest, error) {
				return o.svc.Expenses.ManagerDecision(ctx, request.ID, service.Decision{ApproverID: o.actors.Manager, Approved: true, Comments: "approved"})
			}, true},
			{StepFinanceReview, func(ctx context.Context) (*entity.ExpenseRequest, error) {
				return o.svc.Expenses.FinanceDecision(ctx, request.ID, service.Decision{ApproverID: o.actors.Finance, Approved: true, Comments: "reviewed"})
			}, true},
			{StepCEOApprove, func(ctx context.Context) (*entity.ExpenseRequest, error) {
				return o.svc.Expenses.CEODecision(ctx, request.ID, service.Decision{ApproverID: o.actors.CEO, Approved: true, Comments: "approved"})
			}, o.svc.Expenses.RequiresCEO(input.Amount)},
		}

		for _, gate := range gates {
			if !gate.required {
				continue
			}
			apply := gate.apply
			if err := r.step(gate.name, func(ctx context.Context) (ref, error) {
				next, err := apply(ctx)
				if err != nil {
					return expenseRef(request), err
				}
				request = next
				return expenseRef(request), nil
			}); err != nil {
				return err
			}
		}

		if err := r.step(StepGenerateVoucher, func(ctx context.Context) (ref, error) {
			voucher, err := o.svc.Vouchers.GenerateVoucher(ctx, request)
			if err != nil {
				return ref{kind: entity.KindVoucher}, err
			}
			return ref{kind: entity.KindVoucher, id: voucher.ID, code: voucher.VoucherNo, status: voucher.Status}, nil
		}); err != nil {
			return err
		}

		return r.step(StepPayExpense, func(ctx context.Context) (ref, error) {
			paid, err := o.svc.Expenses.Pay(ctx, request.ID, PaymentMethodBankTransfer)
			if err != nil {
				return expenseRef(request), err
			}
			request = paid
			return expenseRef(request), nil
		})
	})
}

func expenseRef(req *entity.ExpenseRequest) ref {
	if req == nil {
		return ref{kind: entity.KindExpenseRequest}
	}
	return ref{kind: entity.KindExpenseRequest, id: req.ID, code: req.Code, status: req.Status}
}
