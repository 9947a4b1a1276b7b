package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExpenseRequest represents an employee reimbursement claim
type ExpenseRequest struct {
	ID             int64           `json:"id"`
	Code           string          `json:"code"`
	EmployeeID     int64           `json:"employee_id"`
	ExpenseType    string          `json:"expense_type"`
	Amount         decimal.Decimal `json:"amount"`
	Description    string          `json:"description"`
	ExpenseDate    time.Time       `json:"expense_date"`
	AttachmentRef  string          `json:"attachment_ref,omitempty"`
	Status         string          `json:"status"`
	ApprovalStatus string          `json:"approval_status"`
	ManagerID      int64           `json:"manager_id,omitempty"`
	FinanceID      int64           `json:"finance_id,omitempty"`
	CEOID          int64           `json:"ceo_id,omitempty"`
	VoucherNo      string          `json:"voucher_no,omitempty"`
	PaymentMethod  string          `json:"payment_method,omitempty"`
	PaidAt         *time.Time      `json:"paid_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
