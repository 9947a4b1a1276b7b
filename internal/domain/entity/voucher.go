package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Voucher represents the accounting voucher produced for a paid expense
type Voucher struct {
	ID               int64           `json:"id"`
	ExpenseRequestID int64           `json:"expense_request_id"`
	VoucherNo        string          `json:"voucher_no"`
	VoucherDate      time.Time       `json:"voucher_date"`
	Summary          string          `json:"summary"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	VoucherType      string          `json:"voucher_type"`
	Status           string          `json:"status"`
	DebitSubject     string          `json:"debit_subject"`
	CreditSubject    string          `json:"credit_subject"`
	FilePath         string          `json:"file_path,omitempty"`
	CreatedBy        int64           `json:"created_by"`
	CreatedAt        time.Time       `json:"created_at"`
}
