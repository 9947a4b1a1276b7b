package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice represents a sales invoice issued for a project or a supplier
// invoice registered against a purchase request.
// ReceivedAmount never exceeds Amount.
type Invoice struct {
	ID                int64           `json:"id"`
	Code              string          `json:"code"`
	ProjectID         *int64          `json:"project_id,omitempty"`
	PurchaseRequestID *int64          `json:"purchase_request_id,omitempty"`
	CustomerID        int64           `json:"customer_id"`
	InvoiceType       string          `json:"invoice_type"`
	Amount            decimal.Decimal `json:"amount"`
	ReceivedAmount    decimal.Decimal `json:"received_amount"`
	InvoiceDate       time.Time       `json:"invoice_date"`
	DueDate           time.Time       `json:"due_date"`
	Status            string          `json:"status"`
	PaymentStatus     string          `json:"payment_status"`
	CreatedBy         int64           `json:"created_by"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Outstanding returns the amount still to be received
func (i *Invoice) Outstanding() decimal.Decimal {
	return i.Amount.Sub(i.ReceivedAmount)
}
