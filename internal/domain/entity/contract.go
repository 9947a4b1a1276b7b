package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Contract represents a customer contract, optionally won from an opportunity
type Contract struct {
	ID             int64           `json:"id"`
	Code           string          `json:"code"`
	OpportunityID  *int64          `json:"opportunity_id,omitempty"`
	CustomerID     int64           `json:"customer_id"`
	Name           string          `json:"name"`
	ContractType   string          `json:"contract_type"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	StartDate      time.Time       `json:"start_date"`
	EndDate        time.Time       `json:"end_date"`
	PaymentTerms   string          `json:"payment_terms"`
	Status         string          `json:"status"`
	ApprovalStatus string          `json:"approval_status"`
	OwnerID        int64           `json:"owner_id"`
	CreatedBy      int64           `json:"created_by"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
