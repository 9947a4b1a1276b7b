package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// SalesOpportunity represents a potential deal with a customer
type SalesOpportunity struct {
	ID                int64           `json:"id"`
	Code              string          `json:"code"`
	CustomerID        int64           `json:"customer_id"`
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	Amount            decimal.Decimal `json:"amount"`
	WinProbability    int             `json:"win_probability"`
	ExpectedCloseDate time.Time       `json:"expected_close_date"`
	Source            string          `json:"source"`
	Status            string          `json:"status"`
	OwnerID           int64           `json:"owner_id"`
	CreatedBy         int64           `json:"created_by"`
	Remarks           string          `json:"remarks,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}
