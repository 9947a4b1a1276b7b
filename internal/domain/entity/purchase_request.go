package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseRequest represents a department's request to buy goods
type PurchaseRequest struct {
	ID                   int64           `json:"id"`
	Code                 string          `json:"code"`
	DepartmentID         int64           `json:"department_id"`
	RequesterID          int64           `json:"requester_id"`
	ItemName             string          `json:"item_name"`
	ItemDescription      string          `json:"item_description"`
	Specification        string          `json:"specification,omitempty"`
	Quantity             int             `json:"quantity"`
	Unit                 string          `json:"unit"`
	EstimatedUnitPrice   decimal.Decimal `json:"estimated_unit_price"`
	EstimatedTotalAmount decimal.Decimal `json:"estimated_total_amount"`
	RequiredDate         time.Time       `json:"required_date"`
	Reason               string          `json:"reason"`
	SupplierName         string          `json:"supplier_name,omitempty"`
	Status               string          `json:"status"`
	ApprovalStatus       string          `json:"approval_status"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}
