package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Project represents delivery work executed under a contract
type Project struct {
	ID          int64           `json:"id"`
	Code        string          `json:"code"`
	ContractID  int64           `json:"contract_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Budget      decimal.Decimal `json:"budget"`
	StartDate   time.Time       `json:"start_date"`
	EndDate     time.Time       `json:"end_date"`
	Progress    int             `json:"progress"`
	Status      string          `json:"status"`
	ManagerID   int64           `json:"manager_id"`
	CreatedBy   int64           `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
