package entity

import "time"

// Approval is an immutable ledger record of one approval decision
type Approval struct {
	ID            int64     `json:"id"`
	BusinessType  string    `json:"business_type"`
	BusinessID    int64     `json:"business_id"`
	ApproverID    int64     `json:"approver_id"`
	ApprovalLevel int       `json:"approval_level"`
	Result        string    `json:"result"`
	Comments      string    `json:"comments,omitempty"`
	ApprovedAt    time.Time `json:"approved_at"`
}
