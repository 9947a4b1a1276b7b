package event

// Type identifies the type of domain event
type Type string

const (
	TypeEntityCreated     Type = "entity.created"
	TypeStatusChanged     Type = "entity.status_changed"
	TypeApprovalRecorded  Type = "approval.recorded"
	TypeInvoiceReconciled Type = "invoice.reconciled"
	TypeVoucherGenerated  Type = "voucher.generated"
	TypePipelineFinished  Type = "pipeline.finished"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeEntityCreated,
		TypeStatusChanged,
		TypeApprovalRecorded,
		TypeInvoiceReconciled,
		TypeVoucherGenerated,
		TypePipelineFinished:
		return true
	default:
		return false
	}
}

// AllTypes returns every defined event type
func AllTypes() []Type {
	return []Type{
		TypeEntityCreated,
		TypeStatusChanged,
		TypeApprovalRecorded,
		TypeInvoiceReconciled,
		TypeVoucherGenerated,
		TypePipelineFinished,
	}
}
