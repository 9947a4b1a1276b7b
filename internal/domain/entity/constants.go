package entity

// Sales opportunity statuses
const (
	OpportunityStatusLead        = "LEAD"
	OpportunityStatusQualified   = "QUALIFIED"
	OpportunityStatusProposal    = "PROPOSAL"
	OpportunityStatusNegotiation = "NEGOTIATION"
	OpportunityStatusClosedWon   = "CLOSED_WON"
	OpportunityStatusClosedLost  = "CLOSED_LOST"
)

// Contract statuses
const (
	ContractStatusDraft           = "DRAFT"
	ContractStatusPendingApproval = "PENDING_APPROVAL"
	ContractStatusApproved        = "APPROVED"
	ContractStatusSigned          = "SIGNED"
	ContractStatusExecuting       = "EXECUTING"
	ContractStatusCompleted       = "COMPLETED"
	ContractStatusTerminated      = "TERMINATED"
)

// Contract types
const (
	ContractTypeSales       = "SALES"
	ContractTypeService     = "SERVICE"
	ContractTypeMaintenance = "MAINTENANCE"
)

// Project statuses
const (
	ProjectStatusPlanning  = "PLANNING"
	ProjectStatusExecuting = "EXECUTING"
	ProjectStatusTesting   = "TESTING"
	ProjectStatusCompleted = "COMPLETED"
	ProjectStatusSuspended = "SUSPENDED"
	ProjectStatusCancelled = "CANCELLED"
)

// Invoice statuses
const (
	InvoiceStatusDraft     = "DRAFT"
	InvoiceStatusIssued    = "ISSUED"
	InvoiceStatusPaid      = "PAID"
	InvoiceStatusOverdue   = "OVERDUE"
	InvoiceStatusCancelled = "CANCELLED"
)

// Invoice payment statuses, derived from received amount vs amount
const (
	PaymentStatusUnpaid  = "UNPAID"
	PaymentStatusPartial = "PARTIAL"
	PaymentStatusPaid    = "PAID"
)

// Invoice types
const (
	InvoiceTypeSales    = "SALES"
	InvoiceTypePurchase = "PURCHASE"
)

// Purchase request statuses
const (
	PurchaseStatusDraft      = "DRAFT"
	PurchaseStatusSubmitted  = "SUBMITTED"
	PurchaseStatusApproved   = "APPROVED"
	PurchaseStatusRejected   = "REJECTED"
	PurchaseStatusProcessing = "PROCESSING"
	PurchaseStatusCompleted  = "COMPLETED"
)

// Expense request statuses
const (
	ExpenseStatusDraft           = "DRAFT"
	ExpenseStatusSubmitted       = "SUBMITTED"
	ExpenseStatusManagerApproved = "MANAGER_APPROVED"
	ExpenseStatusFinanceReviewed = "FINANCE_REVIEWED"
	ExpenseStatusCEOApproved     = "CEO_APPROVED"
	ExpenseStatusPaid            = "PAID"
	ExpenseStatusRejected        = "REJECTED"
)

// Expense types
const (
	ExpenseTypeTravel    = "TRAVEL"    // 差旅费
	ExpenseTypeMeal      = "MEAL"      // 餐费
	ExpenseTypeOffice    = "OFFICE"    // 办公用品
	ExpenseTypeTransport = "TRANSPORT" // 交通费
	ExpenseTypeOther     = "OTHER"     // 其他
)

// Approval statuses carried on approvable entities
const (
	ApprovalStatusPending  = "PENDING"
	ApprovalStatusApproved = "APPROVED"
	ApprovalStatusRejected = "REJECTED"
)

// Approval decision results
const (
	ApprovalResultApproved = "APPROVED"
	ApprovalResultRejected = "REJECTED"
)

// Business types recorded in the approval ledger
const (
	BusinessTypeContract        = "CONTRACT"
	BusinessTypePurchaseRequest = "PURCHASE_REQUEST"
	BusinessTypeInvoice         = "INVOICE"
	BusinessTypeExpenseRequest  = "EXPENSE_REQUEST"
)

// Approval levels
const (
	ApprovalLevelManager = 1
	ApprovalLevelFinance = 2
	ApprovalLevelCEO     = 3

	// ApprovalLevelSingleGate is used by contract, purchase and payment approvals
	ApprovalLevelSingleGate = 1
)

// Voucher constants
const (
	VoucherTypePayment  = "PAYMENT"
	VoucherStatusDraft  = "DRAFT"
	DefaultCurrency     = "CNY"
	DefaultPaymentTerms = "NET30"
)

// ApprovalResult converts a boolean decision into a ledger result
func ApprovalResult(approved bool) string {
	if approved {
		return ApprovalResultApproved
	}
	return ApprovalResultRejected
}
