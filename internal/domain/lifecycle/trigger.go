// Package lifecycle holds the per-entity transition tables and the guarded
// mutators that move workflow entities between statuses.
package lifecycle

import "github.com/garyjia/bizflow/internal/domain/workflow"

// Opportunity triggers
const (
	TriggerQualify   workflow.Trigger = "QUALIFY"
	TriggerPropose   workflow.Trigger = "PROPOSE"
	TriggerNegotiate workflow.Trigger = "NEGOTIATE"
	TriggerWin       workflow.Trigger = "WIN"
	TriggerLose      workflow.Trigger = "LOSE"
)

// Contract triggers
const (
	TriggerApprove   workflow.Trigger = "APPROVE"
	TriggerReject    workflow.Trigger = "REJECT"
	TriggerResubmit  workflow.Trigger = "RESUBMIT"
	TriggerSign      workflow.Trigger = "SIGN"
	TriggerExecute   workflow.Trigger = "EXECUTE"
	TriggerComplete  workflow.Trigger = "COMPLETE"
	TriggerTerminate workflow.Trigger = "TERMINATE"
)

// Project triggers
const (
	TriggerReachHalf    workflow.Trigger = "REACH_HALF"
	TriggerReachFull    workflow.Trigger = "REACH_FULL"
	TriggerStartTesting workflow.Trigger = "START_TESTING"
	TriggerSuspend      workflow.Trigger = "SUSPEND"
	TriggerResume       workflow.Trigger = "RESUME"
	TriggerCancel       workflow.Trigger = "CANCEL"
)

// Invoice triggers
const (
	TriggerIssue       workflow.Trigger = "ISSUE"
	TriggerSettle      workflow.Trigger = "SETTLE"
	TriggerMarkOverdue workflow.Trigger = "MARK_OVERDUE"
)

// Purchase request triggers
const (
	TriggerSubmit         workflow.Trigger = "SUBMIT"
	TriggerSelectSupplier workflow.Trigger = "SELECT_SUPPLIER"
	TriggerReceive        workflow.Trigger = "RECEIVE"
)

// Expense request triggers
const (
	TriggerManagerApprove workflow.Trigger = "MANAGER_APPROVE"
	TriggerManagerReject  workflow.Trigger = "MANAGER_REJECT"
	TriggerFinanceApprove workflow.Trigger = "FINANCE_APPROVE"
	TriggerFinanceReject  workflow.Trigger = "FINANCE_REJECT"
	TriggerCEOApprove     workflow.Trigger = "CEO_APPROVE"
	TriggerCEOReject      workflow.Trigger = "CEO_REJECT"
	TriggerPay            workflow.Trigger = "PAY"
)
