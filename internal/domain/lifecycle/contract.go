package lifecycle

import (
	"context"
	"time"

	"github.com/garyjia/bizflow/internal/domain/entity"
	"github.com/garyjia/bizflow/internal/domain/workflow"
)

var contractTable = buildContractTable()

func awaitingDecision(_ context.Context, c *entity.Contract) bool {
	return c.ApprovalStatus == entity.ApprovalStatusPending
}

func wasRejected(_ context.Context, c *entity.Contract) bool {
	return c.ApprovalStatus == entity.ApprovalStatusRejected
}

func buildContractTable() *workflow.Table[*entity.Contract] {
	b := workflow.NewBuilder[*entity.Contract](string(entity.KindContract), states(
		entity.ContractStatusDraft,
		entity.ContractStatusPendingApproval,
		entity.ContractStatusApproved,
		entity.ContractStatusSigned,
		entity.ContractStatusExecuting,
		entity.ContractStatusCompleted,
		entity.ContractStatusTerminated,
	)...)

	// A rejected draft stays DRAFT until it is resubmitted
	b.Configure(st(entity.ContractStatusDraft)).
		PermitIf(TriggerApprove, st(entity.ContractStatusApproved), awaitingDecision).
		PermitIf(TriggerReject, st(entity.ContractStatusDraft), awaitingDecision).
		PermitIf(TriggerResubmit, st(entity.ContractStatusPendingApproval), wasRejected)

	b.Configure(st(entity.ContractStatusPendingApproval)).
		Permit(TriggerApprove, st(entity.ContractStatusApproved)).
		Permit(TriggerReject, st(entity.ContractStatusDraft))

	b.Configure(st(entity.ContractStatusApproved)).
		Permit(TriggerSign, st(entity.ContractStatusSigned))
	b.Configure(st(entity.ContractStatusSigned)).
		Permit(TriggerExecute, st(entity.ContractStatusExecuting))
	b.Configure(st(entity.ContractStatusExecuting)).
		Permit(TriggerComplete, st(entity.ContractStatusCompleted))

	for _, open := range []string{
		entity.ContractStatusDraft,
		entity.ContractStatusPendingApproval,
		entity.ContractStatusApproved,
		entity.ContractStatusSigned,
		entity.ContractStatusExecuting,
	} {
		b.Configure(st(open)).Permit(TriggerTerminate, st(entity.ContractStatusTerminated))
	}

	return b.MustBuild()
}

// NewContract prepares a contract for its first save
func NewContract(c *entity.Contract, now time.Time) {
	c.Status = entity.ContractStatusDraft
	c.ApprovalStatus = entity.ApprovalStatusPending
	c.CreatedAt = now
	c.UpdatedAt = now
}

// DecideContract applies an approval decision.
// Approval moves the contract to APPROVED; rejection keeps it in DRAFT.
func DecideContract(ctx context.Context, c *entity.Contract, approved bool, now time.Time) error {
	trigger := TriggerReject
	if approved {
		trigger = TriggerApprove
	}
	if err := advanceContract(ctx, c, trigger, now); err != nil {
		return err
	}

	c.ApprovalStatus = entity.ApprovalStatusRejected
	if approved {
		c.ApprovalStatus = entity.ApprovalStatusApproved
	}
	return nil
}

// ResubmitContract reopens a rejected contract for a new approval cycle
func ResubmitContract(ctx context.Context, c *entity.Contract, now time.Time) error {
	if err := advanceContract(ctx, c, TriggerResubmit, now); err != nil {
		return err
	}
	c.ApprovalStatus = entity.ApprovalStatusPending
	return nil
}

// SignContract moves an approved contract to SIGNED
func SignContract(ctx context.Context, c *entity.Contract, now time.Time) error {
	return advanceContract(ctx, c, TriggerSign, now)
}

// ExecuteContract moves a signed contract to EXECUTING
func ExecuteContract(ctx context.Context, c *entity.Contract, now time.Time) error {
	return advanceContract(ctx, c, TriggerExecute, now)
}

// CompleteContract moves an executing contract to COMPLETED
func CompleteContract(ctx context.Context, c *entity.Contract, now time.Time) error {
	return advanceContract(ctx, c, TriggerComplete, now)
}

// TerminateContract moves any open contract to TERMINATED
func TerminateContract(ctx context.Context, c *entity.Contract, now time.Time) error {
	return advanceContract(ctx, c, TriggerTerminate, now)
}

func advanceContract(ctx context.Context, c *entity.Contract, trigger workflow.Trigger, now time.Time) error {
	next, err := fire(ctx, contractTable, c, c.Status, trigger)
	if err != nil {
		return err
	}
	c.Status = next
	c.UpdatedAt = now
	return nil
}
