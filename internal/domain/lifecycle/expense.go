package lifecycle

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/bizflow/internal/domain/entity"
	"github.com/garyjia/bizflow/internal/domain/workflow"
)

// DefaultExpenseThreshold is the amount above which CEO approval is required
var DefaultExpenseThreshold = decimal.NewFromInt(10000)

// ExpensePolicy decides which approval gates an expense must pass
type ExpensePolicy struct {
	Threshold decimal.Decimal
}

// NewExpensePolicy creates a policy, falling back to the default threshold
func NewExpensePolicy(threshold decimal.Decimal) ExpensePolicy {
	if !threshold.IsPositive() {
		threshold = DefaultExpenseThreshold
	}
	return ExpensePolicy{Threshold: threshold}
}

// RequiresCEO reports whether the amount strictly exceeds the threshold
func (p ExpensePolicy) RequiresCEO(amount decimal.Decimal) bool {
	return amount.GreaterThan(p.Threshold)
}

// expenseCase is the subject of the expense table: whether the CEO gate
// applies depends on the policy as well as the amount
type expenseCase struct {
	req    *entity.ExpenseRequest
	policy ExpensePolicy
}

func needsCEO(_ context.Context, c expenseCase) bool { return c.policy.RequiresCEO(c.req.Amount) }
func skipsCEO(_ context.Context, c expenseCase) bool { return !c.policy.RequiresCEO(c.req.Amount) }

var expenseTable = buildExpenseTable()

func buildExpenseTable() *workflow.Table[expenseCase] {
	b := workflow.NewBuilder[expenseCase](string(entity.KindExpenseRequest), states(
		entity.ExpenseStatusDraft,
		entity.ExpenseStatusSubmitted,
		entity.ExpenseStatusManagerApproved,
		entity.ExpenseStatusFinanceReviewed,
		entity.ExpenseStatusCEOApproved,
		entity.ExpenseStatusPaid,
		entity.ExpenseStatusRejected,
	)...)

	b.Configure(st(entity.ExpenseStatusDraft)).
		Permit(TriggerSubmit, st(entity.ExpenseStatusSubmitted))

	b.Configure(st(entity.ExpenseStatusSubmitted)).
		Permit(TriggerManagerApprove, st(entity.ExpenseStatusManagerApproved)).
		Permit(TriggerManagerReject, st(entity.ExpenseStatusRejected))

	b.Configure(st(entity.ExpenseStatusManagerApproved)).
		Permit(TriggerFinanceApprove, st(entity.ExpenseStatusFinanceReviewed)).
		Permit(TriggerFinanceReject, st(entity.ExpenseStatusRejected))

	b.Configure(st(entity.ExpenseStatusFinanceReviewed)).
		PermitIf(TriggerCEOApprove, st(entity.ExpenseStatusCEOApproved), needsCEO).
		PermitIf(TriggerCEOReject, st(entity.ExpenseStatusRejected), needsCEO).
		PermitIf(TriggerPay, st(entity.ExpenseStatusPaid), skipsCEO)

	b.Configure(st(entity.ExpenseStatusCEOApproved)).
		PermitIf(TriggerPay, st(entity.ExpenseStatusPaid), needsCEO)

	return b.MustBuild()
}

// NewExpenseRequest prepares an expense request for its first save
func NewExpenseRequest(req *entity.ExpenseRequest, now time.Time) {
	req.Status = entity.ExpenseStatusDraft
	req.ApprovalStatus = entity.ApprovalStatusPending
	req.CreatedAt = now
	req.UpdatedAt = now
}

// Submit attaches the supporting document and moves the request to SUBMITTED
func (p ExpensePolicy) Submit(ctx context.Context, req *entity.ExpenseRequest, attachmentRef string, now time.Time) error {
	if err := p.advance(ctx, req, TriggerSubmit, now); err != nil {
		return err
	}
	req.AttachmentRef = attachmentRef
	return nil
}

// ManagerDecision applies the level 1 decision
func (p ExpensePolicy) ManagerDecision(ctx context.Context, req *entity.ExpenseRequest, approverID int64, approved bool, now time.Time) error {
	trigger := TriggerManagerReject
	if approved {
		trigger = TriggerManagerApprove
	}
	if err := p.decide(ctx, req, trigger, approved, now); err != nil {
		return err
	}
	req.ManagerID = approverID
	return nil
}

// FinanceDecision applies the level 2 decision. Below the threshold a
// positive finance review is the final approval.
func (p ExpensePolicy) FinanceDecision(ctx context.Context, req *entity.ExpenseRequest, approverID int64, approved bool, now time.Time) error {
	trigger := TriggerFinanceReject
	if approved {
		trigger = TriggerFinanceApprove
	}
	if err := p.decide(ctx, req, trigger, approved, now); err != nil {
		return err
	}
	req.FinanceID = approverID
	if approved && !p.RequiresCEO(req.Amount) {
		req.ApprovalStatus = entity.ApprovalStatusApproved
	}
	return nil
}

// CEODecision applies the level 3 decision, only valid above the threshold
// and only after the finance review.
func (p ExpensePolicy) CEODecision(ctx context.Context, req *entity.ExpenseRequest, approverID int64, approved bool, now time.Time) error {
	trigger := TriggerCEOReject
	if approved {
		trigger = TriggerCEOApprove
	}
	if err := p.decide(ctx, req, trigger, approved, now); err != nil {
		return err
	}
	req.CEOID = approverID
	if approved {
		req.ApprovalStatus = entity.ApprovalStatusApproved
	}
	return nil
}

// Pay marks a fully approved request as PAID
func (p ExpensePolicy) Pay(ctx context.Context, req *entity.ExpenseRequest, paymentMethod string, now time.Time) error {
	if err := p.advance(ctx, req, TriggerPay, now); err != nil {
		return err
	}
	req.PaymentMethod = paymentMethod
	paidAt := now
	req.PaidAt = &paidAt
	return nil
}

// ReadyForPayment reports whether every required gate has passed
func (p ExpensePolicy) ReadyForPayment(req *entity.ExpenseRequest) bool {
	return expenseTable.CanFire(st(req.Status), TriggerPay) &&
		req.ApprovalStatus == entity.ApprovalStatusApproved
}

func (p ExpensePolicy) decide(ctx context.Context, req *entity.ExpenseRequest, trigger workflow.Trigger, approved bool, now time.Time) error {
	if err := p.advance(ctx, req, trigger, now); err != nil {
		return err
	}
	if !approved {
		req.ApprovalStatus = entity.ApprovalStatusRejected
	}
	return nil
}

func (p ExpensePolicy) advance(ctx context.Context, req *entity.ExpenseRequest, trigger workflow.Trigger, now time.Time) error {
	next, err := fire(ctx, expenseTable, expenseCase{req: req, policy: p}, req.Status, trigger)
	if err != nil {
		return err
	}
	req.Status = next
	req.UpdatedAt = now
	return nil
}
