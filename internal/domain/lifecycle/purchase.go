package lifecycle

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/bizflow/internal/domain/entity"
	"github.com/garyjia/bizflow/internal/domain/workflow"
)

var purchaseTable = buildPurchaseTable()

func buildPurchaseTable() *workflow.Table[*entity.PurchaseRequest] {
	b := workflow.NewBuilder[*entity.PurchaseRequest](string(entity.KindPurchaseRequest), states(
		entity.PurchaseStatusDraft,
		entity.PurchaseStatusSubmitted,
		entity.PurchaseStatusApproved,
		entity.PurchaseStatusRejected,
		entity.PurchaseStatusProcessing,
		entity.PurchaseStatusCompleted,
	)...)

	b.Configure(st(entity.PurchaseStatusDraft)).
		Permit(TriggerSubmit, st(entity.PurchaseStatusSubmitted))

	for _, pending := range []string{entity.PurchaseStatusDraft, entity.PurchaseStatusSubmitted} {
		b.Configure(st(pending)).
			Permit(TriggerApprove, st(entity.PurchaseStatusApproved)).
			Permit(TriggerReject, st(entity.PurchaseStatusRejected))
	}

	b.Configure(st(entity.PurchaseStatusApproved)).
		Permit(TriggerSelectSupplier, st(entity.PurchaseStatusProcessing))
	b.Configure(st(entity.PurchaseStatusProcessing)).
		Permit(TriggerReceive, st(entity.PurchaseStatusCompleted))

	return b.MustBuild()
}

// NewPurchaseRequest prepares a purchase request for its first save and
// derives the unit price from the estimated total
func NewPurchaseRequest(pr *entity.PurchaseRequest, now time.Time) {
	pr.Status = entity.PurchaseStatusDraft
	pr.ApprovalStatus = entity.ApprovalStatusPending
	if pr.Quantity > 0 {
		pr.EstimatedUnitPrice = pr.EstimatedTotalAmount.
			Div(decimal.NewFromInt(int64(pr.Quantity))).
			Round(2)
	}
	pr.CreatedAt = now
	pr.UpdatedAt = now
}

// SubmitPurchaseRequest moves a draft request to SUBMITTED
func SubmitPurchaseRequest(ctx context.Context, pr *entity.PurchaseRequest, now time.Time) error {
	return advancePurchase(ctx, pr, TriggerSubmit, now)
}

// DecidePurchaseRequest approves or rejects a pending request; rejection is terminal
func DecidePurchaseRequest(ctx context.Context, pr *entity.PurchaseRequest, approved bool, now time.Time) error {
	trigger := TriggerReject
	if approved {
		trigger = TriggerApprove
	}
	if err := advancePurchase(ctx, pr, trigger, now); err != nil {
		return err
	}

	pr.ApprovalStatus = entity.ApprovalStatusRejected
	if approved {
		pr.ApprovalStatus = entity.ApprovalStatusApproved
	}
	return nil
}

// SelectSupplier moves an approved request to PROCESSING
func SelectSupplier(ctx context.Context, pr *entity.PurchaseRequest, supplierName string, now time.Time) error {
	if err := advancePurchase(ctx, pr, TriggerSelectSupplier, now); err != nil {
		return err
	}
	pr.SupplierName = supplierName
	return nil
}

// ReceiveGoods moves a processing request to COMPLETED
func ReceiveGoods(ctx context.Context, pr *entity.PurchaseRequest, now time.Time) error {
	return advancePurchase(ctx, pr, TriggerReceive, now)
}

func advancePurchase(ctx context.Context, pr *entity.PurchaseRequest, trigger workflow.Trigger, now time.Time) error {
	next, err := fire(ctx, purchaseTable, pr, pr.Status, trigger)
	if err != nil {
		return err
	}
	pr.Status = next
	pr.UpdatedAt = now
	return nil
}
