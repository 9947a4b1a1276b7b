package lifecycle

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/bizflow/internal/domain/entity"
	"github.com/garyjia/bizflow/internal/domain/workflow"
)

var invoiceTable = buildInvoiceTable()

// cancellation requires that nothing was received
func nothingReceived(_ context.Context, inv *entity.Invoice) bool {
	return inv.ReceivedAmount.IsZero()
}

func buildInvoiceTable() *workflow.Table[*entity.Invoice] {
	b := workflow.NewBuilder[*entity.Invoice](string(entity.KindInvoice), states(
		entity.InvoiceStatusDraft,
		entity.InvoiceStatusIssued,
		entity.InvoiceStatusPaid,
		entity.InvoiceStatusOverdue,
		entity.InvoiceStatusCancelled,
	)...)

	b.Configure(st(entity.InvoiceStatusDraft)).
		Permit(TriggerIssue, st(entity.InvoiceStatusIssued)).
		Permit(TriggerCancel, st(entity.InvoiceStatusCancelled))

	b.Configure(st(entity.InvoiceStatusIssued)).
		Permit(TriggerSettle, st(entity.InvoiceStatusPaid)).
		Permit(TriggerMarkOverdue, st(entity.InvoiceStatusOverdue)).
		PermitIf(TriggerCancel, st(entity.InvoiceStatusCancelled), nothingReceived)

	b.Configure(st(entity.InvoiceStatusOverdue)).
		Permit(TriggerSettle, st(entity.InvoiceStatusPaid)).
		PermitIf(TriggerCancel, st(entity.InvoiceStatusCancelled), nothingReceived)

	return b.MustBuild()
}

// NewInvoice prepares an invoice for its first save in DRAFT
func NewInvoice(inv *entity.Invoice, now time.Time) {
	inv.Status = entity.InvoiceStatusDraft
	inv.ReceivedAmount = decimal.Zero
	inv.PaymentStatus = entity.PaymentStatusUnpaid
	inv.CreatedAt = now
	inv.UpdatedAt = now
}

// Issue moves a draft invoice to ISSUED with nothing received
func Issue(ctx context.Context, inv *entity.Invoice, now time.Time) error {
	if err := advanceInvoice(ctx, inv, TriggerIssue, now); err != nil {
		return err
	}
	inv.ReceivedAmount = decimal.Zero
	inv.PaymentStatus = entity.PaymentStatusUnpaid
	return nil
}

// MarkOverdue flags an issued invoice whose due date has passed
func MarkOverdue(ctx context.Context, inv *entity.Invoice, now time.Time) error {
	return advanceInvoice(ctx, inv, TriggerMarkOverdue, now)
}

// CancelInvoice cancels an invoice that has not received any payment
func CancelInvoice(ctx context.Context, inv *entity.Invoice, now time.Time) error {
	return advanceInvoice(ctx, inv, TriggerCancel, now)
}

// Payable reports whether the invoice can still receive payments
func Payable(inv *entity.Invoice) bool {
	return invoiceTable.CanFire(st(inv.Status), TriggerSettle)
}

// IsOverdue reports whether an issued invoice is past its due date at now
func IsOverdue(inv *entity.Invoice, now time.Time) bool {
	return inv.Status == entity.InvoiceStatusIssued &&
		inv.PaymentStatus != entity.PaymentStatusPaid &&
		!inv.DueDate.IsZero() &&
		inv.DueDate.Before(now)
}

func advanceInvoice(ctx context.Context, inv *entity.Invoice, trigger workflow.Trigger, now time.Time) error {
	next, err := fire(ctx, invoiceTable, inv, inv.Status, trigger)
	if err != nil {
		return err
	}
	inv.Status = next
	inv.UpdatedAt = now
	return nil
}
