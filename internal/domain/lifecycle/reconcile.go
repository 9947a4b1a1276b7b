package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/bizflow/internal/domain/entity"
)

// PaymentStatusFor derives the payment status from received vs amount
func PaymentStatusFor(received, amount decimal.Decimal) string {
	switch {
	case received.IsZero():
		return entity.PaymentStatusUnpaid
	case received.GreaterThanOrEqual(amount):
		return entity.PaymentStatusPaid
	default:
		return entity.PaymentStatusPartial
	}
}

// Reconcile applies a received payment to an invoice.
// The invoice is left untouched when any check fails.
func Reconcile(ctx context.Context, inv *entity.Invoice, delta decimal.Decimal, now time.Time) error {
	if !delta.IsPositive() {
		return fmt.Errorf("%w: payment amount must be positive, got %s", entity.ErrValidation, delta)
	}

	if !Payable(inv) {
		return fmt.Errorf("%w: %s: cannot receive payment in status %s", entity.ErrInvalidTransition, entity.KindInvoice, inv.Status)
	}

	received := inv.ReceivedAmount.Add(delta)
	if received.GreaterThan(inv.Amount) {
		return fmt.Errorf("%w: received %s + %s exceeds amount %s", entity.ErrOverpayment, inv.ReceivedAmount, delta, inv.Amount)
	}

	paymentStatus := PaymentStatusFor(received, inv.Amount)
	status := inv.Status
	if paymentStatus == entity.PaymentStatusPaid {
		next, err := fire(ctx, invoiceTable, inv, inv.Status, TriggerSettle)
		if err != nil {
			return err
		}
		status = next
	}

	inv.ReceivedAmount = received
	inv.PaymentStatus = paymentStatus
	inv.Status = status
	inv.UpdatedAt = now
	return nil
}
