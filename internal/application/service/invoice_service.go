package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/bizflow/internal/application/port"
	"github.com/garyjia/bizflow/internal/domain/entity"
	"github.com/garyjia/bizflow/internal/domain/event"
	"github.com/garyjia/bizflow/internal/domain/lifecycle"
	"github.com/garyjia/bizflow/pkg/keylock"
)

// IssueSalesInput holds the fields of a sales invoice issued for a project
type IssueSalesInput struct {
	ProjectID   int64           `validate:"gt=0"`
	CustomerID  int64           `validate:"gte=0"`
	Amount      decimal.Decimal `validate:"gt=0"`
	InvoiceDate time.Time
	DueDate     time.Time
	CreatedBy   int64 `validate:"gte=0"`
}

// RegisterSupplierInput holds the fields of a supplier invoice received
// against a purchase request
type RegisterSupplierInput struct {
	PurchaseRequestID int64           `validate:"gt=0"`
	Amount            decimal.Decimal `validate:"gt=0"`
	InvoiceDate       time.Time
	DueDate           time.Time
	CreatedBy         int64 `validate:"gte=0"`
}

// InvoiceService manages sales and supplier invoices and their payments
type InvoiceService interface {
	IssueSales(ctx context.Context, input IssueSalesInput) (*entity.Invoice, error)
	RegisterSupplier(ctx context.Context, input RegisterSupplierInput) (*entity.Invoice, error)
	Get(ctx context.Context, id int64) (*entity.Invoice, error)

	// ApprovePayment records the payment gate decision in the ledger
	ApprovePayment(ctx context.Context, id int64, decision Decision) (*entity.Approval, error)

	// Reconcile applies a received payment. Calls for the same invoice are
	// serialized.
	Reconcile(ctx context.Context, id int64, delta decimal.Decimal) (*entity.Invoice, error)

	// MarkOverdue flags every issued invoice past its due date and returns
	// how many were flagged
	MarkOverdue(ctx context.Context) (int, error)

	Cancel(ctx context.Context, id int64) (*entity.Invoice, error)
}

type invoiceService struct {
	base
	repo      port.InvoiceRepository
	projects  port.ProjectRepository
	purchases port.PurchaseRequestRepository
	ledger    *ledgerService
	locks     *keylock.Locker[int64]
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	repo port.InvoiceRepository,
	projects port.ProjectRepository,
	purchases port.PurchaseRequestRepository,
	approvals port.ApprovalRepository,
	deps Deps,
) InvoiceService {
	return &invoiceService{
		base:      newBase(deps),
		repo:      repo,
		projects:  projects,
		purchases: purchases,
		ledger:    newLedger(approvals, deps),
		locks:     keylock.New[int64](),
	}
}

// IssueSales creates a sales invoice and issues it
func (s *invoiceService) IssueSales(ctx context.Context, input IssueSalesInput) (*entity.Invoice, error) {
	if err := s.check(input); err != nil {
		return nil, err
	}

	projectID := input.ProjectID
	inv := &entity.Invoice{
		ProjectID:   &projectID,
		CustomerID:  input.CustomerID,
		InvoiceType: entity.InvoiceTypeSales,
		Amount:      input.Amount,
		InvoiceDate: input.InvoiceDate,
		DueDate:     input.DueDate,
		CreatedBy:   input.CreatedBy,
	}

	err := s.issue(ctx, entity.KindInvoice, inv, func(ctx context.Context) error {
		_, err := s.projects.GetByID(ctx, input.ProjectID)
		return err
	})
	if err != nil {
		s.logger.Error("Failed to issue sales invoice", "project_id", input.ProjectID, "error", err)
		return nil, fmt.Errorf("failed to issue sales invoice: %w", err)
	}
	return inv, nil
}

// RegisterSupplier records a supplier invoice for a purchase request
func (s *invoiceService) RegisterSupplier(ctx context.Context, input RegisterSupplierInput) (*entity.Invoice, error) {
	if err := s.check(input); err != nil {
		return nil, err
	}

	requestID := input.PurchaseRequestID
	inv := &entity.Invoice{
		PurchaseRequestID: &requestID,
		InvoiceType:       entity.InvoiceTypePurchase,
		Amount:            input.Amount,
		InvoiceDate:       input.InvoiceDate,
		DueDate:           input.DueDate,
		CreatedBy:         input.CreatedBy,
	}

	err := s.issue(ctx, entity.KindSupplierInvoice, inv, func(ctx context.Context) error {
		_, err := s.purchases.GetByID(ctx, input.PurchaseRequestID)
		return err
	})
	if err != nil {
		s.logger.Error("Failed to register supplier invoice", "purchase_request_id", input.PurchaseRequestID, "error", err)
		return nil, fmt.Errorf("failed to register supplier invoice: %w", err)
	}
	return inv, nil
}

func (s *invoiceService) issue(ctx context.Context, kind entity.Kind, inv *entity.Invoice, checkRef func(ctx context.Context) error) error {
	now := s.now()
	if inv.InvoiceDate.IsZero() {
		inv.InvoiceDate = now
	}
	lifecycle.NewInvoice(inv, now)

	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := checkRef(ctx); err != nil {
			return err
		}
		code, err := s.nextCode(ctx, kind)
		if err != nil {
			return err
		}
		inv.Code = code
		if err := lifecycle.Issue(ctx, inv, now); err != nil {
			return err
		}
		return s.repo.Create(ctx, inv)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Invoice issued", "id", inv.ID, "code", inv.Code, "type", inv.InvoiceType, "amount", inv.Amount.String())
	s.publish(ctx, createdEvent(ctx, kind, inv.ID, inv.Code, inv.Status))
	return nil
}

// Get returns an invoice by id
func (s *invoiceService) Get(ctx context.Context, id int64) (*entity.Invoice, error) {
	return s.repo.GetByID(ctx, id)
}

// ApprovePayment records the level 1 payment decision. The invoice must
// still be able to receive payments.
func (s *invoiceService) ApprovePayment(ctx context.Context, id int64, decision Decision) (*entity.Approval, error) {
	var record *entity.Approval
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		inv, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !lifecycle.Payable(inv) {
			return fmt.Errorf("%w: %s: cannot approve payment in status %s", entity.ErrInvalidTransition, entity.KindInvoice, inv.Status)
		}

		record, err = s.ledger.append(ctx, RecordInput{
			BusinessType: entity.BusinessTypeInvoice,
			BusinessID:   inv.ID,
			ApproverID:   decision.ApproverID,
			Level:        entity.ApprovalLevelSingleGate,
			Result:       entity.ApprovalResult(decision.Approved),
			Comments:     decision.Comments,
		})
		return err
	})
	if err != nil {
		s.logger.Error("Failed to approve payment", "invoice_id", id, "error", err)
		return nil, err
	}

	s.publish(ctx, approvalEvent(ctx, record))
	return record, nil
}

// Reconcile applies a received payment under the invoice's lock
func (s *invoiceService) Reconcile(ctx context.Context, id int64, delta decimal.Decimal) (*entity.Invoice, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	inv, err := transition(ctx, &s.base, entity.KindInvoice, id, s.repo.GetByID, s.repo.Update,
		func(inv *entity.Invoice) (string, string) { return inv.Code, inv.Status },
		func(ctx context.Context, inv *entity.Invoice) error {
			return lifecycle.Reconcile(ctx, inv, delta, s.now())
		},
	)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Payment reconciled",
		"invoice_id", inv.ID,
		"delta", delta.String(),
		"received", inv.ReceivedAmount.String(),
		"payment_status", inv.PaymentStatus,
	)
	s.publish(ctx, event.NewEvent(ctx, event.TypeInvoiceReconciled, string(entity.KindInvoice), inv.ID, inv.Code, event.Payload{
		"delta":          delta.String(),
		"received":       inv.ReceivedAmount.String(),
		"amount":         inv.Amount.String(),
		"payment_status": inv.PaymentStatus,
	}))
	return inv, nil
}

// MarkOverdue flags issued invoices whose due date passed
func (s *invoiceService) MarkOverdue(ctx context.Context) (int, error) {
	issued := entity.InvoiceStatusIssued
	invoices, err := s.repo.List(ctx, port.InvoiceFilter{Status: &issued})
	if err != nil {
		return 0, fmt.Errorf("failed to list issued invoices: %w", err)
	}

	now := s.now()
	marked := 0
	for _, inv := range invoices {
		if !lifecycle.IsOverdue(inv, now) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return marked, err
		}

		// A payment may have landed since the list was read
		flagged := false
		unlock := s.locks.Lock(inv.ID)
		_, err := transition(ctx, &s.base, entity.KindInvoice, inv.ID, s.repo.GetByID, s.repo.Update,
			func(inv *entity.Invoice) (string, string) { return inv.Code, inv.Status },
			func(ctx context.Context, inv *entity.Invoice) error {
				if !lifecycle.IsOverdue(inv, now) {
					return nil
				}
				if err := lifecycle.MarkOverdue(ctx, inv, now); err != nil {
					return err
				}
				flagged = true
				return nil
			},
		)
		unlock()
		if err != nil {
			return marked, err
		}
		if flagged {
			marked++
		}
	}

	if marked > 0 {
		s.logger.Info("Overdue invoices marked", "count", marked)
	}
	return marked, nil
}

// Cancel cancels an invoice that has not received any payment
func (s *invoiceService) Cancel(ctx context.Context, id int64) (*entity.Invoice, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	return transition(ctx, &s.base, entity.KindInvoice, id, s.repo.GetByID, s.repo.Update,
		func(inv *entity.Invoice) (string, string) { return inv.Code, inv.Status },
		func(ctx context.Context, inv *entity.Invoice) error {
			return lifecycle.CancelInvoice(ctx, inv, s.now())
		},
	)
}
