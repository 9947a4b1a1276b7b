package pipeline

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/garyjia/bizflow/internal/application/service"
	"github.com/garyjia/bizflow/internal/domain/entity"
)

// Procure-to-pay step names
const (
	StepCreatePurchaseRequest   = "create_purchase_request"
	StepApprovePurchaseRequest  = "approve_purchase_request"
	StepSelectSupplier          = "select_supplier"
	StepReceiveGoods            = "receive_goods"
	StepRegisterSupplierInvoice = "register_supplier_invoice"
	StepApprovePayment          = "approve_payment"
)

// DefaultSupplier is selected when the input names none
const DefaultSupplier = "preferred supplier"

// ProcureToPayInput starts a procure-to-pay run
type ProcureToPayInput struct {
	DepartmentID    int64           `json:"department_id" validate:"gt=0"`
	ItemName        string          `json:"item_name" validate:"required,max=200"`
	Quantity        int             `json:"quantity" validate:"gt=0"`
	EstimatedAmount decimal.Decimal `json:"estimated_amount" validate:"gt=0"`
	SupplierName    string          `json:"supplier_name,omitempty" validate:"max=200"`
}

// ProcureToPay takes a purchase request through approval, receipt and
// supplier payment
func (o *Orchestrator) ProcureToPay(ctx context.Context, input ProcureToPayInput) (*Trace, error) {
	return o.execute(ctx, NameProcureToPay, input, func(r *run) error {
		now := o.now()
		supplier := input.SupplierName
		if supplier == "" {
			supplier = DefaultSupplier
		}
		var (
			request *entity.PurchaseRequest
			invoice *entity.Invoice
		)

		if err := r.step(StepCreatePurchaseRequest, func(ctx context.Context) (ref, error) {
			var err error
			request, err = o.svc.Purchases.Create(ctx, service.CreatePurchaseInput{
				DepartmentID:         input.DepartmentID,
				RequesterID:          o.actors.Owner,
				ItemName:             input.ItemName,
				Quantity:             input.Quantity,
				Unit:                 "pcs",
				EstimatedTotalAmount: input.EstimatedAmount,
				RequiredDate:         now.AddDate(0, 0, 7),
				Reason:               "business need",
			})
			return purchaseRef(request), err
		}); err != nil {
			return err
		}

		if err := r.step(StepApprovePurchaseRequest, func(ctx context.Context) (ref, error) {
			var err error
			request, err = o.svc.Purchases.Decide(ctx, request.ID, service.Decision{
				ApproverID: o.actors.PurchaseApprover,
				Approved:   true,
				Comments:   "purchase approved",
			})
			return purchaseRef(request), err
		}); err != nil {
			return err
		}

		if err := r.step(StepSelectSupplier, func(ctx context.Context) (ref, error) {
			var err error
			request, err = o.svc.Purchases.SelectSupplier(ctx, request.ID, supplier)
			return purchaseRef(request), err
		}); err != nil {
			return err
		}

		if err := r.step(StepReceiveGoods, func(ctx context.Context) (ref, error) {
			var err error
			request, err = o.svc.Purchases.Receive(ctx, request.ID)
			return purchaseRef(request), err
		}); err != nil {
			return err
		}

		if err := r.step(StepRegisterSupplierInvoice, func(ctx context.Context) (ref, error) {
			var err error
			invoice, err = o.svc.Invoices.RegisterSupplier(ctx, service.RegisterSupplierInput{
				PurchaseRequestID: request.ID,
				Amount:            input.EstimatedAmount,
				InvoiceDate:       now,
				DueDate:           now.AddDate(0, 0, invoiceTermDays),
				CreatedBy:         o.actors.Owner,
			})
			return invoiceRef(invoice), err
		}); err != nil {
			return err
		}

		if err := r.step(StepApprovePayment, func(ctx context.Context) (ref, error) {
			_, err := o.svc.Invoices.ApprovePayment(ctx, invoice.ID, service.Decision{
				ApproverID: o.actors.PaymentApprover,
				Approved:   true,
				Comments:   "payment approved",
			})
			return invoiceRef(invoice), err
		}); err != nil {
			return err
		}

		return r.step(StepReconcileInvoice, func(ctx context.Context) (ref, error) {
			paid, err := o.svc.Invoices.Reconcile(ctx, invoice.ID, invoice.Outstanding())
			if err != nil {
				return invoiceRef(invoice), err
			}
			invoice = paid
			return invoiceRef(invoice), nil
		})
	})
}

func purchaseRef(pr *entity.PurchaseRequest) ref {
	if pr == nil {
		return ref{kind: entity.KindPurchaseRequest}
	}
	return ref{kind: entity.KindPurchaseRequest, id: pr.ID, code: pr.Code, status: pr.Status}
}
