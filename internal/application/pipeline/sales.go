package pipeline

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/garyjia/bizflow/internal/application/service"
	"github.com/garyjia/bizflow/internal/domain/entity"
)

// Sales-to-receipt step names
const (
	StepCreateOpportunity  = "create_opportunity"
	StepQualifyOpportunity = "qualify_opportunity"
	StepCreateContract     = "create_contract"
	StepApproveContract    = "approve_contract"
	StepCreateProject      = "create_project"
	StepUpdateProgress     = "update_progress"
	StepIssueInvoice       = "issue_invoice"
	StepReconcileInvoice   = "reconcile_invoice"
)

const (
	salesWinProbability = 80
	salesProgress       = 50
	invoiceTermDays     = 30
)

// SalesToReceiptInput starts a sales-to-receipt run
type SalesToReceiptInput struct {
	CustomerID        int64           `json:"customer_id" validate:"gt=0"`
	OpportunityAmount decimal.Decimal `json:"opportunity_amount" validate:"gt=0"`
	ContractAmount    decimal.Decimal `json:"contract_amount" validate:"gt=0"`
}

// SalesToReceipt takes a deal from opportunity to a fully paid invoice
func (o *Orchestrator) SalesToReceipt(ctx context.Context, input SalesToReceiptInput) (*Trace, error) {
	return o.execute(ctx, NameSalesToReceipt, input, func(r *run) error {
		now := o.now()
		var (
			opportunity *entity.SalesOpportunity
			contract    *entity.Contract
			project     *entity.Project
			invoice     *entity.Invoice
		)

		if err := r.step(StepCreateOpportunity, func(ctx context.Context) (ref, error) {
			var err error
			opportunity, err = o.svc.Opportunities.Create(ctx, service.CreateOpportunityInput{
				CustomerID:        input.CustomerID,
				Name:              fmt.Sprintf("Opportunity for customer %d", input.CustomerID),
				Amount:            input.OpportunityAmount,
				WinProbability:    salesWinProbability,
				ExpectedCloseDate: now.AddDate(0, 0, 30),
				Source:            "website",
				OwnerID:           o.actors.Owner,
				CreatedBy:         o.actors.Owner,
			})
			return opportunityRef(opportunity), err
		}); err != nil {
			return err
		}

		if err := r.step(StepQualifyOpportunity, func(ctx context.Context) (ref, error) {
			var err error
			opportunity, err = o.svc.Opportunities.Qualify(ctx, opportunity.ID)
			return opportunityRef(opportunity), err
		}); err != nil {
			return err
		}

		if err := r.step(StepCreateContract, func(ctx context.Context) (ref, error) {
			opportunityID := opportunity.ID
			var err error
			contract, err = o.svc.Contracts.Create(ctx, service.CreateContractInput{
				OpportunityID: &opportunityID,
				CustomerID:    input.CustomerID,
				Name:          fmt.Sprintf("Sales contract for %s", opportunity.Code),
				ContractType:  entity.ContractTypeSales,
				Amount:        input.ContractAmount,
				Currency:      entity.DefaultCurrency,
				StartDate:     now,
				EndDate:       now.AddDate(1, 0, 0),
				PaymentTerms:  entity.DefaultPaymentTerms,
				OwnerID:       o.actors.Owner,
				CreatedBy:     o.actors.Owner,
			})
			return contractRef(contract), err
		}); err != nil {
			return err
		}

		if err := r.step(StepApproveContract, func(ctx context.Context) (ref, error) {
			var err error
			contract, err = o.svc.Contracts.Decide(ctx, contract.ID, service.Decision{
				ApproverID: o.actors.ContractApprover,
				Approved:   true,
				Comments:   "approved",
			})
			return contractRef(contract), err
		}); err != nil {
			return err
		}

		if err := r.step(StepCreateProject, func(ctx context.Context) (ref, error) {
			var err error
			project, err = o.svc.Projects.Create(ctx, service.CreateProjectInput{
				ContractID: contract.ID,
				Name:       fmt.Sprintf("Delivery of %s", contract.Code),
				Budget:     input.ContractAmount,
				StartDate:  now,
				EndDate:    now.AddDate(0, 6, 0),
				ManagerID:  o.actors.Owner,
				CreatedBy:  o.actors.Owner,
			})
			return projectRef(project), err
		}); err != nil {
			return err
		}

		if err := r.step(StepUpdateProgress, func(ctx context.Context) (ref, error) {
			var err error
			project, err = o.svc.Projects.SetProgress(ctx, project.ID, salesProgress)
			return projectRef(project), err
		}); err != nil {
			return err
		}

		if err := r.step(StepIssueInvoice, func(ctx context.Context) (ref, error) {
			var err error
			invoice, err = o.svc.Invoices.IssueSales(ctx, service.IssueSalesInput{
				ProjectID:   project.ID,
				CustomerID:  input.CustomerID,
				Amount:      input.ContractAmount,
				InvoiceDate: now,
				DueDate:     now.AddDate(0, 0, invoiceTermDays),
				CreatedBy:   o.actors.Owner,
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

func opportunityRef(o *entity.SalesOpportunity) ref {
	if o == nil {
		return ref{kind: entity.KindOpportunity}
	}
	return ref{kind: entity.KindOpportunity, id: o.ID, code: o.Code, status: o.Status}
}

func contractRef(c *entity.Contract) ref {
	if c == nil {
		return ref{kind: entity.KindContract}
	}
	return ref{kind: entity.KindContract, id: c.ID, code: c.Code, status: c.Status}
}

func projectRef(p *entity.Project) ref {
	if p == nil {
		return ref{kind: entity.KindProject}
	}
	return ref{kind: entity.KindProject, id: p.ID, code: p.Code, status: p.Status}
}

func invoiceRef(inv *entity.Invoice) ref {
	if inv == nil {
		return ref{kind: entity.KindInvoice}
	}
	return ref{kind: entity.KindInvoice, id: inv.ID, code: inv.Code, status: inv.Status}
}
