// Package query answers read-only questions about workflow entities
package query

import (
	"context"
	"fmt"

	"github.com/garyjia/bizflow/internal/application/port"
	"github.com/garyjia/bizflow/internal/domain/entity"
)

// Repositories are the stores the query service reads
type Repositories struct {
	Opportunities port.OpportunityRepository
	Contracts     port.ContractRepository
	Projects      port.ProjectRepository
	Invoices      port.InvoiceRepository
	Purchases     port.PurchaseRequestRepository
	Expenses      port.ExpenseRequestRepository
	Approvals     port.ApprovalRepository
}

// Counts holds the total of one entity kind under "total" plus one entry
// per tracked status
type Counts map[string]int

// Statistics summarizes every entity kind
type Statistics struct {
	Opportunities    Counts `json:"opportunities"`
	Contracts        Counts `json:"contracts"`
	Projects         Counts `json:"projects"`
	Invoices         Counts `json:"invoices"`
	PurchaseRequests Counts `json:"purchase_requests"`
	ExpenseRequests  Counts `json:"expense_requests"`
	Approvals        Counts `json:"approvals"`
}

// Service lists workflow entities and computes statistics. It never
// mutates state, so repeated calls over unchanged data return equal results.
type Service struct {
	repos Repositories
}

// NewService creates a new query Service
func NewService(repos Repositories) *Service {
	return &Service{repos: repos}
}

// ListOpportunities returns the sales opportunities matching filter
func (s *Service) ListOpportunities(ctx context.Context, filter port.OpportunityFilter) ([]*entity.SalesOpportunity, error) {
	return s.repos.Opportunities.List(ctx, filter)
}

// ListContracts returns the contracts matching filter
func (s *Service) ListContracts(ctx context.Context, filter port.ContractFilter) ([]*entity.Contract, error) {
	return s.repos.Contracts.List(ctx, filter)
}

// ListProjects returns the projects matching filter
func (s *Service) ListProjects(ctx context.Context, filter port.ProjectFilter) ([]*entity.Project, error) {
	return s.repos.Projects.List(ctx, filter)
}

// ListInvoices returns the invoices matching filter
func (s *Service) ListInvoices(ctx context.Context, filter port.InvoiceFilter) ([]*entity.Invoice, error) {
	return s.repos.Invoices.List(ctx, filter)
}

// ListPurchaseRequests returns the purchase requests matching filter
func (s *Service) ListPurchaseRequests(ctx context.Context, filter port.PurchaseRequestFilter) ([]*entity.PurchaseRequest, error) {
	return s.repos.Purchases.List(ctx, filter)
}

// ListExpenseRequests returns the expense requests matching filter
func (s *Service) ListExpenseRequests(ctx context.Context, filter port.ExpenseRequestFilter) ([]*entity.ExpenseRequest, error) {
	return s.repos.Expenses.List(ctx, filter)
}

// ListApprovals returns the ledger records matching filter
func (s *Service) ListApprovals(ctx context.Context, filter port.ApprovalFilter) ([]*entity.Approval, error) {
	return s.repos.Approvals.List(ctx, filter)
}

// Statistics counts every kind in total and per tracked status by running
// the list filters against live data
func (s *Service) Statistics(ctx context.Context) (*Statistics, error) {
	var (
		stats Statistics
		err   error
	)

	if stats.Opportunities, err = count(ctx, func(ctx context.Context, status *string) (int, error) {
		rows, err := s.repos.Opportunities.List(ctx, port.OpportunityFilter{Status: status})
		return len(rows), err
	}, entity.OpportunityStatusQualified, entity.OpportunityStatusClosedWon); err != nil {
		return nil, fmt.Errorf("failed to count opportunities: %w", err)
	}

	if stats.Contracts, err = count(ctx, func(ctx context.Context, status *string) (int, error) {
		rows, err := s.repos.Contracts.List(ctx, port.ContractFilter{Status: status})
		return len(rows), err
	}, entity.ContractStatusApproved, entity.ContractStatusExecuting); err != nil {
		return nil, fmt.Errorf("failed to count contracts: %w", err)
	}

	if stats.Projects, err = count(ctx, func(ctx context.Context, status *string) (int, error) {
		rows, err := s.repos.Projects.List(ctx, port.ProjectFilter{Status: status})
		return len(rows), err
	}, entity.ProjectStatusExecuting, entity.ProjectStatusCompleted); err != nil {
		return nil, fmt.Errorf("failed to count projects: %w", err)
	}

	if stats.Invoices, err = count(ctx, func(ctx context.Context, status *string) (int, error) {
		rows, err := s.repos.Invoices.List(ctx, port.InvoiceFilter{Status: status})
		return len(rows), err
	}, entity.InvoiceStatusPaid, entity.InvoiceStatusIssued); err != nil {
		return nil, fmt.Errorf("failed to count invoices: %w", err)
	}

	if stats.PurchaseRequests, err = count(ctx, func(ctx context.Context, status *string) (int, error) {
		rows, err := s.repos.Purchases.List(ctx, port.PurchaseRequestFilter{Status: status})
		return len(rows), err
	}, entity.PurchaseStatusApproved, entity.PurchaseStatusCompleted); err != nil {
		return nil, fmt.Errorf("failed to count purchase requests: %w", err)
	}

	if stats.ExpenseRequests, err = count(ctx, func(ctx context.Context, status *string) (int, error) {
		rows, err := s.repos.Expenses.List(ctx, port.ExpenseRequestFilter{Status: status})
		return len(rows), err
	}, entity.ExpenseStatusPaid, entity.ExpenseStatusSubmitted); err != nil {
		return nil, fmt.Errorf("failed to count expense requests: %w", err)
	}

	if stats.Approvals, err = count(ctx, func(ctx context.Context, result *string) (int, error) {
		rows, err := s.repos.Approvals.List(ctx, port.ApprovalFilter{Result: result})
		return len(rows), err
	}, entity.ApprovalResultApproved, entity.ApprovalResultRejected); err != nil {
		return nil, fmt.Errorf("failed to count approvals: %w", err)
	}

	return &stats, nil
}

// count runs list once unfiltered and once per bucket
func count(ctx context.Context, list func(ctx context.Context, status *string) (int, error), buckets ...string) (Counts, error) {
	total, err := list(ctx, nil)
	if err != nil {
		return nil, err
	}

	counts := Counts{"total": total}
	for _, bucket := range buckets {
		status := bucket
		n, err := list(ctx, &status)
		if err != nil {
			return nil, err
		}
		counts[bucket] = n
	}
	return counts, nil
}
