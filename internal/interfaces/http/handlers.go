package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/moogar0880/problems"
	"github.com/shopspring/decimal"

	"github.com/garyjia/bizflow/internal/application/pipeline"
	"github.com/garyjia/bizflow/internal/application/port"
	"github.com/garyjia/bizflow/internal/application/query"
	"github.com/garyjia/bizflow/internal/application/service"
	"github.com/garyjia/bizflow/internal/domain/entity"
)

// Pipelines runs the end-to-end business pipelines
type Pipelines interface {
	SalesToReceipt(ctx context.Context, input pipeline.SalesToReceiptInput) (*pipeline.Trace, error)
	ProcureToPay(ctx context.Context, input pipeline.ProcureToPayInput) (*pipeline.Trace, error)
	ExpenseReimbursement(ctx context.Context, input pipeline.ExpenseInput) (*pipeline.Trace, error)
}

// Queries answers the read-only endpoints
type Queries interface {
	ListOpportunities(ctx context.Context, filter port.OpportunityFilter) ([]*entity.SalesOpportunity, error)
	ListContracts(ctx context.Context, filter port.ContractFilter) ([]*entity.Contract, error)
	ListProjects(ctx context.Context, filter port.ProjectFilter) ([]*entity.Project, error)
	ListInvoices(ctx context.Context, filter port.InvoiceFilter) ([]*entity.Invoice, error)
	ListPurchaseRequests(ctx context.Context, filter port.PurchaseRequestFilter) ([]*entity.PurchaseRequest, error)
	ListExpenseRequests(ctx context.Context, filter port.ExpenseRequestFilter) ([]*entity.ExpenseRequest, error)
	ListApprovals(ctx context.Context, filter port.ApprovalFilter) ([]*entity.Approval, error)
	Statistics(ctx context.Context) (*query.Statistics, error)
}

// HealthFunc reports whether the application is healthy plus any details
type HealthFunc func(ctx context.Context) (bool, interface{})

// Handlers contains all HTTP request handlers
type Handlers struct {
	pipelines Pipelines
	queries   Queries
	contracts service.ContractService
	invoices  service.InvoiceService
	health    HealthFunc
	logger    Logger
}

// NewHandlers creates a new Handlers instance. A nil health func always
// reports healthy.
func NewHandlers(
	pipelines Pipelines,
	queries Queries,
	contracts service.ContractService,
	invoices service.InvoiceService,
	health HealthFunc,
	logger Logger,
) *Handlers {
	if health == nil {
		health = func(context.Context) (bool, interface{}) { return true, nil }
	}
	return &Handlers{
		pipelines: pipelines,
		queries:   queries,
		contracts: contracts,
		invoices:  invoices,
		health:    health,
		logger:    logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string      `json:"status"`
	Timestamp  string      `json:"timestamp"`
	Components interface{} `json:"components,omitempty"`
}

// DecisionRequest is the body of the approval endpoints
type DecisionRequest struct {
	ApproverID int64  `json:"approver_id" binding:"required,gt=0"`
	Approved   *bool  `json:"approved" binding:"required"`
	Comments   string `json:"comments"`
}

func (r DecisionRequest) decision() service.Decision {
	return service.Decision{ApproverID: r.ApproverID, Approved: *r.Approved, Comments: r.Comments}
}

// PaymentRequest is the body of POST /api/invoices/:id/payments
type PaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	healthy, details := h.health(c.Request.Context())

	response := HealthResponse{
		Status:     "healthy",
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Components: details,
	}
	status := http.StatusOK
	if !healthy {
		response.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, response)
}

// RunSalesToReceipt handles POST /api/pipelines/sales
func (h *Handlers) RunSalesToReceipt(c *gin.Context) {
	var input pipeline.SalesToReceiptInput
	if !h.bind(c, &input) {
		return
	}
	trace, err := h.pipelines.SalesToReceipt(c.Request.Context(), input)
	h.respondTrace(c, trace, err)
}

// RunProcureToPay handles POST /api/pipelines/procure
func (h *Handlers) RunProcureToPay(c *gin.Context) {
	var input pipeline.ProcureToPayInput
	if !h.bind(c, &input) {
		return
	}
	trace, err := h.pipelines.ProcureToPay(c.Request.Context(), input)
	h.respondTrace(c, trace, err)
}

// RunExpenseReimbursement handles POST /api/pipelines/expense
func (h *Handlers) RunExpenseReimbursement(c *gin.Context) {
	var input pipeline.ExpenseInput
	if !h.bind(c, &input) {
		return
	}
	trace, err := h.pipelines.ExpenseReimbursement(c.Request.Context(), input)
	h.respondTrace(c, trace, err)
}

// respondTrace writes the run trace. A run that failed after starting
// returns its trace with the status of the failure; a run rejected before
// any step returns a problem.
func (h *Handlers) respondTrace(c *gin.Context, trace *pipeline.Trace, err error) {
	if err == nil {
		c.JSON(http.StatusCreated, trace)
		return
	}

	h.logger.Error("Pipeline failed", "path", c.FullPath(), "error", err)
	if trace == nil || len(trace.Steps) == 0 {
		h.problem(c, err)
		return
	}
	c.JSON(statusFor(err), trace)
}

// GetContract handles GET /api/contracts/:id
func (h *Handlers) GetContract(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	contract, err := h.contracts.Get(c.Request.Context(), id)
	h.respond(c, http.StatusOK, contract, err)
}

// DecideContract handles POST /api/contracts/:id/decision
func (h *Handlers) DecideContract(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req DecisionRequest
	if !h.bind(c, &req) {
		return
	}
	contract, err := h.contracts.Decide(c.Request.Context(), id, req.decision())
	h.respond(c, http.StatusOK, contract, err)
}

// ResubmitContract handles POST /api/contracts/:id/resubmit
func (h *Handlers) ResubmitContract(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	contract, err := h.contracts.Resubmit(c.Request.Context(), id)
	h.respond(c, http.StatusOK, contract, err)
}

// GetInvoice handles GET /api/invoices/:id
func (h *Handlers) GetInvoice(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	invoice, err := h.invoices.Get(c.Request.Context(), id)
	h.respond(c, http.StatusOK, invoice, err)
}

// RecordPayment handles POST /api/invoices/:id/payments
func (h *Handlers) RecordPayment(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req PaymentRequest
	if !h.bind(c, &req) {
		return
	}
	invoice, err := h.invoices.Reconcile(c.Request.Context(), id, req.Amount)
	h.respond(c, http.StatusOK, invoice, err)
}

// ApprovePayment handles POST /api/invoices/:id/payment-approval
func (h *Handlers) ApprovePayment(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req DecisionRequest
	if !h.bind(c, &req) {
		return
	}
	approval, err := h.invoices.ApprovePayment(c.Request.Context(), id, req.decision())
	h.respond(c, http.StatusCreated, approval, err)
}

// SweepOverdue handles POST /api/maintenance/overdue-sweep
func (h *Handlers) SweepOverdue(c *gin.Context) {
	marked, err := h.invoices.MarkOverdue(c.Request.Context())
	h.respond(c, http.StatusOK, gin.H{"marked": marked}, err)
}

// ListOpportunities handles GET /api/opportunities
func (h *Handlers) ListOpportunities(c *gin.Context) {
	customerID, ok := h.queryInt64(c, "customer_id")
	if !ok {
		return
	}
	rows, err := h.queries.ListOpportunities(c.Request.Context(), port.OpportunityFilter{
		CustomerID: customerID,
		Status:     queryString(c, "status"),
	})
	respondList(h, c, rows, err)
}

// ListContracts handles GET /api/contracts
func (h *Handlers) ListContracts(c *gin.Context) {
	customerID, ok := h.queryInt64(c, "customer_id")
	if !ok {
		return
	}
	rows, err := h.queries.ListContracts(c.Request.Context(), port.ContractFilter{
		CustomerID: customerID,
		Status:     queryString(c, "status"),
	})
	respondList(h, c, rows, err)
}

// ListProjects handles GET /api/projects
func (h *Handlers) ListProjects(c *gin.Context) {
	contractID, ok := h.queryInt64(c, "contract_id")
	if !ok {
		return
	}
	rows, err := h.queries.ListProjects(c.Request.Context(), port.ProjectFilter{
		ContractID: contractID,
		Status:     queryString(c, "status"),
	})
	respondList(h, c, rows, err)
}

// ListInvoices handles GET /api/invoices
func (h *Handlers) ListInvoices(c *gin.Context) {
	projectID, ok := h.queryInt64(c, "project_id")
	if !ok {
		return
	}
	rows, err := h.queries.ListInvoices(c.Request.Context(), port.InvoiceFilter{
		ProjectID: projectID,
		Status:    queryString(c, "status"),
	})
	respondList(h, c, rows, err)
}

// ListPurchaseRequests handles GET /api/purchase-requests
func (h *Handlers) ListPurchaseRequests(c *gin.Context) {
	departmentID, ok := h.queryInt64(c, "department_id")
	if !ok {
		return
	}
	rows, err := h.queries.ListPurchaseRequests(c.Request.Context(), port.PurchaseRequestFilter{
		DepartmentID: departmentID,
		Status:       queryString(c, "status"),
	})
	respondList(h, c, rows, err)
}

// ListExpenseRequests handles GET /api/expense-requests
func (h *Handlers) ListExpenseRequests(c *gin.Context) {
	employeeID, ok := h.queryInt64(c, "employee_id")
	if !ok {
		return
	}
	rows, err := h.queries.ListExpenseRequests(c.Request.Context(), port.ExpenseRequestFilter{
		EmployeeID: employeeID,
		Status:     queryString(c, "status"),
	})
	respondList(h, c, rows, err)
}

// ListApprovals handles GET /api/approvals
func (h *Handlers) ListApprovals(c *gin.Context) {
	businessID, ok := h.queryInt64(c, "business_id")
	if !ok {
		return
	}
	rows, err := h.queries.ListApprovals(c.Request.Context(), port.ApprovalFilter{
		BusinessType: queryString(c, "business_type"),
		BusinessID:   businessID,
		Result:       queryString(c, "result"),
	})
	respondList(h, c, rows, err)
}

// GetStatistics handles GET /api/statistics
func (h *Handlers) GetStatistics(c *gin.Context) {
	stats, err := h.queries.Statistics(c.Request.Context())
	h.respond(c, http.StatusOK, stats, err)
}

func (h *Handlers) respond(c *gin.Context, status int, data interface{}, err error) {
	if err != nil {
		h.problem(c, err)
		return
	}
	c.JSON(status, Response{Success: true, Data: data})
}

// respondList renders an empty result as [] rather than null
func respondList[T any](h *Handlers, c *gin.Context, rows []T, err error) {
	if err != nil {
		h.problem(c, err)
		return
	}
	if rows == nil {
		rows = []T{}
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: rows})
}

func (h *Handlers) bind(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		h.logger.Error("Invalid request body", "path", c.FullPath(), "error", err)
		badRequest(c, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func (h *Handlers) pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}

func (h *Handlers) queryInt64(c *gin.Context, name string) (*int64, bool) {
	raw, present := c.GetQuery(name)
	if !present || raw == "" {
		return nil, true
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		badRequest(c, "invalid "+name)
		return nil, false
	}
	return &v, true
}

func queryString(c *gin.Context, name string) *string {
	raw, present := c.GetQuery(name)
	if !present || raw == "" {
		return nil
	}
	return &raw
}

func (h *Handlers) problem(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", "path", c.FullPath(), "error", err)
	}

	problem := problems.NewStatusProblem(status).
		WithInstance(c.Request.URL.Path).
		WithType(problemType(err)).
		WithDetail(err.Error())

	c.JSON(status, problem)
}

func badRequest(c *gin.Context, detail string) {
	problem := problems.NewStatusProblem(http.StatusBadRequest).
		WithInstance(c.Request.URL.Path).
		WithType("validation_error").
		WithDetail(detail)

	c.JSON(http.StatusBadRequest, problem)
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, entity.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, entity.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, entity.ErrOverpayment):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func problemType(err error) string {
	switch statusFor(err) {
	case http.StatusBadRequest:
		return "validation_error"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "invalid_transition"
	case http.StatusUnprocessableEntity:
		return "overpayment"
	case http.StatusGatewayTimeout:
		return "timeout"
	default:
		return "internal_error"
	}
}
