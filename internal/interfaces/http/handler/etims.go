package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appetims "github.com/dukapos/backend/internal/application/etims"
	"github.com/dukapos/backend/internal/domain/etims"
	"github.com/dukapos/backend/internal/interfaces/http/dto"
	"github.com/dukapos/backend/internal/interfaces/http/middleware"
)

// ConfigService manages the integration configuration lifecycle
type ConfigService interface {
	Setup(ctx context.Context, input appetims.SetupConfigInput) (*etims.IntegrationConfig, error)
	GetConfig(ctx context.Context) (*etims.IntegrationConfig, error)
	UpdateSettings(ctx context.Context, input appetims.UpdateSettingsInput) (*etims.IntegrationConfig, error)
	Initialize(ctx context.Context) (*etims.IntegrationConfig, error)
}

// InvoiceBuilderService derives invoices from completed sales
type InvoiceBuilderService interface {
	CreateFromSale(ctx context.Context, input appetims.CreateInvoiceInput) (*etims.Invoice, error)
	GetInvoice(ctx context.Context, id uuid.UUID) (*etims.Invoice, error)
	GetInvoiceBySale(ctx context.Context, saleID uuid.UUID) (*etims.Invoice, error)
	ListInvoices(ctx context.Context, filter etims.InvoiceFilter) ([]etims.Invoice, int64, error)
}

// SubmissionService drives the submission state machine
type SubmissionService interface {
	Submit(ctx context.Context, invoiceID uuid.UUID) (*etims.Invoice, error)
	RetrySweep(ctx context.Context, limit int) (appetims.SweepReport, error)
}

// AuditService exposes the append-only submission audit trail
type AuditService interface {
	ListEntries(ctx context.Context, filter etims.SyncLogFilter) ([]etims.SyncLogEntry, int64, error)
}

// EtimsHandler handles tax invoice API endpoints
type EtimsHandler struct {
	BaseHandler
	configService  ConfigService
	builderService InvoiceBuilderService
	submission     SubmissionService
	audit          AuditService
	sweepBatchSize int
}

// NewEtimsHandler creates a new EtimsHandler
func NewEtimsHandler(
	configService ConfigService,
	builderService InvoiceBuilderService,
	submission SubmissionService,
	audit AuditService,
	sweepBatchSize int,
) *EtimsHandler {
	if sweepBatchSize <= 0 {
		sweepBatchSize = 50
	}
	return &EtimsHandler{
		configService:  configService,
		builderService: builderService,
		submission:     submission,
		audit:          audit,
		sweepBatchSize: sweepBatchSize,
	}
}

// RegisterRoutes registers all eTIMS routes
func (h *EtimsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/etims")
	{
		group.POST("/config", h.SetupConfig)
		group.GET("/config", h.GetConfig)
		group.PUT("/config/settings", h.UpdateSettings)
		group.POST("/initialize", h.Initialize)

		group.POST("/invoices", h.CreateInvoice)
		group.GET("/invoices", h.ListInvoices)
		group.GET("/invoices/:id", h.GetInvoice)
		group.POST("/invoices/:id/submit", h.SubmitInvoice)
		group.GET("/sales/:sale_id/invoice", h.GetInvoiceBySale)

		group.POST("/retry-sweep", h.RetrySweep)
		group.GET("/sync-logs", h.ListSyncLogs)
	}
}

// SetupConfig creates the business tax identity
func (h *EtimsHandler) SetupConfig(c *gin.Context) {
	var input appetims.SetupConfigInput
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	config, err := h.configService.Setup(c.Request.Context(), input)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, ToConfigResponse(config))
}

// GetConfig returns the current configuration
func (h *EtimsHandler) GetConfig(c *gin.Context) {
	config, err := h.configService.GetConfig(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ToConfigResponse(config))
}

// UpdateSettings updates behavior flags on the configuration
func (h *EtimsHandler) UpdateSettings(c *gin.Context) {
	var input appetims.UpdateSettingsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	config, err := h.configService.UpdateSettings(c.Request.Context(), input)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ToConfigResponse(config))
}

// Initialize registers the device with the tax authority and activates
// the integration
func (h *EtimsHandler) Initialize(c *gin.Context) {
	config, err := h.configService.Initialize(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ToConfigResponse(config))
}

// CreateInvoice derives a tax invoice from a completed sale
func (h *EtimsHandler) CreateInvoice(c *gin.Context) {
	var input appetims.CreateInvoiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	invoice, err := h.builderService.CreateFromSale(c.Request.Context(), input)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, ToInvoiceResponse(invoice))
}

// listInvoicesRequest captures invoice list query parameters
type listInvoicesRequest struct {
	dto.ListRequest
	Status   string `form:"status"`
	SaleID   string `form:"sale_id" binding:"omitempty,uuid"`
	FromDate string `form:"from_date"`
	ToDate   string `form:"to_date"`
}

// ListInvoices returns invoices matching the query
func (h *EtimsHandler) ListInvoices(c *gin.Context) {
	req := listInvoicesRequest{ListRequest: dto.DefaultListRequest()}
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	filter := etims.InvoiceFilter{
		Search:   req.Search,
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if req.Status != "" {
		status := etims.SubmissionStatus(req.Status)
		if !status.IsValid() {
			h.BadRequest(c, "Unknown submission status: "+req.Status)
			return
		}
		filter.Status = &status
	}
	if req.SaleID != "" {
		saleID, err := uuid.Parse(req.SaleID)
		if err != nil {
			h.BadRequest(c, "Invalid sale_id")
			return
		}
		filter.SaleID = &saleID
	}
	if req.FromDate != "" {
		from, err := time.Parse("2006-01-02", req.FromDate)
		if err != nil {
			h.BadRequest(c, "from_date must be YYYY-MM-DD")
			return
		}
		filter.FromDate = &from
	}
	if req.ToDate != "" {
		to, err := time.Parse("2006-01-02", req.ToDate)
		if err != nil {
			h.BadRequest(c, "to_date must be YYYY-MM-DD")
			return
		}
		// inclusive upper bound
		to = to.Add(24*time.Hour - time.Nanosecond)
		filter.ToDate = &to
	}

	invoices, total, err := h.builderService.ListInvoices(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, ToInvoiceListResponse(invoices), total, filter.Page, filter.PageSize)
}

// GetInvoice returns one invoice with its items
func (h *EtimsHandler) GetInvoice(c *gin.Context) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}
	id := uuid.MustParse(req.ID)

	invoice, err := h.builderService.GetInvoice(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ToInvoiceResponse(invoice))
}

// GetInvoiceBySale returns the invoice derived from a sale
func (h *EtimsHandler) GetInvoiceBySale(c *gin.Context) {
	saleID, err := uuid.Parse(c.Param("sale_id"))
	if err != nil {
		h.BadRequest(c, "Invalid sale ID")
		return
	}

	invoice, err := h.builderService.GetInvoiceBySale(c.Request.Context(), saleID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ToInvoiceResponse(invoice))
}

// SubmitInvoice triggers one submission attempt for the invoice
func (h *EtimsHandler) SubmitInvoice(c *gin.Context) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}
	id := uuid.MustParse(req.ID)

	invoice, err := h.submission.Submit(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ToInvoiceResponse(invoice))
}

// RetrySweep runs one resubmission sweep immediately
func (h *EtimsHandler) RetrySweep(c *gin.Context) {
	report, err := h.submission.RetrySweep(c.Request.Context(), h.sweepBatchSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// listSyncLogsRequest captures audit log query parameters
type listSyncLogsRequest struct {
	dto.ListRequest
	Operation string `form:"operation"`
	InvoiceID string `form:"invoice_id" binding:"omitempty,uuid"`
	Outcome   string `form:"outcome"`
}

// ListSyncLogs returns audit entries, newest first
func (h *EtimsHandler) ListSyncLogs(c *gin.Context) {
	req := listSyncLogsRequest{ListRequest: dto.DefaultListRequest()}
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	filter := etims.SyncLogFilter{
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if req.Operation != "" {
		op := etims.SyncOperation(req.Operation)
		if !op.IsValid() {
			h.BadRequest(c, "Unknown operation: "+req.Operation)
			return
		}
		filter.Operation = &op
	}
	if req.InvoiceID != "" {
		invoiceID, err := uuid.Parse(req.InvoiceID)
		if err != nil {
			h.BadRequest(c, "Invalid invoice_id")
			return
		}
		filter.InvoiceID = &invoiceID
	}
	if req.Outcome != "" {
		outcome := etims.SyncOutcome(req.Outcome)
		filter.Outcome = &outcome
	}

	entries, total, err := h.audit.ListEntries(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, ToSyncLogResponses(entries), total, filter.Page, filter.PageSize)
}
