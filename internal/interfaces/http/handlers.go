package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/expense-wizard/internal/application/port"
	"github.com/garyjia/expense-wizard/internal/application/service"
	"github.com/garyjia/expense-wizard/internal/domain/entity"
	"github.com/garyjia/expense-wizard/internal/domain/wizard"
	"github.com/garyjia/expense-wizard/internal/infrastructure/document"
	"github.com/garyjia/expense-wizard/pkg/utils"
)

// Version is reported by the health check
var Version = "1.0.0"

// WizardService is the application surface the handlers drive
type WizardService interface {
	Create(ctx context.Context) (*service.View, error)
	Get(ctx context.Context, id string) (*service.View, error)
	Abandon(ctx context.Context, id string) error

	UpdateHeader(ctx context.Context, id string, patch wizard.HeaderPatch) (*service.View, error)
	SubmitHeader(ctx context.Context, id string) (*service.View, error)

	BeginNewLine(ctx context.Context, id string) (*service.View, error)
	EditLine(ctx context.Context, id string, index int) (*service.View, error)
	UpdateLine(ctx context.Context, id string, patch wizard.LinePatch) (*service.View, error)
	CancelEdit(ctx context.Context, id string) (*service.View, error)
	SaveLine(ctx context.Context, id string) (*service.View, error)
	DeleteLine(ctx context.Context, id string, index int) (*service.View, error)

	ScanReceipt(ctx context.Context, id string, doc port.Document) (*service.View, error)
	UploadPolicy(ctx context.Context, id string, doc port.Document) (*service.View, error)
	ResetPolicy(ctx context.Context, id string) (*service.View, error)
	CheckCompliance(ctx context.Context, id string) (*service.View, error)

	Finalize(ctx context.Context, id string) (*wizard.Acknowledgment, error)
	Export(ctx context.Context, id string) ([]byte, string, error)
}

// Handlers contains all HTTP request handlers
type Handlers struct {
	wizard     WizardService
	normalizer *document.Normalizer
	company    string
	logger     Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(svc WizardService, normalizer *document.Normalizer, company string, logger Logger) *Handlers {
	if company == "" {
		company = entity.DefaultCompany
	}
	return &Handlers{
		wizard:     svc,
		normalizer: normalizer,
		company:    company,
		logger:     logger,
	}
}

// Response is the JSON envelope of every API reply
type Response struct {
	Success bool            `json:"success"`
	Data    interface{}     `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Missing []string        `json:"missing,omitempty"`
	Notice  *service.Notice `json:"notice,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// CatalogResponse lists the fixed choices the client renders
type CatalogResponse struct {
	Company            string   `json:"company"`
	Categories         []string `json:"categories"`
	ReimbursementTypes []string `json:"reimbursementTypes"`
	MileageRate        float64  `json:"mileageRate"`
	ReceiptThreshold   float64  `json:"receiptThreshold"`
	DefaultPolicy      string   `json:"defaultPolicy"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   Version,
		},
	})
}

// Catalog handles GET /api/catalog
func (h *Handlers) Catalog(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: CatalogResponse{
			Company:            h.company,
			Categories:         entity.Categories(),
			ReimbursementTypes: entity.ReimbursementTypes(),
			MileageRate:        entity.MileageRate,
			ReceiptThreshold:   entity.ReceiptThreshold,
			DefaultPolicy:      entity.DefaultPolicyName,
		},
	})
}

// CreateReport handles POST /api/reports
func (h *Handlers) CreateReport(c *gin.Context) {
	v, err := h.wizard.Create(c.Request.Context())
	h.respondView(c, http.StatusCreated, v, err)
}

// GetReport handles GET /api/reports/:id
func (h *Handlers) GetReport(c *gin.Context) {
	v, err := h.wizard.Get(c.Request.Context(), c.Param("id"))
	h.respondView(c, http.StatusOK, v, err)
}

// AbandonReport handles DELETE /api/reports/:id
func (h *Handlers) AbandonReport(c *gin.Context) {
	if err := h.wizard.Abandon(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true})
}

// UpdateHeader handles PATCH /api/reports/:id/header
func (h *Handlers) UpdateHeader(c *gin.Context) {
	var patch wizard.HeaderPatch
	if !h.bindPatch(c, &patch) {
		return
	}
	v, err := h.wizard.UpdateHeader(c.Request.Context(), c.Param("id"), patch)
	h.respondView(c, http.StatusOK, v, err)
}

// SubmitHeader handles POST /api/reports/:id/header/submit
func (h *Handlers) SubmitHeader(c *gin.Context) {
	v, err := h.wizard.SubmitHeader(c.Request.Context(), c.Param("id"))
	h.respondView(c, http.StatusOK, v, err)
}

// BeginNewLine handles POST /api/reports/:id/lines
func (h *Handlers) BeginNewLine(c *gin.Context) {
	v, err := h.wizard.BeginNewLine(c.Request.Context(), c.Param("id"))
	h.respondView(c, http.StatusOK, v, err)
}

// EditLine handles POST /api/reports/:id/lines/:index/edit
func (h *Handlers) EditLine(c *gin.Context) {
	index, ok := h.lineIndex(c)
	if !ok {
		return
	}
	v, err := h.wizard.EditLine(c.Request.Context(), c.Param("id"), index)
	h.respondView(c, http.StatusOK, v, err)
}

// DeleteLine handles DELETE /api/reports/:id/lines/:index
func (h *Handlers) DeleteLine(c *gin.Context) {
	index, ok := h.lineIndex(c)
	if !ok {
		return
	}
	v, err := h.wizard.DeleteLine(c.Request.Context(), c.Param("id"), index)
	h.respondView(c, http.StatusOK, v, err)
}

// UpdateLine handles PATCH /api/reports/:id/editor
func (h *Handlers) UpdateLine(c *gin.Context) {
	var patch wizard.LinePatch
	if !h.bindPatch(c, &patch) {
		return
	}
	v, err := h.wizard.UpdateLine(c.Request.Context(), c.Param("id"), patch)
	h.respondView(c, http.StatusOK, v, err)
}

// SaveLine handles POST /api/reports/:id/editor/save
func (h *Handlers) SaveLine(c *gin.Context) {
	v, err := h.wizard.SaveLine(c.Request.Context(), c.Param("id"))
	h.respondView(c, http.StatusOK, v, err)
}

// CancelEdit handles DELETE /api/reports/:id/editor
func (h *Handlers) CancelEdit(c *gin.Context) {
	v, err := h.wizard.CancelEdit(c.Request.Context(), c.Param("id"))
	h.respondView(c, http.StatusOK, v, err)
}

// CheckCompliance handles POST /api/reports/:id/editor/compliance
func (h *Handlers) CheckCompliance(c *gin.Context) {
	v, err := h.wizard.CheckCompliance(c.Request.Context(), c.Param("id"))
	h.respondView(c, http.StatusOK, v, err)
}

// ScanReceipt handles POST /api/reports/:id/receipts
func (h *Handlers) ScanReceipt(c *gin.Context) {
	doc, ok := h.readUpload(c, "receipt")
	if !ok {
		return
	}
	v, err := h.wizard.ScanReceipt(c.Request.Context(), c.Param("id"), doc)
	h.respondView(c, http.StatusOK, v, err)
}

// UploadPolicy handles PUT /api/reports/:id/policy
func (h *Handlers) UploadPolicy(c *gin.Context) {
	doc, ok := h.readUpload(c, "policy")
	if !ok {
		return
	}
	v, err := h.wizard.UploadPolicy(c.Request.Context(), c.Param("id"), doc)
	h.respondView(c, http.StatusOK, v, err)
}

// ResetPolicy handles DELETE /api/reports/:id/policy
func (h *Handlers) ResetPolicy(c *gin.Context) {
	v, err := h.wizard.ResetPolicy(c.Request.Context(), c.Param("id"))
	h.respondView(c, http.StatusOK, v, err)
}

// Finalize handles POST /api/reports/:id/finalize
func (h *Handlers) Finalize(c *gin.Context) {
	ack, err := h.wizard.Finalize(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    ack,
		Notice:  &service.Notice{Level: service.NoticeSuccess, Message: ack.Message},
	})
}

// Export handles GET /api/reports/:id/export.xlsx
func (h *Handlers) Export(c *gin.Context) {
	id := c.Param("id")
	data, contentType, err := h.wizard.Export(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="expense-report-%s.xlsx"`, utils.SanitizeFilename(id, "draft")))
	c.Data(http.StatusOK, contentType, data)
}

func (h *Handlers) lineIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, Response{Success: false, Error: "line index must be an integer"})
		return 0, false
	}
	return index, true
}

// bindPatch decodes a JSON patch; an empty body is an empty patch
func (h *Handlers) bindPatch(c *gin.Context, patch interface{}) bool {
	if err := c.ShouldBindJSON(patch); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid JSON body"})
		return false
	}
	return true
}

// readUpload reads the multipart "file" field into a normalised document
func (h *Handlers) readUpload(c *gin.Context, kind string) (port.Document, bool) {
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.respondError(c, document.ErrTooLarge)
			return port.Document{}, false
		}
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "multipart field \"file\" is required"})
		return port.Document{}, false
	}

	if limit := h.normalizer.MaxBytes(); limit > 0 && header.Size > limit {
		h.respondError(c, fmt.Errorf("%w: %d bytes exceeds %d", document.ErrTooLarge, header.Size, limit))
		return port.Document{}, false
	}

	f, err := header.Open()
	if err != nil {
		h.respondError(c, fmt.Errorf("open upload: %w", err))
		return port.Document{}, false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		h.respondError(c, fmt.Errorf("read upload: %w", err))
		return port.Document{}, false
	}

	name := utils.SanitizeFilename(header.Filename, kind)
	doc, err := h.normalizer.Normalize(name, header.Header.Get("Content-Type"), data)
	if err != nil {
		h.logger.Warnw("Rejected upload", "kind", kind, "file", name, "error", err)
		h.respondError(c, err)
		return port.Document{}, false
	}
	return doc, true
}

func (h *Handlers) respondView(c *gin.Context, status int, v *service.View, err error) {
	if err != nil {
		h.respondError(c, err)
		return
	}

	notice := v.Notice
	data := *v
	data.Notice = nil
	c.JSON(status, Response{Success: true, Data: data, Notice: notice})
}

func (h *Handlers) respondError(c *gin.Context, err error) {
	status := StatusFor(err)
	resp := Response{Success: false, Error: err.Error()}

	var incomplete *wizard.HeaderIncompleteError
	if errors.As(err, &incomplete) {
		resp.Missing = incomplete.Missing
	}
	if status >= http.StatusInternalServerError {
		h.logger.Errorw("Request failed", "path", c.Request.URL.Path, "error", err)
		resp.Error = "internal server error"
	}
	c.JSON(status, resp)
}

// StatusFor maps service and domain errors to HTTP status codes
func StatusFor(err error) int {
	switch {
	case errors.Is(err, port.ErrDraftNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrOperationInProgress),
		errors.Is(err, wizard.ErrWrongStep),
		errors.Is(err, wizard.ErrNotEditing),
		errors.Is(err, wizard.ErrStaleEditor):
		return http.StatusConflict
	case errors.Is(err, wizard.ErrHeaderIncomplete),
		errors.Is(err, wizard.ErrReceiptRequired),
		errors.Is(err, wizard.ErrNoLineItems),
		errors.Is(err, wizard.ErrInvalidField),
		errors.Is(err, wizard.ErrLineIndex),
		errors.Is(err, wizard.ErrLineIncomplete),
		errors.Is(err, document.ErrEmpty):
		return http.StatusUnprocessableEntity
	case errors.Is(err, document.ErrUnsupportedDocument):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, document.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}
