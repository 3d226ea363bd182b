package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutor-center-api/internal/dto"
	"github.com/noah-isme/tutor-center-api/internal/models"
	"github.com/noah-isme/tutor-center-api/internal/service"
	appErrors "github.com/noah-isme/tutor-center-api/pkg/errors"
	"github.com/noah-isme/tutor-center-api/pkg/response"
)

type paymentReconciler interface {
	SettleAll(ctx context.Context, studentID string, actor *models.JWTClaims) (*dto.ProjectionResponse, error)
	Override(ctx context.Context, studentID string, req dto.OverrideSessionsRequest, actor *models.JWTClaims) (*dto.ProjectionResponse, error)
}

type ledgerReader interface {
	GetStatement(ctx context.Context, studentID string) (*dto.StatementResponse, error)
	ListRoster(ctx context.Context, filter models.RosterFilter) (*dto.RosterResponse, *models.Pagination, bool, error)
}

type statementExporter interface {
	ExportRoster(ctx context.Context, filter models.RosterFilter, format service.ExportFormat) (*service.ExportResult, error)
}

// LedgerHandler exposes the payments console surface and the shared
// projection reads.
type LedgerHandler struct {
	reconciler paymentReconciler
	reader     ledgerReader
	exporter   statementExporter
}

// NewLedgerHandler constructs the handler.
func NewLedgerHandler(reconciler paymentReconciler, reader ledgerReader, exporter statementExporter) *LedgerHandler {
	return &LedgerHandler{reconciler: reconciler, reader: reader, exporter: exporter}
}

// Statement godoc
// @Summary Per-student ledger statement with projection and journal
// @Tags Ledger
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/ledger [get]
func (h *LedgerHandler) Statement(c *gin.Context) {
	statement, err := h.reader.GetStatement(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, statement, nil)
}

// Settle godoc
// @Summary Reclassify every unpaid session as paid
// @Tags Ledger
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/ledger/settle [post]
func (h *LedgerHandler) Settle(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	result, err := h.reconciler.SettleAll(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Override godoc
// @Summary Set both session counters to absolute values
// @Tags Ledger
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body dto.OverrideSessionsRequest true "New counters"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/ledger [put]
func (h *LedgerHandler) Override(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.OverrideSessionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid override payload"))
		return
	}

	result, err := h.reconciler.Override(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Roster godoc
// @Summary Projected roster listing with aggregate totals
// @Tags Ledger
// @Produce json
// @Param search query string false "Student name search"
// @Param status query string false "Settlement status (pending/partial/settled)"
// @Param active query bool false "Active students only"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param sortBy query string false "Sort by field"
// @Param sortOrder query string false "Sort order (asc/desc)"
// @Success 200 {object} response.Envelope
// @Router /ledgers [get]
func (h *LedgerHandler) Roster(c *gin.Context) {
	filter, err := rosterFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	roster, pagination, cacheHit, err := h.reader.ListRoster(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	meta := map[string]interface{}{"cache_hit": cacheHit}
	response.JSON(c, http.StatusOK, roster, pagination, meta)
}

// Export godoc
// @Summary Download the roster statement as CSV or PDF
// @Tags Ledger
// @Produce octet-stream
// @Param format query string true "Export format (csv/pdf)"
// @Success 200 {file} binary
// @Router /ledgers/export [get]
func (h *LedgerHandler) Export(c *gin.Context) {
	filter, err := rosterFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	result, err := h.exporter.ExportRoster(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Data)
}

func rosterFilterFromQuery(c *gin.Context) (models.RosterFilter, error) {
	filter := models.RosterFilter{
		Search:    c.Query("search"),
		Active:    parseQueryBool(c, "active"),
		Page:      parseQueryInt(c, "page", 1),
		PageSize:  parseQueryInt(c, "limit", 50),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
	}
	if raw := c.Query("status"); raw != "" {
		status := models.SettlementStatus(raw)
		if !status.Valid() {
			return filter, appErrors.Clone(appErrors.ErrValidation, "status must be pending, partial or settled")
		}
		filter.Status = &status
	}
	return filter, nil
}
