package v1

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/numera/numera/internal/api/dto"
	ierr "github.com/numera/numera/internal/errors"
	"github.com/numera/numera/internal/logger"
	"github.com/numera/numera/internal/service"
	"github.com/numera/numera/internal/types"
)

type DocumentHandler struct {
	service service.DocumentService
	log     *logger.Logger
}

func NewDocumentHandler(service service.DocumentService, log *logger.Logger) *DocumentHandler {
	return &DocumentHandler{service: service, log: log}
}

// @Summary Create a document
// @Description Atomically allocates the next number in the scope and persists the header with all its lines
// @Tags Documents
// @Accept json
// @Produce json
// @Param document body dto.CreateDocumentRequest true "Document payload"
// @Success 201 {object} dto.DocumentResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Failure 503 {object} ierr.ErrorResponse
// @Router /documents [post]
func (h *DocumentHandler) CreateDocument(c *gin.Context) {
	ctx := c.Request.Context()
	var req dto.CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Error("Failed to bind JSON", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.CreateDocument(ctx, req)
	if err != nil {
		h.log.Error("Failed to create document", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// @Summary Get a document by ID
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} dto.DocumentResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /documents/{id} [get]
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()
	resp, err := h.service.GetDocument(ctx, id)
	if err != nil {
		h.log.Error("Failed to get document", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Get a document by scope and number
// @Tags Documents
// @Produce json
// @Param branch_id query int true "Branch ID"
// @Param document_type query string true "Document type"
// @Param series_code query string false "Series code"
// @Param number query int true "Sequence number"
// @Success 200 {object} dto.DocumentResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /documents/by-number [get]
func (h *DocumentHandler) GetDocumentByNumber(c *gin.Context) {
	ctx := c.Request.Context()

	scope, err := scopeFromQuery(c)
	if err != nil {
		c.Error(err)
		return
	}

	number, err := strconv.ParseInt(c.Query("number"), 10, 64)
	if err != nil {
		c.Error(ierr.WithError(err).
			WithHint("number must be an integer").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.GetDocumentByNumber(ctx, scope, number)
	if err != nil {
		h.log.Error("Failed to get document by number", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary List documents
// @Tags Documents
// @Produce json
// @Param branch_id query int false "Branch ID"
// @Param document_type query string false "Document type"
// @Param series_code query string false "Series code"
// @Param doc_status query string false "Document status"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} dto.ListDocumentsResponse
// @Router /documents [get]
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	ctx := c.Request.Context()

	filter := types.NewDocumentFilter()
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			c.Error(ierr.WithError(err).
				WithHint("limit must be an integer").
				Mark(ierr.ErrValidation))
			return
		}
		filter.Limit = limit
	}
	if v := c.Query("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil {
			c.Error(ierr.WithError(err).
				WithHint("offset must be an integer").
				Mark(ierr.ErrValidation))
			return
		}
		filter.Offset = offset
	}
	if v := c.Query("doc_status"); v != "" {
		filter.DocStatus = types.DocumentStatus(v)
	}
	if c.Query("branch_id") != "" || c.Query("document_type") != "" {
		scope, err := scopeFromQuery(c)
		if err != nil {
			c.Error(err)
			return
		}
		filter.Scope = &scope
	}

	resp, err := h.service.ListDocuments(ctx, filter)
	if err != nil {
		h.log.Error("Failed to list documents", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Get a scope's counter
// @Description Read-only view of the last issued number for a scope
// @Tags Counters
// @Produce json
// @Param branch_id query int true "Branch ID"
// @Param document_type query string true "Document type"
// @Param series_code query string false "Series code"
// @Success 200 {object} dto.CounterResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /counters [get]
func (h *DocumentHandler) GetCounter(c *gin.Context) {
	ctx := c.Request.Context()

	scope, err := scopeFromQuery(c)
	if err != nil {
		c.Error(err)
		return
	}

	resp, err := h.service.GetCounter(ctx, scope)
	if err != nil {
		h.log.Error("Failed to get counter", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func scopeFromQuery(c *gin.Context) (types.ScopeKey, error) {
	branchID, err := strconv.Atoi(c.Query("branch_id"))
	if err != nil {
		return types.ScopeKey{}, ierr.WithError(err).
			WithHint("branch_id must be an integer").
			Mark(ierr.ErrValidation)
	}

	scope := types.ScopeKey{
		BranchID:     branchID,
		DocumentType: types.DocumentType(c.Query("document_type")),
		SeriesCode:   c.Query("series_code"),
	}
	if err := scope.Validate(); err != nil {
		return types.ScopeKey{}, err
	}
	return scope, nil
}
