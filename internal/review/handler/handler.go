package handler

import (
	"net/http"
	"strconv"

	"pawtrait_backend/internal/review/service"
	"pawtrait_backend/internal/review/transport"
	"pawtrait_backend/platform/httpkit"
	"pawtrait_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidReviewID  = "invalid review id"
)

// Handler handles admin HTTP requests for reviews.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new review handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the admin review routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/approve", h.Approve)
	rg.POST("/:id/reject", h.Reject)
	rg.POST("/:id/regenerate", h.Regenerate)
	rg.POST("/:id/manual-upload", h.ManualUpload)
}

// List handles GET /api/v1/admin/reviews
func (h *Handler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	result, err := h.svc.List(c.Request.Context(), c.Query("status"), c.Query("type"), limit)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"reviews": result})
}

// Get handles GET /api/v1/admin/reviews/:id
func (h *Handler) Get(c *gin.Context) {
	id, ok := parseReviewID(c)
	if !ok {
		return
	}

	result, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Approve handles POST /api/v1/admin/reviews/:id/approve
func (h *Handler) Approve(c *gin.Context) {
	id, ok := parseReviewID(c)
	if !ok {
		return
	}

	var req transport.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Approve(c.Request.Context(), id, httpkit.AdminEmail(c), req.Notes)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Reject handles POST /api/v1/admin/reviews/:id/reject
func (h *Handler) Reject(c *gin.Context) {
	id, ok := parseReviewID(c)
	if !ok {
		return
	}

	var req transport.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Reject(c.Request.Context(), id, httpkit.AdminEmail(c), req.Notes)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Regenerate handles POST /api/v1/admin/reviews/:id/regenerate
func (h *Handler) Regenerate(c *gin.Context) {
	id, ok := parseReviewID(c)
	if !ok {
		return
	}

	var req transport.RegenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Regenerate(c.Request.Context(), id, req.PromptTweak, req.RegenerateBase)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ManualUpload handles POST /api/v1/admin/reviews/:id/manual-upload
func (h *Handler) ManualUpload(c *gin.Context) {
	id, ok := parseReviewID(c)
	if !ok {
		return
	}

	var req transport.ManualUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.ManualReplace(c.Request.Context(), id, req.ImageURL, httpkit.AdminEmail(c), req.Notes)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func parseReviewID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidReviewID, nil)
		return uuid.Nil, false
	}
	return id, true
}
