package handler

import (
	"net/http"

	"pawtrait_backend/internal/order/service"
	"pawtrait_backend/internal/order/transport"
	"pawtrait_backend/platform/httpkit"
	"pawtrait_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request body"
	msgValidationFailed = "validation failed"
	msgInvalidOrderID   = "invalid order id"
	msgSessionRequired  = "session id is required"
	msgEmptyReconcile   = "provide sessionIds or a timeRange"
)

// Handler handles order HTTP requests.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new order handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts the public order routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/session/:sessionId", h.GetBySession)
}

// RegisterAdminRoutes mounts the admin reconciliation and retry routes.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/reconcile", h.Reconcile)
	rg.GET("/failed-fulfillment", h.ListFailedFulfillment)
	rg.GET("/:id/history", h.GetStatusHistory)
	rg.POST("/:id/retry", h.RetryFulfillment)
}

// GetBySession returns the order summary for a payment session, attempting
// an inline repair when the order row is missing.
// GET /api/v1/orders/session/:sessionId
func (h *Handler) GetBySession(c *gin.Context) {
	sessionID := c.Param("sessionId")
	if sessionID == "" {
		httpkit.Error(c, http.StatusBadRequest, msgSessionRequired, nil)
		return
	}

	summary, err := h.svc.GetBySession(c.Request.Context(), sessionID)
	if httpkit.HandleError(c, err) {
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Reconcile runs batch reconciliation over explicit session ids or a recent
// time window.
// POST /api/v1/admin/orders/reconcile
func (h *Handler) Reconcile(c *gin.Context) {
	var req transport.ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	var results []service.ResolutionResult
	switch {
	case len(req.SessionIDs) > 0:
		results = h.svc.ReconcileSessions(c.Request.Context(), req.SessionIDs)
	case req.TimeRange != nil:
		var err error
		results, err = h.svc.ReconcileWindow(c.Request.Context(), 0)
		if httpkit.HandleError(c, err) {
			return
		}
	default:
		httpkit.Error(c, http.StatusBadRequest, msgEmptyReconcile, nil)
		return
	}

	c.JSON(http.StatusOK, toReconcileResponse(results))
}

// ListFailedFulfillment returns paid physical orders awaiting a retry.
// GET /api/v1/admin/orders/failed-fulfillment
func (h *Handler) ListFailedFulfillment(c *gin.Context) {
	orders, err := h.svc.ListFailedFulfillment(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// GetStatusHistory returns an order's status trail.
// GET /api/v1/admin/orders/:id/history
func (h *Handler) GetStatusHistory(c *gin.Context) {
	orderID, ok := h.parseOrderID(c)
	if !ok {
		return
	}

	history, err := h.svc.GetStatusHistory(c.Request.Context(), orderID)
	if httpkit.HandleError(c, err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}

// RetryFulfillment resubmits a failed fulfillment order.
// POST /api/v1/admin/orders/:id/retry
func (h *Handler) RetryFulfillment(c *gin.Context) {
	orderID, ok := h.parseOrderID(c)
	if !ok {
		return
	}

	if err := h.svc.RetryFulfillment(c.Request.Context(), orderID); httpkit.HandleError(c, err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "submitted"})
}

func (h *Handler) parseOrderID(c *gin.Context) (uuid.UUID, bool) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidOrderID, nil)
		return uuid.Nil, false
	}
	return orderID, true
}

func toReconcileResponse(results []service.ResolutionResult) transport.ReconcileResponse {
	resp := transport.ReconcileResponse{
		Reconciled: len(results),
		Results:    make([]transport.ReconcileResultResponse, 0, len(results)),
	}
	for _, result := range results {
		item := transport.ReconcileResultResponse{
			SessionID: result.SessionID,
			Status:    result.Status,
			OrderID:   result.OrderID,
		}
		if result.Err != nil {
			item.Error = result.Err.Error()
		}
		resp.Results = append(resp.Results, item)
	}
	return resp
}
