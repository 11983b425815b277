package handler

import (
	"context"
	"net/http"
	"time"

	"pawtrait_backend/internal/adapters/storage"
	"pawtrait_backend/internal/artwork/domain"
	"pawtrait_backend/internal/artwork/service"
	"pawtrait_backend/internal/artwork/transport"
	"pawtrait_backend/platform/httpkit"
	"pawtrait_backend/platform/logger"
	"pawtrait_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidArtworkID = "invalid artwork id"
)

// Handler handles HTTP requests for artworks.
type Handler struct {
	svc          *service.Service
	val          *validator.Validator
	log          *logger.Logger
	storageSvc   storage.StorageService
	sourceBucket string
}

// New creates a new artwork handler.
func New(svc *service.Service, val *validator.Validator, log *logger.Logger) *Handler {
	return &Handler{svc: svc, val: val, log: log}
}

// SetStorage injects the storage service and bucket for source-photo uploads.
func (h *Handler) SetStorage(svc storage.StorageService, bucket string) {
	h.storageSvc = svc
	h.sourceBucket = bucket
}

// RegisterRoutes registers the artwork routes. Upload-adjacent routes carry
// the stricter rate limiter.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, uploadLimit gin.HandlerFunc) {
	rg.POST("", uploadLimit, h.Create)
	rg.POST("/uploads/presign", uploadLimit, h.PresignUpload)
	rg.GET("/by-token/:token", h.GetByToken)
	rg.POST("/by-token/:token/extend", h.ExtendToken)
	rg.POST("/by-upload-token/:token", uploadLimit, h.ResumeUpload)
	rg.POST("/:id/advance", h.AdvanceStep)
	rg.POST("/:id/fail", h.MarkFailed)
	rg.POST("/:id/retry", h.Retry)
}

// Create handles POST /api/v1/artworks
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateArtworkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Create(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	if req.SourceImages != nil {
		go h.inspectSourcePhotos(result.ID, req.SourceImages.PersonPhotoKey, req.SourceImages.PetPhotoKey)
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// PresignUpload handles POST /api/v1/artworks/uploads/presign
func (h *Handler) PresignUpload(c *gin.Context) {
	if h.storageSvc == nil {
		httpkit.Error(c, http.StatusServiceUnavailable, "uploads are not available", nil)
		return
	}

	var req transport.PresignUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	presigned, err := h.storageSvc.GenerateUploadURL(
		c.Request.Context(), h.sourceBucket, "source", req.FileName, req.ContentType, req.SizeBytes,
	)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	httpkit.OK(c, presigned)
}

// GetByToken handles GET /api/v1/artworks/by-token/:token
func (h *Handler) GetByToken(c *gin.Context) {
	result, err := h.svc.GetByAccessToken(c.Request.Context(), c.Param("token"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ExtendToken handles POST /api/v1/artworks/by-token/:token/extend
func (h *Handler) ExtendToken(c *gin.Context) {
	result, err := h.svc.ExtendAccessToken(c.Request.Context(), c.Param("token"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ResumeUpload handles POST /api/v1/artworks/by-upload-token/:token
func (h *Handler) ResumeUpload(c *gin.Context) {
	var req transport.ResumeUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.ResumeByUploadToken(c.Request.Context(), c.Param("token"), req)
	if httpkit.HandleError(c, err) {
		return
	}
	go h.inspectSourcePhotos(result.ID, req.SourceImages.PersonPhotoKey, req.SourceImages.PetPhotoKey)
	httpkit.OK(c, result)
}

// AdvanceStep handles POST /api/v1/artworks/:id/advance
func (h *Handler) AdvanceStep(c *gin.Context) {
	id, ok := parseArtworkID(c)
	if !ok {
		return
	}

	var req transport.AdvanceStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.AdvanceStep(c.Request.Context(), id, domain.GenerationStep(req.Step), req.ImageURL, req.GenerationRef)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// MarkFailed handles POST /api/v1/artworks/:id/fail
func (h *Handler) MarkFailed(c *gin.Context) {
	id, ok := parseArtworkID(c)
	if !ok {
		return
	}

	var req transport.MarkFailedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.MarkFailed(c.Request.Context(), id, domain.GenerationStep(req.Step), req.Reason)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Retry handles POST /api/v1/artworks/:id/retry
func (h *Handler) Retry(c *gin.Context) {
	id, ok := parseArtworkID(c)
	if !ok {
		return
	}

	result, err := h.svc.RetryGeneration(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// inspectSourcePhotos reads EXIF metadata off newly attached source photos
// and logs it for support diagnostics (sideways photos are the most common
// generation complaint). Best effort: photos uploaded from external URLs
// have no storage key and are skipped.
func (h *Handler) inspectSourcePhotos(artworkID uuid.UUID, fileKeys ...string) {
	if h.storageSvc == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	for _, fileKey := range fileKeys {
		if fileKey == "" {
			continue
		}

		obj, err := h.storageSvc.DownloadFile(ctx, h.sourceBucket, fileKey)
		if err != nil {
			h.log.Warn("failed to read source photo for inspection",
				"artwork_id", artworkID, "file_key", fileKey, "error", err)
			continue
		}

		meta := storage.InspectPhoto(obj)
		obj.Close()

		h.log.Info("source photo metadata",
			"artwork_id", artworkID,
			"file_key", fileKey,
			"camera_make", meta.CameraMake,
			"camera_model", meta.CameraModel,
			"orientation", meta.Orientation,
			"taken_at", meta.TakenAt,
		)
	}
}

func parseArtworkID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidArtworkID, nil)
		return uuid.Nil, false
	}
	return id, true
}
