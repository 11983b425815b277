package auth

import (
	"errors"
	"net/http"

	apphttp "pawtrait_backend/internal/http"
	"pawtrait_backend/platform/config"
	"pawtrait_backend/platform/httpkit"
	"pawtrait_backend/platform/logger"
	"pawtrait_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

type signInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type signInResponse struct {
	AccessToken string `json:"accessToken"`
}

// Module is the auth bounded context module implementing http.Module.
type Module struct {
	svc      *Service
	validate *validator.Validator
	log      *logger.Logger
}

// NewModule creates the auth module.
func NewModule(cfg config.AdminAuthConfig, log *logger.Logger) *Module {
	return &Module{
		svc:      NewService(cfg, log),
		validate: validator.New(),
		log:      log,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "auth"
}

// RegisterRoutes mounts the sign-in route and the admin identity probe.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	authGroup := ctx.V1.Group("/auth")
	authGroup.Use(ctx.UploadRateLimiter.RateLimit())
	authGroup.POST("/sign-in", m.signIn)

	ctx.Admin.GET("/me", m.me)
}

func (m *Module) signIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := m.validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	accessToken, err := m.svc.SignIn(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrNotConfigured) {
			httpkit.Error(c, http.StatusServiceUnavailable, err.Error(), nil)
			return
		}
		httpkit.Error(c, http.StatusUnauthorized, ErrInvalidCredentials.Error(), nil)
		return
	}

	httpkit.OK(c, signInResponse{AccessToken: accessToken})
}

func (m *Module) me(c *gin.Context) {
	httpkit.OK(c, gin.H{"email": httpkit.AdminEmail(c)})
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
