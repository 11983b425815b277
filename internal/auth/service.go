// Package auth provides the minimal admin authentication for the review
// dashboard. There is a single operator account configured through the
// environment; no user records are stored.
package auth

import (
	"errors"
	"strings"
	"time"

	"pawtrait_backend/platform/config"
	"pawtrait_backend/platform/logger"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrNotConfigured = errors.New("admin auth is not configured")

const accessTokenType = "access"

type Service struct {
	cfg config.AdminAuthConfig
	log *logger.Logger
}

func NewService(cfg config.AdminAuthConfig, log *logger.Logger) *Service {
	return &Service{cfg: cfg, log: log}
}

// SignIn verifies the operator credentials and returns a signed access token.
// The bcrypt comparison runs even when the email does not match so both
// failure modes take comparable time.
func (s *Service) SignIn(email, plainPassword string) (string, error) {
	adminEmail := s.cfg.GetAdminEmail()
	passwordHash := s.cfg.GetAdminPasswordHash()
	if adminEmail == "" || passwordHash == "" {
		return "", ErrNotConfigured
	}

	emailMatches := strings.EqualFold(strings.TrimSpace(email), adminEmail)
	compareErr := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(plainPassword))
	if !emailMatches || compareErr != nil {
		s.log.Warn("admin sign-in rejected", "emailMatch", emailMatches)
		return "", ErrInvalidCredentials
	}

	return s.signJWT(adminEmail)
}

func (s *Service) signJWT(adminEmail string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  adminEmail,
		"type": accessTokenType,
		"exp":  now.Add(s.cfg.GetAccessTokenTTL()).Unix(),
		"iat":  now.Unix(),
	}

	tokenObj := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tokenObj.SignedString([]byte(s.cfg.GetJWTAccessSecret()))
}
