package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/folio/folio/backend/go-services/internal/document"
	"github.com/folio/folio/backend/go-services/pkg/logger"
)

// SettingsSource exposes the current document for the password lookup.
type SettingsSource interface {
	Load(ctx context.Context) *document.Document
}

// TokenIssuer hands out the admin token after a successful password check
// and revokes it on logout.
type TokenIssuer interface {
	Enabled() bool
	GenerateAdminToken() (string, time.Time, error)
	Revoke(ctx context.Context, raw string) error
}

type verifyRequest struct {
	Password string `json:"password"`
}

// AuthHandler checks the single shared admin password.
type AuthHandler struct {
	docs     SettingsSource
	fallback string
	tokens   TokenIssuer
}

// NewAuthHandler uses settings.adminPassword when set, otherwise fallback
// (ADMIN_PASSWORD). tokens may be nil.
func NewAuthHandler(docs SettingsSource, fallback string, tokens TokenIssuer) *AuthHandler {
	return &AuthHandler{docs: docs, fallback: fallback, tokens: tokens}
}

func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/verify-password", h.VerifyPassword)
	rg.POST("/logout", h.Logout)
}

func (h *AuthHandler) VerifyPassword(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "password is required"})
		return
	}
	expected := h.fallback
	if s, ok := h.docs.Load(c.Request.Context()).Settings[document.SettingAdminPassword].(string); ok && s != "" {
		expected = s
	}
	if expected == "" || !passwordMatches(expected, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Incorrect password"})
		return
	}

	resp := gin.H{"success": true}
	if h.tokens != nil && h.tokens.Enabled() {
		tok, exp, err := h.tokens.GenerateAdminToken()
		if err != nil {
			logger.Errorf("issue admin token: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "could not issue token"})
			return
		}
		resp["token"] = tok
		resp["expiresAt"] = exp.UTC().Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, resp)
}

// passwordMatches accepts a bcrypt hash or a plain value as the stored password.
func passwordMatches(stored, given string) bool {
	if strings.HasPrefix(stored, "$2a$") || strings.HasPrefix(stored, "$2b$") || strings.HasPrefix(stored, "$2y$") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(given)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1
}

// Logout revokes the bearer token, if any. Without a token there is nothing
// server side to forget and the call succeeds.
func (h *AuthHandler) Logout(c *gin.Context) {
	scheme, raw, ok := strings.Cut(c.GetHeader("Authorization"), " ")
	raw = strings.TrimSpace(raw)
	if !ok || !strings.EqualFold(scheme, "Bearer") || raw == "" || h.tokens == nil || !h.tokens.Enabled() {
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}
	if err := h.tokens.Revoke(c.Request.Context(), raw); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
