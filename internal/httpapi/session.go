package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"classtrack/internal/auth"
	"classtrack/internal/config"
	"classtrack/internal/school"
)

// SessionHandler exchanges provisioned profiles for token pairs. Identity
// verification happens at the external provider; this layer trusts the role
// on the profile record.
type SessionHandler struct {
	cfg    config.App
	school *school.Service
}

// NewSessionHandler creates the handler.
func NewSessionHandler(cfg config.App, svc *school.Service) *SessionHandler {
	return &SessionHandler{cfg: cfg, school: svc}
}

// Create handles POST /v1/sessions.
func (h *SessionHandler) Create(c *gin.Context) {
	var req struct {
		Identity string `json:"identity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, err := h.school.Authenticate(c.Request.Context(), req.Identity)
	switch {
	case errors.Is(err, school.ErrProfilePaused):
		c.JSON(http.StatusForbidden, gin.H{"error": "profile is paused"})
		return
	case errors.Is(err, school.ErrNotFound):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown profile"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.issue(c, profile, http.StatusCreated)
}

// Refresh handles POST /v1/sessions/refresh with single-use token rotation.
func (h *SessionHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := auth.Parse(req.RefreshToken, h.cfg.JWTSigningKey, h.cfg.JWTIssuer); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	profile, err := h.school.RotateRefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	h.issue(c, profile, http.StatusOK)
}

// Me handles GET /v1/me.
func (h *SessionHandler) Me(c *gin.Context) {
	claims, _ := auth.FromContext(c)
	profile, err := h.school.ResolveProfile(c.Request.Context(), claims.Subject)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if profile == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *SessionHandler) issue(c *gin.Context, profile *school.Profile, status int) {
	tokens, err := auth.Issue(profile.ID, string(profile.Role), h.cfg.JWTIssuer, h.cfg.JWTSigningKey, h.cfg.AccessTTL, h.cfg.RefreshTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	if err := h.school.SaveRefreshToken(c.Request.Context(), profile.ID, tokens.RefreshToken, tokens.RefreshExp); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session persist failed"})
		return
	}

	c.JSON(status, gin.H{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExp.Unix(),
		"profile":       profile,
	})
}
