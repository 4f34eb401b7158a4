package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/etp-gateway/internal/middleware"
	"github.com/noah-isme/etp-gateway/internal/models"
)

// currentProfile builds the best profile known for the caller: the reconciled
// one when available, otherwise the bare session identity.
func currentProfile(c *gin.Context, reconciled *models.Profile) models.Profile {
	if reconciled != nil {
		return *reconciled
	}
	session := middleware.SessionFromContext(c)
	if session == nil {
		return models.Profile{}
	}
	return models.Profile{ID: session.User.ID, Email: session.User.Email, Role: models.DefaultRole}
}

// safeRedirect keeps post-login redirects on this site.
func safeRedirect(target, fallback string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.Contains(target, "\\") {
		return fallback
	}
	return target
}
