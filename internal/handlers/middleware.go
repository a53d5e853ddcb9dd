package handlers

import (
	"net/http"
	"strings"

	"grow_controller/internal/models"

	"github.com/gin-gonic/gin"
)

// Gin context keys set by userIdMiddleware.
const (
	ctxUserID = "userId"
	ctxRole   = "role"
)

const bearerScheme = "Bearer"

// userIdMiddleware accepts "Authorization: Bearer <jwt>" and stores the
// account id and role in the gin context.
func (h *Handler) userIdMiddleware(c *gin.Context) {
	token, ok := bearerToken(c.GetHeader("Authorization"))
	if !ok {
		msg := "invalid Authorization header format"
		if c.GetHeader("Authorization") == "" {
			msg = "missing Authorization header"
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
		return
	}

	id, err := h.services.ParseToken(token)
	if err != nil {
		h.log.Debugw("auth_token_rejected", "path", c.FullPath(), "err", err)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}

	c.Set(ctxUserID, id.UserID)
	c.Set(ctxRole, id.Role)
	c.Next()
}

// requireControl lets only roles that may drive actuators through. It runs
// after userIdMiddleware.
func (h *Handler) requireControl(c *gin.Context) {
	role, _ := c.Get(ctxRole)
	if r, ok := role.(models.Role); ok && r.CanControl() {
		c.Next()
		return
	}
	uid, _ := c.Get(ctxUserID)
	h.log.Infow("control_denied", "path", c.FullPath(), "user_id", uid, "role", role)
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "account is read-only"})
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || scheme != bearerScheme {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
