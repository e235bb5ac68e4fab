package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"staybook/internal/infra/security"
)

const principalContextKey = "staybook.principal"

type principal struct {
	ID    string
	Email string
}

// TokenVerifier resolves a bearer token into the caller identity.
type TokenVerifier interface {
	Verify(token string) (security.Identity, error)
}

type AuthMiddleware struct {
	Verifier TokenVerifier
	Logger   *slog.Logger
}

// Handle attaches the caller to the request when a valid bearer token is present.
// Routes that need a caller reject anonymous requests through requireUser.
func (m AuthMiddleware) Handle(c *gin.Context) {
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" || m.Verifier == nil {
		c.Next()
		return
	}
	id, err := m.Verifier.Verify(token)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Debug("token validation failed", "error", err, "request_id", c.GetString("request_id"))
		}
		c.Next()
		return
	}
	c.Set(principalContextKey, principal{ID: id.UserID, Email: id.Email})
	c.Next()
}

func currentPrincipal(c *gin.Context) (principal, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return principal{}, false
	}
	p, ok := val.(principal)
	return p, ok && p.ID != ""
}

func requireUser(c *gin.Context) (principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "auth required"})
		return principal{}, false
	}
	return p, true
}

func extractBearerToken(header string) string {
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

// DevTokenHandler issues tokens for local testing; it is only mounted in development.
type DevTokenHandler struct {
	Issuer interface {
		Issue(id security.Identity) (string, error)
	}
}

type devTokenRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Email  string `json:"email"`
}

func (h DevTokenHandler) Issue(c *gin.Context) {
	var req devTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	token, err := h.Issuer.Issue(security.Identity{UserID: req.UserID, Email: req.Email})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "Bearer"})
}
