package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"carbon-scribe/credit-ledger/credit-ledger-backend/internal/ledger"
)

// Handler issues ledger access tokens. Identity and credential
// management live upstream; this endpoint trusts its caller and is
// meant to be reachable only by the identity bridge (or developers in
// local setups), not by end users.
type Handler struct {
	secret   string
	tokenTTL time.Duration
	logger   *zap.Logger
}

func NewHandler(secret string, tokenTTL time.Duration, logger *zap.Logger) *Handler {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{secret: secret, tokenTTL: tokenTTL, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	authGroup := rg.Group("/auth")
	{
		authGroup.POST("/token", h.Token)
	}
}

type tokenRequest struct {
	Principal string `json:"principal" binding:"required"`
	Role      string `json:"role"`
}

func (h *Handler) Token(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "principal is required"})
		return
	}
	if req.Role != "" && req.Role != RoleAdmin {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown role"})
		return
	}

	expiresAt := time.Now().Add(h.tokenTTL)
	token, err := IssueToken(h.secret, ledger.Principal(req.Principal), req.Role, expiresAt)
	if err != nil {
		h.logger.Error("token issuance failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expiresAt,
	})
}
