package notifications

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"carbon-scribe/credit-ledger/credit-ledger-backend/internal/ledger"
	"carbon-scribe/credit-ledger/credit-ledger-backend/internal/store"
)

// Upgrader upgrades an HTTP request to a live event subscription.
type Upgrader interface {
	HandleConnection(w http.ResponseWriter, r *http.Request) error
}

// Handler exposes the event journal and the live event stream.
type Handler struct {
	store    store.Store
	upgrader Upgrader
	logger   *zap.Logger
}

func NewHandler(st store.Store, upgrader Upgrader, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: st, upgrader: upgrader, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/events", h.Recent)
	rg.GET("/events/stream", h.Stream)
}

// Recent returns the most recent journal entries, newest first.
func (h *Handler) Recent(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 500"})
			return
		}
		limit = parsed
	}

	var events []ledger.Event
	err := h.store.Atomically(c.Request.Context(), func(tx store.Tx) error {
		var err error
		events, err = tx.Events().ListRecent(c.Request.Context(), limit)
		return err
	})
	if err != nil {
		h.logger.Error("event journal read failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "event journal read failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// Stream upgrades the connection to a websocket event subscription.
func (h *Handler) Stream(c *gin.Context) {
	if err := h.upgrader.HandleConnection(c.Writer, c.Request); err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
	}
}
