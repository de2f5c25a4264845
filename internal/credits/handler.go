package credits

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"carbon-scribe/credit-ledger/credit-ledger-backend/internal/auth"
	"carbon-scribe/credit-ledger/credit-ledger-backend/internal/httpapi"
	"carbon-scribe/credit-ledger/credit-ledger-backend/internal/ledger"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	credits := rg.Group("/credits")
	{
		credits.POST("/mint", h.Mint)
		credits.GET("", h.ListMine)
		credits.GET("/:id", h.Get)
		credits.POST("/:id/transfer", h.Transfer)
		credits.POST("/:id/deposit", h.Deposit)
		credits.POST("/:id/withdraw", h.Withdraw)
	}
	rg.GET("/balance", h.Balance)
}

type mintRequest struct {
	Amount     int64     `json:"amount"`
	ProjectID  uint64    `json:"project_id"`
	Expiration time.Time `json:"expiration"`
}

func (h *Handler) Mint(c *gin.Context) {
	var req mintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Amount <= 0 {
		httpapi.InvalidAmount(c, "amount")
		return
	}

	id, err := h.service.Mint(c.Request.Context(), MintRequest{
		Owner:      auth.Principal(c),
		Amount:     uint64(req.Amount),
		ProjectID:  req.ProjectID,
		Expiration: req.Expiration,
	})
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"credit_id": id})
}

type transferRequest struct {
	Recipient string `json:"recipient"`
	Amount    int64  `json:"amount"`
}

func (h *Handler) Transfer(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Amount <= 0 {
		httpapi.InvalidAmount(c, "amount")
		return
	}

	err := h.service.Transfer(c.Request.Context(), TransferRequest{
		CreditID:  id,
		Sender:    auth.Principal(c),
		Recipient: ledger.Principal(req.Recipient),
		Amount:    uint64(req.Amount),
	})
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transferred": true})
}

type convertRequest struct {
	Amount int64 `json:"amount"`
}

func (h *Handler) Deposit(c *gin.Context) {
	h.convert(c, h.service.DepositToBalance)
}

func (h *Handler) Withdraw(c *gin.Context) {
	h.convert(c, h.service.WithdrawFromBalance)
}

func (h *Handler) convert(c *gin.Context, op func(ctx context.Context, req ConvertRequest) error) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req convertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Amount <= 0 {
		httpapi.InvalidAmount(c, "amount")
		return
	}

	err := op(c.Request.Context(), ConvertRequest{
		CreditID: id,
		Owner:    auth.Principal(c),
		Amount:   uint64(req.Amount),
	})
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"converted": true})
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	lot, err := h.service.GetCreditInfo(c.Request.Context(), id)
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	if lot == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "credit lot not found"})
		return
	}
	c.JSON(http.StatusOK, lot)
}

func (h *Handler) ListMine(c *gin.Context) {
	lots, err := h.service.ListLotsByOwner(c.Request.Context(), auth.Principal(c))
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"credits": lots})
}

func (h *Handler) Balance(c *gin.Context) {
	principal := auth.Principal(c)
	if p := c.Query("principal"); p != "" {
		principal = ledger.Principal(p)
	}
	balance, err := h.service.GetBalance(c.Request.Context(), principal)
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"principal": principal, "balance": balance})
}

func pathID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}
