package verification

import (
	"net/http"
	"strconv"

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
	projects := rg.Group("/projects")
	{
		projects.POST("", h.Register)
		projects.GET("", h.List)
		projects.GET("/:id", h.Get)
		projects.POST("/:id/verify", h.Verify)
	}
	verifiers := rg.Group("/verifiers")
	{
		verifiers.PUT("/:principal", auth.RequireAdmin(), h.AddVerifier)
		verifiers.DELETE("/:principal", auth.RequireAdmin(), h.RemoveVerifier)
		verifiers.GET("/:principal", h.IsVerifier)
	}
}

type registerRequest struct {
	Description string `json:"description"`
}

func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	id, err := h.service.RegisterProject(c.Request.Context(), auth.Principal(c), req.Description)
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"project_id": id})
}

func (h *Handler) Verify(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.service.VerifyProject(c.Request.Context(), id, auth.Principal(c)); err != nil {
		httpapi.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"verified": true})
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	project, err := h.service.GetProjectInfo(c.Request.Context(), id)
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	if project == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *Handler) List(c *gin.Context) {
	projects, err := h.service.ListProjects(c.Request.Context())
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

func (h *Handler) AddVerifier(c *gin.Context) {
	principal := ledger.Principal(c.Param("principal"))
	if err := h.service.AddVerifier(c.Request.Context(), principal); err != nil {
		httpapi.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"added": true})
}

func (h *Handler) RemoveVerifier(c *gin.Context) {
	principal := ledger.Principal(c.Param("principal"))
	if err := h.service.RemoveVerifier(c.Request.Context(), principal); err != nil {
		httpapi.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": true})
}

func (h *Handler) IsVerifier(c *gin.Context) {
	principal := ledger.Principal(c.Param("principal"))
	ok, err := h.service.IsVerifier(c.Request.Context(), principal)
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"is_verifier": ok})
}

func pathID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}
