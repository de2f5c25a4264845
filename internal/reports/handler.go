package reports

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"carbon-scribe/credit-ledger/credit-ledger-backend/internal/auth"
	"carbon-scribe/credit-ledger/credit-ledger-backend/internal/httpapi"
	"carbon-scribe/credit-ledger/credit-ledger-backend/internal/reports/export"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	reports := rg.Group("/reports")
	{
		reports.GET("/holdings", h.downloadTable("holdings", h.service.Holdings))
		reports.GET("/projects", h.downloadTable("projects", h.service.ProjectRegistry))
		reports.GET("/orders", h.downloadTable("orders", h.service.OrderBook))
		reports.GET("/credits/:id/certificate", h.Certificate)
	}
}

// downloadTable serves a dataset as CSV or Excel based on ?format=.
func (h *Handler) downloadTable(name string, dataset func(ctx context.Context) (export.Table, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		table, err := dataset(c.Request.Context())
		if err != nil {
			httpapi.Error(c, err)
			return
		}

		switch format := c.DefaultQuery("format", "csv"); format {
		case "csv":
			var buf bytes.Buffer
			exporter := export.NewCSVExporter(&buf, export.DefaultCSVOptions())
			if err := exporter.Export(table); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "report export failed"})
				return
			}
			c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", name))
			c.Data(http.StatusOK, "text/csv", buf.Bytes())
		case "xlsx":
			var buf bytes.Buffer
			options := export.DefaultExcelOptions()
			options.SheetName = table.Title
			exporter := export.NewExcelExporter(options)
			if err := exporter.Export(&buf, table); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "report export failed"})
				return
			}
			c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.xlsx", name))
			c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported format, use csv or xlsx"})
		}
	}
}

func (h *Handler) Certificate(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	cert, err := h.service.Certificate(c.Request.Context(), auth.Principal(c), id)
	if err != nil {
		httpapi.Error(c, err)
		return
	}

	var buf bytes.Buffer
	generator := export.NewCertificateGenerator(export.DefaultCertificateOptions())
	if err := generator.Generate(&buf, cert); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "certificate generation failed"})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=certificate-lot-%d.pdf", id))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
