package handler

import (
	"github.com/gin-gonic/gin"
	inventoryapp "github.com/medstock/backend/internal/application/inventory"
	"github.com/medstock/backend/internal/domain/shared"
	"github.com/medstock/backend/internal/domain/shared/valueobject"
	"github.com/medstock/backend/internal/interfaces/http/router"
)

// ReportHandler serves movement reports
type ReportHandler struct {
	BaseHandler
	inventoryService *inventoryapp.InventoryService
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(inventoryService *inventoryapp.InventoryService) *ReportHandler {
	return &ReportHandler{inventoryService: inventoryService}
}

// MovementReportQuery selects the report range and source
type MovementReportQuery struct {
	Start  string `form:"start" binding:"required" example:"2025-01-01"`
	End    string `form:"end" binding:"required" example:"2025-01-31"`
	Source string `form:"source" example:"notes"`
}

// RegisterRoutes mounts the report endpoints under /reports
func (h *ReportHandler) RegisterRoutes(rg *gin.RouterGroup) {
	router.NewDomainGroup("reports", "/reports").
		GET("/movements", h.Movements).
		RegisterRoutes(rg)
}

// Movements godoc
// @ID           getMovementReport
// @Summary      Stock movement report
// @Description  Aggregates movements over [start, end] per item and kind
// @Tags         reports
// @Produce      json
// @Param        start query string true "First day (YYYY-MM-DD)"
// @Param        end query string true "Last day (YYYY-MM-DD)"
// @Param        source query string false "notes or ledger"
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Router       /reports/movements [get]
func (h *ReportHandler) Movements(c *gin.Context) {
	var q MovementReportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.InvalidBody(c, err)
		return
	}
	start, err := valueobject.ParseDate(q.Start)
	if err != nil {
		h.HandleError(c, shared.NewValidationError("start: %v", err))
		return
	}
	end, err := valueobject.ParseDate(q.End)
	if err != nil {
		h.HandleError(c, shared.NewValidationError("end: %v", err))
		return
	}

	report, err := h.inventoryService.MovementReport(c.Request.Context(), start, end, q.Source)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}
