package handlers

import (
	"rentledger/internal/services"
	"rentledger/pkg/response"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reports *services.ReportService
}

func NewReportHandler(reports *services.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Monthly 月度报表：month、year 必填，property_id 可选
func (h *ReportHandler) Monthly(c *gin.Context) {
	month, ok := parseIntQuery(c, "month")
	if !ok {
		return
	}
	year, ok := parseIntQuery(c, "year")
	if !ok {
		return
	}
	propertyID, ok := parseOptionalUintQuery(c, "property_id")
	if !ok {
		return
	}

	report, err := h.reports.MonthlyReport(c.Request.Context(), propertyID, month, year)
	if err != nil {
		response.AppError(c, err, "生成月度报表失败")
		return
	}
	response.Success(c, report)
}

// Yearly 年度报表
func (h *ReportHandler) Yearly(c *gin.Context) {
	year, ok := parseIntQuery(c, "year")
	if !ok {
		return
	}
	propertyID, ok := parseOptionalUintQuery(c, "property_id")
	if !ok {
		return
	}

	report, err := h.reports.YearlyReport(c.Request.Context(), propertyID, year)
	if err != nil {
		response.AppError(c, err, "生成年度报表失败")
		return
	}
	response.Success(c, report)
}
