package api

import (
	"fmt"
	"net/http"
	"time"

	"backend_telearenda/services"

	"github.com/gin-gonic/gin"
)

var reportService *services.ReportService

// InitReportsAPI подключает сервис отчетов к обработчикам
func InitReportsAPI(rs *services.ReportService) {
	reportService = rs
}

// ExportAssociationsExcel выгружает привязки в формате Excel
func ExportAssociationsExcel(c *gin.Context) {
	data, err := reportService.GenerateAssociationsExcel(services.AssociationFilter{
		Search: c.Query("search"),
	})
	if err != nil {
		RespondError(c, err)
		return
	}

	fileName := fmt.Sprintf("associations_%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", fileName))
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// ExportAssociationsPDF выгружает привязки в формате PDF
func ExportAssociationsPDF(c *gin.Context) {
	data, err := reportService.GenerateAssociationsPDF(services.AssociationFilter{
		Search: c.Query("search"),
	})
	if err != nil {
		RespondError(c, err)
		return
	}

	fileName := fmt.Sprintf("associations_%s.pdf", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", fileName))
	c.Data(http.StatusOK, "application/pdf", data)
}
