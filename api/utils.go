package api

import (
	"net/http"
	"strconv"

	"backend_telearenda/services"

	"github.com/gin-gonic/gin"
)

// StatusClientClosedRequest клиент разорвал соединение до завершения операции
const StatusClientClosedRequest = 499

// RespondError переводит типизированную ошибку сервисного слоя в HTTP ответ
func RespondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case services.IsConflict(err):
		status = http.StatusConflict
	case services.IsNotFound(err):
		status = http.StatusNotFound
	case services.IsValidation(err):
		status = http.StatusBadRequest
	case services.IsNoOp(err):
		status = http.StatusUnprocessableEntity
	case services.IsCancelled(err):
		status = StatusClientClosedRequest
	}

	c.JSON(status, gin.H{
		"status": "error",
		"error":  err.Error(),
	})
}

// ParsePagination извлекает параметры пагинации из запроса
func ParsePagination(c *gin.Context) (page, limit int) {
	page = 1
	limit = 20
	if p := c.Query("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
			page = parsed
		}
	}
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	return page, limit
}

// ParseIDParam извлекает числовой идентификатор из параметра пути
func ParseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"status": "error",
			"error":  "Некорректный идентификатор",
		})
		return 0, false
	}
	return uint(id), true
}
