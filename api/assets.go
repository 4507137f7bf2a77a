package api

import (
	"net/http"

	"backend_telearenda/database"
	"backend_telearenda/middleware"
	"backend_telearenda/models"

	"github.com/gin-gonic/gin"
)

// GetAssets получает список активов
func GetAssets(c *gin.Context) {
	var assets []models.Asset

	query := database.DB.Model(&models.Asset{})

	// Фильтрация по типу
	if kind := c.Query("kind"); kind != "" {
		query = query.Where("kind = ?", kind)
	}

	// Фильтрация по статусу
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	// Фильтрация по истекшей подписке
	if expired := c.Query("expired"); expired == "true" {
		query = query.Where("is_expired = ?", true)
	}

	// Поиск по идентификаторам
	if search := c.Query("search"); search != "" {
		pattern := "%" + search + "%"
		query = query.Where(
			"LOWER(serial_number) LIKE LOWER(?) OR LOWER(iccid) LIKE LOWER(?) OR LOWER(line_number) LIKE LOWER(?) OR LOWER(model) LIKE LOWER(?)",
			pattern, pattern, pattern, pattern)
	}

	page, limit := ParsePagination(c)
	offset := (page - 1) * limit

	var total int64
	query.Count(&total)

	if err := query.Preload("Client").Order("id ASC").Offset(offset).Limit(limit).Find(&assets).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error",
			"error":  "Ошибка при получении активов",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   assets,
		"count":  len(assets),
		"total":  total,
		"page":   page,
		"limit":  limit,
	})
}

// GetAsset получает конкретный актив по ID
func GetAsset(c *gin.Context) {
	id := c.Param("id")

	var asset models.Asset
	if err := database.DB.Preload("Client").Preload("Associations").First(&asset, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"status": "error",
			"error":  "Актив не найден",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   asset,
	})
}

// CreateAsset создает новый актив
func CreateAsset(c *gin.Context) {
	var asset models.Asset

	if err := c.ShouldBindJSON(&asset); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status": "error",
			"error":  "Неверный формат данных",
		})
		return
	}

	if asset.Kind != models.AssetKindChip && asset.Kind != models.AssetKindEquipment {
		c.JSON(http.StatusBadRequest, gin.H{
			"status": "error",
			"error":  "Тип актива должен быть chip или equipment",
		})
		return
	}

	// Идентификатор обязателен в зависимости от типа
	if asset.Kind == models.AssetKindChip && asset.ICCID == "" && asset.LineNumber == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"status": "error",
			"error":  "Для SIM-чипа требуется ICCID или номер линии",
		})
		return
	}
	if asset.Kind == models.AssetKindEquipment && asset.SerialNumber == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"status": "error",
			"error":  "Для оборудования требуется серийный номер",
		})
		return
	}

	// Новый актив всегда попадает в оборот свободным
	asset.Status = models.AssetStatusAvailable
	asset.ClientID = nil

	if err := database.DB.Create(&asset).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error",
			"error":  "Ошибка при создании актива",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status": "success",
		"data":   asset,
	})
}

// UpdateAsset обновляет данные актива
func UpdateAsset(c *gin.Context) {
	id := c.Param("id")

	var asset models.Asset
	if err := database.DB.First(&asset, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"status": "error",
			"error":  "Актив не найден",
		})
		return
	}

	var updates map[string]interface{}
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status": "error",
			"error":  "Неверный формат данных",
		})
		return
	}

	// Статус и клиент меняются только через жизненный цикл привязок
	delete(updates, "status")
	delete(updates, "client_id")
	delete(updates, "id")

	if err := database.DB.Model(&asset).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error",
			"error":  "Ошибка при обновлении актива",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   asset,
	})
}

type extendSubscriptionRequest struct {
	NewEndDate models.CalendarDate `json:"new_end_date" binding:"required"`
}

// ExtendSubscription продлевает подписку на актив
func ExtendSubscription(c *gin.Context) {
	id, ok := ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req extendSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status": "error",
			"error":  "Неверный формат данных",
		})
		return
	}

	if err := associationService.ExtendSubscription(id, req.NewEndDate, middleware.GetCurrentUserID(c)); err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Подписка продлена",
	})
}

type returnToStockRequest struct {
	AssetIDs []uint `json:"asset_ids" binding:"required"`
}

// ReturnToStock возвращает активы на склад, завершая их активные
// привязки. Активы без активной привязки пропускаются
func ReturnToStock(c *gin.Context) {
	var req returnToStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status": "error",
			"error":  "Неверный формат данных",
		})
		return
	}

	results, err := associationService.ReturnToStock(req.AssetIDs, middleware.GetCurrentUserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   results,
		"count":  len(results),
	})
}
