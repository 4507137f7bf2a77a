package api

import (
	"net/http"

	"backend_telearenda/database"
	"backend_telearenda/models"

	"github.com/gin-gonic/gin"
)

// GetClients получает список клиентов
func GetClients(c *gin.Context) {
	var clients []models.Client

	query := database.DB.Model(&models.Client{})

	// Фильтрация по активности
	if isActive := c.Query("is_active"); isActive != "" {
		if isActive == "true" {
			query = query.Where("is_active = ?", true)
		} else if isActive == "false" {
			query = query.Where("is_active = ?", false)
		}
	}

	// Поиск по названию или контактам
	if search := c.Query("search"); search != "" {
		pattern := "%" + search + "%"
		query = query.Where(
			"LOWER(name) LIKE LOWER(?) OR LOWER(contact_person) LIKE LOWER(?) OR LOWER(email) LIKE LOWER(?)",
			pattern, pattern, pattern)
	}

	page, limit := ParsePagination(c)
	offset := (page - 1) * limit

	var total int64
	query.Count(&total)

	if err := query.Order("name ASC").Offset(offset).Limit(limit).Find(&clients).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error",
			"error":  "Ошибка при получении клиентов",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   clients,
		"count":  len(clients),
		"total":  total,
		"page":   page,
		"limit":  limit,
	})
}

// GetClient получает конкретного клиента по ID
func GetClient(c *gin.Context) {
	id := c.Param("id")

	var client models.Client
	if err := database.DB.Preload("Assets").First(&client, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"status": "error",
			"error":  "Клиент не найден",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   client,
	})
}

// CreateClient создает нового клиента
func CreateClient(c *gin.Context) {
	var client models.Client

	if err := c.ShouldBindJSON(&client); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status": "error",
			"error":  "Неверный формат данных",
		})
		return
	}

	if client.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"status": "error",
			"error":  "Название клиента обязательно",
		})
		return
	}

	if err := database.DB.Create(&client).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error",
			"error":  "Ошибка при создании клиента",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status": "success",
		"data":   client,
	})
}

// UpdateClient обновляет данные клиента
func UpdateClient(c *gin.Context) {
	id := c.Param("id")

	var client models.Client
	if err := database.DB.First(&client, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"status": "error",
			"error":  "Клиент не найден",
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

	delete(updates, "id")

	if err := database.DB.Model(&client).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error",
			"error":  "Ошибка при обновлении клиента",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   client,
	})
}

// DeleteClient мягко удаляет клиента без выданных активов
func DeleteClient(c *gin.Context) {
	id := c.Param("id")

	var client models.Client
	if err := database.DB.First(&client, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"status": "error",
			"error":  "Клиент не найден",
		})
		return
	}

	// Клиент с выданными активами не удаляется
	var activeAssets int64
	database.DB.Model(&models.Asset{}).Where("client_id = ?", client.ID).Count(&activeAssets)
	if activeAssets > 0 {
		c.JSON(http.StatusConflict, gin.H{
			"status": "error",
			"error":  "Нельзя удалить клиента с выданными активами",
		})
		return
	}

	if err := database.DB.Delete(&client).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error",
			"error":  "Ошибка при удалении клиента",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Клиент удален",
	})
}
