package api

import (
	"net/http"
	"time"

	"backend_telearenda/config"
	"backend_telearenda/database"
	"backend_telearenda/middleware"
	"backend_telearenda/models"

	"github.com/gin-gonic/gin"
)

var authMiddleware *middleware.AuthMiddleware

// InitAuthAPI подключает middleware аутентификации к обработчикам
func InitAuthAPI(am *middleware.AuthMiddleware) {
	authMiddleware = am
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login проверяет учетные данные и выпускает JWT токен
func Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status": "error",
			"error":  "Неверный формат данных",
		})
		return
	}

	var user models.User
	if err := database.DB.Where("username = ?", req.Username).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"status": "error",
			"error":  "Неверное имя пользователя или пароль",
		})
		return
	}

	if !user.IsActive || !user.CheckPassword(req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{
			"status": "error",
			"error":  "Неверное имя пользователя или пароль",
		})
		return
	}

	cfg := config.GetConfig()
	token, err := authMiddleware.GenerateToken(user.ID, user.Username, cfg.JWT.ExpiresIn)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error",
			"error":  "Ошибка при выпуске токена",
		})
		return
	}

	// Фиксируем время входа
	now := time.Now()
	database.DB.Model(&user).Update("last_login_at", &now)

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data": gin.H{
			"token":      token,
			"expires_in": cfg.JWT.ExpiresIn.Seconds(),
			"user":       user,
		},
	})
}

// GetCurrentUser возвращает профиль аутентифицированного пользователя
func GetCurrentUser(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	if userID == nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"status": "error",
			"error":  "Требуется аутентификация",
		})
		return
	}

	var user models.User
	if err := database.DB.First(&user, *userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"status": "error",
			"error":  "Пользователь не найден",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   user,
	})
}
