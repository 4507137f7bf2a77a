package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"backend_telearenda/config"
	"backend_telearenda/database"
	"backend_telearenda/middleware"
	"backend_telearenda/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAuthRouter(t *testing.T) *gin.Engine {
	require.NoError(t, database.SetupTestDatabase())
	t.Cleanup(database.CleanupTestDatabase)

	os.Setenv("JWT_SECRET", "test-secret-key-for-testing-only")
	os.Setenv("APP_ENV", "test")
	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	am := middleware.NewAuthMiddleware(cfg)
	InitAuthAPI(am)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/auth/login", Login)
	router.GET("/auth/me", am.RequireAuth(), GetCurrentUser)
	return router
}

func createAuthUser(t *testing.T) *models.User {
	user := &models.User{
		Username: "operator",
		Email:    "operator@example.com",
		IsActive: true,
	}
	require.NoError(t, user.SetPassword("secret123"))
	require.NoError(t, database.DB.Create(user).Error)
	return user
}

func loginRequestBody(username, password string) *bytes.Buffer {
	body, _ := json.Marshal(gin.H{"username": username, "password": password})
	return bytes.NewBuffer(body)
}

func TestLogin(t *testing.T) {
	router := setupAuthRouter(t)
	createAuthUser(t)

	t.Run("Успешный вход выдает токен", func(t *testing.T) {
		req, _ := http.NewRequest("POST", "/auth/login", loginRequestBody("operator", "secret123"))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response struct {
			Status string `json:"status"`
			Data   struct {
				Token string `json:"token"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "success", response.Status)
		assert.NotEmpty(t, response.Data.Token)

		// Токен принимается защищенным маршрутом
		req, _ = http.NewRequest("GET", "/auth/me", nil)
		req.Header.Set("Authorization", "Bearer "+response.Data.Token)
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Неверный пароль", func(t *testing.T) {
		req, _ := http.NewRequest("POST", "/auth/login", loginRequestBody("operator", "wrong"))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Несуществующий пользователь", func(t *testing.T) {
		req, _ := http.NewRequest("POST", "/auth/login", loginRequestBody("ghost", "secret123"))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Запрос без токена отклоняется", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/auth/me", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
