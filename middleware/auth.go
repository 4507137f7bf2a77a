package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"backend_telearenda/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Claims описывает полезную нагрузку JWT токена
type Claims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// AuthMiddleware проверяет аутентификацию пользователя
type AuthMiddleware struct {
	secret []byte
	issuer string
}

// NewAuthMiddleware создает новый экземпляр AuthMiddleware
func NewAuthMiddleware(cfg *config.Config) *AuthMiddleware {
	return &AuthMiddleware{
		secret: []byte(cfg.JWT.Secret),
		issuer: cfg.JWT.Issuer,
	}
}

// GenerateToken выпускает JWT токен для пользователя
func (am *AuthMiddleware) GenerateToken(userID uint, username string, expiresIn time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    am.issuer,
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(am.secret)
	if err != nil {
		return "", fmt.Errorf("ошибка при подписи токена: %w", err)
	}
	return signed, nil
}

// RequireAuth middleware для проверки аутентификации
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Получаем токен из заголовка
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			authHeader = c.GetHeader("authorization")
		}

		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"status": "error",
				"error":  "Authorization header is required",
			})
			c.Abort()
			return
		}

		token := extractToken(authHeader)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"status": "error",
				"error":  "Invalid authorization format",
			})
			c.Abort()
			return
		}

		claims, err := am.validateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"status": "error",
				"error":  "Invalid or expired token: " + err.Error(),
			})
			c.Abort()
			return
		}

		// Сохраняем информацию о пользователе в контексте
		c.Set("user_id", claims.UserID)
		c.Set("username", claims.Username)
		c.Set("token", token)

		c.Next()
	}
}

// OptionalAuth middleware для опциональной аутентификации
func (am *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			authHeader = c.GetHeader("authorization")
		}

		if authHeader != "" {
			if token := extractToken(authHeader); token != "" {
				// Пробуем проверить токен
				if claims, err := am.validateToken(token); err == nil {
					c.Set("user_id", claims.UserID)
					c.Set("username", claims.Username)
					c.Set("token", token)
				}
			}
		}

		c.Next()
	}
}

// validateToken разбирает и проверяет подпись JWT токена
func (am *AuthMiddleware) validateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("неожиданный метод подписи: %v", t.Header["alg"])
		}
		return am.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("токен недействителен")
	}
	if am.issuer != "" {
		if issuer, err := claims.GetIssuer(); err != nil || issuer != am.issuer {
			return nil, fmt.Errorf("неверный издатель токена")
		}
	}
	return claims, nil
}

// extractToken извлекает токен из значения заголовка Authorization
func extractToken(authHeader string) string {
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	if strings.HasPrefix(authHeader, "Token ") {
		return strings.TrimPrefix(authHeader, "Token ")
	}
	return authHeader
}

// GetCurrentUserID возвращает ID текущего пользователя из контекста
func GetCurrentUserID(c *gin.Context) *uint {
	if value, exists := c.Get("user_id"); exists {
		if id, ok := value.(uint); ok {
			return &id
		}
	}
	return nil
}

// GetCurrentUsername возвращает имя текущего пользователя из контекста
func GetCurrentUsername(c *gin.Context) string {
	if value, exists := c.Get("username"); exists {
		if username, ok := value.(string); ok {
			return username
		}
	}
	return ""
}

// GetCurrentToken возвращает текущий токен из контекста
func GetCurrentToken(c *gin.Context) string {
	if token, exists := c.Get("token"); exists {
		if tokenStr, ok := token.(string); ok {
			return tokenStr
		}
	}
	return ""
}
