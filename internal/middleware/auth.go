package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/SergeiKhy/shortly/internal/auth"
)

// Ключи контекста для аутентифицированных запросов
const (
	ctxUserID    = "auth_user_id"
	ctxUserEmail = "auth_user_email"
)

// JWTAuth middleware аутентификации по access-токену
type JWTAuth struct {
	manager *auth.JWTManager
}

// NewJWTAuth создаёт новый JWT middleware
func NewJWTAuth(manager *auth.JWTManager) *JWTAuth {
	return &JWTAuth{manager: manager}
}

// Middleware возвращает Gin middleware handler, требующий валидный
// Bearer токен. ID и email пользователя кладутся в контекст запроса.
func (ja *JWTAuth) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "missing_token",
				"message": "Требуется access-токен в заголовке Authorization: Bearer",
			})
			c.Abort()
			return
		}

		claims, err := ja.manager.ValidateToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "invalid_token",
				"message": "Невалидный или истёкший access-токен",
			})
			c.Abort()
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "invalid_token",
				"message": "Невалидный или истёкший access-токен",
			})
			c.Abort()
			return
		}

		c.Set(ctxUserID, userID)
		c.Set(ctxUserEmail, claims.Email)

		c.Next()
	}
}

// UserIDFromContext извлекает ID аутентифицированного пользователя
func UserIDFromContext(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(ctxUserID)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// UserEmailFromContext извлекает email аутентифицированного пользователя
func UserEmailFromContext(c *gin.Context) (string, bool) {
	v, exists := c.Get(ctxUserEmail)
	if !exists {
		return "", false
	}
	email, ok := v.(string)
	return email, ok
}
