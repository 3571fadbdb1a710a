package handler

import (
	"net/http"
	"strings"

	"yantarmarket/internal/app/market/entity"
	"yantarmarket/internal/app/market/util"

	"github.com/gin-gonic/gin"
)

const (
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "

	ctxUserID = "user_id"
	ctxRole   = "user_role"
)

// Authenticate проверяет JWT токен из заголовка Authorization
// и кладёт user_id и роль в контекст запроса
func Authenticate(jwtManager *util.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(authorizationHeader)
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, entity.ErrorResponse{Error: "authorization header required"})
			return
		}

		if !strings.HasPrefix(header, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, entity.ErrorResponse{Error: "invalid authorization header format"})
			return
		}

		claims, err := jwtManager.ValidateToken(strings.TrimPrefix(header, bearerPrefix))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, entity.ErrorResponse{Error: err.Error()})
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxRole, claims.Role)
		c.Next()
	}
}

// RequireAdmin пропускает только пользователей с ролью admin.
// Подключается после Authenticate.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ctxRole)
		if role != entity.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, entity.ErrorResponse{Error: "admin access required"})
			return
		}
		c.Next()
	}
}
