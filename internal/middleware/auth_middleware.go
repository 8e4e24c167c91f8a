package middleware

import (
	"net/http"
	"strings"

	"go-relief-hub/internal/model"
	"go-relief-hub/internal/repository"
	"go-relief-hub/pkg/utils"

	"github.com/gin-gonic/gin"
)

const (
	ContextUserID = "userID"
	ContextUser   = "user"
)

// 验证JWT中间件
func AuthMiddleware(userRepo *repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			return
		}

		// 解析token
		claims, err := utils.ParseToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		// 获取用户信息
		user, err := userRepo.FindByID(claims.UserID)
		if err != nil || user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}

		// 将用户ID存储在上下文中
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUser, user)

		c.Next()
	}
}

// 通常Authorization格式为: "Bearer token"; websocket握手无法带header时允许?token=
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if token := c.Query("token"); token != "" {
			return token, true
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header is required"})
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if !(len(parts) == 2 && parts[0] == "Bearer") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
		return "", false
	}
	return parts[1], true
}

// StaffOnly 必须放在AuthMiddleware之后
func StaffOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok || !user.IsStaff {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "staff permission required"})
			return
		}
		c.Next()
	}
}

// CurrentUser 取出AuthMiddleware放入的用户
func CurrentUser(c *gin.Context) (*model.User, bool) {
	v, exists := c.Get(ContextUser)
	if !exists {
		return nil, false
	}
	user, ok := v.(*model.User)
	return user, ok
}
