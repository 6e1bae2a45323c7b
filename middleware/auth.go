package middleware

import (
	"crypto/subtle"
	"strings"

	"pos-insight/pkg/jwt"
	"pos-insight/pkg/response"

	"github.com/gin-gonic/gin"
)

// JWTAuth 控制台认证中间件
func JWTAuth(manager *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := getTokenFromRequest(c)
		if token == "" {
			response.Abort(c, response.AUTH_ERROR, "请求未携带token，无权限访问")
			return
		}

		claims, err := manager.ParseToken(token)
		if err != nil {
			var message string
			switch err {
			case jwt.ErrTokenExpired:
				message = "授权已过期"
			case jwt.ErrTokenMalformed:
				message = "token格式错误"
			default:
				message = "无效的token"
			}
			response.Abort(c, response.AUTH_ERROR, message)
			return
		}

		c.Set("username", claims.Username)
		c.Next()
	}
}

// SyncTokenAuth 同步触发接口的共享密钥校验
// 校验失败直接终止，不存在重试语义
func SyncTokenAuth(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if expected == "" {
			response.Abort(c, response.AUTH_ERROR, "同步密钥未配置，拒绝执行")
			return
		}

		token := c.GetHeader("X-Sync-Token")
		if token == "" {
			token = c.Query("token")
		}

		if subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
			response.Abort(c, response.AUTH_ERROR, "同步密钥错误")
			return
		}

		c.Next()
	}
}

// getTokenFromRequest 从Header或Query取token
func getTokenFromRequest(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
		return authHeader
	}
	return c.Query("token")
}
