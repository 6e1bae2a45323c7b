package middleware

import (
	"fmt"
	"log"
	"runtime/debug"

	"pos-insight/pkg/config"
	"pos-insight/pkg/response"

	"github.com/gin-gonic/gin"
)

// Recovery 自定义恢复中间件
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		// 记录panic详细信息
		err := fmt.Sprintf("panic recovered: %v", recovered)
		stack := string(debug.Stack())

		log.Printf("[PANIC RECOVERY] %s\n%s", err, stack)

		// 生产环境只返回通用错误信息
		if config.IsProduction() {
			response.Error(c, response.ERROR, "服务器内部错误")
		} else {
			response.Error(c, response.ERROR, err)
		}
	})
}

// ErrorHandler 统一错误处理中间件
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last()

			log.Printf("[ERROR] %s %s - %v", c.Request.Method, c.Request.URL.Path, err.Err)

			if !c.Writer.Written() {
				switch err.Type {
				case gin.ErrorTypeBind:
					response.Error(c, response.INVALID_PARAMS, "请求参数错误: "+err.Error())
				default:
					response.Error(c, response.ERROR, err.Error())
				}
			}
		}
	}
}
