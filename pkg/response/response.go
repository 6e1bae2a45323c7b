package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// 统一错误码定义
const (
	SUCCESS        = 200
	ERROR          = 500
	INVALID_PARAMS = 20001
	AUTH_ERROR     = 20002
	NOT_FOUND      = 20003
	CACHE_EMPTY    = 20010
	SYNC_LOCKED    = 20011
)

// 错误码消息映射
var codeMsg = map[int]string{
	SUCCESS:        "OK",
	ERROR:          "服务器内部错误",
	INVALID_PARAMS: "请求参数错误",
	AUTH_ERROR:     "认证失败",
	NOT_FOUND:      "资源不存在",
	CACHE_EMPTY:    "缓存为空，请先执行全量同步",
	SYNC_LOCKED:    "已有同步任务在执行",
}

// 错误码到HTTP状态码映射（401未授权/400入参错误/500其它）
var codeStatus = map[int]int{
	SUCCESS:        http.StatusOK,
	ERROR:          http.StatusInternalServerError,
	INVALID_PARAMS: http.StatusBadRequest,
	AUTH_ERROR:     http.StatusUnauthorized,
	NOT_FOUND:      http.StatusNotFound,
	CACHE_EMPTY:    http.StatusConflict,
	SYNC_LOCKED:    http.StatusConflict,
}

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// GetMsg 获取错误码对应的消息
func GetMsg(code int) string {
	msg, exist := codeMsg[code]
	if exist {
		return msg
	}
	return codeMsg[ERROR]
}

func statusOf(code int) int {
	if status, exist := codeStatus[code]; exist {
		return status
	}
	return http.StatusInternalServerError
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    SUCCESS,
		Success: true,
		Message: GetMsg(SUCCESS),
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message ...string) {
	msg := GetMsg(code)
	if len(message) > 0 && message[0] != "" {
		msg = message[0]
	}

	c.JSON(statusOf(code), Response{
		Code:    code,
		Success: false,
		Message: GetMsg(code),
		Error:   msg,
	})
}

// Abort 中断请求并返回错误
func Abort(c *gin.Context, code int, message ...string) {
	Error(c, code, message...)
	c.Abort()
}
