package admin

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// bindErrMessage 把绑定/校验错误整理成可读信息
// 校验失败时逐字段给出 "字段 规则"，其他绑定错误原样返回
func bindErrMessage(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		out := make([]string, len(ve))
		for i, fe := range ve {
			out[i] = fe.Field() + " " + fe.Tag()
		}
		return strings.Join(out, ", ")
	}
	if err.Error() == "EOF" {
		return "请求体为空或格式不正确"
	}
	return err.Error()
}
