package api

import (
	"pos-insight/inout"
	"pos-insight/pkg/config"
	"pos-insight/pkg/jwt"
	"pos-insight/pkg/response"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// Auth 控制台登录
// 单账号凭证来自配置（bcrypt哈希），不接数据库
type Auth struct {
	cfg config.AuthConfig
	jwt *jwt.Manager
}

// NewAuth 创建登录处理器
func NewAuth(cfg config.AuthConfig, manager *jwt.Manager) *Auth {
	return &Auth{cfg: cfg, jwt: manager}
}

// Login 校验账号密码并签发token
func (a *Auth) Login(c *gin.Context) {
	var params inout.LoginReq
	if err := c.ShouldBindJSON(&params); err != nil {
		response.Error(c, response.INVALID_PARAMS, err.Error())
		return
	}

	if params.Username != a.cfg.AdminUser || !checkPassword(params.Password, a.cfg.AdminPasswordHash) {
		response.Error(c, response.AUTH_ERROR, "账号或密码不正确")
		return
	}

	token, err := a.jwt.GenerateToken(params.Username)
	if err != nil {
		response.Error(c, response.ERROR, "token签发失败")
		return
	}

	response.Success(c, gin.H{
		"token":    token,
		"username": params.Username,
	})
}

func checkPassword(password, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
