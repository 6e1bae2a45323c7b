package jwt

import (
	"errors"
	"time"

	"pos-insight/pkg/config"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenInvalid   = errors.New("token invalid")
)

// CustomClaims 控制台会话声明
type CustomClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Manager JWT签发与校验
type Manager struct {
	signingKey []byte
	expiry     time.Duration
	issuer     string
}

// NewManager 从配置创建JWT管理器
func NewManager(cfg config.AuthConfig) *Manager {
	return &Manager{
		signingKey: []byte(cfg.JWTSigningKey),
		expiry:     cfg.JWTExpiry,
		issuer:     cfg.Issuer,
	}
}

// GenerateToken 为登录成功的控制台用户签发token
func (m *Manager) GenerateToken(username string) (string, error) {
	now := time.Now()
	claims := CustomClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.signingKey)
}

// ParseToken 校验并解析token
func (m *Manager) ParseToken(tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return m.signingKey, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrTokenMalformed
		default:
			return nil, ErrTokenInvalid
		}
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
