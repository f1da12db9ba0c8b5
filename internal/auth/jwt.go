package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenDuration 服务令牌默认有效期
const DefaultTokenDuration = time.Hour

var (
	ErrInvalidHeader = errors.New("invalid authorization header")
	ErrInvalidToken  = errors.New("invalid token")
	ErrTokenExpired  = errors.New("token expired")
)

// ServiceClaims 传输层服务令牌；Subject 是发起操作的平台用户 ID
type ServiceClaims struct {
	jwt.RegisteredClaims
}

// TokenManager 签发和校验 HS256 服务令牌
type TokenManager struct {
	secretKey []byte
	issuer    string
	duration  time.Duration
}

// NewTokenManager 创建令牌管理器
func NewTokenManager(secretKey, issuer string, duration time.Duration) *TokenManager {
	if duration <= 0 {
		duration = DefaultTokenDuration
	}
	return &TokenManager{
		secretKey: []byte(secretKey),
		issuer:    issuer,
		duration:  duration,
	}
}

// Issue 为平台用户签发令牌
func (m *TokenManager) Issue(actorID int64) (string, error) {
	now := time.Now()
	claims := &ServiceClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    m.issuer,
			Subject:   strconv.FormatInt(actorID, 10),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// Verify 校验令牌并返回 actor id
func (m *TokenManager) Verify(tokenString string) (int64, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &ServiceClaims{}, func(token *jwt.Token) (interface{}, error) {
		return m.secretKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, ErrTokenExpired
		}
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*ServiceClaims)
	if !ok || !token.Valid {
		return 0, ErrInvalidToken
	}

	actorID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || actorID <= 0 {
		return 0, fmt.Errorf("%w: bad subject %q", ErrInvalidToken, claims.Subject)
	}
	return actorID, nil
}

// ExtractTokenFromHeader 从 Authorization header 提取 token
// 格式：Authorization: Bearer <token>
func ExtractTokenFromHeader(authHeader string) (string, error) {
	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", ErrInvalidHeader
	}

	token := strings.TrimSpace(authHeader[len(bearerPrefix):])
	if token == "" {
		return "", ErrInvalidHeader
	}
	return token, nil
}
