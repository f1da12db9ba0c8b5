package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/filestore-backend/internal/auth"
	apperrors "github.com/lk2023060901/filestore-backend/internal/pkg/errors"
	"github.com/lk2023060901/filestore-backend/internal/pkg/logger"
	"github.com/lk2023060901/filestore-backend/internal/pkg/response"
	"go.uber.org/zap"
)

// ActorIDKey gin 上下文中的操作者 ID
const ActorIDKey = "actor_id"

// JWTAuth 服务令牌认证中间件
func JWTAuth(tokens *auth.TokenManager, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.ExtractTokenFromHeader(c.GetHeader("Authorization"))
		if err != nil {
			response.ErrorWithCode(c, apperrors.ErrUnauthorized, "missing or malformed bearer token")
			c.Abort()
			return
		}

		actorID, err := tokens.Verify(token)
		if err != nil {
			log.WithContext(c.Request.Context()).Warn("invalid service token",
				zap.Error(err),
				zap.String("ip", c.ClientIP()))

			code := apperrors.ErrAuthInvalidToken
			if errors.Is(err, auth.ErrTokenExpired) {
				code = apperrors.ErrAuthTokenExpired
			}
			response.ErrorWithCode(c, code)
			c.Abort()
			return
		}

		setActor(c, actorID)
		c.Next()
	}
}

// OptionalJWTAuth 可选认证：令牌缺失或无效时按匿名请求处理
func OptionalJWTAuth(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.ExtractTokenFromHeader(c.GetHeader("Authorization"))
		if err != nil {
			c.Next()
			return
		}

		if actorID, err := tokens.Verify(token); err == nil {
			setActor(c, actorID)
		}
		c.Next()
	}
}

func setActor(c *gin.Context, actorID int64) {
	c.Set(ActorIDKey, actorID)
	c.Request = c.Request.WithContext(logger.WithActorID(c.Request.Context(), actorID))
}

// GetActorID 从上下文获取操作者 ID，匿名请求返回 0, false
func GetActorID(c *gin.Context) (int64, bool) {
	actorID := c.GetInt64(ActorIDKey)
	return actorID, actorID != 0
}
