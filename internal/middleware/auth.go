package middleware

import (
	"scorm_trends_backend/internal/config"
	"scorm_trends_backend/internal/model"
	"scorm_trends_backend/internal/util"
	"scorm_trends_backend/pkg/logger"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, found := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !found || tokenString == "" {
			util.Abort(c, util.ErrUnauthorized)
			return
		}

		claims, err := util.ParseToken(tokenString, cfg.JWT.Secret)
		if err != nil {
			logger.Log.Debug("jwt parse failed", zap.String("path", c.FullPath()), zap.Error(err))
			util.Abort(c, util.ErrUnauthorized)
			return
		}

		c.Set(util.ClaimsKey, claims)
		c.Next()
	}
}

// RoleMiddleware 管理员拥有所有角色的权限
func RoleMiddleware(roles ...model.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := util.ClaimsFromContext(c)
		if claims == nil {
			util.Abort(c, util.ErrUnauthorized)
			return
		}

		if !claims.HasRole(roles...) {
			logger.Log.Info("report access denied",
				zap.Uint("user_id", claims.UserID),
				zap.String("role", string(claims.Role)),
				zap.String("path", c.FullPath()))
			util.Abort(c, util.ErrForbidden)
			return
		}
		c.Next()
	}
}
