package jwt

import (
	"strings"

	"StoreSupport/pkg/back"
	"StoreSupport/pkg/util/myjwt"
	"StoreSupport/pkg/xerr"

	"github.com/gin-gonic/gin"
)

const (
	CtxAgentID = "agent_id"
	CtxOrgID   = "org_id"
	CtxName    = "agent_name"
)

// Auth 解析 Bearer token；key 为空时使用全局配置
func Auth(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			back.Error(c, xerr.Unauthorized, "missing or invalid authorization header")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		var (
			claims *myjwt.CustomClaims
			err    error
		)
		if key != "" {
			claims, err = myjwt.ParseTokenWith(key, tokenString)
		} else {
			claims, err = myjwt.ParseToken(tokenString)
		}
		if err != nil {
			back.Error(c, xerr.Unauthorized, "invalid token")
			c.Abort()
			return
		}

		c.Set(CtxAgentID, claims.AgentId)
		c.Set(CtxOrgID, claims.OrgId)
		c.Set(CtxName, claims.Name)
		c.Next()
	}
}
