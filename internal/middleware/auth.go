// Package middleware 提供了处理 HTTP 请求的中间件。
package middleware

import (
	"net/http"
	"strings"

	"guia-turismo-go/internal/service"
	"guia-turismo-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// 会话对象与原始 token 在 Gin 上下文中的键。
const (
	SessionKey = "session"
	TokenKey   = "token"
)

// SessionAuth 创建一个 Gin 中间件，用于会话 token 认证。
// 它会从请求头中提取 token，验证其有效性，并将 *service.Session 存入 Gin 的上下文中。
func SessionAuth(sessions service.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "请求未包含授权头", "data": nil})
			return
		}

		// Token 以 "Bearer <token>" 的形式提供
		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "无效的授权头格式", "data": nil})
			return
		}

		tokenString := strings.TrimPrefix(authHeader, bearerPrefix)
		sess, err := sessions.Authenticate(tokenString)
		if err != nil {
			log.Warnf("[SessionAuth] 会话认证失败: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "无效或已过期的会话", "data": nil})
			return
		}

		c.Set(SessionKey, sess)
		// 地图 iframe 地址需要 token
		c.Set(TokenKey, tokenString)
		c.Next()
	}
}

// CurrentSession 取出 SessionAuth 放入上下文的会话。
func CurrentSession(c *gin.Context) *service.Session {
	v, ok := c.Get(SessionKey)
	if !ok {
		return nil
	}
	sess, _ := v.(*service.Session)
	return sess
}
