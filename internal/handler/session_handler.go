// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"
	"strings"

	"guia-turismo-go/internal/service"
	"guia-turismo-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// SessionHandler 负责创建会话。
type SessionHandler struct {
	sessions  service.SessionService
	publicURL string
}

// NewSessionHandler 创建一个新的 SessionHandler。
func NewSessionHandler(sessions service.SessionService, publicURL string) *SessionHandler {
	return &SessionHandler{sessions: sessions, publicURL: publicURL}
}

// Create 创建一个新会话，返回会话 ID、token 与地图地址。
func (h *SessionHandler) Create(c *gin.Context) {
	sess, tok, err := h.sessions.Create(c.Request.Context())
	if err != nil {
		log.Errorf("[SessionHandler] 创建会话失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "创建会话失败", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data": gin.H{
			"sessionId": sess.ID,
			"token":     tok,
			"mapUrl":    mapURL(h.publicURL, tok),
		},
	})
}

func mapURL(publicURL, tok string) string {
	return strings.TrimRight(publicURL, "/") + "/map/" + tok
}
