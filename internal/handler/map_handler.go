package handler

import (
	"net/http"

	"guia-turismo-go/internal/service"

	"github.com/gin-gonic/gin"
)

// MapHandler 输出会话当前的 Leaflet 地图页面，作为前端 iframe 的目标。
type MapHandler struct {
	sessions service.SessionService
}

// NewMapHandler 创建一个新的 MapHandler。
func NewMapHandler(sessions service.SessionService) *MapHandler {
	return &MapHandler{sessions: sessions}
}

// Show 处理 GET /map/:token。
func (h *MapHandler) Show(c *gin.Context) {
	sess, err := h.sessions.Authenticate(c.Param("token"))
	if err != nil {
		c.String(http.StatusUnauthorized, "sessão inválida")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(sess.MapHTML()))
}
