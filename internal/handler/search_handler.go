package handler

import (
	"errors"
	"net/http"
	"strings"

	"guia-turismo-go/internal/service"
	"guia-turismo-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// SearchHandler 查询 Elasticsearch 中归档的语料。
type SearchHandler struct {
	corpus service.CorpusService
}

// NewSearchHandler 创建一个新的 SearchHandler 实例。
func NewSearchHandler(corpus service.CorpusService) *SearchHandler {
	return &SearchHandler{corpus: corpus}
}

// LookupCorpus 处理 GET /api/v1/corpus?location=。
func (h *SearchHandler) LookupCorpus(c *gin.Context) {
	location := strings.TrimSpace(c.Query("location"))
	log.Infof("[SearchHandler] 收到归档查询请求, location: %s", location)
	if location == "" {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的查询参数", "data": nil})
		return
	}

	text, err := h.corpus.Lookup(c.Request.Context(), location)
	if err != nil {
		if errors.Is(err, service.ErrArchiveDisabled) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"code": http.StatusServiceUnavailable, "message": "归档未启用", "data": nil})
			return
		}
		log.Errorf("[SearchHandler] 查询归档失败, error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "查询失败", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": gin.H{"location": location, "context": text}})
}
