package handler

import (
	"errors"
	"net/http"

	"guia-turismo-go/internal/middleware"
	"guia-turismo-go/internal/service"
	"guia-turismo-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// LocationHandler 处理地点选择请求。
type LocationHandler struct {
	locations service.LocationService
	publicURL string
}

// NewLocationHandler 创建一个新的 LocationHandler。
func NewLocationHandler(locations service.LocationService, publicURL string) *LocationHandler {
	return &LocationHandler{locations: locations, publicURL: publicURL}
}

type locationRequest struct {
	Location string `json:"location" binding:"required"`
}

type locationResponse struct {
	*service.LocationResult
	MapURL string `json:"mapUrl"`
}

// Process 地理编码、更新地图、重建语料索引，并返回旅游描述。
func (h *LocationHandler) Process(c *gin.Context) {
	var req locationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "参数 location 不能为空", "data": nil})
		return
	}
	sess := middleware.CurrentSession(c)

	result, err := h.locations.Process(c.Request.Context(), sess, req.Location)
	if err != nil {
		if errors.Is(err, service.ErrLocationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": http.StatusNotFound, "message": service.MsgLocationNotFound, "data": nil})
			return
		}
		log.Errorf("[LocationHandler] 处理地点失败, location: %s, error: %v", req.Location, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": service.MsgDescriptionError,
			"data":    gin.H{"description": service.PlaceholderDescription(req.Location)},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    locationResponse{LocationResult: result, MapURL: mapURL(h.publicURL, c.GetString(middleware.TokenKey))},
	})
}
