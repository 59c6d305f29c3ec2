package handler

import (
	"net/http"
	"strconv"

	"guia-turismo-go/internal/middleware"
	"guia-turismo-go/internal/repository"
	"guia-turismo-go/internal/service"
	"guia-turismo-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// ConversationHandler 处理对话记忆相关的 API 请求。
type ConversationHandler struct {
	sessions         service.SessionService
	conversationRepo repository.ConversationRepository
	auditRepo        repository.AuditRepository
}

// NewConversationHandler 创建一个新的 ConversationHandler。
func NewConversationHandler(sessions service.SessionService, conversationRepo repository.ConversationRepository, auditRepo repository.AuditRepository) *ConversationHandler {
	return &ConversationHandler{sessions: sessions, conversationRepo: conversationRepo, auditRepo: auditRepo}
}

// GetHistory 返回当前会话的对话记忆。
func (h *ConversationHandler) GetHistory(c *gin.Context) {
	sess := middleware.CurrentSession(c)

	turns, err := h.conversationRepo.GetTurns(c.Request.Context(), sess.ID)
	if err != nil {
		log.Errorf("[ConversationHandler] 读取对话记忆失败, session: %s, error: %v", sess.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": "Failed to retrieve conversation history",
			"data":    nil,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    turns,
	})
}

// ResetMemory 清空当前会话的对话记忆。
func (h *ConversationHandler) ResetMemory(c *gin.Context) {
	sess := middleware.CurrentSession(c)
	if err := h.sessions.ResetMemory(c.Request.Context(), sess.ID); err != nil {
		log.Errorf("[ConversationHandler] 清空对话记忆失败, session: %s, error: %v", sess.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "Failed to reset memory", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": nil})
}

// ListSearches 返回当前会话最近的地点检索记录（需要启用 MySQL 审计）。
func (h *ConversationHandler) ListSearches(c *gin.Context) {
	sess := middleware.CurrentSession(c)
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}

	searches, err := h.auditRepo.ListSearches(sess.ID, limit)
	if err != nil {
		log.Errorf("[ConversationHandler] 读取检索记录失败, session: %s, error: %v", sess.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "Failed to list searches", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": searches})
}
