package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"guia-turismo-go/internal/middleware"
	"guia-turismo-go/internal/pipeline"
	"guia-turismo-go/internal/service"
	"guia-turismo-go/pkg/log"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var (
	upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true // 允许所有来源，地图页面与聊天前端可能不同源
		},
	}
)

// ChatHandler 负责对话模式：同步问答与 WebSocket 流式问答。
type ChatHandler struct {
	answers  service.AnswerService
	sessions service.SessionService
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(answers service.AnswerService, sessions service.SessionService) *ChatHandler {
	return &ChatHandler{answers: answers, sessions: sessions}
}

type chatRequest struct {
	Question string `json:"question" binding:"required"`
}

// Ask 回答一个问题，问题会附加会话当前地点。失败时返回固定的致歉文本。
func (h *ChatHandler) Ask(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Question) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "参数 question 不能为空", "data": nil})
		return
	}
	sess := middleware.CurrentSession(c)

	outcome := h.answers.Ask(c.Request.Context(), sess.ID, sess.Location(), strings.TrimSpace(req.Question), sess.Index)
	if outcome.Status == pipeline.StatusError {
		log.Errorf("[ChatHandler] 回答失败, session: %s, error: %v", sess.ID, outcome.Err)
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    gin.H{"answer": service.ChatReply(outcome), "status": outcome.Status},
	})
}

// maxPendingQuestions 是每个连接排队等待回答的问题上限。
const maxPendingQuestions = 8

// lockedWriter 串行化对同一连接的写入，gorilla/websocket 只允许一个并发写者。
type lockedWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *lockedWriter) WriteMessage(messageType int, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteMessage(messageType, data)
}

// Handle 处理一个传入的 WebSocket 连接。每个文本帧是一个问题，
// 回答以 {"chunk": "..."} 帧流式返回，最后发送 completion 帧。
// 发送 {"type":"stop"} 可以中断正在进行的回答。
func (h *ChatHandler) Handle(c *gin.Context) {
	sess, err := h.sessions.Authenticate(c.Param("token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "无效的 token", "data": nil})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("[ChatHandler] WebSocket 升级失败", err)
		return
	}
	defer conn.Close()
	log.Infof("[ChatHandler] WebSocket 连接已建立, session: %s", sess.ID)

	writer := &lockedWriter{conn: conn}
	var stopped atomic.Bool
	questions := make(chan string, maxPendingQuestions)

	// 回答在独立 goroutine 中按顺序处理，读循环因此可以及时收到停止指令
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for q := range questions {
			stopped.Store(false)
			outcome := h.answers.StreamAsk(c.Request.Context(), sess.ID, sess.Location(), q, sess.Index, writer, stopped.Load)
			if outcome.Status != pipeline.StatusOK {
				if outcome.Status == pipeline.StatusError {
					log.Errorf("[ChatHandler] 流式回答失败, session: %s, error: %v", sess.ID, outcome.Err)
				}
				_ = service.SendReply(writer, service.ChatReply(outcome))
			}
			if err := service.SendCompletion(writer); err != nil {
				log.Warnf("[ChatHandler] 发送完成通知失败: %v", err)
			}
		}
	}()
	defer wg.Wait()
	defer close(questions)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Infof("[ChatHandler] WebSocket 连接关闭, session: %s: %v", sess.ID, err)
			return
		}
		if isStopCommand(message) {
			stopped.Store(true)
			b, _ := json.Marshal(map[string]interface{}{
				"type":      "stop",
				"message":   "Resposta interrompida",
				"timestamp": time.Now().UnixMilli(),
			})
			_ = writer.WriteMessage(websocket.TextMessage, b)
			continue
		}
		q := strings.TrimSpace(string(message))
		if q == "" {
			continue
		}
		log.Infof("[ChatHandler] 收到问题, session: %s, question: %s", sess.ID, q)
		// 队列满时直接拒绝，读循环不能阻塞，否则收不到停止指令和关闭帧
		select {
		case questions <- q:
		default:
			log.Warnf("[ChatHandler] 待回答问题过多, 拒绝新问题, session: %s", sess.ID)
			b, _ := json.Marshal(map[string]interface{}{
				"type":      "busy",
				"message":   "Aguarde a resposta anterior antes de enviar outra pergunta.",
				"timestamp": time.Now().UnixMilli(),
			})
			_ = writer.WriteMessage(websocket.TextMessage, b)
		}
	}
}

func isStopCommand(message []byte) bool {
	if len(message) == 0 || message[0] != '{' {
		return false
	}
	var ctrl struct {
		Type string `json:"type"`
	}
	return json.Unmarshal(message, &ctrl) == nil && ctrl.Type == "stop"
}
