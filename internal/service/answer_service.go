// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"guia-turismo-go/internal/config"
	"guia-turismo-go/internal/index"
	"guia-turismo-go/internal/model"
	"guia-turismo-go/internal/pipeline"
	"guia-turismo-go/internal/repository"
	"guia-turismo-go/pkg/llm"
	"guia-turismo-go/pkg/log"

	"github.com/gorilla/websocket"
)

// Retriever 是回答生成所需的向量索引能力。
type Retriever interface {
	Query(ctx context.Context, text string, k int) ([]string, error)
	Built() bool
}

// AnswerService 定义了两种生成模式：地点描述与基于检索的对话。
type AnswerService interface {
	// Describe 检索 "Brasil {loc} Turismo" 的上下文并生成一段葡语旅游介绍。
	Describe(ctx context.Context, location string, r Retriever) pipeline.Outcome
	// Ask 在问题后附加 " em {loc}"，结合对话记忆检索并回答，然后把这一轮写入记忆。
	Ask(ctx context.Context, sessionID, location, question string, r Retriever) pipeline.Outcome
	// StreamAsk 与 Ask 相同，但把回答以 {"chunk": "..."} 帧流式写入 writer。
	StreamAsk(ctx context.Context, sessionID, location, question string, r Retriever, writer llm.MessageWriter, shouldStop func() bool) pipeline.Outcome
}

type answerService struct {
	llmClient        llm.Client
	conversationRepo repository.ConversationRepository
	auditRepo        repository.AuditRepository
	topK             int
	maxContextChars  int
	description      *llm.GenerationParams
}

// NewAnswerService 创建一个新的 AnswerService 实例。
func NewAnswerService(
	llmClient llm.Client,
	conversationRepo repository.ConversationRepository,
	auditRepo repository.AuditRepository,
	retrievalCfg config.RetrievalConfig,
	llmCfg config.LLMConfig,
) AnswerService {
	return &answerService{
		llmClient:        llmClient,
		conversationRepo: conversationRepo,
		auditRepo:        auditRepo,
		topK:             retrievalCfg.TopK,
		maxContextChars:  retrievalCfg.MaxContextChars,
		description:      llm.ParamsFrom(llmCfg.Description),
	}
}

// DescriptionQuery 返回描述模式的检索语句。
func DescriptionQuery(location string) string {
	return "Brasil " + location + " Turismo"
}

// QuestionWithLocation 把地点附加到用户问题之后。
func QuestionWithLocation(question, location string) string {
	return question + " em " + location
}

func (s *answerService) Describe(ctx context.Context, location string, r Retriever) pipeline.Outcome {
	texts, err := r.Query(ctx, DescriptionQuery(location), s.topK)
	if err != nil {
		if errors.Is(err, index.ErrNotBuilt) {
			return pipeline.Empty(err)
		}
		log.Errorf("[AnswerService] 检索描述上下文失败, location: %s, error: %v", location, err)
		return pipeline.Failed(err)
	}
	contextText := AssembleContext(texts, s.maxContextChars)
	if strings.TrimSpace(contextText) == "" {
		return pipeline.Empty(nil)
	}

	prompt, err := render(descriptionPrompt, promptData{Context: contextText})
	if err != nil {
		return pipeline.Failed(err)
	}
	answer, err := s.llmClient.Complete(ctx, []llm.Message{{Role: "user", Content: prompt}}, s.description)
	if err != nil {
		log.Errorf("[AnswerService] 生成旅游描述失败, location: %s, error: %v", location, err)
		return pipeline.Failed(err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return pipeline.Empty(nil)
	}
	log.Infof("[AnswerService] 旅游描述生成成功, location: %s, 长度: %d", location, len([]rune(answer)))
	return pipeline.OK(answer)
}

func (s *answerService) Ask(ctx context.Context, sessionID, location, question string, r Retriever) pipeline.Outcome {
	return s.answer(ctx, sessionID, location, question, r, func(messages []llm.Message) (string, error) {
		return s.llmClient.Complete(ctx, messages, nil)
	})
}

func (s *answerService) StreamAsk(ctx context.Context, sessionID, location, question string, r Retriever, writer llm.MessageWriter, shouldStop func() bool) pipeline.Outcome {
	return s.answer(ctx, sessionID, location, question, r, func(messages []llm.Message) (string, error) {
		// 拦截 writer 以捕获完整答案，并包装为 JSON 分块
		answerBuilder := &strings.Builder{}
		interceptor := &wsWriterInterceptor{conn: writer, writer: answerBuilder, shouldStop: shouldStop}
		if err := s.llmClient.StreamChatMessages(ctx, messages, nil, interceptor); err != nil {
			return "", err
		}
		return answerBuilder.String(), nil
	})
}

// answer 协调对话模式的 RAG 流程：记忆 -> 独立问题 -> 检索 -> 生成 -> 写回记忆。
func (s *answerService) answer(ctx context.Context, sessionID, location, question string, r Retriever, generate func([]llm.Message) (string, error)) (out pipeline.Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Errorf("[AnswerService] 生成回答时发生 panic: %v", rec)
			out = pipeline.Failed(fmt.Errorf("panic: %v", rec))
		}
	}()

	if r == nil || !r.Built() {
		log.Infof("[AnswerService] 会话 %s 尚未建立索引, 返回固定回复", sessionID)
		return pipeline.Empty(index.ErrNotBuilt)
	}

	fullQuestion := QuestionWithLocation(question, location)

	// 1. 读取记忆，并把追问改写为独立问题
	history, err := s.conversationRepo.GetTurns(ctx, sessionID)
	if err != nil {
		log.Warnf("[AnswerService] 读取对话记忆失败, session: %s, error: %v", sessionID, err)
		history = []model.Turn{}
	}
	standalone := s.condense(ctx, history, fullQuestion)

	// 2. 检索上下文
	texts, err := r.Query(ctx, standalone, s.topK)
	if err != nil {
		if errors.Is(err, index.ErrNotBuilt) {
			return pipeline.Empty(err)
		}
		log.Errorf("[AnswerService] 检索失败, session: %s, error: %v", sessionID, err)
		return pipeline.Failed(err)
	}

	// 3. 生成
	prompt, err := render(answerPrompt, promptData{
		Context:  AssembleContext(texts, s.maxContextChars),
		Question: standalone,
	})
	if err != nil {
		return pipeline.Failed(err)
	}
	answer, err := generate([]llm.Message{{Role: "user", Content: prompt}})
	if err != nil {
		log.Errorf("[AnswerService] 生成回答失败, session: %s, error: %v", sessionID, err)
		return pipeline.Failed(err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return pipeline.Empty(nil)
	}

	// 4. 写回记忆与审计，使用后台上下文，即使请求已取消也保存成功生成的答案
	saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	turn := model.Turn{Question: fullQuestion, Answer: answer, At: model.LocalTime(time.Now())}
	if err := s.conversationRepo.AppendTurn(saveCtx, sessionID, turn); err != nil {
		log.Errorf("[AnswerService] 保存对话记忆失败, session: %s, error: %v", sessionID, err)
	}
	if err := s.auditRepo.RecordConversation(&model.Conversation{
		SessionID: sessionID,
		Location:  location,
		Question:  fullQuestion,
		Answer:    answer,
	}); err != nil {
		log.Warnf("[AnswerService] 写入对话审计失败: %v", err)
	}
	return pipeline.OK(answer)
}

// condense 有历史时让模型把追问改写为独立问题；失败时退回原问题。
func (s *answerService) condense(ctx context.Context, history []model.Turn, question string) string {
	if len(history) == 0 {
		return question
	}
	prompt, err := render(condensePrompt, promptData{Question: question, History: history})
	if err != nil {
		return question
	}
	rewritten, err := s.llmClient.Complete(ctx, []llm.Message{{Role: "user", Content: prompt}}, nil)
	if err != nil || strings.TrimSpace(rewritten) == "" {
		log.Warnf("[AnswerService] 改写独立问题失败, 使用原问题: %v", err)
		return question
	}
	return strings.TrimSpace(rewritten)
}

// wsWriterInterceptor 是对 websocket 写入端的封装，用于捕获写入的消息。
type wsWriterInterceptor struct {
	conn       llm.MessageWriter
	writer     *strings.Builder
	shouldStop func() bool
}

// WriteMessage 满足 llm.MessageWriter 接口。
func (w *wsWriterInterceptor) WriteMessage(messageType int, data []byte) error {
	if w.shouldStop != nil && w.shouldStop() {
		// 停止标志生效：跳过下发
		return nil
	}
	w.writer.Write(data)
	// 将原始分块包装成 {"chunk":"..."}
	return writeChunk(w.conn, string(data))
}

func writeChunk(w llm.MessageWriter, chunk string) error {
	b, _ := json.Marshal(map[string]string{"chunk": chunk})
	return w.WriteMessage(websocket.TextMessage, b)
}

// SendCompletion 发送完成通知 JSON
func SendCompletion(w llm.MessageWriter) error {
	notif := map[string]interface{}{
		"type":      "completion",
		"status":    "finished",
		"message":   "Resposta concluída",
		"timestamp": time.Now().UnixMilli(),
		"date":      time.Now().Format("2006-01-02T15:04:05"),
	}
	b, _ := json.Marshal(notif)
	return w.WriteMessage(websocket.TextMessage, b)
}

// SendReply 在没有流式输出时（未建索引、失败）把整段回复作为单个分块发送。
func SendReply(w llm.MessageWriter, text string) error {
	return writeChunk(w, text)
}
