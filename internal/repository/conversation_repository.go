// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"guia-turismo-go/internal/model"

	"github.com/go-redis/redis/v8"
)

// ConversationRepository 保存每个会话的对话记忆：按顺序排列的问答轮次。
// 记忆不设上限，只有 Clear 会清空。
type ConversationRepository interface {
	GetTurns(ctx context.Context, sessionID string) ([]model.Turn, error)
	AppendTurn(ctx context.Context, sessionID string, turn model.Turn) error
	Clear(ctx context.Context, sessionID string) error
}

type redisConversationRepository struct {
	redisClient *redis.Client
	ttl         time.Duration
}

// NewConversationRepository 创建一个基于 Redis 列表的 ConversationRepository 实例。
// ttl 为 0 时记忆不过期，只由 Clear（重置或会话清理）删除；大于 0 时每次追加都会刷新过期时间。
func NewConversationRepository(redisClient *redis.Client, ttl time.Duration) ConversationRepository {
	return &redisConversationRepository{redisClient: redisClient, ttl: ttl}
}

func conversationKey(sessionID string) string {
	return fmt.Sprintf("conversation:%s", sessionID)
}

// GetTurns 从 Redis 获取对话历史记录。
func (r *redisConversationRepository) GetTurns(ctx context.Context, sessionID string) ([]model.Turn, error) {
	items, err := r.redisClient.LRange(ctx, conversationKey(sessionID), 0, -1).Result()
	if err == redis.Nil {
		return []model.Turn{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation history: %w", err)
	}
	turns := make([]model.Turn, 0, len(items))
	for _, item := range items {
		var t model.Turn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			return nil, fmt.Errorf("failed to unmarshal conversation turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, nil
}

// AppendTurn 在列表末尾追加一轮问答，配置了 ttl 时刷新过期时间。
func (r *redisConversationRepository) AppendTurn(ctx context.Context, sessionID string, turn model.Turn) error {
	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation turn: %w", err)
	}
	key := conversationKey(sessionID)
	pipe := r.redisClient.TxPipeline()
	pipe.RPush(ctx, key, data)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append conversation turn: %w", err)
	}
	return nil
}

func (r *redisConversationRepository) Clear(ctx context.Context, sessionID string) error {
	if err := r.redisClient.Del(ctx, conversationKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to clear conversation: %w", err)
	}
	return nil
}

type memoryConversationRepository struct {
	mu    sync.RWMutex
	turns map[string][]model.Turn
}

// NewMemoryConversationRepository 创建一个进程内的 ConversationRepository，重启后丢失。
func NewMemoryConversationRepository() ConversationRepository {
	return &memoryConversationRepository{turns: make(map[string][]model.Turn)}
}

func (r *memoryConversationRepository) GetTurns(_ context.Context, sessionID string) ([]model.Turn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	turns := r.turns[sessionID]
	out := make([]model.Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (r *memoryConversationRepository) AppendTurn(_ context.Context, sessionID string, turn model.Turn) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.turns[sessionID] = append(r.turns[sessionID], turn)
	return nil
}

func (r *memoryConversationRepository) Clear(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.turns, sessionID)
	return nil
}
