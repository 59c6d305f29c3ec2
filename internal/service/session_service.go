package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"guia-turismo-go/internal/index"
	"guia-turismo-go/internal/repository"
	"guia-turismo-go/pkg/log"
	"guia-turismo-go/pkg/mapview"
	"guia-turismo-go/pkg/token"

	"github.com/google/uuid"
)

// ErrSessionNotFound 表示会话不存在或已过期。
var ErrSessionNotFound = errors.New("session not found")

// Session 保存一个用户的全部状态：独立的向量索引、当前地点和地图页面。
// 对话记忆按会话 ID 存放在 ConversationRepository 中。
type Session struct {
	ID        string
	Index     *index.VectorIndex
	CreatedAt time.Time

	// processMu 串行化同一会话内的地点处理，保证地点、地图与索引一致
	processMu sync.Mutex

	mu       sync.RWMutex
	location string
	mapHTML  string
	lastSeen time.Time
}

// Location 返回当前地点，尚未选择时为空字符串。
func (s *Session) Location() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.location
}

// MapHTML 返回当前地图页面。
func (s *Session) MapHTML() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mapHTML
}

func (s *Session) setView(location, mapHTML string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.location = location
	s.mapHTML = mapHTML
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeen
}

// SessionService 是进程内的会话注册表。
type SessionService interface {
	Create(ctx context.Context) (*Session, string, error)
	Get(id string) (*Session, error)
	// Authenticate 校验会话 token 并返回对应的会话。
	Authenticate(tokenString string) (*Session, error)
	// ResetMemory 清空会话的对话记忆。
	ResetMemory(ctx context.Context, id string) error
	// Sweep 删除空闲超过 ttl 的会话，返回删除数量。
	Sweep(ctx context.Context, ttl time.Duration) int
}

type sessionService struct {
	embedder         index.Embedder
	embedBatchSize   int
	jwtManager       *token.JWTManager
	conversationRepo repository.ConversationRepository
	initialMap       string
	now              func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionService 创建会话注册表。initialMap 是新会话的地图页面（巴西全图）。
func NewSessionService(
	embedder index.Embedder,
	embedBatchSize int,
	jwtManager *token.JWTManager,
	conversationRepo repository.ConversationRepository,
	initialMap string,
) SessionService {
	if initialMap == "" {
		initialMap = mapview.Initial(nil)
	}
	return &sessionService{
		embedder:         embedder,
		embedBatchSize:   embedBatchSize,
		jwtManager:       jwtManager,
		conversationRepo: conversationRepo,
		initialMap:       initialMap,
		now:              time.Now,
		sessions:         make(map[string]*Session),
	}
}

func (s *sessionService) Create(ctx context.Context) (*Session, string, error) {
	now := s.now()
	sess := &Session{
		ID:        uuid.NewString(),
		Index:     index.New(s.embedder, s.embedBatchSize),
		CreatedAt: now,
		mapHTML:   s.initialMap,
		lastSeen:  now,
	}
	tok, err := s.jwtManager.GenerateToken(sess.ID)
	if err != nil {
		return nil, "", err
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	log.Infof("[SessionService] 创建会话, session: %s", sess.ID)
	return sess, tok, nil
}

func (s *sessionService) Get(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess.touch(s.now())
	return sess, nil
}

func (s *sessionService) Authenticate(tokenString string) (*Session, error) {
	claims, err := s.jwtManager.VerifyToken(tokenString)
	if err != nil {
		return nil, err
	}
	return s.Get(claims.SessionID)
}

func (s *sessionService) ResetMemory(ctx context.Context, id string) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	log.Infof("[SessionService] 清空对话记忆, session: %s", id)
	return s.conversationRepo.Clear(ctx, id)
}

func (s *sessionService) Sweep(ctx context.Context, ttl time.Duration) int {
	cutoff := s.now().Add(-ttl)
	var expired []*Session

	s.mu.Lock()
	for id, sess := range s.sessions {
		if sess.idleSince().Before(cutoff) {
			delete(s.sessions, id)
			expired = append(expired, sess)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		sess.Index.Reset()
		if err := s.conversationRepo.Clear(ctx, sess.ID); err != nil {
			log.Warnf("[SessionService] 清理过期会话记忆失败, session: %s, error: %v", sess.ID, err)
		}
	}
	if len(expired) > 0 {
		log.Infof("[SessionService] 清理过期会话 %d 个", len(expired))
	}
	return len(expired)
}
