package repository

import (
	"guia-turismo-go/internal/model"

	"gorm.io/gorm"
)

// AuditRepository 记录地点检索与对话轮次，只写不读回业务流程。
type AuditRepository interface {
	RecordSearch(search *model.LocationSearch) error
	RecordConversation(conv *model.Conversation) error
	ListSearches(sessionID string, limit int) ([]model.LocationSearch, error)
}

type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository 创建一个新的 AuditRepository 实例。
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) RecordSearch(search *model.LocationSearch) error {
	return r.db.Create(search).Error
}

func (r *auditRepository) RecordConversation(conv *model.Conversation) error {
	return r.db.Create(conv).Error
}

// ListSearches 按时间倒序返回某个会话的检索记录。
func (r *auditRepository) ListSearches(sessionID string, limit int) ([]model.LocationSearch, error) {
	var searches []model.LocationSearch
	q := r.db.Where("session_id = ?", sessionID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&searches).Error
	return searches, err
}

type noopAuditRepository struct{}

// NewNoopAuditRepository 在未启用 MySQL 时使用。
func NewNoopAuditRepository() AuditRepository {
	return noopAuditRepository{}
}

func (noopAuditRepository) RecordSearch(*model.LocationSearch) error      { return nil }
func (noopAuditRepository) RecordConversation(*model.Conversation) error { return nil }
func (noopAuditRepository) ListSearches(string, int) ([]model.LocationSearch, error) {
	return []model.LocationSearch{}, nil
}
