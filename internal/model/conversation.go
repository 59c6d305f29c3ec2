// Package model 包含了应用的数据模型定义。
package model

import "time"

// Turn 是一轮问答，对话记忆按顺序保存这些轮次。
type Turn struct {
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	At       LocalTime `json:"at"`
}

// Conversation 代表一次单独的问答交互，写入审计表。
type Conversation struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID string    `gorm:"type:varchar(36);index;not null" json:"sessionId"`
	Location  string    `gorm:"type:varchar(255)" json:"location"`
	Question  string    `gorm:"type:text;not null" json:"question"`
	Answer    string    `gorm:"type:text;not null" json:"answer"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (Conversation) TableName() string {
	return "conversations"
}
