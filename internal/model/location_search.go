package model

import "time"

// LocationSearch 记录一次地点检索及其索引结果。
type LocationSearch struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID  string    `gorm:"type:varchar(36);index;not null" json:"sessionId"`
	Location   string    `gorm:"type:varchar(255);index;not null" json:"location"`
	Status     string    `gorm:"type:varchar(16);not null" json:"status"` // ok | empty | error | not_found
	URLCount   int       `gorm:"not null;default:0" json:"urlCount"`
	DocCount   int       `gorm:"not null;default:0" json:"docCount"`
	ChunkCount int       `gorm:"not null;default:0" json:"chunkCount"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (LocationSearch) TableName() string {
	return "location_searches"
}
