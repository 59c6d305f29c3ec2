// Package tasks defines the structure of messages that are sent to Kafka.
package tasks

import "time"

// LocationIndexed is published after a session's vector index was rebuilt for a location.
type LocationIndexed struct {
	SessionID  string    `json:"session_id"`
	Location   string    `json:"location"`
	Status     string    `json:"status"`
	URLCount   int       `json:"url_count"`
	ChunkCount int       `json:"chunk_count"`
	OccurredAt time.Time `json:"occurred_at"`
}
