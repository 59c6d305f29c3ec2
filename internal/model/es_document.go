package model

import "time"

// ArchiveDocument 是写入 Elasticsearch 归档索引（默认 dados_turismo）的文档结构。
// 字段名沿用葡语，方便按地点 match 查询。
type ArchiveDocument struct {
	DocID       string    `json:"doc_id"` // blake2b(localizacao|url|chunk_index)
	Localizacao string    `json:"localizacao"`
	Conteudo    string    `json:"conteudo"`
	URL         string    `json:"url"`
	ChunkIndex  int       `json:"chunk_index"`
	IndexedAt   time.Time `json:"indexed_at"`
}

// CorpusSnapshot 是每次重建后写入 MinIO 的语料快照。
type CorpusSnapshot struct {
	SessionID string    `json:"sessionId"`
	Location  string    `json:"location"`
	URLs      []string  `json:"urls"`
	Chunks    []Chunk   `json:"chunks"`
	CreatedAt time.Time `json:"createdAt"`
}
