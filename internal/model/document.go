package model

// Document 是一个成功抽取了正文的网页。
type Document struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

// Chunk 是 Document 切分后的片段，是向量索引的最小单位。
type Chunk struct {
	URL   string `json:"url"`
	Index int    `json:"index"` // 在所属文档中的序号
	Text  string `json:"text"`
}
