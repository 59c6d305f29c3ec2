// Package index 实现了进程内的向量索引：整体重建、按余弦相似度查询。
package index

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"guia-turismo-go/pkg/log"
)

// DefaultTopK 是每次查询返回的分块数。
const DefaultTopK = 2

var (
	// ErrNotBuilt 表示索引尚未建立，或者最近一次重建失败/为空。
	ErrNotBuilt = errors.New("vector index not built")
	// ErrEmptyCorpus 表示重建时没有任何分块。
	ErrEmptyCorpus = errors.New("no chunks to index")
)

// Embedder 为一批文本生成向量，返回顺序与输入一致。
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

type snapshot struct {
	texts   []string
	vectors [][]float32
	norms   []float64
}

// VectorIndex 保存 (向量, 文本) 对。重建在新的快照上完成后原子替换，
// 读者只会看到旧状态或新状态。
type VectorIndex struct {
	embedder  Embedder
	batchSize int

	rebuildMu sync.Mutex
	state     atomic.Pointer[snapshot]
}

// New 创建一个未建立的索引。batchSize <= 0 时一次请求嵌入全部文本。
func New(embedder Embedder, batchSize int) *VectorIndex {
	return &VectorIndex{embedder: embedder, batchSize: batchSize}
}

// Rebuild 丢弃已有状态，为每个文本生成向量并建立新的快照。
// 失败或没有文本时索引回到未建立状态。
func (x *VectorIndex) Rebuild(ctx context.Context, texts []string) error {
	x.rebuildMu.Lock()
	defer x.rebuildMu.Unlock()

	if len(texts) == 0 {
		x.state.Store(nil)
		return ErrEmptyCorpus
	}

	log.Infof("[VectorIndex] 开始重建索引, 分块数: %d", len(texts))
	vectors, err := x.embedAll(ctx, texts)
	if err != nil {
		x.state.Store(nil)
		return fmt.Errorf("重建索引失败: %w", err)
	}

	snap := &snapshot{
		texts:   append([]string(nil), texts...),
		vectors: vectors,
		norms:   make([]float64, len(vectors)),
	}
	for i, v := range vectors {
		snap.norms[i] = norm(v)
	}
	x.state.Store(snap)
	log.Infof("[VectorIndex] 索引重建完成, 向量数: %d, 维度: %d", len(vectors), len(vectors[0]))
	return nil
}

func (x *VectorIndex) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	size := x.batchSize
	if size <= 0 {
		size = len(texts)
	}
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += size {
		end := min(start+size, len(texts))
		batch, err := x.embedder.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(batch), end-start)
		}
		vectors = append(vectors, batch...)
	}
	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) == 0 || len(v) != dim {
			return nil, fmt.Errorf("vector %d has dimension %d, expected %d", i, len(v), dim)
		}
	}
	return vectors, nil
}

// Query 返回与 text 最相近的 k 个分块文本，最相近的在前。k <= 0 时使用 DefaultTopK。
// 未建立时返回空切片和 ErrNotBuilt。
func (x *VectorIndex) Query(ctx context.Context, text string, k int) ([]string, error) {
	snap := x.state.Load()
	if snap == nil {
		return []string{}, ErrNotBuilt
	}
	if k <= 0 {
		k = DefaultTopK
	}

	vectors, err := x.embedder.Embed(ctx, []string{text})
	if err != nil {
		return []string{}, fmt.Errorf("查询向量化失败: %w", err)
	}
	if len(vectors) != 1 || len(vectors[0]) != len(snap.vectors[0]) {
		return []string{}, fmt.Errorf("query vector dimension mismatch")
	}
	q := vectors[0]
	qn := norm(q)

	order := make([]int, len(snap.vectors))
	scores := make([]float64, len(snap.vectors))
	for i, v := range snap.vectors {
		order[i] = i
		scores[i] = cosine(q, qn, v, snap.norms[i])
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	k = min(k, len(order))
	result := make([]string, k)
	for i := 0; i < k; i++ {
		result[i] = snap.texts[order[i]]
	}
	return result, nil
}

// Reset 把索引恢复到未建立状态。
func (x *VectorIndex) Reset() {
	x.rebuildMu.Lock()
	defer x.rebuildMu.Unlock()
	x.state.Store(nil)
}

// Built 报告索引当前是否可查询。
func (x *VectorIndex) Built() bool {
	return x.state.Load() != nil
}

// Len 返回当前快照中的分块数。
func (x *VectorIndex) Len() int {
	if snap := x.state.Load(); snap != nil {
		return len(snap.texts)
	}
	return 0
}

func norm(v []float32) float64 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return math.Sqrt(sum)
}

func cosine(a []float32, an float64, b []float32, bn float64) float64 {
	if an == 0 || bn == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (an * bn)
}
