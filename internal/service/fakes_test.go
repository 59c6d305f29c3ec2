package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"guia-turismo-go/internal/index"
	"guia-turismo-go/internal/pipeline"
	"guia-turismo-go/pkg/geocode"
	"guia-turismo-go/pkg/llm"

	"github.com/gorilla/websocket"
)

type fakeLLM struct {
	mu       sync.Mutex
	prompts  []string
	params   []*llm.GenerationParams
	reply    func(prompt string) (string, error)
	streamed []string
}

func (f *fakeLLM) Complete(_ context.Context, messages []llm.Message, gen *llm.GenerationParams) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, messages[len(messages)-1].Content)
	f.params = append(f.params, gen)
	f.mu.Unlock()
	return f.reply(messages[len(messages)-1].Content)
}

func (f *fakeLLM) StreamChatMessages(ctx context.Context, messages []llm.Message, gen *llm.GenerationParams, w llm.MessageWriter) error {
	out, err := f.Complete(ctx, messages, gen)
	if err != nil {
		return err
	}
	for _, part := range strings.SplitAfter(out, " ") {
		if err := w.WriteMessage(websocket.TextMessage, []byte(part)); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeLLM) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prompts[len(f.prompts)-1]
}

type fakeRetriever struct {
	built   bool
	texts   []string
	err     error
	queries []string
}

func (r *fakeRetriever) Query(_ context.Context, text string, k int) ([]string, error) {
	r.queries = append(r.queries, text)
	if !r.built {
		return []string{}, index.ErrNotBuilt
	}
	if r.err != nil {
		return []string{}, r.err
	}
	if k < len(r.texts) {
		return r.texts[:k], nil
	}
	return r.texts, nil
}

func (r *fakeRetriever) Built() bool { return r.built }

// wordEmbedder 统计少量关键词，保证检索结果可预测。
type wordEmbedder struct{}

func (wordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	keys := []string{"praia", "museu", "comida", "turismo"}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, len(keys)+1)
		lower := strings.ToLower(t)
		for j, k := range keys {
			v[j] = float32(strings.Count(lower, k))
		}
		v[len(keys)] = 0.01
		out[i] = v
	}
	return out, nil
}

type fakeGeocoder struct {
	places map[string]*geocode.Place
}

func (g *fakeGeocoder) Geocode(_ context.Context, name string) (*geocode.Place, error) {
	if p, ok := g.places[name]; ok {
		return p, nil
	}
	return nil, geocode.ErrNotFound
}

type fakeSearcher struct {
	urls    []string
	err     error
	queries []string
}

func (s *fakeSearcher) Search(_ context.Context, query string, _ int) ([]string, error) {
	s.queries = append(s.queries, query)
	if s.err != nil {
		return []string{}, s.err
	}
	return s.urls, nil
}

type fakeBuilder struct {
	corpus *pipeline.Corpus
	err    error
	got    []string
}

func (b *fakeBuilder) Process(_ context.Context, urls []string) (*pipeline.Corpus, error) {
	b.got = urls
	if b.err != nil {
		return nil, b.err
	}
	if b.corpus == nil {
		return &pipeline.Corpus{}, nil
	}
	return b.corpus, nil
}

type fakeSink struct {
	mu  sync.Mutex
	got []*IndexedCorpus
	err error
}

func (s *fakeSink) Name() string { return "fake" }

func (s *fakeSink) Publish(_ context.Context, ic *IndexedCorpus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, ic)
	return s.err
}

type frameRecorder struct {
	mu     sync.Mutex
	frames []string
}

func (f *frameRecorder) WriteMessage(_ int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, string(data))
	return nil
}

var errBoom = errors.New("boom")
