package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"guia-turismo-go/internal/config"
	"guia-turismo-go/internal/model"
	"guia-turismo-go/internal/pipeline"
	"guia-turismo-go/internal/repository"
	"guia-turismo-go/pkg/geocode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type locationFixture struct {
	sessions SessionService
	geocoder *fakeGeocoder
	searcher *fakeSearcher
	builder  *fakeBuilder
	llm      *fakeLLM
	audit    *recordingAudit
	sink     *fakeSink
	svc      LocationService
}

type recordingAudit struct {
	searches []*model.LocationSearch
	convs    []*model.Conversation
}

func (a *recordingAudit) RecordSearch(s *model.LocationSearch) error {
	a.searches = append(a.searches, s)
	return nil
}

func (a *recordingAudit) RecordConversation(c *model.Conversation) error {
	a.convs = append(a.convs, c)
	return nil
}

func (a *recordingAudit) ListSearches(string, int) ([]model.LocationSearch, error) {
	return nil, nil
}

func newLocationFixture() *locationFixture {
	memory := repository.NewMemoryConversationRepository()
	f := &locationFixture{
		sessions: newSessionService(memory),
		geocoder: &fakeGeocoder{places: map[string]*geocode.Place{
			"Rio de Janeiro": {Name: "Rio de Janeiro", Lat: -22.9, Lon: -43.2,
				GeoJSON: json.RawMessage(`{"type":"Point","coordinates":[-43.2,-22.9]}`)},
		}},
		searcher: &fakeSearcher{},
		builder:  &fakeBuilder{},
		llm:      &fakeLLM{reply: func(string) (string, error) { return "O Rio é maravilhoso.", nil }},
		audit:    &recordingAudit{},
		sink:     &fakeSink{},
	}
	answers := NewAnswerService(f.llm, memory, f.audit,
		config.RetrievalConfig{TopK: 2, MaxContextChars: 2000},
		config.LLMConfig{Description: config.LLMGenerationConfig{Temperature: 0.5, TopP: 0.9, MaxTokens: 150}})
	f.svc = NewLocationService(f.geocoder, f.searcher, f.builder, answers, f.audit, 15, f.sink)
	return f
}

func (f *locationFixture) flush(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.svc.Close(ctx))
}

func TestProcess_NoChunksGivesPlaceholder(t *testing.T) {
	f := newLocationFixture()
	f.searcher.urls = []string{"https://a.example", "https://b.example"}
	sess, _, err := f.sessions.Create(context.Background())
	require.NoError(t, err)

	res, err := f.svc.Process(context.Background(), sess, "Rio de Janeiro")
	require.NoError(t, err)
	f.flush(t)

	assert.Equal(t,
		"Principais atrações turísticas de Rio de Janeiro no Brasil. (Informações detalhadas não disponíveis)",
		res.Description)
	assert.Equal(t, pipeline.StatusEmpty, res.Status)
	assert.Equal(t, 2, res.URLCount)
	assert.Equal(t, []string{"Rio de Janeiro turismo"}, f.searcher.queries)
	assert.Equal(t, f.searcher.urls, f.builder.got)
	assert.Empty(t, f.llm.prompts)
	assert.Empty(t, f.sink.got)

	assert.Equal(t, "Rio de Janeiro", sess.Location())
	assert.Contains(t, sess.MapHTML(), "L.geoJSON")
	require.Len(t, f.audit.searches, 1)
	assert.Equal(t, "empty", f.audit.searches[0].Status)
}

func TestProcess_BuildsIndexAndDescribes(t *testing.T) {
	f := newLocationFixture()
	f.searcher.urls = []string{"https://a.example"}
	f.builder.corpus = &pipeline.Corpus{
		Documents: []model.Document{{URL: "https://a.example", Text: "..."}},
		Chunks: []model.Chunk{
			{URL: "https://a.example", Index: 0, Text: "turismo no Rio: praia de Copacabana"},
			{URL: "https://a.example", Index: 1, Text: "museu do amanhã"},
			{URL: "https://a.example", Index: 2, Text: "comida carioca"},
		},
	}
	sess, _, err := f.sessions.Create(context.Background())
	require.NoError(t, err)

	res, err := f.svc.Process(context.Background(), sess, " Rio de Janeiro ")
	require.NoError(t, err)
	f.flush(t)

	assert.Equal(t, pipeline.StatusOK, res.Status)
	assert.Equal(t, "O Rio é maravilhoso.", res.Description)
	assert.Equal(t, 3, res.ChunkCount)
	assert.True(t, sess.Index.Built())
	assert.Equal(t, 3, sess.Index.Len())
	// 描述模式的检索语句包含 "Turismo"，最相近的分块应排在上下文最前面
	assert.Contains(t, f.llm.lastPrompt(), "turismo no Rio: praia de Copacabana")

	require.Len(t, f.sink.got, 1)
	assert.Equal(t, "Rio de Janeiro", f.sink.got[0].Location)
	assert.Equal(t, pipeline.StatusOK, f.sink.got[0].Status)
}

func TestProcess_NotFound(t *testing.T) {
	f := newLocationFixture()
	sess, _, err := f.sessions.Create(context.Background())
	require.NoError(t, err)

	_, err = f.svc.Process(context.Background(), sess, "Atlântida")
	assert.ErrorIs(t, err, ErrLocationNotFound)
	assert.Empty(t, f.searcher.queries)
	assert.Equal(t, "", sess.Location())
	require.Len(t, f.audit.searches, 1)
	assert.Equal(t, "not_found", f.audit.searches[0].Status)
}

func TestProcess_SearchExhaustedStillAnswers(t *testing.T) {
	f := newLocationFixture()
	f.searcher.err = errBoom
	sess, _, err := f.sessions.Create(context.Background())
	require.NoError(t, err)
	require.NoError(t, sess.Index.Rebuild(context.Background(), []string{"estado antigo"}))

	res, err := f.svc.Process(context.Background(), sess, "Rio de Janeiro")
	require.NoError(t, err)
	assert.Equal(t, PlaceholderDescription("Rio de Janeiro"), res.Description)
	assert.False(t, sess.Index.Built(), "an empty rebuild must not leave the previous location's index behind")
}

func TestProcess_CancelledBuildDropsPreviousIndex(t *testing.T) {
	f := newLocationFixture()
	f.geocoder.places["Salvador"] = &geocode.Place{Name: "Salvador", Lat: -12.97, Lon: -38.5}
	f.builder.corpus = &pipeline.Corpus{
		Chunks: []model.Chunk{{URL: "https://a.example", Text: "praia de Copacabana"}},
	}
	sess, _, err := f.sessions.Create(context.Background())
	require.NoError(t, err)

	_, err = f.svc.Process(context.Background(), sess, "Rio de Janeiro")
	require.NoError(t, err)
	require.True(t, sess.Index.Built())

	f.builder.err = context.Canceled
	_, err = f.svc.Process(context.Background(), sess, "Salvador")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "Salvador", sess.Location())
	assert.False(t, sess.Index.Built())
	assert.Equal(t, 0, sess.Index.Len())
	f.flush(t)
}
