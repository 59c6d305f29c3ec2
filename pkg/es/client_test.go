package es

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"guia-turismo-go/internal/model"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useTestServer(t *testing.T, h http.HandlerFunc) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	prev := ESClient
	ESClient = client
	t.Cleanup(func() { ESClient = prev })
}

func TestDocumentID_Deterministic(t *testing.T) {
	a := DocumentID("Gramado", "https://x.example/a", 0)
	assert.Equal(t, a, DocumentID("  gramado ", "https://x.example/a", 0))
	assert.NotEqual(t, a, DocumentID("Gramado", "https://x.example/a", 1))
	assert.Len(t, a, 32)
}

func TestIndexDocuments_Bulk(t *testing.T) {
	var lines []string
	useTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/_bulk", r.URL.Path)
		sc := bufio.NewScanner(r.Body)
		for sc.Scan() {
			lines = append(lines, sc.Text())
		}
		_, _ = w.Write([]byte(`{"errors":false,"items":[]}`))
	})

	docs := []model.ArchiveDocument{
		{DocID: "id1", Localizacao: "Gramado", Conteudo: "Lago Negro", URL: "u", ChunkIndex: 0, IndexedAt: time.Now()},
		{DocID: "id2", Localizacao: "Gramado", Conteudo: "Rua Coberta", URL: "u", ChunkIndex: 1, IndexedAt: time.Now()},
	}
	require.NoError(t, IndexDocuments(context.Background(), "dados_turismo", docs))
	require.Len(t, lines, 4)
	assert.JSONEq(t, `{"index":{"_index":"dados_turismo","_id":"id1"}}`, lines[0])
	assert.Contains(t, lines[3], "Rua Coberta")
}

func TestIndexDocuments_ItemErrors(t *testing.T) {
	useTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors":true,"items":[]}`))
	})
	err := IndexDocuments(context.Background(), "dados_turismo", []model.ArchiveDocument{{DocID: "x"}})
	assert.Error(t, err)
}

func TestSearchByLocation(t *testing.T) {
	useTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/dados_turismo/_search"))
		var q map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&q))
		match := q["query"].(map[string]interface{})["match"].(map[string]interface{})
		assert.Equal(t, "Gramado", match["localizacao"])
		_, _ = w.Write([]byte(`{"hits":{"hits":[
			{"_source":{"localizacao":"Gramado","conteudo":"Lago Negro"}},
			{"_source":{"localizacao":"Gramado","conteudo":"Rua Coberta"}}
		]}}`))
	})

	got, err := SearchByLocation(context.Background(), "dados_turismo", "Gramado", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"Lago Negro", "Rua Coberta"}, got)
}
