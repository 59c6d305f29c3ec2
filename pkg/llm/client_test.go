package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"guia-turismo-go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	frames []string
}

func (w *recordingWriter) WriteMessage(_ int, data []byte) error {
	w.frames = append(w.frames, string(data))
	return nil
}

func TestComplete_SendsGenerationParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		var req chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)
		assert.Equal(t, "llama3.2", req.Model)
		if assert.NotNil(t, req.Temperature) && assert.NotNil(t, req.MaxTokens) {
			assert.Equal(t, 0.5, *req.Temperature)
			assert.Equal(t, 150, *req.MaxTokens)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Belo Horizonte encanta."}}]}`))
	}))
	defer srv.Close()

	c := NewClient(config.LLMConfig{BaseURL: srv.URL, Model: "llama3.2"})
	gen := ParamsFrom(config.LLMGenerationConfig{Temperature: 0.5, TopP: 0.9, MaxTokens: 150})
	out, err := c.Complete(context.Background(), []Message{{Role: "user", Content: "oi"}}, gen)
	require.NoError(t, err)
	assert.Equal(t, "Belo Horizonte encanta.", out)
}

func TestComplete_DefaultsFromConfig(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Nil(t, req.Temperature)
		if assert.NotNil(t, req.TopP) {
			assert.Equal(t, 0.8, *req.TopP)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	c := NewClient(config.LLMConfig{BaseURL: srv.URL, Generation: config.LLMGenerationConfig{TopP: 0.8}})
	_, err := c.Complete(context.Background(), nil, nil)
	require.NoError(t, err)
}

func TestComplete_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/empty/chat/completions" {
			_, _ = w.Write([]byte(`{"choices":[]}`))
			return
		}
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(config.LLMConfig{BaseURL: srv.URL}).Complete(context.Background(), nil, nil)
	assert.ErrorContains(t, err, "503")

	_, err = NewClient(config.LLMConfig{BaseURL: srv.URL + "/empty"}).Complete(context.Background(), nil, nil)
	assert.ErrorContains(t, err, "no choices")
}

func TestStreamChatMessages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)
		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"Flori", "anópolis", ""} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", part)
		}
		fmt.Fprint(w, "data: not-json\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"depois\"}}]}\n\n")
	}))
	defer srv.Close()

	w := &recordingWriter{}
	err := NewClient(config.LLMConfig{BaseURL: srv.URL}).StreamChatMessages(context.Background(), nil, nil, w)
	require.NoError(t, err)
	assert.Equal(t, []string{"Flori", "anópolis"}, w.frames)
}
