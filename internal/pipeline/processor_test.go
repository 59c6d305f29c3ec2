package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExtractor struct {
	mu       sync.Mutex
	pages    map[string]string
	calls    []string
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
}

func (f *fakeExtractor) Extract(ctx context.Context, url string, maxChars int) (string, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()

	text, ok := f.pages[url]
	if !ok {
		return "", errors.New("fetch failed")
	}
	return text, nil
}

func TestProcessor_SkipsFailuresAndKeepsOrder(t *testing.T) {
	ex := &fakeExtractor{pages: map[string]string{
		"https://a.example": "Recife Antigo",
		"https://b.example": "",
		"https://d.example": "Olinda\n\nCarnaval",
	}}
	p := NewProcessor(ex, NewSplitter(512, 256), 3, 0)

	corpus, err := p.Process(context.Background(), []string{
		"https://a.example", "https://b.example", "https://c.example", "https://d.example",
	})
	require.NoError(t, err)

	require.Len(t, corpus.Documents, 2)
	assert.Equal(t, "https://a.example", corpus.Documents[0].URL)
	assert.Equal(t, "https://d.example", corpus.Documents[1].URL)
	assert.Equal(t, []string{"Recife Antigo", "Olinda\n\nCarnaval"}, corpus.Texts())
	assert.Len(t, ex.calls, 4)
}

func TestProcessor_AllFailIsEmptyNotError(t *testing.T) {
	p := NewProcessor(&fakeExtractor{}, NewSplitter(512, 256), 2, 0)
	corpus, err := p.Process(context.Background(), []string{"https://x.example", "https://y.example"})
	require.NoError(t, err)
	assert.Empty(t, corpus.Chunks)
	assert.Empty(t, corpus.Documents)
}

func TestProcessor_BoundedConcurrency(t *testing.T) {
	pages := map[string]string{}
	var urls []string
	for i := 0; i < 12; i++ {
		u := fmt.Sprintf("https://p%d.example", i)
		pages[u] = strings.Repeat("x", 10)
		urls = append(urls, u)
	}
	ex := &fakeExtractor{pages: pages, delay: 20 * time.Millisecond}
	corpus, err := NewProcessor(ex, NewSplitter(512, 256), 3, 0).Process(context.Background(), urls)
	require.NoError(t, err)
	assert.Len(t, corpus.Chunks, 12)
	assert.LessOrEqual(t, ex.peak.Load(), int32(3))
	for i, ch := range corpus.Chunks {
		assert.Equal(t, urls[i], ch.URL)
	}
}

func TestProcessor_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewProcessor(&fakeExtractor{}, NewSplitter(512, 256), 2, 0).
		Process(ctx, []string{"https://a.example"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOutcome_TextOr(t *testing.T) {
	assert.Equal(t, "ok", OK("ok").TextOr("placeholder"))
	assert.Equal(t, "placeholder", OK("").TextOr("placeholder"))
	assert.Equal(t, "placeholder", Empty(nil).TextOr("placeholder"))
	assert.Equal(t, "placeholder", Failed(errors.New("x")).TextOr("placeholder"))
}
