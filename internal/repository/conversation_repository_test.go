package repository

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"guia-turismo-go/internal/model"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseRepository(t *testing.T, repo ConversationRepository) {
	ctx := context.Background()
	sid := uuid.NewString()
	other := uuid.NewString()

	turns, err := repo.GetTurns(ctx, sid)
	require.NoError(t, err)
	assert.Empty(t, turns)

	at := model.LocalTime(time.Date(2024, 5, 1, 10, 0, 0, 0, time.Local))
	for i, q := range []string{"Onde comer?", "E dormir?", "Quando ir?"} {
		require.NoError(t, repo.AppendTurn(ctx, sid, model.Turn{Question: q, Answer: string(rune('A' + i)), At: at}))
	}
	require.NoError(t, repo.AppendTurn(ctx, other, model.Turn{Question: "x", Answer: "y"}))

	turns, err = repo.GetTurns(ctx, sid)
	require.NoError(t, err)
	require.Len(t, turns, 3)
	assert.Equal(t, "Onde comer?", turns[0].Question)
	assert.Equal(t, "C", turns[2].Answer)
	assert.True(t, time.Time(turns[0].At).Equal(time.Time(at)))

	require.NoError(t, repo.Clear(ctx, sid))
	turns, err = repo.GetTurns(ctx, sid)
	require.NoError(t, err)
	assert.Empty(t, turns)

	turns, err = repo.GetTurns(ctx, other)
	require.NoError(t, err)
	assert.Len(t, turns, 1)
	require.NoError(t, repo.Clear(ctx, other))
}

func TestMemoryConversationRepository(t *testing.T) {
	exerciseRepository(t, NewMemoryConversationRepository())
}

func TestMemoryConversationRepository_Unbounded(t *testing.T) {
	repo := NewMemoryConversationRepository()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, repo.AppendTurn(ctx, "s", model.Turn{Question: "q", Answer: "a"}))
		}()
	}
	wg.Wait()
	turns, err := repo.GetTurns(ctx, "s")
	require.NoError(t, err)
	assert.Len(t, turns, 50)
}

func testRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("GUIA_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("GUIA_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())
	return client
}

func TestRedisConversationRepository(t *testing.T) {
	exerciseRepository(t, NewConversationRepository(testRedisClient(t), 0))
}

func TestRedisConversationRepository_TTL(t *testing.T) {
	client := testRedisClient(t)
	ctx := context.Background()

	persistent := uuid.NewString()
	require.NoError(t, NewConversationRepository(client, 0).AppendTurn(ctx, persistent, model.Turn{Question: "q"}))
	ttl, err := client.TTL(ctx, conversationKey(persistent)).Result()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(-1), ttl, "memory must not expire by default")

	expiring := uuid.NewString()
	require.NoError(t, NewConversationRepository(client, time.Hour).AppendTurn(ctx, expiring, model.Turn{Question: "q"}))
	ttl, err = client.TTL(ctx, conversationKey(expiring)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, client.Del(ctx, conversationKey(persistent), conversationKey(expiring)).Err())
}
