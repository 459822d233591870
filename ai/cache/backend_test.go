package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedAnswer struct {
	Answer string  `json:"answer"`
	Score  float64 `json:"score"`
}

func newRedisBackend(t *testing.T) (*RedisBackend, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisBackendWithClient(client, "test:"), mr
}

func TestBackends_JSONRoundTrip(t *testing.T) {
	ctx := context.Background()
	redisBackend, _ := newRedisBackend(t)

	for _, b := range []Backend{NewMemoryBackend(10, time.Minute), redisBackend} {
		t.Run(b.Name(), func(t *testing.T) {
			want := cachedAnswer{Answer: "The Lions scored 461 points.", Score: 8.5}
			require.NoError(t, SetJSON(ctx, b, "q1", want, time.Minute))

			got, ok, err := GetJSON[cachedAnswer](ctx, b, "q1")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, want, got)

			require.NoError(t, b.Delete(ctx, "q1"))
			_, ok, err = GetJSON[cachedAnswer](ctx, b, "q1")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestGetJSON_CorruptValueIsMiss(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend(10, time.Minute)
	require.NoError(t, b.Set(ctx, "bad", []byte("{not json"), 0))

	_, ok, err := GetJSON[cachedAnswer](ctx, b, "bad")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, _ = b.Get(ctx, "bad")
	assert.False(t, ok, "corrupt entry should be dropped")
}

func TestRedisBackend_PrefixAndTTL(t *testing.T) {
	ctx := context.Background()
	b, mr := newRedisBackend(t)

	require.NoError(t, b.Set(ctx, "answer:abc", []byte("x"), time.Minute))
	assert.True(t, mr.Exists("test:answer:abc"))
	assert.Equal(t, time.Minute, mr.TTL("test:answer:abc"))

	mr.FastForward(2 * time.Minute)
	_, ok, err := b.Get(ctx, "answer:abc")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisBackend_ServerDown(t *testing.T) {
	b, mr := newRedisBackend(t)
	mr.Close()

	_, _, err := b.Get(context.Background(), "k")
	assert.Error(t, err)
}

func TestNewRedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	b, err := NewRedisBackend(context.Background(), "redis://"+mr.Addr()+"/0", "")
	require.NoError(t, err)
	defer b.Close()
	assert.Equal(t, "gridiron:", b.prefix)

	_, err = NewRedisBackend(context.Background(), "://bad", "")
	assert.Error(t, err)
}
