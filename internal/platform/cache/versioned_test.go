package cache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Versioned {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewVersioned(client, "reports", time.Minute)
}

func TestFetchJSONCachesUntilBump(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	calls := 0
	loader := func(context.Context) (any, error) {
		calls++
		return map[string]int{"calls": calls}, nil
	}

	key, err := c.BuildKey(ctx, "dashboard", "2026-01")
	require.NoError(t, err)
	require.Equal(t, "reports:dashboard:2026-01:1", key)

	var out map[string]int
	require.NoError(t, c.FetchJSON(ctx, key, &out, loader))
	require.NoError(t, c.FetchJSON(ctx, key, &out, loader))
	require.Equal(t, 1, calls)
	require.Equal(t, 1, out["calls"])

	require.NoError(t, c.Bump(ctx))
	key, err = c.BuildKey(ctx, "dashboard", "2026-01")
	require.NoError(t, err)
	require.Equal(t, "reports:dashboard:2026-01:2", key)
	require.NoError(t, c.FetchJSON(ctx, key, &out, loader))
	require.Equal(t, 2, calls)
	require.Equal(t, 2, out["calls"])
}

func TestNilClientPassesThrough(t *testing.T) {
	c := NewVersioned(nil, "settings", time.Minute)
	ctx := context.Background()

	key, err := c.BuildKey(ctx, "all")
	require.NoError(t, err)
	require.Equal(t, "settings:all", key)

	var out []string
	require.NoError(t, c.FetchJSON(ctx, key, &out, func(context.Context) (any, error) {
		return []string{"a"}, nil
	}))
	require.Equal(t, []string{"a"}, out)
	require.NoError(t, c.Bump(ctx))
}

func TestSubscribeReceivesBumps(t *testing.T) {
	c := newTestCache(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan int64, 1)
	require.NoError(t, c.Subscribe(ctx, func(v int64) { got <- v }))
	require.NoError(t, c.Bump(ctx))

	select {
	case v := <-got:
		require.EqualValues(t, 1, v)
	case <-time.After(2 * time.Second):
		t.Fatal("bump not delivered")
	}
}
