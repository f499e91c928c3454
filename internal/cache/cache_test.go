package cache_test

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-billing/internal/cache"
)

func TestJSONRoundTripAndExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	c := cache.New(client, time.Minute)
	ctx := context.Background()

	var got []string
	ok, err := c.Get(ctx, cache.KeyItems, &got)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Set(ctx, cache.KeyItems, []string{"hammer", "nails"}))
	ok, err = c.Get(ctx, cache.KeyItems, &got)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []string{"hammer", "nails"}, got)

	mr.FastForward(2 * time.Minute)
	ok, err = c.Get(ctx, cache.KeyItems, &got)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDeletePrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	c := cache.New(client, time.Minute)
	ctx := context.Background()

	for _, k := range []string{"daily", "weekly", "monthly"} {
		require.NoError(t, c.Set(ctx, cache.PrefixReport+k, 1))
	}
	require.NoError(t, c.Set(ctx, cache.KeyItems, 1))

	n, err := c.DeletePrefix(ctx, cache.PrefixReport)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.True(t, mr.Exists(cache.KeyItems))
}

func TestNilClientIsNoop(t *testing.T) {
	c := cache.New(nil, time.Minute)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", 1))
	var v int
	ok, err := c.Get(ctx, "k", &v)
	require.NoError(t, err)
	require.False(t, ok)
	n, err := c.DeletePrefix(ctx, "k")
	require.NoError(t, err)
	require.Zero(t, n)
}
