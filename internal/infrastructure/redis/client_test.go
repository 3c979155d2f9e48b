package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/marketplace-auth/internal/domain"
)

func TestClient_Ping(t *testing.T) {
	mr := miniredis.RunT(t)
	c := New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = c.Close() })

	require.NoError(t, c.Ping(context.Background()))

	mr.Close()
	err := c.Ping(context.Background())
	require.Error(t, err)
	assert.True(t, domain.Is(err, "redis_unavailable"))
}

func TestClient_Ping_FailsFast(t *testing.T) {
	c := New("127.0.0.1:1", "", 0)
	t.Cleanup(func() { _ = c.Close() })

	start := time.Now()
	err := c.Ping(context.Background())
	require.Error(t, err)
	assert.Equal(t, domain.KindInfrastructure, domain.KindOf(err))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestNew_AcceptsURL(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.RequireAuth("pw")

	c := New("redis://:pw@"+mr.Addr()+"/2", "", 0)
	t.Cleanup(func() { _ = c.Close() })

	assert.Equal(t, mr.Addr(), c.Addr())
	require.NoError(t, c.Ping(context.Background()))
	assert.Equal(t, 2, c.rdb.Options().DB)
}

func TestNew_ExplicitSettingsOverrideURL(t *testing.T) {
	c := New("redis://:from-url@localhost:6380/1", "explicit", 3)
	t.Cleanup(func() { _ = c.Close() })

	opts := c.rdb.Options()
	assert.Equal(t, "localhost:6380", opts.Addr)
	assert.Equal(t, "explicit", opts.Password)
	assert.Equal(t, 3, opts.DB)
}

func TestClient_Close_Idempotent(t *testing.T) {
	c := New("127.0.0.1:1", "", 0)
	require.NoError(t, c.Close())
	_ = c.Close()
}
