package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCache(ttl time.Duration) *QueryCache {
	return New(ttl, zap.NewNop())
}

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Top Products", "top products"},
		{"  top   products  ", "top products"},
		{"TOP\tPRODUCTS\n", "top products"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeKey(tt.in))
	}
}

func TestGetSet(t *testing.T) {
	c := newTestCache(time.Minute)

	_, ok := c.Get("top products")
	assert.False(t, ok, "unexpected hit on empty cache")

	c.Set("Top Products", "payload")
	got, ok := c.Get("  top   PRODUCTS ")
	require.True(t, ok, "expected hit for normalized equivalent query")
	assert.Equal(t, "payload", got)
}

func TestLazyExpiry(t *testing.T) {
	c := newTestCache(time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set("q", 1)
	_, ok := c.Get("q")
	require.True(t, ok, "expected hit before expiry")

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("q")
	assert.False(t, ok, "expected miss after TTL")
	assert.Equal(t, 0, c.Len(), "expired entry not removed")
}

func TestClearTwice(t *testing.T) {
	c := newTestCache(time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	assert.Equal(t, 2, c.Clear())
	assert.Equal(t, 0, c.Clear())
}

func TestDefaultTTL(t *testing.T) {
	c := newTestCache(0)
	assert.Equal(t, DefaultTTL, c.ttl)
}
