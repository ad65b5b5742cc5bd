package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyIsStableAndPrefixed(t *testing.T) {
	a := Key("query", "what fico score is required")
	b := Key("query", "what fico score is required")
	c := Key("summary", "what fico score is required")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Contains(t, a, "query:")
}

func TestRistrettoSetGet(t *testing.T) {
	c, err := NewRistretto(1 << 20)
	require.NoError(t, err)
	defer c.Close()

	c.Set("k", []float32{1, 2, 3}, time.Minute)

	// Ristretto admits entries asynchronously.
	var v any
	var ok bool
	for i := 0; i < 100 && !ok; i++ {
		time.Sleep(time.Millisecond)
		v, ok = c.Get("k")
	}
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2, 3}, v)
}

func TestRistrettoTTLExpiry(t *testing.T) {
	c, err := NewRistretto(1 << 20)
	require.NoError(t, err)
	defer c.Close()

	c.Set("k", "v", 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestDisabledNeverStores(t *testing.T) {
	c := Disabled{}
	c.Set("k", "v", time.Minute)
	_, ok := c.Get("k")
	assert.False(t, ok)
}
