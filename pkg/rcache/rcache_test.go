package rcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInMemorySetGet(t *testing.T) {
	c := NewInMemory()
	require.NoError(t, c.Set("k", "v", time.Minute))

	v, ok, err := c.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", v)
}

func TestInMemoryMiss(t *testing.T) {
	c := NewInMemory()
	_, ok, err := c.Get("missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestInMemoryExpiry(t *testing.T) {
	c := NewInMemory()
	require.NoError(t, c.Set("k", "v", time.Millisecond))
	time.Sleep(10 * time.Millisecond)

	_, ok, err := c.Get("k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestInMemoryNoTTLNeverExpires(t *testing.T) {
	c := NewInMemory()
	require.NoError(t, c.Set("k", "v", 0))
	time.Sleep(10 * time.Millisecond)

	v, ok, err := c.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", v)
}
