package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFastCacheSetGet(t *testing.T) {
	c := newFastCache(1024 * 1024)
	require.NoError(t, c.Set("k", "v", time.Minute))

	v, ok, err := c.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", v)
}

func TestFastCacheMiss(t *testing.T) {
	c := newFastCache(1024 * 1024)
	_, ok, err := c.Get("missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFastCacheExpiry(t *testing.T) {
	c := newFastCache(1024 * 1024)
	require.NoError(t, c.Set("k", "v", time.Millisecond))
	time.Sleep(10 * time.Millisecond)

	_, ok, err := c.Get("k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFastCacheNoTTLNeverExpires(t *testing.T) {
	c := newFastCache(1024 * 1024)
	require.NoError(t, c.Set("k", "v", 0))

	v, ok, err := c.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", v)
}
