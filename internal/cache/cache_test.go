package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/dimiscan/internal/model"
)

func TestKey(t *testing.T) {
	a := Key("bert", "cpu", "101 2001 102")
	b := Key("bert", "cpu", "101 2001 102")
	c := Key("bert", "cuda", "101 2001 102")
	d := Key("bertc", "pu", "101 2001 102")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d, "parts are separated")
	assert.Contains(t, a, "dimiscan:v1:")
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	_, ok := c.Get("k")
	assert.False(t, ok)

	require.NoError(t, c.Set("k", []byte("v"), 0))
	got, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, c.Delete("k"))
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestDiskCache_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	key := Key("x")

	require.NoError(t, c.Set(key, []byte(`[0.5,-1]`), 0))

	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, []byte(`[0.5,-1]`), got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files left behind")
	assert.NotContains(t, entries[0].Name(), ":")
}

func TestDiskCache_Expired(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)
	require.NoError(t, c.Set("k", []byte("v"), time.Nanosecond))
	time.Sleep(time.Millisecond)

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestDiskCache_DeleteMissing(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)
	assert.NoError(t, c.Delete("nope"))
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, NewDiskCache(dir, time.Hour).Set("k", []byte("v"), 0))

	c := NewLayeredCache(time.Minute, dir, time.Hour)
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, os.RemoveAll(dir))
	got, ok = c.Get("k")
	assert.True(t, ok, "served from memory after promotion")
	assert.Equal(t, []byte("v"), got)
}

func TestLayeredCache_Clear(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	c := NewLayeredCache(time.Minute, dir, time.Hour)
	require.NoError(t, c.Set("k", []byte("v"), 0))

	require.NoError(t, c.Clear())
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestNew(t *testing.T) {
	assert.Nil(t, New(model.CacheConfig{Enabled: false}))

	c := New(model.CacheConfig{Enabled: true, Dir: t.TempDir(), MemoryTTL: time.Minute, DiskTTL: time.Hour})
	assert.IsType(t, &LayeredCache{}, c)
}

func TestMemoryCache_CopiesValues(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	val := []byte("abc")
	require.NoError(t, c.Set("k", val, 0))
	val[0] = 'x'

	got, _ := c.Get("k")
	assert.Equal(t, []byte("abc"), got)
	got[1] = 'y'

	again, _ := c.Get("k")
	assert.Equal(t, []byte("abc"), again)
	assert.Equal(t, 1, c.Len())
}

func TestLayeredCache_LayersKeepTheirOwnTTL(t *testing.T) {
	c := NewLayeredCache(20*time.Millisecond, t.TempDir(), time.Hour)
	require.NoError(t, c.Set("k", []byte("v"), 7*24*time.Hour))

	time.Sleep(60 * time.Millisecond)

	_, inMemory := c.memory.Get("k")
	assert.False(t, inMemory, "memory entries expire after the memory TTL")

	got, ok := c.Get("k")
	require.True(t, ok, "disk entry still valid")
	assert.Equal(t, []byte("v"), got)
	assert.Equal(t, Stats{DiskHits: 1}, c.Stats())
}

func TestLayeredCache_ShortTTLWinsInMemory(t *testing.T) {
	c := NewLayeredCache(time.Hour, t.TempDir(), time.Hour)
	assert.Equal(t, time.Minute, c.memoryLifetime(time.Minute))
	assert.Equal(t, time.Hour, c.memoryLifetime(0))
	assert.Equal(t, time.Hour, c.memoryLifetime(24*time.Hour))

	unset := NewLayeredCache(0, t.TempDir(), time.Hour)
	assert.Equal(t, time.Minute, unset.memoryLifetime(time.Minute))
}

func TestLayeredCache_Stats(t *testing.T) {
	c := NewLayeredCache(time.Minute, t.TempDir(), time.Hour)
	_, _ = c.Get("missing")
	require.NoError(t, c.Set("k", []byte("v"), 0))
	_, _ = c.Get("k")
	_, _ = c.Get("k")

	assert.Equal(t, Stats{MemoryHits: 2, Misses: 1}, c.Stats())
	LogStats(c)
	LogStats(nil)
}
