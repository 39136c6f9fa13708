package cache

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUCache_Basic(t *testing.T) {
	c := New(Options{MaxSize: 3})

	c.Set("a", "value_a")
	c.Set("b", "value_b")
	c.Set("c", "value_c")

	assert.Equal(t, 3, c.Len())

	val, found := c.Get("a")
	require.True(t, found)
	assert.Equal(t, "value_a", val)

	val, found = c.Get("b")
	require.True(t, found)
	assert.Equal(t, "value_b", val)
}

func TestLRUCache_LRU_Eviction(t *testing.T) {
	c := New(Options{MaxSize: 3})

	c.Set("a", "value_a")
	c.Set("b", "value_b")
	c.Set("c", "value_c")

	// Access 'a' to make it most recently used
	c.Get("a")

	// Add new item - should evict 'b' (least recently used)
	c.Set("d", "value_d")

	assert.Equal(t, 3, c.Len())

	_, found := c.Get("b")
	assert.False(t, found, "b should have been evicted")

	_, found = c.Get("a")
	assert.True(t, found, "a should still be present")

	_, found = c.Get("c")
	assert.True(t, found, "c should still be present")

	_, found = c.Get("d")
	assert.True(t, found, "d should be present")
}

func TestLRUCache_Delete(t *testing.T) {
	c := New(Options{MaxSize: 10})

	c.Set("a", "value_a")
	c.Set("b", "value_b")

	c.Delete("a")

	assert.Equal(t, 1, c.Len())

	_, found := c.Get("a")
	assert.False(t, found)

	val, found := c.Get("b")
	require.True(t, found)
	assert.Equal(t, "value_b", val)
}

func TestLRUCache_Clear(t *testing.T) {
	c := New(Options{MaxSize: 10})

	c.Set("a", "value_a")
	c.Set("b", "value_b")

	c.Clear()

	assert.Equal(t, 0, c.Len())
}

func TestLRUCache_SaveLoad(t *testing.T) {
	c := New(Options{MaxSize: 10})
	c.Set("key1", "value1")
	c.Set("key2", "value2")

	var buf bytes.Buffer
	err := c.Save(&buf)
	require.NoError(t, err)

	c2 := New(Options{MaxSize: 10})
	err = c2.Load(&buf)
	require.NoError(t, err)

	assert.Equal(t, 2, c2.Len())

	val, found := c2.Get("key1")
	require.True(t, found)
	assert.Equal(t, "value1", val)
}

func TestLRUCache_MaxBytes(t *testing.T) {
	c := New(Options{MaxBytes: 50})

	// Each string is roughly 10 bytes
	c.Set("a", "1234567890")
	c.Set("b", "1234567890")
	c.Set("c", "1234567890")

	// 30 bytes in total stay under the 50-byte limit, so nothing is evicted
	assert.LessOrEqual(t, c.Len(), 3)
}

func TestLRUCache_Update(t *testing.T) {
	c := New(Options{MaxSize: 10})

	c.Set("a", "value1")
	c.Set("a", "value2")

	val, found := c.Get("a")
	require.True(t, found)
	assert.Equal(t, "value2", val)

	assert.Equal(t, 1, c.Len())
}

func TestShardedCache(t *testing.T) {
	sc := NewShardedCache(4, Options{MaxSize: 100})

	sc.Set("key1", "value1")
	sc.Set("key2", "value2")

	val, found := sc.Get("key1")
	require.True(t, found)
	assert.Equal(t, "value1", val)

	val, found = sc.Get("key2")
	require.True(t, found)
	assert.Equal(t, "value2", val)

	assert.Equal(t, 2, sc.Len())

	sc.Delete("key1")
	assert.Equal(t, 1, sc.Len())
}

func TestPersistedFileDoesNotExist(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "nonexistent.cache")

	c := New(Options{MaxSize: 10})

	err := LoadFromFile(c, path)
	require.NoError(t, err, "loading non-existent file should not error")

	assert.Equal(t, 0, c.Len())
}

func TestCacheInterface(t *testing.T) {
	c := New(Options{MaxSize: 10})

	var _ Cache = c
}

func TestStatsCache(t *testing.T) {
	sc := NewStatsCache(Options{MaxSize: 10})

	sc.Set("key1", "value1")
	sc.Get("key1")
	sc.Get("key2")

	stats := sc.Stats()
	assert.Equal(t, int64(1), stats.HitCount)
	assert.Equal(t, int64(1), stats.MissCount)

	assert.Equal(t, 0.5, sc.HitRate())

	sc.ResetStats()

	stats = sc.Stats()
	assert.Equal(t, int64(0), stats.HitCount)
}
