package memory

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_Seeded(t *testing.T) {
	store := NewConfigStore(map[string]any{"retrieval.top_k": 4}, map[string]any{"llm.model": "m"})

	assert.Equal(t, 4, store.GetInt("retrieval.top_k"))
	assert.Equal(t, "m", store.GetString("llm.model"))
	assert.Equal(t, ":memory:", store.Path())
}

func TestConfigStore_TypeConversions(t *testing.T) {
	store := NewConfigStore(map[string]any{
		"int64":  int64(7),
		"float":  2.5,
		"intstr": "12",
		"fstr":   "0.5",
		"bstr":   "true",
		"slice":  []any{"a", 1, "b"},
	})

	assert.Equal(t, 7, store.GetInt("int64"))
	assert.Equal(t, 2, store.GetInt("float"))
	assert.Equal(t, 12, store.GetInt("intstr"))
	assert.InDelta(t, 7.0, store.GetFloat("int64"), 1e-9)
	assert.InDelta(t, 0.5, store.GetFloat("fstr"), 1e-9)
	assert.True(t, store.GetBool("bstr"))
	assert.Equal(t, []string{"a", "b"}, store.GetStringSlice("slice"))

	assert.Empty(t, store.GetString("missing"))
	assert.Zero(t, store.GetInt("missing"))
	assert.False(t, store.GetBool("missing"))
	assert.Nil(t, store.GetStringSlice("missing"))
}

func TestConfigStore_SetAndSave(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("k", "v"))
	require.NoError(t, store.Save())
	require.NoError(t, store.Load())

	val, ok := store.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", val)
	assert.Equal(t, 1, store.Saves())
}

func TestConfigStore_ConcurrentAccess(t *testing.T) {
	store := NewConfigStore()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = store.Set("key", n)
		}(i)
		go func() {
			defer wg.Done()
			_ = store.GetInt("key")
		}()
	}
	wg.Wait()
}
