package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore(t *testing.T) {
	store := NewConfigStore()

	require.NotNil(t, store)
	assert.Empty(t, store.Values())
	assert.Equal(t, ":memory:", store.Path())
}

func TestNewConfigStoreFrom_CopiesValues(t *testing.T) {
	seed := map[string]any{"llm.provider": "mistral"}

	store := NewConfigStoreFrom(seed)
	seed["llm.provider"] = "openai"

	assert.Equal(t, "mistral", store.GetString("llm.provider"))
}

func TestConfigStore_SetAndGet(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("llm.model", "mistral-small-latest"))
	require.NoError(t, store.Set("llm.model", "mistral-large-latest"))

	val, ok := store.Get("llm.model")
	assert.True(t, ok)
	assert.Equal(t, "mistral-large-latest", val)

	_, ok = store.Get("llm.api_key")
	assert.False(t, ok)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := NewConfigStoreFrom(map[string]any{
		"string":      "dag",
		"int":         4000,
		"int64":       int64(200),
		"whole_float": float64(3),
		"frac_float":  0.7,
		"bool":        true,
	})

	tests := []struct {
		key       string
		wantStr   string
		wantInt   int
		wantFloat float64
		wantBool  bool
	}{
		{key: "string", wantStr: "dag"},
		{key: "int", wantInt: 4000, wantFloat: 4000},
		{key: "int64", wantInt: 200, wantFloat: 200},
		{key: "whole_float", wantInt: 3, wantFloat: 3},
		{key: "frac_float", wantFloat: 0.7},
		{key: "bool", wantBool: true},
		{key: "missing"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.wantStr, store.GetString(tt.key))
			assert.Equal(t, tt.wantInt, store.GetInt(tt.key))
			assert.InDelta(t, tt.wantFloat, store.GetFloat(tt.key), 1e-9)
			assert.Equal(t, tt.wantBool, store.GetBool(tt.key))
		})
	}
}

func TestConfigStore_ValuesIsACopy(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("a", 1))

	values := store.Values()
	values["a"] = 2

	assert.Equal(t, 1, store.GetInt("a"))
}

func TestConfigStore_SaveAndLoadAreNoOps(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("a", "b"))

	assert.NoError(t, store.Save())
	assert.NoError(t, store.Load())
	assert.Equal(t, "b", store.GetString("a"))
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := NewConfigStore()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = store.Set(fmt.Sprintf("key.%d", i), i)
		}(i)
		go func(i int) {
			defer wg.Done()
			_ = store.GetInt(fmt.Sprintf("key.%d", i))
		}(i)
	}
	wg.Wait()

	assert.Len(t, store.Values(), 50)
	assert.Equal(t, 49, store.GetInt("key.49"))
}
