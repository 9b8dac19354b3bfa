package file

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfigStore(t *testing.T) (*ConfigStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	return store, dir
}

func TestNewConfigStore_Success(t *testing.T) {
	store, dir := newTestConfigStore(t)

	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(dir, "config.toml"), store.Path())

	// No file is written until something is set.
	_, err := os.Stat(store.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestNewConfigStore_WithNestedDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", ".tijdlijn")

	store, err := NewConfigStore(dir)

	require.NoError(t, err)
	assert.DirExists(t, dir)
	assert.Equal(t, filepath.Join(dir, "config.toml"), store.Path())
}

func TestNewConfigStore_MkdirAllError(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0600))

	_, err := NewConfigStore(filepath.Join(blocker, "config"))

	assert.Error(t, err)
}

func TestNewConfigStore_CorruptedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[llm\nprovider = "), 0600))

	_, err := NewConfigStore(dir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store, _ := newTestConfigStore(t)
	require.NoError(t, store.Set("llm.provider", "mistral"))
	require.NoError(t, store.Set("pipeline.max_chunk_size", 4000))
	require.NoError(t, store.Set("pipeline.temperature", 0.7))
	require.NoError(t, store.Set("pipeline.describe_timeline", true))

	assert.Equal(t, "mistral", store.GetString("llm.provider"))
	assert.Equal(t, 4000, store.GetInt("pipeline.max_chunk_size"))
	assert.InDelta(t, 0.7, store.GetFloat("pipeline.temperature"), 1e-9)
	assert.InDelta(t, 4000, store.GetFloat("pipeline.max_chunk_size"), 1e-9)
	assert.True(t, store.GetBool("pipeline.describe_timeline"))

	// Wrong types and missing keys give zero values.
	assert.Equal(t, "", store.GetString("pipeline.max_chunk_size"))
	assert.Equal(t, 0, store.GetInt("llm.provider"))
	assert.Zero(t, store.GetFloat("llm.provider"))
	assert.False(t, store.GetBool("llm.provider"))
	_, ok := store.Get("llm.api_key")
	assert.False(t, ok)
}

func TestConfigStore_WritesTables(t *testing.T) {
	store, _ := newTestConfigStore(t)
	require.NoError(t, store.Set("llm.provider", "ollama"))
	require.NoError(t, store.Set("pipeline.date_granularity", "month"))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)

	content := string(data)
	assert.Contains(t, content, "[llm]")
	assert.Contains(t, content, "[pipeline]")
	assert.Regexp(t, `provider = ['"]ollama['"]`, content)
	assert.Regexp(t, `date_granularity = ['"]month['"]`, content)
}

func TestConfigStore_Persistence(t *testing.T) {
	store1, dir := newTestConfigStore(t)
	require.NoError(t, store1.Set("llm.model", "mistral-small-latest"))
	require.NoError(t, store1.Set("pipeline.chunk_overlap", 200))
	require.NoError(t, store1.Set("pipeline.temperature", 0.0))
	require.NoError(t, store1.Set("pipeline.backoff_base", "2s"))

	store2, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, "mistral-small-latest", store2.GetString("llm.model"))
	assert.Equal(t, 200, store2.GetInt("pipeline.chunk_overlap"))
	_, ok := store2.Get("pipeline.temperature")
	assert.True(t, ok)
	assert.Zero(t, store2.GetFloat("pipeline.temperature"))
	assert.Equal(t, "2s", store2.GetString("pipeline.backoff_base"))
}

func TestConfigStore_LoadsHandWrittenFile(t *testing.T) {
	dir := t.TempDir()
	content := `
[llm]
provider = "anthropic"

[pipeline]
max_chunk_size = 6000
temperature = 1
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(dir)

	require.NoError(t, err)
	assert.Equal(t, "anthropic", store.GetString("llm.provider"))
	assert.Equal(t, 6000, store.GetInt("pipeline.max_chunk_size"))
	assert.InDelta(t, 1.0, store.GetFloat("pipeline.temperature"), 1e-9)
}

func TestConfigStore_Load_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), nil, 0600))

	store, err := NewConfigStore(dir)

	require.NoError(t, err)
	_, ok := store.Get("llm.provider")
	assert.False(t, ok)
}

func TestConfigStore_SetConflictingKey(t *testing.T) {
	store, _ := newTestConfigStore(t)
	require.NoError(t, store.Set("llm.provider", "ollama"))

	err := store.Set("llm", "flat")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "conflicts")
}

func TestConfigStore_FilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes are not enforced on windows")
	}
	store, _ := newTestConfigStore(t)
	require.NoError(t, store.Set("llm.api_key", "secret"))

	info, err := os.Stat(store.Path())

	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_Save_Explicit(t *testing.T) {
	store, _ := newTestConfigStore(t)

	require.NoError(t, store.Save())

	assert.FileExists(t, store.Path())
	assert.NoFileExists(t, store.Path()+".tmp")
}

func TestUnflattenMap(t *testing.T) {
	nested, err := unflattenMap(map[string]any{
		"llm.provider":            "ollama",
		"pipeline.max_chunk_size": 4000,
		"top":                     true,
	})

	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"llm":      map[string]any{"provider": "ollama"},
		"pipeline": map[string]any{"max_chunk_size": 4000},
		"top":      true,
	}, nested)

	assert.Equal(t, map[string]any{
		"llm.provider":            "ollama",
		"pipeline.max_chunk_size": 4000,
		"top":                     true,
	}, flattenMap(nested, ""))
}
