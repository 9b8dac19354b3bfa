package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tijdlijn/internal/core/domain"
	"github.com/custodia-labs/tijdlijn/internal/core/ports/driven"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *LLMService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewLLMService(LLMConfig{BaseURL: server.URL, Model: "mistral"})
}

func TestNewLLMService_Defaults(t *testing.T) {
	svc := NewLLMService(LLMConfig{})

	assert.Equal(t, DefaultLLMModel, svc.ModelName())
	assert.Equal(t, DefaultBaseURL, svc.baseURL)
	assert.Equal(t, DefaultLLMTimeout, svc.client.Timeout)
}

func TestLLMService_Complete(t *testing.T) {
	var got generateRequest
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"response": "Samenvatting.", "done": true}`))
	})

	out, err := svc.Complete(context.Background(), "Vat samen.", driven.CompletionOptions{MaxOutputSize: 128, Temperature: 0.1})

	require.NoError(t, err)
	assert.Equal(t, "Samenvatting.", out)
	assert.Equal(t, "mistral", got.Model)
	assert.False(t, got.Stream)
	assert.Equal(t, 128, got.Options.NumPredict)
	assert.InDelta(t, 0.1, got.Options.Temperature, 1e-9)
}

func TestLLMService_Complete_ModelMissing(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": "model 'mistral' not found"}`))
	})

	_, err := svc.Complete(context.Background(), "x", driven.CompletionOptions{})

	assert.ErrorIs(t, err, domain.ErrUnrecoverable)
	assert.Contains(t, err.Error(), "model 'mistral' not found")
}

func TestLLMService_Complete_Cancelled(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"response": "x"}`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Complete(ctx, "x", driven.CompletionOptions{})

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, domain.IsTransient(err))
}

func TestLLMService_Ping(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	err := svc.Ping(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}
