package plaintext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tijdlijn/internal/core/domain"
)

func TestNew(t *testing.T) {
	normaliser := New()
	require.NotNil(t, normaliser)
	assert.IsType(t, &Normaliser{}, normaliser)
}

func TestSupportedMIMETypes(t *testing.T) {
	mimeTypes := New().SupportedMIMETypes()

	assert.Contains(t, mimeTypes, "text/plain")
	assert.NotContains(t, mimeTypes, "text/html")
}

func TestNormalise(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unchanged", "Eerste alinea.\n\nTweede alinea.", "Eerste alinea.\n\nTweede alinea."},
		{"crlf", "regel een\r\nregel twee\rregel drie", "regel een\nregel twee\nregel drie"},
		{"bom", "\ufeffBesluit", "Besluit"},
		{"trailing whitespace", "  tekst \t\nmeer  \n\n", "tekst\nmeer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := New().Normalise(context.Background(), &domain.RawDocument{
				URI:     "inbox/a.txt",
				Content: []byte(tt.content),
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Content)
			assert.Empty(t, result.Title)
		})
	}
}

func TestNormalise_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		cause   error
	}{
		{"empty", nil, domain.ErrEmptyContent},
		{"whitespace", []byte(" \n\t "), domain.ErrEmptyContent},
		{"bom only", []byte("\ufeff"), domain.ErrEmptyContent},
		{"invalid utf8", []byte("ok \xff\xfe"), domain.ErrUndecodable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().Normalise(context.Background(), &domain.RawDocument{URI: "inbox/a.txt", Content: tt.content})
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrParsing)
			assert.ErrorIs(t, err, tt.cause)
		})
	}

	_, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
