package inbox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tijdlijn/internal/core/domain"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestReadRecords_JSONWithSourceFieldNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kst-36410-1.json")
	writeFile(t, path, `{
		"id": "kst-36410-1",
		"titel": "Kamerbrief over de begroting",
		"beschikbaarVanaf": "2024-03-01T10:00:00+01:00",
		"documentsoort": "Kamerstuk",
		"dossierNummer": 36410,
		"organisatie": {"naam": "Ministerie van Financiën"},
		"url": "https://example.org/kst-36410-1",
		"inhoud": "<p>De minister schrijft.</p>",
		"taal": "nl"
	}`)

	docs, err := readRecords(path)

	require.NoError(t, err)
	require.Len(t, docs, 1)
	doc := docs[0]
	assert.Equal(t, path, doc.URI)
	assert.Equal(t, "text/html", doc.MIMEType)
	assert.Equal(t, "<p>De minister schrijft.</p>", string(doc.Content))
	assert.Equal(t, map[string]any{
		domain.MetaID:           "kst-36410-1",
		domain.MetaTitle:        "Kamerbrief over de begroting",
		domain.MetaPublished:    "2024-03-01T10:00:00+01:00",
		domain.MetaDocType:      "Kamerstuk",
		domain.MetaCaseID:       "36410",
		domain.MetaOrganisation: "Ministerie van Financiën",
		domain.MetaURL:          "https://example.org/kst-36410-1",
		"taal":                  "nl",
	}, doc.Metadata)
}

func TestReadRecords_YAMLList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.yaml")
	writeFile(t, path, `
- id: a
  title: Eerste besluit
  published: "2024-03-01"
  case_id: woo-1
  content: Tekst een.
- id: b
  title: Tweede besluit
  case_id: woo-1
  content: Tekst twee.
  mime_type: text/markdown
`)

	docs, err := readRecords(path)

	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, path+"#0", docs[0].URI)
	assert.Equal(t, path+"#1", docs[1].URI)
	assert.Equal(t, "text/plain", docs[0].MIMEType)
	assert.Equal(t, "text/markdown", docs[1].MIMEType)
	assert.Equal(t, "2024-03-01", docs[0].Metadata[domain.MetaPublished])
	assert.NotContains(t, docs[1].Metadata, domain.MetaPublished)
	assert.NotContains(t, docs[1].Metadata, "mime_type")
}

func TestReadRecords_ContentFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "bodies", "besluit.html"), "<html><body><p>Besluit.</p></body></html>")
	path := filepath.Join(dir, "besluit.json")
	writeFile(t, path, `{"id": "x", "content_file": "bodies/besluit.html"}`)

	docs, err := readRecords(path)

	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "text/html", docs[0].MIMEType)
	assert.Contains(t, string(docs[0].Content), "Besluit.")
	assert.NotContains(t, docs[0].Metadata, "content_file")
}

func TestReadRecords_ContentFileDOCX(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "bijlagen", "Besluit.DOCX"), "PK\x03\x04")
	path := filepath.Join(dir, "besluit.json")
	writeFile(t, path, `{"id": "x", "content_file": "bijlagen/Besluit.DOCX"}`)

	docs, err := readRecords(path)

	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", docs[0].MIMEType)
}

func TestReadRecords_CaseVariantKeysResolveDeterministically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dubbel.json")
	writeFile(t, path, `{"id": "x", "content": "kleine letter", "Content": "hoofdletter", "TITLE": "Eerste", "title": "Tweede"}`)

	for range 20 {
		docs, err := readRecords(path)

		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "hoofdletter", string(docs[0].Content))
		assert.Equal(t, "Eerste", docs[0].Metadata[domain.MetaTitle])
	}
}

func TestLookup_PrefersEarlierName(t *testing.T) {
	rec := map[string]any{"body": "b", "Inhoud": "i", "text": nil}

	value, key, ok := lookup(rec, contentFields...)

	require.True(t, ok)
	assert.Equal(t, "Inhoud", key)
	assert.Equal(t, "i", value)
}

func TestReadRecords_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		file    string
		content string
		want    string
	}{
		{"invalid json", "a.json", `{"id": `, "decode"},
		{"list of scalars", "b.json", `[1, 2]`, "not an object"},
		{"scalar document", "c.yaml", `just text`, "expected an object"},
		{"missing content file", "d.json", `{"content_file": "nope.html"}`, "read content file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			writeFile(t, path, tt.content)

			_, err := readRecords(path)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestReadRecords_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	writeFile(t, path, "")

	docs, err := readRecords(path)

	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestIsRecordFile(t *testing.T) {
	assert.True(t, isRecordFile("a.json"))
	assert.True(t, isRecordFile("a.YAML"))
	assert.True(t, isRecordFile("dir/a.yml"))
	assert.False(t, isRecordFile("a.html"))
	assert.False(t, isRecordFile("json"))
}

func TestIsHidden(t *testing.T) {
	assert.True(t, isHidden("/inbox/.a.json"))
	assert.True(t, isHidden("/inbox/a.json~"))
	assert.False(t, isHidden("/inbox/a.json"))
	assert.False(t, isHidden("/.config/inbox/a.json"))
}

func TestSniffMIMEType(t *testing.T) {
	tests := []struct {
		content string
		want    string
	}{
		{"<!DOCTYPE html><html></html>", "text/html"},
		{"  <html><body>x</body></html>", "text/html"},
		{"<p>tekst</p>", "text/html"},
		{"gewone tekst", "text/plain"},
		{"a < b", "text/plain"},
		{"", "text/plain"},
		{strings.Repeat("x", 2000), "text/plain"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, sniffMIMEType([]byte(tt.content)), tt.content)
	}
}
