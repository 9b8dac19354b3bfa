package inbox

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/tijdlijn/internal/core/domain"
)

// fieldAliases maps source field names onto canonical metadata keys.
var fieldAliases = map[string]string{
	"id":               domain.MetaID,
	"identifier":       domain.MetaID,
	"title":            domain.MetaTitle,
	"titel":            domain.MetaTitle,
	"published":        domain.MetaPublished,
	"published_at":     domain.MetaPublished,
	"beschikbaarvanaf": domain.MetaPublished,
	"datum":            domain.MetaPublished,
	"date":             domain.MetaPublished,
	"type":             domain.MetaDocType,
	"documentsoort":    domain.MetaDocType,
	"doc_type":         domain.MetaDocType,
	"case_id":          domain.MetaCaseID,
	"dossiernummer":    domain.MetaCaseID,
	"dossier":          domain.MetaCaseID,
	"organisation":     domain.MetaOrganisation,
	"organisatie":      domain.MetaOrganisation,
	"url":              domain.MetaURL,
	"link":             domain.MetaURL,
}

// Body and format fields are consumed, not kept as metadata.
var (
	contentFields     = []string{"content", "inhoud", "text", "body"}
	contentFileFields = []string{"content_file", "contentfile"}
	mimeFields        = []string{"mime_type", "mimetype", "content_type"}
)

// extMIMETypes maps body file extensions to MIME types.
var extMIMETypes = map[string]string{
	".html":     "text/html",
	".htm":      "text/html",
	".xhtml":    "application/xhtml+xml",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".txt":      "text/plain",
	".docx":     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// isRecordFile reports whether path has a record file extension.
func isRecordFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// isHidden reports whether the base name is a dotfile or an editor backup.
func isHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~")
}

// readRecords decodes a record file into raw documents.
func readRecords(path string) ([]domain.RawDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var decoded any
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &decoded)
	} else {
		err = yaml.Unmarshal(data, &decoded)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	var records []map[string]any
	switch v := decoded.(type) {
	case map[string]any:
		records = []map[string]any{v}
	case []any:
		for i, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("decode %s: record %d is not an object", path, i)
			}
			records = append(records, m)
		}
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("decode %s: expected an object or a list of objects", path)
	}

	docs := make([]domain.RawDocument, 0, len(records))
	for i, rec := range records {
		uri := path
		if len(records) > 1 {
			uri = path + "#" + strconv.Itoa(i)
		}
		doc, err := toRawDocument(uri, filepath.Dir(path), rec)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// toRawDocument maps one decoded record onto a RawDocument.
func toRawDocument(uri, dir string, rec map[string]any) (domain.RawDocument, error) {
	raw := domain.RawDocument{
		URI:      uri,
		Metadata: make(map[string]any, len(rec)),
	}
	consumed := make(map[string]bool)

	if body, key, ok := lookup(rec, contentFields...); ok {
		raw.Content = []byte(scalar(body))
		consumed[key] = true
	} else if file, key, ok := lookup(rec, contentFileFields...); ok {
		consumed[key] = true
		name := scalar(file)
		if !filepath.IsAbs(name) {
			name = filepath.Join(dir, name)
		}
		content, err := os.ReadFile(name)
		if err != nil {
			return raw, fmt.Errorf("record %s: read content file: %w", uri, err)
		}
		raw.Content = content
		raw.MIMEType = extMIMETypes[strings.ToLower(filepath.Ext(name))]
	}

	if mimeType, key, ok := lookup(rec, mimeFields...); ok {
		raw.MIMEType = scalar(mimeType)
		consumed[key] = true
	}
	if raw.MIMEType == "" {
		raw.MIMEType = sniffMIMEType(raw.Content)
	}

	keys := make([]string, 0, len(rec))
	for key := range rec {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := rec[key]
		if consumed[key] || value == nil {
			continue
		}
		canonical, ok := fieldAliases[strings.ToLower(key)]
		if !ok {
			if s := scalar(value); s != "" {
				raw.Metadata[key] = s
			}
			continue
		}
		if _, taken := raw.Metadata[canonical]; taken {
			continue
		}
		switch v := value.(type) {
		case time.Time:
			raw.Metadata[canonical] = v
		case map[string]any:
			if name, _, ok := lookup(v, "naam", "name", "label"); ok {
				raw.Metadata[canonical] = scalar(name)
			}
		default:
			if s := scalar(v); s != "" {
				raw.Metadata[canonical] = s
			}
		}
	}

	return raw, nil
}

// lookup returns the first present field, matching names case-insensitively.
// Keys differing only in case resolve to the lowest in byte order.
func lookup(rec map[string]any, names ...string) (any, string, bool) {
	keys := make([]string, 0, len(rec))
	for key := range rec {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, name := range names {
		for _, key := range keys {
			value := rec[key]
			if value != nil && strings.EqualFold(key, name) {
				return value, key, true
			}
		}
	}
	return nil, "", false
}

// scalar renders a decoded scalar as text. Lists and objects render empty.
func scalar(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339)
	}
	return ""
}

// sniffMIMEType tells HTML bodies from plain text.
func sniffMIMEType(content []byte) string {
	head := strings.ToLower(strings.TrimSpace(string(content[:min(len(content), 512)])))
	if strings.HasPrefix(head, "<!doctype html") || strings.HasPrefix(head, "<html") ||
		(strings.HasPrefix(head, "<") && strings.Contains(head, "</")) {
		return "text/html"
	}
	return "text/plain"
}
