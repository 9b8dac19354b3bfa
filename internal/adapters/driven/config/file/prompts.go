package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/tijdlijn/internal/core/ports/driven"
	"github.com/custodia-labs/tijdlijn/internal/logger"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore loads completion prompts from user-editable files on disk,
// one <name>.txt per prompt, falling back to the built-in defaults.
//
// The store uses lazy initialisation - files are only created when first accessed,
// not in the constructor. This makes testing easier and avoids unexpected I/O.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	defaults  map[string]string
	cache     map[string]string
	initOnce  sync.Once
	initErr   error
}

// NewPromptStore creates a new file-based prompt store seeded with defaults.
// If promptDir is empty, defaults to ~/.tijdlijn/prompts/.
//
// The constructor does not perform any I/O - directory creation and
// file writes happen lazily on first Load() call.
func NewPromptStore(promptDir string, defaults map[string]string) (*PromptStore, error) {
	if promptDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		promptDir = filepath.Join(home, ".tijdlijn", "prompts")
	}

	return &PromptStore{
		promptDir: promptDir,
		defaults:  defaults,
		cache:     make(map[string]string),
	}, nil
}

// Load returns the prompt template for the given name.
// On first call, initialises the prompt directory and creates default files.
// A file whose %s placeholders do not match the default's is ignored in
// favour of the default, since filling it would garble the prompt.
func (s *PromptStore) Load(name string) (string, error) {
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		if prompt, ok := s.defaults[name]; ok {
			return prompt, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.initErr)
	}

	s.mu.RLock()
	if prompt, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return prompt, nil
	}
	s.mu.RUnlock()

	// Load from file (no lock held during I/O)
	prompt, err := s.loadFromFile(name)
	defaultPrompt, hasDefault := s.defaults[name]
	switch {
	case err != nil && hasDefault:
		return defaultPrompt, nil
	case err != nil:
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	case hasDefault && placeholders(prompt) != placeholders(defaultPrompt):
		logger.Warn("prompt %s: expected %d %%s placeholders, found %d; using the built-in prompt",
			name, placeholders(defaultPrompt), placeholders(prompt))
		prompt = defaultPrompt
	}

	// Use double-check pattern to avoid overwriting concurrent loads
	s.mu.Lock()
	if cached, ok := s.cache[name]; ok {
		prompt = cached
	} else {
		s.cache[name] = prompt
	}
	s.mu.Unlock()

	return prompt, nil
}

// Reload clears the prompt cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

// initialise creates the prompt directory and default files.
// Called once via sync.Once on first Load().
func (s *PromptStore) initialise() {
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	// Existing files are the user's and are never overwritten.
	for name, content := range s.defaults {
		path := filepath.Join(s.promptDir, name+".txt")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, []byte(content), 0600); err != nil {
				s.initErr = fmt.Errorf("create default prompt %q: %w", name, err)
				return
			}
		}
	}

	if err := s.createReadme(); err != nil {
		s.initErr = err
	}
}

// loadFromFile reads a prompt from disk.
func (s *PromptStore) loadFromFile(name string) (string, error) {
	path := filepath.Join(s.promptDir, name+".txt")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", fmt.Errorf("%s is empty", path)
	}
	return prompt, nil
}

// placeholders counts %s verbs, ignoring escaped percent signs.
func placeholders(template string) int {
	return strings.Count(strings.ReplaceAll(template, "%%", ""), "%s")
}

// createReadme writes a README file explaining the prompts directory.
func (s *PromptStore) createReadme() error {
	path := filepath.Join(s.promptDir, "README.md")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil // Already exists or stat error (ignore)
	}

	names := make([]string, 0, len(s.defaults))
	for name := range s.defaults {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("# Tijdlijn prompts\n\n")
	b.WriteString("These files are the prompts sent to the completion provider.\n")
	b.WriteString("Edit them to change tone, length or language of the summaries.\n\n")
	b.WriteString("## Files\n\n")
	for _, name := range names {
		fmt.Fprintf(&b, "- `%s.txt` (%d placeholders)\n", name, placeholders(s.defaults[name]))
	}
	b.WriteString("\n## Placeholders\n\n")
	b.WriteString("Each `%s` is filled in order (title, date, type, text; or case, date, summaries).\n")
	b.WriteString("Keep the same number of `%s` as the original, otherwise the built-in\n")
	b.WriteString("prompt is used instead. Write `%%` for a literal percent sign.\n")
	b.WriteString("Delete a file to restore its default on the next run.\n")

	return os.WriteFile(path, []byte(b.String()), 0600)
}
