package inbox

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/tijdlijn/internal/core/domain"
	"github.com/custodia-labs/tijdlijn/internal/core/ports/driven"
	"github.com/custodia-labs/tijdlijn/internal/logger"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// ConnectorType identifies the inbox connector.
const ConnectorType = "inbox"

// ErrClosed is returned by Watch after Close.
var ErrClosed = errors.New("inbox connector closed")

// Connector reads record files below a root directory.
type Connector struct {
	root string

	mu       sync.Mutex
	closed   bool
	watchers []*fsnotify.Watcher
}

// New creates an inbox connector for root.
func New(root string) *Connector {
	return &Connector{root: root}
}

// Type returns the connector type identifier.
func (c *Connector) Type() string {
	return ConnectorType
}

// Root returns the watched directory.
func (c *Connector) Root() string {
	return c.root
}

// Validate checks that the root is an existing directory.
func (c *Connector) Validate(_ context.Context) error {
	info, err := os.Stat(c.root)
	if err != nil {
		return fmt.Errorf("root path error: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root path error: %s is not a directory", c.root)
	}
	return nil
}

// FullSync reads every record file below the root in lexical order.
// Files that cannot be decoded are reported on the error channel as
// parsing errors and the walk continues.
func (c *Connector) FullSync(ctx context.Context) (<-chan domain.RawDocument, <-chan error) {
	docs := make(chan domain.RawDocument)
	errs := make(chan error, 1)

	go func() {
		defer close(docs)
		defer close(errs)

		if err := c.Validate(ctx); err != nil {
			errs <- err
			return
		}

		err := filepath.WalkDir(c.root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path != c.root && isHidden(path) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() || !isRecordFile(path) {
				return nil
			}

			records, err := readRecords(path)
			if err != nil {
				select {
				case errs <- domain.NewParsingError(path, "record file unusable", err):
				case <-ctx.Done():
					return ctx.Err()
				}
				return nil
			}
			for _, rec := range records {
				select {
				case docs <- rec:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			select {
			case errs <- fmt.Errorf("walk %s: %w", c.root, err):
			case <-ctx.Done():
			}
		}
	}()

	return docs, errs
}

// Watch reports record files created, written or removed below the root
// until ctx is cancelled. New subdirectories are watched as they appear.
func (c *Connector) Watch(ctx context.Context) (<-chan domain.RawDocumentChange, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	if err := c.Validate(ctx); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := c.addTree(watcher, c.root); err != nil {
		watcher.Close()
		return nil, err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		watcher.Close()
		return nil, ErrClosed
	}
	c.watchers = append(c.watchers, watcher)
	c.mu.Unlock()

	changes := make(chan domain.RawDocumentChange)
	go func() {
		defer close(changes)
		defer c.release(watcher)

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Create) {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !isHidden(event.Name) {
						if err := c.addTree(watcher, event.Name); err != nil {
							logger.Warn("inbox: cannot watch %s: %v", event.Name, err)
						}
						continue
					}
				}
				change := c.handleFsEvent(event)
				if change == nil {
					continue
				}
				select {
				case changes <- *change:
				case <-ctx.Done():
					return
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("inbox: watch error: %v", err)
			}
		}
	}()

	return changes, nil
}

// handleFsEvent converts a file event into a change, or nil when the event
// does not concern a readable record file.
func (c *Connector) handleFsEvent(event fsnotify.Event) *domain.RawDocumentChange {
	if isHidden(event.Name) || !isRecordFile(event.Name) {
		return nil
	}

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return &domain.RawDocumentChange{Type: domain.ChangeDeleted, URI: event.Name}

	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil || info.IsDir() {
			return nil
		}
		records, err := readRecords(event.Name)
		if err != nil {
			// Usually a file still being written; the next write retries.
			logger.Debug("inbox: skipping %s: %v", event.Name, err)
			return nil
		}
		changeType := domain.ChangeUpdated
		if event.Has(fsnotify.Create) {
			changeType = domain.ChangeCreated
		}
		return &domain.RawDocumentChange{Type: changeType, URI: event.Name, Documents: records}
	}

	return nil
}

// addTree watches dir and its non-hidden subdirectories.
func (c *Connector) addTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != c.root && isHidden(path) {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// release closes a watcher and forgets it.
func (c *Connector) release(watcher *fsnotify.Watcher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, w := range c.watchers {
		if w == watcher {
			c.watchers = append(c.watchers[:i], c.watchers[i+1:]...)
			break
		}
	}
	watcher.Close()
}

// Close stops all watches. It is safe to call more than once.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	var errs []error
	for _, w := range c.watchers {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.watchers = nil
	return errors.Join(errs...)
}
