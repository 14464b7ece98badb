package jwks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	jose "github.com/go-jose/go-jose/v4"
)

var _ Resolver = (*File)(nil)
var _ DocumentSource = (*File)(nil)

// File serves a key set read from a local JSON file and reloads it when the
// file changes. If a reload produces an unreadable document the previous one
// stays in effect.
type File struct {
	path string
	log  *slog.Logger

	mu  sync.RWMutex
	doc []byte

	watcher *fsnotify.Watcher
	done    chan struct{}
	once    sync.Once
}

// NewFile loads the key set at path and watches it for changes until Close is
// called or ctx is cancelled.
func NewFile(ctx context.Context, path string, log *slog.Logger) (*File, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("jwks: resolve path: %w", err)
	}
	f := &File{path: abs, log: log, done: make(chan struct{})}
	if err := f.load(); err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("jwks: create watcher: %w", err)
	}
	// Atomic replaces drop a watch on the file itself; watch the directory.
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("jwks: watch %s: %w", filepath.Dir(abs), err)
	}
	f.watcher = w
	go f.watch(ctx)
	return f, nil
}

// Document returns the current key set document.
func (f *File) Document(context.Context) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.doc, nil
}

// ResolveKey returns the first key with kid in the current document.
func (f *File) ResolveKey(ctx context.Context, kid string) (*jose.JSONWebKey, error) {
	doc, _ := f.Document(ctx)
	return FindKey(doc, kid)
}

// Close stops watching the file.
func (f *File) Close() error {
	var err error
	f.once.Do(func() {
		close(f.done)
		err = f.watcher.Close()
	})
	return err
}

func (f *File) load() error {
	doc, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("jwks: read %s: %w", f.path, err)
	}
	var set struct {
		Keys []json.RawMessage `json:"keys"`
	}
	if err := json.Unmarshal(doc, &set); err != nil {
		return fmt.Errorf("jwks: decode %s: %w", f.path, err)
	}
	f.mu.Lock()
	f.doc = doc
	f.mu.Unlock()
	return nil
}

func (f *File) watch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			_ = f.Close()
			return
		case <-f.done:
			return
		case ev, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != f.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := f.load(); err != nil {
				f.log.WarnContext(ctx, "jwks.file.reload.fail", slog.String("path", f.path), slog.String("err", err.Error()))
				continue
			}
			f.log.InfoContext(ctx, "jwks.file.reload", slog.String("path", f.path))
		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			f.log.WarnContext(ctx, "jwks.file.watch.fail", slog.String("err", err.Error()))
		}
	}
}
