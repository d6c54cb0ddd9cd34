package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/KaramelBytes/edaprompt-cli/internal/errs"
	"github.com/KaramelBytes/edaprompt-cli/internal/utils"
)

// fileBackend stores one JSON document per session under dir. Writes go
// through an atomic rename; a process-wide mutex serializes mutations.
type fileBackend struct {
	mu  sync.Mutex
	dir string
}

// NewFileStore persists sessions as JSON files in dir, creating it if needed.
func NewFileStore(dir string, opts ...Option) (Store, error) {
	if dir == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "sessions directory not set")
	}
	if err := utils.EnsureDir(dir); err != nil {
		return nil, errs.Wrap(errs.ErrKindStorage, "create sessions dir", err)
	}
	return newDocStore(&fileBackend{dir: dir}, opts...), nil
}

// path maps a session name to a file; escaping keeps any name inside dir.
func (f *fileBackend) path(name string) string {
	return filepath.Join(f.dir, url.PathEscape(name)+".json")
}

func (f *fileBackend) read(name string) ([]byte, error) {
	b, err := os.ReadFile(f.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, notFound(name)
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindStorage, "read session", err)
	}
	return b, nil
}

func (f *fileBackend) write(name string, doc []byte) error {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, doc, "", "  "); err != nil {
		return errs.Wrap(errs.ErrKindStorage, "format session", err)
	}
	if err := utils.SafeWriteFile(f.path(name), pretty.Bytes()); err != nil {
		return errs.Wrap(errs.ErrKindStorage, "write session", err)
	}
	return nil
}

func (f *fileBackend) insert(_ context.Context, name string, doc []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := os.Stat(f.path(name)); err == nil {
		return duplicate(name)
	}
	return f.write(name, doc)
}

func (f *fileBackend) load(_ context.Context, name string) ([]byte, error) {
	return f.read(name)
}

func (f *fileBackend) list(_ context.Context) ([][]byte, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindStorage, "list sessions", err)
	}
	var out [][]byte
	for _, e := range entries {
		n := e.Name()
		if e.IsDir() || !strings.HasSuffix(n, ".json") {
			continue
		}
		b, err := os.ReadFile(filepath.Join(f.dir, n))
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindStorage, fmt.Sprintf("read %s", n), err)
		}
		out = append(out, b)
	}
	return out, nil
}

func (f *fileBackend) remove(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	err := os.Remove(f.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return notFound(name)
	}
	if err != nil {
		return errs.Wrap(errs.ErrKindStorage, "delete session", err)
	}
	return nil
}

func (f *fileBackend) update(_ context.Context, name string, fn func([]byte) ([]byte, error)) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.read(name)
	if err != nil {
		return nil, err
	}
	next, err := fn(doc)
	if err != nil {
		return nil, err
	}
	if err := f.write(name, next); err != nil {
		return nil, err
	}
	return next, nil
}

func (f *fileBackend) close() error { return nil }
