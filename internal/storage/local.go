package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

var _ Store = (*LocalStore)(nil)

// LocalStore keeps assets in a directory on disk.
type LocalStore struct {
	root    string
	baseURL string
	now     Clock
}

// NewLocalStore creates root if needed. baseURL is the public prefix the
// directory is served under, e.g. "http://localhost:8080/storage".
func NewLocalStore(root, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: creating root %s: %w", root, err)
	}
	return &LocalStore{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}, nil
}

// WithClock replaces the time source. Tests only.
func (s *LocalStore) WithClock(c Clock) *LocalStore {
	s.now = c
	return s
}

// Root is the directory the server should expose.
func (s *LocalStore) Root() string {
	return s.root
}

// Save writes body under category. O_EXCL makes the existence check and
// the create one atomic step, so two uploads of "a.png" in the same second
// get different names instead of one clobbering the other.
func (s *LocalStore) Save(ctx context.Context, category, filename string, body io.Reader) (string, error) {
	dir := filepath.Join(s.root, filepath.FromSlash(category))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("storage: creating %s: %w", category, err)
	}

	now := s.now()
	for n := 0; n < maxNameAttempts; n++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		name := objectName(now, n, filename)
		full := filepath.Join(dir, name)

		f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("storage: creating %s: %w", name, err)
		}

		if _, err := io.Copy(f, body); err != nil {
			f.Close()
			os.Remove(full)
			return "", fmt.Errorf("storage: writing %s: %w", name, err)
		}
		if err := f.Close(); err != nil {
			os.Remove(full)
			return "", fmt.Errorf("storage: closing %s: %w", name, err)
		}
		return path.Join(category, name), nil
	}
	return "", fmt.Errorf("storage: no free name for %q after %d attempts", filename, maxNameAttempts)
}

// Delete removes the file at p. Empty and missing paths are no-ops.
func (s *LocalStore) Delete(ctx context.Context, p string) error {
	if p == "" {
		return nil
	}
	rel := filepath.FromSlash(p)
	if !filepath.IsLocal(rel) {
		return fmt.Errorf("storage: refusing to delete %q outside the store", p)
	}

	err := os.Remove(filepath.Join(s.root, rel))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: deleting %s: %w", p, err)
	}
	return nil
}

func (s *LocalStore) URL(p string) string {
	if p == "" {
		return ""
	}
	return s.baseURL + "/" + p
}
