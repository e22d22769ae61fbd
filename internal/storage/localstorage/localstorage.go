// Package localstorage provides structure to keep icons in a local directory
package localstorage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"os"
	"path/filepath"

	"github.com/UnendingLoop/IconConverter/internal/model"
)

type LocalImageStorage struct {
	root string
}

// New returns storage rooted at root; an empty root means keys are plain paths.
func New(root string) *LocalImageStorage {
	return &LocalImageStorage{root: root}
}

func (s *LocalImageStorage) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

// Prepare creates the output directory and makes sure a file can be created in it.
func (s *LocalImageStorage) Prepare(ctx context.Context, prefix string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := s.path(prefix)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", model.ErrOutputUnwritable, err)
	}

	probe, err := os.CreateTemp(dir, ".iconconv-probe-*")
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrOutputUnwritable, err)
	}
	name := probe.Name()
	if err := probe.Close(); err != nil {
		log.Println("Failed to close probe file:", err)
	}
	if err := os.Remove(name); err != nil {
		log.Println("Failed to remove probe file:", err)
	}
	return nil
}

// Put writes r to key through a temp file in the same directory, so an
// interrupted write never leaves a truncated icon behind. Existing files are replaced.
func (s *LocalImageStorage) Put(ctx context.Context, key string, size int64, _ string, r io.Reader) error {
	if r == nil {
		return errors.New("nil reader passed to storage.Put")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	full := s.path(key)
	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(full)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if committed {
			return
		}
		if err := os.Remove(tmpName); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Println("Failed to remove temp file:", err)
		}
	}()

	n, err := io.Copy(tmp, r)
	if cErr := tmp.Close(); err == nil {
		err = cErr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	if size >= 0 && n != size {
		return fmt.Errorf("write %s: wrote %d bytes, expected %d", key, n, size)
	}

	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", key, err)
	}
	if err := os.Rename(tmpName, full); err != nil {
		return fmt.Errorf("rename into %s: %w", key, err)
	}
	committed = true
	return nil
}

func (s *LocalImageStorage) Get(_ context.Context, key string) (io.ReadCloser, string, error) {
	f, err := os.Open(s.path(key))
	if err != nil {
		return nil, "", err
	}
	return f, mime.TypeByExtension(filepath.Ext(key)), nil
}

func (s *LocalImageStorage) Delete(_ context.Context, key string) error {
	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
