package localstorage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/UnendingLoop/IconConverter/internal/model"
	"github.com/stretchr/testify/require"
)

func TestLocalImageStorage_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	s := New(t.TempDir())

	data := []byte("icon-bytes")
	require.NoError(t, s.Put(ctx, "out/a.tiff.jpeg", int64(len(data)), model.JPEG, bytes.NewReader(data)))

	r, ct, err := s.Get(ctx, "out/a.tiff.jpeg")
	require.NoError(t, err)
	require.Equal(t, "image/jpeg", ct)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.Equal(t, data, got)

	info, err := os.Stat(filepath.Join(s.root, "out", "a.tiff.jpeg"))
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		require.Equal(t, os.FileMode(0o644), info.Mode().Perm())
	}

	require.NoError(t, s.Delete(ctx, "out/a.tiff.jpeg"))
	require.NoError(t, s.Delete(ctx, "out/a.tiff.jpeg"), "deleting a missing icon is not an error")
	_, _, err = s.Get(ctx, "out/a.tiff.jpeg")
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLocalImageStorage_PutOverwrites(t *testing.T) {
	ctx := context.Background()
	s := New(t.TempDir())

	require.NoError(t, s.Put(ctx, "x.jpeg", 3, model.JPEG, strings.NewReader("old")))
	require.NoError(t, s.Put(ctx, "x.jpeg", 3, model.JPEG, strings.NewReader("new")))

	got, err := os.ReadFile(filepath.Join(s.root, "x.jpeg"))
	require.NoError(t, err)
	require.Equal(t, "new", string(got))
}

func TestLocalImageStorage_PutFailures(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		ctx  context.Context
		size int64
		r    io.Reader
	}{
		{"nil reader", ctx, 0, nil},
		{"size mismatch", ctx, 10, strings.NewReader("short")},
		{"canceled", canceledCtx(), 1, strings.NewReader("x")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			s := New(dir)

			require.Error(t, s.Put(tt.ctx, "x.jpeg", tt.size, model.JPEG, tt.r))

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			require.Empty(t, entries, "no partial or temp files may remain")
		})
	}
}

func TestLocalImageStorage_Prepare(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s := New(root)

	require.NoError(t, s.Prepare(ctx, "nested/icons"))
	entries, err := os.ReadDir(filepath.Join(root, "nested", "icons"))
	require.NoError(t, err)
	require.Empty(t, entries, "probe file must be cleaned up")

	// a regular file where the directory should be
	require.NoError(t, os.WriteFile(filepath.Join(root, "blocked"), []byte("x"), 0o644))
	err = s.Prepare(ctx, "blocked")
	require.ErrorIs(t, err, model.ErrOutputUnwritable)
}

func canceledCtx() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}
