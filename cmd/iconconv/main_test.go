package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string) {
	t.Helper()
	img := imaging.New(40, 20, color.NRGBA{R: 200, A: 255})
	require.NoError(t, imaging.Save(img, path))
}

func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("STORAGE_BACKEND", "local")
	t.Setenv("WEBHOOK_URL", "")
	t.Setenv("SMTP_HOST", "")
}

func TestRun(t *testing.T) {
	isolateEnv(t)
	tests := []struct {
		name     string
		files    map[string]bool // name -> valid image
		extra    []string
		wantCode int
		wantOut  []string
	}{
		{
			name:     "all converted",
			files:    map[string]bool{"a.png": true, "b.png": true},
			wantCode: exitOK,
			wantOut:  []string{"a.png.jpeg", "b.png.jpeg"},
		},
		{
			name:     "broken file skipped",
			files:    map[string]bool{"a.png": true, "broken.png": false},
			wantCode: exitFail,
			wantOut:  []string{"a.png.jpeg"},
		},
		{
			name:     "broken file aborts",
			files:    map[string]bool{"broken.png": false},
			extra:    []string{"-policy", "abort"},
			wantCode: exitFail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := t.TempDir()
			out := filepath.Join(t.TempDir(), "icons")
			for name, valid := range tt.files {
				if valid {
					writePNG(t, filepath.Join(in, name))
					continue
				}
				require.NoError(t, os.WriteFile(filepath.Join(in, name), []byte("not an image"), 0o644))
			}

			var stdout bytes.Buffer
			args := append([]string{"-report", "json"}, tt.extra...)
			args = append(args, in, out)
			code := run(context.Background(), args, &stdout)
			require.Equal(t, tt.wantCode, code, stdout.String())

			for _, name := range tt.wantOut {
				f, err := os.Open(filepath.Join(out, name))
				require.NoError(t, err)
				cfg, format, err := image.DecodeConfig(f)
				require.NoError(t, f.Close())
				require.NoError(t, err)
				require.Equal(t, "jpeg", format)
				require.Equal(t, 128, cfg.Width)
				require.Equal(t, 128, cfg.Height)
			}

			reports, err := filepath.Glob(filepath.Join(out, ".iconconv-report-*.json"))
			require.NoError(t, err)
			require.Len(t, reports, 1)
			require.Contains(t, stdout.String(), "converted")
		})
	}
}

func TestRun_Usage(t *testing.T) {
	isolateEnv(t)
	var stdout bytes.Buffer
	require.Equal(t, exitUsage, run(context.Background(), []string{"a", "b", "c"}, &stdout))
	require.Contains(t, stdout.String(), "too many arguments")

	stdout.Reset()
	require.Equal(t, exitOK, run(context.Background(), []string{"-h"}, &stdout))
	require.Contains(t, stdout.String(), "Usage: iconconv")
}

func TestRun_MissingInput(t *testing.T) {
	isolateEnv(t)
	var stdout bytes.Buffer
	missing := filepath.Join(t.TempDir(), "nope")
	code := run(context.Background(), []string{missing, t.TempDir()}, &stdout)
	require.Equal(t, exitFail, code)
	require.Contains(t, stdout.String(), "input directory is not readable")
}
