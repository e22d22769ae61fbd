// Package report serializes batch reports and stores them next to the icons
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/UnendingLoop/IconConverter/internal/model"
	"github.com/UnendingLoop/IconConverter/internal/storage"
	"gopkg.in/yaml.v3"
)

const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatNone = "none"
)

// Marshal returns the encoded report and its content type.
func Marshal(r *model.Report, format string) ([]byte, string, error) {
	if r == nil {
		return nil, "", fmt.Errorf("nil report")
	}

	switch strings.ToLower(format) {
	case FormatJSON, "":
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return nil, "", err
		}
		return append(data, '\n'), "application/json", nil
	case FormatYAML, "yml":
		data, err := yaml.Marshal(r)
		if err != nil {
			return nil, "", err
		}
		return data, "application/yaml", nil
	default:
		return nil, "", fmt.Errorf("%w: %q", model.ErrUnsupportedReportFormat, format)
	}
}

func Encode(w io.Writer, r *model.Report, format string) error {
	data, _, err := Marshal(r, format)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// FileName is dot-prefixed so a later run over the same directory ignores it.
func FileName(r *model.Report, format string) string {
	ext := strings.ToLower(format)
	switch ext {
	case "":
		ext = FormatJSON
	case "yml":
		ext = FormatYAML
	}
	return fmt.Sprintf(".iconconv-report-%s.%s", r.BatchID, ext)
}

// Save writes the report under prefix through sink and returns its key.
// FormatNone is a no-op with an empty key.
func Save(ctx context.Context, sink storage.Sink, prefix string, r *model.Report, format string) (string, error) {
	if strings.ToLower(format) == FormatNone {
		return "", nil
	}

	data, ctype, err := Marshal(r, format)
	if err != nil {
		return "", err
	}

	key := filepath.ToSlash(filepath.Join(prefix, FileName(r, format)))
	if err := sink.Put(ctx, key, int64(len(data)), ctype, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("failed to save report: %w", err)
	}
	return key, nil
}

// Summary - одна строка для консоли и темы письма
func Summary(r *model.Report) string {
	if r == nil {
		return "no report"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "batch %s: %d converted, %d failed, %d ignored of %d files",
		r.BatchID, r.Converted, r.Failed, r.Ignored, r.Total+r.Ignored)
	if r.Aborted {
		b.WriteString(" (aborted)")
	}
	if !r.StartedAt.IsZero() && !r.FinishedAt.IsZero() {
		fmt.Fprintf(&b, " in %s", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	}
	return b.String()
}
