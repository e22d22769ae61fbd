// Package converter turns a directory of legacy images into website icons
package converter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/UnendingLoop/IconConverter/internal/imageproc"
	"github.com/UnendingLoop/IconConverter/internal/model"
	"github.com/UnendingLoop/IconConverter/internal/mwlogger"
	"github.com/UnendingLoop/IconConverter/internal/storage"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	Policy  model.Policy
	Workers int
	Quality int
	Suffix  string
}

func DefaultOptions() Options {
	return Options{
		Policy:  model.PolicySkip,
		Workers: 1,
		Quality: model.DefaultQuality,
		Suffix:  model.IconSuffix,
	}
}

type Converter struct {
	sink storage.Sink
	opts Options
	now  func() time.Time
}

func New(sink storage.Sink, opts Options) *Converter {
	def := DefaultOptions()
	if !model.PolicyMap[opts.Policy] {
		opts.Policy = def.Policy
	}
	if opts.Workers < 1 {
		opts.Workers = def.Workers
	}
	if opts.Quality < 1 || opts.Quality > 100 {
		opts.Quality = def.Quality
	}
	if opts.Suffix == "" {
		opts.Suffix = def.Suffix
	}
	return &Converter{sink: sink, opts: opts, now: time.Now}
}

// Run converts inputDir into outputDir under a freshly generated batch id.
func (c *Converter) Run(ctx context.Context, inputDir, outputDir string) (*model.Report, error) {
	return c.RunBatch(ctx, uuid.New(), inputDir, outputDir)
}

// RunBatch converts every regular file of inputDir and writes icons under outputDir.
// The report is returned even on error and then holds the files processed so far.
// Errors: model.ErrInputDir and model.ErrOutputUnwritable before any file is touched,
// model.ErrBatchAborted under the abort policy, ctx.Err() on cancellation.
func (c *Converter) RunBatch(ctx context.Context, batchID uuid.UUID, inputDir, outputDir string) (*model.Report, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	report := &model.Report{
		BatchID:   batchID,
		InputDir:  inputDir,
		OutputDir: outputDir,
		Policy:    c.opts.Policy,
		StartedAt: c.now().UTC(),
		Files:     []model.FileResult{},
	}
	defer func() { report.FinishedAt = c.now().UTC() }()

	files, ignored, err := listInputs(inputDir)
	if err != nil {
		return report, fmt.Errorf("%w: %v", model.ErrInputDir, err)
	}
	report.Ignored = ignored

	if p, ok := c.sink.(storage.Preparer); ok {
		if err := p.Prepare(ctx, outputDir); err != nil {
			return report, err
		}
	}

	logger.Info().
		Str("input", inputDir).
		Str("output", outputDir).
		Int("files", len(files)).
		Int("ignored", ignored).
		Str("policy", string(c.opts.Policy)).
		Msg("Batch started")

	// у каждого файла свой слот - порядок в отчёте не зависит от воркеров
	results := make([]*model.FileResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Workers)
	for i, name := range files {
		i, name := i, name
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			res, err := c.convertOne(gctx, inputDir, outputDir, name)
			results[i] = &res
			if err != nil && c.opts.Policy == model.PolicyAbort {
				return fmt.Errorf("%w on %q: %w", model.ErrBatchAborted, name, err)
			}
			return nil
		})
	}
	runErr := g.Wait()

	for _, res := range results {
		if res != nil {
			report.Add(*res)
		}
	}

	if runErr == nil && ctx.Err() != nil {
		runErr = ctx.Err()
	}
	if errors.Is(runErr, model.ErrBatchAborted) {
		report.Aborted = true
	}

	if runErr != nil {
		logger.Error().Err(runErr).
			Int("converted", report.Converted).
			Int("failed", report.Failed).
			Msg("Batch stopped")
		return report, runErr
	}

	logger.Info().
		Int("converted", report.Converted).
		Int("failed", report.Failed).
		Int("ignored", report.Ignored).
		Msg("Batch finished")
	return report, nil
}

func (c *Converter) convertOne(ctx context.Context, inputDir, outputDir, name string) (model.FileResult, error) {
	logger := mwlogger.LoggerFromContext(ctx).With().Str("file", name).Logger()
	res := model.FileResult{Source: name}

	fail := func(err error) (model.FileResult, error) {
		res.Status = model.FileFailed
		res.Error = err.Error()
		logger.Warn().Err(err).Msg("Failed to convert file")
		return res, err
	}

	// the source is read whole so read errors don't pass for decode errors
	data, err := os.ReadFile(filepath.Join(inputDir, name))
	if err != nil {
		return fail(fmt.Errorf("read source: %w", err))
	}

	icon, size, meta, err := imageproc.IconTransform(bytes.NewReader(data), c.opts.Quality)
	res.SourceFormat, res.SourceWidth, res.SourceHeight = meta.Format, meta.Width, meta.Height
	if err != nil {
		return fail(err)
	}

	key := filepath.ToSlash(filepath.Join(outputDir, OutputName(name, c.opts.Suffix)))
	if err := c.sink.Put(ctx, key, size, model.IconContentType, icon); err != nil {
		return fail(fmt.Errorf("write icon: %w", err))
	}

	res.Status = model.FileConverted
	res.Output = key
	res.Bytes = size
	logger.Debug().Str("output", key).Int64("bytes", size).Msg("Icon written")
	return res, nil
}

// OutputName keeps the full source name, extension included: "cat.tiff" -> "cat.tiff.jpeg".
func OutputName(name, suffix string) string {
	if suffix == "" {
		suffix = model.IconSuffix
	}
	return filepath.Base(name) + suffix
}

var metadataNames = map[string]bool{
	"thumbs.db":   true,
	"ehthumbs.db": true,
	"desktop.ini": true,
	"icon\r":      true,
}

// IsMetadataFile reports whether name is an OS bookkeeping entry rather than a user file.
func IsMetadataFile(name string) bool {
	return strings.HasPrefix(name, ".") || metadataNames[strings.ToLower(name)]
}

// listInputs returns regular files of dir sorted by name, symlinks resolved.
func listInputs(dir string) ([]string, int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, 0, err
	}

	var (
		files   []string
		ignored int
	)
	for _, e := range entries {
		if IsMetadataFile(e.Name()) || !isRegular(dir, e) {
			ignored++
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)
	return files, ignored, nil
}

func isRegular(dir string, e fs.DirEntry) bool {
	if e.Type().IsRegular() {
		return true
	}
	if e.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(dir, e.Name()))
	return err == nil && info.Mode().IsRegular()
}
