// Package main (in iconconv-subfolder) provides a one-shot run of the icon converter over a directory
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/UnendingLoop/IconConverter/internal/converter"
	"github.com/UnendingLoop/IconConverter/internal/model"
	"github.com/UnendingLoop/IconConverter/internal/notify"
	"github.com/UnendingLoop/IconConverter/internal/report"
	"github.com/UnendingLoop/IconConverter/internal/settings"
	"github.com/UnendingLoop/IconConverter/internal/storage"
	"github.com/wb-go/wbf/zlog"
)

const (
	exitOK    = 0
	exitFail  = 1
	exitUsage = 2
)

func main() {
	// слушатель прерываний - батч остановится после текущего файла
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout io.Writer) int {
	// инициализировать конфиг/ считать энвы
	appConfig, err := settings.Bootstrap("./.env")
	if err != nil {
		log.Printf("Failed to load envs: %v", err)
		return exitFail
	}
	cfg := settings.Load(appConfig)

	// флаги поверх энвов
	fs := flag.NewFlagSet("iconconv", flag.ContinueOnError)
	fs.SetOutput(stdout)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: iconconv [flags] [input-dir [output-dir]]")
		fs.PrintDefaults()
	}
	conv, err := settings.ParseFlags(fs, args, cfg.Converter)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(stdout, "iconconv:", err)
		return exitUsage
	}
	cfg.Converter = conv

	// стартуем логгер
	zlog.InitConsole()
	if err := zlog.SetLevel(cfg.LogLevel); err != nil {
		log.Printf("Failed to init logger: %v", err)
		return exitFail
	}

	// куда писать иконки
	sink, err := storage.New(cfg.Storage)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("Failed to init icon storage")
		return exitFail
	}

	c := converter.New(sink, converter.Options{
		Policy:  conv.Policy,
		Workers: conv.Workers,
		Quality: conv.Quality,
		Suffix:  model.IconSuffix,
	})
	rep, runErr := c.Run(ctx, conv.InputDir, conv.OutputDir)
	fatal := errors.Is(runErr, model.ErrInputDir) || errors.Is(runErr, model.ErrOutputUnwritable)

	// отчёт и уведомления только если батч вообще стартовал
	if !fatal {
		key, err := report.Save(ctx, sink, conv.OutputDir, rep, conv.ReportFormat)
		switch {
		case err != nil:
			zlog.Logger.Error().Err(err).Msg("Failed to write report")
		case key != "":
			fmt.Fprintln(stdout, "report:", key)
		}

		if err := notify.FromSettings(cfg).Notify(ctx, rep); err != nil {
			zlog.Logger.Error().Err(err).Msg("Failed to notify about finished batch")
		}
	}

	fmt.Fprintln(stdout, report.Summary(rep))
	for _, f := range rep.Failures() {
		fmt.Fprintf(stdout, "  failed: %s: %s\n", f.Source, f.Error)
	}

	if runErr != nil {
		fmt.Fprintln(stdout, "iconconv:", runErr)
		return exitFail
	}
	if rep.Failed > 0 {
		return exitFail
	}
	return exitOK
}
