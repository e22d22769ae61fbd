// Package worker runs conversion batches taken from the task-queue
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/UnendingLoop/IconConverter/internal/model"
	"github.com/UnendingLoop/IconConverter/internal/mwlogger"
	"github.com/UnendingLoop/IconConverter/internal/notify"
	"github.com/UnendingLoop/IconConverter/internal/report"
	"github.com/UnendingLoop/IconConverter/internal/storage"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/zlog"
)

type BatchWorkerService interface {
	UpdateStatus(ctx context.Context, id string, newStat model.Status) error
	SaveResult(ctx context.Context, res *model.Batch) error
	Get(ctx context.Context, id string) (*model.Batch, error)
}

// BatchRunner - то, что реально конвертирует директорию (converter.Converter)
type BatchRunner interface {
	RunBatch(ctx context.Context, batchID uuid.UUID, inputDir, outputDir string) (*model.Report, error)
}

// RunnerFactory builds a runner for the error policy of a batch.
type RunnerFactory func(policy model.Policy) BatchRunner

// Committer - подтверждение обработки сообщения очереди (wbf kafka.Consumer)
type Committer interface {
	Commit(ctx context.Context, msg kafkago.Message) error
}

type Worker struct {
	service      BatchWorkerService
	newRunner    RunnerFactory
	sink         storage.Sink
	notifier     notify.Notifier
	queue        <-chan kafkago.Message
	consumer     Committer
	reportFormat string
	staleAfter   time.Duration
	now          func() time.Time
}

func NewWorkerInstance(svc BatchWorkerService, newRunner RunnerFactory, sink storage.Sink, notifier notify.Notifier,
	q <-chan kafkago.Message, cons Committer, reportFormat string, staleAfter time.Duration,
) *Worker {
	if notifier == nil {
		notifier = notify.Multi{}
	}
	return &Worker{
		service:      svc,
		newRunner:    newRunner,
		sink:         sink,
		notifier:     notifier,
		queue:        q,
		consumer:     cons,
		reportFormat: reportFormat,
		staleAfter:   staleAfter,
		now:          time.Now,
	}
}

func (w *Worker) StartWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-w.queue:
			if !ok {
				zlog.Logger.Info().Msg("Queue channel closed, stopping worker...")
				return
			}
			id := string(msg.Key)
			if err := w.initProcessor(ctx, id); err != nil &&
				!errors.Is(err, model.ErrBatchNotFound) && !errors.Is(err, model.ErrIncorrectID) {
				zlog.Logger.Error().Err(err).Str("batch_id", id).Msg("Batch is left in queue")
				continue
			}
			if err := w.consumer.Commit(ctx, msg); err != nil {
				zlog.Logger.Error().Err(err).Msg("Failed to commit queue-message")
			}
		}
	}
}

func (w *Worker) initProcessor(ctx context.Context, id string) error {
	// считать из базы задачу
	task, err := w.service.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("worker failed to fetch batch %q from DB: %w", id, err)
	}

	// проверить статус
	switch task.Status {
	case model.StatusDone, model.StatusFailed:
		return nil
	case model.StatusInProgress:
		// подвисший батч забираем заново, живой не трогаем
		if task.UpdatedAt == nil || w.now().Sub(*task.UpdatedAt) < w.staleAfter {
			return model.ErrBatchInProgress
		}
	}

	// обновить статус
	if err := w.service.UpdateStatus(ctx, id, model.StatusInProgress); err != nil {
		return fmt.Errorf("failed to update status of batch %q to `in_progress` in DB: %w", id, err)
	}

	return w.processBatch(mwlogger.WithBatch(ctx, id), task)
}

// processBatch runs the converter and stores the outcome. A batch that failed by
// its own policy is still a processed message: only infrastructure errors are returned.
func (w *Worker) processBatch(ctx context.Context, task *model.Batch) error {
	logger := mwlogger.LoggerFromContext(ctx)

	rep, runErr := w.newRunner(task.Policy).RunBatch(ctx, task.UID, task.InputDir, task.OutputDir)
	if runErr != nil && ctx.Err() != nil {
		// остановка воркера - батч останется in_progress и будет перезапущен
		return fmt.Errorf("batch %q interrupted: %w", task.UID, runErr)
	}

	task.ApplyReport(rep)
	task.Status = model.StatusDone
	if runErr != nil {
		task.Status = model.StatusFailed
		task.ErrMsg = append(task.ErrMsg, runErr.Error())
	}

	if rep != nil {
		key, err := report.Save(ctx, w.sink, task.OutputDir, rep, w.reportFormat)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to save report file")
			task.ErrMsg = append(task.ErrMsg, err.Error())
		} else if key != "" {
			logger.Info().Str("report", key).Msg("Report file saved")
		}
	}

	if err := w.service.SaveResult(ctx, task); err != nil {
		return fmt.Errorf("worker failed to save result of batch %q to DB: %w", task.UID, err)
	}

	if rep != nil {
		if err := w.notifier.Notify(ctx, rep); err != nil {
			logger.Error().Err(err).Msg("Failed to notify about finished batch")
		}
	}

	logger.Info().Str("status", string(task.Status)).Msg(report.Summary(rep))
	return nil
}
