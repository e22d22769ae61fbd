// Package service provides business-logic for the app
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/UnendingLoop/IconConverter/internal/model"
	"github.com/UnendingLoop/IconConverter/internal/mwlogger"
	"github.com/UnendingLoop/IconConverter/internal/report"
	"github.com/UnendingLoop/IconConverter/internal/repository"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/retry"
)

// StaleAfter - сколько батч может висеть в created/in_progress, прежде чем его перезапустят
const StaleAfter = 10 * time.Minute

type BatchService struct {
	repo      repository.BatchRepo
	publisher TaskPublisher
}

func NewBatchService(batchRep repository.BatchRepo, pub TaskPublisher) *BatchService {
	return &BatchService{
		repo:      batchRep,
		publisher: pub,
	}
}

// TaskPublisher - контракт для работы с очередью
type TaskPublisher interface {
	SendWithRetry(ctx context.Context, strategy retry.Strategy, key []byte, v []byte) error
}

// Стратегия ретрая отправки в очередь
var retryStrategy = retry.Strategy{
	Attempts: 5,
	Delay:    3 * time.Second,
	Backoff:  1.5,
}

func (c BatchService) Create(ctx context.Context, batchData *model.BatchCreateData) (*model.Batch, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	newBatch := &model.Batch{}

	// Валидируем входные данные
	if err := validateNormalizeBatchInfo(batchData, newBatch); err != nil {
		return nil, err
	}

	// генерируем UUID, ставим статус и таймстамп
	newBatch.UID = uuid.New()
	newBatch.Status = model.StatusCreated
	now := time.Now().UTC()
	newBatch.CreatedAt = &now
	newBatch.UpdatedAt = &now

	// шлем в базу
	if err := c.repo.Create(ctx, newBatch); err != nil {
		logger.Error().Err(err).Msg("Failed to create batch in DB")
		return nil, model.ErrCommon500
	}

	// кладем в очередь задач(в кафку)
	if err := c.publisher.SendWithRetry(ctx, retryStrategy, []byte(newBatch.UID.String()), nil); err != nil {
		// запись в базе останется в created - её подберёт ReviveOrphans
		logger.Error().Err(err).Msg(fmt.Sprintf("Failed to publish batch %q to task-queue", newBatch.UID))
		return nil, model.ErrCommon500
	}
	return newBatch, nil
}

func (c BatchService) GetList(ctx context.Context, req *model.ListRequest) ([]model.Batch, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	validateQueryParams(req)

	res, err := c.repo.GetList(ctx, req)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to fetch batches list from DB")
		return nil, model.ErrCommon500
	}

	return res, nil
}

func (c BatchService) Get(ctx context.Context, id string) (*model.Batch, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	if err := uuid.Validate(id); err != nil {
		return nil, model.ErrIncorrectID
	}

	res, err := c.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrBatchNotFound) {
			return nil, err // 404
		}
		logger.Error().Err(err).Msg(fmt.Sprintf("Failed to fetch batch %q from DB", id))
		return nil, model.ErrCommon500
	}

	return res, nil
}

// LoadReport returns the encoded report of a finished batch and its content type.
func (c BatchService) LoadReport(ctx context.Context, id, format string) ([]byte, string, error) {
	logger := mwlogger.LoggerFromContext(ctx)

	if format == "" {
		format = report.FormatJSON
	}
	if format == report.FormatNone {
		return nil, "", fmt.Errorf("%w: %q", model.ErrUnsupportedReportFormat, format)
	}

	batch, err := c.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if batch.Report == nil || (batch.Status != model.StatusDone && batch.Status != model.StatusFailed) {
		return nil, "", model.ErrReportNotReady
	}

	data, ctype, err := report.Marshal(batch.Report, format)
	if err != nil {
		if errors.Is(err, model.ErrUnsupportedReportFormat) {
			return nil, "", err // 400
		}
		logger.Error().Err(err).Msg(fmt.Sprintf("Failed to encode report of batch %q", id))
		return nil, "", model.ErrCommon500
	}
	return data, ctype, nil
}

func (c BatchService) UpdateStatus(ctx context.Context, id string, newStat model.Status) error {
	if err := uuid.Validate(id); err != nil {
		return model.ErrIncorrectID
	}
	if !model.StatusMap[newStat] {
		return model.ErrIncorrectStatus
	}

	logger := mwlogger.LoggerFromContext(ctx)

	if err := c.repo.UpdateStatus(ctx, id, newStat); err != nil {
		switch {
		case errors.Is(err, model.ErrBatchNotFound):
			return err // 404
		default:
			logger.Error().Err(err).Msg("Failed to update batch status in DB")
			return model.ErrCommon500 // 500
		}
	}

	return nil
}

func (c BatchService) SaveResult(ctx context.Context, input *model.Batch) error {
	logger := mwlogger.LoggerFromContext(ctx)
	if !model.StatusMap[input.Status] {
		return model.ErrIncorrectStatus
	}

	t := time.Now().UTC()
	input.UpdatedAt = &t
	if err := c.repo.SaveResult(ctx, input); err != nil {
		switch {
		case errors.Is(err, model.ErrBatchNotFound):
			return err // 404
		default:
			logger.Error().Err(err).Msg("Failed to save batch result in DB")
			return model.ErrCommon500 // 500
		}
	}

	return nil
}

// ReviveOrphans re-publishes batches that were never picked up or got stuck in progress.
func (c BatchService) ReviveOrphans(ctx context.Context, limit int) int {
	logger := mwlogger.LoggerFromContext(ctx)

	orphans, err := c.repo.FetchOrphans(ctx, limit, StaleAfter)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load orphans from DB")
		return 0
	}

	revived := 0
	for _, v := range orphans {
		if err := c.publisher.SendWithRetry(ctx, retryStrategy, []byte(v), nil); err != nil {
			logger.Error().Err(err).Str("batch_id", v).Msg("Failed to publish orphan to queue")
			continue
		}
		revived++
	}
	if revived > 0 {
		logger.Info().Int("revived", revived).Msg("Orphan batches re-published")
	}
	return revived
}
