package main

import (
	"context"

	"github.com/UnendingLoop/IconConverter/internal/model"
	"github.com/wb-go/wbf/retry"
)

type BatchWorkerService interface {
	UpdateStatus(ctx context.Context, id string, newStat model.Status) error
	SaveResult(ctx context.Context, res *model.Batch) error
	Get(ctx context.Context, id string) (*model.Batch, error)
}

// NoopPublisher - ЗАГЛУШКА, функциональность настоящего паблишера в очередь не нужна в рамках работы воркера
type NoopPublisher struct{}

func (NoopPublisher) SendWithRetry(ctx context.Context, strategy retry.Strategy, k []byte, v []byte) error {
	return nil
}
