package main

import (
	"context"

	"github.com/UnendingLoop/IconConverter/internal/model"
)

type BatchAPIService interface {
	Create(ctx context.Context, data *model.BatchCreateData) (*model.Batch, error)
	Get(ctx context.Context, id string) (*model.Batch, error)
	GetList(ctx context.Context, req *model.ListRequest) ([]model.Batch, error)
	LoadReport(ctx context.Context, id, format string) ([]byte, string, error)
	ReviveOrphans(ctx context.Context, limit int) int
}
