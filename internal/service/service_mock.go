package service

import (
	"context"
	"time"

	"github.com/UnendingLoop/IconConverter/internal/model"
	"github.com/wb-go/wbf/retry"
)

// MOCK RESPOSITORY

type mockRepo struct {
	createFn       func(ctx context.Context, b *model.Batch) error
	getFn          func(ctx context.Context, id string) (*model.Batch, error)
	getListFn      func(ctx context.Context, req *model.ListRequest) ([]model.Batch, error)
	updateStatusFn func(ctx context.Context, id string, st model.Status) error
	saveResultFn   func(ctx context.Context, b *model.Batch) error
	fetchOrphansFn func(ctx context.Context, limit int, staleAfter time.Duration) ([]string, error)
}

func (m *mockRepo) Create(ctx context.Context, b *model.Batch) error {
	return m.createFn(ctx, b)
}

func (m *mockRepo) Get(ctx context.Context, id string) (*model.Batch, error) {
	return m.getFn(ctx, id)
}

func (m *mockRepo) GetList(ctx context.Context, req *model.ListRequest) ([]model.Batch, error) {
	return m.getListFn(ctx, req)
}

func (m *mockRepo) UpdateStatus(ctx context.Context, id string, st model.Status) error {
	return m.updateStatusFn(ctx, id, st)
}

func (m *mockRepo) SaveResult(ctx context.Context, b *model.Batch) error {
	return m.saveResultFn(ctx, b)
}

func (m *mockRepo) FetchOrphans(ctx context.Context, limit int, staleAfter time.Duration) ([]string, error) {
	return m.fetchOrphansFn(ctx, limit, staleAfter)
}

// MOCK PUBLISHER

type mockPublisher struct {
	sendFn func(ctx context.Context, s retry.Strategy, key []byte, v []byte) error
}

func (m *mockPublisher) SendWithRetry(ctx context.Context, s retry.Strategy, key []byte, v []byte) error {
	return m.sendFn(ctx, s, key, v)
}
