package worker

import (
	"context"
	"io"
	"sync"

	"github.com/UnendingLoop/IconConverter/internal/model"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

type mockWorkerService struct {
	getFn        func(ctx context.Context, id string) (*model.Batch, error)
	updateFn     func(ctx context.Context, id string, st model.Status) error
	saveResultFn func(ctx context.Context, b *model.Batch) error
}

func (m *mockWorkerService) Get(ctx context.Context, id string) (*model.Batch, error) {
	return m.getFn(ctx, id)
}

func (m *mockWorkerService) UpdateStatus(ctx context.Context, id string, st model.Status) error {
	return m.updateFn(ctx, id, st)
}

func (m *mockWorkerService) SaveResult(ctx context.Context, b *model.Batch) error {
	return m.saveResultFn(ctx, b)
}

//----------------------------------

type mockRunner struct {
	calls int
	runFn func(ctx context.Context, id uuid.UUID, in, out string) (*model.Report, error)
}

func (m *mockRunner) RunBatch(ctx context.Context, id uuid.UUID, in, out string) (*model.Report, error) {
	m.calls++
	return m.runFn(ctx, id, in, out)
}

//----------------------------------

type mockSink struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (m *mockSink) Put(_ context.Context, key string, _ int64, _ string, r io.Reader) error {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, key)
	return m.err
}

//----------------------------------

type mockNotifier struct {
	reports []*model.Report
	err     error
}

func (m *mockNotifier) Notify(_ context.Context, r *model.Report) error {
	m.reports = append(m.reports, r)
	return m.err
}

//----------------------------------

type mockCommitter struct {
	mu        sync.Mutex
	committed []string
}

func (m *mockCommitter) Commit(_ context.Context, msg kafkago.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.committed = append(m.committed, string(msg.Key))
	return nil
}
