package transport

import (
	"context"

	"github.com/UnendingLoop/IconConverter/internal/model"
	"github.com/gin-gonic/gin"
)

type mockBatchService struct {
	createFn     func(ctx context.Context, d *model.BatchCreateData) (*model.Batch, error)
	getFn        func(ctx context.Context, id string) (*model.Batch, error)
	getListFn    func(ctx context.Context, req *model.ListRequest) ([]model.Batch, error)
	loadReportFn func(ctx context.Context, id, format string) ([]byte, string, error)
}

func (m *mockBatchService) Create(ctx context.Context, d *model.BatchCreateData) (*model.Batch, error) {
	return m.createFn(ctx, d)
}

func (m *mockBatchService) Get(ctx context.Context, id string) (*model.Batch, error) {
	return m.getFn(ctx, id)
}

func (m *mockBatchService) GetList(ctx context.Context, req *model.ListRequest) ([]model.Batch, error) {
	return m.getListFn(ctx, req)
}

func (m *mockBatchService) LoadReport(ctx context.Context, id, format string) ([]byte, string, error) {
	return m.loadReportFn(ctx, id, format)
}

func init() {
	gin.SetMode(gin.TestMode)
}
