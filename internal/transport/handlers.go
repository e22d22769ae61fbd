// Package transport provides methods for processing requests from endpoints
package transport

import (
	"context"

	"github.com/UnendingLoop/IconConverter/internal/model"
	"github.com/wb-go/wbf/ginext"
)

type BatchHandler struct {
	service BatchService
}

type BatchService interface {
	Create(ctx context.Context, data *model.BatchCreateData) (*model.Batch, error)
	Get(ctx context.Context, id string) (*model.Batch, error)
	GetList(ctx context.Context, req *model.ListRequest) ([]model.Batch, error) // получить список
	LoadReport(ctx context.Context, id, format string) ([]byte, string, error)  // отчёт о конвертации
}

func NewBatchHandler(svc BatchService) *BatchHandler {
	return &BatchHandler{
		service: svc,
	}
}

func (h BatchHandler) SimplePinger(ctx *ginext.Context) {
	ctx.JSON(200, map[string]string{"message": "pong"})
}

// Create schedules a conversion batch: {"input_dir": "...", "output_dir": "...", "policy": "skip|abort"}
func (h BatchHandler) Create(ctx *ginext.Context) {
	var raw model.BatchCreateData
	if err := ctx.ShouldBindJSON(&raw); err != nil {
		ctx.JSON(400, map[string]string{"error": "failed to parse request body"})
		return
	}

	// передаем в сервис
	res, err := h.service.Create(ctx.Request.Context(), &raw)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(201, res)
}

func (h BatchHandler) GetAllBatches(ctx *ginext.Context) {
	var req model.ListRequest

	if err := ctx.ShouldBindQuery(&req); err != nil {
		ctx.JSON(400, map[string]string{"error": "failed to parse query-params"})
		return
	}

	res, err := h.service.GetList(ctx.Request.Context(), &req)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(200, res)
}

func (h BatchHandler) GetBatch(ctx *ginext.Context) {
	id := ctx.Param("id")

	res, err := h.service.Get(ctx.Request.Context(), id)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(200, res)
}

// LoadReport отдаёт отчёт батча, формат через ?format=json|yaml
func (h BatchHandler) LoadReport(ctx *ginext.Context) {
	id := ctx.Param("id")
	format := ctx.DefaultQuery("format", "json")

	data, cType, err := h.service.LoadReport(ctx.Request.Context(), id, format)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.Data(200, cType, data)
}
