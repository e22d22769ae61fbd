package service

import (
	"path/filepath"
	"strings"

	"github.com/UnendingLoop/IconConverter/internal/model"
)

func validateQueryParams(req *model.ListRequest) {
	// Обрабатываем пустые значения, присваиваем дефолты если надо
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 30
	}

	// Валидируем тип сортировки
	req.Sort = strings.TrimSpace(strings.ToLower(req.Sort))
	switch {
	case strings.Contains(req.Sort, model.ByUUID):
		req.Sort = model.ByUUID
	default:
		req.Sort = model.ByCreated // по дефолту ставим сортировку по времени создания
	}

	// Валидируем порядок
	req.Order = strings.TrimSpace(strings.ToLower(req.Order))
	switch {
	case strings.Contains(req.Order, model.OrderASC), req.Order == "asc":
		req.Order = "ASC"
	default:
		req.Order = "DESC" // по дефолту ставим сортировку "новое-выше"
	}
}

func validateNormalizeBatchInfo(raw *model.BatchCreateData, clean *model.Batch) error {
	if raw == nil {
		return model.ErrEmptyInputDir
	}

	// директории обязательны
	in, out := strings.TrimSpace(raw.InputDir), strings.TrimSpace(raw.OutputDir)
	if in == "" {
		return model.ErrEmptyInputDir
	}
	if out == "" {
		return model.ErrEmptyOutputDir
	}
	clean.InputDir, clean.OutputDir = filepath.Clean(in), filepath.Clean(out)

	// иконки поверх исходников - повторный прогон их снова повернёт
	if clean.InputDir == clean.OutputDir {
		return model.ErrSameDirs
	}

	// политика: пусто - skip
	clean.Policy = model.Policy(strings.TrimSpace(strings.ToLower(raw.Policy)))
	if clean.Policy == "" {
		clean.Policy = model.PolicySkip
	}
	if !model.PolicyMap[clean.Policy] {
		return model.ErrIncorrectPolicy
	}

	return nil
}
