package transport

import (
	"errors"

	"github.com/UnendingLoop/IconConverter/internal/model"
)

func errorCodeDefiner(err error) int {
	switch {
	case errors.Is(err, model.ErrCommon500):
		return 500
	case errors.Is(err, model.ErrBatchNotFound),
		errors.Is(err, model.ErrReportNotReady):
		return 404
	case errors.Is(err, model.ErrIncorrectQuery),
		errors.Is(err, model.ErrIncorrectID),
		errors.Is(err, model.ErrEmptyInputDir),
		errors.Is(err, model.ErrEmptyOutputDir),
		errors.Is(err, model.ErrSameDirs),
		errors.Is(err, model.ErrIncorrectPolicy),
		errors.Is(err, model.ErrIncorrectStatus),
		errors.Is(err, model.ErrUnsupportedReportFormat):
		return 400
	default:
		return 500
	}
}
