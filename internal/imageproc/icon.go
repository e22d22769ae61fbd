package imageproc

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/UnendingLoop/IconConverter/internal/model"
)

// Meta describes the source image of an icon transform.
type Meta struct {
	Format string
	Width  int
	Height int
}

// IconTransform runs the fixed icon pipeline over one encoded image:
// decode, rotate 90° clockwise, stretch to 128x128, drop alpha, encode JPEG.
// Every step produces a new image; the source is not touched.
func IconTransform(r io.Reader, quality int) (io.Reader, int64, Meta, error) {
	if r == nil {
		return nil, 0, Meta{}, errors.New("nil-reader provided to IconTransform")
	}

	src, format, err := Decode(r)
	if err != nil {
		return nil, 0, Meta{}, err
	}
	meta := Meta{Format: format, Width: src.Bounds().Dx(), Height: src.Bounds().Dy()}

	rotated := RotateClockwise(src, model.IconRotation)

	resized, err := Resize(rotated, model.IconWidth, model.IconHeight)
	if err != nil {
		return nil, 0, meta, err
	}

	rgb := ToRGB(resized)

	var buf bytes.Buffer
	if err := EncodeJPEG(&buf, rgb, quality); err != nil {
		return nil, 0, meta, fmt.Errorf("failed to ENcode icon: %w", err)
	}
	return &buf, int64(buf.Len()), meta, nil
}
