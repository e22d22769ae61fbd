// Package imageproc provides operations for images: decoding, rotation, resizing,
// colour-mode conversion and the fixed icon transform built on top of them.
package imageproc

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/UnendingLoop/IconConverter/internal/model"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // registers webp decoder for image.Decode
)

// Decode reads any format known to imaging (jpeg, png, gif, tiff, bmp) or webp.
// Orientation tags are ignored: rotation is corrected explicitly.
func Decode(r io.Reader) (image.Image, string, error) {
	if r == nil {
		return nil, "", errors.New("nil-reader provided to Decode")
	}

	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", model.ErrNotImage, err)
	}
	return img, format, nil
}

// RotateClockwise returns a new image turned clockwise by deg degrees.
// Multiples of 90 are lossless, anything else is rotated with a black fill.
func RotateClockwise(img image.Image, deg int) *image.NRGBA {
	// imaging rotates counter-clockwise
	switch ((deg % 360) + 360) % 360 {
	case 0:
		return imaging.Clone(img)
	case 90:
		return imaging.Rotate270(img)
	case 180:
		return imaging.Rotate180(img)
	case 270:
		return imaging.Rotate90(img)
	default:
		return imaging.Rotate(img, float64(-deg), color.Black)
	}
}

// Resize stretches img to exactly w x h.
func Resize(img image.Image, w, h int) (*image.NRGBA, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("incorrect target size %dx%d", w, h)
	}
	return imaging.Resize(img, w, h, imaging.Lanczos), nil
}

// ToRGB drops the alpha channel: colour values are kept as stored and every
// pixel becomes fully opaque. Transparent areas are not composited onto a background.
func ToRGB(img image.Image) *image.NRGBA {
	dst := imaging.Clone(img)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}

// EncodeJPEG writes img as baseline JPEG. Quality outside 1..100 falls back to model.DefaultQuality.
func EncodeJPEG(w io.Writer, img image.Image, quality int) error {
	if quality <= 0 || quality > 100 {
		quality = model.DefaultQuality
	}
	return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
}
