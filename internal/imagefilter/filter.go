// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package imagefilter applies pixel transforms to decoded raster images.
// Filters are pure and deterministic: the same input image and config always
// produce the same output, with dimensions preserved.
package imagefilter

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/pdiddy/pdfmask/pkg/types"
)

// ErrValidation reports an out-of-range or inconsistent filter configuration.
// It is returned before any document processing starts.
var ErrValidation = errors.New("invalid filter configuration")

// Blur radius bounds accepted by Validate.
const (
	MinBlur = 0
	MaxBlur = 50
)

// embossKernel is a 3x3 convolution that highlights edges against a mid-gray
// background (bias 128), matching the classic emboss filter.
var embossKernel = [9]float64{
	-1, 0, 0,
	0, 1, 0,
	0, 0, 0,
}

// Validate checks cfg and returns an error wrapping ErrValidation when the
// blur radius falls outside [MinBlur, MaxBlur].
func Validate(cfg types.FilterConfig) error {
	if cfg.Blur < MinBlur || cfg.Blur > MaxBlur {
		return fmt.Errorf("%w: blur radius %d outside [%d, %d]", ErrValidation, cfg.Blur, MinBlur, MaxBlur)
	}
	return nil
}

// Apply runs the enabled filters over img in a fixed order: blur, emboss,
// gray, black. It returns a new image of identical dimensions; the input is
// never mutated. With no filters enabled the image is returned as a plain
// copy.
func Apply(img image.Image, cfg types.FilterConfig) *image.NRGBA {
	out := imaging.Clone(img)

	if cfg.Blur > 0 {
		out = imaging.Blur(out, float64(cfg.Blur))
	}
	if cfg.Emboss {
		out = imaging.Convolve3x3(out, embossKernel, &imaging.ConvolveOptions{Bias: 128})
	}
	if cfg.Gray {
		out = imaging.Grayscale(out)
	}
	if cfg.Black {
		out = blacken(out)
	}

	return out
}

// blacken forces every pixel to pure black or pure white using a 50%
// luminance threshold. Alpha is preserved.
func blacken(img *image.NRGBA) *image.NRGBA {
	out := imaging.Clone(img)
	b := out.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := out.Pix[(y-b.Min.Y)*out.Stride : (y-b.Min.Y)*out.Stride+(b.Max.X-b.Min.X)*4]
		for x := 0; x < len(row); x += 4 {
			// Rec. 601 luma.
			luma := 0.299*float64(row[x]) + 0.587*float64(row[x+1]) + 0.114*float64(row[x+2])
			var v uint8
			if luma >= 128 {
				v = 255
			}
			row[x], row[x+1], row[x+2] = v, v, v
		}
	}
	return out
}

// IsGray reports whether every pixel of img has equal R, G, and B channels.
// Used to pick DeviceGray for re-encoded output.
func IsGray(img image.Image) bool {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			if r != g || g != bl {
				return false
			}
		}
	}
	return true
}
