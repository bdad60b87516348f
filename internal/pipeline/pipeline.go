// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs the pdfmask sequence: open the document, then for
// every embedded image (in document order, strictly one at a time) filter,
// optionally caption and overlay, and replace; finally write the output.
// No state is shared across images and nothing runs concurrently.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/pdfmask/internal/describe"
	"github.com/pdiddy/pdfmask/internal/document"
	"github.com/pdiddy/pdfmask/internal/imagefilter"
	"github.com/pdiddy/pdfmask/internal/overlay"
	"github.com/pdiddy/pdfmask/pkg/types"
)

// Summary holds the outcome of one run.
type Summary struct {
	Processed      int // images filtered and replaced
	Captioned      int // images that received a caption overlay
	CaptionsFailed int // caption failures skipped under KeepGoing
}

// HasFailures reports whether any caption was skipped.
func (s Summary) HasFailures() bool {
	return s.CaptionsFailed > 0
}

// Run executes the pipeline described by opts. Per-image status lines go to
// w; diagnostic detail goes to logger. The captioner is only consulted when
// opts.Describe.Enabled is set. Validation happens before the input file is
// touched.
func Run(ctx context.Context, opts types.Options, captioner describe.Captioner, logger *zap.Logger, w io.Writer) (Summary, error) {
	var summary Summary

	if err := imagefilter.Validate(opts.Filter); err != nil {
		return summary, err
	}
	if opts.Describe.Enabled && captioner == nil {
		return summary, fmt.Errorf("%w: describe enabled but no captioner configured", imagefilter.ErrValidation)
	}
	if opts.Describe.Enabled && opts.Overlay.FontSize <= 0 {
		return summary, fmt.Errorf("%w: font size %d must be positive", imagefilter.ErrValidation, opts.Overlay.FontSize)
	}

	outPath := opts.OutputPath
	if outPath == "" {
		outPath = DefaultOutputPath(opts.InputPath)
	}

	doc, err := document.Open(opts.InputPath)
	if err != nil {
		return summary, err
	}
	logger.Debug("document opened",
		zap.String("path", opts.InputPath),
		zap.Int("pages", doc.PageCount()))

	images, err := doc.Images()
	if err != nil {
		return summary, err
	}
	logger.Debug("images enumerated", zap.Int("count", len(images)))

	for _, embedded := range images {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		processed, captioned, err := processImage(ctx, opts, captioner, logger, embedded)
		if err != nil {
			if opts.KeepGoing && isCaptionFailure(err) {
				fmt.Fprintf(w, "caption failed: page %d %s (%v)\n", embedded.PageNr, embedded.Name, err)
				summary.CaptionsFailed++
			} else {
				return summary, err
			}
		}

		gray := opts.Filter.Gray || opts.Filter.Black
		if err := doc.Replace(embedded.ObjNr, processed, gray); err != nil {
			return summary, err
		}

		if captioned {
			summary.Captioned++
			fmt.Fprintf(w, "replaced: page %d %s (captioned)\n", embedded.PageNr, embedded.Name)
		} else {
			fmt.Fprintf(w, "replaced: page %d %s\n", embedded.PageNr, embedded.Name)
		}
		summary.Processed++
	}

	if err := doc.Write(outPath); err != nil {
		return summary, err
	}

	fmt.Fprintf(w, "\nWrote %s: %d images replaced, %d captioned, %d captions failed\n",
		outPath, summary.Processed, summary.Captioned, summary.CaptionsFailed)
	return summary, nil
}

// processImage applies the filter chain and, when enabled, the caption
// overlay to one embedded image. On a caption failure it returns the
// filtered image together with the error so the caller can decide whether
// to keep going.
func processImage(ctx context.Context, opts types.Options, captioner describe.Captioner, logger *zap.Logger, embedded document.EmbeddedImage) (image.Image, bool, error) {
	var out image.Image = imagefilter.Apply(embedded.Image, opts.Filter)
	logger.Debug("filters applied",
		zap.Int("page", embedded.PageNr),
		zap.String("image", embedded.Name),
		zap.Int("blur", opts.Filter.Blur),
		zap.Bool("emboss", opts.Filter.Emboss),
		zap.Bool("gray", opts.Filter.Gray),
		zap.Bool("black", opts.Filter.Black))

	if !opts.Describe.Enabled {
		return out, false, nil
	}

	// The caption is taken from the original image, before filtering.
	caption, err := captioner.Caption(ctx, embedded.Image)
	if err != nil {
		return out, false, err
	}
	logger.Debug("caption received",
		zap.Int("page", embedded.PageNr),
		zap.String("image", embedded.Name),
		zap.String("caption", caption))

	withText, err := overlay.Draw(out, caption, opts.Overlay.FontSize)
	if err != nil {
		return out, false, fmt.Errorf("overlaying caption on page %d %s: %w", embedded.PageNr, embedded.Name, err)
	}
	return withText, true, nil
}

// isCaptionFailure reports whether err stems from the describe stage.
func isCaptionFailure(err error) bool {
	return errors.Is(err, describe.ErrDescription)
}

// DefaultOutputPath derives the output filename from the input: the input
// stem plus ".masked.pdf", in the same directory.
func DefaultOutputPath(input string) string {
	dir := filepath.Dir(input)
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, stem+".masked.pdf")
}
