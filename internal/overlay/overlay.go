// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package overlay draws caption text onto raster images. Text is word-wrapped
// to the image width and rendered in white over a black drop shadow so it
// stays readable on any background.
package overlay

import (
	"fmt"
	"image"
	"image/draw"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// margin is the distance in pixels from the top-left corner to the first line.
const margin = 10

// Draw renders caption onto a copy of img at the given font size and returns
// the copy. An empty caption returns the copy unchanged. Dimensions are
// always preserved.
func Draw(img image.Image, caption string, fontSize int) (*image.RGBA, error) {
	dst := image.NewRGBA(img.Bounds())
	draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Src)

	caption = strings.TrimSpace(caption)
	if caption == "" {
		return dst, nil
	}

	face, err := newFace(fontSize)
	if err != nil {
		return nil, err
	}
	defer face.Close()

	maxWidth := dst.Bounds().Dx() - 2*margin
	lines := wrap(caption, face, maxWidth)

	metrics := face.Metrics()
	lineHeight := metrics.Height.Ceil()
	y := margin + metrics.Ascent.Ceil()

	for _, line := range lines {
		drawLine(dst, face, line, margin, y)
		y += lineHeight
	}

	return dst, nil
}

// newFace builds a font.Face from the embedded Go Regular at size points.
func newFace(size int) (font.Face, error) {
	if size <= 0 {
		return nil, fmt.Errorf("font size %d must be positive", size)
	}
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing embedded font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("building font face: %w", err)
	}
	return face, nil
}

// drawLine renders one line of text: shadow first, then the white text one
// pixel up-left of it.
func drawLine(dst *image.RGBA, face font.Face, line string, x, y int) {
	shadow := &font.Drawer{
		Dst:  dst,
		Src:  image.Black,
		Face: face,
		Dot:  fixed.P(x+1, y+1),
	}
	shadow.DrawString(line)

	text := &font.Drawer{
		Dst:  dst,
		Src:  image.White,
		Face: face,
		Dot:  fixed.P(x, y),
	}
	text.DrawString(line)
}

// wrap splits text into lines no wider than maxWidth when rendered with face.
// A single word wider than maxWidth gets its own line rather than being
// broken mid-word.
func wrap(text string, face font.Face, maxWidth int) []string {
	if maxWidth <= 0 {
		return []string{text}
	}

	d := &font.Drawer{Face: face}
	limit := fixed.I(maxWidth)

	var lines []string
	var line string

	for _, word := range strings.Fields(text) {
		candidate := word
		if line != "" {
			candidate = line + " " + word
		}
		if d.MeasureString(candidate) <= limit || line == "" {
			line = candidate
			continue
		}
		lines = append(lines, line)
		line = word
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}
