// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package document wraps pdfcpu's object model for the pdfmask pipeline:
// open a PDF, enumerate its embedded raster images, substitute re-encoded
// images in place, and write the result. Replacement keeps the original
// object numbers, so page content streams, placement, and transforms are
// untouched.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	_ "image/png" // register PNG decoding for pdfcpu-extracted images
	"io"
	"os"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	_ "golang.org/x/image/tiff" // pdfcpu emits TIFF for CCITT and raw streams
)

// Sentinel errors for the stages owned by this package.
var (
	// ErrLoad reports a missing input file or a PDF that fails validation.
	ErrLoad = errors.New("cannot load document")

	// ErrReplace reports an image substitution failure: unknown object
	// number, non-stream target, or an image that cannot be re-encoded.
	ErrReplace = errors.New("cannot replace image")

	// ErrWrite reports an output serialization failure.
	ErrWrite = errors.New("cannot write document")
)

// jpegQuality is the quality used when re-encoding replacement images.
const jpegQuality = 90

// EmbeddedImage is one raster image XObject found in the document.
type EmbeddedImage struct {
	// PageNr is the 1-based page the image renders on.
	PageNr int

	// ObjNr is the PDF object number of the image stream.
	ObjNr int

	// Name is the XObject resource name (e.g. "Im1").
	Name string

	// Image is the decoded raster.
	Image image.Image
}

// Document is an open PDF whose image streams can be rewritten.
type Document struct {
	ctx *model.Context
}

// Open reads, validates, and optimizes the PDF at path. A nonexistent file
// or invalid document fails with an error wrapping ErrLoad.
func Open(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoad, path, err)
	}

	return &Document{ctx: ctx}, nil
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	return d.ctx.PageCount
}

// Images enumerates the embedded raster images in document order: pages
// first to last, then ascending object number within a page. Each image is
// decoded into memory. An undecodable image (e.g. JPEG2000) fails the whole
// enumeration with an error wrapping ErrLoad.
func (d *Document) Images() ([]EmbeddedImage, error) {
	var result []EmbeddedImage

	for pageNr := 1; pageNr <= d.ctx.PageCount; pageNr++ {
		extracted, err := pdfcpu.ExtractPageImages(d.ctx, pageNr, false)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", ErrLoad, pageNr, err)
		}

		objNrs := make([]int, 0, len(extracted))
		for objNr := range extracted {
			objNrs = append(objNrs, objNr)
		}
		sort.Ints(objNrs)

		for _, objNr := range objNrs {
			img := extracted[objNr]
			decoded, err := decodeImage(img)
			if err != nil {
				return nil, fmt.Errorf("%w: page %d object %d (%s): %v",
					ErrLoad, pageNr, objNr, img.Name, err)
			}
			result = append(result, EmbeddedImage{
				PageNr: pageNr,
				ObjNr:  objNr,
				Name:   img.Name,
				Image:  decoded,
			})
		}
	}

	return result, nil
}

// decodeImage turns a pdfcpu-extracted image into an image.Image. pdfcpu
// hands back JPEG, PNG, or TIFF depending on the stream's filter chain.
func decodeImage(img model.Image) (image.Image, error) {
	data, err := io.ReadAll(img)
	if err != nil {
		return nil, fmt.Errorf("reading image stream: %w", err)
	}
	decoded, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding %s image: %w", img.FileType, err)
	}
	return decoded, nil
}

// Replace re-encodes img as JPEG and overwrites the stream dictionary at
// objNr in place. ColorSpace becomes DeviceGray when gray is true, DeviceRGB
// otherwise. Soft masks and decode arrays are dropped: the replacement
// carries no alpha channel.
func (d *Document) Replace(objNr int, img image.Image, gray bool) error {
	entry, ok := d.ctx.Table[objNr]
	if !ok || entry == nil || entry.Free {
		return fmt.Errorf("%w: object %d not found", ErrReplace, objNr)
	}

	sd, ok := entry.Object.(types.StreamDict)
	if !ok {
		return fmt.Errorf("%w: object %d is not a stream", ErrReplace, objNr)
	}

	// The declared ColorSpace must match the JPEG's component count, so
	// grayscale output is converted to a single-channel image first.
	colorSpace := "DeviceRGB"
	if gray {
		colorSpace = "DeviceGray"
		img = toGray(img)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return fmt.Errorf("%w: object %d: encoding JPEG: %v", ErrReplace, objNr, err)
	}
	data := buf.Bytes()

	b := img.Bounds()
	sd.Dict["Width"] = types.Integer(b.Dx())
	sd.Dict["Height"] = types.Integer(b.Dy())
	sd.Dict["ColorSpace"] = types.Name(colorSpace)
	sd.Dict["BitsPerComponent"] = types.Integer(8)
	sd.Dict["Filter"] = types.Name("DCTDecode")
	sd.Dict["Length"] = types.Integer(len(data))
	delete(sd.Dict, "DecodeParms")
	delete(sd.Dict, "Decode")
	delete(sd.Dict, "SMask")
	delete(sd.Dict, "Mask")
	delete(sd.Dict, "ImageMask")

	sd.FilterPipeline = []types.PDFFilter{{Name: "DCTDecode"}}
	sd.Raw = data
	sd.Content = nil
	length := int64(len(data))
	sd.StreamLength = &length
	sd.StreamLengthObjNr = nil

	entry.Object = sd
	return nil
}

// toGray converts img to a single-channel grayscale image.
func toGray(img image.Image) image.Image {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	g := image.NewGray(b)
	draw.Draw(g, b, img, b.Min, draw.Src)
	return g
}

// Write serializes the document to path. Failures wrap ErrWrite.
func (d *Document) Write(path string) error {
	if err := api.WriteContextFile(d.ctx, path); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWrite, path, err)
	}
	return nil
}
