package preprocess

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	"image/png"
	"strings"

	"github.com/gen2brain/heic"
	xdraw "golang.org/x/image/draw"

	"slipstream/internal/services"
)

// MaxDimension bounds the longest side of a preprocessed image in pixels.
// Larger inputs are downscaled proportionally before recognition.
const MaxDimension = 2800

// Result is the output of Prepare.
type Result struct {
	// Data holds normalized PNG bytes, or the untouched input when
	// PassThrough is set.
	Data []byte
	MIME string
	// PassThrough marks non-raster inputs the preprocessor does not touch.
	PassThrough bool
	// Width and Height describe the raster dimensions after normalization;
	// zero for pass-through inputs.
	Width  int
	Height int
}

// Prepare normalizes raw receipt bytes for recognition. PDFs pass through
// unchanged; raster formats are grayscaled, contrast stretched, and bounded
// to MaxDimension. Undecodable raster data yields a decode error.
func Prepare(data []byte, mimeHint string) (Result, error) {
	mimeHint = strings.ToLower(strings.TrimSpace(mimeHint))

	if isPDF(data, mimeHint) {
		return Result{Data: data, MIME: "application/pdf", PassThrough: true}, nil
	}

	img, err := decode(data, mimeHint)
	if err != nil {
		return Result{}, services.Wrap(services.ErrDecode, "preprocess", "decode image", "unsupported or corrupt image data", err)
	}

	img = bound(img, MaxDimension)
	gray := grayscale(img)
	stretchContrast(gray)

	var buf bytes.Buffer
	if err := png.Encode(&buf, gray); err != nil {
		return Result{}, services.Wrap(services.ErrDecode, "preprocess", "encode png", "re-encode normalized image", err)
	}

	b := gray.Bounds()
	return Result{
		Data:   buf.Bytes(),
		MIME:   "image/png",
		Width:  b.Dx(),
		Height: b.Dy(),
	}, nil
}

func decode(data []byte, mimeHint string) (image.Image, error) {
	if isHEIC(data, mimeHint) {
		img, err := heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode heic: %w", err)
		}
		return img, nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return img, nil
}

// bound downscales img proportionally so neither dimension exceeds maxPx.
// Images already inside the bound are returned unchanged.
func bound(img image.Image, maxPx int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxPx && h <= maxPx {
		return img
	}

	scale := float64(maxPx) / float64(w)
	if h > w {
		scale = float64(maxPx) / float64(h)
	}
	dw := int(float64(w)*scale + 0.5)
	dh := int(float64(h)*scale + 0.5)
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

func grayscale(img image.Image) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gray.Set(x-b.Min.X, y-b.Min.Y, img.At(x, y))
		}
	}
	return gray
}

// stretchContrast maps the observed min..max luminance range onto 0..255 in
// place. Uniform images are left as-is.
func stretchContrast(gray *image.Gray) {
	minPx, maxPx := uint8(255), uint8(0)
	for _, p := range gray.Pix {
		if p < minPx {
			minPx = p
		}
		if p > maxPx {
			maxPx = p
		}
	}
	if maxPx == minPx {
		return
	}

	span := uint32(maxPx - minPx)
	for i, p := range gray.Pix {
		gray.Pix[i] = uint8(uint32(p-minPx) * 255 / span)
	}
}

func isPDF(data []byte, mimeHint string) bool {
	if mimeHint == "application/pdf" {
		return true
	}
	return len(data) >= 5 && bytes.HasPrefix(data, []byte("%PDF-"))
}

// isHEIC sniffs the ISO-BMFF ftyp box brands iPhones emit.
func isHEIC(data []byte, mimeHint string) bool {
	if strings.Contains(mimeHint, "heic") || strings.Contains(mimeHint, "heif") {
		return true
	}
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heif", "mif1", "msf1":
		return true
	}
	return false
}
