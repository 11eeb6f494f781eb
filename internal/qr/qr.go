// Package qr renders short URLs as scannable QR code images. It is a thin
// boundary around the rendering libraries; callers pass the display string and
// the configured options and get image bytes back.
package qr

import (
	"bytes"
	"fmt"

	"github.com/aaronarduino/goqrsvg"
	svg "github.com/ajstarks/svgo"
	"github.com/boombuler/barcode/qr"
	"github.com/skip2/go-qrcode"
)

const (
	FormatPNG = "png"
	FormatSVG = "svg"
)

// Options carries the operator-configured rendering knobs.
type Options struct {
	// Size is the target image size in pixels.
	Size int
	// Level selects the error-correction level: low, medium, high or highest.
	Level string
}

// PNG renders text as a PNG image of roughly Size x Size pixels.
func PNG(text string, opts Options) ([]byte, error) {
	const op = "qr.PNG"

	level, err := pngLevel(opts.Level)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	png, err := qrcode.Encode(text, level, opts.Size)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to encode qr code: %w", op, err)
	}

	return png, nil
}

// SVG renders text as an SVG document scaled to roughly Size x Size pixels.
func SVG(text string, opts Options) ([]byte, error) {
	const op = "qr.SVG"

	level, err := svgLevel(opts.Level)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	code, err := qr.Encode(text, level, qr.Auto)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to encode qr code: %w", op, err)
	}

	blockSize := opts.Size / code.Bounds().Dx()
	if blockSize < 1 {
		blockSize = 1
	}

	buf := new(bytes.Buffer)
	canvas := svg.New(buf)

	qs := goqrsvg.NewQrSVG(code, blockSize)
	qs.StartQrSVG(canvas)
	if err := qs.WriteQrSVG(canvas); err != nil {
		return nil, fmt.Errorf("%s: failed to write svg: %w", op, err)
	}
	canvas.End()

	return buf.Bytes(), nil
}

func pngLevel(level string) (qrcode.RecoveryLevel, error) {
	switch level {
	case "low":
		return qrcode.Low, nil
	case "medium", "":
		return qrcode.Medium, nil
	case "high":
		return qrcode.High, nil
	case "highest":
		return qrcode.Highest, nil
	}

	return 0, fmt.Errorf("unknown error correction level %q", level)
}

func svgLevel(level string) (qr.ErrorCorrectionLevel, error) {
	switch level {
	case "low":
		return qr.L, nil
	case "medium", "":
		return qr.M, nil
	case "high":
		return qr.Q, nil
	case "highest":
		return qr.H, nil
	}

	return 0, fmt.Errorf("unknown error correction level %q", level)
}
