package labeler

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/skip2/go-qrcode"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/prodtrace/smartlabel/internal/errs"
	"github.com/prodtrace/smartlabel/internal/models"
)

const (
	qrSizePx       = 256
	barcodeWidth   = 300
	barcodeHeight  = 120
	overlayPadding = 100
	minLabelWidth  = 300
)

// OverlayText is the human-readable strip printed under the code image
type OverlayText struct {
	Name    string `json:"name"`
	Batch   string `json:"batch"`
	MfgDate string `json:"mfg_date"`
	ExpDate string `json:"exp_date"`
}

// Renderer turns a canonical payload into label image bytes. The payload is
// the information of record; a renderer failure must never block label
// creation.
type Renderer interface {
	Render(labelType, payload string, overlay OverlayText) ([]byte, error)
}

// ImageRenderer is the default PNG renderer: QR codes via go-qrcode,
// Code 128 barcodes via boombuler/barcode, with a text strip drawn below.
type ImageRenderer struct{}

// Render produces the PNG for a label. Unknown label types fall back to a
// QR code, matching the reference pipeline.
func (ImageRenderer) Render(labelType, payload string, overlay OverlayText) ([]byte, error) {
	var img image.Image
	var err error

	switch labelType {
	case models.LabelTypeBarcode:
		img, err = renderBarcode(payload)
	default:
		img, err = renderQR(payload)
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrRenderFailure, err.Error())
	}

	composed := addOverlay(img, overlay)

	var buf bytes.Buffer
	if err := png.Encode(&buf, composed); err != nil {
		return nil, errs.Wrap(errs.ErrRenderFailure, err.Error())
	}
	return buf.Bytes(), nil
}

func renderQR(payload string) (image.Image, error) {
	qrPng, err := qrcode.Encode(payload, qrcode.Low, qrSizePx)
	if err != nil {
		return nil, fmt.Errorf("qr encode: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(qrPng))
	if err != nil {
		return nil, fmt.Errorf("qr decode: %w", err)
	}
	return img, nil
}

func renderBarcode(payload string) (image.Image, error) {
	if payload == "" {
		return nil, fmt.Errorf("empty barcode payload")
	}
	bc, err := code128.Encode(payload)
	if err != nil {
		return nil, fmt.Errorf("code128 encode: %w", err)
	}
	scaled, err := barcode.Scale(bc, barcodeWidth, barcodeHeight)
	if err != nil {
		return nil, fmt.Errorf("barcode scale: %w", err)
	}
	return scaled, nil
}

// addOverlay pastes the code image onto a white canvas with the overlay
// text lines drawn underneath
func addOverlay(img image.Image, overlay OverlayText) image.Image {
	b := img.Bounds()
	width := b.Dx()
	if width < minLabelWidth {
		width = minLabelWidth
	}
	height := b.Dy() + overlayPadding

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(canvas, b, img, b.Min, draw.Over)

	lines := []string{
		"Product: " + overlay.Name,
		"Batch: " + overlay.Batch,
		"Mfg: " + overlay.MfgDate,
		"Exp: " + overlay.ExpDate,
	}
	drawer := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(color.Black),
		Face: basicfont.Face7x13,
	}
	y := b.Dy() + 20
	for _, line := range lines {
		drawer.Dot = fixed.P(10, y)
		drawer.DrawString(line)
		y += 15
	}
	return canvas
}
