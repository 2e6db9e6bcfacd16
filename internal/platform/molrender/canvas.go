package molrender

import (
	"bytes"
	"image"
	"image/png"

	_ "image/jpeg"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
)

// normalizeCanvas letterboxes the rendered depiction onto a white canvas of
// the requested size, preserving aspect ratio.
func normalizeCanvas(raw []byte, width, height int) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	bounds := src.Bounds()
	if bounds.Dx() == width && bounds.Dy() == height {
		return raw, nil
	}

	scale := float64(width) / float64(bounds.Dx())
	if s := float64(height) / float64(bounds.Dy()); s < scale {
		scale = s
	}
	dstW := int(float64(bounds.Dx()) * scale)
	dstH := int(float64(bounds.Dy()) * scale)
	if dstW < 1 {
		dstW = 1
	}
	if dstH < 1 {
		dstH = 1
	}

	scaled := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), src, bounds, draw.Over, nil)

	dc := gg.NewContext(width, height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.DrawImageAnchored(scaled, width/2, height/2, 0.5, 0.5)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
