package main

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"golang.org/x/image/draw"
)

// fitFrame scales img to fit within cols x rows terminal cells, each cell
// holding two vertical pixels. The image keeps its aspect ratio and is
// centered on black.
func fitFrame(img image.Image, cols, rows int) *image.RGBA {
	pixW, pixH := max(cols, 1), max(rows*2, 1)
	dst := image.NewRGBA(image.Rect(0, 0, pixW, pixH))

	src := img.Bounds()
	if src.Empty() {
		return dst
	}

	scale := min(float64(pixW)/float64(src.Dx()), float64(pixH)/float64(src.Dy()))
	w := int(float64(src.Dx()) * scale)
	h := int(float64(src.Dy()) * scale)
	x0 := (pixW - w) / 2
	y0 := (pixH - h) / 2

	// Console frames are pixel art, so upscale without smoothing.
	var scaler draw.Scaler = draw.NearestNeighbor
	if scale < 1 {
		scaler = draw.ApproxBiLinear
	}

	scaler.Scale(dst, image.Rect(x0, y0, x0+w, y0+h), img, src, draw.Over, nil)

	return dst
}

// renderFrame writes img as rows of "▀" characters: the top pixel of each
// cell is the foreground color and the bottom pixel the background.
func renderFrame(img *image.RGBA, w *strings.Builder) {
	b := img.Bounds()

	for y := b.Min.Y; y < b.Max.Y; y += 2 {
		for x := b.Min.X; x < b.Max.X; x++ {
			top := img.RGBAAt(x, y)

			var bot color.RGBA
			if y+1 < b.Max.Y {
				bot = img.RGBAAt(x, y+1)
			}

			fmt.Fprintf(w, "\033[38;2;%d;%d;%dm\033[48;2;%d;%d;%dm▀", top.R, top.G, top.B, bot.R, bot.G, bot.B)
		}

		w.WriteString("\033[0m\n")
	}
}
