package process

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"gocv.io/x/gocv"
)

var (
	colorTime = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	colorBG   = color.RGBA{R: 0, G: 0, B: 0, A: 255}
)

// FormatOffset renders a clip offset as m:ss.t.
func FormatOffset(d time.Duration) string {
	tenths := d.Round(100*time.Millisecond) / (100 * time.Millisecond)
	t := int64(tenths)
	return fmt.Sprintf("%d:%02d.%d", t/600, (t/10)%60, t%10)
}

// DrawOffset draws the label and clip offset on the given image.
func DrawOffset(img *gocv.Mat, label string, offset time.Duration) {
	text := FormatOffset(offset)
	if label != "" {
		text = label + " - " + text
	}

	font := gocv.FontHersheySimplex
	scale := 0.5
	thickness := 1

	sz := gocv.GetTextSize(text, font, scale, thickness)

	pad := 2

	gocv.Rectangle(img, image.Rectangle{Min: image.Point{X: 0, Y: 0}, Max: image.Point{X: sz.X + pad*2, Y: sz.Y + pad*2}}, colorBG, -1)

	gocv.PutText(img, text, image.Point{X: pad, Y: sz.Y + pad}, font, scale, colorTime, thickness)
}
