package screen

import (
	"github.com/hajimehoshi/bitmapfont/v2"
	"github.com/jypelle/busboard/internal/images"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"image"
)

var ink = image.Black

// LabelSize is the size of a label once scaled
func LabelSize(label string, scale int) image.Point {
	metrics := bitmapfont.Face.Metrics()
	return image.Pt(
		font.MeasureString(bitmapfont.Face, label).Ceil()*scale,
		metrics.Height.Ceil()*scale,
	)
}

// AddLabel draws label with its top left corner at (x, y), each font pixel
// becoming a scale x scale block.
func AddLabel(img draw.Image, x, y int, label string, scale int) {
	if label == "" {
		return
	}
	metrics := bitmapfont.Face.Metrics()
	size := LabelSize(label, 1)

	mask := image.NewAlpha(image.Rect(0, 0, size.X, size.Y))
	d := &font.Drawer{
		Dst:  mask,
		Src:  image.Opaque,
		Face: bitmapfont.Face,
		Dot:  fixed.Point26_6{X: 0, Y: metrics.Ascent},
	}
	d.DrawString(label)

	if scale > 1 {
		scaled := image.NewAlpha(image.Rect(0, 0, size.X*scale, size.Y*scale))
		draw.NearestNeighbor.Scale(scaled, scaled.Bounds(), mask, mask.Bounds(), draw.Src, nil)
		mask = scaled
	}
	draw.DrawMask(img, mask.Bounds().Add(image.Pt(x, y)), ink, image.Point{}, mask, image.Point{}, draw.Over)
}

func AddCenteredLabel(img draw.Image, y int, label string, scale int) {
	size := LabelSize(label, scale)
	AddLabel(img, (img.Bounds().Dx()-size.X)/2, y, label, scale)
}

func AddIcon(img draw.Image, position image.Point, icon images.Icon) {
	mask := images.IconMask(icon)
	draw.DrawMask(img, mask.Bounds().Add(position), ink, image.Point{}, mask, image.Point{}, draw.Over)
}

// AddLine draws a horizontal rule across the whole image
func AddLine(img draw.Image, y int, thickness int) {
	bounds := img.Bounds()
	draw.Draw(img, image.Rect(bounds.Min.X, y, bounds.Max.X, y+thickness), ink, image.Point{}, draw.Src)
}
