package images

import (
	"golang.org/x/image/vector"
	"image"
	"math"
)

const IconSize = 26

type Icon int

const (
	SUN_ICON Icon = iota
	CLOUD_ICON
	RAIN_ICON
	SNOW_ICON
	STORM_ICON
)

var iconMasks = map[Icon]*image.Alpha{}

func init() {
	// Rasterize icons
	iconMasks[SUN_ICON] = rasterize(IconSize, drawSun)
	iconMasks[CLOUD_ICON] = rasterize(IconSize, func(p *pen) { drawCloud(p, 0, 0.15, 1) })
	iconMasks[RAIN_ICON] = rasterize(IconSize, drawRain)
	iconMasks[SNOW_ICON] = rasterize(IconSize, drawSnow)
	iconMasks[STORM_ICON] = rasterize(IconSize, drawStorm)
}

// IconMask returns the alpha mask of an icon, opaque where ink goes
func IconMask(icon Icon) *image.Alpha {
	mask, ok := iconMasks[icon]
	if !ok {
		return iconMasks[CLOUD_ICON]
	}
	return mask
}

// pen draws in unit coordinates, (0,0) top left and (1,1) bottom right
type pen struct {
	z    *vector.Rasterizer
	size float32
}

func rasterize(size int, draw func(p *pen)) *image.Alpha {
	z := vector.NewRasterizer(size, size)
	draw(&pen{z: z, size: float32(size)})
	mask := image.NewAlpha(image.Rect(0, 0, size, size))
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	return mask
}

func (p *pen) moveTo(x, y float32) { p.z.MoveTo(x*p.size, y*p.size) }
func (p *pen) lineTo(x, y float32) { p.z.LineTo(x*p.size, y*p.size) }

func (p *pen) cubeTo(x1, y1, x2, y2, x3, y3 float32) {
	p.z.CubeTo(x1*p.size, y1*p.size, x2*p.size, y2*p.size, x3*p.size, y3*p.size)
}

// disc fills a circle; a counter clockwise disc inside a clockwise one cuts a hole
func (p *pen) disc(cx, cy, r float32, clockwise bool) {
	k := r * 0.5523
	p.moveTo(cx+r, cy)
	if clockwise {
		p.cubeTo(cx+r, cy+k, cx+k, cy+r, cx, cy+r)
		p.cubeTo(cx-k, cy+r, cx-r, cy+k, cx-r, cy)
		p.cubeTo(cx-r, cy-k, cx-k, cy-r, cx, cy-r)
		p.cubeTo(cx+k, cy-r, cx+r, cy-k, cx+r, cy)
	} else {
		p.cubeTo(cx+r, cy-k, cx+k, cy-r, cx, cy-r)
		p.cubeTo(cx-k, cy-r, cx-r, cy-k, cx-r, cy)
		p.cubeTo(cx-r, cy+k, cx-k, cy+r, cx, cy+r)
		p.cubeTo(cx+k, cy+r, cx+r, cy+k, cx+r, cy)
	}
	p.z.ClosePath()
}

func (p *pen) ring(cx, cy, r, width float32) {
	p.disc(cx, cy, r, true)
	p.disc(cx, cy, r-width, false)
}

// line strokes a segment as a quad
func (p *pen) line(x1, y1, x2, y2, width float32) {
	dx, dy := x2-x1, y2-y1
	length := float32(math.Hypot(float64(dx), float64(dy)))
	if length == 0 {
		return
	}
	nx, ny := -dy/length*width/2, dx/length*width/2
	p.moveTo(x1+nx, y1+ny)
	p.lineTo(x2+nx, y2+ny)
	p.lineTo(x2-nx, y2-ny)
	p.lineTo(x1-nx, y1-ny)
	p.z.ClosePath()
}

func drawSun(p *pen) {
	p.ring(0.5, 0.5, 0.22, 0.08)
	p.disc(0.5, 0.5, 0.08, true)
	for i := 0; i < 8; i++ {
		angle := float64(i) * math.Pi / 4
		cos, sin := float32(math.Cos(angle)), float32(math.Sin(angle))
		width := float32(0.06)
		if i%2 == 0 {
			width = 0.09
		}
		p.line(0.5+cos*0.3, 0.5+sin*0.3, 0.5+cos*0.46, 0.5+sin*0.46, width)
	}
}

// drawCloud fills a cloud in the box starting at (x, y) of the given width
func drawCloud(p *pen, x, y, scale float32) {
	p.disc(x+0.25*scale, y+0.45*scale, 0.18*scale, true)
	p.disc(x+0.48*scale, y+0.3*scale, 0.24*scale, true)
	p.disc(x+0.74*scale, y+0.45*scale, 0.18*scale, true)
	p.moveTo(x+0.25*scale, y+0.45*scale)
	p.lineTo(x+0.74*scale, y+0.45*scale)
	p.lineTo(x+0.74*scale, y+0.63*scale)
	p.lineTo(x+0.25*scale, y+0.63*scale)
	p.z.ClosePath()
}

func drawRain(p *pen) {
	drawCloud(p, 0, -0.05, 1)
	for _, dropX := range []float32{0.28, 0.5, 0.72} {
		p.line(dropX, 0.68, dropX-0.08, 0.95, 0.08)
	}
}

func drawSnow(p *pen) {
	drawCloud(p, 0, -0.05, 1)
	for _, flakeX := range []float32{0.25, 0.5, 0.75} {
		const flakeY, r = 0.82, 0.1
		p.line(flakeX-r, flakeY, flakeX+r, flakeY, 0.05)
		p.line(flakeX, flakeY-r, flakeX, flakeY+r, 0.05)
		p.line(flakeX-r*0.7, flakeY-r*0.7, flakeX+r*0.7, flakeY+r*0.7, 0.05)
		p.line(flakeX-r*0.7, flakeY+r*0.7, flakeX+r*0.7, flakeY-r*0.7, 0.05)
	}
}

func drawStorm(p *pen) {
	drawCloud(p, 0, -0.05, 1)
	// bolt
	p.moveTo(0.55, 0.6)
	p.lineTo(0.36, 0.8)
	p.lineTo(0.5, 0.8)
	p.lineTo(0.42, 1)
	p.lineTo(0.66, 0.74)
	p.lineTo(0.52, 0.74)
	p.lineTo(0.62, 0.6)
	p.z.ClosePath()
}
