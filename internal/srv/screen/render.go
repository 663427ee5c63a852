package screen

import (
	"fmt"
	"github.com/jypelle/busboard/internal/images"
	"github.com/jypelle/busboard/internal/srv/provider"
	"golang.org/x/image/draw"
	"image"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"time"
)

// Landscape frame size of the 2.7" panel
const (
	Width  = 264
	Height = 176
)

type Layout int

const (
	BLANK_LAYOUT Layout = iota
	BUS_LAYOUT
	WELCOME_LAYOUT
)

// View is everything a frame depends on
type View struct {
	Layout Layout
	Now    time.Time

	// bus layout
	LineName  string
	Direction string
	Board     *provider.DepartureBoard

	// welcome layout
	Greeting []string
	Weather  *provider.WeatherSnapshot
}

// Render draws a view, same view gives the same frame
func Render(view View) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, Width, Height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	switch view.Layout {
	case BUS_LAYOUT:
		renderBus(img, view)
	case WELCOME_LAYOUT:
		renderWelcome(img, view)
	}
	return img
}

func renderBus(img *image1bit.VerticalLSB, view View) {
	AddLabel(img, 10, 2, view.LineName, 2)
	AddLabel(img, 10, 28, view.Direction, 2)
	AddLine(img, 55, 2)

	y := 64
	if view.Board != nil && len(view.Board.Departures) > 0 {
		for i, departure := range view.Board.Departures {
			if i == 2 {
				break
			}
			AddLabel(img, 10, y, departure.Label, 3)
			y += 42
		}
	} else {
		AddLabel(img, 10, y, "Aucun bus", 3)
	}

	AddLine(img, 152, 1)
	footer := "Maj: " + view.Now.Format("15:04")
	if view.Board != nil && view.Board.IsFallback {
		footer = "TEST - " + view.Now.Format("15:04")
	}
	AddLabel(img, 10, 158, footer, 1)
}

func renderWelcome(img *image1bit.VerticalLSB, view View) {
	y := 5
	for _, line := range view.Greeting {
		AddLabel(img, 5, y, line, 2)
		y += 32
	}

	AddLabel(img, 10, 80, view.Now.Format("15:04"), 2)
	AddLabel(img, 10, 110, view.Now.Format("02/01/2006"), 2)

	weather := view.Weather
	if weather == nil || (weather.Morning == nil && weather.Afternoon == nil && weather.Evening == nil) {
		AddLabel(img, 10, 142, "Pas de connexion", 1)
		AddLabel(img, 10, 156, "Meteo indisponible", 1)
		return
	}

	x := 10
	for _, column := range []struct {
		bucket *provider.WeatherBucket
		label  string
	}{
		{weather.Morning, "Mat"},
		{weather.Afternoon, "Ap-m"},
		{weather.Evening, "Soir"},
	} {
		if column.bucket == nil {
			continue
		}
		const yWeather = 145
		AddIcon(img, image.Pt(x, yWeather), ConditionIcon(column.bucket.Condition))
		AddLabel(img, x+30, yWeather, fmt.Sprintf("%dC", column.bucket.Temperature), 1)
		AddLabel(img, x+30, yWeather+13, column.label, 1)
		x += 84
	}
}

func ConditionIcon(condition provider.Condition) images.Icon {
	switch condition {
	case provider.SUNNY:
		return images.SUN_ICON
	case provider.RAIN:
		return images.RAIN_ICON
	case provider.SNOW:
		return images.SNOW_ICON
	case provider.STORM:
		return images.STORM_ICON
	}
	return images.CLOUD_ICON
}
