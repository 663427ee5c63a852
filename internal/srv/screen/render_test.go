package screen

import (
	"bytes"
	"github.com/jypelle/busboard/internal/images"
	"github.com/jypelle/busboard/internal/srv/provider"
	"image"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"testing"
	"time"
)

var renderNow = time.Date(2026, 10, 15, 8, 42, 0, 0, time.UTC)

func liveBoard() *provider.DepartureBoard {
	return &provider.DepartureBoard{
		Direction: provider.PRIMARY_DIRECTION,
		Departures: []provider.Departure{
			{Destination: "Vincennes", Minutes: 3, Label: "3 min"},
			{Destination: "Vincennes", Minutes: 14, Label: "14 min"},
			{Destination: "Vincennes", Minutes: 25, Label: "25 min"},
		},
	}
}

func busView(board *provider.DepartureBoard) View {
	return View{Layout: BUS_LAYOUT, Now: renderNow, LineName: "BUS 215", Direction: "VINCENNES RER", Board: board}
}

func blackPixels(img *image1bit.VerticalLSB, r image.Rectangle) int {
	count := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if img.BitAt(x, y) == image1bit.Off {
				count++
			}
		}
	}
	return count
}

func TestRender_Deterministic(t *testing.T) {
	a := Render(busView(liveBoard()))
	b := Render(busView(liveBoard()))
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Error("same view rendered two different frames")
	}
	if a.Bounds() != image.Rect(0, 0, Width, Height) {
		t.Errorf("bounds = %v", a.Bounds())
	}
}

func TestRender_Blank(t *testing.T) {
	img := Render(View{Layout: BLANK_LAYOUT, Now: renderNow})
	if n := blackPixels(img, img.Bounds()); n != 0 {
		t.Errorf("blank frame has %d black pixels", n)
	}
}

func TestRender_Bus(t *testing.T) {
	img := Render(busView(liveBoard()))

	if blackPixels(img, image.Rect(0, 0, Width, 54)) == 0 {
		t.Error("empty header")
	}
	if blackPixels(img, image.Rect(0, 55, Width, 57)) != 2*Width {
		t.Error("missing header rule")
	}
	if blackPixels(img, image.Rect(0, 64, Width, 150)) == 0 {
		t.Error("empty departures")
	}

	live := Render(busView(liveBoard()))
	fallback := liveBoard()
	fallback.IsFallback = true
	test := Render(busView(fallback))
	footer := image.Rect(0, 153, Width, Height)
	if blackPixels(live, footer) == blackPixels(test, footer) {
		t.Error("fallback footer not distinguishable")
	}
}

func TestRender_BusWithoutDepartures(t *testing.T) {
	empty := Render(busView(&provider.DepartureBoard{}))
	missing := Render(busView(nil))
	if !bytes.Equal(empty.Pix, missing.Pix) {
		t.Error("empty and missing board should both show no bus")
	}
	if blackPixels(empty, image.Rect(0, 64, Width, 110)) == 0 {
		t.Error("no bus message missing")
	}
}

func TestRender_Welcome(t *testing.T) {
	view := View{Layout: WELCOME_LAYOUT, Now: renderNow, Greeting: []string{"¡Hola", "Viejo loco!"}}
	withoutWeather := Render(view)

	view.Weather = &provider.WeatherSnapshot{
		Morning: &provider.WeatherBucket{Temperature: 12, Condition: provider.SUNNY},
		Evening: &provider.WeatherBucket{Temperature: -2, Condition: provider.SNOW},
	}
	withWeather := Render(view)

	if blackPixels(withWeather, image.Rect(0, 0, Width, 60)) == 0 {
		t.Error("greeting missing")
	}
	if bytes.Equal(withoutWeather.Pix, withWeather.Pix) {
		t.Error("weather not drawn")
	}
	if blackPixels(withWeather, image.Rect(10, 145, 10+images.IconSize, 145+images.IconSize)) == 0 {
		t.Error("morning icon missing")
	}
}

func TestConditionIcon(t *testing.T) {
	if ConditionIcon(provider.OVERCAST) != images.CLOUD_ICON || ConditionIcon(provider.STORM) != images.STORM_ICON {
		t.Error("unexpected icon mapping")
	}
}
