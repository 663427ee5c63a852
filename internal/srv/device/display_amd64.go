package device

import (
	"gioui.org/app"
	"gioui.org/io/system"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget"
	"github.com/sirupsen/logrus"
	"image"
	"image/color"
	"image/draw"
)

type simulationWindow struct {
	window *app.Window
}

func (d *Display) startSimulation() {
	d.simulationWindow.window = app.NewWindow(
		app.Title("busboard"),
		app.Size(unit.Px(2*FrameWidth), unit.Px(2*FrameHeight)),
		app.MinSize(unit.Px(FrameWidth), unit.Px(FrameHeight)),
	)
	go func() {
		if err := d.gioloop(); err != nil {
			logrus.Errorf("Simulation window closed: %v", err)
		}
	}()
	go app.Main()
}

func (d *Display) invalidateSimulationWindow() {
	if d.simulationWindow.window != nil {
		d.simulationWindow.window.Invalidate()
	}
}

func (d *Display) closeSimulationWindow() {
	if d.simulationWindow.window != nil {
		d.simulationWindow.window.Close()
	}
}

func (d *Display) gioloop() error {
	var ops op.Ops
	for {
		e := <-d.simulationWindow.window.Events()
		switch e := e.(type) {
		case system.DestroyEvent:
			return e.Err
		case system.FrameEvent:
			gtx := layout.NewContext(&ops, e)

			d.lock.RLock()
			lastImg := d.lastImg
			d.lock.RUnlock()
			if lastImg == nil {
				blank := image.NewRGBA(image.Rect(0, 0, FrameWidth, FrameHeight))
				draw.Draw(blank, blank.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
				lastImg = blank
			}

			img := widget.Image{Src: paint.NewImageOp(lastImg), Fit: widget.Contain}
			img.Layout(gtx)
			e.Frame(gtx.Ops)
		}
	}
}
