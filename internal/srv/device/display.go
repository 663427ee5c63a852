package device

import (
	"errors"
	"fmt"
	"github.com/jypelle/busboard/internal/srv/config"
	"github.com/sirupsen/logrus"
	"image"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"
	"sync"
)

type PanelMode int

const (
	UNINITIALIZED_PANEL PanelMode = iota
	NORMAL_PANEL
	FAST_PANEL
	SLEEPING_PANEL
)

func (m PanelMode) String() string {
	switch m {
	case NORMAL_PANEL:
		return "normal"
	case FAST_PANEL:
		return "fast"
	case SLEEPING_PANEL:
		return "sleeping"
	}
	return "uninitialized"
}

var ErrPanelMode = errors.New("e-paper not initialized for this refresh")

// epdPanel is the command set used by Display, implemented by Epd2in7
type epdPanel interface {
	Init() error
	InitFast() error
	Display(buffer []byte) error
	DisplayFast(buffer []byte) error
	Clear() error
	Sleep() error
	Close() error
}

// Display is the e-paper sink. It refuses refreshes that do not match
// the waveform currently loaded in the panel.
type Display struct {
	lock           sync.RWMutex
	param          config.DisplayParam
	simulationMode bool

	panel     epdPanel
	panelMode PanelMode
	lastImg   image.Image

	simulationWindow simulationWindow
}

func NewDisplay(param config.DisplayParam, simulationMode bool) *Display {
	return &Display{
		param:          param,
		simulationMode: simulationMode,
	}
}

func (d *Display) Start() error {
	logrus.Infof("Start display device")

	d.lock.Lock()
	defer d.lock.Unlock()

	if d.simulationMode {
		d.startSimulation()
		return nil
	}

	if _, err := host.Init(); err != nil {
		return fmt.Errorf("unable to init periph host: %w", err)
	}
	epd, err := OpenEpd2in7(d.param)
	if err != nil {
		return err
	}
	d.panel = epd
	return nil
}

func (d *Display) InitNormal() error {
	d.lock.Lock()
	defer d.lock.Unlock()

	if d.panel != nil {
		if err := d.panel.Init(); err != nil {
			return fmt.Errorf("init: %w", err)
		}
	}
	d.panelMode = NORMAL_PANEL
	logrus.Debugf("Display in normal mode")
	return nil
}

func (d *Display) InitFast() error {
	d.lock.Lock()
	defer d.lock.Unlock()

	if d.panel != nil {
		if err := d.panel.InitFast(); err != nil {
			return fmt.Errorf("init fast: %w", err)
		}
	}
	d.panelMode = FAST_PANEL
	logrus.Debugf("Display in fast mode")
	return nil
}

func (d *Display) Clear() error {
	d.lock.Lock()
	defer d.lock.Unlock()

	if d.panelMode != NORMAL_PANEL {
		return fmt.Errorf("clear in %s mode: %w", d.panelMode, ErrPanelMode)
	}
	if d.panel != nil {
		if err := d.panel.Clear(); err != nil {
			return fmt.Errorf("clear: %w", err)
		}
	}
	d.show(nil)
	return nil
}

func (d *Display) DisplayFull(frame *image1bit.VerticalLSB) error {
	d.lock.Lock()
	defer d.lock.Unlock()

	if d.panelMode != NORMAL_PANEL {
		return fmt.Errorf("full refresh in %s mode: %w", d.panelMode, ErrPanelMode)
	}
	if d.panel != nil {
		if err := d.panel.Display(PackFrame(frame)); err != nil {
			return fmt.Errorf("full refresh: %w", err)
		}
	}
	d.show(frame)
	return nil
}

func (d *Display) DisplayFast(frame *image1bit.VerticalLSB) error {
	d.lock.Lock()
	defer d.lock.Unlock()

	if d.panelMode != FAST_PANEL {
		return fmt.Errorf("fast refresh in %s mode: %w", d.panelMode, ErrPanelMode)
	}
	if d.panel != nil {
		if err := d.panel.DisplayFast(PackFrame(frame)); err != nil {
			return fmt.Errorf("fast refresh: %w", err)
		}
	}
	d.show(frame)
	return nil
}

func (d *Display) Sleep() error {
	d.lock.Lock()
	defer d.lock.Unlock()

	if d.panel != nil {
		if err := d.panel.Sleep(); err != nil {
			return fmt.Errorf("sleep: %w", err)
		}
	}
	d.panelMode = SLEEPING_PANEL
	return nil
}

func (d *Display) Close() error {
	logrus.Infof("Stop display device")

	d.lock.Lock()
	defer d.lock.Unlock()

	if d.simulationMode {
		d.closeSimulationWindow()
		return nil
	}
	if d.panel == nil {
		return nil
	}
	err := d.panel.Close()
	d.panel = nil
	d.panelMode = UNINITIALIZED_PANEL
	return err
}

func (d *Display) PanelMode() PanelMode {
	d.lock.RLock()
	defer d.lock.RUnlock()
	return d.panelMode
}

// LastImage is the frame currently shown, nil after a clear
func (d *Display) LastImage() image.Image {
	d.lock.RLock()
	defer d.lock.RUnlock()
	return d.lastImg
}

func (d *Display) show(img image.Image) {
	d.lastImg = img
	if d.simulationMode {
		d.invalidateSimulationWindow()
	}
}
