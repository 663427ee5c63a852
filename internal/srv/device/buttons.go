package device

import (
	"fmt"
	"github.com/jypelle/busboard/internal/srv/config"
	"github.com/jypelle/busboard/internal/srv/event"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
	"sync"
	"time"
)

var buttonIds = []event.ButtonId{event.KEY1_BUTTON, event.KEY2_BUTTON, event.KEY3_BUTTON, event.KEY4_BUTTON}

type Button struct {
	buttonId event.ButtonId
	pin      gpio.PinIO
}

func NewButton(buttonId event.ButtonId, name string) (*Button, error) {
	button := Button{buttonId: buttonId, pin: gpioreg.ByName(name)}

	if button.pin == nil {
		return nil, fmt.Errorf("failed to find %s button on %s", buttonId, name)
	}

	// Set it as input, with an internal pull up resistor:
	if err := button.pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("failed to setup %s button: %w", buttonId, err)
	}
	return &button, nil
}

// IsPressed reads the active-low input
func (b *Button) IsPressed() bool {
	return b.pin.Read() == gpio.Low
}

// Buttons is polled by the coordinator once per tick
type Buttons struct {
	lock       sync.Mutex
	param      config.ButtonsParam
	simulation bool

	buttons []*Button

	debounce time.Duration
	sleep    func(time.Duration)
}

func NewButtons(param config.ButtonsParam, simulation bool) *Buttons {
	debounce := time.Duration(param.Debounce) * time.Millisecond
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}
	return &Buttons{
		param:      param,
		simulation: simulation,
		debounce:   debounce,
		sleep:      time.Sleep,
	}
}

func (d *Buttons) Start() error {
	logrus.Infof("Start buttons device")

	d.lock.Lock()
	defer d.lock.Unlock()

	if d.simulation {
		return nil
	}

	if _, err := host.Init(); err != nil {
		return fmt.Errorf("unable to init periph host: %w", err)
	}
	if len(d.param.Pins) != len(buttonIds) {
		return fmt.Errorf("expected %d button pins, got %d", len(buttonIds), len(d.param.Pins))
	}
	for i, buttonId := range buttonIds {
		button, err := NewButton(buttonId, d.param.Pins[i])
		if err != nil {
			d.halt()
			return err
		}
		d.buttons = append(d.buttons, button)
	}
	return nil
}

// Poll reports the first pressed button in KEY1..KEY4 order, then waits out the bounce
func (d *Buttons) Poll() (event.ButtonEvent, bool) {
	d.lock.Lock()
	defer d.lock.Unlock()

	for _, button := range d.buttons {
		if button.IsPressed() {
			logrus.Debugf("Button %s pressed", button.buttonId)
			d.sleep(d.debounce)
			return event.ButtonEvent{ButtonId: button.buttonId}, true
		}
	}
	return event.ButtonEvent{}, false
}

func (d *Buttons) Close() {
	logrus.Infof("Stop buttons device")

	d.lock.Lock()
	defer d.lock.Unlock()
	d.halt()
}

func (d *Buttons) halt() {
	for _, button := range d.buttons {
		if err := button.pin.Halt(); err != nil {
			logrus.Warnf("Unable to release %s button: %v", button.buttonId, err)
		}
	}
	d.buttons = nil
}
