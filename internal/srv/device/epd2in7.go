package device

import (
	"errors"
	"fmt"
	"github.com/jypelle/busboard/internal/srv/config"
	"image"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"time"
)

// Waveshare 2.7" V2 panel, portrait native orientation
const (
	EpdWidth  = 176
	EpdHeight = 264

	epdRowBytes    = EpdWidth / 8
	epdBufferBytes = epdRowBytes * EpdHeight
)

// Frames are rendered in landscape and rotated when packed
const (
	FrameWidth  = EpdHeight
	FrameHeight = EpdWidth
)

const (
	defaultSpiChunk    = 4096
	epdBusyPollPeriod  = 10 * time.Millisecond
	defaultBusyTimeout = 30 * time.Second
)

var errBusyTimeout = errors.New("e-paper busy timeout")

// Epd2in7 speaks the controller command set of the 2.7" V2 module.
// It is not safe for concurrent use.
type Epd2in7 struct {
	port spi.PortCloser
	conn spi.Conn
	rst  gpio.PinOut
	dc   gpio.PinOut
	busy gpio.PinIn

	chunkSize   int
	busyTimeout time.Duration
	sleep       func(time.Duration)
}

func OpenEpd2in7(param config.DisplayParam) (*Epd2in7, error) {
	port, err := spireg.Open(param.SpiPort)
	if err != nil {
		return nil, fmt.Errorf("unable to open spi port: %w", err)
	}

	spiConn, err := port.Connect(physic.Frequency(param.SpiHz)*physic.Hertz, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("unable to connect spi: %w", err)
	}

	rst := gpioreg.ByName(param.RstPin)
	dc := gpioreg.ByName(param.DcPin)
	busy := gpioreg.ByName(param.BusyPin)
	if rst == nil || dc == nil || busy == nil {
		port.Close()
		return nil, fmt.Errorf("unable to find e-paper pins %s/%s/%s", param.RstPin, param.DcPin, param.BusyPin)
	}
	if err = busy.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		port.Close()
		return nil, fmt.Errorf("unable to setup busy pin: %w", err)
	}

	epd := newEpd2in7(spiConn, rst, dc, busy)
	epd.port = port
	if limits, ok := spiConn.(conn.Limits); ok && limits.MaxTxSize() > 0 {
		epd.chunkSize = limits.MaxTxSize()
	}
	return epd, nil
}

func newEpd2in7(spiConn spi.Conn, rst gpio.PinOut, dc gpio.PinOut, busy gpio.PinIn) *Epd2in7 {
	return &Epd2in7{
		conn:        spiConn,
		rst:         rst,
		dc:          dc,
		busy:        busy,
		chunkSize:   defaultSpiChunk,
		busyTimeout: defaultBusyTimeout,
		sleep:       time.Sleep,
	}
}

func (e *Epd2in7) reset() error {
	for _, step := range []struct {
		level gpio.Level
		pause time.Duration
	}{
		{gpio.High, 200 * time.Millisecond},
		{gpio.Low, 2 * time.Millisecond},
		{gpio.High, 200 * time.Millisecond},
	} {
		if err := e.rst.Out(step.level); err != nil {
			return err
		}
		e.sleep(step.pause)
	}
	return nil
}

// waitIdle blocks while the busy line is high
func (e *Epd2in7) waitIdle() error {
	var waited time.Duration
	for e.busy.Read() == gpio.High {
		if waited >= e.busyTimeout {
			return errBusyTimeout
		}
		e.sleep(epdBusyPollPeriod)
		waited += epdBusyPollPeriod
	}
	return nil
}

func (e *Epd2in7) command(cmd byte, data ...byte) error {
	if err := e.dc.Out(gpio.Low); err != nil {
		return err
	}
	if err := e.conn.Tx([]byte{cmd}, nil); err != nil {
		return fmt.Errorf("command 0x%02X: %w", cmd, err)
	}
	if len(data) == 0 {
		return nil
	}
	return e.data(data)
}

func (e *Epd2in7) data(data []byte) error {
	if err := e.dc.Out(gpio.High); err != nil {
		return err
	}
	for len(data) > 0 {
		n := len(data)
		if n > e.chunkSize {
			n = e.chunkSize
		}
		if err := e.conn.Tx(data[:n], nil); err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

type epdStep func() error

func (e *Epd2in7) run(steps ...epdStep) error {
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func (e *Epd2in7) cmd(cmd byte, data ...byte) epdStep {
	return func() error { return e.command(cmd, data...) }
}

// Init prepares the panel for full refreshes
func (e *Epd2in7) Init() error {
	return e.run(
		e.reset,
		e.waitIdle,
		e.cmd(0x12), // software reset
		e.waitIdle,
		e.cmd(0x45, 0x00, 0x00, 0x07, 0x01), // ram y window
		e.cmd(0x4F, 0x00, 0x00),             // ram y counter
		e.cmd(0x11, 0x03),                   // data entry mode
	)
}

// InitFast loads the fast waveform through the temperature register
func (e *Epd2in7) InitFast() error {
	return e.run(
		e.reset,
		e.cmd(0x12),
		e.waitIdle,
		e.cmd(0x18, 0x80),
		e.cmd(0x22, 0xB1),
		e.cmd(0x20),
		e.waitIdle,
		e.cmd(0x1A, 0x64, 0x00),
		e.cmd(0x22, 0x91),
		e.cmd(0x20),
		e.waitIdle,
	)
}

func (e *Epd2in7) Display(buffer []byte) error {
	return e.run(
		func() error { return e.command(0x24, buffer...) },
		e.cmd(0x22, 0xF7),
		e.cmd(0x20),
		e.waitIdle,
	)
}

func (e *Epd2in7) DisplayFast(buffer []byte) error {
	return e.run(
		func() error { return e.command(0x24, buffer...) },
		e.cmd(0x22, 0xC7),
		e.cmd(0x20),
		e.waitIdle,
	)
}

func (e *Epd2in7) Clear() error {
	white := make([]byte, epdBufferBytes)
	for i := range white {
		white[i] = 0xFF
	}
	return e.run(
		func() error { return e.command(0x24, white...) },
		func() error { return e.command(0x26, white...) },
		e.cmd(0x22, 0xF7),
		e.cmd(0x20),
		e.waitIdle,
	)
}

// Sleep enters deep sleep, only a reset wakes the panel up
func (e *Epd2in7) Sleep() error {
	if err := e.command(0x10, 0x01); err != nil {
		return err
	}
	e.sleep(2 * time.Second)
	return nil
}

func (e *Epd2in7) Close() error {
	e.rst.Out(gpio.Low)
	e.dc.Out(gpio.Low)
	if e.port != nil {
		return e.port.Close()
	}
	return nil
}

// PackFrame rotates a landscape frame into the panel buffer, MSB first, bit set for white
func PackFrame(frame *image1bit.VerticalLSB) []byte {
	buffer := make([]byte, epdBufferBytes)
	bounds := frame.Bounds()
	for py := 0; py < EpdHeight; py++ {
		for px := 0; px < EpdWidth; px++ {
			x := bounds.Min.X + EpdHeight - 1 - py
			y := bounds.Min.Y + px
			if !(image.Point{X: x, Y: y}).In(bounds) || frame.BitAt(x, y) == image1bit.On {
				buffer[py*epdRowBytes+px/8] |= 0x80 >> uint(px%8)
			}
		}
	}
	return buffer
}
