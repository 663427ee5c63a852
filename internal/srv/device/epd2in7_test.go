package device

import (
	"fmt"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/spi"
	"strings"
	"testing"
	"time"
)

// recordedSpi logs each transfer as C<cmd> or D<bytes>, depending on the DC line
type recordedSpi struct {
	dc    *gpiotest.Pin
	trace []string
}

func (s *recordedSpi) String() string                 { return "recordedSpi" }
func (s *recordedSpi) Duplex() conn.Duplex            { return conn.Half }
func (s *recordedSpi) TxPackets(p []spi.Packet) error { return nil }

func (s *recordedSpi) Tx(w, r []byte) error {
	if s.dc.Read() == gpio.Low {
		s.trace = append(s.trace, fmt.Sprintf("C%02X", w[0]))
		return nil
	}
	if len(w) > 4 {
		s.trace = append(s.trace, fmt.Sprintf("D[%d]", len(w)))
		return nil
	}
	s.trace = append(s.trace, fmt.Sprintf("D%X", w))
	return nil
}

func newTestEpd() (*Epd2in7, *recordedSpi, *gpiotest.Pin) {
	dc := &gpiotest.Pin{N: "GPIO25"}
	rst := &gpiotest.Pin{N: "GPIO17"}
	busy := &gpiotest.Pin{N: "GPIO24", L: gpio.Low}
	bus := &recordedSpi{dc: dc}
	epd := newEpd2in7(bus, rst, dc, busy)
	epd.sleep = func(time.Duration) {}
	return epd, bus, busy
}

func TestEpd2in7_Init(t *testing.T) {
	epd, bus, _ := newTestEpd()
	if err := epd.Init(); err != nil {
		t.Fatal(err)
	}
	want := "C12 C45 D00000701 C4F D0000 C11 D03"
	if got := strings.Join(bus.trace, " "); got != want {
		t.Errorf("trace = %s, want %s", got, want)
	}
}

func TestEpd2in7_InitFast(t *testing.T) {
	epd, bus, _ := newTestEpd()
	if err := epd.InitFast(); err != nil {
		t.Fatal(err)
	}
	want := "C12 C18 D80 C22 DB1 C20 C1A D6400 C22 D91 C20"
	if got := strings.Join(bus.trace, " "); got != want {
		t.Errorf("trace = %s, want %s", got, want)
	}
}

func TestEpd2in7_DisplayChunksBuffer(t *testing.T) {
	epd, bus, _ := newTestEpd()
	if err := epd.DisplayFast(make([]byte, epdBufferBytes)); err != nil {
		t.Fatal(err)
	}
	want := "C24 D[4096] D[1712] C22 DC7 C20"
	if got := strings.Join(bus.trace, " "); got != want {
		t.Errorf("trace = %s, want %s", got, want)
	}
}

func TestEpd2in7_ClearAndSleep(t *testing.T) {
	epd, bus, _ := newTestEpd()
	if err := epd.Clear(); err != nil {
		t.Fatal(err)
	}
	if err := epd.Sleep(); err != nil {
		t.Fatal(err)
	}
	want := "C24 D[4096] D[1712] C26 D[4096] D[1712] C22 DF7 C20 C10 D01"
	if got := strings.Join(bus.trace, " "); got != want {
		t.Errorf("trace = %s, want %s", got, want)
	}
}

func TestEpd2in7_BusyTimeout(t *testing.T) {
	epd, _, busy := newTestEpd()
	busy.L = gpio.High
	epd.busyTimeout = 100 * time.Millisecond
	if err := epd.Display(make([]byte, epdBufferBytes)); err != errBusyTimeout {
		t.Errorf("err = %v, want busy timeout", err)
	}
}
