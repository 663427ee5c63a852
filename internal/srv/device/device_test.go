package device

import (
	"encoding/json"
	"errors"
	"github.com/jypelle/busboard/apimodel"
	"github.com/jypelle/busboard/internal/remote"
	"github.com/jypelle/busboard/internal/srv/config"
	"github.com/jypelle/busboard/internal/srv/event"
	"image"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"strings"
	"testing"
	"time"
)

func TestInbox_ConsumesValidCommand(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "bus_control")
	if err := os.WriteFile(filename, []byte("bus_opposite\n"), 0666); err != nil {
		t.Fatal(err)
	}

	inbox := NewInbox(filename)
	modeToken, ok := inbox.Poll()
	if !ok || modeToken != apimodel.BusOppositeModeToken {
		t.Fatalf("Poll() = %q, %v", modeToken, ok)
	}
	if _, err := os.Stat(filename); !os.IsNotExist(err) {
		t.Errorf("command file still present: %v", err)
	}
	if _, ok := inbox.Poll(); ok {
		t.Error("command delivered twice")
	}
}

func TestInbox_IgnoresUnknownCommand(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "bus_control")
	for _, content := range []string{"BUS", "bus please", "", "night"} {
		if err := os.WriteFile(filename, []byte(content), 0666); err != nil {
			t.Fatal(err)
		}
		if modeToken, ok := NewInbox(filename).Poll(); ok {
			t.Errorf("%q accepted as %q", content, modeToken)
		}
		if _, err := os.Stat(filename); !os.IsNotExist(err) {
			t.Errorf("%q: command file not removed", content)
		}
	}
}

func TestInbox_MissingFile(t *testing.T) {
	if _, ok := NewInbox(filepath.Join(t.TempDir(), "none")).Poll(); ok {
		t.Error("missing file produced a command")
	}
}

func TestSendCommand_RoundTrip(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "bus_control")
	if err := remote.SendCommand(filename, apimodel.BlankModeToken); err != nil {
		t.Fatal(err)
	}
	if modeToken, ok := NewInbox(filename).Poll(); !ok || modeToken != apimodel.BlankModeToken {
		t.Errorf("Poll() = %q, %v", modeToken, ok)
	}
}

func TestOutbox_Publish(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "bus_status.json")
	outbox := NewOutbox(filename)
	if _, ok := outbox.Last(); ok {
		t.Fatal("status before first publish")
	}

	outbox.Publish(apimodel.Status{Mode: apimodel.BusModeToken, Updated: "08:00:00", Departures: []string{"3 min", "12 min"}})
	outbox.Publish(apimodel.Status{Mode: apimodel.BlankModeToken, Updated: "08:01:00"})

	status, err := remote.ReadStatus(filename)
	if err != nil {
		t.Fatal(err)
	}
	if status.Mode != apimodel.BlankModeToken || len(status.Departures) != 0 {
		t.Errorf("status = %+v", status)
	}

	var raw map[string]interface{}
	content, _ := os.ReadFile(filename)
	json.Unmarshal(content, &raw)
	for _, key := range []string{"mode", "updated", "is_test", "api_stats"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("missing %q key in %s", key, content)
		}
	}
}

func TestOutbox_UnwritableFileIsSwallowed(t *testing.T) {
	outbox := NewOutbox(filepath.Join(t.TempDir(), "missing", "dir", "status.json"))
	outbox.Publish(apimodel.Status{Mode: apimodel.WelcomeModeToken})
	if last, ok := outbox.Last(); !ok || last.Mode != apimodel.WelcomeModeToken {
		t.Errorf("Last() = %+v, %v", last, ok)
	}
}

func newTestButtons(levels ...gpio.Level) (*Buttons, []*gpiotest.Pin, *[]time.Duration) {
	d := NewButtons(config.ButtonsParam{Debounce: 300}, false)
	var sleeps []time.Duration
	d.sleep = func(duration time.Duration) { sleeps = append(sleeps, duration) }

	var pins []*gpiotest.Pin
	for i, level := range levels {
		pin := &gpiotest.Pin{N: "GPIO" + buttonIds[i].String(), L: level}
		pins = append(pins, pin)
		d.buttons = append(d.buttons, &Button{buttonId: buttonIds[i], pin: pin})
	}
	return d, pins, &sleeps
}

func TestButtons_Poll(t *testing.T) {
	d, pins, sleeps := newTestButtons(gpio.High, gpio.High, gpio.High, gpio.High)

	if _, ok := d.Poll(); ok {
		t.Fatal("event without press")
	}

	pins[3].L = gpio.Low
	ev, ok := d.Poll()
	if !ok || ev.ButtonId != event.KEY4_BUTTON || ev.ButtonId.ModeToken() != apimodel.BlankModeToken {
		t.Fatalf("Poll() = %+v, %v", ev, ok)
	}
	if len(*sleeps) != 1 || (*sleeps)[0] != 300*time.Millisecond {
		t.Errorf("debounce = %v", *sleeps)
	}
}

func TestButtons_PriorityOrder(t *testing.T) {
	d, _, _ := newTestButtons(gpio.High, gpio.Low, gpio.Low, gpio.Low)
	ev, ok := d.Poll()
	if !ok || ev.ButtonId != event.KEY2_BUTTON {
		t.Errorf("Poll() = %+v, %v, want KEY2", ev, ok)
	}
}

func TestButtons_Close(t *testing.T) {
	d, _, _ := newTestButtons(gpio.High, gpio.High, gpio.High, gpio.High)
	d.Close()
	if _, ok := d.Poll(); ok {
		t.Error("event after close")
	}
}

type recordedPanel struct {
	calls []string
	fail  map[string]error
}

func (p *recordedPanel) record(name string) error {
	p.calls = append(p.calls, name)
	return p.fail[name]
}

func (p *recordedPanel) Init() error                     { return p.record("init") }
func (p *recordedPanel) InitFast() error                 { return p.record("init_fast") }
func (p *recordedPanel) Display(buffer []byte) error     { return p.record("display") }
func (p *recordedPanel) DisplayFast(buffer []byte) error { return p.record("display_fast") }
func (p *recordedPanel) Clear() error                    { return p.record("clear") }
func (p *recordedPanel) Sleep() error                    { return p.record("sleep") }
func (p *recordedPanel) Close() error                    { return p.record("close") }

func testFrame() *image1bit.VerticalLSB {
	return image1bit.NewVerticalLSB(image.Rect(0, 0, FrameWidth, FrameHeight))
}

func TestDisplay_RefreshNeedsMatchingMode(t *testing.T) {
	panel := &recordedPanel{}
	d := NewDisplay(config.DisplayParam{}, false)
	d.panel = panel

	if err := d.DisplayFast(testFrame()); !errors.Is(err, ErrPanelMode) {
		t.Errorf("fast refresh before init: %v", err)
	}
	if err := d.InitNormal(); err != nil {
		t.Fatal(err)
	}
	if err := d.DisplayFast(testFrame()); !errors.Is(err, ErrPanelMode) {
		t.Errorf("fast refresh in normal mode: %v", err)
	}
	if err := d.DisplayFull(testFrame()); err != nil {
		t.Errorf("full refresh: %v", err)
	}
	if err := d.InitFast(); err != nil {
		t.Fatal(err)
	}
	if err := d.DisplayFull(testFrame()); !errors.Is(err, ErrPanelMode) {
		t.Errorf("full refresh in fast mode: %v", err)
	}
	if err := d.Clear(); !errors.Is(err, ErrPanelMode) {
		t.Errorf("clear in fast mode: %v", err)
	}
	if err := d.DisplayFast(testFrame()); err != nil {
		t.Errorf("fast refresh: %v", err)
	}

	want := "init,display,init_fast,display_fast"
	if got := strings.Join(panel.calls, ","); got != want {
		t.Errorf("panel calls = %s, want %s", got, want)
	}
}

func TestDisplay_FailedWriteKeepsPreviousImage(t *testing.T) {
	panel := &recordedPanel{fail: map[string]error{"display_fast": errors.New("spi")}}
	d := NewDisplay(config.DisplayParam{}, false)
	d.panel = panel
	d.InitFast()

	if err := d.DisplayFast(testFrame()); err == nil {
		t.Fatal("expected error")
	}
	if d.LastImage() != nil {
		t.Error("image recorded after failed write")
	}
}

func TestPackFrame(t *testing.T) {
	frame := testFrame()
	// white everywhere but the top-left landscape pixel
	for y := 0; y < FrameHeight; y++ {
		for x := 0; x < FrameWidth; x++ {
			frame.SetBit(x, y, image1bit.On)
		}
	}
	frame.SetBit(0, 0, image1bit.Off)

	buffer := PackFrame(frame)
	if len(buffer) != epdBufferBytes {
		t.Fatalf("buffer size = %d", len(buffer))
	}
	// landscape (0,0) lands on the last portrait row, first column
	index := (EpdHeight-1)*epdRowBytes + 0
	for i, b := range buffer {
		want := byte(0xFF)
		if i == index {
			want = 0x7F
		}
		if b != want {
			t.Fatalf("byte %d = 0x%02X, want 0x%02X", i, b, want)
		}
	}
}

func newTestApi(t *testing.T) (*Api, *Outbox) {
	outbox := NewOutbox(filepath.Join(t.TempDir(), "status.json"))
	return NewApi(config.ApiParam{Enabled: true, SslPort: 8443, ApiKey: "key"}, t.TempDir(), outbox), outbox
}

func doApi(api *Api, method string, path string, apiKey string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if apiKey != "" {
		req.Header.Set("x-api-key", apiKey)
	}
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	return rec
}

func TestApi_RequiresKey(t *testing.T) {
	api, _ := newTestApi(t)
	if rec := doApi(api, http.MethodGet, "/api/is_alive", ""); rec.Code != http.StatusForbidden {
		t.Errorf("no key: %d", rec.Code)
	}
	if rec := doApi(api, http.MethodGet, "/api/is_alive", "wrong"); rec.Code != http.StatusForbidden {
		t.Errorf("wrong key: %d", rec.Code)
	}
	if rec := doApi(api, http.MethodGet, "/api/is_alive", "key"); rec.Code != http.StatusOK {
		t.Errorf("good key: %d", rec.Code)
	}
}

func TestApi_Status(t *testing.T) {
	api, outbox := newTestApi(t)
	if rec := doApi(api, http.MethodGet, "/api/status", "key"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status before first cycle: %d", rec.Code)
	}

	outbox.Publish(apimodel.Status{Mode: apimodel.WelcomeModeToken, Greeting: "hello"})
	rec := doApi(api, http.MethodGet, "/api/status", "key")
	var status apimodel.Status
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	if status.Mode != apimodel.WelcomeModeToken || status.Greeting != "hello" {
		t.Errorf("status = %+v", status)
	}
}

func TestApi_Mode(t *testing.T) {
	api, _ := newTestApi(t)

	received := make(chan event.ApiEvent, 1)
	go func() {
		ev := <-api.EventChannel()
		received <- ev
		ev.Result <- nil
	}()

	rec := doApi(api, http.MethodPost, "/api/mode/welcome", "key")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, body = %s", rec.Code, rec.Body)
	}
	ev := <-received
	if data, ok := ev.Data.(event.ApiEventModeData); !ok || data.ModeToken != apimodel.WelcomeModeToken {
		t.Errorf("event = %+v", ev.Data)
	}
}

func TestApi_UnknownMode(t *testing.T) {
	api, _ := newTestApi(t)
	rec := doApi(api, http.MethodPost, "/api/mode/disco", "key")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("code = %d", rec.Code)
	}
	if rec := doApi(api, http.MethodGet, "/api/mode/bus", "key"); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET mode: %d", rec.Code)
	}
}

func TestApi_Refresh(t *testing.T) {
	api, _ := newTestApi(t)

	received := make(chan event.ApiEvent, 1)
	go func() {
		ev := <-api.EventChannel()
		received <- ev
		ev.Result <- nil
	}()

	rec := doApi(api, http.MethodPost, "/api/refresh", "key")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, body = %s", rec.Code, rec.Body)
	}
	if ev := <-received; ev.Data != (event.ApiEventRefreshData{}) {
		t.Errorf("event = %+v", ev.Data)
	}
}
