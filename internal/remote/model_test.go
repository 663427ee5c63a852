package remote

import (
	"errors"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/jypelle/busboard/apimodel"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type testRemote struct {
	model    Model
	sent     []apimodel.ModeToken
	clock    time.Time
	status   *apimodel.Status
	sendFail error
	consumed bool
}

func newTestRemote() *testRemote {
	r := &testRemote{clock: time.Date(2026, 10, 15, 8, 42, 0, 0, time.UTC)}
	r.model = NewModel(Config{ControlFile: "control", StatusFile: "status"})
	r.model.now = func() time.Time { return r.clock }
	r.model.readStatus = func(string) (*apimodel.Status, error) {
		if r.status == nil {
			return nil, os.ErrNotExist
		}
		status := *r.status
		return &status, nil
	}
	r.model.commandConsumed = func(string) bool { return r.consumed }
	r.model.sendCommand = func(_ string, modeToken apimodel.ModeToken) error {
		if r.sendFail != nil {
			return r.sendFail
		}
		r.sent = append(r.sent, modeToken)
		return nil
	}
	return r
}

func (r *testRemote) update(msg tea.Msg) tea.Cmd {
	model, cmd := r.model.Update(msg)
	r.model = model.(Model)
	return cmd
}

func (r *testRemote) press(keys string) tea.Cmd {
	return r.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(keys)})
}

func TestModel_CommandConfirmed(t *testing.T) {
	r := newTestRemote()
	r.status = &apimodel.Status{Mode: apimodel.BusModeToken, Updated: "08:41:00"}
	r.update(r.model.readStatusMsg())

	cmd := r.press("2")
	if len(r.sent) != 1 || r.sent[0] != apimodel.BusOppositeModeToken {
		t.Fatalf("sent = %v", r.sent)
	}
	if cmd == nil {
		t.Fatal("no status refresh after command")
	}

	// server did not switch yet
	if next := r.update(cmd()); next == nil {
		t.Error("no confirmation poll while waiting")
	}
	if !strings.Contains(r.model.message, "Switching to bus_opposite") {
		t.Errorf("message = %q", r.model.message)
	}

	r.status = &apimodel.Status{Mode: apimodel.BusOppositeModeToken, Updated: "08:42:01"}
	r.clock = r.clock.Add(time.Second)
	if next := r.update(r.model.readStatusMsg()); next != nil {
		t.Error("still polling after confirmation")
	}
	if r.model.message != "Mode changed to bus_opposite" {
		t.Errorf("message = %q", r.model.message)
	}
}

func TestModel_SameModeWaitsForServer(t *testing.T) {
	r := newTestRemote()
	r.status = &apimodel.Status{Mode: apimodel.WelcomeModeToken, Updated: "08:41:00"}
	r.update(r.model.readStatusMsg())

	r.press("3")
	if next := r.update(r.model.readStatusMsg()); next == nil || r.model.pending == nil {
		t.Fatalf("confirmed before the server read the command: %q", r.model.message)
	}

	r.consumed = true
	r.clock = r.clock.Add(time.Second)
	if next := r.update(r.model.readStatusMsg()); next != nil {
		t.Error("still polling after the command was consumed")
	}
	if r.model.message != "Mode changed to welcome" {
		t.Errorf("message = %q", r.model.message)
	}
}

func TestModel_CommandNotConfirmed(t *testing.T) {
	r := newTestRemote()
	r.status = &apimodel.Status{Mode: apimodel.BusModeToken}

	r.press("4")
	r.clock = r.clock.Add(confirmTimeout)
	r.update(r.model.readStatusMsg())
	if !strings.Contains(r.model.message, "not confirmed") || r.model.pending != nil {
		t.Errorf("message = %q", r.model.message)
	}
}

func TestModel_SendFailure(t *testing.T) {
	r := newTestRemote()
	r.sendFail = errors.New("read-only file system")

	if cmd := r.press("3"); cmd != nil {
		t.Error("unexpected command")
	}
	if r.model.pending != nil || !strings.Contains(r.model.message, "read-only") {
		t.Errorf("message = %q", r.model.message)
	}
}

func TestModel_Quit(t *testing.T) {
	for _, msg := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune("5")},
		{Type: tea.KeyRunes, Runes: []rune("q")},
		{Type: tea.KeyCtrlC},
	} {
		r := newTestRemote()
		cmd := r.update(msg)
		if cmd == nil {
			t.Fatalf("%s: no quit command", msg)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%s: not a quit message", msg)
		}
		if len(r.sent) != 0 {
			t.Errorf("%s: sent %v", msg, r.sent)
		}
	}
}

func TestModel_UnknownKeyIgnored(t *testing.T) {
	r := newTestRemote()
	if cmd := r.press("x"); cmd != nil || len(r.sent) != 0 {
		t.Error("unexpected action")
	}
}

func TestModel_View(t *testing.T) {
	r := newTestRemote()
	if view := r.model.View(); !strings.Contains(view, "Status unknown") || !strings.Contains(view, "5) Exit") {
		t.Errorf("view = %s", view)
	}

	lastError := "Timeout"
	r.update(statusMsg{status: &apimodel.Status{
		Mode:       apimodel.BusModeToken,
		Updated:    "08:42:00",
		IsTest:     true,
		Line:       "BUS 215",
		Direction:  "VINCENNES RER",
		Departures: []string{"3 min", "14 min"},
		ApiStats:   apimodel.ApiStats{Date: "2026-10-15", Success: 4, Failed: 1, LastError: &lastError},
	}})
	view := r.model.View()
	for _, want := range []string{"Last update: 08:42:00", "[TEST DATA]", "BUS 215 -> VINCENNES RER", "2. 14 min", "4 ok, 1 failed (Timeout)"} {
		if !strings.Contains(view, want) {
			t.Errorf("view misses %q:\n%s", want, view)
		}
	}
}

func TestStatusLines_Welcome(t *testing.T) {
	lines := strings.Join(StatusLines(&apimodel.Status{
		Mode:     apimodel.WelcomeModeToken,
		Greeting: "¡Hola Viejo loco!",
		Time:     "08:42",
		Date:     "Thu 15 Oct",
		Weather:  &apimodel.WeatherStatus{Morning: "12C Soleil"},
	}), "\n")
	for _, want := range []string{"Screen: WELCOME", "Greeting: ¡Hola Viejo loco!", "Date: Thu 15 Oct", "Mat 12C Soleil | Ap-m ? | Soir ?"} {
		if !strings.Contains(lines, want) {
			t.Errorf("missing %q in:\n%s", want, lines)
		}
	}
}

func TestExchange(t *testing.T) {
	dir := t.TempDir()
	control := filepath.Join(dir, "bus_control")
	if err := SendCommand(control, apimodel.WelcomeModeToken); err != nil {
		t.Fatal(err)
	}
	if raw, _ := os.ReadFile(control); string(raw) != "welcome" {
		t.Errorf("command file = %q", raw)
	}
	// a pending command is replaced whole, no leftover temp file
	if err := SendCommand(control, apimodel.BlankModeToken); err != nil {
		t.Fatal(err)
	}
	if raw, _ := os.ReadFile(control); string(raw) != "blank" {
		t.Errorf("command file = %q", raw)
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 1 {
		t.Errorf("%d files in exchange dir", len(entries))
	}

	statusFile := filepath.Join(dir, "bus_status.json")
	if _, err := ReadStatus(statusFile); !os.IsNotExist(err) {
		t.Errorf("err = %v", err)
	}
	os.WriteFile(statusFile, []byte(`{"mode": "blank", "updated": "08:42:00", "is_test": false, "api_stats": {"date": "2026-10-15", "success": 0, "failed": 0, "last_error": null}}`), 0644)
	status, err := ReadStatus(statusFile)
	if err != nil || status.Mode != apimodel.BlankModeToken {
		t.Errorf("status = %+v, err = %v", status, err)
	}
	os.WriteFile(statusFile, []byte(`{"mode": "bl`), 0644)
	if _, err := ReadStatus(statusFile); err == nil {
		t.Error("torn status accepted")
	}
}
