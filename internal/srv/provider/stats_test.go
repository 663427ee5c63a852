package provider

import (
	"github.com/jypelle/busboard/internal/srv/config"
	"testing"
	"time"
)

func TestApiStats_ResetsOnNewDay(t *testing.T) {
	stats := NewApiStats(testNow)
	stats.RecordSuccess(testNow)
	stats.RecordFailure(testNow, "Timeout")

	status := stats.Status(testNow)
	if status.Success != 1 || status.Failed != 1 || status.LastError == nil || *status.LastError != "Timeout" {
		t.Fatalf("status = %+v", status)
	}

	tomorrow := testNow.Add(24 * time.Hour)
	stats.RecordSuccess(tomorrow)
	status = stats.Status(tomorrow)
	if status.Date != "2026-10-16" || status.Success != 1 || status.Failed != 0 || status.LastError != nil {
		t.Errorf("status after rollover = %+v", status)
	}
}

func TestRestoreApiStats(t *testing.T) {
	saved := config.ApiStatsState{Date: "2026-10-15", Success: 7, Failed: 2, LastError: "HTTP 500"}

	stats := RestoreApiStats(saved, testNow)
	if s := stats.State(testNow); s != saved {
		t.Errorf("restored = %+v, want %+v", s, saved)
	}

	stale := RestoreApiStats(saved, testNow.Add(48*time.Hour))
	if s := stale.State(testNow.Add(48 * time.Hour)); s.Success != 0 || s.Failed != 0 {
		t.Errorf("stale stats kept: %+v", s)
	}
}
