package provider

import (
	"fmt"
	"github.com/jypelle/busboard/apimodel"
	"github.com/jypelle/busboard/internal/srv/config"
	"github.com/sirupsen/logrus"
	"sync"
	"time"
)

const statsDateLayout = "2006-01-02"

// ApiStats counts remote calls of the current calendar day.
// Counters only go up until the date changes.
type ApiStats struct {
	lock      sync.Mutex
	date      string
	success   int64
	failed    int64
	lastError string
}

func NewApiStats(now time.Time) *ApiStats {
	return &ApiStats{date: now.Format(statsDateLayout)}
}

// RestoreApiStats resumes counters saved earlier today, or starts fresh
func RestoreApiStats(saved config.ApiStatsState, now time.Time) *ApiStats {
	stats := NewApiStats(now)
	if saved.Date == stats.date {
		stats.success = saved.Success
		stats.failed = saved.Failed
		stats.lastError = saved.LastError
	}
	return stats
}

func (s *ApiStats) checkDate(now time.Time) {
	today := now.Format(statsDateLayout)
	if today != s.date {
		logrus.Infof("New day, resetting api stats (yesterday: %d ok, %d failed)", s.success, s.failed)
		s.date = today
		s.success = 0
		s.failed = 0
		s.lastError = ""
	}
}

func (s *ApiStats) RecordSuccess(now time.Time) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.checkDate(now)
	s.success++
}

func (s *ApiStats) RecordFailure(now time.Time, reason string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.checkDate(now)
	s.failed++
	s.lastError = reason
}

// Summary is the one line form used in logs
func (s *ApiStats) Summary() string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return fmt.Sprintf("api today: %d ok, %d failed", s.success, s.failed)
}

func (s *ApiStats) State(now time.Time) config.ApiStatsState {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.checkDate(now)
	return config.ApiStatsState{
		Date:      s.date,
		Success:   s.success,
		Failed:    s.failed,
		LastError: s.lastError,
	}
}

func (s *ApiStats) Status(now time.Time) apimodel.ApiStats {
	state := s.State(now)
	status := apimodel.ApiStats{
		Date:    state.Date,
		Success: state.Success,
		Failed:  state.Failed,
	}
	if state.LastError != "" {
		lastError := state.LastError
		status.LastError = &lastError
	}
	return status
}
