package srv

import (
	"errors"
	"github.com/jypelle/busboard/apimodel"
	"github.com/jypelle/busboard/internal/srv/event"
	"github.com/jypelle/busboard/internal/srv/provider"
	"github.com/sirupsen/logrus"
	"os"
	"runtime/debug"
	"time"
)

const tickPeriod = 100 * time.Millisecond

var errUnsupportedApiEvent = errors.New("unsupported api event")

var exit = os.Exit

// eventLoop boots the board then ticks until asked to stop, a panic cleans up the panel and exits
func (s *ServerApp) eventLoop() {
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("Event loop crashed: %v\n%s", r, debug.Stack())
			s.cancel()
			s.cleanup()
			exit(1)
		}
	}()

	s.boot()

	ticker := time.NewTicker(tickPeriod)
	defer ticker.Stop()

	for loop := true; loop; {
		select {
		case <-ticker.C:
			s.tick(s.now())
		case <-s.eventLoopAskDone:
			loop = false
		}
	}
	s.eventLoopDone <- true
}

// tick gathers every input since the last tick, then redraws at most once
func (s *ServerApp) tick(now time.Time) {
	triggered := false

	if ev, ok := s.buttonSource.Poll(); ok {
		logrus.Infof("Button %s pressed", ev.ButtonId)
		if s.switchMode(ev.ButtonId.ModeToken()) {
			triggered = true
		}
	}

	if token, ok := s.commandInbox.Poll(); ok {
		if s.switchMode(token) {
			triggered = true
		}
	}

	if s.drainApiEvents() {
		triggered = true
	}

	s.refreshWeather(now)

	if triggered || !now.Before(s.schedule.NextUpdate) {
		s.refreshDisplay()
	}
}

// switchMode tells if the token was accepted
func (s *ServerApp) switchMode(token apimodel.ModeToken) bool {
	mode, ok := ModeFromToken(token)
	if !ok {
		logrus.Debugf("Ignore unknown mode %q", token)
		return false
	}
	if mode != s.currentMode {
		logrus.Infof("Switch to %s mode", mode)
	}
	s.currentMode = mode
	return true
}

// drainApiEvents takes every pending api request without waiting
func (s *ServerApp) drainApiEvents() bool {
	triggered := false
	for {
		select {
		case ev := <-s.apiEventSource:
			switch data := ev.Data.(type) {
			case event.ApiEventModeData:
				logrus.Infof("Api command: %s", data.ModeToken)
				if s.switchMode(data.ModeToken) {
					ev.Result <- nil
					triggered = true
				} else {
					ev.Result <- errUnsupportedApiEvent
				}
			case event.ApiEventRefreshData:
				logrus.Infof("Api refresh")
				ev.Result <- nil
				triggered = true
			default:
				ev.Result <- errUnsupportedApiEvent
			}
		default:
			return triggered
		}
	}
}

// refreshWeather collects a finished fetch and starts a new one when due.
// Fetches run outside the loop so retries never delay the buttons.
func (s *ServerApp) refreshWeather(now time.Time) {
	select {
	case snapshot := <-s.weatherResults:
		s.weatherInFlight = false
		s.applyWeather(snapshot)
	default:
	}

	interval := time.Duration(s.WeatherRefreshInterval) * time.Second
	if !s.weatherInFlight && now.Sub(s.schedule.LastWeatherFetch) >= interval {
		s.startWeatherRefresh(now)
	}
}

func (s *ServerApp) startWeatherRefresh(now time.Time) {
	logrus.Debugf("Refresh weather")
	s.weatherInFlight = true
	s.schedule.LastWeatherFetch = now
	go func() {
		s.weatherResults <- s.weatherSource.FetchWeather(s.ctx)
	}()
}

// applyWeather keeps the previous snapshot when the fetch gave nothing
func (s *ServerApp) applyWeather(snapshot *provider.WeatherSnapshot) {
	if snapshot == nil {
		if s.weather != nil {
			logrus.Warnf("Weather unavailable, keep previous forecast")
		}
		return
	}
	s.weather = snapshot
}
