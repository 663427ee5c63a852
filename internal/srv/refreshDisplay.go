package srv

import (
	"github.com/jypelle/busboard/apimodel"
	"github.com/jypelle/busboard/internal/srv/provider"
	"github.com/jypelle/busboard/internal/srv/screen"
	"github.com/sirupsen/logrus"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"strings"
	"time"
)

// refreshDisplay runs one display cycle for the current mode
func (s *ServerApp) refreshDisplay() {
	traits := s.currentMode.traits()

	if traits.isBus {
		board, _ := s.departures.FetchDepartures(s.ctx, traits.direction)
		s.boards[traits.direction] = &board
	}

	now := s.now()
	frame := screen.Render(s.view(now))
	s.show(frame)
	s.publishStatus(now)
	s.ServerState.SetApiStats(s.apiStats.State(now))

	s.schedule.NextUpdate = NextUpdate(s.now(), s.profile.UpdateDuration())
	logrus.Debugf("Next update at %s", s.schedule.NextUpdate.Format("15:04:05"))
}

// show writes a frame with the fast waveform, or with the full one every
// FullRefreshInterval successful writes to clear ghosting
func (s *ServerApp) show(frame *image1bit.VerticalLSB) {
	var err error
	if s.schedule.isFullRefresh(s.profile.FullRefreshInterval) {
		logrus.Infof("Full refresh")
		err = s.displaySink.InitNormal()
		if err == nil {
			err = s.displaySink.DisplayFull(frame)
		}
		s.initFast()
	} else {
		if !s.fastReady {
			s.initFast()
		}
		err = s.displaySink.DisplayFast(frame)
	}

	if err != nil {
		logrus.Errorf("Unable to refresh display: %v", err)
		return
	}
	s.schedule.RefreshCounter++
}

func (s *ServerApp) initFast() {
	if err := s.displaySink.InitFast(); err != nil {
		logrus.Errorf("Unable to switch display to fast mode: %v", err)
		s.fastReady = false
		return
	}
	s.fastReady = true
}

func (s *ServerApp) view(now time.Time) screen.View {
	traits := s.currentMode.traits()
	view := screen.View{
		Layout: traits.layout,
		Now:    now,
	}
	switch traits.layout {
	case screen.BUS_LAYOUT:
		view.LineName = s.Transit.LineName
		view.Direction = s.directionName(traits.direction)
		view.Board = s.boards[traits.direction]
	case screen.WELCOME_LAYOUT:
		view.Greeting = s.Welcome.Greeting
		view.Weather = s.weather
	}
	return view
}

func (s *ServerApp) directionName(direction provider.Direction) string {
	if direction == provider.SECONDARY_DIRECTION {
		return s.Transit.Secondary.Name
	}
	return s.Transit.Primary.Name
}

func (s *ServerApp) publishStatus(now time.Time) {
	s.statusOutbox.Publish(s.status(now))
}

// status is what the remote sees of the cycle that just ran
func (s *ServerApp) status(now time.Time) apimodel.Status {
	traits := s.currentMode.traits()
	status := apimodel.Status{
		Mode:     traits.token,
		Updated:  now.Format("15:04:05"),
		ApiStats: s.apiStats.Status(now),
	}

	switch traits.layout {
	case screen.BUS_LAYOUT:
		status.Line = s.Transit.LineName
		status.Direction = s.directionName(traits.direction)
		status.Departures = []string{}
		if board := s.boards[traits.direction]; board != nil {
			status.IsTest = board.IsFallback
			for i, departure := range board.Departures {
				if i == 2 {
					break
				}
				status.Departures = append(status.Departures, departure.Label)
			}
		}
	case screen.WELCOME_LAYOUT:
		status.Greeting = strings.Join(s.Welcome.Greeting, " ")
		status.Time = now.Format("15:04")
		status.Date = now.Format("Mon 02 Jan")
		if s.weather != nil {
			status.Weather = &apimodel.WeatherStatus{}
			if s.weather.Morning != nil {
				status.Weather.Morning = s.weather.Morning.String()
			}
			if s.weather.Afternoon != nil {
				status.Weather.Afternoon = s.weather.Afternoon.String()
			}
			if s.weather.Evening != nil {
				status.Weather.Evening = s.weather.Evening.String()
			}
		}
	}
	return status
}
