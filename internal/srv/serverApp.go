package srv

import (
	"context"
	"github.com/jypelle/busboard/apimodel"
	"github.com/jypelle/busboard/internal/srv/config"
	"github.com/jypelle/busboard/internal/srv/device"
	"github.com/jypelle/busboard/internal/srv/event"
	"github.com/jypelle/busboard/internal/srv/provider"
	"github.com/jypelle/busboard/internal/srv/screen"
	"github.com/jypelle/busboard/internal/version"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"time"
)

type DisplaySink interface {
	InitNormal() error
	InitFast() error
	Clear() error
	DisplayFull(frame *image1bit.VerticalLSB) error
	DisplayFast(frame *image1bit.VerticalLSB) error
	Sleep() error
	Close() error
}

type ButtonSource interface {
	Poll() (event.ButtonEvent, bool)
	Close()
}

type CommandInbox interface {
	Poll() (apimodel.ModeToken, bool)
}

type StatusOutbox interface {
	Publish(status apimodel.Status)
}

type DepartureSource interface {
	FetchDepartures(ctx context.Context, direction provider.Direction) (provider.DepartureBoard, bool)
}

type WeatherSource interface {
	FetchWeather(ctx context.Context) *provider.WeatherSnapshot
}

type ServerApp struct {
	*config.ServerConfig
	profile config.Profile

	displayDevice  *device.Display
	buttonsDevice  *device.Buttons
	apiDevice      *device.Api
	displaySink    DisplaySink
	buttonSource   ButtonSource
	commandInbox   CommandInbox
	statusOutbox   StatusOutbox
	departures     DepartureSource
	weatherSource  WeatherSource
	apiStats       *provider.ApiStats
	apiEventSource chan event.ApiEvent

	currentMode Mode
	schedule    ScheduleState
	fastReady   bool
	boards      map[provider.Direction]*provider.DepartureBoard
	weather     *provider.WeatherSnapshot

	weatherInFlight bool
	weatherResults  chan *provider.WeatherSnapshot

	ctx    context.Context
	cancel context.CancelFunc

	now   func() time.Time
	sleep func(time.Duration)

	eventLoopAskDone chan bool
	eventLoopDone    chan bool
}

func NewServerApp(configDir string, debugMode bool, simulationMode bool, fastMode bool) *ServerApp {

	logrus.Debugf("Creation of busboard server %s ...", version.AppVersion.String())

	serverConfig := config.NewServerConfig(configDir, debugMode, simulationMode, fastMode)
	apiStats := provider.RestoreApiStats(serverConfig.ServerState.ApiStats(), time.Now())

	displayDevice := device.NewDisplay(serverConfig.Display, serverConfig.SimulationMode)
	buttonsDevice := device.NewButtons(serverConfig.Buttons, serverConfig.SimulationMode)
	outboxDevice := device.NewOutbox(serverConfig.Remote.StatusFile)

	app := newServerApp(
		serverConfig,
		displayDevice,
		buttonsDevice,
		device.NewInbox(serverConfig.Remote.ControlFile),
		outboxDevice,
		provider.NewTransitProvider(serverConfig.Transit, apiStats),
		provider.NewWeatherProvider(serverConfig.Weather, apiStats),
		apiStats,
	)
	app.displayDevice = displayDevice
	app.buttonsDevice = buttonsDevice
	if serverConfig.ApiParam.Enabled {
		app.apiDevice = device.NewApi(serverConfig.ApiParam, serverConfig.ConfigDir, outboxDevice)
		app.apiEventSource = app.apiDevice.EventChannel()
	}

	logrus.Debugln("Server created")

	return app
}

func newServerApp(
	serverConfig *config.ServerConfig,
	displaySink DisplaySink,
	buttonSource ButtonSource,
	commandInbox CommandInbox,
	statusOutbox StatusOutbox,
	departures DepartureSource,
	weatherSource WeatherSource,
	apiStats *provider.ApiStats,
) *ServerApp {
	ctx, cancel := context.WithCancel(context.Background())
	return &ServerApp{
		ServerConfig:     serverConfig,
		profile:          serverConfig.ActiveProfile(),
		displaySink:      displaySink,
		buttonSource:     buttonSource,
		commandInbox:     commandInbox,
		statusOutbox:     statusOutbox,
		departures:       departures,
		weatherSource:    weatherSource,
		apiStats:         apiStats,
		currentMode:      initialMode,
		boards:           make(map[provider.Direction]*provider.DepartureBoard),
		weatherResults:   make(chan *provider.WeatherSnapshot, 1),
		ctx:              ctx,
		cancel:           cancel,
		now:              time.Now,
		sleep:            time.Sleep,
		eventLoopAskDone: make(chan bool),
		eventLoopDone:    make(chan bool),
	}
}

func (s *ServerApp) Start() error {
	logrus.Printf("Starting busboard server ...")

	logrus.Printf("Starting devices ...")

	// Start display device
	if s.displayDevice != nil {
		if err := s.displayDevice.Start(); err != nil {
			return err
		}
	}

	// Start buttons device
	if s.buttonsDevice != nil {
		if err := s.buttonsDevice.Start(); err != nil {
			s.displaySink.Close()
			return err
		}
	}

	// Start api device
	if s.apiDevice != nil {
		if err := s.apiDevice.Start(); err != nil {
			logrus.Errorf("Api disabled: %v", err)
		}
	}

	// Boot then start event loop
	go s.eventLoop()

	return nil
}

// boot shows the primary direction with a full refresh, then leaves the panel in fast mode
func (s *ServerApp) boot() {
	if err := s.displaySink.InitNormal(); err != nil {
		logrus.Errorf("Unable to init display: %v", err)
	}
	if err := s.displaySink.Clear(); err != nil {
		logrus.Errorf("Unable to clear display: %v", err)
	}

	// Let the network come up
	s.sleep(time.Duration(s.BootDelay) * time.Second)

	var weather *provider.WeatherSnapshot
	var board provider.DepartureBoard
	g, ctx := errgroup.WithContext(s.ctx)
	g.Go(func() error {
		weather = s.weatherSource.FetchWeather(ctx)
		return nil
	})
	g.Go(func() error {
		board, _ = s.departures.FetchDepartures(ctx, provider.PRIMARY_DIRECTION)
		return nil
	})
	g.Wait()

	now := s.now()
	s.schedule.LastWeatherFetch = now
	s.applyWeather(weather)
	s.boards[provider.PRIMARY_DIRECTION] = &board

	frame := screen.Render(s.view(now))
	if err := s.displaySink.DisplayFull(frame); err != nil {
		logrus.Errorf("Unable to display boot frame: %v", err)
	}
	s.publishStatus(now)

	s.initFast()
	s.schedule.NextUpdate = NextUpdate(s.now(), s.profile.UpdateDuration())
	logrus.Infof("Boot done, next update at %s", s.schedule.NextUpdate.Format("15:04:05"))
}

func (s *ServerApp) Stop() {
	logrus.Printf("Stopping busboard server ...")

	// Stop api
	if s.apiDevice != nil {
		s.apiDevice.StopSendingEvent()
	}

	// Abort pending fetches, then stop event loop
	s.cancel()
	logrus.Infof("Stop event loop")
	s.eventLoopAskDone <- true
	<-s.eventLoopDone

	s.cleanup()

	logrus.Printf("Server stopped")
}

// cleanup leaves a blank sleeping panel and releases the pins
func (s *ServerApp) cleanup() {
	if err := s.displaySink.InitNormal(); err != nil {
		logrus.Warnf("Unable to init display: %v", err)
	}
	if err := s.displaySink.Clear(); err != nil {
		logrus.Warnf("Unable to clear display: %v", err)
	}
	if err := s.displaySink.Sleep(); err != nil {
		logrus.Warnf("Unable to put display to sleep: %v", err)
	}
	if err := s.displaySink.Close(); err != nil {
		logrus.Warnf("Unable to close display: %v", err)
	}
	s.buttonSource.Close()

	// Flush state backup
	s.ServerState.SetApiStats(s.apiStats.State(s.now()))
	s.ServerState.FlushSave()
}

// CurrentMode is only safe to call from the event loop or once it is stopped
func (s *ServerApp) CurrentMode() Mode {
	return s.currentMode
}
