package config

import (
	_ "embed"
	"fmt"
	"time"
)

//go:embed param_default.yaml
var ParamDefaultFile []byte

const (
	NormalProfile = "normal"
	FastProfile   = "fast"
)

type ServerParam struct {
	Profiles               map[string]Profile `yaml:"profiles"`
	WeatherRefreshInterval int64              `yaml:"weather_refresh_interval"`
	BootDelay              int64              `yaml:"boot_delay"`
	Transit                TransitParam       `yaml:"transit"`
	Weather                WeatherParam       `yaml:"weather"`
	Welcome                WelcomeParam       `yaml:"welcome"`
	Remote                 RemoteParam        `yaml:"remote"`
	Buttons                ButtonsParam       `yaml:"buttons"`
	Display                DisplayParam       `yaml:"display"`
	ApiParam               ApiParam           `yaml:"api"`
}

// Profile is a cadence: seconds between redraws, and redraws between two full refreshes
type Profile struct {
	UpdateInterval      int64 `yaml:"update_interval"`
	FullRefreshInterval int64 `yaml:"full_refresh_interval"`
}

func (p Profile) UpdateDuration() time.Duration {
	return time.Duration(p.UpdateInterval) * time.Second
}

type TransitParam struct {
	Endpoint  string         `yaml:"endpoint"`
	ApiKey    string         `yaml:"api_key"`
	LineRef   string         `yaml:"line_ref"`
	LineName  string         `yaml:"line_name"`
	Timeout   int64          `yaml:"timeout"`
	Primary   DirectionParam `yaml:"primary"`
	Secondary DirectionParam `yaml:"secondary"`
}

type DirectionParam struct {
	Name                string   `yaml:"name"`
	StopRef             string   `yaml:"stop_ref"`
	DirectionRef        string   `yaml:"direction_ref"`
	IncludeKeywords     []string `yaml:"include_keywords"`
	ExcludeKeywords     []string `yaml:"exclude_keywords"`
	FallbackDestination string   `yaml:"fallback_destination"`
}

type WeatherParam struct {
	Endpoint   string  `yaml:"endpoint"`
	Latitude   float64 `yaml:"latitude"`
	Longitude  float64 `yaml:"longitude"`
	Timezone   string  `yaml:"timezone"`
	Timeout    int64   `yaml:"timeout"`
	Retries    int64   `yaml:"retries"`
	RetryDelay int64   `yaml:"retry_delay"`
}

type WelcomeParam struct {
	Greeting []string `yaml:"greeting"`
}

type RemoteParam struct {
	ControlFile string `yaml:"control_file"`
	StatusFile  string `yaml:"status_file"`
}

type ButtonsParam struct {
	Pins     []string `yaml:"pins"`
	Debounce int64    `yaml:"debounce"`
}

type DisplayParam struct {
	SpiPort string `yaml:"spi_port"`
	SpiHz   int64  `yaml:"spi_hz"`
	RstPin  string `yaml:"rst_pin"`
	DcPin   string `yaml:"dc_pin"`
	BusyPin string `yaml:"busy_pin"`
}

type ApiParam struct {
	Enabled bool   `yaml:"enabled"`
	SslPort int64  `yaml:"ssl_port"`
	ApiKey  string `yaml:"api_key"`
}

func (sp *ServerParam) Validate() error {
	for _, name := range []string{NormalProfile, FastProfile} {
		profile, ok := sp.Profiles[name]
		if !ok {
			return fmt.Errorf("missing %s profile", name)
		}
		if profile.UpdateInterval <= 0 || profile.FullRefreshInterval <= 0 {
			return fmt.Errorf("%s profile intervals must be positive", name)
		}
	}
	if sp.WeatherRefreshInterval <= 0 {
		return fmt.Errorf("weather_refresh_interval must be positive")
	}
	if sp.Transit.Endpoint == "" {
		return fmt.Errorf("missing transit endpoint")
	}
	if sp.Transit.Primary.StopRef == "" || sp.Transit.Secondary.StopRef == "" {
		return fmt.Errorf("both transit directions need a stop_ref")
	}
	if len(sp.Buttons.Pins) != 4 {
		return fmt.Errorf("exactly 4 button pins expected, got %d", len(sp.Buttons.Pins))
	}
	if sp.Remote.ControlFile == "" || sp.Remote.StatusFile == "" {
		return fmt.Errorf("missing remote control or status file")
	}
	return nil
}
