package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/jypelle/busboard/internal/srv/config"
	"github.com/sirupsen/logrus"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const maxWeatherPayload = 1 << 20

const (
	morningHour   = 9
	afternoonHour = 14
	eveningHour   = 20
)

type Condition int

const (
	SUNNY Condition = iota
	CLOUDY
	OVERCAST
	RAIN
	SNOW
	STORM
)

// Label is the short french word shown next to the temperature
func (c Condition) Label() string {
	switch c {
	case SUNNY:
		return "Soleil"
	case CLOUDY:
		return "Nuages"
	case OVERCAST:
		return "Couvert"
	case RAIN:
		return "Pluie"
	case SNOW:
		return "Neige"
	case STORM:
		return "Orage"
	}
	return "Nuages"
}

func (c Condition) String() string {
	return c.Label()
}

// ConditionFromWmoCode maps a WMO weather interpretation code
func ConditionFromWmoCode(code int) Condition {
	switch code {
	case 0:
		return SUNNY
	case 1, 2:
		return CLOUDY
	case 3:
		return OVERCAST
	case 51, 53, 55, 61, 63, 65, 80, 81, 82:
		return RAIN
	case 71, 73, 75, 85, 86:
		return SNOW
	case 95, 96, 99:
		return STORM
	}
	return CLOUDY
}

type WeatherBucket struct {
	Temperature int
	Condition   Condition
}

func (b WeatherBucket) String() string {
	return fmt.Sprintf("%dC %s", b.Temperature, b.Condition.Label())
}

// WeatherSnapshot holds today's forecast; a nil bucket means no data for that part of the day
type WeatherSnapshot struct {
	Morning   *WeatherBucket
	Afternoon *WeatherBucket
	Evening   *WeatherBucket
}

func (ws *WeatherSnapshot) empty() bool {
	return ws.Morning == nil && ws.Afternoon == nil && ws.Evening == nil
}

type WeatherProvider struct {
	param  config.WeatherParam
	client *http.Client
	stats  *ApiStats
	now    func() time.Time
	sleep  func(time.Duration)
}

func NewWeatherProvider(param config.WeatherParam, stats *ApiStats) *WeatherProvider {
	timeout := time.Duration(param.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if param.Retries <= 0 {
		param.Retries = 1
	}
	return &WeatherProvider{
		param:  param,
		client: &http.Client{Timeout: timeout},
		stats:  stats,
		now:    time.Now,
		sleep:  time.Sleep,
	}
}

// FetchWeather returns nil when no forecast could be obtained
func (p *WeatherProvider) FetchWeather(ctx context.Context) *WeatherSnapshot {
	var body []byte
	var err error

	for attempt := int64(1); attempt <= p.param.Retries; attempt++ {
		body, err = p.fetch(ctx)
		if err == nil {
			break
		}
		if attempt < p.param.Retries && isTransient(err) && ctx.Err() == nil {
			logrus.Warnf("Weather attempt %d/%d failed: %v, retrying", attempt, p.param.Retries, err)
			p.sleep(time.Duration(p.param.RetryDelay) * time.Second)
			continue
		}
		break
	}
	if errors.Is(err, context.Canceled) {
		logrus.Debugf("Weather api call aborted")
		return nil
	}
	if err != nil {
		p.stats.RecordFailure(p.now(), failureReason(err))
		logrus.Errorf("Weather api failed: %v | %s", err, p.stats.Summary())
		return nil
	}

	snapshot, err := parseForecast(body)
	if err != nil {
		p.stats.RecordFailure(p.now(), err.Error())
		logrus.Errorf("Weather api failed: %v | %s", err, p.stats.Summary())
		return nil
	}
	p.stats.RecordSuccess(p.now())

	if snapshot.empty() {
		logrus.Warnf("Weather forecast has none of the expected hours")
		return nil
	}
	logrus.Infof("Weather: morning %s, afternoon %s, evening %s",
		bucketText(snapshot.Morning), bucketText(snapshot.Afternoon), bucketText(snapshot.Evening))
	return snapshot
}

func (p *WeatherProvider) forecastUrl() string {
	query := url.Values{}
	query.Set("latitude", strconv.FormatFloat(p.param.Latitude, 'f', -1, 64))
	query.Set("longitude", strconv.FormatFloat(p.param.Longitude, 'f', -1, 64))
	query.Set("hourly", "temperature_2m,precipitation_probability,weathercode")
	query.Set("timezone", p.param.Timezone)
	query.Set("forecast_days", "1")
	return p.param.Endpoint + "?" + query.Encode()
}

func (p *WeatherProvider) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.forecastUrl(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxWeatherPayload))
		return nil, &httpStatusError{StatusCode: resp.StatusCode}
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxWeatherPayload))
}

type openMeteoResponse struct {
	Hourly struct {
		Time          []string   `json:"time"`
		Temperature2m []*float64 `json:"temperature_2m"`
		WeatherCode   []*int     `json:"weathercode"`
	} `json:"hourly"`
}

func parseForecast(body []byte) (*WeatherSnapshot, error) {
	var response openMeteoResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("malformed forecast: %w", err)
	}

	hourly := response.Hourly
	snapshot := &WeatherSnapshot{}
	for i, timestamp := range hourly.Time {
		hour, ok := forecastHour(timestamp)
		if !ok {
			continue
		}

		var target **WeatherBucket
		switch hour {
		case morningHour:
			target = &snapshot.Morning
		case afternoonHour:
			target = &snapshot.Afternoon
		case eveningHour:
			target = &snapshot.Evening
		default:
			continue
		}
		if *target != nil {
			continue
		}
		if i >= len(hourly.Temperature2m) || i >= len(hourly.WeatherCode) ||
			hourly.Temperature2m[i] == nil || hourly.WeatherCode[i] == nil {
			continue
		}
		*target = &WeatherBucket{
			Temperature: int(*hourly.Temperature2m[i]),
			Condition:   ConditionFromWmoCode(*hourly.WeatherCode[i]),
		}
	}
	return snapshot, nil
}

// forecastHour reads the hour of a local "2006-01-02T15:04" timestamp
func forecastHour(timestamp string) (int, bool) {
	_, clock, found := strings.Cut(timestamp, "T")
	if !found {
		return 0, false
	}
	hourText, _, _ := strings.Cut(clock, ":")
	hour, err := strconv.Atoi(hourText)
	if err != nil {
		return 0, false
	}
	return hour, true
}

func bucketText(bucket *WeatherBucket) string {
	if bucket == nil {
		return "-"
	}
	return bucket.String()
}
