package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/jypelle/busboard/internal/srv/config"
	"github.com/sirupsen/logrus"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

const maxVisits = 10
const maxTransitPayload = 4 << 20

const (
	fallbackDepartureCount = 2
	fallbackMinMinutes     = 3
	fallbackMaxMinutes     = 45
)

type Direction int

const (
	PRIMARY_DIRECTION Direction = iota
	SECONDARY_DIRECTION
)

func (d Direction) String() string {
	switch d {
	case PRIMARY_DIRECTION:
		return "primary"
	case SECONDARY_DIRECTION:
		return "secondary"
	}
	return fmt.Sprintf("direction(%d)", int(d))
}

type Departure struct {
	Destination string
	Minutes     int
	Label       string
}

// DepartureBoard is replaced as a whole on each fetch, never merged
type DepartureBoard struct {
	Direction  Direction
	Departures []Departure
	IsFallback bool
}

type TransitProvider struct {
	endpoint   string
	apiKey     string
	lineRef    string
	directions map[Direction]config.DirectionParam
	client     *http.Client
	stats      *ApiStats
	now        func() time.Time
	rand       *rand.Rand
}

func NewTransitProvider(param config.TransitParam, stats *ApiStats) *TransitProvider {
	timeout := time.Duration(param.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TransitProvider{
		endpoint: param.Endpoint,
		apiKey:   param.ApiKey,
		lineRef:  param.LineRef,
		directions: map[Direction]config.DirectionParam{
			PRIMARY_DIRECTION:   param.Primary,
			SECONDARY_DIRECTION: param.Secondary,
		},
		client: &http.Client{Timeout: timeout},
		stats:  stats,
		now:    time.Now,
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// FetchDepartures never fails: on any problem it returns a synthetic board and true
func (p *TransitProvider) FetchDepartures(ctx context.Context, direction Direction) (DepartureBoard, bool) {
	param := p.directions[direction]

	departures, err := p.fetch(ctx, param)
	if errors.Is(err, context.Canceled) {
		logrus.Debugf("Transit api call for %s aborted", direction)
	} else if err != nil {
		p.stats.RecordFailure(p.now(), failureReason(err))
		logrus.Errorf("Transit api failed for %s: %v | %s", direction, err, p.stats.Summary())
	} else {
		p.stats.RecordSuccess(p.now())
		logrus.Debugf("Transit api ok for %s | %s", direction, p.stats.Summary())
	}

	if len(departures) == 0 {
		logrus.Warnf("[%s] No departure, using test data", param.Name)
		return p.fallbackBoard(direction, param), true
	}

	labels := make([]string, 0, 2)
	for i := 0; i < len(departures) && i < 2; i++ {
		labels = append(labels, departures[i].Label)
	}
	logrus.Infof("[%s] Next buses: %s", param.Name, strings.Join(labels, ", "))

	return DepartureBoard{Direction: direction, Departures: departures}, false
}

func (p *TransitProvider) fetch(ctx context.Context, param config.DirectionParam) ([]Departure, error) {
	query := url.Values{}
	query.Set("MonitoringRef", param.StopRef)
	if p.lineRef != "" {
		query.Set("LineRef", p.lineRef)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", p.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxTransitPayload))
		return nil, &httpStatusError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTransitPayload))
	if err != nil {
		return nil, err
	}

	return parseDepartures(body, param, p.now())
}

type siriResponse struct {
	Siri struct {
		ServiceDelivery struct {
			StopMonitoringDelivery []struct {
				MonitoredStopVisit []json.RawMessage `json:"MonitoredStopVisit"`
			} `json:"StopMonitoringDelivery"`
		} `json:"ServiceDelivery"`
	} `json:"Siri"`
}

type siriStopVisit struct {
	MonitoredVehicleJourney struct {
		DestinationName []siriValue `json:"DestinationName"`
		DirectionRef    *siriValue  `json:"DirectionRef"`
		MonitoredCall   struct {
			ExpectedDepartureTime string `json:"ExpectedDepartureTime"`
		} `json:"MonitoredCall"`
	} `json:"MonitoredVehicleJourney"`
}

type siriValue struct {
	Value string `json:"value"`
}

// parseDepartures keeps the visits of the wanted direction, sorted by waiting time.
// Visits that cannot be decoded are dropped.
func parseDepartures(body []byte, param config.DirectionParam, now time.Time) ([]Departure, error) {
	var response siriResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("malformed payload: %w", err)
	}

	deliveries := response.Siri.ServiceDelivery.StopMonitoringDelivery
	if len(deliveries) == 0 {
		return nil, nil
	}

	visits := deliveries[0].MonitoredStopVisit
	if len(visits) > maxVisits {
		visits = visits[:maxVisits]
	}

	var departures []Departure
	for _, rawVisit := range visits {
		var visit siriStopVisit
		if err := json.Unmarshal(rawVisit, &visit); err != nil {
			logrus.Debugf("Skip unreadable visit: %v", err)
			continue
		}
		journey := visit.MonitoredVehicleJourney

		destination := "Unknown"
		if len(journey.DestinationName) > 0 && journey.DestinationName[0].Value != "" {
			destination = journey.DestinationName[0].Value
		}
		var directionRef string
		if journey.DirectionRef != nil {
			directionRef = journey.DirectionRef.Value
		}
		if !matchesDirection(param, destination, directionRef) {
			continue
		}

		if journey.MonitoredCall.ExpectedDepartureTime == "" {
			continue
		}
		expected, err := time.Parse(time.RFC3339, journey.MonitoredCall.ExpectedDepartureTime)
		if err != nil {
			logrus.Debugf("Skip visit with bad departure time %q: %v", journey.MonitoredCall.ExpectedDepartureTime, err)
			continue
		}

		minutes := int(expected.Sub(now) / time.Minute)
		departures = append(departures, Departure{
			Destination: destination,
			Minutes:     minutes,
			Label:       departureLabel(minutes),
		})
	}

	sort.SliceStable(departures, func(i, j int) bool {
		return departures[i].Minutes < departures[j].Minutes
	})
	return departures, nil
}

// matchesDirection trusts the direction reference when the feed gives one,
// and only falls back to the destination name when it does not.
func matchesDirection(param config.DirectionParam, destination string, directionRef string) bool {
	if directionRef != "" {
		return param.DirectionRef == "" || directionRef == param.DirectionRef
	}

	lowerDestination := strings.ToLower(destination)
	for _, keyword := range param.ExcludeKeywords {
		if strings.Contains(lowerDestination, strings.ToLower(keyword)) {
			return false
		}
	}
	if len(param.IncludeKeywords) == 0 {
		return true
	}
	for _, keyword := range param.IncludeKeywords {
		if strings.Contains(lowerDestination, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}

func departureLabel(minutes int) string {
	switch {
	case minutes < 0:
		return "Passe"
	case minutes == 0:
		return "0 min"
	case minutes == 1:
		return "1 min"
	}
	return fmt.Sprintf("%d min", minutes)
}

func (p *TransitProvider) fallbackBoard(direction Direction, param config.DirectionParam) DepartureBoard {
	minutes := make([]int, fallbackDepartureCount)
	for i := range minutes {
		minutes[i] = fallbackMinMinutes + p.rand.Intn(fallbackMaxMinutes-fallbackMinMinutes+1)
	}
	sort.Ints(minutes)

	destination := param.FallbackDestination
	if destination == "" {
		destination = param.Name
	}

	board := DepartureBoard{Direction: direction, IsFallback: true}
	for _, m := range minutes {
		board.Departures = append(board.Departures, Departure{
			Destination: destination,
			Minutes:     m,
			Label:       departureLabel(m),
		})
	}
	return board
}

type httpStatusError struct {
	StatusCode int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// failureReason is the short text kept as last error in the stats
func failureReason(err error) string {
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return statusErr.Error()
	}
	if isTimeout(err) {
		return "Timeout"
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return "Connection error"
	}
	return err.Error()
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// isTransient tells which errors are worth another attempt
func isTransient(err error) bool {
	if isTimeout(err) {
		return true
	}
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return false
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
