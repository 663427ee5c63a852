package stopfinder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/sirupsen/logrus"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

// DefaultEndpoint is the IDFM open data export of every stop/line pair. No key needed.
const DefaultEndpoint = "https://data.iledefrance-mobilites.fr/api/explore/v2.1/catalog/datasets/arrets-lignes/exports/json"

const (
	downloadTimeout = 60 * time.Second
	listedLines     = 10
)

var ErrEmptySearch = errors.New("search term cannot be empty")

type Stop struct {
	Name      string
	IdfmId    string
	StifId    string
	Commune   string
	Operator  string
	Latitude  string
	Longitude string
	Lines     []string
}

// ListedLines returns the distinct sorted lines among the first ones, and how many were left out
func (s Stop) ListedLines() ([]string, int) {
	lines := s.Lines
	more := 0
	if len(lines) > listedLines {
		more = len(lines) - listedLines
		lines = lines[:listedLines]
	}
	seen := make(map[string]bool)
	distinct := []string{}
	for _, line := range lines {
		if !seen[line] {
			seen[line] = true
			distinct = append(distinct, line)
		}
	}
	sort.Strings(distinct)
	return distinct, more
}

type Finder struct {
	endpoint string
	client   *http.Client
}

func NewFinder(endpoint string) *Finder {
	return &Finder{
		endpoint: endpoint,
		client: &http.Client{
			Timeout: downloadTimeout,
		},
	}
}

type stopLine struct {
	StopName     string          `json:"stop_name"`
	StopId       string          `json:"stop_id"`
	RouteName    string          `json:"route_long_name"`
	Commune      *string         `json:"nom_commune"`
	OperatorName *string         `json:"operatorname"`
	StopLat      json.RawMessage `json:"stop_lat"`
	StopLon      json.RawMessage `json:"stop_lon"`
}

// Search downloads the whole export and returns the stops whose name contains
// term, case insensitive, one entry per stop id, sorted by name.
func (f *Finder) Search(ctx context.Context, term string) ([]Stop, error) {
	if term == "" {
		return nil, ErrEmptySearch
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to download stop list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unable to download stop list: HTTP %d", resp.StatusCode)
	}

	return searchStops(resp.Body, term)
}

// searchStops streams the export, it is too large to be loaded at once on a small board
func searchStops(r io.Reader, term string) ([]Stop, error) {
	decoder := json.NewDecoder(r)
	if _, err := decoder.Token(); err != nil {
		return nil, fmt.Errorf("unable to read stop list: %w", err)
	}

	search := strings.ToLower(term)
	stops := make(map[string]*Stop)
	count := 0
	for decoder.More() {
		var entry stopLine
		if err := decoder.Decode(&entry); err != nil {
			return nil, fmt.Errorf("unable to read stop list: %w", err)
		}
		count++

		if !strings.Contains(strings.ToLower(entry.StopName), search) {
			continue
		}
		stop, ok := stops[entry.StopId]
		if !ok {
			stop = &Stop{
				Name:      entry.StopName,
				IdfmId:    entry.StopId,
				StifId:    ConvertIdfmToStif(entry.StopId),
				Commune:   orUnknown(entry.Commune),
				Operator:  orUnknown(entry.OperatorName),
				Latitude:  coordinate(entry.StopLat),
				Longitude: coordinate(entry.StopLon),
			}
			stops[entry.StopId] = stop
		}
		stop.Lines = append(stop.Lines, entry.RouteName)
	}
	logrus.Debugf("Read %d stop-line combinations", count)

	result := make([]Stop, 0, len(stops))
	for _, stop := range stops {
		result = append(result, *stop)
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].IdfmId < result[j].IdfmId
	})
	return result, nil
}

// ConvertIdfmToStif turns IDFM:12345 into STIF:StopPoint:Q:12345:, the form
// the stop monitoring API expects.
func ConvertIdfmToStif(idfmId string) string {
	number := idfmId
	if parts := strings.Split(idfmId, ":"); len(parts) > 1 {
		number = parts[1]
	}
	return "STIF:StopPoint:Q:" + number + ":"
}

func orUnknown(value *string) string {
	if value == nil {
		return "Unknown"
	}
	return *value
}

func coordinate(raw json.RawMessage) string {
	value := strings.Trim(string(raw), `"`)
	if value == "" || value == "null" {
		return "N/A"
	}
	return value
}

// Print lists stops the way the findstop command shows them
func Print(w io.Writer, term string, stops []Stop) {
	if len(stops) == 0 {
		fmt.Fprintf(w, "No stops found matching '%s'\n", term)
		fmt.Fprintf(w, "Try a simpler search term\n")
		return
	}

	fmt.Fprintf(w, "%s\n", strings.Repeat("=", 80))
	fmt.Fprintf(w, "FOUND %d MATCHING STOP(S):\n", len(stops))
	fmt.Fprintf(w, "%s\n\n", strings.Repeat("=", 80))
	for i, stop := range stops {
		lines, more := stop.ListedLines()
		fmt.Fprintf(w, "%d. %s\n", i+1, stop.Name)
		fmt.Fprintf(w, "   Location: %s\n", stop.Commune)
		fmt.Fprintf(w, "   Operator: %s\n", stop.Operator)
		fmt.Fprintf(w, "   Lines: %s\n", strings.Join(lines, ", "))
		if more > 0 {
			fmt.Fprintf(w, "          ... and %d more\n", more)
		}
		fmt.Fprintf(w, "   Coordinates: (%s, %s)\n\n", stop.Latitude, stop.Longitude)
		fmt.Fprintf(w, "   IDFM ID: %s\n", stop.IdfmId)
		fmt.Fprintf(w, "   STIF ID: %s\n\n", stop.StifId)
	}
}
