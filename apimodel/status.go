package apimodel

// Status is the snapshot written to the status file after every display cycle
type Status struct {
	Mode     ModeToken `json:"mode"`
	Updated  string    `json:"updated"`
	IsTest   bool      `json:"is_test"`
	ApiStats ApiStats  `json:"api_stats"`

	Line       string   `json:"line,omitempty"`
	Direction  string   `json:"direction,omitempty"`
	Departures []string `json:"departures,omitempty"`

	Greeting string         `json:"greeting,omitempty"`
	Time     string         `json:"time,omitempty"`
	Date     string         `json:"date,omitempty"`
	Weather  *WeatherStatus `json:"weather,omitempty"`
}

type ApiStats struct {
	Date      string  `json:"date"`
	Success   int64   `json:"success"`
	Failed    int64   `json:"failed"`
	LastError *string `json:"last_error"`
}

type WeatherStatus struct {
	Morning   string `json:"morning,omitempty"`
	Afternoon string `json:"afternoon,omitempty"`
	Evening   string `json:"evening,omitempty"`
}
