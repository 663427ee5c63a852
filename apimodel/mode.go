package apimodel

// ModeToken is the wire name of a screen mode, used by the command file,
// the status file and the HTTP API.
type ModeToken string

const (
	WelcomeModeToken     ModeToken = "welcome"
	BusModeToken         ModeToken = "bus"
	BusOppositeModeToken ModeToken = "bus_opposite"
	BlankModeToken       ModeToken = "blank"
)

const (
	DefaultControlFilename = "/tmp/bus_control"
	DefaultStatusFilename  = "/tmp/bus_status.json"
)

var ModeTokens = []ModeToken{BusModeToken, BusOppositeModeToken, WelcomeModeToken, BlankModeToken}

// ParseModeToken only accepts an exact token, no trimming or case folding.
func ParseModeToken(s string) (ModeToken, bool) {
	for _, token := range ModeTokens {
		if string(token) == s {
			return token, true
		}
	}
	return "", false
}
