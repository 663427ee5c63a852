package srv

import (
	"time"
)

// ScheduleState is owned by the event loop
type ScheduleState struct {
	NextUpdate       time.Time
	RefreshCounter   int64
	LastWeatherFetch time.Time
}

// NextUpdate aligns the next redraw on a multiple of interval counted from
// local midnight. A whole interval is added when now is already aligned.
func NextUpdate(now time.Time, interval time.Duration) time.Time {
	seconds := int64(interval / time.Second)
	if seconds <= 0 {
		seconds = 1
	}
	secondsOfDay := int64(now.Hour()*3600 + now.Minute()*60 + now.Second())
	base := now.Add(-time.Duration(now.Nanosecond()))
	return base.Add(time.Duration(seconds-secondsOfDay%seconds) * time.Second)
}

// isFullRefresh tells if the cycle about to run must use the full waveform
func (ss *ScheduleState) isFullRefresh(fullRefreshInterval int64) bool {
	if fullRefreshInterval <= 1 {
		return true
	}
	return (ss.RefreshCounter+1)%fullRefreshInterval == 0
}
