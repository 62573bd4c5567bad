package timeutil

import (
	"math"
	"time"
)

// MJDEpoch is modified Julian date zero.
var MJDEpoch = time.Date(1858, time.November, 17, 0, 0, 0, 0, time.UTC)

// MJDToTime converts a modified Julian date to a UTC time, rounded to the
// microsecond.
func MJDToTime(mjd float64) time.Time {
	days, frac := math.Modf(mjd)
	us := math.Round(frac * 86400e6)
	return MJDEpoch.AddDate(0, 0, int(days)).Add(time.Duration(us) * time.Microsecond)
}

// TimeToMJD is the inverse of MJDToTime.
func TimeToMJD(t time.Time) float64 {
	return t.Sub(MJDEpoch).Seconds() / 86400
}

// NightOf returns the observing night containing t: the calendar date, in
// loc, of the local noon at or before t. Exposures taken after local
// midnight belong to the previous evening's night.
func NightOf(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	y, m, d := local.Date()
	night := time.Date(y, m, d, 0, 0, 0, 0, loc)
	if local.Hour() < 12 {
		night = night.AddDate(0, 0, -1)
	}
	return night
}

// NightKey formats a night the way production directories name it (YYYYMMDD).
func NightKey(night time.Time) string {
	return night.Format("20060102")
}

// ISODate formats a night for reports (YYYY-MM-DD).
func ISODate(night time.Time) string {
	return night.Format("2006-01-02")
}

// FixedOffset returns a zone hours east of UTC. The observatory keeps
// standard time year round.
func FixedOffset(hours float64) *time.Location {
	return time.FixedZone("", int(hours*3600))
}
