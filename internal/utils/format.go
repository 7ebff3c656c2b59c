package utils

import (
	"fmt"
	"math"
	"time"
)

// FormatDuration formats a number of seconds as "%dh %dm"
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%dh %dm", seconds/3600, (seconds%3600)/60)
}

// TimeAgo describes how long before now t happened
func TimeAgo(t, now time.Time) string {
	secs := int64(now.Sub(t) / time.Second)
	switch {
	case secs < 60:
		return "Just now"
	case secs < 3600:
		return plural(secs/60, "minute") + " ago"
	default:
		return plural(secs/3600, "hour") + " ago"
	}
}

func plural(n int64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// Round rounds v half away from zero to the given number of decimal places
func Round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

// Hours converts seconds to hours rounded to places decimals
func Hours(seconds int64, places int) float64 {
	return Round(float64(seconds)/3600, places)
}

// Percent returns part/whole*100 rounded to places decimals, or 0 when whole is 0
func Percent(part, whole float64, places int) float64 {
	if whole == 0 {
		return 0
	}
	return Round(part/whole*100, places)
}
