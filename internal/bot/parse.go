package bot

import (
	"strconv"
	"strings"

	"elan_bot/internal/scheduler"
)

// ParseAutoInterval interprets the /auto argument. It returns the interval
// to request in seconds and a user-facing notice when the input had to be
// corrected: non-numeric input falls back to the default, values below the
// minimum are clamped.
func ParseAutoInterval(args string) (int, string) {
	args = strings.TrimSpace(args)
	if args == "" {
		return scheduler.DefaultIntervalSeconds, ""
	}

	seconds, err := strconv.Atoi(strings.Fields(args)[0])
	if err != nil {
		return scheduler.DefaultIntervalSeconds, "Invalid interval, using the default (5 minutes)."
	}
	if seconds < scheduler.MinIntervalSeconds {
		return scheduler.MinIntervalSeconds, "Minimum interval is 60 seconds."
	}
	return seconds, ""
}
