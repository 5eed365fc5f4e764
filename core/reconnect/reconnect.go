package reconnect

import "time"

// Schedule defines the backoff durations for successive connect attempts
// against the NeoConsole listener.
var Schedule = []time.Duration{
	250 * time.Millisecond, 250 * time.Millisecond,
	time.Second, time.Second,
	5 * time.Second,
}

// Delay returns the backoff duration for the given attempt. Attempts past
// the end of the schedule default to 10 seconds.
func Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt < len(Schedule) {
		return Schedule[attempt]
	}
	return 10 * time.Second
}
