package autopilot

import "time"

const (
	marketOpenMinute  = 9*60 + 30
	marketCloseMinute = 16 * 60
)

var marketLocation = func() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.UTC
	}
	return loc
}()

// WithinMarketHours reports whether the regular session is open at the
// given instant: weekdays 09:30 to 16:00 in the venue's local time.
// Exchange holidays are not tracked here.
func WithinMarketHours(now time.Time) bool {
	local := now.In(marketLocation)
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	minute := local.Hour()*60 + local.Minute()
	return minute >= marketOpenMinute && minute < marketCloseMinute
}

// InNoTradeWindow returns the first configured window covering the
// given instant, or nil. Window bounds are minutes since midnight in
// the venue's local time, start inclusive and end exclusive.
func InNoTradeWindow(now time.Time, windows []TimeWindow) *TimeWindow {
	local := now.In(marketLocation)
	minute := local.Hour()*60 + local.Minute()
	for i := range windows {
		w := windows[i]
		if minute >= w.StartMinute && minute < w.EndMinute {
			return &w
		}
	}
	return nil
}

// TradingDayStart returns midnight of the current trading day in the
// venue's local time, used to scope the daily trade count.
func TradingDayStart(now time.Time) time.Time {
	local := now.In(marketLocation)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, marketLocation)
}
