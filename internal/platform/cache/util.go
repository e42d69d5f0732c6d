package cache

import (
	"time"
	_ "time/tzdata" // America/New_York must resolve in minimal containers
)

// refreshHour is the New York hour after which the day's close is considered final.
const refreshHour = 18

var newYork = mustLoadLocation("America/New_York")

// TimeUntilNextRefresh returns the duration until the next 18:00 America/New_York.
func TimeUntilNextRefresh() time.Duration {
	return timeUntilNextRefresh(time.Now())
}

func timeUntilNextRefresh(now time.Time) time.Duration {
	now = now.In(newYork)

	next := time.Date(now.Year(), now.Month(), now.Day(), refreshHour, 0, 0, 0, newYork)
	if !now.Before(next) {
		next = time.Date(now.Year(), now.Month(), now.Day()+1, refreshHour, 0, 0, 0, newYork)
	}
	return next.Sub(now)
}

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}
