package permissions

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charlesng35/portcullis/internal/models"
)

const clockLayout = "15:04"

var locations sync.Map // name -> *time.Location

// IsWithinSchedule reports whether now falls inside the schedule's weekly window.
// The weekday must be listed and the "HH:MM" time of day must lie within
// [StartTime, EndTime], both bounds inclusive. Windows do not wrap past midnight.
//
// When the schedule names a timezone that can be loaded, now is converted into it;
// otherwise now is evaluated in its own location.
func IsWithinSchedule(schedule models.Schedule, now time.Time) bool {
	if loc := lookupLocation(schedule.Timezone); loc != nil {
		now = now.In(loc)
	}

	if !slices.Contains(schedule.Days, int(now.Weekday())) {
		return false
	}

	current := now.Format(clockLayout)
	return current >= schedule.StartTime && current <= schedule.EndTime
}

func lookupLocation(name string) *time.Location {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	if cached, ok := locations.Load(name); ok {
		return cached.(*time.Location)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil
	}
	locations.Store(name, loc)
	return loc
}
