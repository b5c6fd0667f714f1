package parser

import (
	"fmt"
	"sync"
	"time"
)

// monthsByName maps the Italian month names the newsletter uses. Lookups are
// exact: the source text is lowercase and nothing else is accepted.
var monthsByName = map[string]time.Month{
	"gennaio":   time.January,
	"febbraio":  time.February,
	"marzo":     time.March,
	"aprile":    time.April,
	"maggio":    time.May,
	"giugno":    time.June,
	"luglio":    time.July,
	"agosto":    time.August,
	"settembre": time.September,
	"ottobre":   time.October,
	"novembre":  time.November,
	"dicembre":  time.December,
}

func monthNumber(name string) (time.Month, bool) {
	m, ok := monthsByName[name]
	return m, ok
}

var (
	romeOnce sync.Once
	romeLoc  *time.Location
)

// rome returns the Europe/Rome location all newsletter dates are anchored to.
// The binaries embed the timezone database via time/tzdata, so this cannot
// fail outside of a broken build.
func rome() *time.Location {
	romeOnce.Do(func() {
		loc, err := time.LoadLocation("Europe/Rome")
		if err != nil {
			panic(fmt.Sprintf("load Europe/Rome timezone data: %v", err))
		}
		romeLoc = loc
	})
	return romeLoc
}

// dateInLocation builds a midnight timestamp and rejects impossible calendar
// dates. time.Date normalizes out-of-range values (September 31 becomes
// October 1), so validity is checked by comparing the result back.
func dateInLocation(year int, month time.Month, day int, loc *time.Location) (time.Time, error) {
	d := time.Date(year, month, day, 0, 0, 0, 0, loc)
	if d.Year() != year || d.Month() != month || d.Day() != day {
		return time.Time{}, newSemanticError("", "no valid date for year-month-day = %d-%d-%d", year, int(month), day)
	}
	return d, nil
}
