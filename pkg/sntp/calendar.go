package sntp

import (
	"fmt"
	"time"
)

// CalendarTime is a broken-down calendar value in the caller's configured
// timezone. It is derived with proleptic Gregorian rules; leap seconds
// are not modeled, every day is exactly 86400 seconds.
type CalendarTime struct {
	Year    int
	Month   time.Month
	Day     int
	Hour    int
	Minute  int
	Second  int
	Weekday time.Weekday
	YearDay int
}

// Calendar years outside this range are rejected rather than rendered.
const (
	minCalendarYear = 1
	maxCalendarYear = 9999
)

// CalendarFromUnix converts seconds since the Unix epoch to a calendar
// value. The seconds are interpreted as already shifted to the target
// timezone, so no location lookup happens here.
func CalendarFromUnix(sec int64) (CalendarTime, error) {
	t := time.Unix(sec, 0).UTC()
	if y := t.Year(); y < minCalendarYear || y > maxCalendarYear {
		return CalendarTime{}, fmt.Errorf("%w: year %d", ErrCalendarOverflow, y)
	}
	return CalendarTime{
		Year:    t.Year(),
		Month:   t.Month(),
		Day:     t.Day(),
		Hour:    t.Hour(),
		Minute:  t.Minute(),
		Second:  t.Second(),
		Weekday: t.Weekday(),
		YearDay: t.YearDay(),
	}, nil
}

func (c CalendarTime) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d",
		c.Year, int(c.Month), c.Day, c.Hour, c.Minute, c.Second)
}
