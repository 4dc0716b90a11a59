package bonus

import "time"

const dateLayout = "2006-01-02"

// DayKey formats t as a calendar date in loc.
func DayKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(dateLayout)
}

// shiftDay moves a YYYY-MM-DD date by n calendar days. Arithmetic happens on
// the date itself so DST transitions in the reward timezone cannot skip or
// repeat a day.
func shiftDay(date string, n int) string {
	d, err := time.Parse(dateLayout, date)
	if err != nil {
		return date
	}
	return d.AddDate(0, 0, n).Format(dateLayout)
}

// endOfDay returns the instant the calendar day containing t ends in loc.
func endOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
}
