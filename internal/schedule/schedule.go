package schedule

import "time"

// Weekly fires once per week on a fixed weekday and hour, UTC.
type Weekly struct {
	Day  time.Weekday
	Hour int
}

func New(dayOfWeek, hourOfDay int) Weekly {
	return Weekly{Day: DayOfWeek(dayOfWeek), Hour: hourOfDay}
}

// DayOfWeek maps 1..7 (Monday..Sunday) to a weekday. Out-of-range values
// fall back to Wednesday, matching the original calendar helper.
func DayOfWeek(n int) time.Weekday {
	switch n {
	case 1:
		return time.Monday
	case 2:
		return time.Tuesday
	case 3:
		return time.Wednesday
	case 4:
		return time.Thursday
	case 5:
		return time.Friday
	case 6:
		return time.Saturday
	case 7:
		return time.Sunday
	default:
		return time.Wednesday
	}
}

// Next returns the first trigger instant strictly after the given time.
func (w Weekly) Next(after time.Time) time.Time {
	t := after.UTC()
	candidate := time.Date(t.Year(), t.Month(), t.Day(), w.Hour, 0, 0, 0, time.UTC)
	for candidate.Weekday() != w.Day || !candidate.After(t) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}
