package date

import (
	"fmt"
	"time"
)

// Timespan is a simple timespan between to times/dates
type Timespan struct {
	Start time.Time `json:"start" bson:"start"`
	End   time.Time `json:"end" bson:"end"`
}

// Duration simply get the duration of a Timespan
func (t *Timespan) Duration() time.Duration {
	return t.End.Sub(t.Start)
}

// IsStartBeforeEnd checks if start is earlier than end
func (t *Timespan) IsStartBeforeEnd() bool {
	return t.Start.Before(t.End)
}

// String prints a timespan string
func (t *Timespan) String() string {
	return fmt.Sprintf("%s - %s", t.Start, t.End)
}

// In changes the location on a Timespan
func (t *Timespan) In(location *time.Location) Timespan {
	t.Start = t.Start.In(location)
	t.End = t.End.In(location)

	return *t
}

// IntersectsWith checks if one timespan intersects with another
func (t *Timespan) IntersectsWith(timespan Timespan) bool {
	return t.Start.Before(timespan.End) && t.End.After(timespan.Start)
}

// StartOfDay returns midnight of the day of t in its location
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// AtHour returns day at the full hour in the location of day
func AtHour(day time.Time, hour int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, day.Location())
}

// HourlySlots returns one Timespan of length duration starting at every full hour from firstHour to lastHour
// on the given day. There are none if lastHour is before firstHour.
func HourlySlots(day time.Time, firstHour int, lastHour int, duration time.Duration) []Timespan {
	slots := []Timespan{}
	for hour := firstHour; hour <= lastHour; hour++ {
		start := AtHour(day, hour)
		slots = append(slots, Timespan{Start: start, End: start.Add(duration)})
	}

	return slots
}

// DaysUntil counts the days from one weekday to the next occurrence of another,
// the same weekday is a full week away
func DaysUntil(from time.Weekday, to time.Weekday) int {
	days := (int(to) - int(from) + 7) % 7
	if days == 0 {
		return 7
	}

	return days
}
