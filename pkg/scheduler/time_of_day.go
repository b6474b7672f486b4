package scheduler

// TimeOfDay is a part of the day a task was started in
type TimeOfDay string

const (
	// Morning is from 5 to 12 o'clock
	Morning TimeOfDay = "morning"
	// Afternoon is from 12 to 17 o'clock
	Afternoon TimeOfDay = "afternoon"
	// Evening is every other hour
	Evening TimeOfDay = "evening"
	// Any is recommended when there is no evidence for one of the others
	Any TimeOfDay = "any"
)

// Buckets are the parts of a day samples are grouped by, in scan order
var Buckets = []TimeOfDay{Morning, Afternoon, Evening}

// TimeOfDayOf classifies an hour of the day
func TimeOfDayOf(hour int) TimeOfDay {
	switch {
	case hour >= 5 && hour < 12:
		return Morning
	case hour >= 12 && hour < 17:
		return Afternoon
	default:
		return Evening
	}
}
