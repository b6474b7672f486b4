package scheduler

import (
	"time"

	"github.com/taskistation/todo-backend/pkg/todos"
)

// HourRange is an inclusive range of full hours of a day
type HourRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// ConfidenceStep assigns Confidence to profiles with less than Below samples
type ConfidenceStep struct {
	Below      int
	Confidence float64
}

// Defaults holds every fallback value of the recorder, analyzer and engine
type Defaults struct {
	EstimatedDuration int
	TaskType          string
	Category          string
	LookbackDays      int
	// MaxActualDuration in minutes, longer samples are discarded
	MaxActualDuration int
	HourRanges        map[TimeOfDay]HourRange
	DayOfWeek         time.Weekday
	// ConfidenceSteps are ordered by Below, profiles with more samples get MaxConfidence
	ConfidenceSteps []ConfidenceStep
	MaxConfidence   float64
}

// NewDefaults returns the standard Defaults
func NewDefaults() Defaults {
	return Defaults{
		EstimatedDuration: todos.DefaultEstimatedDuration,
		TaskType:          todos.DefaultTaskType,
		Category:          todos.DefaultCategory,
		LookbackDays:      90,
		MaxActualDuration: 24 * 60,
		HourRanges: map[TimeOfDay]HourRange{
			Morning:   {Start: 8, End: 11},
			Afternoon: {Start: 12, End: 16},
			Evening:   {Start: 17, End: 21},
			Any:       {Start: 9, End: 17},
		},
		DayOfWeek: time.Monday,
		ConfidenceSteps: []ConfidenceStep{
			{Below: 1, Confidence: 0},
			{Below: 5, Confidence: 0.3},
			{Below: 15, Confidence: 0.6},
			{Below: 30, Confidence: 0.8},
		},
		MaxConfidence: 0.95,
	}
}

// Confidence maps the number of samples a profile is based on to a confidence in [0,1]
func (d *Defaults) Confidence(totalRecords int) float64 {
	for _, step := range d.ConfidenceSteps {
		if totalRecords < step.Below {
			return step.Confidence
		}
	}

	return d.MaxConfidence
}
