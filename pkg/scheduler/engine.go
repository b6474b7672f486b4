package scheduler

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"
	"github.com/taskistation/todo-backend/pkg/communication"
	"github.com/taskistation/todo-backend/pkg/date"
	"github.com/taskistation/todo-backend/pkg/logger"
	"github.com/taskistation/todo-backend/pkg/todos"
	"github.com/taskistation/todo-backend/pkg/users"
	"golang.org/x/sync/errgroup"
)

// ProfileAnalyzerInterface provides the profile of a user
type ProfileAnalyzerInterface interface {
	Analyze(ctx context.Context, userID string) (*Profile, error)
}

// PreferencesProviderInterface provides the scheduling preferences of a user, nil if the user has none
type PreferencesProviderInterface interface {
	FindPreferences(ctx context.Context, userID string) (*users.Preferences, error)
}

// RepositoryPreferencesProvider reads preferences from a users.PreferencesRepositoryInterface
type RepositoryPreferencesProvider struct {
	Repository users.PreferencesRepositoryInterface
}

// FindPreferences finds the preferences of a user, missing preferences are no error
func (p *RepositoryPreferencesProvider) FindPreferences(ctx context.Context, userID string) (*users.Preferences, error) {
	preferences, err := p.Repository.FindByUserID(ctx, userID)
	if errors.Is(err, communication.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "could not load preferences")
	}

	return preferences, nil
}

// RecommendationRequest describes the task a recommendation is made for
type RecommendationRequest struct {
	TaskType          string
	Category          string
	Priority          todos.Priority
	EstimatedDuration int
	// Location the slots are computed in, time.Local if nil
	Location *time.Location
}

// RequestFor builds the RecommendationRequest of a todo
func RequestFor(todo *todos.Todo, location *time.Location) RecommendationRequest {
	return RecommendationRequest{
		TaskType:          todo.TaskType,
		Category:          todo.Category,
		Priority:          todo.Priority,
		EstimatedDuration: todo.EstimatedDuration,
		Location:          location,
	}
}

// Recommendation tells when a task should be worked on
type Recommendation struct {
	BestTimeOfDay        TimeOfDay       `json:"bestTimeOfDay"`
	BestDayOfWeek        int             `json:"bestDayOfWeek"`
	NextBestDate         time.Time       `json:"nextBestDate"`
	RecommendedTimeSlots []date.Timespan `json:"recommendedTimeSlots"`
	Efficiency           float64         `json:"efficiency"`
	Confidence           float64         `json:"confidence"`
}

// Engine recommends time slots based on the productivity profile of a user
type Engine struct {
	analyzer    ProfileAnalyzerInterface
	preferences PreferencesProviderInterface
	defaults    Defaults
	logger      logger.Interface
}

// NewEngine builds a new Engine
func NewEngine(analyzer ProfileAnalyzerInterface, preferences PreferencesProviderInterface, defaults Defaults,
	logger logger.Interface) *Engine {
	return &Engine{
		analyzer:    analyzer,
		preferences: preferences,
		defaults:    defaults,
		logger:      logger,
	}
}

// Recommend computes a recommendation for a task of the user. Missing data falls back to defaults,
// only failing stores result in an error.
func (e *Engine) Recommend(ctx context.Context, request RecommendationRequest, userID string) (*Recommendation, error) {
	var profile *Profile
	var preferences *users.Preferences

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		profile, err = e.analyzer.Analyze(groupCtx, userID)
		return err
	})
	group.Go(func() error {
		var err error
		preferences, err = e.preferences.FindPreferences(groupCtx, userID)
		return err
	})

	err := group.Wait()
	if err != nil {
		return nil, err
	}

	taskType := request.TaskType
	if taskType == "" {
		taskType = e.defaults.TaskType
	}

	duration := request.EstimatedDuration
	if duration <= 0 {
		duration = e.defaults.EstimatedDuration
	}

	location := request.Location
	if location == nil {
		location = time.Local
	}

	bestTimeOfDay, efficiency := e.bestTimeOfDay(profile, taskType)
	hourRange := e.hourRanges(preferences)[bestTimeOfDay]
	bestDay := e.bestDayOfWeek(profile)

	today := now().In(location)
	nextBestDate := date.StartOfDay(today).AddDate(0, 0, date.DaysUntil(today.Weekday(), bestDay))

	lastHour := hourRange.End - int(math.Ceil(float64(duration)/60))
	slots := date.HourlySlots(nextBestDate, hourRange.Start, lastHour, time.Duration(duration)*time.Minute)

	return &Recommendation{
		BestTimeOfDay:        bestTimeOfDay,
		BestDayOfWeek:        int(bestDay),
		NextBestDate:         nextBestDate,
		RecommendedTimeSlots: slots,
		Efficiency:           efficiency,
		Confidence:           e.defaults.Confidence(profile.TotalRecords),
	}, nil
}

// bestTimeOfDay picks the part of the day with the highest efficiency. Type specific evidence replaces
// the overall choice only if it is strictly better.
func (e *Engine) bestTimeOfDay(profile *Profile, taskType string) (TimeOfDay, float64) {
	best := Any
	highest := 0.0

	for _, bucket := range Buckets {
		if stats, ok := profile.TimeOfDay[bucket]; ok && stats.Efficiency > highest {
			best = bucket
			highest = stats.Efficiency
		}
	}

	typeStats, ok := profile.TaskType[taskType]
	if !ok {
		return best, highest
	}

	for _, bucket := range Buckets {
		if stats, ok := typeStats.TimeOfDay[bucket]; ok && stats.Efficiency > highest {
			best = bucket
			highest = stats.Efficiency
		}
	}

	return best, highest
}

// hourRanges narrows the default ranges to the work hours of the user
func (e *Engine) hourRanges(preferences *users.Preferences) map[TimeOfDay]HourRange {
	ranges := make(map[TimeOfDay]HourRange, len(e.defaults.HourRanges))
	for timeOfDay, hourRange := range e.defaults.HourRanges {
		ranges[timeOfDay] = hourRange
	}

	if preferences == nil || preferences.WorkHours == nil {
		return ranges
	}

	workHours := preferences.WorkHours
	for timeOfDay, hourRange := range ranges {
		if hourRange.Start < workHours.StartHour {
			hourRange.Start = workHours.StartHour
		}
		if hourRange.End > workHours.EndHour {
			hourRange.End = workHours.EndHour
		}
		ranges[timeOfDay] = hourRange
	}

	return ranges
}

func (e *Engine) bestDayOfWeek(profile *Profile) time.Weekday {
	best := e.defaults.DayOfWeek
	highest := 0.0

	for day := 0; day < 7; day++ {
		if stats, ok := profile.DayOfWeek[day]; ok && stats.Efficiency > highest {
			best = time.Weekday(day)
			highest = stats.Efficiency
		}
	}

	return best
}
