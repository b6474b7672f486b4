package scheduler

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/pkg/errors"
	"github.com/taskistation/todo-backend/pkg/logger"
	"github.com/taskistation/todo-backend/pkg/todos"
	"github.com/taskistation/todo-backend/pkg/users"
)

var now = time.Now

// Recorder turns completed todos into productivity samples
type Recorder struct {
	samples  SampleRepositoryInterface
	users    users.UserRepositoryInterface
	analyzer *Analyzer
	defaults Defaults
	logger   logger.Interface
}

// NewRecorder builds a new Recorder. The profile cache of analyzer is invalidated on every recorded sample.
func NewRecorder(samples SampleRepositoryInterface, userRepository users.UserRepositoryInterface, analyzer *Analyzer,
	defaults Defaults, logger logger.Interface) *Recorder {
	return &Recorder{
		samples:  samples,
		users:    userRepository,
		analyzer: analyzer,
		defaults: defaults,
		logger:   logger,
	}
}

// Record derives a sample from the timing of a completed todo and stores it. Without a user the
// server time zone is used. A work session that already has a sample yields the stored one, so a
// completion retried after a failed save does not count twice.
// Todos with missing or implausible timing produce no sample and no error.
func (r *Recorder) Record(ctx context.Context, todo *todos.Todo, user *users.User) (*ProductivitySample, error) {
	if todo.StartedAt == nil || todo.CompletedAt == nil {
		r.logger.Debug(fmt.Sprintf("todo %s has no timing data for productivity tracking", todo.ID.Hex()))
		return nil, nil
	}

	actualDuration := int(math.Round(todo.CompletedAt.Sub(*todo.StartedAt).Minutes()))
	if actualDuration <= 0 || actualDuration > r.defaults.MaxActualDuration {
		r.logger.Debug(fmt.Sprintf("invalid duration of %d minutes for todo %s", actualDuration, todo.ID.Hex()))
		return nil, nil
	}

	estimatedDuration := todo.EstimatedDuration
	if estimatedDuration <= 0 {
		estimatedDuration = r.defaults.EstimatedDuration
	}

	taskType := todo.TaskType
	if taskType == "" {
		taskType = r.defaults.TaskType
	}

	category := todo.Category
	if category == "" {
		category = r.defaults.Category
	}

	userID := todo.UserID
	if user != nil {
		userID = user.ID
	}

	startedAt := todo.StartedAt.In(user.Location())

	sample := ProductivitySample{
		UserID:            userID,
		TodoID:            todo.ID,
		TimeOfDay:         TimeOfDayOf(startedAt.Hour()),
		EstimatedDuration: estimatedDuration,
		ActualDuration:    actualDuration,
		Efficiency:        Efficiency(actualDuration, estimatedDuration),
		TaskType:          taskType,
		Category:          category,
		DayOfWeek:         int(startedAt.Weekday()),
		Date:              *todo.StartedAt,
	}

	err := r.samples.Add(ctx, &sample)
	if errors.Is(err, ErrSampleExists) {
		r.logger.Debug(fmt.Sprintf("work session of todo %s was already recorded", todo.ID.Hex()))
		return r.samples.FindByTodo(ctx, todo.ID.Hex(), *todo.StartedAt)
	}
	if err != nil {
		return nil, err
	}

	if r.analyzer != nil {
		err = r.analyzer.Invalidate(ctx, userID.Hex())
		if err != nil {
			r.logger.Error(fmt.Sprintf("could not invalidate profile of user %s", userID.Hex()), err)
		}
	}

	return &sample, nil
}

// OnCompleted records a sample for a todo that has just been completed and stores the measured duration on it
func (r *Recorder) OnCompleted(ctx context.Context, todo *todos.Todo) error {
	if todo.StartedAt == nil {
		return nil
	}

	user, err := r.users.FindByID(ctx, todo.UserID.Hex())
	if err != nil {
		return err
	}

	sample, err := r.Record(ctx, todo, user)
	if err != nil {
		return err
	}

	if sample != nil {
		actualDuration := sample.ActualDuration
		todo.ActualDuration = &actualDuration
	}

	return nil
}
