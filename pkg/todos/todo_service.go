package todos

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/taskistation/todo-backend/pkg/communication"
	"github.com/taskistation/todo-backend/pkg/locking"
	"github.com/taskistation/todo-backend/pkg/logger"
)

var now = time.Now

// CompletionObserver gets notified when a todo has just been completed, before it is persisted.
// Changes an observer makes to the todo are persisted with it.
type CompletionObserver interface {
	OnCompleted(ctx context.Context, todo *Todo) error
}

// Change is a partial update of a todo, nil fields stay untouched
type Change struct {
	Title             *string           `json:"title" validate:"omitempty,min=1"`
	Description       *string           `json:"description"`
	Status            *Status           `json:"status" validate:"omitempty,oneof=todo in_progress completed"`
	Comment           string            `json:"comment"`
	Priority          *Priority         `json:"priority" validate:"omitempty,oneof=low medium high"`
	DueDate           *time.Time        `json:"dueDate"`
	Category          *string           `json:"category"`
	Tags              *[]string         `json:"tags"`
	IsRecurring       *bool             `json:"isRecurring"`
	RecurringPattern  *RecurringPattern `json:"recurringPattern" validate:"omitempty,oneof=daily weekly monthly"`
	RecurringEndDate  *time.Time        `json:"recurringEndDate"`
	EstimatedDuration *int              `json:"estimatedDuration" validate:"omitempty,min=0"`
	OptimalTimeOfDay  *string           `json:"optimalTimeOfDay" validate:"omitempty,oneof=morning afternoon evening any"`
	ScheduledTime     *time.Time        `json:"scheduledTime"`
	StartedAt         *time.Time        `json:"startedAt"`
	TaskType          *string           `json:"taskType"`
	Subtasks          *[]Subtask        `json:"subtasks" validate:"omitempty,dive"`
}

func (c *Change) apply(t *Todo) {
	if c.Title != nil {
		t.Title = *c.Title
	}
	if c.Description != nil {
		t.Description = *c.Description
	}
	if c.Priority != nil {
		t.Priority = *c.Priority
	}
	if c.DueDate != nil {
		t.DueDate = c.DueDate
	}
	if c.Category != nil {
		t.Category = *c.Category
	}
	if c.Tags != nil {
		t.Tags = *c.Tags
	}
	if c.IsRecurring != nil {
		t.IsRecurring = *c.IsRecurring
	}
	if c.RecurringPattern != nil {
		t.RecurringPattern = *c.RecurringPattern
	}
	if c.RecurringEndDate != nil {
		t.RecurringEndDate = c.RecurringEndDate
	}
	if c.EstimatedDuration != nil {
		t.EstimatedDuration = *c.EstimatedDuration
	}
	if c.OptimalTimeOfDay != nil {
		t.OptimalTimeOfDay = *c.OptimalTimeOfDay
	}
	if c.ScheduledTime != nil {
		t.ScheduledTime = c.ScheduledTime
	}
	if c.StartedAt != nil {
		t.StartedAt = c.StartedAt
	}
	if c.TaskType != nil {
		t.TaskType = *c.TaskType
	}
	if c.Subtasks != nil {
		t.Subtasks = *c.Subtasks
	}
}

// Service contains all todo operations that span more than one repository call
type Service struct {
	repository TodoRepositoryInterface
	locker     locking.LockerInterface
	logger     logger.Interface
	observers  []CompletionObserver
}

// NewService builds a new Service
func NewService(repository TodoRepositoryInterface, locker locking.LockerInterface, logger logger.Interface) *Service {
	return &Service{
		repository: repository,
		locker:     locker,
		logger:     logger,
	}
}

// Observe registers an observer that is called on every completion
func (s *Service) Observe(observer CompletionObserver) {
	s.observers = append(s.observers, observer)
}

// Create validates and persists a new todo of the user
func (s *Service) Create(ctx context.Context, todo *Todo) error {
	todo.ApplyDefaults()

	err := validator.New().Struct(todo)
	if err != nil {
		return err
	}

	return s.repository.Add(ctx, todo)
}

// Get finds a todo and checks that userID owns it
func (s *Service) Get(ctx context.Context, userID string, todoID string) (*Todo, error) {
	todo, err := s.repository.FindByID(ctx, todoID)
	if err != nil {
		return nil, err
	}

	if !todo.IsOwnedBy(userID) {
		return nil, errors.Wrap(communication.ErrForbidden, "todo "+todoID)
	}

	return todo, nil
}

// Update applies a change to a todo of the user. Completing the todo notifies the observers
// and creates the next recurrence.
func (s *Service) Update(ctx context.Context, userID string, todoID string, change Change) (*Todo, error) {
	err := validator.New().Struct(change)
	if err != nil {
		return nil, err
	}

	justCompleted := false

	todo, err := s.Modify(ctx, userID, todoID, func(todo *Todo) error {
		change.apply(todo)
		todo.ApplyDefaults()

		if change.Status != nil {
			justCompleted = todo.TransitionTo(*change.Status, change.Comment, now())
		}

		if !justCompleted {
			return nil
		}

		for _, observer := range s.observers {
			err := observer.OnCompleted(ctx, todo)
			if err != nil {
				return errors.Wrap(err, "completion of todo "+todoID)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if justCompleted {
		s.createNextRecurrence(ctx, todo)
	}

	return todo, nil
}

// Modify loads a todo of the user, lets modify change it and persists the result. Modifications of
// one todo are serialized, so completing a todo twice at the same time notifies the observers only once.
// Nothing is persisted if modify fails.
func (s *Service) Modify(ctx context.Context, userID string, todoID string, modify func(todo *Todo) error) (*Todo, error) {
	lock, err := s.locker.Acquire(ctx, locking.TodoKey(todoID), time.Second*30)
	if err != nil {
		return nil, errors.Wrap(err, "error acquiring lock")
	}

	defer func(lock locking.LockInterface, ctx context.Context) {
		err := lock.Release(ctx)
		if err != nil {
			s.logger.Error("error releasing lock", errors.Wrap(err, "error releasing lock"))
		}
	}(lock, ctx)

	todo, err := s.Get(ctx, userID, todoID)
	if err != nil {
		return nil, err
	}

	err = modify(todo)
	if err != nil {
		return nil, err
	}

	err = s.repository.Update(ctx, todo)
	if err != nil {
		return nil, err
	}

	return todo, nil
}

// UpdateStatus changes only the status of a todo
func (s *Service) UpdateStatus(ctx context.Context, userID string, todoID string, status Status, comment string) (*Todo, error) {
	return s.Update(ctx, userID, todoID, Change{Status: &status, Comment: comment})
}

// Start marks a todo as being worked on from now on
func (s *Service) Start(ctx context.Context, userID string, todoID string) (*Todo, error) {
	startedAt := now()
	status := StatusInProgress
	return s.Update(ctx, userID, todoID, Change{StartedAt: &startedAt, Status: &status})
}

// Schedule sets the time the user wants to work on a todo
func (s *Service) Schedule(ctx context.Context, userID string, todoID string, scheduledTime time.Time) (*Todo, error) {
	return s.Update(ctx, userID, todoID, Change{ScheduledTime: &scheduledTime})
}

// Delete removes a todo of the user
func (s *Service) Delete(ctx context.Context, userID string, todoID string) error {
	_, err := s.Get(ctx, userID, todoID)
	if err != nil {
		return err
	}

	return s.repository.Delete(ctx, todoID, userID)
}

func (s *Service) createNextRecurrence(ctx context.Context, completed *Todo) {
	next := NextRecurrence(completed, now())
	if next == nil {
		return
	}

	err := s.repository.Add(ctx, next)
	if err != nil {
		s.logger.Error(fmt.Sprintf("could not create next recurrence of todo %s", completed.ID.Hex()), err)
		return
	}

	s.logger.Debug(fmt.Sprintf("created recurrence %s of todo %s", next.ID.Hex(), completed.ID.Hex()))
}
