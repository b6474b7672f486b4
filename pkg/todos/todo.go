package todos

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Status is the progress state of a todo
type Status string

const (
	// StatusTodo is the initial status
	StatusTodo Status = "todo"
	// StatusInProgress is set once work on a todo was started
	StatusInProgress Status = "in_progress"
	// StatusCompleted marks a finished todo
	StatusCompleted Status = "completed"
)

// Priority of a todo
type Priority string

const (
	// PriorityLow low priority
	PriorityLow Priority = "low"
	// PriorityMedium is the default priority
	PriorityMedium Priority = "medium"
	// PriorityHigh high priority
	PriorityHigh Priority = "high"
)

// RecurringPattern defines how often a recurring todo repeats
type RecurringPattern string

const (
	// RecurringDaily repeats every day
	RecurringDaily RecurringPattern = "daily"
	// RecurringWeekly repeats every seven days
	RecurringWeekly RecurringPattern = "weekly"
	// RecurringMonthly repeats on the same day of the next month
	RecurringMonthly RecurringPattern = "monthly"
)

const (
	// DefaultCategory is used when a todo has no category
	DefaultCategory = "general"
	// DefaultTaskType is used when a todo has no task type
	DefaultTaskType = "general"
	// DefaultEstimatedDuration in minutes
	DefaultEstimatedDuration = 30
	// DefaultOptimalTimeOfDay means no preferred time of day
	DefaultOptimalTimeOfDay = "any"
)

// Todo is the model for a todo
type Todo struct {
	ID                primitive.ObjectID   `json:"id" bson:"_id"`
	UserID            primitive.ObjectID   `json:"userId" bson:"userId"`
	Title             string               `json:"title" bson:"title" validate:"required"`
	Description       string               `json:"description" bson:"description"`
	Status            Status               `json:"status" bson:"status" validate:"oneof=todo in_progress completed"`
	Priority          Priority             `json:"priority" bson:"priority" validate:"oneof=low medium high"`
	DueDate           *time.Time           `json:"dueDate" bson:"dueDate"`
	CompletedAt       *time.Time           `json:"completedAt" bson:"completedAt"`
	Category          string               `json:"category" bson:"category"`
	Tags              []string             `json:"tags" bson:"tags"`
	IsRecurring       bool                 `json:"isRecurring" bson:"isRecurring"`
	RecurringPattern  RecurringPattern     `json:"recurringPattern" bson:"recurringPattern" validate:"omitempty,oneof=daily weekly monthly"`
	RecurringEndDate  *time.Time           `json:"recurringEndDate" bson:"recurringEndDate"`
	RecurringParentID *primitive.ObjectID  `json:"recurringParentId,omitempty" bson:"recurringParentId,omitempty"`
	EstimatedDuration int                  `json:"estimatedDuration" bson:"estimatedDuration" validate:"min=0"`
	OptimalTimeOfDay  string               `json:"optimalTimeOfDay" bson:"optimalTimeOfDay" validate:"omitempty,oneof=morning afternoon evening any"`
	ScheduledTime     *time.Time           `json:"scheduledTime" bson:"scheduledTime"`
	ActualDuration    *int                 `json:"actualDuration" bson:"actualDuration"`
	StartedAt         *time.Time           `json:"startedAt" bson:"startedAt"`
	TaskType          string               `json:"taskType" bson:"taskType"`
	Dependencies      []primitive.ObjectID `json:"dependencies" bson:"dependencies"`
	Subtasks          []Subtask            `json:"subtasks" bson:"subtasks" validate:"dive"`
	ParentTodo        *primitive.ObjectID  `json:"parentTodo" bson:"parentTodo"`
	StatusHistory     []StatusChange       `json:"statusHistory" bson:"statusHistory"`
	CreatedAt         time.Time            `json:"createdAt" bson:"createdAt"`
	LastModifiedAt    time.Time            `json:"lastModifiedAt" bson:"lastModifiedAt"`
}

// Subtask is a checklist item of a todo
type Subtask struct {
	Title       string     `json:"title" bson:"title" validate:"required"`
	Completed   bool       `json:"completed" bson:"completed"`
	CompletedAt *time.Time `json:"completedAt" bson:"completedAt"`
}

// StatusChange is one entry of the status history of a todo
type StatusChange struct {
	FromStatus Status    `json:"fromStatus" bson:"fromStatus"`
	ToStatus   Status    `json:"toStatus" bson:"toStatus"`
	ChangedAt  time.Time `json:"changedAt" bson:"changedAt"`
	Comment    string    `json:"comment" bson:"comment"`
}

// ApplyDefaults fills every unset field with its default value
func (t *Todo) ApplyDefaults() {
	if t.Status == "" {
		t.Status = StatusTodo
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.Category == "" {
		t.Category = DefaultCategory
	}
	if t.TaskType == "" {
		t.TaskType = DefaultTaskType
	}
	if t.EstimatedDuration == 0 {
		t.EstimatedDuration = DefaultEstimatedDuration
	}
	if t.OptimalTimeOfDay == "" {
		t.OptimalTimeOfDay = DefaultOptimalTimeOfDay
	}
	if t.IsRecurring && t.RecurringPattern == "" {
		t.RecurringPattern = RecurringDaily
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	if t.Subtasks == nil {
		t.Subtasks = []Subtask{}
	}
	if t.StatusHistory == nil {
		t.StatusHistory = []StatusChange{}
	}
}

// TransitionTo changes the status, records the change in the history and maintains CompletedAt.
// It reports whether the todo has just been completed.
func (t *Todo) TransitionTo(status Status, comment string, at time.Time) bool {
	if status == "" || status == t.Status {
		return false
	}

	t.StatusHistory = append(t.StatusHistory, StatusChange{
		FromStatus: t.Status,
		ToStatus:   status,
		ChangedAt:  at,
		Comment:    comment,
	})
	t.Status = status

	if status != StatusCompleted {
		t.CompletedAt = nil
		return false
	}

	if t.CompletedAt == nil {
		completedAt := at
		t.CompletedAt = &completedAt
	}

	return true
}

// IsOwnedBy checks if the given user created the todo
func (t *Todo) IsOwnedBy(userID string) bool {
	return t.UserID.Hex() == userID
}
