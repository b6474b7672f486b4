package todos

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestTodo_ApplyDefaults(t *testing.T) {
	todo := Todo{Title: "Write report", IsRecurring: true}
	todo.ApplyDefaults()

	if todo.Status != StatusTodo {
		t.Errorf("Status = %s", todo.Status)
	}
	if todo.Priority != PriorityMedium {
		t.Errorf("Priority = %s", todo.Priority)
	}
	if todo.Category != DefaultCategory || todo.TaskType != DefaultTaskType {
		t.Errorf("Category = %s, TaskType = %s", todo.Category, todo.TaskType)
	}
	if todo.EstimatedDuration != DefaultEstimatedDuration {
		t.Errorf("EstimatedDuration = %d", todo.EstimatedDuration)
	}
	if todo.OptimalTimeOfDay != DefaultOptimalTimeOfDay {
		t.Errorf("OptimalTimeOfDay = %s", todo.OptimalTimeOfDay)
	}
	if todo.RecurringPattern != RecurringDaily {
		t.Errorf("RecurringPattern = %s", todo.RecurringPattern)
	}
	if todo.Tags == nil || todo.Subtasks == nil || todo.StatusHistory == nil {
		t.Error("slices should be initialized")
	}

	custom := Todo{Priority: PriorityHigh, EstimatedDuration: 90, Category: "work"}
	custom.ApplyDefaults()
	if custom.Priority != PriorityHigh || custom.EstimatedDuration != 90 || custom.Category != "work" {
		t.Errorf("set values were overwritten: %+v", custom)
	}
}

func TestTodo_TransitionTo(t *testing.T) {
	at := time.Date(2021, 6, 1, 10, 0, 0, 0, time.UTC)
	later := at.Add(time.Hour)

	todo := Todo{}
	todo.ApplyDefaults()

	if todo.TransitionTo(StatusTodo, "", at) {
		t.Error("transition to the current status should not complete")
	}
	if len(todo.StatusHistory) != 0 {
		t.Fatal("transition to the current status should not be recorded")
	}

	if todo.TransitionTo(StatusInProgress, "started", at) {
		t.Error("in_progress is not a completion")
	}

	if !todo.TransitionTo(StatusCompleted, "", later) {
		t.Error("expected completion")
	}
	if todo.CompletedAt == nil || !todo.CompletedAt.Equal(later) {
		t.Errorf("CompletedAt = %v", todo.CompletedAt)
	}

	if todo.TransitionTo(StatusCompleted, "", later.Add(time.Hour)) {
		t.Error("completing twice should not report a completion")
	}

	todo.TransitionTo(StatusTodo, "reopened", later)
	if todo.CompletedAt != nil {
		t.Error("CompletedAt should be cleared when reopening")
	}

	want := []StatusChange{
		{FromStatus: StatusTodo, ToStatus: StatusInProgress, ChangedAt: at, Comment: "started"},
		{FromStatus: StatusInProgress, ToStatus: StatusCompleted, ChangedAt: later},
		{FromStatus: StatusCompleted, ToStatus: StatusTodo, ChangedAt: later, Comment: "reopened"},
	}
	if len(todo.StatusHistory) != len(want) {
		t.Fatalf("history = %v", todo.StatusHistory)
	}
	for i := range want {
		if todo.StatusHistory[i] != want[i] {
			t.Errorf("history[%d] = %v, want %v", i, todo.StatusHistory[i], want[i])
		}
	}
}

func TestTodo_IsOwnedBy(t *testing.T) {
	userID := primitive.NewObjectID()
	todo := Todo{UserID: userID}

	if !todo.IsOwnedBy(userID.Hex()) {
		t.Error("owner not recognized")
	}
	if todo.IsOwnedBy(primitive.NewObjectID().Hex()) {
		t.Error("other user recognized as owner")
	}
}
