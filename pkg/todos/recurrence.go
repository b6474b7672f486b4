package todos

import (
	"time"
)

// NextDueDate calculates the due date following current for the given pattern.
// A todo without a due date is due tomorrow.
func NextDueDate(current *time.Time, pattern RecurringPattern, now time.Time) time.Time {
	if current == nil {
		return now.AddDate(0, 0, 1)
	}

	switch pattern {
	case RecurringWeekly:
		return current.AddDate(0, 0, 7)
	case RecurringMonthly:
		return current.AddDate(0, 1, 0)
	default:
		return current.AddDate(0, 0, 1)
	}
}

// NextRecurrence builds the next instance of a completed recurring todo, nil if the series has ended
func NextRecurrence(completed *Todo, now time.Time) *Todo {
	if !completed.IsRecurring {
		return nil
	}

	if completed.RecurringEndDate != nil && now.After(*completed.RecurringEndDate) {
		return nil
	}

	nextDueDate := NextDueDate(completed.DueDate, completed.RecurringPattern, now)

	if completed.RecurringEndDate != nil && nextDueDate.After(*completed.RecurringEndDate) {
		return nil
	}

	parentID := completed.ID
	if completed.RecurringParentID != nil {
		parentID = *completed.RecurringParentID
	}

	subtasks := make([]Subtask, 0, len(completed.Subtasks))
	for _, subtask := range completed.Subtasks {
		subtasks = append(subtasks, Subtask{Title: subtask.Title})
	}

	tags := append([]string{}, completed.Tags...)

	next := &Todo{
		UserID:            completed.UserID,
		Title:             completed.Title,
		Description:       completed.Description,
		Status:            StatusTodo,
		Priority:          completed.Priority,
		DueDate:           &nextDueDate,
		Category:          completed.Category,
		Tags:              tags,
		IsRecurring:       completed.IsRecurring,
		RecurringPattern:  completed.RecurringPattern,
		RecurringEndDate:  completed.RecurringEndDate,
		RecurringParentID: &parentID,
		EstimatedDuration: completed.EstimatedDuration,
		OptimalTimeOfDay:  completed.OptimalTimeOfDay,
		TaskType:          completed.TaskType,
		Subtasks:          subtasks,
	}
	next.ApplyDefaults()

	return next
}
