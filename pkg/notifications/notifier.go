package notifications

import (
	"context"
	"fmt"

	"github.com/taskistation/todo-backend/pkg/logger"
	"github.com/taskistation/todo-backend/pkg/todos"
	"github.com/taskistation/todo-backend/pkg/users"
)

// Notification is a message shown to the user
type Notification struct {
	Title   string            `json:"title"`
	Message string            `json:"message"`
	Data    map[string]string `json:"data,omitempty"`
}

// Result tells to how many devices a notification was delivered
type Result struct {
	Delivered int `json:"delivered"`
	Failed    int `json:"failed"`
}

// Notifier delivers notifications to the devices of a user
type Notifier interface {
	SendNotification(ctx context.Context, user *users.User, notification Notification) (Result, error)
}

// TaskReminder reminds the user of a todo that is due
func TaskReminder(todo *todos.Todo) Notification {
	return Notification{
		Title:   "Task Reminder",
		Message: fmt.Sprintf("Task \"%s\" is due today!", todo.Title),
		Data: map[string]string{
			"todoId": todo.ID.Hex(),
		},
	}
}

// TaskUpdate informs the user about a change
func TaskUpdate(message string) Notification {
	return Notification{
		Title:   "Task Update",
		Message: message,
	}
}

// TestNotification is sent to check the notification setup of a user
func TestNotification() Notification {
	return Notification{
		Title:   "Test Notification",
		Message: "This is a test notification from your Todo app!",
	}
}

// LogNotifier only logs notifications, it is used when no push service is configured
type LogNotifier struct {
	Logger logger.Interface
}

// SendNotification logs the notification
func (n *LogNotifier) SendNotification(_ context.Context, user *users.User, notification Notification) (Result, error) {
	n.Logger.Info(fmt.Sprintf("notification for user %s: %s: %s", user.ID.Hex(), notification.Title, notification.Message))
	return Result{Delivered: 1}, nil
}
