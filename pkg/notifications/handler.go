package notifications

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/taskistation/todo-backend/pkg/auth"
	"github.com/taskistation/todo-backend/pkg/communication"
	"github.com/taskistation/todo-backend/pkg/date"
	"github.com/taskistation/todo-backend/pkg/logger"
	"github.com/taskistation/todo-backend/pkg/todos"
	"github.com/taskistation/todo-backend/pkg/users"
)

// MaxDueTaskReminders limits how many reminders one due tasks request sends
const MaxDueTaskReminders = 50

var now = time.Now

// Handler handles all notification related API calls
type Handler struct {
	Notifier        Notifier
	TodoService     *todos.Service
	TodoRepository  todos.TodoRepositoryInterface
	UserRepository  users.UserRepositoryInterface
	Logger          logger.Interface
	ResponseManager *communication.ResponseManager
}

type dueTasksResponse struct {
	Reminded int    `json:"reminded"`
	Result   Result `json:"result"`
}

// SendTest sends a test notification to all devices of the user
func (handler *Handler) SendTest(writer http.ResponseWriter, request *http.Request) {
	user, err := handler.UserRepository.FindByID(request.Context(), auth.UserID(request))
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError, "Could not find user", err)
		return
	}

	result, err := handler.Notifier.SendNotification(request.Context(), user, TestNotification())
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Could not send notification", err)
		return
	}

	handler.ResponseManager.Respond(writer, result)
}

// SendReminder reminds the user of one todo
func (handler *Handler) SendReminder(writer http.ResponseWriter, request *http.Request) {
	userID := auth.UserID(request)

	todo, err := handler.TodoService.Get(request.Context(), userID, mux.Vars(request)["todoID"])
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError, "Could not find task", err)
		return
	}

	user, err := handler.UserRepository.FindByID(request.Context(), userID)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError, "Could not find user", err)
		return
	}

	result, err := handler.Notifier.SendNotification(request.Context(), user, TaskReminder(todo))
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Could not send notification", err)
		return
	}

	handler.ResponseManager.Respond(writer, result)
}

// SendDueTasks reminds the user of every open todo due today in the user's time zone
func (handler *Handler) SendDueTasks(writer http.ResponseWriter, request *http.Request) {
	userID := auth.UserID(request)

	user, err := handler.UserRepository.FindByID(request.Context(), userID)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError, "Could not find user", err)
		return
	}

	today := date.StartOfDay(now().In(user.Location()))
	query := todos.Query{
		Filters: []todos.Filter{
			{Field: "status", Operator: "$ne", Value: todos.StatusCompleted},
			{Field: "dueDate", Operator: "$gte", Value: today},
			{Field: "dueDate", Operator: "$lt", Value: today.AddDate(0, 0, 1)},
		},
		SortBy:   "dueDate",
		Order:    1,
		Page:     0,
		PageSize: MaxDueTaskReminders,
	}

	due, _, err := handler.TodoRepository.FindAll(request.Context(), userID, query)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError, "Could not find tasks", err)
		return
	}

	response := dueTasksResponse{}
	for i := range due {
		result, err := handler.Notifier.SendNotification(request.Context(), user, TaskReminder(&due[i]))
		if err != nil {
			handler.Logger.Error("could not send reminder for todo "+due[i].ID.Hex(), err)
			continue
		}

		response.Reminded++
		response.Result.Delivered += result.Delivered
		response.Result.Failed += result.Failed
	}

	handler.ResponseManager.Respond(writer, response)
}
