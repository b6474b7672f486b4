package scheduler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/taskistation/todo-backend/pkg/auth"
	"github.com/taskistation/todo-backend/pkg/communication"
	"github.com/taskistation/todo-backend/pkg/logger"
	"github.com/taskistation/todo-backend/pkg/todos"
	"github.com/taskistation/todo-backend/pkg/users"
)

// ErrAlreadyRecorded is returned when a todo already has a productivity sample
var ErrAlreadyRecorded = errors.New("productivity of this todo was already recorded")

// Handler handles all scheduling related API calls
type Handler struct {
	TodoService     *todos.Service
	UserRepository  users.UserRepositoryInterface
	Engine          *Engine
	Recorder        *Recorder
	Logger          logger.Interface
	ResponseManager *communication.ResponseManager
}

type scheduleBody struct {
	ScheduledTime *time.Time `json:"scheduledTime"`
}

// StartTask marks a todo as started now to measure its actual duration
func (handler *Handler) StartTask(writer http.ResponseWriter, request *http.Request) {
	todo, err := handler.TodoService.Start(request.Context(), auth.UserID(request), mux.Vars(request)["todoID"])
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError, "Could not start task", err)
		return
	}

	handler.ResponseManager.Respond(writer, todo)
}

// ScheduleTask sets the time a todo is planned for
func (handler *Handler) ScheduleTask(writer http.ResponseWriter, request *http.Request) {
	body := scheduleBody{}

	err := json.NewDecoder(request.Body).Decode(&body)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Wrong format", err)
		return
	}

	if body.ScheduledTime == nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Scheduled time is required", nil)
		return
	}

	todo, err := handler.TodoService.Schedule(request.Context(), auth.UserID(request), mux.Vars(request)["todoID"],
		*body.ScheduledTime)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError, "Could not schedule task", err)
		return
	}

	handler.ResponseManager.Respond(writer, todo)
}

// Recommendations returns when the user should work on a todo
func (handler *Handler) Recommendations(writer http.ResponseWriter, request *http.Request) {
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

	recommendation, err := handler.Engine.Recommend(request.Context(), RequestFor(todo, user.Location()), userID)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Could not compute recommendation", err)
		return
	}

	handler.ResponseManager.Respond(writer, recommendation)
}

// RecordProductivity records a sample for a completed todo that has none yet
func (handler *Handler) RecordProductivity(writer http.ResponseWriter, request *http.Request) {
	userID := auth.UserID(request)

	user, err := handler.UserRepository.FindByID(request.Context(), userID)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError, "Could not find user", err)
		return
	}

	var sample *ProductivitySample

	_, err = handler.TodoService.Modify(request.Context(), userID, mux.Vars(request)["todoID"], func(todo *todos.Todo) error {
		if todo.ActualDuration != nil {
			return ErrAlreadyRecorded
		}

		var err error
		sample, err = handler.Recorder.Record(request.Context(), todo, user)
		if err != nil {
			return err
		}

		if sample != nil {
			actualDuration := sample.ActualDuration
			todo.ActualDuration = &actualDuration
		}

		return nil
	})
	if errors.Is(err, ErrAlreadyRecorded) {
		handler.ResponseManager.RespondWithError(writer, http.StatusConflict, err.Error(), nil)
		return
	}
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Could not record productivity", err)
		return
	}

	if sample == nil {
		handler.ResponseManager.RespondWithNoContent(writer)
		return
	}

	handler.ResponseManager.Respond(writer, sample)
}
