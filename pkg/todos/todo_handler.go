package todos

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/taskistation/todo-backend/pkg/auth"
	"github.com/taskistation/todo-backend/pkg/communication"
	"github.com/taskistation/todo-backend/pkg/logger"
	"github.com/taskistation/todo-backend/pkg/parsing"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// DefaultPageSize is used when no limit is requested
	DefaultPageSize = 10
	// MaxPageSize is the largest page a client may request
	MaxPageSize = 25
)

// Handler handles all todo related API calls
type Handler struct {
	Service         *Service
	TodoRepository  TodoRepositoryInterface
	TaskParser      parsing.TaskParser
	Logger          logger.Interface
	ResponseManager *communication.ResponseManager
}

type statusUpdate struct {
	Status  Status `json:"status" validate:"required,oneof=todo in_progress completed"`
	Comment string `json:"comment"`
}

// TodoAdd is the route for adding a todo
func (handler *Handler) TodoAdd(writer http.ResponseWriter, request *http.Request) {
	todo := Todo{}

	err := json.NewDecoder(request.Body).Decode(&todo)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Wrong format", err)
		return
	}

	userID, err := primitive.ObjectIDFromHex(auth.UserID(request))
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"UserID malformed", err)
		return
	}

	todo.UserID = userID
	todo.StatusHistory = nil
	todo.CompletedAt = nil
	todo.ActualDuration = nil

	err = handler.Service.Create(request.Context(), &todo)
	if err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, validationErrors[0].Error(), err)
			return
		}

		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Persisting todo in database did not work", err)
		return
	}

	handler.ResponseManager.RespondWithStatus(writer, &todo, http.StatusCreated)
}

// TodoList is the route for listing the todos of a user
func (handler *Handler) TodoList(writer http.ResponseWriter, request *http.Request) {
	userID := auth.UserID(request)
	values := request.URL.Query()

	var page = 1
	var pageSize = DefaultPageSize
	var err error

	if queryPage := values.Get("page"); queryPage != "" {
		page, err = strconv.Atoi(queryPage)
		if err != nil || page < 1 {
			handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
				"Bad query parameter page", err)
			return
		}
	}

	if queryLimit := values.Get("limit"); queryLimit != "" {
		pageSize, err = strconv.Atoi(queryLimit)
		if err != nil || pageSize < 1 {
			handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
				"Bad query parameter limit", err)
			return
		}

		if pageSize > MaxPageSize {
			handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
				"Page size can't be more than 25", nil)
			return
		}
	}

	var filters []Filter

	for _, field := range []string{"status", "priority", "category"} {
		if value := values.Get(field); value != "" {
			filters = append(filters, Filter{Field: field, Value: value})
		}
	}

	dueDateFrom := values.Get("dueDateFrom")
	dueDateTo := values.Get("dueDateTo")

	if dueDateFrom == "none" {
		filters = append(filters, Filter{Field: "dueDate", Value: nil})
	} else {
		if dueDateFrom != "" {
			from, err := parseDay(dueDateFrom)
			if err != nil {
				handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Wrong date format in query string", err)
				return
			}
			filters = append(filters, Filter{Field: "dueDate", Operator: "$gte", Value: from})
		}

		if dueDateTo != "" {
			to, err := parseDay(dueDateTo)
			if err != nil {
				handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Wrong date format in query string", err)
				return
			}
			filters = append(filters, Filter{Field: "dueDate", Operator: "$lte", Value: to.AddDate(0, 0, 1).Add(-time.Millisecond)})
		}
	}

	query := Query{
		Filters:  filters,
		Search:   values.Get("search"),
		Page:     page - 1,
		PageSize: pageSize,
	}

	if sortBy := values.Get("sortBy"); sortBy != "" {
		if !sortableFields[sortBy] {
			handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
				"Can't sort by "+sortBy, nil)
			return
		}

		query.SortBy = sortBy
		query.Order = 1
		if values.Get("order") == "desc" {
			query.Order = -1
		}
	}

	todos, count, err := handler.TodoRepository.FindAll(request.Context(), userID, query)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError, "Problem in query", err)
		return
	}

	pages := float64(count) / float64(pageSize)

	var response = map[string]interface{}{
		"results": todos,
		"pagination": map[string]interface{}{
			"resultCount": count,
			"pageSize":    pageSize,
			"pageIndex":   page,
			"pages":       int(math.Ceil(pages)),
		},
	}

	handler.ResponseManager.Respond(writer, response)
}

var sortableFields = map[string]bool{
	"createdAt":      true,
	"lastModifiedAt": true,
	"dueDate":        true,
	"priority":       true,
	"title":          true,
	"status":         true,
	"scheduledTime":  true,
}

// parseDay accepts a date or a RFC3339 timestamp and returns the start of that day
func parseDay(value string) (time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", value, time.Local)
	if err == nil {
		return day, nil
	}

	timestamp, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, err
	}

	return time.Date(timestamp.Year(), timestamp.Month(), timestamp.Day(), 0, 0, 0, 0, timestamp.Location()), nil
}

// TodoGet gets a single todo
func (handler *Handler) TodoGet(writer http.ResponseWriter, request *http.Request) {
	todo, err := handler.Service.Get(request.Context(), auth.UserID(request), mux.Vars(request)["todoID"])
	if err != nil {
		handler.respondWithTodoError(writer, err)
		return
	}

	handler.ResponseManager.Respond(writer, todo)
}

// TodoUpdate is the route for changing a todo
func (handler *Handler) TodoUpdate(writer http.ResponseWriter, request *http.Request) {
	change := Change{}

	err := json.NewDecoder(request.Body).Decode(&change)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Wrong format", err)
		return
	}

	todo, err := handler.Service.Update(request.Context(), auth.UserID(request), mux.Vars(request)["todoID"], change)
	if err != nil {
		handler.respondWithTodoError(writer, err)
		return
	}

	handler.ResponseManager.Respond(writer, todo)
}

// TodoStatusUpdate is the route for moving a todo to another status
func (handler *Handler) TodoStatusUpdate(writer http.ResponseWriter, request *http.Request) {
	body := statusUpdate{}

	err := json.NewDecoder(request.Body).Decode(&body)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Wrong format", err)
		return
	}

	err = validator.New().Struct(body)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Invalid status", err)
		return
	}

	todo, err := handler.Service.UpdateStatus(request.Context(), auth.UserID(request), mux.Vars(request)["todoID"],
		body.Status, body.Comment)
	if err != nil {
		handler.respondWithTodoError(writer, err)
		return
	}

	handler.ResponseManager.Respond(writer, todo)
}

// TodoDelete is the route for deleting a todo
func (handler *Handler) TodoDelete(writer http.ResponseWriter, request *http.Request) {
	err := handler.Service.Delete(request.Context(), auth.UserID(request), mux.Vars(request)["todoID"])
	if err != nil {
		handler.respondWithTodoError(writer, err)
		return
	}

	handler.ResponseManager.Respond(writer, map[string]string{"message": "Todo removed"})
}

// TodoStatusHistory returns all status changes of a todo
func (handler *Handler) TodoStatusHistory(writer http.ResponseWriter, request *http.Request) {
	todo, err := handler.Service.Get(request.Context(), auth.UserID(request), mux.Vars(request)["todoID"])
	if err != nil {
		handler.respondWithTodoError(writer, err)
		return
	}

	handler.ResponseManager.Respond(writer, todo.StatusHistory)
}

// Stats contains the number of todos of a user
type Stats struct {
	Total     int `json:"total"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
}

// TodoStats counts the todos of a user
func (handler *Handler) TodoStats(writer http.ResponseWriter, request *http.Request) {
	counts, err := handler.TodoRepository.CountByStatus(request.Context(), auth.UserID(request))
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError, "Problem in query", err)
		return
	}

	stats := Stats{}
	for status, count := range counts {
		stats.Total += count
		if status == StatusCompleted {
			stats.Completed += count
		} else {
			stats.Active += count
		}
	}

	handler.ResponseManager.Respond(writer, stats)
}

// Summary groups the open todos of a user by priority and due date
type Summary struct {
	Priority map[Priority]int `json:"priority"`
	DueDate  DueDateSummary   `json:"dueDate"`
}

// DueDateSummary counts open todos relative to today
type DueDateSummary struct {
	Overdue   int `json:"overdue"`
	Today     int `json:"today"`
	Upcoming  int `json:"upcoming"`
	Later     int `json:"later"`
	NoDueDate int `json:"noDueDate"`
}

// TodoSummary summarizes the open todos of a user
func (handler *Handler) TodoSummary(writer http.ResponseWriter, request *http.Request) {
	userID := auth.UserID(request)
	ctx := request.Context()

	current := now()
	today := time.Date(current.Year(), current.Month(), current.Day(), 0, 0, 0, 0, current.Location())
	tomorrow := today.AddDate(0, 0, 1)
	nextWeek := today.AddDate(0, 0, 7)

	priorities, err := handler.TodoRepository.CountOpenByPriority(ctx, userID)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError, "Problem in query", err)
		return
	}

	summary := Summary{
		Priority: map[Priority]int{
			PriorityHigh:   priorities[PriorityHigh],
			PriorityMedium: priorities[PriorityMedium],
			PriorityLow:    priorities[PriorityLow],
		},
	}

	buckets := []struct {
		target  *int
		filters []Filter
	}{
		{&summary.DueDate.Overdue, []Filter{{Field: "dueDate", Operator: "$lt", Value: today}}},
		{&summary.DueDate.Today, []Filter{
			{Field: "dueDate", Operator: "$gte", Value: today},
			{Field: "dueDate", Operator: "$lt", Value: tomorrow},
		}},
		{&summary.DueDate.Upcoming, []Filter{
			{Field: "dueDate", Operator: "$gte", Value: tomorrow},
			{Field: "dueDate", Operator: "$lt", Value: nextWeek},
		}},
		{&summary.DueDate.Later, []Filter{{Field: "dueDate", Operator: "$gte", Value: nextWeek}}},
		{&summary.DueDate.NoDueDate, []Filter{{Field: "dueDate", Value: nil}}},
	}

	for _, bucket := range buckets {
		*bucket.target, err = handler.TodoRepository.CountOpen(ctx, userID, bucket.filters)
		if err != nil {
			handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError, "Problem in query", err)
			return
		}
	}

	handler.ResponseManager.Respond(writer, summary)
}

// SubtaskSuggestions asks the task parser for subtasks of a todo
func (handler *Handler) SubtaskSuggestions(writer http.ResponseWriter, request *http.Request) {
	todo, err := handler.Service.Get(request.Context(), auth.UserID(request), mux.Vars(request)["todoID"])
	if err != nil {
		handler.respondWithTodoError(writer, err)
		return
	}

	suggestions := []parsing.Subtask{}
	if handler.TaskParser != nil {
		suggestions, err = handler.TaskParser.SuggestSubtasks(request.Context(), todo.Title, todo.Description)
		if err != nil {
			handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
				"Could not suggest subtasks", err)
			return
		}
	}

	subtasks := make([]Subtask, 0, len(suggestions))
	for _, suggestion := range suggestions {
		subtasks = append(subtasks, Subtask{Title: suggestion.Title})
	}

	handler.ResponseManager.Respond(writer, map[string]interface{}{"subtasks": subtasks})
}

// respondWithTodoError hides the existence of todos of other users
func (handler *Handler) respondWithTodoError(writer http.ResponseWriter, err error) {
	if errors.Is(err, communication.ErrForbidden) || errors.Is(err, communication.ErrNotFound) {
		handler.ResponseManager.RespondWithError(writer, http.StatusNotFound, "Todo not found", nil)
		return
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, validationErrors[0].Error(), err)
		return
	}

	handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError, "Problem with the todo", err)
}
