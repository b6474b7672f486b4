package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/taskistation/todo-backend/pkg/auth"
	"github.com/taskistation/todo-backend/pkg/communication"
	"github.com/taskistation/todo-backend/pkg/locking"
	"github.com/taskistation/todo-backend/pkg/logger"
	"github.com/taskistation/todo-backend/pkg/todos"
	"github.com/taskistation/todo-backend/pkg/users"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type handlerFixture struct {
	handler *Handler
	todos   *todos.MockTodoRepository
	samples *MockSampleRepository
	user    *users.User
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	todoRepository := &todos.MockTodoRepository{}
	userRepository := &users.MockUserRepository{}
	samples := &MockSampleRepository{}

	user := &users.User{ID: primitive.NewObjectID(), Settings: users.Settings{TimeZone: "UTC"}}
	err := userRepository.Add(context.Background(), user)
	if err != nil {
		t.Fatal(err)
	}

	defaults := NewDefaults()
	analyzer := NewAnalyzer(samples, nil, defaults, logger.Logger{})
	recorder := NewRecorder(samples, userRepository, analyzer, defaults, logger.Logger{})

	service := todos.NewService(todoRepository, locking.NewLockerMemory(), logger.Logger{})
	service.Observe(recorder)

	return &handlerFixture{
		handler: &Handler{
			TodoService:    service,
			UserRepository: userRepository,
			Engine: NewEngine(analyzer, &RepositoryPreferencesProvider{Repository: &users.MockPreferencesRepository{}},
				defaults, logger.Logger{}),
			Recorder:        recorder,
			Logger:          logger.Logger{},
			ResponseManager: &communication.ResponseManager{Logger: logger.Logger{}},
		},
		todos:   todoRepository,
		samples: samples,
		user:    user,
	}
}

func (f *handlerFixture) addTodo(t *testing.T, todo todos.Todo) *todos.Todo {
	todo.UserID = f.user.ID
	todo.ApplyDefaults()

	err := f.todos.Add(context.Background(), &todo)
	if err != nil {
		t.Fatal(err)
	}

	return &todo
}

func request(t *testing.T, userID primitive.ObjectID, todoID string, body interface{}) *http.Request {
	var buffer bytes.Buffer
	if body != nil {
		err := json.NewEncoder(&buffer).Encode(body)
		if err != nil {
			t.Fatal(err)
		}
	}

	r := httptest.NewRequest(http.MethodPatch, "/", &buffer)
	r = r.WithContext(auth.WithUserID(r.Context(), userID.Hex()))
	return mux.SetURLVars(r, map[string]string{"todoID": todoID})
}

func TestHandler_StartTaskAndComplete(t *testing.T) {
	f := newHandlerFixture(t)
	todo := f.addTodo(t, todos.Todo{Title: "Focus"})

	recorder := httptest.NewRecorder()
	f.handler.StartTask(recorder, request(t, f.user.ID, todo.ID.Hex(), nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("StartTask() status = %d, body %s", recorder.Code, recorder.Body.String())
	}

	stored, _ := f.todos.FindByID(context.Background(), todo.ID.Hex())
	if stored.Status != todos.StatusInProgress || stored.StartedAt == nil {
		t.Fatalf("todo was not started: %+v", stored)
	}

	startedAt := time.Now().Add(-25 * time.Minute)
	stored.StartedAt = &startedAt
	_ = f.todos.Update(context.Background(), stored)

	completed, err := f.handler.TodoService.UpdateStatus(context.Background(), f.user.ID.Hex(), todo.ID.Hex(),
		todos.StatusCompleted, "")
	if err != nil {
		t.Fatal(err)
	}

	if len(f.samples.Samples) != 1 {
		t.Fatalf("completion should record one sample, got %d", len(f.samples.Samples))
	}
	if completed.ActualDuration == nil || *completed.ActualDuration != 25 {
		t.Errorf("ActualDuration = %v", completed.ActualDuration)
	}

	recorder = httptest.NewRecorder()
	f.handler.RecordProductivity(recorder, request(t, f.user.ID, todo.ID.Hex(), nil))
	if recorder.Code != http.StatusConflict {
		t.Errorf("recording twice status = %d", recorder.Code)
	}
	if len(f.samples.Samples) != 1 {
		t.Errorf("recording twice stored another sample")
	}
}

func TestHandler_StartTaskForeign(t *testing.T) {
	f := newHandlerFixture(t)
	todo := f.addTodo(t, todos.Todo{Title: "Not yours"})

	tests := []struct {
		name       string
		userID     primitive.ObjectID
		todoID     string
		wantStatus int
	}{
		{"other user", primitive.NewObjectID(), todo.ID.Hex(), http.StatusForbidden},
		{"missing todo", f.user.ID, primitive.NewObjectID().Hex(), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			f.handler.StartTask(recorder, request(t, tt.userID, tt.todoID, nil))
			if recorder.Code != tt.wantStatus {
				t.Errorf("StartTask() status = %d, want %d", recorder.Code, tt.wantStatus)
			}
		})
	}
}

func TestHandler_ScheduleTask(t *testing.T) {
	f := newHandlerFixture(t)
	todo := f.addTodo(t, todos.Todo{Title: "Plan"})

	recorder := httptest.NewRecorder()
	f.handler.ScheduleTask(recorder, request(t, f.user.ID, todo.ID.Hex(), map[string]string{}))
	if recorder.Code != http.StatusBadRequest {
		t.Errorf("ScheduleTask() without time status = %d", recorder.Code)
	}

	scheduledTime := time.Date(2021, 7, 1, 9, 0, 0, 0, time.UTC)
	recorder = httptest.NewRecorder()
	f.handler.ScheduleTask(recorder, request(t, f.user.ID, todo.ID.Hex(), map[string]time.Time{"scheduledTime": scheduledTime}))
	if recorder.Code != http.StatusOK {
		t.Fatalf("ScheduleTask() status = %d, body %s", recorder.Code, recorder.Body.String())
	}

	stored, _ := f.todos.FindByID(context.Background(), todo.ID.Hex())
	if stored.ScheduledTime == nil || !stored.ScheduledTime.Equal(scheduledTime) {
		t.Errorf("ScheduledTime = %v", stored.ScheduledTime)
	}
}

func TestHandler_Recommendations(t *testing.T) {
	f := newHandlerFixture(t)
	todo := f.addTodo(t, todos.Todo{Title: "Write", TaskType: "writing"})

	recorder := httptest.NewRecorder()
	f.handler.Recommendations(recorder, request(t, f.user.ID, todo.ID.Hex(), nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("Recommendations() status = %d, body %s", recorder.Code, recorder.Body.String())
	}

	recommendation := Recommendation{}
	err := json.Unmarshal(recorder.Body.Bytes(), &recommendation)
	if err != nil {
		t.Fatal(err)
	}

	if recommendation.BestTimeOfDay != Any || recommendation.BestDayOfWeek != 1 || len(recommendation.RecommendedTimeSlots) != 8 {
		t.Errorf("Recommendations() = %+v", recommendation)
	}

	recorder = httptest.NewRecorder()
	f.handler.Recommendations(recorder, request(t, primitive.NewObjectID(), todo.ID.Hex(), nil))
	if recorder.Code != http.StatusForbidden {
		t.Errorf("Recommendations() for other user status = %d", recorder.Code)
	}

	f.samples.Err = context.DeadlineExceeded
	recorder = httptest.NewRecorder()
	f.handler.Recommendations(recorder, request(t, f.user.ID, todo.ID.Hex(), nil))
	if recorder.Code != http.StatusInternalServerError {
		t.Errorf("Recommendations() with failing store status = %d", recorder.Code)
	}
}

func TestHandler_RecordProductivity(t *testing.T) {
	f := newHandlerFixture(t)

	startedAt := time.Date(2021, 6, 1, 14, 0, 0, 0, time.UTC)
	completedAt := startedAt.Add(20 * time.Minute)
	completed := f.addTodo(t, todos.Todo{Title: "Done", Status: todos.StatusCompleted, StartedAt: &startedAt, CompletedAt: &completedAt})
	untimed := f.addTodo(t, todos.Todo{Title: "Untimed", Status: todos.StatusCompleted, CompletedAt: &completedAt})

	recorder := httptest.NewRecorder()
	f.handler.RecordProductivity(recorder, request(t, f.user.ID, untimed.ID.Hex(), nil))
	if recorder.Code != http.StatusNoContent {
		t.Errorf("RecordProductivity() without timing status = %d", recorder.Code)
	}

	recorder = httptest.NewRecorder()
	f.handler.RecordProductivity(recorder, request(t, f.user.ID, completed.ID.Hex(), nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("RecordProductivity() status = %d, body %s", recorder.Code, recorder.Body.String())
	}

	sample := ProductivitySample{}
	err := json.Unmarshal(recorder.Body.Bytes(), &sample)
	if err != nil {
		t.Fatal(err)
	}
	if sample.ActualDuration != 20 || sample.TimeOfDay != Afternoon || sample.Efficiency != 20.0/30.0 {
		t.Errorf("RecordProductivity() = %+v", sample)
	}

	stored, _ := f.todos.FindByID(context.Background(), completed.ID.Hex())
	if stored.ActualDuration == nil || *stored.ActualDuration != 20 {
		t.Errorf("ActualDuration was not stored on the todo")
	}
}

// failingUpdateRepository fails every Update while fail is set
type failingUpdateRepository struct {
	*todos.MockTodoRepository
	fail bool
}

func (r *failingUpdateRepository) Update(ctx context.Context, todo *todos.Todo) error {
	if r.fail {
		return errors.New("database unavailable")
	}

	return r.MockTodoRepository.Update(ctx, todo)
}

func TestCompletionRetriedAfterFailedSave(t *testing.T) {
	f := newHandlerFixture(t)
	repository := &failingUpdateRepository{MockTodoRepository: f.todos}

	service := todos.NewService(repository, locking.NewLockerMemory(), logger.Logger{})
	service.Observe(f.handler.Recorder)
	f.handler.TodoService = service

	startedAt := time.Now().Add(-40 * time.Minute)
	todo := f.addTodo(t, todos.Todo{Title: "Report", Status: todos.StatusInProgress, StartedAt: &startedAt})

	repository.fail = true
	_, err := service.UpdateStatus(context.Background(), f.user.ID.Hex(), todo.ID.Hex(), todos.StatusCompleted, "")
	if err == nil {
		t.Fatal("expected the failed save to surface")
	}

	stored, _ := f.todos.FindByID(context.Background(), todo.ID.Hex())
	if stored.Status != todos.StatusInProgress || stored.ActualDuration != nil {
		t.Fatalf("failed completion was persisted: %+v", stored)
	}

	repository.fail = false
	completed, err := service.UpdateStatus(context.Background(), f.user.ID.Hex(), todo.ID.Hex(), todos.StatusCompleted, "")
	if err != nil {
		t.Fatal(err)
	}

	if len(f.samples.Samples) != 1 {
		t.Fatalf("retrying the completion stored %d samples, want 1", len(f.samples.Samples))
	}
	if completed.ActualDuration == nil || *completed.ActualDuration != f.samples.Samples[0].ActualDuration {
		t.Errorf("ActualDuration = %v, sample has %d", completed.ActualDuration, f.samples.Samples[0].ActualDuration)
	}

	recorder := httptest.NewRecorder()
	f.handler.RecordProductivity(recorder, request(t, f.user.ID, todo.ID.Hex(), nil))
	if recorder.Code != http.StatusConflict {
		t.Errorf("recording a completed todo again status = %d", recorder.Code)
	}
}
