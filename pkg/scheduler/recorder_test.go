package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/taskistation/todo-backend/pkg/logger"
	"github.com/taskistation/todo-backend/pkg/todos"
	"github.com/taskistation/todo-backend/pkg/users"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestRecorder() (*Recorder, *MockSampleRepository, *users.MockUserRepository) {
	samples := &MockSampleRepository{}
	userRepository := &users.MockUserRepository{}
	analyzer := NewAnalyzer(samples, nil, NewDefaults(), logger.Logger{})

	return NewRecorder(samples, userRepository, analyzer, NewDefaults(), logger.Logger{}), samples, userRepository
}

func timedTodo(user *users.User, startedAt time.Time, minutes float64, estimated int) *todos.Todo {
	completedAt := startedAt.Add(time.Duration(minutes * float64(time.Minute)))
	return &todos.Todo{
		ID:                primitive.NewObjectID(),
		UserID:            user.ID,
		EstimatedDuration: estimated,
		StartedAt:         &startedAt,
		CompletedAt:       &completedAt,
	}
}

func TestRecorder_Record(t *testing.T) {
	recorder, samples, _ := newTestRecorder()
	user := &users.User{ID: primitive.NewObjectID()}
	startedAt := time.Date(2021, 6, 2, 9, 0, 0, 0, time.Local)

	todo := timedTodo(user, startedAt, 45, 30)
	todo.TaskType = "writing"

	sample, err := recorder.Record(context.Background(), todo, user)
	if err != nil {
		t.Fatal(err)
	}
	if sample == nil {
		t.Fatal("expected a sample")
	}

	if sample.ActualDuration != 45 {
		t.Errorf("ActualDuration = %d, want 45", sample.ActualDuration)
	}
	if sample.Efficiency != 30.0/45.0 {
		t.Errorf("Efficiency = %v, want %v", sample.Efficiency, 30.0/45.0)
	}
	if sample.TimeOfDay != Morning {
		t.Errorf("TimeOfDay = %s", sample.TimeOfDay)
	}
	if sample.DayOfWeek != int(time.Wednesday) {
		t.Errorf("DayOfWeek = %d", sample.DayOfWeek)
	}
	if sample.TaskType != "writing" || sample.Category != todos.DefaultCategory {
		t.Errorf("TaskType = %s, Category = %s", sample.TaskType, sample.Category)
	}
	if sample.UserID != user.ID || sample.TodoID != todo.ID || !sample.Date.Equal(startedAt) {
		t.Errorf("sample not linked to its todo: %+v", sample)
	}

	if len(samples.Samples) != 1 {
		t.Errorf("expected exactly one stored sample, got %d", len(samples.Samples))
	}
}

func TestRecorder_RecordNoData(t *testing.T) {
	recorder, samples, _ := newTestRecorder()
	user := &users.User{ID: primitive.NewObjectID()}
	startedAt := time.Date(2021, 6, 2, 9, 0, 0, 0, time.Local)

	missingStart := timedTodo(user, startedAt, 30, 30)
	missingStart.StartedAt = nil
	missingCompletion := timedTodo(user, startedAt, 30, 30)
	missingCompletion.CompletedAt = nil

	tests := []struct {
		name string
		todo *todos.Todo
	}{
		{"missing start", missingStart},
		{"missing completion", missingCompletion},
		{"zero duration", timedTodo(user, startedAt, 0, 30)},
		{"rounds to zero", timedTodo(user, startedAt, 0.4, 30)},
		{"negative duration", timedTodo(user, startedAt, -20, 30)},
		{"longer than a day", timedTodo(user, startedAt, 1441, 30)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sample, err := recorder.Record(context.Background(), tt.todo, user)
			if err != nil {
				t.Fatal(err)
			}
			if sample != nil {
				t.Errorf("expected no sample, got %+v", sample)
			}
		})
	}

	if len(samples.Samples) != 0 {
		t.Errorf("no sample should have been stored, got %d", len(samples.Samples))
	}
}

func TestRecorder_RecordEfficiencyBounds(t *testing.T) {
	recorder, _, _ := newTestRecorder()
	user := &users.User{ID: primitive.NewObjectID()}
	startedAt := time.Date(2021, 6, 2, 13, 0, 0, 0, time.Local)

	for _, estimated := range []int{0, 1, 15, 30, 60, 240} {
		e := estimated
		if e == 0 {
			e = todos.DefaultEstimatedDuration
		}

		for actual := 1; actual <= 1440; actual += 7 {
			sample, err := recorder.Record(context.Background(), timedTodo(user, startedAt, float64(actual), estimated), user)
			if err != nil {
				t.Fatal(err)
			}
			if sample == nil {
				t.Fatalf("no sample for actual %d, estimated %d", actual, estimated)
			}

			if sample.Efficiency <= 0 || sample.Efficiency > 1 {
				t.Errorf("efficiency %v out of range for actual %d, estimated %d", sample.Efficiency, actual, estimated)
			}
			if (sample.Efficiency == 1) != (actual == e) {
				t.Errorf("efficiency %v for actual %d, estimated %d", sample.Efficiency, actual, e)
			}
		}

		sample, err := recorder.Record(context.Background(), timedTodo(user, startedAt, float64(e), estimated), user)
		if err != nil {
			t.Fatal(err)
		}
		if sample.Efficiency != 1 {
			t.Errorf("efficiency on estimate = %v, want 1", sample.Efficiency)
		}
	}

	sample, err := recorder.Record(context.Background(), timedTodo(user, startedAt, 1440, 30), user)
	if err != nil || sample == nil {
		t.Errorf("a full day should still be recorded, err %v", err)
	}
}

func TestRecorder_RecordUsesUserTimeZone(t *testing.T) {
	recorder, _, _ := newTestRecorder()

	// 10:00 UTC is 19:00 in Tokyo
	startedAt := time.Date(2021, 6, 5, 10, 0, 0, 0, time.UTC)

	utcUser := &users.User{ID: primitive.NewObjectID(), Settings: users.Settings{TimeZone: "UTC"}}
	tokyoUser := &users.User{ID: primitive.NewObjectID(), Settings: users.Settings{TimeZone: "Asia/Tokyo"}}

	sample, err := recorder.Record(context.Background(), timedTodo(utcUser, startedAt, 30, 30), utcUser)
	if err != nil {
		t.Fatal(err)
	}
	if sample.TimeOfDay != Morning || sample.DayOfWeek != int(time.Saturday) {
		t.Errorf("UTC sample = %s day %d", sample.TimeOfDay, sample.DayOfWeek)
	}

	if _, err := time.LoadLocation("Asia/Tokyo"); err != nil {
		t.Skip("no time zone database available")
	}

	sample, err = recorder.Record(context.Background(), timedTodo(tokyoUser, startedAt, 30, 30), tokyoUser)
	if err != nil {
		t.Fatal(err)
	}
	if sample.TimeOfDay != Evening {
		t.Errorf("Tokyo sample = %s, want evening", sample.TimeOfDay)
	}
}

func TestRecorder_RecordStoreError(t *testing.T) {
	recorder, samples, _ := newTestRecorder()
	samples.Err = errors.New("store unavailable")
	user := &users.User{ID: primitive.NewObjectID()}

	sample, err := recorder.Record(context.Background(), timedTodo(user, time.Now(), 30, 30), user)
	if err == nil {
		t.Error("expected the store error")
	}
	if sample != nil {
		t.Errorf("expected no sample, got %+v", sample)
	}
}

func TestRecorder_OnCompleted(t *testing.T) {
	recorder, samples, userRepository := newTestRecorder()
	user := &users.User{ID: primitive.NewObjectID()}
	_ = userRepository.Add(context.Background(), user)

	todo := timedTodo(user, time.Date(2021, 6, 2, 18, 0, 0, 0, time.Local), 50, 60)
	err := recorder.OnCompleted(context.Background(), todo)
	if err != nil {
		t.Fatal(err)
	}

	if todo.ActualDuration == nil || *todo.ActualDuration != 50 {
		t.Errorf("ActualDuration = %v", todo.ActualDuration)
	}
	if len(samples.Samples) != 1 {
		t.Errorf("expected one sample")
	}

	unstarted := timedTodo(user, time.Now(), 10, 30)
	unstarted.StartedAt = nil
	err = recorder.OnCompleted(context.Background(), unstarted)
	if err != nil || unstarted.ActualDuration != nil {
		t.Errorf("unstarted todo: err %v, duration %v", err, unstarted.ActualDuration)
	}

	unknownOwner := timedTodo(&users.User{ID: primitive.NewObjectID()}, time.Now(), 10, 30)
	err = recorder.OnCompleted(context.Background(), unknownOwner)
	if err == nil {
		t.Error("expected an error for an unknown owner")
	}
}

func TestRecorder_RecordSameSessionTwice(t *testing.T) {
	recorder, samples, _ := newTestRecorder()
	user := &users.User{ID: primitive.NewObjectID()}
	todo := timedTodo(user, time.Date(2021, 6, 2, 9, 0, 0, 0, time.UTC), 30, 30)

	first, err := recorder.Record(context.Background(), todo, user)
	if err != nil {
		t.Fatal(err)
	}

	later := todo.CompletedAt.Add(5 * time.Minute)
	todo.CompletedAt = &later

	second, err := recorder.Record(context.Background(), todo, user)
	if err != nil {
		t.Fatal(err)
	}

	if len(samples.Samples) != 1 {
		t.Fatalf("stored %d samples for one work session", len(samples.Samples))
	}
	if second == nil || second.ID != first.ID || second.ActualDuration != 30 {
		t.Errorf("Record() = %+v, want the stored sample %+v", second, first)
	}

	restarted := todo.StartedAt.Add(time.Hour)
	todo.StartedAt = &restarted
	restartedCompletion := restarted.Add(20 * time.Minute)
	todo.CompletedAt = &restartedCompletion

	_, err = recorder.Record(context.Background(), todo, user)
	if err != nil {
		t.Fatal(err)
	}
	if len(samples.Samples) != 2 {
		t.Errorf("a new work session should be recorded, got %d samples", len(samples.Samples))
	}
}
