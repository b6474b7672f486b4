package scheduler

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/taskistation/todo-backend/pkg/logger"
	"github.com/taskistation/todo-backend/pkg/users"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func sampleOf(userID primitive.ObjectID, timeOfDay TimeOfDay, taskType string, day int, efficiency float64, duration int, date time.Time) ProductivitySample {
	return ProductivitySample{
		UserID:         userID,
		TodoID:         primitive.NewObjectID(),
		TimeOfDay:      timeOfDay,
		TaskType:       taskType,
		Category:       "general",
		DayOfWeek:      day,
		Efficiency:     efficiency,
		ActualDuration: duration,
		Date:           date,
	}
}

func TestBuildProfile_Empty(t *testing.T) {
	profile := BuildProfile("user", nil)

	if profile.TotalRecords != 0 {
		t.Errorf("TotalRecords = %d", profile.TotalRecords)
	}
	if len(profile.TimeOfDay) != 0 || len(profile.TaskType) != 0 || len(profile.DayOfWeek) != 0 {
		t.Errorf("expected empty maps, got %+v", profile)
	}
	if profile.TimeOfDay == nil || profile.TaskType == nil || profile.DayOfWeek == nil {
		t.Error("maps should be empty, not nil")
	}
}

func TestBuildProfile(t *testing.T) {
	userID := primitive.NewObjectID()
	date := time.Date(2021, 6, 1, 9, 0, 0, 0, time.UTC)

	samples := []ProductivitySample{
		sampleOf(userID, Morning, "writing", 1, 1.0, 30, date),
		sampleOf(userID, Morning, "writing", 1, 0.5, 60, date),
		sampleOf(userID, Evening, "writing", 3, 0.25, 120, date),
		sampleOf(userID, Evening, "email", 3, 0.75, 10, date),
	}

	want := &Profile{
		UserID:       userID.Hex(),
		TotalRecords: 4,
		TimeOfDay: map[TimeOfDay]TimeOfDayStats{
			Morning: {Count: 2, Efficiency: 0.75, AvgDuration: 45},
			Evening: {Count: 2, Efficiency: 0.5, AvgDuration: 65},
		},
		TaskType: map[string]TaskTypeStats{
			"writing": {
				Count:      3,
				Efficiency: 1.75 / 3,
				TimeOfDay: map[TimeOfDay]EfficiencyStats{
					Morning: {Count: 2, Efficiency: 0.75},
					Evening: {Count: 1, Efficiency: 0.25},
				},
			},
			"email": {
				Count:      1,
				Efficiency: 0.75,
				TimeOfDay: map[TimeOfDay]EfficiencyStats{
					Evening: {Count: 1, Efficiency: 0.75},
				},
			},
		},
		DayOfWeek: map[int]EfficiencyStats{
			1: {Count: 2, Efficiency: 0.75},
			3: {Count: 2, Efficiency: 0.5},
		},
	}

	got := BuildProfile(userID.Hex(), samples)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("BuildProfile() = %+v, want %+v", got, want)
	}

	if _, ok := got.TimeOfDay[Afternoon]; ok {
		t.Error("afternoon has no samples and must be absent")
	}

	if again := BuildProfile(userID.Hex(), samples); !reflect.DeepEqual(got, again) {
		t.Error("BuildProfile() is not deterministic")
	}
}

func TestAnalyzer_Analyze(t *testing.T) {
	current := time.Date(2021, 6, 2, 12, 0, 0, 0, time.UTC)
	now = func() time.Time { return current }
	defer func() { now = time.Now }()

	userID := primitive.NewObjectID()
	otherID := primitive.NewObjectID()

	samples := &MockSampleRepository{Samples: []ProductivitySample{
		sampleOf(userID, Morning, "general", 1, 0.5, 30, current.AddDate(0, 0, -1)),
		sampleOf(userID, Afternoon, "general", 2, 0.9, 30, current.AddDate(0, 0, -90)),
		sampleOf(userID, Evening, "general", 3, 1.0, 30, current.AddDate(0, 0, -91)),
		sampleOf(otherID, Evening, "general", 3, 1.0, 30, current),
	}}

	analyzer := NewAnalyzer(samples, nil, NewDefaults(), logger.Logger{})

	profile, err := analyzer.Analyze(context.Background(), userID.Hex())
	if err != nil {
		t.Fatal(err)
	}

	if profile.TotalRecords != 2 {
		t.Errorf("TotalRecords = %d, want 2", profile.TotalRecords)
	}
	if _, ok := profile.TimeOfDay[Evening]; ok {
		t.Error("samples older than the lookback window or of other users were used")
	}

	again, err := analyzer.Analyze(context.Background(), userID.Hex())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(profile, again) {
		t.Error("Analyze() is not idempotent")
	}
}

func TestAnalyzer_AnalyzeStoreError(t *testing.T) {
	samples := &MockSampleRepository{Err: errors.New("store unavailable")}
	analyzer := NewAnalyzer(samples, nil, NewDefaults(), logger.Logger{})

	profile, err := analyzer.Analyze(context.Background(), primitive.NewObjectID().Hex())
	if err == nil {
		t.Error("expected the store error")
	}
	if profile != nil {
		t.Errorf("expected no profile, got %+v", profile)
	}
}

func TestAnalyzer_AnalyzeCached(t *testing.T) {
	userID := primitive.NewObjectID()
	samples := &MockSampleRepository{}

	cache, err := NewProfileCacheMemory(10, time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	analyzer := NewAnalyzer(samples, cache, NewDefaults(), logger.Logger{})
	recorder := NewRecorder(samples, nil, analyzer, NewDefaults(), logger.Logger{})

	profile, err := analyzer.Analyze(context.Background(), userID.Hex())
	if err != nil {
		t.Fatal(err)
	}
	if profile.TotalRecords != 0 {
		t.Fatalf("TotalRecords = %d", profile.TotalRecords)
	}

	samples.Err = errors.New("store unavailable")
	_, err = analyzer.Analyze(context.Background(), userID.Hex())
	if err != nil {
		t.Errorf("cached profile should have been served: %v", err)
	}
	samples.Err = nil

	todo := timedTodo(&users.User{ID: userID}, time.Now().Add(-time.Hour), 30, 30)

	_, err = recorder.Record(context.Background(), todo, nil)
	if err != nil {
		t.Fatal(err)
	}

	profile, err = analyzer.Analyze(context.Background(), userID.Hex())
	if err != nil {
		t.Fatal(err)
	}
	if profile.TotalRecords != 1 {
		t.Errorf("recorded sample not visible after recording, TotalRecords = %d", profile.TotalRecords)
	}
}

// stallingSampleRepository blocks the first FindSince after it has read until release is closed
type stallingSampleRepository struct {
	*MockSampleRepository
	read    chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *stallingSampleRepository) FindSince(ctx context.Context, userID string, cutoff time.Time) ([]ProductivitySample, error) {
	samples, err := s.MockSampleRepository.FindSince(ctx, userID, cutoff)

	s.once.Do(func() {
		close(s.read)
		<-s.release
	})

	return samples, err
}

func TestAnalyzer_RecordDuringAnalyze(t *testing.T) {
	userID := primitive.NewObjectID()
	store := &stallingSampleRepository{
		MockSampleRepository: &MockSampleRepository{},
		read:                 make(chan struct{}),
		release:              make(chan struct{}),
	}

	cache, err := NewProfileCacheMemory(10, time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	analyzer := NewAnalyzer(store, cache, NewDefaults(), logger.Logger{})
	recorder := NewRecorder(store, nil, analyzer, NewDefaults(), logger.Logger{})

	inFlight := make(chan *Profile)
	go func() {
		profile, err := analyzer.Analyze(context.Background(), userID.Hex())
		if err != nil {
			t.Error(err)
		}
		inFlight <- profile
	}()

	<-store.read

	todo := timedTodo(&users.User{ID: userID}, time.Now().Add(-time.Hour), 30, 30)
	_, err = recorder.Record(context.Background(), todo, nil)
	if err != nil {
		t.Fatal(err)
	}

	close(store.release)
	if profile := <-inFlight; profile == nil || profile.TotalRecords != 0 {
		t.Fatalf("the stalled read started before the sample was recorded, got %+v", profile)
	}

	profile, err := analyzer.Analyze(context.Background(), userID.Hex())
	if err != nil {
		t.Fatal(err)
	}
	if profile.TotalRecords != 1 {
		t.Errorf("TotalRecords = %d after recording a sample, want 1", profile.TotalRecords)
	}
}
