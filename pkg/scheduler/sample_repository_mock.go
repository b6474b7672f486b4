package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/taskistation/todo-backend/pkg/communication"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MockSampleRepository is a sample repository for testing, Err is returned by every call if set
type MockSampleRepository struct {
	Samples []ProductivitySample
	Err     error
	mutex   sync.Mutex
}

// Add appends a sample
func (m *MockSampleRepository) Add(_ context.Context, sample *ProductivitySample) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.Err != nil {
		return m.Err
	}

	for _, stored := range m.Samples {
		if stored.TodoID == sample.TodoID && stored.Date.Equal(sample.Date) {
			return errors.Wrap(ErrSampleExists, "todo "+sample.TodoID.Hex())
		}
	}

	sample.ID = primitive.NewObjectID()
	sample.CreatedAt = time.Now()
	m.Samples = append(m.Samples, *sample)
	return nil
}

// FindByTodo finds the sample of a todo with the given start time
func (m *MockSampleRepository) FindByTodo(_ context.Context, todoID string, startedAt time.Time) (*ProductivitySample, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}

	for _, sample := range m.Samples {
		if sample.TodoID.Hex() == todoID && sample.Date.Equal(startedAt) {
			found := sample
			return &found, nil
		}
	}

	return nil, errors.Wrap(communication.ErrNotFound, "productivity sample")
}

// FindSince finds all samples of a user dated at or after cutoff
func (m *MockSampleRepository) FindSince(_ context.Context, userID string, cutoff time.Time) ([]ProductivitySample, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}

	samples := []ProductivitySample{}
	for _, sample := range m.Samples {
		if sample.UserID.Hex() == userID && !sample.Date.Before(cutoff) {
			samples = append(samples, sample)
		}
	}

	return samples, nil
}
