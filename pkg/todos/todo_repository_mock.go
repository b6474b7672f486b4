package todos

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/taskistation/todo-backend/pkg/communication"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MockTodoRepository is a todo repository for testing
type MockTodoRepository struct {
	Todos []*Todo
	mutex sync.Mutex
}

// Add adds a todo
func (m *MockTodoRepository) Add(_ context.Context, todo *Todo) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	todo.CreatedAt = time.Now()
	todo.LastModifiedAt = time.Now()
	todo.ID = primitive.NewObjectID()

	stored := *todo
	m.Todos = append(m.Todos, &stored)
	return nil
}

// Update updates a todo
func (m *MockTodoRepository) Update(_ context.Context, todo *Todo) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for i, t := range m.Todos {
		if t.ID == todo.ID && t.UserID == todo.UserID {
			todo.LastModifiedAt = time.Now()
			stored := *todo
			m.Todos[i] = &stored
			return nil
		}
	}

	return errors.Wrap(communication.ErrNotFound, "updated count != 1")
}

// FindByID finds a todo, the returned todo is a copy
func (m *MockTodoRepository) FindByID(_ context.Context, todoID string) (*Todo, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, t := range m.Todos {
		if t.ID.Hex() == todoID {
			found := *t
			return &found, nil
		}
	}

	return nil, errors.Wrap(communication.ErrNotFound, "todo")
}

// FindAll finds all todos of a user, supporting the filters the handler builds
func (m *MockTodoRepository) FindAll(_ context.Context, userID string, query Query) ([]Todo, int, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	todos := []Todo{}
	for _, t := range m.Todos {
		if !t.IsOwnedBy(userID) || !matchesAll(t, query.Filters) || !matchesSearch(t, query.Search) {
			continue
		}
		todos = append(todos, *t)
	}

	sortTodos(todos, query.SortBy, query.Order)

	count := len(todos)
	start := query.Page * query.PageSize
	if start > count {
		start = count
	}
	end := start + query.PageSize
	if end > count {
		end = count
	}

	return todos[start:end], count, nil
}

// CountByStatus counts todos grouped by status
func (m *MockTodoRepository) CountByStatus(_ context.Context, userID string) (map[Status]int, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	counts := map[Status]int{}
	for _, t := range m.Todos {
		if t.IsOwnedBy(userID) {
			counts[t.Status]++
		}
	}

	return counts, nil
}

// CountOpenByPriority counts open todos grouped by priority
func (m *MockTodoRepository) CountOpenByPriority(_ context.Context, userID string) (map[Priority]int, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	counts := map[Priority]int{}
	for _, t := range m.Todos {
		if t.IsOwnedBy(userID) && t.Status != StatusCompleted {
			counts[t.Priority]++
		}
	}

	return counts, nil
}

// CountOpen counts open todos matching all filters
func (m *MockTodoRepository) CountOpen(_ context.Context, userID string, filters []Filter) (int, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	count := 0
	for _, t := range m.Todos {
		if t.IsOwnedBy(userID) && t.Status != StatusCompleted && matchesAll(t, filters) {
			count++
		}
	}

	return count, nil
}

// Delete deletes a todo
func (m *MockTodoRepository) Delete(_ context.Context, todoID string, userID string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for i, t := range m.Todos {
		if t.ID.Hex() == todoID && t.IsOwnedBy(userID) {
			m.Todos = append(m.Todos[:i], m.Todos[i+1:]...)
			return nil
		}
	}

	return errors.Wrap(communication.ErrNotFound, "todo")
}

func matchesAll(t *Todo, filters []Filter) bool {
	for _, filter := range filters {
		if !matches(t, filter) {
			return false
		}
	}

	return true
}

func matches(t *Todo, filter Filter) bool {
	switch filter.Field {
	case "status":
		return compareString(string(t.Status), filter)
	case "priority":
		return compareString(string(t.Priority), filter)
	case "category":
		return compareString(t.Category, filter)
	case "dueDate":
		return compareTime(t.DueDate, filter)
	}

	return true
}

func compareString(value string, filter Filter) bool {
	expected := ""
	switch v := filter.Value.(type) {
	case string:
		expected = v
	case Status:
		expected = string(v)
	case Priority:
		expected = string(v)
	}

	if filter.Operator == "$ne" {
		return value != expected
	}

	return value == expected
}

func compareTime(value *time.Time, filter Filter) bool {
	if filter.Value == nil {
		return value == nil
	}

	if value == nil {
		return false
	}

	expected, ok := filter.Value.(time.Time)
	if !ok {
		return false
	}

	switch filter.Operator {
	case "$gte":
		return !value.Before(expected)
	case "$gt":
		return value.After(expected)
	case "$lte":
		return !value.After(expected)
	case "$lt":
		return value.Before(expected)
	}

	return value.Equal(expected)
}

func matchesSearch(t *Todo, search string) bool {
	if search == "" {
		return true
	}

	search = strings.ToLower(search)
	return strings.Contains(strings.ToLower(t.Title), search) ||
		strings.Contains(strings.ToLower(t.Description), search)
}

func sortTodos(todos []Todo, sortBy string, order int) {
	if sortBy == "" {
		sortBy = "createdAt"
		order = -1
	}

	less := func(a, b *Todo) bool {
		switch sortBy {
		case "title":
			return a.Title < b.Title
		case "dueDate":
			return dueDateOrZero(a).Before(dueDateOrZero(b))
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}

	sort.SliceStable(todos, func(i, j int) bool {
		if order < 0 {
			return less(&todos[j], &todos[i])
		}
		return less(&todos[i], &todos[j])
	})
}

func dueDateOrZero(t *Todo) time.Time {
	if t.DueDate == nil {
		return time.Time{}
	}

	return *t.DueDate
}
