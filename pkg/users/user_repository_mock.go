package users

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/taskistation/todo-backend/pkg/communication"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MockUserRepository is a user repository for testing
type MockUserRepository struct {
	Users []*User
	mutex sync.Mutex
}

// Add adds a user
func (r *MockUserRepository) Add(_ context.Context, user *User) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.CreatedAt = time.Now()
	user.LastModifiedAt = time.Now()

	r.Users = append(r.Users, user)
	return nil
}

// FindByID finds a user
func (r *MockUserRepository) FindByID(_ context.Context, id string) (*User, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, user := range r.Users {
		if user.ID.Hex() == id {
			return user, nil
		}
	}

	return nil, errors.Wrap(communication.ErrNotFound, "user")
}

// FindByEmail finds a user by email
func (r *MockUserRepository) FindByEmail(_ context.Context, email string) (*User, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, user := range r.Users {
		if user.Email == email {
			return user, nil
		}
	}

	return nil, errors.Wrap(communication.ErrNotFound, "user")
}

// Update updates a user
func (r *MockUserRepository) Update(_ context.Context, user *User) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for i, u := range r.Users {
		if u.ID == user.ID {
			user.LastModifiedAt = time.Now()
			r.Users[i] = user
			return nil
		}
	}

	return errors.Wrap(communication.ErrNotFound, "user")
}

// Remove removes a user
func (r *MockUserRepository) Remove(_ context.Context, id string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for i, u := range r.Users {
		if u.ID.Hex() == id {
			r.Users = append(r.Users[:i], r.Users[i+1:]...)
			return nil
		}
	}

	return errors.Wrap(communication.ErrNotFound, "user")
}

// MockPreferencesRepository is a preferences repository for testing
type MockPreferencesRepository struct {
	Preferences []*Preferences
	// Err is returned by every call when set
	Err   error
	mutex sync.Mutex
}

// FindByUserID finds the preferences of a user
func (r *MockPreferencesRepository) FindByUserID(_ context.Context, userID string) (*Preferences, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.Err != nil {
		return nil, r.Err
	}

	for _, p := range r.Preferences {
		if p.UserID.Hex() == userID {
			return p, nil
		}
	}

	return nil, errors.Wrap(communication.ErrNotFound, "preferences")
}

// Upsert creates or replaces preferences
func (r *MockPreferencesRepository) Upsert(_ context.Context, preferences *Preferences) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.Err != nil {
		return r.Err
	}

	if preferences.ID.IsZero() {
		preferences.ID = primitive.NewObjectID()
	}

	for i, p := range r.Preferences {
		if p.UserID == preferences.UserID {
			r.Preferences[i] = preferences
			return nil
		}
	}

	r.Preferences = append(r.Preferences, preferences)
	return nil
}
