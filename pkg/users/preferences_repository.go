package users

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/taskistation/todo-backend/pkg/communication"
	"github.com/taskistation/todo-backend/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PreferencesRepositoryInterface is the interface for a MongoDBPreferencesRepository
type PreferencesRepositoryInterface interface {
	FindByUserID(ctx context.Context, userID string) (*Preferences, error)
	Upsert(ctx context.Context, preferences *Preferences) error
}

// MongoDBPreferencesRepository stores one Preferences document per user
type MongoDBPreferencesRepository struct {
	DB     *mongo.Collection
	Logger logger.Interface
}

// FindByUserID finds the preferences of a user, communication.ErrNotFound is returned if there are none
func (r *MongoDBPreferencesRepository) FindByUserID(ctx context.Context, userID string) (*Preferences, error) {
	userObjectID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, err
	}

	p := Preferences{}

	result := r.DB.FindOne(ctx, bson.M{"userId": userObjectID})
	if result.Err() != nil {
		if errors.Is(result.Err(), mongo.ErrNoDocuments) {
			return nil, errors.Wrap(communication.ErrNotFound, "preferences")
		}
		return nil, result.Err()
	}

	err = result.Decode(&p)
	if err != nil {
		return nil, err
	}

	return &p, nil
}

// Upsert creates or replaces the preferences of preferences.UserID
func (r *MongoDBPreferencesRepository) Upsert(ctx context.Context, preferences *Preferences) error {
	preferences.LastModifiedAt = time.Now()
	if preferences.ID.IsZero() {
		preferences.ID = primitive.NewObjectID()
		preferences.CreatedAt = time.Now()
	}

	_, err := r.DB.ReplaceOne(ctx, bson.M{"userId": preferences.UserID}, preferences, options.Replace().SetUpsert(true))
	return err
}
