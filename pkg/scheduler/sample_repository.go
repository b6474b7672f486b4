package scheduler

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

// ErrSampleExists is returned by Add when the work session of a todo already has a sample
var ErrSampleExists = errors.New("productivity sample already exists")

// SampleRepositoryInterface is the append-only store of productivity samples. A todo has at most one
// sample per start time.
type SampleRepositoryInterface interface {
	Add(ctx context.Context, sample *ProductivitySample) error
	FindByTodo(ctx context.Context, todoID string, startedAt time.Time) (*ProductivitySample, error)
	FindSince(ctx context.Context, userID string, cutoff time.Time) ([]ProductivitySample, error)
}

// MongoDBSampleRepository stores productivity samples in a collection
type MongoDBSampleRepository struct {
	DB     *mongo.Collection
	Logger logger.Interface
}

// EnsureIndexes creates the indexes the queries of this repository rely on
func (s *MongoDBSampleRepository) EnsureIndexes(ctx context.Context) error {
	_, err := s.DB.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "date", Value: 1}}},
		{
			Keys:    bson.D{{Key: "todoId", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "timeOfDay", Value: 1}}},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "taskType", Value: 1}}},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "dayOfWeek", Value: 1}}},
	})
	return err
}

// Add appends a sample
func (s *MongoDBSampleRepository) Add(ctx context.Context, sample *ProductivitySample) error {
	sample.ID = primitive.NewObjectID()
	sample.CreatedAt = time.Now()

	_, err := s.DB.InsertOne(ctx, sample)
	if mongo.IsDuplicateKeyError(err) {
		return errors.Wrap(ErrSampleExists, "todo "+sample.TodoID.Hex())
	}
	if err != nil {
		return errors.Wrap(err, "could not insert productivity sample")
	}

	return nil
}

// FindByTodo finds the sample of the work session of a todo that started at startedAt
func (s *MongoDBSampleRepository) FindByTodo(ctx context.Context, todoID string, startedAt time.Time) (*ProductivitySample, error) {
	todoObjectID, err := primitive.ObjectIDFromHex(todoID)
	if err != nil {
		return nil, err
	}

	sample := ProductivitySample{}
	err = s.DB.FindOne(ctx, bson.M{"todoId": todoObjectID, "date": startedAt}).Decode(&sample)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errors.Wrap(communication.ErrNotFound, "productivity sample")
	}
	if err != nil {
		return nil, errors.Wrap(err, "could not query productivity sample")
	}

	return &sample, nil
}

// FindSince finds all samples of a user dated at or after cutoff, unordered
func (s *MongoDBSampleRepository) FindSince(ctx context.Context, userID string, cutoff time.Time) ([]ProductivitySample, error) {
	userObjectID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, err
	}

	cursor, err := s.DB.Find(ctx, bson.M{
		"userId": userObjectID,
		"date":   bson.M{"$gte": cutoff},
	})
	if err != nil {
		return nil, errors.Wrap(err, "could not query productivity samples")
	}

	samples := []ProductivitySample{}
	err = cursor.All(ctx, &samples)
	if err != nil {
		return nil, errors.Wrap(err, "could not decode productivity samples")
	}

	return samples, nil
}
