package todos

import (
	"context"
	"regexp"
	"time"

	"github.com/pkg/errors"
	"github.com/taskistation/todo-backend/pkg/communication"
	"github.com/taskistation/todo-backend/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TodoRepositoryInterface is an interface for a *MongoDBTodoRepository
type TodoRepositoryInterface interface {
	Add(ctx context.Context, todo *Todo) error
	Update(ctx context.Context, todo *Todo) error
	FindByID(ctx context.Context, todoID string) (*Todo, error)
	FindAll(ctx context.Context, userID string, query Query) ([]Todo, int, error)
	CountByStatus(ctx context.Context, userID string) (map[Status]int, error)
	CountOpenByPriority(ctx context.Context, userID string) (map[Priority]int, error)
	CountOpen(ctx context.Context, userID string, filters []Filter) (int, error)
	Delete(ctx context.Context, todoID string, userID string) error
}

// MongoDBTodoRepository does everything related to storing and finding todos
type MongoDBTodoRepository struct {
	DB     *mongo.Collection
	Logger logger.Interface
}

// EnsureIndexes creates the indexes the queries of this repository rely on
func (s *MongoDBTodoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := s.DB.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "dueDate", Value: 1}}},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "category", Value: 1}}},
	})
	return err
}

// Add adds a todo
func (s *MongoDBTodoRepository) Add(ctx context.Context, todo *Todo) error {
	todo.CreatedAt = time.Now()
	todo.LastModifiedAt = time.Now()
	todo.ID = primitive.NewObjectID()

	_, err := s.DB.InsertOne(ctx, todo)
	return err
}

// Update updates a todo
func (s *MongoDBTodoRepository) Update(ctx context.Context, todo *Todo) error {
	todo.LastModifiedAt = time.Now()

	result, err := s.DB.UpdateOne(ctx, bson.M{"_id": todo.ID, "userId": todo.UserID}, bson.M{"$set": todo})
	if err != nil {
		return err
	}

	if result.MatchedCount != 1 {
		return errors.Wrap(communication.ErrNotFound, "updated count != 1")
	}

	return nil
}

// FindByID finds a todo by its ID, ownership has to be checked by the caller
func (s *MongoDBTodoRepository) FindByID(ctx context.Context, todoID string) (*Todo, error) {
	t := Todo{}

	todoObjectID, err := primitive.ObjectIDFromHex(todoID)
	if err != nil {
		return nil, errors.Wrap(communication.ErrNotFound, err.Error())
	}

	result := s.DB.FindOne(ctx, bson.M{"_id": todoObjectID})
	if result.Err() != nil {
		if errors.Is(result.Err(), mongo.ErrNoDocuments) {
			return nil, errors.Wrap(communication.ErrNotFound, "todo")
		}
		return nil, result.Err()
	}

	err = result.Decode(&t)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

// FindAll finds all todos of a user paginated
func (s *MongoDBTodoRepository) FindAll(ctx context.Context, userID string, query Query) ([]Todo, int, error) {
	t := []Todo{}

	userObjectID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, 0, err
	}

	filter := bson.D{{Key: "userId", Value: userObjectID}}
	filter = append(filter, filtersToBson(query.Filters)...)

	if query.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(query.Search), Options: "i"}
		filter = append(filter, bson.E{Key: "$or", Value: bson.A{
			bson.M{"title": pattern},
			bson.M{"description": pattern},
		}})
	}

	sortBy := query.SortBy
	order := query.Order
	if sortBy == "" {
		sortBy = "createdAt"
		order = -1
	}

	findOptions := options.Find()
	findOptions.SetSort(bson.D{{Key: sortBy, Value: order}})
	findOptions.SetSkip(int64(query.Page * query.PageSize))
	findOptions.SetLimit(int64(query.PageSize))

	cursor, err := s.DB.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, err
	}

	count, err := s.DB.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	err = cursor.All(ctx, &t)
	if err != nil {
		return nil, 0, err
	}

	return t, int(count), nil
}

// CountByStatus counts todos of a user grouped by status
func (s *MongoDBTodoRepository) CountByStatus(ctx context.Context, userID string) (map[Status]int, error) {
	userObjectID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, err
	}

	var results []struct {
		ID    Status `bson:"_id"`
		Count int    `bson:"count"`
	}

	cursor, err := s.DB.Aggregate(ctx, mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"userId": userObjectID}}},
		bson.D{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, err
	}

	err = cursor.All(ctx, &results)
	if err != nil {
		return nil, err
	}

	counts := map[Status]int{}
	for _, result := range results {
		counts[result.ID] = result.Count
	}

	return counts, nil
}

// CountOpenByPriority counts todos that are not completed grouped by priority
func (s *MongoDBTodoRepository) CountOpenByPriority(ctx context.Context, userID string) (map[Priority]int, error) {
	userObjectID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, err
	}

	var results []struct {
		ID    Priority `bson:"_id"`
		Count int      `bson:"count"`
	}

	cursor, err := s.DB.Aggregate(ctx, mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"userId": userObjectID, "status": bson.M{"$ne": StatusCompleted}}}},
		bson.D{{Key: "$group", Value: bson.M{"_id": "$priority", "count": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, err
	}

	err = cursor.All(ctx, &results)
	if err != nil {
		return nil, err
	}

	counts := map[Priority]int{}
	for _, result := range results {
		counts[result.ID] = result.Count
	}

	return counts, nil
}

// CountOpen counts todos that are not completed and match all filters
func (s *MongoDBTodoRepository) CountOpen(ctx context.Context, userID string, filters []Filter) (int, error) {
	userObjectID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return 0, err
	}

	filter := bson.D{
		{Key: "userId", Value: userObjectID},
		{Key: "status", Value: bson.M{"$ne": StatusCompleted}},
	}
	filter = append(filter, filtersToBson(filters)...)

	count, err := s.DB.CountDocuments(ctx, filter)
	if err != nil {
		return 0, err
	}

	return int(count), nil
}

// Delete deletes a todo
func (s *MongoDBTodoRepository) Delete(ctx context.Context, todoID string, userID string) error {
	todoObjectID, err := primitive.ObjectIDFromHex(todoID)
	if err != nil {
		return err
	}

	userObjectID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return err
	}

	result, err := s.DB.DeleteOne(ctx, bson.M{"_id": todoObjectID, "userId": userObjectID})
	if err != nil {
		return err
	}

	if result.DeletedCount != 1 {
		return errors.Wrap(communication.ErrNotFound, "todo")
	}

	return nil
}
