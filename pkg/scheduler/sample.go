package scheduler

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProductivitySample is the timing outcome of one completed todo, it is never changed after creation
type ProductivitySample struct {
	ID                primitive.ObjectID `json:"id" bson:"_id"`
	UserID            primitive.ObjectID `json:"userId" bson:"userId"`
	TodoID            primitive.ObjectID `json:"todoId" bson:"todoId"`
	TimeOfDay         TimeOfDay          `json:"timeOfDay" bson:"timeOfDay"`
	EstimatedDuration int                `json:"estimatedDuration" bson:"estimatedDuration"`
	ActualDuration    int                `json:"actualDuration" bson:"actualDuration"`
	Efficiency        float64            `json:"efficiency" bson:"efficiency"`
	TaskType          string             `json:"taskType" bson:"taskType"`
	Category          string             `json:"category" bson:"category"`
	DayOfWeek         int                `json:"dayOfWeek" bson:"dayOfWeek"`
	Date              time.Time          `json:"date" bson:"date"`
	CreatedAt         time.Time          `json:"createdAt" bson:"createdAt"`
}

// Efficiency scores how close the actual duration came to the estimate. Both directions of deviation
// lower the score, 1 is reached only when both are equal.
func Efficiency(actualDuration int, estimatedDuration int) float64 {
	if actualDuration <= estimatedDuration {
		return float64(actualDuration) / float64(estimatedDuration)
	}

	return float64(estimatedDuration) / float64(actualDuration)
}
