package todos

import "go.mongodb.org/mongo-driver/bson"

// Filter is a model for the rest api filter
type Filter struct {
	Field    string
	Value    interface{}
	Operator string
}

// Query describes a paginated listing of todos
type Query struct {
	Filters []Filter
	// Search is matched case-insensitively against title and description
	Search   string
	SortBy   string
	Order    int
	Page     int
	PageSize int
}

// filtersToBson merges operator filters on the same field into one condition
func filtersToBson(filters []Filter) bson.D {
	queryFilter := bson.D{}
	operatorIndex := map[string]int{}

	for _, filter := range filters {
		if filter.Operator == "" {
			queryFilter = append(queryFilter, bson.E{Key: filter.Field, Value: filter.Value})
			continue
		}

		if index, ok := operatorIndex[filter.Field]; ok {
			queryFilter[index].Value.(bson.M)[filter.Operator] = filter.Value
			continue
		}

		operatorIndex[filter.Field] = len(queryFilter)
		queryFilter = append(queryFilter, bson.E{Key: filter.Field, Value: bson.M{filter.Operator: filter.Value}})
	}

	return queryFilter
}
