package existence

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Mongo — документный backend: schema — база, table — коллекция,
// column — поле документа.
type Mongo struct {
	client *mongo.Client
}

// NewMongo создаёт backend поверх клиента.
func NewMongo(client *mongo.Client) *Mongo {
	return &Mongo{client: client}
}

// Exists ищет хотя бы один документ с {column: value}.
func (m *Mongo) Exists(ctx context.Context, schema, table, column string, value any) (bool, error) {
	count, err := m.client.Database(schema).Collection(table).CountDocuments(ctx,
		bson.M{column: value},
		options.Count().SetLimit(1),
	)
	if err != nil {
		return false, fmt.Errorf("count documents: %w", err)
	}
	return count > 0, nil
}
