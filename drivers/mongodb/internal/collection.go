package driver

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Cursor is the subset of *mongo.Cursor used by a sync
type Cursor interface {
	Next(ctx context.Context) bool
	Decode(val any) error
	Err() error
	Close(ctx context.Context) error
}

// Collection runs the single query an incremental sync needs: documents matching filter,
// restricted by projection, in ascending order of sortKey
type Collection interface {
	Find(ctx context.Context, filter bson.M, projection map[string]any, sortKey string) (Cursor, error)
}

type mongoCollection struct {
	collection *mongo.Collection
	batchSize  int32
}

func (c *mongoCollection) Find(ctx context.Context, filter bson.M, projection map[string]any, sortKey string) (Cursor, error) {
	return c.collection.Find(ctx, filter, findOptions(projection, sortKey, c.batchSize))
}

// findOptions sorts ascending on the replication key and applies the projection only when one is set
func findOptions(projection map[string]any, sortKey string, batchSize int32) *options.FindOptions {
	opts := options.Find().
		SetSort(bson.D{{Key: sortKey, Value: 1}}).
		SetBatchSize(batchSize)
	if len(projection) > 0 {
		opts.SetProjection(projection)
	}
	return opts
}
