package db

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// LiveQuery describes the query a subscription keeps in sync.
type LiveQuery struct {
	Filter bson.M
	Sort   bson.D
	Limit  int64
}

// pollInterval is the fallback cadence used when change streams are not
// available (standalone mongod without a replica set).
const pollInterval = 2 * time.Second

// Subscribe delivers full result snapshots of the query until ctx is
// cancelled: one initial snapshot, then a fresh one after every change to the
// collection. Each push supersedes the previous one; consumers never merge
// diffs. Read errors degrade to an empty snapshot rather than an error; a
// live view must render "nothing here" instead of crashing. The returned
// channel is closed when ctx ends.
func Subscribe[T any](ctx context.Context, coll *mongo.Collection, q LiveQuery) <-chan []T {
	out := make(chan []T, 1)

	push := func() bool {
		docs, err := runQuery[T](ctx, coll, q)
		if err != nil {
			if ctx.Err() != nil {
				return false
			}
			log.Printf("subscription query on %s failed, delivering empty snapshot: %v", coll.Name(), err)
			docs = []T{}
		}
		select {
		case out <- docs:
			return true
		case <-ctx.Done():
			return false
		}
	}

	go func() {
		defer close(out)

		if !push() {
			return
		}

		stream, err := coll.Watch(ctx, mongo.Pipeline{})
		if err != nil {
			// No change streams on this deployment; poll instead.
			ticker := time.NewTicker(pollInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if !push() {
						return
					}
				}
			}
		}
		defer stream.Close(context.Background())

		for stream.Next(ctx) {
			if !push() {
				return
			}
		}
	}()

	return out
}

func runQuery[T any](ctx context.Context, coll *mongo.Collection, q LiveQuery) ([]T, error) {
	opts := options.Find()
	if q.Sort != nil {
		opts.SetSort(q.Sort)
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}
	filter := q.Filter
	if filter == nil {
		filter = bson.M{}
	}

	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	docs := []T{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}
