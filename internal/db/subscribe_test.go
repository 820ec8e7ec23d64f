package db

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/madickediagne/LOGISEN/internal/testutil"
)

type subscribeDoc struct {
	ID   string `bson:"_id"`
	Name string `bson:"name"`
	Rank int    `bson:"rank"`
}

func TestSubscribe_InitialSnapshotAndClose(t *testing.T) {
	dbName := fmt.Sprintf("testdb_subscribe_%d", time.Now().UnixNano())
	db := testutil.SetupTestDB(t, dbName, "docs")
	coll := db.Collection("docs")

	_, err := coll.InsertOne(context.Background(), subscribeDoc{ID: "a", Name: "first", Rank: 2})
	require.NoError(t, err)
	_, err = coll.InsertOne(context.Background(), subscribeDoc{ID: "b", Name: "second", Rank: 1})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	snapshots := Subscribe[subscribeDoc](ctx, coll, LiveQuery{
		Sort: bson.D{{Key: "rank", Value: 1}},
	})

	select {
	case snap := <-snapshots:
		require.Len(t, snap, 2)
		assert.Equal(t, "second", snap[0].Name, "snapshot must respect the query sort")
	case <-time.After(5 * time.Second):
		t.Fatal("no initial snapshot delivered")
	}

	cancel()

	// The channel closes once the context ends; draining must terminate.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, open := <-snapshots:
			if !open {
				return
			}
		case <-deadline:
			t.Fatal("subscription channel never closed after cancellation")
		}
	}
}

func TestSubscribe_DeliversChanges(t *testing.T) {
	dbName := fmt.Sprintf("testdb_subscribe_%d", time.Now().UnixNano())
	db := testutil.SetupTestDB(t, dbName, "docs")
	coll := db.Collection("docs")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshots := Subscribe[subscribeDoc](ctx, coll, LiveQuery{
		Filter: bson.M{"name": "wanted"},
	})

	select {
	case snap := <-snapshots:
		assert.Empty(t, snap)
	case <-time.After(5 * time.Second):
		t.Fatal("no initial snapshot delivered")
	}

	_, err := coll.InsertOne(context.Background(), subscribeDoc{ID: "x", Name: "wanted"})
	require.NoError(t, err)

	// Change streams push promptly; the poll fallback needs up to a tick.
	deadline := time.After(10 * time.Second)
	for {
		select {
		case snap, open := <-snapshots:
			require.True(t, open, "channel closed before delivering the change")
			if len(snap) == 1 && snap[0].ID == "x" {
				return
			}
		case <-deadline:
			t.Fatal("insert never reflected in a snapshot")
		}
	}
}
