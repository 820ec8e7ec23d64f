// Package testutil holds shared helpers for integration tests that need a
// real MongoDB instance.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	loadEnvOnce  sync.Once
	testMongoURI string
)

// loadTestEnv loads .env from the project root so tests can find MongoDB.
func loadTestEnv() {
	loadEnvOnce.Do(func() {
		_, filename, _, _ := runtime.Caller(0)
		projectRoot := filepath.Join(filepath.Dir(filename), "..", "..")
		if err := godotenv.Load(filepath.Join(projectRoot, ".env")); err != nil {
			godotenv.Load()
		}
		testMongoURI = os.Getenv("MONGO_URI_TEST")
		if testMongoURI == "" {
			testMongoURI = os.Getenv("MONGO_URI")
		}
	})
}

// SetupTestDB connects to the test MongoDB instance and drops the given
// collections so each test starts from a clean state. The caller owns the
// returned database; drop it and disconnect in cleanup.
func SetupTestDB(t *testing.T, dbName string, collections ...string) *mongo.Database {
	t.Helper()
	loadTestEnv()
	if testMongoURI == "" {
		t.Skip("MONGO_URI_TEST (or MONGO_URI) not set, skipping MongoDB-backed test")
	}

	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(testMongoURI))
	require.NoError(t, err, "Failed to connect to MongoDB")
	db := client.Database(dbName)

	for _, collection := range collections {
		_ = db.Collection(collection).Drop(context.Background())
	}

	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})

	return db
}
