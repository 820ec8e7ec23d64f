package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/madickediagne/LOGISEN/internal/config"
	"github.com/madickediagne/LOGISEN/internal/models"
	"github.com/madickediagne/LOGISEN/internal/testutil"
)

func testConfig() *config.Config {
	return &config.Config{
		MinPasswordLen:   6,
		SearchLimit:      50,
		ReadGuardTimeout: 3500 * time.Millisecond,
	}
}

func newTestDB(t *testing.T, suite string) *mongo.Database {
	t.Helper()
	dbName := fmt.Sprintf("testdb_%s_%d", suite, time.Now().UnixNano())
	return testutil.SetupTestDB(t, dbName,
		"users", "listings", "visits", "conversations", "messages", "favorites")
}

func registerTestUser(t *testing.T, svc IUserService, role models.Role, email string) *models.User {
	t.Helper()
	city := ""
	if role == models.RoleLandlord {
		city = "Dakar"
	}
	user, err := svc.Register(context.Background(), RegisterInput{
		Role:     role,
		FullName: "Test " + string(role),
		Phone:    "+221770000000",
		Email:    email,
		City:     city,
		Password: "secret123",
	})
	require.NoError(t, err)
	return user
}

func createTestListing(t *testing.T, svc IListingService, owner *models.User) *models.Listing {
	t.Helper()
	listing, err := svc.CreateListing(context.Background(), owner, CreateListingInput{
		Title: "Chambre à Fann",
		Desc:  "Proche UCAD",
		Price: "50 000 FCFA",
		Area:  "Fann",
		Type:  models.PropertyRoom,
		Phone: "+221771234567",
	})
	require.NoError(t, err)
	return listing
}
