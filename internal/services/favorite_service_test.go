package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madickediagne/LOGISEN/internal/apperr"
	"github.com/madickediagne/LOGISEN/internal/models"
	"github.com/madickediagne/LOGISEN/internal/utils"
)

func TestFavoriteService_Toggle(t *testing.T) {
	db := newTestDB(t, "favorite_service")
	cfg := testConfig()
	userSvc := NewUserService(db, cfg)
	listingSvc := NewListingService(db, cfg)
	svc := NewFavoriteService(db, cfg, listingSvc)
	ctx := context.Background()

	landlord := registerTestUser(t, userSvc, models.RoleLandlord, "bailleur@example.sn")
	student := registerTestUser(t, userSvc, models.RoleStudent, "etudiant@example.sn")
	listing := createTestListing(t, listingSvc, landlord)

	favorited, err := svc.Toggle(ctx, student.ID, listing.ID)
	require.NoError(t, err)
	assert.True(t, favorited)

	is, err := svc.IsFavorite(ctx, student.ID, listing.ID)
	require.NoError(t, err)
	assert.True(t, is)

	favorites, err := svc.FindByUser(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, favorites, 1)
	assert.Equal(t, listing.Title, favorites[0].Title)
	assert.Equal(t, listing.Price, favorites[0].Price)
	assert.Equal(t, listing.Area, favorites[0].Area)

	favorited, err = svc.Toggle(ctx, student.ID, listing.ID)
	require.NoError(t, err)
	assert.False(t, favorited)

	is, err = svc.IsFavorite(ctx, student.ID, listing.ID)
	require.NoError(t, err)
	assert.False(t, is)
}

func TestFavoriteService_SnapshotIsNotRefreshed(t *testing.T) {
	db := newTestDB(t, "favorite_service")
	cfg := testConfig()
	userSvc := NewUserService(db, cfg)
	listingSvc := NewListingService(db, cfg)
	svc := NewFavoriteService(db, cfg, listingSvc)
	ctx := context.Background()

	landlord := registerTestUser(t, userSvc, models.RoleLandlord, "bailleur2@example.sn")
	student := registerTestUser(t, userSvc, models.RoleStudent, "etudiant2@example.sn")
	listing := createTestListing(t, listingSvc, landlord)

	_, err := svc.Toggle(ctx, student.ID, listing.ID)
	require.NoError(t, err)

	_, err = listingSvc.UpdateListing(ctx, listing.ID, landlord.ID, map[string]interface{}{
		"price": "99 000 FCFA",
	})
	require.NoError(t, err)

	favorites, err := svc.FindByUser(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, favorites, 1)
	assert.Equal(t, listing.Price, favorites[0].Price, "favorite keeps the price as seen at bookmark time")
}

func TestFavoriteService_ToggleValidation(t *testing.T) {
	db := newTestDB(t, "favorite_service")
	cfg := testConfig()
	listingSvc := NewListingService(db, cfg)
	svc := NewFavoriteService(db, cfg, listingSvc)
	ctx := context.Background()

	_, err := svc.Toggle(ctx, utils.SixID{}, utils.NewSixID())
	assert.True(t, apperr.Is(err, apperr.Unauthenticated))

	// Bookmarking a listing that does not exist fails on the snapshot fetch.
	_, err = svc.Toggle(ctx, utils.NewSixID(), utils.NewSixID())
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestFavoriteService_ListNewestFirst(t *testing.T) {
	db := newTestDB(t, "favorite_service")
	cfg := testConfig()
	userSvc := NewUserService(db, cfg)
	listingSvc := NewListingService(db, cfg)
	svc := NewFavoriteService(db, cfg, listingSvc)
	ctx := context.Background()

	landlord := registerTestUser(t, userSvc, models.RoleLandlord, "bailleur3@example.sn")
	student := registerTestUser(t, userSvc, models.RoleStudent, "etudiant3@example.sn")

	first := createTestListing(t, listingSvc, landlord)
	second, err := listingSvc.CreateListing(ctx, landlord, CreateListingInput{
		Title: "Studio à Mermoz", Price: "90 000 FCFA", Area: "Mermoz", Type: models.PropertyStudio, Phone: "+221771234567",
		Details: &models.ListingDetails{Studio: &models.StudioDetails{Config: models.StudioOneRoomBath}},
	})
	require.NoError(t, err)

	_, err = svc.Toggle(ctx, student.ID, first.ID)
	require.NoError(t, err)
	// created_at has millisecond precision in BSON; keep the two bookmarks apart.
	time.Sleep(5 * time.Millisecond)
	_, err = svc.Toggle(ctx, student.ID, second.ID)
	require.NoError(t, err)

	favorites, err := svc.FindByUser(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, favorites, 2)
	assert.Equal(t, second.ID, favorites[0].ListingID)
	assert.Equal(t, first.ID, favorites[1].ListingID)
}
