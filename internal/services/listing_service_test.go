package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madickediagne/LOGISEN/internal/apperr"
	"github.com/madickediagne/LOGISEN/internal/models"
	"github.com/madickediagne/LOGISEN/internal/utils"
)

func TestListingService_CreateRequiresLandlord(t *testing.T) {
	db := newTestDB(t, "listing_service")
	cfg := testConfig()
	userSvc := NewUserService(db, cfg)
	svc := NewListingService(db, cfg)

	student := registerTestUser(t, userSvc, models.RoleStudent, "etudiant@example.sn")

	_, err := svc.CreateListing(context.Background(), student, CreateListingInput{
		Title: "Chambre", Price: "40000", Area: "Fann", Type: models.PropertyRoom, Phone: "+221770000000",
	})
	assert.True(t, apperr.Is(err, apperr.PermissionDenied))

	_, err = svc.CreateListing(context.Background(), nil, CreateListingInput{})
	assert.True(t, apperr.Is(err, apperr.Unauthenticated))
}

func TestListingService_CreateAndFind(t *testing.T) {
	db := newTestDB(t, "listing_service")
	cfg := testConfig()
	userSvc := NewUserService(db, cfg)
	svc := NewListingService(db, cfg)

	landlord := registerTestUser(t, userSvc, models.RoleLandlord, "bailleur@example.sn")
	listing := createTestListing(t, svc, landlord)

	assert.Equal(t, landlord.ID, listing.OwnerID)
	assert.NotNil(t, listing.Images, "images must marshal as an empty array, not null")

	fetched, err := svc.FindListingByID(context.Background(), listing.ID)
	require.NoError(t, err)
	assert.Equal(t, listing.Title, fetched.Title)

	_, err = svc.FindListingByID(context.Background(), utils.NewSixID())
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestListingService_DetailsValidation(t *testing.T) {
	db := newTestDB(t, "listing_service")
	cfg := testConfig()
	userSvc := NewUserService(db, cfg)
	svc := NewListingService(db, cfg)

	landlord := registerTestUser(t, userSvc, models.RoleLandlord, "bailleur2@example.sn")

	// A studio needs its configuration variant.
	_, err := svc.CreateListing(context.Background(), landlord, CreateListingInput{
		Title: "Studio", Price: "80000", Area: "Point E", Type: models.PropertyStudio, Phone: "+221770000000",
	})
	assert.True(t, apperr.Is(err, apperr.Validation))

	listing, err := svc.CreateListing(context.Background(), landlord, CreateListingInput{
		Title: "Studio", Price: "80000", Area: "Point E", Type: models.PropertyStudio, Phone: "+221770000000",
		Details: &models.ListingDetails{Studio: &models.StudioDetails{Config: models.StudioOneRoomBath}},
	})
	require.NoError(t, err)
	assert.Equal(t, models.StudioOneRoomBath, listing.Details.Studio.Config)

	// An apartment needs its bedroom count.
	_, err = svc.CreateListing(context.Background(), landlord, CreateListingInput{
		Title: "Appartement", Price: "150000", Area: "Almadies", Type: models.PropertyApartment, Phone: "+221770000000",
		Details: &models.ListingDetails{Apartment: &models.ApartmentDetails{}},
	})
	assert.True(t, apperr.Is(err, apperr.Validation))
}

func TestListingService_UpdateOwnership(t *testing.T) {
	db := newTestDB(t, "listing_service")
	cfg := testConfig()
	userSvc := NewUserService(db, cfg)
	svc := NewListingService(db, cfg)

	owner := registerTestUser(t, userSvc, models.RoleLandlord, "owner@example.sn")
	other := registerTestUser(t, userSvc, models.RoleLandlord, "other@example.sn")
	listing := createTestListing(t, svc, owner)

	updated, err := svc.UpdateListing(context.Background(), listing.ID, owner.ID, map[string]interface{}{
		"title": "Chambre rénovée",
		"price": "55 000 FCFA",
	})
	require.NoError(t, err)
	assert.Equal(t, "Chambre rénovée", updated.Title)
	assert.Equal(t, owner.ID, updated.OwnerID, "ownership never changes on update")

	// A foreign actor on an existing listing is a permission problem, not a
	// missing document.
	_, err = svc.UpdateListing(context.Background(), listing.ID, other.ID, map[string]interface{}{
		"title": "Piratée",
	})
	assert.True(t, apperr.Is(err, apperr.PermissionDenied))

	// A missing listing is NotFound regardless of the actor.
	_, err = svc.UpdateListing(context.Background(), utils.NewSixID(), other.ID, map[string]interface{}{
		"title": "Fantôme",
	})
	assert.True(t, apperr.Is(err, apperr.NotFound))

	// owner_id is not an updatable field.
	_, err = svc.UpdateListing(context.Background(), listing.ID, owner.ID, map[string]interface{}{
		"owner_id": other.ID,
	})
	assert.True(t, apperr.Is(err, apperr.Validation))
}

func TestListingService_DeleteHidesListing(t *testing.T) {
	db := newTestDB(t, "listing_service")
	cfg := testConfig()
	userSvc := NewUserService(db, cfg)
	svc := NewListingService(db, cfg)

	owner := registerTestUser(t, userSvc, models.RoleLandlord, "owner3@example.sn")
	other := registerTestUser(t, userSvc, models.RoleLandlord, "other3@example.sn")
	listing := createTestListing(t, svc, owner)

	err := svc.DeleteListing(context.Background(), listing.ID, other.ID)
	assert.True(t, apperr.Is(err, apperr.PermissionDenied))

	require.NoError(t, svc.DeleteListing(context.Background(), listing.ID, owner.ID))

	_, err = svc.FindListingByID(context.Background(), listing.ID)
	assert.True(t, apperr.Is(err, apperr.NotFound))

	listings, err := svc.FindListingsByOwner(context.Background(), owner.ID)
	require.NoError(t, err)
	assert.Empty(t, listings)
}

func TestListingService_Search(t *testing.T) {
	db := newTestDB(t, "listing_service")
	cfg := testConfig()
	userSvc := NewUserService(db, cfg)
	svc := NewListingService(db, cfg)

	owner := registerTestUser(t, userSvc, models.RoleLandlord, "owner4@example.sn")

	_, err := svc.CreateListing(context.Background(), owner, CreateListingInput{
		Title: "Chambre à Fann", Price: "45 000 FCFA", Area: "Fann", Type: models.PropertyRoom, Phone: "+221770000000",
	})
	require.NoError(t, err)
	_, err = svc.CreateListing(context.Background(), owner, CreateListingInput{
		Title: "Studio aux Almadies", Price: "120 000 FCFA", Area: "Almadies", Type: models.PropertyStudio, Phone: "+221770000000",
		Details: &models.ListingDetails{Studio: &models.StudioDetails{Config: models.StudioTwoRoomsBath}},
	})
	require.NoError(t, err)

	max := 50000
	results, err := svc.SearchListings(context.Background(), ListingFilter{MaxPrice: &max}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Chambre à Fann", results[0].Title)

	results, err = svc.SearchListings(context.Background(), ListingFilter{Campus: "UCAD"}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Fann", results[0].Area)

	results, err = svc.SearchListings(context.Background(), ListingFilter{}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestListingService_AddImage(t *testing.T) {
	db := newTestDB(t, "listing_service")
	cfg := testConfig()
	userSvc := NewUserService(db, cfg)
	svc := NewListingService(db, cfg)

	owner := registerTestUser(t, userSvc, models.RoleLandlord, "owner5@example.sn")
	listing := createTestListing(t, svc, owner)

	require.NoError(t, svc.AddImageToListing(context.Background(), listing.ID, owner.ID, "https://img.example/1.jpg"))
	require.NoError(t, svc.AddImageToListing(context.Background(), listing.ID, owner.ID, "https://img.example/2.jpg"))

	fetched, err := svc.FindListingByID(context.Background(), listing.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://img.example/1.jpg", "https://img.example/2.jpg"}, fetched.Images, "upload order is display order")
}
