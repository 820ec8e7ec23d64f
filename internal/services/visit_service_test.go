package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madickediagne/LOGISEN/internal/apperr"
	"github.com/madickediagne/LOGISEN/internal/models"
)

type visitFixture struct {
	svc      IVisitService
	student  *models.User
	landlord *models.User
	listing  *models.Listing
}

func setupVisitTest(t *testing.T) *visitFixture {
	t.Helper()
	db := newTestDB(t, "visit_service")
	cfg := testConfig()
	userSvc := NewUserService(db, cfg)
	listingSvc := NewListingService(db, cfg)

	landlord := registerTestUser(t, userSvc, models.RoleLandlord, "bailleur@example.sn")
	student := registerTestUser(t, userSvc, models.RoleStudent, "etudiant@example.sn")
	listing := createTestListing(t, listingSvc, landlord)

	return &visitFixture{
		svc:      NewVisitService(db, cfg, listingSvc, nil),
		student:  student,
		landlord: landlord,
		listing:  listing,
	}
}

func TestVisitService_CreateSnapshotsListingAndStudent(t *testing.T) {
	f := setupVisitTest(t)

	visit, err := f.svc.CreateVisitRequest(context.Background(), f.student, f.listing.ID)
	require.NoError(t, err)

	assert.Equal(t, models.VisitPending, visit.Status)
	assert.Empty(t, visit.Date)
	assert.Equal(t, f.listing.Title, visit.ListingTitle)
	assert.Equal(t, f.listing.Area, visit.ListingArea)
	assert.Equal(t, f.landlord.ID, visit.LandlordID)
	assert.Equal(t, f.student.FullName, visit.StudentName)
	assert.Equal(t, f.student.Phone, visit.StudentPhone)
	assert.Equal(t, "En attente de confirmation", visit.StatusLabel())
}

func TestVisitService_DuplicateActiveRequest(t *testing.T) {
	f := setupVisitTest(t)

	_, err := f.svc.CreateVisitRequest(context.Background(), f.student, f.listing.ID)
	require.NoError(t, err)

	_, err = f.svc.CreateVisitRequest(context.Background(), f.student, f.listing.ID)
	assert.ErrorIs(t, err, ErrDuplicateActiveVisit)
	assert.True(t, apperr.Is(err, apperr.DuplicateActiveRequest))
}

func TestVisitService_Lifecycle(t *testing.T) {
	f := setupVisitTest(t)
	ctx := context.Background()

	visit, err := f.svc.CreateVisitRequest(ctx, f.student, f.listing.ID)
	require.NoError(t, err)

	// Student cannot decide the outcome.
	_, err = f.svc.UpdateStatus(ctx, visit.ID, f.student.ID, models.VisitConfirmed)
	assert.True(t, apperr.Is(err, apperr.PermissionDenied))

	// pending -> done skips confirmation and is rejected.
	_, err = f.svc.UpdateStatus(ctx, visit.ID, f.landlord.ID, models.VisitDone)
	assert.True(t, apperr.Is(err, apperr.Validation))

	confirmed, err := f.svc.UpdateStatus(ctx, visit.ID, f.landlord.ID, models.VisitConfirmed)
	require.NoError(t, err)
	assert.Equal(t, models.VisitConfirmed, confirmed.Status)
	assert.Equal(t, "Visite confirmée, date à définir", confirmed.StatusLabel())

	dated, err := f.svc.UpdateDate(ctx, visit.ID, f.landlord.ID, "samedi 14h")
	require.NoError(t, err)
	assert.Equal(t, "samedi 14h", dated.Date)
	assert.Equal(t, "Visite confirmée", dated.StatusLabel())

	done, err := f.svc.UpdateStatus(ctx, visit.ID, f.landlord.ID, models.VisitDone)
	require.NoError(t, err)
	assert.Equal(t, models.VisitDone, done.Status)

	// Terminal states accept no further transitions.
	_, err = f.svc.UpdateStatus(ctx, visit.ID, f.landlord.ID, models.VisitCancelled)
	assert.True(t, apperr.Is(err, apperr.Validation))
}

func TestVisitService_CancelledIsNotReopened(t *testing.T) {
	f := setupVisitTest(t)
	ctx := context.Background()

	visit, err := f.svc.CreateVisitRequest(ctx, f.student, f.listing.ID)
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, visit.ID, f.landlord.ID, models.VisitCancelled)
	require.NoError(t, err)

	// Cancelled is terminal.
	_, err = f.svc.UpdateStatus(ctx, visit.ID, f.landlord.ID, models.VisitConfirmed)
	assert.True(t, apperr.Is(err, apperr.Validation))

	// The student starts over with a fresh request; the cancelled one stays
	// as history.
	fresh, err := f.svc.CreateVisitRequest(ctx, f.student, f.listing.ID)
	require.NoError(t, err)
	assert.NotEqual(t, visit.ID, fresh.ID)
	assert.Equal(t, models.VisitPending, fresh.Status)

	visits, err := f.svc.FindVisitsByStudent(ctx, f.student.ID)
	require.NoError(t, err)
	assert.Len(t, visits, 2)
}

func TestVisitService_DateIndependentOfStatus(t *testing.T) {
	f := setupVisitTest(t)
	ctx := context.Background()

	visit, err := f.svc.CreateVisitRequest(ctx, f.student, f.listing.ID)
	require.NoError(t, err)

	// The date may be set while still pending.
	dated, err := f.svc.UpdateDate(ctx, visit.ID, f.landlord.ID, "lundi 9h")
	require.NoError(t, err)
	assert.Equal(t, "En attente de confirmation finale", dated.StatusLabel())

	_, err = f.svc.UpdateStatus(ctx, visit.ID, f.landlord.ID, models.VisitCancelled)
	require.NoError(t, err)

	// And even after a terminal transition; the label ignores it.
	dated, err = f.svc.UpdateDate(ctx, visit.ID, f.landlord.ID, "mardi 14h")
	require.NoError(t, err)
	assert.Equal(t, "mardi 14h", dated.Date)
	assert.Equal(t, "Visite annulée", dated.StatusLabel())

	// Only the landlord may schedule.
	_, err = f.svc.UpdateDate(ctx, visit.ID, f.student.ID, "mercredi 10h")
	assert.True(t, apperr.Is(err, apperr.PermissionDenied))
}

func TestVisitService_OwnListingRejected(t *testing.T) {
	f := setupVisitTest(t)

	_, err := f.svc.CreateVisitRequest(context.Background(), f.landlord, f.listing.ID)
	assert.Error(t, err)
}

func TestVisitService_ListByLandlord(t *testing.T) {
	f := setupVisitTest(t)
	ctx := context.Background()

	_, err := f.svc.CreateVisitRequest(ctx, f.student, f.listing.ID)
	require.NoError(t, err)

	visits, err := f.svc.FindVisitsByLandlord(ctx, f.landlord.ID)
	require.NoError(t, err)
	require.Len(t, visits, 1)
	assert.Equal(t, f.student.ID, visits[0].StudentID)

	visits, err = f.svc.FindVisitsByLandlord(ctx, f.student.ID)
	require.NoError(t, err)
	assert.Empty(t, visits)
}
