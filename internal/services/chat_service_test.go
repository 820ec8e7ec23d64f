package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madickediagne/LOGISEN/internal/apperr"
	"github.com/madickediagne/LOGISEN/internal/models"
)

type chatFixture struct {
	svc      IChatService
	student  *models.User
	landlord *models.User
	outsider *models.User
	listing  *models.Listing
}

func setupChatTest(t *testing.T) *chatFixture {
	t.Helper()
	db := newTestDB(t, "chat_service")
	cfg := testConfig()
	userSvc := NewUserService(db, cfg)
	listingSvc := NewListingService(db, cfg)

	landlord := registerTestUser(t, userSvc, models.RoleLandlord, "bailleur@example.sn")
	student := registerTestUser(t, userSvc, models.RoleStudent, "etudiant@example.sn")
	outsider := registerTestUser(t, userSvc, models.RoleStudent, "autre@example.sn")
	listing := createTestListing(t, listingSvc, landlord)

	return &chatFixture{
		svc:      NewChatService(db, cfg, listingSvc, userSvc),
		student:  student,
		landlord: landlord,
		outsider: outsider,
		listing:  listing,
	}
}

func TestChatService_EnsureConversationIsIdempotent(t *testing.T) {
	f := setupChatTest(t)
	ctx := context.Background()

	conv, err := f.svc.EnsureConversation(ctx, f.student, f.listing.ID)
	require.NoError(t, err)

	wantID := fmt.Sprintf("%s_%s_%s", f.listing.ID, f.student.ID, f.landlord.ID)
	assert.Equal(t, wantID, conv.ID)
	assert.Equal(t, f.listing.Title, conv.ListingTitle)
	assert.Equal(t, f.student.FullName, conv.StudentName)
	assert.Equal(t, f.landlord.FullName, conv.LandlordName)
	assert.Empty(t, conv.LastMessage)

	_, err = f.svc.PostMessage(ctx, conv.ID, f.student.ID, "Bonjour")
	require.NoError(t, err)

	// Opening the same thread again returns the existing document, summary
	// included, instead of resetting it.
	again, err := f.svc.EnsureConversation(ctx, f.student, f.listing.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, again.ID)
	assert.Equal(t, "Bonjour", again.LastMessage)
	assert.Equal(t, conv.CreatedAt, again.CreatedAt)
}

func TestChatService_OwnListingRejected(t *testing.T) {
	f := setupChatTest(t)

	_, err := f.svc.EnsureConversation(context.Background(), f.landlord, f.listing.ID)
	assert.True(t, apperr.Is(err, apperr.Validation))
}

func TestChatService_PostMessageUpdatesSummary(t *testing.T) {
	f := setupChatTest(t)
	ctx := context.Background()

	conv, err := f.svc.EnsureConversation(ctx, f.student, f.listing.ID)
	require.NoError(t, err)

	_, err = f.svc.PostMessage(ctx, conv.ID, f.student.ID, "Le studio est-il libre ?")
	require.NoError(t, err)
	_, err = f.svc.PostMessage(ctx, conv.ID, f.landlord.ID, "Oui, dès septembre.")
	require.NoError(t, err)

	refreshed, err := f.svc.FindConversationByID(ctx, conv.ID, f.student.ID)
	require.NoError(t, err)
	assert.Equal(t, "Oui, dès septembre.", refreshed.LastMessage)
	assert.Equal(t, f.landlord.ID.String(), refreshed.LastSenderID)
	assert.False(t, refreshed.UpdatedAt.Before(conv.UpdatedAt))
}

func TestChatService_PostMessageValidation(t *testing.T) {
	f := setupChatTest(t)
	ctx := context.Background()

	conv, err := f.svc.EnsureConversation(ctx, f.student, f.listing.ID)
	require.NoError(t, err)

	_, err = f.svc.PostMessage(ctx, conv.ID, f.student.ID, "   ")
	assert.True(t, apperr.Is(err, apperr.Validation))

	_, err = f.svc.PostMessage(ctx, conv.ID, f.outsider.ID, "Je m'incruste")
	assert.True(t, apperr.Is(err, apperr.PermissionDenied))
}

func TestChatService_MessagesOldestFirst(t *testing.T) {
	f := setupChatTest(t)
	ctx := context.Background()

	conv, err := f.svc.EnsureConversation(ctx, f.student, f.listing.ID)
	require.NoError(t, err)

	for _, text := range []string{"un", "deux", "trois"} {
		_, err = f.svc.PostMessage(ctx, conv.ID, f.student.ID, text)
		require.NoError(t, err)
		// created_at has millisecond precision in BSON; keep messages apart.
		time.Sleep(5 * time.Millisecond)
	}

	messages, err := f.svc.FindMessages(ctx, conv.ID, f.landlord.ID)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "un", messages[0].Text)
	assert.Equal(t, "trois", messages[2].Text)

	_, err = f.svc.FindMessages(ctx, conv.ID, f.outsider.ID)
	assert.True(t, apperr.Is(err, apperr.PermissionDenied))
}

func TestChatService_ListByUser(t *testing.T) {
	f := setupChatTest(t)
	ctx := context.Background()

	conv, err := f.svc.EnsureConversation(ctx, f.student, f.listing.ID)
	require.NoError(t, err)

	for _, u := range []*models.User{f.student, f.landlord} {
		conversations, err := f.svc.FindConversationsByUser(ctx, u.ID)
		require.NoError(t, err)
		require.Len(t, conversations, 1)
		assert.Equal(t, conv.ID, conversations[0].ID)
	}

	conversations, err := f.svc.FindConversationsByUser(ctx, f.outsider.ID)
	require.NoError(t, err)
	assert.Empty(t, conversations)
}

func TestChatService_SubscribeRequiresParticipation(t *testing.T) {
	f := setupChatTest(t)
	ctx := context.Background()

	conv, err := f.svc.EnsureConversation(ctx, f.student, f.listing.ID)
	require.NoError(t, err)

	_, err = f.svc.SubscribeMessages(ctx, conv.ID, f.outsider.ID)
	assert.True(t, apperr.Is(err, apperr.PermissionDenied))
}
