package services

import (
	"context"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/madickediagne/LOGISEN/internal/apperr"
	"github.com/madickediagne/LOGISEN/internal/config"
	"github.com/madickediagne/LOGISEN/internal/db"
	"github.com/madickediagne/LOGISEN/internal/models"
	"github.com/madickediagne/LOGISEN/internal/utils"
)

// IChatService defines the interface for conversation and message operations.
type IChatService interface {
	EnsureConversation(ctx context.Context, student *models.User, listingID utils.SixID) (*models.Conversation, error)
	FindConversationByID(ctx context.Context, conversationID string, actorID utils.SixID) (*models.Conversation, error)
	FindConversationsByUser(ctx context.Context, userID utils.SixID) ([]models.Conversation, error)
	PostMessage(ctx context.Context, conversationID string, senderID utils.SixID, text string) (*models.Message, error)
	FindMessages(ctx context.Context, conversationID string, actorID utils.SixID) ([]models.Message, error)
	SubscribeConversations(ctx context.Context, userID utils.SixID) <-chan []models.Conversation
	SubscribeMessages(ctx context.Context, conversationID string, actorID utils.SixID) (<-chan []models.Message, error)
}

const (
	conversationsCollection = "conversations"
	messagesCollection      = "messages"
)

// chatService implements IChatService.
type chatService struct {
	db             *mongo.Database
	cfg            *config.Config
	listingService IListingService
	userService    IUserService
}

// NewChatService creates a new ChatService.
func NewChatService(db *mongo.Database, cfg *config.Config, listingService IListingService, userService IUserService) IChatService {
	return &chatService{db: db, cfg: cfg, listingService: listingService, userService: userService}
}

// EnsureConversation opens (or returns) the thread between a student and the
// landlord of a listing. The thread id is derived from the triple, so
// contacting the same landlord about the same listing always lands in the
// same conversation. Idempotent: an upsert on the derived _id either creates
// the document with its snapshots or leaves the existing one untouched.
func (s *chatService) EnsureConversation(ctx context.Context, student *models.User, listingID utils.SixID) (*models.Conversation, error) {
	if student == nil || student.ID.IsZero() {
		return nil, apperr.New(apperr.Unauthenticated, "student identity required")
	}

	listing, err := s.listingService.FindListingByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.OwnerID == student.ID {
		return nil, apperr.New(apperr.Validation, "cannot open a conversation with yourself")
	}

	landlord, err := s.userService.FindByID(ctx, listing.OwnerID)
	if err != nil {
		return nil, err
	}

	convID, err := models.ResolveConversationID(listingID.String(), student.ID.String(), landlord.ID.String())
	if err != nil {
		return nil, err
	}

	collection := s.db.Collection(conversationsCollection)
	now := time.Now().UTC()

	// $setOnInsert keeps the snapshots and timestamps of an existing thread
	// intact; only a brand-new document gets them.
	update := bson.M{"$setOnInsert": bson.M{
		"listing_id":     listingID,
		"listing_title":  listing.Title,
		"student_id":     student.ID,
		"landlord_id":    landlord.ID,
		"student_name":   student.FullName,
		"landlord_name":  landlord.FullName,
		"participants":   []string{student.ID.String(), landlord.ID.String()},
		"last_message":   "",
		"last_sender_id": "",
		"created_at":     now,
		"updated_at":     now,
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var conv models.Conversation
	if err := collection.FindOneAndUpdate(ctx, bson.M{"_id": convID}, update, opts).Decode(&conv); err != nil {
		return nil, apperr.FromMongo(err, "conversation")
	}
	return &conv, nil
}

// FindConversationByID fetches a thread the actor participates in.
// Membership in participants is the only visibility rule.
func (s *chatService) FindConversationByID(ctx context.Context, conversationID string, actorID utils.SixID) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.db.Collection(conversationsCollection).FindOne(ctx, bson.M{"_id": conversationID}).Decode(&conv)
	if err != nil {
		return nil, apperr.FromMongo(err, "conversation")
	}
	if !isParticipant(&conv, actorID) {
		return nil, apperr.New(apperr.PermissionDenied, "not a participant of this conversation")
	}
	return &conv, nil
}

// FindConversationsByUser returns all threads the user participates in,
// most recently active first.
func (s *chatService) FindConversationsByUser(ctx context.Context, userID utils.SixID) ([]models.Conversation, error) {
	collection := s.db.Collection(conversationsCollection)
	filter := bson.M{"participants": userID.String()}
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, apperr.FromMongo(err, "conversations")
	}
	defer cursor.Close(ctx)

	conversations := []models.Conversation{}
	if err := cursor.All(ctx, &conversations); err != nil {
		return nil, apperr.FromMongo(err, "conversations")
	}
	return conversations, nil
}

// PostMessage appends a message to a thread the sender participates in and
// refreshes the thread summary. The message append is the operation that
// must succeed; a failed summary update is logged and the message stands.
func (s *chatService) PostMessage(ctx context.Context, conversationID string, senderID utils.SixID, text string) (*models.Message, error) {
	if senderID.IsZero() {
		return nil, apperr.New(apperr.Unauthenticated, "sender identity required")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.New(apperr.Validation, "message text must not be empty")
	}

	if _, err := s.FindConversationByID(ctx, conversationID, senderID); err != nil {
		return nil, err
	}

	collection := s.db.Collection(messagesCollection)
	now := time.Now().UTC()

	var msg *models.Message
	operation := func() error {
		msg = &models.Message{
			ID:             utils.NewSixID(),
			ConversationID: conversationID,
			Text:           text,
			SenderID:       senderID.String(),
			CreatedAt:      now,
		}
		_, insertErr := collection.InsertOne(ctx, msg)
		return insertErr
	}
	if err := db.Try(operation); err != nil {
		return nil, apperr.FromMongo(err, "message")
	}

	summary := bson.M{"$set": bson.M{
		"last_message":   text,
		"last_sender_id": senderID.String(),
		"updated_at":     now,
	}}
	if _, err := s.db.Collection(conversationsCollection).UpdateOne(ctx, bson.M{"_id": conversationID}, summary); err != nil {
		log.Printf("Error updating conversation summary for %s: %v", conversationID, err)
	}

	return msg, nil
}

// FindMessages returns a thread's messages, oldest first.
func (s *chatService) FindMessages(ctx context.Context, conversationID string, actorID utils.SixID) ([]models.Message, error) {
	if _, err := s.FindConversationByID(ctx, conversationID, actorID); err != nil {
		return nil, err
	}

	collection := s.db.Collection(messagesCollection)
	filter := bson.M{"conversation_id": conversationID}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, apperr.FromMongo(err, "messages")
	}
	defer cursor.Close(ctx)

	messages := []models.Message{}
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, apperr.FromMongo(err, "messages")
	}
	return messages, nil
}

// SubscribeConversations streams snapshots of the user's thread list, most
// recently active first.
func (s *chatService) SubscribeConversations(ctx context.Context, userID utils.SixID) <-chan []models.Conversation {
	return db.Subscribe[models.Conversation](ctx, s.db.Collection(conversationsCollection), db.LiveQuery{
		Filter: bson.M{"participants": userID.String()},
		Sort:   bson.D{{Key: "updated_at", Value: -1}},
	})
}

// SubscribeMessages streams snapshots of a thread's messages, oldest first.
// Participation is verified once at subscription time.
func (s *chatService) SubscribeMessages(ctx context.Context, conversationID string, actorID utils.SixID) (<-chan []models.Message, error) {
	if _, err := s.FindConversationByID(ctx, conversationID, actorID); err != nil {
		return nil, err
	}
	return db.Subscribe[models.Message](ctx, s.db.Collection(messagesCollection), db.LiveQuery{
		Filter: bson.M{"conversation_id": conversationID},
		Sort:   bson.D{{Key: "created_at", Value: 1}},
	}), nil
}

func isParticipant(conv *models.Conversation, userID utils.SixID) bool {
	uid := userID.String()
	for _, p := range conv.Participants {
		if p == uid {
			return true
		}
	}
	return false
}
