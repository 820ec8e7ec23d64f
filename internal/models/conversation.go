package models

import (
	"strings"
	"time"

	"github.com/madickediagne/LOGISEN/internal/apperr"
	"github.com/madickediagne/LOGISEN/internal/utils"
)

// conversationIDSep joins the three parts of a conversation id. SixID
// strings are Crockford Base32 and can never contain it, so concatenation
// stays unambiguous.
const conversationIDSep = "_"

// ResolveConversationID derives the stable thread key for a
// (listing, student, landlord) triple. Pure and deterministic: the same
// triple always resolves to the same id, so re-contacting a landlord about
// the same listing reuses the existing thread instead of opening a new one.
func ResolveConversationID(listingID, studentID, landlordID string) (string, error) {
	for _, part := range []string{listingID, studentID, landlordID} {
		if part == "" {
			return "", apperr.New(apperr.Validation, "conversation id part must not be empty")
		}
		if strings.Contains(part, conversationIDSep) {
			return "", apperr.Newf(apperr.Validation, "conversation id part %q contains reserved separator", part)
		}
	}
	return listingID + conversationIDSep + studentID + conversationIDSep + landlordID, nil
}

// Conversation is a two-party thread about a listing. Its _id is the derived
// key from ResolveConversationID, created lazily on first contact and never
// deleted. Participants holds exactly the two uids and is the sole
// authorization check for thread visibility.
type Conversation struct {
	ID           string      `bson:"_id" json:"id"`
	ListingID    utils.SixID `bson:"listing_id" json:"listing_id"`
	ListingTitle string      `bson:"listing_title" json:"listing_title"`
	StudentID    utils.SixID `bson:"student_id" json:"student_id"`
	LandlordID   utils.SixID `bson:"landlord_id" json:"landlord_id"`
	StudentName  string      `bson:"student_name" json:"student_name"`
	LandlordName string      `bson:"landlord_name" json:"landlord_name"`
	Participants []string    `bson:"participants" json:"participants"`
	LastMessage  string      `bson:"last_message" json:"last_message"`
	LastSenderID string      `bson:"last_sender_id" json:"last_sender_id"`
	CreatedAt    time.Time   `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time   `bson:"updated_at" json:"updated_at"`
}

// Message is a single chat entry. Messages are append-only: never mutated,
// never deleted, ordered by CreatedAt ascending within their conversation.
type Message struct {
	ID             utils.SixID `bson:"_id,omitempty" json:"id,omitempty"`
	ConversationID string      `bson:"conversation_id" json:"conversation_id"`
	Text           string      `bson:"text" json:"text"`
	SenderID       string      `bson:"sender_id" json:"sender_id"`
	CreatedAt      time.Time   `bson:"created_at" json:"created_at"`
}
