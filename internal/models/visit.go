package models

import (
	"time"

	"github.com/madickediagne/LOGISEN/internal/utils"
)

// VisitStatus is the lifecycle state of a viewing appointment request.
type VisitStatus string

const (
	VisitPending   VisitStatus = "pending"
	VisitConfirmed VisitStatus = "confirmed"
	VisitDone      VisitStatus = "done"
	VisitCancelled VisitStatus = "cancelled"
)

// Valid reports whether the status is one of the known values.
func (s VisitStatus) Valid() bool {
	switch s {
	case VisitPending, VisitConfirmed, VisitDone, VisitCancelled:
		return true
	}
	return false
}

// Active reports whether the status blocks a new request for the same
// (listing, student) pair.
func (s VisitStatus) Active() bool {
	return s == VisitPending || s == VisitConfirmed
}

// visitTransitions is the full transition table. Re-opening after
// cancellation is not a transition of the old record: the student creates a
// brand-new request and the cancelled one stays as history.
var visitTransitions = map[VisitStatus][]VisitStatus{
	VisitPending:   {VisitConfirmed, VisitCancelled},
	VisitConfirmed: {VisitDone, VisitCancelled},
	VisitDone:      {},
	VisitCancelled: {},
}

// CanTransition reports whether a visit may move from one status to another.
func CanTransition(from, to VisitStatus) bool {
	for _, next := range visitTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// visitLabels maps (status, date set?) to the composite display message.
// Keyed lookup rather than per-screen strings so every surface shows the
// same wording.
var visitLabels = map[VisitStatus][2]string{
	// [date unset, date set]
	VisitPending:   {"En attente de confirmation", "En attente de confirmation finale"},
	VisitConfirmed: {"Visite confirmée, date à définir", "Visite confirmée"},
	VisitDone:      {"Visite terminée", "Visite terminée"},
	VisitCancelled: {"Visite annulée", "Visite annulée"},
}

// VisitStatusLabel returns the human-readable composite message for a status
// and its scheduling state.
func VisitStatusLabel(status VisitStatus, date string) string {
	labels, ok := visitLabels[status]
	if !ok {
		return "Statut inconnu"
	}
	if date == "" {
		return labels[0]
	}
	return labels[1]
}

// VisitRequest is a student's viewing-appointment request on a listing.
// Listing and student fields are denormalized snapshots taken at creation;
// they deliberately do not track later edits to the source documents.
type VisitRequest struct {
	ID           utils.SixID `bson:"_id,omitempty" json:"id,omitempty"`
	ListingID    utils.SixID `bson:"listing_id" json:"listing_id"`
	ListingTitle string      `bson:"listing_title" json:"listing_title"`
	ListingArea  string      `bson:"listing_area" json:"listing_area"`
	LandlordID   utils.SixID `bson:"landlord_id" json:"landlord_id"`
	StudentID    utils.SixID `bson:"student_id" json:"student_id"`
	StudentName  string      `bson:"student_name" json:"student_name"`
	StudentPhone string      `bson:"student_phone" json:"student_phone"`
	Date         string      `bson:"date" json:"date"` // free text; "" means unscheduled
	Status       VisitStatus `bson:"status" json:"status"`
	CreatedAt    time.Time   `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time   `bson:"updated_at" json:"updated_at"`
}

// StatusLabel returns the composite display message for this request.
func (v *VisitRequest) StatusLabel() string {
	return VisitStatusLabel(v.Status, v.Date)
}
