package services

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/madickediagne/LOGISEN/internal/apperr"
	"github.com/madickediagne/LOGISEN/internal/config"
	"github.com/madickediagne/LOGISEN/internal/db"
	"github.com/madickediagne/LOGISEN/internal/models"
	"github.com/madickediagne/LOGISEN/internal/utils"
)

// ErrDuplicateActiveVisit is returned when a student already has a pending or
// confirmed request on the same listing.
var ErrDuplicateActiveVisit = apperr.New(apperr.DuplicateActiveRequest, "an active visit request already exists for this listing")

// TypeVisitNotify is the background task enqueued when a visit request is
// created or its status changes, so the other party gets an email.
const TypeVisitNotify = "visit:notify"

// VisitNotifyPayload is the task payload for visit notifications.
type VisitNotifyPayload struct {
	VisitID string `json:"visit_id"`
	Event   string `json:"event"` // "created", "confirmed", "done", "cancelled", "rescheduled"
}

// IVisitService defines the interface for visit request operations.
type IVisitService interface {
	CreateVisitRequest(ctx context.Context, student *models.User, listingID utils.SixID) (*models.VisitRequest, error)
	UpdateStatus(ctx context.Context, visitID, actorID utils.SixID, newStatus models.VisitStatus) (*models.VisitRequest, error)
	UpdateDate(ctx context.Context, visitID, actorID utils.SixID, date string) (*models.VisitRequest, error)
	FindVisitByID(ctx context.Context, visitID utils.SixID) (*models.VisitRequest, error)
	FindVisitsByLandlord(ctx context.Context, landlordID utils.SixID) ([]models.VisitRequest, error)
	FindVisitsByStudent(ctx context.Context, studentID utils.SixID) ([]models.VisitRequest, error)
	SubscribeLandlordVisits(ctx context.Context, landlordID utils.SixID) <-chan []models.VisitRequest
	SubscribeStudentVisits(ctx context.Context, studentID utils.SixID) <-chan []models.VisitRequest
}

const visitsCollection = "visits"

// visitService implements IVisitService.
type visitService struct {
	db             *mongo.Database
	cfg            *config.Config
	listingService IListingService
	taskClient     *asynq.Client // nil when running without a task backend
}

// NewVisitService creates a new VisitService.
func NewVisitService(db *mongo.Database, cfg *config.Config, listingService IListingService, taskClient *asynq.Client) IVisitService {
	return &visitService{db: db, cfg: cfg, listingService: listingService, taskClient: taskClient}
}

// CreateVisitRequest opens a new pending request from a student on a listing.
// Listing and student details are snapshotted onto the document at this
// moment. A pre-check gives a friendly duplicate error; the partial unique
// index on (listing_id, student_id) over active statuses closes the race the
// pre-check leaves open.
func (s *visitService) CreateVisitRequest(ctx context.Context, student *models.User, listingID utils.SixID) (*models.VisitRequest, error) {
	if student == nil || student.ID.IsZero() {
		return nil, apperr.New(apperr.Unauthenticated, "student identity required")
	}
	if student.Role != models.RoleStudent {
		return nil, apperr.New(apperr.PermissionDenied, "only students can request visits")
	}

	listing, err := s.listingService.FindListingByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.OwnerID == student.ID {
		return nil, apperr.New(apperr.Validation, "cannot request a visit on your own listing")
	}

	collection := s.db.Collection(visitsCollection)

	activeFilter := bson.M{
		"listing_id": listingID,
		"student_id": student.ID,
		"status":     bson.M{"$in": bson.A{models.VisitPending, models.VisitConfirmed}},
	}
	count, err := collection.CountDocuments(ctx, activeFilter)
	if err != nil {
		return nil, apperr.FromMongo(err, "visit request")
	}
	if count > 0 {
		return nil, ErrDuplicateActiveVisit
	}

	now := time.Now().UTC()
	var visit *models.VisitRequest
	operation := func() error {
		visit = &models.VisitRequest{
			ID:           utils.NewSixID(),
			ListingID:    listingID,
			ListingTitle: listing.Title,
			ListingArea:  listing.Area,
			LandlordID:   listing.OwnerID,
			StudentID:    student.ID,
			StudentName:  student.FullName,
			StudentPhone: student.Phone,
			Date:         "",
			Status:       models.VisitPending,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		_, insertErr := collection.InsertOne(ctx, visit)
		return insertErr
	}

	if err := db.Try(operation); err != nil {
		if db.IsMongoDuplicateKeyError(err) {
			return nil, ErrDuplicateActiveVisit
		}
		return nil, apperr.FromMongo(err, "visit request")
	}

	s.enqueueNotify(ctx, visit.ID, "created")
	return visit, nil
}

// UpdateStatus moves a visit along its lifecycle. Only the landlord of the
// request may change the status, and only along the transition table:
// pending may become confirmed or cancelled, confirmed may become done or
// cancelled, done and cancelled are terminal. Re-opening a cancelled visit
// means creating a fresh request.
func (s *visitService) UpdateStatus(ctx context.Context, visitID, actorID utils.SixID, newStatus models.VisitStatus) (*models.VisitRequest, error) {
	if actorID.IsZero() {
		return nil, apperr.New(apperr.Unauthenticated, "landlord identity required")
	}
	if !newStatus.Valid() {
		return nil, apperr.Newf(apperr.Validation, "unknown visit status %q", newStatus)
	}

	visit, err := s.FindVisitByID(ctx, visitID)
	if err != nil {
		return nil, err
	}
	if visit.LandlordID != actorID {
		return nil, apperr.New(apperr.PermissionDenied, "only the landlord can update this visit")
	}
	if !models.CanTransition(visit.Status, newStatus) {
		return nil, apperr.Newf(apperr.Validation, "cannot move visit from %s to %s", visit.Status, newStatus)
	}

	collection := s.db.Collection(visitsCollection)
	// Status in the filter makes the transition check hold under concurrent
	// updates: a racing writer that already moved the visit will not match.
	filter := bson.M{"_id": visitID, "landlord_id": actorID, "status": visit.Status}
	update := bson.M{"$set": bson.M{"status": newStatus, "updated_at": time.Now().UTC()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.VisitRequest
	if err := collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.New(apperr.Validation, "visit status changed concurrently, reload and retry")
		}
		return nil, apperr.FromMongo(err, "visit request")
	}

	s.enqueueNotify(ctx, visitID, string(newStatus))
	return &updated, nil
}

// UpdateDate sets or changes the proposed visit date. The date is free text
// shown to both sides and is independent of the status; the landlord may set
// it at any point in the lifecycle.
func (s *visitService) UpdateDate(ctx context.Context, visitID, actorID utils.SixID, date string) (*models.VisitRequest, error) {
	if actorID.IsZero() {
		return nil, apperr.New(apperr.Unauthenticated, "landlord identity required")
	}
	date = strings.TrimSpace(date)

	visit, err := s.FindVisitByID(ctx, visitID)
	if err != nil {
		return nil, err
	}
	if visit.LandlordID != actorID {
		return nil, apperr.New(apperr.PermissionDenied, "only the landlord can schedule this visit")
	}

	collection := s.db.Collection(visitsCollection)
	filter := bson.M{"_id": visitID, "landlord_id": actorID}
	update := bson.M{"$set": bson.M{"date": date, "updated_at": time.Now().UTC()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.VisitRequest
	if err := collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.New(apperr.NotFound, "visit request")
		}
		return nil, apperr.FromMongo(err, "visit request")
	}

	s.enqueueNotify(ctx, visitID, "rescheduled")
	return &updated, nil
}

// FindVisitByID fetches a single visit request.
func (s *visitService) FindVisitByID(ctx context.Context, visitID utils.SixID) (*models.VisitRequest, error) {
	var visit models.VisitRequest
	err := s.db.Collection(visitsCollection).FindOne(ctx, bson.M{"_id": visitID}).Decode(&visit)
	if err != nil {
		return nil, apperr.FromMongo(err, "visit request")
	}
	return &visit, nil
}

// FindVisitsByLandlord returns all requests addressed to a landlord, newest
// first. History is kept: terminal visits are included.
func (s *visitService) FindVisitsByLandlord(ctx context.Context, landlordID utils.SixID) ([]models.VisitRequest, error) {
	return s.findVisits(ctx, bson.M{"landlord_id": landlordID})
}

// FindVisitsByStudent returns all requests made by a student, newest first.
func (s *visitService) FindVisitsByStudent(ctx context.Context, studentID utils.SixID) ([]models.VisitRequest, error) {
	return s.findVisits(ctx, bson.M{"student_id": studentID})
}

func (s *visitService) findVisits(ctx context.Context, filter bson.M) ([]models.VisitRequest, error) {
	collection := s.db.Collection(visitsCollection)
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, apperr.FromMongo(err, "visit requests")
	}
	defer cursor.Close(ctx)

	visits := []models.VisitRequest{}
	if err := cursor.All(ctx, &visits); err != nil {
		return nil, apperr.FromMongo(err, "visit requests")
	}
	return visits, nil
}

// SubscribeLandlordVisits streams snapshots of a landlord's visit inbox.
func (s *visitService) SubscribeLandlordVisits(ctx context.Context, landlordID utils.SixID) <-chan []models.VisitRequest {
	return db.Subscribe[models.VisitRequest](ctx, s.db.Collection(visitsCollection), db.LiveQuery{
		Filter: bson.M{"landlord_id": landlordID},
		Sort:   bson.D{{Key: "created_at", Value: -1}},
	})
}

// SubscribeStudentVisits streams snapshots of a student's own requests.
func (s *visitService) SubscribeStudentVisits(ctx context.Context, studentID utils.SixID) <-chan []models.VisitRequest {
	return db.Subscribe[models.VisitRequest](ctx, s.db.Collection(visitsCollection), db.LiveQuery{
		Filter: bson.M{"student_id": studentID},
		Sort:   bson.D{{Key: "created_at", Value: -1}},
	})
}

// enqueueNotify hands the notification to the background worker. Failure to
// enqueue never fails the visit operation itself.
func (s *visitService) enqueueNotify(ctx context.Context, visitID utils.SixID, event string) {
	if s.taskClient == nil {
		return
	}
	payload, err := json.Marshal(VisitNotifyPayload{VisitID: visitID.String(), Event: event})
	if err != nil {
		log.Printf("Error marshalling visit notify payload for %s: %v", visitID.String(), err)
		return
	}
	task := asynq.NewTask(TypeVisitNotify, payload)
	if _, err := s.taskClient.EnqueueContext(ctx, task, asynq.Queue("default")); err != nil {
		log.Printf("Error enqueueing visit notification for %s: %v", visitID.String(), err)
	}
}
