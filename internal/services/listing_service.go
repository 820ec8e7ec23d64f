package services

import (
	"context"
	"errors"
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

// CreateListingInput carries the listing creation form.
type CreateListingInput struct {
	Title   string
	Desc    string
	Price   string
	Area    string
	Type    models.PropertyType
	Details *models.ListingDetails
	Phone   string
	Images  []string
}

// IListingService defines the interface for listing-related operations.
type IListingService interface {
	CreateListing(ctx context.Context, owner *models.User, input CreateListingInput) (*models.Listing, error)
	FindListingByID(ctx context.Context, listingID utils.SixID) (*models.Listing, error)
	UpdateListing(ctx context.Context, listingID, actorID utils.SixID, updates map[string]interface{}) (*models.Listing, error)
	DeleteListing(ctx context.Context, listingID, actorID utils.SixID) error
	AddImageToListing(ctx context.Context, listingID, actorID utils.SixID, imageURL string) error
	FindListingsByOwner(ctx context.Context, ownerID utils.SixID) ([]models.Listing, error)
	SearchListings(ctx context.Context, filter ListingFilter, limit int) ([]models.Listing, error)
}

const listingsCollection = "listings"

// listingService implements IListingService.
type listingService struct {
	db  *mongo.Database
	cfg *config.Config
}

// NewListingService creates a new ListingService.
func NewListingService(db *mongo.Database, cfg *config.Config) IListingService {
	return &listingService{db: db, cfg: cfg}
}

// CreateListing creates a new listing owned by the given landlord. OwnerID is
// fixed here and no update path can change it.
func (s *listingService) CreateListing(ctx context.Context, owner *models.User, input CreateListingInput) (*models.Listing, error) {
	if owner == nil {
		return nil, apperr.New(apperr.Unauthenticated, "landlord identity required")
	}
	if owner.Role != models.RoleLandlord {
		return nil, apperr.New(apperr.PermissionDenied, "only landlords can create listings")
	}

	input.Title = strings.TrimSpace(input.Title)
	input.Price = strings.TrimSpace(input.Price)
	input.Area = strings.TrimSpace(input.Area)
	input.Phone = strings.TrimSpace(input.Phone)

	if input.Title == "" {
		return nil, apperr.New(apperr.Validation, "title required")
	}
	if input.Price == "" {
		return nil, apperr.New(apperr.Validation, "price required")
	}
	if input.Area == "" {
		return nil, apperr.New(apperr.Validation, "area required")
	}
	if input.Phone == "" {
		return nil, apperr.New(apperr.Validation, "phone required")
	}
	if !input.Type.Valid() {
		return nil, apperr.New(apperr.Validation, "unknown property type")
	}
	if err := validateDetails(input.Type, input.Details); err != nil {
		return nil, err
	}

	collection := s.db.Collection(listingsCollection)
	now := time.Now().UTC()
	images := input.Images
	if images == nil {
		images = []string{}
	}

	var newListing *models.Listing
	operation := func() error {
		newListing = &models.Listing{
			ID:        utils.NewSixID(),
			OwnerID:   owner.ID,
			Title:     input.Title,
			Desc:      strings.TrimSpace(input.Desc),
			Price:     input.Price,
			Area:      input.Area,
			Type:      input.Type,
			Details:   input.Details,
			Phone:     input.Phone,
			Images:    images,
			CreatedAt: now,
			UpdatedAt: now,
			Deleted:   false,
		}
		_, insertErr := collection.InsertOne(ctx, newListing)
		return insertErr
	}

	if err := db.Try(operation); err != nil {
		return nil, apperr.FromMongo(err, "listing")
	}
	return newListing, nil
}

// validateDetails checks that the variant payload matches the property type.
// Only the variant for the declared type is meaningful; the others are
// dropped rather than rejected so older clients stay compatible.
func validateDetails(t models.PropertyType, d *models.ListingDetails) error {
	if d == nil {
		if t == models.PropertyStudio || t == models.PropertyApartment {
			return apperr.Newf(apperr.Validation, "details required for type %s", t)
		}
		return nil
	}
	switch t {
	case models.PropertyRoom:
		d.Studio = nil
		d.Apartment = nil
	case models.PropertyStudio:
		d.Room = nil
		d.Apartment = nil
		if d.Studio == nil || (d.Studio.Config != models.StudioOneRoomBath && d.Studio.Config != models.StudioTwoRoomsBath) {
			return apperr.New(apperr.Validation, "studio configuration required")
		}
	case models.PropertyApartment:
		d.Room = nil
		d.Studio = nil
		if d.Apartment == nil || strings.TrimSpace(d.Apartment.Bedrooms) == "" {
			return apperr.New(apperr.Validation, "bedroom count required")
		}
	}
	return nil
}

// FindListingByID finds a non-deleted listing by its ID. It does NOT check
// ownership; listings are publicly readable.
func (s *listingService) FindListingByID(ctx context.Context, listingID utils.SixID) (*models.Listing, error) {
	var listing models.Listing
	collection := s.db.Collection(listingsCollection)
	filter := bson.M{"_id": listingID, "deleted": false}

	err := collection.FindOne(ctx, filter).Decode(&listing)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.Wrap(apperr.NotFound, "listing", err)
		}
		return nil, apperr.FromMongo(err, "listing")
	}
	return &listing, nil
}

// UpdateListing updates mutable fields of a listing owned by the acting
// user. Ownership is enforced in the update filter itself, so a foreign
// actor can never match the document. To tell PermissionDenied apart from
// NotFound, a miss is re-checked without the owner constraint.
func (s *listingService) UpdateListing(ctx context.Context, listingID, actorID utils.SixID, updates map[string]interface{}) (*models.Listing, error) {
	allowedUpdates := bson.M{}
	for key, value := range updates {
		switch key {
		case "title", "desc", "price", "area", "phone", "details":
			allowedUpdates[key] = value
		default:
			return nil, apperr.Newf(apperr.Validation, "field '%s' cannot be updated", key)
		}
	}
	if len(allowedUpdates) == 0 {
		return nil, apperr.New(apperr.Validation, "no valid fields provided for update")
	}
	allowedUpdates["updated_at"] = time.Now().UTC()

	collection := s.db.Collection(listingsCollection)
	filter := bson.M{"_id": listingID, "owner_id": actorID, "deleted": false}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Listing
	err := collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": allowedUpdates}, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, s.ownershipMiss(ctx, listingID)
		}
		return nil, apperr.FromMongo(err, "listing")
	}
	return &updated, nil
}

// DeleteListing soft-deletes a listing owned by the acting user.
func (s *listingService) DeleteListing(ctx context.Context, listingID, actorID utils.SixID) error {
	collection := s.db.Collection(listingsCollection)
	filter := bson.M{"_id": listingID, "owner_id": actorID, "deleted": false}
	update := bson.M{"$set": bson.M{"deleted": true, "updated_at": time.Now().UTC()}}

	res, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return apperr.FromMongo(err, "listing")
	}
	if res.MatchedCount == 0 {
		return s.ownershipMiss(ctx, listingID)
	}
	return nil
}

// AddImageToListing appends an uploaded image URL to the listing, keeping
// upload order as display order.
func (s *listingService) AddImageToListing(ctx context.Context, listingID, actorID utils.SixID, imageURL string) error {
	if strings.TrimSpace(imageURL) == "" {
		return apperr.New(apperr.Validation, "image URL required")
	}
	collection := s.db.Collection(listingsCollection)
	filter := bson.M{"_id": listingID, "owner_id": actorID, "deleted": false}
	update := bson.M{
		"$push": bson.M{"images": imageURL},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}

	res, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return apperr.FromMongo(err, "listing")
	}
	if res.MatchedCount == 0 {
		return s.ownershipMiss(ctx, listingID)
	}
	return nil
}

// ownershipMiss distinguishes a missing listing from a foreign one after an
// owner-filtered write matched nothing.
func (s *listingService) ownershipMiss(ctx context.Context, listingID utils.SixID) error {
	count, err := s.db.Collection(listingsCollection).CountDocuments(ctx, bson.M{"_id": listingID, "deleted": false})
	if err != nil {
		return apperr.FromMongo(err, "listing")
	}
	if count > 0 {
		return apperr.New(apperr.PermissionDenied, "listing belongs to another landlord")
	}
	return apperr.New(apperr.NotFound, "listing")
}

// FindListingsByOwner returns all non-deleted listings of a landlord, newest
// first.
func (s *listingService) FindListingsByOwner(ctx context.Context, ownerID utils.SixID) ([]models.Listing, error) {
	collection := s.db.Collection(listingsCollection)
	filter := bson.M{"owner_id": ownerID, "deleted": false}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, apperr.FromMongo(err, "listings")
	}
	defer cursor.Close(ctx)

	listings := []models.Listing{}
	if err := cursor.All(ctx, &listings); err != nil {
		return nil, apperr.FromMongo(err, "listings")
	}
	return listings, nil
}

// SearchListings fetches recent listings and runs the pure filter pipeline
// over them. The filters mirror what the mobile client applies locally, so
// the behavior is identical whether filtering happens here or on-device.
func (s *listingService) SearchListings(ctx context.Context, filter ListingFilter, limit int) ([]models.Listing, error) {
	if limit <= 0 || limit > 200 {
		limit = s.cfg.SearchLimit
	}

	collection := s.db.Collection(listingsCollection)
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := collection.Find(ctx, bson.M{"deleted": false}, opts)
	if err != nil {
		return nil, apperr.FromMongo(err, "listings")
	}
	defer cursor.Close(ctx)

	all := []models.Listing{}
	if err := cursor.All(ctx, &all); err != nil {
		return nil, apperr.FromMongo(err, "listings")
	}

	results := []models.Listing{}
	for i := range all {
		if filter.Match(&all[i]) {
			results = append(results, all[i])
			if len(results) >= limit {
				break
			}
		}
	}
	return results, nil
}
