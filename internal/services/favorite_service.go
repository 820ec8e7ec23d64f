package services

import (
	"context"
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

// IFavoriteService defines the interface for favorites.
type IFavoriteService interface {
	Toggle(ctx context.Context, userID, listingID utils.SixID) (favorited bool, err error)
	FindByUser(ctx context.Context, userID utils.SixID) ([]models.Favorite, error)
	IsFavorite(ctx context.Context, userID, listingID utils.SixID) (bool, error)
}

const favoritesCollection = "favorites"

// favoriteService implements IFavoriteService.
type favoriteService struct {
	db             *mongo.Database
	cfg            *config.Config
	listingService IListingService
}

// NewFavoriteService creates a new FavoriteService.
func NewFavoriteService(db *mongo.Database, cfg *config.Config, listingService IListingService) IFavoriteService {
	return &favoriteService{db: db, cfg: cfg, listingService: listingService}
}

// Toggle flips the bookmark state for (user, listing) and reports the new
// state. A created favorite snapshots the listing's display fields as they
// are right now; the snapshot is never refreshed afterwards. The unique
// index on (user_id, listing_id) makes a racing double-toggle settle as a
// single favorite.
func (s *favoriteService) Toggle(ctx context.Context, userID, listingID utils.SixID) (bool, error) {
	if userID.IsZero() {
		return false, apperr.New(apperr.Unauthenticated, "user identity required")
	}

	collection := s.db.Collection(favoritesCollection)
	filter := bson.M{"user_id": userID, "listing_id": listingID}

	res, err := collection.DeleteOne(ctx, filter)
	if err != nil {
		return false, apperr.FromMongo(err, "favorite")
	}
	if res.DeletedCount > 0 {
		return false, nil
	}

	listing, err := s.listingService.FindListingByID(ctx, listingID)
	if err != nil {
		return false, err
	}

	operation := func() error {
		_, insertErr := collection.InsertOne(ctx, &models.Favorite{
			ID:        utils.NewSixID(),
			UserID:    userID,
			ListingID: listingID,
			Title:     listing.Title,
			Desc:      listing.Desc,
			Price:     listing.Price,
			Area:      listing.Area,
			CreatedAt: time.Now().UTC(),
		})
		return insertErr
	}
	if err := db.Try(operation); err != nil {
		if db.IsMongoDuplicateKeyError(err) {
			// Lost a race against another toggle; the favorite exists.
			return true, nil
		}
		return false, apperr.FromMongo(err, "favorite")
	}
	return true, nil
}

// FindByUser returns the user's bookmarks, newest first.
func (s *favoriteService) FindByUser(ctx context.Context, userID utils.SixID) ([]models.Favorite, error) {
	collection := s.db.Collection(favoritesCollection)
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, apperr.FromMongo(err, "favorites")
	}
	defer cursor.Close(ctx)

	favorites := []models.Favorite{}
	if err := cursor.All(ctx, &favorites); err != nil {
		return nil, apperr.FromMongo(err, "favorites")
	}
	return favorites, nil
}

// IsFavorite reports whether the user has bookmarked the listing.
func (s *favoriteService) IsFavorite(ctx context.Context, userID, listingID utils.SixID) (bool, error) {
	count, err := s.db.Collection(favoritesCollection).CountDocuments(ctx, bson.M{"user_id": userID, "listing_id": listingID})
	if err != nil {
		return false, apperr.FromMongo(err, "favorite")
	}
	return count > 0, nil
}
