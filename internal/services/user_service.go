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
	"github.com/madickediagne/LOGISEN/internal/auth"
	"github.com/madickediagne/LOGISEN/internal/config"
	"github.com/madickediagne/LOGISEN/internal/db"
	"github.com/madickediagne/LOGISEN/internal/models"
	"github.com/madickediagne/LOGISEN/internal/utils"
)

// ErrEmailExists is returned when an attempt is made to use an email that
// already belongs to another account.
var ErrEmailExists = apperr.New(apperr.Validation, "email already in use by another account")

// RegisterInput carries the registration form fields.
type RegisterInput struct {
	Role     models.Role
	FullName string
	Phone    string
	Email    string
	City     string // landlords only
	Password string
}

// IUserService defines the interface for account and profile operations.
type IUserService interface {
	Register(ctx context.Context, input RegisterInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, error)
	FindByID(ctx context.Context, userID utils.SixID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID utils.SixID, updates map[string]interface{}) (*models.User, error)
}

const usersCollection = "users"

// userService implements IUserService.
type userService struct {
	db  *mongo.Database
	cfg *config.Config
}

// NewUserService creates a new UserService.
func NewUserService(db *mongo.Database, cfg *config.Config) IUserService {
	return &userService{db: db, cfg: cfg}
}

// Register validates the form, hashes the password and creates the profile
// document. The email uniqueness check races with concurrent registrations;
// the partial unique index on users.email closes that race and surfaces as a
// duplicate key error mapped below.
func (s *userService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.FullName = strings.TrimSpace(input.FullName)
	input.Phone = strings.TrimSpace(input.Phone)
	input.City = strings.TrimSpace(input.City)

	if !input.Role.Valid() {
		return nil, apperr.New(apperr.Validation, "unknown role")
	}
	if input.FullName == "" {
		return nil, apperr.New(apperr.Validation, "full name required")
	}
	if input.Phone == "" {
		return nil, apperr.New(apperr.Validation, "phone required")
	}
	if input.Email == "" || !strings.Contains(input.Email, "@") {
		return nil, apperr.New(apperr.Validation, "valid email required")
	}
	if len(input.Password) < s.cfg.MinPasswordLen {
		return nil, apperr.Newf(apperr.Validation, "password must be at least %d characters", s.cfg.MinPasswordLen)
	}
	if input.Role != models.RoleLandlord {
		// City is a landlord attribute only.
		input.City = ""
	}

	if _, err := s.FindByEmail(ctx, input.Email); err == nil {
		return nil, ErrEmailExists
	} else if !apperr.Is(err, apperr.NotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, apperr.Wrap(apperr.Remote, "failed to hash password", err)
	}

	collection := s.db.Collection(usersCollection)
	now := time.Now().UTC()

	var newUser *models.User
	operation := func() error {
		newUser = &models.User{
			Base:         models.NewBase(),
			Role:         input.Role,
			FullName:     input.FullName,
			Phone:        input.Phone,
			Email:        input.Email,
			City:         input.City,
			PasswordHash: hash,
			CreatedAt:    now,
			UpdatedAt:    now,
			Deleted:      false,
		}
		_, insertErr := collection.InsertOne(ctx, newUser)
		return insertErr
	}

	if err := db.Try(operation); err != nil {
		if db.IsMongoDuplicateKeyError(err) {
			// Retries regenerate the _id; a persistent duplicate is the email index.
			return nil, ErrEmailExists
		}
		return nil, apperr.FromMongo(err, "user")
	}

	return newUser, nil
}

// Login checks the credentials and returns the matching user.
func (s *userService) Login(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperr.New(apperr.Validation, "email and password required")
	}

	user, err := s.FindByEmail(ctx, email)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return nil, apperr.New(apperr.NotFound, "account not found")
		}
		return nil, err
	}

	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, apperr.New(apperr.Unauthenticated, "invalid credentials")
	}

	return user, nil
}

// FindByEmail finds a non-deleted user by their email address.
func (s *userService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	collection := s.db.Collection(usersCollection)
	filter := bson.M{"email": email, "deleted": false}

	err := collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.Wrap(apperr.NotFound, "user", err)
		}
		return nil, apperr.FromMongo(err, "user")
	}
	return &user, nil
}

// FindByID finds a non-deleted user by their id.
func (s *userService) FindByID(ctx context.Context, userID utils.SixID) (*models.User, error) {
	var user models.User
	collection := s.db.Collection(usersCollection)
	filter := bson.M{"_id": userID, "deleted": false}

	err := collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.Wrap(apperr.NotFound, "user", err)
		}
		return nil, apperr.FromMongo(err, "user")
	}
	return &user, nil
}

// UpdateProfile updates the mutable profile fields of a user. Role and email
// are not updatable here; email changes would need a confirmation flow this
// product does not have.
func (s *userService) UpdateProfile(ctx context.Context, userID utils.SixID, updates map[string]interface{}) (*models.User, error) {
	allowedUpdates := bson.M{}
	for key, value := range updates {
		switch key {
		case "full_name", "phone", "city":
			allowedUpdates[key] = value
		default:
			return nil, apperr.Newf(apperr.Validation, "field '%s' cannot be updated", key)
		}
	}
	if len(allowedUpdates) == 0 {
		return nil, apperr.New(apperr.Validation, "no valid fields provided for update")
	}
	allowedUpdates["updated_at"] = time.Now().UTC()

	collection := s.db.Collection(usersCollection)
	filter := bson.M{"_id": userID, "deleted": false}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.User
	err := collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": allowedUpdates}, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.Wrap(apperr.NotFound, "user", err)
		}
		return nil, apperr.FromMongo(err, "user")
	}
	return &updated, nil
}
