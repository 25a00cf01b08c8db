package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"scribe/models"
	"scribe/observability"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserRepository covers the identity store and the companion profile
// documents in the users collection.
type UserRepository interface {
	CreateIdentity(ctx context.Context, ident *models.Identity) error
	FindIdentityByEmail(ctx context.Context, email string) (*models.Identity, error)
	FindIdentityByID(ctx context.Context, id string) (*models.Identity, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	LinkGoogleID(ctx context.Context, id, googleID string) error
	CreateProfile(ctx context.Context, p *models.Profile) error
	EnsureProfile(ctx context.Context, uid, email string) error
	GetProfile(ctx context.Context, uid string) (*models.Profile, error)
}

type userRepository struct {
	identities *mongo.Collection
	profiles   *mongo.Collection
	logger     *observability.RepoLogger
}

func NewUserRepository(identities, profiles *mongo.Collection) UserRepository {
	return &userRepository{
		identities: identities,
		profiles:   profiles,
		logger:     observability.NewRepoLogger(identities.Name()),
	}
}

// NormalizeEmail lower-cases and trims an address before it is stored or looked up.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *userRepository) CreateIdentity(ctx context.Context, ident *models.Identity) error {
	if ident.ID.IsZero() {
		ident.ID = primitive.NewObjectID()
	}
	ident.Email = NormalizeEmail(ident.Email)
	if ident.CreatedAt.IsZero() {
		ident.CreatedAt = time.Now().UTC()
	}

	if _, err := r.identities.InsertOne(ctx, ident); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.NewConflictError("Email already in use")
		}
		r.logger.LogError(ctx, err, "create_identity")
		return models.NewStoreUnavailableError(err)
	}
	r.logger.LogCreate(ctx, map[string]interface{}{"id": ident.ID.Hex(), "provider": ident.Provider})
	return nil
}

func (r *userRepository) FindIdentityByEmail(ctx context.Context, email string) (*models.Identity, error) {
	return r.findIdentity(ctx, bson.M{"email": NormalizeEmail(email)}, email)
}

func (r *userRepository) FindIdentityByID(ctx context.Context, id string) (*models.Identity, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.NewNotFoundError("User", id)
	}
	return r.findIdentity(ctx, bson.M{"_id": oid}, id)
}

func (r *userRepository) findIdentity(ctx context.Context, filter bson.M, key string) (*models.Identity, error) {
	var ident models.Identity
	if err := r.identities.FindOne(ctx, filter).Decode(&ident); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.NewNotFoundError("User", key)
		}
		r.logger.LogError(ctx, err, "find_identity")
		return nil, models.NewStoreUnavailableError(err)
	}
	return &ident, nil
}

func (r *userRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return r.setIdentityField(ctx, id, "passwordHash", hash)
}

func (r *userRepository) LinkGoogleID(ctx context.Context, id, googleID string) error {
	return r.setIdentityField(ctx, id, "googleId", googleID)
}

func (r *userRepository) setIdentityField(ctx context.Context, id, field, value string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.NewNotFoundError("User", id)
	}
	res, err := r.identities.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{field: value}})
	if err != nil {
		r.logger.LogError(ctx, err, "update_identity")
		return models.NewStoreUnavailableError(err)
	}
	if res.MatchedCount == 0 {
		return models.NewNotFoundError("User", id)
	}
	r.logger.LogUpdate(ctx, map[string]interface{}{"id": id, "field": field})
	return nil
}

func (r *userRepository) CreateProfile(ctx context.Context, p *models.Profile) error {
	if p.Role == "" {
		p.Role = models.DefaultRole
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if _, err := r.profiles.InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.NewConflictError("Profile already exists")
		}
		r.logger.LogError(ctx, err, "create_profile")
		return models.NewStoreUnavailableError(err)
	}
	r.logger.LogCreate(ctx, map[string]interface{}{"profile": p.ID})
	return nil
}

// EnsureProfile writes the profile for uid if it is missing and leaves an
// existing one untouched.
func (r *userRepository) EnsureProfile(ctx context.Context, uid, email string) error {
	update := bson.M{"$setOnInsert": bson.M{
		"email":     NormalizeEmail(email),
		"role":      models.DefaultRole,
		"createdAt": time.Now().UTC(),
	}}
	res, err := r.profiles.UpdateOne(ctx, bson.M{"_id": uid}, update, options.Update().SetUpsert(true))
	if err != nil {
		r.logger.LogError(ctx, err, "ensure_profile")
		return models.NewStoreUnavailableError(err)
	}
	if res.UpsertedCount > 0 {
		r.logger.LogCreate(ctx, map[string]interface{}{"profile": uid, "recovered": true})
	}
	return nil
}

func (r *userRepository) GetProfile(ctx context.Context, uid string) (*models.Profile, error) {
	var p models.Profile
	if err := r.profiles.FindOne(ctx, bson.M{"_id": uid}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.NewNotFoundError("Profile", uid)
		}
		r.logger.LogError(ctx, err, "get_profile")
		return nil, models.NewStoreUnavailableError(err)
	}
	return &p, nil
}
