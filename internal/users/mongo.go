package users

import (
	"context"
	"fmt"
	"time"

	"github.com/ssogate/ssogate/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepository implements Repository using MongoDB
type MongoRepository struct {
	col *mongo.Collection
}

// NewMongoRepository creates a new repository for the given collection
func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

// EnsureIndexes creates the unique indexes the reconciliation algorithm
// relies on: one per email, one per provider id (partial, so unlinked
// users don't collide on the missing field).
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	idx := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "googleId", Value: 1}},
			Options: options.Index().SetUnique(true).
				SetPartialFilterExpression(bson.M{"googleId": bson.M{"$exists": true}}),
		},
		{
			Keys: bson.D{{Key: "githubId", Value: 1}},
			Options: options.Index().SetUnique(true).
				SetPartialFilterExpression(bson.M{"githubId": bson.M{"$exists": true}}),
		},
	}
	_, err := r.col.Indexes().CreateMany(ctx, idx)
	return err
}

func providerField(provider string) (string, error) {
	switch provider {
	case models.ProviderGoogle:
		return "googleId", nil
	case models.ProviderGithub:
		return "githubId", nil
	}
	return "", fmt.Errorf("unknown provider %q", provider)
}

func (r *MongoRepository) FindByProviderID(ctx context.Context, provider, externalID string) (*models.User, error) {
	field, err := providerField(provider)
	if err != nil {
		return nil, err
	}
	var u models.User
	if err := r.col.FindOne(ctx, bson.M{field: externalID}).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *MongoRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := r.col.FindOne(ctx, bson.M{"email": email}).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *MongoRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	now := time.Now().UTC()
	if u.ID == "" {
		u.ID = newID()
	}
	u.CreatedAt = now
	u.UpdatedAt = now
	if _, err := r.col.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: %v", ErrDuplicateKey, err)
		}
		return nil, err
	}
	return u, nil
}

func (r *MongoRepository) Update(ctx context.Context, u *models.User) (*models.User, error) {
	u.UpdatedAt = time.Now().UTC()
	set := bson.M{
		"name":      u.Name,
		"updatedAt": u.UpdatedAt,
	}
	unset := bson.M{}
	if u.Photo != "" {
		set["photo"] = u.Photo
	}
	if u.EmailVerifiedAt != nil {
		set["emailVerifiedAt"] = *u.EmailVerifiedAt
	} else {
		unset["emailVerifiedAt"] = ""
	}
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.User
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": u.ID}, update, opts).Decode(&updated); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("user %s not found", u.ID)
		}
		return nil, err
	}
	return &updated, nil
}
