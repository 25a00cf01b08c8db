package repository

import (
	"context"
	"errors"
	"time"

	"scribe/models"
	"scribe/observability"

	"github.com/SherClockHolmes/webpush-go"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PushRepository stores one web-push subscription per user.
type PushRepository interface {
	Save(ctx context.Context, userID string, sub webpush.Subscription) error
	FindByUser(ctx context.Context, userID string) (*models.PushSubscription, error)
	DeleteByUser(ctx context.Context, userID string) error
}

type pushRepository struct {
	coll   *mongo.Collection
	logger *observability.RepoLogger
}

func NewPushRepository(coll *mongo.Collection) PushRepository {
	return &pushRepository{coll: coll, logger: observability.NewRepoLogger(coll.Name())}
}

// Save upserts: update if exists, insert if not.
func (r *pushRepository) Save(ctx context.Context, userID string, sub webpush.Subscription) error {
	update := bson.M{
		"$set":         bson.M{"userId": userID, "sub": sub},
		"$setOnInsert": bson.M{"createdAt": time.Now().UTC()},
	}
	_, err := r.coll.UpdateOne(ctx, bson.M{"userId": userID}, update, options.Update().SetUpsert(true))
	if err != nil {
		r.logger.LogError(ctx, err, "save")
		return models.NewStoreUnavailableError(err)
	}
	r.logger.LogUpdate(ctx, map[string]interface{}{"userId": userID})
	return nil
}

func (r *pushRepository) FindByUser(ctx context.Context, userID string) (*models.PushSubscription, error) {
	var sub models.PushSubscription
	if err := r.coll.FindOne(ctx, bson.M{"userId": userID}).Decode(&sub); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.NewNotFoundError("Push subscription", userID)
		}
		r.logger.LogError(ctx, err, "find")
		return nil, models.NewStoreUnavailableError(err)
	}
	return &sub, nil
}

func (r *pushRepository) DeleteByUser(ctx context.Context, userID string) error {
	if _, err := r.coll.DeleteOne(ctx, bson.M{"userId": userID}); err != nil {
		r.logger.LogError(ctx, err, "delete")
		return models.NewStoreUnavailableError(err)
	}
	r.logger.LogDelete(ctx, map[string]interface{}{"userId": userID})
	return nil
}
