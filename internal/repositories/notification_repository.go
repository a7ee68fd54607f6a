package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/forefold/leadsflow/internal/models"
	"github.com/forefold/leadsflow/pkg/uuid"
)

// NotificationRepository persists per-user notification settings and browser
// push subscriptions.
type NotificationRepository struct {
	settings      *mongo.Collection
	subscriptions *mongo.Collection
}

func NewNotificationRepository(db *mongo.Database) *NotificationRepository {
	return &NotificationRepository{
		settings:      db.Collection("notification_settings"),
		subscriptions: db.Collection("push_subscriptions"),
	}
}

// GetSettings returns the user's notification settings, creating the default
// document on first access.
func (r *NotificationRepository) GetSettings(ctx context.Context, userID models.AccountID) (*models.NotificationSettings, error) {
	var settings models.NotificationSettings
	err := r.settings.FindOne(ctx, bson.M{"user_id": userID}).Decode(&settings)
	if err == nil {
		return &settings, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, err
	}

	defaults := models.DefaultNotificationSettings(userID)
	id, err := uuid.NewUUID()
	if err != nil {
		return nil, err
	}
	defaults.ID = id
	now := time.Now().UTC()
	defaults.CreatedAt = now
	defaults.UpdatedAt = now
	if _, err := r.settings.InsertOne(ctx, defaults); err != nil && !mongo.IsDuplicateKeyError(err) {
		return nil, err
	}
	return defaults, nil
}

// UpdateSettings patches the user's settings, creating the defaults first if
// the document does not exist yet.
func (r *NotificationRepository) UpdateSettings(ctx context.Context, userID models.AccountID, fields bson.M) error {
	if _, err := r.GetSettings(ctx, userID); err != nil {
		return err
	}
	fields["updated_at"] = time.Now().UTC()
	_, err := r.settings.UpdateOne(ctx, bson.M{"user_id": userID}, bson.M{"$set": fields})
	return err
}

// UpsertSubscription stores a push subscription keyed by its endpoint, so
// re-subscribing from the same browser replaces the old record.
func (r *NotificationRepository) UpsertSubscription(ctx context.Context, sub *models.PushSubscription) error {
	now := time.Now().UTC()
	_, err := r.subscriptions.ReplaceOne(ctx, bson.M{"_id": sub.Endpoint}, &models.PushSubscription{
		Endpoint:     sub.Endpoint,
		UserID:       sub.UserID,
		Subscription: sub.Subscription,
		DeviceInfo:   sub.DeviceInfo,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, options.Replace().SetUpsert(true))
	return err
}

func (r *NotificationRepository) ListSubscriptions(ctx context.Context, userID models.AccountID) ([]models.PushSubscription, error) {
	cursor, err := r.subscriptions.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var subs []models.PushSubscription
	if err := cursor.All(ctx, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

// DeleteSubscription removes a subscription by endpoint. Deleting a missing
// endpoint is not an error: gone-subscription cleanup races with unsubscribe.
func (r *NotificationRepository) DeleteSubscription(ctx context.Context, endpoint string) error {
	_, err := r.subscriptions.DeleteOne(ctx, bson.M{"_id": endpoint})
	return err
}

func (r *NotificationRepository) DeleteSubscriptionsForUser(ctx context.Context, userID models.AccountID) error {
	_, err := r.subscriptions.DeleteMany(ctx, bson.M{"user_id": userID})
	return err
}
