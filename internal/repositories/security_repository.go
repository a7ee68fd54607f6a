package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/forefold/leadsflow/internal/models"
	"github.com/forefold/leadsflow/pkg/uuid"
)

// SecurityRepository persists per-user security settings (two-factor state,
// login notification preference, session timeout).
type SecurityRepository struct {
	collection *mongo.Collection
}

func NewSecurityRepository(db *mongo.Database) *SecurityRepository {
	return &SecurityRepository{collection: db.Collection("security_settings")}
}

// Get returns the user's security settings, creating the default document on
// first access.
func (r *SecurityRepository) Get(ctx context.Context, userID models.AccountID) (*models.SecuritySettings, error) {
	var settings models.SecuritySettings
	err := r.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&settings)
	if err == nil {
		return &settings, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, err
	}

	defaults := models.DefaultSecuritySettings(userID)
	id, err := uuid.NewUUID()
	if err != nil {
		return nil, err
	}
	defaults.ID = id
	now := time.Now().UTC()
	defaults.CreatedAt = now
	defaults.UpdatedAt = now
	if _, err := r.collection.InsertOne(ctx, defaults); err != nil && !mongo.IsDuplicateKeyError(err) {
		return nil, err
	}
	return defaults, nil
}

// Update patches the settings, creating the defaults first if the document
// does not exist yet.
func (r *SecurityRepository) Update(ctx context.Context, userID models.AccountID, fields bson.M) error {
	if _, err := r.Get(ctx, userID); err != nil {
		return err
	}
	fields["updated_at"] = time.Now().UTC()
	_, err := r.collection.UpdateOne(ctx, bson.M{"user_id": userID}, bson.M{"$set": fields})
	return err
}

// SetTwoFactor flips two-factor auth on or off, recording when it was last
// enabled.
func (r *SecurityRepository) SetTwoFactor(ctx context.Context, userID models.AccountID, enabled bool) error {
	fields := bson.M{"two_factor_enabled": enabled}
	if enabled {
		fields["last_two_factor_setup"] = time.Now().UTC()
	}
	return r.Update(ctx, userID, fields)
}
