package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/forefold/leadsflow/internal/models"
)

// TokenRepository persists opaque auth tokens. A token is valid while its
// document exists and is unexpired; revocation is deletion.
type TokenRepository struct {
	collection *mongo.Collection
}

func NewTokenRepository(db *mongo.Database) *TokenRepository {
	return &TokenRepository{collection: db.Collection("tokens")}
}

func (r *TokenRepository) Create(ctx context.Context, token *models.AuthToken) error {
	token.CreatedAt = time.Now().UTC()
	_, err := r.collection.InsertOne(ctx, token)
	return WrapDuplicate(err, "token")
}

func (r *TokenRepository) GetByValue(ctx context.Context, value string, tokenType models.TokenType) (*models.AuthToken, error) {
	var token models.AuthToken
	err := r.collection.FindOne(ctx, bson.M{"token": value, "token_type": tokenType}).Decode(&token)
	if err != nil {
		return nil, WrapNotFound(err, "token")
	}
	return &token, nil
}

func (r *TokenRepository) Delete(ctx context.Context, id string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *TokenRepository) DeleteByValue(ctx context.Context, value string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"token": value})
	return err
}

// DeleteAllForUser revokes every token the user holds. Used on logout and
// password reset.
func (r *TokenRepository) DeleteAllForUser(ctx context.Context, userID models.AccountID) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"user_id": userID})
	return err
}

// DeleteExpired removes tokens past their expiry and returns the number
// deleted.
func (r *TokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": now}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
