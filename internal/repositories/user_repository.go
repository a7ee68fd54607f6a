package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/forefold/leadsflow/internal/models"
)

// UserRepository persists user accounts in the users collection.
type UserRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{collection: db.Collection("users")}
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	_, err := r.collection.InsertOne(ctx, user)
	return WrapDuplicate(err, "user")
}

func (r *UserRepository) GetByID(ctx context.Context, id models.AccountID) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		return nil, WrapNotFound(err, "user")
	}
	return &user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		return nil, WrapNotFound(err, "user")
	}
	return &user, nil
}

func (r *UserRepository) Update(ctx context.Context, id models.AccountID, fields bson.M) error {
	fields["updated_at"] = time.Now().UTC()
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return WrapDuplicate(err, "user")
	}
	if res.MatchedCount == 0 {
		return WrapNotFound(mongo.ErrNoDocuments, "user")
	}
	return nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id models.AccountID, passwordHash string) error {
	return r.Update(ctx, id, bson.M{"password_hash": passwordHash})
}

func (r *UserRepository) Delete(ctx context.Context, id models.AccountID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return WrapNotFound(mongo.ErrNoDocuments, "user")
	}
	return nil
}

// ListActiveByCompany returns the active accounts that share a company name.
// Used for scope resolution and notification fanout.
func (r *UserRepository) ListActiveByCompany(ctx context.Context, companyName string) ([]models.User, error) {
	cursor, err := r.collection.Find(ctx, bson.M{
		"company_name": companyName,
		"is_active":    true,
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// ListActiveByIDs returns the active accounts among the given IDs.
func (r *UserRepository) ListActiveByIDs(ctx context.Context, ids []models.AccountID) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cursor, err := r.collection.Find(ctx, bson.M{
		"_id":       bson.M{"$in": ids},
		"is_active": true,
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}
