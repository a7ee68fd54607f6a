package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/forefold/leadsflow/internal/models"
)

// PermissionRepository persists delegation grants in the user_permissions
// collection. A grant is keyed by the delegate's account ID, so an account
// can hold at most one grant.
type PermissionRepository struct {
	collection *mongo.Collection
}

func NewPermissionRepository(db *mongo.Database) *PermissionRepository {
	return &PermissionRepository{collection: db.Collection("user_permissions")}
}

func (r *PermissionRepository) Create(ctx context.Context, grant *models.DelegationGrant) error {
	now := time.Now().UTC()
	grant.CreatedAt = now
	grant.UpdatedAt = now
	_, err := r.collection.InsertOne(ctx, grant)
	return WrapDuplicate(err, "delegation grant")
}

// GetByDelegate returns the grant held by the given account, if any.
func (r *PermissionRepository) GetByDelegate(ctx context.Context, userID models.AccountID) (*models.DelegationGrant, error) {
	var grant models.DelegationGrant
	err := r.collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&grant)
	if err != nil {
		return nil, WrapNotFound(err, "delegation grant")
	}
	return &grant, nil
}

// ListByParent returns all grants issued by a single parent account.
func (r *PermissionRepository) ListByParent(ctx context.Context, parentID models.AccountID) ([]models.DelegationGrant, error) {
	return r.ListByParents(ctx, []models.AccountID{parentID})
}

// ListByParents returns all grants whose parent is any of the given accounts.
// Used to collect a company's delegates during notification fanout.
func (r *PermissionRepository) ListByParents(ctx context.Context, parentIDs []models.AccountID) ([]models.DelegationGrant, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}
	cursor, err := r.collection.Find(ctx, bson.M{"parent_user_id": bson.M{"$in": parentIDs}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var grants []models.DelegationGrant
	if err := cursor.All(ctx, &grants); err != nil {
		return nil, err
	}
	return grants, nil
}

// Update replaces the capability flags of an existing grant.
func (r *PermissionRepository) Update(ctx context.Context, userID models.AccountID, canView, canEdit, canAdd bool) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": bson.M{
		"can_view_leads": canView,
		"can_edit_leads": canEdit,
		"can_add_leads":  canAdd,
		"updated_at":     time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return WrapNotFound(mongo.ErrNoDocuments, "delegation grant")
	}
	return nil
}

func (r *PermissionRepository) DeleteByDelegate(ctx context.Context, userID models.AccountID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return WrapNotFound(mongo.ErrNoDocuments, "delegation grant")
	}
	return nil
}
