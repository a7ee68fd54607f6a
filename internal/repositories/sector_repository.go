package repositories

import (
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/forefold/leadsflow/internal/models"
)

// SectorRepository persists user-defined business sectors shared across all
// tenants.
type SectorRepository struct {
	collection *mongo.Collection
}

func NewSectorRepository(db *mongo.Database) *SectorRepository {
	return &SectorRepository{collection: db.Collection("custom_sectors")}
}

// GetByName does a case-insensitive exact-name lookup.
func (r *SectorRepository) GetByName(ctx context.Context, name string) (*models.CustomSector, error) {
	rx := primitive.Regex{Pattern: "^" + regexp.QuoteMeta(name) + "$", Options: "i"}
	var sector models.CustomSector
	err := r.collection.FindOne(ctx, bson.M{"sector": rx}).Decode(&sector)
	if err != nil {
		return nil, WrapNotFound(err, "sector")
	}
	return &sector, nil
}

func (r *SectorRepository) Create(ctx context.Context, sector *models.CustomSector) error {
	sector.CreatedAt = time.Now().UTC()
	_, err := r.collection.InsertOne(ctx, sector)
	return WrapDuplicate(err, "sector")
}

// List returns all sectors sorted alphabetically.
func (r *SectorRepository) List(ctx context.Context) ([]models.CustomSector, error) {
	opts := options.Find().SetSort(bson.D{{Key: "sector", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sectors []models.CustomSector
	if err := cursor.All(ctx, &sectors); err != nil {
		return nil, err
	}
	return sectors, nil
}
