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

// DateRange is a bound on next_followup_date. Nil fields are omitted from
// the query.
type DateRange struct {
	Gte *time.Time
	Lte *time.Time
	Lt  *time.Time
	Gt  *time.Time
}

// LeadFilter selects leads within an owner scope. OwnerIDs is mandatory:
// an empty slice matches nothing, never everything.
type LeadFilter struct {
	OwnerIDs []models.AccountID

	Statuses      []string
	ExcludeStatus string
	Category      string
	Source        string
	City          string
	Sector        string
	Search        string
	Followup      *DateRange
}

// LeadRepository persists leads in the leads collection.
type LeadRepository struct {
	collection *mongo.Collection
}

func NewLeadRepository(db *mongo.Database) *LeadRepository {
	return &LeadRepository{collection: db.Collection("leads")}
}

func (r *LeadRepository) Create(ctx context.Context, lead *models.Lead) error {
	now := time.Now().UTC()
	lead.CreatedAt = now
	lead.UpdatedAt = now
	_, err := r.collection.InsertOne(ctx, lead)
	return WrapDuplicate(err, "lead")
}

func (r *LeadRepository) GetByID(ctx context.Context, id string) (*models.Lead, error) {
	var lead models.Lead
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&lead)
	if err != nil {
		return nil, WrapNotFound(err, "lead")
	}
	return &lead, nil
}

func (r *LeadRepository) Update(ctx context.Context, id string, fields bson.M) error {
	fields["updated_at"] = time.Now().UTC()
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return WrapNotFound(mongo.ErrNoDocuments, "lead")
	}
	return nil
}

func (r *LeadRepository) Delete(ctx context.Context, id string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return WrapNotFound(mongo.ErrNoDocuments, "lead")
	}
	return nil
}

// containsRegex matches any value containing the literal term, ignoring case.
func containsRegex(term string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(term), Options: "i"}
}

func buildLeadQuery(f LeadFilter) bson.M {
	query := bson.M{"user_id": bson.M{"$in": f.OwnerIDs}}

	status := bson.M{}
	if len(f.Statuses) > 0 {
		status["$in"] = f.Statuses
	}
	if f.ExcludeStatus != "" {
		status["$ne"] = f.ExcludeStatus
	}
	if len(status) > 0 {
		query["lead_status"] = status
	}
	if f.Category != "" {
		query["customer_category"] = f.Category
	}
	if f.Source != "" {
		query["lead_source"] = f.Source
	}
	if f.City != "" {
		query["city"] = containsRegex(f.City)
	}
	if f.Sector != "" {
		query["sector"] = containsRegex(f.Sector)
	}
	if f.Search != "" {
		rx := containsRegex(f.Search)
		query["$or"] = bson.A{
			bson.M{"name": rx},
			bson.M{"email": rx},
			bson.M{"phone_number": rx},
			bson.M{"company_name": rx},
		}
	}
	if f.Followup != nil {
		window := bson.M{}
		if f.Followup.Gte != nil {
			window["$gte"] = *f.Followup.Gte
		}
		if f.Followup.Lte != nil {
			window["$lte"] = *f.Followup.Lte
		}
		if f.Followup.Lt != nil {
			window["$lt"] = *f.Followup.Lt
		}
		if f.Followup.Gt != nil {
			window["$gt"] = *f.Followup.Gt
		}
		if len(window) > 0 {
			query["next_followup_date"] = window
		}
	}
	return query
}

// List returns a page of matching leads (newest first) plus the total count
// across all pages.
func (r *LeadRepository) List(ctx context.Context, f LeadFilter, skip, limit int64) ([]models.Lead, int64, error) {
	if len(f.OwnerIDs) == 0 {
		return nil, 0, nil
	}
	query := buildLeadQuery(f)

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var leads []models.Lead
	if err := cursor.All(ctx, &leads); err != nil {
		return nil, 0, err
	}
	return leads, total, nil
}

// DistinctCities returns the unique city values across the owner scope,
// excluding empty strings.
func (r *LeadRepository) DistinctCities(ctx context.Context, ownerIDs []models.AccountID) ([]string, error) {
	if len(ownerIDs) == 0 {
		return nil, nil
	}
	values, err := r.collection.Distinct(ctx, "city", bson.M{
		"user_id": bson.M{"$in": ownerIDs},
		"city":    bson.M{"$nin": bson.A{"", nil}},
	})
	if err != nil {
		return nil, err
	}
	cities := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok && s != "" {
			cities = append(cities, s)
		}
	}
	return cities, nil
}

// ListDueForFollowup returns all leads whose next follow-up date falls inside
// the half-open window [from, to), regardless of owner. Used by the daily
// reminder sweep.
func (r *LeadRepository) ListDueForFollowup(ctx context.Context, from, to time.Time) ([]models.Lead, error) {
	cursor, err := r.collection.Find(ctx, bson.M{
		"next_followup_date": bson.M{"$gte": from, "$lt": to},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var leads []models.Lead
	if err := cursor.All(ctx, &leads); err != nil {
		return nil, err
	}
	return leads, nil
}

// CountByField groups the scoped leads by a field and returns value→count.
// Used by the analytics rollups.
func (r *LeadRepository) CountByField(ctx context.Context, ownerIDs []models.AccountID, field string) (map[string]int64, error) {
	if len(ownerIDs) == 0 {
		return map[string]int64{}, nil
	}
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"user_id": bson.M{"$in": ownerIDs}}}},
		bson.D{{Key: "$group", Value: bson.M{"_id": "$" + field, "count": bson.M{"$sum": 1}}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	counts := make(map[string]int64)
	for cursor.Next(ctx) {
		var row struct {
			ID    string `bson:"_id"`
			Count int64  `bson:"count"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, err
		}
		counts[row.ID] = row.Count
	}
	return counts, cursor.Err()
}
