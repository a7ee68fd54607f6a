package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/forefold/leadsflow/internal/models"
)

// OTPRepository persists one-time codes. Password-reset and two-factor codes
// live in separate collections so a code issued for one purpose can never be
// redeemed for the other.
type OTPRepository struct {
	passwordReset *mongo.Collection
	twoFactor     *mongo.Collection
}

func NewOTPRepository(db *mongo.Database) *OTPRepository {
	return &OTPRepository{
		passwordReset: db.Collection("password_reset_otps"),
		twoFactor:     db.Collection("two_factor_otps"),
	}
}

func (r *OTPRepository) forPurpose(purpose models.OTPPurpose) *mongo.Collection {
	if purpose == models.OTPPurposeTwoFactor {
		return r.twoFactor
	}
	return r.passwordReset
}

func (r *OTPRepository) Create(ctx context.Context, purpose models.OTPPurpose, code *models.OneTimeCode) error {
	code.CreatedAt = time.Now().UTC()
	_, err := r.forPurpose(purpose).InsertOne(ctx, code)
	return err
}

// InvalidateUnused marks every unused code for an email as used. Called
// before issuing a fresh code so only the latest one can be redeemed.
func (r *OTPRepository) InvalidateUnused(ctx context.Context, purpose models.OTPPurpose, email string) error {
	_, err := r.forPurpose(purpose).UpdateMany(ctx,
		bson.M{"email": email, "used": false},
		bson.M{"$set": bson.M{"used": true}},
	)
	return err
}

// FindLatestUnused returns the most recently issued unused code matching the
// email and code value, expired or not. Expiry is the caller's check so it
// can distinguish "wrong code" from "expired code".
func (r *OTPRepository) FindLatestUnused(ctx context.Context, purpose models.OTPPurpose, email, code string) (*models.OneTimeCode, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	var otp models.OneTimeCode
	err := r.forPurpose(purpose).FindOne(ctx, bson.M{
		"email": email,
		"otp":   code,
		"used":  false,
	}, opts).Decode(&otp)
	if err != nil {
		return nil, WrapNotFound(err, "one-time code")
	}
	return &otp, nil
}

func (r *OTPRepository) MarkUsed(ctx context.Context, purpose models.OTPPurpose, id string) error {
	res, err := r.forPurpose(purpose).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"used": true}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return WrapNotFound(mongo.ErrNoDocuments, "one-time code")
	}
	return nil
}

// Delete removes a code outright. Used when the delivery email fails, so a
// code the user never received cannot linger.
func (r *OTPRepository) Delete(ctx context.Context, purpose models.OTPPurpose, id string) error {
	_, err := r.forPurpose(purpose).DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// DeleteExpired removes codes past their expiry from both collections and
// returns the number deleted.
func (r *OTPRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	filter := bson.M{"expires_at": bson.M{"$lt": now}}
	var total int64
	for _, coll := range []*mongo.Collection{r.passwordReset, r.twoFactor} {
		res, err := coll.DeleteMany(ctx, filter)
		if err != nil {
			return total, err
		}
		total += res.DeletedCount
	}
	return total, nil
}
