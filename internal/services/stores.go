package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/forefold/leadsflow/internal/models"
	"github.com/forefold/leadsflow/internal/repositories"
)

// Consumer-side store interfaces. The Mongo repositories satisfy them;
// service tests use in-memory fakes.

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id models.AccountID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, id models.AccountID, fields bson.M) error
	UpdatePassword(ctx context.Context, id models.AccountID, passwordHash string) error
	Delete(ctx context.Context, id models.AccountID) error
	ListActiveByCompany(ctx context.Context, companyName string) ([]models.User, error)
	ListActiveByIDs(ctx context.Context, ids []models.AccountID) ([]models.User, error)
}

type GrantStore interface {
	Create(ctx context.Context, grant *models.DelegationGrant) error
	GetByDelegate(ctx context.Context, userID models.AccountID) (*models.DelegationGrant, error)
	ListByParent(ctx context.Context, parentID models.AccountID) ([]models.DelegationGrant, error)
	ListByParents(ctx context.Context, parentIDs []models.AccountID) ([]models.DelegationGrant, error)
	Update(ctx context.Context, userID models.AccountID, canView, canEdit, canAdd bool) error
	DeleteByDelegate(ctx context.Context, userID models.AccountID) error
}

type LeadStore interface {
	Create(ctx context.Context, lead *models.Lead) error
	GetByID(ctx context.Context, id string) (*models.Lead, error)
	Update(ctx context.Context, id string, fields bson.M) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f repositories.LeadFilter, skip, limit int64) ([]models.Lead, int64, error)
	DistinctCities(ctx context.Context, ownerIDs []models.AccountID) ([]string, error)
	ListDueForFollowup(ctx context.Context, from, to time.Time) ([]models.Lead, error)
	CountByField(ctx context.Context, ownerIDs []models.AccountID, field string) (map[string]int64, error)
}

type NotificationStore interface {
	GetSettings(ctx context.Context, userID models.AccountID) (*models.NotificationSettings, error)
	UpdateSettings(ctx context.Context, userID models.AccountID, fields bson.M) error
	UpsertSubscription(ctx context.Context, sub *models.PushSubscription) error
	ListSubscriptions(ctx context.Context, userID models.AccountID) ([]models.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
	DeleteSubscriptionsForUser(ctx context.Context, userID models.AccountID) error
}

type OTPStore interface {
	Create(ctx context.Context, purpose models.OTPPurpose, code *models.OneTimeCode) error
	InvalidateUnused(ctx context.Context, purpose models.OTPPurpose, email string) error
	FindLatestUnused(ctx context.Context, purpose models.OTPPurpose, email, code string) (*models.OneTimeCode, error)
	MarkUsed(ctx context.Context, purpose models.OTPPurpose, id string) error
	Delete(ctx context.Context, purpose models.OTPPurpose, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type TokenStore interface {
	Create(ctx context.Context, token *models.AuthToken) error
	GetByValue(ctx context.Context, value string, tokenType models.TokenType) (*models.AuthToken, error)
	Delete(ctx context.Context, id string) error
	DeleteByValue(ctx context.Context, value string) error
	DeleteAllForUser(ctx context.Context, userID models.AccountID) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type SectorStore interface {
	GetByName(ctx context.Context, name string) (*models.CustomSector, error)
	Create(ctx context.Context, sector *models.CustomSector) error
	List(ctx context.Context) ([]models.CustomSector, error)
}

type SecurityStore interface {
	Get(ctx context.Context, userID models.AccountID) (*models.SecuritySettings, error)
	Update(ctx context.Context, userID models.AccountID, fields bson.M) error
	SetTwoFactor(ctx context.Context, userID models.AccountID, enabled bool) error
}

// Mailer delivers a single email.
type Mailer interface {
	Send(to, subject, htmlBody, textBody string) error
}

// Pusher delivers one web-push message to a stored subscription.
type Pusher interface {
	Send(subscriptionJSON string, payloadJSON []byte) error
}

// Clock returns the current time. Injected so expiry and pacing logic is
// testable.
type Clock func() time.Time
