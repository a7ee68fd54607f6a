package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/crypto/bcrypt"

	"github.com/forefold/leadsflow/internal/models"
	"github.com/forefold/leadsflow/internal/repositories"
	"github.com/forefold/leadsflow/pkg/uuid"
)

// ProfilePatch carries the editable profile fields; nil fields are left
// untouched.
type ProfilePatch struct {
	FullName       *string `json:"fullName"`
	Role           *string `json:"role"`
	CustomRole     *string `json:"customRole"`
	CompanyName    *string `json:"companyName"`
	CompanySize    *string `json:"companySize"`
	Industry       *string `json:"industry"`
	CustomIndustry *string `json:"customIndustry"`
	Website        *string `json:"website"`
	PhoneNumber    *string `json:"phoneNumber"`
}

// NotificationPatch carries the editable notification toggles.
type NotificationPatch struct {
	NewLeads           *bool `json:"newLeads"`
	FollowUps          *bool `json:"followUps"`
	HotLeads           *bool `json:"hotLeads"`
	Conversions        *bool `json:"conversions"`
	EmailNotifications *bool `json:"emailNotifications"`
	BrowserPush        *bool `json:"browserPush"`
	DailySummary       *bool `json:"dailySummary"`
}

// SubUserInput registers a delegate account under a management account.
type SubUserInput struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	FullName     string `json:"fullName"`
	Role         string `json:"role"`
	CanViewLeads bool   `json:"canViewLeads"`
	CanEditLeads bool   `json:"canEditLeads"`
	CanAddLeads  bool   `json:"canAddLeads"`
}

// SubUser is a delegate account joined with its grant.
type SubUser struct {
	User         models.User `json:"user"`
	CanViewLeads bool        `json:"canViewLeads"`
	CanEditLeads bool        `json:"canEditLeads"`
	CanAddLeads  bool        `json:"canAddLeads"`
}

// ProfileService implements profile management, notification preferences,
// push subscriptions and sub-user (delegate) administration.
type ProfileService struct {
	users         UserStore
	grants        GrantStore
	tokens        TokenStore
	notifications NotificationStore
	log           *logrus.Logger
}

func NewProfileService(users UserStore, grants GrantStore, tokens TokenStore, notifications NotificationStore, log *logrus.Logger) *ProfileService {
	return &ProfileService{
		users:         users,
		grants:        grants,
		tokens:        tokens,
		notifications: notifications,
		log:           log,
	}
}

// Get returns the account's own profile.
func (s *ProfileService) Get(ctx context.Context, userID models.AccountID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, NewNotFound("account not found")
		}
		return nil, WrapInternal(err, "failed to load account")
	}
	return user, nil
}

// Update patches the account's own profile. Email is immutable.
func (s *ProfileService) Update(ctx context.Context, userID models.AccountID, patch *ProfilePatch) (*models.User, error) {
	fields := bson.M{}
	set := func(key string, v *string) {
		if v != nil {
			fields[key] = strings.TrimSpace(*v)
		}
	}
	if patch.FullName != nil && strings.TrimSpace(*patch.FullName) == "" {
		return nil, NewBadRequest("name cannot be blank")
	}
	if patch.Role != nil {
		switch models.UserRole(*patch.Role) {
		case models.UserRoleManagement, models.UserRoleSales, models.UserRoleMarketing, models.UserRoleSupport, models.UserRoleOther:
		default:
			return nil, NewBadRequest("invalid role: " + *patch.Role)
		}
	}
	set("name", patch.FullName)
	set("role", patch.Role)
	set("custom_role", patch.CustomRole)
	set("company_name", patch.CompanyName)
	set("company_size", patch.CompanySize)
	set("industry", patch.Industry)
	set("custom_industry", patch.CustomIndustry)
	set("website", patch.Website)
	set("phone_number", patch.PhoneNumber)

	if len(fields) > 0 {
		if err := s.users.Update(ctx, userID, fields); err != nil {
			if repositories.IsNotFound(err) {
				return nil, NewNotFound("account not found")
			}
			return nil, WrapInternal(err, "failed to update profile")
		}
	}
	return s.Get(ctx, userID)
}

// ChangePassword verifies the current password and stores a new one.
// Existing sessions stay valid; only a reset through the forgot-password
// flow revokes them.
func (s *ProfileService) ChangePassword(ctx context.Context, userID models.AccountID, current, next string) error {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)) != nil {
		return NewUnauthorized("current password is incorrect")
	}
	if len(next) < minPasswordLength {
		return NewBadRequest(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return WrapInternal(err, "failed to hash password")
	}
	if err := s.users.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return WrapInternal(err, "failed to update password")
	}
	return nil
}

// NotificationSettings returns the account's notification preferences,
// creating the defaults on first access.
func (s *ProfileService) NotificationSettings(ctx context.Context, userID models.AccountID) (*models.NotificationSettings, error) {
	settings, err := s.notifications.GetSettings(ctx, userID)
	if err != nil {
		return nil, WrapInternal(err, "failed to load notification settings")
	}
	return settings, nil
}

// UpdateNotificationSettings patches the account's notification toggles.
func (s *ProfileService) UpdateNotificationSettings(ctx context.Context, userID models.AccountID, patch *NotificationPatch) (*models.NotificationSettings, error) {
	fields := bson.M{}
	set := func(key string, v *bool) {
		if v != nil {
			fields[key] = *v
		}
	}
	set("new_leads", patch.NewLeads)
	set("follow_ups", patch.FollowUps)
	set("hot_leads", patch.HotLeads)
	set("conversions", patch.Conversions)
	set("email_notifications", patch.EmailNotifications)
	set("browser_push", patch.BrowserPush)
	set("daily_summary", patch.DailySummary)

	if len(fields) > 0 {
		if err := s.notifications.UpdateSettings(ctx, userID, fields); err != nil {
			return nil, WrapInternal(err, "failed to update notification settings")
		}
	}
	return s.NotificationSettings(ctx, userID)
}

// Subscribe registers a browser push subscription for the account.
func (s *ProfileService) Subscribe(ctx context.Context, userID models.AccountID, endpoint, subscriptionJSON, deviceInfo string) error {
	if endpoint == "" || subscriptionJSON == "" {
		return NewBadRequest("subscription endpoint and payload are required")
	}
	err := s.notifications.UpsertSubscription(ctx, &models.PushSubscription{
		Endpoint:     endpoint,
		UserID:       userID,
		Subscription: subscriptionJSON,
		DeviceInfo:   deviceInfo,
	})
	if err != nil {
		return WrapInternal(err, "failed to store subscription")
	}
	return nil
}

// Unsubscribe removes one push subscription by endpoint.
func (s *ProfileService) Unsubscribe(ctx context.Context, endpoint string) error {
	if endpoint == "" {
		return NewBadRequest("subscription endpoint is required")
	}
	if err := s.notifications.DeleteSubscription(ctx, endpoint); err != nil {
		return WrapInternal(err, "failed to remove subscription")
	}
	return nil
}

// requireManagementParent loads the parent account and checks it may manage
// sub-users: management role, and not itself a delegate. Delegation does not
// chain.
func (s *ProfileService) requireManagementParent(ctx context.Context, parentID models.AccountID) (*models.User, error) {
	parent, err := s.Get(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if !parent.IsManagement() {
		return nil, NewForbidden("only management accounts can manage sub-users")
	}
	if _, err := s.grants.GetByDelegate(ctx, parentID); err == nil {
		return nil, NewForbidden("sub-user accounts cannot create their own sub-users")
	} else if !repositories.IsNotFound(err) {
		return nil, WrapInternal(err, "failed to look up delegation grant")
	}
	return parent, nil
}

// CreateSubUser provisions a delegate account under a management account.
// The delegate inherits the parent's company.
func (s *ProfileService) CreateSubUser(ctx context.Context, parentID models.AccountID, in *SubUserInput) (*SubUser, error) {
	parent, err := s.requireManagementParent(ctx, parentID)
	if err != nil {
		return nil, err
	}

	email := normalizeEmail(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, NewBadRequest("a valid email is required")
	}
	if len(in.Password) < minPasswordLength {
		return nil, NewBadRequest(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if strings.TrimSpace(in.FullName) == "" {
		return nil, NewBadRequest("name is required")
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, NewConflict("an account with this email already exists")
	} else if !repositories.IsNotFound(err) {
		return nil, WrapInternal(err, "failed to check existing account")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, WrapInternal(err, "failed to hash password")
	}
	id, err := uuid.NewUUID()
	if err != nil {
		return nil, WrapInternal(err, "failed to generate account id")
	}

	role := models.UserRole(in.Role)
	switch role {
	case models.UserRoleSales, models.UserRoleMarketing, models.UserRoleSupport, models.UserRoleOther:
	case "":
		role = models.UserRoleSales
	default:
		return nil, NewBadRequest("invalid sub-user role: " + in.Role)
	}

	user := &models.User{
		ID:           models.AccountID(id),
		Email:        email,
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(in.FullName),
		Role:         role,
		CompanyName:  parent.CompanyName,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if repositories.IsDuplicateKey(err) {
			return nil, NewConflict("an account with this email already exists")
		}
		return nil, WrapInternal(err, "failed to create sub-user")
	}

	grant := &models.DelegationGrant{
		UserID:       user.ID,
		ParentUserID: parent.ID,
		CanViewLeads: in.CanViewLeads,
		CanEditLeads: in.CanEditLeads,
		CanAddLeads:  in.CanAddLeads,
	}
	if err := s.grants.Create(ctx, grant); err != nil {
		// Roll the account back so a half-provisioned delegate never exists.
		if derr := s.users.Delete(ctx, user.ID); derr != nil {
			s.log.WithError(derr).WithField("user_id", user.ID).Error("failed to roll back sub-user account")
		}
		return nil, WrapInternal(err, "failed to create delegation grant")
	}

	return &SubUser{
		User:         *user,
		CanViewLeads: grant.CanViewLeads,
		CanEditLeads: grant.CanEditLeads,
		CanAddLeads:  grant.CanAddLeads,
	}, nil
}

// ListSubUsers returns the parent's delegates with their capabilities.
func (s *ProfileService) ListSubUsers(ctx context.Context, parentID models.AccountID) ([]SubUser, error) {
	if _, err := s.requireManagementParent(ctx, parentID); err != nil {
		return nil, err
	}

	grants, err := s.grants.ListByParent(ctx, parentID)
	if err != nil {
		return nil, WrapInternal(err, "failed to list delegation grants")
	}
	byID := make(map[models.AccountID]models.DelegationGrant, len(grants))
	ids := make([]models.AccountID, 0, len(grants))
	for _, g := range grants {
		byID[g.UserID] = g
		ids = append(ids, g.UserID)
	}
	users, err := s.users.ListActiveByIDs(ctx, ids)
	if err != nil {
		return nil, WrapInternal(err, "failed to load sub-user accounts")
	}

	out := make([]SubUser, 0, len(users))
	for _, u := range users {
		g := byID[u.ID]
		out = append(out, SubUser{
			User:         u,
			CanViewLeads: g.CanViewLeads,
			CanEditLeads: g.CanEditLeads,
			CanAddLeads:  g.CanAddLeads,
		})
	}
	return out, nil
}

// grantOwnedBy checks the grant exists and belongs to the parent.
func (s *ProfileService) grantOwnedBy(ctx context.Context, parentID, subUserID models.AccountID) (*models.DelegationGrant, error) {
	grant, err := s.grants.GetByDelegate(ctx, subUserID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, NewNotFound("sub-user not found")
		}
		return nil, WrapInternal(err, "failed to look up delegation grant")
	}
	if grant.ParentUserID != parentID {
		return nil, NewNotFound("sub-user not found")
	}
	return grant, nil
}

// UpdateSubUserPermissions replaces a delegate's capability flags.
func (s *ProfileService) UpdateSubUserPermissions(ctx context.Context, parentID, subUserID models.AccountID, canView, canEdit, canAdd bool) (*SubUser, error) {
	if _, err := s.requireManagementParent(ctx, parentID); err != nil {
		return nil, err
	}
	if _, err := s.grantOwnedBy(ctx, parentID, subUserID); err != nil {
		return nil, err
	}
	if err := s.grants.Update(ctx, subUserID, canView, canEdit, canAdd); err != nil {
		return nil, WrapInternal(err, "failed to update permissions")
	}
	user, err := s.users.GetByID(ctx, subUserID)
	if err != nil {
		return nil, WrapInternal(err, "failed to load sub-user account")
	}
	return &SubUser{
		User:         *user,
		CanViewLeads: canView,
		CanEditLeads: canEdit,
		CanAddLeads:  canAdd,
	}, nil
}

// DeleteSubUser removes a delegate account, its grant, its sessions and its
// push subscriptions. The parent's leads are untouched: delegates never own
// leads.
func (s *ProfileService) DeleteSubUser(ctx context.Context, parentID, subUserID models.AccountID) error {
	if _, err := s.requireManagementParent(ctx, parentID); err != nil {
		return err
	}
	if _, err := s.grantOwnedBy(ctx, parentID, subUserID); err != nil {
		return err
	}

	if err := s.grants.DeleteByDelegate(ctx, subUserID); err != nil && !repositories.IsNotFound(err) {
		return WrapInternal(err, "failed to delete delegation grant")
	}
	if err := s.tokens.DeleteAllForUser(ctx, subUserID); err != nil {
		return WrapInternal(err, "failed to revoke sub-user sessions")
	}
	if err := s.notifications.DeleteSubscriptionsForUser(ctx, subUserID); err != nil {
		s.log.WithError(err).WithField("user_id", subUserID).Warn("failed to remove sub-user push subscriptions")
	}
	if err := s.users.Delete(ctx, subUserID); err != nil && !repositories.IsNotFound(err) {
		return WrapInternal(err, "failed to delete sub-user account")
	}
	return nil
}
