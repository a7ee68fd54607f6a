package models

import (
	"time"
)

// AccountID identifies an account everywhere in the system. Accounts, grants,
// leads, settings and tokens all reference accounts through this one opaque
// string type; there is no separate numeric identity space.
type AccountID string

func (id AccountID) String() string { return string(id) }

// User represents a registered account.
// Collection: users
type User struct {
	ID                 AccountID `bson:"_id,omitempty" json:"id"`
	Email              string    `bson:"email" json:"email"`
	PasswordHash       string    `bson:"password_hash" json:"-"` // Never expose in JSON
	FullName           string    `bson:"name" json:"fullName"`
	Role               UserRole  `bson:"role" json:"role"`
	CustomRole         string    `bson:"custom_role,omitempty" json:"customRole,omitempty"`
	CompanyName        string    `bson:"company_name,omitempty" json:"companyName,omitempty"`
	CompanySize        string    `bson:"company_size,omitempty" json:"companySize,omitempty"`
	Industry           string    `bson:"industry,omitempty" json:"industry,omitempty"`
	CustomIndustry     string    `bson:"custom_industry,omitempty" json:"customIndustry,omitempty"`
	Website            string    `bson:"website,omitempty" json:"website,omitempty"`
	PhoneNumber        string    `bson:"phone_number,omitempty" json:"phoneNumber,omitempty"`
	SubscriptionStatus string    `bson:"subscription_status,omitempty" json:"subscriptionStatus,omitempty"`
	SubscriptionPlan   string    `bson:"subscription_plan,omitempty" json:"subscriptionPlan,omitempty"`
	IsActive           bool      `bson:"is_active" json:"isActive"`
	CreatedAt          time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt          time.Time `bson:"updated_at" json:"updatedAt"`
}

type UserRole string

const (
	UserRoleManagement UserRole = "management" // Can provision sub-users
	UserRoleSales      UserRole = "sales"
	UserRoleMarketing  UserRole = "marketing"
	UserRoleSupport    UserRole = "support"
	UserRoleOther      UserRole = "other" // Free-text role carried in CustomRole
)

// EffectiveRole returns the custom role when the stored role is "other".
func (u *User) EffectiveRole() string {
	if u.Role == UserRoleOther && u.CustomRole != "" {
		return u.CustomRole
	}
	return string(u.Role)
}

// IsManagement reports whether the account may provision and manage sub-users.
func (u *User) IsManagement() bool {
	return u.Role == UserRoleManagement || u.CustomRole == string(UserRoleManagement)
}
