package models

import "time"

// DelegationGrant records that one account (the delegate, or "sub-user") acts
// under another account (the parent) and which lead capabilities it carries.
// The delegate id is the primary key, so a delegate has at most one parent.
// Collection: user_permissions
type DelegationGrant struct {
	UserID       AccountID `bson:"_id" json:"userId"`
	ParentUserID AccountID `bson:"parent_user_id" json:"parentUserId"`
	CanViewLeads bool      `bson:"can_view_leads" json:"canViewLeads"`
	CanEditLeads bool      `bson:"can_edit_leads" json:"canEditLeads"`
	CanAddLeads  bool      `bson:"can_add_leads" json:"canAddLeads"`
	CreatedAt    time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updatedAt"`
}

// Capability names a gated lead operation.
type Capability string

const (
	CapabilityViewLeads Capability = "view"
	CapabilityEditLeads Capability = "edit"
	CapabilityAddLeads  Capability = "add"
)

// Describe returns the capability as a human-readable action phrase for
// error messages.
func (c Capability) Describe() string {
	switch c {
	case CapabilityViewLeads:
		return "view leads"
	case CapabilityEditLeads:
		return "edit leads"
	case CapabilityAddLeads:
		return "add leads"
	default:
		return string(c)
	}
}

// Allows reports whether the grant carries the given capability. Deletion is
// gated by the edit capability; there is no separate delete flag.
func (g *DelegationGrant) Allows(c Capability) bool {
	switch c {
	case CapabilityViewLeads:
		return g.CanViewLeads
	case CapabilityEditLeads:
		return g.CanEditLeads
	case CapabilityAddLeads:
		return g.CanAddLeads
	default:
		return false
	}
}
