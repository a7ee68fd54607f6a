package services

import (
	"context"

	"github.com/forefold/leadsflow/internal/models"
	"github.com/forefold/leadsflow/internal/repositories"
)

// Scope is the resolved access context of one request. Every lead operation
// runs against a Scope rather than the raw authenticated user.
//
// When the acting account holds a delegation grant, EffectiveOwner is the
// grant's parent: leads the delegate creates belong to the parent, and the
// delegate's capabilities come from the grant. Otherwise EffectiveOwner is
// the acting account itself with full capabilities.
type Scope struct {
	ActingUserID   models.AccountID
	EffectiveOwner *models.User
	Grant          *models.DelegationGrant

	// OwnerIDs is the visibility set. Delegates see every active account
	// sharing the parent's company; top-level accounts see only their own
	// leads. Company names are free-text, so they never widen a top-level
	// account's scope.
	OwnerIDs []models.AccountID
}

// Allows reports whether the scope permits a capability. Accounts without a
// grant hold every capability.
func (s *Scope) Allows(c models.Capability) bool {
	if s.Grant == nil {
		return true
	}
	return s.Grant.Allows(c)
}

// ScopeResolver builds Scopes from the user and grant stores.
type ScopeResolver struct {
	users  UserStore
	grants GrantStore
}

func NewScopeResolver(users UserStore, grants GrantStore) *ScopeResolver {
	return &ScopeResolver{users: users, grants: grants}
}

// Resolve builds the access scope for an acting account.
func (r *ScopeResolver) Resolve(ctx context.Context, actingUserID models.AccountID) (*Scope, error) {
	scope := &Scope{ActingUserID: actingUserID}

	grant, err := r.grants.GetByDelegate(ctx, actingUserID)
	if err != nil && !repositories.IsNotFound(err) {
		return nil, WrapInternal(err, "failed to look up delegation grant")
	}

	ownerID := actingUserID
	if grant != nil {
		scope.Grant = grant
		ownerID = grant.ParentUserID
	}

	owner, err := r.users.GetByID(ctx, ownerID)
	if err != nil {
		if repositories.IsNotFound(err) {
			if grant != nil {
				return nil, NewNotFound("parent account not found: " + string(grant.ParentUserID))
			}
			return nil, NewNotFound("account not found")
		}
		return nil, WrapInternal(err, "failed to load account")
	}
	if grant != nil && !owner.IsActive {
		return nil, NewForbidden("parent account is deactivated")
	}
	scope.EffectiveOwner = owner

	if grant == nil {
		// Ownership itself is the boundary for top-level accounts.
		scope.OwnerIDs = []models.AccountID{owner.ID}
		return scope, nil
	}

	scope.OwnerIDs, err = r.visibleOwners(ctx, owner)
	if err != nil {
		return nil, err
	}
	return scope, nil
}

// visibleOwners resolves a delegate's company-wide visibility set. A parent
// with a blank company name only exposes its own leads.
func (r *ScopeResolver) visibleOwners(ctx context.Context, owner *models.User) ([]models.AccountID, error) {
	if owner.CompanyName == "" {
		return []models.AccountID{owner.ID}, nil
	}
	colleagues, err := r.users.ListActiveByCompany(ctx, owner.CompanyName)
	if err != nil {
		return nil, WrapInternal(err, "failed to resolve company accounts")
	}
	ids := make([]models.AccountID, 0, len(colleagues)+1)
	seen := make(map[models.AccountID]bool, len(colleagues)+1)
	for _, u := range colleagues {
		if !seen[u.ID] {
			seen[u.ID] = true
			ids = append(ids, u.ID)
		}
	}
	// A deactivated owner still covers its own leads even though the
	// company query filters inactive accounts out.
	if !seen[owner.ID] {
		ids = append(ids, owner.ID)
	}
	return ids, nil
}

// Authorize resolves the scope and checks one capability in a single call.
func (r *ScopeResolver) Authorize(ctx context.Context, actingUserID models.AccountID, c models.Capability) (*Scope, error) {
	scope, err := r.Resolve(ctx, actingUserID)
	if err != nil {
		return nil, err
	}
	if !scope.Allows(c) {
		return nil, NewForbidden("you do not have permission to " + c.Describe())
	}
	return scope, nil
}
