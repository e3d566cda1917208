// Package authz computes capability flags from a resolved user profile.
// Every function is total: an unknown or empty role yields no capabilities.
// The same predicates gate both the HTTP handlers and the service layer;
// the handler check alone is not a security boundary.
package authz

import (
	"slices"

	"solartrack/internal/model"

	"github.com/google/uuid"
)

// Capabilities bundles the per-fault flags consumed by handlers.
type Capabilities struct {
	CanView    bool `json:"can_view"`
	CanManage  bool `json:"can_manage"`
	CanResolve bool `json:"can_resolve"`
	CanComment bool `json:"can_comment"`
}

// CanManage reports whether the role may create, edit and delete faults
// and see faults across all sites.
func CanManage(role model.Role) bool {
	switch role {
	case model.RoleTechnician, model.RoleEngineer, model.RoleManager:
		return true
	}
	return false
}

// CanResolve reports whether the role may trigger the resolve action on a
// fault in the given status. A resolved fault cannot be re-resolved.
func CanResolve(role model.Role, status model.FaultStatus) bool {
	return CanManage(role) && status != model.FaultStatusResolved
}

// CanComment reports whether the user may append comments to a fault on
// the given site. Customers may comment only on faults of their own sites.
func CanComment(role model.Role, memberSites []uuid.UUID, faultSite uuid.UUID) bool {
	if CanManage(role) {
		return true
	}
	if role == model.RoleCustomer {
		return slices.Contains(memberSites, faultSite)
	}
	return false
}

// CanView reports whether the user may see a fault on the given site.
// A customer with an empty site set sees nothing; that is the fail-closed
// default, not an error.
func CanView(role model.Role, memberSites []uuid.UUID, faultSite uuid.UUID) bool {
	if role == model.RoleCustomer {
		return slices.Contains(memberSites, faultSite)
	}
	return role.Valid()
}

// VisibleSites returns the site filter to apply when listing faults for
// the user: (nil, false) means unrestricted, (sites, true) means restrict
// to exactly those sites. An empty restricted set admits no records.
func VisibleSites(user model.User) ([]uuid.UUID, bool) {
	if user.Role == model.RoleCustomer {
		return user.SiteIDs, true
	}
	if !user.Role.Valid() {
		return nil, true
	}
	return nil, false
}

// CanDeleteUser reports whether the actor may delete the target profile.
// Only managers delete profiles, and never their own.
func CanDeleteUser(actor model.User, targetID uuid.UUID) bool {
	return actor.Role == model.RoleManager && actor.ID != targetID
}

// CanManageUsers gates the team and customer administration surface.
func CanManageUsers(role model.Role) bool {
	return role == model.RoleManager
}

// ForFault resolves the full capability set of a user against one fault.
func ForFault(user model.User, fault model.Fault) Capabilities {
	return Capabilities{
		CanView:    CanView(user.Role, user.SiteIDs, fault.SiteID),
		CanManage:  CanManage(user.Role),
		CanResolve: CanResolve(user.Role, fault.Status),
		CanComment: CanComment(user.Role, user.SiteIDs, fault.SiteID),
	}
}
