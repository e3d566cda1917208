package authz_test

import (
	"testing"

	"solartrack/internal/authz"
	"solartrack/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCanManage(t *testing.T) {
	tests := []struct {
		name      string
		role      model.Role
		canManage bool
	}{
		{name: "technician", role: model.RoleTechnician, canManage: true},
		{name: "engineer", role: model.RoleEngineer, canManage: true},
		{name: "manager", role: model.RoleManager, canManage: true},
		{name: "customer", role: model.RoleCustomer, canManage: false},
		{name: "guard", role: model.RoleGuard, canManage: false},
		{name: "unknown_role", role: model.Role("admin"), canManage: false},
		{name: "empty_role", role: model.Role(""), canManage: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.canManage, authz.CanManage(tt.role))
		})
	}
}

func TestCanResolve_NeverOnResolvedFault(t *testing.T) {
	roles := []model.Role{
		model.RoleTechnician, model.RoleEngineer, model.RoleManager,
		model.RoleCustomer, model.RoleGuard, model.Role(""),
	}

	for _, role := range roles {
		assert.False(t, authz.CanResolve(role, model.FaultStatusResolved),
			"role %q must not resolve an already resolved fault", role)
	}
}

func TestCanResolve_OpenStatuses(t *testing.T) {
	for _, status := range []model.FaultStatus{
		model.FaultStatusOpen, model.FaultStatusInProgress, model.FaultStatusPending,
	} {
		assert.True(t, authz.CanResolve(model.RoleTechnician, status))
		assert.False(t, authz.CanResolve(model.RoleCustomer, status))
	}
}

func TestCanComment(t *testing.T) {
	siteA := uuid.New()
	siteB := uuid.New()

	tests := []struct {
		name       string
		role       model.Role
		sites      []uuid.UUID
		faultSite  uuid.UUID
		canComment bool
	}{
		{name: "technician_any_site", role: model.RoleTechnician, faultSite: siteA, canComment: true},
		{name: "customer_member_site", role: model.RoleCustomer, sites: []uuid.UUID{siteA}, faultSite: siteA, canComment: true},
		{name: "customer_other_site", role: model.RoleCustomer, sites: []uuid.UUID{siteB}, faultSite: siteA, canComment: false},
		{name: "customer_no_sites", role: model.RoleCustomer, faultSite: siteA, canComment: false},
		{name: "guard", role: model.RoleGuard, faultSite: siteA, canComment: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.canComment, authz.CanComment(tt.role, tt.sites, tt.faultSite))
		})
	}
}

func TestVisibleSites_FailClosedForCustomers(t *testing.T) {
	customer := model.User{ID: uuid.New(), Role: model.RoleCustomer}

	sites, restricted := authz.VisibleSites(customer)
	assert.True(t, restricted)
	assert.Empty(t, sites, "customer without sites must see nothing")

	customer.SiteIDs = []uuid.UUID{uuid.New()}
	sites, restricted = authz.VisibleSites(customer)
	assert.True(t, restricted)
	assert.Len(t, sites, 1)
}

func TestVisibleSites_UnrestrictedForStaff(t *testing.T) {
	for _, role := range []model.Role{
		model.RoleTechnician, model.RoleEngineer, model.RoleManager, model.RoleGuard,
	} {
		_, restricted := authz.VisibleSites(model.User{ID: uuid.New(), Role: role})
		assert.False(t, restricted, "role %q should see all sites", role)
	}
}

func TestVisibleSites_UnknownRoleSeesNothing(t *testing.T) {
	sites, restricted := authz.VisibleSites(model.User{ID: uuid.New(), Role: "superuser"})
	assert.True(t, restricted)
	assert.Empty(t, sites)
}

func TestCanDeleteUser(t *testing.T) {
	manager := model.User{ID: uuid.New(), Role: model.RoleManager}
	technician := model.User{ID: uuid.New(), Role: model.RoleTechnician}

	assert.True(t, authz.CanDeleteUser(manager, uuid.New()))
	assert.False(t, authz.CanDeleteUser(manager, manager.ID), "manager must not delete own profile")
	assert.False(t, authz.CanDeleteUser(technician, uuid.New()))
}

func TestForFault_CustomerScenario(t *testing.T) {
	siteA := uuid.New()
	customer := model.User{ID: uuid.New(), Role: model.RoleCustomer, SiteIDs: []uuid.UUID{siteA}}
	fault := model.Fault{ID: uuid.New(), SiteID: siteA, Status: model.FaultStatusOpen}

	caps := authz.ForFault(customer, fault)
	assert.True(t, caps.CanView)
	assert.True(t, caps.CanComment)
	assert.False(t, caps.CanManage)
	assert.False(t, caps.CanResolve)

	fault.Status = model.FaultStatusResolved
	caps = authz.ForFault(customer, fault)
	assert.True(t, caps.CanView, "resolved fault stays visible")
	assert.False(t, caps.CanResolve)
}
