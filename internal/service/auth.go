package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"solartrack/internal/audit"
	"solartrack/internal/authz"
	"solartrack/internal/database"
	"solartrack/internal/model"
	"solartrack/internal/util"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrAccountDisabled        = errors.New("account disabled")
	ErrTooManyAttempts        = errors.New("too many attempts")
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrNetworkUnavailable     = errors.New("backing services unreachable")
	ErrPasswordMismatch       = errors.New("passwords do not match")
	ErrPasswordTooShort       = errors.New("password must be at least 6 characters")
	ErrCustomerNeedsSite      = errors.New("customer requires at least one site")
	ErrInvalidRole            = errors.New("invalid role")
	ErrSelfDeletion           = errors.New("cannot delete own profile")
)

const minPasswordLength = 6

// UserStore is the persistence surface the account flows need.
type UserStore interface {
	Ping(ctx context.Context) error
	CreateUser(ctx context.Context, params database.CreateUserParams) (model.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	ListUsers(ctx context.Context, params database.ListUsersParams) ([]model.User, error)
	UpdateUser(ctx context.Context, id uuid.UUID, params database.UpdateUserParams) error
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

// LoginLimiter throttles repeated credential failures per email.
type LoginLimiter interface {
	CheckLogin(ctx context.Context, email string) error
	ResetLoginAttempts(ctx context.Context, email string) error
}

type AuthService struct {
	store   UserStore
	limiter LoginLimiter
	auditor *audit.Auditor
}

func NewAuthService(store UserStore, limiter LoginLimiter, auditor *audit.Auditor) *AuthService {
	return &AuthService{
		store:   store,
		limiter: limiter,
		auditor: auditor,
	}
}

type LoginRequest struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// Login verifies credentials. A reachability probe runs first so a dead
// backend surfaces as a connectivity error, not a credential one.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (model.User, error) {
	if err := s.store.Ping(ctx); err != nil {
		return model.User{}, fmt.Errorf("%w: %w", ErrNetworkUnavailable, err)
	}

	if s.limiter != nil {
		if err := s.limiter.CheckLogin(ctx, req.Email); err != nil {
			return model.User{}, err
		}
	}

	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return model.User{}, ErrInvalidCredentials
		}
		return model.User{}, err
	}

	if user.Disabled {
		return model.User{}, ErrAccountDisabled
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return model.User{}, ErrInvalidCredentials
	}

	if s.limiter != nil {
		// Stale counters expire on their own.
		_ = s.limiter.ResetLoginAttempts(ctx, req.Email)
	}

	s.auditor.Record(ctx, "user", user.ID, "login", user.ID, nil, nil)
	return user, nil
}

type CreateTeamMemberRequest struct {
	Email    string     `validate:"required,email"`
	Password string     `validate:"required,min=6"`
	Name     string     `validate:"required"`
	Role     model.Role `validate:"required"`
	Phone    util.Optional[string]
	PhotoURL util.Optional[string]
}

// CreateTeamMember provisions a staff account (technician, engineer,
// manager or guard). Credential and profile land atomically.
func (s *AuthService) CreateTeamMember(ctx context.Context, actor model.User, req CreateTeamMemberRequest) (model.User, error) {
	if !authz.CanManageUsers(actor.Role) {
		return model.User{}, ErrUnauthorized
	}
	if !req.Role.Valid() || req.Role == model.RoleCustomer {
		return model.User{}, ErrInvalidRole
	}
	if len(req.Password) < minPasswordLength {
		return model.User{}, ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.store.CreateUser(ctx, database.CreateUserParams{
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         req.Role,
		Name:         req.Name,
		Phone:        req.Phone,
		PhotoURL:     util.Some(req.PhotoURL.UnwrapOr(defaultPhotoURL(req.Name))),
	})
	if err != nil {
		if errors.Is(err, database.ErrEmailTaken) {
			return model.User{}, ErrEmailAlreadyRegistered
		}
		return model.User{}, err
	}

	s.auditor.Record(ctx, "user", user.ID, "create", actor.ID, nil, map[string]any{
		"email": user.Email, "role": user.Role,
	})
	return user, nil
}

type CreateCustomerRequest struct {
	Email           string `validate:"required,email"`
	Password        string `validate:"required,min=6"`
	ConfirmPassword string `validate:"required,eqfield=Password"`
	Name            string `validate:"required"`
	Company         util.Optional[string]
	Phone           util.Optional[string]
	Address         util.Optional[string]
	SiteIDs         []uuid.UUID `validate:"required,min=1"`
}

// CreateCustomer provisions a customer account. At least one site is
// mandatory; a customer without sites would see nothing at all.
func (s *AuthService) CreateCustomer(ctx context.Context, actor model.User, req CreateCustomerRequest) (model.User, error) {
	if !authz.CanManageUsers(actor.Role) {
		return model.User{}, ErrUnauthorized
	}
	if req.Password != req.ConfirmPassword {
		return model.User{}, ErrPasswordMismatch
	}
	if len(req.Password) < minPasswordLength {
		return model.User{}, ErrPasswordTooShort
	}
	if len(req.SiteIDs) == 0 {
		return model.User{}, ErrCustomerNeedsSite
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.store.CreateUser(ctx, database.CreateUserParams{
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         model.RoleCustomer,
		Name:         req.Name,
		Company:      req.Company,
		Phone:        req.Phone,
		Address:      req.Address,
		PhotoURL:     util.Some(defaultPhotoURL(req.Name)),
		SiteIDs:      req.SiteIDs,
	})
	if err != nil {
		if errors.Is(err, database.ErrEmailTaken) {
			return model.User{}, ErrEmailAlreadyRegistered
		}
		return model.User{}, err
	}

	s.auditor.Record(ctx, "user", user.ID, "create", actor.ID, nil, map[string]any{
		"email": user.Email, "role": user.Role, "sites": len(req.SiteIDs),
	})
	return user, nil
}

type UpdateUserRequest struct {
	Name     util.Optional[string]
	Phone    util.Optional[string]
	Company  util.Optional[string]
	Address  util.Optional[string]
	PhotoURL util.Optional[string]
	SiteIDs  util.Optional[[]uuid.UUID]
	Disabled util.Optional[bool]
}

// UpdateUser edits a profile. Users may edit themselves; everything else
// requires the manager role.
func (s *AuthService) UpdateUser(ctx context.Context, actor model.User, id uuid.UUID, req UpdateUserRequest) error {
	if actor.ID != id && !authz.CanManageUsers(actor.Role) {
		return ErrUnauthorized
	}
	if (req.SiteIDs.IsSet || req.Disabled.IsSet) && !authz.CanManageUsers(actor.Role) {
		return ErrUnauthorized
	}

	err := s.store.UpdateUser(ctx, id, database.UpdateUserParams{
		Name:     req.Name,
		Phone:    req.Phone,
		Company:  req.Company,
		Address:  req.Address,
		PhotoURL: req.PhotoURL,
		SiteIDs:  req.SiteIDs,
		Disabled: req.Disabled,
	})
	if err != nil {
		return err
	}

	s.auditor.Record(ctx, "user", id, "update", actor.ID, nil, nil)
	return nil
}

// DeleteUser removes a profile. Managers only, and never their own.
func (s *AuthService) DeleteUser(ctx context.Context, actor model.User, targetID uuid.UUID) error {
	if actor.ID == targetID {
		return ErrSelfDeletion
	}
	if !authz.CanDeleteUser(actor, targetID) {
		return ErrUnauthorized
	}
	if err := s.store.DeleteUser(ctx, targetID); err != nil {
		return err
	}
	s.auditor.Record(ctx, "user", targetID, "delete", actor.ID, nil, nil)
	return nil
}

// ListTeam returns all non-customer accounts. Staff only; customers and
// guards never see the roster.
func (s *AuthService) ListTeam(ctx context.Context, actor model.User) ([]model.User, error) {
	if !authz.CanManage(actor.Role) {
		return nil, ErrUnauthorized
	}
	users, err := s.store.ListUsers(ctx, database.ListUsersParams{})
	if err != nil {
		return nil, err
	}
	team := make([]model.User, 0, len(users))
	for _, user := range users {
		if user.Role != model.RoleCustomer {
			team = append(team, user)
		}
	}
	return team, nil
}

// ListCustomers returns all customer accounts with their site sets.
// Managers only.
func (s *AuthService) ListCustomers(ctx context.Context, actor model.User) ([]model.User, error) {
	if !authz.CanManageUsers(actor.Role) {
		return nil, ErrUnauthorized
	}
	return s.store.ListUsers(ctx, database.ListUsersParams{Role: util.Some(model.RoleCustomer)})
}

func defaultPhotoURL(name string) string {
	return "https://ui-avatars.com/api/?background=0D8ABC&color=fff&name=" + url.QueryEscape(name)
}
