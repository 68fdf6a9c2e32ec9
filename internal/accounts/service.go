package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/inkwell-dev/inkwell/internal/db"
	"github.com/inkwell-dev/inkwell/internal/logging"
	"github.com/inkwell-dev/inkwell/internal/metrics"
	"github.com/inkwell-dev/inkwell/internal/validation"
	"github.com/inkwell-dev/inkwell/internal/web/auth"
	"github.com/inkwell-dev/inkwell/internal/web/query"
)

// Messages returned to clients
const (
	MsgRegistered      = "User registered successfully"
	MsgLoggedIn        = "Login successful"
	MsgLoggedOut       = "Successfully logged out."
	MsgPasswordsDiffer = "Passwords don't match"
	MsgMissingCreds    = "Must include username and password"
	MsgInvalidCreds    = "Invalid credentials"
	MsgDisabled        = "User account is disabled"
	MsgUsernameTaken   = "A user with that username already exists."
)

// Service implements the account operations
type Service struct {
	store    Store
	tokens   *auth.AuthService
	revoker  *auth.Revoker
	enforcer *auth.Enforcer
	logger   *zap.Logger
}

// NewService wires a Service. revoker may be nil when logout revocation is
// not needed (CLI use).
func NewService(store Store, tokens *auth.AuthService, revoker *auth.Revoker, enforcer *auth.Enforcer, logger *zap.Logger) *Service {
	return &Service{
		store:    store,
		tokens:   tokens,
		revoker:  revoker,
		enforcer: enforcer,
		logger:   logging.OrNop(logger).Named("accounts"),
	}
}

// Register creates a Member account and signs a token for it
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	errs := validation.New()
	if err := validation.Validate(req); err != nil {
		ve, ok := validation.AsErrors(err)
		if !ok {
			return nil, err
		}
		errs.Merge(ve)
	}
	if req.Password != "" && req.PasswordConfirm != "" && req.Password != req.PasswordConfirm {
		errs.AddNonField(MsgPasswordsDiffer)
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	u := &User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Bio:          req.Bio,
		Role:         auth.RoleMember,
		IsActive:     true,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return nil, validation.Single("username", MsgUsernameTaken)
		}
		return nil, err
	}

	token, err := s.tokens.GenerateToken(u.Principal())
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	metrics.AuthEvents.WithLabelValues("register", "success").Inc()
	logging.FromContext(ctx).Info("user registered", zap.Int64("user_id", u.ID), zap.String("username", u.Username))
	return &AuthResult{User: ProfileOf(u), Token: token, Message: MsgRegistered}, nil
}

// Login checks credentials and signs a token
func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, nonField(MsgMissingCreds)
	}

	u, err := s.store.GetByUsername(ctx, username)
	if err != nil && !db.IsNotFound(err) {
		return nil, err
	}
	if u == nil || !auth.CheckPassword(req.Password, u.PasswordHash) {
		metrics.AuthEvents.WithLabelValues("login", "failure").Inc()
		logging.FromContext(ctx).Warn("login failed", zap.String("username", username))
		return nil, nonField(MsgInvalidCreds)
	}
	if !u.IsActive {
		metrics.AuthEvents.WithLabelValues("login", "disabled").Inc()
		return nil, nonField(MsgDisabled)
	}

	token, err := s.tokens.GenerateToken(u.Principal())
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	metrics.AuthEvents.WithLabelValues("login", "success").Inc()
	return &AuthResult{User: ProfileOf(u), Token: token, Message: MsgLoggedIn}, nil
}

// Logout revokes the token used on the current request
func (s *Service) Logout(ctx context.Context, p *auth.Principal) error {
	if s.revoker == nil || p == nil {
		return nil
	}
	if err := s.revoker.Revoke(ctx, p.TokenID, p.ExpiresAt); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	metrics.AuthEvents.WithLabelValues("logout", "success").Inc()
	return nil
}

// Profile returns the profile of user id
func (s *Service) Profile(ctx context.Context, id int64) (*Profile, error) {
	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p := ProfileOf(u)
	return &p, nil
}

// UpdateProfile applies the non-nil fields of req to user id
func (s *Service) UpdateProfile(ctx context.Context, id int64, req UpdateProfileRequest) (*Profile, error) {
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		req.Email = &email
	}
	if err := validation.Validate(req); err != nil {
		return nil, err
	}

	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Email != nil {
		u.Email = *req.Email
	}
	if req.FirstName != nil {
		u.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		u.LastName = *req.LastName
	}
	if req.Bio != nil {
		u.Bio = *req.Bio
	}
	if req.ProfilePicture != nil {
		u.ProfilePicture = *req.ProfilePicture
	}

	if err := s.store.UpdateProfile(ctx, u); err != nil {
		return nil, err
	}
	p := ProfileOf(u)
	return &p, nil
}

// ListUsers returns one page of users for the admin endpoints
func (s *Service) ListUsers(ctx context.Context, search string, page query.Page) ([]AdminUser, int, error) {
	users, total, err := s.store.ListUsers(ctx, search, page)
	if err != nil {
		return nil, total, err
	}
	out := make([]AdminUser, len(users))
	for i := range users {
		out[i] = AdminUserOf(&users[i])
	}
	return out, total, nil
}

// SetRole changes the role of user id
func (s *Service) SetRole(ctx context.Context, id int64, role string) (*AdminUser, error) {
	if !auth.IsValidRole(role) {
		return nil, validation.Single("role", fmt.Sprintf("\"%s\" is not a valid choice.", role))
	}
	if err := s.store.SetRole(ctx, id, role); err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info("role changed", zap.Int64("user_id", id), zap.String("role", role))
	return s.adminUser(ctx, id)
}

// SetGroups replaces the groups of user id and refreshes the enforcer
func (s *Service) SetGroups(ctx context.Context, id int64, groups []string) (*AdminUser, error) {
	groups = sortedGroups(groups)
	if err := s.store.SetGroups(ctx, id, groups); err != nil {
		var unknown *UnknownGroupsError
		if errors.As(err, &unknown) {
			errs := validation.New()
			for _, name := range unknown.Names {
				errs.Add("groups", fmt.Sprintf("Object with name=%s does not exist.", name))
			}
			return nil, errs
		}
		return nil, err
	}
	if s.enforcer != nil {
		if err := s.enforcer.SetUserGroups(id, groups); err != nil {
			return nil, err
		}
	}
	logging.FromContext(ctx).Info("groups changed", zap.Int64("user_id", id), zap.Strings("groups", groups))
	return s.adminUser(ctx, id)
}

// LookupPrincipal returns the stored principal of user id. Deleted and
// deactivated accounts give auth.ErrAccountInactive.
func (s *Service) LookupPrincipal(ctx context.Context, id int64) (*auth.Principal, error) {
	u, err := s.store.GetByID(ctx, id)
	if db.IsNotFound(err) {
		return nil, auth.ErrAccountInactive
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, auth.ErrAccountInactive
	}
	return u.Principal(), nil
}

// UserByUsername returns the account named username
func (s *Service) UserByUsername(ctx context.Context, username string) (*User, error) {
	return s.store.GetByUsername(ctx, strings.TrimSpace(username))
}

// AddToGroup adds the user named username to group and keeps their other
// groups
func (s *Service) AddToGroup(ctx context.Context, username, group string) (*AdminUser, error) {
	u, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	for _, g := range u.Groups {
		if g == group {
			a := AdminUserOf(u)
			return &a, nil
		}
	}
	return s.SetGroups(ctx, u.ID, append(append([]string{}, u.Groups...), group))
}

func (s *Service) adminUser(ctx context.Context, id int64) (*AdminUser, error) {
	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	a := AdminUserOf(u)
	return &a, nil
}

// ListGroups returns the groups with their book permissions
func (s *Service) ListGroups(ctx context.Context) ([]Group, error) {
	groups, err := s.store.ListGroups(ctx)
	if err != nil {
		return nil, err
	}
	for i := range groups {
		groups[i].Permissions = groupPermissions(groups[i].Name)
	}
	if groups == nil {
		groups = []Group{}
	}
	return groups, nil
}

func groupPermissions(name string) []string {
	for _, g := range auth.DefaultGroups {
		if g.Name == name {
			out := make([]string, len(g.Permissions))
			for i, p := range g.Permissions {
				out[i] = p.Codename()
			}
			return out
		}
	}
	return []string{}
}

// SetupGroups creates the default permission groups. Existing groups are
// left alone, so it can run repeatedly.
func (s *Service) SetupGroups(ctx context.Context) ([]GroupSetup, error) {
	out := make([]GroupSetup, 0, len(auth.DefaultGroups))
	for _, g := range auth.DefaultGroups {
		created, err := s.store.EnsureGroup(ctx, g.Name)
		if err != nil {
			return out, err
		}
		out = append(out, GroupSetup{Name: g.Name, Created: created, Permissions: groupPermissions(g.Name)})
	}
	return out, nil
}

// CreateUser creates an account from the command line
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*User, error) {
	if err := validation.Validate(in); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	u := &User{
		Username:     strings.TrimSpace(in.Username),
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: hash,
		Role:         in.Role,
		IsActive:     true,
		IsStaff:      in.IsStaff,
		IsSuperuser:  in.IsSuperuser,
		Groups:       sortedGroups(in.Groups),
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	if s.enforcer != nil && len(u.Groups) > 0 {
		if err := s.enforcer.SetUserGroups(u.ID, u.Groups); err != nil {
			return nil, err
		}
	}
	return u, nil
}

// LoadMemberships copies every stored membership into the enforcer
func (s *Service) LoadMemberships(ctx context.Context) error {
	m, err := s.store.Memberships(ctx)
	if err != nil {
		return err
	}
	if err := s.enforcer.LoadMemberships(m); err != nil {
		return err
	}
	s.logger.Info("permission memberships loaded", zap.Int("users", len(m)))
	return nil
}

// SyncMemberships makes the enforcer reload memberships from the store once
// they are older than ttl, so group changes made by other processes apply.
func (s *Service) SyncMemberships(ttl time.Duration) {
	if s.enforcer == nil {
		return
	}
	s.enforcer.RefreshFrom(s.store.Memberships, ttl)
}

// CountByRole returns the number of users per role, including empty roles
func (s *Service) CountByRole(ctx context.Context) (map[string]int, error) {
	counts, err := s.store.CountByRole(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range auth.Roles {
		if _, ok := counts[r]; !ok {
			counts[r] = 0
		}
	}
	return counts, nil
}

func nonField(msg string) error {
	errs := validation.New()
	errs.AddNonField(msg)
	return errs
}
