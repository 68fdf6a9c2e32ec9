package auth

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

// MembershipSource returns every user's group names
type MembershipSource func(ctx context.Context) (map[int64][]string, error)

// Enforcer answers has_perm questions from group memberships using Casbin.
// Memberships are loaded from the database at startup, kept in sync by
// SetUserGroups and, with RefreshFrom, reloaded once they grow stale so
// writes from other processes are seen.
type Enforcer struct {
	mu       sync.RWMutex
	enforcer *casbin.SyncedEnforcer
	users    map[int64]struct{}

	refreshMu sync.Mutex
	source    MembershipSource
	ttl       time.Duration
	loadedAt  time.Time
	now       func() time.Time
}

// NewEnforcer creates an enforcer with the DefaultGroups policies loaded
func NewEnforcer() (*Enforcer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	for _, g := range DefaultGroups {
		for _, perm := range g.Permissions {
			if _, err := enforcer.AddPolicy(groupSubject(g.Name), ObjectBook, string(perm)); err != nil {
				return nil, fmt.Errorf("failed to add policy for %s: %w", g.Name, err)
			}
		}
	}

	return &Enforcer{enforcer: enforcer, users: make(map[int64]struct{}), now: time.Now}, nil
}

// RefreshFrom makes HasPerm reload all memberships from src when the last
// load is older than ttl. A zero ttl reloads on every check.
func (e *Enforcer) RefreshFrom(src MembershipSource, ttl time.Duration) {
	e.refreshMu.Lock()
	defer e.refreshMu.Unlock()
	e.source = src
	e.ttl = ttl
	e.loadedAt = time.Time{}
}

func (e *Enforcer) refresh(ctx context.Context) error {
	e.refreshMu.Lock()
	defer e.refreshMu.Unlock()
	if e.source == nil {
		return nil
	}
	now := e.now()
	if !e.loadedAt.IsZero() && now.Sub(e.loadedAt) < e.ttl {
		return nil
	}
	m, err := e.source(ctx)
	if err != nil {
		return fmt.Errorf("failed to reload memberships: %w", err)
	}
	if err := e.ReplaceMemberships(m); err != nil {
		return err
	}
	e.loadedAt = now
	return nil
}

func userSubject(id int64) string {
	return "user:" + strconv.FormatInt(id, 10)
}

func groupSubject(name string) string {
	return "group:" + name
}

// HasPerm reports whether p may perform perm on obj. Superusers are always
// allowed and anonymous principals never are.
func (e *Enforcer) HasPerm(ctx context.Context, p *Principal, obj string, perm Permission) (bool, error) {
	if p == nil || p.ID == 0 {
		return false, nil
	}
	if p.IsSuperuser {
		return true, nil
	}
	if err := e.refresh(ctx); err != nil {
		return false, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	allowed, err := e.enforcer.Enforce(userSubject(p.ID), obj, string(perm))
	if err != nil {
		return false, fmt.Errorf("enforcement failed: %w", err)
	}
	return allowed, nil
}

// SetUserGroups replaces the group memberships of a user
func (e *Enforcer) SetUserGroups(userID int64, groups []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.setUserGroups(userID, groups)
}

func (e *Enforcer) setUserGroups(userID int64, groups []string) error {
	sub := userSubject(userID)
	e.users[userID] = struct{}{}
	if _, err := e.enforcer.DeleteRolesForUser(sub); err != nil {
		return fmt.Errorf("failed to clear groups for %s: %w", sub, err)
	}
	for _, g := range groups {
		if _, err := e.enforcer.AddRoleForUser(sub, groupSubject(g)); err != nil {
			return fmt.Errorf("failed to add %s to %s: %w", sub, g, err)
		}
	}
	return nil
}

// LoadMemberships replaces memberships for every user in m
func (e *Enforcer) LoadMemberships(m map[int64][]string) error {
	for userID, groups := range m {
		if err := e.SetUserGroups(userID, groups); err != nil {
			return err
		}
	}
	return nil
}

// ReplaceMemberships makes m the complete membership table. Users missing
// from m lose every group.
func (e *Enforcer) ReplaceMemberships(m map[int64][]string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for userID := range e.users {
		if _, ok := m[userID]; !ok {
			if err := e.setUserGroups(userID, nil); err != nil {
				return err
			}
			delete(e.users, userID)
		}
	}
	for userID, groups := range m {
		if err := e.setUserGroups(userID, groups); err != nil {
			return err
		}
	}
	return nil
}

// UserGroups returns the sorted group names a user belongs to
func (e *Enforcer) UserGroups(userID int64) ([]string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	roles, err := e.enforcer.GetRolesForUser(userSubject(userID))
	if err != nil {
		return nil, err
	}
	groups := make([]string, 0, len(roles))
	for _, r := range roles {
		groups = append(groups, r[len("group:"):])
	}
	sort.Strings(groups)
	return groups, nil
}

// Permissions returns every permission p holds on obj
func (e *Enforcer) Permissions(ctx context.Context, p *Principal, obj string) ([]Permission, error) {
	var out []Permission
	for _, perm := range []Permission{PermView, PermCreate, PermEdit, PermDelete} {
		ok, err := e.HasPerm(ctx, p, obj, perm)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, perm)
		}
	}
	return out, nil
}
