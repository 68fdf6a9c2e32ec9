package accounts

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/inkwell-dev/inkwell/internal/db"
	"github.com/inkwell-dev/inkwell/internal/web/query"
)

// memStore is an in-memory Store for service and handler tests
type memStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*User
	groups map[string]int64
}

func newMemStore() *memStore {
	return &memStore{users: make(map[int64]*User), groups: make(map[string]int64)}
}

func (m *memStore) CreateUser(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return ErrUsernameTaken
		}
	}
	for _, g := range u.Groups {
		if _, ok := m.groups[g]; !ok {
			return &UnknownGroupsError{Names: []string{g}}
		}
	}
	m.nextID++
	u.ID = m.nextID
	u.DateJoined = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memStore) GetByID(_ context.Context, id int64) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) GetByUsername(_ context.Context, username string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, db.ErrNotFound
}

func (m *memStore) UpdateProfile(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return db.ErrNotFound
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memStore) ListUsers(_ context.Context, search string, page query.Page) ([]User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []User
	for _, u := range m.users {
		if search == "" || strings.Contains(strings.ToLower(u.Username+u.Email), strings.ToLower(search)) {
			all = append(all, *u)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Username < all[j].Username })

	page, err := page.Resolve(len(all))
	if err != nil {
		return nil, len(all), err
	}
	end := min(page.Offset()+page.Limit(), len(all))
	return all[page.Offset():end], len(all), nil
}

func (m *memStore) SetRole(_ context.Context, id int64, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return db.ErrNotFound
	}
	u.Role = role
	return nil
}

func (m *memStore) SetGroups(_ context.Context, id int64, groups []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return db.ErrNotFound
	}
	var missing []string
	for _, g := range groups {
		if _, ok := m.groups[g]; !ok {
			missing = append(missing, g)
		}
	}
	if len(missing) > 0 {
		return &UnknownGroupsError{Names: missing}
	}
	u.Groups = append([]string(nil), groups...)
	return nil
}

func (m *memStore) ListGroups(_ context.Context) ([]Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Group
	for name, id := range m.groups {
		g := Group{ID: id, Name: name}
		for _, u := range m.users {
			for _, ug := range u.Groups {
				if ug == name {
					g.Members++
				}
			}
		}
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) EnsureGroup(_ context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.groups[name]; ok {
		return false, nil
	}
	m.groups[name] = int64(len(m.groups) + 1)
	return true, nil
}

func (m *memStore) Memberships(_ context.Context) (map[int64][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64][]string)
	for id, u := range m.users {
		if len(u.Groups) > 0 {
			out[id] = append([]string(nil), u.Groups...)
		}
	}
	return out, nil
}

func (m *memStore) CountByRole(_ context.Context) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int)
	for _, u := range m.users {
		out[u.Role]++
	}
	return out, nil
}
