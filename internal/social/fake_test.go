package social

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/inkwell-dev/inkwell/internal/blog"
	"github.com/inkwell-dev/inkwell/internal/db"
	"github.com/inkwell-dev/inkwell/internal/web/query"
)

type pair struct{ a, b int64 }

// memStore is an in-memory Store that also serves posts to the service
// through postStore
type memStore struct {
	mu            sync.Mutex
	nextID        int64
	now           time.Time
	users         map[int64]UserSummary
	follows       map[pair]time.Time
	likes         map[pair]bool
	posts         map[int64]*blog.Post
	notifications []*Notification
}

func newMemStore() *memStore {
	m := &memStore{
		now:     time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
		users:   make(map[int64]UserSummary),
		follows: make(map[pair]time.Time),
		likes:   make(map[pair]bool),
		posts:   make(map[int64]*blog.Post),
	}
	for id, name := range map[int64]string{1: "ada", 2: "grace", 3: "linus"} {
		m.users[id] = UserSummary{ID: id, Username: name}
	}
	return m
}

func (m *memStore) tick() time.Time {
	m.now = m.now.Add(time.Minute)
	return m.now
}

func (m *memStore) addPost(authorID int64, title string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.posts[m.nextID] = &blog.Post{
		ID: m.nextID, AuthorID: authorID, Author: m.users[authorID].Username,
		Title: title, Tags: []string{}, CreatedAt: m.tick(),
	}
	return m.nextID
}

func paginate[T any](items []T, page query.Page) ([]T, int, error) {
	page, err := page.Resolve(len(items))
	if err != nil {
		return nil, len(items), err
	}
	start := min(page.Offset(), len(items))
	end := min(start+page.Limit(), len(items))
	return items[start:end], len(items), nil
}

func (m *memStore) GetUser(_ context.Context, id int64) (*UserSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &u, nil
}

func (m *memStore) Follow(_ context.Context, followerID, followingID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := pair{followerID, followingID}
	if _, ok := m.follows[key]; ok {
		return false, nil
	}
	m.follows[key] = m.tick()
	return true, nil
}

func (m *memStore) Unfollow(_ context.Context, followerID, followingID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := pair{followerID, followingID}
	if _, ok := m.follows[key]; !ok {
		return false, nil
	}
	delete(m.follows, key)
	return true, nil
}

func (m *memStore) related(userID int64, page query.Page, followers bool) ([]UserSummary, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	type entry struct {
		u  UserSummary
		at time.Time
	}
	var entries []entry
	for p, at := range m.follows {
		switch {
		case followers && p.b == userID:
			entries = append(entries, entry{m.users[p.a], at})
		case !followers && p.a == userID:
			entries = append(entries, entry{m.users[p.b], at})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].at.After(entries[j].at) })
	users := make([]UserSummary, len(entries))
	for i, e := range entries {
		users[i] = e.u
	}
	return paginate(users, page)
}

func (m *memStore) Followers(_ context.Context, userID int64, page query.Page) ([]UserSummary, int, error) {
	return m.related(userID, page, true)
}

func (m *memStore) Following(_ context.Context, userID int64, page query.Page) ([]UserSummary, int, error) {
	return m.related(userID, page, false)
}

func (m *memStore) Like(_ context.Context, userID, postID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[postID]; !ok {
		return false, db.ErrNotFound
	}
	key := pair{userID, postID}
	if m.likes[key] {
		return false, nil
	}
	m.likes[key] = true
	return true, nil
}

func (m *memStore) Unlike(_ context.Context, userID, postID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := pair{userID, postID}
	if !m.likes[key] {
		return false, nil
	}
	delete(m.likes, key)
	return true, nil
}

func (m *memStore) CreateNotification(_ context.Context, n *Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	n.ID = m.nextID
	n.CreatedAt = m.tick()
	n.Actor = m.users[n.ActorID].Username
	cp := *n
	m.notifications = append(m.notifications, &cp)
	return nil
}

func (m *memStore) ListNotifications(_ context.Context, recipientID int64, page query.Page) ([]Notification, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Notification
	for _, n := range m.notifications {
		if n.RecipientID == recipientID {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Read != out[j].Read {
			return !out[i].Read
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return paginate(out, page)
}

func (m *memStore) UnreadCount(_ context.Context, recipientID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, n := range m.notifications {
		if n.RecipientID == recipientID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (m *memStore) MarkRead(_ context.Context, recipientID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.notifications {
		if n.ID == id && n.RecipientID == recipientID {
			n.Read = true
			return nil
		}
	}
	return db.ErrNotFound
}

func (m *memStore) MarkAllRead(_ context.Context, recipientID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, n := range m.notifications {
		if n.RecipientID == recipientID && !n.Read {
			n.Read = true
			count++
		}
	}
	return count, nil
}

// postStore implements the blog.Store methods the service uses. Other
// methods panic on the nil embedded interface.
type postStore struct {
	blog.Store
	m *memStore
}

func (p *postStore) GetPost(_ context.Context, id int64) (*blog.Post, error) {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	post, ok := p.m.posts[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *post
	return &cp, nil
}

func (p *postStore) ListPosts(_ context.Context, f blog.PostFilter, page query.Page) ([]blog.Post, int, error) {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	var out []blog.Post
	for _, post := range p.m.posts {
		if f.FollowedBy != 0 {
			if _, ok := p.m.follows[pair{f.FollowedBy, post.AuthorID}]; !ok {
				continue
			}
		}
		out = append(out, *post)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, page)
}

type pushed struct {
	userID int64
	typ    string
	data   any
}

type recordingPusher struct {
	mu   sync.Mutex
	sent []pushed
}

func (p *recordingPusher) Push(userID int64, typ string, data any) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, pushed{userID, typ, data})
	return true
}
