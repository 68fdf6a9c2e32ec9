package blog

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/inkwell-dev/inkwell/internal/db"
	"github.com/inkwell-dev/inkwell/internal/web/query"
)

// memStore is an in-memory Store. Post filtering covers search, author and
// tag; ordering is always newest first.
type memStore struct {
	mu        sync.Mutex
	nextID    int64
	now       time.Time
	usernames map[int64]string
	posts     map[int64]*Post
	comments  map[int64]*Comment
}

func newMemStore() *memStore {
	return &memStore{
		now:       time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		usernames: map[int64]string{1: "ada", 2: "grace", 3: "linus"},
		posts:     make(map[int64]*Post),
		comments:  make(map[int64]*Comment),
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

// tick advances the clock so creation order is observable
func (m *memStore) tick() time.Time {
	m.now = m.now.Add(time.Minute)
	return m.now
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

func (m *memStore) post(p *Post) Post {
	cp := *p
	cp.Author = m.usernames[p.AuthorID]
	cp.Tags = append([]string{}, p.Tags...)
	cp.CommentsCount = 0
	for _, c := range m.comments {
		if c.PostID == p.ID {
			cp.CommentsCount++
		}
	}
	return cp
}

func hasTag(p *Post, slug string) bool {
	for _, t := range p.Tags {
		if Slugify(t) == slug {
			return true
		}
	}
	return false
}

func (m *memStore) ListPosts(_ context.Context, f PostFilter, page query.Page) ([]Post, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	needle := strings.ToLower(f.Search)
	var out []Post
	for _, p := range m.posts {
		if f.AuthorID != 0 && p.AuthorID != f.AuthorID {
			continue
		}
		if f.Tag != "" && !hasTag(p, Slugify(f.Tag)) {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(p.Title), needle) &&
			!strings.Contains(strings.ToLower(p.Content), needle) && !hasTag(p, Slugify(f.Search)) {
			continue
		}
		out = append(out, m.post(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, page)
}

func (m *memStore) GetPost(_ context.Context, id int64) (*Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := m.post(p)
	return &cp, nil
}

func (m *memStore) CreatePost(_ context.Context, p *Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.id()
	p.CreatedAt = m.tick()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	m.posts[p.ID] = &cp
	return nil
}

func (m *memStore) UpdatePost(_ context.Context, p *Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.posts[p.ID]
	if !ok {
		return db.ErrNotFound
	}
	p.UpdatedAt = m.tick()
	existing.Title, existing.Content, existing.Tags, existing.UpdatedAt = p.Title, p.Content, p.Tags, p.UpdatedAt
	return nil
}

func (m *memStore) DeletePost(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[id]; !ok {
		return db.ErrNotFound
	}
	delete(m.posts, id)
	for cid, c := range m.comments {
		if c.PostID == id {
			delete(m.comments, cid)
		}
	}
	return nil
}

func (m *memStore) ListComments(_ context.Context, f CommentFilter, page query.Page) ([]Comment, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Comment
	for _, c := range m.comments {
		if (f.PostID != 0 && c.PostID != f.PostID) || (f.AuthorID != 0 && c.AuthorID != f.AuthorID) {
			continue
		}
		cp := *c
		cp.Author = m.usernames[c.AuthorID]
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, page)
}

func (m *memStore) GetComment(_ context.Context, id int64) (*Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *c
	cp.Author = m.usernames[c.AuthorID]
	return &cp, nil
}

func (m *memStore) CreateComment(_ context.Context, c *Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[c.PostID]; !ok {
		return db.ErrNotFound
	}
	c.ID = m.id()
	c.CreatedAt = m.tick()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	m.comments[c.ID] = &cp
	return nil
}

func (m *memStore) UpdateComment(_ context.Context, c *Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.comments[c.ID]
	if !ok {
		return db.ErrNotFound
	}
	c.UpdatedAt = m.tick()
	existing.Content, existing.UpdatedAt = c.Content, c.UpdatedAt
	return nil
}

func (m *memStore) DeleteComment(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.comments[id]; !ok {
		return db.ErrNotFound
	}
	delete(m.comments, id)
	return nil
}

func (m *memStore) tags() map[string]*Tag {
	out := make(map[string]*Tag)
	for _, p := range m.posts {
		for _, name := range p.Tags {
			slug := Slugify(name)
			t, ok := out[slug]
			if !ok {
				t = &Tag{ID: int64(len(out) + 1), Name: name, Slug: slug}
				out[slug] = t
			}
			t.PostCount++
		}
	}
	return out
}

func (m *memStore) ListTags(context.Context) ([]Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Tag{}
	for _, t := range m.tags() {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) GetTag(_ context.Context, slug string) (*Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tags()[slug]
	if !ok {
		return nil, db.ErrNotFound
	}
	return t, nil
}

type notification struct {
	recipient, actor int64
	verb, target     string
	targetID         int64
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (n *recordingNotifier) Notify(_ context.Context, recipientID, actorID int64, verb, targetType string, targetID int64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{recipientID, actorID, verb, targetType, targetID})
	return nil
}
