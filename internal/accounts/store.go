package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/inkwell-dev/inkwell/internal/db"
	"github.com/inkwell-dev/inkwell/internal/web/query"
)

// ErrUsernameTaken is returned when creating a user whose username exists
var ErrUsernameTaken = errors.New("username already exists")

// UnknownGroupsError lists group names that do not exist
type UnknownGroupsError struct {
	Names []string
}

func (e *UnknownGroupsError) Error() string {
	return "unknown groups: " + strings.Join(e.Names, ", ")
}

// Store persists users and group memberships
type Store interface {
	CreateUser(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	UpdateProfile(ctx context.Context, u *User) error
	ListUsers(ctx context.Context, search string, page query.Page) ([]User, int, error)
	SetRole(ctx context.Context, id int64, role string) error
	SetGroups(ctx context.Context, id int64, groups []string) error
	ListGroups(ctx context.Context) ([]Group, error)
	EnsureGroup(ctx context.Context, name string) (bool, error)
	Memberships(ctx context.Context) (map[int64][]string, error)
	CountByRole(ctx context.Context) (map[string]int, error)
}

// PostgresStore implements Store on PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store on conn
func NewPostgresStore(conn *sql.DB) *PostgresStore {
	return &PostgresStore{db: conn}
}

const selectUser = `SELECT u.id, u.username, u.email, u.password_hash, u.first_name, u.last_name,
	u.bio, u.profile_picture, u.role, u.is_active, u.is_staff, u.is_superuser, u.date_joined,
	(SELECT COUNT(*) FROM follows f WHERE f.following_id = u.id),
	(SELECT COUNT(*) FROM follows f WHERE f.follower_id = u.id),
	COALESCE((SELECT string_agg(g.name, ',' ORDER BY g.name) FROM user_groups ug
		JOIN auth_groups g ON g.id = ug.group_id WHERE ug.user_id = u.id), '')
FROM users u`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*User, error) {
	var u User
	var groups string
	err := s.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.Bio, &u.ProfilePicture, &u.Role, &u.IsActive, &u.IsStaff, &u.IsSuperuser, &u.DateJoined,
		&u.FollowersCount, &u.FollowingCount, &groups)
	if err != nil {
		return nil, db.ConvertDBError(err)
	}
	if groups != "" {
		u.Groups = strings.Split(groups, ",")
	}
	return &u, nil
}

// CreateUser inserts u and its group memberships, filling ID and DateJoined
func (s *PostgresStore) CreateUser(ctx context.Context, u *User) error {
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `INSERT INTO users
			(username, email, password_hash, first_name, last_name, bio, profile_picture, role, is_active, is_staff, is_superuser)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING id, date_joined`,
			u.Username, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Bio, u.ProfilePicture,
			u.Role, u.IsActive, u.IsStaff, u.IsSuperuser,
		).Scan(&u.ID, &u.DateJoined)
		if err != nil {
			err = db.ConvertDBError(err)
			if db.IsUniqueViolation(err) {
				return ErrUsernameTaken
			}
			return fmt.Errorf("failed to insert user: %w", err)
		}
		if len(u.Groups) > 0 {
			return replaceGroups(ctx, tx, u.ID, u.Groups)
		}
		return nil
	})
}

// GetByID returns the user with id or db.ErrNotFound
func (s *PostgresStore) GetByID(ctx context.Context, id int64) (*User, error) {
	return scanUser(s.db.QueryRowContext(ctx, selectUser+" WHERE u.id = $1", id))
}

// GetByUsername returns the user with username or db.ErrNotFound
func (s *PostgresStore) GetByUsername(ctx context.Context, username string) (*User, error) {
	return scanUser(s.db.QueryRowContext(ctx, selectUser+" WHERE u.username = $1", username))
}

// UpdateProfile writes the editable profile fields of u
func (s *PostgresStore) UpdateProfile(ctx context.Context, u *User) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users
		SET email = $1, first_name = $2, last_name = $3, bio = $4, profile_picture = $5
		WHERE id = $6`,
		u.Email, u.FirstName, u.LastName, u.Bio, u.ProfilePicture, u.ID)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", db.ConvertDBError(err))
	}
	return expectOne(res)
}

var userSorter = query.Sorter{
	Columns:  map[string]string{"username": "u.username", "date_joined": "u.date_joined", "id": "u.id"},
	Default:  "username",
	Tiebreak: "u.id",
}

// ListUsers returns one page of users whose username or email contains search
func (s *PostgresStore) ListUsers(ctx context.Context, search string, page query.Page) ([]User, int, error) {
	var where query.Where
	if search != "" {
		pattern := "%" + query.EscapeLike(search) + "%"
		where.Add("(u.username ILIKE ? OR u.email ILIKE ?)", pattern, pattern)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users u"+where.SQL(), where.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}
	page, err := page.Resolve(total)
	if err != nil {
		return nil, total, err
	}

	limit, args := where.Paginate(page)
	rows, err := s.db.QueryContext(ctx, selectUser+where.SQL()+userSorter.OrderBy("")+limit, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]User, 0, page.Size)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *u)
	}
	return users, total, rows.Err()
}

// SetRole changes the role of user id
func (s *PostgresStore) SetRole(ctx context.Context, id int64, role string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE users SET role = $1 WHERE id = $2", role, id)
	if err != nil {
		return fmt.Errorf("failed to set role: %w", db.ConvertDBError(err))
	}
	return expectOne(res)
}

// SetGroups replaces the groups of user id. Unknown group names fail with
// *UnknownGroupsError and change nothing.
func (s *PostgresStore) SetGroups(ctx context.Context, id int64, groups []string) error {
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)", id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check user: %w", err)
		}
		if !exists {
			return db.ErrNotFound
		}
		return replaceGroups(ctx, tx, id, groups)
	})
}

func replaceGroups(ctx context.Context, tx *sql.Tx, userID int64, groups []string) error {
	ids := make([]int64, 0, len(groups))
	var missing []string
	for _, name := range groups {
		var gid int64
		err := tx.QueryRowContext(ctx, "SELECT id FROM auth_groups WHERE name = $1", name).Scan(&gid)
		if errors.Is(err, sql.ErrNoRows) {
			missing = append(missing, name)
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to look up group %s: %w", name, err)
		}
		ids = append(ids, gid)
	}
	if len(missing) > 0 {
		return &UnknownGroupsError{Names: missing}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM user_groups WHERE user_id = $1", userID); err != nil {
		return fmt.Errorf("failed to clear groups: %w", err)
	}
	for _, gid := range ids {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO user_groups (user_id, group_id) VALUES ($1, $2) ON CONFLICT DO NOTHING", userID, gid); err != nil {
			return fmt.Errorf("failed to add group: %w", db.ConvertDBError(err))
		}
	}
	return nil
}

// ListGroups returns every group with its member count, sorted by name
func (s *PostgresStore) ListGroups(ctx context.Context) ([]Group, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT g.id, g.name, COUNT(ug.user_id)
		FROM auth_groups g LEFT JOIN user_groups ug ON ug.group_id = g.id
		GROUP BY g.id, g.name ORDER BY g.name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []Group
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.ID, &g.Name, &g.Members); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// EnsureGroup creates name if missing and reports whether it was created
func (s *PostgresStore) EnsureGroup(ctx context.Context, name string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "INSERT INTO auth_groups (name) VALUES ($1) ON CONFLICT (name) DO NOTHING", name)
	if err != nil {
		return false, fmt.Errorf("failed to create group %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Memberships returns the group names of every user that has any
func (s *PostgresStore) Memberships(ctx context.Context) (map[int64][]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT ug.user_id, g.name FROM user_groups ug
		JOIN auth_groups g ON g.id = ug.group_id ORDER BY ug.user_id, g.name`)
	if err != nil {
		return nil, fmt.Errorf("failed to load memberships: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]string)
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		out[id] = append(out[id], name)
	}
	return out, rows.Err()
}

// CountByRole returns the number of users per role
func (s *PostgresStore) CountByRole(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT role, COUNT(*) FROM users GROUP BY role")
	if err != nil {
		return nil, fmt.Errorf("failed to count roles: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var role string
		var n int
		if err := rows.Scan(&role, &n); err != nil {
			return nil, err
		}
		out[role] = n
	}
	return out, rows.Err()
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return db.ErrNotFound
	}
	return nil
}

// sortedGroups returns a sorted copy of groups without duplicates
func sortedGroups(groups []string) []string {
	seen := make(map[string]bool, len(groups))
	out := make([]string, 0, len(groups))
	for _, g := range groups {
		g = strings.TrimSpace(g)
		if g == "" || seen[g] {
			continue
		}
		seen[g] = true
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}
