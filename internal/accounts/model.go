// Package accounts manages users: registration, login with JWTs, profiles,
// roles and permission group memberships.
package accounts

import (
	"time"

	"github.com/inkwell-dev/inkwell/internal/web/auth"
)

// User is a stored account
type User struct {
	ID             int64
	Username       string
	Email          string
	PasswordHash   string
	FirstName      string
	LastName       string
	Bio            string
	ProfilePicture string
	Role           string
	IsActive       bool
	IsStaff        bool
	IsSuperuser    bool
	DateJoined     time.Time
	Groups         []string

	FollowersCount int
	FollowingCount int
}

// Principal returns the request principal for u
func (u *User) Principal() *auth.Principal {
	return &auth.Principal{
		ID:          u.ID,
		Username:    u.Username,
		Role:        u.Role,
		Groups:      u.Groups,
		IsStaff:     u.IsStaff,
		IsSuperuser: u.IsSuperuser,
	}
}

// Profile is the JSON representation of a user
type Profile struct {
	ID             int64     `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Bio            string    `json:"bio"`
	ProfilePicture string    `json:"profile_picture"`
	FollowersCount int       `json:"followers_count"`
	FollowingCount int       `json:"following_count"`
	DateJoined     time.Time `json:"date_joined"`
	Role           string    `json:"role"`
}

// ProfileOf builds the profile of u
func ProfileOf(u *User) Profile {
	return Profile{
		ID:             u.ID,
		Username:       u.Username,
		Email:          u.Email,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Bio:            u.Bio,
		ProfilePicture: u.ProfilePicture,
		FollowersCount: u.FollowersCount,
		FollowingCount: u.FollowingCount,
		DateJoined:     u.DateJoined,
		Role:           u.Role,
	}
}

// AdminUser is a user as listed on the admin endpoints
type AdminUser struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	Groups      []string  `json:"groups"`
	IsActive    bool      `json:"is_active"`
	IsStaff     bool      `json:"is_staff"`
	IsSuperuser bool      `json:"is_superuser"`
	DateJoined  time.Time `json:"date_joined"`
}

// AdminUserOf builds the admin view of u
func AdminUserOf(u *User) AdminUser {
	groups := u.Groups
	if groups == nil {
		groups = []string{}
	}
	return AdminUser{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		Role:        u.Role,
		Groups:      groups,
		IsActive:    u.IsActive,
		IsStaff:     u.IsStaff,
		IsSuperuser: u.IsSuperuser,
		DateJoined:  u.DateJoined,
	}
}

// Group is a permission group with its member count
type Group struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Members     int      `json:"members"`
	Permissions []string `json:"permissions"`
}

// RegisterRequest is the body of POST /accounts/register
type RegisterRequest struct {
	Username        string `json:"username" validate:"required,max=150,username"`
	Email           string `json:"email" validate:"required,email,max=254"`
	Password        string `json:"password" validate:"required,min=8,max=72"`
	PasswordConfirm string `json:"password_confirm" validate:"required"`
	FirstName       string `json:"first_name" validate:"max=150"`
	LastName        string `json:"last_name" validate:"max=150"`
	Bio             string `json:"bio" validate:"max=500"`
}

// LoginRequest is the body of POST /accounts/login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UpdateProfileRequest holds the writable profile fields. Nil fields are left
// unchanged.
type UpdateProfileRequest struct {
	Email          *string `json:"email" validate:"omitnil,omitempty,email,max=254"`
	FirstName      *string `json:"first_name" validate:"omitnil,max=150"`
	LastName       *string `json:"last_name" validate:"omitnil,max=150"`
	Bio            *string `json:"bio" validate:"omitnil,max=500"`
	ProfilePicture *string `json:"profile_picture" validate:"omitnil,omitempty,url,max=500"`
}

// AuthResult is returned by register and login
type AuthResult struct {
	User    Profile `json:"user"`
	Token   string  `json:"token"`
	Message string  `json:"message"`
}

// CreateUserInput creates a user from the command line
type CreateUserInput struct {
	Username    string `validate:"required,max=150,username"`
	Email       string `validate:"omitempty,email"`
	Password    string `validate:"required,min=8,max=72"`
	Role        string `validate:"required,oneof=Admin Librarian Member"`
	IsStaff     bool
	IsSuperuser bool
	Groups      []string
}

// GroupSetup reports what SetupGroups did for one group
type GroupSetup struct {
	Name        string
	Created     bool
	Permissions []string
}
