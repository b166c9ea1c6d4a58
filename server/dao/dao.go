// Package dao provides data access objects for use in the plyfin server.
package dao

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store holds all the repositories.
type Store interface {
	Users() UserRepository
	Grammars() GrammarRepository
	Close() error
}

// UserRepository stores the accounts that may log in to the server. Users are
// never renamed or removed through the API, so the only changes after creation
// are a new password hash and a new token epoch.
type UserRepository interface {
	// Create stores a new User. ID, Epoch and Created are generated; the
	// rest is taken from user. Usernames are unique.
	Create(ctx context.Context, user User) (User, error)
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)

	// SetPasswordHash replaces the stored password hash of a user.
	SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) (User, error)

	// BumpEpoch increases the token epoch of a user by one.
	BumpEpoch(ctx context.Context, id uuid.UUID) (User, error)
	Close() error
}

type GrammarRepository interface {
	// Create stores a new Grammar. The ID and Created fields are generated;
	// all others are taken from the provided Grammar. Names are unique.
	Create(ctx context.Context, g Grammar) (Grammar, error)
	GetByID(ctx context.Context, id uuid.UUID) (Grammar, error)

	// GetAll returns every Grammar ordered by name.
	GetAll(ctx context.Context) ([]Grammar, error)
	Delete(ctx context.Context, id uuid.UUID) (Grammar, error)
	Close() error
}

// Role decides what a user may do with grammars other users created.
type Role int

const (
	// Member users may only delete their own grammars.
	Member Role = iota

	// Admin users may delete any grammar and log out any user.
	Admin
)

var roleNames = map[Role]string{
	Member: "member",
	Admin:  "admin",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// ParseRole is the inverse of Role.String, ignoring case.
func ParseRole(s string) (Role, error) {
	s = strings.ToLower(s)
	for r, name := range roleNames {
		if name == s {
			return r, nil
		}
	}
	return Member, fmt.Errorf("unknown role %q", s)
}

// User is an account that can log in and own grammars.
type User struct {
	ID       uuid.UUID
	Username string

	// PasswordHash is the bcrypt hash of the password.
	PasswordHash string
	Role         Role

	// Epoch counts the times the user has logged out. Tokens are signed with
	// a key that includes it, so bumping it invalidates every token issued
	// before.
	Epoch   int
	Created time.Time
}

// Grammar is a grammar stored on the server along with the options it is
// compiled with.
type Grammar struct {
	ID               uuid.UUID
	Name             string
	Source           string
	AutoFilterTokens bool
	KeepEmptyTrees   bool
	Creator          uuid.UUID
	Created          time.Time
}
