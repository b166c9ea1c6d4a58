package svc

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/dekarrin/plyfin/server/dao"
	"github.com/dekarrin/plyfin/server/serr"
)

// generatedPasswordBytes is the entropy of a password made by EnsureAdmin.
const generatedPasswordBytes = 12

// CreateUser stores a new user with the given role. The error matches
// serr.ErrBadArgument for a blank username or password and
// serr.ErrAlreadyExists if the username is taken.
func (svc Service) CreateUser(ctx context.Context, username, password string, role dao.Role) (dao.User, error) {
	if username == "" {
		return dao.User{}, serr.New("username cannot be blank", serr.ErrBadArgument)
	}
	hash, err := svc.hashPassword(password)
	if err != nil {
		return dao.User{}, err
	}

	user, err := svc.DB.Users().Create(ctx, dao.User{Username: username, PasswordHash: hash, Role: role})
	if err != nil {
		if errors.Is(err, dao.ErrConstraintViolation) {
			return dao.User{}, serr.New(fmt.Sprintf("user %q already exists", username), serr.ErrAlreadyExists)
		}
		return dao.User{}, serr.WrapDB("could not create user", err)
	}
	return user, nil
}

// EnsureAdmin makes sure the admin account the server is run with exists.
//
// If password is set, the account gets that password, and is created if
// needed. If password is empty, an existing account is left alone and a
// missing one is created with a random password, which is returned as
// generated so it can be shown to the operator once.
//
// An existing user with that name who is not an admin is an error matching
// serr.ErrAlreadyExists.
func (svc Service) EnsureAdmin(ctx context.Context, username, password string) (admin dao.User, generated string, err error) {
	existing, err := svc.DB.Users().GetByUsername(ctx, username)
	if err != nil && !errors.Is(err, dao.ErrNotFound) {
		return dao.User{}, "", serr.WrapDB("could not look up admin", err)
	}

	if err != nil {
		if password == "" {
			generated, err = randomPassword()
			if err != nil {
				return dao.User{}, "", err
			}
			password = generated
		}
		admin, err = svc.CreateUser(ctx, username, password, dao.Admin)
		return admin, generated, err
	}

	if existing.Role != dao.Admin {
		return dao.User{}, "", serr.New(fmt.Sprintf("user %q exists but is not an admin", username), serr.ErrAlreadyExists)
	}
	if password == "" {
		return existing, "", nil
	}

	hash, err := svc.hashPassword(password)
	if err != nil {
		return dao.User{}, "", err
	}
	admin, err = svc.DB.Users().SetPasswordHash(ctx, existing.ID, hash)
	if err != nil {
		return dao.User{}, "", serr.WrapDB("could not set admin password", err)
	}
	return admin, "", nil
}

func (svc Service) hashPassword(password string) (string, error) {
	if password == "" {
		return "", serr.New("password cannot be blank", serr.ErrBadArgument)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), svc.hashCost())
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", serr.New("password is too long", err, serr.ErrBadArgument)
		}
		return "", serr.New("password could not be hashed", err)
	}
	return string(hash), nil
}

func randomPassword() (string, error) {
	buf := make([]byte, generatedPasswordBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
