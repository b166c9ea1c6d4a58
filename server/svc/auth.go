package svc

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dekarrin/plyfin/server/dao"
	"github.com/dekarrin/plyfin/server/serr"
)

// Login returns the user with the given username if password is theirs. An
// unknown username and a wrong password both give an error matching
// serr.ErrBadCredentials, and both cost one bcrypt comparison.
func (svc Service) Login(ctx context.Context, username string, password string) (dao.User, error) {
	user, err := svc.DB.Users().GetByUsername(ctx, username)
	known := err == nil
	if err != nil && !errors.Is(err, dao.ErrNotFound) {
		return dao.User{}, serr.WrapDB("could not look up user", err)
	}

	hash := []byte(user.PasswordHash)
	if !known {
		hash = svc.decoy.get(svc.hashCost())
	}

	err = bcrypt.CompareHashAndPassword(hash, []byte(password))
	if !known || errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return dao.User{}, serr.ErrBadCredentials
	}
	if err != nil {
		return dao.User{}, serr.New("stored password hash of user "+username+" is unusable", err)
	}

	return user, nil
}

// Logout invalidates every token issued to the user with the given ID by
// bumping their token epoch. Returns the user as it is afterwards.
//
// If the user doesn't exist, the error will match serr.ErrNotFound.
func (svc Service) Logout(ctx context.Context, who uuid.UUID) (dao.User, error) {
	user, err := svc.DB.Users().BumpEpoch(ctx, who)
	if err != nil {
		if errors.Is(err, dao.ErrNotFound) {
			return dao.User{}, serr.ErrNotFound
		}
		return dao.User{}, serr.WrapDB("could not log out user", err)
	}
	return user, nil
}
