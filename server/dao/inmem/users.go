package inmem

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dekarrin/plyfin/server/dao"
)

func NewUsersRepository() *UsersRepository {
	return &UsersRepository{
		byID:   map[uuid.UUID]dao.User{},
		byName: map[string]uuid.UUID{},
	}
}

// UsersRepository keeps users in a map with a username index. Usernames never
// change after creation, so the index is only written by Create.
type UsersRepository struct {
	mtx    sync.RWMutex
	byID   map[uuid.UUID]dao.User
	byName map[string]uuid.UUID
}

func (repo *UsersRepository) Close() error {
	return nil
}

func (repo *UsersRepository) Create(ctx context.Context, user dao.User) (dao.User, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return dao.User{}, fmt.Errorf("could not generate ID: %w", err)
	}

	repo.mtx.Lock()
	defer repo.mtx.Unlock()

	if _, taken := repo.byName[user.Username]; taken {
		return dao.User{}, dao.ErrConstraintViolation
	}

	user.ID = id
	user.Epoch = 0
	user.Created = time.Now()
	repo.byID[id] = user
	repo.byName[user.Username] = id

	return user, nil
}

func (repo *UsersRepository) GetByID(ctx context.Context, id uuid.UUID) (dao.User, error) {
	repo.mtx.RLock()
	defer repo.mtx.RUnlock()

	user, ok := repo.byID[id]
	if !ok {
		return dao.User{}, dao.ErrNotFound
	}
	return user, nil
}

func (repo *UsersRepository) GetByUsername(ctx context.Context, username string) (dao.User, error) {
	repo.mtx.RLock()
	defer repo.mtx.RUnlock()

	id, ok := repo.byName[username]
	if !ok {
		return dao.User{}, dao.ErrNotFound
	}
	return repo.byID[id], nil
}

func (repo *UsersRepository) SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) (dao.User, error) {
	return repo.modify(id, func(u *dao.User) { u.PasswordHash = hash })
}

func (repo *UsersRepository) BumpEpoch(ctx context.Context, id uuid.UUID) (dao.User, error) {
	return repo.modify(id, func(u *dao.User) { u.Epoch++ })
}

// modify applies fn to the stored user with the given ID under the write lock
// and returns the result.
func (repo *UsersRepository) modify(id uuid.UUID, fn func(*dao.User)) (dao.User, error) {
	repo.mtx.Lock()
	defer repo.mtx.Unlock()

	user, ok := repo.byID[id]
	if !ok {
		return dao.User{}, dao.ErrNotFound
	}
	fn(&user)
	repo.byID[id] = user

	return user, nil
}
