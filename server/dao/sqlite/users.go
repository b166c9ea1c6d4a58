package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dekarrin/plyfin/server/dao"
)

const userColumns = `id, username, password_hash, role, epoch, created`

type UsersDB struct {
	db *sql.DB
}

func (repo *UsersDB) init() error {
	_, err := repo.db.Exec(`CREATE TABLE IF NOT EXISTS users (
		id TEXT NOT NULL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL,
		epoch INTEGER NOT NULL DEFAULT 0,
		created INTEGER NOT NULL
	);`)
	return wrapDBError(err)
}

func (repo *UsersDB) Create(ctx context.Context, user dao.User) (dao.User, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return dao.User{}, fmt.Errorf("could not generate ID: %w", err)
	}

	_, err = repo.db.ExecContext(ctx, `INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, 0, ?);`,
		convertToDB_UUID(id),
		user.Username,
		user.PasswordHash,
		convertToDB_Role(user.Role),
		convertToDB_Time(time.Now()),
	)
	if err != nil {
		return dao.User{}, wrapDBError(err)
	}

	return repo.GetByID(ctx, id)
}

func (repo *UsersDB) GetByID(ctx context.Context, id uuid.UUID) (dao.User, error) {
	row := repo.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?;`, convertToDB_UUID(id))
	return scanUser(row)
}

func (repo *UsersDB) GetByUsername(ctx context.Context, username string) (dao.User, error) {
	row := repo.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?;`, username)
	return scanUser(row)
}

func (repo *UsersDB) SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) (dao.User, error) {
	err := execOne(ctx, repo.db, `UPDATE users SET password_hash = ? WHERE id = ?;`, hash, convertToDB_UUID(id))
	if err != nil {
		return dao.User{}, err
	}
	return repo.GetByID(ctx, id)
}

func (repo *UsersDB) BumpEpoch(ctx context.Context, id uuid.UUID) (dao.User, error) {
	// done in one statement so concurrent logouts both count
	err := execOne(ctx, repo.db, `UPDATE users SET epoch = epoch + 1 WHERE id = ?;`, convertToDB_UUID(id))
	if err != nil {
		return dao.User{}, err
	}
	return repo.GetByID(ctx, id)
}

func (repo *UsersDB) Close() error {
	return repo.db.Close()
}

func scanUser(row scanner) (dao.User, error) {
	var (
		user    dao.User
		id      string
		role    string
		created int64
	)

	if err := row.Scan(&id, &user.Username, &user.PasswordHash, &role, &user.Epoch, &created); err != nil {
		return dao.User{}, wrapDBError(err)
	}

	if err := convertFromDB_UUID(id, &user.ID); err != nil {
		return user, fmt.Errorf("stored user ID %q is invalid: %w", id, err)
	}
	if err := convertFromDB_Role(role, &user.Role); err != nil {
		return user, fmt.Errorf("stored role of user %s is invalid: %w", id, err)
	}
	if err := convertFromDB_Time(created, &user.Created); err != nil {
		return user, fmt.Errorf("stored creation time of user %s is invalid: %w", id, err)
	}

	return user, nil
}
