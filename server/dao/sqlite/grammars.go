package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dekarrin/plyfin/server/dao"
)

type GrammarsDB struct {
	db *sql.DB
}

func (repo *GrammarsDB) init() error {
	_, err := repo.db.Exec(`CREATE TABLE IF NOT EXISTS grammars (
		id TEXT NOT NULL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		source TEXT NOT NULL,
		auto_filter_tokens INTEGER NOT NULL,
		keep_empty_trees INTEGER NOT NULL,
		creator TEXT NOT NULL,
		created INTEGER NOT NULL
	);`)
	if err != nil {
		return wrapDBError(err)
	}

	return nil
}

func (repo *GrammarsDB) Create(ctx context.Context, g dao.Grammar) (dao.Grammar, error) {
	newUUID, err := uuid.NewRandom()
	if err != nil {
		return dao.Grammar{}, fmt.Errorf("could not generate ID: %w", err)
	}

	_, err = repo.db.ExecContext(ctx, `INSERT INTO grammars (id, name, source, auto_filter_tokens, keep_empty_trees, creator, created) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		convertToDB_UUID(newUUID),
		g.Name,
		g.Source,
		convertToDB_Bool(g.AutoFilterTokens),
		convertToDB_Bool(g.KeepEmptyTrees),
		convertToDB_UUID(g.Creator),
		convertToDB_Time(time.Now()),
	)
	if err != nil {
		return dao.Grammar{}, wrapDBError(err)
	}

	return repo.GetByID(ctx, newUUID)
}

func (repo *GrammarsDB) GetByID(ctx context.Context, id uuid.UUID) (dao.Grammar, error) {
	row := repo.db.QueryRowContext(ctx, `SELECT id, name, source, auto_filter_tokens, keep_empty_trees, creator, created FROM grammars WHERE id = ?;`,
		convertToDB_UUID(id),
	)
	return scanGrammar(row)
}

func (repo *GrammarsDB) GetAll(ctx context.Context) ([]dao.Grammar, error) {
	rows, err := repo.db.QueryContext(ctx, `SELECT id, name, source, auto_filter_tokens, keep_empty_trees, creator, created FROM grammars ORDER BY name;`)
	if err != nil {
		return nil, wrapDBError(err)
	}
	defer rows.Close()

	var all []dao.Grammar
	for rows.Next() {
		g, err := scanGrammar(rows)
		if err != nil {
			return all, err
		}
		all = append(all, g)
	}

	if err := rows.Err(); err != nil {
		return all, wrapDBError(err)
	}

	return all, nil
}

func (repo *GrammarsDB) Delete(ctx context.Context, id uuid.UUID) (dao.Grammar, error) {
	curVal, err := repo.GetByID(ctx, id)
	if err != nil {
		return curVal, err
	}

	if err := execOne(ctx, repo.db, `DELETE FROM grammars WHERE id = ?;`, convertToDB_UUID(id)); err != nil {
		return curVal, err
	}
	return curVal, nil
}

func (repo *GrammarsDB) Close() error {
	return repo.db.Close()
}

func scanGrammar(row scanner) (dao.Grammar, error) {
	var g dao.Grammar
	var id string
	var creator string
	var created int64

	err := row.Scan(
		&id,
		&g.Name,
		&g.Source,
		&g.AutoFilterTokens,
		&g.KeepEmptyTrees,
		&creator,
		&created,
	)
	if err != nil {
		return dao.Grammar{}, wrapDBError(err)
	}

	err = convertFromDB_UUID(id, &g.ID)
	if err != nil {
		return g, fmt.Errorf("stored UUID %q is invalid: %w", id, err)
	}
	err = convertFromDB_UUID(creator, &g.Creator)
	if err != nil {
		return g, fmt.Errorf("stored creator UUID %q is invalid: %w", creator, err)
	}
	err = convertFromDB_Time(created, &g.Created)
	if err != nil {
		return g, fmt.Errorf("stored created time %d is invalid: %w", created, err)
	}

	return g, nil
}
