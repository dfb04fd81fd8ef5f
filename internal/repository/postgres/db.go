// internal/repository/postgres/db.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS permission_groups (
	id   BIGINT PRIMARY KEY,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS group_permissions (
	group_id BIGINT NOT NULL REFERENCES permission_groups(id) ON DELETE CASCADE,
	module   TEXT NOT NULL,
	actions  TEXT[] NOT NULL DEFAULT '{}',
	PRIMARY KEY (group_id, module)
);

CREATE TABLE IF NOT EXISTS accounts (
	id                BIGSERIAL PRIMARY KEY,
	email             TEXT NOT NULL UNIQUE,
	password_hash     TEXT NOT NULL,
	first_name        TEXT NOT NULL DEFAULT '',
	last_name         TEXT NOT NULL DEFAULT '',
	phone             TEXT NOT NULL DEFAULT '',
	is_admin          BOOLEAN NOT NULL DEFAULT FALSE,
	employee_group_id BIGINT REFERENCES permission_groups(id),
	user_group_id     BIGINT REFERENCES permission_groups(id),
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS carousel_items (
	id            BIGSERIAL PRIMARY KEY,
	title         TEXT NOT NULL DEFAULT '',
	subtitle      TEXT NOT NULL DEFAULT '',
	button_text   TEXT NOT NULL DEFAULT '',
	button_link   TEXT NOT NULL DEFAULT '',
	image_url     TEXT NOT NULL,
	template      TEXT NOT NULL DEFAULT 'full-image',
	display_order INT NOT NULL DEFAULT 0,
	is_primary    BOOLEAN NOT NULL DEFAULT FALSE,
	is_active     BOOLEAN NOT NULL DEFAULT TRUE,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

type DB struct {
	pool *pgxpool.Pool
}

func NewDB(pool *pgxpool.Pool) *DB {
	return &DB{pool: pool}
}

func (db *DB) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return db.pool.Begin(ctx)
}

func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// Migrate creates the tables used by the development backend.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Store bundles the repositories behind one value.
type Store struct {
	*AccountRepository
	*GroupRepository
	*CarouselRepository
}

func NewStore(pool *pgxpool.Pool) *Store {
	db := NewDB(pool)
	return &Store{
		AccountRepository:  NewAccountRepository(pool),
		GroupRepository:    NewGroupRepository(db),
		CarouselRepository: NewCarouselRepository(db),
	}
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
