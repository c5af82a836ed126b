package cache

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

const postgresSchema = `create table if not exists tstack_row_cache (
	name    text primary key,
	payload bytea not null,
	updated timestamptz not null default now()
)`

// PostgresBackend stores entries in one table keyed by Key.Hash.
type PostgresBackend struct {
	db *sql.DB
}

func NewPostgresBackend(dsn string) (*PostgresBackend, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	pb, err := NewPostgresBackendDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return pb, nil
}

// NewPostgresBackendDB uses an open database handle and creates the cache
// table if needed.
func NewPostgresBackendDB(db *sql.DB) (*PostgresBackend, error) {
	if _, err := db.Exec(postgresSchema); err != nil {
		return nil, fmt.Errorf("creating row cache table: %v", err)
	}
	return &PostgresBackend{db: db}, nil
}

func (p *PostgresBackend) Get(key Key) ([]byte, error) {
	var payload []byte
	err := p.db.QueryRow(`select payload from tstack_row_cache where name = $1`, key.Hash()).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return payload, err
}

func (p *PostgresBackend) Put(key Key, data []byte) error {
	_, err := p.db.Exec(
		`insert into tstack_row_cache (name, payload, updated) values ($1, $2, now())
		on conflict (name) do update set payload = excluded.payload, updated = excluded.updated`,
		key.Hash(), data)
	return err
}

func (p *PostgresBackend) Delete(key Key) error {
	_, err := p.db.Exec(`delete from tstack_row_cache where name = $1`, key.Hash())
	return err
}

func (p *PostgresBackend) Close() error {
	return p.db.Close()
}
