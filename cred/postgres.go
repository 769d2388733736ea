package cred

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrEthical07/swad/password"
)

// DefaultPostgresQuery selects the hash and real name of one user. Custom
// queries take the username as $1 and return the same two columns.
const DefaultPostgresQuery = `SELECT password_hash, COALESCE(real_name, '') FROM swad_users WHERE username = $1`

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres checks credentials with one query per login.
type Postgres struct {
	db      rowQuerier
	query   string
	hasher  *password.Argon2
	release func()
}

// DialPostgres opens a connection pool for dsn. Connections are made lazily.
func DialPostgres(dsn, query string, hasher *password.Argon2) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: postgres dsn: %v", ErrArgs, err)
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}
	p := newPostgres(pool, query, hasher)
	p.release = pool.Close
	return p, nil
}

func newPostgres(db rowQuerier, query string, hasher *password.Argon2) *Postgres {
	if query == "" {
		query = DefaultPostgresQuery
	}
	return &Postgres{db: db, query: query, hasher: hasher}
}

func (p *Postgres) Check(ctx context.Context, username, pw string) (string, bool, error) {
	var hash, realname string
	err := p.db.QueryRow(ctx, p.query, username).Scan(&hash, &realname)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", p.hasher.VerifyAbsent(pw), nil
	}
	if err != nil {
		return "", false, fmt.Errorf("postgres lookup: %w", err)
	}
	match, err := p.hasher.Verify(pw, hash)
	if err != nil {
		return "", false, fmt.Errorf("stored hash for %q: %w", username, err)
	}
	if !match {
		return "", false, nil
	}
	return realname, true, nil
}

func (p *Postgres) Close() error {
	if p.release != nil {
		p.release()
	}
	return nil
}
