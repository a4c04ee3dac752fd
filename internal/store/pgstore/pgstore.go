// Package pgstore implements state.Store on PostgreSQL using a pgx
// connection pool. Tables and semantics match the SQLite store.
package pgstore

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roach88/rivervm/internal/message"
	"github.com/roach88/rivervm/internal/state"
	"github.com/roach88/rivervm/internal/store"
)

//go:embed schema.sql
var schemaSQL string

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store handles PostgreSQL database operations.
type Store struct {
	reader
	pool *pgxpool.Pool
}

var _ state.Store = (*Store)(nil)

// Open connects to databaseURL and applies the schema.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{reader: reader{q: pool}, pool: pool}, nil
}

// Close closes the database connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Update runs fn in a READ COMMITTED transaction. Row locks taken by the
// status compare-and-set make concurrent resolutions of one submission
// serialize, and the loser sees zero affected rows.
func (s *Store) Update(ctx context.Context, fn func(state.Tx) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(t pgx.Tx) error {
		return fn(&tx{reader: reader{q: t}})
	})
}

// HasPrincipal reports whether rid is registered.
func (s *Store) HasPrincipal(ctx context.Context, rid uint64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM principals WHERE rid = $1)
	`, store.FormatUint(rid)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("lookup principal: %w", err)
	}
	return exists, nil
}

// KeyStatus returns the registration state of key for rid.
func (s *Store) KeyStatus(ctx context.Context, rid uint64, key []byte) (state.KeyStatus, error) {
	var status int
	err := s.pool.QueryRow(ctx, `
		SELECT status FROM signer_keys WHERE rid = $1 AND public_key = $2
	`, store.FormatUint(rid), message.EncodeBytes(key)).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return state.KeyNone, nil
	}
	if err != nil {
		return state.KeyNone, fmt.Errorf("lookup key: %w", err)
	}
	return state.KeyStatus(status), nil
}

// AddPrincipal registers rid. Registering an existing principal is a no-op.
func (s *Store) AddPrincipal(ctx context.Context, rid uint64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO principals (rid) VALUES ($1)
		ON CONFLICT (rid) DO NOTHING
	`, store.FormatUint(rid))
	if err != nil {
		return fmt.Errorf("add principal: %w", err)
	}
	return nil
}

// AddKey authorizes key to sign for rid. A revoked key stays revoked.
func (s *Store) AddKey(ctx context.Context, rid uint64, key []byte) error {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO signer_keys (rid, public_key, status)
		SELECT rid, $2, $3 FROM principals WHERE rid = $1
		ON CONFLICT (rid, public_key) DO NOTHING
	`, store.FormatUint(rid), message.EncodeBytes(key), int(state.KeyActive))
	if err != nil {
		return fmt.Errorf("add key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		ok, err := s.HasPrincipal(ctx, rid)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("add key: principal %d: %w", rid, state.ErrNotFound)
		}
	}
	return nil
}

// RevokeKey marks key as no longer valid for rid.
func (s *Store) RevokeKey(ctx context.Context, rid uint64, key []byte) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE signer_keys SET status = $3 WHERE rid = $1 AND public_key = $2
	`, store.FormatUint(rid), message.EncodeBytes(key), int(state.KeyRevoked))
	if err != nil {
		return fmt.Errorf("revoke key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("revoke key for principal %d: %w", rid, state.ErrNotFound)
	}
	return nil
}
