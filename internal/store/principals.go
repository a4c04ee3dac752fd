package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/rivervm/internal/message"
	"github.com/roach88/rivervm/internal/state"
)

// HasPrincipal reports whether rid is registered.
func (s *Store) HasPrincipal(ctx context.Context, rid uint64) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM principals WHERE rid = ?
	`, FormatUint(rid)).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup principal: %w", err)
	}
	return true, nil
}

// KeyStatus returns the registration state of key for rid.
func (s *Store) KeyStatus(ctx context.Context, rid uint64, key []byte) (state.KeyStatus, error) {
	var status int
	err := s.db.QueryRowContext(ctx, `
		SELECT status FROM signer_keys WHERE rid = ? AND public_key = ?
	`, FormatUint(rid), message.EncodeBytes(key)).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return state.KeyNone, nil
	}
	if err != nil {
		return state.KeyNone, fmt.Errorf("lookup key: %w", err)
	}
	return state.KeyStatus(status), nil
}

// AddPrincipal registers rid. Registering an existing principal is a no-op.
func (s *Store) AddPrincipal(ctx context.Context, rid uint64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO principals (rid) VALUES (?)
		ON CONFLICT(rid) DO NOTHING
	`, FormatUint(rid))
	if err != nil {
		return fmt.Errorf("add principal: %w", err)
	}
	return nil
}

// AddKey authorizes key to sign for rid. The principal must exist.
// A revoked key stays revoked.
func (s *Store) AddKey(ctx context.Context, rid uint64, key []byte) error {
	ok, err := s.HasPrincipal(ctx, rid)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("add key: principal %d: %w", rid, state.ErrNotFound)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO signer_keys (rid, public_key, status) VALUES (?, ?, ?)
		ON CONFLICT(rid, public_key) DO NOTHING
	`, FormatUint(rid), message.EncodeBytes(key), int(state.KeyActive))
	if err != nil {
		return fmt.Errorf("add key: %w", err)
	}
	return nil
}

// RevokeKey marks key as no longer valid for rid.
func (s *Store) RevokeKey(ctx context.Context, rid uint64, key []byte) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE signer_keys SET status = ? WHERE rid = ? AND public_key = ?
	`, int(state.KeyRevoked), FormatUint(rid), message.EncodeBytes(key))
	if err != nil {
		return fmt.Errorf("revoke key: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke key: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("revoke key for principal %d: %w", rid, state.ErrNotFound)
	}
	return nil
}
