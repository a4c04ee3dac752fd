package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/rivervm/internal/state"
)

// reader implements state.Reader over a database or a transaction.
type reader struct {
	q querier
}

// Channel returns the channel with the given id, or nil if absent.
func (r reader) Channel(ctx context.Context, id string) (*state.Channel, error) {
	var c state.Channel
	var createdBy string
	err := r.q.QueryRowContext(ctx, `
		SELECT id, created_by, uri FROM channels WHERE id = ?
	`, id).Scan(&c.ID, &createdBy, &c.URI)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read channel %s: %w", id, err)
	}
	if c.CreatedBy, err = ParseUint(createdBy); err != nil {
		return nil, fmt.Errorf("read channel %s: %w", id, err)
	}
	return &c, nil
}

// Item returns the item with the given id, or nil if absent.
func (r reader) Item(ctx context.Context, id string) (*state.Item, error) {
	var it state.Item
	var createdBy string
	err := r.q.QueryRowContext(ctx, `
		SELECT id, created_by, uri FROM items WHERE id = ?
	`, id).Scan(&it.ID, &createdBy, &it.URI)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read item %s: %w", id, err)
	}
	if it.CreatedBy, err = ParseUint(createdBy); err != nil {
		return nil, fmt.Errorf("read item %s: %w", id, err)
	}
	return &it, nil
}

// URIInfo returns the metadata row for uri, or nil if absent.
func (r reader) URIInfo(ctx context.Context, uri string) (*state.URIInfo, error) {
	var u state.URIInfo
	err := r.q.QueryRowContext(ctx, `
		SELECT id, name, description, image_uri, animation_uri FROM uri_info WHERE id = ?
	`, uri).Scan(&u.ID, &u.Name, &u.Description, &u.ImageURI, &u.AnimationURI)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read uri info %s: %w", uri, err)
	}
	return &u, nil
}

// Submission returns the submission with the given id, or nil if absent.
func (r reader) Submission(ctx context.Context, id string) (*state.Submission, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, created_by, item_id, channel_id, text, status
		FROM submissions WHERE id = ?
	`, id)
	s, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read submission %s: %w", id, err)
	}
	return &s, nil
}

// Submissions lists a channel's submissions.
// Results are ordered by id so repeated reads are identical.
//
// Returns an empty slice (not nil) if the channel has none.
func (r reader) Submissions(ctx context.Context, channelID string) ([]state.Submission, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, created_by, item_id, channel_id, text, status
		FROM submissions
		WHERE channel_id = ?
		ORDER BY id COLLATE BINARY ASC
	`, channelID)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	subs := []state.Submission{}
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	return subs, nil
}

// Message returns the audit record with the given id, or nil if absent.
func (r reader) Message(ctx context.Context, id string) (*state.MessageRecord, error) {
	var row MessageRow
	err := r.q.QueryRowContext(ctx, `
		SELECT id, rid, timestamp, type, body, signer, hash_type, hash, sig_type, sig
		FROM messages WHERE id = ?
	`, id).Scan(
		&row.ID, &row.RID, &row.Timestamp, &row.Type, &row.Body,
		&row.Signer, &row.HashType, &row.Hash, &row.SigType, &row.Sig,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read message %s: %w", id, err)
	}
	return row.Record()
}

// Response returns the response record with the given id, or nil if absent.
func (r reader) Response(ctx context.Context, id string) (*state.Response, error) {
	var resp state.Response
	var text sql.NullString
	err := r.q.QueryRowContext(ctx, `
		SELECT id, target_message_id, response, text FROM responses WHERE id = ?
	`, id).Scan(&resp.ID, &resp.TargetMessageID, &resp.Response, &text)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read response %s: %w", id, err)
	}
	if text.Valid {
		resp.Text = &text.String
	}
	return &resp, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row rowScanner) (state.Submission, error) {
	var s state.Submission
	var createdBy string
	var text sql.NullString
	if err := row.Scan(&s.ID, &createdBy, &s.ItemID, &s.ChannelID, &text, &s.Status); err != nil {
		return state.Submission{}, err
	}
	var err error
	if s.CreatedBy, err = ParseUint(createdBy); err != nil {
		return state.Submission{}, err
	}
	if text.Valid {
		s.Text = &text.String
	}
	return s, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
