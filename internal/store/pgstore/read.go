package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/roach88/rivervm/internal/state"
	"github.com/roach88/rivervm/internal/store"
)

type reader struct {
	q querier
}

func (r reader) Channel(ctx context.Context, id string) (*state.Channel, error) {
	var c state.Channel
	var createdBy string
	err := r.q.QueryRow(ctx, `
		SELECT id, created_by, uri FROM channels WHERE id = $1
	`, id).Scan(&c.ID, &createdBy, &c.URI)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read channel %s: %w", id, err)
	}
	if c.CreatedBy, err = store.ParseUint(createdBy); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r reader) Item(ctx context.Context, id string) (*state.Item, error) {
	var it state.Item
	var createdBy string
	err := r.q.QueryRow(ctx, `
		SELECT id, created_by, uri FROM items WHERE id = $1
	`, id).Scan(&it.ID, &createdBy, &it.URI)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read item %s: %w", id, err)
	}
	if it.CreatedBy, err = store.ParseUint(createdBy); err != nil {
		return nil, err
	}
	return &it, nil
}

func (r reader) Submission(ctx context.Context, id string) (*state.Submission, error) {
	s, err := scanSubmission(r.q.QueryRow(ctx, `
		SELECT id, created_by, item_id, channel_id, text, status
		FROM submissions WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read submission %s: %w", id, err)
	}
	return &s, nil
}

func (r reader) Submissions(ctx context.Context, channelID string) ([]state.Submission, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, created_by, item_id, channel_id, text, status
		FROM submissions
		WHERE channel_id = $1
		ORDER BY id COLLATE "C" ASC
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

func (r reader) Message(ctx context.Context, id string) (*state.MessageRecord, error) {
	var row store.MessageRow
	err := r.q.QueryRow(ctx, `
		SELECT id, rid, timestamp, type, body, signer, hash_type, hash, sig_type, sig
		FROM messages WHERE id = $1
	`, id).Scan(
		&row.ID, &row.RID, &row.Timestamp, &row.Type, &row.Body,
		&row.Signer, &row.HashType, &row.Hash, &row.SigType, &row.Sig,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read message %s: %w", id, err)
	}
	return row.Record()
}

func (r reader) Response(ctx context.Context, id string) (*state.Response, error) {
	var resp state.Response
	err := r.q.QueryRow(ctx, `
		SELECT id, target_message_id, response, text FROM responses WHERE id = $1
	`, id).Scan(&resp.ID, &resp.TargetMessageID, &resp.Response, &resp.Text)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read response %s: %w", id, err)
	}
	return &resp, nil
}

func scanSubmission(row pgx.Row) (state.Submission, error) {
	var s state.Submission
	var createdBy string
	var status int
	if err := row.Scan(&s.ID, &createdBy, &s.ItemID, &s.ChannelID, &s.Text, &status); err != nil {
		return state.Submission{}, err
	}
	var err error
	if s.CreatedBy, err = store.ParseUint(createdBy); err != nil {
		return state.Submission{}, err
	}
	s.Status = state.SubmissionStatus(status)
	return s, nil
}
