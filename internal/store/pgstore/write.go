package pgstore

import (
	"context"
	"fmt"

	"github.com/roach88/rivervm/internal/state"
	"github.com/roach88/rivervm/internal/store"
)

type tx struct {
	reader
}

func (t *tx) PutChannel(ctx context.Context, c state.Channel) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO channels (id, created_by, uri) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`, c.ID, store.FormatUint(c.CreatedBy), c.URI)
	if err != nil {
		return fmt.Errorf("write channel: %w", err)
	}
	return nil
}

func (t *tx) PutItem(ctx context.Context, it state.Item) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO items (id, created_by, uri) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`, it.ID, store.FormatUint(it.CreatedBy), it.URI)
	if err != nil {
		return fmt.Errorf("write item: %w", err)
	}
	return nil
}

func (t *tx) EnsureURI(ctx context.Context, uri string) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO uri_info (id) VALUES ($1)
		ON CONFLICT (id) DO NOTHING
	`, uri)
	if err != nil {
		return fmt.Errorf("write uri info: %w", err)
	}
	return nil
}

func (t *tx) PutSubmission(ctx context.Context, s state.Submission) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO submissions (id, created_by, item_id, channel_id, text, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`, s.ID, store.FormatUint(s.CreatedBy), s.ItemID, s.ChannelID, s.Text, int(s.Status))
	if err != nil {
		return fmt.Errorf("write submission: %w", err)
	}
	return nil
}

func (t *tx) ResolveSubmission(ctx context.Context, id string, status state.SubmissionStatus) (bool, error) {
	tag, err := t.q.Exec(ctx, `
		UPDATE submissions SET status = $2
		WHERE id = $1 AND status = $3
	`, id, int(status), int(state.StatusPending))
	if err != nil {
		return false, fmt.Errorf("resolve submission: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (t *tx) PutResponse(ctx context.Context, r state.Response) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO responses (id, target_message_id, response, text)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`, r.ID, r.TargetMessageID, r.Response, r.Text)
	if err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}

func (t *tx) PutMessage(ctx context.Context, rec state.MessageRecord) error {
	row, err := store.NewMessageRow(rec)
	if err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	_, err = t.q.Exec(ctx, `
		INSERT INTO messages (id, rid, timestamp, type, body, signer, hash_type, hash, sig_type, sig)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`,
		row.ID, row.RID, row.Timestamp, row.Type, row.Body,
		row.Signer, row.HashType, row.Hash, row.SigType, row.Sig,
	)
	if err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}
