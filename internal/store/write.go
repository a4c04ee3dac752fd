package store

import (
	"context"
	"fmt"

	"github.com/roach88/rivervm/internal/state"
)

// tx implements state.Tx. All inserts use ON CONFLICT DO NOTHING so a
// duplicate content id is silently ignored; other constraint violations
// (e.g. a missing foreign key) still return errors.
type tx struct {
	reader
}

func (t *tx) PutChannel(ctx context.Context, c state.Channel) error {
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO channels (id, created_by, uri)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, c.ID, FormatUint(c.CreatedBy), c.URI)
	if err != nil {
		return fmt.Errorf("write channel: %w", err)
	}
	return nil
}

func (t *tx) PutItem(ctx context.Context, it state.Item) error {
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO items (id, created_by, uri)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, it.ID, FormatUint(it.CreatedBy), it.URI)
	if err != nil {
		return fmt.Errorf("write item: %w", err)
	}
	return nil
}

// EnsureURI creates an empty metadata row for uri. An existing row is
// never overwritten.
func (t *tx) EnsureURI(ctx context.Context, uri string) error {
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO uri_info (id) VALUES (?)
		ON CONFLICT(id) DO NOTHING
	`, uri)
	if err != nil {
		return fmt.Errorf("write uri info: %w", err)
	}
	return nil
}

func (t *tx) PutSubmission(ctx context.Context, s state.Submission) error {
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO submissions (id, created_by, item_id, channel_id, text, status)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, s.ID, FormatUint(s.CreatedBy), s.ItemID, s.ChannelID, nullString(s.Text), int(s.Status))
	if err != nil {
		return fmt.Errorf("write submission: %w", err)
	}
	return nil
}

// ResolveSubmission is a compare-and-set from Pending. It reports false,
// without error, when the submission is missing or already terminal.
func (t *tx) ResolveSubmission(ctx context.Context, id string, status state.SubmissionStatus) (bool, error) {
	res, err := t.q.ExecContext(ctx, `
		UPDATE submissions SET status = ?
		WHERE id = ? AND status = ?
	`, int(status), id, int(state.StatusPending))
	if err != nil {
		return false, fmt.Errorf("resolve submission: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("resolve submission: rows affected: %w", err)
	}
	return n == 1, nil
}

func (t *tx) PutResponse(ctx context.Context, r state.Response) error {
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO responses (id, target_message_id, response, text)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, r.ID, r.TargetMessageID, r.Response, nullString(r.Text))
	if err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}

func (t *tx) PutMessage(ctx context.Context, rec state.MessageRecord) error {
	row, err := NewMessageRow(rec)
	if err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	_, err = t.q.ExecContext(ctx, `
		INSERT INTO messages (id, rid, timestamp, type, body, signer, hash_type, hash, sig_type, sig)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		row.ID, row.RID, row.Timestamp, row.Type, row.Body,
		row.Signer, row.HashType, row.Hash, row.SigType, row.Sig,
	)
	if err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}
