package store

import (
	"fmt"
	"strconv"

	"github.com/roach88/rivervm/internal/canon"
	"github.com/roach88/rivervm/internal/message"
	"github.com/roach88/rivervm/internal/state"
)

// FormatUint renders a requester id or timestamp for a TEXT column.
func FormatUint(n uint64) string {
	return strconv.FormatUint(n, 10)
}

// ParseUint reads a value written by FormatUint.
func ParseUint(s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse stored integer %q: %w", s, err)
	}
	return n, nil
}

// MessageRow is the column form of a state.MessageRecord.
// Body is canonical JSON; byte strings are unpadded base64url.
// The PostgreSQL adapter shares this layout.
type MessageRow struct {
	ID        string
	RID       string
	Timestamp string
	Type      int
	Body      string
	Signer    string
	HashType  int
	Hash      string
	SigType   int
	Sig       string
}

// NewMessageRow flattens rec into columns.
func NewMessageRow(rec state.MessageRecord) (MessageRow, error) {
	m := rec.Message
	body := m.Data.Body
	if body == nil {
		body = canon.Object{}
	}
	bodyJSON, err := canon.Marshal(body)
	if err != nil {
		return MessageRow{}, fmt.Errorf("marshal body: %w", err)
	}
	return MessageRow{
		ID:        rec.ID,
		RID:       FormatUint(m.Data.RID),
		Timestamp: FormatUint(m.Data.Timestamp),
		Type:      int(m.Data.Type),
		Body:      string(bodyJSON),
		Signer:    message.EncodeBytes(m.Signer),
		HashType:  int(m.HashAlgorithm),
		Hash:      message.EncodeBytes(m.Hash),
		SigType:   int(m.SignatureAlgorithm),
		Sig:       message.EncodeBytes(m.Signature),
	}, nil
}

// Record rebuilds the audit record from its columns.
func (r MessageRow) Record() (*state.MessageRecord, error) {
	rid, err := ParseUint(r.RID)
	if err != nil {
		return nil, err
	}
	ts, err := ParseUint(r.Timestamp)
	if err != nil {
		return nil, err
	}
	var body canon.Object
	if err := body.UnmarshalJSON([]byte(r.Body)); err != nil {
		return nil, fmt.Errorf("unmarshal body of %s: %w", r.ID, err)
	}
	signer, err := message.DecodeBytes(r.Signer)
	if err != nil {
		return nil, fmt.Errorf("decode signer of %s: %w", r.ID, err)
	}
	hash, err := message.DecodeBytes(r.Hash)
	if err != nil {
		return nil, fmt.Errorf("decode hash of %s: %w", r.ID, err)
	}
	sig, err := message.DecodeBytes(r.Sig)
	if err != nil {
		return nil, fmt.Errorf("decode sig of %s: %w", r.ID, err)
	}

	return &state.MessageRecord{
		ID: r.ID,
		Message: message.Message{
			Signer: signer,
			Data: message.Data{
				RID:       rid,
				Timestamp: ts,
				Type:      message.Type(r.Type),
				Body:      body,
			},
			HashAlgorithm:      message.HashAlgorithm(r.HashType),
			Hash:               hash,
			SignatureAlgorithm: message.SignatureAlgorithm(r.SigType),
			Signature:          sig,
		},
	}, nil
}
