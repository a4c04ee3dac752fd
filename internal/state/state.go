// Package state defines the records the River VM persists and the narrow
// store contract its handlers run against.
//
// Concrete stores live in internal/store (SQLite) and internal/store/pgstore
// (PostgreSQL). Handlers never see a database handle, only Reader and Tx.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/rivervm/internal/message"
)

// ErrNotFound is returned by admin operations that target a missing row.
// Reader lookups report absence as a nil record instead.
var ErrNotFound = errors.New("not found")

// SubmissionStatus is the moderation state of a Submission.
// Values are persisted and must not be renumbered.
type SubmissionStatus int

const (
	StatusPending           SubmissionStatus = 0
	StatusRejected          SubmissionStatus = 1
	StatusAccepted          SubmissionStatus = 2
	StatusOwnerAutoAccepted SubmissionStatus = 3
)

func (s SubmissionStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRejected:
		return "rejected"
	case StatusAccepted:
		return "accepted"
	case StatusOwnerAutoAccepted:
		return "owner-auto-accepted"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Terminal reports whether no further transition is allowed.
func (s SubmissionStatus) Terminal() bool {
	return s != StatusPending
}

// KeyStatus is the registration state of a signer key for a principal.
type KeyStatus int

const (
	KeyNone    KeyStatus = 0
	KeyActive  KeyStatus = 1
	KeyRevoked KeyStatus = 2
)

func (k KeyStatus) String() string {
	switch k {
	case KeyActive:
		return "active"
	case KeyRevoked:
		return "revoked"
	default:
		return "none"
	}
}

// Channel is created by CHANNEL_CREATE.
type Channel struct {
	ID        string `json:"id"`
	CreatedBy uint64 `json:"createdBy,string"`
	URI       string `json:"uri"`
}

// Item is created by ITEM_CREATE.
type Item struct {
	ID        string `json:"id"`
	CreatedBy uint64 `json:"createdBy,string"`
	URI       string `json:"uri"`
}

// URIInfo is the metadata placeholder kept per item URI.
type URIInfo struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	ImageURI     string `json:"imageUri"`
	AnimationURI string `json:"animationUri"`
}

// Submission places an Item into a Channel.
type Submission struct {
	ID        string           `json:"id"`
	CreatedBy uint64           `json:"createdBy,string"`
	ItemID    string           `json:"itemId"`
	ChannelID string           `json:"channelId"`
	Text      *string          `json:"text,omitempty"`
	Status    SubmissionStatus `json:"status"`
}

// Response records a GENERIC_RESPONSE against a prior message.
type Response struct {
	ID              string  `json:"id"`
	TargetMessageID string  `json:"targetMessageId"`
	Response        bool    `json:"response"`
	Text            *string `json:"text,omitempty"`
}

// MessageRecord is the append-only audit entry for a committed message.
type MessageRecord struct {
	ID      string          `json:"id"`
	Message message.Message `json:"-"`
}

// MarshalJSON renders the record with its message in wire form.
func (r MessageRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID      string       `json:"id"`
		Message message.Wire `json:"message"`
	}{r.ID, message.ToWire(r.Message)})
}

// Reader exposes point lookups. A missing record yields (nil, nil).
type Reader interface {
	Channel(ctx context.Context, id string) (*Channel, error)
	Item(ctx context.Context, id string) (*Item, error)
	Submission(ctx context.Context, id string) (*Submission, error)
	Message(ctx context.Context, id string) (*MessageRecord, error)
	Response(ctx context.Context, id string) (*Response, error)
	// Submissions lists a channel's submissions ordered by id.
	Submissions(ctx context.Context, channelID string) ([]Submission, error)
}

// Tx is a single atomic unit of work. Puts are insert-if-absent, so
// re-committing a content-addressed record is a no-op.
type Tx interface {
	Reader

	PutChannel(ctx context.Context, c Channel) error
	PutItem(ctx context.Context, it Item) error
	EnsureURI(ctx context.Context, uri string) error
	PutSubmission(ctx context.Context, s Submission) error
	// ResolveSubmission moves a Pending submission to status and reports
	// whether this call performed the transition.
	ResolveSubmission(ctx context.Context, id string, status SubmissionStatus) (bool, error)
	PutResponse(ctx context.Context, r Response) error
	PutMessage(ctx context.Context, rec MessageRecord) error
}

// Store is the adapter the router is constructed with.
type Store interface {
	Reader

	HasPrincipal(ctx context.Context, rid uint64) (bool, error)
	KeyStatus(ctx context.Context, rid uint64, key []byte) (KeyStatus, error)

	// Update runs fn in a transaction. The transaction commits only when fn
	// returns nil.
	Update(ctx context.Context, fn func(Tx) error) error
}
