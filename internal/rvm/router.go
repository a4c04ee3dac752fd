package rvm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/rivervm/internal/address"
	"github.com/roach88/rivervm/internal/message"
	"github.com/roach88/rivervm/internal/metrics"
	"github.com/roach88/rivervm/internal/signature"
	"github.com/roach88/rivervm/internal/state"
)

// Router verifies messages and dispatches them to their handler.
type Router struct {
	store  state.Store
	logger *slog.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) {
		r.logger = l
	}
}

// New creates a Router over store. The caller owns the store and closes it
// after the router is no longer used.
func New(store state.Store, opts ...Option) *Router {
	r := &Router{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handles reports whether t has a handler.
func Handles(t message.Type) bool {
	switch t {
	case message.TypeChannelCreate, message.TypeItemCreate,
		message.TypeItemSubmit, message.TypeGenericResponse:
		return true
	}
	return false
}

// VerifyMessage checks, in order, that the requester is registered, that the
// signer key is active for it, that the hash matches the data and that the
// signature verifies. It returns nil, a *RejectError for the first failed
// check, or a wrapped store error.
func (r *Router) VerifyMessage(ctx context.Context, m message.Message) error {
	err := r.verify(ctx, m)
	switch {
	case err == nil:
		metrics.MessagesVerified.WithLabelValues("ok").Inc()
	case IsRejection(err):
		metrics.MessagesVerified.WithLabelValues(string(CodeOf(err))).Inc()
		r.logger.Debug("message failed verification",
			"rid", m.Data.RID,
			"type", m.Data.Type.String(),
			"error", err,
		)
	default:
		metrics.MessagesVerified.WithLabelValues("error").Inc()
	}
	return err
}

func (r *Router) verify(ctx context.Context, m message.Message) error {
	rid := m.Data.RID

	ok, err := r.store.HasPrincipal(ctx, rid)
	if err != nil {
		return fmt.Errorf("verify message: %w", err)
	}
	if !ok {
		return reject(CodeUnknownPrincipal, "principal %d is not registered", rid)
	}

	status, err := r.store.KeyStatus(ctx, rid, m.Signer)
	if err != nil {
		return fmt.Errorf("verify message: %w", err)
	}
	if status != state.KeyActive {
		return reject(CodeUnauthorizedKey, "signer key is %s for principal %d", status, rid)
	}

	if m.HashAlgorithm != message.HashBlake3 {
		return reject(CodeHashMismatch, "unsupported hash algorithm %d", m.HashAlgorithm)
	}
	hash, err := address.HashData(m.Data)
	if err != nil {
		return reject(CodeHashMismatch, "cannot encode message data: %v", err)
	}
	if !bytes.Equal(hash, m.Hash) {
		return reject(CodeHashMismatch, "hash does not match message data")
	}

	if !signature.Verify(m.SignatureAlgorithm, m.Signature, m.Hash, m.Signer) {
		return reject(CodeInvalidSignature, "signature does not verify")
	}
	return nil
}

// ProcessMessage applies a verified message. It does not re-verify.
//
// On success the handler's state change and the MessageRecord are committed
// together and the message's content id is returned. A *RejectError means
// nothing was persisted; any other error is a store fault.
func (r *Router) ProcessMessage(ctx context.Context, m message.Message) (address.ContentID, error) {
	typ := m.Data.Type
	if !Handles(typ) {
		metrics.MessagesProcessed.WithLabelValues(typ.String(), string(CodeUnhandledType)).Inc()
		return address.Undef, reject(CodeUnhandledType, "no handler for message type %s", typ)
	}

	id, err := address.Of(m.Data)
	if err != nil {
		metrics.MessagesProcessed.WithLabelValues(typ.String(), string(CodeMalformedBody)).Inc()
		return address.Undef, reject(CodeMalformedBody, "%v", err)
	}

	start := time.Now()
	err = r.store.Update(ctx, func(tx state.Tx) error {
		if err := r.dispatch(ctx, tx, m, id.String()); err != nil {
			return err
		}
		return tx.PutMessage(ctx, state.MessageRecord{ID: id.String(), Message: m})
	})
	metrics.StoreLatency.WithLabelValues("process").Observe(time.Since(start).Seconds())

	if err != nil {
		var re *RejectError
		if errors.As(err, &re) {
			re.MessageID = id.String()
			metrics.MessagesProcessed.WithLabelValues(typ.String(), string(re.Code)).Inc()
			r.logger.Info("message rejected",
				"id", id.String(),
				"type", typ.String(),
				"rid", m.Data.RID,
				"code", string(re.Code),
				"reason", re.Message,
			)
			return address.Undef, re
		}
		metrics.MessagesProcessed.WithLabelValues(typ.String(), "error").Inc()
		r.logger.Error("message processing failed",
			"id", id.String(),
			"type", typ.String(),
			"error", err,
		)
		return address.Undef, fmt.Errorf("process message %s: %w", id, err)
	}

	metrics.MessagesProcessed.WithLabelValues(typ.String(), "committed").Inc()
	r.logger.Info("message committed",
		"id", id.String(),
		"type", typ.String(),
		"rid", m.Data.RID,
	)
	return id, nil
}

// dispatch runs exactly one handler for the message's type.
func (r *Router) dispatch(ctx context.Context, tx state.Tx, m message.Message, id string) error {
	switch m.Data.Type {
	case message.TypeChannelCreate:
		return channelCreate(ctx, tx, m, id)
	case message.TypeItemCreate:
		return itemCreate(ctx, tx, m, id)
	case message.TypeItemSubmit:
		return itemSubmit(ctx, tx, m, id)
	case message.TypeGenericResponse:
		return genericResponse(ctx, tx, m, id)
	default:
		return reject(CodeUnhandledType, "no handler for message type %s", m.Data.Type)
	}
}
