package rvm

import (
	"context"

	"github.com/roach88/rivervm/internal/message"
	"github.com/roach88/rivervm/internal/state"
)

// Each handler checks the body shape, then its preconditions, then writes.
// All reads and writes go through tx, so a rejection returned at any point
// rolls back everything the handler did.

func channelCreate(ctx context.Context, tx state.Tx, m message.Message, id string) error {
	body, err := message.ParseChannelCreate(m.Data.Body)
	if err != nil {
		return reject(CodeMalformedBody, "%v", err)
	}
	return tx.PutChannel(ctx, state.Channel{ID: id, CreatedBy: m.Data.RID, URI: body.URI})
}

func itemCreate(ctx context.Context, tx state.Tx, m message.Message, id string) error {
	body, err := message.ParseItemCreate(m.Data.Body)
	if err != nil {
		return reject(CodeMalformedBody, "%v", err)
	}
	if err := tx.PutItem(ctx, state.Item{ID: id, CreatedBy: m.Data.RID, URI: body.URI}); err != nil {
		return err
	}
	return tx.EnsureURI(ctx, body.URI)
}

func itemSubmit(ctx context.Context, tx state.Tx, m message.Message, id string) error {
	body, err := message.ParseItemSubmit(m.Data.Body)
	if err != nil {
		return reject(CodeMalformedBody, "%v", err)
	}

	item, err := tx.Item(ctx, body.ItemID)
	if err != nil {
		return err
	}
	if item == nil {
		return reject(CodePreconditionFailed, "item %s does not exist", body.ItemID)
	}

	channel, err := tx.Channel(ctx, body.ChannelID)
	if err != nil {
		return err
	}
	if channel == nil {
		return reject(CodePreconditionFailed, "channel %s does not exist", body.ChannelID)
	}

	if err := checkText(body.Text); err != nil {
		return err
	}

	status := state.StatusPending
	if channel.CreatedBy == m.Data.RID {
		status = state.StatusOwnerAutoAccepted
	}

	return tx.PutSubmission(ctx, state.Submission{
		ID:        id,
		CreatedBy: m.Data.RID,
		ItemID:    body.ItemID,
		ChannelID: body.ChannelID,
		Text:      body.Text,
		Status:    status,
	})
}

func genericResponse(ctx context.Context, tx state.Tx, m message.Message, id string) error {
	body, err := message.ParseGenericResponse(m.Data.Body)
	if err != nil {
		return reject(CodeMalformedBody, "%v", err)
	}
	if err := checkText(body.Text); err != nil {
		return err
	}

	target, err := tx.Message(ctx, body.TargetMessageID)
	if err != nil {
		return err
	}
	if target == nil {
		return reject(CodePreconditionFailed, "target message %s does not exist", body.TargetMessageID)
	}

	switch target.Message.Data.Type {
	case message.TypeItemSubmit:
		if err := resolveSubmission(ctx, tx, m.Data.RID, body); err != nil {
			return err
		}
	default:
		// Invitations and other targets only record the response.
	}

	return tx.PutResponse(ctx, state.Response{
		ID:              id,
		TargetMessageID: body.TargetMessageID,
		Response:        body.Response,
		Text:            body.Text,
	})
}

// resolveSubmission moves a pending submission to accepted or rejected.
// Only the owner of the submission's channel may resolve it, once.
func resolveSubmission(ctx context.Context, tx state.Tx, rid uint64, body message.GenericResponseBody) error {
	sub, err := tx.Submission(ctx, body.TargetMessageID)
	if err != nil {
		return err
	}
	if sub == nil {
		return reject(CodePreconditionFailed, "submission %s does not exist", body.TargetMessageID)
	}
	if sub.Status != state.StatusPending {
		return reject(CodeAlreadyResolved, "submission %s is %s", sub.ID, sub.Status)
	}

	channel, err := tx.Channel(ctx, sub.ChannelID)
	if err != nil {
		return err
	}
	if channel == nil {
		return reject(CodePreconditionFailed, "channel %s does not exist", sub.ChannelID)
	}
	if channel.CreatedBy != rid {
		return reject(CodeForbidden, "principal %d does not own channel %s", rid, channel.ID)
	}

	status := state.StatusRejected
	if body.Response {
		status = state.StatusAccepted
	}
	ok, err := tx.ResolveSubmission(ctx, sub.ID, status)
	if err != nil {
		return err
	}
	if !ok {
		return reject(CodeAlreadyResolved, "submission %s was resolved concurrently", sub.ID)
	}
	return nil
}

func checkText(text *string) error {
	if text == nil {
		return nil
	}
	if n := message.TextLength(*text); n > message.CaptionMaxLength {
		return reject(CodeLimitExceeded, "text is %d units, limit %d", n, message.CaptionMaxLength)
	}
	return nil
}
