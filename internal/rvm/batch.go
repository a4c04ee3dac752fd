package rvm

import (
	"context"

	"github.com/roach88/rivervm/internal/address"
	"github.com/roach88/rivervm/internal/message"
	"github.com/roach88/rivervm/internal/metrics"
)

// Stage names where a batch stopped.
type Stage string

const (
	StageNone    Stage = ""
	StageVerify  Stage = "verify"
	StageProcess Stage = "process"
)

// BatchResult reports how far a batch got. Messages before FailedIndex are
// committed and stay committed.
type BatchResult struct {
	Committed   []address.ContentID
	FailedIndex int   // -1 when every message committed
	Stage       Stage // where the failing message stopped
	Err         error
}

// OK reports whether every message committed.
func (b BatchResult) OK() bool {
	return b.Err == nil
}

// ProcessBatch verifies and processes msgs in order, stopping at the first
// message that fails either step. Each commit is independent, so earlier
// commits are not rolled back when a later message fails.
func (r *Router) ProcessBatch(ctx context.Context, msgs []message.Message) BatchResult {
	metrics.BatchSize.Observe(float64(len(msgs)))

	res := BatchResult{Committed: make([]address.ContentID, 0, len(msgs)), FailedIndex: -1}
	for i, m := range msgs {
		if err := ctx.Err(); err != nil {
			return res.fail(i, StageNone, err)
		}
		if err := r.VerifyMessage(ctx, m); err != nil {
			return res.fail(i, StageVerify, err)
		}
		id, err := r.ProcessMessage(ctx, m)
		if err != nil {
			return res.fail(i, StageProcess, err)
		}
		res.Committed = append(res.Committed, id)
	}
	return res
}

func (b BatchResult) fail(i int, stage Stage, err error) BatchResult {
	b.FailedIndex = i
	b.Stage = stage
	b.Err = err
	return b
}
