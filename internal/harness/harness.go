package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/rivervm/internal/address"
	"github.com/roach88/rivervm/internal/canon"
	"github.com/roach88/rivervm/internal/message"
	"github.com/roach88/rivervm/internal/rvm"
	"github.com/roach88/rivervm/internal/store"
	"github.com/roach88/rivervm/internal/testutil"
)

// Harness executes one scenario against its own store and router.
type Harness struct {
	store   *store.Store
	router  *rvm.Router
	clock   *testutil.DeterministicClock
	signers map[string]testutil.Signer
	ids     map[string]string
	logger  *slog.Logger
}

// Option configures a run.
type Option func(*Harness)

// WithLogger routes router and harness logs to l. Runs are silent by default.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// Run executes a scenario in a fresh in-memory database and returns the
// result. An error means the scenario could not run at all (bad reference,
// failed setup, store fault); expectation and assertion failures are
// reported in the result instead.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:   st,
		clock:   testutil.NewDeterministicClock(0),
		signers: make(map[string]testutil.Signer),
		ids:     make(map[string]string),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.router = rvm.New(st, rvm.WithLogger(h.logger))

	if err := h.enroll(ctx, scenario.Principals); err != nil {
		return nil, fmt.Errorf("failed to enroll principals: %w", err)
	}

	result := NewResult()
	for _, step := range scenario.Setup {
		if err := h.execute(ctx, step); err != nil {
			return nil, fmt.Errorf("setup step %q: %w", step.Name, err)
		}
	}

	for _, step := range scenario.Flow {
		if err := h.runFlowStep(ctx, step, result); err != nil {
			return nil, err
		}
	}

	for _, msg := range h.evaluate(ctx, result, scenario.Assertions) {
		result.AddError(msg)
	}
	for name, id := range h.ids {
		result.IDs[name] = id
	}
	return result, nil
}

func (h *Harness) enroll(ctx context.Context, principals []Principal) error {
	for _, p := range principals {
		s := testutil.NewSigner(p.Name, p.RID)
		h.signers[p.Name] = s
		if p.Unregistered {
			continue
		}
		if err := testutil.Register(ctx, h.store, s); err != nil {
			return err
		}
		if p.Revoked {
			if err := h.store.RevokeKey(ctx, s.RID, s.Public()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *Harness) runFlowStep(ctx context.Context, step Step, result *Result) error {
	typ, _ := parseType(step.Type)
	event := TraceEvent{
		Step:    step.Name,
		Signer:  step.Signer,
		Type:    typ.String(),
		Outcome: OutcomeCommitted,
	}

	err := h.execute(ctx, step)
	switch {
	case err == nil:
	case rvm.IsRejection(err):
		event.Outcome = OutcomeRejected
		event.Code = string(rvm.CodeOf(err))
	default:
		return fmt.Errorf("flow step %q: %w", step.Name, err)
	}
	result.AddTrace(event)

	want := Expect{Outcome: OutcomeCommitted}
	if step.Expect != nil {
		want = *step.Expect
	}
	if event.Outcome != want.Outcome {
		detail := ""
		if err != nil {
			detail = ": " + err.Error()
		}
		result.AddError(fmt.Sprintf("step %s: expected %s, got %s%s", step.Name, want.Outcome, event.Outcome, detail))
		return nil
	}
	if want.Code != "" && event.Code != string(want.Code) {
		result.AddError(fmt.Sprintf("step %s: expected code %s, got %s", step.Name, want.Code, event.Code))
	}

	h.logger.Debug("flow step completed",
		"step", step.Name,
		"type", event.Type,
		"outcome", event.Outcome,
		"code", event.Code,
	)
	return nil
}

// execute builds, signs, verifies and processes one step. The step's id is
// recorded whether or not the message commits.
func (h *Harness) execute(ctx context.Context, step Step) error {
	m, err := h.build(step)
	if err != nil {
		return err
	}

	id, err := address.Of(m.Data)
	if err != nil {
		return fmt.Errorf("compute id: %w", err)
	}
	h.ids[step.Name] = id.String()

	if err := h.router.VerifyMessage(ctx, m); err != nil {
		return err
	}
	_, err = h.router.ProcessMessage(ctx, m)
	return err
}

func (h *Harness) build(step Step) (message.Message, error) {
	typ, err := parseType(step.Type)
	if err != nil {
		return message.Message{}, err
	}

	resolved, err := h.resolve(step.Body)
	if err != nil {
		return message.Message{}, err
	}
	v, err := canon.FromAny(resolved)
	if err != nil {
		return message.Message{}, fmt.Errorf("body: %w", err)
	}
	body := v.(canon.Object)

	ts := step.Timestamp
	if ts == 0 {
		ts = h.clock.Next()
	}

	signer := h.signers[step.Signer]
	if step.Tamper == TamperKey {
		signer = testutil.NewSigner(signer.Name+":unregistered", signer.RID)
	}
	m := signer.Message(ts, typ, body)

	switch step.Tamper {
	case TamperBody:
		tampered := make(canon.Object, len(body)+1)
		for k, v := range body {
			tampered[k] = v
		}
		tampered["tampered"] = canon.Bool(true)
		m.Data.Body = tampered
	case TamperSignature:
		sig := append([]byte(nil), m.Signature...)
		sig[0] ^= 0x01
		m.Signature = sig
	case TamperHashType:
		m.HashAlgorithm = message.HashNone
	}
	return m, nil
}

// resolve replaces $name strings with step ids.
func (h *Harness) resolve(v any) (any, error) {
	switch val := v.(type) {
	case string:
		if !strings.HasPrefix(val, "$") {
			return val, nil
		}
		id, ok := h.ids[val[1:]]
		if !ok {
			return nil, fmt.Errorf("reference %s does not name an earlier step", val)
		}
		return id, nil
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			r, err := h.resolve(elem)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			r, err := h.resolve(elem)
			if err != nil {
				return nil, err
			}
			out[k] = r
		}
		return out, nil
	default:
		return v, nil
	}
}

// symbolic replaces step ids with $name strings, the inverse of resolve.
func (h *Harness) symbolic(v any) any {
	names := make(map[string]string, len(h.ids))
	for name, id := range h.ids {
		names[id] = "$" + name
	}
	var walk func(any) any
	walk = func(v any) any {
		switch val := v.(type) {
		case string:
			if name, ok := names[val]; ok {
				return name
			}
			return val
		case []any:
			out := make([]any, len(val))
			for i, elem := range val {
				out[i] = walk(elem)
			}
			return out
		case map[string]any:
			out := make(map[string]any, len(val))
			for k, elem := range val {
				out[k] = walk(elem)
			}
			return out
		default:
			return v
		}
	}
	return walk(v)
}
