package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %s by %s: %s", event.Seq, event.Step, event.Type, event.Signer, event.Outcome)
		if event.Code != "" {
			fmt.Fprintf(&buf, " (%s)", event.Code)
		}
		buf.WriteByte('\n')
	}
	return buf.String()
}

// evaluate runs every assertion and returns the failure messages.
func (h *Harness) evaluate(ctx context.Context, result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertFinalState:
			err = h.assertFinalState(ctx, result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

// assertTraceCount checks how many flow steps had the given outcome.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Outcome == a.Outcome {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d %s steps", a.Count, a.Outcome),
			Actual:   fmt.Sprintf("%d %s steps", count, a.Outcome),
			Trace:    trace,
		}
	}
	return nil
}

// assertTraceOrder checks that the named steps committed in the given
// relative order. Other steps may appear in between.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	positions := make(map[string]int)
	for _, event := range trace {
		if event.Outcome == OutcomeCommitted {
			positions[event.Step] = event.Seq
		}
	}

	for _, name := range a.Steps {
		if positions[name] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("committed steps in order: %v", a.Steps),
				Actual:   fmt.Sprintf("step %s did not commit", name),
				Trace:    trace,
			}
		}
	}
	for i := 1; i < len(a.Steps); i++ {
		prev, curr := a.Steps[i-1], a.Steps[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("committed steps in order: %v", a.Steps),
				Actual: fmt.Sprintf("%s (seq %d) should be before %s (seq %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

// assertFinalState looks up a record and subset-matches its JSON form.
func (h *Harness) assertFinalState(ctx context.Context, trace []TraceEvent, a Assertion) error {
	id, err := h.resolve(a.ID)
	if err != nil {
		return err
	}

	rec, err := h.lookup(ctx, a.Table, id.(string))
	if err != nil {
		return fmt.Errorf("lookup %s %s: %w", a.Table, a.ID, err)
	}

	if a.Absent {
		if rec != nil {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("no %s record for %s", a.Table, a.ID),
				Actual:   render(h.symbolic(rec)),
				Trace:    trace,
			}
		}
		return nil
	}
	if rec == nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s record for %s", a.Table, a.ID),
			Actual:   "not found",
			Trace:    trace,
		}
	}

	want, err := h.resolve(a.Expect)
	if err != nil {
		return err
	}
	want, err = normalize(want)
	if err != nil {
		return err
	}
	if !subsetMatch(rec, want) {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: render(h.symbolic(want)),
			Actual:   render(h.symbolic(rec)),
			Trace:    trace,
		}
	}
	return nil
}

// lookup returns the record's JSON form as a map, or nil if absent.
func (h *Harness) lookup(ctx context.Context, table, id string) (any, error) {
	switch table {
	case "channels":
		rec, err := h.store.Channel(ctx, id)
		return found(rec, err)
	case "items":
		rec, err := h.store.Item(ctx, id)
		return found(rec, err)
	case "submissions":
		rec, err := h.store.Submission(ctx, id)
		return found(rec, err)
	case "responses":
		rec, err := h.store.Response(ctx, id)
		return found(rec, err)
	case "messages":
		rec, err := h.store.Message(ctx, id)
		return found(rec, err)
	case "uri_info":
		rec, err := h.store.URIInfo(ctx, id)
		return found(rec, err)
	default:
		return nil, fmt.Errorf("unknown table %q", table)
	}
}

func found[T any](rec *T, err error) (any, error) {
	if err != nil || rec == nil {
		return nil, err
	}
	return normalize(rec)
}

// normalize round-trips v through JSON so records and YAML expectations
// compare with the same number and map types.
func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// subsetMatch reports whether every field in expected is present in actual
// with an equal value. Nested objects match by subset as well.
func subsetMatch(actual, expected any) bool {
	em, ok := expected.(map[string]any)
	if !ok {
		return reflect.DeepEqual(actual, expected)
	}
	am, ok := actual.(map[string]any)
	if !ok {
		return false
	}
	for k, ev := range em {
		av, present := am[k]
		if !present || !subsetMatch(av, ev) {
			return false
		}
	}
	return true
}

func render(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
