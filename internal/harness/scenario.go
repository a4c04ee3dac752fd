package harness

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/rivervm/internal/message"
	"github.com/roach88/rivervm/internal/rvm"
)

// Scenario is a scripted sequence of signed messages plus the checks to run
// once they have been processed.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Principals are enrolled before anything runs.
	Principals []Principal `yaml:"principals"`

	// Setup steps must all commit. They are not traced.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow steps are traced and checked against their expect clauses.
	Flow []Step `yaml:"flow"`

	Assertions []Assertion `yaml:"assertions"`
}

// Principal is a named actor with a deterministic key.
type Principal struct {
	Name string `yaml:"name"`
	RID  uint64 `yaml:"rid"`

	// Unregistered principals can sign but are unknown to the store.
	Unregistered bool `yaml:"unregistered,omitempty"`

	// Revoked principals are enrolled with a key that is then revoked.
	Revoked bool `yaml:"revoked,omitempty"`
}

// Step builds, signs and submits one message.
type Step struct {
	// Name lets later steps and assertions refer to this message's id.
	Name string `yaml:"name"`

	// Signer names a principal.
	Signer string `yaml:"signer"`

	// Type is a wire type name such as ITEM_SUBMIT, or a decimal value.
	Type string `yaml:"type"`

	Body map[string]any `yaml:"body"`

	// Timestamp overrides the deterministic clock when non-zero.
	Timestamp uint64 `yaml:"timestamp,omitempty"`

	// Tamper corrupts the message after signing. See package docs.
	Tamper string `yaml:"tamper,omitempty"`

	// Expect defaults to outcome committed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect is the expected outcome of a step.
type Expect struct {
	Outcome string         `yaml:"outcome"`
	Code    rvm.RejectCode `yaml:"code,omitempty"`
}

// Assertion validates the trace or the final store contents.
type Assertion struct {
	Type string `yaml:"type"`

	// Table and ID select a record (final_state).
	Table string `yaml:"table,omitempty"`
	ID    string `yaml:"id,omitempty"`

	// Expect is a subset match on the record's JSON form (final_state).
	Expect map[string]any `yaml:"expect,omitempty"`

	// Absent asserts that no record exists (final_state).
	Absent bool `yaml:"absent,omitempty"`

	// Outcome and Count are used by trace_count.
	Outcome string `yaml:"outcome,omitempty"`
	Count   int    `yaml:"count,omitempty"`

	// Steps is the expected relative order (trace_order).
	Steps []string `yaml:"steps,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalState = "final_state"
	AssertTraceCount = "trace_count"
	AssertTraceOrder = "trace_order"
)

// Step outcomes.
const (
	OutcomeCommitted = "committed"
	OutcomeRejected  = "rejected"
)

// Tamper modes.
const (
	TamperBody      = "body"
	TamperSignature = "signature"
	TamperKey       = "key"
	TamperHashType  = "hash_type"
)

var tables = map[string]bool{
	"channels":    true,
	"items":       true,
	"submissions": true,
	"responses":   true,
	"messages":    true,
	"uri_info":    true,
}

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos surface as errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// parseType accepts a wire name or a decimal value.
func parseType(s string) (message.Type, error) {
	if t, err := message.ParseType(s); err == nil {
		return t, nil
	}
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return message.TypeNone, fmt.Errorf("unknown message type %q", s)
	}
	return message.Type(n), nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Principals) == 0 {
		return fmt.Errorf("principals list is required and must be non-empty")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	principals := make(map[string]bool)
	for i, p := range s.Principals {
		if p.Name == "" {
			return fmt.Errorf("principals[%d]: name is required", i)
		}
		if principals[p.Name] {
			return fmt.Errorf("principals[%d]: duplicate name %q", i, p.Name)
		}
		if p.Unregistered && p.Revoked {
			return fmt.Errorf("principals[%d]: unregistered and revoked are exclusive", i)
		}
		principals[p.Name] = true
	}

	names := make(map[string]bool)
	check := func(section string, i int, step Step) error {
		if step.Name == "" {
			return fmt.Errorf("%s[%d]: name is required", section, i)
		}
		if names[step.Name] {
			return fmt.Errorf("%s[%d]: duplicate step name %q", section, i, step.Name)
		}
		names[step.Name] = true
		if !principals[step.Signer] {
			return fmt.Errorf("%s[%d]: unknown signer %q", section, i, step.Signer)
		}
		if _, err := parseType(step.Type); err != nil {
			return fmt.Errorf("%s[%d]: %w", section, i, err)
		}
		if step.Body == nil {
			return fmt.Errorf("%s[%d]: body is required (use {} if empty)", section, i)
		}
		switch step.Tamper {
		case "", TamperBody, TamperSignature, TamperKey, TamperHashType:
		default:
			return fmt.Errorf("%s[%d]: unknown tamper mode %q", section, i, step.Tamper)
		}
		if step.Expect != nil {
			switch step.Expect.Outcome {
			case OutcomeCommitted:
				if step.Expect.Code != "" {
					return fmt.Errorf("%s[%d].expect: code requires outcome rejected", section, i)
				}
			case OutcomeRejected:
			default:
				return fmt.Errorf("%s[%d].expect: unknown outcome %q", section, i, step.Expect.Outcome)
			}
		}
		return nil
	}

	for i, step := range s.Setup {
		if err := check("setup", i, step); err != nil {
			return err
		}
		if step.Expect != nil && step.Expect.Outcome != OutcomeCommitted {
			return fmt.Errorf("setup[%d]: setup steps must commit", i)
		}
	}
	for i, step := range s.Flow {
		if err := check("flow", i, step); err != nil {
			return err
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a, names); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion, names map[string]bool) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertFinalState:
		if !tables[a.Table] {
			return fmt.Errorf("assertions[%d]: unknown table %q", index, a.Table)
		}
		// uri_info is keyed by the item URI itself.
		if a.Table == "uri_info" {
			if a.ID == "" {
				return fmt.Errorf("assertions[%d]: id is required", index)
			}
		} else if !strings.HasPrefix(a.ID, "$") || !names[a.ID[1:]] {
			return fmt.Errorf("assertions[%d]: id must reference a step, got %q", index, a.ID)
		}
		if a.Absent == (len(a.Expect) > 0) {
			return fmt.Errorf("assertions[%d]: final_state needs exactly one of expect or absent", index)
		}
	case AssertTraceCount:
		if a.Outcome != OutcomeCommitted && a.Outcome != OutcomeRejected {
			return fmt.Errorf("assertions[%d]: unknown outcome %q", index, a.Outcome)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertTraceOrder:
		if len(a.Steps) < 2 {
			return fmt.Errorf("assertions[%d]: trace_order needs at least two steps", index)
		}
		for _, name := range a.Steps {
			if !names[name] {
				return fmt.Errorf("assertions[%d]: unknown step %q", index, name)
			}
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
