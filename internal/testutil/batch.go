package testutil

// FixedBatchIDGenerator returns the same batch id every time.
//
// Server log lines and JSON responses then stay byte-identical across runs,
// which golden comparisons depend on.
//
// Thread-safety: FixedBatchIDGenerator is stateless and safe for concurrent use.
type FixedBatchIDGenerator struct {
	id string
}

// NewFixedBatchIDGenerator creates a generator that always returns id.
// If id is empty, Generate() returns "test-batch-default".
func NewFixedBatchIDGenerator(id string) *FixedBatchIDGenerator {
	if id == "" {
		id = "test-batch-default"
	}
	return &FixedBatchIDGenerator{id: id}
}

// Generate returns the fixed batch id.
func (g *FixedBatchIDGenerator) Generate() string {
	return g.id
}
