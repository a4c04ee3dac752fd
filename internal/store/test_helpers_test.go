package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/rivervm/internal/canon"
	"github.com/roach88/rivervm/internal/message"
	"github.com/roach88/rivervm/internal/state"
)

// createTestStore creates a new store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// mustUpdate runs fn in a transaction and fails the test on error.
func mustUpdate(t *testing.T, s *Store, fn func(state.Tx) error) {
	t.Helper()
	if err := s.Update(context.Background(), fn); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
}

func createTestMessage(rid uint64, typ message.Type, body canon.Object) message.Message {
	return message.Message{
		Signer: []byte{0xfb, 0xff, 0x01},
		Data: message.Data{
			RID:       rid,
			Timestamp: 1700000000000,
			Type:      typ,
			Body:      body,
		},
		HashAlgorithm:      message.HashBlake3,
		Hash:               []byte{1, 2, 3},
		SignatureAlgorithm: message.SignatureEd25519,
		Signature:          []byte{4, 5, 6},
	}
}

// seedChannelAndItem writes a channel "c1" owned by 1 and an item "i1" owned by 2.
func seedChannelAndItem(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	mustUpdate(t, s, func(tx state.Tx) error {
		if err := tx.PutChannel(ctx, state.Channel{ID: "c1", CreatedBy: 1, URI: "ipfs://chan"}); err != nil {
			return err
		}
		return tx.PutItem(ctx, state.Item{ID: "i1", CreatedBy: 2, URI: "ipfs://item"})
	})
}
