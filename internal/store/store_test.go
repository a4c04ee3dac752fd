package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rivervm/internal/canon"
	"github.com/roach88/rivervm/internal/message"
	"github.com/roach88/rivervm/internal/state"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
	assert.NoError(t, s.verifyPragma("user_version", "1"))
}

func TestClose_NilDB(t *testing.T) {
	var s Store
	assert.NoError(t, s.Close())
}

func TestPrincipalsAndKeys(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	key := []byte{9, 9, 9}

	ok, err := s.HasPrincipal(ctx, 18446744073709551615)
	require.NoError(t, err)
	assert.False(t, ok)

	err = s.AddKey(ctx, 18446744073709551615, key)
	assert.ErrorIs(t, err, state.ErrNotFound)

	require.NoError(t, s.AddPrincipal(ctx, 18446744073709551615))
	require.NoError(t, s.AddPrincipal(ctx, 18446744073709551615))
	ok, err = s.HasPrincipal(ctx, 18446744073709551615)
	require.NoError(t, err)
	assert.True(t, ok)

	status, err := s.KeyStatus(ctx, 18446744073709551615, key)
	require.NoError(t, err)
	assert.Equal(t, state.KeyNone, status)

	require.NoError(t, s.AddKey(ctx, 18446744073709551615, key))
	status, err = s.KeyStatus(ctx, 18446744073709551615, key)
	require.NoError(t, err)
	assert.Equal(t, state.KeyActive, status)

	require.NoError(t, s.RevokeKey(ctx, 18446744073709551615, key))
	status, err = s.KeyStatus(ctx, 18446744073709551615, key)
	require.NoError(t, err)
	assert.Equal(t, state.KeyRevoked, status)

	// Re-adding does not resurrect a revoked key.
	require.NoError(t, s.AddKey(ctx, 18446744073709551615, key))
	status, err = s.KeyStatus(ctx, 18446744073709551615, key)
	require.NoError(t, err)
	assert.Equal(t, state.KeyRevoked, status)

	err = s.RevokeKey(ctx, 18446744073709551615, []byte{1})
	assert.ErrorIs(t, err, state.ErrNotFound)
}

func TestReaders_MissingReturnsNil(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	c, err := s.Channel(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, c)

	it, err := s.Item(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, it)

	sub, err := s.Submission(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, sub)

	m, err := s.Message(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, m)

	r, err := s.Response(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, r)

	subs, err := s.Submissions(ctx, "nope")
	require.NoError(t, err)
	assert.NotNil(t, subs)
	assert.Empty(t, subs)
}

func TestPutChannel_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	ch := state.Channel{ID: "c1", CreatedBy: 1, URI: "ipfs://chan"}
	for i := 0; i < 2; i++ {
		mustUpdate(t, s, func(tx state.Tx) error { return tx.PutChannel(ctx, ch) })
	}
	// A conflicting write with the same id leaves the first record intact.
	mustUpdate(t, s, func(tx state.Tx) error {
		return tx.PutChannel(ctx, state.Channel{ID: "c1", CreatedBy: 5, URI: "other"})
	})

	var count int
	require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM channels").Scan(&count))
	assert.Equal(t, 1, count)

	got, err := s.Channel(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, &ch, got)
}

func TestEnsureURI_NeverOverwrites(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	mustUpdate(t, s, func(tx state.Tx) error { return tx.EnsureURI(ctx, "ipfs://item") })
	_, err := s.DB().Exec(`UPDATE uri_info SET name = 'named' WHERE id = 'ipfs://item'`)
	require.NoError(t, err)
	mustUpdate(t, s, func(tx state.Tx) error { return tx.EnsureURI(ctx, "ipfs://item") })

	info, err := s.URIInfo(ctx, "ipfs://item")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "named", info.Name)
	assert.Empty(t, info.ImageURI)
}

func TestSubmission_RoundTripAndList(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedChannelAndItem(t, s)

	text := "caption"
	mustUpdate(t, s, func(tx state.Tx) error {
		if err := tx.PutSubmission(ctx, state.Submission{
			ID: "s2", CreatedBy: 2, ItemID: "i1", ChannelID: "c1", Status: state.StatusPending,
		}); err != nil {
			return err
		}
		return tx.PutSubmission(ctx, state.Submission{
			ID: "s1", CreatedBy: 1, ItemID: "i1", ChannelID: "c1", Text: &text,
			Status: state.StatusOwnerAutoAccepted,
		})
	})

	got, err := s.Submission(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NotNil(t, got.Text)
	assert.Equal(t, "caption", *got.Text)
	assert.Equal(t, state.StatusOwnerAutoAccepted, got.Status)

	subs, err := s.Submissions(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "s1", subs[0].ID)
	assert.Equal(t, "s2", subs[1].ID)
	assert.Nil(t, subs[1].Text)
}

func TestPutSubmission_RequiresItemAndChannel(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	err := s.Update(ctx, func(tx state.Tx) error {
		return tx.PutSubmission(ctx, state.Submission{ID: "s1", ItemID: "missing", ChannelID: "missing"})
	})
	assert.Error(t, err)
}

func TestResolveSubmission_CompareAndSet(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedChannelAndItem(t, s)

	mustUpdate(t, s, func(tx state.Tx) error {
		return tx.PutSubmission(ctx, state.Submission{ID: "s1", CreatedBy: 2, ItemID: "i1", ChannelID: "c1"})
	})

	var first, second bool
	mustUpdate(t, s, func(tx state.Tx) error {
		var err error
		first, err = tx.ResolveSubmission(ctx, "s1", state.StatusAccepted)
		return err
	})
	mustUpdate(t, s, func(tx state.Tx) error {
		var err error
		second, err = tx.ResolveSubmission(ctx, "s1", state.StatusRejected)
		return err
	})

	assert.True(t, first)
	assert.False(t, second)

	got, err := s.Submission(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, state.StatusAccepted, got.Status)

	mustUpdate(t, s, func(tx state.Tx) error {
		ok, err := tx.ResolveSubmission(ctx, "missing", state.StatusAccepted)
		assert.False(t, ok)
		return err
	})
}

func TestResolveSubmission_ConcurrentSingleWinner(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedChannelAndItem(t, s)
	mustUpdate(t, s, func(tx state.Tx) error {
		return tx.PutSubmission(ctx, state.Submission{ID: "s1", CreatedBy: 2, ItemID: "i1", ChannelID: "c1"})
	})

	const workers = 8
	var wg sync.WaitGroup
	wins := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			status := state.StatusAccepted
			if i%2 == 1 {
				status = state.StatusRejected
			}
			err := s.Update(ctx, func(tx state.Tx) error {
				ok, err := tx.ResolveSubmission(ctx, "s1", status)
				wins <- ok
				return err
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	close(wins)

	n := 0
	for ok := range wins {
		if ok {
			n++
		}
	}
	assert.Equal(t, 1, n)
}

func TestUpdate_RollsBackOnError(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Update(ctx, func(tx state.Tx) error {
		if err := tx.PutChannel(ctx, state.Channel{ID: "c1", CreatedBy: 1, URI: "u"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	c, err := s.Channel(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestMessage_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	msg := createTestMessage(18446744073709551615, message.TypeItemSubmit, canon.Object{
		"itemId":    canon.String("i1"),
		"channelId": canon.String("c1"),
		"n":         canon.Int(-3),
		"tags":      canon.Array{canon.Bool(true), canon.String("x")},
	})
	rec := state.MessageRecord{ID: "m1", Message: msg}

	mustUpdate(t, s, func(tx state.Tx) error { return tx.PutMessage(ctx, rec) })
	mustUpdate(t, s, func(tx state.Tx) error { return tx.PutMessage(ctx, rec) })

	got, err := s.Message(ctx, "m1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec, *got)
}

func TestResponse_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	target := state.MessageRecord{ID: "m1", Message: createTestMessage(2, message.TypeItemSubmit, canon.Object{})}
	text := "nice"
	mustUpdate(t, s, func(tx state.Tx) error {
		if err := tx.PutMessage(ctx, target); err != nil {
			return err
		}
		return tx.PutResponse(ctx, state.Response{ID: "r1", TargetMessageID: "m1", Response: true, Text: &text})
	})

	got, err := s.Response(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Response)
	assert.Equal(t, "m1", got.TargetMessageID)
	require.NotNil(t, got.Text)
	assert.Equal(t, "nice", *got.Text)
}
