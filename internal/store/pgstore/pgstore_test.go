package pgstore

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rivervm/internal/canon"
	"github.com/roach88/rivervm/internal/message"
	"github.com/roach88/rivervm/internal/state"
)

// openTestStore connects to RIVER_TEST_DATABASE_URL, skipping when unset.
// Ids are suffixed per test run so a shared database can be reused.
func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	url := os.Getenv("RIVER_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("RIVER_TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := Open(ctx, url)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s, fmt.Sprintf("-%d", time.Now().UnixNano())
}

func TestPostgres_PrincipalsAndKeys(t *testing.T) {
	s, suffix := openTestStore(t)
	ctx := context.Background()
	rid := uint64(time.Now().UnixNano())
	key := []byte("key" + suffix)

	err := s.AddKey(ctx, rid, key)
	assert.ErrorIs(t, err, state.ErrNotFound)

	require.NoError(t, s.AddPrincipal(ctx, rid))
	require.NoError(t, s.AddKey(ctx, rid, key))

	status, err := s.KeyStatus(ctx, rid, key)
	require.NoError(t, err)
	assert.Equal(t, state.KeyActive, status)

	require.NoError(t, s.RevokeKey(ctx, rid, key))
	status, err = s.KeyStatus(ctx, rid, key)
	require.NoError(t, err)
	assert.Equal(t, state.KeyRevoked, status)
}

func TestPostgres_EntitiesAndResolution(t *testing.T) {
	s, suffix := openTestStore(t)
	ctx := context.Background()
	channelID, itemID, subID := "c"+suffix, "i"+suffix, "s"+suffix

	err := s.Update(ctx, func(tx state.Tx) error {
		if err := tx.PutChannel(ctx, state.Channel{ID: channelID, CreatedBy: 1, URI: "ipfs://chan"}); err != nil {
			return err
		}
		if err := tx.PutItem(ctx, state.Item{ID: itemID, CreatedBy: 2, URI: "ipfs://item"}); err != nil {
			return err
		}
		if err := tx.EnsureURI(ctx, "ipfs://item"); err != nil {
			return err
		}
		if err := tx.PutSubmission(ctx, state.Submission{ID: subID, CreatedBy: 2, ItemID: itemID, ChannelID: channelID}); err != nil {
			return err
		}
		return tx.PutMessage(ctx, state.MessageRecord{ID: subID, Message: message.Message{
			Signer: []byte{1},
			Data: message.Data{RID: 2, Timestamp: 3, Type: message.TypeItemSubmit, Body: canon.Object{
				"itemId": canon.String(itemID), "channelId": canon.String(channelID),
			}},
			HashAlgorithm: message.HashBlake3, Hash: []byte{2},
			SignatureAlgorithm: message.SignatureEd25519, Signature: []byte{3},
		}})
	})
	require.NoError(t, err)

	rec, err := s.Message(ctx, subID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, message.TypeItemSubmit, rec.Message.Data.Type)

	var wg sync.WaitGroup
	wins := make(chan bool, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Update(ctx, func(tx state.Tx) error {
				ok, err := tx.ResolveSubmission(ctx, subID, state.StatusAccepted)
				wins <- ok
				return err
			}))
		}()
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

	subs, err := s.Submissions(ctx, channelID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, state.StatusAccepted, subs[0].Status)
}
