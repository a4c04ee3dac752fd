package state

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rivervm/internal/canon"
	"github.com/roach88/rivervm/internal/message"
)

func TestSubmissionStatus(t *testing.T) {
	assert.Equal(t, "pending", StatusPending.String())
	assert.Equal(t, "owner-auto-accepted", StatusOwnerAutoAccepted.String())
	assert.Equal(t, "status(9)", SubmissionStatus(9).String())

	assert.False(t, StatusPending.Terminal())
	for _, s := range []SubmissionStatus{StatusRejected, StatusAccepted, StatusOwnerAutoAccepted} {
		assert.True(t, s.Terminal(), s.String())
	}
}

func TestKeyStatusString(t *testing.T) {
	assert.Equal(t, "none", KeyNone.String())
	assert.Equal(t, "active", KeyActive.String())
	assert.Equal(t, "revoked", KeyRevoked.String())
}

func TestChannelJSONKeepsRIDPrecision(t *testing.T) {
	b, err := json.Marshal(Channel{ID: "c", CreatedBy: 18446744073709551615, URI: "u"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"c","createdBy":"18446744073709551615","uri":"u"}`, string(b))
}

func TestMessageRecordJSON(t *testing.T) {
	rec := MessageRecord{
		ID: "bafy",
		Message: message.Message{
			Signer: []byte{1},
			Data: message.Data{
				RID:       7,
				Timestamp: 8,
				Type:      message.TypeChannelCreate,
				Body:      canon.Object{"uri": canon.String("ipfs://x")},
			},
			HashAlgorithm:      message.HashBlake3,
			Hash:               []byte{2},
			SignatureAlgorithm: message.SignatureEd25519,
			Signature:          []byte{3},
		},
	}

	b, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": "bafy",
		"message": {
			"signer": "AQ",
			"messageData": {"rid": "7", "timestamp": "8", "type": 1, "body": {"uri": "ipfs://x"}},
			"hashType": 1,
			"hash": "Ag",
			"sigType": 1,
			"sig": "Aw"
		}
	}`, string(b))
}
