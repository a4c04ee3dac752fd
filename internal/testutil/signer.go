package testutil

import (
	"context"
	"crypto/ed25519"
	"fmt"

	"github.com/roach88/rivervm/internal/address"
	"github.com/roach88/rivervm/internal/canon"
	"github.com/roach88/rivervm/internal/message"
	"github.com/roach88/rivervm/internal/signature"
)

// Signer is a principal with a deterministic Ed25519 key.
type Signer struct {
	Name string
	RID  uint64
	Key  ed25519.PrivateKey
}

// NewSigner derives the key for name from a BLAKE3 digest of the name, so
// the same name always yields the same key.
func NewSigner(name string, rid uint64) Signer {
	seed := address.Digest([]byte("river-test-key:" + name))
	key, err := signature.KeyFromSeed(seed[:])
	if err != nil {
		panic(err) // digest size equals seed size
	}
	return Signer{Name: name, RID: rid, Key: key}
}

// Public returns the raw public key bytes.
func (s Signer) Public() []byte {
	return []byte(s.Key.Public().(ed25519.PublicKey))
}

// Sign hashes data and signs it, producing a message that verifies when
// the signer is registered.
func (s Signer) Sign(data message.Data) (message.Message, error) {
	hash, err := address.HashData(data)
	if err != nil {
		return message.Message{}, err
	}
	sig, err := signature.Sign(message.SignatureEd25519, s.Key, hash)
	if err != nil {
		return message.Message{}, err
	}
	return message.Message{
		Signer:             s.Public(),
		Data:               data,
		HashAlgorithm:      message.HashBlake3,
		Hash:               hash,
		SignatureAlgorithm: message.SignatureEd25519,
		Signature:          sig,
	}, nil
}

// MustSign is Sign for callers that cannot recover.
func (s Signer) MustSign(data message.Data) message.Message {
	m, err := s.Sign(data)
	if err != nil {
		panic(fmt.Sprintf("sign %s: %v", s.Name, err))
	}
	return m
}

// Message builds and signs a message of typ with body at timestamp ts.
func (s Signer) Message(ts uint64, typ message.Type, body canon.Object) message.Message {
	return s.MustSign(message.Data{RID: s.RID, Timestamp: ts, Type: typ, Body: body})
}

// Registrar is implemented by stores that can enroll principals.
type Registrar interface {
	AddPrincipal(ctx context.Context, rid uint64) error
	AddKey(ctx context.Context, rid uint64, key []byte) error
}

// Register enrolls each signer and its key.
func Register(ctx context.Context, r Registrar, signers ...Signer) error {
	for _, s := range signers {
		if err := r.AddPrincipal(ctx, s.RID); err != nil {
			return err
		}
		if err := r.AddKey(ctx, s.RID, s.Public()); err != nil {
			return err
		}
	}
	return nil
}

// Body helpers for the handled message kinds.

func ChannelCreate(uri string) canon.Object {
	return message.ChannelCreateBody{URI: uri}.Object()
}

func ItemCreate(uri string) canon.Object {
	return message.ItemCreateBody{URI: uri}.Object()
}

func ItemSubmit(itemID, channelID string, text *string) canon.Object {
	return message.ItemSubmitBody{ItemID: itemID, ChannelID: channelID, Text: text}.Object()
}

func GenericResponse(targetID string, response bool, text *string) canon.Object {
	return message.GenericResponseBody{TargetMessageID: targetID, Response: response, Text: text}.Object()
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
