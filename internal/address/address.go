// Package address derives content identifiers for message payloads.
//
// An identifier is a CIDv1 (codec dag-json) whose multihash is the BLAKE3-256
// digest of the payload's canonical encoding. The digest inside the CID is
// the same value a client places in Message.Hash, so one computation serves
// both hash verification and entity keying.
package address

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
	"github.com/zeebo/blake3"

	"github.com/roach88/rivervm/internal/message"
)

// DigestSize is the length in bytes of a content digest.
const DigestSize = 32

// ErrInvalidID is returned by Parse for strings that are not VM content ids.
var ErrInvalidID = errors.New("invalid content id")

// ContentID identifies a message payload and every entity derived from it.
type ContentID struct {
	c cid.Cid
}

// Undef is the zero ContentID.
var Undef ContentID

// Digest returns the BLAKE3-256 digest of canonical bytes.
func Digest(canonical []byte) [DigestSize]byte {
	return blake3.Sum256(canonical)
}

// HashData returns the content digest of d.
func HashData(d message.Data) ([]byte, error) {
	b, err := d.Encode()
	if err != nil {
		return nil, err
	}
	sum := Digest(b)
	return sum[:], nil
}

// FromDigest wraps a 32-byte digest as a ContentID.
func FromDigest(digest []byte) (ContentID, error) {
	if len(digest) != DigestSize {
		return Undef, fmt.Errorf("%w: digest must be %d bytes, got %d", ErrInvalidID, DigestSize, len(digest))
	}
	hash, err := mh.Encode(digest, mh.BLAKE3)
	if err != nil {
		return Undef, fmt.Errorf("encode multihash: %w", err)
	}
	return ContentID{c: cid.NewCidV1(cid.DagJSON, hash)}, nil
}

// Of computes the ContentID of d.
func Of(d message.Data) (ContentID, error) {
	digest, err := HashData(d)
	if err != nil {
		return Undef, fmt.Errorf("address of message data: %w", err)
	}
	return FromDigest(digest)
}

// MustOf is like Of but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustOf(d message.Data) ContentID {
	id, err := Of(d)
	if err != nil {
		panic(err)
	}
	return id
}

// Parse decodes the string form of a ContentID.
// Only CIDv1 dag-json identifiers carrying a 32-byte BLAKE3 multihash are accepted.
func Parse(s string) (ContentID, error) {
	c, err := cid.Decode(s)
	if err != nil {
		return Undef, fmt.Errorf("%w: %v", ErrInvalidID, err)
	}
	if c.Version() != 1 || c.Type() != cid.DagJSON {
		return Undef, fmt.Errorf("%w: unexpected cid version or codec", ErrInvalidID)
	}
	decoded, err := mh.Decode(c.Hash())
	if err != nil {
		return Undef, fmt.Errorf("%w: %v", ErrInvalidID, err)
	}
	if decoded.Code != mh.BLAKE3 || len(decoded.Digest) != DigestSize {
		return Undef, fmt.Errorf("%w: expected blake3-256 multihash", ErrInvalidID)
	}
	return ContentID{c: c}, nil
}

// Digest returns the raw digest carried by id.
func (id ContentID) Digest() []byte {
	if !id.c.Defined() {
		return nil
	}
	decoded, err := mh.Decode(id.c.Hash())
	if err != nil {
		return nil
	}
	return decoded.Digest
}

// Matches reports whether id carries exactly the given digest.
func (id ContentID) Matches(digest []byte) bool {
	return id.c.Defined() && bytes.Equal(id.Digest(), digest)
}

// Defined reports whether id is set.
func (id ContentID) Defined() bool {
	return id.c.Defined()
}

// String returns the base32 multibase form, e.g. "baguqehra...".
func (id ContentID) String() string {
	if !id.c.Defined() {
		return ""
	}
	return id.c.String()
}

// MarshalText implements encoding.TextMarshaler.
func (id ContentID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}
