package message

import (
	"fmt"
	"strconv"

	"github.com/roach88/rivervm/internal/canon"
)

// Type identifies the kind of a message. Values are part of the wire
// contract and must never be renumbered.
type Type uint8

const (
	TypeNone                 Type = 0
	TypeChannelCreate        Type = 1
	TypeChannelEdit          Type = 2
	TypeChannelDelete        Type = 3
	TypeChannelInviteMember  Type = 4
	TypeChannelTransferOwner Type = 5
	TypeItemCreate           Type = 6
	TypeItemEdit             Type = 7
	TypeItemDelete           Type = 8
	TypeItemSubmit           Type = 9
	TypeItemRemove           Type = 10
	TypeCommentCreate        Type = 11
	TypeCommentEdit          Type = 12
	TypeCommentDelete        Type = 13
	TypeUserSetName          Type = 14
	TypeUserSetData          Type = 15
	TypeUserInviteFriend     Type = 16
	TypeGenericResponse      Type = 17
)

var typeNames = [...]string{
	TypeNone:                 "NONE",
	TypeChannelCreate:        "CHANNEL_CREATE",
	TypeChannelEdit:          "CHANNEL_EDIT",
	TypeChannelDelete:        "CHANNEL_DELETE",
	TypeChannelInviteMember:  "CHANNEL_INVITE_MEMBER",
	TypeChannelTransferOwner: "CHANNEL_TRANSFER_OWNER",
	TypeItemCreate:           "ITEM_CREATE",
	TypeItemEdit:             "ITEM_EDIT",
	TypeItemDelete:           "ITEM_DELETE",
	TypeItemSubmit:           "ITEM_SUBMIT",
	TypeItemRemove:           "ITEM_REMOVE",
	TypeCommentCreate:        "COMMENT_CREATE",
	TypeCommentEdit:          "COMMENT_EDIT",
	TypeCommentDelete:        "COMMENT_DELETE",
	TypeUserSetName:          "USER_SET_NAME",
	TypeUserSetData:          "USER_SET_DATA",
	TypeUserInviteFriend:     "USER_INVITE_FRIEND",
	TypeGenericResponse:      "GENERIC_RESPONSE",
}

// Known reports whether t is a member of the enumeration.
func (t Type) Known() bool {
	return int(t) < len(typeNames)
}

func (t Type) String() string {
	if t.Known() {
		return typeNames[t]
	}
	return "TYPE_" + strconv.Itoa(int(t))
}

// ParseType resolves a type by its wire name (e.g. "ITEM_SUBMIT").
func ParseType(name string) (Type, error) {
	for i, n := range typeNames {
		if n == name {
			return Type(i), nil
		}
	}
	return TypeNone, fmt.Errorf("unknown message type %q", name)
}

// HashAlgorithm tags the function that produced Message.Hash.
type HashAlgorithm uint8

const (
	HashNone   HashAlgorithm = 0
	HashBlake3 HashAlgorithm = 1
)

// SignatureAlgorithm tags the scheme that produced Message.Signature.
type SignatureAlgorithm uint8

const (
	SignatureNone    SignatureAlgorithm = 0
	SignatureEd25519 SignatureAlgorithm = 1
	SignatureEIP712  SignatureAlgorithm = 2
)

// Data is the signed payload of a message.
type Data struct {
	RID       uint64       // acting principal
	Timestamp uint64       // client-claimed submission time
	Type      Type         // selects the body shape
	Body      canon.Object // shape depends on Type
}

// Canonical returns the value whose canonical encoding is hashed.
// Unsigned integers are rendered as decimal strings so no encoder ever
// routes them through a float.
func (d Data) Canonical() canon.Object {
	body := d.Body
	if body == nil {
		body = canon.Object{}
	}
	return canon.Object{
		"body":      body,
		"rid":       canon.String(strconv.FormatUint(d.RID, 10)),
		"timestamp": canon.String(strconv.FormatUint(d.Timestamp, 10)),
		"type":      canon.Int(d.Type),
	}
}

// Encode returns the canonical bytes of d.
func (d Data) Encode() ([]byte, error) {
	b, err := canon.Marshal(d.Canonical())
	if err != nil {
		return nil, fmt.Errorf("encode message data: %w", err)
	}
	return b, nil
}

// Message is the unit of work submitted to the VM.
type Message struct {
	Signer             []byte
	Data               Data
	HashAlgorithm      HashAlgorithm
	Hash               []byte
	SignatureAlgorithm SignatureAlgorithm
	Signature          []byte
}
