package message

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/rivervm/internal/canon"
)

// ErrMalformed is returned when a wire message cannot be decoded.
var ErrMalformed = errors.New("malformed message")

// Wire is the JSON form of a Message at the HTTP boundary.
// Byte strings are base64url text and 64-bit integers are decimal strings.
type Wire struct {
	Signer      string             `json:"signer"`
	MessageData WireData           `json:"messageData"`
	HashType    HashAlgorithm      `json:"hashType"`
	Hash        string             `json:"hash"`
	SigType     SignatureAlgorithm `json:"sigType"`
	Sig         string             `json:"sig"`
}

// WireData is the JSON form of Data.
type WireData struct {
	RID       string       `json:"rid"`
	Timestamp string       `json:"timestamp"`
	Type      Type         `json:"type"`
	Body      canon.Object `json:"body"`
}

// DecodeWire parses one wire message. The input may be the message object
// itself or a JSON string whose content is the message object, which is how
// older clients batch messages.
func DecodeWire(data []byte) (Message, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		data = []byte(inner)
	}

	var w Wire
	if err := json.Unmarshal(data, &w); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return w.Message()
}

// Message converts the wire form into a Message.
func (w Wire) Message() (Message, error) {
	rid, err := parseUint("rid", w.MessageData.RID)
	if err != nil {
		return Message{}, err
	}
	ts, err := parseUint("timestamp", w.MessageData.Timestamp)
	if err != nil {
		return Message{}, err
	}
	if w.MessageData.Body == nil {
		return Message{}, fmt.Errorf("%w: body must be an object", ErrMalformed)
	}

	signer, err := DecodeBytes(w.Signer)
	if err != nil {
		return Message{}, fmt.Errorf("%w: signer: %v", ErrMalformed, err)
	}
	hash, err := DecodeBytes(w.Hash)
	if err != nil {
		return Message{}, fmt.Errorf("%w: hash: %v", ErrMalformed, err)
	}
	sig, err := DecodeBytes(w.Sig)
	if err != nil {
		return Message{}, fmt.Errorf("%w: sig: %v", ErrMalformed, err)
	}

	return Message{
		Signer: signer,
		Data: Data{
			RID:       rid,
			Timestamp: ts,
			Type:      w.MessageData.Type,
			Body:      w.MessageData.Body,
		},
		HashAlgorithm:      w.HashType,
		Hash:               hash,
		SignatureAlgorithm: w.SigType,
		Signature:          sig,
	}, nil
}

// ToWire converts m into its wire form.
func ToWire(m Message) Wire {
	body := m.Data.Body
	if body == nil {
		body = canon.Object{}
	}
	return Wire{
		Signer: EncodeBytes(m.Signer),
		MessageData: WireData{
			RID:       strconv.FormatUint(m.Data.RID, 10),
			Timestamp: strconv.FormatUint(m.Data.Timestamp, 10),
			Type:      m.Data.Type,
			Body:      body,
		},
		HashType: m.HashAlgorithm,
		Hash:     EncodeBytes(m.Hash),
		SigType:  m.SignatureAlgorithm,
		Sig:      EncodeBytes(m.Signature),
	}
}

// EncodeWire renders m as wire JSON.
func EncodeWire(m Message) ([]byte, error) {
	return json.Marshal(ToWire(m))
}

// EncodeBytes renders b as unpadded base64url.
func EncodeBytes(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeBytes accepts base64url or standard base64, padded or not.
func DecodeBytes(s string) ([]byte, error) {
	s = strings.TrimRight(s, "=")
	s = strings.NewReplacer("+", "-", "/", "_").Replace(s)
	return base64.RawURLEncoding.DecodeString(s)
}

func parseUint(field, s string) (uint64, error) {
	if s == "" {
		return 0, fmt.Errorf("%w: %s is required", ErrMalformed, field)
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a decimal unsigned integer: %v", ErrMalformed, field, err)
	}
	return n, nil
}
