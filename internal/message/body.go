package message

import (
	"errors"
	"fmt"
	"unicode/utf16"

	"github.com/roach88/rivervm/internal/canon"
)

// CaptionMaxLength bounds submission and response text.
const CaptionMaxLength = 300

// BioMaxLength bounds USER_SET_DATA text. The kind is reserved.
const BioMaxLength = 50

// ErrMalformedBody is returned when a body does not have the shape its type requires.
var ErrMalformedBody = errors.New("malformed body")

// TextLength measures s in UTF-16 code units, the unit deployed clients count in.
func TextLength(s string) int {
	return len(utf16.Encode([]rune(s)))
}

// ChannelCreateBody is the body of CHANNEL_CREATE.
type ChannelCreateBody struct {
	URI string
}

// ItemCreateBody is the body of ITEM_CREATE.
type ItemCreateBody struct {
	URI string
}

// ItemSubmitBody is the body of ITEM_SUBMIT.
type ItemSubmitBody struct {
	ItemID    string
	ChannelID string
	Text      *string
}

// GenericResponseBody is the body of GENERIC_RESPONSE.
type GenericResponseBody struct {
	TargetMessageID string
	Response        bool
	Text            *string
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedBody, fmt.Sprintf(format, args...))
}

func requireString(o canon.Object, key string) (string, error) {
	s, ok := o.Str(key)
	if !ok {
		return "", malformed("%q must be a string", key)
	}
	return s, nil
}

func optionalString(o canon.Object, key string) (*string, error) {
	if !o.Has(key) {
		return nil, nil
	}
	s, ok := o.Str(key)
	if !ok {
		return nil, malformed("%q must be a string when present", key)
	}
	return &s, nil
}

// ParseChannelCreate checks o against the CHANNEL_CREATE shape.
func ParseChannelCreate(o canon.Object) (ChannelCreateBody, error) {
	uri, err := requireString(o, "uri")
	if err != nil {
		return ChannelCreateBody{}, err
	}
	return ChannelCreateBody{URI: uri}, nil
}

// ParseItemCreate checks o against the ITEM_CREATE shape.
func ParseItemCreate(o canon.Object) (ItemCreateBody, error) {
	uri, err := requireString(o, "uri")
	if err != nil {
		return ItemCreateBody{}, err
	}
	return ItemCreateBody{URI: uri}, nil
}

// ParseItemSubmit checks o against the ITEM_SUBMIT shape.
// Length limits are enforced by the handler, not here.
func ParseItemSubmit(o canon.Object) (ItemSubmitBody, error) {
	var b ItemSubmitBody
	var err error
	if b.ItemID, err = requireString(o, "itemId"); err != nil {
		return ItemSubmitBody{}, err
	}
	if b.ChannelID, err = requireString(o, "channelId"); err != nil {
		return ItemSubmitBody{}, err
	}
	if b.Text, err = optionalString(o, "text"); err != nil {
		return ItemSubmitBody{}, err
	}
	return b, nil
}

// ParseGenericResponse checks o against the GENERIC_RESPONSE shape.
// The legacy key "messageId" is accepted when "targetMessageId" is absent.
func ParseGenericResponse(o canon.Object) (GenericResponseBody, error) {
	var b GenericResponseBody
	var err error

	key := "targetMessageId"
	if !o.Has(key) && o.Has("messageId") {
		key = "messageId"
	}
	if b.TargetMessageID, err = requireString(o, key); err != nil {
		return GenericResponseBody{}, err
	}

	resp, ok := o.Flag("response")
	if !ok {
		return GenericResponseBody{}, malformed(`"response" must be a boolean`)
	}
	b.Response = resp

	if b.Text, err = optionalString(o, "text"); err != nil {
		return GenericResponseBody{}, err
	}
	return b, nil
}

// Object renders the body for signing.
func (b ChannelCreateBody) Object() canon.Object {
	return canon.Object{"uri": canon.String(b.URI)}
}

// Object renders the body for signing.
func (b ItemCreateBody) Object() canon.Object {
	return canon.Object{"uri": canon.String(b.URI)}
}

// Object renders the body for signing.
func (b ItemSubmitBody) Object() canon.Object {
	o := canon.Object{
		"itemId":    canon.String(b.ItemID),
		"channelId": canon.String(b.ChannelID),
	}
	if b.Text != nil {
		o["text"] = canon.String(*b.Text)
	}
	return o
}

// Object renders the body for signing.
func (b GenericResponseBody) Object() canon.Object {
	o := canon.Object{
		"targetMessageId": canon.String(b.TargetMessageID),
		"response":        canon.Bool(b.Response),
	}
	if b.Text != nil {
		o["text"] = canon.String(*b.Text)
	}
	return o
}
