package message

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rivervm/internal/canon"
)

func strPtr(s string) *string { return &s }

func TestDataEncodeGolden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	channel := Data{
		RID:       1,
		Timestamp: 1700000000000,
		Type:      TypeChannelCreate,
		Body:      ChannelCreateBody{URI: "ipfs://chan"}.Object(),
	}
	b, err := channel.Encode()
	require.NoError(t, err)
	g.Assert(t, "channel_create_data", b)

	submit := Data{
		RID:       ^uint64(0),
		Timestamp: 2,
		Type:      TypeItemSubmit,
		Body:      ItemSubmitBody{ItemID: "i1", ChannelID: "c1", Text: strPtr("hello")}.Object(),
	}
	b, err = submit.Encode()
	require.NoError(t, err)
	g.Assert(t, "item_submit_data", b)
}

func TestDataEncodeDistinguishesFields(t *testing.T) {
	base := Data{RID: 1, Timestamp: 10, Type: TypeItemCreate, Body: canon.Object{"uri": canon.String("u")}}

	variants := []Data{
		{RID: 2, Timestamp: 10, Type: TypeItemCreate, Body: base.Body},
		{RID: 1, Timestamp: 11, Type: TypeItemCreate, Body: base.Body},
		{RID: 1, Timestamp: 10, Type: TypeChannelCreate, Body: base.Body},
		{RID: 1, Timestamp: 10, Type: TypeItemCreate, Body: canon.Object{"uri": canon.String("v")}},
	}

	baseBytes, err := base.Encode()
	require.NoError(t, err)
	for i, v := range variants {
		b, err := v.Encode()
		require.NoError(t, err)
		assert.NotEqual(t, baseBytes, b, "variant %d", i)
	}
}

func TestDataEncodeNilBody(t *testing.T) {
	b, err := Data{RID: 1, Timestamp: 1}.Encode()
	require.NoError(t, err)
	assert.Equal(t, `{"body":{},"rid":"1","timestamp":"1","type":0}`, string(b))
}

func TestTypeNames(t *testing.T) {
	assert.Equal(t, "GENERIC_RESPONSE", TypeGenericResponse.String())
	assert.Equal(t, "TYPE_42", Type(42).String())
	assert.True(t, TypeUserInviteFriend.Known())
	assert.False(t, Type(18).Known())

	typ, err := ParseType("ITEM_SUBMIT")
	require.NoError(t, err)
	assert.Equal(t, TypeItemSubmit, typ)

	_, err = ParseType("ITEM_ACC_REJ")
	assert.Error(t, err)
}

func TestWireValuesAreStable(t *testing.T) {
	// Wire contract: these numbers are fixed.
	assert.Equal(t, Type(1), TypeChannelCreate)
	assert.Equal(t, Type(6), TypeItemCreate)
	assert.Equal(t, Type(9), TypeItemSubmit)
	assert.Equal(t, Type(17), TypeGenericResponse)
	assert.Equal(t, HashAlgorithm(1), HashBlake3)
	assert.Equal(t, SignatureAlgorithm(1), SignatureEd25519)
	assert.Equal(t, SignatureAlgorithm(2), SignatureEIP712)
}

func TestWireRoundTrip(t *testing.T) {
	m := Message{
		Signer: []byte{0xfb, 0xff, 0x01},
		Data: Data{
			RID:       18446744073709551615,
			Timestamp: 1700000000123,
			Type:      TypeGenericResponse,
			Body:      GenericResponseBody{TargetMessageID: "bafy", Response: true}.Object(),
		},
		HashAlgorithm:      HashBlake3,
		Hash:               []byte{1, 2, 3, 4},
		SignatureAlgorithm: SignatureEd25519,
		Signature:          []byte{9, 8, 7},
	}

	raw, err := EncodeWire(m)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"rid":"18446744073709551615"`)
	assert.Contains(t, string(raw), `"signer":"-_8B"`)

	got, err := DecodeWire(raw)
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestDecodeWireStringWrapped(t *testing.T) {
	inner := `{"signer":"AQI","messageData":{"rid":"7","timestamp":"9","type":6,"body":{"uri":"ipfs://x"}},"hashType":1,"hash":"AA==","sigType":1,"sig":"AA"}`
	wrapped := `"` + escapeQuotes(inner) + `"`

	m, err := DecodeWire([]byte(wrapped))
	require.NoError(t, err)
	assert.Equal(t, uint64(7), m.Data.RID)
	assert.Equal(t, TypeItemCreate, m.Data.Type)
	assert.Equal(t, []byte{1, 2}, m.Signer)
	assert.Equal(t, []byte{0}, m.Hash, "padded standard base64 is accepted")
}

func escapeQuotes(s string) string {
	out := make([]byte, 0, len(s)*2)
	for i := 0; i < len(s); i++ {
		if s[i] == '"' {
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}

func TestDecodeWireMalformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{`},
		{"numeric rid", `{"messageData":{"rid":1,"timestamp":"1","type":1,"body":{}}}`},
		{"negative rid", `{"messageData":{"rid":"-1","timestamp":"1","type":1,"body":{}}}`},
		{"rid overflow", `{"messageData":{"rid":"18446744073709551616","timestamp":"1","type":1,"body":{}}}`},
		{"missing timestamp", `{"messageData":{"rid":"1","type":1,"body":{}}}`},
		{"missing body", `{"messageData":{"rid":"1","timestamp":"1","type":1}}`},
		{"null body", `{"messageData":{"rid":"1","timestamp":"1","type":1,"body":null}}`},
		{"float in body", `{"messageData":{"rid":"1","timestamp":"1","type":1,"body":{"n":1.5}}}`},
		{"bad base64", `{"signer":"!!","messageData":{"rid":"1","timestamp":"1","type":1,"body":{}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeWire([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestDecodeBytesAlphabets(t *testing.T) {
	for _, s := range []string{"-_8B", "+/8B", "+/8B=="} {
		b, err := DecodeBytes(s)
		require.NoError(t, err, s)
		assert.Equal(t, []byte{0xfb, 0xff, 0x01}, b, s)
	}
}

func TestParseBodies(t *testing.T) {
	cc, err := ParseChannelCreate(canon.Object{"uri": canon.String("ipfs://c")})
	require.NoError(t, err)
	assert.Equal(t, "ipfs://c", cc.URI)

	_, err = ParseItemCreate(canon.Object{"uri": canon.Int(1)})
	assert.ErrorIs(t, err, ErrMalformedBody)

	sub, err := ParseItemSubmit(canon.Object{
		"itemId":    canon.String("i"),
		"channelId": canon.String("c"),
	})
	require.NoError(t, err)
	assert.Nil(t, sub.Text)

	_, err = ParseItemSubmit(canon.Object{"itemId": canon.String("i")})
	assert.ErrorIs(t, err, ErrMalformedBody)

	_, err = ParseItemSubmit(canon.Object{
		"itemId":    canon.String("i"),
		"channelId": canon.String("c"),
		"text":      canon.Bool(true),
	})
	assert.ErrorIs(t, err, ErrMalformedBody)

	resp, err := ParseGenericResponse(canon.Object{
		"targetMessageId": canon.String("t"),
		"response":        canon.Bool(false),
		"text":            canon.String("no thanks"),
	})
	require.NoError(t, err)
	assert.Equal(t, "t", resp.TargetMessageID)
	assert.False(t, resp.Response)
	require.NotNil(t, resp.Text)

	legacy, err := ParseGenericResponse(canon.Object{
		"messageId": canon.String("old"),
		"response":  canon.Bool(true),
	})
	require.NoError(t, err)
	assert.Equal(t, "old", legacy.TargetMessageID)

	_, err = ParseGenericResponse(canon.Object{
		"targetMessageId": canon.String("t"),
		"response":        canon.String("yes"),
	})
	assert.ErrorIs(t, err, ErrMalformedBody)
}

func TestTextLengthCountsUTF16Units(t *testing.T) {
	assert.Equal(t, 3, TextLength("abc"))
	assert.Equal(t, 1, TextLength("é"))
	assert.Equal(t, 2, TextLength("\U0001F600"), "astral characters count as a surrogate pair")
}
