package canon

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalGolden(t *testing.T) {
	obj := Object{
		"uri":    String("ipfs://chan"),
		"text":   String("a<b>&\"c\"\n"),
		"n":      Int(-42),
		"ok":     Bool(true),
		"list":   Array{Int(1), String("x"), Bool(false)},
		"nested": Object{"b": Int(1), "a": Int(2)},
	}

	got, err := Marshal(obj)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "mixed_object", got)
}

func TestMarshalDeterministic(t *testing.T) {
	build := func() Object {
		return Object{
			"z": String("last"),
			"a": String("first"),
			"m": Array{Object{"y": Int(1), "x": Int(2)}},
		}
	}

	first := MustMarshal(build())
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, MustMarshal(build()), "iteration %d", i)
	}
}

func TestMarshalKeyOrderUTF16(t *testing.T) {
	// U+1F600 encodes as surrogates 0xD83D 0xDE00, which sort before U+FB01 (0xFB01)
	// in UTF-16 even though the UTF-8 byte order is the reverse.
	obj := Object{
		"\uFB01":     Int(1),
		"\U0001F600": Int(2),
	}
	assert.Equal(t, "{\"\U0001F600\":2,\"\uFB01\":1}", string(MustMarshal(obj)))
}

func TestMarshalEscaping(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"html is not escaped", "<a&b>", `"<a&b>"`},
		{"quote and backslash", `"\`, `"\"\\"`},
		{"short control escapes", "\b\f\n\r\t", `"\b\f\n\r\t"`},
		{"other controls use lowercase hex", "\x01\x1f", `"\u0001\u001f"`},
		{"line separator kept literal", "\u2028", "\"\u2028\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Marshal(String(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestMarshalRejectsDecomposedStrings(t *testing.T) {
	composed, err := Marshal(String("caf\u00e9"))
	require.NoError(t, err)
	assert.Equal(t, "\"caf\u00e9\"", string(composed))

	_, err = Marshal(String("cafe\u0301"))
	assert.ErrorIs(t, err, ErrNotNFC)

	_, err = Marshal(Object{"uri": String("ipfs://cafe\u0301")})
	assert.ErrorIs(t, err, ErrNotNFC)

	_, err = Marshal(Object{"cafe\u0301": Bool(true)})
	assert.ErrorIs(t, err, ErrNotNFC)
}

func TestDecodeRejectsDecomposedStrings(t *testing.T) {
	_, err := Decode([]byte(`{"uri":"ipfs://cafe\u0301"}`))
	assert.ErrorIs(t, err, ErrNotNFC)

	_, err = Decode([]byte(`{"cafe\u0301":1}`))
	assert.ErrorIs(t, err, ErrNotNFC)

	_, err = FromAny([]any{"ok", "e\u0301"})
	assert.ErrorIs(t, err, ErrNotNFC)

	v, err := Decode([]byte(`{"uri":"ipfs://caf\u00e9"}`))
	require.NoError(t, err)
	assert.Equal(t, Object{"uri": String("ipfs://caf\u00e9")}, v)
}

func TestMarshalRejectsInvalidUTF8(t *testing.T) {
	_, err := Marshal(String("\xff"))
	assert.Error(t, err)
}

func TestMarshalRejectsNil(t *testing.T) {
	_, err := Marshal(Object{"k": nil})
	assert.ErrorIs(t, err, ErrNull)
}

func TestDecode(t *testing.T) {
	v, err := Decode([]byte(`{"uri":"ipfs://x","n":9007199254740993,"tags":["a",true]}`))
	require.NoError(t, err)

	obj, ok := v.(Object)
	require.True(t, ok)
	assert.Equal(t, String("ipfs://x"), obj["uri"])
	assert.Equal(t, Int(9007199254740993), obj["n"], "large integers keep full precision")
	assert.Equal(t, Array{String("a"), Bool(true)}, obj["tags"])
}

func TestDecodeRejectsFloat(t *testing.T) {
	for _, doc := range []string{`{"n":1.5}`, `{"n":1e3}`, `[2E1]`} {
		_, err := Decode([]byte(doc))
		assert.ErrorIs(t, err, ErrFloat, doc)
	}
}

func TestDecodeRejectsNull(t *testing.T) {
	_, err := Decode([]byte(`{"text":null}`))
	assert.ErrorIs(t, err, ErrNull)
}

func TestDecodeRejectsTrailingData(t *testing.T) {
	_, err := Decode([]byte(`{} {}`))
	assert.Error(t, err)
}

func TestObjectUnmarshalJSON(t *testing.T) {
	var obj Object
	require.NoError(t, obj.UnmarshalJSON([]byte(`{"b":1,"a":"x"}`)))
	assert.Equal(t, []string{"a", "b"}, obj.SortedKeys())

	var notObj Object
	assert.Error(t, notObj.UnmarshalJSON([]byte(`[1]`)))
}

func TestObjectAccessors(t *testing.T) {
	obj := Object{"s": String("v"), "b": Bool(true), "i": Int(3)}

	s, ok := obj.Str("s")
	assert.True(t, ok)
	assert.Equal(t, "v", s)

	_, ok = obj.Str("i")
	assert.False(t, ok)

	b, ok := obj.Flag("b")
	assert.True(t, ok)
	assert.True(t, b)

	assert.True(t, obj.Has("i"))
	assert.False(t, obj.Has("missing"))
}

func TestFromAnyYAMLShapes(t *testing.T) {
	v, err := FromAny(map[string]any{"n": 3, "list": []any{"a", int64(4)}})
	require.NoError(t, err)
	assert.Equal(t, Object{"n": Int(3), "list": Array{String("a"), Int(4)}}, v)

	_, err = FromAny(map[string]any{"f": 1.25})
	assert.ErrorIs(t, err, ErrFloat)
}
