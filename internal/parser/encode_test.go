package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, input string) *Value {
	t.Helper()
	v, err := Parse([]byte(input))
	require.NoError(t, err)
	return v
}

func TestEncode_Compact(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"object with array", `{"a":1,"b":[1,2]}`, `{"a":1,"b":[1,2]}`},
		{"whitespace removed", "{ \"a\" : 1 ,\n \"b\" : [ 1 , 2 ] }", `{"a":1,"b":[1,2]}`},
		{"empty containers", `{ "a" : [ ] , "b" : { } }`, `{"a":[],"b":{}}`},
		{"scalar", ` 42 `, `42`},
		{"number literals kept", `[1.0, 1e3, -0, 2.50]`, `[1.0,1e3,-0,2.50]`},
		{"html not escaped", `"<a&b>"`, `"<a&b>"`},
		{"unicode escapes decoded", `"\u00e9"`, `"é"`},
		{"control characters escaped", `"a\u0001b\tc"`, `"a\u0001b\tc"`},
		{"member order kept", `{"z":null,"a":false}`, `{"z":null,"a":false}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(mustParse(t, tt.input), StyleCompact)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestEncode_Pretty(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "object with array",
			input: `{"a":1,"b":[1,2]}`,
			want: `{
  "a": 1,
  "b": [
    1,
    2
  ]
}`,
		},
		{
			name:  "empty containers stay inline",
			input: `{"a":[],"b":{}}`,
			want: `{
  "a": [],
  "b": {}
}`,
		},
		{
			name:  "nested objects in array",
			input: `[{"k":"v"},true]`,
			want: `[
  {
    "k": "v"
  },
  true
]`,
		},
		{
			name:  "scalar",
			input: `"x"`,
			want:  `"x"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(mustParse(t, tt.input), StylePretty)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestEncode_RoundTripAndIdempotence(t *testing.T) {
	inputs := []string{
		`{"a":1,"b":[1,2]}`,
		`{"name":"pitufo","tags":["a","b"],"meta":{"n":1.50,"ok":true,"nil":null,"e":2E-3}}`,
		`[[],[{}],[[1]],"\"quoted\" \\ slash"]`,
		"{\"text\":\"line\\nbreak \\u2028 sep\"}",
		`-12.5e+10`,
	}

	for _, style := range []Style{StyleCompact, StylePretty} {
		for _, input := range inputs {
			t.Run(style.String()+"/"+input, func(t *testing.T) {
				original := mustParse(t, input)

				first, err := Encode(original, style)
				require.NoError(t, err)

				reparsed := mustParse(t, string(first))
				assert.True(t, original.Equal(reparsed), "value changed after encoding")

				second, err := Encode(reparsed, style)
				require.NoError(t, err)
				assert.Equal(t, string(first), string(second))
			})
		}
	}
}

func TestEncode_StylesDescribeSameValue(t *testing.T) {
	original := mustParse(t, `{"a":{"b":[1,{"c":"d"}]},"e":[]}`)

	compact, err := Encode(original, StyleCompact)
	require.NoError(t, err)
	pretty, err := Encode(original, StylePretty)
	require.NoError(t, err)

	assert.NotEqual(t, string(compact), string(pretty))
	assert.True(t, mustParse(t, string(compact)).Equal(mustParse(t, string(pretty))))
}

func TestEncode_NilValue(t *testing.T) {
	_, err := Encode(nil, StyleCompact)
	assert.Error(t, err)
}

func TestEncode_RejectsTooDeep(t *testing.T) {
	v := Array()
	for i := 0; i < MaxDepth; i++ {
		v = Array(v)
	}

	_, err := Encode(v, StyleCompact)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTooDeep)

	_, err = Encode(v.Items[0], StyleCompact)
	require.NoError(t, err)
}

func TestStyleFor(t *testing.T) {
	assert.Equal(t, StyleCompact, StyleFor(true))
	assert.Equal(t, StylePretty, StyleFor(false))
	assert.Equal(t, "compact", StyleCompact.String())
	assert.Equal(t, "pretty", StylePretty.String())
}
