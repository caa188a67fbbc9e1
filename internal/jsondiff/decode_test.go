package jsondiff

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	t.Run("object keeps insertion order", func(t *testing.T) {
		v, err := DecodeBytes([]byte(`{"zeta":1,"alpha":2,"mid":3}`))
		require.NoError(t, err)
		obj, ok := v.(Object)
		require.True(t, ok)
		require.Equal(t, []string{"zeta", "alpha", "mid"}, obj.Keys())
	})

	t.Run("scalars", func(t *testing.T) {
		v, err := DecodeBytes([]byte(`[null,true,false,"s",1.50,-2e3]`))
		require.NoError(t, err)
		require.Equal(t, Array{nil, true, false, "s", Number("1.50"), Number("-2e3")}, v)
	})

	t.Run("empty containers", func(t *testing.T) {
		v, err := DecodeBytes([]byte(`{"o":{},"a":[]}`))
		require.NoError(t, err)
		require.Equal(t, Object{{Key: "o", Value: Object{}}, {Key: "a", Value: Array{}}}, v)
	})

	t.Run("duplicate names keep first position and last value", func(t *testing.T) {
		v, err := DecodeBytes([]byte(`{"a":1,"b":2,"a":3}`))
		require.NoError(t, err)
		require.Equal(t, Object{{Key: "a", Value: Number("3")}, {Key: "b", Value: Number("2")}}, v)
	})

	t.Run("escaped strings are unescaped", func(t *testing.T) {
		v, err := DecodeBytes([]byte(`{"kéy":"line\nbreak"}`))
		require.NoError(t, err)
		require.Equal(t, Object{{Key: "kéy", Value: "line\nbreak"}}, v)
	})

	t.Run("trailing data is rejected", func(t *testing.T) {
		_, err := DecodeBytes([]byte(`{"a":1} {"b":2}`))
		require.ErrorIs(t, err, ErrTrailingData)
	})

	t.Run("malformed input", func(t *testing.T) {
		for _, in := range []string{``, `{`, `{"a":}`, `[1,]`, `nul`} {
			_, err := DecodeBytes([]byte(in))
			require.Error(t, err, "input %q", in)
		}
	})
}

func TestDecodeWideObject(t *testing.T) {
	const n = 200_000
	var b strings.Builder
	b.WriteByte('{')
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, `"k%d":%d`, i, i)
	}
	b.WriteString(`,"k0":"last"}`)

	start := time.Now()
	v, err := DecodeBytes([]byte(b.String()))
	elapsed := time.Since(start)
	require.NoError(t, err)
	require.Less(t, elapsed, 10*time.Second, "decoding %d keys took %s", n, elapsed)

	obj := v.(Object)
	require.Len(t, obj, n)
	require.Equal(t, Member{Key: "k0", Value: "last"}, obj[0])
	require.Equal(t, Member{Key: "k199999", Value: Number("199999")}, obj[n-1])
}

func TestObjectMarshalRoundTrip(t *testing.T) {
	in := `{"name":"John","tags":["x","y"],"nested":{"z":1,"a":null,"big":12345678901234567890}}`
	v, err := DecodeBytes([]byte(in))
	require.NoError(t, err)

	out, err := json.Marshal(v)
	require.NoError(t, err)
	require.Equal(t, in, string(out))
}

func TestDocument(t *testing.T) {
	var payload struct {
		Reference Document `json:"reference"`
		Candidate Document `json:"candidate"`
	}
	err := json.Unmarshal([]byte(`{"reference":{"b":1,"a":2},"candidate":[1]}`), &payload)
	require.NoError(t, err)
	require.Equal(t, Object{{Key: "b", Value: Number("1")}, {Key: "a", Value: Number("2")}}, payload.Reference.Value)
	require.Equal(t, Array{Number("1")}, payload.Candidate.Value)

	out, err := json.Marshal(payload.Reference)
	require.NoError(t, err)
	require.JSONEq(t, `{"b":1,"a":2}`, string(out))
}

func TestMissing(t *testing.T) {
	require.True(t, IsMissing(Missing))
	require.False(t, IsMissing(nil))
	require.False(t, IsMissing(""))
	require.False(t, IsMissing("N/A"))

	out, err := json.Marshal(Missing)
	require.NoError(t, err)
	require.Equal(t, "null", string(out))
}
