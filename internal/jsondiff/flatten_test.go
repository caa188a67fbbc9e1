package jsondiff

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func mustDecode(t *testing.T, s string) any {
	t.Helper()
	v, err := DecodeBytes([]byte(s))
	require.NoError(t, err)
	return v
}

func TestFlatten(t *testing.T) {
	t.Run("nested objects and lists", func(t *testing.T) {
		doc := mustDecode(t, `{"name":"John","tags":["x","y"],"address":{"city":"Delhi","pin":110001},"items":[{"q":1},{"q":2}]}`)
		f := Flatten(doc)
		require.Equal(t, []string{"name", "tags.0", "tags.1", "address.city", "address.pin", "items.0.q", "items.1.q"}, f.Paths)
		require.Equal(t, "John", f.Leaves["name"])
		require.Equal(t, Number("110001"), f.Leaves["address.pin"])
		require.Equal(t, Number("2"), f.Leaves["items.1.q"])
	})

	t.Run("null is a leaf", func(t *testing.T) {
		f := Flatten(mustDecode(t, `{"a":null}`))
		require.Equal(t, []string{"a"}, f.Paths)
		v, ok := f.Get("a")
		require.True(t, ok)
		require.Nil(t, v)
	})

	t.Run("custom separator", func(t *testing.T) {
		f := Flatten(mustDecode(t, `{"a":{"b":[true]}}`), WithSeparator("/"))
		require.Equal(t, []string{"a/b/0"}, f.Paths)
	})

	t.Run("empty reference object", func(t *testing.T) {
		f := Flatten(mustDecode(t, `{}`))
		require.Empty(t, f.Paths)
		require.Empty(t, f.Leaves)
	})

	t.Run("empty containers are dropped by default", func(t *testing.T) {
		f := Flatten(mustDecode(t, `{"a":{},"b":[],"c":1}`))
		require.Equal(t, []string{"c"}, f.Paths)
	})

	t.Run("empty containers as synthetic leaves", func(t *testing.T) {
		f := Flatten(mustDecode(t, `{"a":{},"b":[],"c":1}`), WithEmptyContainers(true))
		require.Equal(t, []string{"a", "b", "c"}, f.Paths)
		require.Equal(t, Object{}, f.Leaves["a"])
		require.Equal(t, Array{}, f.Leaves["b"])
	})

	t.Run("empty root never yields a leaf", func(t *testing.T) {
		f := Flatten(mustDecode(t, `[]`), WithEmptyContainers(true))
		require.Empty(t, f.Paths)
	})

	t.Run("scalar root", func(t *testing.T) {
		f := Flatten(mustDecode(t, `"hello"`))
		require.Equal(t, []string{""}, f.Paths)
		require.Equal(t, "hello", f.Leaves[""])
	})

	t.Run("colliding paths keep the first leaf", func(t *testing.T) {
		f := Flatten(mustDecode(t, `{"a.b":1,"a":{"b":2}}`))
		require.Equal(t, []string{"a.b"}, f.Paths)
		require.Equal(t, Number("1"), f.Leaves["a.b"])
		require.Equal(t, []string{"a.b"}, f.Collisions)
	})

	t.Run("plain Go values", func(t *testing.T) {
		f := Flatten(map[string]any{"b": []any{1.0}, "a": "x"})
		require.Equal(t, []string{"a", "b.0"}, f.Paths)
	})
}

func TestFlattenDeterministic(t *testing.T) {
	doc := mustDecode(t, `{"z":[{"y":1,"x":[2,3]}],"a":{"c":"d","b":null}}`)
	first := Flatten(doc)
	for i := 0; i < 5; i++ {
		again := Flatten(doc)
		require.Equal(t, first.Paths, again.Paths)
		require.Equal(t, first.Leaves, again.Leaves)
	}
}

func TestFlattenEveryPathOnce(t *testing.T) {
	doc := mustDecode(t, `{"a":[1,{"b":[2,3]},[4]],"c":{"d":{"e":"f"}}}`)
	f := Flatten(doc)
	seen := make(map[string]bool)
	for _, p := range f.Paths {
		require.False(t, seen[p], "duplicate path %q", p)
		seen[p] = true
		_, ok := f.Leaves[p]
		require.True(t, ok, "path %q missing from leaves", p)
	}
	require.Len(t, f.Leaves, len(f.Paths))
}

func TestResolveRoundTrip(t *testing.T) {
	docs := []string{
		`{"name":"John","tags":["x","y"]}`,
		`{"a":[1,{"b":[2,null]},[true]],"c":{"d":{"e":"f"}}}`,
		`[[["deep"]]]`,
		`42`,
	}
	for _, s := range docs {
		doc := mustDecode(t, s)
		f := Flatten(doc)
		for _, p := range f.Paths {
			got, ok := Resolve(doc, p)
			require.True(t, ok, "resolve %q in %s", p, s)
			require.Equal(t, f.Leaves[p], got)
		}
	}

	t.Run("unknown paths", func(t *testing.T) {
		doc := mustDecode(t, `{"a":[1]}`)
		for _, p := range []string{"b", "a.1", "a.x", "a.0.z", "a.-1"} {
			_, ok := Resolve(doc, p)
			require.False(t, ok, "path %q", p)
		}
	})
}
