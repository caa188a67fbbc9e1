package parsers

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleDocument = `{
    "invoices": {
        "api_key": "k1",
        "parser_app_id": "app-1",
        "extra_accuracy": true,
        "type": "invoice",
        "expected_response": "",
        "sample_curl": "",
        "field_mappings": {"total": "Total Amount"}
    },
    "cards": {
        "api_key": "k2",
        "parser_app_id": "app-1",
        "extra_accuracy": false,
        "type": "unknown-kind",
        "field_mappings": null
    }
}`

func TestDecodeDocument(t *testing.T) {
	t.Run("decodes and normalizes", func(t *testing.T) {
		doc, err := DecodeDocument([]byte(sampleDocument))
		require.NoError(t, err)
		require.Equal(t, []string{"cards", "invoices"}, doc.Names())

		inv := doc["invoices"]
		require.Equal(t, "invoices", inv.Name)
		require.True(t, inv.ExtraAccuracy)
		require.Equal(t, "Total Amount", inv.FieldMappings["total"])

		cards := doc["cards"]
		require.Equal(t, TypeOther, cards.Type)
		require.NotNil(t, cards.FieldMappings)
	})

	t.Run("empty input", func(t *testing.T) {
		doc, err := DecodeDocument([]byte("  \n"))
		require.NoError(t, err)
		require.Empty(t, doc)
	})

	t.Run("rejects invalid JSON", func(t *testing.T) {
		_, err := DecodeDocument([]byte(`{"a":`))
		require.Error(t, err)
	})

	t.Run("rejects schema violations", func(t *testing.T) {
		cases := []string{
			`[]`,
			`{"p": {"parser_app_id": "a"}}`,
			`{"p": {"api_key": "", "parser_app_id": "a"}}`,
			`{"p": {"api_key": "k", "parser_app_id": "a", "extra_accuracy": "yes"}}`,
			`{"p": {"api_key": "k", "parser_app_id": "a", "field_mappings": {"x": 1}}}`,
		}
		for _, c := range cases {
			_, err := DecodeDocument([]byte(c))
			require.Error(t, err, c)
			require.Contains(t, err.Error(), "schema", c)
		}
	})
}

func TestEncodeDocument_RoundTrip(t *testing.T) {
	doc, err := DecodeDocument([]byte(sampleDocument))
	require.NoError(t, err)

	data, err := EncodeDocument(doc)
	require.NoError(t, err)
	require.Contains(t, string(data), "\n    \"cards\": {")

	again, err := DecodeDocument(data)
	require.NoError(t, err)
	require.Equal(t, doc, again)
}

func TestDocument_Clone(t *testing.T) {
	doc := Document{"a": {Name: "a", FieldMappings: map[string]string{"x": "X"}}}
	clone := doc.Clone()
	clone["a"].FieldMappings["x"] = "changed"
	delete(clone, "a")

	require.Equal(t, "X", doc["a"].FieldMappings["x"])
	require.Len(t, doc, 1)
}
