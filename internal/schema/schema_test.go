package schema

import (
	"testing"

	"remix/internal/delta"
	"remix/internal/segment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTree(t *testing.T) {
	valid := `[{"id":"a","type":"heading","title":"Intro","children":[{"id":"b","type":"content","text":"Hello"}]}]`
	assert.NoError(t, ValidateTree([]byte(valid)))
	assert.NoError(t, ValidateTree([]byte(`[]`)))

	invalid := map[string]string{
		"not an array":     `{"id":"a"}`,
		"missing id":       `[{"type":"content","text":"x"}]`,
		"empty type":       `[{"id":"a","type":""}]`,
		"numeric text":     `[{"id":"a","type":"content","text":5}]`,
		"bad nested child": `[{"id":"a","type":"heading","children":[{"id":"b"}]}]`,
	}
	for name, raw := range invalid {
		t.Run(name, func(t *testing.T) {
			err := ValidateTree([]byte(raw))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "schema validation")
		})
	}
}

func TestValidateDeltas(t *testing.T) {
	valid := `[
		{"op":"modify","segmentId":"b","newText":"Hello world","timestamp":"2024-03-01T12:00:00Z"},
		{"op":"add","afterId":null,"segment":{"id":"x","type":"content","text":"one"},"timestamp":"2024-03-01T12:00:00.123Z"},
		{"op":"delete","segmentId":"c","timestamp":"2024-03-01T12:00:00Z"}
	]`
	assert.NoError(t, ValidateDeltas([]byte(valid)))

	invalid := map[string]string{
		"unknown op":          `[{"op":"move","segmentId":"a","timestamp":"2024-03-01T12:00:00Z"}]`,
		"missing timestamp":   `[{"op":"delete","segmentId":"a"}]`,
		"bad timestamp":       `[{"op":"delete","segmentId":"a","timestamp":"yesterday"}]`,
		"modify without id":   `[{"op":"modify","newText":"x","timestamp":"2024-03-01T12:00:00Z"}]`,
		"add without segment": `[{"op":"add","afterId":"a","timestamp":"2024-03-01T12:00:00Z"}]`,
		"add bad segment":     `[{"op":"add","afterId":"a","segment":{"type":"content"},"timestamp":"2024-03-01T12:00:00Z"}]`,
	}
	for name, raw := range invalid {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, ValidateDeltas([]byte(raw)))
		})
	}
}

func TestDecodeTree_RejectsDuplicateIDs(t *testing.T) {
	raw := `[{"id":"a","type":"content","text":"1"},{"id":"a","type":"content","text":"2"}]`
	_, err := DecodeTree([]byte(raw))
	assert.ErrorIs(t, err, segment.ErrDuplicateID)
}

func TestDecode_RoundTripThroughEngine(t *testing.T) {
	tree, err := DecodeTree([]byte(`[{"id":"a","type":"heading","title":"Intro","children":[{"id":"b","type":"content","text":"Hello"}]}]`))
	require.NoError(t, err)

	deltas, err := DecodeDeltas([]byte(`[{"op":"modify","segmentId":"b","newText":"Hello world","timestamp":"2024-03-01T12:00:00Z"}]`))
	require.NoError(t, err)

	out := delta.Apply(tree, deltas)
	want := []segment.Segment{segment.NewHeading("a", "Intro", segment.NewLeaf("b", "Hello world"))}
	assert.True(t, segment.Equal(want, out))
}
