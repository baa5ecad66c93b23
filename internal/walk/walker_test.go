package walk

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/franz/yt-schema/internal/util"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	require.NoError(t, dec.Decode(&v))
	return v
}

func ids(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i], _ = e.Fields["id"].(string)
	}
	return out
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Kind
	}{
		{"no entries key", `{"id": "v1"}`, Leaf},
		{"null entries", `{"id": "v1", "entries": null}`, Leaf},
		{"empty entries", `{"entries": []}`, Container},
		{"both shapes", `{"id": "v1", "duration": 10, "entries": [{"id": "v2"}]}`, Container},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := Classify(decode(t, tt.raw), "$")
			require.NoError(t, err)
			assert.Equal(t, tt.want, n.Kind)
		})
	}
}

func TestClassifyMalformed(t *testing.T) {
	_, err := Classify(decode(t, `{"entries": {"id": "v1"}}`), "$.entries[2]")
	require.Error(t, err)
	assert.True(t, errors.Is(err, util.ErrMalformed))
	assert.Contains(t, err.Error(), "$.entries[2].entries")

	_, err = Classify(decode(t, `"v1"`), "$.entries[0]")
	assert.True(t, errors.Is(err, util.ErrMalformed))
}

func TestFlattenFlat(t *testing.T) {
	doc := decode(t, `{"entries": [{"id": "A"}, {"id": "B"}, {"id": "C"}]}`)

	entries, err := Flatten(doc)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, ids(entries))
	for i, e := range entries {
		assert.Equal(t, i, e.Index)
		assert.Equal(t, 1, e.Depth)
	}
	assert.Equal(t, "$.entries[1]", entries[1].Path)
}

func TestFlattenDepthInvariant(t *testing.T) {
	flat := decode(t, `{"entries": [{"id": "A"}, {"id": "B"}, {"id": "C"}]}`)
	wrapped := decode(t, `{"entries": [{"title": "Videos", "entries": [{"id": "A"}, {"id": "B"}, {"id": "C"}]}]}`)
	split := decode(t, `{"entries": [
		{"entries": [{"id": "A"}]},
		{"entries": [{"entries": [{"id": "B"}]}, {"id": "C"}]}
	]}`)

	want, err := Flatten(flat)
	require.NoError(t, err)

	for name, doc := range map[string]any{"wrapped": wrapped, "split": split} {
		got, err := Flatten(doc)
		require.NoError(t, err, name)
		assert.Equal(t, ids(want), ids(got), name)
		for i := range got {
			assert.Equal(t, want[i].Fields, got[i].Fields, name)
			assert.Equal(t, i, got[i].Index, name)
		}
	}
}

func TestFlattenEmptyAndLeafRoot(t *testing.T) {
	entries, err := Flatten(decode(t, `{"entries": [{"entries": []}, {"id": "A"}, {"entries": []}]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, ids(entries))

	entries, err = Flatten(decode(t, `{"channel_id": "C1"}`))
	require.NoError(t, err)
	assert.Empty(t, entries)

	entries, err = Flatten(decode(t, `{"channel_id": "C1", "entries": null}`))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFlattenMalformedElement(t *testing.T) {
	_, err := Flatten(decode(t, `{"entries": [{"id": "A"}, {"entries": [1]}]}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, util.ErrMalformed))
	assert.Contains(t, err.Error(), "$.entries[1].entries[0]")
}

func TestFlattenDeepNesting(t *testing.T) {
	const depth = 2000

	var leaf any = map[string]any{"id": "deep"}
	node := leaf
	for i := 0; i < depth; i++ {
		node = map[string]any{"entries": []any{node}}
	}

	entries, err := Flatten(node)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "deep", entries[0].Fields["id"])
	assert.Equal(t, depth, entries[0].Depth)
}
