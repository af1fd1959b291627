package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTree() []*TreeNode {
	return []*TreeNode{
		{
			Name:     "Biologie",
			RootPath: "1%7C2",
			URL:      "https://qis.example.org/tree/1%7C2",
			Children: []*TreeNode{
				{
					Name:               "Modul X",
					RootPath:           "1%7C2%7C3",
					URL:                "https://qis.example.org/tree/1%7C2%7C3",
					HasVeranstaltungen: true,
				},
			},
		},
		{
			Name:               "Chemie",
			RootPath:           "1%7C4",
			URL:                "https://qis.example.org/tree/1%7C4",
			HasVeranstaltungen: true,
		},
	}
}

func TestCountNodes(t *testing.T) {
	assert.Equal(t, 3, CountNodes(sampleTree()))
	assert.Equal(t, 0, CountNodes(nil))
}

func TestEventBearingPaths(t *testing.T) {
	paths := EventBearingPaths(sampleTree())
	assert.Equal(t, []string{"1%7C2%7C3", "1%7C4"}, paths)
}

func TestTreeSerializationRoundTrip(t *testing.T) {
	tree := sampleTree()

	data, err := json.Marshal(tree)
	require.NoError(t, err)

	// URLs must never be part of the serialized form.
	assert.NotContains(t, string(data), "qis.example.org")
	assert.Contains(t, string(data), `"has_veranstaltungen"`)

	var restored []*TreeNode
	require.NoError(t, json.Unmarshal(data, &restored))

	urlFor := func(rootPath string) string {
		return "https://qis.example.org/tree/" + rootPath
	}
	RebuildURLs(restored, urlFor)

	assert.Equal(t, tree, restored)
}
