package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(ds []Destination) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.Name
	}
	return out
}

func TestLoad(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	all := c.Search("", "")
	assert.Len(t, all, 15)
	assert.Equal(t, "Santorini", all[0].Name)
	assert.Equal(t, []string{"adventure", "beach", "city", "culture", "food", "mountain"}, c.Tags())
}

func TestSearch(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	tests := []struct {
		name  string
		tag   string
		query string
		want  []string
	}{
		{name: "tag only", tag: "beach", want: []string{"Santorini", "Bali", "Barcelona", "Maldives", "Dubai"}},
		{name: "all tag", tag: "ALL", query: "japan", want: []string{"Kyoto"}},
		{name: "query is a substring", query: "par", want: []string{"Bali", "Paris"}},
		{name: "query matches description", query: "gaudí", want: []string{"Barcelona"}},
		{name: "query matches country", query: "new zealand", want: []string{"Queenstown"}},
		{name: "tag and query", tag: "mountain", query: "ancient", want: []string{"Machu Picchu"}},
		{name: "unknown tag", tag: "space", want: []string{}},
		{name: "no match", query: "atlantis", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Search(tt.tag, tt.query)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, names(got))
		})
	}
}

func TestParse_Rejects(t *testing.T) {
	_, err := Parse([]byte(`{"name":"x"}`))
	assert.Error(t, err)

	_, err = Parse([]byte(`[{"name":"","country":"Nowhere"}]`))
	assert.Error(t, err)
}

func TestTags_ReturnsCopy(t *testing.T) {
	c, err := Parse([]byte(`[{"name":"A","country":"B","tags":["x"]}]`))
	require.NoError(t, err)

	c.Tags()[0] = "mutated"
	assert.Equal(t, []string{"x"}, c.Tags())
}
