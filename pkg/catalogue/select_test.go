package catalogue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCatalogue() Catalogue {
	return Catalogue{
		"Default": {
			"a.obj":      nil,
			"b.obj":      {"prop"},
			"hero_b.obj": {"prop"},
		},
		"Paletted": {
			"c.obj": {"hero", "prop"},
		},
	}
}

func TestSelectNothing(t *testing.T) {
	items, err := Select(sampleCatalogue(), Selection{})
	assert.ErrorIs(t, err, ErrNothingSelected)
	assert.Empty(t, items)
}

func TestSelectAll(t *testing.T) {
	items, err := Select(sampleCatalogue(), Selection{All: true, Tag: "none"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.obj", "b.obj", "c.obj", "hero_b.obj"}, items)
}

func TestSelectCategory(t *testing.T) {
	items, err := Select(sampleCatalogue(), Selection{Category: "Paletted"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c.obj"}, items)

	items, err = Select(sampleCatalogue(), Selection{Category: "Missing"})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSelectNameContains(t *testing.T) {
	items, err := Select(sampleCatalogue(), Selection{NameContains: "b."})
	require.NoError(t, err)
	assert.Equal(t, []string{"b.obj", "hero_b.obj"}, items)
}

func TestSelectTag(t *testing.T) {
	items, err := Select(sampleCatalogue(), Selection{Tag: "hero"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c.obj"}, items)
}

func TestSelectUnionDeduplicates(t *testing.T) {
	// tag 与文件名同时命中 c.obj / hero_b.obj，结果中只出现一次
	items, err := Select(sampleCatalogue(), Selection{Tag: "prop", NameContains: "hero", Category: "Paletted"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b.obj", "c.obj", "hero_b.obj"}, items)
}
