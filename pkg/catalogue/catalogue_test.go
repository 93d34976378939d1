package catalogue

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJSON = `{
	"Default": {"a.obj": [], "b.obj": ["prop"]},
	"Paletted": {"c.obj": ["hero", "prop"]}
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadJSON(t *testing.T) {
	cat, err := Load(writeFile(t, "catalogue.json", sampleJSON))
	require.NoError(t, err)
	assert.Equal(t, []string{"Default", "Paletted"}, cat.Categories())
	assert.Equal(t, 3, cat.Len())
	assert.Equal(t, []string{"hero", "prop"}, cat["Paletted"]["c.obj"])
}

func TestLoadYAML(t *testing.T) {
	content := `
Default:
  a.obj: []
  b.obj: [prop]
Paletted:
  c.obj:
    - hero
`
	cat, err := Load(writeFile(t, "catalogue.yaml", content))
	require.NoError(t, err)
	assert.Equal(t, 3, cat.Len())
	assert.Equal(t, []string{"hero"}, cat["Paletted"]["c.obj"])
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, ErrCatalogueNotFound)

	_, err = Load("")
	assert.ErrorIs(t, err, ErrCatalogueNotFound)
}

func TestLoadInvalid(t *testing.T) {
	cases := map[string]string{
		"broken.json":  `{"Default": `,
		"wrong.json":   `{"Default": ["a.obj"]}`,
		"empty.json":   `{}`,
		"scalar.yaml":  `just a string`,
		"emptydoc.yml": ``,
	}
	for name, content := range cases {
		_, err := Load(writeFile(t, name, content))
		assert.ErrorIs(t, err, ErrInvalidCatalogue, name)
	}
}
