package yamlgraph

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestDecode(t *testing.T) {
	src := `
nodes:
  - kind: ImageRead
    name: src
    parameters:
      filename: in.png
  - kind: Crop
    name: crop
    inputs: [src]
    parameters:
      quad: [0, 0, 0.5, 0.5]
  - kind: ImageWrite
    name: out
    inputs: [crop]
    parameters:
      quality: 85
      keep: true
      missing: ~
      meta: {tag: "007"}
`
	m, err := Decode(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, m.Nodes, 3)

	assert.Equal(t, "ImageRead", m.Nodes[0].Kind)
	assert.Equal(t, cty.StringVal("in.png"), m.Nodes[0].Parameters["filename"])

	crop := m.Nodes[1]
	assert.Equal(t, []string{"src"}, crop.Inputs)
	quad := crop.Parameters["quad"]
	require.True(t, quad.Type().IsTupleType())
	assert.True(t, quad.Index(cty.NumberIntVal(2)).Equals(cty.NumberFloatVal(0.5)).True())

	out := m.Nodes[2].Parameters
	assert.Equal(t, cty.NumberIntVal(85), out["quality"])
	assert.Equal(t, cty.True, out["keep"])
	assert.True(t, out["missing"].IsNull())
	assert.Equal(t, cty.ObjectVal(map[string]cty.Value{"tag": cty.StringVal("007")}), out["meta"])
}

func TestDecode_Errors(t *testing.T) {
	testCases := []struct {
		name string
		src  string
		want string
	}{
		{"unknown key", "nodes:\n  - kind: SVG\n    name: a\n    dpi: 96\n", "field dpi not found"},
		{"malformed", "nodes: [", "yaml:"},
		{"nan", "nodes:\n  - kind: SVG\n    name: a\n    parameters:\n      dpi: .nan\n", "NaN"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tc.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestDecode_Empty(t *testing.T) {
	m, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, m.Nodes)
}

func TestLoader_Load(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("nodes:\n  - {kind: PhysicalSky, name: sky}\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yml"), []byte("nodes:\n  - {kind: Distance, name: dist, inputs: [sky]}\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.hcl"), []byte(`node "SVG" "x" {}`), 0o600))

	m, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, m.Nodes, 2)
	assert.Equal(t, "sky", m.Nodes[0].Name)
	assert.Equal(t, filepath.Join(dir, "b.yml"), m.Nodes[1].Source)
	require.NoError(t, m.Validate())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("nodes: {"), 0o600))
	_, err = NewLoader().Load(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.yaml")
}
