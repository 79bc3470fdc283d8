package hcl

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	}
	return dir
}

func TestLoader_Load(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"main.hcl": `
			node "ImageRead" "src" {
				parameters {
					filename = "in.png"
				}
			}
			node "Crop" "crop" {
				inputs = ["src"]
				parameters {
					quad = [0, 0, 0.5, max(0.25, 0.5)]
				}
			}
		`,
		"more/sky.hcl": `
			node "PhysicalSky" "sky" {}
		`,
		"notes.txt": `node "Ignored" "x" {}`,
	})

	model, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, model.Nodes, 3)

	src, ok := model.Lookup("src")
	require.True(t, ok)
	assert.Equal(t, "ImageRead", src.Kind)
	assert.Empty(t, src.Inputs)
	assert.Equal(t, cty.StringVal("in.png"), src.Parameters["filename"])
	assert.Equal(t, filepath.Join(dir, "main.hcl"), src.Source)

	crop, ok := model.Lookup("crop")
	require.True(t, ok)
	assert.Equal(t, []string{"src"}, crop.Inputs)
	quad := crop.Parameters["quad"]
	require.True(t, quad.Type().IsTupleType())
	assert.Equal(t, 4, quad.LengthInt())
	assert.True(t, quad.Index(cty.NumberIntVal(3)).Equals(cty.NumberFloatVal(0.5)).True())

	sky, ok := model.Lookup("sky")
	require.True(t, ok)
	assert.Empty(t, sky.Parameters)
}

func TestLoader_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		want    string
	}{
		{"syntax error", `node "SVG" "a" {`, "failed to parse HCL file"},
		{"missing label", `node "SVG" {}`, "failed to decode HCL file"},
		{"top-level attribute", `size = 3`, "unexpected top-level attribute"},
		{"nested parameter block", `node "SVG" "a" {
			parameters {
				nested {}
			}
		}`, "parameters must be plain attributes"},
		{"unknown variable", `node "SVG" "a" {
			parameters {
				dpi = var.dpi
			}
		}`, "parameter 'dpi'"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := writeFiles(t, map[string]string{"main.hcl": tc.content})
			_, err := NewLoader().Load(context.Background(), dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoader_MissingPathIsEmpty(t *testing.T) {
	model, err := NewLoader().Load(context.Background(), filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, model.Nodes)
}
