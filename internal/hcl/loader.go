package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/evalgraph/internal/config"
	"github.com/vk/evalgraph/internal/ctxlog"
	"github.com/vk/evalgraph/internal/fsutil"
	"github.com/zclconf/go-cty/cty"
)

// Extension is the file extension the loader picks up.
const Extension = ".hcl"

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL graph loader.
func NewLoader() *Loader {
	return &Loader{}
}

// fileRoot decodes the top-level blocks of one graph file.
type fileRoot struct {
	Nodes  []*nodeBlock `hcl:"node,block"`
	Remain hcl.Body     `hcl:",remain"`
}

type nodeBlock struct {
	Kind       string           `hcl:"kind,label"`
	Name       string           `hcl:"name,label"`
	Inputs     []string         `hcl:"inputs,optional"`
	Parameters *parametersBlock `hcl:"parameters,block"`
}

type parametersBlock struct {
	Body hcl.Body `hcl:",remain"`
}

// Load parses every .hcl file found under paths into one model.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := fsutil.FindFiles(paths, Extension)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	model := &config.Model{}
	parser := hclparse.NewParser()
	evalCtx := newEvalContext()

	for _, file := range files {
		f, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		if diags := gohcl.DecodeBody(f.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}
		if err := rejectUnknownBlocks(root.Remain); err != nil {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, err)
		}

		for _, nb := range root.Nodes {
			n, err := translateNode(nb, evalCtx)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
			n.Source = file
			model.Nodes = append(model.Nodes, n)
		}
	}

	logger.Debug("HCL loading complete.", "files", len(files), "nodes", len(model.Nodes))
	return model, nil
}

func translateNode(nb *nodeBlock, evalCtx *hcl.EvalContext) (*config.Node, error) {
	n := &config.Node{
		Kind:       nb.Kind,
		Name:       nb.Name,
		Inputs:     nb.Inputs,
		Parameters: make(map[string]cty.Value),
	}
	if nb.Parameters == nil {
		return n, nil
	}

	attrs, diags := nb.Parameters.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("node '%s': parameters must be plain attributes: %w", nb.Name, diags)
	}
	for name, attr := range attrs {
		v, diags := attr.Expr.Value(evalCtx)
		if diags.HasErrors() {
			return nil, fmt.Errorf("node '%s', parameter '%s': %w", nb.Name, name, diags)
		}
		n.Parameters[name] = v
	}
	return n, nil
}

// rejectUnknownBlocks reports top-level content other than node blocks.
func rejectUnknownBlocks(body hcl.Body) error {
	if body == nil {
		return nil
	}
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return diags
	}
	for name, attr := range attrs {
		return fmt.Errorf("%s: unexpected top-level attribute %q", attr.Range, name)
	}
	return nil
}
