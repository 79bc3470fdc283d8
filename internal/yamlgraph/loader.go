package yamlgraph

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/vk/evalgraph/internal/config"
	"github.com/vk/evalgraph/internal/ctxlog"
	"github.com/vk/evalgraph/internal/fsutil"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

// Extensions are the file extensions the loader picks up.
var Extensions = []string{".yaml", ".yml"}

// Loader is the YAML-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new YAML graph loader.
func NewLoader() *Loader {
	return &Loader{}
}

type document struct {
	Nodes []nodeDoc `yaml:"nodes"`
}

type nodeDoc struct {
	Kind       string               `yaml:"kind"`
	Name       string               `yaml:"name"`
	Inputs     []string             `yaml:"inputs"`
	Parameters map[string]yaml.Node `yaml:"parameters"`
}

// Load parses every YAML file found under paths into one model.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := fsutil.FindFiles(paths, Extensions...)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered YAML files.", "count", len(files))

	model := &config.Model{}
	for _, file := range files {
		m, err := loadFile(file)
		if err != nil {
			return nil, err
		}
		model.Merge(m)
	}

	logger.Debug("YAML loading complete.", "files", len(files), "nodes", len(model.Nodes))
	return model, nil
}

func loadFile(file string) (*config.Model, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open YAML file %s: %w", file, err)
	}
	defer f.Close()

	m, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode YAML file %s: %w", file, err)
	}
	for _, n := range m.Nodes {
		n.Source = file
	}
	return m, nil
}

// Decode reads a single YAML graph document. Unknown keys are rejected.
func Decode(r io.Reader) (*config.Model, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	model := &config.Model{Nodes: make([]*config.Node, 0, len(doc.Nodes))}
	for _, nd := range doc.Nodes {
		n := &config.Node{
			Kind:       nd.Kind,
			Name:       nd.Name,
			Inputs:     nd.Inputs,
			Parameters: make(map[string]cty.Value, len(nd.Parameters)),
		}
		for name, raw := range nd.Parameters {
			raw := raw
			v, err := toCty(&raw)
			if err != nil {
				return nil, fmt.Errorf("node '%s', parameter '%s': %w", nd.Name, name, err)
			}
			n.Parameters[name] = v
		}
		model.Nodes = append(model.Nodes, n)
	}
	return model, nil
}
