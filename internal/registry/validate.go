package registry

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/vk/evalgraph/internal/ctxlog"
	"github.com/vk/evalgraph/internal/node"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Validate checks that every node has a registered kind and that its
// parameters match the kind's declared schema. All problems are reported
// together.
func (r *Registry) Validate(ctx context.Context, nodes []*node.Node) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	for _, n := range nodes {
		e, ok := r.entries[n.Kind]
		if !ok {
			errs = append(errs, fmt.Sprintf("node '%s': kind %s has no registered module", n.Name, n.Kind))
			continue
		}
		if e.Params == nil {
			continue
		}
		schema, err := schemaOf(e.Params)
		if err != nil {
			errs = append(errs, fmt.Sprintf("kind %s: %v", n.Kind, err))
			continue
		}
		for _, name := range n.Params.Names() {
			want, ok := schema[name]
			if !ok {
				logger.Warn("Node has a parameter its kind does not declare; it is ignored.", "node", n.Name, "kind", n.Kind.String(), "parameter", name)
				continue
			}
			v, _ := n.Params.Get(name)
			if v.IsNull() || !v.IsKnown() {
				continue
			}
			if _, err := convert.Convert(v, want); err != nil {
				errs = append(errs, fmt.Sprintf("node '%s', parameter '%s': type mismatch. Kind %s requires '%s' but the graph provides '%s'",
					n.Name, name, n.Kind, want.FriendlyName(), v.Type().FriendlyName()))
			}
		}
		if err := n.Params.Decode(reflect.New(reflect.TypeOf(e.Params)).Interface()); err != nil {
			errs = append(errs, fmt.Sprintf("node '%s': %v", n.Name, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("graph validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// schemaOf maps the `cty` tags of a parameter struct to their cty types.
func schemaOf(p any) (map[string]cty.Type, error) {
	t := reflect.TypeOf(p)
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("parameter schema must be a struct, got %s", t)
	}
	out := make(map[string]cty.Type, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name := strings.Split(field.Tag.Get("cty"), ",")[0]
		if name == "" || name == "-" {
			continue
		}
		ty, err := gocty.ImpliedType(reflect.Zero(field.Type).Interface())
		if err != nil {
			return nil, fmt.Errorf("field %s: could not imply cty type from %s: %w", field.Name, field.Type, err)
		}
		out[name] = ty
	}
	return out, nil
}

// Schema returns the declared parameter types of kind, or nil when the
// kind has no schema.
func (r *Registry) Schema(kind node.Kind) (map[string]cty.Type, error) {
	e, ok := r.entries[kind]
	if !ok || e.Params == nil {
		return nil, nil
	}
	return schemaOf(e.Params)
}
