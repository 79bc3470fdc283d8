// Package params holds a node's parameter block. Values are stored as
// cty.Value so they can come straight from HCL or YAML graph files and are
// decoded into kind-specific Go structs on demand.
package params

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Block is the opaque, kind-specific parameter set of one node.
type Block struct {
	values map[string]cty.Value
}

// New creates a block from a set of values. A nil map yields an empty block.
func New(values map[string]cty.Value) *Block {
	b := &Block{values: make(map[string]cty.Value, len(values))}
	for k, v := range values {
		b.values[k] = v
	}
	return b
}

// FromGo builds a block from native Go values.
func FromGo(values map[string]any) (*Block, error) {
	b := New(nil)
	for k, v := range values {
		if err := b.SetGo(k, v); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Get returns the raw value of a parameter.
func (b *Block) Get(name string) (cty.Value, bool) {
	if b == nil {
		return cty.NilVal, false
	}
	v, ok := b.values[name]
	return v, ok
}

// Set stores a raw value. It does not mark the owning node dirty.
func (b *Block) Set(name string, v cty.Value) {
	b.values[name] = v
}

// SetGo converts a native Go value to cty and stores it.
func (b *Block) SetGo(name string, v any) error {
	ty, err := gocty.ImpliedType(v)
	if err != nil {
		return fmt.Errorf("parameter %q: %w", name, err)
	}
	val, err := gocty.ToCtyValue(v, ty)
	if err != nil {
		return fmt.Errorf("parameter %q: %w", name, err)
	}
	b.values[name] = val
	return nil
}

// Names returns the parameter names in sorted order.
func (b *Block) Names() []string {
	if b == nil {
		return nil
	}
	names := make([]string, 0, len(b.values))
	for k := range b.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Clone returns a shallow copy; cty values are immutable.
func (b *Block) Clone() *Block {
	if b == nil {
		return New(nil)
	}
	return New(b.values)
}

// Decode populates the struct pointed to by target. Fields are matched by
// their `cty` tag; fields without a matching parameter keep the value they
// already hold, so callers pre-fill defaults before decoding.
func (b *Block) Decode(target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("decode target must be a non-nil pointer, got %T", target)
	}
	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return fmt.Errorf("decode target must point to a struct, got %T", target)
	}
	rt := rv.Type()

	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		fieldVal := rv.Field(i)
		if !fieldVal.CanSet() {
			continue
		}
		name := strings.Split(field.Tag.Get("cty"), ",")[0]
		if name == "" || name == "-" {
			continue
		}
		raw, ok := b.Get(name)
		if !ok || raw.IsNull() || !raw.IsKnown() {
			continue
		}

		ptr := fieldVal.Addr().Interface()
		ty, err := gocty.ImpliedType(fieldVal.Interface())
		if err != nil {
			return fmt.Errorf("parameter %q: unsupported field type %s: %w", name, field.Type, err)
		}
		converted, err := convert.Convert(raw, ty)
		if err != nil {
			return fmt.Errorf("parameter %q: %w", name, err)
		}
		if err := gocty.FromCtyValue(converted, ptr); err != nil {
			return fmt.Errorf("parameter %q: %w", name, err)
		}
	}
	return nil
}
