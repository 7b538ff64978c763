package evaluate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	ctyjson "github.com/zclconf/go-cty/cty/json"

	"github.com/roach88/nsreg/internal/graph"
)

// HCL evaluates units written as HCL attributes. Expressions are evaluated
// without variables or functions, so only literal values are accepted.
type HCL struct{}

func (HCL) Name() string { return "hcl" }

func (HCL) Evaluate(_ context.Context, u Unit) (graph.Props, error) {
	file, diags := hclsyntax.ParseConfig(u.Source, u.URI, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse: %w", diags)
	}

	attrs, diags := file.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("attributes: %w", diags)
	}

	ordered := make([]*hcl.Attribute, 0, len(attrs))
	for _, a := range attrs {
		ordered = append(ordered, a)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Range.Start.Byte < ordered[j].Range.Start.Byte
	})

	var props graph.Props
	for _, a := range ordered {
		val, diags := a.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("attribute %s: %w", a.Name, diags)
		}
		raw, err := ctyjson.Marshal(val, val.Type())
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", a.Name, err)
		}
		goVal, err := decodeJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", a.Name, err)
		}
		props = append(props, graph.Field{Name: a.Name, Value: goVal})
	}
	if len(props) == 0 {
		return nil, errNoFields
	}
	return props, nil
}

// decodeJSON decodes raw keeping whole numbers as int64.
func decodeJSON(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return normalizeNumbers(v), nil
}

func normalizeNumbers(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		f, _ := val.Float64()
		return f
	case []any:
		for i := range val {
			val[i] = normalizeNumbers(val[i])
		}
		return val
	case map[string]any:
		for k := range val {
			val[k] = normalizeNumbers(val[k])
		}
		return val
	default:
		return v
	}
}
