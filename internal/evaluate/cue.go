package evaluate

import (
	"context"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/nsreg/internal/graph"
)

// CUE evaluates units written in CUE. The unit must be a concrete struct;
// its regular fields become the bound properties in declaration order.
type CUE struct{}

func (CUE) Name() string { return "cue" }

func (CUE) Evaluate(_ context.Context, u Unit) (graph.Props, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(u.Source, cue.Filename(u.URI))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	if v.Kind() != cue.StructKind {
		return nil, fmt.Errorf("unit is %s, want struct", v.Kind())
	}

	iter, err := v.Fields()
	if err != nil {
		return nil, fmt.Errorf("iterate fields: %w", err)
	}

	var props graph.Props
	for iter.Next() {
		var val any
		if err := iter.Value().Decode(&val); err != nil {
			return nil, fmt.Errorf("decode %s: %w", iter.Label(), err)
		}
		props = append(props, graph.Field{Name: iter.Label(), Value: val})
	}
	if len(props) == 0 {
		return nil, errNoFields
	}
	return props, nil
}
