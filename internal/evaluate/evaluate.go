// Package evaluate turns fetched unit source into the ordered fields that are
// bound into the namespace graph.
//
// Evaluators are tried in order by a Chain. The first evaluator that accepts
// the source wins and later ones never run; callers only see success or
// failure, never which evaluator produced the result.
package evaluate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/nsreg/internal/graph"
)

// Unit is fetched source waiting to be evaluated.
type Unit struct {
	Identifier string
	URI        string
	Source     []byte
}

// Evaluator parses and evaluates one unit format.
type Evaluator interface {
	Name() string
	Evaluate(ctx context.Context, u Unit) (graph.Props, error)
}

// errNoFields marks a parse that produced nothing bindable, so the next
// evaluator gets a chance.
var errNoFields = errors.New("unit declares no fields")

// Error reports that no evaluator accepted a unit.
type Error struct {
	Identifier string
	URI        string
	Errs       []error
}

func (e *Error) Error() string {
	msgs := make([]string, 0, len(e.Errs))
	for _, err := range e.Errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("evaluate %s (%s): %s", e.Identifier, e.URI, strings.Join(msgs, "; "))
}

func (e *Error) Unwrap() []error {
	return e.Errs
}

// Chain tries evaluators in order.
type Chain []Evaluator

// Default returns the standard chain: CUE, then HCL, then YAML.
func Default() Chain {
	return Chain{CUE{}, HCL{}, YAML{}}
}

func (c Chain) Name() string {
	names := make([]string, len(c))
	for i, e := range c {
		names[i] = e.Name()
	}
	return "chain(" + strings.Join(names, ",") + ")"
}

// Evaluate returns the result of the first evaluator that succeeds. Blank
// source evaluates to no fields without consulting any evaluator.
func (c Chain) Evaluate(ctx context.Context, u Unit) (graph.Props, error) {
	if len(bytes.TrimSpace(u.Source)) == 0 {
		return graph.Props{}, nil
	}

	fail := &Error{Identifier: u.Identifier, URI: u.URI}
	for _, e := range c {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		props, err := e.Evaluate(ctx, u)
		if err == nil {
			return props, nil
		}
		slog.Debug("evaluator rejected unit", "evaluator", e.Name(), "uri", u.URI, "error", err)
		fail.Errs = append(fail.Errs, fmt.Errorf("%s: %w", e.Name(), err))
	}
	if len(fail.Errs) == 0 {
		fail.Errs = append(fail.Errs, errors.New("no evaluators configured"))
	}
	return nil, fail
}
