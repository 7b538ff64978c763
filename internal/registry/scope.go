package registry

import (
	"context"

	"github.com/roach88/nsreg/internal/graph"
	"github.com/roach88/nsreg/internal/ident"
)

// Scope binds include and use to one identifier. It is returned by From.
type Scope struct {
	r  *Registry
	id string
}

// From returns a scope bound to id.
func (r *Registry) From(id string) Scope {
	return Scope{r: r, id: id}
}

// Identifier returns the bound identifier.
func (s Scope) Identifier() string {
	return s.id
}

// Resolve expands rel against the bound identifier when rel starts with the
// separator. Other values are absolute and returned unchanged.
func (s Scope) Resolve(rel string) string {
	return ident.Resolve(s.id, rel, s.r.Separator())
}

// Include includes the bound identifier.
func (s Scope) Include(ctx context.Context) (bool, error) {
	return s.r.Include(ctx, s.id)
}

// IncludeAsync includes the bound identifier in the background.
func (s Scope) IncludeAsync(ctx context.Context, onSuccess func(), onError func(error)) error {
	return s.r.IncludeAsync(ctx, s.id, onSuccess, onError)
}

// Use imports rel. When its target is not materialized yet, the unit of the
// bound identifier is loaded first as a bundle; the import itself never
// loads anything.
func (s Scope) Use(ctx context.Context, rel string) error {
	if err := validate(s.id, s.r.Separator(), false); err != nil {
		return err
	}
	id := s.Resolve(rel)
	if !s.present(id) {
		if err := s.r.include(ctx, s.id); err != nil {
			return err
		}
	}
	return s.r.Use(ctx, []string{id}, WithAutoInclude(false))
}

// UseAsync is Use with a background bundle load. done follows the contract
// of Registry.UseAsync.
func (s Scope) UseAsync(ctx context.Context, rel string, done func(error)) error {
	if err := validate(s.id, s.r.Separator(), false); err != nil {
		return err
	}
	id := s.Resolve(rel)
	if s.present(id) {
		return s.r.UseAsync(ctx, []string{id}, done, WithAutoInclude(false))
	}
	fail := func(err error) {
		if done != nil {
			done(err)
		}
	}
	return s.r.IncludeAsync(ctx, s.id, func() {
		if err := s.r.UseAsync(ctx, []string{id}, done, WithAutoInclude(false)); err != nil {
			fail(err)
		}
	}, fail)
}

// present reports whether use could import id without loading.
func (s Scope) present(id string) bool {
	sep := s.r.Separator()
	if ident.IsWildcard(id, sep) {
		container, _ := ident.Target(id, sep)
		return s.r.Exist(container)
	}
	return s.r.Exist(id)
}

// Identifier wraps one identifier string so registry operations read as
// methods on it:
//
//	r.Ident("app.util").Include(ctx)
type Identifier struct {
	r  *Registry
	id string
}

// Ident returns the adapter for id.
func (r *Registry) Ident(id string) Identifier {
	return Identifier{r: r, id: id}
}

func (i Identifier) String() string {
	return i.id
}

func (i Identifier) Namespace(attachment any) (*graph.Node, error) {
	return i.r.Namespace(i.id, attachment)
}

func (i Identifier) Exist() bool {
	return i.r.Exist(i.id)
}

func (i Identifier) Include(ctx context.Context) (bool, error) {
	return i.r.Include(ctx, i.id)
}

func (i Identifier) IncludeAsync(ctx context.Context, onSuccess func(), onError func(error)) error {
	return i.r.IncludeAsync(ctx, i.id, onSuccess, onError)
}

func (i Identifier) Use(ctx context.Context, opts ...UseOption) error {
	return i.r.Use(ctx, []string{i.id}, opts...)
}

func (i Identifier) UseAsync(ctx context.Context, done func(error), opts ...UseOption) error {
	return i.r.UseAsync(ctx, []string{i.id}, done, opts...)
}

func (i Identifier) Provide() error {
	return i.r.Provide(i.id)
}

func (i Identifier) From() Scope {
	return i.r.From(i.id)
}

// Identifiers is the list form of Identifier.
type Identifiers struct {
	r   *Registry
	ids []string
}

// Idents returns the adapter for ids.
func (r *Registry) Idents(ids ...string) Identifiers {
	return Identifiers{r: r, ids: append([]string(nil), ids...)}
}

func (l Identifiers) Use(ctx context.Context, opts ...UseOption) error {
	return l.r.Use(ctx, l.ids, opts...)
}

func (l Identifiers) UseAsync(ctx context.Context, done func(error), opts ...UseOption) error {
	return l.r.UseAsync(ctx, l.ids, done, opts...)
}

func (l Identifiers) Provide() error {
	return l.r.Provide(l.ids...)
}
