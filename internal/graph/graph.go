// Package graph holds the namespace graph: a tree of nodes rooted at the
// global node, addressed by identifier segments.
//
// Every node can carry children (kept in insertion order) and optionally a
// value. A node without a value is a container. Nodes are never removed; a
// child may only be replaced by attaching or binding under the same name.
//
// Thread-safety: all Graph and Node methods are safe for concurrent use. One
// mutex per graph guards structure, so check-then-create is atomic.
package graph

import (
	"sort"
	"sync"
)

// Field is one named value of a grouped attachment.
type Field struct {
	Name  string
	Value any
}

// Props is an ordered grouped attachment. Each field is merged into the
// namespace at identifier.Name.
type Props []Field

// Get returns the value of the first field called name.
func (p Props) Get(name string) (any, bool) {
	for _, f := range p {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// PropsFromMap converts m into Props ordered by key.
func PropsFromMap(m map[string]any) Props {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	props := make(Props, 0, len(keys))
	for _, k := range keys {
		props = append(props, Field{Name: k, Value: m[k]})
	}
	return props
}

// Graph is the namespace graph of one registry.
type Graph struct {
	mu   sync.RWMutex
	root *Node
}

// New creates a graph holding only the root container.
func New() *Graph {
	g := &Graph{}
	g.root = g.newNode()
	return g
}

// Root returns the global node.
func (g *Graph) Root() *Node {
	return g.root
}

// Lookup walks path from the root.
func (g *Graph) Lookup(path []string) (*Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.lookup(path)
}

// Exist reports whether every segment of path is materialized. Presence is
// what counts: a node whose value is nil, zero or false still exists.
func (g *Graph) Exist(path []string) bool {
	_, ok := g.Lookup(path)
	return ok
}

// CreateOrGet materializes path, creating intermediate containers as needed.
//
// When the full path already exists the existing node is returned unchanged,
// attachment is ignored and created is false. Otherwise attachment decides the
// leaf: nil leaves an empty container, Props or map[string]any are merged
// field by field below the new node, and any other value replaces the leaf
// wholesale.
func (g *Graph) CreateOrGet(path []string, attachment any) (node *Node, created bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if existing, ok := g.lookup(path); ok {
		return existing, false
	}

	parent := g.root
	for i, seg := range path {
		child, ok := parent.children[seg]
		if !ok {
			if i == len(path)-1 {
				break
			}
			child = g.newNode()
			parent.setChild(seg, child)
		}
		parent = child
	}

	leaf := path[len(path)-1]
	switch a := attachment.(type) {
	case nil:
		node = g.newNode()
	case Props:
		node = g.newNode()
		node.merge(a)
	case map[string]any:
		node = g.newNode()
		node.merge(PropsFromMap(a))
	default:
		node = g.expand(a)
	}
	parent.setChild(leaf, node)
	return node, true
}

// Bind places node under parent as name, replacing any previous child of that
// name. The same node may be bound under several parents.
func (g *Graph) Bind(parent *Node, name string, node *Node) {
	g.mu.Lock()
	defer g.mu.Unlock()
	parent.setChild(name, node)
}

func (g *Graph) lookup(path []string) (*Node, bool) {
	n := g.root
	for _, seg := range path {
		child, ok := n.children[seg]
		if !ok {
			return nil, false
		}
		n = child
	}
	return n, true
}

func (g *Graph) newNode() *Node {
	return &Node{g: g, children: make(map[string]*Node)}
}

// expand turns an attached value into a node. Maps become containers so the
// graph stays navigable below them; an existing *Node is reused as-is.
func (g *Graph) expand(v any) *Node {
	switch val := v.(type) {
	case *Node:
		return val
	case Props:
		n := g.newNode()
		n.merge(val)
		return n
	case map[string]any:
		n := g.newNode()
		n.merge(PropsFromMap(val))
		return n
	default:
		n := g.newNode()
		n.value = v
		n.hasValue = true
		return n
	}
}
