package graph

// Node is one location in the namespace graph.
type Node struct {
	g        *Graph
	value    any
	hasValue bool
	keys     []string
	children map[string]*Node
}

// Entry is a named child, as returned by Node.Entries.
type Entry struct {
	Name string
	Node *Node
}

// Value returns the attached value. ok is false for plain containers.
func (n *Node) Value() (v any, ok bool) {
	n.g.mu.RLock()
	defer n.g.mu.RUnlock()
	return n.value, n.hasValue
}

// IsContainer reports whether the node carries no value.
func (n *Node) IsContainer() bool {
	_, ok := n.Value()
	return !ok
}

// Child returns the direct child called name.
func (n *Node) Child(name string) (*Node, bool) {
	n.g.mu.RLock()
	defer n.g.mu.RUnlock()
	c, ok := n.children[name]
	return c, ok
}

// Keys returns child names in insertion order.
func (n *Node) Keys() []string {
	n.g.mu.RLock()
	defer n.g.mu.RUnlock()
	return append([]string(nil), n.keys...)
}

// Entries returns the children in insertion order.
func (n *Node) Entries() []Entry {
	n.g.mu.RLock()
	defer n.g.mu.RUnlock()
	entries := make([]Entry, 0, len(n.keys))
	for _, k := range n.keys {
		entries = append(entries, Entry{Name: k, Node: n.children[k]})
	}
	return entries
}

// Set attaches value as the child called name. Maps and Props become
// containers; a *Node is bound as-is.
func (n *Node) Set(name string, value any) *Node {
	n.g.mu.Lock()
	defer n.g.mu.Unlock()
	child := n.g.expand(value)
	n.setChild(name, child)
	return child
}

// Interface converts the subtree into plain Go values: a node with a value
// yields that value, a container yields map[string]any of its children.
func (n *Node) Interface() any {
	n.g.mu.RLock()
	defer n.g.mu.RUnlock()
	return n.iface(make(map[*Node]bool))
}

func (n *Node) iface(seen map[*Node]bool) any {
	if n.hasValue {
		return n.value
	}
	if seen[n] {
		return nil
	}
	seen[n] = true
	defer delete(seen, n)

	out := make(map[string]any, len(n.keys))
	for _, k := range n.keys {
		out[k] = n.children[k].iface(seen)
	}
	return out
}

// setChild requires g.mu held for writing.
func (n *Node) setChild(name string, child *Node) {
	if _, ok := n.children[name]; !ok {
		n.keys = append(n.keys, name)
	}
	n.children[name] = child
}

// merge requires g.mu held for writing.
func (n *Node) merge(props Props) {
	for _, f := range props {
		n.setChild(f.Name, n.g.expand(f.Value))
	}
}
