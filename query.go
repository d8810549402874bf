package depot

import (
	"github.com/TheBitDrifter/mask"
)

type Operation int

const (
	OpAnd Operation = iota
	OpOr
	OpNot
)

type compositeNode struct {
	op         Operation
	children   []QueryNode
	components []Component
}

type leafNode struct {
	components []Component
}

// changeKind distinguishes the two row-level change filters.
type changeKind int

const (
	changeAdded changeKind = iota
	changeChanged
)

// changeNode matches archetypes containing its components structurally and
// additionally filters rows by slot tick at iteration time. The tick window
// belongs to the cursor, not the node, so one query serves many systems.
type changeNode struct {
	kind       changeKind
	components []Component
}

type query struct {
	root QueryNode
}

func newQuery() Query {
	return &query{}
}

func newCompositeNode(op Operation, components []Component) *compositeNode {
	return &compositeNode{
		op:         op,
		children:   make([]QueryNode, 0),
		components: components,
	}
}

func newLeafNode(components []Component) *leafNode {
	return &leafNode{components: components}
}

func maskOf(components []Component) mask.Mask {
	var m mask.Mask
	for _, comp := range components {
		m.Mark(uint32(comp.ID()))
	}
	return m
}

func (n *compositeNode) Evaluate(a Archetype) bool {
	nodeMask := maskOf(n.components)
	archeMask := a.Mask()

	switch n.op {
	case OpAnd:
		if !archeMask.ContainsAll(nodeMask) {
			return false
		}
		for _, child := range n.children {
			if !child.Evaluate(a) {
				return false
			}
		}
		return true

	case OpOr:
		if archeMask.ContainsAny(nodeMask) {
			return true
		}
		for _, child := range n.children {
			if child.Evaluate(a) {
				return true
			}
		}
		return false

	case OpNot:
		if len(n.children) == 0 {
			return archeMask.ContainsNone(nodeMask)
		}
		for _, child := range n.children {
			if child.Evaluate(a) {
				return false
			}
		}
		return !archeMask.ContainsAny(nodeMask)
	}
	return false
}

func (n *leafNode) Evaluate(a Archetype) bool {
	return a.Mask().ContainsAll(maskOf(n.components))
}

// Structurally a change node only requires presence; the tick predicate is
// applied per row by the cursor.
func (n *changeNode) Evaluate(a Archetype) bool {
	return a.Mask().ContainsAll(maskOf(n.components))
}

func (q *query) And(items ...interface{}) QueryNode {
	components, children := q.processItems(items...)
	node := newCompositeNode(OpAnd, components)
	node.children = children
	if q.root == nil {
		q.root = node
	}
	return node
}

func (q *query) Or(items ...interface{}) QueryNode {
	components, children := q.processItems(items...)
	node := newCompositeNode(OpOr, components)
	node.children = children
	if q.root == nil {
		q.root = node
	}
	return node
}

func (q *query) Not(items ...interface{}) QueryNode {
	components, children := q.processItems(items...)
	node := newCompositeNode(OpNot, components)
	node.children = children
	if q.root == nil {
		q.root = node
	}
	return node
}

// Added matches rows whose add-tick falls inside the iterating system's
// last-seen-to-current window.
func (q *query) Added(components ...Component) QueryNode {
	node := &changeNode{kind: changeAdded, components: components}
	if q.root == nil {
		q.root = node
	}
	return node
}

// Changed matches rows whose mutation-tick falls inside the iterating
// system's last-seen-to-current window.
func (q *query) Changed(components ...Component) QueryNode {
	node := &changeNode{kind: changeChanged, components: components}
	if q.root == nil {
		q.root = node
	}
	return node
}

func (q *query) processItems(items ...interface{}) ([]Component, []QueryNode) {
	components := make([]Component, 0)
	children := make([]QueryNode, 0)

	for _, item := range items {
		switch v := item.(type) {
		case Component:
			components = append(components, v)
		case []Component:
			components = append(components, v...)
		case QueryNode:
			children = append(children, v)
		}
	}

	return components, children
}

func (q *query) Evaluate(a Archetype) bool {
	if q.root == nil {
		return false
	}
	return q.root.Evaluate(a)
}

// collectChangeFilters walks a node tree and gathers every change filter.
// Change filters are always applied as conjuncts; place Added/Changed under
// And.
func collectChangeFilters(node QueryNode) []*changeNode {
	var out []*changeNode
	switch n := node.(type) {
	case *changeNode:
		out = append(out, n)
	case *compositeNode:
		for _, child := range n.children {
			out = append(out, collectChangeFilters(child)...)
		}
	case *query:
		if n.root != nil {
			out = collectChangeFilters(n.root)
		}
	}
	return out
}
