// Package tree discovers the addressable data tree of a connected device.
//
// Discovery walks the hierarchy depth first through child-name listings and
// classifies every node by its naming convention. Devices that do not answer
// a name listing are probed with a plain fetch instead, so record containers
// and bare scalars still land in the result.
package tree

import (
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/thingsetctl/internal/payload"
)

// Kind is the access class encoded in a node name's first letter.
type Kind byte

const (
	KindNone     Kind = 0
	KindWritable Kind = 'w'
	KindStored   Kind = 's'
	KindReadOnly Kind = 'r'
	KindExec     Kind = 'x'
)

func (k Kind) String() string {
	if k == KindNone {
		return ""
	}
	return string(rune(k))
}

// KindOf classifies a node name by its leading marker letter.
func KindOf(name string) Kind {
	if name == "" {
		return KindNone
	}
	switch name[0] {
	case 'w', 's', 'r', 'x':
		return Kind(name[0])
	}
	return KindNone
}

// Node is one discovered entry of the device tree.
type Node struct {
	Path    string
	Name    string
	IsGroup bool
	Kind    Kind
}

// Writable reports whether the node accepts update requests.
func (n Node) Writable() bool {
	return !n.IsGroup && (n.Kind == KindWritable || n.Kind == KindStored)
}

// Executable reports whether the node can be triggered.
func (n Node) Executable() bool {
	return !n.IsGroup && n.Kind == KindExec
}

// Querier is the slice of a session the walker needs.
type Querier interface {
	QueryNames(path string) ([]string, error)
	Fetch(path string) (payload.Result, error)
}

// Join appends a child name to a parent path.
func Join(parent, name string) string {
	if parent == "/" {
		return "/" + name
	}
	return strings.TrimRight(parent, "/") + "/" + name
}

func baseName(path string) string {
	return path[strings.LastIndexByte(path, '/')+1:]
}

// workItem is one pending step of the walk. Leaves classified while
// expanding their parent are queued too, so subtree results keep the
// in-order position of their siblings.
type workItem struct {
	path string
	leaf Node
	emit bool
}

func expandItem(path string) workItem { return workItem{path: path} }

func leafItem(path, name string) workItem {
	return workItem{leaf: Node{Path: path, Name: name, Kind: KindOf(name)}, emit: true}
}

// Discover walks the whole tree and returns every group and leaf found,
// deduplicated, in discovery order.
func Discover(q Querier) []Node {
	var (
		nodes   []Node
		stack   []workItem
		visited = make(map[string]bool)
	)

	if top, err := q.QueryNames("/"); err == nil {
		for i := len(top) - 1; i >= 0; i-- {
			stack = append(stack, expandItem("/"+top[i]))
		}
	} else {
		stack = append(stack, expandItem("/"))
	}

	push := func(items []workItem) {
		for i := len(items) - 1; i >= 0; i-- {
			stack = append(stack, items[i])
		}
	}

	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if it.emit {
			nodes = append(nodes, it.leaf)
			continue
		}
		path := it.path
		if visited[path] {
			continue
		}
		visited[path] = true
		log.Trace().Str("path", path).Msg("expanding node")

		if names, err := q.QueryNames(path); err == nil {
			nodes = appendGroup(nodes, path)
			push(classify(path, names))
			continue
		}

		res, err := q.Fetch(path)
		if err == nil && res.IsJSON() {
			if members, ok := payload.Members(res.JSON); ok {
				nodes = appendGroup(nodes, path)
				push(classify(path, members))
				continue
			}
			if n, ok := payload.ArrayLen(res.JSON); ok {
				// Record containers list by element index.
				nodes = appendGroup(nodes, path)
				items := make([]workItem, 0, n)
				for i := 0; i < n; i++ {
					items = append(items, expandItem(Join(path, strconv.Itoa(i))))
				}
				push(items)
				continue
			}
		}

		// Scalar or silent: the path itself is the leaf.
		name := baseName(path)
		nodes = append(nodes, Node{Path: path, Name: name, Kind: KindOf(name)})
	}

	return dedupe(nodes)
}

// classify splits a child listing into leaves to record and groups to
// expand. Marker-letter names never recurse.
func classify(parent string, names []string) []workItem {
	items := make([]workItem, 0, len(names))
	for _, name := range names {
		child := Join(parent, name)
		if KindOf(name) != KindNone {
			items = append(items, leafItem(child, name))
		} else {
			items = append(items, expandItem(child))
		}
	}
	return items
}

func appendGroup(nodes []Node, path string) []Node {
	if path == "/" {
		return nodes
	}
	return append(nodes, Node{Path: path, Name: baseName(path), IsGroup: true})
}

func dedupe(nodes []Node) []Node {
	type key struct {
		path  string
		group bool
	}
	seen := make(map[key]bool, len(nodes))
	out := nodes[:0]
	for _, n := range nodes {
		k := key{n.Path, n.IsGroup}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, n)
	}
	return out
}
