// Package trie implements a character-path trie used as a deterministic,
// hashable key/value store for account and contract state.
package trie

import (
	"encoding/json"
	"fmt"
	"maps"

	"github.com/ardanlabs/powledger/foundation/blockchain/signature"
)

// root is the arena index of the root node.
const root = 0

// node is a single entry in the trie arena. The value holds the JSON
// encoding of the stored value, nil when no value terminates here.
type node struct {
	value    json.RawMessage
	children map[rune]int
}

// Trie maps string keys to values along a path of single characters. Nodes
// live in an arena and reference their children by index, so a trie never
// shares nodes with another trie.
type Trie struct {
	nodes    []node
	rootHash string
}

// New constructs an empty trie with the root hash of an empty root node.
func New() *Trie {
	t := Trie{
		nodes: []node{{children: make(map[rune]int)}},
	}
	t.generateRootHash()

	return &t
}

// RootHash returns the hash of the root node over the entire node graph.
func (t *Trie) RootHash() string {
	return t.rootHash
}

// Put stores the value at the key, creating any missing nodes along the
// path, and recomputes the root hash. Every put rehashes the whole trie.
func (t *Trie) Put(key string, value any) error {
	data, err := signature.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding value for key %q: %w", key, err)
	}

	idx := root
	for _, char := range key {
		child, exists := t.nodes[idx].children[char]
		if !exists {
			t.nodes = append(t.nodes, node{children: make(map[rune]int)})
			child = len(t.nodes) - 1
			t.nodes[idx].children[char] = child
		}
		idx = child
	}

	t.nodes[idx].value = data
	t.generateRootHash()

	return nil
}

// Get decodes a fresh copy of the value stored at the key into value. It
// reports false when no value terminates at the key. Callers can never
// mutate the stored value through what they receive.
func (t *Trie) Get(key string, value any) (bool, error) {
	idx := root
	for _, char := range key {
		child, exists := t.nodes[idx].children[char]
		if !exists {
			return false, nil
		}
		idx = child
	}

	data := t.nodes[idx].value
	if data == nil {
		return false, nil
	}

	if err := json.Unmarshal(data, value); err != nil {
		return false, fmt.Errorf("decoding value for key %q: %w", key, err)
	}

	return true, nil
}

// Copy returns an independent duplicate of the trie.
func (t *Trie) Copy() *Trie {
	nodes := make([]node, len(t.nodes))
	for i, n := range t.nodes {
		nodes[i] = node{
			value:    n.value,
			children: maps.Clone(n.children),
		}
	}

	return &Trie{
		nodes:    nodes,
		rootHash: t.rootHash,
	}
}

// Len returns the number of nodes in the trie, the root included.
func (t *Trie) Len() int {
	return len(t.nodes)
}

// =============================================================================

// nodeView is the serialized form of a node used for hashing.
type nodeView struct {
	Value    json.RawMessage     `json:"value"`
	ChildMap map[string]nodeView `json:"childMap"`
}

// view builds the serialized form of the node at idx and its descendants.
func (t *Trie) view(idx int) nodeView {
	n := t.nodes[idx]

	v := nodeView{
		Value:    n.value,
		ChildMap: make(map[string]nodeView, len(n.children)),
	}
	for char, child := range n.children {
		v.ChildMap[string(char)] = t.view(child)
	}

	return v
}

// generateRootHash hashes the root node over the entire node graph.
func (t *Trie) generateRootHash() {
	t.rootHash = signature.Hash(t.view(root))
}
