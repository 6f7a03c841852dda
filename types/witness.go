package types

import (
	"github.com/kysee/zktx/utils"
)

// Side says which child the authenticated node is at one tree level.
type Side uint8

const (
	Left Side = iota
	Right
)

// WitnessNode is one level of an authentication path: the side of the
// node being proven and the hash of its sibling.
type WitnessNode struct {
	Side    Side
	Sibling [32]byte
}

// Witness proves a note commitment is in the tree of a given size.
// Implementations are resolved before a spend is added.
type Witness interface {
	RootHash() [32]byte
	TreeSize() uint32
	AuthenticationPath() []WitnessNode
}

// WitnessPosition derives the leaf index from the path sides.
func WitnessPosition(w Witness) uint64 {
	var pos uint64
	for i, n := range w.AuthenticationPath() {
		if n.Side == Right {
			pos |= 1 << uint(i)
		}
	}
	return pos
}

// WitnessRoot hashes leaf up the authentication path.
func WitnessRoot(path []WitnessNode, leaf [32]byte) [32]byte {
	cur := leaf
	for _, n := range path {
		if n.Side == Left {
			cur = utils.MiMCHash32(cur[:], n.Sibling[:])
		} else {
			cur = utils.MiMCHash32(n.Sibling[:], cur[:])
		}
	}
	return cur
}

// StaticWitness is a Witness held in memory.
type StaticWitness struct {
	Root  [32]byte
	Size  uint32
	Nodes []WitnessNode
}

func (w *StaticWitness) RootHash() [32]byte                { return w.Root }
func (w *StaticWitness) TreeSize() uint32                  { return w.Size }
func (w *StaticWitness) AuthenticationPath() []WitnessNode { return w.Nodes }
