package verifier

import (
	"sync"

	"github.com/kysee/zktx/errs"
	"github.com/kysee/zktx/transaction"
	"github.com/kysee/zktx/types"
	"github.com/kysee/zktx/utils"
)

// Ledger is an in-memory chain state: a fixed-depth MiMC note commitment
// tree, the set of revealed nullifiers and the current owner of every
// custom asset. Transactions applied to it are assumed to have passed
// Verify already.
type Ledger struct {
	mu sync.RWMutex

	depth int
	// zeros[i] is the root of an empty subtree of height i.
	zeros [][32]byte
	// levels[i] holds the filled nodes at height i, left to right.
	levels [][][32]byte
	// roots maps every root the tree has had to the tree size at that time.
	roots map[[32]byte]uint32

	nullifiers map[types.Nullifier]struct{}
	owners     map[types.AssetIdentifier][32]byte
}

func NewLedger(depth int) (*Ledger, error) {
	if depth < 1 || depth > 32 {
		return nil, errs.Newf(errs.RangeError, "new ledger", "tree depth %d out of range [1, 32]", depth)
	}
	l := &Ledger{
		depth:      depth,
		zeros:      make([][32]byte, depth+1),
		levels:     make([][][32]byte, depth+1),
		roots:      make(map[[32]byte]uint32),
		nullifiers: make(map[types.Nullifier]struct{}),
		owners:     make(map[types.AssetIdentifier][32]byte),
	}
	for i := 0; i < depth; i++ {
		l.zeros[i+1] = utils.MiMCHash32(l.zeros[i][:], l.zeros[i][:])
	}
	l.roots[l.zeros[depth]] = 0
	return l, nil
}

func (l *Ledger) Depth() int {
	return l.depth
}

// Size is the number of note commitments in the tree.
func (l *Ledger) Size() uint32 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return uint32(len(l.levels[0]))
}

func (l *Ledger) Root() [32]byte {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.root()
}

func (l *Ledger) root() [32]byte {
	if top := l.levels[l.depth]; len(top) > 0 {
		return top[0]
	}
	return l.zeros[l.depth]
}

func (l *Ledger) node(height int, index uint64) [32]byte {
	if lv := l.levels[height]; index < uint64(len(lv)) {
		return lv[index]
	}
	return l.zeros[height]
}

// AppendCommitment adds cm to the tree and returns its position.
func (l *Ledger) AppendCommitment(cm types.NoteCommitment) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.checkCapacity(1); err != nil {
		return 0, err
	}
	pos := l.append(cm)
	LedgerSize.Set(float64(len(l.levels[0])))
	return pos, nil
}

func (l *Ledger) checkCapacity(n int) error {
	if uint64(len(l.levels[0]))+uint64(n) > uint64(1)<<uint(l.depth) {
		return errs.Newf(errs.RangeError, "append commitment", "note tree of depth %d is full", l.depth)
	}
	return nil
}

func (l *Ledger) append(cm types.NoteCommitment) uint64 {
	pos := uint64(len(l.levels[0]))
	l.levels[0] = append(l.levels[0], cm)

	idx := pos
	for h := 0; h < l.depth; h++ {
		parent := idx >> 1
		left := l.node(h, parent<<1)
		right := l.node(h, parent<<1|1)
		hash := utils.MiMCHash32(left[:], right[:])
		if parent < uint64(len(l.levels[h+1])) {
			l.levels[h+1][parent] = hash
		} else {
			l.levels[h+1] = append(l.levels[h+1], hash)
		}
		idx = parent
	}
	l.roots[l.root()] = uint32(len(l.levels[0]))
	return pos
}

// Commitment returns the note commitment at position.
func (l *Ledger) Commitment(position uint64) (types.NoteCommitment, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if position >= uint64(len(l.levels[0])) {
		return types.NoteCommitment{}, errs.Newf(errs.RangeError, "commitment", "position %d out of range", position)
	}
	return l.levels[0][position], nil
}

// Witness returns the authentication path of the note at position against
// the current root.
func (l *Ledger) Witness(position uint64) (*types.StaticWitness, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if position >= uint64(len(l.levels[0])) {
		return nil, errs.Newf(errs.RangeError, "witness", "position %d out of range", position)
	}
	nodes := make([]types.WitnessNode, l.depth)
	idx := position
	for h := 0; h < l.depth; h++ {
		if idx&1 == 0 {
			nodes[h] = types.WitnessNode{Side: types.Left, Sibling: l.node(h, idx|1)}
		} else {
			nodes[h] = types.WitnessNode{Side: types.Right, Sibling: l.node(h, idx&^1)}
		}
		idx >>= 1
	}
	return &types.StaticWitness{
		Root:  l.root(),
		Size:  uint32(len(l.levels[0])),
		Nodes: nodes,
	}, nil
}

// IsAnchor reports whether root was the tree root when the tree held size
// commitments.
func (l *Ledger) IsAnchor(root [32]byte, size uint32) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.roots[root]
	return ok && s == size
}

func (l *Ledger) HasNullifier(nf types.Nullifier) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.nullifiers[nf]
	return ok
}

// AssetOwner returns the owner tag allowed to mint asset. An asset that
// was never transferred is owned by its creator.
func (l *Ledger) AssetOwner(asset types.Asset) [32]byte {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.assetOwner(asset)
}

func (l *Ledger) assetOwner(asset types.Asset) [32]byte {
	if owner, ok := l.owners[asset.ID()]; ok {
		return owner
	}
	return asset.Creator
}

// Apply checks tx against the chain state and then records it: nullifiers
// are revealed, output notes appended and ownership transfers applied.
// It returns the tree position of the first output. Nothing changes when
// Apply fails.
func (l *Ledger) Apply(tx *transaction.Transaction) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.check(tx); err != nil {
		LedgerAppliedTotal.WithLabelValues("error").Inc()
		return 0, err
	}

	for i := 0; i < tx.SpendsLength(); i++ {
		s, _ := tx.GetSpend(i)
		l.nullifiers[s.Nullifier] = struct{}{}
	}
	first := uint64(len(l.levels[0]))
	for _, o := range tx.Outputs() {
		l.append(o.MerkleNote.NoteCommitment)
	}
	for _, m := range tx.Mints() {
		if m.TransferOwnershipTo != nil {
			l.owners[m.Asset.ID()] = m.TransferOwnershipTo.Owner
		}
	}

	LedgerAppliedTotal.WithLabelValues("success").Inc()
	LedgerSize.Set(float64(len(l.levels[0])))
	utils.Logger().Debug().
		Int("spends", tx.SpendsLength()).
		Int("notes", tx.NotesLength()).
		Uint64("first_position", first).
		Msg("transaction applied")
	return first, nil
}

func (l *Ledger) check(tx *transaction.Transaction) error {
	for i := 0; i < tx.SpendsLength(); i++ {
		s, _ := tx.GetSpend(i)
		if size, ok := l.roots[s.RootHash]; !ok || size != s.TreeSize {
			return errs.Newf(errs.ProofError, "apply", "spend %d anchors to an unknown root", i)
		}
		if _, spent := l.nullifiers[s.Nullifier]; spent {
			return errs.Newf(errs.BalanceError, "apply", "spend %d reveals a nullifier already on the ledger", i)
		}
	}

	// ownership is checked in order so that a mint after a transfer in the
	// same transaction needs the new owner
	pending := make(map[types.AssetIdentifier][32]byte)
	for i, m := range tx.Mints() {
		id := m.Asset.ID()
		owner, ok := pending[id]
		if !ok {
			owner = l.assetOwner(m.Asset)
		}
		if m.Owner != owner {
			return errs.Newf(errs.ProofError, "apply", "mint %d is not signed by the owner of asset %s", i, id.Hex())
		}
		if m.TransferOwnershipTo != nil {
			pending[id] = m.TransferOwnershipTo.Owner
		}
	}
	return l.checkCapacity(tx.NotesLength())
}
