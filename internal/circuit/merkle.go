package circuit

import (
	"errors"
	"fmt"
)

// MaxDepth bounds the tree height so that the leaf capacity fits in uint64.
const MaxDepth = 63

var (
	ErrProofDepthExceeded  = errors.New("leaf count exceeds tree capacity")
	ErrLeafIndexOutOfRange = errors.New("leaf index out of range")
	ErrInvalidDepth        = errors.New("invalid tree depth")
	ErrMalformedProof      = errors.New("malformed proof")
)

// MerkleProof is a fixed-depth inclusion path from a leaf to the root.
// Path[l] is 0 when the running node is the left child at level l.
type MerkleProof struct {
	Siblings []Limbs
	Path     []uint8
	Root     Limbs
}

// Depth returns the number of levels in the proof.
func (p MerkleProof) Depth() int {
	return len(p.Siblings)
}

// ProofBuilder builds proofs over a tree of fixed depth padded with the zero leaf.
// Empty subtrees are precomputed once, so only the populated prefix of each level is hashed.
type ProofBuilder struct {
	depth   int
	combine Combiner
	zeros   []Limbs
}

// NewProofBuilder precomputes the empty-subtree nodes for every level of the tree.
func NewProofBuilder(depth int, combine Combiner) (*ProofBuilder, error) {
	if depth < 0 || depth > MaxDepth {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDepth, depth)
	}
	if combine == nil {
		return nil, errors.New("combiner is required")
	}

	zeros := make([]Limbs, depth+1)
	for l := 0; l < depth; l++ {
		next, err := combine.Combine(zeros[l], zeros[l])
		if err != nil {
			return nil, fmt.Errorf("empty subtree at level %d: %w", l+1, err)
		}
		zeros[l+1] = next
	}

	return &ProofBuilder{depth: depth, combine: combine, zeros: zeros}, nil
}

// Depth returns the tree height.
func (b *ProofBuilder) Depth() int {
	return b.depth
}

// EmptyRoot is the root of a tree that holds only zero leaves.
func (b *ProofBuilder) EmptyRoot() Limbs {
	return b.zeros[b.depth]
}

// Build returns the inclusion proof of leaves[index].
func (b *ProofBuilder) Build(leaves [][]byte, index int) (MerkleProof, error) {
	if uint64(len(leaves)) > uint64(1)<<b.depth {
		return MerkleProof{}, fmt.Errorf("%w: %d leaves, depth %d", ErrProofDepthExceeded, len(leaves), b.depth)
	}
	if index < 0 || index >= len(leaves) {
		return MerkleProof{}, fmt.Errorf("%w: %d of %d", ErrLeafIndexOutOfRange, index, len(leaves))
	}

	level := make([]Limbs, len(leaves))
	for i, leaf := range leaves {
		l, err := Split(leaf)
		if err != nil {
			return MerkleProof{}, fmt.Errorf("leaf %d: %w", i, err)
		}
		level[i] = l
	}

	proof := MerkleProof{
		Siblings: make([]Limbs, b.depth),
		Path:     make([]uint8, b.depth),
	}

	i := index
	for l := 0; l < b.depth; l++ {
		proof.Path[l] = uint8(i & 1)
		proof.Siblings[l] = b.nodeAt(level, i^1, l)

		next := make([]Limbs, (len(level)+1)/2)
		for j := range next {
			parent, err := b.combine.Combine(level[2*j], b.nodeAt(level, 2*j+1, l))
			if err != nil {
				return MerkleProof{}, fmt.Errorf("combine level %d: %w", l, err)
			}
			next[j] = parent
		}
		level = next
		i /= 2
	}

	proof.Root = level[0]
	return proof, nil
}

func (b *ProofBuilder) nodeAt(level []Limbs, i, l int) Limbs {
	if i < len(level) {
		return level[i]
	}
	return b.zeros[l]
}

// BuildProof is a one-shot helper around ProofBuilder.
func BuildProof(leaves [][]byte, index, depth int, combine Combiner) (MerkleProof, error) {
	b, err := NewProofBuilder(depth, combine)
	if err != nil {
		return MerkleProof{}, err
	}
	return b.Build(leaves, index)
}

// VerifyProof folds leaf up the path and compares the result with the proof root.
func VerifyProof(proof MerkleProof, leaf []byte, index uint64, combine Combiner) (bool, error) {
	if len(proof.Siblings) != len(proof.Path) {
		return false, fmt.Errorf("%w: %d siblings, %d path bits", ErrMalformedProof, len(proof.Siblings), len(proof.Path))
	}
	if len(proof.Path) < 64 && index>>len(proof.Path) != 0 {
		return false, fmt.Errorf("%w: index %d, depth %d", ErrLeafIndexOutOfRange, index, len(proof.Path))
	}

	cur, err := Split(leaf)
	if err != nil {
		return false, err
	}

	for l, sibling := range proof.Siblings {
		dir := proof.Path[l]
		if uint64(dir) != (index>>l)&1 {
			return false, nil
		}
		if dir == 0 {
			cur, err = combine.Combine(cur, sibling)
		} else {
			cur, err = combine.Combine(sibling, cur)
		}
		if err != nil {
			return false, fmt.Errorf("combine level %d: %w", l, err)
		}
	}

	return cur.Equal(proof.Root), nil
}
