package circuit

import (
	"crypto/sha256"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"github.com/holiman/uint256"
	"github.com/iden3/go-iden3-crypto/poseidon"
)

// Combiner compresses two child nodes into their parent. Implementations must be deterministic
// and must match the compression used inside the circuit.
type Combiner interface {
	Combine(left, right Limbs) (Limbs, error)
}

const (
	CombineSHA256   = "sha256"
	CombinePoseidon = "poseidon"
	CombineMiMC     = "mimc"
)

// NewCombiner resolves a combiner by its configuration name.
func NewCombiner(name string) (Combiner, error) {
	switch name {
	case "", CombineSHA256:
		return SHA256Combiner{}, nil
	case CombinePoseidon:
		return PoseidonCombiner{}, nil
	case CombineMiMC:
		return MiMCCombiner{}, nil
	default:
		return nil, fmt.Errorf("unknown combiner %q", name)
	}
}

// SHA256Combiner hashes the minimal big-endian encodings of the four limbs.
// Zero is encoded as a single 0x00 byte.
type SHA256Combiner struct{}

func (SHA256Combiner) Combine(left, right Limbs) (Limbs, error) {
	h := sha256.New()
	for _, v := range limbsOf(left, right) {
		b := v.Bytes()
		if len(b) == 0 {
			b = []byte{0}
		}
		h.Write(b)
	}
	return Split(h.Sum(nil))
}

// PoseidonCombiner is the circom-compatible Poseidon over BN254 with four inputs.
type PoseidonCombiner struct{}

func (PoseidonCombiner) Combine(left, right Limbs) (Limbs, error) {
	inputs := make([]*big.Int, 0, 4)
	for _, v := range limbsOf(left, right) {
		inputs = append(inputs, v.ToBig())
	}
	out, err := poseidon.Hash(inputs)
	if err != nil {
		return Limbs{}, fmt.Errorf("poseidon: %w", err)
	}
	return Split(out.FillBytes(make([]byte, HashSize)))
}

// MiMCCombiner absorbs the four limbs as BN254 scalar field elements.
type MiMCCombiner struct{}

func (MiMCCombiner) Combine(left, right Limbs) (Limbs, error) {
	h := mimc.NewMiMC()
	for _, v := range limbsOf(left, right) {
		b := v.Bytes32()
		if _, err := h.Write(b[:]); err != nil {
			return Limbs{}, fmt.Errorf("mimc: %w", err)
		}
	}
	return Split(h.Sum(nil))
}

func limbsOf(left, right Limbs) [4]*uint256.Int {
	return [4]*uint256.Int{&left.Hi, &left.Lo, &right.Hi, &right.Lo}
}
