// Package circuit builds the fixed-shape witness consumed by the bridge deposit circuit.
package circuit

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// HashSize is the byte length of every hash the circuit accepts.
const HashSize = 32

const limbSize = HashSize / 2

var ErrInvalidHashLength = errors.New("invalid hash length")

// Limbs is a 256-bit hash split into two 128-bit field elements.
type Limbs struct {
	Hi uint256.Int
	Lo uint256.Int
}

// Split interprets hash as a big-endian integer and returns its high and low 128-bit halves.
func Split(hash []byte) (Limbs, error) {
	if len(hash) != HashSize {
		return Limbs{}, fmt.Errorf("%w: got %d bytes", ErrInvalidHashLength, len(hash))
	}
	var l Limbs
	l.Hi.SetBytes(hash[:limbSize])
	l.Lo.SetBytes(hash[limbSize:])
	return l, nil
}

// SplitOrZero is Split for callers that substitute the zero element on bad input.
func SplitOrZero(hash []byte) Limbs {
	l, err := Split(hash)
	if err != nil {
		return Limbs{}
	}
	return l
}

// Bytes reassembles the original 32-byte big-endian hash.
func (l Limbs) Bytes() [HashSize]byte {
	var out [HashSize]byte
	hi := l.Hi.Bytes32()
	lo := l.Lo.Bytes32()
	copy(out[:limbSize], hi[limbSize:])
	copy(out[limbSize:], lo[limbSize:])
	return out
}

// IsZero reports whether both limbs are zero.
func (l Limbs) IsZero() bool {
	return l.Hi.IsZero() && l.Lo.IsZero()
}

// Equal compares limbs by value.
func (l Limbs) Equal(other Limbs) bool {
	return l.Hi.Eq(&other.Hi) && l.Lo.Eq(&other.Lo)
}

// String renders the limbs as the hex of the reassembled hash.
func (l Limbs) String() string {
	b := l.Bytes()
	return fmt.Sprintf("%x", b[:])
}
