package model

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// TxID is a transaction id in internal (wire) byte order. Merkle leaves use this order.
type TxID chainhash.Hash

// TxIDFromDisplay parses the byte-reversed hex form printed by nodes and explorers.
func TxIDFromDisplay(s string) (TxID, error) {
	if len(s) != 2*chainhash.HashSize {
		return TxID{}, fmt.Errorf("parse txid %q: want %d hex chars", s, 2*chainhash.HashSize)
	}
	h, err := chainhash.NewHashFromStr(s)
	if err != nil {
		return TxID{}, fmt.Errorf("parse txid %q: %w", s, err)
	}
	return TxID(*h), nil
}

// TxIDFromHex parses hex in internal byte order, the form used on the backend wire.
func TxIDFromHex(s string) (TxID, error) {
	var id TxID
	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("parse txid %q: %w", s, err)
	}
	if len(raw) != len(id) {
		return id, fmt.Errorf("parse txid %q: want %d bytes, got %d", s, len(id), len(raw))
	}
	copy(id[:], raw)
	return id, nil
}

// Bytes returns a copy of the id in internal order.
func (id TxID) Bytes() []byte {
	out := make([]byte, len(id))
	copy(out, id[:])
	return out
}

// Hex is the lowercase hex of the internal byte order.
func (id TxID) Hex() string {
	return hex.EncodeToString(id[:])
}

// String is the display (byte-reversed) form.
func (id TxID) String() string {
	return chainhash.Hash(id).String()
}

// Hash converts the id for RPC calls that take a chainhash.
func (id TxID) Hash() *chainhash.Hash {
	h := chainhash.Hash(id)
	return &h
}
