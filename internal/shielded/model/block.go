// Package model defines domain models for the shielded bridge watcher.
package model

import (
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Block is a ledger block reduced to what the watcher needs. TxIDs keep block order,
// which is also the Merkle leaf order.
type Block struct {
	Height uint64
	Hash   chainhash.Hash
	TxIDs  []TxID
}

// Leaves returns the txids as Merkle leaves in internal byte order.
func (b Block) Leaves() [][]byte {
	leaves := make([][]byte, len(b.TxIDs))
	for i, id := range b.TxIDs {
		leaves[i] = id.Bytes()
	}
	return leaves
}

// DecryptedOutput is a shielded output the viewing keys could decrypt.
type DecryptedOutput struct {
	Pool  string
	Value uint64
	Memo  []byte
}

// Detection is an incoming shielded payment carrying a destination address in its memo.
type Detection struct {
	TxID          TxID
	Height        uint64
	Value         uint64
	Recipient     string
	Confirmations uint32
	Memo          []byte
}

// SubmissionStatus describes the state of a reported transaction.
type SubmissionStatus string

var (
	// SubmissionSubmitted marks a detection accepted by the backend.
	SubmissionSubmitted SubmissionStatus = "submitted"
	// SubmissionUpdated marks a confirmation update accepted by the backend.
	SubmissionUpdated SubmissionStatus = "updated"
)

// Submission is a durable record of a reported txid and the last confirmations sent.
type Submission struct {
	Coin          Coin
	Network       Network
	TxID          TxID
	Height        uint64
	Amount        uint64
	Recipient     string
	Confirmations uint32
	Status        SubmissionStatus
	UpdatedAt     time.Time
}

// Checkpoint is the persisted scan cursor.
type Checkpoint struct {
	Coin      Coin
	Network   Network
	Cursor    uint64
	UpdatedAt time.Time
}
