// Package tracker remembers which txids were reported and the last confirmation count sent.
package tracker

import (
	"errors"
	"fmt"

	"github.com/goodnatureofminers/shielded-bridge-watcher/internal/shielded/model"
)

var (
	ErrDuplicateTxID = errors.New("txid already recorded")
	ErrUnknownTxID   = errors.New("txid not recorded")
)

// Tracker is not safe for concurrent use; it is owned by a single scanner.
type Tracker struct {
	confirmations map[model.TxID]uint32
}

func New() *Tracker {
	return &Tracker{confirmations: make(map[model.TxID]uint32)}
}

// Restore loads previously persisted records, replacing any existing entry.
func (t *Tracker) Restore(records map[model.TxID]uint32) {
	for id, c := range records {
		t.confirmations[id] = c
	}
}

// Lookup returns the last confirmation count sent for txid.
func (t *Tracker) Lookup(txid model.TxID) (uint32, bool) {
	c, ok := t.confirmations[txid]
	return c, ok
}

// RecordNew stores the confirmations of a freshly accepted submission.
func (t *Tracker) RecordNew(txid model.TxID, confirmations uint32) error {
	if _, ok := t.confirmations[txid]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTxID, txid)
	}
	t.confirmations[txid] = confirmations
	return nil
}

// ShouldUpdate reports whether current has moved more than one block past the last value sent.
func (t *Tracker) ShouldUpdate(txid model.TxID, current uint32) bool {
	prev, ok := t.confirmations[txid]
	if !ok {
		return false
	}
	return uint64(current) > uint64(prev)+1
}

// RecordUpdate stores the confirmations of an accepted update.
func (t *Tracker) RecordUpdate(txid model.TxID, confirmations uint32) error {
	if _, ok := t.confirmations[txid]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTxID, txid)
	}
	t.confirmations[txid] = confirmations
	return nil
}

// Len is the number of tracked txids.
func (t *Tracker) Len() int {
	return len(t.confirmations)
}
