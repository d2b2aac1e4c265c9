// Package zcash talks to a zcashd-compatible node and decodes the transparent parts of its transactions.
package zcash

import (
	"encoding/json"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	// RPCMetrics records metrics for RPC calls.
	RPCMetrics interface {
		Observe(operation string, err error, started time.Time)
	}
	// Node is the subset of the btcd rpcclient used against zcashd.
	Node interface {
		GetBlockCount() (int64, error)
		GetBlockHash(blockHeight int64) (*chainhash.Hash, error)
		RawRequest(method string, params []json.RawMessage) (json.RawMessage, error)
	}
	// RPC is the instrumented client the ledger works with.
	RPC interface {
		GetBlockCount() (int64, error)
		GetBlockHash(blockHeight int64) (*chainhash.Hash, error)
		GetBlockTxIDs(blockHash *chainhash.Hash) (*BlockTxIDs, error)
		GetRawTransaction(txid *chainhash.Hash) ([]byte, error)
	}
)

// BlockTxIDs is the part of a `getblock <hash> 1` reply the watcher reads.
type BlockTxIDs struct {
	Hash   string   `json:"hash"`
	Height int64    `json:"height"`
	Tx     []string `json:"tx"`
}
