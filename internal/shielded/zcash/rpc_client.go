package zcash

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"

	"github.com/goodnatureofminers/shielded-bridge-watcher/internal/shielded/model"
)

// RPCClient wraps the node client with metrics instrumentation. getblock and
// getrawtransaction go through RawRequest because zcashd replies do not fit the
// bitcoin-shaped btcjson results.
type RPCClient struct {
	client     Node
	rpcMetrics RPCMetrics
}

var _ Node = (*rpcclient.Client)(nil)

// NewRPCClient constructs an instrumented RPC client.
func NewRPCClient(client Node, rpcMetrics RPCMetrics) *RPCClient {
	return &RPCClient{
		client:     client,
		rpcMetrics: rpcMetrics,
	}
}

// GetBlockCount returns the height of the best chain tip.
func (r *RPCClient) GetBlockCount() (count int64, err error) {
	started := time.Now()
	defer func() {
		r.rpcMetrics.Observe("get_block_count", err, started)
	}()
	return r.client.GetBlockCount()
}

// GetBlockHash returns the block hash for a height.
func (r *RPCClient) GetBlockHash(blockHeight int64) (hash *chainhash.Hash, err error) {
	started := time.Now()
	defer func() {
		r.rpcMetrics.Observe("get_block_hash", err, started)
	}()
	return r.client.GetBlockHash(blockHeight)
}

// GetBlockTxIDs returns the block's txids in block order.
func (r *RPCClient) GetBlockTxIDs(blockHash *chainhash.Hash) (res *BlockTxIDs, err error) {
	started := time.Now()
	defer func() {
		r.rpcMetrics.Observe("get_block", err, started)
	}()

	params, err := marshalParams(blockHash.String(), 1)
	if err != nil {
		return nil, err
	}
	raw, err := r.client.RawRequest("getblock", params)
	if err != nil {
		return nil, err
	}
	res = &BlockTxIDs{}
	if err = json.Unmarshal(raw, res); err != nil {
		return nil, fmt.Errorf("decode getblock reply: %w", err)
	}
	return res, nil
}

// GetRawTransaction returns the serialized transaction. Unknown txids yield
// model.ErrTransactionNotFound.
func (r *RPCClient) GetRawTransaction(txid *chainhash.Hash) (tx []byte, err error) {
	started := time.Now()
	defer func() {
		r.rpcMetrics.Observe("get_raw_transaction", err, started)
	}()

	params, err := marshalParams(txid.String(), 0)
	if err != nil {
		return nil, err
	}
	raw, err := r.client.RawRequest("getrawtransaction", params)
	if err != nil {
		var rpcErr *btcjson.RPCError
		if errors.As(err, &rpcErr) && rpcErr.Code == btcjson.ErrRPCNoTxInfo {
			return nil, fmt.Errorf("%w: %s", model.ErrTransactionNotFound, txid)
		}
		return nil, err
	}

	var encoded string
	if err = json.Unmarshal(raw, &encoded); err != nil {
		return nil, fmt.Errorf("%w: getrawtransaction reply: %v", model.ErrDecodeFailure, err)
	}
	tx, err = hex.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: transaction hex: %v", model.ErrDecodeFailure, err)
	}
	return tx, nil
}

func marshalParams(params ...any) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(params))
	for _, p := range params {
		b, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("marshal rpc param: %w", err)
		}
		out = append(out, b)
	}
	return out, nil
}
