package zcash

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/ratelimit"

	"github.com/goodnatureofminers/shielded-bridge-watcher/internal/shielded/model"
	"github.com/goodnatureofminers/shielded-bridge-watcher/pkg/safe"
	"github.com/goodnatureofminers/shielded-bridge-watcher/pkg/workerpool"
)

const defaultFetchWorkers = 4

// Ledger serves heights, blocks and raw transactions from a node. Transport failures
// are wrapped with model.ErrTransientFetch.
type Ledger struct {
	rpc     RPC
	limiter ratelimit.Limiter
	workers int
}

// NewLedger builds a Ledger. rps <= 0 disables pacing.
func NewLedger(rpc RPC, rps, workers int) *Ledger {
	limiter := ratelimit.NewUnlimited()
	if rps > 0 {
		limiter = ratelimit.New(rps)
	}
	if workers <= 0 {
		workers = defaultFetchWorkers
	}
	return &Ledger{rpc: rpc, limiter: limiter, workers: workers}
}

// LatestHeight returns the node's chain tip.
func (l *Ledger) LatestHeight(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.limiter.Take()
	count, err := l.rpc.GetBlockCount()
	if err != nil {
		return 0, fmt.Errorf("%w: get block count: %v", model.ErrTransientFetch, err)
	}
	height, err := safe.Uint64(count)
	if err != nil {
		return 0, fmt.Errorf("block count overflow: %w", err)
	}
	return height, nil
}

// FetchBlocks returns blocks from..to inclusive, in height order.
func (l *Ledger) FetchBlocks(ctx context.Context, from, to uint64) ([]model.Block, error) {
	if from > to {
		return nil, fmt.Errorf("invalid block range %d..%d", from, to)
	}
	heights := make([]uint64, 0, to-from+1)
	for h := from; ; h++ {
		heights = append(heights, h)
		if h == to {
			break
		}
	}
	return workerpool.Map(ctx, l.workers, heights, l.fetchBlock)
}

func (l *Ledger) fetchBlock(ctx context.Context, height uint64) (model.Block, error) {
	if err := ctx.Err(); err != nil {
		return model.Block{}, err
	}
	h, err := safe.Int64(height)
	if err != nil {
		return model.Block{}, fmt.Errorf("block height %d exceeds rpc limit: %w", height, err)
	}

	l.limiter.Take()
	hash, err := l.rpc.GetBlockHash(h)
	if err != nil {
		return model.Block{}, fmt.Errorf("%w: get block hash at height %d: %v", model.ErrTransientFetch, height, err)
	}
	l.limiter.Take()
	src, err := l.rpc.GetBlockTxIDs(hash)
	if err != nil {
		return model.Block{}, fmt.Errorf("%w: get block %s: %v", model.ErrTransientFetch, hash, err)
	}

	block := model.Block{Height: height, Hash: *hash, TxIDs: make([]model.TxID, 0, len(src.Tx))}
	for _, txid := range src.Tx {
		id, err := model.TxIDFromDisplay(txid)
		if err != nil {
			return model.Block{}, fmt.Errorf("%w: block %s: %v", model.ErrTransientFetch, hash, err)
		}
		block.TxIDs = append(block.TxIDs, id)
	}
	return block, nil
}

// FetchRawTransaction returns the serialized transaction.
func (l *Ledger) FetchRawTransaction(ctx context.Context, txid model.TxID) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.limiter.Take()
	raw, err := l.rpc.GetRawTransaction(txid.Hash())
	if err != nil {
		if errors.Is(err, model.ErrTransactionNotFound) || errors.Is(err, model.ErrDecodeFailure) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: get raw transaction %s: %v", model.ErrTransientFetch, txid, err)
	}
	return raw, nil
}
