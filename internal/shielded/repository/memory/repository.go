// Package memory is a process-lifetime repository. It lets the watcher run the same
// journal and restore path without a database; nothing survives a restart.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/goodnatureofminers/shielded-bridge-watcher/internal/shielded/model"
)

type scopeKey struct {
	coin    model.Coin
	network model.Network
}

type Repository struct {
	mu          sync.RWMutex
	submissions map[scopeKey]map[model.TxID]model.Submission
	checkpoints map[scopeKey]model.Checkpoint
}

func NewRepository() *Repository {
	return &Repository{
		submissions: make(map[scopeKey]map[model.TxID]model.Submission),
		checkpoints: make(map[scopeKey]model.Checkpoint),
	}
}

// Close is a no-op.
func (r *Repository) Close() error {
	return nil
}

// InsertSubmissions folds records in order: the submitted record fixes amount and
// recipient, later records move confirmations and status.
func (r *Repository) InsertSubmissions(ctx context.Context, subs []model.Submission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, sub := range subs {
		key := scopeKey{sub.Coin, sub.Network}
		byTxID, ok := r.submissions[key]
		if !ok {
			byTxID = make(map[model.TxID]model.Submission)
			r.submissions[key] = byTxID
		}
		prev, seen := byTxID[sub.TxID]
		if seen && sub.Status != model.SubmissionSubmitted {
			sub.Amount = prev.Amount
			sub.Recipient = prev.Recipient
		}
		byTxID[sub.TxID] = sub
	}
	return nil
}

func (r *Repository) Submissions(ctx context.Context, coin model.Coin, network model.Network) ([]model.Submission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	byTxID := r.submissions[scopeKey{coin, network}]
	subs := make([]model.Submission, 0, len(byTxID))
	for _, sub := range byTxID {
		subs = append(subs, sub)
	}
	sort.Slice(subs, func(i, j int) bool {
		if subs[i].Height != subs[j].Height {
			return subs[i].Height < subs[j].Height
		}
		return subs[i].TxID.Hex() < subs[j].TxID.Hex()
	})
	return subs, nil
}

func (r *Repository) SaveCheckpoint(ctx context.Context, cp model.Checkpoint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkpoints[scopeKey{cp.Coin, cp.Network}] = cp
	return nil
}

func (r *Repository) Checkpoint(ctx context.Context, coin model.Coin, network model.Network) (model.Checkpoint, error) {
	if err := ctx.Err(); err != nil {
		return model.Checkpoint{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	cp, ok := r.checkpoints[scopeKey{coin, network}]
	if !ok {
		return model.Checkpoint{}, model.ErrCheckpointNotFound
	}
	return cp, nil
}
