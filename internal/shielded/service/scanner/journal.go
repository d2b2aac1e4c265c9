package scanner

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/shielded-bridge-watcher/internal/shielded/model"
	"github.com/goodnatureofminers/shielded-bridge-watcher/pkg/batcher"
)

type journalEntry struct {
	submission *model.Submission
	checkpoint *model.Checkpoint
}

// BatchJournal writes tracker changes and checkpoints behind the scan loop. A
// checkpoint is saved only after every submission queued before it was stored;
// submissions of a failed flush are carried into the next one. A persisted cursor
// therefore never runs ahead of the submissions recorded below it.
type BatchJournal struct {
	coin    model.Coin
	network model.Network
	repo    Repository
	batcher *batcher.Batcher[journalEntry]
	now     func() time.Time

	// carried is only touched by flush, which the batcher runs on one goroutine.
	carried []model.Submission
}

func NewBatchJournal(repo Repository, coin model.Coin, network model.Network, logger *zap.Logger) *BatchJournal {
	j := &BatchJournal{
		coin:    coin,
		network: network,
		repo:    repo,
		now:     time.Now,
	}
	j.batcher = batcher.New[journalEntry](
		logger.Named("journal"),
		j.flush,
		journalFlushSize,
		journalFlushInterval,
		journalFlushRPS,
	)
	return j
}

// Start begins the background flushing loop.
func (j *BatchJournal) Start(ctx context.Context) {
	j.batcher.Start(ctx)
}

// Stop flushes whatever is queued and stops.
func (j *BatchJournal) Stop() {
	j.batcher.Stop()
}

func (j *BatchJournal) RecordSubmission(ctx context.Context, sub model.Submission) error {
	sub.Coin = j.coin
	sub.Network = j.network
	if sub.UpdatedAt.IsZero() {
		sub.UpdatedAt = j.now().UTC()
	}
	return j.batcher.Add(ctx, journalEntry{submission: &sub})
}

func (j *BatchJournal) SaveCheckpoint(ctx context.Context, cursor uint64) error {
	cp := model.Checkpoint{
		Coin:      j.coin,
		Network:   j.network,
		Cursor:    cursor,
		UpdatedAt: j.now().UTC(),
	}
	return j.batcher.Add(ctx, journalEntry{checkpoint: &cp})
}

func (j *BatchJournal) flush(ctx context.Context, entries []journalEntry) error {
	var (
		subs = append([]model.Submission(nil), j.carried...)
		cp   *model.Checkpoint
	)
	for _, e := range entries {
		switch {
		case e.submission != nil:
			subs = append(subs, *e.submission)
		case e.checkpoint != nil:
			cp = e.checkpoint
		}
	}

	if len(subs) > 0 {
		if err := j.repo.InsertSubmissions(ctx, subs); err != nil {
			j.carried = subs
			return fmt.Errorf("insert %d submissions: %w", len(subs), err)
		}
	}
	j.carried = nil
	if cp != nil {
		if err := j.repo.SaveCheckpoint(ctx, *cp); err != nil {
			return fmt.Errorf("save checkpoint %d: %w", cp.Cursor, err)
		}
	}
	return nil
}
