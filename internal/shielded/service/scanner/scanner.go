package scanner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/shielded-bridge-watcher/internal/circuit"
	"github.com/goodnatureofminers/shielded-bridge-watcher/internal/clock"
	"github.com/goodnatureofminers/shielded-bridge-watcher/internal/shielded/model"
	"github.com/goodnatureofminers/shielded-bridge-watcher/internal/shielded/tracker"
)

// Config selects what a Scanner watches and where it starts.
type Config struct {
	Coin    model.Coin
	Network model.Network
	// StartHeight is used when no checkpoint was restored. Zero means tip minus StartOffset.
	StartHeight uint64
	StartOffset uint64
	// Window is the maximum number of heights past the cursor scanned per pass.
	Window    uint64
	TreeDepth int
	Combiner  circuit.Combiner
}

// Scanner owns the scan cursor and the confirmation tracker of one viewing-key set.
// Run must not be called concurrently; Snapshot may be.
type Scanner struct {
	logger    *zap.Logger
	coin      model.Coin
	network   model.Network
	ledger    Ledger
	decryptor Decryptor
	submitter Submitter
	journal   Journal
	metrics   Metrics
	proofs    *circuit.ProofBuilder
	tracker   *tracker.Tracker
	status    *status

	cursor      uint64
	cursorSet   bool
	startHeight uint64
	startOffset uint64
	window      uint64
	pending     map[model.TxID]*pendingDetection

	sleep        func(context.Context, time.Duration) error
	now          func() time.Time
	retryDelay   time.Duration
	pollInterval time.Duration
	batchDelay   time.Duration
	blockSignal  <-chan struct{}
}

// New builds a Scanner. blockSignal may be nil; when set, an idle scanner wakes on it.
func New(
	cfg Config,
	ledger Ledger,
	decryptor Decryptor,
	submitter Submitter,
	journal Journal,
	metrics Metrics,
	logger *zap.Logger,
	blockSignal <-chan struct{},
) (*Scanner, error) {
	switch {
	case ledger == nil:
		return nil, errors.New("scanner ledger is required")
	case decryptor == nil:
		return nil, errors.New("scanner decryptor is required")
	case submitter == nil:
		return nil, errors.New("scanner submitter is required")
	case journal == nil:
		return nil, errors.New("scanner journal is required")
	case metrics == nil:
		return nil, errors.New("scanner metrics is required")
	}

	combine := cfg.Combiner
	if combine == nil {
		combine = circuit.SHA256Combiner{}
	}
	depth := cfg.TreeDepth
	if depth == 0 {
		depth = circuit.TreeDepth
	}
	proofs, err := circuit.NewProofBuilder(depth, combine)
	if err != nil {
		return nil, fmt.Errorf("proof builder: %w", err)
	}
	window := cfg.Window
	if window == 0 {
		window = defaultWindow
	}

	return &Scanner{
		logger: logger.With(
			zap.String("coin", string(cfg.Coin)),
			zap.String("network", string(cfg.Network)),
		),
		coin:         cfg.Coin,
		network:      cfg.Network,
		ledger:       ledger,
		decryptor:    decryptor,
		submitter:    submitter,
		journal:      journal,
		metrics:      metrics,
		proofs:       proofs,
		tracker:      tracker.New(),
		status:       newStatus(cfg.Coin, cfg.Network),
		startHeight:  cfg.StartHeight,
		startOffset:  cfg.StartOffset,
		window:       window,
		pending:      make(map[model.TxID]*pendingDetection),
		sleep:        clock.SleepWithContext,
		now:          time.Now,
		retryDelay:   retryDelay,
		pollInterval: pollInterval,
		batchDelay:   batchDelay,
		blockSignal:  blockSignal,
	}, nil
}

// Restore rehydrates the tracker and the cursor from persisted state. A missing
// checkpoint leaves the cursor to be derived from the first observed tip.
func (s *Scanner) Restore(ctx context.Context, repo Repository) error {
	subs, err := repo.Submissions(ctx, s.coin, s.network)
	if err != nil {
		return fmt.Errorf("load submissions: %w", err)
	}
	records := make(map[model.TxID]uint32, len(subs))
	for _, sub := range subs {
		if prev, ok := records[sub.TxID]; !ok || sub.Confirmations > prev {
			records[sub.TxID] = sub.Confirmations
		}
	}
	s.tracker.Restore(records)

	cp, err := repo.Checkpoint(ctx, s.coin, s.network)
	switch {
	case errors.Is(err, model.ErrCheckpointNotFound):
		s.logger.Info("no checkpoint found; cursor follows start settings", zap.Int("tracked", s.tracker.Len()))
	case err != nil:
		return fmt.Errorf("load checkpoint: %w", err)
	default:
		s.cursor = cp.Cursor
		s.cursorSet = true
		s.logger.Info("scanner state restored", zap.Uint64("cursor", cp.Cursor), zap.Int("tracked", s.tracker.Len()))
	}

	s.metrics.SetProgress(s.cursor, s.tracker.Len())
	s.status.setProgress(s.cursor, s.tracker.Len(), len(s.pending))
	return nil
}

// Run scans until the context is canceled.
func (s *Scanner) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.run(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.status.setError(err, time.Now())
			s.logger.Warn("run iteration failed, backing off", zap.Error(err), zap.Duration("sleep", s.retryDelay))
			if sleepErr := s.sleep(ctx, s.retryDelay); sleepErr != nil {
				return sleepErr
			}
		}
	}
}

func (s *Scanner) run(ctx context.Context) error {
	started := time.Now()
	tip, err := s.ledger.LatestHeight(ctx)
	s.metrics.ObserveFetchTip(err, tip, started)
	if err != nil {
		return fmt.Errorf("fetch chain tip: %w", err)
	}
	s.status.setTip(tip)

	if !s.cursorSet {
		s.cursor = initialCursor(tip, s.startHeight, s.startOffset)
		s.cursorSet = true
		s.logger.Info("scan cursor initialized", zap.Uint64("cursor", s.cursor), zap.Uint64("tip", tip))
	}

	if err = s.retryRejected(ctx, tip); err != nil {
		return err
	}

	from, to, ok := ComputeRange(s.cursor, tip, s.window)
	if !ok {
		s.logger.Debug("cursor at chain tip; waiting", zap.Uint64("cursor", s.cursor), zap.Duration("sleep", s.pollInterval))
		return s.wait(ctx, s.pollInterval)
	}

	started = time.Now()
	blocks, err := s.ledger.FetchBlocks(ctx, from, to)
	if err != nil {
		s.metrics.ObserveProcessRange(err, 0, started)
		return fmt.Errorf("fetch blocks %d..%d: %w", from, to, err)
	}
	for _, b := range blocks {
		if err = s.processBlock(ctx, b, tip); err != nil {
			s.metrics.ObserveProcessRange(err, len(blocks), started)
			return fmt.Errorf("process block %d: %w", b.Height, err)
		}
	}
	s.metrics.ObserveProcessRange(nil, len(blocks), started)
	s.logger.Debug("range scanned", zap.Uint64("from", from), zap.Uint64("to", to), zap.Uint64("tip", tip))

	s.advance(ctx, to)
	return s.wait(ctx, s.batchDelay)
}

func (s *Scanner) advance(ctx context.Context, to uint64) {
	s.cursor = to
	if err := s.journal.SaveCheckpoint(ctx, to); err != nil {
		s.logger.Warn("checkpoint not journaled", zap.Uint64("cursor", to), zap.Error(err))
	}
	s.metrics.SetProgress(s.cursor, s.tracker.Len())
	s.status.setProgress(s.cursor, s.tracker.Len(), len(s.pending))
}

func (s *Scanner) wait(ctx context.Context, d time.Duration) error {
	if s.blockSignal == nil {
		return s.sleep(ctx, d)
	}
	return clock.WaitOrSignal(ctx, d, s.blockSignal)
}

// Snapshot returns the last published progress. Safe for concurrent use.
func (s *Scanner) Snapshot() Snapshot {
	return s.status.snapshot()
}
