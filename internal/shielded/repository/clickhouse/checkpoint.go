package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/shielded-bridge-watcher/internal/shielded/model"
)

const (
	saveCheckpointQuery = `
INSERT INTO scan_checkpoints (
	coin,
	network,
	cursor_height,
	updated_at
) VALUES`

	checkpointQuery = `
SELECT
	argMax(cursor_height, updated_at) AS cursor_height,
	max(updated_at) AS updated_at
FROM scan_checkpoints
WHERE coin = ? AND network = ?
GROUP BY coin, network`
)

// SaveCheckpoint records the scan cursor.
func (r *Repository) SaveCheckpoint(ctx context.Context, cp model.Checkpoint) error {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("save_checkpoint", cp.Coin, cp.Network, err, start)
	}()

	batch, err := r.conn.PrepareBatch(ctx, saveCheckpointQuery)
	if err != nil {
		return fmt.Errorf("prepare checkpoint batch: %w", err)
	}
	updatedAt := cp.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = start
	}
	if err = batch.Append(string(cp.Coin), string(cp.Network), cp.Cursor, updatedAt.UTC()); err != nil {
		return fmt.Errorf("append checkpoint: %w", err)
	}
	if err = batch.Send(); err != nil {
		return fmt.Errorf("insert checkpoint: %w", err)
	}
	return nil
}

// Checkpoint returns the newest cursor, or model.ErrCheckpointNotFound.
func (r *Repository) Checkpoint(ctx context.Context, coin model.Coin, network model.Network) (cp model.Checkpoint, err error) {
	start := time.Now()
	defer func() {
		r.metrics.Observe("checkpoint", coin, network, err, start)
	}()

	rows, err := r.conn.Query(ctx, checkpointQuery, string(coin), string(network))
	if err != nil {
		return model.Checkpoint{}, fmt.Errorf("query checkpoint: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close rows: %w", closeErr)
		}
	}()

	if !rows.Next() {
		if err = rows.Err(); err != nil {
			return model.Checkpoint{}, fmt.Errorf("iterate checkpoint: %w", err)
		}
		return model.Checkpoint{}, model.ErrCheckpointNotFound
	}

	cp = model.Checkpoint{Coin: coin, Network: network}
	if err = rows.Scan(&cp.Cursor, &cp.UpdatedAt); err != nil {
		return model.Checkpoint{}, fmt.Errorf("scan checkpoint: %w", err)
	}
	if err = rows.Err(); err != nil {
		return model.Checkpoint{}, fmt.Errorf("iterate checkpoint: %w", err)
	}
	return cp, nil
}
