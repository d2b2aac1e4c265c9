package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/shielded-bridge-watcher/internal/shielded/model"
)

const insertSubmissionsQuery = `
INSERT INTO bridge_submissions (
	coin,
	network,
	txid,
	height,
	amount,
	recipient,
	confirmations,
	status,
	updated_at
) VALUES`

// InsertSubmissions appends submission log rows. Rows are never updated in place;
// readers fold them per txid.
func (r *Repository) InsertSubmissions(ctx context.Context, subs []model.Submission) error {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("insert_submissions", firstCoin(subs), firstNetwork(subs), err, start)
	}()

	if len(subs) == 0 {
		return nil
	}

	batch, err := r.conn.PrepareBatch(ctx, insertSubmissionsQuery)
	if err != nil {
		return fmt.Errorf("prepare submissions batch: %w", err)
	}

	for _, sub := range subs {
		updatedAt := sub.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = start
		}
		if err = batch.Append(
			string(sub.Coin),
			string(sub.Network),
			sub.TxID.Hex(),
			sub.Height,
			sub.Amount,
			sub.Recipient,
			sub.Confirmations,
			string(sub.Status),
			updatedAt.UTC(),
		); err != nil {
			return fmt.Errorf("append submission %s: %w", sub.TxID, err)
		}
	}

	if err = batch.Send(); err != nil {
		return fmt.Errorf("insert submissions: %w", err)
	}
	return nil
}

func firstCoin(subs []model.Submission) model.Coin {
	if len(subs) == 0 {
		return ""
	}
	return subs[0].Coin
}

func firstNetwork(subs []model.Submission) model.Network {
	if len(subs) == 0 {
		return ""
	}
	return subs[0].Network
}
