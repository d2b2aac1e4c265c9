package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/shielded-bridge-watcher/internal/shielded/model"
)

// Detail columns come from the submit row; confirmations and status from the newest row.
const submissionsQuery = `
SELECT
	txid,
	argMax(height, updated_at) AS height,
	argMaxIf(amount, updated_at, status = 'submitted') AS amount,
	argMaxIf(recipient, updated_at, status = 'submitted') AS recipient,
	max(confirmations) AS confirmations,
	argMax(status, updated_at) AS status,
	max(updated_at) AS updated_at
FROM bridge_submissions
WHERE coin = ? AND network = ?
GROUP BY txid
ORDER BY height, txid`

// Submissions returns the folded state of every reported txid.
func (r *Repository) Submissions(ctx context.Context, coin model.Coin, network model.Network) (subs []model.Submission, err error) {
	start := time.Now()
	defer func() {
		r.metrics.Observe("submissions", coin, network, err, start)
	}()

	rows, err := r.conn.Query(ctx, submissionsQuery, string(coin), string(network))
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close rows: %w", closeErr)
		}
	}()

	for rows.Next() {
		var (
			txid   string
			status string
			sub    = model.Submission{Coin: coin, Network: network}
		)
		if err = rows.Scan(
			&txid,
			&sub.Height,
			&sub.Amount,
			&sub.Recipient,
			&sub.Confirmations,
			&status,
			&sub.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		if sub.TxID, err = model.TxIDFromHex(txid); err != nil {
			return nil, fmt.Errorf("decode submission: %w", err)
		}
		sub.Status = model.SubmissionStatus(status)
		subs = append(subs, sub)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	return subs, nil
}
