package scanner

import (
	"context"
	"sort"
	"time"

	"github.com/goodnatureofminers/shielded-bridge-watcher/internal/shielded/model"
)

// pendingDetection is a detection the backend did not accept. It stays out of the
// tracker and is inspected again, from decryption on, once notBefore has passed.
// Entries are never dropped; only a later successful submit removes them.
type pendingDetection struct {
	block     model.Block
	index     int
	attempts  int
	notBefore time.Time
}

func (p *pendingDetection) txid() model.TxID {
	return p.block.TxIDs[p.index]
}

// rejectedBackoff doubles retryDelay per counted rejection up to maxRejectedBackoff.
func rejectedBackoff(attempts int) time.Duration {
	if attempts <= 0 {
		return 0
	}
	delay := retryDelay
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= maxRejectedBackoff {
			return maxRejectedBackoff
		}
	}
	return delay
}

// deferRejected queues the detection. A refused detection waits out the backoff for
// attempts; any other failure is due again on the next pass.
func (s *Scanner) deferRejected(b model.Block, index, attempts int, refused bool) time.Time {
	txid := b.TxIDs[index]
	if prev, ok := s.pending[txid]; ok && prev.attempts > attempts {
		attempts = prev.attempts
	}
	notBefore := s.now()
	if refused {
		notBefore = notBefore.Add(rejectedBackoff(attempts))
	}
	s.pending[txid] = &pendingDetection{block: b, index: index, attempts: attempts, notBefore: notBefore}
	return notBefore
}

func (s *Scanner) retryRejected(ctx context.Context, tip uint64) error {
	if len(s.pending) == 0 {
		return nil
	}
	now := s.now()
	queued := make([]*pendingDetection, 0, len(s.pending))
	for _, p := range s.pending {
		if p.notBefore.After(now) {
			continue
		}
		queued = append(queued, p)
	}
	sort.Slice(queued, func(i, j int) bool {
		if queued[i].block.Height != queued[j].block.Height {
			return queued[i].block.Height < queued[j].block.Height
		}
		return queued[i].index < queued[j].index
	})

	for _, p := range queued {
		txid := p.txid()
		delete(s.pending, txid)
		if _, known := s.tracker.Lookup(txid); known {
			continue
		}
		if err := s.inspect(ctx, p.block, p.index, Confirmations(tip, p.block.Height), p.attempts); err != nil {
			if _, requeued := s.pending[txid]; !requeued {
				s.pending[txid] = p
			}
			return err
		}
	}
	return nil
}
