package scanner

import "time"

const (
	defaultWindow uint64 = 20

	retryDelay   = 5 * time.Second
	pollInterval = 10 * time.Second
	batchDelay   = 3 * time.Second

	maxRejectedBackoff = 10 * time.Minute

	journalFlushSize     = 100
	journalFlushInterval = time.Second
	journalFlushRPS      = 10
)

// Transaction outcomes reported to Metrics.ObserveTransaction.
const (
	OutcomeSubmitted     = "submitted"
	OutcomeRejected      = "rejected"
	OutcomeUnreachable   = "backend_unreachable"
	OutcomeUpdated       = "updated"
	OutcomeUpdateFailed  = "update_failed"
	OutcomeNoOutputs     = "no_outputs"
	OutcomeNoRecipient   = "no_recipient"
	OutcomeNotFound      = "not_found"
	OutcomeDecodeFailed  = "decode_failed"
	OutcomeCircuitFailed = "circuit_failed"
)
