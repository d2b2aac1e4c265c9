package model

import "errors"

var (
	// ErrTransientFetch marks a ledger or decryptor failure worth retrying.
	ErrTransientFetch = errors.New("transient fetch failure")
	// ErrTransactionNotFound is returned when the node does not know a txid.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrDecodeFailure marks a transaction that could not be parsed.
	ErrDecodeFailure = errors.New("decode failure")
	// ErrSubmissionRejected marks a backend refusal or transport failure on submit/update.
	ErrSubmissionRejected = errors.New("submission rejected")
	// ErrCheckpointNotFound is returned when no cursor was persisted yet.
	ErrCheckpointNotFound = errors.New("checkpoint not found")
)
