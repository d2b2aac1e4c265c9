// Package scanner follows the shielded ledger, reports bridge deposits and keeps
// their confirmation counts current.
package scanner

import (
	"context"
	"time"

	"github.com/goodnatureofminers/shielded-bridge-watcher/internal/circuit"
	"github.com/goodnatureofminers/shielded-bridge-watcher/internal/shielded/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	Ledger interface {
		LatestHeight(ctx context.Context) (uint64, error)
		FetchBlocks(ctx context.Context, from, to uint64) ([]model.Block, error)
		FetchRawTransaction(ctx context.Context, txid model.TxID) ([]byte, error)
	}
	Decryptor interface {
		Decrypt(ctx context.Context, txid model.TxID, height uint64, rawTx []byte) ([]model.DecryptedOutput, error)
	}
	Submitter interface {
		Submit(ctx context.Context, d model.Detection, txData circuit.CircuitInput) error
		UpdateConfirmations(ctx context.Context, txid model.TxID, confirmations uint32) error
	}
	Journal interface {
		RecordSubmission(ctx context.Context, s model.Submission) error
		SaveCheckpoint(ctx context.Context, cursor uint64) error
	}
	Repository interface {
		InsertSubmissions(ctx context.Context, subs []model.Submission) error
		SaveCheckpoint(ctx context.Context, cp model.Checkpoint) error
		Submissions(ctx context.Context, coin model.Coin, network model.Network) ([]model.Submission, error)
		Checkpoint(ctx context.Context, coin model.Coin, network model.Network) (model.Checkpoint, error)
	}
	Metrics interface {
		ObserveFetchTip(err error, tip uint64, started time.Time)
		ObserveProcessRange(err error, blocks int, started time.Time)
		ObserveTransaction(outcome string)
		SetProgress(cursor uint64, tracked int)
	}
)
