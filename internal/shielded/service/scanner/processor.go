package scanner

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/shielded-bridge-watcher/internal/circuit"
	"github.com/goodnatureofminers/shielded-bridge-watcher/internal/shielded/model"
	"github.com/goodnatureofminers/shielded-bridge-watcher/internal/shielded/recipient"
	"github.com/goodnatureofminers/shielded-bridge-watcher/internal/shielded/zcash"
)

// processBlock handles every transaction of b in block order. Only transient fetch
// failures and cancellation abort the block; every other failure skips one tx.
func (s *Scanner) processBlock(ctx context.Context, b model.Block, tip uint64) error {
	confirmations := Confirmations(tip, b.Height)
	for i, txid := range b.TxIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, known := s.tracker.Lookup(txid); known {
			s.updateConfirmations(ctx, txid, b.Height, confirmations)
			continue
		}
		if err := s.inspect(ctx, b, i, confirmations, 0); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scanner) updateConfirmations(ctx context.Context, txid model.TxID, height uint64, confirmations uint32) {
	if !s.tracker.ShouldUpdate(txid, confirmations) {
		return
	}
	logger := s.logger.With(zap.String("txid", txid.String()), zap.Uint64("height", height))

	if err := s.submitter.UpdateConfirmations(ctx, txid, confirmations); err != nil {
		s.metrics.ObserveTransaction(OutcomeUpdateFailed)
		logger.Warn("confirmation update failed", zap.Uint32("confirmations", confirmations), zap.Error(err))
		return
	}
	if err := s.tracker.RecordUpdate(txid, confirmations); err != nil {
		logger.Error("record confirmation update", zap.Error(err))
		return
	}
	s.metrics.ObserveTransaction(OutcomeUpdated)
	logger.Info("confirmations updated", zap.Uint32("confirmations", confirmations))

	s.journalSubmission(ctx, model.Submission{
		TxID:          txid,
		Height:        height,
		Confirmations: confirmations,
		Status:        model.SubmissionUpdated,
	})
}

// inspect runs detection for an unknown transaction: fetch, decrypt, extract the
// recipient, build the circuit input and submit. attempts counts earlier backend refusals.
func (s *Scanner) inspect(ctx context.Context, b model.Block, index int, confirmations uint32, attempts int) error {
	txid := b.TxIDs[index]
	logger := s.logger.With(zap.String("txid", txid.String()), zap.Uint64("height", b.Height))

	raw, err := s.ledger.FetchRawTransaction(ctx, txid)
	switch {
	case errors.Is(err, model.ErrTransactionNotFound):
		s.metrics.ObserveTransaction(OutcomeNotFound)
		logger.Warn("transaction not served by node; skipping", zap.Error(err))
		return nil
	case errors.Is(err, model.ErrDecodeFailure):
		s.metrics.ObserveTransaction(OutcomeDecodeFailed)
		logger.Warn("transaction undecodable; skipping", zap.Error(err))
		return nil
	case err != nil:
		return fmt.Errorf("fetch transaction %s: %w", txid, err)
	}

	outputs, err := s.decryptor.Decrypt(ctx, txid, b.Height, raw)
	switch {
	case errors.Is(err, model.ErrDecodeFailure):
		s.metrics.ObserveTransaction(OutcomeDecodeFailed)
		logger.Warn("decrypted outputs undecodable; skipping", zap.Error(err))
		return nil
	case err != nil:
		return fmt.Errorf("decrypt transaction %s: %w", txid, err)
	}
	if len(outputs) == 0 {
		s.metrics.ObserveTransaction(OutcomeNoOutputs)
		return nil
	}

	found, ok := recipient.FromOutputs(outputs)
	if !ok {
		s.metrics.ObserveTransaction(OutcomeNoRecipient)
		logger.Info("incoming payment without recipient memo; skipping", zap.Int("outputs", len(outputs)))
		return nil
	}

	transparent, err := zcash.ParseOutputs(raw)
	if err != nil {
		s.metrics.ObserveTransaction(OutcomeDecodeFailed)
		logger.Warn("transparent outputs undecodable; skipping", zap.Error(err))
		return nil
	}
	input, err := s.circuitInput(b, index, raw, zcash.CircuitOutputs(transparent), found.Memo)
	if err != nil {
		s.metrics.ObserveTransaction(OutcomeCircuitFailed)
		logger.Error("circuit input not built; skipping", zap.Error(err))
		return nil
	}

	detection := model.Detection{
		TxID:          txid,
		Height:        b.Height,
		Value:         found.Total,
		Recipient:     found.Recipient,
		Confirmations: confirmations,
		Memo:          found.Memo,
	}
	if err = s.submitter.Submit(ctx, detection, input); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		refused := errors.Is(err, model.ErrSubmissionRejected)
		if refused {
			attempts++
			s.metrics.ObserveTransaction(OutcomeRejected)
		} else {
			s.metrics.ObserveTransaction(OutcomeUnreachable)
		}
		retryAt := s.deferRejected(b, index, attempts, refused)
		logger.Warn("detection not accepted; will retry",
			zap.String("recipient", found.Recipient),
			zap.Int("rejections", attempts),
			zap.Time("retry_at", retryAt),
			zap.Error(err),
		)
		return nil
	}

	if err = s.tracker.RecordNew(txid, confirmations); err != nil {
		logger.Error("record submission", zap.Error(err))
		return nil
	}
	s.metrics.ObserveTransaction(OutcomeSubmitted)
	logger.Info("detection submitted",
		zap.String("recipient", found.Recipient),
		zap.Uint64("amount", found.Total),
		zap.Uint32("confirmations", confirmations),
	)

	s.journalSubmission(ctx, model.Submission{
		TxID:          txid,
		Height:        b.Height,
		Amount:        found.Total,
		Recipient:     found.Recipient,
		Confirmations: confirmations,
		Status:        model.SubmissionSubmitted,
	})
	return nil
}

func (s *Scanner) circuitInput(b model.Block, index int, raw []byte, outputs []circuit.Output, memo []byte) (circuit.CircuitInput, error) {
	if len(outputs) > circuit.MaxOutputs {
		return circuit.CircuitInput{}, fmt.Errorf("%d transparent outputs: %w", len(outputs), circuit.ErrTooManyOutputs)
	}
	proof, err := s.proofs.Build(b.Leaves(), index)
	if err != nil {
		return circuit.CircuitInput{}, fmt.Errorf("merkle proof: %w", err)
	}
	return circuit.Assemble(raw, b.TxIDs[index].Bytes(), outputs, memo, proof)
}

func (s *Scanner) journalSubmission(ctx context.Context, sub model.Submission) {
	sub.Coin = s.coin
	sub.Network = s.network
	if err := s.journal.RecordSubmission(ctx, sub); err != nil {
		s.logger.Warn("submission not journaled", zap.String("txid", sub.TxID.String()), zap.Error(err))
	}
}
