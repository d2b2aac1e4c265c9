//go:build integration

package clickhouse

import (
	"time"

	"github.com/golang/mock/gomock"

	"github.com/goodnatureofminers/shielded-bridge-watcher/internal/shielded/model"
)

func (s *RepositorySuite) TestInsertSubmissions() {
	sub := testSubmission()
	sub.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)

	s.metrics.EXPECT().Observe("insert_submissions", model.ZEC, model.Testnet, gomock.Nil(), gomock.Any()).Times(1)

	s.Require().NoError(s.repo.InsertSubmissions(s.testCtx, []model.Submission{sub}))
	s.Equal(uint64(1), s.countRows("bridge_submissions"))
}

func (s *RepositorySuite) TestSubmissions_FoldsUpdates() {
	base := time.Now().UTC().Truncate(time.Millisecond)

	submitted := testSubmission()
	submitted.UpdatedAt = base

	updated := submitted
	updated.Amount = 0
	updated.Recipient = ""
	updated.Confirmations = 10
	updated.Status = model.SubmissionUpdated
	updated.UpdatedAt = base.Add(time.Minute)

	other := testSubmission()
	other.TxID[0] = 0x01
	other.Height = 90
	other.UpdatedAt = base

	foreign := testSubmission()
	foreign.Network = model.Mainnet
	foreign.UpdatedAt = base

	s.metrics.EXPECT().Observe("insert_submissions", gomock.Any(), gomock.Any(), gomock.Nil(), gomock.Any()).Times(2)
	s.metrics.EXPECT().Observe("submissions", model.ZEC, model.Testnet, gomock.Nil(), gomock.Any()).Times(1)

	s.Require().NoError(s.repo.InsertSubmissions(s.testCtx, []model.Submission{submitted, other, updated}))
	s.Require().NoError(s.repo.InsertSubmissions(s.testCtx, []model.Submission{foreign}))

	got, err := s.repo.Submissions(s.testCtx, model.ZEC, model.Testnet)
	s.Require().NoError(err)
	s.Require().Len(got, 2)

	s.Equal(other.TxID, got[0].TxID)
	s.Equal(uint64(90), got[0].Height)

	s.Equal(submitted.TxID, got[1].TxID)
	s.Equal(submitted.Amount, got[1].Amount)
	s.Equal(submitted.Recipient, got[1].Recipient)
	s.Equal(uint32(10), got[1].Confirmations)
	s.Equal(model.SubmissionUpdated, got[1].Status)
	s.True(updated.UpdatedAt.Equal(got[1].UpdatedAt))
}

func (s *RepositorySuite) TestCheckpoint_NewestWins() {
	base := time.Now().UTC().Truncate(time.Millisecond)

	s.metrics.EXPECT().Observe("checkpoint", model.ZEC, model.Testnet, gomock.Any(), gomock.Any()).Times(2)
	s.metrics.EXPECT().Observe("save_checkpoint", model.ZEC, model.Testnet, gomock.Nil(), gomock.Any()).Times(2)

	_, err := s.repo.Checkpoint(s.testCtx, model.ZEC, model.Testnet)
	s.Require().ErrorIs(err, model.ErrCheckpointNotFound)

	s.Require().NoError(s.repo.SaveCheckpoint(s.testCtx, model.Checkpoint{
		Coin: model.ZEC, Network: model.Testnet, Cursor: 100, UpdatedAt: base,
	}))
	s.Require().NoError(s.repo.SaveCheckpoint(s.testCtx, model.Checkpoint{
		Coin: model.ZEC, Network: model.Testnet, Cursor: 120, UpdatedAt: base.Add(time.Second),
	}))

	cp, err := s.repo.Checkpoint(s.testCtx, model.ZEC, model.Testnet)
	s.Require().NoError(err)
	s.Equal(uint64(120), cp.Cursor)
}
