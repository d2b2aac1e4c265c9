package scanner

import (
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/shielded-bridge-watcher/internal/shielded/model"
)

const testRecipient = "0x52908400098527886E0F7030069857D2E4169EE7"

type deps struct {
	ledger    *MockLedger
	decryptor *MockDecryptor
	submitter *MockSubmitter
	journal   *MockJournal
	metrics   *MockMetrics
	sleeps    []time.Duration
	now       time.Time
}

func newTestScanner(t *testing.T, ctrl *gomock.Controller) (*Scanner, *deps) {
	t.Helper()

	d := &deps{
		ledger:    NewMockLedger(ctrl),
		decryptor: NewMockDecryptor(ctrl),
		submitter: NewMockSubmitter(ctrl),
		journal:   NewMockJournal(ctrl),
		metrics:   NewMockMetrics(ctrl),
		now:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	s, err := New(
		Config{Coin: model.ZEC, Network: model.Testnet, StartOffset: 5, TreeDepth: 2},
		d.ledger, d.decryptor, d.submitter, d.journal, d.metrics,
		zap.NewNop(), nil,
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	s.sleep = func(_ context.Context, dur time.Duration) error {
		d.sleeps = append(d.sleeps, dur)
		return nil
	}
	s.now = func() time.Time { return d.now }
	return s, d
}

func txid(b byte) model.TxID {
	var id model.TxID
	for i := range id {
		id[i] = b
	}
	return id
}

// rawSaplingTx is a v4 transaction with no transparent inputs and one transparent
// output of value carrying script, followed by opaque shielded data.
func rawSaplingTx(value uint64, script []byte) []byte {
	raw := []byte{
		0x04, 0x00, 0x00, 0x80, // version 4, overwintered
		0x85, 0x20, 0x2f, 0x89, // sapling version group
		0x00, // vin
		0x01, // vout
	}
	raw = binary.LittleEndian.AppendUint64(raw, value)
	raw = append(raw, byte(len(script)))
	raw = append(raw, script...)
	return append(raw, 0xde, 0xad, 0xbe, 0xef)
}

func memoFor(addr string) []byte {
	memo := make([]byte, 512)
	copy(memo, addr)
	return memo
}
