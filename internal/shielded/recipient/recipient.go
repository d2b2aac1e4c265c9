// Package recipient extracts the destination-chain address carried in a shielded memo.
package recipient

import (
	"bytes"
	"encoding/hex"
	"strings"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"

	"github.com/goodnatureofminers/shielded-bridge-watcher/internal/shielded/model"
)

const addressLen = 2 + 2*common.AddressLength

// MemoText decodes a memo the way wallets display it: up to the first NUL, UTF-8 if
// valid, hex otherwise.
func MemoText(memo []byte) string {
	if i := bytes.IndexByte(memo, 0); i >= 0 {
		memo = memo[:i]
	}
	if utf8.Valid(memo) {
		return string(memo)
	}
	return hex.EncodeToString(memo)
}

// FromMemo returns the checksummed address when the memo text is exactly a 0x-prefixed
// 20-byte hex address.
func FromMemo(memo []byte) (string, bool) {
	text := MemoText(memo)
	if len(text) != addressLen || !strings.HasPrefix(text, "0x") {
		return "", false
	}
	if !common.IsHexAddress(text) {
		return "", false
	}
	return common.HexToAddress(text).Hex(), true
}

// Result is what a transaction's decrypted outputs resolve to.
type Result struct {
	Recipient string
	Total     uint64
	Memo      []byte
}

// FromOutputs sums every decrypted output and picks the recipient from the last output
// whose memo carries an address. ok is false when no memo does.
func FromOutputs(outputs []model.DecryptedOutput) (Result, bool) {
	var (
		res   Result
		found bool
	)
	for _, out := range outputs {
		res.Total += out.Value
		if addr, ok := FromMemo(out.Memo); ok {
			res.Recipient = addr
			res.Memo = out.Memo
			found = true
		}
	}
	return res, found
}
