package zcash

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"

	"github.com/goodnatureofminers/shielded-bridge-watcher/internal/circuit"
	"github.com/goodnatureofminers/shielded-bridge-watcher/internal/shielded/model"
)

const (
	overwinterFlag   = 1 << 31
	maxScriptSize    = 10_000
	maxTransparentIO = 100_000

	versionGroupOverwinter = 0x03C48270
	versionGroupSapling    = 0x892F2085
	versionGroupNU5        = 0x26A7270A
)

// TransparentOutput is a parsed vout entry.
type TransparentOutput struct {
	Value        uint64
	ScriptPubKey []byte
}

// ScriptHash is HASH160 of the output script; it fits a single field element.
func (o TransparentOutput) ScriptHash() [circuit.ScriptHashLen]byte {
	var out [circuit.ScriptHashLen]byte
	copy(out[:], btcutil.Hash160(o.ScriptPubKey))
	return out
}

// CircuitOutputs converts parsed outputs into circuit slots.
func CircuitOutputs(outs []TransparentOutput) []circuit.Output {
	res := make([]circuit.Output, len(outs))
	for i, o := range outs {
		res[i] = circuit.Output{Value: o.Value, ScriptHash: o.ScriptHash()}
	}
	return res
}

// ParseOutputs reads the transaction header and transparent bundle of a v1 to v5
// transaction and returns its outputs. Shielded bundles after vout are not read.
// Any malformed input yields model.ErrDecodeFailure.
func ParseOutputs(raw []byte) ([]TransparentOutput, error) {
	r := bytes.NewReader(raw)

	var header uint32
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, decodeErr("read header", err)
	}
	overwintered := header&overwinterFlag != 0
	version := header &^ overwinterFlag

	if overwintered {
		var group uint32
		if err := binary.Read(r, binary.LittleEndian, &group); err != nil {
			return nil, decodeErr("read version group", err)
		}
		if err := checkVersionGroup(version, group); err != nil {
			return nil, err
		}
		if version >= 5 {
			// consensus branch id, lock time, expiry height
			if _, err := io.CopyN(io.Discard, r, 12); err != nil {
				return nil, decodeErr("read v5 header", err)
			}
		}
	} else if version == 0 || version > 2 {
		return nil, fmt.Errorf("%w: unsupported version %d", model.ErrDecodeFailure, version)
	}

	if err := skipInputs(r); err != nil {
		return nil, err
	}
	return readOutputs(r)
}

func checkVersionGroup(version, group uint32) error {
	var want uint32
	switch version {
	case 3:
		want = versionGroupOverwinter
	case 4:
		want = versionGroupSapling
	case 5:
		want = versionGroupNU5
	default:
		return fmt.Errorf("%w: unsupported overwintered version %d", model.ErrDecodeFailure, version)
	}
	if group != want {
		return fmt.Errorf("%w: version %d group 0x%08x", model.ErrDecodeFailure, version, group)
	}
	return nil
}

func skipInputs(r io.Reader) error {
	count, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return decodeErr("read vin count", err)
	}
	if count > maxTransparentIO {
		return fmt.Errorf("%w: vin count %d", model.ErrDecodeFailure, count)
	}
	for i := uint64(0); i < count; i++ {
		// prevout hash and index
		if _, err := io.CopyN(io.Discard, r, 36); err != nil {
			return decodeErr(fmt.Sprintf("read vin %d prevout", i), err)
		}
		if _, err := wire.ReadVarBytes(r, 0, maxScriptSize, "scriptSig"); err != nil {
			return decodeErr(fmt.Sprintf("read vin %d script", i), err)
		}
		if _, err := io.CopyN(io.Discard, r, 4); err != nil {
			return decodeErr(fmt.Sprintf("read vin %d sequence", i), err)
		}
	}
	return nil
}

func readOutputs(r io.Reader) ([]TransparentOutput, error) {
	count, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return nil, decodeErr("read vout count", err)
	}
	if count > maxTransparentIO {
		return nil, fmt.Errorf("%w: vout count %d", model.ErrDecodeFailure, count)
	}
	outs := make([]TransparentOutput, 0, count)
	for i := uint64(0); i < count; i++ {
		var value uint64
		if err := binary.Read(r, binary.LittleEndian, &value); err != nil {
			return nil, decodeErr(fmt.Sprintf("read vout %d value", i), err)
		}
		script, err := wire.ReadVarBytes(r, 0, maxScriptSize, "scriptPubKey")
		if err != nil {
			return nil, decodeErr(fmt.Sprintf("read vout %d script", i), err)
		}
		outs = append(outs, TransparentOutput{Value: value, ScriptPubKey: script})
	}
	return outs, nil
}

func decodeErr(what string, err error) error {
	return fmt.Errorf("%w: %s: %v", model.ErrDecodeFailure, what, err)
}
