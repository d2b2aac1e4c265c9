package circuit

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
)

// Shape of the deposit circuit. Changing any of these requires a new circuit build.
const (
	TxBytesLen    = 2000
	MemoLen       = 32
	MaxOutputs    = 4
	TreeDepth     = 20
	ScriptHashLen = 20
)

var ErrTooManyOutputs = errors.New("too many transparent outputs")

// Output is one transparent output slot: its value and HASH160 of its script.
type Output struct {
	Value      uint64
	ScriptHash [ScriptHashLen]byte
}

// CircuitInput is the normalized witness. Every variable-length field has been
// truncated or zero-padded to the circuit shape.
type CircuitInput struct {
	TxBytes   [TxBytesLen]byte
	MemoBytes [MemoLen]byte
	Outputs   [MaxOutputs]Output
	Proof     MerkleProof
	TxID      Limbs
}

// Assemble normalizes a detected transaction into circuit form.
// Raw transactions longer than TxBytesLen are truncated; the circuit only sees the prefix.
func Assemble(rawTx, txid []byte, outputs []Output, memo []byte, proof MerkleProof) (CircuitInput, error) {
	var in CircuitInput

	if len(outputs) > MaxOutputs {
		return in, fmt.Errorf("%w: %d > %d", ErrTooManyOutputs, len(outputs), MaxOutputs)
	}
	if len(proof.Siblings) != len(proof.Path) {
		return in, fmt.Errorf("%w: %d siblings, %d path bits", ErrMalformedProof, len(proof.Siblings), len(proof.Path))
	}

	id, err := Split(txid)
	if err != nil {
		return in, fmt.Errorf("txid: %w", err)
	}

	copy(in.TxBytes[:], rawTx)
	copy(in.MemoBytes[:], memo)
	copy(in.Outputs[:], outputs)
	in.Proof = proof
	in.TxID = id
	return in, nil
}

// Witness is the JSON shape the prover expects. Field elements are base-10 strings.
type Witness struct {
	TxBytes         byteList `json:"tx_bytes"`
	MemoBytes       byteList `json:"memo_bytes"`
	OutValues       []uint64 `json:"out_values"`
	OutScriptHashes []string `json:"out_scriptHashes"`
	MerkleSiblingHi []string `json:"merkle_sibling_hi"`
	MerkleSiblingLo []string `json:"merkle_sibling_lo"`
	MerklePathDir   byteList `json:"merkle_path_dir"`
	MerkleRootHi    string   `json:"merkleRoot_hi"`
	MerkleRootLo    string   `json:"merkleRoot_lo"`
	TxIDHi          string   `json:"txId_hi"`
	TxIDLo          string   `json:"txId_lo"`
}

// Witness converts the input into its wire representation.
func (c CircuitInput) Witness() Witness {
	w := Witness{
		TxBytes:         byteList(c.TxBytes[:]),
		MemoBytes:       byteList(c.MemoBytes[:]),
		OutValues:       make([]uint64, MaxOutputs),
		OutScriptHashes: make([]string, MaxOutputs),
		MerkleSiblingHi: make([]string, len(c.Proof.Siblings)),
		MerkleSiblingLo: make([]string, len(c.Proof.Siblings)),
		MerklePathDir:   byteList(c.Proof.Path),
		MerkleRootHi:    c.Proof.Root.Hi.Dec(),
		MerkleRootLo:    c.Proof.Root.Lo.Dec(),
		TxIDHi:          c.TxID.Hi.Dec(),
		TxIDLo:          c.TxID.Lo.Dec(),
	}
	for i, out := range c.Outputs {
		w.OutValues[i] = out.Value
		w.OutScriptHashes[i] = new(big.Int).SetBytes(out.ScriptHash[:]).String()
	}
	for i, s := range c.Proof.Siblings {
		w.MerkleSiblingHi[i] = s.Hi.Dec()
		w.MerkleSiblingLo[i] = s.Lo.Dec()
	}
	return w
}

func (c CircuitInput) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Witness())
}

// byteList marshals as a JSON array of numbers instead of base64.
type byteList []byte

func (b byteList) MarshalJSON() ([]byte, error) {
	out := make([]byte, 0, 2+len(b)*4)
	out = append(out, '[')
	for i, v := range b {
		if i > 0 {
			out = append(out, ',')
		}
		out = strconv.AppendUint(out, uint64(v), 10)
	}
	return append(out, ']'), nil
}

func (b *byteList) UnmarshalJSON(data []byte) error {
	var nums []uint16
	if err := json.Unmarshal(data, &nums); err != nil {
		return err
	}
	out := make([]byte, len(nums))
	for i, v := range nums {
		if v > 0xff {
			return fmt.Errorf("byte value %d out of range", v)
		}
		out[i] = byte(v)
	}
	*b = out
	return nil
}
