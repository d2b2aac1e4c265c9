// Package decryptor asks a trial-decryption sidecar which shielded outputs of a
// transaction belong to the configured viewing keys.
package decryptor

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"

	"github.com/goodnatureofminers/shielded-bridge-watcher/internal/pkg/httpjson"
	"github.com/goodnatureofminers/shielded-bridge-watcher/internal/shielded/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

const decryptPath = "/decrypt"

type (
	Poster interface {
		Post(ctx context.Context, operation, path string, in, out any) error
	}
)

type (
	decryptRequest struct {
		TxID        string   `json:"txid"`
		Height      uint64   `json:"height"`
		RawTx       string   `json:"rawTx"`
		ViewingKeys []string `json:"viewingKeys"`
	}
	decryptResponse struct {
		Outputs []decryptedOutput `json:"outputs"`
	}
	decryptedOutput struct {
		Pool  string `json:"pool"`
		Value uint64 `json:"value"`
		Memo  string `json:"memo"`
	}
)

// Client is bound to one set of viewing keys.
type Client struct {
	poster      Poster
	viewingKeys []string
}

func New(poster Poster, viewingKeys []string) (*Client, error) {
	if len(viewingKeys) == 0 {
		return nil, fmt.Errorf("at least one viewing key is required")
	}
	keys := make([]string, len(viewingKeys))
	copy(keys, viewingKeys)
	return &Client{poster: poster, viewingKeys: keys}, nil
}

// Decrypt returns the outputs the keys can decrypt, possibly none. A 400 or 422 reply
// means the sidecar could not parse the transaction and is wrapped with
// model.ErrDecodeFailure; every other failure is wrapped with model.ErrTransientFetch.
func (c *Client) Decrypt(ctx context.Context, txid model.TxID, height uint64, rawTx []byte) ([]model.DecryptedOutput, error) {
	req := decryptRequest{
		TxID:        txid.String(),
		Height:      height,
		RawTx:       hex.EncodeToString(rawTx),
		ViewingKeys: c.viewingKeys,
	}
	var resp decryptResponse
	if err := c.poster.Post(ctx, "decrypt", decryptPath, req, &resp); err != nil {
		return nil, classify(txid, err)
	}

	outputs := make([]model.DecryptedOutput, 0, len(resp.Outputs))
	for i, o := range resp.Outputs {
		memo, err := hex.DecodeString(o.Memo)
		if err != nil {
			return nil, fmt.Errorf("%w: output %d memo of %s: %v", model.ErrDecodeFailure, i, txid, err)
		}
		outputs = append(outputs, model.DecryptedOutput{Pool: o.Pool, Value: o.Value, Memo: memo})
	}
	return outputs, nil
}

func classify(txid model.TxID, err error) error {
	var statusErr *httpjson.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			return fmt.Errorf("%w: decrypt %s: %v", model.ErrDecodeFailure, txid, err)
		}
	}
	return fmt.Errorf("%w: decrypt %s: %v", model.ErrTransientFetch, txid, err)
}
