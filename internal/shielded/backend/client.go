// Package backend reports detections and confirmation updates to the bridge backend.
package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/goodnatureofminers/shielded-bridge-watcher/internal/circuit"
	"github.com/goodnatureofminers/shielded-bridge-watcher/internal/pkg/httpjson"
	"github.com/goodnatureofminers/shielded-bridge-watcher/internal/shielded/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

const (
	// SecretHeader carries the shared watcher secret.
	SecretHeader = "X-Watcher-Secret"

	submitPath              = "/api/watcher/submit"
	updateConfirmationsPath = "/api/watcher/update-confirmations"
)

type (
	Poster interface {
		Post(ctx context.Context, operation, path string, in, out any) error
	}
)

type (
	submitRequest struct {
		TxID          string               `json:"txid"`
		Amount        uint64               `json:"amount"`
		Recipient     string               `json:"recipient"`
		Confirmations uint32               `json:"confirmations"`
		TxData        circuit.CircuitInput `json:"txData"`
	}
	submitResponse struct {
		Success     bool         `json:"success"`
		Error       string       `json:"error,omitempty"`
		Transaction *transaction `json:"transaction,omitempty"`
	}
	transaction struct {
		TxID   string `json:"txid"`
		Status string `json:"status"`
	}
	updateRequest struct {
		TxID          string `json:"txid"`
		Confirmations uint32 `json:"confirmations"`
	}
)

// Client talks to the watcher endpoints of the backend.
type Client struct {
	poster Poster
}

func New(poster Poster) *Client {
	return &Client{poster: poster}
}

// Headers returns the headers every backend request must carry.
func Headers(secret string) http.Header {
	h := http.Header{}
	h.Set(SecretHeader, secret)
	return h
}

// Submit hands a detection and its circuit input to the backend. A non-2xx reply or
// success=false is reported as model.ErrSubmissionRejected.
func (c *Client) Submit(ctx context.Context, d model.Detection, txData circuit.CircuitInput) error {
	req := submitRequest{
		TxID:          d.TxID.Hex(),
		Amount:        d.Value,
		Recipient:     d.Recipient,
		Confirmations: d.Confirmations,
		TxData:        txData,
	}
	var resp submitResponse
	if err := c.poster.Post(ctx, "submit", submitPath, req, &resp); err != nil {
		return classify(d.TxID, err)
	}
	if !resp.Success {
		reason := resp.Error
		if reason == "" {
			reason = "success=false"
		}
		return fmt.Errorf("%w: submit %s: %s", model.ErrSubmissionRejected, d.TxID, reason)
	}
	return nil
}

// UpdateConfirmations pushes a new confirmation count for a reported txid.
func (c *Client) UpdateConfirmations(ctx context.Context, txid model.TxID, confirmations uint32) error {
	req := updateRequest{TxID: txid.Hex(), Confirmations: confirmations}
	if err := c.poster.Post(ctx, "update_confirmations", updateConfirmationsPath, req, nil); err != nil {
		return classify(txid, err)
	}
	return nil
}

func classify(txid model.TxID, err error) error {
	var statusErr *httpjson.StatusError
	if errors.As(err, &statusErr) {
		return fmt.Errorf("%w: %s: %v", model.ErrSubmissionRejected, txid, statusErr)
	}
	return fmt.Errorf("backend request for %s: %w", txid, err)
}
