// Package redis keeps the watcher's submission state and scan checkpoint in Redis.
//
// Each reported txid is a hash under <prefix>:<coin>:<network>:submission:<txid>, indexed by
// the set <prefix>:<coin>:<network>:submissions. The checkpoint is a hash under
// <prefix>:<coin>:<network>:checkpoint.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/goodnatureofminers/shielded-bridge-watcher/internal/shielded/model"
	"github.com/goodnatureofminers/shielded-bridge-watcher/pkg/safe"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

const (
	keyPrefix   = "shielded_bridge"
	pingTimeout = 10 * time.Second
)

type Metrics interface {
	Observe(operation string, coin model.Coin, network model.Network, err error, started time.Time)
}

type Repository struct {
	client  *redis.Client
	metrics Metrics
}

// NewRepository connects to the server at url (redis://...) and checks it answers.
func NewRepository(ctx context.Context, url string, metrics Metrics) (*Repository, error) {
	if url == "" {
		return nil, errors.New("redis url is required")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Repository{client: client, metrics: metrics}, nil
}

// Close releases the connection pool.
func (r *Repository) Close() error {
	return r.client.Close()
}

func scope(coin model.Coin, network model.Network) string {
	return keyPrefix + ":" + string(coin) + ":" + string(network)
}

func submissionsKey(coin model.Coin, network model.Network) string {
	return scope(coin, network) + ":submissions"
}

func submissionKey(coin model.Coin, network model.Network, txid string) string {
	return scope(coin, network) + ":submission:" + txid
}

func checkpointKey(coin model.Coin, network model.Network) string {
	return scope(coin, network) + ":checkpoint"
}

// InsertSubmissions applies submission records in order inside one MULTI block. A
// submitted record writes every field; later records only move confirmations and status.
func (r *Repository) InsertSubmissions(ctx context.Context, subs []model.Submission) error {
	start := time.Now()
	var err error
	defer func() {
		coin, network := model.Coin(""), model.Network("")
		if len(subs) > 0 {
			coin, network = subs[0].Coin, subs[0].Network
		}
		r.metrics.Observe("insert_submissions", coin, network, err, start)
	}()

	if len(subs) == 0 {
		return nil
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, sub := range subs {
			txid := sub.TxID.Hex()
			updatedAt := sub.UpdatedAt
			if updatedAt.IsZero() {
				updatedAt = start
			}
			fields := map[string]any{
				"height":        sub.Height,
				"confirmations": sub.Confirmations,
				"status":        string(sub.Status),
				"updated_at":    updatedAt.UTC().UnixMilli(),
			}
			if sub.Status == model.SubmissionSubmitted {
				fields["amount"] = sub.Amount
				fields["recipient"] = sub.Recipient
			}
			pipe.HSet(ctx, submissionKey(sub.Coin, sub.Network, txid), fields)
			pipe.SAdd(ctx, submissionsKey(sub.Coin, sub.Network), txid)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("insert submissions: %w", err)
	}
	return nil
}

// Submissions returns the state of every reported txid ordered by height.
func (r *Repository) Submissions(ctx context.Context, coin model.Coin, network model.Network) (subs []model.Submission, err error) {
	start := time.Now()
	defer func() {
		r.metrics.Observe("submissions", coin, network, err, start)
	}()

	txids, err := r.client.SMembers(ctx, submissionsKey(coin, network)).Result()
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	if len(txids) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(txids))
	if _, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, txid := range txids {
			cmds[i] = pipe.HGetAll(ctx, submissionKey(coin, network, txid))
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("load submissions: %w", err)
	}

	subs = make([]model.Submission, 0, len(txids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		sub, decodeErr := decodeSubmission(coin, network, txids[i], fields)
		if decodeErr != nil {
			err = decodeErr
			return nil, err
		}
		subs = append(subs, sub)
	}
	sort.Slice(subs, func(i, j int) bool {
		if subs[i].Height != subs[j].Height {
			return subs[i].Height < subs[j].Height
		}
		return subs[i].TxID.Hex() < subs[j].TxID.Hex()
	})
	return subs, nil
}

func decodeSubmission(coin model.Coin, network model.Network, txid string, fields map[string]string) (model.Submission, error) {
	id, err := model.TxIDFromHex(txid)
	if err != nil {
		return model.Submission{}, fmt.Errorf("decode submission: %w", err)
	}
	sub := model.Submission{
		Coin:      coin,
		Network:   network,
		TxID:      id,
		Recipient: fields["recipient"],
		Status:    model.SubmissionStatus(fields["status"]),
	}
	if sub.Height, err = parseUint(fields, "height", 64); err != nil {
		return model.Submission{}, fmt.Errorf("decode submission %s: %w", txid, err)
	}
	if sub.Amount, err = parseUint(fields, "amount", 64); err != nil {
		return model.Submission{}, fmt.Errorf("decode submission %s: %w", txid, err)
	}
	conf, err := parseUint(fields, "confirmations", 64)
	if err != nil {
		return model.Submission{}, fmt.Errorf("decode submission %s: %w", txid, err)
	}
	if sub.Confirmations, err = safe.Uint32(conf); err != nil {
		return model.Submission{}, fmt.Errorf("decode submission %s: %w", txid, err)
	}
	if sub.UpdatedAt, err = parseMillis(fields, "updated_at"); err != nil {
		return model.Submission{}, fmt.Errorf("decode submission %s: %w", txid, err)
	}
	return sub, nil
}

// SaveCheckpoint overwrites the scan cursor.
func (r *Repository) SaveCheckpoint(ctx context.Context, cp model.Checkpoint) error {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("save_checkpoint", cp.Coin, cp.Network, err, start)
	}()

	updatedAt := cp.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = start
	}
	err = r.client.HSet(ctx, checkpointKey(cp.Coin, cp.Network), map[string]any{
		"cursor":     cp.Cursor,
		"updated_at": updatedAt.UTC().UnixMilli(),
	}).Err()
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// Checkpoint returns the stored cursor, or model.ErrCheckpointNotFound.
func (r *Repository) Checkpoint(ctx context.Context, coin model.Coin, network model.Network) (cp model.Checkpoint, err error) {
	start := time.Now()
	defer func() {
		r.metrics.Observe("checkpoint", coin, network, err, start)
	}()

	fields, err := r.client.HGetAll(ctx, checkpointKey(coin, network)).Result()
	if err != nil {
		return model.Checkpoint{}, fmt.Errorf("load checkpoint: %w", err)
	}
	if len(fields) == 0 {
		err = model.ErrCheckpointNotFound
		return model.Checkpoint{}, err
	}

	cp = model.Checkpoint{Coin: coin, Network: network}
	if cp.Cursor, err = parseUint(fields, "cursor", 64); err != nil {
		return model.Checkpoint{}, fmt.Errorf("decode checkpoint: %w", err)
	}
	if cp.UpdatedAt, err = parseMillis(fields, "updated_at"); err != nil {
		return model.Checkpoint{}, fmt.Errorf("decode checkpoint: %w", err)
	}
	return cp, nil
}

func parseUint(fields map[string]string, name string, bits int) (uint64, error) {
	raw, ok := fields[name]
	if !ok || raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(raw, 10, bits)
	if err != nil {
		return 0, fmt.Errorf("field %s: %w", name, err)
	}
	return v, nil
}

func parseMillis(fields map[string]string, name string) (time.Time, error) {
	raw, ok := fields[name]
	if !ok || raw == "" {
		return time.Time{}, nil
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("field %s: %w", name, err)
	}
	return time.UnixMilli(ms).UTC(), nil
}
