package main

import (
	"context"
	"fmt"

	"github.com/goodnatureofminers/shielded-bridge-watcher/internal/metrics"
	"github.com/goodnatureofminers/shielded-bridge-watcher/internal/shielded/repository/clickhouse"
	"github.com/goodnatureofminers/shielded-bridge-watcher/internal/shielded/repository/memory"
	"github.com/goodnatureofminers/shielded-bridge-watcher/internal/shielded/repository/redis"
	"github.com/goodnatureofminers/shielded-bridge-watcher/internal/shielded/service/scanner"
)

type store interface {
	scanner.Repository
	Close() error
}

func openStore(ctx context.Context, cfg config) (store, error) {
	switch cfg.Store {
	case "", "memory":
		return memory.NewRepository(), nil
	case "clickhouse":
		repo, err := clickhouse.NewRepository(cfg.ClickhouseDSN, metrics.NewRepository("clickhouse"))
		if err != nil {
			return nil, err
		}
		return repo, nil
	case "redis":
		repo, err := redis.NewRepository(ctx, cfg.RedisURL, metrics.NewRepository("redis"))
		if err != nil {
			return nil, err
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}
