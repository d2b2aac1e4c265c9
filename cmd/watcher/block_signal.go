//go:build !zmq

package main

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// startBlockSignal without zmq support leaves the scanner polling.
func startBlockSignal(_ context.Context, addr string, logger *zap.Logger) (<-chan struct{}, error) {
	if addr == "" {
		return nil, nil
	}
	logger.Warn("zmq block signal requested but binary built without zmq tag", zap.String("addr", addr))
	return nil, errors.New("zmq support not compiled in, rebuild with -tags zmq")
}
