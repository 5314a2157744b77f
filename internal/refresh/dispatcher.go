/*
Copyright (C) 2026 ABTech Solution Agency

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package refresh

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// NATSDispatcher publishes drained refresh tasks to a NATS subject consumed
// by the reindexing workers.
type NATSDispatcher struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
}

// NewNATSDispatcher connects to NATS and returns a dispatcher.
func NewNATSDispatcher(url, subject string, logger zerolog.Logger) (*NATSDispatcher, error) {
	conn, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	return &NATSDispatcher{
		conn:    conn,
		subject: subject,
		logger:  logger.With().Str("component", "refresh_dispatcher").Logger(),
	}, nil
}

// Dispatch publishes each task as a JSON message.
func (d *NATSDispatcher) Dispatch(ctx context.Context, tasks []Task) error {
	for _, task := range tasks {
		data, err := json.Marshal(task)
		if err != nil {
			return fmt.Errorf("marshal refresh task: %w", err)
		}
		if err := d.conn.Publish(d.subject, data); err != nil {
			return fmt.Errorf("publish refresh task: %w", err)
		}
	}

	if err := d.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush refresh tasks: %w", err)
	}

	d.logger.Debug().Int("task_count", len(tasks)).Str("subject", d.subject).Msg("refresh tasks dispatched")
	return nil
}

// Close drains the connection.
func (d *NATSDispatcher) Close() error {
	return d.conn.Drain()
}

// LogDispatcher is the fallback when no NATS URL is configured. Tasks are
// logged and dropped, which keeps single-node development deployments
// working without a broker.
type LogDispatcher struct {
	logger zerolog.Logger
}

// NewLogDispatcher creates a logging dispatcher.
func NewLogDispatcher(logger zerolog.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger.With().Str("component", "refresh_dispatcher").Logger()}
}

// Dispatch logs each task.
func (d *LogDispatcher) Dispatch(_ context.Context, tasks []Task) error {
	for _, task := range tasks {
		d.logger.Info().
			Str("release_id", task.ReleaseID).
			Strs("regions", task.Regions).
			Str("reason", string(task.Reason)).
			Msg("refresh task (no dispatcher configured)")
	}
	return nil
}
