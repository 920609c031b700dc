package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const channelName = "report_job_status"

// Listener holds one dedicated Postgres connection on LISTEN and republishes
// worker notifications to the hub. It reconnects with a fixed delay if the
// connection drops.
type Listener struct {
	pool           *pgxpool.Pool
	hub            *Hub
	logger         zerolog.Logger
	reconnectDelay time.Duration
}

// NewListener creates a listener bound to the given pool and hub.
func NewListener(pool *pgxpool.Pool, hub *Hub, logger zerolog.Logger) *Listener {
	return &Listener{
		pool:           pool,
		hub:            hub,
		logger:         logger,
		reconnectDelay: 2 * time.Second,
	}
}

// Run blocks until ctx is canceled.
func (l *Listener) Run(ctx context.Context) error {
	for {
		if err := l.listen(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.logger.Error().Err(err).Msg("notify: listen connection lost, reconnecting")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.reconnectDelay):
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "listen "+channelName); err != nil {
		return err
	}
	l.logger.Info().Str("channel", channelName).Msg("notify: listening")

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		var ev Event
		if err := json.Unmarshal([]byte(notification.Payload), &ev); err != nil {
			// A malformed payload is logged and skipped, never fatal.
			l.logger.Warn().Err(err).Str("payload", notification.Payload).Msg("notify: bad payload")
			continue
		}
		if ev.JobID == "" {
			l.logger.Warn().Str("payload", notification.Payload).Msg("notify: payload without job_id")
			continue
		}
		l.hub.Publish(ev)
	}
}
