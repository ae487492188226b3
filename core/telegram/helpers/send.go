package helpers

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/muzposter/core/logger"
	"github.com/m3rciful/muzposter/core/telegram/sender"
)

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher wires the sender used by helper functions. nil disables queuing.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

// CurrentDispatcher returns the dispatcher installed by SetDispatcher, if any.
func CurrentDispatcher() *sender.Dispatcher {
	return globalDispatcher.Load()
}

// Enqueue schedules a fire-and-forget Bot API call. Without a dispatcher, or when
// the queue refuses the job, run is executed inline.
func Enqueue(ctx context.Context, action, endpoint string, run func() error) error {
	disp := CurrentDispatcher()
	if disp == nil {
		return run()
	}
	if err := disp.Enqueue(ctx, action, endpoint, run); err != nil {
		if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
			logger.Warn(ctx, logger.CompSender, "queue.fallback",
				slog.String("action", action),
				slog.String("endpoint", endpoint),
				slog.String("err", err.Error()),
			)
			return run()
		}
		return err
	}
	return nil
}

// Do performs a Bot API call whose result the caller needs, with dispatcher retries when available.
func Do(ctx context.Context, action, endpoint string, run func() error) error {
	disp := CurrentDispatcher()
	if disp == nil {
		return run()
	}
	return disp.Do(ctx, action, endpoint, run)
}
