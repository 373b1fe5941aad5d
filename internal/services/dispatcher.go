package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"autoreply/internal/models"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// EventHandler handles a single classified event.
type EventHandler interface {
	Handle(ctx context.Context, evt models.CommentEvent) models.Outcome
}

// Dispatcher fans a webhook delivery out to the orchestrator. Events of one thread run
// in payload order; different threads run concurrently.
type Dispatcher struct {
	Handler     EventHandler
	Concurrency int
	Logger      *slog.Logger
}

func NewDispatcher(handler EventHandler, concurrency int, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{Handler: handler, Concurrency: concurrency, Logger: logger}
}

// Deliver classifies raw and processes every event. Only a ClassificationError is
// returned; per-event failures are logged so the sender never retries the delivery.
func (d *Dispatcher) Deliver(ctx context.Context, raw []byte) (int, error) {
	logger := d.Logger.With("delivery", uuid.NewString())

	events, err := Classify(raw)
	if err != nil {
		deliveryCount.WithLabelValues("unrecognized").Inc()
		logger.Warn("webhook payload not recognized", "err", err)
		return 0, err
	}
	deliveryCount.WithLabelValues("accepted").Inc()
	if len(events) == 0 {
		logger.Debug("delivery carried no comment events")
		return 0, nil
	}

	groups := groupByThread(events)
	logger.Info("processing delivery", "events", len(events), "threads", len(groups))

	var g errgroup.Group
	if d.Concurrency > 0 {
		g.SetLimit(d.Concurrency)
	}
	for _, group := range groups {
		group := group
		g.Go(func() error {
			for _, evt := range group {
				d.handleOne(ctx, logger, evt)
			}
			return nil
		})
	}
	_ = g.Wait()

	return len(events), nil
}

func (d *Dispatcher) handleOne(ctx context.Context, logger *slog.Logger, evt models.CommentEvent) {
	eventClassifiedCount.WithLabelValues(string(evt.Platform)).Inc()

	// similar to an HTTP server, one bad event must not take down its siblings
	defer func() {
		if r := recover(); r != nil {
			eventPanicCount.Inc()
			logger.Error("event handling panicked", "err", fmt.Sprint(r), "thread", evt.ThreadID, "comment", evt.CommentID, "stack", string(debug.Stack()))
		}
	}()

	out := d.Handler.Handle(ctx, evt)
	logger.Debug("event handled", "thread", evt.ThreadID, "comment", evt.CommentID, "outcome", out.Label())
}

// groupByThread keeps first-seen thread order and payload order within each thread.
func groupByThread(events []models.CommentEvent) [][]models.CommentEvent {
	index := make(map[string]int)
	var groups [][]models.CommentEvent
	for _, evt := range events {
		i, ok := index[evt.ThreadID]
		if !ok {
			i = len(groups)
			index[evt.ThreadID] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], evt)
	}
	return groups
}
