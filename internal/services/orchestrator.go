package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"autoreply/internal/models"
	"autoreply/internal/store"
)

// ThreadStateStore is the part of the thread store the orchestrator needs.
type ThreadStateStore interface {
	Snapshot(threadID string) models.ThreadState
	RecordReply(threadID, commentID string) error
}

var _ ThreadStateStore = (*store.ThreadStore)(nil)

// Orchestrator runs one event through admission, generation, dispatch and commit.
type Orchestrator struct {
	Policy    AdmissionPolicy
	Store     ThreadStateStore
	Generator ReplyGenerator
	Sender    ReplySender
	Formatter *ReplyFormatter
	Logger    *slog.Logger

	GenerationTimeout time.Duration
	DispatchTimeout   time.Duration
}

// Handle never returns an error: every failure ends up in the Outcome. The store is
// only written after a successful dispatch, and never while a network call is open.
func (o *Orchestrator) Handle(ctx context.Context, evt models.CommentEvent) models.Outcome {
	out := o.handle(ctx, evt)
	outcomeCount.WithLabelValues(string(evt.Platform), out.Label()).Inc()
	return out
}

func (o *Orchestrator) handle(ctx context.Context, evt models.CommentEvent) models.Outcome {
	logger := o.logger().With("platform", evt.Platform, "thread", evt.ThreadID, "comment", evt.CommentID)

	snapshot := o.Store.Snapshot(evt.ThreadID)
	decision := o.Policy.Decide(evt, snapshot)
	decisionCount.WithLabelValues(decision.String()).Inc()
	if !decision.Allowed {
		logger.Info("reply skipped", "reason", decision.Reason, "replies", snapshot.ReplyCount)
		return models.Skipped(decision.Reason)
	}

	reply, err := o.generate(ctx, evt)
	if err != nil {
		logger.Warn("reply generation failed", "err", err)
		out := models.Skipped(models.ReasonGenerationFailed)
		out.Err = err
		return out
	}
	if reply == "" {
		logger.Warn("reply generation returned nothing usable")
		return models.Skipped(models.ReasonGenerationFailed)
	}

	if err := o.dispatch(ctx, evt, reply); err != nil {
		logger.Error("reply dispatch failed", "err", err, "target", evt.ReplyTarget())
		return models.Outcome{Status: models.OutcomeDispatchFailed, Reply: reply, Err: err}
	}

	if err := o.Store.RecordReply(evt.ThreadID, evt.CommentID); err != nil {
		if errors.Is(err, store.ErrAlreadyMaxed) {
			// a concurrent delivery filled the thread while we were talking to the APIs
			logger.Warn("reply sent but thread slot was taken concurrently", "err", err)
			out := models.Skipped(models.ReasonAlreadyMaxed)
			out.Reply = reply
			return out
		}
		logger.Error("recording reply failed", "err", err)
		return models.Outcome{Status: models.OutcomeSent, Reply: reply, Err: err}
	}

	logger.Info("reply sent", "replies", snapshot.ReplyCount+1)
	return models.Outcome{Status: models.OutcomeSent, Reply: reply}
}

func (o *Orchestrator) generate(ctx context.Context, evt models.CommentEvent) (string, error) {
	ctx, cancel := withTimeout(ctx, o.GenerationTimeout)
	defer cancel()

	start := time.Now()
	reply, err := o.Generator.GenerateReply(ctx, evt.Text, evt.AuthorHandle)
	collaboratorDuration.WithLabelValues("generate", resultLabel(err)).Observe(time.Since(start).Seconds())
	if err != nil {
		return "", err
	}

	if o.Formatter != nil {
		return o.Formatter.Format(reply), nil
	}
	return strings.TrimSpace(reply), nil
}

func (o *Orchestrator) dispatch(ctx context.Context, evt models.CommentEvent, reply string) error {
	ctx, cancel := withTimeout(ctx, o.DispatchTimeout)
	defer cancel()

	start := time.Now()
	err := o.Sender.SendReply(ctx, evt.Platform, evt.ReplyTarget(), reply)
	collaboratorDuration.WithLabelValues("dispatch", resultLabel(err)).Observe(time.Since(start).Seconds())
	return err
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
