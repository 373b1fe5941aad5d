package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"autoreply/internal/models"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	// ErrAlreadyMaxed is returned by RecordReply when the thread filled up between the
	// admission read and the commit.
	ErrAlreadyMaxed = errors.New("thread reply limit reached")
	// ErrDuplicateReply wraps ErrAlreadyMaxed so callers can treat both as a deny.
	ErrDuplicateReply = fmt.Errorf("%w: comment already replied", ErrAlreadyMaxed)
)

const defaultShards = 32

// threadEntry 线程状态，只在所属 shard 的锁内修改
type threadEntry struct {
	ids       map[string]struct{}
	createdAt time.Time
	touchedAt time.Time
	expiresAt time.Time
}

func (e *threadEntry) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

func (e *threadEntry) snapshot(threadID string) models.ThreadState {
	ids := make(map[string]struct{}, len(e.ids))
	for id := range e.ids {
		ids[id] = struct{}{}
	}
	return models.ThreadState{
		ThreadID:          threadID,
		RepliedCommentIDs: ids,
		ReplyCount:        len(ids),
		CreatedAt:         e.createdAt,
		LastTouchedAt:     e.touchedAt,
		ExpiresAt:         e.expiresAt,
	}
}

type shard struct {
	mu      sync.Mutex
	entries *lru.Cache[string, *threadEntry]
}

// ThreadStore owns every ThreadState. Threads hash onto independent shards, so
// writers to different threads rarely contend and never share a global lock.
type ThreadStore struct {
	shards     []*shard
	maxReplies int
	ttl        time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

type Option func(*ThreadStore)

// WithClock replaces time.Now, mainly for expiry tests.
func WithClock(now func() time.Time) Option {
	return func(s *ThreadStore) { s.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *ThreadStore) { s.logger = logger }
}

// WithShards sets the shard count; values below 1 are ignored.
func WithShards(n int) Option {
	return func(s *ThreadStore) {
		if n > 0 {
			s.shards = make([]*shard, n)
		}
	}
}

// NewThreadStore builds a store that allows maxReplies per thread and forgets idle
// threads after ttl. capacity bounds the number of live threads; the least recently
// used thread is dropped when a shard is full.
func NewThreadStore(maxReplies int, ttl time.Duration, capacity int, opts ...Option) (*ThreadStore, error) {
	if maxReplies < 1 {
		return nil, fmt.Errorf("max replies per thread must be >= 1, got %d", maxReplies)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("thread ttl must be positive, got %s", ttl)
	}
	if capacity < 1 {
		return nil, fmt.Errorf("thread store capacity must be >= 1, got %d", capacity)
	}

	s := &ThreadStore{
		shards:     make([]*shard, defaultShards),
		maxReplies: maxReplies,
		ttl:        ttl,
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	perShard := (capacity + len(s.shards) - 1) / len(s.shards)
	for i := range s.shards {
		l, err := lru.NewWithEvict[string, *threadEntry](perShard, func(threadID string, e *threadEntry) {
			// Remove also lands here; only capacity evictions of live threads are worth a warning
			if len(e.ids) > 0 && !e.expired(s.now()) {
				s.logger.Warn("thread store full, evicting live thread", "thread", threadID, "replies", len(e.ids))
			}
		})
		if err != nil {
			return nil, fmt.Errorf("creating thread shard: %w", err)
		}
		s.shards[i] = &shard{entries: l}
	}
	return s, nil
}

func (s *ThreadStore) MaxReplies() int {
	return s.maxReplies
}

func (s *ThreadStore) shardFor(threadID string) *shard {
	return s.shards[xxhash.Sum64String(threadID)%uint64(len(s.shards))]
}

// liveEntry returns the entry for threadID, removing it first if it has expired.
// Caller must hold sh.mu.
func (s *ThreadStore) liveEntry(sh *shard, threadID string, now time.Time) *threadEntry {
	e, ok := sh.entries.Get(threadID)
	if !ok {
		return nil
	}
	if e.expired(now) {
		sh.entries.Remove(threadID)
		return nil
	}
	return e
}

// Snapshot returns a copy of the thread's state, or an empty state if the thread is
// unknown or expired. It never creates an entry.
func (s *ThreadStore) Snapshot(threadID string) models.ThreadState {
	sh := s.shardFor(threadID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e := s.liveEntry(sh, threadID, s.now())
	if e == nil {
		return models.ThreadState{ThreadID: threadID}
	}
	return e.snapshot(threadID)
}

// RecordReply marks commentID as replied. The duplicate and limit checks are repeated
// here under the shard lock; this is the authoritative admission.
func (s *ThreadStore) RecordReply(threadID, commentID string) error {
	if threadID == "" || commentID == "" {
		return fmt.Errorf("record reply: thread id and comment id are required")
	}

	sh := s.shardFor(threadID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	now := s.now()
	e := s.liveEntry(sh, threadID, now)
	if e == nil {
		e = &threadEntry{ids: make(map[string]struct{}, s.maxReplies), createdAt: now}
	}
	if _, ok := e.ids[commentID]; ok {
		return ErrDuplicateReply
	}
	if len(e.ids) >= s.maxReplies {
		return ErrAlreadyMaxed
	}

	e.ids[commentID] = struct{}{}
	e.touchedAt = now
	e.expiresAt = now.Add(s.ttl)
	sh.entries.Add(threadID, e)
	return nil
}

// ReleaseReply frees the slot used by commentID. A thread left with no replies is
// deleted at once.
func (s *ThreadStore) ReleaseReply(threadID, commentID string) bool {
	sh := s.shardFor(threadID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	now := s.now()
	e := s.liveEntry(sh, threadID, now)
	if e == nil {
		return false
	}
	if _, ok := e.ids[commentID]; !ok {
		return false
	}

	delete(e.ids, commentID)
	if len(e.ids) == 0 {
		sh.entries.Remove(threadID)
		return true
	}
	e.touchedAt = now
	e.expiresAt = now.Add(s.ttl)
	return true
}

// Sweep removes every expired thread and returns how many were dropped.
func (s *ThreadStore) Sweep() int {
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		now := s.now()
		for _, threadID := range sh.entries.Keys() {
			if e, ok := sh.entries.Peek(threadID); ok && e.expired(now) {
				sh.entries.Remove(threadID)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

// Len counts stored threads, including expired ones the sweeper has not reached yet.
func (s *ThreadStore) Len() int {
	n := 0
	for _, sh := range s.shards {
		n += sh.entries.Len()
	}
	return n
}

// StartSweeper runs Sweep every interval until ctx is cancelled.
func (s *ThreadStore) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.Sweep(); n > 0 {
					s.logger.Debug("swept expired threads", "count", n, "remaining", s.Len())
				}
			}
		}
	}()
}
