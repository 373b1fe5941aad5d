package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"autoreply/internal/models"
	"autoreply/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	mu      sync.Mutex
	order   map[string][]string
	panicOn string
	delay   time.Duration
}

func (h *recordingHandler) Handle(ctx context.Context, evt models.CommentEvent) models.Outcome {
	if evt.CommentID == h.panicOn {
		panic("corrupt event")
	}
	time.Sleep(h.delay)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.order == nil {
		h.order = map[string][]string{}
	}
	h.order[evt.ThreadID] = append(h.order[evt.ThreadID], evt.CommentID)
	return models.Outcome{Status: models.OutcomeSent}
}

const multiThreadPayload = `{
  "object": "instagram",
  "entry": [{"id": "IG1", "changes": [
    {"field": "comments", "value": {"id": "A1", "text": "a", "from": {"username": "u1"}}},
    {"field": "comments", "value": {"id": "B1", "text": "b", "from": {"username": "u2"}}},
    {"field": "comments", "value": {"id": "A2", "text": "a", "parent_id": "A1", "from": {"username": "u3"}}},
    {"field": "comments", "value": {"id": "A3", "text": "a", "parent_id": "A1", "from": {"username": "u4"}}},
    {"field": "comments", "value": {"id": "B2", "text": "b", "parent_id": "B1", "from": {"username": "u5"}}}
  ]}]
}`

func TestDispatcherKeepsPerThreadOrder(t *testing.T) {
	h := &recordingHandler{delay: time.Millisecond}
	d := NewDispatcher(h, 4, nil)

	n, err := d.Deliver(context.Background(), []byte(multiThreadPayload))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, []string{"A1", "A2", "A3"}, h.order["A1"])
	assert.Equal(t, []string{"B1", "B2"}, h.order["B1"])
}

func TestDispatcherSurvivesPanics(t *testing.T) {
	h := &recordingHandler{panicOn: "A2"}
	d := NewDispatcher(h, 1, nil)

	n, err := d.Deliver(context.Background(), []byte(multiThreadPayload))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, []string{"A1", "A3"}, h.order["A1"])
	assert.Equal(t, []string{"B1", "B2"}, h.order["B1"])
}

func TestDispatcherUnknownObject(t *testing.T) {
	d := NewDispatcher(&recordingHandler{}, 1, nil)

	_, err := d.Deliver(context.Background(), []byte(`{"object": "user"}`))
	var cerr *ClassificationError
	assert.True(t, errors.As(err, &cerr))
}

func TestDispatcherEndToEndLimit(t *testing.T) {
	ts, err := store.NewThreadStore(2, time.Hour, 100)
	require.NoError(t, err)
	sender := &fakeSender{}
	o := &Orchestrator{
		Policy:    AdmissionPolicy{Owner: Owner{Handle: "shop"}, MaxRepliesPerThread: 2},
		Store:     ts,
		Generator: &fakeGenerator{reply: "Thanks!"},
		Sender:    sender,
	}
	d := NewDispatcher(o, 4, nil)

	_, err = d.Deliver(context.Background(), []byte(multiThreadPayload))
	require.NoError(t, err)

	assert.Equal(t, 2, ts.Snapshot("A1").ReplyCount, "third reply in A1 must hit the limit")
	assert.Equal(t, 2, ts.Snapshot("B1").ReplyCount)
	assert.Equal(t, 4, sender.count())
}

func TestGroupByThread(t *testing.T) {
	events := []models.CommentEvent{
		{ThreadID: "T2", CommentID: "1"},
		{ThreadID: "T1", CommentID: "2"},
		{ThreadID: "T2", CommentID: "3"},
	}
	groups := groupByThread(events)
	require.Len(t, groups, 2)
	assert.Equal(t, "1", groups[0][0].CommentID)
	assert.Equal(t, "3", groups[0][1].CommentID)
	assert.Equal(t, "2", groups[1][0].CommentID)
}
