package duel

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/codeduel/internal/duel/events"
)

// stubNotifier captures everything the engine and sessions broadcast.
type stubNotifier struct {
	mu        sync.Mutex
	byChannel map[string][]*events.Event
	bySession map[string][]*events.Event
}

func newStubNotifier() *stubNotifier {
	return &stubNotifier{
		byChannel: make(map[string][]*events.Event),
		bySession: make(map[string][]*events.Event),
	}
}

func (n *stubNotifier) ToChannel(channelID string, ev *events.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.byChannel[channelID] = append(n.byChannel[channelID], ev)
}

func (n *stubNotifier) ToSession(sessionID string, ev *events.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.bySession[sessionID] = append(n.bySession[sessionID], ev)
}

func (n *stubNotifier) channelEvents(channelID string, t events.Type) []*events.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []*events.Event
	for _, ev := range n.byChannel[channelID] {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (n *stubNotifier) sessionEvents(sessionID string, t events.Type) []*events.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []*events.Event
	for _, ev := range n.bySession[sessionID] {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (n *stubNotifier) sessionCount(sessionID string, t events.Type) int {
	return len(n.sessionEvents(sessionID, t))
}

// outcomeRecorder stands in for the engine's termination hook.
type outcomeRecorder struct {
	mu   sync.Mutex
	list []Outcome
}

func (o *outcomeRecorder) record(_ *Session, out Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.list = append(o.list, out)
}

func (o *outcomeRecorder) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.list)
}

func (o *outcomeRecorder) first() Outcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.list[0]
}

// advanceUntil drives the fake clock one second at a time until cond holds.
// Ticks dropped while a session goroutine is between receives are made up by
// later advances, so this stays deterministic.
func advanceUntil(t *testing.T, fc *clockwork.FakeClock, cond func() bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		if cond() {
			return true
		}
		fc.Advance(time.Second)
		return cond()
	}, 5*time.Second, 2*time.Millisecond)
}

func decodePayload[T any](t *testing.T, ev *events.Event) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(ev.Data, &v))
	return v
}
