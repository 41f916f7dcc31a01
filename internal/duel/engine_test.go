package duel

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/codeduel/internal/duel/events"
	"github.com/mcdev12/codeduel/internal/ledger"
	"github.com/mcdev12/codeduel/internal/problem"
)

func newTestEngine(t *testing.T, cfg Config, led *ledger.Ledger) (*Engine, *clockwork.FakeClock, *stubNotifier) {
	t.Helper()
	catalog, err := problem.Load("")
	require.NoError(t, err)
	fc := clockwork.NewFakeClock()
	n := newStubNotifier()
	return NewEngine(cfg, fc, led, catalog, n, nil), fc, n
}

func seededLedger(pointsA, pointsB int) *ledger.Ledger {
	led := ledger.New()
	led.Register("a", "Alice", pointsA)
	led.Register("b", "Bob", pointsB)
	return led
}

// pairPlayers queues both participants and returns the shared session id.
func pairPlayers(t *testing.T, e *Engine, n *stubNotifier) string {
	t.Helper()
	require.NoError(t, e.JoinQueue("a", "ch-a"))
	require.NoError(t, e.JoinQueue("b", "ch-b"))

	pairedA := n.channelEvents("ch-a", events.TypePaired)
	pairedB := n.channelEvents("ch-b", events.TypePaired)
	require.Len(t, pairedA, 1)
	require.Len(t, pairedB, 1)

	idA := decodePayload[events.PairedPayload](t, pairedA[0]).SessionID
	idB := decodePayload[events.PairedPayload](t, pairedB[0]).SessionID
	require.Equal(t, idA, idB)
	require.Equal(t, 0, e.QueueLen())
	return idA
}

// startMatch joins both players into the session and runs the countdown out.
func startMatch(t *testing.T, e *Engine, fc *clockwork.FakeClock, sessionID string) *Session {
	t.Helper()
	snap, err := e.JoinSession(sessionID, "a", "ch-a")
	require.NoError(t, err)
	require.Equal(t, string(StateWaiting), snap.State)

	snap, err = e.JoinSession(sessionID, "b", "ch-b")
	require.NoError(t, err)
	require.Equal(t, string(StateCountdown), snap.State)

	s, ok := e.Registry().Get(uuid.MustParse(sessionID))
	require.True(t, ok)

	fc.BlockUntil(1)
	advanceUntil(t, fc, func() bool { return s.State() == StatePlaying })
	return s
}

func TestJoinQueueUnknownParticipant(t *testing.T) {
	e, _, _ := newTestEngine(t, fastConfig(), seededLedger(100, 100))
	assert.ErrorIs(t, e.JoinQueue("stranger", "ch-x"), ErrUnknownParticipant)
	assert.Equal(t, 0, e.QueueLen())
}

func TestJoinQueueTwiceRejected(t *testing.T) {
	e, _, _ := newTestEngine(t, fastConfig(), seededLedger(100, 100))
	require.NoError(t, e.JoinQueue("a", "ch-a"))
	assert.ErrorIs(t, e.JoinQueue("a", "ch-a"), ErrAlreadyQueued)
	assert.Equal(t, 1, e.QueueLen())
}

func TestPairingCreatesWaitingSession(t *testing.T) {
	e, _, n := newTestEngine(t, fastConfig(), seededLedger(100, 100))
	sessionID := pairPlayers(t, e, n)

	s, ok := e.Registry().Get(uuid.MustParse(sessionID))
	require.True(t, ok)
	assert.Equal(t, StateWaiting, s.State())

	players := s.Players()
	assert.Equal(t, "a", players[0].ParticipantID)
	assert.Equal(t, "b", players[1].ParticipantID)
	assert.False(t, players[0].Connected)
	assert.False(t, players[1].Connected)
}

func TestJoinSessionNotFound(t *testing.T) {
	e, _, _ := newTestEngine(t, fastConfig(), seededLedger(100, 100))

	_, err := e.JoinSession(uuid.New().String(), "a", "ch-a")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = e.JoinSession("not-a-uuid", "a", "ch-a")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestFullMatchFlow(t *testing.T) {
	led := seededLedger(100, 100)
	e, fc, n := newTestEngine(t, fastConfig(), led)
	sessionID := pairPlayers(t, e, n)
	s := startMatch(t, e, fc, sessionID)

	require.NoError(t, e.Submit(sessionID, "a", "func twoSum() {}"))
	advanceUntil(t, fc, func() bool { return s.State() == StateFinished })
	require.Eventually(t, func() bool {
		return n.sessionCount(sessionID, events.TypeSessionResult) == 1
	}, time.Second, 2*time.Millisecond)

	a, _ := led.Get("a")
	b, _ := led.Get("b")
	assert.Equal(t, 103, a.Points)
	assert.Equal(t, 1, a.Wins)
	assert.Equal(t, 1, a.TotalMatches)
	assert.Equal(t, 98, b.Points)
	assert.Equal(t, 1, b.Losses)
	assert.Equal(t, 1, b.TotalMatches)

	result := decodePayload[events.SessionResultPayload](t, n.sessionEvents(sessionID, events.TypeSessionResult)[0])
	assert.Equal(t, "a", result.WinnerID)
	assert.Equal(t, "Alice", result.WinnerName)
	assert.Equal(t, 3, result.PointsDelta)
	assert.Equal(t, "func twoSum() {}", result.Solution)

	matches := e.History("a")
	require.Len(t, matches, 1)
	assert.Equal(t, "a", matches[0].WinnerID)
	assert.NotEmpty(t, matches[0].ProblemTitle)
	assert.Equal(t, matches[0], e.History("b")[0])
}

func TestLoserPointsFloorAtZero(t *testing.T) {
	led := seededLedger(100, 1)
	e, fc, n := newTestEngine(t, fastConfig(), led)
	sessionID := pairPlayers(t, e, n)
	s := startMatch(t, e, fc, sessionID)

	require.NoError(t, e.Submit(sessionID, "a", "x"))
	advanceUntil(t, fc, func() bool { return s.State() == StateFinished })

	require.Eventually(t, func() bool {
		b, _ := led.Get("b")
		return b.Losses == 1
	}, time.Second, 2*time.Millisecond)
	b, _ := led.Get("b")
	assert.Equal(t, 0, b.Points)
}

func TestDrawLeavesLedgerAndHistoryUntouched(t *testing.T) {
	cfg := fastConfig()
	cfg.MatchSeconds = 2
	led := seededLedger(100, 100)
	e, fc, n := newTestEngine(t, cfg, led)
	sessionID := pairPlayers(t, e, n)
	s := startMatch(t, e, fc, sessionID)

	advanceUntil(t, fc, func() bool { return s.State() == StateFinished })
	require.Eventually(t, func() bool {
		return n.sessionCount(sessionID, events.TypeSessionResult) == 1
	}, time.Second, 2*time.Millisecond)

	result := decodePayload[events.SessionResultPayload](t, n.sessionEvents(sessionID, events.TypeSessionResult)[0])
	assert.Empty(t, result.WinnerID)
	assert.Zero(t, result.PointsDelta)

	a, _ := led.Get("a")
	b, _ := led.Get("b")
	assert.Equal(t, 100, a.Points)
	assert.Equal(t, 100, b.Points)
	assert.Zero(t, a.TotalMatches)
	assert.Zero(t, b.TotalMatches)
	assert.Empty(t, e.History("a"))

	assert.ErrorIs(t, e.Submit(sessionID, "a", "too late"), ErrNotPlaying)
}

func TestDisconnectResolvesPlayingSession(t *testing.T) {
	led := seededLedger(100, 100)
	e, fc, n := newTestEngine(t, fastConfig(), led)
	sessionID := pairPlayers(t, e, n)
	s := startMatch(t, e, fc, sessionID)

	e.Disconnect("ch-b")
	assert.Equal(t, StateFinished, s.State())
	assert.Equal(t, "a", s.Winner())

	require.Eventually(t, func() bool {
		a, _ := led.Get("a")
		return a.Wins == 1
	}, time.Second, 2*time.Millisecond)
}

func TestDisconnectRemovesFromQueue(t *testing.T) {
	e, _, n := newTestEngine(t, fastConfig(), seededLedger(100, 100))
	require.NoError(t, e.JoinQueue("a", "ch-a"))

	e.Disconnect("ch-a")
	assert.Equal(t, 0, e.QueueLen())

	// No pairing happens when the second participant arrives alone.
	require.NoError(t, e.JoinQueue("b", "ch-b"))
	assert.Empty(t, n.channelEvents("ch-b", events.TypePaired))
	assert.Equal(t, 1, e.QueueLen())
}

func TestSessionEvictedAfterGracePeriod(t *testing.T) {
	cfg := fastConfig()
	led := seededLedger(100, 100)
	e, fc, n := newTestEngine(t, cfg, led)
	sessionID := pairPlayers(t, e, n)
	s := startMatch(t, e, fc, sessionID)

	require.NoError(t, e.Submit(sessionID, "a", "x"))
	advanceUntil(t, fc, func() bool { return s.State() == StateFinished })
	require.Eventually(t, func() bool {
		return n.sessionCount(sessionID, events.TypeSessionResult) == 1
	}, time.Second, 2*time.Millisecond)

	// Late observers can still fetch the finished session inside the grace
	// period.
	snap, err := e.JoinSession(sessionID, "a", "ch-a")
	require.NoError(t, err)
	assert.Equal(t, string(StateFinished), snap.State)

	require.Eventually(t, func() bool {
		fc.Advance(cfg.EvictAfter)
		return e.Registry().Len() == 0
	}, time.Second, 2*time.Millisecond)

	_, err = e.JoinSession(sessionID, "a", "ch-a")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestLeaderboardComesFromLedger(t *testing.T) {
	led := seededLedger(100, 100)
	e, fc, n := newTestEngine(t, fastConfig(), led)
	sessionID := pairPlayers(t, e, n)
	s := startMatch(t, e, fc, sessionID)

	require.NoError(t, e.Submit(sessionID, "b", "x"))
	advanceUntil(t, fc, func() bool { return s.State() == StateFinished })
	require.Eventually(t, func() bool {
		board := e.Leaderboard()
		return len(board) == 2 && board[0].ID == "b"
	}, time.Second, 2*time.Millisecond)

	board := e.Leaderboard()
	assert.Equal(t, 103, board[0].Points)
	assert.Equal(t, 98, board[1].Points)
}
