package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndGet(t *testing.T) {
	l := New()
	l.Register("user1", "Player One", 100)

	p, err := l.Get("user1")
	require.NoError(t, err)
	assert.Equal(t, "Player One", p.DisplayName)
	assert.Equal(t, 100, p.Points)
	assert.Zero(t, p.Wins)
	assert.Zero(t, p.TotalMatches)
}

func TestRegisterTwiceIsNoOp(t *testing.T) {
	l := New()
	l.Register("user1", "Player One", 100)

	l.Register("user1", "Someone Else", 50)
	p, err := l.Get("user1")
	require.NoError(t, err)
	assert.Equal(t, "Player One", p.DisplayName)
	assert.Equal(t, 100, p.Points)
}

func TestGetUnknown(t *testing.T) {
	l := New()
	_, err := l.Get("nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApplyResultScoringLaw(t *testing.T) {
	l := New()
	l.Register("a", "A", 100)
	l.Register("b", "B", 100)

	res, err := l.ApplyResult("a", "b")
	require.NoError(t, err)

	assert.Equal(t, 103, res.Winner.Points)
	assert.Equal(t, 1, res.Winner.Wins)
	assert.Equal(t, 1, res.Winner.TotalMatches)
	assert.Equal(t, 98, res.Loser.Points)
	assert.Equal(t, 1, res.Loser.Losses)
	assert.Equal(t, 1, res.Loser.TotalMatches)
	assert.Equal(t, 3, res.PointsDelta)

	a, _ := l.Get("a")
	b, _ := l.Get("b")
	assert.Equal(t, 103, a.Points)
	assert.Equal(t, 98, b.Points)
}

func TestApplyResultFloorsAtZero(t *testing.T) {
	l := New()
	l.Register("a", "A", 100)
	l.Register("b", "B", 1)

	res, err := l.ApplyResult("a", "b")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Loser.Points)
}

func TestApplyResultUnknownParticipant(t *testing.T) {
	l := New()
	l.Register("a", "A", 100)

	_, err := l.ApplyResult("a", "nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = l.ApplyResult("nobody", "a")
	assert.ErrorIs(t, err, ErrNotFound)

	// A failed apply must not have mutated the known participant.
	a, _ := l.Get("a")
	assert.Equal(t, 100, a.Points)
	assert.Zero(t, a.Wins)
}

func TestLeaderboardOrderAndStableTies(t *testing.T) {
	l := New()
	l.Register("a", "A", 50)
	l.Register("b", "B", 100)
	l.Register("c", "C", 100)
	l.Register("d", "D", 75)

	board := l.Leaderboard()
	require.Len(t, board, 4)
	assert.Equal(t, "b", board[0].ID) // tied with c, registered first
	assert.Equal(t, "c", board[1].ID)
	assert.Equal(t, "d", board[2].ID)
	assert.Equal(t, "a", board[3].ID)
}
