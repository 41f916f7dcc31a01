package ledger

import (
	"errors"
	"sort"
	"sync"

	"github.com/mcdev12/codeduel/internal/models"
)

// ErrNotFound is returned when a participant id is unknown to the ledger.
var ErrNotFound = errors.New("participant not found")

const (
	winPoints  = 3
	lossPoints = 2
)

// Ledger holds participant records for the process lifetime. Records are
// created through Register and mutated only by ApplyResult; they are never
// deleted.
type Ledger struct {
	mu    sync.RWMutex
	byID  map[string]*models.Participant
	order []string
}

func New() *Ledger {
	return &Ledger{byID: make(map[string]*models.Participant)}
}

// Register adds a participant. Registering an id twice is a no-op that
// returns the existing record.
func (l *Ledger) Register(id, displayName string, startingPoints int) models.Participant {
	l.mu.Lock()
	defer l.mu.Unlock()

	if existing, ok := l.byID[id]; ok {
		return *existing
	}
	p := &models.Participant{
		ID:          id,
		DisplayName: displayName,
		Points:      startingPoints,
	}
	l.byID[id] = p
	l.order = append(l.order, id)
	return *p
}

// Get returns a snapshot of the participant's record.
func (l *Ledger) Get(id string) (models.Participant, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	p, ok := l.byID[id]
	if !ok {
		return models.Participant{}, ErrNotFound
	}
	return *p, nil
}

// Result carries the post-match snapshots of both players.
type Result struct {
	Winner      models.Participant
	Loser       models.Participant
	PointsDelta int
}

// ApplyResult applies a decisive outcome: the winner gains three points, the
// loser drops two but never below zero, and both match counters advance.
// Draws and abandonments must not be reported here.
func (l *Ledger) ApplyResult(winnerID, loserID string) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	winner, ok := l.byID[winnerID]
	if !ok {
		return Result{}, ErrNotFound
	}
	loser, ok := l.byID[loserID]
	if !ok {
		return Result{}, ErrNotFound
	}

	winner.Points += winPoints
	winner.Wins++
	winner.TotalMatches++

	loser.Points -= lossPoints
	if loser.Points < 0 {
		loser.Points = 0
	}
	loser.Losses++
	loser.TotalMatches++

	return Result{Winner: *winner, Loser: *loser, PointsDelta: winPoints}, nil
}

// Leaderboard returns all participants ordered by points descending. Ties
// keep registration order.
func (l *Ledger) Leaderboard() []models.Participant {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]models.Participant, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, *l.byID[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Points > out[j].Points
	})
	return out
}
