package history

import (
	"sync"

	"github.com/mcdev12/codeduel/internal/models"
)

// Log is a bounded, newest-first record of completed matches. Once the
// capacity is reached the oldest entry is evicted on every write.
type Log struct {
	mu       sync.RWMutex
	capacity int
	entries  []models.MatchSummary
}

func New(capacity int) *Log {
	return &Log{capacity: capacity}
}

// Record prepends a summary, truncating to capacity.
func (l *Log) Record(summary models.MatchSummary) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append([]models.MatchSummary{summary}, l.entries...)
	if len(l.entries) > l.capacity {
		l.entries = l.entries[:l.capacity]
	}
}

// All returns every retained summary, newest first.
func (l *Log) All() []models.MatchSummary {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]models.MatchSummary, len(l.entries))
	copy(out, l.entries)
	return out
}

// ForParticipant returns the retained summaries in which the participant
// appears in either slot, newest first.
func (l *Log) ForParticipant(participantID string) []models.MatchSummary {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []models.MatchSummary
	for _, e := range l.entries {
		for _, p := range e.Players {
			if p.ParticipantID == participantID {
				out = append(out, e)
				break
			}
		}
	}
	return out
}
