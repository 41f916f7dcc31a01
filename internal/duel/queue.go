package duel

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Entry is one participant waiting for an opponent.
type Entry struct {
	ParticipantID string
	ChannelID     string
}

// Queue is the FIFO matchmaking waiting list. Join, Leave and the pairing
// check all run under one lock, so no caller can ever observe two waiting
// entries that have not been dispatched into a session.
type Queue struct {
	mu      sync.Mutex
	entries []Entry
	pair    func(a, b Entry)
}

// NewQueue creates a queue. pair is invoked synchronously, while the queue
// lock is held, with the two oldest entries the instant a pair exists.
func NewQueue(pair func(a, b Entry)) *Queue {
	return &Queue{pair: pair}
}

// Join appends the participant to the waiting list. A participant may hold at
// most one entry; a second Join is rejected, not merged.
func (q *Queue) Join(participantID, channelID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, e := range q.entries {
		if e.ParticipantID == participantID {
			return ErrAlreadyQueued
		}
	}
	q.entries = append(q.entries, Entry{ParticipantID: participantID, ChannelID: channelID})
	log.Debug().Str("participant_id", participantID).Int("queue_len", len(q.entries)).Msg("participant joined queue")

	if len(q.entries) >= 2 {
		a, b := q.entries[0], q.entries[1]
		q.entries = append([]Entry(nil), q.entries[2:]...)
		q.pair(a, b)
	}
	return nil
}

// Leave removes the participant's entry. Leaving while absent is a no-op.
func (q *Queue) Leave(participantID string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, e := range q.entries {
		if e.ParticipantID == participantID {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			log.Debug().Str("participant_id", participantID).Msg("participant left queue")
			return
		}
	}
}

// RemoveChannel drops any entry bound to the given channel. Used on
// transport-level disconnect, where the participant id may be unknown.
func (q *Queue) RemoveChannel(channelID string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, e := range q.entries {
		if e.ChannelID == channelID {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return
		}
	}
}

// Len reports the number of waiting entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}
