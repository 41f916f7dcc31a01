package duel

import (
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/codeduel/internal/duel/events"
	"github.com/mcdev12/codeduel/internal/history"
	"github.com/mcdev12/codeduel/internal/ledger"
	"github.com/mcdev12/codeduel/internal/models"
	"github.com/mcdev12/codeduel/internal/problem"
)

// Config holds the tunable timings and limits of the engine.
type Config struct {
	CountdownSeconds int
	MatchSeconds     int
	EvalDelayMin     time.Duration
	EvalDelayMax     time.Duration
	EvictAfter       time.Duration
	HistorySize      int
}

func DefaultConfig() Config {
	return Config{
		CountdownSeconds: 5,
		MatchSeconds:     600,
		EvalDelayMin:     500 * time.Millisecond,
		EvalDelayMax:     1500 * time.Millisecond,
		EvictAfter:       5 * time.Minute,
		HistorySize:      10,
	}
}

// Engine is the top-level aggregate owning the matchmaking queue, the session
// registry, the ledger, the problem catalog and the match history. One engine
// per process; request handlers hold a reference instead of reaching for
// package globals.
type Engine struct {
	cfg      Config
	clock    clockwork.Clock
	ledger   *ledger.Ledger
	catalog  *problem.Catalog
	history  *history.Log
	registry *Registry
	queue    *Queue
	notifier Notifier
	pub      Publisher // optional
}

// NewEngine wires the engine. pub may be nil when no broker is configured.
func NewEngine(cfg Config, clock clockwork.Clock, led *ledger.Ledger, catalog *problem.Catalog, notifier Notifier, pub Publisher) *Engine {
	e := &Engine{
		cfg:      cfg,
		clock:    clock,
		ledger:   led,
		catalog:  catalog,
		history:  history.New(cfg.HistorySize),
		notifier: notifier,
		pub:      pub,
	}
	e.registry = NewRegistry(clock)
	e.queue = NewQueue(e.pairEntries)
	return e
}

// JoinQueue puts a participant into the waiting list, pairing immediately
// when an opponent is already waiting.
func (e *Engine) JoinQueue(participantID, channelID string) error {
	if _, err := e.ledger.Get(participantID); err != nil {
		return ErrUnknownParticipant
	}
	return e.queue.Join(participantID, channelID)
}

// LeaveQueue removes the participant from the waiting list, if present.
func (e *Engine) LeaveQueue(participantID string) {
	e.queue.Leave(participantID)
}

// pairEntries runs inside the queue lock the moment two entries exist. It
// creates the session and notifies exactly the two paired channels.
func (e *Engine) pairEntries(a, b Entry) {
	pa, errA := e.ledger.Get(a.ParticipantID)
	pb, errB := e.ledger.Get(b.ParticipantID)
	if errA != nil || errB != nil {
		// Ledger records are never deleted, so a queued id without a record
		// is a programming error. Drop the pairing rather than crash.
		log.Error().Str("participant_a", a.ParticipantID).Str("participant_b", b.ParticipantID).Msg("queued participant missing from ledger")
		return
	}

	s := newSession(
		e.catalog.Random(),
		models.PlayerSlot{ParticipantID: pa.ID, DisplayName: pa.DisplayName, ChannelID: a.ChannelID},
		models.PlayerSlot{ParticipantID: pb.ID, DisplayName: pb.DisplayName, ChannelID: b.ChannelID},
		e.cfg, e.clock, e.notifier, e.finishSession,
	)
	e.registry.Add(s)

	log.Info().
		Str("session_id", s.ID.String()).
		Str("player_one", pa.DisplayName).
		Str("player_two", pb.DisplayName).
		Msg("session created")

	ev := events.New(events.TypePaired, s.ID.String(), events.PairedPayload{SessionID: s.ID.String()})
	e.notifier.ToChannel(a.ChannelID, ev)
	e.notifier.ToChannel(b.ChannelID, ev)
	e.publish(ev)
}

// JoinSession binds the calling channel to the participant's slot and returns
// the full state snapshot so the client can (re)synchronize.
func (e *Engine) JoinSession(sessionID, participantID, channelID string) (*events.SnapshotPayload, error) {
	s, err := e.session(sessionID)
	if err != nil {
		return nil, err
	}
	return s.Join(participantID, channelID), nil
}

// LeaveSession marks the participant's slot disconnected.
func (e *Engine) LeaveSession(sessionID, participantID string) error {
	s, err := e.session(sessionID)
	if err != nil {
		return err
	}
	s.Leave(participantID)
	return nil
}

// Submit enters the participant's payload into the session's submission race.
func (e *Engine) Submit(sessionID, participantID, payload string) error {
	s, err := e.session(sessionID)
	if err != nil {
		return err
	}
	return s.Submit(participantID, payload)
}

// Disconnect handles a transport-level drop. The channel may be waiting in
// the queue, bound to a session slot, or neither; the handler does not get to
// assume which, so it checks the queue and scans live sessions.
func (e *Engine) Disconnect(channelID string) {
	e.queue.RemoveChannel(channelID)
	for _, s := range e.registry.All() {
		if s.DisconnectChannel(channelID) {
			// A participant holds at most one live session.
			return
		}
	}
}

// Leaderboard returns all participants ordered by points descending.
func (e *Engine) Leaderboard() []models.Participant {
	return e.ledger.Leaderboard()
}

// History returns the retained match summaries involving the participant.
func (e *Engine) History(participantID string) []models.MatchSummary {
	return e.history.ForParticipant(participantID)
}

// Registry exposes the session registry for read-only inspection.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// QueueLen reports the number of participants waiting for a pairing.
func (e *Engine) QueueLen() int {
	return e.queue.Len()
}

func (e *Engine) session(sessionID string) (*Session, error) {
	id, err := uuid.Parse(sessionID)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	s, ok := e.registry.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// finishSession is the session termination hook. It runs strictly after the
// finished transition committed, so ledger and history access cannot race a
// duplicate termination.
func (e *Engine) finishSession(s *Session, out Outcome) {
	if out.Abandoned {
		// Nobody left to deliver a result to; no summary is recorded.
		log.Info().Str("session_id", s.ID.String()).Msg("session abandoned with no connected players")
		e.registry.Remove(s.ID)
		return
	}

	result := events.SessionResultPayload{ElapsedSeconds: out.Elapsed}
	if out.WinnerID != "" {
		res, err := e.ledger.ApplyResult(out.WinnerID, s.Opponent(out.WinnerID))
		if err != nil {
			log.Error().Err(err).Str("session_id", s.ID.String()).Msg("failed to apply match result")
		} else {
			prob := s.Problem()
			e.history.Record(models.MatchSummary{
				ID:                uuid.New().String(),
				Timestamp:         e.clock.Now(),
				Players:           s.Briefs(),
				WinnerID:          res.Winner.ID,
				WinnerName:        res.Winner.DisplayName,
				ProblemTitle:      prob.Title,
				ProblemDifficulty: prob.Difficulty,
			})
			result.WinnerID = res.Winner.ID
			result.WinnerName = res.Winner.DisplayName
			result.PointsDelta = res.PointsDelta
		}
		result.Solution = out.Solution
		if result.Solution == "" {
			result.Solution = "// No solution provided"
		}
	}

	ev := events.New(events.TypeSessionResult, s.ID.String(), result)
	e.notifier.ToSession(s.ID.String(), ev)
	e.publish(ev)
	e.registry.ScheduleEviction(s.ID, e.cfg.EvictAfter)

	log.Info().
		Str("session_id", s.ID.String()).
		Str("winner_id", out.WinnerID).
		Int("elapsed_seconds", out.Elapsed).
		Msg("session finished")
}

func (e *Engine) publish(ev *events.Event) {
	if e.pub != nil {
		e.pub.Publish(ev)
	}
}
