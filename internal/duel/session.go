package duel

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/codeduel/internal/duel/events"
	"github.com/mcdev12/codeduel/internal/models"
)

// State is the lifecycle phase of a session.
type State string

const (
	StateWaiting   State = "waiting"
	StateCountdown State = "countdown"
	StatePlaying   State = "playing"
	StateFinished  State = "finished"
)

// Outcome describes how a session terminated.
type Outcome struct {
	WinnerID  string // empty on draws and abandonment
	Solution  string
	Elapsed   int // seconds from playing entry to termination; 0 without a winner
	Abandoned bool
}

// Session is one paired contest from creation to eviction. All mutation is
// serialized by the session mutex, and every timer callback re-checks state
// after acquiring it, so a stale tick can never act on a session that has
// already moved on. The transition into StateFinished is a compare-and-set:
// the racing termination paths (submission, disconnect, clock expiry) all
// funnel through finishLocked and only the first one wins.
type Session struct {
	ID uuid.UUID

	mu             sync.Mutex
	state          State
	problem        models.Problem
	players        [2]*models.PlayerSlot
	clockRemaining int
	startedAt      *time.Time
	endedAt        *time.Time
	winnerID       string
	stopTick       chan struct{}

	clock        clockwork.Clock
	countdownLen int
	evalDelayMin time.Duration
	evalDelayMax time.Duration
	notifier     Notifier
	onFinished   func(s *Session, out Outcome)
}

func newSession(problem models.Problem, a, b models.PlayerSlot, cfg Config, clock clockwork.Clock, notifier Notifier, onFinished func(*Session, Outcome)) *Session {
	return &Session{
		ID:             uuid.New(),
		state:          StateWaiting,
		problem:        problem,
		players:        [2]*models.PlayerSlot{&a, &b},
		clockRemaining: cfg.MatchSeconds,
		clock:          clock,
		countdownLen:   cfg.CountdownSeconds,
		evalDelayMin:   cfg.EvalDelayMin,
		evalDelayMax:   cfg.EvalDelayMax,
		notifier:       notifier,
		onFinished:     onFinished,
	}
}

// Join binds a channel to the caller's slot, marking it connected. When both
// slots are connected during waiting, the countdown begins. The snapshot is
// returned regardless of any transition so a rejoining client can
// resynchronize; callers that are not one of the two players still get the
// snapshot and simply observe.
func (s *Session) Join(participantID, channelID string) *events.SnapshotPayload {
	s.mu.Lock()
	defer s.mu.Unlock()

	if slot := s.slotLocked(participantID); slot != nil {
		slot.ChannelID = channelID
		slot.Connected = true
	}
	if s.state == StateWaiting && s.players[0].Connected && s.players[1].Connected {
		s.startCountdownLocked()
	}
	return s.snapshotLocked()
}

// Leave marks the caller's slot disconnected. During playing this can resolve
// the match; during waiting or countdown the player may still rejoin.
func (s *Session) Leave(participantID string) {
	s.mu.Lock()
	slot := s.slotLocked(participantID)
	if slot == nil {
		s.mu.Unlock()
		return
	}
	slot.Connected = false
	out, finished := s.resolveDisconnectLocked()
	s.mu.Unlock()

	if finished {
		s.onFinished(s, out)
	}
}

// DisconnectChannel applies Leave semantics to whichever slot is bound to the
// given channel. It reports whether the channel belonged to this session so
// the disconnect handler can stop scanning.
func (s *Session) DisconnectChannel(channelID string) bool {
	s.mu.Lock()
	var slot *models.PlayerSlot
	for _, p := range s.players {
		if p.ChannelID == channelID && p.Connected {
			slot = p
			break
		}
	}
	if slot == nil {
		s.mu.Unlock()
		return false
	}
	slot.Connected = false
	out, finished := s.resolveDisconnectLocked()
	s.mu.Unlock()

	if finished {
		s.onFinished(s, out)
	}
	return true
}

// Submit accepts a payload as the provisionally winning solution. No
// correctness check is performed: after a short simulated evaluation delay
// the submitting player terminates the session in their favor. When both
// players submit near-simultaneously, whichever delayed termination commits
// first wins; the other is absorbed by the finished guard.
func (s *Session) Submit(participantID, payload string) error {
	s.mu.Lock()
	if s.state != StatePlaying {
		s.mu.Unlock()
		return ErrNotPlaying
	}
	slot := s.slotLocked(participantID)
	if slot == nil {
		s.mu.Unlock()
		return ErrUnknownPlayer
	}
	slot.Submitted = true
	s.broadcastLocked(events.New(events.TypePlayerSubmitted, s.ID.String(), events.PlayerSubmittedPayload{
		ParticipantID: participantID,
		DisplayName:   slot.DisplayName,
	}))
	s.mu.Unlock()

	delay := s.evalDelay()
	go func() {
		<-s.clock.After(delay)
		s.terminate(participantID, payload)
	}()
	return nil
}

// State returns the current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Winner returns the winning participant id, empty until a decisive finish.
func (s *Session) Winner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.winnerID
}

// Players returns copies of both slots.
func (s *Session) Players() [2]models.PlayerSlot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return [2]models.PlayerSlot{*s.players[0], *s.players[1]}
}

// Briefs returns the per-player identity snapshots used in match summaries.
func (s *Session) Briefs() [2]models.ParticipantBrief {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out [2]models.ParticipantBrief
	for i, p := range s.players {
		out[i] = models.ParticipantBrief{ParticipantID: p.ParticipantID, DisplayName: p.DisplayName}
	}
	return out
}

// Opponent returns the other slot's participant id.
func (s *Session) Opponent(participantID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.players {
		if p.ParticipantID != participantID {
			return p.ParticipantID
		}
	}
	return ""
}

// Problem returns a copy of the session's problem.
func (s *Session) Problem() models.Problem {
	return s.problem.Copy()
}

func (s *Session) slotLocked(participantID string) *models.PlayerSlot {
	for _, p := range s.players {
		if p.ParticipantID == participantID {
			return p
		}
	}
	return nil
}

func (s *Session) snapshotLocked() *events.SnapshotPayload {
	players := make([]models.PlayerSlot, 0, len(s.players))
	for _, p := range s.players {
		players = append(players, *p)
	}
	return &events.SnapshotPayload{
		State:          string(s.state),
		Players:        players,
		Problem:        s.problem,
		ClockRemaining: s.clockRemaining,
	}
}

func (s *Session) broadcastLocked(ev *events.Event) {
	s.notifier.ToSession(s.ID.String(), ev)
}

// startCountdownLocked enters countdown and launches the 1 Hz countdown
// ticker. The initial count is broadcast immediately.
func (s *Session) startCountdownLocked() {
	s.state = StateCountdown
	stop := make(chan struct{})
	s.stopTick = stop
	count := s.countdownLen
	s.broadcastLocked(events.New(events.TypeCountdownTick, s.ID.String(), events.CountdownTickPayload{Count: count}))
	go s.runCountdown(stop, count)
}

func (s *Session) runCountdown(stop chan struct{}, count int) {
	ticker := s.clock.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			s.mu.Lock()
			if s.state != StateCountdown {
				s.mu.Unlock()
				return
			}
			count--
			s.broadcastLocked(events.New(events.TypeCountdownTick, s.ID.String(), events.CountdownTickPayload{Count: count}))
			if count > 0 {
				s.mu.Unlock()
				continue
			}
			out, finished := s.beginPlayLocked()
			s.mu.Unlock()
			if finished {
				s.onFinished(s, out)
			}
			return
		}
	}
}

// beginPlayLocked enters playing and starts the match clock. A disconnect
// during countdown is not acted on until here: the countdown free-runs, and
// the normal playing disconnect rule applies the moment play begins, so a
// slot that never came back resolves the session immediately.
func (s *Session) beginPlayLocked() (Outcome, bool) {
	s.stopTickLocked()
	s.state = StatePlaying
	now := s.clock.Now()
	s.startedAt = &now
	s.broadcastLocked(events.New(events.TypeSessionSnapshot, s.ID.String(), s.snapshotLocked()))

	stop := make(chan struct{})
	s.stopTick = stop
	go s.runClock(stop)

	return s.resolveDisconnectLocked()
}

func (s *Session) runClock(stop chan struct{}) {
	ticker := s.clock.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			s.mu.Lock()
			if s.state != StatePlaying {
				s.mu.Unlock()
				return
			}
			s.clockRemaining--
			s.broadcastLocked(events.New(events.TypeClockTick, s.ID.String(), events.ClockTickPayload{SecondsLeft: s.clockRemaining}))
			if s.clockRemaining > 0 {
				s.mu.Unlock()
				continue
			}
			out, finished := s.finishLocked("", "")
			s.mu.Unlock()
			if finished {
				s.onFinished(s, out)
			}
			return
		}
	}
}

// resolveDisconnectLocked applies the playing-state disconnect rule: with one
// connected slot left the survivor wins, and with none the session is
// abandoned. Outside playing nothing happens.
func (s *Session) resolveDisconnectLocked() (Outcome, bool) {
	if s.state != StatePlaying {
		return Outcome{}, false
	}
	var connected []*models.PlayerSlot
	for _, p := range s.players {
		if p.Connected {
			connected = append(connected, p)
		}
	}
	if len(connected) >= 2 {
		return Outcome{}, false
	}
	if len(connected) == 1 {
		return s.finishLocked(connected[0].ParticipantID, "")
	}
	out, ok := s.finishLocked("", "")
	out.Abandoned = ok
	return out, ok
}

// terminate moves the session to finished unless another path already has.
func (s *Session) terminate(winnerID, solution string) {
	s.mu.Lock()
	out, ok := s.finishLocked(winnerID, solution)
	s.mu.Unlock()
	if ok {
		s.onFinished(s, out)
	}
}

// finishLocked is the single gate into StateFinished. The second and later
// callers get ok=false and must treat the termination as already handled.
func (s *Session) finishLocked(winnerID, solution string) (Outcome, bool) {
	if s.state == StateFinished {
		return Outcome{}, false
	}
	s.stopTickLocked()
	s.state = StateFinished
	now := s.clock.Now()
	s.endedAt = &now
	s.winnerID = winnerID

	elapsed := 0
	if winnerID != "" && s.startedAt != nil {
		elapsed = int(now.Sub(*s.startedAt) / time.Second)
	}
	return Outcome{WinnerID: winnerID, Solution: solution, Elapsed: elapsed}, true
}

// stopTickLocked cancels the outstanding ticker, if any. A session owns at
// most one active ticker at a time.
func (s *Session) stopTickLocked() {
	if s.stopTick != nil {
		close(s.stopTick)
		s.stopTick = nil
	}
}

func (s *Session) evalDelay() time.Duration {
	span := s.evalDelayMax - s.evalDelayMin
	if span <= 0 {
		return s.evalDelayMin
	}
	return s.evalDelayMin + time.Duration(rand.Int63n(int64(span)))
}
