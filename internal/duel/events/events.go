package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/codeduel/internal/models"
)

// Type identifies a duel event.
type Type string

const (
	TypePaired          Type = "paired"
	TypeSessionSnapshot Type = "session_snapshot"
	TypeCountdownTick   Type = "countdown_tick"
	TypeClockTick       Type = "clock_tick"
	TypePlayerSubmitted Type = "player_submitted"
	TypeSessionResult   Type = "session_result"
	TypeQueueError      Type = "queue_error"
	TypeSessionError    Type = "session_error"
	TypeLeaderboard     Type = "leaderboard"
	TypeMatchHistory    Type = "match_history"
)

// Event is the envelope pushed to clients over the websocket transport and to
// third-party subscribers over NATS.
type Event struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id,omitempty"`
	Type      Type            `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// New builds an envelope around a payload. Payloads are structs defined in
// this package, so marshalling cannot fail in practice.
func New(t Type, sessionID string, payload any) *Event {
	data, _ := json.Marshal(payload)
	return &Event{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Type:      t,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// PairedPayload is sent to exactly the two newly paired participants.
type PairedPayload struct {
	SessionID string `json:"session_id"`
}

// SnapshotPayload carries the full session state so a rejoining client can
// resynchronize.
type SnapshotPayload struct {
	State          string              `json:"state"`
	Players        []models.PlayerSlot `json:"players"`
	Problem        models.Problem      `json:"problem"`
	ClockRemaining int                 `json:"clock_remaining"`
}

// CountdownTickPayload is broadcast once per countdown second.
type CountdownTickPayload struct {
	Count int `json:"count"`
}

// ClockTickPayload is broadcast once per match-clock second.
type ClockTickPayload struct {
	SecondsLeft int `json:"seconds_left"`
}

// PlayerSubmittedPayload announces that a slot has submitted.
type PlayerSubmittedPayload struct {
	ParticipantID string `json:"participant_id"`
	DisplayName   string `json:"display_name"`
}

// SessionResultPayload is the terminal broadcast of a session. WinnerID is
// empty on a draw.
type SessionResultPayload struct {
	WinnerID       string `json:"winner_id,omitempty"`
	WinnerName     string `json:"winner_name,omitempty"`
	Solution       string `json:"solution,omitempty"`
	ElapsedSeconds int    `json:"elapsed_seconds"`
	PointsDelta    int    `json:"points_delta"`
}

// ErrorPayload is a caller-local error reply.
type ErrorPayload struct {
	Reason string `json:"reason"`
}

// LeaderboardPayload answers a get_leaderboard request.
type LeaderboardPayload struct {
	Players []models.Participant `json:"players"`
}

// MatchHistoryPayload answers a get_history request.
type MatchHistoryPayload struct {
	Matches []models.MatchSummary `json:"matches"`
}
