package models

import "time"

// PlayerSlot is one of the two fixed positions in a session. Slot identity is
// set at pairing time; the channel binding and connected flag are rebound when
// the player reconnects.
type PlayerSlot struct {
	ParticipantID string `json:"participant_id"`
	DisplayName   string `json:"display_name"`
	ChannelID     string `json:"-"`
	Connected     bool   `json:"connected"`
	Submitted     bool   `json:"submitted"`
}

// ParticipantBrief is the per-player snapshot embedded in a MatchSummary.
type ParticipantBrief struct {
	ParticipantID string `json:"participant_id"`
	DisplayName   string `json:"display_name"`
}

// MatchSummary is the immutable record of a decisive match, written once at
// the finished transition.
type MatchSummary struct {
	ID                string              `json:"id"`
	Timestamp         time.Time           `json:"timestamp"`
	Players           [2]ParticipantBrief `json:"players"`
	WinnerID          string              `json:"winner_id"`
	WinnerName        string              `json:"winner_name"`
	ProblemTitle      string              `json:"problem_title"`
	ProblemDifficulty string              `json:"problem_difficulty"`
}
