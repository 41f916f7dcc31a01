package duel

import "errors"

// Caller-local error conditions. None of these terminate the process or
// affect other sessions; they are reported back to the requesting channel.
var (
	ErrAlreadyQueued      = errors.New("already in queue")
	ErrUnknownParticipant = errors.New("participant not found")
	ErrSessionNotFound    = errors.New("session not found")
	ErrNotPlaying         = errors.New("session is not in progress")
	ErrUnknownPlayer      = errors.New("participant is not part of this session")
)
