package duel

import "github.com/mcdev12/codeduel/internal/duel/events"

// Notifier fans events out to connected clients. Implementations must not
// block; delivery is best effort and a slow consumer never stalls the
// game clock.
type Notifier interface {
	// ToChannel delivers an event to a single client channel.
	ToChannel(channelID string, event *events.Event)
	// ToSession delivers an event to every channel subscribed to a session.
	ToSession(sessionID string, event *events.Event)
}

// Publisher pushes session lifecycle events to third-party observers, such as
// leaderboard viewers. Like the Notifier it is fire-and-forget.
type Publisher interface {
	Publish(event *events.Event)
}
