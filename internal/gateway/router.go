package gateway

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/codeduel/internal/duel"
	"github.com/mcdev12/codeduel/internal/duel/events"
)

// Command is one inbound client message.
type Command struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

// Inbound command payloads.
type joinQueueCmd struct {
	ParticipantID string `json:"participant_id"`
}

type sessionCmd struct {
	SessionID     string `json:"session_id"`
	ParticipantID string `json:"participant_id"`
}

type submitCmd struct {
	SessionID     string `json:"session_id"`
	ParticipantID string `json:"participant_id"`
	Payload       string `json:"payload"`
}

type historyCmd struct {
	ParticipantID string `json:"participant_id"`
}

// Router dispatches inbound websocket commands to the engine and sends error
// replies back to the single calling channel.
type Router struct {
	engine *duel.Engine
	cm     *ConnectionManager
}

func NewRouter(engine *duel.Engine, cm *ConnectionManager) *Router {
	return &Router{engine: engine, cm: cm}
}

// Handle parses and executes one client command.
func (r *Router) Handle(conn *Connection, raw []byte) {
	var cmd Command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		log.Warn().Err(err).Str("channel_id", conn.ID).Msg("malformed client command")
		return
	}

	switch cmd.Action {
	case "join_queue":
		var c joinQueueCmd
		if err := json.Unmarshal(cmd.Data, &c); err != nil {
			r.queueError(conn, "malformed join_queue payload")
			return
		}
		if err := r.engine.JoinQueue(c.ParticipantID, conn.ID); err != nil {
			r.queueError(conn, err.Error())
		}

	case "leave_queue":
		var c joinQueueCmd
		if err := json.Unmarshal(cmd.Data, &c); err != nil {
			r.queueError(conn, "malformed leave_queue payload")
			return
		}
		r.engine.LeaveQueue(c.ParticipantID)

	case "join_session":
		var c sessionCmd
		if err := json.Unmarshal(cmd.Data, &c); err != nil {
			r.sessionError(conn, "malformed join_session payload")
			return
		}
		snapshot, err := r.engine.JoinSession(c.SessionID, c.ParticipantID, conn.ID)
		if err != nil {
			r.sessionError(conn, err.Error())
			return
		}
		r.cm.Subscribe(conn, c.SessionID)
		r.cm.ToChannel(conn.ID, events.New(events.TypeSessionSnapshot, c.SessionID, snapshot))

	case "leave_session":
		var c sessionCmd
		if err := json.Unmarshal(cmd.Data, &c); err != nil {
			r.sessionError(conn, "malformed leave_session payload")
			return
		}
		r.cm.Unsubscribe(conn, c.SessionID)
		if err := r.engine.LeaveSession(c.SessionID, c.ParticipantID); err != nil {
			r.sessionError(conn, err.Error())
		}

	case "submit":
		var c submitCmd
		if err := json.Unmarshal(cmd.Data, &c); err != nil {
			r.sessionError(conn, "malformed submit payload")
			return
		}
		if err := r.engine.Submit(c.SessionID, c.ParticipantID, c.Payload); err != nil {
			r.sessionError(conn, err.Error())
		}

	case "get_leaderboard":
		r.cm.ToChannel(conn.ID, events.New(events.TypeLeaderboard, "", events.LeaderboardPayload{
			Players: r.engine.Leaderboard(),
		}))

	case "get_history":
		var c historyCmd
		if err := json.Unmarshal(cmd.Data, &c); err != nil {
			r.queueError(conn, "malformed get_history payload")
			return
		}
		r.cm.ToChannel(conn.ID, events.New(events.TypeMatchHistory, "", events.MatchHistoryPayload{
			Matches: r.engine.History(c.ParticipantID),
		}))

	default:
		log.Warn().Str("action", cmd.Action).Str("channel_id", conn.ID).Msg("unknown client action")
	}
}

func (r *Router) queueError(conn *Connection, reason string) {
	r.cm.ToChannel(conn.ID, events.New(events.TypeQueueError, "", events.ErrorPayload{Reason: reason}))
}

func (r *Router) sessionError(conn *Connection, reason string) {
	r.cm.ToChannel(conn.ID, events.New(events.TypeSessionError, "", events.ErrorPayload{Reason: reason}))
}
