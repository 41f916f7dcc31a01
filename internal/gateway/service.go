package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/codeduel/internal/duel"
)

// Service ties the connection manager, the command router and the HTTP
// surface together.
type Service struct {
	engine *duel.Engine
	cm     *ConnectionManager
	router *Router
}

func NewService(engine *duel.Engine, cm *ConnectionManager) *Service {
	s := &Service{
		engine: engine,
		cm:     cm,
		router: NewRouter(engine, cm),
	}
	cm.onMessage = s.router.Handle
	cm.onDisconnect = engine.Disconnect
	return s
}

// Handler returns the full HTTP handler: the websocket endpoint plus the
// read-only JSON views of the leaderboard and history queries.
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", s.handleHealth)
	r.Get("/ws", s.handleWebSocket)
	r.Get("/ws/stats", s.handleStats)
	r.Get("/api/leaderboard", s.handleLeaderboard)
	r.Get("/api/history", s.handleHistory)

	return cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}).Handler(r)
}

func (s *Service) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if err := s.cm.UpgradeConnection(w, r); err != nil {
		log.Error().Err(err).Msg("failed to upgrade websocket connection")
		http.Error(w, "failed to upgrade connection", http.StatusInternalServerError)
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Service) handleStats(w http.ResponseWriter, r *http.Request) {
	connections, sessions := s.cm.Stats()
	writeJSON(w, map[string]int{
		"total_connections":   connections,
		"subscribed_sessions": sessions,
		"live_sessions":       s.engine.Registry().Len(),
	})
}

func (s *Service) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"players": s.engine.Leaderboard()})
}

func (s *Service) handleHistory(w http.ResponseWriter, r *http.Request) {
	participantID := r.URL.Query().Get("participant_id")
	if participantID == "" {
		http.Error(w, "participant_id is required", http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]any{"matches": s.engine.History(participantID)})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg(fmt.Sprintf("failed to encode %T response", v))
	}
}
