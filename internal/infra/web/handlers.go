package web

import (
	"encoding/json"
	"net/http"
	"time"
)

type errorStateView struct {
	Worker         string    `json:"worker"`
	Operation      string    `json:"operation"`
	ErrorType      string    `json:"error_type"`
	Count          int       `json:"count"`
	FirstSeen      time.Time `json:"first_seen"`
	LastSent       time.Time `json:"last_sent"`
	LastOccurrence time.Time `json:"last_occurrence"`
	Details        string    `json:"details"`
}

type sessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("OK"))
}

// handleSession exchanges the API key for a session token.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil || s.apiKey == "" {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	tok, ok := bearer(r)
	if !ok || !constantTimeEqual(tok, s.apiKey) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	now := s.now()
	signed, err := s.auth.Mint(w, now)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to mint admin session")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{Token: signed, ExpiresAt: now.Add(s.auth.cfg.TTL)})
}

func (s *Server) handleErrors(w http.ResponseWriter, _ *http.Request) {
	out := []errorStateView{}
	if s.errors != nil {
		for _, st := range s.errors.Active() {
			out = append(out, errorStateView{
				Worker:         st.Key.Worker,
				Operation:      st.Key.Operation,
				ErrorType:      st.Key.ErrorType,
				Count:          st.Count,
				FirstSeen:      st.FirstSeen,
				LastSent:       st.LastSent,
				LastOccurrence: st.LastOccurrence,
				Details:        st.Details,
			})
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
