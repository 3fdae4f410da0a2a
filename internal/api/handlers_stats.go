package api

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleTaggerStats(w http.ResponseWriter, r *http.Request) {
	if s.tagger == nil || s.tagger.Stats == nil {
		jsonError(w, "tagger stats unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"tagger":      s.tagger.URL(),
		"queue_depth": s.orchestrator.QueueDepth(),
		"stats":       s.tagger.Stats.Snapshot(),
	})
}
