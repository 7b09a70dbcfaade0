package service

import (
	"net/http"

	"exec_bot/internal/models"

	"github.com/gorilla/mux"
)

func (s *Server) handleListStrategies(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.deps.Strategies.List())
}

func (s *Server) handleCreateStrategy(w http.ResponseWriter, r *http.Request) {
	var cfg models.StrategyConfig
	if err := decode(r, &cfg); err != nil {
		respondError(w, err)
		return
	}
	st, err := s.deps.Builder.Build(cfg)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := s.deps.Strategies.Register(st); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, models.StrategyInfo{
		Name:   st.Name(),
		Type:   st.Kind(),
		Symbol: st.Symbol(),
		Active: st.IsActive(),
	})
}

type toggleRequest struct {
	Active *bool `json:"active"`
}

func (s *Server) handleToggleStrategy(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	var req toggleRequest
	if err := decode(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Active == nil {
		respondError(w, models.NewError(models.KindValidation, "active is required"))
		return
	}
	if err := s.deps.Strategies.Toggle(name, *req.Active); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"name": name, "active": *req.Active})
}

func (s *Server) handleDeleteStrategy(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := s.deps.Strategies.Remove(name); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
