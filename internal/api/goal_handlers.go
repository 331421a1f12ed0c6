package api

import (
	"errors"
	"net/http"

	"github.com/banshee-data/reps.report/internal/httputil"
	"github.com/banshee-data/reps.report/internal/pose/exercise"
	"github.com/banshee-data/reps.report/internal/pose/storage/sqlite"
)

func (s *Server) goalStore(w http.ResponseWriter) (*sqlite.GoalStore, bool) {
	if s.goals == nil {
		httputil.NotFound(w, "goals require the sqlite store")
		return nil, false
	}
	return s.goals, true
}

func (s *Server) listGoals(w http.ResponseWriter, r *http.Request) {
	goals, ok := s.goalStore(w)
	if !ok {
		return
	}
	list, err := goals.List(r.Context())
	if err != nil {
		httputil.InternalServerError(w, "failed to load goals")
		return
	}
	httputil.WriteJSONOK(w, list)
}

type createGoalRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Exercise    string `json:"exercise,omitempty"`
	Target      int    `json:"target,omitempty"`
	XPReward    int    `json:"xp_reward"`
	CoinReward  int    `json:"coin_reward"`
}

func (s *Server) validExercise(w http.ResponseWriter, name string) bool {
	if name == "" {
		return true
	}
	if _, err := s.registry.Lookup(exercise.Type(name)); err != nil {
		httputil.BadRequest(w, err.Error())
		return false
	}
	return true
}

func (s *Server) createGoal(w http.ResponseWriter, r *http.Request) {
	goals, ok := s.goalStore(w)
	if !ok {
		return
	}
	var req createGoalRequest
	if err := httputil.DecodeJSON(w, r, &req, s.maxBodyBytes); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if !s.validExercise(w, req.Exercise) {
		return
	}
	g := sqlite.Goal{
		Title:       req.Title,
		Description: req.Description,
		Exercise:    req.Exercise,
		Target:      req.Target,
		XPReward:    req.XPReward,
		CoinReward:  req.CoinReward,
	}
	if err := goals.Create(r.Context(), &g); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, g)
}

// updateGoalRequest is a partial edit; absent fields keep their value.
type updateGoalRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Exercise    *string `json:"exercise"`
	Target      *int    `json:"target"`
	XPReward    *int    `json:"xp_reward"`
	CoinReward  *int    `json:"coin_reward"`
}

func (req updateGoalRequest) apply(g *sqlite.Goal) {
	if req.Title != nil {
		g.Title = *req.Title
	}
	if req.Description != nil {
		g.Description = *req.Description
	}
	if req.Exercise != nil {
		g.Exercise = *req.Exercise
	}
	if req.Target != nil {
		g.Target = *req.Target
	}
	if req.XPReward != nil {
		g.XPReward = *req.XPReward
	}
	if req.CoinReward != nil {
		g.CoinReward = *req.CoinReward
	}
}

func (s *Server) updateGoal(w http.ResponseWriter, r *http.Request) {
	goals, ok := s.goalStore(w)
	if !ok {
		return
	}
	var req updateGoalRequest
	if err := httputil.DecodeJSON(w, r, &req, s.maxBodyBytes); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if req.Exercise != nil && !s.validExercise(w, *req.Exercise) {
		return
	}
	g, err := goals.Get(r.Context(), r.PathValue("id"))
	if err == nil {
		req.apply(&g)
		err = goals.Update(r.Context(), &g)
	}
	switch {
	case errors.Is(err, sqlite.ErrGoalNotFound):
		httputil.NotFound(w, err.Error())
	case errors.Is(err, sqlite.ErrGoalCompleted):
		httputil.Conflict(w, err.Error())
	case err != nil:
		httputil.BadRequest(w, err.Error())
	default:
		httputil.WriteJSONOK(w, g)
	}
}

func (s *Server) deleteGoal(w http.ResponseWriter, r *http.Request) {
	goals, ok := s.goalStore(w)
	if !ok {
		return
	}
	err := goals.Delete(r.Context(), r.PathValue("id"))
	switch {
	case errors.Is(err, sqlite.ErrGoalNotFound):
		httputil.NotFound(w, err.Error())
	case err != nil:
		httputil.InternalServerError(w, "failed to delete goal")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) completeGoal(w http.ResponseWriter, r *http.Request) {
	goals, ok := s.goalStore(w)
	if !ok {
		return
	}
	done, err := goals.Complete(r.Context(), r.PathValue("id"))
	switch {
	case errors.Is(err, sqlite.ErrGoalNotFound):
		httputil.NotFound(w, err.Error())
	case errors.Is(err, sqlite.ErrGoalCompleted):
		httputil.Conflict(w, err.Error())
	case err != nil:
		httputil.InternalServerError(w, "failed to complete goal")
	default:
		httputil.WriteJSONOK(w, done)
	}
}

func (s *Server) showProfile(w http.ResponseWriter, r *http.Request) {
	goals, ok := s.goalStore(w)
	if !ok {
		return
	}
	p, err := goals.Profile(r.Context())
	if err != nil {
		httputil.InternalServerError(w, "failed to load profile")
		return
	}
	httputil.WriteJSONOK(w, p)
}
