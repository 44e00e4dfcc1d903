package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/newsdigest/pkg/domain"
	"github.com/umputun/newsdigest/pkg/scheduler"
	"github.com/umputun/newsdigest/pkg/setup"
)

// messageRequest is a user answer in a chat session
type messageRequest struct {
	Text string `json:"text"`
}

// sessionResponse is returned by session endpoints
type sessionResponse struct {
	ID        string        `json:"id,omitempty"`
	Reply     string        `json:"reply,omitempty"`
	Stage     setup.Stage   `json:"stage"`
	Step      int           `json:"step"`
	Confirmed bool          `json:"confirmed"`
	History   []domain.Turn `json:"history,omitempty"`
}

// statusResponse reports server and scheduler state
type statusResponse struct {
	Status    string           `json:"status"`
	Version   string           `json:"version"`
	Time      time.Time        `json:"time"`
	Sessions  map[string]int   `json:"sessions"`
	Scheduler *schedulerStatus `json:"scheduler,omitempty"`
}

type schedulerStatus struct {
	scheduler.Stats
	Every string `json:"every"`
}

// statusHandler returns server status
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	status := statusResponse{
		Status:   "ok",
		Version:  s.version,
		Time:     time.Now().UTC(),
		Sessions: s.sessions.stages(),
	}
	if s.scheduler != nil {
		if stats, ok := s.scheduler.Stats(); ok {
			status.Scheduler = &schedulerStatus{Stats: stats, Every: stats.Interval.String()}
		}
	}
	RenderJSON(w, r, http.StatusOK, status)
}

// createSessionHandler starts a new setup conversation
func (s *Server) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	st, reply := s.conv.Start(r.Context())
	id := s.sessions.add(st)
	lgr.Printf("[DEBUG] session %s started", id)
	RenderJSON(w, r, http.StatusCreated, sessionResponse{
		ID: id, Reply: reply, Stage: st.Stage, Step: st.Stage.Step(), History: st.History,
	})
}

// getSessionHandler returns the conversation state of a session
func (s *Server) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess, ok := s.sessions.get(id)
	if !ok {
		RenderError(w, r, errors.New("session not found"), http.StatusNotFound)
		return
	}
	st := sess.snapshot()
	RenderJSON(w, r, http.StatusOK, sessionResponse{
		ID: id, Stage: st.Stage, Step: st.Stage.Step(), Confirmed: st.Confirmed, History: st.History,
	})
}

// messageHandler passes the user's text to the conversation and returns the reply
func (s *Server) messageHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess, ok := s.sessions.get(id)
	if !ok {
		RenderError(w, r, errors.New("session not found"), http.StatusNotFound)
		return
	}

	var req messageRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		RenderError(w, r, errors.New("invalid request: "+err.Error()), http.StatusBadRequest)
		return
	}
	req.Text = strings.TrimRight(req.Text, "\r\n")

	var reply string
	st := sess.update(time.Now(), func(cur setup.State) setup.State {
		next, rep := s.conv.Step(r.Context(), req.Text, cur)
		reply = rep
		return next
	})

	RenderJSON(w, r, http.StatusOK, sessionResponse{
		ID: id, Reply: reply, Stage: st.Stage, Step: st.Stage.Step(), Confirmed: st.Confirmed, History: st.History,
	})
}

// deleteSessionHandler drops a session
func (s *Server) deleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.sessions.remove(id) {
		RenderError(w, r, errors.New("session not found"), http.StatusNotFound)
		return
	}
	lgr.Printf("[DEBUG] session %s deleted", id)
	w.WriteHeader(http.StatusNoContent)
}
