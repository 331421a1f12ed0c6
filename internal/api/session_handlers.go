package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/banshee-data/reps.report/internal/httputil"
	"github.com/banshee-data/reps.report/internal/monitoring"
	"github.com/banshee-data/reps.report/internal/pose/exercise"
	"github.com/banshee-data/reps.report/internal/pose/l1landmarks"
	"github.com/banshee-data/reps.report/internal/pose/pipeline"
	"github.com/banshee-data/reps.report/internal/pose/source"
	"github.com/banshee-data/reps.report/internal/security"
)

type createSessionRequest struct {
	Type        exercise.Type `json:"type"`
	CountdownMs *int64        `json:"countdown_ms,omitempty"`
	// Recording names a frame file under the recordings directory to
	// replay in real time.
	Recording string `json:"recording,omitempty"`
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := httputil.DecodeJSON(w, r, &req, s.maxBodyBytes); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if req.Type == "" {
		httputil.BadRequest(w, "missing exercise type")
		return
	}
	var countdown *time.Duration
	if req.CountdownMs != nil {
		d := time.Duration(*req.CountdownMs) * time.Millisecond
		countdown = &d
	}

	var src pipeline.FrameSource
	if req.Recording != "" {
		if s.recordings == "" {
			httputil.BadRequest(w, "recording replay is disabled")
			return
		}
		path, err := security.Resolve(s.recordings, req.Recording)
		if err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		src = source.NewFileSource(path, source.ReaderOptions{Clock: s.clock, Realtime: true})
	}

	sess, err := s.sessions.Create(req.Type, countdown, src)
	switch {
	case errors.Is(err, exercise.ErrUnknownExercise):
		httputil.BadRequest(w, err.Error())
		return
	case errors.Is(err, pipeline.ErrUnableToStart):
		httputil.NotFound(w, err.Error())
		return
	case errors.Is(err, ErrShuttingDown):
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		httputil.BadRequest(w, err.Error())
		return
	}
	w.Header().Set("Location", "/api/sessions/"+sess.ID())
	httputil.WriteJSON(w, http.StatusCreated, sess.Snapshot())
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, s.sessions.List())
}

// session resolves the {id} path value, writing a 404 when unknown.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	sess, err := s.sessions.Get(r.PathValue("id"))
	if err != nil {
		httputil.NotFound(w, err.Error())
		return nil, false
	}
	return sess, true
}

func (s *Server) showSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	httputil.WriteJSONOK(w, sess.Snapshot())
}

// PushResult is the reply to a frame push.
type PushResult struct {
	Accepted  int               `json:"accepted"`
	Malformed uint64            `json:"malformed"`
	Snapshot  pipeline.Snapshot `json:"snapshot"`
}

// pushFrames accepts one JSON frame or a batch of newline-delimited frames.
// Frames go through the latest-wins pump, so a batch usually counts as
// its last frame.
func (s *Server) pushFrames(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	switch sess.State() {
	case pipeline.StateFinished, pipeline.StateFailed:
		httputil.Conflict(w, fmt.Sprintf("session %s is %s", sess.ID(), sess.State()))
		return
	}

	body := http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	src := source.NewReaderSource(body, source.ReaderOptions{Clock: s.clock})
	if err := src.Open(r.Context()); err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	defer src.Close()

	accepted := 0
	err := src.Stream(r.Context(), func(f *l1landmarks.Frame) {
		accepted++
		sess.Offer(f)
	})
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteJSONError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		httputil.BadRequest(w, err.Error())
		return
	}
	if accepted == 0 && src.Malformed() > 0 {
		httputil.BadRequest(w, "no valid frames in request body")
		return
	}
	httputil.WriteJSONOK(w, PushResult{
		Accepted:  accepted,
		Malformed: src.Malformed(),
		Snapshot:  sess.Snapshot(),
	})
}

func (s *Server) pauseSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.Pause(); err != nil {
		httputil.Conflict(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, sess.Snapshot())
}

func (s *Server) resumeSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.Resume(); err != nil {
		httputil.Conflict(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, sess.Snapshot())
}

type finishSessionRequest struct {
	Reason pipeline.FinishReason `json:"reason,omitempty"`
}

func (s *Server) finishSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req finishSessionRequest
	if err := httputil.DecodeJSON(w, r, &req, s.maxBodyBytes); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	switch req.Reason {
	case "":
		req.Reason = pipeline.ReasonFinished
	case pipeline.ReasonFinished, pipeline.ReasonHidden, pipeline.ReasonUnload:
	default:
		httputil.BadRequest(w, fmt.Sprintf("invalid finish reason %q", req.Reason))
		return
	}

	// Recording outlives the request: a client that disconnects mid-finish
	// still gets its session saved.
	if _, err := sess.Finish(context.WithoutCancel(r.Context()), req.Reason); err != nil {
		monitoring.Logf("session %s: failed to record: %v", sess.ID(), err)
		httputil.InternalServerError(w, fmt.Sprintf("failed to record session: %v", err))
		return
	}
	httputil.WriteJSONOK(w, sess.Snapshot())
}

// streamEvents relays session events as Server-Sent Events until the
// session ends or the client goes away.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.InternalServerError(w, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable buffering for nginx

	id, events := sess.Subscribe()
	defer sess.Unsubscribe(id)

	snap, err := json.Marshal(sess.Snapshot())
	if err != nil {
		return
	}
	if _, err := fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", snap); err != nil {
		return
	}
	flusher.Flush()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				monitoring.Logf("session %s: failed to encode event: %v", sess.ID(), err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, payload); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
