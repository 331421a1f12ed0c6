package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/banshee-data/reps.report/internal/httputil"
	"github.com/banshee-data/reps.report/internal/pose/history"
	"github.com/banshee-data/reps.report/internal/pose/report"
)

// lister and lastFinder are implemented by stores that can answer
// history queries without loading the whole collection.
type lister interface {
	List(ctx context.Context, q history.Query) ([]history.Record, error)
}

type lastFinder interface {
	Last(ctx context.Context, exercise string) (history.Record, bool, error)
}

func (s *Server) query(r *http.Request) (history.Query, error) {
	q := history.Query{Type: r.URL.Query().Get("type")}
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			return q, errors.New("invalid 'limit' parameter")
		}
		q.Limit = n
	}
	return q, nil
}

func (s *Server) records(ctx context.Context, q history.Query) ([]history.Record, error) {
	if l, ok := s.history.(lister); ok {
		return l.List(ctx, q)
	}
	return history.List(ctx, s.history, q)
}

func (s *Server) listHistory(w http.ResponseWriter, r *http.Request) {
	q, err := s.query(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	records, err := s.records(r.Context(), q)
	if err != nil {
		httputil.InternalServerError(w, "failed to load history")
		return
	}
	if records == nil {
		records = []history.Record{}
	}
	httputil.WriteJSONOK(w, records)
}

func (s *Server) lastActivity(w http.ResponseWriter, r *http.Request) {
	typ := r.URL.Query().Get("type")
	var (
		rec   history.Record
		found bool
		err   error
	)
	if lf, ok := s.history.(lastFinder); ok {
		rec, found, err = lf.Last(r.Context(), typ)
	} else {
		var all []history.Record
		if all, err = s.history.All(r.Context()); err == nil {
			rec, found = history.LastActivity(all, typ)
		}
	}
	if err != nil {
		httputil.InternalServerError(w, "failed to load history")
		return
	}
	if !found {
		httputil.NotFound(w, "no sessions recorded")
		return
	}
	httputil.WriteJSONOK(w, rec)
}

func (s *Server) showSummary(w http.ResponseWriter, r *http.Request) {
	records, err := s.history.All(r.Context())
	if err != nil {
		httputil.InternalServerError(w, "failed to load history")
		return
	}
	httputil.WriteJSONOK(w, report.Summarize(records))
}

func (s *Server) showChart(w http.ResponseWriter, r *http.Request) {
	q, err := s.query(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	records, err := s.records(r.Context(), q)
	if err != nil {
		httputil.InternalServerError(w, "failed to load history")
		return
	}
	var buf bytes.Buffer
	if err := report.RenderHTML(&buf, records, report.ChartOptions{AssetsHost: s.assetsHost}); err != nil {
		if errors.Is(err, report.ErrNoData) {
			httputil.NotFound(w, err.Error())
			return
		}
		httputil.InternalServerError(w, "failed to render chart")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func (s *Server) showPlot(w http.ResponseWriter, r *http.Request) {
	q, err := s.query(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	records, err := s.records(r.Context(), q)
	if err != nil {
		httputil.InternalServerError(w, "failed to load history")
		return
	}
	var buf bytes.Buffer
	if err := report.WritePNG(&buf, records); err != nil {
		if errors.Is(err, report.ErrNoData) {
			httputil.NotFound(w, err.Error())
			return
		}
		httputil.InternalServerError(w, "failed to render plot")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(buf.Bytes())
}
