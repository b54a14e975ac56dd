package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/makerden/doorlog/internal/doorlog/service"
	"github.com/makerden/doorlog/internal/doorlog/types"
	"github.com/makerden/doorlog/internal/logging"
	"github.com/makerden/doorlog/internal/metrics"
)

type Dependencies struct {
	Logger   logging.Logger
	Addr     string
	Query    *service.QueryService
	Ingestor *service.Ingestor
	Gate     *service.ReloadGate
}

type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	query      *service.QueryService
	ingestor   *service.Ingestor
	gate       *service.ReloadGate
}

func NewServer(d Dependencies) *Server {
	mux := http.NewServeMux()

	s := &Server{
		mux:      mux,
		query:    d.Query,
		ingestor: d.Ingestor,
		gate:     d.Gate,
	}

	mux.HandleFunc("GET /api/metrics", s.handleMetrics)
	mux.HandleFunc("GET /api/metrics/summary", s.handleSummary)
	mux.HandleFunc("POST /api/metrics/reload", s.handleReload)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /metrics", metrics.PromHTTP.Handler())

	handler := wrap(d.Logger, mux)

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	req := service.PageRequest{
		Start:    q.Get("start"),
		End:      q.Get("end"),
		Types:    splitTypes(q.Get("types")),
		Page:     parseIntOr(q.Get("page"), service.DefaultPage),
		PageSize: parseIntOr(q.Get("page_size"), service.DefaultPageSize),
	}

	if strings.EqualFold(q.Get("format"), "csv") {
		s.serveCSV(w, r, req)
		return
	}

	page, err := s.query.Events(r.Context(), req)
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, pageToPayload(page))
}

// serveCSV exports the full resolved range as a CSV attachment. Pagination
// does not apply to exports.
func (s *Server) serveCSV(w http.ResponseWriter, r *http.Request, req service.PageRequest) {
	rr, err := s.query.FetchRange(r.Context(), req.Start, req.End, req.Types)
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}

	filename := "metrics-" + rr.StartDate + "_" + rr.EndDate + ".csv"
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, _ = io.WriteString(w, types.EventsToCSV(stripRaw(rr.Events)))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	sum, err := s.query.Summarize(r.Context(), q.Get("start"), q.Get("end"))
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	ok, wait := s.gate.Allow()
	if !ok {
		writeError(w, http.StatusTooManyRequests, fmt.Sprintf("Rate limited. Try again in %d seconds.", wait))
		return
	}

	res, err := s.ingestor.ScanDir(r.Context())
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("metrics reload failed")
		writeError(w, http.StatusInternalServerError, "Failed to reload metrics: "+err.Error())
		return
	}
	s.gate.RecordRun(res)

	writeJSON(w, http.StatusOK, reloadToPayload(res))
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeQueryError maps a query failure onto the API's error contract: an
// oversized range gets the 400 payload with the requested span, anything
// else is a 500 with the error text.
func (s *Server) writeQueryError(w http.ResponseWriter, r *http.Request, err error) {
	var re *service.RangeError
	switch {
	case errors.As(err, &re):
		writeJSON(w, http.StatusBadRequest, rangeErrorToPayload(re))
	default:
		logging.Ctx(r.Context()).Error().Err(err).Msg("metrics query failed")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorPayload{Error: msg})
}

// parseIntOr mirrors the dashboard's tolerant parameter handling: missing
// or malformed values select the default instead of erroring.
func parseIntOr(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// splitTypes parses the comma-separated types filter. Blank entries are
// dropped so "open,,close" and "open, close" both work.
func splitTypes(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
