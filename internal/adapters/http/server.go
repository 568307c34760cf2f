package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/sairevanth-zz/signalsloop-sub011/internal/domain"
	"github.com/sairevanth-zz/signalsloop-sub011/internal/ports"
)

type Server struct {
	scanner ports.Scanner
	status  ports.StatusReader
	metrics http.Handler
	log     *logrus.Logger
}

func New(scanner ports.Scanner, status ports.StatusReader, metrics http.Handler, log *logrus.Logger) *Server {
	return &Server{scanner: scanner, status: status, metrics: metrics, log: log}
}

func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", s.healthz)
	r.Post("/scans", s.createScan)
	r.Get("/scans/{scanID}/status", s.scanStatus)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}
	return r
}

type createScanRequest struct {
	ProjectID   string   `json:"project_id"`
	Sources     []string `json:"sources,omitempty"`
	RequestedBy string   `json:"requested_by,omitempty"`
}

type createScanResponse struct {
	ScanID    string                           `json:"scan_id"`
	Platforms map[string]domain.PlatformStatus `json:"platforms"`
}

type scanBody struct {
	ID              string     `json:"id"`
	ProjectID       string     `json:"project_id"`
	Status          string     `json:"status"`
	TotalDiscovered int        `json:"total_discovered"`
	TotalRelevant   int        `json:"total_relevant"`
	TotalClassified int        `json:"total_classified"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

type platformBody struct {
	Platform string  `json:"platform"`
	Status   string  `json:"status"`
	Attempts int     `json:"attempts"`
	Error    *string `json:"error,omitempty"`
}

type statusResponse struct {
	Scan            scanBody       `json:"scan"`
	Platforms       []platformBody `json:"platforms"`
	ProgressPercent int            `json:"progress_percent"`
	AllComplete     bool           `json:"all_complete"`
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// createScan accepts the scan and returns 202 immediately; nothing waits for
// a worker to pick anything up.
func (s *Server) createScan(w http.ResponseWriter, r *http.Request) {
	var req createScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	if req.ProjectID == "" {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "project_id is required"})
		return
	}
	scan, _, err := s.scanner.Create(r.Context(), req.ProjectID, req.Sources, req.RequestedBy)
	if err != nil {
		if errors.Is(err, domain.ErrNoActiveSources) {
			s.writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
			return
		}
		s.log.WithError(err).Error("scan creation failed")
		s.writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
		return
	}
	s.writeJSON(w, http.StatusAccepted, createScanResponse{ScanID: scan.ID, Platforms: scan.Platforms})
}

func (s *Server) scanStatus(w http.ResponseWriter, r *http.Request) {
	report, err := s.status.Get(r.Context(), chi.URLParam(r, "scanID"))
	if err != nil {
		if errors.Is(err, domain.ErrScanNotFound) {
			s.writeJSON(w, http.StatusNotFound, errorBody{Error: "scan not found"})
			return
		}
		s.log.WithError(err).Error("scan status read failed")
		s.writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
		return
	}

	resp := statusResponse{
		Scan: scanBody{
			ID:              report.Scan.ID,
			ProjectID:       report.Scan.ProjectID,
			Status:          string(report.Scan.Status),
			TotalDiscovered: report.Scan.TotalDiscovered,
			TotalRelevant:   report.Scan.TotalRelevant,
			TotalClassified: report.Scan.TotalClassified,
			StartedAt:       report.Scan.StartedAt,
			CompletedAt:     report.Scan.CompletedAt,
		},
		Platforms:       make([]platformBody, 0, len(report.Platforms)),
		ProgressPercent: report.ProgressPercent,
		AllComplete:     report.AllComplete,
	}
	for _, p := range report.Platforms {
		resp.Platforms = append(resp.Platforms, platformBody{
			Platform: p.Platform,
			Status:   string(p.Status),
			Attempts: p.Attempts,
			Error:    p.Error,
		})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.WithError(err).Warn("response encode failed")
	}
}
