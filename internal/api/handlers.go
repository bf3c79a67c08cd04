package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/alexrabarts/ceo-agent/internal/apperr"
	"github.com/alexrabarts/ceo-agent/internal/tasks"
)

// Task response structure
type TaskResponse struct {
	Ref       string `json:"ref"`
	ID        string `json:"id,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
	Text      string `json:"text"`
	Owner     string `json:"owner"`
	Status    string `json:"status"`
	RawStatus string `json:"raw_status,omitempty"`
	Notes     string `json:"notes,omitempty"`
	Row       int    `json:"row"`
}

// Status change request. An empty status advances to the next one.
type StatusRequest struct {
	Status string `json:"status"`
}

// Usage stats response structure
type UsageResponse struct {
	Service  string `json:"service"`
	Calls    int    `json:"calls"`
	Failures int    `json:"failures"`
	Tokens   int    `json:"tokens"`
	AvgMs    int64  `json:"avg_ms"`
}

// NewTaskResponse converts a record to its wire form
func NewTaskResponse(r tasks.Record) TaskResponse {
	resp := TaskResponse{
		Ref:    r.Ref(),
		ID:     r.ID,
		Text:   r.Text,
		Owner:  r.Owner,
		Status: string(r.Status),
		Notes:  r.Notes,
		Row:    r.Row,
	}
	if !r.CreatedAt.IsZero() {
		resp.CreatedAt = r.CreatedAt.Format(time.RFC3339)
	}
	if r.Status == tasks.StatusUnknown {
		resp.RawStatus = r.RawStatus
	}
	return resp
}

// GET /api/tasks?status= - List tasks
func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	records, err := s.opts.Tasks.ListTasks(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeAppError(w, err)
		return
	}

	response := make([]TaskResponse, 0, len(records))
	for _, record := range records {
		response = append(response, NewTaskResponse(record))
	}

	writeJSON(w, http.StatusOK, response)
}

// POST /api/tasks/{ref}/status - Change a task status
func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	ref := r.PathValue("ref")
	if ref == "" {
		writeError(w, http.StatusBadRequest, "Invalid task ref")
		return
	}

	var req StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	status := tasks.ParseStatus(req.Status)
	if req.Status == "" {
		current, err := s.findTask(r, ref)
		if err != nil {
			writeAppError(w, err)
			return
		}
		status = current.Status.Next()
	}
	if !status.Known() {
		writeError(w, http.StatusBadRequest, "Invalid status")
		return
	}

	updated, err := s.opts.Tasks.SetStatus(r.Context(), ref, status)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, NewTaskResponse(updated))
}

func (s *Server) findTask(r *http.Request, ref string) (tasks.Record, error) {
	records, err := s.opts.Tasks.ListTasks(r.Context(), "")
	if err != nil {
		return tasks.Record{}, err
	}
	for _, record := range records {
		if record.Ref() == ref {
			return record, nil
		}
	}
	return tasks.Record{}, apperr.NotFound("task " + ref)
}

// POST /api/reports/{daily|weekly} - Send a report to the admin chat now
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	job := r.PathValue("job")
	if job != "daily" && job != "weekly" {
		writeError(w, http.StatusNotFound, "Unknown report")
		return
	}

	if err := s.opts.Reports.RunNow(r.Context(), job); err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "sent", "report": job})
}

// GET /api/stats?days=7 - External API usage
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid days")
			return
		}
		days = n
	}

	stats, err := s.opts.Usage.UsageStats(time.Now().AddDate(0, 0, -days))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response := make([]UsageResponse, 0, len(stats))
	for _, stat := range stats {
		response = append(response, UsageResponse(stat))
	}

	writeJSON(w, http.StatusOK, response)
}

func writeAppError(w http.ResponseWriter, err error) {
	switch apperr.Kind(err) {
	case apperr.ErrNotFound:
		writeError(w, http.StatusNotFound, err.Error())
	case apperr.ErrUpstreamUnavailable, apperr.ErrTransport:
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
