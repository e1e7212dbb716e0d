package api

import (
	"io"
	"net/http"
	"time"

	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/httputil"
)

func (s *Server) listReports(w http.ResponseWriter, r *http.Request) {
	_, sc, ok := caller(r)
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	limit, offset := httputil.ParsePagination(r)
	list, err := s.reports.List(r.Context(), sc, limit, offset)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, map[string]interface{}{"reports": list})
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	_, sc, ok := caller(r)
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	report, err := s.reports.Get(r.Context(), sc, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, map[string]interface{}{"report": report})
}

func (s *Server) generateReport(w http.ResponseWriter, r *http.Request) {
	ident, sc, ok := caller(r)
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	var req generateReportRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	from, err := parseReportDate(req.From)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid from date")
		return
	}
	to, err := parseReportDate(req.To)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid to date")
		return
	}

	report, err := s.reports.Generate(r.Context(), sc, req.PlantID, ident.ID, from, to)
	if err != nil {
		s.log.WithError(err).WithField("plant_id", req.PlantID).Error("failed to generate report")
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusCreated, map[string]interface{}{"report": report})
}

func (s *Server) downloadReport(w http.ResponseWriter, r *http.Request) {
	_, sc, ok := caller(r)
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	body, err := s.reports.Download(r.Context(), sc, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := io.Copy(w, body); err != nil {
		s.log.WithError(err).WithField("report_id", id).Warn("report download interrupted")
	}
}

func (s *Server) deleteReport(w http.ResponseWriter, r *http.Request) {
	_, sc, ok := caller(r)
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := s.reports.Delete(r.Context(), sc, id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteMessage(w, http.StatusOK, "report deleted")
}

func parseReportDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
