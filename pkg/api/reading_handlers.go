package api

import (
	"net/http"

	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/httputil"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/models"
)

func (s *Server) listReadings(w http.ResponseWriter, r *http.Request) {
	_, sc, ok := caller(r)
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	limit, offset := httputil.ParsePagination(r)
	var plantID *int64
	if v, err := httputil.ParseQueryInt64(r, "plantId", 0); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	} else if v > 0 {
		plantID = &v
	}

	readings, err := s.readings.List(r.Context(), sc, plantID, limit, offset)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, map[string]interface{}{"readings": readings})
}

func (s *Server) insertReading(w http.ResponseWriter, r *http.Request) {
	_, sc, ok := caller(r)
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	var req insertReadingRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.PlantID <= 0 {
		httputil.WriteBadRequest(w, "plantId is required")
		return
	}
	if !sc.Allows(req.PlantID) {
		httputil.WriteNotFound(w, "plant not found")
		return
	}

	datum := &models.PlantDatum{
		PlantID:  req.PlantID,
		Level:    req.Level,
		FlowRate: req.FlowRate,
		Chlorine: req.Chlorine,
	}
	if req.RecordedAt != nil {
		datum.RecordedAt = *req.RecordedAt
	}

	if err := s.readings.Insert(r.Context(), datum); err != nil {
		s.log.WithError(err).WithField("plant_id", req.PlantID).Error("failed to insert reading")
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusCreated, map[string]interface{}{"reading": datum})
}

func (s *Server) latestReadings(w http.ResponseWriter, r *http.Request) {
	_, sc, ok := caller(r)
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	metrics, err := s.readings.LatestMetrics(r.Context(), sc)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, map[string]interface{}{"metrics": metrics})
}
