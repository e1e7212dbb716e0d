package api

import (
	"net/http"
	"strings"

	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/httputil"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/models"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/plants"
)

func (s *Server) listPlants(w http.ResponseWriter, r *http.Request) {
	_, sc, ok := caller(r)
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	limit, offset := httputil.ParsePagination(r)
	list, err := s.plants.List(r.Context(), sc, limit, offset)
	if err != nil {
		s.log.WithError(err).Error("failed to list plants")
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, map[string]interface{}{"plants": list})
}

func (s *Server) getPlant(w http.ResponseWriter, r *http.Request) {
	_, sc, ok := caller(r)
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	plant, err := s.plants.Get(r.Context(), sc, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, map[string]interface{}{"plant": plant})
}

func (s *Server) createPlant(w http.ResponseWriter, r *http.Request) {
	var req createPlantRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		httputil.WriteBadRequest(w, "name is required")
		return
	}

	plant := &models.Plant{Name: req.Name, Location: req.Location}
	if err := s.plants.Create(r.Context(), plant); err != nil {
		s.log.WithError(err).Error("failed to create plant")
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusCreated, map[string]interface{}{"plant": plant})
}

func (s *Server) updatePlant(w http.ResponseWriter, r *http.Request) {
	_, sc, ok := caller(r)
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req updatePlantRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Name == nil && req.Location == nil {
		httputil.WriteBadRequest(w, "no fields to update")
		return
	}

	updates := plants.UpdateRequest{Name: req.Name, Location: req.Location}
	if err := s.plants.Update(r.Context(), sc, id, updates); err != nil {
		httputil.WriteError(w, err)
		return
	}

	plant, err := s.plants.Get(r.Context(), sc, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, map[string]interface{}{"plant": plant})
}

func (s *Server) deletePlant(w http.ResponseWriter, r *http.Request) {
	_, sc, ok := caller(r)
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	// Existence and visibility check before the destructive write.
	if _, err := s.plants.Get(r.Context(), sc, id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := s.plants.Delete(r.Context(), id); err != nil {
		s.log.WithError(err).WithField("plant_id", id).Error("failed to delete plant")
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteMessage(w, http.StatusOK, "plant deleted")
}
