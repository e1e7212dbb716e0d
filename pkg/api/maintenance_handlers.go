package api

import (
	"net/http"

	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/httputil"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/models"
)

func (s *Server) listMaintenance(w http.ResponseWriter, r *http.Request) {
	_, sc, ok := caller(r)
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	limit, offset := httputil.ParsePagination(r)
	var status *models.MaintenanceStatus
	if str := httputil.ParseQueryString(r, "status", ""); str != "" {
		st := models.MaintenanceStatus(str)
		if !st.Valid() {
			httputil.WriteBadRequest(w, "invalid status filter")
			return
		}
		status = &st
	}

	list, err := s.maintenance.List(r.Context(), sc, status, limit, offset)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, map[string]interface{}{"maintenance": list})
}

func (s *Server) getMaintenance(w http.ResponseWriter, r *http.Request) {
	_, sc, ok := caller(r)
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	m, err := s.maintenance.Get(r.Context(), sc, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, map[string]interface{}{"maintenance": m})
}

func (s *Server) createMaintenance(w http.ResponseWriter, r *http.Request) {
	_, sc, ok := caller(r)
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	var req createMaintenanceRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.PlantID <= 0 {
		httputil.WriteBadRequest(w, "plantId is required")
		return
	}

	m := &models.Maintenance{
		PlantID:      req.PlantID,
		AssignedTo:   req.AssignedTo,
		Description:  req.Description,
		ScheduledFor: req.ScheduledFor,
	}
	for _, label := range req.Checklist {
		m.Checklist = append(m.Checklist, models.ChecklistItem{Label: label})
	}

	if err := s.maintenance.Create(r.Context(), sc, m); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusCreated, map[string]interface{}{"maintenance": m})
}

func (s *Server) updateMaintenanceStatus(w http.ResponseWriter, r *http.Request) {
	_, sc, ok := caller(r)
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req statusRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	m, err := s.maintenance.UpdateStatus(r.Context(), sc, id, models.MaintenanceStatus(req.Status))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, map[string]interface{}{"maintenance": m})
}

func (s *Server) setChecklistItem(w http.ResponseWriter, r *http.Request) {
	_, sc, ok := caller(r)
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := httputil.ParsePathInt64OrError(w, r, "itemId")
	if !ok {
		return
	}
	var req checklistItemRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if err := s.maintenance.SetChecklistItem(r.Context(), sc, id, itemID, req.Done); err != nil {
		httputil.WriteError(w, err)
		return
	}

	m, err := s.maintenance.Get(r.Context(), sc, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, map[string]interface{}{"maintenance": m})
}
