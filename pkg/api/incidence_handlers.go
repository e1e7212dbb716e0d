package api

import (
	"net/http"

	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/gate"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/httputil"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/incidents"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/models"
)

// maxPhotoBytes caps incidence photo uploads.
const maxPhotoBytes = 10 << 20

func (s *Server) listIncidences(w http.ResponseWriter, r *http.Request) {
	ident, sc, ok := caller(r)
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	limit, offset := httputil.ParsePagination(r)
	filter := incidents.ListFilter{}
	if str := httputil.ParseQueryString(r, "status", ""); str != "" {
		status := models.IncidenceStatus(str)
		if !status.Valid() {
			httputil.WriteBadRequest(w, "invalid status filter")
			return
		}
		filter.Status = &status
	}
	// Clients only see incidences they reported themselves.
	if ident.Role == models.RoleClient {
		filter.OwnerID = &ident.ID
	}

	list, err := s.incidents.List(r.Context(), sc, filter, limit, offset)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, map[string]interface{}{"incidences": list})
}

func (s *Server) getIncidence(w http.ResponseWriter, r *http.Request) {
	ident, sc, ok := caller(r)
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	inc, err := s.incidents.Get(r.Context(), sc, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if d := gate.Authorize(ident, gate.ActionRead, &inc.ReportedBy); !d.Allowed {
		// Ownership denial is indistinguishable from absence.
		httputil.WriteNotFound(w, "incidence not found")
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, map[string]interface{}{"incidence": inc})
}

func (s *Server) createIncidence(w http.ResponseWriter, r *http.Request) {
	ident, sc, ok := caller(r)
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	if d := gate.Authorize(ident, gate.ActionCreate, &ident.ID); !d.Allowed {
		httputil.WriteForbidden(w, d.Reason)
		return
	}
	var req createIncidenceRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	inc := &models.Incidence{
		PlantID:     req.PlantID,
		ReportedBy:  ident.ID,
		Title:       req.Title,
		Description: req.Description,
	}
	if err := s.incidents.Create(r.Context(), sc, inc); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusCreated, map[string]interface{}{"incidence": inc})
}

func (s *Server) updateIncidenceStatus(w http.ResponseWriter, r *http.Request) {
	ident, sc, ok := caller(r)
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if d := gate.Authorize(ident, gate.ActionChangeStatus, nil); !d.Allowed {
		httputil.WriteForbidden(w, d.Reason)
		return
	}
	var req statusRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	inc, err := s.incidents.UpdateStatus(r.Context(), sc, id, models.IncidenceStatus(req.Status))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, map[string]interface{}{"incidence": inc})
}

func (s *Server) attachIncidencePhoto(w http.ResponseWriter, r *http.Request) {
	ident, sc, ok := caller(r)
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	inc, err := s.incidents.Get(r.Context(), sc, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if d := gate.Authorize(ident, gate.ActionUpdate, &inc.ReportedBy); !d.Allowed {
		httputil.WriteForbidden(w, d.Reason)
		return
	}

	contentType := r.Header.Get("Content-Type")
	body := http.MaxBytesReader(w, r.Body, maxPhotoBytes)
	photo, err := s.incidents.AttachPhoto(r.Context(), sc, id, body, contentType)
	if err != nil {
		s.log.WithError(err).WithField("incidence_id", id).Error("failed to attach photo")
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusCreated, map[string]interface{}{"photo": photo})
}
