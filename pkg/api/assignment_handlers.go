package api

import (
	"net/http"

	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/gate"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/httputil"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/scope"
)

func (s *Server) listAssignments(w http.ResponseWriter, r *http.Request) {
	_, sc, ok := caller(r)
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	plantID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if !sc.Allows(plantID) {
		httputil.WriteNotFound(w, "plant not found")
		return
	}

	list, err := s.members.ListForPlant(r.Context(), plantID)
	if err != nil {
		s.log.WithError(err).WithField("plant_id", plantID).Error("failed to list assignments")
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, map[string]interface{}{"assignments": list})
}

// listUserPlants returns the plants assigned to a user, intersected with the
// caller's own scope so an admin cannot enumerate plants outside it.
func (s *Server) listUserPlants(w http.ResponseWriter, r *http.Request) {
	_, sc, ok := caller(r)
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	userID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	ids, err := s.members.PlantIDsForUser(r.Context(), userID)
	if err != nil {
		s.log.WithError(err).WithField("user_id", userID).Error("failed to list user plants")
		httputil.WriteError(w, err)
		return
	}
	visible := make([]int64, 0, len(ids))
	for _, id := range ids {
		if sc.Allows(id) {
			visible = append(visible, id)
		}
	}

	list, err := s.plants.List(r.Context(), scope.RestrictedTo(visible), 100, 0)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, map[string]interface{}{"plants": list})
}

func (s *Server) assignUser(w http.ResponseWriter, r *http.Request) {
	ident, sc, ok := caller(r)
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	if d := gate.Authorize(ident, gate.ActionAssign, nil); !d.Allowed {
		httputil.WriteForbidden(w, d.Reason)
		return
	}
	plantID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if !sc.Allows(plantID) {
		httputil.WriteNotFound(w, "plant not found")
		return
	}
	var req assignRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.UserID <= 0 {
		httputil.WriteBadRequest(w, "userId is required")
		return
	}

	plant, err := s.assignments.Assign(r.Context(), req.UserID, plantID, ident)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusCreated, map[string]interface{}{"plant": plant})
}

func (s *Server) unassignUser(w http.ResponseWriter, r *http.Request) {
	ident, sc, ok := caller(r)
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	if d := gate.Authorize(ident, gate.ActionAssign, nil); !d.Allowed {
		httputil.WriteForbidden(w, d.Reason)
		return
	}
	plantID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	userID, ok := httputil.ParsePathInt64OrError(w, r, "userId")
	if !ok {
		return
	}
	if !sc.Allows(plantID) {
		httputil.WriteNotFound(w, "plant not found")
		return
	}

	plant, err := s.assignments.Unassign(r.Context(), userID, plantID, ident)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, map[string]interface{}{"plant": plant})
}
