package api

import (
	"net/http"

	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/httputil"
)

func (s *Server) fullDashboard(w http.ResponseWriter, r *http.Request) {
	ident, sc, ok := caller(r)
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	full, fromCache, err := s.dashboard.Full(r.Context(), ident.ID, sc)
	if err != nil {
		s.log.WithError(err).WithField("user_id", ident.ID).Error("failed to build dashboard")
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, map[string]interface{}{
		"dashboard": full,
		"fromCache": fromCache,
	})
}

func (s *Server) dashboardMetrics(w http.ResponseWriter, r *http.Request) {
	ident, sc, ok := caller(r)
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	metrics, fromCache, err := s.dashboard.Metrics(r.Context(), ident.ID, sc)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, map[string]interface{}{
		"metrics":   metrics,
		"fromCache": fromCache,
	})
}

func (s *Server) dashboardPlants(w http.ResponseWriter, r *http.Request) {
	ident, sc, ok := caller(r)
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	list, fromCache, err := s.dashboard.Plants(r.Context(), ident.ID, sc)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, map[string]interface{}{
		"plants":    list,
		"fromCache": fromCache,
	})
}

// invalidateCache clears dashboard cache entries. With a usuarioId query
// parameter only that user's entries are dropped; without one the whole
// store is flushed.
func (s *Server) invalidateCache(w http.ResponseWriter, r *http.Request) {
	userID, err := httputil.ParseQueryInt64(r, "usuarioId", 0)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	if userID > 0 {
		if err := s.dashboard.InvalidateUser(r.Context(), userID); err != nil {
			s.log.WithError(err).WithField("user_id", userID).Error("failed to invalidate user cache")
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteMessage(w, http.StatusOK, "user cache invalidated")
		return
	}

	if err := s.dashboard.InvalidateAll(r.Context()); err != nil {
		s.log.WithError(err).Error("failed to invalidate cache")
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteMessage(w, http.StatusOK, "cache invalidated")
}

func (s *Server) cacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.dashboard.Stats(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, map[string]interface{}{"stats": stats})
}
