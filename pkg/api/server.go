// Package api wires the HTTP surface: route registration, request
// decoding, authorization checks, and response envelopes.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/assignments"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/auth"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/dashboard"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/incidents"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/maintenance"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/middleware"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/models"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/plantdata"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/plants"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/reports"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/scope"
)

// Server is the API server.
type Server struct {
	router *mux.Router
	log    *logrus.Logger

	plants      *plants.Service
	readings    *plantdata.Service
	incidents   *incidents.Service
	maintenance *maintenance.Service
	reports     *reports.Service
	dashboard   *dashboard.Service
	assignments *assignments.Workflow
	members     *assignments.Store
}

// Deps carries everything the server needs.
type Deps struct {
	Plants      *plants.Service
	Readings    *plantdata.Service
	Incidents   *incidents.Service
	Maintenance *maintenance.Service
	Reports     *reports.Service
	Dashboard   *dashboard.Service
	Assignments *assignments.Workflow
	Members     *assignments.Store
	Auth        *middleware.AuthMiddleware
	Log         *logrus.Logger
	Middleware  []mux.MiddlewareFunc
}

// NewServer creates the API server and registers all routes.
func NewServer(deps Deps) *Server {
	s := &Server{
		router:      mux.NewRouter(),
		log:         deps.Log,
		plants:      deps.Plants,
		readings:    deps.Readings,
		incidents:   deps.Incidents,
		maintenance: deps.Maintenance,
		reports:     deps.Reports,
		dashboard:   deps.Dashboard,
		assignments: deps.Assignments,
		members:     deps.Members,
	}

	for _, mw := range deps.Middleware {
		s.router.Use(mw)
	}

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.Use(deps.Auth.Handler)

	staffOnly := middleware.RequireRole(models.RoleSuperAdmin, models.RoleAdmin, models.RoleTechnician)
	adminOnly := middleware.RequireRole(models.RoleSuperAdmin, models.RoleAdmin)
	superOnly := middleware.RequireRole(models.RoleSuperAdmin)

	// Plants
	api.HandleFunc("/plants", s.listPlants).Methods("GET")
	api.Handle("/plants", adminOnly(http.HandlerFunc(s.createPlant))).Methods("POST")
	api.HandleFunc("/plants/{id}", s.getPlant).Methods("GET")
	api.Handle("/plants/{id}", adminOnly(http.HandlerFunc(s.updatePlant))).Methods("PUT")
	api.Handle("/plants/{id}", adminOnly(http.HandlerFunc(s.deletePlant))).Methods("DELETE")

	// Assignments
	api.Handle("/plants/{id}/assignments", adminOnly(http.HandlerFunc(s.listAssignments))).Methods("GET")
	api.HandleFunc("/plants/{id}/assignments", s.assignUser).Methods("POST")
	api.HandleFunc("/plants/{id}/assignments/{userId}", s.unassignUser).Methods("DELETE")
	api.Handle("/users/{id}/plants", adminOnly(http.HandlerFunc(s.listUserPlants))).Methods("GET")

	// Readings
	api.HandleFunc("/readings", s.listReadings).Methods("GET")
	api.Handle("/readings", staffOnly(http.HandlerFunc(s.insertReading))).Methods("POST")
	api.HandleFunc("/readings/latest", s.latestReadings).Methods("GET")

	// Incidences
	api.HandleFunc("/incidences", s.listIncidences).Methods("GET")
	api.HandleFunc("/incidences", s.createIncidence).Methods("POST")
	api.HandleFunc("/incidences/{id}", s.getIncidence).Methods("GET")
	api.HandleFunc("/incidences/{id}/status", s.updateIncidenceStatus).Methods("PATCH")
	api.HandleFunc("/incidences/{id}/photos", s.attachIncidencePhoto).Methods("POST")

	// Maintenance
	api.HandleFunc("/maintenance", s.listMaintenance).Methods("GET")
	api.Handle("/maintenance", staffOnly(http.HandlerFunc(s.createMaintenance))).Methods("POST")
	api.HandleFunc("/maintenance/{id}", s.getMaintenance).Methods("GET")
	api.Handle("/maintenance/{id}/status", staffOnly(http.HandlerFunc(s.updateMaintenanceStatus))).Methods("PATCH")
	api.Handle("/maintenance/{id}/checklist/{itemId}", staffOnly(http.HandlerFunc(s.setChecklistItem))).Methods("PATCH")

	// Reports
	api.HandleFunc("/reports", s.listReports).Methods("GET")
	api.Handle("/reports", staffOnly(http.HandlerFunc(s.generateReport))).Methods("POST")
	api.HandleFunc("/reports/{id}", s.getReport).Methods("GET")
	api.HandleFunc("/reports/{id}/download", s.downloadReport).Methods("GET")
	api.Handle("/reports/{id}", adminOnly(http.HandlerFunc(s.deleteReport))).Methods("DELETE")

	// Dashboard
	api.HandleFunc("/dashboard", s.fullDashboard).Methods("GET")
	api.HandleFunc("/dashboard/metrics", s.dashboardMetrics).Methods("GET")
	api.HandleFunc("/dashboard/plants", s.dashboardPlants).Methods("GET")

	// Cache administration
	api.Handle("/cache/invalidate", superOnly(http.HandlerFunc(s.invalidateCache))).Methods("POST")
	api.Handle("/cache/stats", superOnly(http.HandlerFunc(s.cacheStats))).Methods("GET")

	return s
}

// Router returns the configured router.
func (s *Server) Router() *mux.Router {
	return s.router
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// caller returns the authenticated identity and scope placed in the
// context by the auth middleware.
func caller(r *http.Request) (auth.Identity, scope.Descriptor, bool) {
	ident, ok := auth.FromContext(r.Context())
	if !ok {
		return auth.Identity{}, scope.Descriptor{}, false
	}
	sc, ok := scope.FromContext(r.Context())
	if !ok {
		return auth.Identity{}, scope.Descriptor{}, false
	}
	return ident, sc, true
}
