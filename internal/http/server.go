package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"squl/gateway/internal/cache"
	"squl/gateway/internal/config"
	"squl/gateway/internal/graphql"
	"squl/gateway/internal/jobs"
)

type Server struct {
	cfg      config.Config
	upstream *graphql.Client
	lists    *cache.Cache
	probe    *jobs.Status
}

func NewServer(cfg config.Config, upstream *graphql.Client, lists *cache.Cache, probe *jobs.Status) *Server {
	if probe == nil {
		probe = jobs.NewStatus()
	}
	return &Server{
		cfg:      cfg,
		upstream: upstream,
		lists:    lists,
		probe:    probe,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLog, s.preflight, s.tenantRewrite)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/ready", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/api/auth/login", s.handleLogin)
	r.Post("/api/auth/register", s.handleRegister)
	r.Post("/api/auth/accept-invitation", s.handleAcceptInvitation)
	r.Post("/api/auth/store-tokens", s.handleStoreTokens)
	r.Post("/api/auth/refresh", s.handleRefresh)
	r.Post("/api/auth/sign-out", s.handleSignOut)
	r.With(s.requireSession).Get("/api/auth/me", s.handleMe)

	r.With(s.requireSession).Get("/api/students", s.handleStudents)

	r.Route("/api/school", func(r chi.Router) {
		r.Use(s.requireSession)
		r.Post("/create-student", s.handleCreateStudent)
		r.Get("/staff", s.handleStaff)
		r.Post("/create-teacher", s.handleCreateTeacher)
		r.Post("/create-staff", s.handleCreateStaff)
		r.Get("/invitations/pending", s.handlePendingInvitations)
		r.Post("/invitations/revoke", s.handleRevokeInvitation)
		r.Get("/academic-years", s.handleAcademicYears)
		r.Get("/fee-buckets", s.handleFeeBuckets)
		r.Post("/fee-structure", s.handleFeeStructure)
		r.Get("/timetable/entries", s.handleTimetableEntries)
		r.Post("/timetable/entries", s.handleCreateTimetableEntry)
		r.Post("/configure", s.handleConfigureSchool)
	})

	r.Get("/school/{tenant}/*", s.handleTenantApp)

	return r
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if !s.probe.Healthy() {
		writeError(w, http.StatusServiceUnavailable, "upstream_unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleTenantApp is the rewrite target for tenant subdomains. It reports
// the resolved tenant context so rewrites are observable end to end.
func (s *Server) handleTenantApp(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "tenant")
	if slug == "" {
		slug = tenantFromContext(r.Context())
	}
	path := "/" + chi.URLParam(r, "*")
	writeJSON(w, http.StatusOK, map[string]string{
		"tenant": slug,
		"path":   path,
	})
}
