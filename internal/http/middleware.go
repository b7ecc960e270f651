package http

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"squl/gateway/internal/auth"
	"squl/gateway/internal/session"
	"squl/gateway/internal/tenant"
)

var httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gateway_http_requests_total",
	Help: "HTTP requests handled, by method and response status.",
}, []string{"method", "status"})

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		httpRequests.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
		log.Printf("%s %s%s -> %d (%s) [%s]", r.Method, r.Host, r.URL.RequestURI(), rec.status, time.Since(start), requestID)
	})
}

// preflight answers CORS preflight for the API surface without touching the
// route table. Actual origins are enforced by the browsers' cookie policy.
func (s *Server) preflight(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions && strings.HasPrefix(r.URL.Path, "/api/") {
			w.Header().Set("Access-Control-Allow-Origin", originFor(r, s.cfg.RootDomain))
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func originFor(r *http.Request, rootDomain string) string {
	if origin := r.Header.Get("Origin"); origin != "" {
		if strings.HasSuffix(origin, "."+rootDomain) || strings.HasSuffix(origin, "//"+rootDomain) {
			return origin
		}
	}
	return "https://" + rootDomain
}

// tenantRewrite applies the hostname resolution before routing. Rewritten
// requests carry the tenant slug in their context and must never be cached
// by intermediaries.
func (s *Server) tenantRewrite(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := tenant.Resolve(getScheme(r), r.Host, r.URL.Path, r.URL.RawQuery, s.cfg.RootDomain)
		switch d.Action {
		case tenant.Redirect:
			http.Redirect(w, r, d.Location, http.StatusFound)
			return
		case tenant.Rewrite:
			w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
			w.Header().Set("Pragma", "no-cache")
			w.Header().Set("Expires", "0")
			r.URL.Path = d.Path
			r.URL.RawPath = ""
			r = r.WithContext(context.WithValue(r.Context(), tenantKey{}, d.Tenant))
		}
		next.ServeHTTP(w, r)
	})
}

type tenantKey struct{}

func tenantFromContext(ctx context.Context) string {
	slug, _ := ctx.Value(tenantKey{}).(string)
	return slug
}

// requireSession rejects requests with no session token or a token that is
// already expired. Signature verification stays with the upstream; a token
// that merely fails to parse here is still forwarded.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := session.Token(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "authentication_required")
			return
		}
		if _, err := auth.Inspect(token); errors.Is(err, auth.ErrTokenExpired) {
			writeError(w, http.StatusUnauthorized, "token_expired")
			return
		}
		next.ServeHTTP(w, r)
	})
}
