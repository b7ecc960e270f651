package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"squl/gateway/internal/cache"
	"squl/gateway/internal/config"
	"squl/gateway/internal/graphql"
	"squl/gateway/internal/session"
)

// upstreamStub is a canned GraphQL backend. It dispatches on the operation
// name inside the query document and records call counts and variables.
type upstreamStub struct {
	mu        sync.Mutex
	calls     map[string]int
	vars      map[string]map[string]any
	loginErrs []map[string]any
}

func newUpstreamStub() *upstreamStub {
	return &upstreamStub{
		calls: map[string]int{},
		vars:  map[string]map[string]any{},
	}
}

func (u *upstreamStub) count(op string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls[op]
}

func (u *upstreamStub) variables(op string) map[string]any {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.vars[op]
}

const loginPayload = `{
	"user": {"id": "1", "email": "a@b.com", "name": "A"},
	"membership": {"id": "m1", "role": "ADMIN", "tenant": {"id": "t1", "name": "T", "subdomain": "t"}},
	"tokens": {"accessToken": "AT", "refreshToken": "RT"},
	"subdomainUrl": "t.squl.co.ke",
	"schoolUrl": "https://t.squl.co.ke"
}`

func (u *upstreamStub) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		op := operationOf(req.Query)
		u.mu.Lock()
		u.calls[op]++
		u.vars[op] = req.Variables
		loginErrs := u.loginErrs
		u.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch op {
		case "signIn":
			if loginErrs != nil {
				_ = json.NewEncoder(w).Encode(map[string]any{"errors": loginErrs})
				return
			}
			fmt.Fprintf(w, `{"data": {"signIn": %s}}`, loginPayload)
		case "signUp":
			fmt.Fprintf(w, `{"data": {"signUp": %s}}`, loginPayload)
		case "acceptTeacherInvitation":
			fmt.Fprintf(w, `{"data": {"acceptTeacherInvitation": %s}}`, loginPayload)
		case "refreshTokens":
			fmt.Fprint(w, `{"data": {"refreshTokens": {"accessToken": "AT2", "refreshToken": "RT2"}}}`)
		case "studentsByTenant":
			fmt.Fprint(w, `{"data": {"studentsByTenant": [{"id": "s1", "name": "Jane", "admissionNumber": "001"}]}}`)
		case "createStudent":
			fmt.Fprint(w, `{"data": {"createStudent": {"id": "s2", "name": "John", "admissionNumber": "002"}}}`)
		case "usersByTenant":
			fmt.Fprint(w, `{"data": {"usersByTenant": [{"id": "u1", "email": "staff@t.sc", "role": "TEACHER"}]}}`)
		case "inviteTeacher":
			fmt.Fprint(w, `{"data": {"inviteTeacher": {"id": "i1", "email": "new@t.sc", "status": "PENDING"}}}`)
		case "pendingInvitations":
			fmt.Fprint(w, `{"data": {"pendingInvitations": [{"id": "i1", "email": "new@t.sc"}]}}`)
		case "configureSchool":
			_ = json.NewEncoder(w).Encode(map[string]any{"errors": []map[string]any{{
				"message":    "School has already been configured",
				"extensions": map[string]any{"code": "BAD_USER_INPUT"},
			}}})
		case "me":
			fmt.Fprint(w, `{"data": {"me": {"id": "1", "email": "a@b.com", "name": "A"}}}`)
		default:
			fmt.Fprintf(w, `{"data": {"%s": []}}`, op)
		}
	})
}

func operationOf(query string) string {
	for _, op := range []string{
		"signIn", "signUp", "acceptTeacherInvitation", "refreshTokens",
		"studentsByTenant", "createStudent", "usersByTenant", "inviteTeacher",
		"pendingInvitations", "revokeInvitation", "academicYearsByTenant",
		"feeBucketsByTenant", "createFeeStructure", "timetableEntriesByTenant",
		"createTimetableEntry", "configureSchool", "me",
	} {
		if strings.Contains(query, op+"(") || strings.Contains(query, op+" {") {
			return op
		}
	}
	return "unknown"
}

func newGateway(t *testing.T, upstreamURL string) *httptest.Server {
	t.Helper()
	return newGatewayEnv(t, upstreamURL, "test")
}

func newGatewayEnv(t *testing.T, upstreamURL, environment string) *httptest.Server {
	t.Helper()
	cfg := config.Config{
		Environment:     environment,
		RootDomain:      "squl.co.ke",
		GraphQLAPIURL:   upstreamURL,
		UpstreamTimeout: 5 * time.Second,
		CacheTTL:        time.Minute,
	}
	server := NewServer(cfg, graphql.New(upstreamURL, cfg.UpstreamTimeout), cache.New(cache.NewMemoryStore(), cfg.CacheTTL), nil)
	app := httptest.NewServer(server.Router())
	t.Cleanup(app.Close)
	return app
}

func doJSON(t *testing.T, method, url string, body any, cookies []*http.Cookie) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func sessionCookies() []*http.Cookie {
	return []*http.Cookie{
		{Name: session.CookieAccessToken, Value: "AT"},
		{Name: session.CookieTenantID, Value: "t1"},
	}
}

func decodeBody(t *testing.T, resp *http.Response) map[string]json.RawMessage {
	t.Helper()
	var body map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func TestLoginSetsSessionCookies(t *testing.T) {
	stub := newUpstreamStub()
	backend := httptest.NewServer(stub.handler())
	defer backend.Close()
	app := newGateway(t, backend.URL)

	resp := doJSON(t, http.MethodPost, app.URL+"/api/auth/login", map[string]string{
		"email":    "a@b.com",
		"password": "pw",
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	for _, field := range []string{"user", "membership", "tenant", "subdomainUrl"} {
		if _, ok := body[field]; !ok {
			t.Fatalf("response missing %q", field)
		}
	}
	var user userSummary
	if err := json.Unmarshal(body["user"], &user); err != nil || user.ID != "1" {
		t.Fatalf("unexpected user payload %s (err %v)", body["user"], err)
	}

	got := map[string]*http.Cookie{}
	for _, c := range resp.Cookies() {
		got[c.Name] = c
	}
	access, ok := got[session.CookieAccessToken]
	if !ok || access.Value != "AT" {
		t.Fatalf("accessToken cookie not set: %+v", got)
	}
	if access.MaxAge != session.DefaultMaxAge {
		t.Fatalf("accessToken max-age = %d, want %d", access.MaxAge, session.DefaultMaxAge)
	}
	refresh, ok := got[session.CookieRefreshToken]
	if !ok || refresh.MaxAge != session.RefreshMaxAge {
		t.Fatalf("refreshToken cookie wrong: %+v", refresh)
	}
	if c := got[session.CookieTenantID]; c == nil || c.Value != "t1" {
		t.Fatalf("tenantId cookie wrong: %+v", c)
	}
	if c := got[session.CookieTenantName]; c == nil || c.Value != "T" {
		t.Fatalf("tenantName cookie wrong: %+v", c)
	}

	if vars := stub.variables("signIn"); vars["email"] != "a@b.com" {
		t.Fatalf("unexpected signIn variables: %v", vars)
	}
}

func TestLoginUpstreamErrorMessage(t *testing.T) {
	stub := newUpstreamStub()
	stub.loginErrs = []map[string]any{{"message": "Invalid credentials"}}
	backend := httptest.NewServer(stub.handler())
	defer backend.Close()
	app := newGateway(t, backend.URL)

	resp := doJSON(t, http.MethodPost, app.URL+"/api/auth/login", map[string]string{
		"email":    "a@b.com",
		"password": "wrong",
	}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] != "Invalid credentials" {
		t.Fatalf("expected upstream message, got %q", body["error"])
	}
}

func TestAuthRequired(t *testing.T) {
	stub := newUpstreamStub()
	backend := httptest.NewServer(stub.handler())
	defer backend.Close()
	app := newGateway(t, backend.URL)

	resp := doJSON(t, http.MethodGet, app.URL+"/api/students", nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] != "authentication_required" {
		t.Fatalf("unexpected error %q", body["error"])
	}
	if stub.count("studentsByTenant") != 0 {
		t.Fatalf("upstream must not be called without a session")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	stub := newUpstreamStub()
	backend := httptest.NewServer(stub.handler())
	defer backend.Close()
	app := newGateway(t, backend.URL)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("whatever"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	resp := doJSON(t, http.MethodGet, app.URL+"/api/students", nil, []*http.Cookie{
		{Name: session.CookieAccessToken, Value: signed},
		{Name: session.CookieTenantID, Value: "t1"},
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	var body map[string]string
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body["error"] != "token_expired" {
		t.Fatalf("unexpected error %q", body["error"])
	}
}

func TestSignOutClearsSessionCookies(t *testing.T) {
	stub := newUpstreamStub()
	backend := httptest.NewServer(stub.handler())
	defer backend.Close()
	app := newGateway(t, backend.URL)

	resp := doJSON(t, http.MethodPost, app.URL+"/api/auth/sign-out", map[string]string{}, sessionCookies())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	cleared := map[string]bool{}
	for _, c := range resp.Cookies() {
		if c.MaxAge < 0 {
			cleared[c.Name] = true
		}
	}
	for _, name := range session.Names {
		if !cleared[name] {
			t.Fatalf("cookie %q not cleared", name)
		}
	}
	if len(cleared) != len(session.Names) {
		t.Fatalf("cleared set mismatch: %d vs %d", len(cleared), len(session.Names))
	}
}

func TestStudentsServedFromCache(t *testing.T) {
	stub := newUpstreamStub()
	backend := httptest.NewServer(stub.handler())
	defer backend.Close()
	app := newGateway(t, backend.URL)

	for i := 0; i < 3; i++ {
		resp := doJSON(t, http.MethodGet, app.URL+"/api/students", nil, sessionCookies())
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, resp.StatusCode)
		}
		body := decodeBody(t, resp)
		if _, ok := body["students"]; !ok {
			t.Fatalf("request %d: response missing students", i)
		}
	}
	if calls := stub.count("studentsByTenant"); calls != 1 {
		t.Fatalf("expected one upstream list call, got %d", calls)
	}
}

func TestCreateStudentInvalidatesCache(t *testing.T) {
	stub := newUpstreamStub()
	backend := httptest.NewServer(stub.handler())
	defer backend.Close()
	app := newGateway(t, backend.URL)

	doJSON(t, http.MethodGet, app.URL+"/api/students", nil, sessionCookies())

	resp := doJSON(t, http.MethodPost, app.URL+"/api/school/create-student", map[string]string{
		"name":            "John",
		"admissionNumber": "002",
		"gradeId":         "g1",
	}, sessionCookies())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create-student: expected 200, got %d", resp.StatusCode)
	}

	doJSON(t, http.MethodGet, app.URL+"/api/students", nil, sessionCookies())
	if calls := stub.count("studentsByTenant"); calls != 2 {
		t.Fatalf("expected refetch after invalidation, got %d list calls", calls)
	}
}

func TestCreateStaffValidatesRole(t *testing.T) {
	stub := newUpstreamStub()
	backend := httptest.NewServer(stub.handler())
	defer backend.Close()
	app := newGateway(t, backend.URL)

	resp := doJSON(t, http.MethodPost, app.URL+"/api/school/create-staff", map[string]string{
		"email": "x@t.sc",
		"role":  "JANITOR",
	}, sessionCookies())
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown role, got %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPost, app.URL+"/api/school/create-staff", map[string]string{
		"email": "x@t.sc",
		"role":  "accountant",
	}, sessionCookies())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	vars := stub.variables("inviteTeacher")
	input, _ := vars["input"].(map[string]any)
	if input["role"] != "ACCOUNTANT" {
		t.Fatalf("expected normalized role, got %v", input["role"])
	}
}

func TestCreateTeacherForcesTeacherRole(t *testing.T) {
	stub := newUpstreamStub()
	backend := httptest.NewServer(stub.handler())
	defer backend.Close()
	app := newGateway(t, backend.URL)

	resp := doJSON(t, http.MethodPost, app.URL+"/api/school/create-teacher", map[string]string{
		"email": "teach@t.sc",
		"name":  "Teach",
	}, sessionCookies())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	vars := stub.variables("inviteTeacher")
	input, _ := vars["input"].(map[string]any)
	if input["role"] != "TEACHER" {
		t.Fatalf("expected TEACHER role, got %v", input["role"])
	}
}

func TestConfigureSchoolAlreadyConfigured(t *testing.T) {
	stub := newUpstreamStub()
	backend := httptest.NewServer(stub.handler())
	defer backend.Close()
	app := newGateway(t, backend.URL)

	resp := doJSON(t, http.MethodPost, app.URL+"/api/school/configure", map[string]string{
		"name": "Greenhill Academy",
	}, sessionCookies())
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	var body map[string]string
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body["error"] != "school_already_configured" {
		t.Fatalf("unexpected error %q", body["error"])
	}
}

func TestTenantRewriteServesSchoolApp(t *testing.T) {
	stub := newUpstreamStub()
	backend := httptest.NewServer(stub.handler())
	defer backend.Close()
	app := newGateway(t, backend.URL)

	req, err := http.NewRequest(http.MethodGet, app.URL+"/dashboard", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Host = "greenhill.squl.co.ke"
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if cc := resp.Header.Get("Cache-Control"); !strings.Contains(cc, "no-store") {
		t.Fatalf("expected no-store cache headers, got %q", cc)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["tenant"] != "greenhill" || body["path"] != "/dashboard" {
		t.Fatalf("unexpected rewrite context: %v", body)
	}
}

func TestSignupTokenRedirectsToRoot(t *testing.T) {
	stub := newUpstreamStub()
	backend := httptest.NewServer(stub.handler())
	defer backend.Close()
	app := newGateway(t, backend.URL)

	req, err := http.NewRequest(http.MethodGet, app.URL+"/signup?token=abc123", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Host = "greenhill.squl.co.ke"
	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected 302, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "http://squl.co.ke/signup?token=abc123" {
		t.Fatalf("unexpected redirect location %q", loc)
	}
}

func TestPreflight(t *testing.T) {
	stub := newUpstreamStub()
	backend := httptest.NewServer(stub.handler())
	defer backend.Close()
	app := newGateway(t, backend.URL)

	req, err := http.NewRequest(http.MethodOptions, app.URL+"/api/auth/login", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Methods") == "" {
		t.Fatalf("missing allow headers")
	}
}

func TestRefreshRotatesTokenCookies(t *testing.T) {
	stub := newUpstreamStub()
	backend := httptest.NewServer(stub.handler())
	defer backend.Close()
	app := newGateway(t, backend.URL)

	resp := doJSON(t, http.MethodPost, app.URL+"/api/auth/refresh", map[string]string{}, []*http.Cookie{
		{Name: session.CookieRefreshToken, Value: "RT"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	got := map[string]string{}
	for _, c := range resp.Cookies() {
		got[c.Name] = c.Value
	}
	if got[session.CookieAccessToken] != "AT2" || got[session.CookieRefreshToken] != "RT2" {
		t.Fatalf("tokens not rotated: %v", got)
	}
}

func TestStoreTokensPolicyPerHostname(t *testing.T) {
	stub := newUpstreamStub()
	backend := httptest.NewServer(stub.handler())
	defer backend.Close()

	cases := []struct {
		name        string
		environment string
		host        string
		wantDomain  string
		wantSecure  bool
		wantSame    http.SameSite
	}{
		{"production", "production", "greenhill.squl.co.ke", "squl.co.ke", true, http.SameSiteNoneMode},
		{"dev subdomain", "development", "greenhill.localhost:3000", "localhost", false, http.SameSiteLaxMode},
		{"plain host", "development", "", "", false, http.SameSiteLaxMode},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newGatewayEnv(t, backend.URL, tc.environment)

			body, err := json.Marshal(map[string]string{
				"accessToken":  "AT",
				"refreshToken": "RT",
				"tenantId":     "t1",
			})
			if err != nil {
				t.Fatalf("marshal body: %v", err)
			}
			req, err := http.NewRequest(http.MethodPost, app.URL+"/api/auth/store-tokens", bytes.NewReader(body))
			if err != nil {
				t.Fatalf("new request: %v", err)
			}
			req.Header.Set("Content-Type", "application/json")
			if tc.host != "" {
				req.Host = tc.host
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("expected 200, got %d", resp.StatusCode)
			}

			got := map[string]*http.Cookie{}
			for _, c := range resp.Cookies() {
				got[c.Name] = c
			}
			access := got[session.CookieAccessToken]
			if access == nil || access.Value != "AT" || access.MaxAge != session.DefaultMaxAge {
				t.Fatalf("accessToken cookie wrong: %+v", access)
			}
			refresh := got[session.CookieRefreshToken]
			if refresh == nil || refresh.MaxAge != session.RefreshMaxAge {
				t.Fatalf("refreshToken cookie wrong: %+v", refresh)
			}
			if got[session.CookieTenantID] == nil {
				t.Fatalf("tenantId cookie not set")
			}
			for _, c := range []*http.Cookie{access, refresh, got[session.CookieTenantID]} {
				if strings.TrimPrefix(c.Domain, ".") != tc.wantDomain {
					t.Fatalf("cookie %s domain = %q, want %q", c.Name, c.Domain, tc.wantDomain)
				}
				if c.Secure != tc.wantSecure {
					t.Fatalf("cookie %s secure = %v, want %v", c.Name, c.Secure, tc.wantSecure)
				}
				if c.SameSite != tc.wantSame {
					t.Fatalf("cookie %s samesite = %v, want %v", c.Name, c.SameSite, tc.wantSame)
				}
			}
		})
	}
}

func TestStoreTokensRequiresAccessToken(t *testing.T) {
	stub := newUpstreamStub()
	backend := httptest.NewServer(stub.handler())
	defer backend.Close()
	app := newGateway(t, backend.URL)

	resp := doJSON(t, http.MethodPost, app.URL+"/api/auth/store-tokens", map[string]string{
		"refreshToken": "RT",
	}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	var body map[string]string
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body["error"] != "missing_access_token" {
		t.Fatalf("unexpected error %q", body["error"])
	}
}

func TestAcceptInvitationSetsSession(t *testing.T) {
	stub := newUpstreamStub()
	backend := httptest.NewServer(stub.handler())
	defer backend.Close()
	app := newGateway(t, backend.URL)

	resp := doJSON(t, http.MethodPost, app.URL+"/api/auth/accept-invitation", map[string]string{
		"token":    "inv-1",
		"name":     "New Teacher",
		"password": "pw",
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	if _, ok := body["user"]; !ok {
		t.Fatalf("response missing user")
	}
	got := map[string]string{}
	for _, c := range resp.Cookies() {
		got[c.Name] = c.Value
	}
	if got[session.CookieAccessToken] != "AT" || got[session.CookieTenantID] != "t1" {
		t.Fatalf("session cookies not set: %v", got)
	}
	if vars := stub.variables("acceptTeacherInvitation"); vars["token"] != "inv-1" {
		t.Fatalf("unexpected variables: %v", vars)
	}
}

func TestMeProxiesUpstream(t *testing.T) {
	stub := newUpstreamStub()
	backend := httptest.NewServer(stub.handler())
	defer backend.Close()
	app := newGateway(t, backend.URL)

	resp := doJSON(t, http.MethodGet, app.URL+"/api/auth/me", nil, sessionCookies())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	var user userSummary
	if err := json.Unmarshal(body["user"], &user); err != nil || user.ID != "1" {
		t.Fatalf("unexpected user payload %s (err %v)", body["user"], err)
	}
}

func TestMissingOperationIsBadGateway(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": {}}`))
	}))
	defer backend.Close()
	app := newGateway(t, backend.URL)

	resp := doJSON(t, http.MethodGet, app.URL+"/api/students", nil, sessionCookies())
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
	var body map[string]string
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body["error"] != "bad_gateway" {
		t.Fatalf("unexpected error %q", body["error"])
	}
}

func TestReadyReflectsProbe(t *testing.T) {
	stub := newUpstreamStub()
	backend := httptest.NewServer(stub.handler())
	defer backend.Close()
	app := newGateway(t, backend.URL)

	resp := doJSON(t, http.MethodGet, app.URL+"/ready", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected ready by default, got %d", resp.StatusCode)
	}
}
