package session

import (
	"net/http"
	"strings"
	"time"
)

// The Session Cookie Set. Every auth-producing route writes this full set and
// sign-out clears exactly the same names.
const (
	CookieAccessToken     = "accessToken"
	CookieRefreshToken    = "refreshToken"
	CookieUserID          = "userId"
	CookieEmail           = "email"
	CookieUserName        = "userName"
	CookieMembershipID    = "membershipId"
	CookieUserRole        = "userRole"
	CookieTenantID        = "tenantId"
	CookieTenantName      = "tenantName"
	CookieSubdomainURL    = "subdomainUrl"
	CookieSchoolURL       = "schoolUrl"
	CookieTenantSubdomain = "tenantSubdomain"
)

var Names = []string{
	CookieAccessToken,
	CookieRefreshToken,
	CookieUserID,
	CookieEmail,
	CookieUserName,
	CookieMembershipID,
	CookieUserRole,
	CookieTenantID,
	CookieTenantName,
	CookieSubdomainURL,
	CookieSchoolURL,
	CookieTenantSubdomain,
}

const (
	DefaultMaxAge = 7 * 24 * 60 * 60
	RefreshMaxAge = 30 * 24 * 60 * 60
)

type Policy struct {
	Domain   string
	SameSite http.SameSite
	Secure   bool
}

// ComputePolicy picks the cookie attributes for the current request. All
// cookies written in one response share the returned policy.
func ComputePolicy(production bool, hostname, rootDomain string) Policy {
	if production {
		return Policy{Domain: "." + rootDomain, SameSite: http.SameSiteNoneMode, Secure: true}
	}
	if strings.HasSuffix(hostname, ".localhost") {
		return Policy{Domain: ".localhost", SameSite: http.SameSiteLaxMode, Secure: false}
	}
	return Policy{SameSite: http.SameSiteLaxMode, Secure: false}
}

type Values struct {
	AccessToken     string
	RefreshToken    string
	UserID          string
	Email           string
	UserName        string
	MembershipID    string
	UserRole        string
	TenantID        string
	TenantName      string
	SubdomainURL    string
	SchoolURL       string
	TenantSubdomain string
}

func (v Values) pairs() []struct{ name, value string } {
	return []struct{ name, value string }{
		{CookieAccessToken, v.AccessToken},
		{CookieRefreshToken, v.RefreshToken},
		{CookieUserID, v.UserID},
		{CookieEmail, v.Email},
		{CookieUserName, v.UserName},
		{CookieMembershipID, v.MembershipID},
		{CookieUserRole, v.UserRole},
		{CookieTenantID, v.TenantID},
		{CookieTenantName, v.TenantName},
		{CookieSubdomainURL, v.SubdomainURL},
		{CookieSchoolURL, v.SchoolURL},
		{CookieTenantSubdomain, v.TenantSubdomain},
	}
}

// Write sets every non-empty cookie in the set under one policy. Tokens are
// HttpOnly; the refresh token outlives the rest of the set.
func Write(w http.ResponseWriter, p Policy, v Values) {
	for _, pair := range v.pairs() {
		if pair.value == "" {
			continue
		}
		maxAge := DefaultMaxAge
		if pair.name == CookieRefreshToken {
			maxAge = RefreshMaxAge
		}
		http.SetCookie(w, &http.Cookie{
			Name:     pair.name,
			Value:    pair.value,
			Path:     "/",
			Domain:   p.Domain,
			MaxAge:   maxAge,
			Secure:   p.Secure,
			SameSite: p.SameSite,
			HttpOnly: pair.name == CookieAccessToken || pair.name == CookieRefreshToken,
		})
	}
}

// WriteTokens rotates just the token pair, leaving the rest of the set alone.
func WriteTokens(w http.ResponseWriter, p Policy, accessToken, refreshToken string) {
	Write(w, p, Values{AccessToken: accessToken, RefreshToken: refreshToken})
}

// Clear deletes the entire named set unconditionally.
func Clear(w http.ResponseWriter, p Policy) {
	for _, name := range Names {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Domain:   p.Domain,
			MaxAge:   -1,
			Expires:  time.Unix(0, 0),
			Secure:   p.Secure,
			SameSite: p.SameSite,
		})
	}
}

// Token returns the access token for a request, preferring the session cookie
// and falling back to a bearer Authorization header.
func Token(r *http.Request) string {
	if cookie, err := r.Cookie(CookieAccessToken); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return bearerToken(r.Header.Get("Authorization"))
}

// Cookie returns a named cookie value, or "".
func Cookie(r *http.Request, name string) string {
	if cookie, err := r.Cookie(name); err == nil {
		return cookie.Value
	}
	return ""
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
