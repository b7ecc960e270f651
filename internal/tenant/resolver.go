package tenant

import (
	"net"
	"net/url"
	"strings"
)

type Action int

const (
	PassThrough Action = iota
	Redirect
	Rewrite
)

// Decision is the resolver outcome for one request. It is a pure function of
// (scheme, host, path, query); nothing is kept between requests.
type Decision struct {
	Action   Action
	Tenant   string
	Location string
	Path     string
}

// Resolve maps an incoming host/path pair onto the internal route tree.
// Tenant subdomains are rewritten to /school/<tenant>/..., signup links
// carrying an invitation token are bounced back to the root domain, and
// everything else passes through untouched.
func Resolve(scheme, host, path, rawQuery, rootDomain string) Decision {
	if passPath(path) {
		return Decision{Action: PassThrough}
	}

	hostname, port := splitHostPort(host)
	slug := Subdomain(hostname, rootDomain)
	if slug == "" {
		return Decision{Action: PassThrough}
	}

	if (path == "/signup" || path == "/teacher-signup") && hasToken(rawQuery) {
		root := rootHost(hostname, rootDomain)
		if port != "" {
			root += ":" + port
		}
		location := scheme + "://" + root + path
		if rawQuery != "" {
			location += "?" + rawQuery
		}
		return Decision{Action: Redirect, Tenant: slug, Location: location}
	}

	return Decision{Action: Rewrite, Tenant: slug, Path: "/school/" + slug + path}
}

// Subdomain extracts the tenant slug from a hostname, or returns "" for the
// bare root domain, its www alias, localhost, and IP literals.
func Subdomain(hostname, rootDomain string) string {
	hostname = strings.ToLower(hostname)
	if hostname == "" || hostname == rootDomain || hostname == "www."+rootDomain || hostname == "localhost" {
		return ""
	}
	if net.ParseIP(hostname) != nil {
		return ""
	}
	if !strings.HasSuffix(hostname, "."+rootDomain) && !strings.HasSuffix(hostname, ".localhost") {
		return ""
	}
	slug := strings.Split(hostname, ".")[0]
	if slug == "www" {
		return ""
	}
	return slug
}

func passPath(path string) bool {
	if strings.HasPrefix(path, "/api") || strings.HasPrefix(path, "/_next") || strings.HasPrefix(path, "/static") {
		return true
	}
	return strings.Contains(path, ".")
}

func hasToken(rawQuery string) bool {
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return false
	}
	return values.Get("token") != ""
}

func rootHost(hostname, rootDomain string) string {
	if strings.HasSuffix(hostname, ".localhost") {
		return "localhost"
	}
	return rootDomain
}

func splitHostPort(host string) (string, string) {
	if hostname, port, err := net.SplitHostPort(host); err == nil {
		return hostname, port
	}
	return host, ""
}
