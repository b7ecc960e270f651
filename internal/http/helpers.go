package http

import (
	"encoding/json"
	"net"
	"net/http"

	"squl/gateway/internal/graphql"
)

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

func writeErrorDetails(w http.ResponseWriter, status int, code string, details interface{}) {
	writeJSON(w, status, map[string]interface{}{"error": code, "details": details})
}

func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeUpstreamError maps a classified upstream failure onto the route's
// HTTP response. Validation errors carry the upstream message so the client
// can show it; everything else gets a stable machine code.
func writeUpstreamError(w http.ResponseWriter, err error) {
	ge, ok := err.(*graphql.Error)
	if !ok {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	switch ge.Kind {
	case graphql.KindAuth:
		writeError(w, ge.HTTPStatus(), "unauthorized")
	case graphql.KindPermission:
		writeError(w, ge.HTTPStatus(), "forbidden")
	case graphql.KindNotFound:
		writeError(w, ge.HTTPStatus(), "not_found")
	case graphql.KindValidation:
		writeErrorDetails(w, ge.HTTPStatus(), ge.Message, ge.Errors)
	case graphql.KindTransport:
		writeError(w, ge.HTTPStatus(), "bad_gateway")
	case graphql.KindTimeout:
		writeError(w, ge.HTTPStatus(), "upstream_timeout")
	default:
		writeErrorDetails(w, ge.HTTPStatus(), "upstream_error", ge.Errors)
	}
}

// extract pulls one operation's payload out of a GraphQL data object. A
// data object without the operation is a malformed upstream response, not a
// success with an empty payload.
func extract(data json.RawMessage, op string) (json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, &graphql.Error{Kind: graphql.KindTransport, Message: "undecodable upstream data"}
	}
	payload, ok := fields[op]
	if !ok {
		return nil, &graphql.Error{Kind: graphql.KindTransport, Message: "upstream response missing " + op}
	}
	return payload, nil
}

func hostname(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.Host); err == nil {
		return host
	}
	return r.Host
}

func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	return "http"
}
