package graphql

import (
	"net/http"
	"strings"
)

type Kind int

const (
	KindAuth Kind = iota
	KindPermission
	KindNotFound
	KindValidation
	KindUpstream
	KindTransport
	KindTimeout
)

// ResponseError is one entry of a GraphQL errors array.
type ResponseError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions,omitempty"`
}

// Error is the single tagged classification of everything that can go wrong
// talking to the upstream. Routes map Kind to an HTTP status instead of
// re-inspecting error strings.
type Error struct {
	Kind    Kind
	Message string
	Errors  []ResponseError
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindAuth:
		return http.StatusUnauthorized
	case KindPermission:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindTransport:
		return http.StatusBadGateway
	case KindTimeout:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// classify folds a GraphQL errors array into one tagged Error. The strongest
// signal wins in declaration order: auth beats permission beats the rest, so
// a mixed batch still produces the status the caller must act on first.
func classify(errs []ResponseError) *Error {
	if len(errs) == 0 {
		return nil
	}

	kind := KindUpstream
	for _, entry := range errs {
		candidate := classifyOne(entry)
		if candidate < kind {
			kind = candidate
		}
	}
	return &Error{Kind: kind, Message: errs[0].Message, Errors: errs}
}

func classifyOne(entry ResponseError) Kind {
	code := strings.ToUpper(entry.Extensions.Code)
	switch code {
	case "UNAUTHENTICATED", "UNAUTHORIZEDEXCEPTION", "UNAUTHORIZED":
		return KindAuth
	case "FORBIDDEN", "FORBIDDENEXCEPTION":
		return KindPermission
	case "NOT_FOUND":
		return KindNotFound
	case "BAD_USER_INPUT", "GRAPHQL_VALIDATION_FAILED", "BAD_REQUEST":
		return KindValidation
	}

	message := strings.ToLower(entry.Message)
	switch {
	case strings.Contains(message, "unauthorized"), strings.Contains(message, "unauthenticated"):
		return KindAuth
	case strings.Contains(message, "forbidden resource"), strings.Contains(message, "forbidden"):
		return KindPermission
	case strings.Contains(message, "not found"):
		return KindNotFound
	case strings.Contains(message, "already been configured"),
		strings.Contains(message, "already exists"),
		strings.Contains(message, "invalid"):
		return KindValidation
	}
	return KindUpstream
}

// KindOf reports the Kind of an error produced by this package, or
// KindUpstream for anything else.
func KindOf(err error) Kind {
	if ge, ok := err.(*Error); ok {
		return ge.Kind
	}
	return KindUpstream
}
