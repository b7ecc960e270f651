package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"squl/gateway/internal/graphql"
	"squl/gateway/internal/session"
)

type tenantSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Subdomain string `json:"subdomain"`
}

type membershipSummary struct {
	ID     string        `json:"id"`
	Role   string        `json:"role"`
	Tenant tenantSummary `json:"tenant"`
}

type userSummary struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type tokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// sessionPayload is the shape shared by every auth-producing upstream
// mutation (signIn, signUp, acceptTeacherInvitation).
type sessionPayload struct {
	User         userSummary       `json:"user"`
	Membership   membershipSummary `json:"membership"`
	Tokens       tokenPair         `json:"tokens"`
	SubdomainURL string            `json:"subdomainUrl"`
	SchoolURL    string            `json:"schoolUrl"`
}

type sessionResponse struct {
	User         userSummary       `json:"user"`
	Membership   membershipSummary `json:"membership"`
	Tenant       tenantSummary     `json:"tenant"`
	SubdomainURL string            `json:"subdomainUrl"`
	SchoolURL    string            `json:"schoolUrl,omitempty"`
}

func (s *Server) cookiePolicy(r *http.Request) session.Policy {
	return session.ComputePolicy(s.cfg.Production(), hostname(r), s.cfg.RootDomain)
}

func (s *Server) writeSession(w http.ResponseWriter, r *http.Request, payload sessionPayload) {
	session.Write(w, s.cookiePolicy(r), session.Values{
		AccessToken:     payload.Tokens.AccessToken,
		RefreshToken:    payload.Tokens.RefreshToken,
		UserID:          payload.User.ID,
		Email:           payload.User.Email,
		UserName:        payload.User.Name,
		MembershipID:    payload.Membership.ID,
		UserRole:        payload.Membership.Role,
		TenantID:        payload.Membership.Tenant.ID,
		TenantName:      payload.Membership.Tenant.Name,
		SubdomainURL:    payload.SubdomainURL,
		SchoolURL:       payload.SchoolURL,
		TenantSubdomain: payload.Membership.Tenant.Subdomain,
	})
}

// sessionFrom runs one auth mutation and decodes its payload field.
func (s *Server) sessionFrom(r *http.Request, mutation, op string, variables map[string]any) (sessionPayload, error) {
	var payload sessionPayload
	data, err := s.upstream.Do(r.Context(), "", mutation, variables)
	if err != nil {
		return payload, err
	}
	raw, err := extract(data, op)
	if err != nil {
		return payload, err
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return payload, err
	}
	return payload, nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing_credentials")
		return
	}

	payload, err := s.sessionFrom(r, mutationSignIn, "signIn", map[string]any{
		"email":    req.Email,
		"password": req.Password,
	})
	if err != nil {
		// Login surfaces the upstream's own message so the form can
		// show "invalid credentials" and friends verbatim.
		if ge, ok := err.(*graphql.Error); ok && len(ge.Errors) > 0 {
			writeError(w, http.StatusBadRequest, ge.Errors[0].Message)
			return
		}
		writeUpstreamError(w, err)
		return
	}

	s.writeSession(w, r, payload)
	writeJSON(w, http.StatusOK, sessionResponse{
		User:         payload.User,
		Membership:   payload.Membership,
		Tenant:       payload.Membership.Tenant,
		SubdomainURL: payload.SubdomainURL,
		SchoolURL:    payload.SchoolURL,
	})
}

type registerRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	SchoolName string `json:"schoolName,omitempty"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	payload, err := s.sessionFrom(r, mutationSignUp, "signUp", map[string]any{
		"name":       req.Name,
		"email":      req.Email,
		"password":   req.Password,
		"schoolName": req.SchoolName,
	})
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	s.writeSession(w, r, payload)
	writeJSON(w, http.StatusCreated, sessionResponse{
		User:         payload.User,
		Membership:   payload.Membership,
		Tenant:       payload.Membership.Tenant,
		SubdomainURL: payload.SubdomainURL,
		SchoolURL:    payload.SchoolURL,
	})
}

type acceptInvitationRequest struct {
	Token    string `json:"token"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (s *Server) handleAcceptInvitation(w http.ResponseWriter, r *http.Request) {
	var req acceptInvitationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if strings.TrimSpace(req.Token) == "" || strings.TrimSpace(req.Name) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	payload, err := s.sessionFrom(r, mutationAcceptInvitation, "acceptTeacherInvitation", map[string]any{
		"token":    req.Token,
		"name":     req.Name,
		"password": req.Password,
	})
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	s.writeSession(w, r, payload)
	writeJSON(w, http.StatusOK, sessionResponse{
		User:         payload.User,
		Membership:   payload.Membership,
		Tenant:       payload.Membership.Tenant,
		SubdomainURL: payload.SubdomainURL,
		SchoolURL:    payload.SchoolURL,
	})
}

type storeTokensRequest struct {
	AccessToken     string `json:"accessToken"`
	RefreshToken    string `json:"refreshToken"`
	UserID          string `json:"userId,omitempty"`
	Email           string `json:"email,omitempty"`
	UserName        string `json:"userName,omitempty"`
	MembershipID    string `json:"membershipId,omitempty"`
	UserRole        string `json:"userRole,omitempty"`
	TenantID        string `json:"tenantId,omitempty"`
	TenantName      string `json:"tenantName,omitempty"`
	SubdomainURL    string `json:"subdomainUrl,omitempty"`
	SchoolURL       string `json:"schoolUrl,omitempty"`
	TenantSubdomain string `json:"tenantSubdomain,omitempty"`
}

// handleStoreTokens re-issues the cookie set under the current host's
// policy. It is the hop that carries a session from the root domain onto a
// tenant subdomain.
func (s *Server) handleStoreTokens(w http.ResponseWriter, r *http.Request) {
	var req storeTokensRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.AccessToken == "" {
		writeError(w, http.StatusBadRequest, "missing_access_token")
		return
	}

	session.Write(w, s.cookiePolicy(r), session.Values{
		AccessToken:     req.AccessToken,
		RefreshToken:    req.RefreshToken,
		UserID:          req.UserID,
		Email:           req.Email,
		UserName:        req.UserName,
		MembershipID:    req.MembershipID,
		UserRole:        req.UserRole,
		TenantID:        req.TenantID,
		TenantName:      req.TenantName,
		SubdomainURL:    req.SubdomainURL,
		SchoolURL:       req.SchoolURL,
		TenantSubdomain: req.TenantSubdomain,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	refreshToken := session.Cookie(r, session.CookieRefreshToken)
	if refreshToken == "" {
		writeError(w, http.StatusUnauthorized, "missing_refresh_token")
		return
	}

	data, err := s.upstream.Do(r.Context(), "", mutationRefreshTokens, map[string]any{
		"refreshToken": refreshToken,
	})
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	raw, err := extract(data, "refreshTokens")
	if err != nil {
		writeError(w, http.StatusBadGateway, "bad_gateway")
		return
	}
	var tokens tokenPair
	if err := json.Unmarshal(raw, &tokens); err != nil || tokens.AccessToken == "" {
		writeError(w, http.StatusBadGateway, "bad_gateway")
		return
	}

	session.WriteTokens(w, s.cookiePolicy(r), tokens.AccessToken, tokens.RefreshToken)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	session.Clear(w, s.cookiePolicy(r))
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	data, err := s.upstream.Do(r.Context(), session.Token(r), queryMe, nil)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	raw, err := extract(data, "me")
	if err != nil {
		writeError(w, http.StatusBadGateway, "bad_gateway")
		return
	}
	writeJSON(w, http.StatusOK, map[string]json.RawMessage{"user": raw})
}
