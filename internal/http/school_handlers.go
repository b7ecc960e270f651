package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"squl/gateway/internal/cache"
	"squl/gateway/internal/graphql"
	"squl/gateway/internal/session"
)

// cachedList serves one tenant-scoped list endpoint through the read cache.
// The fill performs the request's single upstream call; concurrent misses
// for the same tenant and resource share that call.
func (s *Server) cachedList(w http.ResponseWriter, r *http.Request, resource, query, op, field string) {
	tenantID := session.Cookie(r, session.CookieTenantID)
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, "missing_tenant")
		return
	}
	token := session.Token(r)

	body, _, err := s.lists.Fetch(r.Context(), cache.Key(tenantID, resource), func(ctx context.Context) ([]byte, error) {
		data, err := s.upstream.Do(ctx, token, query, map[string]any{"tenantId": tenantID})
		if err != nil {
			return nil, err
		}
		raw, err := extract(data, op)
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]json.RawMessage{field: raw})
	})
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeRaw(w, http.StatusOK, body)
}

func (s *Server) invalidate(ctx context.Context, tenantID string, resources ...string) {
	for _, resource := range resources {
		s.lists.Invalidate(ctx, cache.Key(tenantID, resource))
	}
}

func (s *Server) handleStudents(w http.ResponseWriter, r *http.Request) {
	s.cachedList(w, r, "students", queryStudentsByTenant, "studentsByTenant", "students")
}

func (s *Server) handleStaff(w http.ResponseWriter, r *http.Request) {
	s.cachedList(w, r, "staff", queryUsersByTenant, "usersByTenant", "staff")
}

func (s *Server) handlePendingInvitations(w http.ResponseWriter, r *http.Request) {
	s.cachedList(w, r, "invitations", queryPendingInvitations, "pendingInvitations", "invitations")
}

func (s *Server) handleAcademicYears(w http.ResponseWriter, r *http.Request) {
	s.cachedList(w, r, "academic-years", queryAcademicYears, "academicYearsByTenant", "academicYears")
}

func (s *Server) handleFeeBuckets(w http.ResponseWriter, r *http.Request) {
	s.cachedList(w, r, "fee-buckets", queryFeeBuckets, "feeBucketsByTenant", "feeBuckets")
}

func (s *Server) handleTimetableEntries(w http.ResponseWriter, r *http.Request) {
	s.cachedList(w, r, "timetable", queryTimetableEntries, "timetableEntriesByTenant", "entries")
}

type createStudentRequest struct {
	Name            string `json:"name"`
	AdmissionNumber string `json:"admissionNumber"`
	GradeID         string `json:"gradeId"`
	Gender          string `json:"gender,omitempty"`
	Phone           string `json:"phone,omitempty"`
}

func (s *Server) handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	tenantID := session.Cookie(r, session.CookieTenantID)
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, "missing_tenant")
		return
	}

	var req createStudentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.AdmissionNumber = strings.TrimSpace(req.AdmissionNumber)
	if req.Name == "" || req.AdmissionNumber == "" || req.GradeID == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	data, err := s.upstream.Do(r.Context(), session.Token(r), mutationCreateStudent, map[string]any{
		"input": map[string]any{
			"tenantId":        tenantID,
			"name":            req.Name,
			"admissionNumber": req.AdmissionNumber,
			"gradeId":         req.GradeID,
			"gender":          req.Gender,
			"phone":           req.Phone,
		},
	})
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	raw, err := extract(data, "createStudent")
	if err != nil {
		writeError(w, http.StatusBadGateway, "bad_gateway")
		return
	}

	s.invalidate(r.Context(), tenantID, "students")
	writeJSON(w, http.StatusOK, map[string]json.RawMessage{"student": raw})
}

type inviteRequest struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
}

var staffRoles = map[string]bool{
	"ADMIN":      true,
	"TEACHER":    true,
	"ACCOUNTANT": true,
	"LIBRARIAN":  true,
	"SECRETARY":  true,
}

func (s *Server) handleCreateTeacher(w http.ResponseWriter, r *http.Request) {
	s.invite(w, r, "TEACHER")
}

func (s *Server) handleCreateStaff(w http.ResponseWriter, r *http.Request) {
	s.invite(w, r, "")
}

// invite sends one staff invitation. An empty forcedRole means the caller
// picks the role, validated against the known staff roles.
func (s *Server) invite(w http.ResponseWriter, r *http.Request, forcedRole string) {
	tenantID := session.Cookie(r, session.CookieTenantID)
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, "missing_tenant")
		return
	}

	var req inviteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	role := forcedRole
	if role == "" {
		role = strings.ToUpper(strings.TrimSpace(req.Role))
		if !staffRoles[role] {
			writeError(w, http.StatusBadRequest, "invalid_role")
			return
		}
	}

	data, err := s.upstream.Do(r.Context(), session.Token(r), mutationInviteTeacher, map[string]any{
		"input": map[string]any{
			"tenantId": tenantID,
			"email":    req.Email,
			"name":     req.Name,
			"role":     role,
		},
	})
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	raw, err := extract(data, "inviteTeacher")
	if err != nil {
		writeError(w, http.StatusBadGateway, "bad_gateway")
		return
	}

	s.invalidate(r.Context(), tenantID, "staff", "invitations")
	writeJSON(w, http.StatusOK, map[string]json.RawMessage{"invitation": raw})
}

type revokeInvitationRequest struct {
	InvitationID string `json:"invitationId"`
}

func (s *Server) handleRevokeInvitation(w http.ResponseWriter, r *http.Request) {
	tenantID := session.Cookie(r, session.CookieTenantID)
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, "missing_tenant")
		return
	}

	var req revokeInvitationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if strings.TrimSpace(req.InvitationID) == "" {
		writeError(w, http.StatusBadRequest, "missing_invitation_id")
		return
	}

	data, err := s.upstream.Do(r.Context(), session.Token(r), mutationRevokeInvitation, map[string]any{
		"invitationId": req.InvitationID,
	})
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	raw, err := extract(data, "revokeInvitation")
	if err != nil {
		writeError(w, http.StatusBadGateway, "bad_gateway")
		return
	}

	s.invalidate(r.Context(), tenantID, "invitations")
	writeJSON(w, http.StatusOK, map[string]json.RawMessage{"invitation": raw})
}

type feeItem struct {
	BucketID string  `json:"bucketId"`
	Amount   float64 `json:"amount"`
}

type feeStructureRequest struct {
	Name           string    `json:"name"`
	AcademicYearID string    `json:"academicYearId"`
	GradeID        string    `json:"gradeId,omitempty"`
	Items          []feeItem `json:"items,omitempty"`
}

func (s *Server) handleFeeStructure(w http.ResponseWriter, r *http.Request) {
	tenantID := session.Cookie(r, session.CookieTenantID)
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, "missing_tenant")
		return
	}

	var req feeStructureRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if strings.TrimSpace(req.Name) == "" || req.AcademicYearID == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	items := make([]map[string]any, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, map[string]any{"bucketId": item.BucketID, "amount": item.Amount})
	}

	data, err := s.upstream.Do(r.Context(), session.Token(r), mutationCreateFeeStructure, map[string]any{
		"input": map[string]any{
			"tenantId":       tenantID,
			"name":           req.Name,
			"academicYearId": req.AcademicYearID,
			"gradeId":        req.GradeID,
			"items":          items,
		},
	})
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	raw, err := extract(data, "createFeeStructure")
	if err != nil {
		writeError(w, http.StatusBadGateway, "bad_gateway")
		return
	}

	s.invalidate(r.Context(), tenantID, "fee-buckets")
	writeJSON(w, http.StatusOK, map[string]json.RawMessage{"feeStructure": raw})
}

type timetableEntryRequest struct {
	DayOfWeek string `json:"dayOfWeek"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	SubjectID string `json:"subjectId"`
	TeacherID string `json:"teacherId,omitempty"`
	GradeID   string `json:"gradeId,omitempty"`
}

func (s *Server) handleCreateTimetableEntry(w http.ResponseWriter, r *http.Request) {
	tenantID := session.Cookie(r, session.CookieTenantID)
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, "missing_tenant")
		return
	}

	var req timetableEntryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.DayOfWeek == "" || req.StartTime == "" || req.EndTime == "" || req.SubjectID == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	data, err := s.upstream.Do(r.Context(), session.Token(r), mutationCreateTimetableEntry, map[string]any{
		"input": map[string]any{
			"tenantId":  tenantID,
			"dayOfWeek": req.DayOfWeek,
			"startTime": req.StartTime,
			"endTime":   req.EndTime,
			"subjectId": req.SubjectID,
			"teacherId": req.TeacherID,
			"gradeId":   req.GradeID,
		},
	})
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	raw, err := extract(data, "createTimetableEntry")
	if err != nil {
		writeError(w, http.StatusBadGateway, "bad_gateway")
		return
	}

	s.invalidate(r.Context(), tenantID, "timetable")
	writeJSON(w, http.StatusOK, map[string]json.RawMessage{"entry": raw})
}

type configureSchoolRequest struct {
	Name        string   `json:"name"`
	SchoolType  string   `json:"schoolType,omitempty"`
	GradeLevels []string `json:"gradeLevels,omitempty"`
}

func (s *Server) handleConfigureSchool(w http.ResponseWriter, r *http.Request) {
	tenantID := session.Cookie(r, session.CookieTenantID)
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, "missing_tenant")
		return
	}

	var req configureSchoolRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	data, err := s.upstream.Do(r.Context(), session.Token(r), mutationConfigureSchool, map[string]any{
		"input": map[string]any{
			"tenantId":    tenantID,
			"name":        req.Name,
			"schoolType":  req.SchoolType,
			"gradeLevels": req.GradeLevels,
		},
	})
	if err != nil {
		if ge, ok := err.(*graphql.Error); ok && ge.Kind == graphql.KindValidation && strings.Contains(ge.Message, "already been configured") {
			writeError(w, http.StatusBadRequest, "school_already_configured")
			return
		}
		writeUpstreamError(w, err)
		return
	}
	raw, err := extract(data, "configureSchool")
	if err != nil {
		writeError(w, http.StatusBadGateway, "bad_gateway")
		return
	}

	writeJSON(w, http.StatusOK, map[string]json.RawMessage{"school": raw})
}
