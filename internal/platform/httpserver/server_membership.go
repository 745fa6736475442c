package httpserver

import (
	"errors"
	"net/http"

	membershiperrors "societyhub/contexts/identity-access/membership-service/domain/errors"
	membershiphttp "societyhub/contexts/identity-access/membership-service/transport/http"
)

func (s *Server) registerMembershipRoutes() {
	s.mux.HandleFunc("POST /societies/{society_id}/members", s.handleEnrollMember)
	s.mux.HandleFunc("GET /societies/{society_id}/members", s.handleListMembers)
	s.mux.HandleFunc("GET /societies/{society_id}/members/{user_id}", s.handleCheckMember)
	s.mux.HandleFunc("DELETE /societies/{society_id}/members/{user_id}", s.handleRemoveMember)
}

func (s *Server) handleEnrollMember(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var req membershiphttp.EnrollMemberRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.membership.Handler.EnrollMemberHandler(r.Context(), principal.UserID, principal.Role, r.PathValue("society_id"), req)
	if err != nil {
		s.writeMembershipDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	resp, err := s.membership.Handler.RemoveMemberHandler(
		r.Context(),
		principal.UserID,
		principal.Role,
		r.PathValue("society_id"),
		r.PathValue("user_id"),
	)
	if err != nil {
		s.writeMembershipDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authenticate(w, r); !ok {
		return
	}
	resp, err := s.membership.Handler.ListMembersHandler(r.Context(), r.PathValue("society_id"))
	if err != nil {
		s.writeMembershipDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCheckMember(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authenticate(w, r); !ok {
		return
	}
	resp, err := s.membership.Handler.CheckMembershipHandler(r.Context(), r.PathValue("society_id"), r.PathValue("user_id"))
	if err != nil {
		s.writeMembershipDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeMembershipDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, membershiperrors.ErrInvalidSocietyID),
		errors.Is(err, membershiperrors.ErrInvalidUserID):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, membershiperrors.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, membershiperrors.ErrMembershipNotFound):
		writeError(w, http.StatusNotFound, "membership_not_found", err.Error())
	default:
		s.logger.Error("membership request failed",
			"event", "http_membership_internal_error",
			"module", moduleName,
			"layer", "platform",
			"request_id", requestIDFrom(r.Context()),
			"error", err.Error(),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
