package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"societyhub/contexts/society-redevelopment/governance-service/domain/entities"
	governanceerrors "societyhub/contexts/society-redevelopment/governance-service/domain/errors"
	governancehttp "societyhub/contexts/society-redevelopment/governance-service/transport/http"
	"societyhub/internal/platform/auth"
)

func (s *Server) registerGovernanceRoutes() {
	s.mux.HandleFunc("POST /projects", s.handleCreateProject)
	s.mux.HandleFunc("GET /projects/{project_id}", s.handleGetProject)
	s.mux.HandleFunc("DELETE /projects/{project_id}", s.handleDeleteProject)
	s.mux.HandleFunc("POST /projects/{project_id}/tender", s.handleOpenTender)
	s.mux.HandleFunc("POST /projects/{project_id}/voting", s.handleOpenVoting)
	s.mux.HandleFunc("POST /projects/{project_id}/advance", s.handleAdvanceProject)
	s.mux.HandleFunc("POST /projects/{project_id}/cancel", s.handleCancelProject)

	s.mux.HandleFunc("POST /projects/{project_id}/proposals", s.handleSubmitProposal)
	s.mux.HandleFunc("GET /projects/{project_id}/proposals", s.handleListProposals)
	s.mux.HandleFunc("GET /proposals/{proposal_id}", s.handleGetProposal)
	s.mux.HandleFunc("PATCH /proposals/{proposal_id}", s.handleUpdateProposal)
	for _, action := range []string{"submit", "withdraw", "approve", "review", "shortlist"} {
		s.mux.HandleFunc("POST /proposals/{proposal_id}/"+action, s.handleProposalAction(action))
	}
	s.mux.HandleFunc("POST /proposals/{proposal_id}/evaluate", s.handleEvaluateProposal)
	s.mux.HandleFunc("POST /proposals/{proposal_id}/reject", s.handleRejectProposal)
	s.mux.HandleFunc("POST /proposals/{proposal_id}/select", s.handleSelectProposal)

	s.mux.HandleFunc("POST /votes", s.handleCastVote)
	s.mux.HandleFunc("POST /votes/batch", s.handleCastVotesBatch)
	s.mux.HandleFunc("POST /votes/{ballot_id}/verify", s.handleVerifyVote)
	s.mux.HandleFunc("GET /votes/my-vote/{project_id}/{session}", s.handleMyVote)
	s.mux.HandleFunc("GET /votes/my-votes/{project_id}", s.handleMyVotes)
	s.mux.HandleFunc("GET /projects/{project_id}/votes/eligibility", s.handleVoteEligibility)
	s.mux.HandleFunc("GET /projects/{project_id}/votes/statistics", s.handleVoteStatistics)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var req governancehttp.CreateProjectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.governance.Handler.CreateProjectHandler(r.Context(), actorOf(principal), req)
	if err != nil {
		s.writeGovernanceDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authenticate(w, r); !ok {
		return
	}
	resp, err := s.governance.Handler.GetProjectHandler(r.Context(), r.PathValue("project_id"))
	if err != nil {
		s.writeGovernanceDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	if err := s.governance.Handler.DeleteProjectHandler(r.Context(), actorOf(principal), r.PathValue("project_id")); err != nil {
		s.writeGovernanceDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleOpenTender(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	resp, err := s.governance.Handler.OpenTenderHandler(r.Context(), actorOf(principal), r.PathValue("project_id"))
	if err != nil {
		s.writeGovernanceDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleOpenVoting(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var req governancehttp.OpenVotingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.governance.Handler.OpenVotingHandler(r.Context(), actorOf(principal), r.PathValue("project_id"), req)
	if err != nil {
		s.writeGovernanceDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAdvanceProject(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var req governancehttp.AdvanceProjectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.governance.Handler.AdvanceProjectHandler(r.Context(), actorOf(principal), r.PathValue("project_id"), req)
	if err != nil {
		s.writeGovernanceDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCancelProject(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var req governancehttp.CancelProjectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.governance.Handler.CancelProjectHandler(r.Context(), actorOf(principal), r.PathValue("project_id"), req)
	if err != nil {
		s.writeGovernanceDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSubmitProposal(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var req governancehttp.SubmitProposalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.governance.Handler.SubmitProposalHandler(r.Context(), actorOf(principal), r.PathValue("project_id"), req)
	if err != nil {
		s.writeGovernanceDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListProposals(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	resp, err := s.governance.Handler.ListProposalsHandler(r.Context(), actorOf(principal), r.PathValue("project_id"))
	if err != nil {
		s.writeGovernanceDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	resp, err := s.governance.Handler.GetProposalHandler(r.Context(), actorOf(principal), r.PathValue("proposal_id"))
	if err != nil {
		s.writeGovernanceDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdateProposal(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var req governancehttp.UpdateProposalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.governance.Handler.UpdateProposalHandler(r.Context(), actorOf(principal), r.PathValue("proposal_id"), req)
	if err != nil {
		s.writeGovernanceDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleProposalAction(action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := s.authenticate(w, r)
		if !ok {
			return
		}
		resp, err := s.governance.Handler.ProposalActionHandler(r.Context(), actorOf(principal), r.PathValue("proposal_id"), action)
		if err != nil {
			s.writeGovernanceDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) handleEvaluateProposal(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var req governancehttp.EvaluateProposalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.governance.Handler.EvaluateProposalHandler(r.Context(), actorOf(principal), r.PathValue("proposal_id"), req)
	if err != nil {
		s.writeGovernanceDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRejectProposal(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var req governancehttp.RejectProposalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.governance.Handler.RejectProposalHandler(r.Context(), actorOf(principal), r.PathValue("proposal_id"), req)
	if err != nil {
		s.writeGovernanceDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSelectProposal(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var req governancehttp.SelectProposalRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.governance.Handler.SelectProposalHandler(r.Context(), actorOf(principal), r.PathValue("proposal_id"), req)
	if err != nil {
		s.metrics.selectionOutcome(outcomeOf(err))
		s.writeGovernanceDomainError(w, r, err)
		return
	}
	s.metrics.selectionOutcome("selected")
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.authenticate(w, r)
	if !ok || !s.allowVote(w, principal) {
		return
	}
	var req governancehttp.CastVoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.governance.Handler.CastVoteHandler(r.Context(), actorOf(principal), s.proxies.clientIP(r), r.UserAgent(), req)
	if err != nil {
		s.metrics.ballotOutcome(outcomeOf(err), 1)
		s.writeGovernanceDomainError(w, r, err)
		return
	}
	s.metrics.ballotOutcome("added", 1)
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleCastVotesBatch(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.authenticate(w, r)
	if !ok || !s.allowVote(w, principal) {
		return
	}
	var req governancehttp.CastVotesBatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.governance.Handler.CastVotesBatchHandler(r.Context(), actorOf(principal), s.proxies.clientIP(r), r.UserAgent(), req)
	if err != nil {
		s.metrics.ballotOutcome(outcomeOf(err), len(req.Ballots))
		s.writeGovernanceDomainError(w, r, err)
		return
	}
	s.metrics.ballotOutcome("added", resp.Added)
	s.metrics.ballotOutcome("duplicate", resp.Duplicates)
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleVerifyVote(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	resp, err := s.governance.Handler.VerifyVoteHandler(r.Context(), actorOf(principal), r.PathValue("ballot_id"))
	if err != nil {
		s.writeGovernanceDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMyVote(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	resp, err := s.governance.Handler.MyVoteHandler(
		r.Context(),
		actorOf(principal),
		r.PathValue("project_id"),
		r.PathValue("session"),
		r.URL.Query().Get("proposal_id"),
	)
	if err != nil {
		s.writeGovernanceDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMyVotes(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	resp, err := s.governance.Handler.MyBallotsHandler(r.Context(), actorOf(principal), r.PathValue("project_id"))
	if err != nil {
		s.writeGovernanceDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVoteEligibility(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	resp, err := s.governance.Handler.EligibilityHandler(r.Context(), actorOf(principal), r.PathValue("project_id"))
	if err != nil {
		s.writeGovernanceDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVoteStatistics(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	resp, err := s.governance.Handler.StatisticsHandler(
		r.Context(),
		actorOf(principal),
		r.PathValue("project_id"),
		query.Get("session"),
		query.Get("proposal_id"),
	)
	if err != nil {
		s.writeGovernanceDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) allowVote(w http.ResponseWriter, principal auth.Principal) bool {
	if s.limiter.allow(principal.UserID) {
		return true
	}
	writeError(w, http.StatusTooManyRequests, "rate_limited", "too many vote submissions, retry later")
	return false
}

func actorOf(principal auth.Principal) entities.Actor {
	return entities.Actor{
		UserID: strings.TrimSpace(principal.UserID),
		Role:   entities.Role(strings.ToLower(strings.TrimSpace(principal.Role))),
	}
}

func outcomeOf(err error) string {
	var alreadyVoted *governanceerrors.AlreadyVotedError
	var conflict *governanceerrors.StateConflictError
	switch {
	case errors.As(err, &alreadyVoted):
		return "duplicate"
	case errors.As(err, &conflict):
		return "state_conflict"
	case errors.Is(err, governanceerrors.ErrNotEligible), errors.Is(err, governanceerrors.ErrForbidden):
		return "rejected"
	default:
		return "error"
	}
}

func (s *Server) writeGovernanceDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var conflict *governanceerrors.StateConflictError
	var alreadyVoted *governanceerrors.AlreadyVotedError
	switch {
	case errors.As(err, &conflict):
		switch conflict.Reason {
		case governanceerrors.ReasonNotAcceptingProposals:
			writeError(w, http.StatusBadRequest, "not_accepting_proposals", err.Error())
		case governanceerrors.ReasonDeadlinePassed:
			writeError(w, http.StatusBadRequest, "voting_deadline_passed", err.Error())
		default:
			writeError(w, http.StatusConflict, "state_conflict", err.Error())
		}
	case errors.As(err, &alreadyVoted):
		writeError(w, http.StatusConflict, "already_voted", err.Error())
	case errors.Is(err, governanceerrors.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, governanceerrors.ErrDuplicateProposal):
		writeError(w, http.StatusConflict, "duplicate_proposal", err.Error())
	case errors.Is(err, governanceerrors.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, governanceerrors.ErrNotEligible):
		writeError(w, http.StatusForbidden, "not_eligible", err.Error())
	case errors.Is(err, governanceerrors.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, governanceerrors.ErrProjectNotFound):
		writeError(w, http.StatusNotFound, "project_not_found", err.Error())
	case errors.Is(err, governanceerrors.ErrProposalNotFound):
		writeError(w, http.StatusNotFound, "proposal_not_found", err.Error())
	case errors.Is(err, governanceerrors.ErrBallotNotFound):
		writeError(w, http.StatusNotFound, "ballot_not_found", err.Error())
	default:
		s.logger.Error("governance request failed",
			"event", "http_governance_internal_error",
			"module", moduleName,
			"layer", "platform",
			"request_id", requestIDFrom(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err.Error(),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
