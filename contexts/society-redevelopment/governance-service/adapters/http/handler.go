package httpadapter

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"societyhub/contexts/society-redevelopment/governance-service/application/commands"
	"societyhub/contexts/society-redevelopment/governance-service/application/queries"
	"societyhub/contexts/society-redevelopment/governance-service/domain/entities"
	domainerrors "societyhub/contexts/society-redevelopment/governance-service/domain/errors"
	httptransport "societyhub/contexts/society-redevelopment/governance-service/transport/http"
)

// Handler maps transport DTOs onto use cases. Routing and authentication
// live in the platform HTTP server.
type Handler struct {
	Lifecycle  commands.ProjectLifecycleUseCase
	Proposals  commands.ProposalUseCase
	Reviews    commands.ReviewProposalUseCase
	Selection  commands.SelectProposalUseCase
	Votes      commands.VoteUseCase
	Verify     commands.VerifyVoteUseCase
	Statistics queries.StatisticsUseCase
	Projects   queries.ProjectQueries
	Logger     *slog.Logger
}

func (h Handler) CreateProjectHandler(
	ctx context.Context,
	actor entities.Actor,
	req httptransport.CreateProjectRequest,
) (httptransport.ProjectResponse, error) {
	project, err := h.Lifecycle.CreateProject(ctx, commands.CreateProjectCommand{
		Actor:                     actor,
		SocietyID:                 req.SocietyID,
		Title:                     req.Title,
		Description:               req.Description,
		MinimumApprovalPercentage: req.MinimumApprovalPercentage,
	})
	if err != nil {
		return httptransport.ProjectResponse{}, err
	}
	return mapProject(project), nil
}

func (h Handler) GetProjectHandler(ctx context.Context, projectID string) (httptransport.ProjectResponse, error) {
	project, err := h.Projects.GetProject(ctx, projectID)
	if err != nil {
		return httptransport.ProjectResponse{}, err
	}
	return mapProject(project), nil
}

func (h Handler) DeleteProjectHandler(ctx context.Context, actor entities.Actor, projectID string) error {
	return h.Lifecycle.DeleteProject(ctx, actor, projectID)
}

func (h Handler) OpenTenderHandler(ctx context.Context, actor entities.Actor, projectID string) (httptransport.ProjectResponse, error) {
	project, err := h.Lifecycle.OpenTender(ctx, actor, projectID)
	if err != nil {
		return httptransport.ProjectResponse{}, err
	}
	return mapProject(project), nil
}

func (h Handler) OpenVotingHandler(
	ctx context.Context,
	actor entities.Actor,
	projectID string,
	req httptransport.OpenVotingRequest,
) (httptransport.ProjectResponse, error) {
	deadline, err := time.Parse(time.RFC3339, strings.TrimSpace(req.VotingDeadline))
	if err != nil {
		return httptransport.ProjectResponse{}, domainerrors.ErrValidation
	}
	project, err := h.Lifecycle.OpenVoting(ctx, commands.OpenVotingCommand{
		Actor:     actor,
		ProjectID: projectID,
		Deadline:  deadline,
	})
	if err != nil {
		return httptransport.ProjectResponse{}, err
	}
	return mapProject(project), nil
}

func (h Handler) AdvanceProjectHandler(
	ctx context.Context,
	actor entities.Actor,
	projectID string,
	req httptransport.AdvanceProjectRequest,
) (httptransport.ProjectResponse, error) {
	project, err := h.Lifecycle.Advance(ctx, commands.AdvanceProjectCommand{
		Actor:     actor,
		ProjectID: projectID,
		To:        entities.ProjectStatus(strings.TrimSpace(req.Status)),
	})
	if err != nil {
		return httptransport.ProjectResponse{}, err
	}
	return mapProject(project), nil
}

func (h Handler) CancelProjectHandler(
	ctx context.Context,
	actor entities.Actor,
	projectID string,
	req httptransport.CancelProjectRequest,
) (httptransport.ProjectResponse, error) {
	project, err := h.Lifecycle.Cancel(ctx, commands.CancelProjectCommand{
		Actor:     actor,
		ProjectID: projectID,
		Reason:    req.Reason,
	})
	if err != nil {
		return httptransport.ProjectResponse{}, err
	}
	return mapProject(project), nil
}

func (h Handler) SubmitProposalHandler(
	ctx context.Context,
	actor entities.Actor,
	projectID string,
	req httptransport.SubmitProposalRequest,
) (httptransport.SubmitProposalResponse, error) {
	result, err := h.Proposals.SubmitProposal(ctx, commands.SubmitProposalCommand{
		Actor:     actor,
		ProjectID: projectID,
		Terms:     termsFromDTO(req.Terms),
		Amenities: req.Amenities,
		Summary:   req.Summary,
		Draft:     req.Draft,
	})
	if err != nil {
		return httptransport.SubmitProposalResponse{}, err
	}
	return httptransport.SubmitProposalResponse{
		Proposal:          mapProposal(result.Proposal),
		ProjectStatus:     string(result.Project.Status),
		TransitionApplied: result.TransitionApplied,
	}, nil
}

func (h Handler) ListProposalsHandler(
	ctx context.Context,
	actor entities.Actor,
	projectID string,
) (httptransport.ProposalListResponse, error) {
	items, err := h.Projects.ListProposals(ctx, actor, projectID)
	if err != nil {
		return httptransport.ProposalListResponse{}, err
	}
	out := make([]httptransport.ProposalResponse, 0, len(items))
	for _, item := range items {
		out = append(out, mapProposal(item))
	}
	return httptransport.ProposalListResponse{Items: out}, nil
}

func (h Handler) GetProposalHandler(ctx context.Context, actor entities.Actor, proposalID string) (httptransport.ProposalResponse, error) {
	proposal, err := h.Projects.GetProposal(ctx, actor, proposalID)
	if err != nil {
		return httptransport.ProposalResponse{}, err
	}
	return mapProposal(proposal), nil
}

func (h Handler) UpdateProposalHandler(
	ctx context.Context,
	actor entities.Actor,
	proposalID string,
	req httptransport.UpdateProposalRequest,
) (httptransport.ProposalResponse, error) {
	proposal, err := h.Proposals.UpdateProposal(ctx, commands.UpdateProposalCommand{
		Actor:      actor,
		ProposalID: proposalID,
		Terms:      termsFromDTO(req.Terms),
		Amenities:  req.Amenities,
		Summary:    req.Summary,
	})
	if err != nil {
		return httptransport.ProposalResponse{}, err
	}
	return mapProposal(proposal), nil
}

// ProposalActionHandler dispatches the single-verb proposal endpoints that
// carry no request body.
func (h Handler) ProposalActionHandler(
	ctx context.Context,
	actor entities.Actor,
	proposalID string,
	action string,
) (httptransport.ProposalResponse, error) {
	var (
		proposal entities.DeveloperProposal
		err      error
	)
	switch action {
	case "submit":
		proposal, err = h.Proposals.SubmitDraft(ctx, actor, proposalID)
	case "withdraw":
		proposal, err = h.Proposals.WithdrawProposal(ctx, actor, proposalID)
	case "approve":
		proposal, err = h.Reviews.Approve(ctx, actor, proposalID)
	case "review":
		proposal, err = h.Reviews.MarkUnderReview(ctx, actor, proposalID)
	case "shortlist":
		proposal, err = h.Reviews.Shortlist(ctx, actor, proposalID)
	default:
		return httptransport.ProposalResponse{}, domainerrors.ErrValidation
	}
	if err != nil {
		return httptransport.ProposalResponse{}, err
	}
	return mapProposal(proposal), nil
}

func (h Handler) EvaluateProposalHandler(
	ctx context.Context,
	actor entities.Actor,
	proposalID string,
	req httptransport.EvaluateProposalRequest,
) (httptransport.ProposalResponse, error) {
	proposal, err := h.Reviews.Evaluate(ctx, commands.EvaluateProposalCommand{
		Actor:          actor,
		ProposalID:     proposalID,
		TechnicalScore: req.TechnicalScore,
		FinancialScore: req.FinancialScore,
		TimelineScore:  req.TimelineScore,
		Notes:          req.Notes,
	})
	if err != nil {
		return httptransport.ProposalResponse{}, err
	}
	return mapProposal(proposal), nil
}

func (h Handler) RejectProposalHandler(
	ctx context.Context,
	actor entities.Actor,
	proposalID string,
	req httptransport.RejectProposalRequest,
) (httptransport.ProposalResponse, error) {
	proposal, err := h.Reviews.Reject(ctx, commands.RejectProposalCommand{
		Actor:      actor,
		ProposalID: proposalID,
		Reason:     req.Reason,
	})
	if err != nil {
		return httptransport.ProposalResponse{}, err
	}
	return mapProposal(proposal), nil
}

func (h Handler) SelectProposalHandler(
	ctx context.Context,
	actor entities.Actor,
	proposalID string,
	req httptransport.SelectProposalRequest,
) (httptransport.SelectProposalResponse, error) {
	result, err := h.Selection.Execute(ctx, commands.SelectProposalCommand{
		Actor:      actor,
		ProjectID:  req.ProjectID,
		ProposalID: proposalID,
		Reason:     req.Reason,
	})
	if err != nil {
		return httptransport.SelectProposalResponse{}, err
	}
	rejected := make([]httptransport.ProposalResponse, 0, len(result.Rejected))
	for _, item := range result.Rejected {
		rejected = append(rejected, mapProposal(item))
	}
	return httptransport.SelectProposalResponse{
		Project:  mapProject(result.Project),
		Selected: mapProposal(result.Selected),
		Rejected: rejected,
	}, nil
}

func (h Handler) CastVoteHandler(
	ctx context.Context,
	actor entities.Actor,
	ipAddress string,
	userAgent string,
	req httptransport.CastVoteRequest,
) (httptransport.CastVoteResponse, error) {
	ballot, err := h.Votes.SubmitVote(ctx, commands.CastVoteCommand{
		Actor:     actor,
		ProjectID: req.ProjectID,
		Ballot:    ballotInputFromDTO(req.BallotRequest),
		IPAddress: ipAddress,
		UserAgent: userAgent,
	})
	if err != nil {
		return httptransport.CastVoteResponse{}, err
	}
	return httptransport.CastVoteResponse{
		Ballot: mapBallot(ballot),
		Statistics: h.statisticsAfterVote(ctx, ballot.ProjectID, entities.StatisticsFilter{
			VotingSession: ballot.VotingSession,
		}),
	}, nil
}

func (h Handler) CastVotesBatchHandler(
	ctx context.Context,
	actor entities.Actor,
	ipAddress string,
	userAgent string,
	req httptransport.CastVotesBatchRequest,
) (httptransport.CastVotesBatchResponse, error) {
	inputs := make([]commands.BallotInput, 0, len(req.Ballots))
	for _, item := range req.Ballots {
		inputs = append(inputs, ballotInputFromDTO(item))
	}
	result, err := h.Votes.SubmitVotesBatch(ctx, commands.CastVotesBatchCommand{
		Actor:     actor,
		ProjectID: req.ProjectID,
		Ballots:   inputs,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	})
	if err != nil {
		return httptransport.CastVotesBatchResponse{}, err
	}
	return httptransport.CastVotesBatchResponse{
		Requested:  result.Requested,
		Added:      result.Added,
		Duplicates: result.Duplicates,
		Ballots:    mapBallots(result.Ballots),
		Statistics: h.statisticsAfterVote(ctx, req.ProjectID, entities.StatisticsFilter{}),
	}, nil
}

// statisticsAfterVote returns nil when the tally fails; the ballots are
// already committed by then.
func (h Handler) statisticsAfterVote(
	ctx context.Context,
	projectID string,
	filter entities.StatisticsFilter,
) *httptransport.StatisticsResponse {
	stats, err := h.Statistics.ProjectStatistics(ctx, projectID, filter)
	if err != nil {
		logger := h.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("vote statistics unavailable after ballot commit",
			"event", "governance_vote_statistics_omitted",
			"module", "society-redevelopment/governance-service",
			"layer", "adapter",
			"project_id", strings.TrimSpace(projectID),
			"voting_session", filter.VotingSession,
			"error", err.Error(),
		)
		return nil
	}
	response := mapStatistics(stats.WithoutVoters())
	return &response
}

func (h Handler) EligibilityHandler(
	ctx context.Context,
	actor entities.Actor,
	projectID string,
) (httptransport.EligibilityResponse, error) {
	eligibility, err := h.Votes.CheckEligibility(ctx, actor, projectID)
	if err != nil {
		return httptransport.EligibilityResponse{}, err
	}
	return httptransport.EligibilityResponse{
		ProjectID: eligibility.Project.ProjectID,
		Eligible:  eligibility.Eligible,
		Reason:    string(eligibility.Reason),
	}, nil
}

func (h Handler) StatisticsHandler(
	ctx context.Context,
	actor entities.Actor,
	projectID string,
	session string,
	proposalID string,
) (httptransport.StatisticsResponse, error) {
	stats, err := h.Statistics.GetStatistics(ctx, actor, projectID, entities.StatisticsFilter{
		VotingSession: session,
		ProposalID:    proposalID,
	})
	if err != nil {
		return httptransport.StatisticsResponse{}, err
	}
	return mapStatistics(stats), nil
}

func (h Handler) MyVoteHandler(
	ctx context.Context,
	actor entities.Actor,
	projectID string,
	session string,
	proposalID string,
) (httptransport.BallotResponse, error) {
	ballot, err := h.Statistics.MyVote(ctx, actor, projectID, entities.BallotKey{
		ProposalID:    proposalID,
		VotingSession: session,
	})
	if err != nil {
		return httptransport.BallotResponse{}, err
	}
	return mapBallot(ballot), nil
}

func (h Handler) MyBallotsHandler(ctx context.Context, actor entities.Actor, projectID string) (httptransport.LedgerEntryResponse, error) {
	entry, err := h.Statistics.MyBallots(ctx, actor, projectID)
	if err != nil {
		return httptransport.LedgerEntryResponse{}, err
	}
	return httptransport.LedgerEntryResponse{
		ProjectID: entry.ProjectID,
		MemberID:  entry.MemberID,
		Ballots:   mapBallots(entry.Ballots),
	}, nil
}

func (h Handler) VerifyVoteHandler(ctx context.Context, actor entities.Actor, ballotID string) (httptransport.BallotResponse, error) {
	ballot, err := h.Verify.Execute(ctx, actor, ballotID)
	if err != nil {
		return httptransport.BallotResponse{}, err
	}
	return mapBallot(ballot), nil
}

func ballotInputFromDTO(req httptransport.BallotRequest) commands.BallotInput {
	return commands.BallotInput{
		ProposalID:    req.ProposalID,
		VotingSession: req.VotingSession,
		Choice:        req.Vote,
		Comments:      req.Comments,
	}
}

func termsFromDTO(dto httptransport.FinancialTermsDTO) entities.FinancialTerms {
	return entities.FinancialTerms{
		CorpusFund:         dto.CorpusFund,
		MonthlyRent:        dto.MonthlyRent,
		FSI:                dto.FSI,
		AdditionalAreaPct:  dto.AdditionalAreaPct,
		CompletionMonths:   dto.CompletionMonths,
		BankGuaranteeValue: dto.BankGuaranteeValue,
	}
}

func mapProject(project entities.RedevelopmentProject) httptransport.ProjectResponse {
	return httptransport.ProjectResponse{
		ProjectID:                 project.ProjectID,
		SocietyID:                 project.SocietyID,
		OwnerID:                   project.OwnerID,
		Title:                     project.Title,
		Description:               project.Description,
		Status:                    string(project.Status),
		VotingDeadline:            formatOptional(project.VotingDeadline),
		MinimumApprovalPercentage: project.MinimumApprovalPercentage,
		SelectedProposalID:        project.SelectedProposalID,
		SelectedDeveloperID:       project.SelectedDeveloperID,
		ProposalsReceivedAt:       formatOptional(project.ProposalsReceivedAt),
		SelectedAt:                formatOptional(project.SelectedAt),
		CancellationReason:        project.CancellationReason,
		VotingClosedAt:            formatOptional(project.VotingClosedAt),
		CreatedAt:                 formatTime(project.CreatedAt),
		UpdatedAt:                 formatTime(project.UpdatedAt),
	}
}

func mapProposal(proposal entities.DeveloperProposal) httptransport.ProposalResponse {
	amenities := proposal.Amenities
	if amenities == nil {
		amenities = []string{}
	}
	out := httptransport.ProposalResponse{
		ProposalID:  proposal.ProposalID,
		ProjectID:   proposal.ProjectID,
		DeveloperID: proposal.DeveloperID,
		Status:      string(proposal.Status),
		Terms: httptransport.FinancialTermsDTO{
			CorpusFund:         proposal.Terms.CorpusFund,
			MonthlyRent:        proposal.Terms.MonthlyRent,
			FSI:                proposal.Terms.FSI,
			AdditionalAreaPct:  proposal.Terms.AdditionalAreaPct,
			CompletionMonths:   proposal.Terms.CompletionMonths,
			BankGuaranteeValue: proposal.Terms.BankGuaranteeValue,
		},
		Amenities:       amenities,
		Summary:         proposal.Summary,
		RejectionReason: proposal.RejectionReason,
		RejectedBy:      proposal.RejectedBy,
		SubmittedAt:     formatOptional(proposal.SubmittedAt),
		CreatedAt:       formatTime(proposal.CreatedAt),
		UpdatedAt:       formatTime(proposal.UpdatedAt),
	}
	if evaluation := proposal.Evaluation; evaluation != nil {
		out.Evaluation = &httptransport.EvaluationDTO{
			TechnicalScore: evaluation.TechnicalScore,
			FinancialScore: evaluation.FinancialScore,
			TimelineScore:  evaluation.TimelineScore,
			OverallScore:   evaluation.OverallScore,
			EvaluatorID:    evaluation.EvaluatorID,
			EvaluatedAt:    formatTime(evaluation.EvaluatedAt),
			Notes:          evaluation.Notes,
		}
	}
	return out
}

func mapBallot(ballot entities.Ballot) httptransport.BallotResponse {
	return httptransport.BallotResponse{
		BallotID:      ballot.BallotID,
		ProjectID:     ballot.ProjectID,
		MemberID:      ballot.MemberID,
		ProposalID:    ballot.ProposalID,
		VotingSession: ballot.VotingSession,
		Vote:          string(ballot.Choice()),
		Comments:      ballot.Comments,
		IsVerified:    ballot.IsVerified,
		VerifiedBy:    ballot.VerifiedBy,
		VerifiedAt:    formatOptional(ballot.VerifiedAt),
		CastAt:        formatTime(ballot.CastAt),
	}
}

func mapBallots(items []entities.Ballot) []httptransport.BallotResponse {
	out := make([]httptransport.BallotResponse, 0, len(items))
	for _, item := range items {
		out = append(out, mapBallot(item))
	}
	return out
}

func mapStatistics(stats entities.VoteStatistics) httptransport.StatisticsResponse {
	out := httptransport.StatisticsResponse{
		ProjectID:                 stats.ProjectID,
		VotingSession:             stats.VotingSession,
		ProposalID:                stats.ProposalID,
		YesCount:                  stats.YesCount,
		NoCount:                   stats.NoCount,
		AbstainCount:              stats.AbstainCount,
		TotalBallots:              stats.TotalBallots,
		UniqueVoters:              stats.UniqueVoters,
		TotalEligibleMembers:      stats.TotalEligibleMembers,
		ApprovalPercentage:        stats.ApprovalPercentage,
		ParticipationRate:         stats.ParticipationRate,
		MinimumApprovalPercentage: stats.MinimumApprovalPercentage,
		IsApproved:                stats.IsApproved,
	}
	if len(stats.Voters) > 0 {
		out.Voters = make([]httptransport.VoterBreakdownResponse, 0, len(stats.Voters))
		for _, voter := range stats.Voters {
			out.Voters = append(out.Voters, httptransport.VoterBreakdownResponse{
				MemberID: voter.MemberID,
				Ballots:  mapBallots(voter.Ballots),
			})
		}
	}
	return out
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func formatOptional(value *time.Time) string {
	if value == nil {
		return ""
	}
	return formatTime(*value)
}
