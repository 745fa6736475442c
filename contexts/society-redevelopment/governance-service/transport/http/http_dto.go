package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreateProjectRequest struct {
	SocietyID                 string `json:"society_id"`
	Title                     string `json:"title"`
	Description               string `json:"description,omitempty"`
	MinimumApprovalPercentage int    `json:"minimum_approval_percentage,omitempty"`
}

type OpenVotingRequest struct {
	VotingDeadline string `json:"voting_deadline"`
}

type AdvanceProjectRequest struct {
	Status string `json:"status"`
}

type CancelProjectRequest struct {
	Reason string `json:"reason"`
}

type ProjectResponse struct {
	ProjectID                 string `json:"project_id"`
	SocietyID                 string `json:"society_id"`
	OwnerID                   string `json:"owner_id"`
	Title                     string `json:"title"`
	Description               string `json:"description,omitempty"`
	Status                    string `json:"status"`
	VotingDeadline            string `json:"voting_deadline,omitempty"`
	MinimumApprovalPercentage int    `json:"minimum_approval_percentage"`
	SelectedProposalID        string `json:"selected_proposal_id,omitempty"`
	SelectedDeveloperID       string `json:"selected_developer_id,omitempty"`
	ProposalsReceivedAt       string `json:"proposals_received_at,omitempty"`
	SelectedAt                string `json:"selected_at,omitempty"`
	CancellationReason        string `json:"cancellation_reason,omitempty"`
	VotingClosedAt            string `json:"voting_closed_at,omitempty"`
	CreatedAt                 string `json:"created_at"`
	UpdatedAt                 string `json:"updated_at"`
}

type FinancialTermsDTO struct {
	CorpusFund         float64 `json:"corpus_fund"`
	MonthlyRent        float64 `json:"monthly_rent"`
	FSI                float64 `json:"fsi"`
	AdditionalAreaPct  float64 `json:"additional_area_pct"`
	CompletionMonths   int     `json:"completion_months"`
	BankGuaranteeValue float64 `json:"bank_guarantee_value"`
}

type SubmitProposalRequest struct {
	Terms     FinancialTermsDTO `json:"financial_terms"`
	Amenities []string          `json:"amenities,omitempty"`
	Summary   string            `json:"summary,omitempty"`
	Draft     bool              `json:"draft,omitempty"`
}

type UpdateProposalRequest struct {
	Terms     FinancialTermsDTO `json:"financial_terms"`
	Amenities []string          `json:"amenities,omitempty"`
	Summary   string            `json:"summary,omitempty"`
}

type EvaluateProposalRequest struct {
	TechnicalScore float64 `json:"technical_score"`
	FinancialScore float64 `json:"financial_score"`
	TimelineScore  float64 `json:"timeline_score"`
	Notes          string  `json:"notes,omitempty"`
}

type RejectProposalRequest struct {
	Reason string `json:"reason"`
}

type SelectProposalRequest struct {
	ProjectID string `json:"project_id,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

type EvaluationDTO struct {
	TechnicalScore float64 `json:"technical_score"`
	FinancialScore float64 `json:"financial_score"`
	TimelineScore  float64 `json:"timeline_score"`
	OverallScore   float64 `json:"overall_score"`
	EvaluatorID    string  `json:"evaluator_id"`
	EvaluatedAt    string  `json:"evaluated_at"`
	Notes          string  `json:"notes,omitempty"`
}

type ProposalResponse struct {
	ProposalID      string            `json:"proposal_id"`
	ProjectID       string            `json:"project_id"`
	DeveloperID     string            `json:"developer_id"`
	Status          string            `json:"status"`
	Terms           FinancialTermsDTO `json:"financial_terms"`
	Amenities       []string          `json:"amenities"`
	Summary         string            `json:"summary,omitempty"`
	Evaluation      *EvaluationDTO    `json:"evaluation,omitempty"`
	RejectionReason string            `json:"rejection_reason,omitempty"`
	RejectedBy      string            `json:"rejected_by,omitempty"`
	SubmittedAt     string            `json:"submitted_at,omitempty"`
	CreatedAt       string            `json:"created_at"`
	UpdatedAt       string            `json:"updated_at"`
}

type SubmitProposalResponse struct {
	Proposal          ProposalResponse `json:"proposal"`
	ProjectStatus     string           `json:"project_status"`
	TransitionApplied bool             `json:"transition_applied"`
}

type ProposalListResponse struct {
	Items []ProposalResponse `json:"items"`
}

type SelectProposalResponse struct {
	Project  ProjectResponse    `json:"project"`
	Selected ProposalResponse   `json:"selected"`
	Rejected []ProposalResponse `json:"rejected"`
}

type BallotRequest struct {
	ProposalID    string `json:"proposal_id,omitempty"`
	VotingSession string `json:"voting_session"`
	Vote          string `json:"vote"`
	Comments      string `json:"comments,omitempty"`
}

type CastVoteRequest struct {
	ProjectID string `json:"project_id"`
	BallotRequest
}

type CastVotesBatchRequest struct {
	ProjectID string          `json:"project_id"`
	Ballots   []BallotRequest `json:"ballots"`
}

type BallotResponse struct {
	BallotID      string `json:"ballot_id"`
	ProjectID     string `json:"project_id"`
	MemberID      string `json:"member_id"`
	ProposalID    string `json:"proposal_id,omitempty"`
	VotingSession string `json:"voting_session"`
	Vote          string `json:"vote"`
	Comments      string `json:"comments,omitempty"`
	IsVerified    bool   `json:"is_verified"`
	VerifiedBy    string `json:"verified_by,omitempty"`
	VerifiedAt    string `json:"verified_at,omitempty"`
	CastAt        string `json:"cast_at"`
}

// CastVoteResponse omits statistics when they could not be computed after
// the ballot was stored.
type CastVoteResponse struct {
	Ballot     BallotResponse      `json:"ballot"`
	Statistics *StatisticsResponse `json:"statistics,omitempty"`
}

type CastVotesBatchResponse struct {
	Requested  int                 `json:"requested"`
	Added      int                 `json:"added"`
	Duplicates int                 `json:"duplicates"`
	Ballots    []BallotResponse    `json:"ballots"`
	Statistics *StatisticsResponse `json:"statistics,omitempty"`
}

type EligibilityResponse struct {
	ProjectID string `json:"project_id"`
	Eligible  bool   `json:"eligible"`
	Reason    string `json:"reason"`
}

type VoterBreakdownResponse struct {
	MemberID string           `json:"member_id"`
	Ballots  []BallotResponse `json:"ballots"`
}

type StatisticsResponse struct {
	ProjectID                 string                   `json:"project_id"`
	VotingSession             string                   `json:"voting_session,omitempty"`
	ProposalID                string                   `json:"proposal_id,omitempty"`
	YesCount                  int                      `json:"yes_count"`
	NoCount                   int                      `json:"no_count"`
	AbstainCount              int                      `json:"abstain_count"`
	TotalBallots              int                      `json:"total_ballots"`
	UniqueVoters              int                      `json:"unique_voters"`
	TotalEligibleMembers      int                      `json:"total_eligible_members"`
	ApprovalPercentage        int                      `json:"approval_percentage"`
	ParticipationRate         int                      `json:"participation_rate"`
	MinimumApprovalPercentage int                      `json:"minimum_approval_percentage"`
	IsApproved                bool                     `json:"is_approved"`
	Voters                    []VoterBreakdownResponse `json:"voters,omitempty"`
}

type LedgerEntryResponse struct {
	ProjectID string           `json:"project_id"`
	MemberID  string           `json:"member_id"`
	Ballots   []BallotResponse `json:"ballots"`
}
