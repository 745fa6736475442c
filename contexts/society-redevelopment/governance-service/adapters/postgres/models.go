package postgresadapter

import (
	"encoding/json"
	"strings"
	"time"

	"societyhub/contexts/society-redevelopment/governance-service/domain/entities"
	"societyhub/contexts/society-redevelopment/governance-service/ports"
)

type projectModel struct {
	ProjectID                 string     `gorm:"column:project_id;primaryKey"`
	SocietyID                 string     `gorm:"column:society_id"`
	OwnerID                   string     `gorm:"column:owner_id"`
	Title                     string     `gorm:"column:title"`
	Description               string     `gorm:"column:description"`
	Status                    string     `gorm:"column:status"`
	VotingDeadline            *time.Time `gorm:"column:voting_deadline"`
	MinimumApprovalPercentage int        `gorm:"column:minimum_approval_percentage"`
	SelectedProposalID        *string    `gorm:"column:selected_proposal_id"`
	SelectedDeveloperID       *string    `gorm:"column:selected_developer_id"`
	ProposalsReceivedAt       *time.Time `gorm:"column:proposals_received_at"`
	SelectedAt                *time.Time `gorm:"column:selected_at"`
	CancellationReason        string     `gorm:"column:cancellation_reason"`
	VotingClosedAt            *time.Time `gorm:"column:voting_closed_at"`
	CreatedAt                 time.Time  `gorm:"column:created_at"`
	UpdatedAt                 time.Time  `gorm:"column:updated_at"`
}

func (projectModel) TableName() string {
	return "redevelopment_projects"
}

func projectModelFromEntity(project entities.RedevelopmentProject) projectModel {
	return projectModel{
		ProjectID:                 strings.TrimSpace(project.ProjectID),
		SocietyID:                 strings.TrimSpace(project.SocietyID),
		OwnerID:                   strings.TrimSpace(project.OwnerID),
		Title:                     strings.TrimSpace(project.Title),
		Description:               project.Description,
		Status:                    string(project.Status),
		VotingDeadline:            utcPtr(project.VotingDeadline),
		MinimumApprovalPercentage: project.MinimumApprovalPercentage,
		SelectedProposalID:        optionalString(project.SelectedProposalID),
		SelectedDeveloperID:       optionalString(project.SelectedDeveloperID),
		ProposalsReceivedAt:       utcPtr(project.ProposalsReceivedAt),
		SelectedAt:                utcPtr(project.SelectedAt),
		CancellationReason:        project.CancellationReason,
		VotingClosedAt:            utcPtr(project.VotingClosedAt),
		CreatedAt:                 project.CreatedAt.UTC(),
		UpdatedAt:                 project.UpdatedAt.UTC(),
	}
}

func (m projectModel) toEntity() entities.RedevelopmentProject {
	return entities.RedevelopmentProject{
		ProjectID:                 m.ProjectID,
		SocietyID:                 m.SocietyID,
		OwnerID:                   m.OwnerID,
		Title:                     m.Title,
		Description:               m.Description,
		Status:                    entities.ProjectStatus(m.Status),
		VotingDeadline:            utcPtr(m.VotingDeadline),
		MinimumApprovalPercentage: m.MinimumApprovalPercentage,
		SelectedProposalID:        derefString(m.SelectedProposalID),
		SelectedDeveloperID:       derefString(m.SelectedDeveloperID),
		ProposalsReceivedAt:       utcPtr(m.ProposalsReceivedAt),
		SelectedAt:                utcPtr(m.SelectedAt),
		CancellationReason:        m.CancellationReason,
		VotingClosedAt:            utcPtr(m.VotingClosedAt),
		CreatedAt:                 m.CreatedAt.UTC(),
		UpdatedAt:                 m.UpdatedAt.UTC(),
	}
}

type proposalModel struct {
	ProposalID         string     `gorm:"column:proposal_id;primaryKey"`
	ProjectID          string     `gorm:"column:project_id"`
	DeveloperID        string     `gorm:"column:developer_id"`
	Status             string     `gorm:"column:status"`
	CorpusFund         float64    `gorm:"column:corpus_fund"`
	MonthlyRent        float64    `gorm:"column:monthly_rent"`
	FSI                float64    `gorm:"column:fsi"`
	AdditionalAreaPct  float64    `gorm:"column:additional_area_pct"`
	CompletionMonths   int        `gorm:"column:completion_months"`
	BankGuaranteeValue float64    `gorm:"column:bank_guarantee_value"`
	Amenities          []byte     `gorm:"column:amenities"`
	Summary            string     `gorm:"column:summary"`
	TechnicalScore     *float64   `gorm:"column:technical_score"`
	FinancialScore     *float64   `gorm:"column:financial_score"`
	TimelineScore      *float64   `gorm:"column:timeline_score"`
	OverallScore       *float64   `gorm:"column:overall_score"`
	EvaluatorID        *string    `gorm:"column:evaluator_id"`
	EvaluatedAt        *time.Time `gorm:"column:evaluated_at"`
	EvaluationNotes    *string    `gorm:"column:evaluation_notes"`
	RejectionReason    string     `gorm:"column:rejection_reason"`
	RejectedBy         string     `gorm:"column:rejected_by"`
	SubmittedAt        *time.Time `gorm:"column:submitted_at"`
	CreatedAt          time.Time  `gorm:"column:created_at"`
	UpdatedAt          time.Time  `gorm:"column:updated_at"`
}

func (proposalModel) TableName() string {
	return "developer_proposals"
}

func proposalModelFromEntity(proposal entities.DeveloperProposal) proposalModel {
	amenities := proposal.Amenities
	if amenities == nil {
		amenities = []string{}
	}
	encoded, _ := json.Marshal(amenities)
	row := proposalModel{
		ProposalID:         strings.TrimSpace(proposal.ProposalID),
		ProjectID:          strings.TrimSpace(proposal.ProjectID),
		DeveloperID:        strings.TrimSpace(proposal.DeveloperID),
		Status:             string(proposal.Status),
		CorpusFund:         proposal.Terms.CorpusFund,
		MonthlyRent:        proposal.Terms.MonthlyRent,
		FSI:                proposal.Terms.FSI,
		AdditionalAreaPct:  proposal.Terms.AdditionalAreaPct,
		CompletionMonths:   proposal.Terms.CompletionMonths,
		BankGuaranteeValue: proposal.Terms.BankGuaranteeValue,
		Amenities:          encoded,
		Summary:            proposal.Summary,
		RejectionReason:    proposal.RejectionReason,
		RejectedBy:         proposal.RejectedBy,
		SubmittedAt:        utcPtr(proposal.SubmittedAt),
		CreatedAt:          proposal.CreatedAt.UTC(),
		UpdatedAt:          proposal.UpdatedAt.UTC(),
	}
	if evaluation := proposal.Evaluation; evaluation != nil {
		technical := evaluation.TechnicalScore
		financial := evaluation.FinancialScore
		timeline := evaluation.TimelineScore
		overall := evaluation.OverallScore
		evaluator := evaluation.EvaluatorID
		evaluatedAt := evaluation.EvaluatedAt.UTC()
		notes := evaluation.Notes
		row.TechnicalScore = &technical
		row.FinancialScore = &financial
		row.TimelineScore = &timeline
		row.OverallScore = &overall
		row.EvaluatorID = &evaluator
		row.EvaluatedAt = &evaluatedAt
		row.EvaluationNotes = &notes
	}
	return row
}

// proposalChangeColumns maps the groups set on change to their columns.
// updated_at is always written.
func proposalChangeColumns(change ports.ProposalChange) map[string]any {
	columns := map[string]any{
		"updated_at": change.UpdatedAt.UTC(),
	}
	if change.Status != nil {
		columns["status"] = string(*change.Status)
	}
	if change.SubmittedAt != nil {
		columns["submitted_at"] = change.SubmittedAt.UTC()
	}
	if rejection := change.Rejection; rejection != nil {
		columns["rejection_reason"] = rejection.Reason
		columns["rejected_by"] = rejection.By
	}
	if content := change.Content; content != nil {
		amenities := content.Amenities
		if amenities == nil {
			amenities = []string{}
		}
		encoded, _ := json.Marshal(amenities)
		columns["corpus_fund"] = content.Terms.CorpusFund
		columns["monthly_rent"] = content.Terms.MonthlyRent
		columns["fsi"] = content.Terms.FSI
		columns["additional_area_pct"] = content.Terms.AdditionalAreaPct
		columns["completion_months"] = content.Terms.CompletionMonths
		columns["bank_guarantee_value"] = content.Terms.BankGuaranteeValue
		columns["amenities"] = encoded
		columns["summary"] = content.Summary
	}
	if evaluation := change.Evaluation; evaluation != nil {
		columns["technical_score"] = evaluation.TechnicalScore
		columns["financial_score"] = evaluation.FinancialScore
		columns["timeline_score"] = evaluation.TimelineScore
		columns["overall_score"] = evaluation.OverallScore
		columns["evaluator_id"] = evaluation.EvaluatorID
		columns["evaluated_at"] = evaluation.EvaluatedAt.UTC()
		columns["evaluation_notes"] = evaluation.Notes
	}
	return columns
}

func (m proposalModel) toEntity() entities.DeveloperProposal {
	var amenities []string
	if len(m.Amenities) > 0 {
		_ = json.Unmarshal(m.Amenities, &amenities)
	}
	proposal := entities.DeveloperProposal{
		ProposalID:  m.ProposalID,
		ProjectID:   m.ProjectID,
		DeveloperID: m.DeveloperID,
		Status:      entities.ProposalStatus(m.Status),
		Terms: entities.FinancialTerms{
			CorpusFund:         m.CorpusFund,
			MonthlyRent:        m.MonthlyRent,
			FSI:                m.FSI,
			AdditionalAreaPct:  m.AdditionalAreaPct,
			CompletionMonths:   m.CompletionMonths,
			BankGuaranteeValue: m.BankGuaranteeValue,
		},
		Amenities:       amenities,
		Summary:         m.Summary,
		RejectionReason: m.RejectionReason,
		RejectedBy:      m.RejectedBy,
		SubmittedAt:     utcPtr(m.SubmittedAt),
		CreatedAt:       m.CreatedAt.UTC(),
		UpdatedAt:       m.UpdatedAt.UTC(),
	}
	if m.OverallScore != nil {
		evaluation := &entities.Evaluation{
			TechnicalScore: derefFloat(m.TechnicalScore),
			FinancialScore: derefFloat(m.FinancialScore),
			TimelineScore:  derefFloat(m.TimelineScore),
			OverallScore:   *m.OverallScore,
			EvaluatorID:    derefString(m.EvaluatorID),
			Notes:          derefString(m.EvaluationNotes),
		}
		if m.EvaluatedAt != nil {
			evaluation.EvaluatedAt = m.EvaluatedAt.UTC()
		}
		proposal.Evaluation = evaluation
	}
	return proposal
}

type ballotModel struct {
	BallotID      string     `gorm:"column:ballot_id;primaryKey"`
	ProjectID     string     `gorm:"column:project_id"`
	MemberID      string     `gorm:"column:member_id"`
	ProposalID    string     `gorm:"column:proposal_id"`
	VotingSession string     `gorm:"column:voting_session"`
	Vote          *bool      `gorm:"column:vote"`
	Comments      string     `gorm:"column:comments"`
	IPAddress     string     `gorm:"column:ip_address"`
	UserAgent     string     `gorm:"column:user_agent"`
	IsVerified    bool       `gorm:"column:is_verified"`
	VerifiedBy    string     `gorm:"column:verified_by"`
	VerifiedAt    *time.Time `gorm:"column:verified_at"`
	CastAt        time.Time  `gorm:"column:cast_at"`
}

func (ballotModel) TableName() string {
	return "member_ballots"
}

func ballotModelFromEntity(ballot entities.Ballot) ballotModel {
	key := ballot.Key()
	row := ballotModel{
		BallotID:      strings.TrimSpace(ballot.BallotID),
		ProjectID:     strings.TrimSpace(ballot.ProjectID),
		MemberID:      strings.TrimSpace(ballot.MemberID),
		ProposalID:    key.ProposalID,
		VotingSession: key.VotingSession,
		Vote:          ballot.Value,
		Comments:      ballot.Comments,
		IPAddress:     ballot.IPAddress,
		UserAgent:     ballot.UserAgent,
		IsVerified:    ballot.IsVerified,
		VerifiedBy:    ballot.VerifiedBy,
		VerifiedAt:    utcPtr(ballot.VerifiedAt),
		CastAt:        ballot.CastAt.UTC(),
	}
	if row.CastAt.IsZero() {
		row.CastAt = time.Now().UTC()
	}
	return row
}

func (m ballotModel) toEntity() entities.Ballot {
	return entities.Ballot{
		BallotID:      m.BallotID,
		ProjectID:     m.ProjectID,
		MemberID:      m.MemberID,
		ProposalID:    m.ProposalID,
		VotingSession: m.VotingSession,
		Value:         m.Vote,
		Comments:      m.Comments,
		IPAddress:     m.IPAddress,
		UserAgent:     m.UserAgent,
		IsVerified:    m.IsVerified,
		VerifiedBy:    m.VerifiedBy,
		VerifiedAt:    utcPtr(m.VerifiedAt),
		CastAt:        m.CastAt.UTC(),
	}
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "governance_outbox"
}

type eventDedupModel struct {
	EventID     string    `gorm:"column:event_id;primaryKey"`
	PayloadHash string    `gorm:"column:payload_hash"`
	ProcessedAt time.Time `gorm:"column:processed_at"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
}

func (eventDedupModel) TableName() string {
	return "governance_event_dedup"
}

func utcPtr(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	converted := value.UTC()
	return &converted
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func derefFloat(value *float64) float64 {
	if value == nil {
		return 0
	}
	return *value
}
