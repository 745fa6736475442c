package entities

import (
	"math"
	"time"
)

type ProposalStatus string

const (
	ProposalStatusDraft       ProposalStatus = "draft"
	ProposalStatusSubmitted   ProposalStatus = "submitted"
	ProposalStatusUnderReview ProposalStatus = "under_review"
	ProposalStatusShortlisted ProposalStatus = "shortlisted"
	ProposalStatusApproved    ProposalStatus = "approved"
	ProposalStatusSelected    ProposalStatus = "selected"
	ProposalStatusRejected    ProposalStatus = "rejected"
	ProposalStatusWithdrawn   ProposalStatus = "withdrawn"
)

// CompetitorRejectionReason is recorded on every competing proposal closed out
// by a selection.
const CompetitorRejectionReason = "another proposal was selected for this project"

type FinancialTerms struct {
	CorpusFund         float64
	MonthlyRent        float64
	FSI                float64
	AdditionalAreaPct  float64
	CompletionMonths   int
	BankGuaranteeValue float64
}

type Evaluation struct {
	TechnicalScore float64
	FinancialScore float64
	TimelineScore  float64
	OverallScore   float64
	EvaluatorID    string
	EvaluatedAt    time.Time
	Notes          string
}

type DeveloperProposal struct {
	ProposalID      string
	ProjectID       string
	DeveloperID     string
	Status          ProposalStatus
	Terms           FinancialTerms
	Amenities       []string
	Summary         string
	Evaluation      *Evaluation
	RejectionReason string
	RejectedBy      string
	SubmittedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (s ProposalStatus) IsTerminal() bool {
	switch s {
	case ProposalStatusSelected, ProposalStatusRejected, ProposalStatusWithdrawn:
		return true
	default:
		return false
	}
}

// IsSelectable covers the statuses the owner may select from; the same set
// is closed out as competitors when another proposal wins.
func (s ProposalStatus) IsSelectable() bool {
	switch s {
	case ProposalStatusSubmitted,
		ProposalStatusUnderReview,
		ProposalStatusShortlisted,
		ProposalStatusApproved:
		return true
	default:
		return false
	}
}

// SelectableStatuses lists the IsSelectable set.
func SelectableStatuses() []ProposalStatus {
	return []ProposalStatus{
		ProposalStatusSubmitted,
		ProposalStatusUnderReview,
		ProposalStatusShortlisted,
		ProposalStatusApproved,
	}
}

func (s ProposalStatus) DeveloperEditable() bool {
	return s == ProposalStatusDraft || s == ProposalStatusSubmitted
}

// Reviewable covers statuses in which the owner may evaluate, approve or reject.
func (s ProposalStatus) Reviewable() bool {
	return s.IsSelectable()
}

func (t FinancialTerms) Valid() bool {
	for _, value := range []float64{t.CorpusFund, t.MonthlyRent, t.FSI, t.AdditionalAreaPct, t.BankGuaranteeValue} {
		if value < 0 || math.IsNaN(value) || math.IsInf(value, 0) {
			return false
		}
	}
	return t.CompletionMonths >= 0
}

// ScoreWeights combine the three evaluation dimensions into the overall score.
type ScoreWeights struct {
	Technical float64
	Financial float64
	Timeline  float64
}

func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{Technical: 0.4, Financial: 0.4, Timeline: 0.2}
}

func (w ScoreWeights) Valid() bool {
	if w.Technical < 0 || w.Financial < 0 || w.Timeline < 0 {
		return false
	}
	return math.Abs(w.Technical+w.Financial+w.Timeline-1) <= 0.001
}

func ValidScore(value float64) bool {
	return value >= 0 && value <= 100 && !math.IsNaN(value)
}

// OverallScore rounds to two decimals.
func (w ScoreWeights) OverallScore(technical float64, financial float64, timeline float64) float64 {
	if !w.Valid() {
		w = DefaultScoreWeights()
	}
	raw := technical*w.Technical + financial*w.Financial + timeline*w.Timeline
	return math.Round(raw*100) / 100
}
