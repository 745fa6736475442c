package postgresadapter

import "context"

// schemaStatements create the governance tables. Every statement is
// idempotent so Migrate can run on each deploy. Proposals and ballots cascade
// with their project; the ballot key is enforced by a unique index that the
// ledger's ON CONFLICT insert relies on.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS redevelopment_projects (
    project_id TEXT PRIMARY KEY,
    society_id TEXT NOT NULL,
    owner_id TEXT NOT NULL,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL CHECK (status IN ('planning', 'tender_open', 'proposals_received', 'voting',
        'developer_selected', 'construction', 'completed', 'cancelled')),
    voting_deadline TIMESTAMPTZ,
    minimum_approval_percentage INTEGER NOT NULL DEFAULT 75
        CHECK (minimum_approval_percentage BETWEEN 50 AND 100),
    selected_proposal_id TEXT,
    selected_developer_id TEXT,
    proposals_received_at TIMESTAMPTZ,
    selected_at TIMESTAMPTZ,
    cancellation_reason TEXT NOT NULL DEFAULT '',
    voting_closed_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
)`,
	`ALTER TABLE redevelopment_projects ADD COLUMN IF NOT EXISTS voting_closed_at TIMESTAMPTZ`,
	`CREATE INDEX IF NOT EXISTS idx_redevelopment_projects_status_deadline
    ON redevelopment_projects (status, voting_deadline)`,
	`CREATE TABLE IF NOT EXISTS developer_proposals (
    proposal_id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL REFERENCES redevelopment_projects(project_id) ON DELETE CASCADE,
    developer_id TEXT NOT NULL,
    status TEXT NOT NULL,
    corpus_fund DOUBLE PRECISION NOT NULL DEFAULT 0,
    monthly_rent DOUBLE PRECISION NOT NULL DEFAULT 0,
    fsi DOUBLE PRECISION NOT NULL DEFAULT 0,
    additional_area_pct DOUBLE PRECISION NOT NULL DEFAULT 0,
    completion_months INTEGER NOT NULL DEFAULT 0,
    bank_guarantee_value DOUBLE PRECISION NOT NULL DEFAULT 0,
    amenities JSONB NOT NULL DEFAULT '[]',
    summary TEXT NOT NULL DEFAULT '',
    technical_score DOUBLE PRECISION,
    financial_score DOUBLE PRECISION,
    timeline_score DOUBLE PRECISION,
    overall_score DOUBLE PRECISION,
    evaluator_id TEXT,
    evaluated_at TIMESTAMPTZ,
    evaluation_notes TEXT,
    rejection_reason TEXT NOT NULL DEFAULT '',
    rejected_by TEXT NOT NULL DEFAULT '',
    submitted_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_developer_proposals_active
    ON developer_proposals (project_id, developer_id) WHERE status <> 'withdrawn'`,
	`CREATE TABLE IF NOT EXISTS member_ballots (
    ballot_id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL REFERENCES redevelopment_projects(project_id) ON DELETE CASCADE,
    member_id TEXT NOT NULL,
    proposal_id TEXT NOT NULL DEFAULT '',
    voting_session TEXT NOT NULL,
    vote BOOLEAN,
    comments TEXT NOT NULL DEFAULT '',
    ip_address TEXT NOT NULL DEFAULT '',
    user_agent TEXT NOT NULL DEFAULT '',
    is_verified BOOLEAN NOT NULL DEFAULT FALSE,
    verified_by TEXT NOT NULL DEFAULT '',
    verified_at TIMESTAMPTZ,
    cast_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_member_ballots_key
    ON member_ballots (project_id, member_id, proposal_id, voting_session)`,
	`CREATE TABLE IF NOT EXISTS governance_outbox (
    outbox_id TEXT PRIMARY KEY,
    event_type TEXT NOT NULL,
    partition_key TEXT NOT NULL DEFAULT '',
    payload JSONB NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending',
    created_at TIMESTAMPTZ NOT NULL,
    published_at TIMESTAMPTZ
)`,
	`CREATE INDEX IF NOT EXISTS idx_governance_outbox_pending
    ON governance_outbox (status, created_at)`,
	`CREATE TABLE IF NOT EXISTS governance_event_dedup (
    event_id TEXT PRIMARY KEY,
    payload_hash TEXT NOT NULL,
    processed_at TIMESTAMPTZ NOT NULL,
    expires_at TIMESTAMPTZ NOT NULL
)`,
}

// Migrate applies the governance schema.
func (r *Repository) Migrate(ctx context.Context) error {
	for _, statement := range schemaStatements {
		if err := r.db.WithContext(ctx).Exec(statement).Error; err != nil {
			return r.logError("governance_repo_migrate_failed", err)
		}
	}
	r.logger.Info("governance schema applied",
		"event", "governance_repo_migrated",
		"module", moduleName,
		"layer", "adapter",
		"statements", len(schemaStatements),
	)
	return nil
}
