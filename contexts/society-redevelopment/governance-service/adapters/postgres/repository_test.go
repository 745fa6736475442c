package postgresadapter

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"societyhub/contexts/society-redevelopment/governance-service/domain/entities"
	domainerrors "societyhub/contexts/society-redevelopment/governance-service/domain/errors"

	"societyhub/contexts/society-redevelopment/governance-service/ports"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("open sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open gorm: %v", err)
	}
	return NewRepository(db, nil), mock
}

func TestGetProjectMapsMissingRow(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "redevelopment_projects" WHERE project_id = $1`)).
		WithArgs("missing", 1).
		WillReturnRows(sqlmock.NewRows([]string{"project_id"}))

	_, err := repo.GetProject(context.Background(), " missing ")
	if !errors.Is(err, domainerrors.ErrProjectNotFound) {
		t.Fatalf("expected ErrProjectNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetProjectMapsRow(t *testing.T) {
	repo, mock := newMockRepository(t)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "redevelopment_projects"`)).
		WillReturnRows(sqlmock.NewRows([]string{
			"project_id", "society_id", "owner_id", "title", "status", "minimum_approval_percentage", "created_at", "updated_at",
		}).AddRow("project-1", "society-1", "owner-1", "Tower A", "voting", 80, now, now))

	project, err := repo.GetProject(context.Background(), "project-1")
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if project.Status != entities.ProjectStatusVoting || project.MinimumApprovalPercentage != 80 || project.HasSelection() {
		t.Fatalf("unexpected project: %+v", project)
	}
}

func TestCreateProjectMapsUniqueViolation(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "redevelopment_projects"`)).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.CreateProject(context.Background(), entities.RedevelopmentProject{
		ProjectID: "project-1", SocietyID: "society-1", OwnerID: "owner-1", Title: "Tower A",
		Status: entities.ProjectStatusPlanning, MinimumApprovalPercentage: 75,
	})
	if !errors.Is(err, domainerrors.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestMarkBallotVerifiedMissingBallot(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "member_ballots" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.MarkBallotVerified(context.Background(), "ballot-404", "owner-1", time.Now())
	if !errors.Is(err, domainerrors.ErrBallotNotFound) {
		t.Fatalf("expected ErrBallotNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMigrateRunsEveryStatement(t *testing.T) {
	repo, mock := newMockRepository(t)
	for range schemaStatements {
		mock.ExpectExec("^(CREATE|ALTER) ").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	if err := repo.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

var (
	projectColumns  = []string{"project_id", "society_id", "owner_id", "title", "status", "minimum_approval_percentage", "selected_proposal_id", "created_at", "updated_at"}
	proposalColumns = []string{"proposal_id", "project_id", "developer_id", "status", "amenities", "created_at", "updated_at"}
	ballotColumns   = []string{"ballot_id", "project_id", "member_id", "proposal_id", "voting_session", "vote", "cast_at"}
)

func expectStateConflict(t *testing.T, err error, reason string) *domainerrors.StateConflictError {
	t.Helper()
	var conflict *domainerrors.StateConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected StateConflictError, got %v", err)
	}
	if conflict.Reason != reason {
		t.Fatalf("expected reason %q, got %q", reason, conflict.Reason)
	}
	return conflict
}

func TestApplySelectionGuardMissReportsExistingSelection(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	cases := []struct {
		name       string
		status     string
		selectedID any
		reason     string
	}{
		{name: "already selected", status: "developer_selected", selectedID: "proposal-other", reason: domainerrors.ReasonAlreadySelected},
		{name: "voting not open", status: "proposals_received", selectedID: nil, reason: domainerrors.ReasonIllegalTransition},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo, mock := newMockRepository(t)
			mock.ExpectBegin()
			mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "developer_proposals" WHERE proposal_id = $1 AND project_id = $2`)).
				WillReturnRows(sqlmock.NewRows(proposalColumns).
					AddRow("proposal-1", "project-1", "developer-1", "submitted", []byte("[]"), now, now))
			mock.ExpectExec(regexp.QuoteMeta(`UPDATE "redevelopment_projects" SET`)).
				WillReturnResult(sqlmock.NewResult(0, 0))
			mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "redevelopment_projects" WHERE project_id = $1`)).
				WillReturnRows(sqlmock.NewRows(projectColumns).
					AddRow("project-1", "society-1", "owner-1", "Tower A", tc.status, 75, tc.selectedID, now, now))
			mock.ExpectRollback()

			_, err := repo.ApplySelection(context.Background(), ports.SelectionInput{
				ProjectID: "project-1", ProposalID: "proposal-1", OwnerID: "owner-1", SelectedAt: now,
			})
			conflict := expectStateConflict(t, err, tc.reason)
			if conflict.Current != tc.status {
				t.Fatalf("expected current status %q, got %q", tc.status, conflict.Current)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("unmet expectations: %v", err)
			}
		})
	}
}

func TestAppendBallotReturnsOccupyingBallotOnConflict(t *testing.T) {
	repo, mock := newMockRepository(t)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "member_ballots"`) + ".*" + regexp.QuoteMeta(`ON CONFLICT ("project_id","member_id","proposal_id","voting_session") DO NOTHING`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "member_ballots" WHERE project_id = $1 AND member_id = $2 AND proposal_id = $3 AND voting_session = $4`)).
		WillReturnRows(sqlmock.NewRows(ballotColumns).
			AddRow("ballot-first", "project-1", "member-1", "proposal-1", "session-1", true, now))

	no := false
	stored, inserted, err := repo.AppendBallot(context.Background(), entities.Ballot{
		BallotID: "ballot-second", ProjectID: "project-1", MemberID: "member-1",
		ProposalID: "proposal-1", VotingSession: "session-1", Value: &no, CastAt: now.Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("append ballot: %v", err)
	}
	if inserted {
		t.Fatalf("expected duplicate to report inserted=false")
	}
	if stored.BallotID != "ballot-first" || stored.Value == nil || !*stored.Value {
		t.Fatalf("expected the occupying ballot, got %+v", stored)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAppendBallotInsertsNewKey(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "member_ballots"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	yes := true
	stored, inserted, err := repo.AppendBallot(context.Background(), entities.Ballot{
		BallotID: "ballot-1", ProjectID: "project-1", MemberID: "member-1",
		ProposalID: "proposal-1", VotingSession: "session-1", Value: &yes, CastAt: time.Now(),
	})
	if err != nil || !inserted || stored.BallotID != "ballot-1" {
		t.Fatalf("expected inserted ballot-1, got %+v inserted=%v err=%v", stored, inserted, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInsertProposalReportsWhetherItFlippedTheProject(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	cases := []struct {
		name        string
		status      string
		flipped     int64
		wantApplied bool
		wantStatus  entities.ProjectStatus
	}{
		{name: "first proposal flips", status: "tender_open", flipped: 1, wantApplied: true, wantStatus: entities.ProjectStatusProposalsReceived},
		{name: "later proposal leaves status", status: "proposals_received", flipped: 0, wantApplied: false, wantStatus: entities.ProjectStatusProposalsReceived},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo, mock := newMockRepository(t)
			mock.ExpectBegin()
			mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "redevelopment_projects" WHERE project_id = $1`) + ".*FOR UPDATE").
				WillReturnRows(sqlmock.NewRows(projectColumns).
					AddRow("project-1", "society-1", "owner-1", "Tower A", tc.status, 75, nil, now, now))
			mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "developer_proposals"`)).
				WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
			mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "developer_proposals"`)).
				WillReturnResult(sqlmock.NewResult(0, 1))
			mock.ExpectExec(regexp.QuoteMeta(`UPDATE "redevelopment_projects" SET`)).
				WillReturnResult(sqlmock.NewResult(0, tc.flipped))
			mock.ExpectCommit()

			result, err := repo.InsertProposal(context.Background(), entities.DeveloperProposal{
				ProposalID: "proposal-1", ProjectID: "project-1", DeveloperID: "developer-1",
				Status: entities.ProposalStatusSubmitted, CreatedAt: now, UpdatedAt: now,
			}, now)
			if err != nil {
				t.Fatalf("insert proposal: %v", err)
			}
			if result.TransitionApplied != tc.wantApplied {
				t.Fatalf("expected TransitionApplied=%v, got %v", tc.wantApplied, result.TransitionApplied)
			}
			if result.Project.Status != tc.wantStatus {
				t.Fatalf("expected project status %s, got %s", tc.wantStatus, result.Project.Status)
			}
			if tc.wantApplied && result.Project.ProposalsReceivedAt == nil {
				t.Fatalf("expected proposals_received_at to be set")
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("unmet expectations: %v", err)
			}
		})
	}
}

func TestUpdateProposalZeroRowsIsStateConflict(t *testing.T) {
	repo, mock := newMockRepository(t)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "developer_proposals" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "developer_proposals" WHERE proposal_id = $1`)).
		WillReturnRows(sqlmock.NewRows(proposalColumns).
			AddRow("proposal-1", "project-1", "developer-1", "withdrawn", []byte("[]"), now, now))
	mock.ExpectRollback()

	withdrawn := entities.ProposalStatusWithdrawn
	_, err := repo.UpdateProposal(context.Background(), ports.ProposalChange{
		ProposalID:  "proposal-1",
		AllowedFrom: []entities.ProposalStatus{entities.ProposalStatusDraft},
		Action:      "submit proposal",
		Status:      &withdrawn,
		UpdatedAt:   now,
	})
	conflict := expectStateConflict(t, err, domainerrors.ReasonProposalStatus)
	if conflict.Current != "withdrawn" || conflict.Action != "submit proposal" {
		t.Fatalf("unexpected conflict: %+v", conflict)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateProposalMissingRowIsNotFound(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "developer_proposals" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "developer_proposals"`)).
		WillReturnRows(sqlmock.NewRows(proposalColumns))
	mock.ExpectRollback()

	_, err := repo.UpdateProposal(context.Background(), ports.ProposalChange{
		ProposalID:  "proposal-404",
		AllowedFrom: entities.SelectableStatuses(),
		UpdatedAt:   time.Now(),
	})
	if !errors.Is(err, domainerrors.ErrProposalNotFound) {
		t.Fatalf("expected ErrProposalNotFound, got %v", err)
	}
}

func TestProposalChangeColumnsWritesOnlySetGroups(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	evaluation := entities.Evaluation{TechnicalScore: 8, FinancialScore: 7, TimelineScore: 6, OverallScore: 7, EvaluatorID: "pmc-1", EvaluatedAt: now}
	columns := proposalChangeColumns(ports.ProposalChange{
		ProposalID: "proposal-1",
		Evaluation: &evaluation,
		UpdatedAt:  now,
	})
	for _, untouched := range []string{"status", "submitted_at", "rejection_reason", "rejected_by", "corpus_fund", "amenities", "summary"} {
		if _, ok := columns[untouched]; ok {
			t.Fatalf("evaluation change must not write %s", untouched)
		}
	}
	if columns["overall_score"] != 7.0 || columns["evaluator_id"] != "pmc-1" {
		t.Fatalf("unexpected evaluation columns: %+v", columns)
	}

	approved := entities.ProposalStatusApproved
	columns = proposalChangeColumns(ports.ProposalChange{ProposalID: "proposal-1", Status: &approved, UpdatedAt: now})
	if len(columns) != 2 || columns["status"] != "approved" {
		t.Fatalf("status change should write status and updated_at only, got %+v", columns)
	}
}

func TestReserveEventTakesOverExpiredRow(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "governance_event_dedup"`) + ".*" + regexp.QuoteMeta(`DO UPDATE SET`) + ".*" + regexp.QuoteMeta(`governance_event_dedup.expires_at <=`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	reserved, err := repo.ReserveEvent(context.Background(), "event-1", "hash-1", time.Now().Add(time.Hour))
	if err != nil || reserved {
		t.Fatalf("expected a fresh reservation, got reserved=%v err=%v", reserved, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestReserveEventLiveRowWithOtherPayloadConflicts(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "governance_event_dedup"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "payload_hash" FROM "governance_event_dedup"`)).
		WillReturnRows(sqlmock.NewRows([]string{"payload_hash"}).AddRow("hash-other"))

	_, err := repo.ReserveEvent(context.Background(), "event-1", "hash-1", time.Now().Add(time.Hour))
	if !errors.Is(err, domainerrors.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestListProjectsPastDeadlineSkipsAnnouncedProjects(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectQuery(regexp.QuoteMeta(`voting_closed_at IS NULL`)).
		WillReturnRows(sqlmock.NewRows(projectColumns))

	items, err := repo.ListProjectsPastDeadline(context.Background(), time.Now(), 10)
	if err != nil || len(items) != 0 {
		t.Fatalf("expected empty result, got %v err=%v", items, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
