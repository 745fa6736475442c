package workers

import (
	"context"
	"log/slog"
	"time"

	application "societyhub/contexts/society-redevelopment/governance-service/application"
	"societyhub/contexts/society-redevelopment/governance-service/application/queries"
	"societyhub/contexts/society-redevelopment/governance-service/domain/entities"
	"societyhub/contexts/society-redevelopment/governance-service/ports"
)

// VotingCloser announces projects whose voting deadline has passed. It does
// not change project status; selection remains an owner action. Each project
// deadline produces at most one project.voting_closed notification: the event
// reservation guards concurrent closers and the project's VotingClosedAt mark
// drops it from later scans.
type VotingCloser struct {
	Projects      ports.ProjectRepository
	Statistics    queries.StatisticsUseCase
	Dedup         ports.EventDedupStore
	Notifications ports.NotificationDispatcher
	Clock         ports.Clock
	BatchSize     int
	DedupTTL      time.Duration
	Logger        *slog.Logger
}

func (w VotingCloser) RunOnce(ctx context.Context) (int, error) {
	logger := application.ResolveLogger(w.Logger)
	now := time.Now().UTC()
	if w.Clock != nil {
		now = w.Clock.Now().UTC()
	}
	limit := w.BatchSize
	if limit <= 0 {
		limit = 100
	}
	ttl := w.DedupTTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}

	projects, err := w.Projects.ListProjectsPastDeadline(ctx, now, limit)
	if err != nil {
		logger.Error("voting closer project scan failed",
			"event", "governance_voting_closer_scan_failed",
			"module", moduleName,
			"layer", "worker",
			"error", err.Error(),
		)
		return 0, err
	}

	announced := 0
	for _, project := range projects {
		if project.VotingDeadline == nil {
			continue
		}
		ok, err := w.announce(ctx, project, now, ttl)
		if err != nil {
			return announced, err
		}
		if ok {
			announced++
		}
	}
	if announced > 0 {
		logger.Info("voting closer cycle completed",
			"event", "governance_voting_closer_completed",
			"module", moduleName,
			"layer", "worker",
			"announced_count", announced,
		)
	}
	return announced, nil
}

func (w VotingCloser) announce(ctx context.Context, project entities.RedevelopmentProject, now time.Time, ttl time.Duration) (bool, error) {
	logger := application.ResolveLogger(w.Logger)
	deadline := project.VotingDeadline.UTC()
	eventID := "voting_closed:" + project.ProjectID + ":" + deadline.Format(time.RFC3339Nano)

	stats, err := w.Statistics.ProjectStatistics(ctx, project.ProjectID, entities.StatisticsFilter{})
	if err != nil {
		logger.Error("voting closer statistics read failed",
			"event", "governance_voting_closer_statistics_failed",
			"module", moduleName,
			"layer", "worker",
			"project_id", project.ProjectID,
			"error", err.Error(),
		)
		return false, err
	}
	data := map[string]any{
		"project_id":          project.ProjectID,
		"voting_deadline":     deadline.Format(time.RFC3339Nano),
		"yes_count":           stats.YesCount,
		"no_count":            stats.NoCount,
		"abstain_count":       stats.AbstainCount,
		"approval_percentage": stats.ApprovalPercentage,
		"participation_rate":  stats.ParticipationRate,
		"is_approved":         stats.IsApproved,
	}
	envelope, err := newWorkerEnvelope(eventID, eventProjectVotingClosed, project.ProjectID, project.OwnerID, now, data)
	if err != nil {
		return false, err
	}

	alreadyReserved, err := w.Dedup.ReserveEvent(ctx, eventID, hashPayload([]byte(eventID)), now.Add(ttl))
	if err != nil {
		logger.Error("voting closer dedup reserve failed",
			"event", "governance_voting_closer_dedup_failed",
			"module", moduleName,
			"layer", "worker",
			"project_id", project.ProjectID,
			"error", err.Error(),
		)
		return false, err
	}
	if alreadyReserved {
		// Queued by an earlier cycle that stopped before marking the project.
		return false, w.markClosed(ctx, project.ProjectID, deadline, now)
	}

	if err := w.Notifications.Enqueue(ctx, envelope); err != nil {
		logger.Warn("voting closed notification dispatch failed",
			"event", "governance_voting_closed_dispatch_failed",
			"module", moduleName,
			"layer", "worker",
			"project_id", project.ProjectID,
			"error", err.Error(),
		)
		if releaseErr := w.Dedup.ReleaseEvent(ctx, eventID); releaseErr != nil {
			return false, releaseErr
		}
		return false, nil
	}
	if err := w.markClosed(ctx, project.ProjectID, deadline, now); err != nil {
		return true, err
	}
	logger.Info("voting closed announced",
		"event", "governance_voting_closed_announced",
		"module", moduleName,
		"layer", "worker",
		"project_id", project.ProjectID,
		"approval_percentage", stats.ApprovalPercentage,
	)
	return true, nil
}

func (w VotingCloser) markClosed(ctx context.Context, projectID string, deadline time.Time, now time.Time) error {
	if err := w.Projects.MarkVotingClosed(ctx, projectID, deadline, now); err != nil {
		application.ResolveLogger(w.Logger).Error("voting closer mark failed",
			"event", "governance_voting_closer_mark_failed",
			"module", moduleName,
			"layer", "worker",
			"project_id", projectID,
			"error", err.Error(),
		)
		return err
	}
	return nil
}
