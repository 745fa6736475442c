package queries

import (
	"context"
	"sort"
	"strings"

	"societyhub/contexts/society-redevelopment/governance-service/domain/entities"
	domainerrors "societyhub/contexts/society-redevelopment/governance-service/domain/errors"
	"societyhub/contexts/society-redevelopment/governance-service/ports"
)

type ProjectQueries struct {
	Projects  ports.ProjectRepository
	Proposals ports.ProposalRepository
}

func (q ProjectQueries) GetProject(ctx context.Context, projectID string) (entities.RedevelopmentProject, error) {
	if strings.TrimSpace(projectID) == "" {
		return entities.RedevelopmentProject{}, domainerrors.ErrValidation
	}
	return q.Projects.GetProject(ctx, strings.TrimSpace(projectID))
}

// GetProposal hides drafts from everyone but their developer and the
// project owner.
func (q ProjectQueries) GetProposal(ctx context.Context, actor entities.Actor, proposalID string) (entities.DeveloperProposal, error) {
	if strings.TrimSpace(proposalID) == "" {
		return entities.DeveloperProposal{}, domainerrors.ErrValidation
	}
	proposal, err := q.Proposals.GetProposal(ctx, strings.TrimSpace(proposalID))
	if err != nil {
		return entities.DeveloperProposal{}, err
	}
	project, err := q.Projects.GetProject(ctx, proposal.ProjectID)
	if err != nil {
		return entities.DeveloperProposal{}, err
	}
	if !visibleTo(project, proposal, actor) {
		return entities.DeveloperProposal{}, domainerrors.ErrProposalNotFound
	}
	return proposal, nil
}

// ListProposals returns every proposal to the owner, a developer's own
// proposals to that developer, and non-draft proposals to anyone else.
func (q ProjectQueries) ListProposals(ctx context.Context, actor entities.Actor, projectID string) ([]entities.DeveloperProposal, error) {
	project, err := q.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	items, err := q.Proposals.ListProposalsByProject(ctx, project.ProjectID)
	if err != nil {
		return nil, err
	}
	out := make([]entities.DeveloperProposal, 0, len(items))
	for _, item := range items {
		if actor.Is(entities.RoleDeveloper) && !project.IsOwnedBy(actor.UserID) {
			if item.DeveloperID != strings.TrimSpace(actor.UserID) {
				continue
			}
		}
		if !visibleTo(project, item, actor) {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ProposalID < out[j].ProposalID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func visibleTo(project entities.RedevelopmentProject, proposal entities.DeveloperProposal, actor entities.Actor) bool {
	if proposal.Status != entities.ProposalStatusDraft {
		return true
	}
	return project.IsOwnedBy(actor.UserID) || proposal.DeveloperID == strings.TrimSpace(actor.UserID)
}
