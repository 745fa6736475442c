package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"societyhub/contexts/identity-access/membership-service/application/commands"
	"societyhub/contexts/identity-access/membership-service/application/queries"
	"societyhub/contexts/identity-access/membership-service/domain/entities"
	httptransport "societyhub/contexts/identity-access/membership-service/transport/http"
)

type Handler struct {
	Manage  commands.ManageMembershipUseCase
	Queries queries.MembershipQueries
	Logger  *slog.Logger
}

func (h Handler) EnrollMemberHandler(
	ctx context.Context,
	actorID string,
	actorRole string,
	societyID string,
	req httptransport.EnrollMemberRequest,
) (httptransport.MembershipResponse, error) {
	membership, err := h.Manage.Enroll(ctx, commands.EnrollMemberCommand{
		ActorID:   actorID,
		ActorRole: actorRole,
		SocietyID: societyID,
		UserID:    req.UserID,
	})
	if err != nil {
		return httptransport.MembershipResponse{}, err
	}
	return mapMembership(membership), nil
}

func (h Handler) RemoveMemberHandler(
	ctx context.Context,
	actorID string,
	actorRole string,
	societyID string,
	userID string,
) (httptransport.MembershipResponse, error) {
	membership, err := h.Manage.Remove(ctx, commands.RemoveMemberCommand{
		ActorID:   actorID,
		ActorRole: actorRole,
		SocietyID: societyID,
		UserID:    userID,
	})
	if err != nil {
		return httptransport.MembershipResponse{}, err
	}
	return mapMembership(membership), nil
}

func (h Handler) ListMembersHandler(ctx context.Context, societyID string) (httptransport.MemberListResponse, error) {
	items, err := h.Queries.ListActiveMembers(ctx, societyID)
	if err != nil {
		return httptransport.MemberListResponse{}, err
	}
	out := make([]httptransport.MembershipResponse, 0, len(items))
	for _, item := range items {
		out = append(out, mapMembership(item))
	}
	return httptransport.MemberListResponse{
		SocietyID: societyID,
		Total:     len(out),
		Items:     out,
	}, nil
}

func (h Handler) CheckMembershipHandler(ctx context.Context, societyID string, userID string) (httptransport.MembershipCheckResponse, error) {
	active, err := h.Queries.IsActiveMember(ctx, societyID, userID)
	if err != nil {
		return httptransport.MembershipCheckResponse{}, err
	}
	return httptransport.MembershipCheckResponse{
		SocietyID: societyID,
		UserID:    userID,
		Active:    active,
	}, nil
}

func mapMembership(membership entities.SocietyMembership) httptransport.MembershipResponse {
	out := httptransport.MembershipResponse{
		MembershipID: membership.MembershipID,
		SocietyID:    membership.SocietyID,
		UserID:       membership.UserID,
		Status:       string(membership.Status),
		JoinedAt:     membership.JoinedAt.UTC().Format(time.RFC3339Nano),
	}
	if membership.RemovedAt != nil {
		out.RemovedAt = membership.RemovedAt.UTC().Format(time.RFC3339Nano)
	}
	return out
}
