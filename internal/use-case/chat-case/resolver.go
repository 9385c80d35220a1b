package chat_service

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/entity"
	app_error "github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/errors"
	chat_repo "github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/repo/chat"
)

// DirectRoomID is the canonical room key for a direct conversation: a sorted
// pair, so both request orders resolve to the same key.
func DirectRoomID(a, b uuid.UUID) string {
	lo, hi := a.String(), b.String()
	if hi < lo {
		lo, hi = hi, lo
	}
	return fmt.Sprintf("dm_%s_%s", lo, hi)
}

func SelfRoomID(userID uuid.UUID) string {
	return fmt.Sprintf("self_%s", userID)
}

func GroupRoomID() string {
	return fmt.Sprintf("group_%s", uuid.New())
}

// Resolve maps a requested participant set to exactly one conversation,
// creating it when necessary. The requester is always part of the set; the
// set is deduplicated with the requester in the canonical first position.
func (c *ChatService) Resolve(ctx context.Context, requesterID uuid.UUID, userIDs []uuid.UUID) (*entity.Conversation, *app_error.AppError) {
	participants := canonicalParticipants(requesterID, userIDs)
	if len(participants) == 0 {
		return nil, app_error.InvalidRequest("participant set must not be empty", "user_ids")
	}

	switch len(participants) {
	case 1:
		return c.resolveSelf(ctx, requesterID)
	case 2:
		return c.resolveDirect(ctx, participants[0], participants[1])
	default:
		return c.resolveGroup(ctx, requesterID, participants)
	}
}

func canonicalParticipants(requesterID uuid.UUID, userIDs []uuid.UUID) []uuid.UUID {
	seen := map[uuid.UUID]struct{}{requesterID: {}}
	out := []uuid.UUID{requesterID}
	for _, id := range userIDs {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// resolveSelf returns the user's archive conversation; at most one ever
// exists per user.
func (c *ChatService) resolveSelf(ctx context.Context, userID uuid.UUID) (*entity.Conversation, *app_error.AppError) {
	conv, err := c.ChatRepo.FindSelfConversation(ctx, userID)
	if err == nil {
		return conv, nil
	}
	if err.Code != 404 {
		return nil, err
	}

	conv = &entity.Conversation{
		ID:     uuid.New(),
		RoomID: SelfRoomID(userID),
		Type:   entity.ConversationSelfArchive,
		Members: []entity.Member{
			{
				ID:     uuid.New(),
				UserID: userID,
				Role:   entity.MemberRoleAdmin,
				Status: entity.MemberStatusActive,
			},
		},
	}
	return c.createConversation(ctx, conv)
}

func (c *ChatService) resolveDirect(ctx context.Context, a, b uuid.UUID) (*entity.Conversation, *app_error.AppError) {
	roomID := DirectRoomID(a, b)

	conv, err := c.ChatRepo.FindConversationByRoomID(ctx, roomID)
	if err == nil {
		return conv, nil
	}
	if err.Code != 404 {
		return nil, err
	}

	conv = &entity.Conversation{
		ID:     uuid.New(),
		RoomID: roomID,
		Type:   entity.ConversationDirect,
		Members: []entity.Member{
			{ID: uuid.New(), UserID: a, Role: entity.MemberRoleAdmin, Status: entity.MemberStatusActive},
			{ID: uuid.New(), UserID: b, Role: entity.MemberRoleAdmin, Status: entity.MemberStatusActive},
		},
	}
	return c.createConversation(ctx, conv)
}

// resolveGroup reuses an existing group whose active-member set is set-equal
// to the requested participants; any difference creates a new group.
func (c *ChatService) resolveGroup(ctx context.Context, requesterID uuid.UUID, participants []uuid.UUID) (*entity.Conversation, *app_error.AppError) {
	candidates, err := c.ChatRepo.FindGroupConversationsOf(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	wanted := memberSetKey(participants)
	for _, candidate := range candidates {
		var activeIDs []uuid.UUID
		for _, m := range candidate.Members {
			if m.Status == entity.MemberStatusActive {
				activeIDs = append(activeIDs, m.UserID)
			}
		}
		if memberSetKey(activeIDs) == wanted {
			return candidate, nil
		}
	}

	members := make([]entity.Member, 0, len(participants))
	for _, userID := range participants {
		role := entity.MemberRoleRegular
		if userID == requesterID {
			role = entity.MemberRoleAdmin
		}
		members = append(members, entity.Member{
			ID:     uuid.New(),
			UserID: userID,
			Role:   role,
			Status: entity.MemberStatusActive,
		})
	}

	conv := &entity.Conversation{
		ID:      uuid.New(),
		RoomID:  GroupRoomID(),
		Type:    entity.ConversationGroup,
		Members: members,
	}
	return c.createConversation(ctx, conv)
}

func memberSetKey(ids []uuid.UUID) string {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, id.String())
	}
	sort.Strings(keys)
	key := ""
	for _, k := range keys {
		key += k + "|"
	}
	return key
}

// createConversation persists a new conversation and pushes the updated chat
// list to every currently connected participant, not just the requester: the
// new conversation must appear for the counterparts too.
func (c *ChatService) createConversation(ctx context.Context, conv *entity.Conversation) (*entity.Conversation, *app_error.AppError) {
	if err := c.ChatRepo.CreateConversation(ctx, conv); err != nil {
		// two processes can race on the same room key; the loser reuses the
		// winner's row
		if chat_repo.IsDuplicate(err) {
			if existing, findErr := c.ChatRepo.FindConversationByRoomID(ctx, conv.RoomID); findErr == nil {
				return existing, nil
			}
		}
		return nil, err
	}

	c.enqueueFanout(ctx, conv.ID)
	return conv, nil
}
