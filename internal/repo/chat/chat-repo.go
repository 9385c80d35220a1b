package chat_repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/entity"
	app_error "github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/errors"
	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/state"
)

type ChatRepo struct {
	AppState *state.AppState
}

func NewChatRepo(appState *state.AppState) ChatRepoContract {
	return &ChatRepo{
		AppState: appState,
	}
}

// IsDuplicate reports whether a write failed on a unique constraint, which
// happens when two processes race on the same room key.
func IsDuplicate(appErr *app_error.AppError) bool {
	if appErr == nil {
		return false
	}
	msg := strings.ToLower(appErr.Message)
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique")
}

func (r *ChatRepo) FindConversationByID(ctx context.Context, id uuid.UUID) (*entity.Conversation, *app_error.AppError) {
	var conv entity.Conversation
	err := r.AppState.DB.WithContext(ctx).
		Preload("Members").
		Preload("Members.User").
		Preload("Course").
		Where("id = ?", id).
		First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, app_error.NotFound("conversation not found", "not-found")
		}
		log.Error().Err(err).Msg("failed to fetch conversation")
		return nil, app_error.Internal("failed to fetch conversation", "db-error")
	}
	return &conv, nil
}

func (r *ChatRepo) FindConversationByRoomID(ctx context.Context, roomID string) (*entity.Conversation, *app_error.AppError) {
	var conv entity.Conversation
	err := r.AppState.DB.WithContext(ctx).
		Preload("Members").
		Preload("Course").
		Where("room_id = ?", roomID).
		First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, app_error.NotFound("conversation not found", "not-found")
		}
		return nil, app_error.Internal("failed to fetch conversation", "db-error")
	}
	return &conv, nil
}

func (r *ChatRepo) FindSelfConversation(ctx context.Context, userID uuid.UUID) (*entity.Conversation, *app_error.AppError) {
	var conv entity.Conversation
	err := r.AppState.DB.WithContext(ctx).
		Joins("JOIN members ON members.conversation_id = conversations.id").
		Where("conversations.type = ? AND members.user_id = ? AND members.deleted_at IS NULL",
			entity.ConversationSelfArchive, userID).
		Preload("Members").
		First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, app_error.NotFound("self conversation not found", "not-found")
		}
		return nil, app_error.Internal("failed to query self conversation", "db-error")
	}
	return &conv, nil
}

func (r *ChatRepo) FindGroupConversationsOf(ctx context.Context, userID uuid.UUID) ([]*entity.Conversation, *app_error.AppError) {
	var convs []*entity.Conversation
	err := r.AppState.DB.WithContext(ctx).
		Joins("JOIN members ON members.conversation_id = conversations.id").
		Where("conversations.type = ? AND members.user_id = ? AND members.status = ? AND members.deleted_at IS NULL",
			entity.ConversationGroup, userID, entity.MemberStatusActive).
		Preload("Members").
		Find(&convs).Error
	if err != nil {
		return nil, app_error.Internal("failed to query group conversations", "db-error")
	}
	return convs, nil
}

func (r *ChatRepo) CreateConversation(ctx context.Context, conv *entity.Conversation) *app_error.AppError {
	tx := r.AppState.DB.WithContext(ctx).Begin()
	defer func() {
		if rec := recover(); rec != nil {
			tx.Rollback()
		}
	}()

	members := conv.Members
	conv.Members = nil

	if err := tx.Create(conv).Error; err != nil {
		tx.Rollback()
		return app_error.Internal("failed to create conversation: "+err.Error(), "db-error")
	}

	for i := range members {
		members[i].ConversationID = conv.ID
	}
	if len(members) > 0 {
		if err := tx.Create(&members).Error; err != nil {
			tx.Rollback()
			return app_error.Internal("failed to add conversation members: "+err.Error(), "db-error")
		}
	}

	if err := tx.Commit().Error; err != nil {
		return app_error.Internal("failed to commit conversation creation", "db-error")
	}

	conv.Members = members
	return nil
}

func (r *ChatRepo) SaveConversation(ctx context.Context, conv *entity.Conversation) *app_error.AppError {
	if err := r.AppState.DB.WithContext(ctx).Omit("Members", "Messages", "Course").Save(conv).Error; err != nil {
		return app_error.Internal("failed to save conversation", "db-error")
	}
	return nil
}

func (r *ChatRepo) ActiveConversationsFor(ctx context.Context, userID uuid.UUID) ([]*entity.Conversation, *app_error.AppError) {
	var convs []*entity.Conversation
	err := r.AppState.DB.WithContext(ctx).
		Joins("JOIN members ON members.conversation_id = conversations.id").
		Where("members.user_id = ? AND members.status = ? AND members.deleted_at IS NULL",
			userID, entity.MemberStatusActive).
		Preload("Members").
		Preload("Members.User").
		Preload("Course").
		Find(&convs).Error
	if err != nil {
		return nil, app_error.Internal("failed to query conversations", "db-error")
	}
	return convs, nil
}

func (r *ChatRepo) FindMember(ctx context.Context, convID, userID uuid.UUID) (*entity.Member, *app_error.AppError) {
	var m entity.Member
	err := r.AppState.DB.WithContext(ctx).
		Where("conversation_id = ? AND user_id = ?", convID, userID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, app_error.NotFound("member not found", "not-found")
		}
		return nil, app_error.Internal("failed to fetch member", "db-error")
	}
	return &m, nil
}

func (r *ChatRepo) FindActiveMembers(ctx context.Context, convID uuid.UUID) ([]*entity.Member, *app_error.AppError) {
	var members []*entity.Member
	err := r.AppState.DB.WithContext(ctx).
		Where("conversation_id = ? AND status = ?", convID, entity.MemberStatusActive).
		Preload("User").
		Find(&members).Error
	if err != nil {
		return nil, app_error.Internal("failed to fetch conversation members", "db-error")
	}
	return members, nil
}

func (r *ChatRepo) CreateMember(ctx context.Context, m *entity.Member) *app_error.AppError {
	if err := r.AppState.DB.WithContext(ctx).Create(m).Error; err != nil {
		return app_error.Internal("failed to create member: "+err.Error(), "db-error")
	}
	return nil
}

func (r *ChatRepo) SaveMember(ctx context.Context, m *entity.Member) *app_error.AppError {
	if err := r.AppState.DB.WithContext(ctx).Omit("User").Save(m).Error; err != nil {
		return app_error.Internal("failed to save member", "db-error")
	}
	return nil
}

func (r *ChatRepo) CreateMessage(ctx context.Context, msg *entity.Message) *app_error.AppError {
	if err := r.AppState.DB.WithContext(ctx).Omit("Attachments", "ReadMarks", "Member", "TargetMessage").Create(msg).Error; err != nil {
		return app_error.Internal("failed to create message", "db-error")
	}
	return nil
}

func (r *ChatRepo) FindMessageByID(ctx context.Context, id uuid.UUID) (*entity.Message, *app_error.AppError) {
	var msg entity.Message
	err := r.AppState.DB.WithContext(ctx).Where("id = ?", id).First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, app_error.NotFound("message not found or has been deleted", "not-found")
		}
		return nil, app_error.Internal("failed to fetch message", "db-error")
	}
	return &msg, nil
}

func (r *ChatRepo) HydrateMessage(ctx context.Context, id uuid.UUID) (*entity.Message, *app_error.AppError) {
	var msg entity.Message
	err := r.AppState.DB.WithContext(ctx).
		Preload("Member").
		Preload("Member.User").
		Preload("Attachments").
		Preload("ReadMarks").
		Preload("TargetMessage").
		Preload("TargetMessage.Member.User").
		Where("id = ?", id).
		First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, app_error.NotFound("message not found or has been deleted", "not-found")
		}
		return nil, app_error.Internal("failed to hydrate message", "db-error")
	}
	return &msg, nil
}

func (r *ChatRepo) GetMessages(ctx context.Context, convID uuid.UUID, limit, offset int) ([]*entity.Message, int64, *app_error.AppError) {
	db := r.AppState.DB.WithContext(ctx)

	var total int64
	if err := db.Model(&entity.Message{}).Where("conversation_id = ?", convID).Count(&total).Error; err != nil {
		return nil, 0, app_error.Internal("failed to count messages", "db-error")
	}

	var messages []*entity.Message
	err := db.Where("conversation_id = ?", convID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Preload("Member.User").
		Preload("Attachments").
		Preload("ReadMarks").
		Preload("TargetMessage").
		Find(&messages).Error
	if err != nil {
		return nil, 0, app_error.Internal("failed to fetch messages", "db-error")
	}

	// reverse to ascending order (oldest to newest)
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, total, nil
}

func (r *ChatRepo) LastMessage(ctx context.Context, convID uuid.UUID) (*entity.Message, *app_error.AppError) {
	var msg entity.Message
	err := r.AppState.DB.WithContext(ctx).
		Where("conversation_id = ?", convID).
		Order("created_at DESC").
		Preload("Member.User").
		Preload("Attachments").
		Preload("ReadMarks").
		First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, app_error.Internal("failed to fetch last message", "db-error")
	}
	return &msg, nil
}

func (r *ChatRepo) FindAttachment(ctx context.Context, id uuid.UUID) (*entity.Attachment, *app_error.AppError) {
	var att entity.Attachment
	err := r.AppState.DB.WithContext(ctx).Where("id = ?", id).First(&att).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, app_error.NotFound("attachment not found", "not-found")
		}
		return nil, app_error.Internal("failed to fetch attachment", "db-error")
	}
	return &att, nil
}

func (r *ChatRepo) LinkAttachment(ctx context.Context, id, convID, msgID uuid.UUID) *app_error.AppError {
	err := r.AppState.DB.WithContext(ctx).
		Model(&entity.Attachment{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"conversation_id": convID,
			"message_id":      msgID,
		}).Error
	if err != nil {
		return app_error.Internal("failed to link attachment", "db-error")
	}
	return nil
}

func (r *ChatRepo) CreateReadMarks(ctx context.Context, marks []*entity.ReadMark) *app_error.AppError {
	if len(marks) == 0 {
		return nil
	}
	if err := r.AppState.DB.WithContext(ctx).Create(&marks).Error; err != nil {
		return app_error.Internal("failed to create read marks", "db-error")
	}
	return nil
}

func (r *ChatRepo) MarkRead(ctx context.Context, convID, memberID uuid.UUID) (int64, *app_error.AppError) {
	now := time.Now()
	res := r.AppState.DB.WithContext(ctx).
		Model(&entity.ReadMark{}).
		Where("conversation_id = ? AND member_id = ? AND read = ?", convID, memberID, false).
		Updates(map[string]any{
			"read":       true,
			"read_at":    &now,
			"force_read": true,
		})
	if res.Error != nil {
		return 0, app_error.Internal("failed to mark messages read", "db-error")
	}
	return res.RowsAffected, nil
}

func (r *ChatRepo) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, *app_error.AppError) {
	now := time.Now()
	res := r.AppState.DB.WithContext(ctx).
		Model(&entity.ReadMark{}).
		Where("read = ? AND member_id IN (?)", false,
			r.AppState.DB.Model(&entity.Member{}).Select("id").Where("user_id = ?", userID)).
		Updates(map[string]any{
			"read":       true,
			"read_at":    &now,
			"force_read": true,
		})
	if res.Error != nil {
		return 0, app_error.Internal("failed to mark all messages read", "db-error")
	}
	return res.RowsAffected, nil
}

func (r *ChatRepo) UnreadCount(ctx context.Context, convID, userID uuid.UUID) (int64, *app_error.AppError) {
	var count int64
	err := r.AppState.DB.WithContext(ctx).
		Model(&entity.ReadMark{}).
		Joins("JOIN members ON members.id = read_marks.member_id").
		Where("read_marks.conversation_id = ? AND members.user_id = ? AND read_marks.read = ?",
			convID, userID, false).
		Count(&count).Error
	if err != nil {
		return 0, app_error.Internal("failed to count unread messages", "db-error")
	}
	return count, nil
}

func (r *ChatRepo) SeenByAll(ctx context.Context, messageID uuid.UUID) (bool, *app_error.AppError) {
	var unread int64
	err := r.AppState.DB.WithContext(ctx).
		Model(&entity.ReadMark{}).
		Where("message_id = ? AND read = ?", messageID, false).
		Count(&unread).Error
	if err != nil {
		return false, app_error.Internal("failed to check read marks", "db-error")
	}
	return unread == 0, nil
}
