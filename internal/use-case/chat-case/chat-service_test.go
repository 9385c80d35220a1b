package chat_service

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/config"
	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/dtos/chat_dto"
	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/entity"
	chat_repo "github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/repo/chat"
	ws "github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/websocket"
	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/state"
)

func newTestService(t *testing.T) *ChatService {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// a single connection keeps every query on the same in-memory database
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, state.Migrate(db))

	appState := &state.AppState{
		Ctx: context.Background(),
		DB:  db,
	}

	hub := ws.NewHub()
	t.Cleanup(hub.Close)

	return &ChatService{
		AppState: appState,
		ChatRepo: chat_repo.NewChatRepo(appState),
		Hub:      hub,
	}
}

func createUser(t *testing.T, svc *ChatService, name string) *entity.User {
	t.Helper()
	user := &entity.User{
		ID:           uuid.New(),
		Username:     name,
		Email:        fmt.Sprintf("%s@example.com", name),
		PasswordHash: "x",
		Roles:        []string{entity.RoleUser},
	}
	require.NoError(t, svc.AppState.DB.Create(user).Error)
	return user
}

func TestResolveDirect_CanonicalAcrossOrder(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	alice := createUser(t, svc, "alice")
	bob := createUser(t, svc, "bob")

	first, appErr := svc.Resolve(ctx, alice.ID, []uuid.UUID{bob.ID})
	require.Nil(t, appErr)
	require.Equal(t, entity.ConversationDirect, first.Type)
	assert.Equal(t, DirectRoomID(alice.ID, bob.ID), first.RoomID)
	assert.Equal(t, DirectRoomID(bob.ID, alice.ID), first.RoomID)

	// resolving from the other side reuses the same conversation
	second, appErr := svc.Resolve(ctx, bob.ID, []uuid.UUID{alice.ID})
	require.Nil(t, appErr)
	assert.Equal(t, first.ID, second.ID)
}

func TestResolveSelf_SingleArchivePerUser(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	alice := createUser(t, svc, "alice")

	first, appErr := svc.Resolve(ctx, alice.ID, nil)
	require.Nil(t, appErr)
	require.Equal(t, entity.ConversationSelfArchive, first.Type)
	assert.Equal(t, SelfRoomID(alice.ID), first.RoomID)

	// duplicated requester ids collapse to the self conversation too
	second, appErr := svc.Resolve(ctx, alice.ID, []uuid.UUID{alice.ID})
	require.Nil(t, appErr)
	assert.Equal(t, first.ID, second.ID)
}

func TestResolveGroup_ReuseOnSetEquality(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	alice := createUser(t, svc, "alice")
	bob := createUser(t, svc, "bob")
	carol := createUser(t, svc, "carol")
	dave := createUser(t, svc, "dave")

	group, appErr := svc.Resolve(ctx, alice.ID, []uuid.UUID{bob.ID, carol.ID})
	require.Nil(t, appErr)
	require.Equal(t, entity.ConversationGroup, group.Type)

	// same set, different order
	same, appErr := svc.Resolve(ctx, alice.ID, []uuid.UUID{carol.ID, bob.ID})
	require.Nil(t, appErr)
	assert.Equal(t, group.ID, same.ID)

	// one extra member means a new conversation
	other, appErr := svc.Resolve(ctx, alice.ID, []uuid.UUID{bob.ID, carol.ID, dave.ID})
	require.Nil(t, appErr)
	assert.NotEqual(t, group.ID, other.ID)
}

func TestSendMessage_ReadMarksPerActiveMember(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	alice := createUser(t, svc, "alice")
	bob := createUser(t, svc, "bob")
	carol := createUser(t, svc, "carol")

	conv, appErr := svc.Resolve(ctx, alice.ID, []uuid.UUID{bob.ID, carol.ID})
	require.Nil(t, appErr)

	msg, appErr := svc.SendMessage(ctx, alice.ID, chat_dto.SendMessagePayload{
		ID:      conv.ID,
		Content: "hello",
	})
	require.Nil(t, appErr)

	var marks []entity.ReadMark
	require.NoError(t, svc.AppState.DB.Where("message_id = ?", msg.ID).Find(&marks).Error)
	require.Len(t, marks, 3)

	senders, receivers := 0, 0
	for _, mark := range marks {
		switch mark.View {
		case entity.ReadViewSender:
			senders++
			assert.True(t, mark.Read)
			assert.True(t, mark.ForceRead)
			assert.NotNil(t, mark.ReadAt)
		case entity.ReadViewReceiver:
			receivers++
			assert.False(t, mark.Read)
			assert.False(t, mark.ForceRead)
		}
	}
	assert.Equal(t, 1, senders)
	assert.Equal(t, 2, receivers)
}

func TestUnreadCount_PerUserIsolation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	alice := createUser(t, svc, "alice")
	bob := createUser(t, svc, "bob")
	carol := createUser(t, svc, "carol")

	conv, appErr := svc.Resolve(ctx, alice.ID, []uuid.UUID{bob.ID, carol.ID})
	require.Nil(t, appErr)

	for i := 0; i < 2; i++ {
		_, appErr = svc.SendMessage(ctx, alice.ID, chat_dto.SendMessagePayload{ID: conv.ID, Content: "hi"})
		require.Nil(t, appErr)
	}

	unreadBob, appErr := svc.ChatRepo.UnreadCount(ctx, conv.ID, bob.ID)
	require.Nil(t, appErr)
	assert.Equal(t, int64(2), unreadBob)

	unreadAlice, appErr := svc.ChatRepo.UnreadCount(ctx, conv.ID, alice.ID)
	require.Nil(t, appErr)
	assert.Equal(t, int64(0), unreadAlice)

	// bob reading does not touch carol's state
	_, appErr = svc.MarkConversationRead(ctx, bob.ID, conv.ID)
	require.Nil(t, appErr)

	unreadBob, appErr = svc.ChatRepo.UnreadCount(ctx, conv.ID, bob.ID)
	require.Nil(t, appErr)
	assert.Equal(t, int64(0), unreadBob)

	unreadCarol, appErr := svc.ChatRepo.UnreadCount(ctx, conv.ID, carol.ID)
	require.Nil(t, appErr)
	assert.Equal(t, int64(2), unreadCarol)
}

func TestSeenByAll_RequiresEveryReceiver(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	alice := createUser(t, svc, "alice")
	bob := createUser(t, svc, "bob")
	carol := createUser(t, svc, "carol")

	conv, appErr := svc.Resolve(ctx, alice.ID, []uuid.UUID{bob.ID, carol.ID})
	require.Nil(t, appErr)

	msg, appErr := svc.SendMessage(ctx, alice.ID, chat_dto.SendMessagePayload{ID: conv.ID, Content: "hello"})
	require.Nil(t, appErr)

	seen, appErr := svc.ChatRepo.SeenByAll(ctx, msg.ID)
	require.Nil(t, appErr)
	assert.False(t, seen)

	_, appErr = svc.MarkConversationRead(ctx, bob.ID, conv.ID)
	require.Nil(t, appErr)

	seen, appErr = svc.ChatRepo.SeenByAll(ctx, msg.ID)
	require.Nil(t, appErr)
	assert.False(t, seen, "one receiver outstanding keeps seenByAll false")

	affected, appErr := svc.ForceReadAll(ctx, carol.ID)
	require.Nil(t, appErr)
	assert.Equal(t, int64(1), affected)

	seen, appErr = svc.ChatRepo.SeenByAll(ctx, msg.ID)
	require.Nil(t, appErr)
	assert.True(t, seen)
}

func TestGetChats_LastMessageAndOrdering(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	alice := createUser(t, svc, "alice")
	bob := createUser(t, svc, "bob")
	carol := createUser(t, svc, "carol")

	dm, appErr := svc.Resolve(ctx, alice.ID, []uuid.UUID{bob.ID})
	require.Nil(t, appErr)
	group, appErr := svc.Resolve(ctx, alice.ID, []uuid.UUID{bob.ID, carol.ID})
	require.Nil(t, appErr)
	// a conversation nobody messaged yet
	empty, appErr := svc.Resolve(ctx, bob.ID, nil)
	require.Nil(t, appErr)

	_, appErr = svc.SendMessage(ctx, alice.ID, chat_dto.SendMessagePayload{ID: dm.ID, Content: "older"})
	require.Nil(t, appErr)
	_, appErr = svc.SendMessage(ctx, alice.ID, chat_dto.SendMessagePayload{ID: group.ID, Content: "hello"})
	require.Nil(t, appErr)

	chats, appErr := svc.GetChats(ctx, bob.ID)
	require.Nil(t, appErr)
	require.Len(t, chats, 3)

	// most recent message first, never-messaged conversation last
	assert.Equal(t, group.ID, chats[0].Conversation.ID)
	assert.Equal(t, dm.ID, chats[1].Conversation.ID)
	assert.Equal(t, empty.ID, chats[2].Conversation.ID)
	assert.Nil(t, chats[2].LastMessage)

	require.NotNil(t, chats[0].LastMessage)
	assert.Equal(t, "hello", chats[0].LastMessage.Content)
	assert.False(t, chats[0].LastMessage.SeenByAll)
	assert.Equal(t, int64(1), chats[0].UnreadCount)
}

func TestGetChats_CourseGatingHidesUnapproved(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	author := createUser(t, svc, "author")
	student := createUser(t, svc, "student")

	course := &entity.Course{
		ID:       uuid.New(),
		Name:     "Go from scratch",
		AuthorID: author.ID,
		Status:   entity.CourseStatusPending,
	}
	require.NoError(t, svc.AppState.DB.Create(course).Error)

	conv := &entity.Conversation{
		ID:       uuid.New(),
		RoomID:   GroupRoomID(),
		Type:     entity.ConversationCourseGroup,
		CourseID: &course.ID,
		Members: []entity.Member{
			{ID: uuid.New(), UserID: author.ID, Role: entity.MemberRoleAdmin, Status: entity.MemberStatusActive},
			{ID: uuid.New(), UserID: student.ID, Role: entity.MemberRoleRegular, Status: entity.MemberStatusActive},
		},
	}
	require.Nil(t, svc.ChatRepo.CreateConversation(ctx, conv))

	chats, appErr := svc.GetChats(ctx, student.ID)
	require.Nil(t, appErr)
	assert.Empty(t, chats, "pending course keeps its conversation hidden")

	require.NoError(t, svc.AppState.DB.Model(course).Update("status", entity.CourseStatusApproved).Error)

	chats, appErr = svc.GetChats(ctx, student.ID)
	require.Nil(t, appErr)
	require.Len(t, chats, 1)
	assert.Equal(t, conv.ID, chats[0].Conversation.ID)
}

func TestJoinRoom_DeniedForNonMember(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	alice := createUser(t, svc, "alice")
	bob := createUser(t, svc, "bob")
	mallory := createUser(t, svc, "mallory")

	conv, appErr := svc.Resolve(ctx, alice.ID, []uuid.UUID{bob.ID})
	require.Nil(t, appErr)

	_, appErr = svc.JoinRoom(ctx, mallory.ID, conv.RoomID)
	require.NotNil(t, appErr)
	assert.Equal(t, 403, appErr.Code)
}

func TestSendMessage_ReplyTargetValidatedBeforePersist(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	alice := createUser(t, svc, "alice")
	bob := createUser(t, svc, "bob")

	conv, appErr := svc.Resolve(ctx, alice.ID, []uuid.UUID{bob.ID})
	require.Nil(t, appErr)

	missing := uuid.New()
	_, appErr = svc.SendMessage(ctx, alice.ID, chat_dto.SendMessagePayload{
		ID:              conv.ID,
		Content:         "reply to nothing",
		TargetMessageID: &missing,
	})
	require.NotNil(t, appErr)
	assert.Equal(t, 404, appErr.Code)

	// validation failed before the first write, so nothing was persisted
	var count int64
	require.NoError(t, svc.AppState.DB.Model(&entity.Message{}).Where("conversation_id = ?", conv.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSendMessage_ProfanityMasked(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	alice := createUser(t, svc, "alice")
	bob := createUser(t, svc, "bob")

	conv, appErr := svc.Resolve(ctx, alice.ID, []uuid.UUID{bob.ID})
	require.Nil(t, appErr)

	msg, appErr := svc.SendMessage(ctx, alice.ID, chat_dto.SendMessagePayload{ID: conv.ID, Content: "what the fuck"})
	require.Nil(t, appErr)
	assert.Equal(t, "what the ****", msg.Content)
}

func TestSendMessage_RemovedMemberGetsNoMark(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	alice := createUser(t, svc, "alice")
	bob := createUser(t, svc, "bob")
	carol := createUser(t, svc, "carol")

	conv, appErr := svc.Resolve(ctx, alice.ID, []uuid.UUID{bob.ID, carol.ID})
	require.Nil(t, appErr)

	require.Nil(t, svc.RemoveMember(ctx, alice.ID, conv.ID, carol.ID))

	msg, appErr := svc.SendMessage(ctx, alice.ID, chat_dto.SendMessagePayload{ID: conv.ID, Content: "carol left"})
	require.Nil(t, appErr)

	var marks []entity.ReadMark
	require.NoError(t, svc.AppState.DB.Where("message_id = ?", msg.ID).Find(&marks).Error)
	assert.Len(t, marks, 2, "only members active at send time get a mark")

	// a removed member cannot send either
	_, appErr = svc.SendMessage(ctx, carol.ID, chat_dto.SendMessagePayload{ID: conv.ID, Content: "still here?"})
	require.NotNil(t, appErr)
	assert.Equal(t, 403, appErr.Code)
}

func TestAddMembers_ReAddUpdatesExistingRow(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	alice := createUser(t, svc, "alice")
	bob := createUser(t, svc, "bob")
	carol := createUser(t, svc, "carol")

	conv, appErr := svc.Resolve(ctx, alice.ID, []uuid.UUID{bob.ID, carol.ID})
	require.Nil(t, appErr)

	require.Nil(t, svc.RemoveMember(ctx, alice.ID, conv.ID, carol.ID))
	require.Nil(t, svc.AddMembers(ctx, alice.ID, conv.ID, []uuid.UUID{carol.ID}))

	var count int64
	require.NoError(t, svc.AppState.DB.Model(&entity.Member{}).
		Where("conversation_id = ? AND user_id = ?", conv.ID, carol.ID).
		Count(&count).Error)
	assert.Equal(t, int64(1), count, "re-adding must never duplicate the membership row")

	member, appErr := svc.ChatRepo.FindMember(ctx, conv.ID, carol.ID)
	require.Nil(t, appErr)
	assert.Equal(t, entity.MemberStatusActive, member.Status)

	// adding an already active member conflicts
	appErr = svc.AddMembers(ctx, alice.ID, conv.ID, []uuid.UUID{carol.ID})
	require.NotNil(t, appErr)
	assert.Equal(t, 409, appErr.Code)
}

func TestMarkConversationRead_NoopWhenNothingUnread(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	alice := createUser(t, svc, "alice")
	bob := createUser(t, svc, "bob")

	conv, appErr := svc.Resolve(ctx, alice.ID, []uuid.UUID{bob.ID})
	require.Nil(t, appErr)

	member, appErr := svc.MarkConversationRead(ctx, bob.ID, conv.ID)
	require.Nil(t, appErr)
	require.NotNil(t, member)

	// unknown conversation fails closed, not open
	_, appErr = svc.MarkConversationRead(ctx, bob.ID, uuid.New())
	require.NotNil(t, appErr)
	assert.Equal(t, 403, appErr.Code)
}

func TestGetChat_RemainingCount(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	alice := createUser(t, svc, "alice")
	bob := createUser(t, svc, "bob")

	conv, appErr := svc.Resolve(ctx, alice.ID, []uuid.UUID{bob.ID})
	require.Nil(t, appErr)

	for i := 0; i < 5; i++ {
		_, appErr = svc.SendMessage(ctx, alice.ID, chat_dto.SendMessagePayload{ID: conv.ID, Content: fmt.Sprintf("m%d", i)})
		require.Nil(t, appErr)
	}

	resp, appErr := svc.GetChat(ctx, bob.ID, conv.ID, 2, 0)
	require.Nil(t, appErr)
	assert.Len(t, resp.Messages, 2)
	assert.Equal(t, int64(3), resp.Remaining)

	resp, appErr = svc.GetChat(ctx, bob.ID, conv.ID, 2, 4)
	require.Nil(t, appErr)
	assert.Len(t, resp.Messages, 1)
	assert.Zero(t, resp.Remaining)

	// non-member cannot read history
	mallory := createUser(t, svc, "mallory")
	_, appErr = svc.GetChat(ctx, mallory.ID, conv.ID, 2, 0)
	require.NotNil(t, appErr)
	assert.Equal(t, 403, appErr.Code)
}

func TestGetChat_ConfiguredHistoryPageSize(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cfg := &config.AppConfig{}
	cfg.CHAT.HistoryPageSize = 2
	config.Conf = cfg
	t.Cleanup(func() { config.Conf = nil })

	alice := createUser(t, svc, "alice")
	bob := createUser(t, svc, "bob")

	conv, appErr := svc.Resolve(ctx, alice.ID, []uuid.UUID{bob.ID})
	require.Nil(t, appErr)

	for i := 0; i < 4; i++ {
		_, appErr = svc.SendMessage(ctx, alice.ID, chat_dto.SendMessagePayload{ID: conv.ID, Content: fmt.Sprintf("m%d", i)})
		require.Nil(t, appErr)
	}

	// no explicit limit: the configured page size applies
	resp, appErr := svc.GetChat(ctx, bob.ID, conv.ID, 0, 0)
	require.Nil(t, appErr)
	assert.Len(t, resp.Messages, 2)
	assert.Equal(t, int64(2), resp.Remaining)

	// an explicit limit still wins over the configured default
	resp, appErr = svc.GetChat(ctx, bob.ID, conv.ID, 3, 0)
	require.Nil(t, appErr)
	assert.Len(t, resp.Messages, 3)
}
