package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ConversationType string

const (
	ConversationSelfArchive ConversationType = "self_archive"
	ConversationDirect      ConversationType = "direct"
	ConversationGroup       ConversationType = "group"
	ConversationCourseGroup ConversationType = "course_group"
)

// Conversation is a chat thread. RoomID is the stable string key used for
// directory addressing; for direct chats it is a deterministic function of the
// participant pair so repeated requests resolve to the same row.
type Conversation struct {
	ID       uuid.UUID        `gorm:"primaryKey" json:"id"`
	RoomID   string           `gorm:"uniqueIndex;not null" json:"room_id"`
	Type     ConversationType `gorm:"not null" json:"type"`
	Name     string           `json:"name"`
	Avatar   string           `json:"avatar,omitempty"`
	CourseID *uuid.UUID       `gorm:"index" json:"course_id,omitempty"`
	Course   *Course          `json:"course,omitempty"`

	Members  []Member  `json:"members,omitempty"`
	Messages []Message `json:"-"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

type MemberRole string

const (
	MemberRoleAdmin   MemberRole = "admin"
	MemberRoleRegular MemberRole = "regular"
)

type MemberStatus string

const (
	MemberStatusActive  MemberStatus = "active"
	MemberStatusPending MemberStatus = "pending"
	MemberStatusRemoved MemberStatus = "removed"
)

// Member is one user's membership in one conversation. At most one row exists
// per (conversation, user); re-adding a removed member updates the row.
type Member struct {
	ID             uuid.UUID    `gorm:"primaryKey" json:"id"`
	ConversationID uuid.UUID    `gorm:"uniqueIndex:idx_member_conv_user;not null" json:"conversation_id"`
	UserID         uuid.UUID    `gorm:"uniqueIndex:idx_member_conv_user;index;not null" json:"user_id"`
	User           *User        `json:"user,omitempty"`
	Role           MemberRole   `gorm:"not null" json:"role"`
	Status         MemberStatus `gorm:"not null;index" json:"status"`
	Muted          bool         `gorm:"not null;default:false" json:"muted"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
