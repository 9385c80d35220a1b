package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message is immutable after creation except for the recalled flag and the
// attachment linkage set shortly after creation.
type Message struct {
	ID             uuid.UUID `gorm:"primaryKey" json:"id"`
	ConversationID uuid.UUID `gorm:"index;not null" json:"conversation_id"`
	MemberID       uuid.UUID `gorm:"index;not null" json:"member_id"`
	Member         *Member   `json:"member,omitempty"`
	Content        string    `gorm:"type:text" json:"content"`
	Recalled       bool      `gorm:"not null;default:false" json:"recalled"`

	// Reply linkage. Target must live in the same conversation.
	TargetMessageID *uuid.UUID `gorm:"index" json:"target_message_id,omitempty"`
	TargetMessage   *Message   `gorm:"foreignKey:TargetMessageID" json:"target_message,omitempty"`

	Attachments []Attachment `json:"attachments,omitempty"`
	ReadMarks   []ReadMark   `json:"read_marks,omitempty"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

type ReadView string

const (
	ReadViewSender   ReadView = "sender"
	ReadViewReceiver ReadView = "receiver"
)

// ReadMark is the per-message, per-member read-tracking row. Exactly one is
// created for every active member of the conversation at message-send time;
// the sender's own mark is pre-set read=true.
type ReadMark struct {
	ID             uuid.UUID  `gorm:"primaryKey" json:"id"`
	MessageID      uuid.UUID  `gorm:"uniqueIndex:idx_readmark_msg_member;not null" json:"message_id"`
	MemberID       uuid.UUID  `gorm:"uniqueIndex:idx_readmark_msg_member;index;not null" json:"member_id"`
	ConversationID uuid.UUID  `gorm:"index;not null" json:"conversation_id"`
	View           ReadView   `gorm:"not null" json:"view"`
	Read           bool       `gorm:"not null;default:false;index" json:"read"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	ForceRead      bool       `gorm:"not null;default:false" json:"force_read"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Attachment is uploaded ahead of sending, then linked to a message and its
// conversation during the send protocol.
type Attachment struct {
	ID             uuid.UUID  `gorm:"primaryKey" json:"id"`
	UserID         uuid.UUID  `gorm:"index;not null" json:"user_id"`
	FileURL        string     `gorm:"not null" json:"file_url"`
	MimeType       string     `json:"mime_type"`
	ConversationID *uuid.UUID `gorm:"index" json:"conversation_id,omitempty"`
	MessageID      *uuid.UUID `gorm:"index" json:"message_id,omitempty"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
