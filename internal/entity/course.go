package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CourseStatus string

const (
	CourseStatusDraft    CourseStatus = "draft"
	CourseStatusPending  CourseStatus = "pending"
	CourseStatusApproved CourseStatus = "approved"
)

// Course is referenced by course-bound conversations. A conversation bound to
// a course is only visible in chat lists while the course is approved.
type Course struct {
	ID       uuid.UUID    `gorm:"primaryKey" json:"id"`
	Name     string       `gorm:"not null" json:"name"`
	AuthorID uuid.UUID    `gorm:"index;not null" json:"author_id"`
	Status   CourseStatus `gorm:"not null;index" json:"status"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
