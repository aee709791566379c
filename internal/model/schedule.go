package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Schedule is one user's day sheet. Updates replace the entire actuals list
// (full-replace semantics), so the labor aggregator always diffs two complete
// snapshots rather than incremental deltas.
type Schedule struct {
	ID        uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID        `gorm:"type:uuid;not null;index:idx_schedules_user_date,unique" json:"user_id"`
	WorkDate  time.Time        `gorm:"type:date;not null;index:idx_schedules_user_date,unique" json:"work_date"`
	Note      string           `gorm:"type:text" json:"note"`
	Actuals   []ScheduleActual `gorm:"foreignKey:ScheduleID;constraint:OnDelete:CASCADE" json:"actuals"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// ScheduleActual is a logged unit of work, optionally charged to a project.
type ScheduleActual struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ScheduleID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"schedule_id"`
	ProjectID    *uuid.UUID      `gorm:"type:uuid;index" json:"project_id"` // nullable: internal/non-billable work
	Hours        decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"hours"`
	Content      string          `gorm:"type:varchar(255)" json:"content"`
	Details      string          `gorm:"type:text" json:"details"`
	DisplayOrder int             `gorm:"not null;default:0" json:"display_order"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (s *Schedule) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (a *ScheduleActual) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
