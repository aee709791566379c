package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProjectStatus enum constants
const (
	ProjectStatusProspect   = "PROSPECT"
	ProjectStatusOrdered    = "ORDERED"
	ProjectStatusInProgress = "IN_PROGRESS"
	ProjectStatusCompleted  = "COMPLETED"
	ProjectStatusLost       = "LOST"
)

// ProjectType enum constants
const (
	ProjectTypeDevelopment = "DEVELOPMENT"
	ProjectTypeMaintenance = "MAINTENANCE"
	ProjectTypeLicense     = "LICENSE"
	ProjectTypeOther       = "OTHER"
)

// DefaultHourlyRate is applied when a project has no hourly rate configured (yen/hour).
var DefaultHourlyRate = decimal.NewFromInt(5000)

// Project is the unit all financial reporting hangs off of.
//
// TotalLaborHours, TotalLaborCost and LastCalculatedAt form a cached aggregate
// owned by the labor service: they are only ever written by a reconciliation
// inside the same transaction as the schedule or rate mutation that moved them.
type Project struct {
	ID               uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectNumber    string           `gorm:"type:varchar(30);uniqueIndex;not null" json:"project_number"`
	ProjectName      string           `gorm:"type:varchar(255);not null" json:"project_name"`
	ProjectType      string           `gorm:"type:varchar(20);not null;index" json:"project_type"` // DEVELOPMENT, MAINTENANCE, LICENSE, OTHER
	Status           string           `gorm:"type:varchar(20);not null;default:'PROSPECT';index" json:"status"`
	DepartmentID     *uuid.UUID       `gorm:"type:uuid;index" json:"department_id"`
	Department       *Department      `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
	IssueDate        *time.Time       `gorm:"type:date;index" json:"issue_date"`
	OrderAmount      decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0" json:"order_amount"`
	OutsourcingCost  decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0" json:"outsourcing_cost"`
	ServerDomainCost decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0" json:"server_domain_cost"`
	Budget           decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0" json:"budget"`
	PlannedHours     decimal.Decimal  `gorm:"type:decimal(10,2);not null;default:0" json:"planned_hours"`
	PlannedStart     *time.Time       `gorm:"type:date" json:"planned_start"`
	PlannedEnd       *time.Time       `gorm:"type:date" json:"planned_end"`
	HourlyRate       *decimal.Decimal `gorm:"type:decimal(10,2)" json:"hourly_rate"` // nil = DefaultHourlyRate

	// Cached labor aggregate — derived from schedule_actuals, never edited directly.
	TotalLaborHours  decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"total_labor_hours"`
	TotalLaborCost   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"total_labor_cost"`
	LastCalculatedAt *time.Time      `json:"last_calculated_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns an ID client-side so inserts work on databases without
// gen_random_uuid().
func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// EffectiveHourlyRate returns the configured rate or the company default.
func (p *Project) EffectiveHourlyRate() decimal.Decimal {
	if p.HourlyRate != nil {
		return *p.HourlyRate
	}
	return DefaultHourlyRate
}

// Department groups projects for reporting filters.
type Department struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (d *Department) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
