package model

import (
	"time"

	"backend/internal/finance"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DocumentType enum constants
const (
	DocTypeEstimate          = "ESTIMATE"
	DocTypeInvoice           = "INVOICE"
	DocTypePurchaseOrder     = "PURCHASE_ORDER"
	DocTypeDeliveryNote      = "DELIVERY_NOTE"
	DocTypeOrderConfirmation = "ORDER_CONFIRMATION"
)

// FinancialDocument covers estimates, invoices, purchase orders, delivery notes
// and order confirmations — structurally identical for totals purposes.
//
// Subtotal, TaxAmount, TaxAmount8, TaxAmount10 and TotalAmount are always
// written together from the finance calculator's output, never individually.
type FinancialDocument struct {
	ID             uuid.UUID            `gorm:"type:uuid;primaryKey" json:"id"`
	DocumentType   string               `gorm:"type:varchar(20);not null;index" json:"document_type"`
	DocumentNumber string               `gorm:"type:varchar(30);uniqueIndex;not null" json:"document_number"`
	ProjectID      *uuid.UUID           `gorm:"type:uuid;index" json:"project_id"`
	CustomerName   string               `gorm:"type:varchar(255)" json:"customer_name"`
	IssueDate      time.Time            `gorm:"type:date;not null;index" json:"issue_date"`
	TaxType        string               `gorm:"type:varchar(10);not null;default:'EXCLUSIVE'" json:"tax_type"` // INCLUSIVE, EXCLUSIVE (document-level default for new items)
	RoundingType   finance.Rounding     `gorm:"type:varchar(10);not null;default:'round'" json:"rounding_type"`
	Subtotal       decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0" json:"subtotal"`
	TaxAmount      decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0" json:"tax_amount"`
	TaxAmount8     decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0" json:"tax_amount_8"`
	TaxAmount10    decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0" json:"tax_amount_10"`
	TotalAmount    decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0" json:"total_amount"`
	Note           string               `gorm:"type:text" json:"note"`
	Items          []DocumentItem       `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// DocumentTaxType enum constants (document-level default)
const (
	DocTaxInclusive = "INCLUSIVE"
	DocTaxExclusive = "EXCLUSIVE"
)

// DocumentItem is a line on a financial document. Its amount (quantity × unit
// price) is derived at computation time and never stored. Items are owned by
// their document: removed rows are deleted on a full-replace update.
type DocumentItem struct {
	ID           uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	DocumentID   uuid.UUID           `gorm:"type:uuid;not null;index" json:"document_id"`
	Name         string              `gorm:"type:varchar(255);not null" json:"name"`
	Quantity     decimal.Decimal     `gorm:"type:decimal(12,2);not null" json:"quantity"`
	UnitPrice    decimal.Decimal     `gorm:"type:decimal(18,4);not null" json:"unit_price"`
	TaxType      finance.ItemTaxType `gorm:"type:varchar(15);not null;default:'taxable'" json:"tax_type"`
	TaxRate      decimal.Decimal     `gorm:"type:decimal(5,2);not null;default:10" json:"tax_rate"` // percent
	DisplayOrder int                 `gorm:"not null;default:0" json:"display_order"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// TaxLine adapts the item for the finance calculator.
func (i DocumentItem) TaxLine() finance.TaxLine {
	return finance.TaxLine{
		Quantity:  i.Quantity,
		UnitPrice: i.UnitPrice,
		TaxType:   i.TaxType,
		TaxRate:   i.TaxRate,
	}
}

func (d *FinancialDocument) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

func (i *DocumentItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
