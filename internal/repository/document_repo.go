package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DocumentListFilter narrows document listings. Empty fields are skipped.
type DocumentListFilter struct {
	DocumentType   string
	DocumentNumber string // partial match
	ProjectID      *uuid.UUID
	Page           int
	Limit          int
}

type DocumentRepository interface {
	Create(ctx context.Context, doc *model.FinancialDocument) error
	FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.FinancialDocument, error)
	Update(ctx context.Context, doc *model.FinancialDocument) error
	// ReplaceItems deletes the document's previous item list and inserts the
	// submitted one. Items removed from the list are gone — they have no life
	// outside their document.
	ReplaceItems(ctx context.Context, documentID uuid.UUID, items []model.DocumentItem) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter DocumentListFilter) ([]model.FinancialDocument, int64, error)
	CountByPrefix(ctx context.Context, prefix string) (int64, error)
}

type documentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Create(ctx context.Context, doc *model.FinancialDocument) error {
	return GetDB(ctx, r.db).Create(doc).Error
}

func (r *documentRepository) FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.FinancialDocument, error) {
	var doc model.FinancialDocument
	if err := GetDB(ctx, r.db).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("display_order asc") }).
		First(&doc, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepository) Update(ctx context.Context, doc *model.FinancialDocument) error {
	return GetDB(ctx, r.db).Omit("Items").Save(doc).Error
}

func (r *documentRepository) ReplaceItems(ctx context.Context, documentID uuid.UUID, items []model.DocumentItem) error {
	db := GetDB(ctx, r.db)

	if err := db.Where("document_id = ?", documentID).Delete(&model.DocumentItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].ID = uuid.Nil
		items[i].DocumentID = documentID
	}
	return db.Create(&items).Error
}

func (r *documentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("document_id = ?", id).Delete(&model.DocumentItem{}).Error; err != nil {
		return err
	}
	return db.Delete(&model.FinancialDocument{}, "id = ?", id).Error
}

func (r *documentRepository) List(ctx context.Context, filter DocumentListFilter) ([]model.FinancialDocument, int64, error) {
	var docs []model.FinancialDocument
	var total int64

	db := GetDB(ctx, r.db)

	apply := func(q *gorm.DB) *gorm.DB {
		if filter.DocumentType != "" {
			q = q.Where("document_type = ?", filter.DocumentType)
		}
		if filter.DocumentNumber != "" {
			q = q.Where("document_number LIKE ?", "%"+filter.DocumentNumber+"%")
		}
		if filter.ProjectID != nil {
			q = q.Where("project_id = ?", *filter.ProjectID)
		}
		return q
	}

	if err := apply(db.Model(&model.FinancialDocument{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	fetch := apply(db.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("display_order asc") }))
	if err := fetch.Order("issue_date desc, document_number desc").Offset(offset).Limit(filter.Limit).Find(&docs).Error; err != nil {
		return nil, 0, err
	}

	return docs, total, nil
}

func (r *documentRepository) CountByPrefix(ctx context.Context, prefix string) (int64, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.FinancialDocument{}).Where("document_number LIKE ?", prefix+"%").Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
