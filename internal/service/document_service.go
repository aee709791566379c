package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"backend/internal/finance"
	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type DocumentItemRequest struct {
	Name         string `json:"name" binding:"required"`
	Quantity     string `json:"quantity" binding:"required"`
	UnitPrice    string `json:"unit_price" binding:"required"`
	TaxType      string `json:"tax_type" binding:"omitempty,oneof=taxable non_taxable tax_included"`
	TaxRate      string `json:"tax_rate"` // percent; defaults to 10
	DisplayOrder int    `json:"display_order"`
}

type CreateDocumentRequest struct {
	DocumentType string                `json:"document_type" binding:"required,oneof=ESTIMATE INVOICE PURCHASE_ORDER DELIVERY_NOTE ORDER_CONFIRMATION"`
	ProjectID    string                `json:"project_id"`
	CustomerName string                `json:"customer_name"`
	IssueDate    string                `json:"issue_date" binding:"required"` // YYYY-MM-DD
	TaxType      string                `json:"tax_type" binding:"omitempty,oneof=INCLUSIVE EXCLUSIVE"`
	RoundingType string                `json:"rounding_type" binding:"omitempty,oneof=round floor ceil"`
	Note         string                `json:"note"`
	Items        []DocumentItemRequest `json:"items"`
}

// UpdateDocumentRequest carries the document's entire item list; items missing
// from the list are deleted.
type UpdateDocumentRequest struct {
	CustomerName string                `json:"customer_name"`
	IssueDate    string                `json:"issue_date" binding:"required"`
	TaxType      string                `json:"tax_type" binding:"omitempty,oneof=INCLUSIVE EXCLUSIVE"`
	RoundingType string                `json:"rounding_type" binding:"omitempty,oneof=round floor ceil"`
	Note         string                `json:"note"`
	Items        []DocumentItemRequest `json:"items"`
}

type DocumentItemResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Quantity     string `json:"quantity"`
	UnitPrice    string `json:"unit_price"`
	Amount       string `json:"amount"` // derived: quantity × unit price
	TaxType      string `json:"tax_type"`
	TaxRate      string `json:"tax_rate"`
	DisplayOrder int    `json:"display_order"`
}

type DocumentResponse struct {
	ID             string                 `json:"id"`
	DocumentType   string                 `json:"document_type"`
	DocumentNumber string                 `json:"document_number"`
	ProjectID      *string                `json:"project_id"`
	CustomerName   string                 `json:"customer_name"`
	IssueDate      string                 `json:"issue_date"`
	TaxType        string                 `json:"tax_type"`
	RoundingType   string                 `json:"rounding_type"`
	Subtotal       string                 `json:"subtotal"`
	TaxAmount      string                 `json:"tax_amount"`
	TaxAmount8     string                 `json:"tax_amount_8"`
	TaxAmount10    string                 `json:"tax_amount_10"`
	TotalAmount    string                 `json:"total_amount"`
	Note           string                 `json:"note"`
	Items          []DocumentItemResponse `json:"items"`
	CreatedAt      string                 `json:"created_at"`
}

type DocumentFilter struct {
	DocumentType   string
	DocumentNumber string
	ProjectID      string
	Page           int
	Limit          int
}

// --- Interface ---

type DocumentService interface {
	CreateDocument(ctx context.Context, req CreateDocumentRequest, userID string) (DocumentResponse, error)
	UpdateDocument(ctx context.Context, id string, req UpdateDocumentRequest, userID string) (DocumentResponse, error)
	DeleteDocument(ctx context.Context, id string, userID string) error
	GetDocument(ctx context.Context, id string) (DocumentResponse, error)
	ListDocuments(ctx context.Context, filter DocumentFilter) ([]DocumentResponse, int64, error)
}

type documentService struct {
	documentRepo repository.DocumentRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
}

func NewDocumentService(
	documentRepo repository.DocumentRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) DocumentService {
	return &documentService{
		documentRepo: documentRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
	}
}

// --- Implementation ---

func (s *documentService) CreateDocument(ctx context.Context, req CreateDocumentRequest, userID string) (DocumentResponse, error) {
	issueDate, err := time.Parse("2006-01-02", req.IssueDate)
	if err != nil {
		return DocumentResponse{}, fmt.Errorf("%w: invalid issue_date (expected YYYY-MM-DD): %v", ErrInvalidInput, err)
	}

	docTaxType := req.TaxType
	if docTaxType == "" {
		docTaxType = model.DocTaxExclusive
	}
	rounding := finance.Rounding(req.RoundingType)
	if req.RoundingType == "" {
		rounding = finance.RoundingRound
	}

	items, err := parseDocumentItems(req.Items, docTaxType)
	if err != nil {
		return DocumentResponse{}, err
	}

	totals, err := computeDocumentTotals(items, rounding)
	if err != nil {
		return DocumentResponse{}, err
	}

	doc := model.FinancialDocument{
		DocumentType: req.DocumentType,
		CustomerName: req.CustomerName,
		IssueDate:    issueDate,
		TaxType:      docTaxType,
		RoundingType: rounding,
		Note:         req.Note,
		Items:        items,
		Subtotal:     totals.Subtotal,
		TaxAmount:    totals.TaxAmount,
		TaxAmount8:   totals.TaxAmount8,
		TaxAmount10:  totals.TaxAmount10,
		TotalAmount:  totals.TotalAmount,
	}

	if req.ProjectID != "" {
		projectID, err := uuid.Parse(req.ProjectID)
		if err != nil {
			return DocumentResponse{}, fmt.Errorf("%w: invalid project_id: %v", ErrInvalidInput, err)
		}
		doc.ProjectID = &projectID
	}

	doc.DocumentNumber, err = s.generateDocumentNumber(ctx, req.DocumentType)
	if err != nil {
		return DocumentResponse{}, fmt.Errorf("failed to generate document number: %w", err)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.documentRepo.Create(txCtx, &doc); err != nil {
			return fmt.Errorf("failed to create document: %w", err)
		}
		s.writeAudit(txCtx, userID, model.ActionCreateDocument, doc.ID.String(), doc.DocumentNumber, req)
		return nil
	})
	if err != nil {
		return DocumentResponse{}, err
	}

	return toDocumentResponse(doc), nil
}

func (s *documentService) UpdateDocument(ctx context.Context, id string, req UpdateDocumentRequest, userID string) (DocumentResponse, error) {
	documentID, err := uuid.Parse(id)
	if err != nil {
		return DocumentResponse{}, fmt.Errorf("%w: invalid document id: %v", ErrInvalidInput, err)
	}

	doc, err := s.documentRepo.FindByIDWithItems(ctx, documentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return DocumentResponse{}, ErrDocumentNotFound
		}
		return DocumentResponse{}, fmt.Errorf("failed to fetch document: %w", err)
	}

	issueDate, err := time.Parse("2006-01-02", req.IssueDate)
	if err != nil {
		return DocumentResponse{}, fmt.Errorf("%w: invalid issue_date (expected YYYY-MM-DD): %v", ErrInvalidInput, err)
	}

	if req.TaxType != "" {
		doc.TaxType = req.TaxType
	}
	if req.RoundingType != "" {
		doc.RoundingType = finance.Rounding(req.RoundingType)
	}
	doc.CustomerName = req.CustomerName
	doc.IssueDate = issueDate
	doc.Note = req.Note

	items, err := parseDocumentItems(req.Items, doc.TaxType)
	if err != nil {
		return DocumentResponse{}, err
	}

	// Totals and items move together: recompute the five derived fields from
	// the replacement list and persist both in one transaction.
	totals, err := computeDocumentTotals(items, doc.RoundingType)
	if err != nil {
		return DocumentResponse{}, err
	}
	doc.Subtotal = totals.Subtotal
	doc.TaxAmount = totals.TaxAmount
	doc.TaxAmount8 = totals.TaxAmount8
	doc.TaxAmount10 = totals.TaxAmount10
	doc.TotalAmount = totals.TotalAmount

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.documentRepo.Update(txCtx, doc); err != nil {
			return fmt.Errorf("failed to update document: %w", err)
		}
		if err := s.documentRepo.ReplaceItems(txCtx, documentID, items); err != nil {
			return fmt.Errorf("failed to replace items: %w", err)
		}
		s.writeAudit(txCtx, userID, model.ActionUpdateDocument, doc.ID.String(), doc.DocumentNumber, req)
		return nil
	})
	if err != nil {
		return DocumentResponse{}, err
	}

	reloaded, err := s.documentRepo.FindByIDWithItems(ctx, documentID)
	if err != nil {
		return DocumentResponse{}, fmt.Errorf("failed to reload document: %w", err)
	}
	return toDocumentResponse(*reloaded), nil
}

func (s *documentService) DeleteDocument(ctx context.Context, id string, userID string) error {
	documentID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: invalid document id: %v", ErrInvalidInput, err)
	}

	doc, err := s.documentRepo.FindByIDWithItems(ctx, documentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDocumentNotFound
		}
		return fmt.Errorf("failed to fetch document: %w", err)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.documentRepo.Delete(txCtx, documentID); err != nil {
			return fmt.Errorf("failed to delete document: %w", err)
		}
		s.writeAudit(txCtx, userID, model.ActionDeleteDocument, doc.ID.String(), doc.DocumentNumber, map[string]string{"deleted_id": id})
		return nil
	})
}

func (s *documentService) GetDocument(ctx context.Context, id string) (DocumentResponse, error) {
	documentID, err := uuid.Parse(id)
	if err != nil {
		return DocumentResponse{}, fmt.Errorf("%w: invalid document id: %v", ErrInvalidInput, err)
	}

	doc, err := s.documentRepo.FindByIDWithItems(ctx, documentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return DocumentResponse{}, ErrDocumentNotFound
		}
		return DocumentResponse{}, fmt.Errorf("failed to fetch document: %w", err)
	}
	return toDocumentResponse(*doc), nil
}

func (s *documentService) ListDocuments(ctx context.Context, filter DocumentFilter) ([]DocumentResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	repoFilter := repository.DocumentListFilter{
		DocumentType:   filter.DocumentType,
		DocumentNumber: filter.DocumentNumber,
		Page:           filter.Page,
		Limit:          filter.Limit,
	}
	if filter.ProjectID != "" {
		projectID, err := uuid.Parse(filter.ProjectID)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: invalid project_id: %v", ErrInvalidInput, err)
		}
		repoFilter.ProjectID = &projectID
	}

	docs, total, err := s.documentRepo.List(ctx, repoFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch documents: %w", err)
	}

	result := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		result = append(result, toDocumentResponse(doc))
	}
	return result, total, nil
}

// --- Helpers ---

var documentNumberPrefixes = map[string]string{
	model.DocTypeEstimate:          "EST",
	model.DocTypeInvoice:           "INV",
	model.DocTypePurchaseOrder:     "PO",
	model.DocTypeDeliveryNote:      "DN",
	model.DocTypeOrderConfirmation: "OC",
}

func (s *documentService) generateDocumentNumber(ctx context.Context, documentType string) (string, error) {
	prefix := documentNumberPrefixes[documentType] + "-" + time.Now().Format("20060102") + "-"

	count, err := s.documentRepo.CountByPrefix(ctx, prefix)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%04d", prefix, count+1), nil
}

func parseDocumentItems(reqs []DocumentItemRequest, docTaxType string) ([]model.DocumentItem, error) {
	items := make([]model.DocumentItem, 0, len(reqs))
	for i, req := range reqs {
		quantity, err := decimal.NewFromString(req.Quantity)
		if err != nil {
			return nil, fmt.Errorf("%w: item %d: invalid quantity: %v", ErrInvalidInput, i, err)
		}
		unitPrice, err := decimal.NewFromString(req.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("%w: item %d: invalid unit_price: %v", ErrInvalidInput, i, err)
		}
		if quantity.IsNegative() || unitPrice.IsNegative() {
			return nil, fmt.Errorf("%w: item %d: quantity and unit_price must not be negative", ErrInvalidInput, i)
		}

		taxRate := decimal.NewFromInt(10)
		if req.TaxRate != "" {
			taxRate, err = decimal.NewFromString(req.TaxRate)
			if err != nil {
				return nil, fmt.Errorf("%w: item %d: invalid tax_rate: %v", ErrInvalidInput, i, err)
			}
		}

		taxType := finance.ItemTaxType(req.TaxType)
		if req.TaxType == "" {
			// Items inherit the document-level default when unspecified.
			taxType = finance.TaxTypeTaxable
			if docTaxType == model.DocTaxInclusive {
				taxType = finance.TaxTypeTaxIncluded
			}
		}
		if !taxType.Valid() {
			return nil, fmt.Errorf("%w: item %d: unknown tax_type %q", ErrInvalidInput, i, req.TaxType)
		}

		items = append(items, model.DocumentItem{
			Name:         req.Name,
			Quantity:     quantity,
			UnitPrice:    unitPrice,
			TaxType:      taxType,
			TaxRate:      taxRate,
			DisplayOrder: req.DisplayOrder,
		})
	}
	return items, nil
}

func computeDocumentTotals(items []model.DocumentItem, rounding finance.Rounding) (finance.Totals, error) {
	lines := make([]finance.TaxLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, item.TaxLine())
	}
	totals, err := finance.ComputeTotals(lines, rounding)
	if err != nil {
		return finance.Totals{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return totals, nil
}

func (s *documentService) writeAudit(ctx context.Context, userID, action, entityID, entityName string, details interface{}) {
	detailsJSON, _ := json.Marshal(details)

	entry := &model.AuditLog{
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(detailsJSON),
	}
	if userID != "" {
		if parsed, err := uuid.Parse(userID); err == nil {
			entry.UserID = &parsed
		}
	}

	// Best-effort audit log — don't fail the operation if logging fails
	_ = s.auditRepo.Log(ctx, entry)
}

func toDocumentResponse(doc model.FinancialDocument) DocumentResponse {
	items := make([]DocumentItemResponse, 0, len(doc.Items))
	for _, item := range doc.Items {
		items = append(items, DocumentItemResponse{
			ID:           item.ID.String(),
			Name:         item.Name,
			Quantity:     item.Quantity.StringFixed(2),
			UnitPrice:    item.UnitPrice.StringFixed(0),
			Amount:       item.Quantity.Mul(item.UnitPrice).StringFixed(0),
			TaxType:      string(item.TaxType),
			TaxRate:      item.TaxRate.StringFixed(0),
			DisplayOrder: item.DisplayOrder,
		})
	}

	resp := DocumentResponse{
		ID:             doc.ID.String(),
		DocumentType:   doc.DocumentType,
		DocumentNumber: doc.DocumentNumber,
		CustomerName:   doc.CustomerName,
		IssueDate:      doc.IssueDate.Format("2006-01-02"),
		TaxType:        doc.TaxType,
		RoundingType:   string(doc.RoundingType),
		Subtotal:       doc.Subtotal.StringFixed(0),
		TaxAmount:      doc.TaxAmount.StringFixed(0),
		TaxAmount8:     doc.TaxAmount8.StringFixed(0),
		TaxAmount10:    doc.TaxAmount10.StringFixed(0),
		TotalAmount:    doc.TotalAmount.StringFixed(0),
		Note:           doc.Note,
		Items:          items,
		CreatedAt:      doc.CreatedAt.Format(time.RFC3339),
	}
	if doc.ProjectID != nil {
		id := doc.ProjectID.String()
		resp.ProjectID = &id
	}
	return resp
}
