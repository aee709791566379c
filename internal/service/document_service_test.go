package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDocumentService(db *gorm.DB) DocumentService {
	return NewDocumentService(
		repository.NewDocumentRepository(db),
		repository.NewAuditRepository(db),
		repository.NewTransactionManager(db),
	)
}

func TestCreateDocument_PersistsDerivedTotals(t *testing.T) {
	db := setupServiceDB(t)
	svc := newTestDocumentService(db)

	doc, err := svc.CreateDocument(context.Background(), CreateDocumentRequest{
		DocumentType: model.DocTypeInvoice,
		CustomerName: "Acme Corp",
		IssueDate:    "2025-06-02",
		Items: []DocumentItemRequest{
			{Name: "Development", Quantity: "1", UnitPrice: "1000000"},
			{Name: "Stamp fee", Quantity: "1", UnitPrice: "200", TaxType: "non_taxable"},
		},
	}, uuid.NewString())
	require.NoError(t, err)

	// Exclusive by default: 10% on the taxable line only.
	assert.Equal(t, "1000200", doc.Subtotal)
	assert.Equal(t, "100000", doc.TaxAmount)
	assert.Equal(t, "100000", doc.TaxAmount10)
	assert.Equal(t, "0", doc.TaxAmount8)
	assert.Equal(t, "1100200", doc.TotalAmount)
	require.Len(t, doc.Items, 2)

	// Totals are stored, not recomputed on read.
	var stored model.FinancialDocument
	require.NoError(t, db.First(&stored, "id = ?", doc.ID).Error)
	assert.True(t, stored.TotalAmount.Equal(stored.Subtotal.Add(stored.TaxAmount)))
}

func TestCreateDocument_InclusiveDefaultAppliesToItems(t *testing.T) {
	db := setupServiceDB(t)
	svc := newTestDocumentService(db)

	doc, err := svc.CreateDocument(context.Background(), CreateDocumentRequest{
		DocumentType: model.DocTypeEstimate,
		IssueDate:    "2025-06-02",
		TaxType:      model.DocTaxInclusive,
		Items: []DocumentItemRequest{
			{Name: "Maintenance", Quantity: "1", UnitPrice: "1100000"},
		},
	}, uuid.NewString())
	require.NoError(t, err)

	assert.Equal(t, "1000000", doc.Subtotal)
	assert.Equal(t, "100000", doc.TaxAmount)
	assert.Equal(t, "1100000", doc.TotalAmount)
}

func TestCreateDocument_NumberSequencePerTypeAndDay(t *testing.T) {
	db := setupServiceDB(t)
	svc := newTestDocumentService(db)

	first, err := svc.CreateDocument(context.Background(), CreateDocumentRequest{
		DocumentType: model.DocTypeInvoice,
		IssueDate:    "2025-06-02",
	}, uuid.NewString())
	require.NoError(t, err)

	second, err := svc.CreateDocument(context.Background(), CreateDocumentRequest{
		DocumentType: model.DocTypeInvoice,
		IssueDate:    "2025-06-02",
	}, uuid.NewString())
	require.NoError(t, err)

	estimate, err := svc.CreateDocument(context.Background(), CreateDocumentRequest{
		DocumentType: model.DocTypeEstimate,
		IssueDate:    "2025-06-02",
	}, uuid.NewString())
	require.NoError(t, err)

	today := time.Now().Format("20060102")
	assert.Equal(t, "INV-"+today+"-0001", first.DocumentNumber)
	assert.Equal(t, "INV-"+today+"-0002", second.DocumentNumber)
	assert.True(t, strings.HasPrefix(estimate.DocumentNumber, "EST-"), "each type has its own sequence, got %s", estimate.DocumentNumber)
	assert.True(t, strings.HasSuffix(estimate.DocumentNumber, "-0001"))
}

func TestUpdateDocument_FullReplaceRemovesOrphanItems(t *testing.T) {
	db := setupServiceDB(t)
	svc := newTestDocumentService(db)

	created, err := svc.CreateDocument(context.Background(), CreateDocumentRequest{
		DocumentType: model.DocTypeInvoice,
		IssueDate:    "2025-06-02",
		Items: []DocumentItemRequest{
			{Name: "Line A", Quantity: "1", UnitPrice: "10000"},
			{Name: "Line B", Quantity: "1", UnitPrice: "20000"},
		},
	}, uuid.NewString())
	require.NoError(t, err)

	updated, err := svc.UpdateDocument(context.Background(), created.ID, UpdateDocumentRequest{
		IssueDate: "2025-06-03",
		Items: []DocumentItemRequest{
			{Name: "Line C", Quantity: "1", UnitPrice: "50000"},
		},
	}, uuid.NewString())
	require.NoError(t, err)

	require.Len(t, updated.Items, 1)
	assert.Equal(t, "Line C", updated.Items[0].Name)
	assert.Equal(t, "50000", updated.Subtotal)
	assert.Equal(t, "55000", updated.TotalAmount)

	var itemCount int64
	require.NoError(t, db.Model(&model.DocumentItem{}).Count(&itemCount).Error)
	assert.EqualValues(t, 1, itemCount, "replaced items leave no orphan rows")
}

func TestDeleteDocument_RemovesItems(t *testing.T) {
	db := setupServiceDB(t)
	svc := newTestDocumentService(db)

	created, err := svc.CreateDocument(context.Background(), CreateDocumentRequest{
		DocumentType: model.DocTypeInvoice,
		IssueDate:    "2025-06-02",
		Items: []DocumentItemRequest{
			{Name: "Line A", Quantity: "1", UnitPrice: "10000"},
		},
	}, uuid.NewString())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteDocument(context.Background(), created.ID, uuid.NewString()))

	var docCount, itemCount int64
	require.NoError(t, db.Model(&model.FinancialDocument{}).Count(&docCount).Error)
	require.NoError(t, db.Model(&model.DocumentItem{}).Count(&itemCount).Error)
	assert.Zero(t, docCount)
	assert.Zero(t, itemCount)

	_, err = svc.GetDocument(context.Background(), created.ID)
	require.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestCreateDocument_RejectsNegativeAmounts(t *testing.T) {
	db := setupServiceDB(t)
	svc := newTestDocumentService(db)

	_, err := svc.CreateDocument(context.Background(), CreateDocumentRequest{
		DocumentType: model.DocTypeInvoice,
		IssueDate:    "2025-06-02",
		Items: []DocumentItemRequest{
			{Name: "Discount", Quantity: "1", UnitPrice: "-5000"},
		},
	}, uuid.NewString())
	require.ErrorIs(t, err, ErrInvalidInput)
}
