package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type DocumentHandler struct {
	documentService service.DocumentService
}

func NewDocumentHandler(documentService service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documentService: documentService}
}

func (h *DocumentHandler) RegisterRoutes(router *gin.RouterGroup) {
	documents := router.Group("/api/documents")
	{
		documents.POST("", middleware.RequirePermission("documents.write"), h.CreateDocument)
		documents.GET("", middleware.RequirePermission("documents.read"), h.ListDocuments)
		documents.GET("/:id", middleware.RequirePermission("documents.read"), h.GetDocument)
		documents.PUT("/:id", middleware.RequirePermission("documents.write"), h.UpdateDocument)
		documents.DELETE("/:id", middleware.RequirePermission("documents.write"), h.DeleteDocument)
	}
}

// CreateDocument creates a financial document with its line items
// @Summary      Create document
// @Description  Creates an estimate/invoice/purchase order/delivery note/order confirmation; totals are derived from the items and persisted with them
// @Tags         documents
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateDocumentRequest  true  "Create Document Payload"
// @Success      201      {object}  response.Response{data=service.DocumentResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/documents [post]
func (h *DocumentHandler) CreateDocument(c *gin.Context) {
	var req service.CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Invalid(err.Error()))
		return
	}

	userID := c.GetString("userID")
	doc, err := h.documentService.CreateDocument(c.Request.Context(), req, userID)
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, doc))
}

// UpdateDocument replaces a document's items and re-derives its totals
// @Summary      Update document
// @Description  Replaces the document's entire item list; removed items are deleted and the five totals are recomputed in the same transaction
// @Tags         documents
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                         true  "Document ID"
// @Param        payload  body      service.UpdateDocumentRequest  true  "Update Document Payload"
// @Success      200      {object}  response.Response{data=service.DocumentResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/documents/{id} [put]
func (h *DocumentHandler) UpdateDocument(c *gin.Context) {
	var req service.UpdateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Invalid(err.Error()))
		return
	}

	userID := c.GetString("userID")
	doc, err := h.documentService.UpdateDocument(c.Request.Context(), c.Param("id"), req, userID)
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, doc))
}

// DeleteDocument removes a document and its items
// @Summary      Delete document
// @Tags         documents
// @Security     BearerAuth
// @Produce      json
// @Param        id  path      string  true  "Document ID"
// @Success      200 {object}  response.Response
// @Failure      404 {object}  response.Response
// @Router       /api/documents/{id} [delete]
func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	userID := c.GetString("userID")
	if err := h.documentService.DeleteDocument(c.Request.Context(), c.Param("id"), userID); err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}

// GetDocument returns one document with its items
// @Summary      Get document
// @Tags         documents
// @Security     BearerAuth
// @Produce      json
// @Param        id  path      string  true  "Document ID"
// @Success      200 {object}  response.Response{data=service.DocumentResponse}
// @Failure      404 {object}  response.Response
// @Router       /api/documents/{id} [get]
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	doc, err := h.documentService.GetDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, doc))
}

// ListDocuments returns a paginated document list
// @Summary      List documents
// @Tags         documents
// @Security     BearerAuth
// @Produce      json
// @Param        document_type    query     string  false  "Filter by type (ESTIMATE, INVOICE, PURCHASE_ORDER, DELIVERY_NOTE, ORDER_CONFIRMATION)"
// @Param        document_number  query     string  false  "Partial match on document number"
// @Param        project_id       query     string  false  "Filter by project"
// @Param        page             query     int     false  "Page number (default 1)"
// @Param        limit            query     int     false  "Items per page (default 20)"
// @Success      200              {object}  response.Response{data=object}
// @Failure      500              {object}  response.Response
// @Router       /api/documents [get]
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	params := pagination.Parse(c)

	docs, total, err := h.documentService.ListDocuments(c.Request.Context(), service.DocumentFilter{
		DocumentType:   c.Query("document_type"),
		DocumentNumber: c.Query("document_number"),
		ProjectID:      c.Query("project_id"),
		Page:           params.Page,
		Limit:          params.Limit,
	})
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"documents": docs,
		"total":     total,
		"page":      params.Page,
		"limit":     params.Limit,
	}))
}
