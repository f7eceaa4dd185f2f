package handler

import (
	"github.com/gin-gonic/gin"
	inventoryapp "github.com/medstock/backend/internal/application/inventory"
	"github.com/medstock/backend/internal/domain/shared/valueobject"
	"github.com/medstock/backend/internal/interfaces/http/router"
	"github.com/shopspring/decimal"
)

// InventoryHandler handles item, batch and stock movement endpoints
type InventoryHandler struct {
	BaseHandler
	inventoryService *inventoryapp.InventoryService
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(inventoryService *inventoryapp.InventoryService) *InventoryHandler {
	return &InventoryHandler{
		inventoryService: inventoryService,
	}
}

// ===================== Request Types =====================

// CreateItemRequest defines a new item and its first batch
type CreateItemRequest struct {
	Name            string            `json:"name" binding:"required,notblank" example:"Paracetamol 500mg"`
	Category        string            `json:"category" binding:"required" example:"Medication"`
	Unit            string            `json:"unit" binding:"required,notblank" example:"boxes"`
	MinThreshold    decimal.Decimal   `json:"min_threshold" example:"20"`
	Notes           string            `json:"notes"`
	OriginCountry   string            `json:"origin_country" example:"India"`
	InitialQuantity int64             `json:"initial_quantity" example:"100"`
	ExpiryDate      *valueobject.Date `json:"expiry_date" example:"2026-03-31"`
	Supplier        string            `json:"supplier" example:"MedSupply Co."`
	BatchNotes      string            `json:"batch_notes"`
}

// UpdateItemRequest replaces an item's definition. Batches are untouched.
type UpdateItemRequest struct {
	Name          string          `json:"name" binding:"required,notblank"`
	Category      string          `json:"category" binding:"required"`
	Unit          string          `json:"unit" binding:"required,notblank"`
	MinThreshold  decimal.Decimal `json:"min_threshold"`
	Notes         string          `json:"notes"`
	OriginCountry string          `json:"origin_country"`
}

// AddBatchRequest receives stock into a new batch
type AddBatchRequest struct {
	Quantity   int64             `json:"quantity" example:"50"`
	ExpiryDate *valueobject.Date `json:"expiry_date" example:"2026-06-30"`
	Supplier   string            `json:"supplier"`
	Notes      string            `json:"notes"`
}

// ConsumeRequest takes stock out for internal use
type ConsumeRequest struct {
	Quantity int64  `json:"quantity" example:"5"`
	Reason   string `json:"reason" binding:"required,notblank" example:"Ward restock"`
	Strategy string `json:"strategy" example:"fefo"`
}

// ReleaseRequest hands stock over to a recipient
type ReleaseRequest struct {
	Quantity  int64             `json:"quantity" example:"10"`
	Recipient string            `json:"recipient" binding:"required,notblank" example:"District Clinic"`
	Reason    string            `json:"reason"`
	Date      *valueobject.Date `json:"date" example:"2025-01-31"`
	Strategy  string            `json:"strategy"`
}

// BulkReleaseEntryRequest is one line of a bulk release
type BulkReleaseEntryRequest struct {
	ItemID   string `json:"item_id"`
	Quantity int64  `json:"quantity"`
}

// BulkReleaseRequest releases several items under one voucher
type BulkReleaseRequest struct {
	Recipient string                    `json:"recipient" binding:"required,notblank"`
	Reason    string                    `json:"reason"`
	Date      *valueobject.Date         `json:"date"`
	Strategy  string                    `json:"strategy"`
	Entries   []BulkReleaseEntryRequest `json:"entries" binding:"required,min=1"`
}

// BulkAddEntryRequest is one line of a bulk add
type BulkAddEntryRequest struct {
	ItemID     string            `json:"item_id"`
	Quantity   int64             `json:"quantity"`
	ExpiryDate *valueobject.Date `json:"expiry_date"`
	Supplier   string            `json:"supplier"`
	Notes      string            `json:"notes"`
}

// BulkAddRequest adds one batch per entry
type BulkAddRequest struct {
	Entries []BulkAddEntryRequest `json:"entries" binding:"required,min=1"`
}

// ListItemsQuery filters the item list
type ListItemsQuery struct {
	Category       string `form:"category"`
	Search         string `form:"search"`
	BelowThreshold bool   `form:"below_threshold"`
}

// ExpiringQuery selects the look-ahead window for expiring batches
type ExpiringQuery struct {
	WithinDays *int `form:"within_days"`
}

// DefaultExpiringWindowDays is used when within_days is omitted
const DefaultExpiringWindowDays = 30

// optionalDate treats an empty JSON date ("") like an absent one
func optionalDate(d *valueobject.Date) *valueobject.Date {
	if d == nil || d.IsZero() {
		return nil
	}
	return d
}

// RegisterRoutes mounts the inventory endpoints under /inventory
func (h *InventoryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	h.Routes().RegisterRoutes(rg)
}

// Routes declares the inventory route group
func (h *InventoryHandler) Routes() *router.DomainGroup {
	group := router.NewDomainGroup("inventory", "/inventory")
	group.GET("/items", h.ListItems).
		POST("/items", h.CreateItem).
		GET("/items/:id", h.GetItem).
		PUT("/items/:id", h.UpdateItem).
		DELETE("/items/:id", h.DeleteItem).
		POST("/items/:id/batches", h.AddBatch).
		POST("/items/:id/consume", h.Consume).
		POST("/items/:id/release", h.Release).
		GET("/batches/expiring", h.ListExpiring).
		GET("/strategies", h.ListStrategies)
	group.Group("bulk", "/bulk").
		POST("/release", h.BulkRelease).
		POST("/add", h.BulkAdd)
	return group
}

// ListItems godoc
// @ID           listInventoryItems
// @Summary      List inventory items
// @Tags         inventory
// @Produce      json
// @Param        category query string false "Category"
// @Param        search query string false "Case-insensitive name search"
// @Param        below_threshold query bool false "Only items below their reorder threshold"
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Router       /inventory/items [get]
func (h *InventoryHandler) ListItems(c *gin.Context) {
	var q ListItemsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.InvalidBody(c, err)
		return
	}

	items, err := h.inventoryService.ListItems(c.Request.Context(), inventoryapp.ListFilter{
		Category:       q.Category,
		Search:         q.Search,
		BelowThreshold: q.BelowThreshold,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, items)
}

// CreateItem godoc
// @ID           createInventoryItem
// @Summary      Create an item with its initial batch
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        request body CreateItemRequest true "Item definition and initial stock"
// @Success      201 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Router       /inventory/items [post]
func (h *InventoryHandler) CreateItem(c *gin.Context) {
	var req CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.InvalidBody(c, err)
		return
	}

	item, err := h.inventoryService.CreateItem(c.Request.Context(), inventoryapp.CreateItemInput{
		Name:            req.Name,
		Category:        req.Category,
		Unit:            req.Unit,
		MinThreshold:    req.MinThreshold,
		Notes:           req.Notes,
		OriginCountry:   req.OriginCountry,
		InitialQuantity: req.InitialQuantity,
		ExpiryDate:      optionalDate(req.ExpiryDate),
		Supplier:        req.Supplier,
		BatchNotes:      req.BatchNotes,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, item)
}

// GetItem godoc
// @ID           getInventoryItem
// @Summary      Get an item with its batches
// @Tags         inventory
// @Produce      json
// @Param        id path string true "Item ID"
// @Success      200 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Router       /inventory/items/{id} [get]
func (h *InventoryHandler) GetItem(c *gin.Context) {
	item, err := h.inventoryService.GetItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

// UpdateItem godoc
// @ID           updateInventoryItem
// @Summary      Replace an item's definition
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        id path string true "Item ID"
// @Param        request body UpdateItemRequest true "New definition"
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Router       /inventory/items/{id} [put]
func (h *InventoryHandler) UpdateItem(c *gin.Context) {
	var req UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.InvalidBody(c, err)
		return
	}

	item, err := h.inventoryService.UpdateItem(c.Request.Context(), c.Param("id"), inventoryapp.UpdateItemInput{
		Name:          req.Name,
		Category:      req.Category,
		Unit:          req.Unit,
		MinThreshold:  req.MinThreshold,
		Notes:         req.Notes,
		OriginCountry: req.OriginCountry,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

// DeleteItem godoc
// @ID           deleteInventoryItem
// @Summary      Delete an item and all its batches
// @Tags         inventory
// @Param        id path string true "Item ID"
// @Success      204
// @Failure      404 {object} dto.Response
// @Router       /inventory/items/{id} [delete]
func (h *InventoryHandler) DeleteItem(c *gin.Context) {
	if err := h.inventoryService.DeleteItem(c.Request.Context(), c.Param("id")); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// AddBatch godoc
// @ID           addInventoryBatch
// @Summary      Receive stock into a new batch
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        id path string true "Item ID"
// @Param        request body AddBatchRequest true "Batch"
// @Success      201 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Router       /inventory/items/{id}/batches [post]
func (h *InventoryHandler) AddBatch(c *gin.Context) {
	var req AddBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.InvalidBody(c, err)
		return
	}

	item, err := h.inventoryService.AddBatch(c.Request.Context(), c.Param("id"), inventoryapp.AddBatchInput{
		Quantity:   req.Quantity,
		ExpiryDate: optionalDate(req.ExpiryDate),
		Supplier:   req.Supplier,
		Notes:      req.Notes,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, item)
}

// Consume godoc
// @ID           consumeInventoryStock
// @Summary      Take stock out for internal use
// @Description  Depletes batches in strategy order (FEFO by default)
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        id path string true "Item ID"
// @Param        request body ConsumeRequest true "Quantity and reason"
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Router       /inventory/items/{id}/consume [post]
func (h *InventoryHandler) Consume(c *gin.Context) {
	var req ConsumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.InvalidBody(c, err)
		return
	}

	result, err := h.inventoryService.ConsumeStock(c.Request.Context(), c.Param("id"), inventoryapp.ConsumeInput{
		Quantity: req.Quantity,
		Reason:   req.Reason,
		Strategy: req.Strategy,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Release godoc
// @ID           releaseInventoryStock
// @Summary      Release stock to a recipient
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        id path string true "Item ID"
// @Param        request body ReleaseRequest true "Quantity and recipient"
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Router       /inventory/items/{id}/release [post]
func (h *InventoryHandler) Release(c *gin.Context) {
	var req ReleaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.InvalidBody(c, err)
		return
	}

	result, err := h.inventoryService.ReleaseStock(c.Request.Context(), c.Param("id"), inventoryapp.ReleaseInput{
		Quantity:  req.Quantity,
		Recipient: req.Recipient,
		Reason:    req.Reason,
		Date:      optionalDate(req.Date),
		Strategy:  req.Strategy,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// BulkRelease godoc
// @ID           bulkReleaseInventory
// @Summary      Release several items under one voucher
// @Description  Entries are independent; failures are listed in errors and the call still answers 200
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        request body BulkReleaseRequest true "Recipient and entries"
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Router       /inventory/bulk/release [post]
func (h *InventoryHandler) BulkRelease(c *gin.Context) {
	var req BulkReleaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.InvalidBody(c, err)
		return
	}

	entries := make([]inventoryapp.BulkReleaseEntry, len(req.Entries))
	for i, e := range req.Entries {
		entries[i] = inventoryapp.BulkReleaseEntry{ItemID: e.ItemID, Quantity: e.Quantity}
	}
	result, err := h.inventoryService.BulkRelease(c.Request.Context(), inventoryapp.BulkReleaseInput{
		Recipient: req.Recipient,
		Reason:    req.Reason,
		Date:      optionalDate(req.Date),
		Strategy:  req.Strategy,
		Entries:   entries,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// BulkAdd godoc
// @ID           bulkAddInventory
// @Summary      Add one batch to each listed item
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        request body BulkAddRequest true "Entries"
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Router       /inventory/bulk/add [post]
func (h *InventoryHandler) BulkAdd(c *gin.Context) {
	var req BulkAddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.InvalidBody(c, err)
		return
	}

	entries := make([]inventoryapp.BulkAddEntry, len(req.Entries))
	for i, e := range req.Entries {
		entries[i] = inventoryapp.BulkAddEntry{
			ItemID:     e.ItemID,
			Quantity:   e.Quantity,
			ExpiryDate: optionalDate(e.ExpiryDate),
			Supplier:   e.Supplier,
			Notes:      e.Notes,
		}
	}
	result, err := h.inventoryService.BulkAdd(c.Request.Context(), inventoryapp.BulkAddInput{Entries: entries})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ListExpiring godoc
// @ID           listExpiringBatches
// @Summary      List batches expiring soon
// @Description  Batches with stock expiring within within_days of today, expired ones included and flagged
// @Tags         inventory
// @Produce      json
// @Param        within_days query int false "Look-ahead window in days" default(30)
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Router       /inventory/batches/expiring [get]
func (h *InventoryHandler) ListExpiring(c *gin.Context) {
	var q ExpiringQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.InvalidBody(c, err)
		return
	}
	days := DefaultExpiringWindowDays
	if q.WithinDays != nil {
		days = *q.WithinDays
	}

	batches, err := h.inventoryService.ListExpiringBatches(c.Request.Context(), days)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, batches)
}

// ListStrategies godoc
// @ID           listDepletionStrategies
// @Summary      List depletion strategies
// @Tags         inventory
// @Produce      json
// @Success      200 {object} dto.Response
// @Router       /inventory/strategies [get]
func (h *InventoryHandler) ListStrategies(c *gin.Context) {
	h.Success(c, h.inventoryService.ListStrategies())
}
