package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	inventoryapp "github.com/medstock/backend/internal/application/inventory"
	"github.com/medstock/backend/internal/domain/inventory"
	"github.com/medstock/backend/internal/infrastructure/cache"
	"github.com/medstock/backend/internal/infrastructure/persistence"
	"github.com/medstock/backend/internal/infrastructure/strategy"
	"github.com/medstock/backend/internal/interfaces/http/dto"
	"github.com/medstock/backend/internal/interfaces/http/middleware"
	"github.com/medstock/backend/internal/interfaces/http/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var apiNow = time.Date(2025, 1, 31, 10, 0, 0, 0, time.UTC)

type envelope[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data"`
	Error   *dto.ErrorInfo `json:"error"`
}

type api struct {
	engine *gin.Engine
}

func newAPI(t *testing.T) *api {
	t.Helper()
	middleware.SetupValidator()

	repo := persistence.NewItemCollectionRepository(cache.NewMemoryStore(), "")
	registry, err := strategy.NewRegistryWithDefaults(inventory.StrategyFEFO)
	require.NoError(t, err)
	svc := inventoryapp.NewInventoryService(repo, persistence.NewLockingTransactionScope(repo), zap.NewNop(),
		inventoryapp.WithClock(func() time.Time { return apiNow }),
		inventoryapp.WithLocation(time.UTC),
		inventoryapp.WithStrategies(registry),
	)

	engine := gin.New()
	engine.Use(middleware.RequestID())
	router.NewRouter(engine).
		Register(NewInventoryHandler(svc), NewReportHandler(svc)).
		Setup()
	return &api{engine: engine}
}

func (a *api) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

// createItem posts an item whose first batch holds qty units expiring on expiry ("" for none)
func (a *api) createItem(t *testing.T, name string, qty int64, expiry string) inventoryapp.ItemResponse {
	t.Helper()
	body := gin.H{
		"name":             name,
		"category":         "medication",
		"unit":             "boxes",
		"min_threshold":    "5",
		"initial_quantity": qty,
		"supplier":         "MedSupply",
	}
	if expiry != "" {
		body["expiry_date"] = expiry
	}
	w := a.do(t, http.MethodPost, "/api/v1/inventory/items", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[inventoryapp.ItemResponse](t, w).Data
}

func (a *api) addBatch(t *testing.T, itemID string, qty int64, expiry string) {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/v1/inventory/items/"+itemID+"/batches", gin.H{
		"quantity":    qty,
		"expiry_date": expiry,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func (a *api) getItem(t *testing.T, itemID string) inventoryapp.ItemResponse {
	t.Helper()
	w := a.do(t, http.MethodGet, "/api/v1/inventory/items/"+itemID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	return decode[inventoryapp.ItemResponse](t, w).Data
}

func TestInventoryHandler_CreateItem(t *testing.T) {
	t.Run("creates an item with its initial batch", func(t *testing.T) {
		a := newAPI(t)
		item := a.createItem(t, "Paracetamol 500mg", 40, "2025-06-30")

		assert.NotEmpty(t, item.ID)
		assert.Equal(t, int64(40), item.TotalQuantity)
		require.Len(t, item.Batches, 1)
		assert.Equal(t, "2025-06-30", item.Batches[0].ExpiryDate.String())
		assert.True(t, strings.HasPrefix(item.Batches[0].Notes, "[Initial Stock - 2025-01-31]: Added 40 boxes."))
		require.NotNil(t, item.SoonestExpiry)
		assert.Equal(t, "2025-06-30", item.SoonestExpiry.String())
	})

	t.Run("rejects a zero initial quantity", func(t *testing.T) {
		a := newAPI(t)
		w := a.do(t, http.MethodPost, "/api/v1/inventory/items", gin.H{
			"name": "Gauze", "category": "consumable", "unit": "packs", "initial_quantity": 0,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_QUANTITY", decode[any](t, w).Error.Code)
	})

	t.Run("reports missing fields by json name", func(t *testing.T) {
		a := newAPI(t)
		w := a.do(t, http.MethodPost, "/api/v1/inventory/items", gin.H{
			"category": "consumable", "unit": "packs", "initial_quantity": 3,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		env := decode[any](t, w)
		assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
		require.Len(t, env.Error.Details, 1)
		assert.Equal(t, "name", env.Error.Details[0].Field)
		assert.NotEmpty(t, env.Error.RequestID)
	})

	t.Run("rejects an unknown category", func(t *testing.T) {
		a := newAPI(t)
		w := a.do(t, http.MethodPost, "/api/v1/inventory/items", gin.H{
			"name": "Widget", "category": "furniture", "unit": "pcs", "initial_quantity": 1,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "VALIDATION_ERROR", decode[any](t, w).Error.Code)
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		a := newAPI(t)
		w := a.do(t, http.MethodPost, "/api/v1/inventory/items", `{"name": `)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "VALIDATION_ERROR", decode[any](t, w).Error.Code)
	})
}

func TestInventoryHandler_ItemLifecycle(t *testing.T) {
	a := newAPI(t)
	item := a.createItem(t, "Amoxicillin 250mg", 12, "")

	t.Run("get returns the stored item", func(t *testing.T) {
		got := a.getItem(t, item.ID)
		assert.Equal(t, "Amoxicillin 250mg", got.Name)
		assert.Nil(t, got.SoonestExpiry)
	})

	t.Run("update replaces the definition and keeps batches", func(t *testing.T) {
		w := a.do(t, http.MethodPut, "/api/v1/inventory/items/"+item.ID, gin.H{
			"name": "Amoxicillin 500mg", "category": "medication", "unit": "boxes", "min_threshold": 20,
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		got := decode[inventoryapp.ItemResponse](t, w).Data
		assert.Equal(t, "Amoxicillin 500mg", got.Name)
		assert.Equal(t, int64(12), got.TotalQuantity)
		assert.True(t, got.BelowThreshold)
	})

	t.Run("list filters by below_threshold", func(t *testing.T) {
		a.createItem(t, "Nitrile Gloves", 80, "")
		w := a.do(t, http.MethodGet, "/api/v1/inventory/items?below_threshold=true", nil)
		require.Equal(t, http.StatusOK, w.Code)
		items := decode[[]inventoryapp.ItemResponse](t, w).Data
		require.Len(t, items, 1)
		assert.Equal(t, item.ID, items[0].ID)
	})

	t.Run("list filters by search", func(t *testing.T) {
		w := a.do(t, http.MethodGet, "/api/v1/inventory/items?search=glove", nil)
		items := decode[[]inventoryapp.ItemResponse](t, w).Data
		require.Len(t, items, 1)
		assert.Equal(t, "Nitrile Gloves", items[0].Name)
	})

	t.Run("delete removes the item", func(t *testing.T) {
		w := a.do(t, http.MethodDelete, "/api/v1/inventory/items/"+item.ID, nil)
		assert.Equal(t, http.StatusNoContent, w.Code)

		w = a.do(t, http.MethodGet, "/api/v1/inventory/items/"+item.ID, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "NOT_FOUND", decode[any](t, w).Error.Code)
	})
}

func TestInventoryHandler_Release(t *testing.T) {
	t.Run("depletes the soonest expiring batch first", func(t *testing.T) {
		a := newAPI(t)
		item := a.createItem(t, "Paracetamol", 10, "2025-06-30")
		a.addBatch(t, item.ID, 5, "2025-03-01")

		w := a.do(t, http.MethodPost, "/api/v1/inventory/items/"+item.ID+"/release", gin.H{
			"quantity": 8, "recipient": "District Clinic",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		res := decode[inventoryapp.DepletionResult](t, w).Data

		require.Len(t, res.Plan.Allocations, 2)
		assert.Equal(t, "2025-03-01", res.Plan.Allocations[0].ExpiryDate.String())
		assert.Equal(t, int64(5), res.Plan.Allocations[0].Quantity)
		assert.Equal(t, int64(3), res.Plan.Allocations[1].Quantity)
		assert.Equal(t, int64(7), res.Item.TotalQuantity)
	})

	t.Run("insufficient stock answers 422 and changes nothing", func(t *testing.T) {
		a := newAPI(t)
		item := a.createItem(t, "Paracetamol", 10, "2025-06-30")

		w := a.do(t, http.MethodPost, "/api/v1/inventory/items/"+item.ID+"/release", gin.H{
			"quantity": 11, "recipient": "District Clinic",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "INSUFFICIENT_STOCK", decode[any](t, w).Error.Code)
		assert.Equal(t, int64(10), a.getItem(t, item.ID).TotalQuantity)
	})

	t.Run("blank recipient is a validation error", func(t *testing.T) {
		a := newAPI(t)
		item := a.createItem(t, "Paracetamol", 10, "")
		w := a.do(t, http.MethodPost, "/api/v1/inventory/items/"+item.ID+"/release", gin.H{
			"quantity": 1, "recipient": "  ",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "VALIDATION_ERROR", decode[any](t, w).Error.Code)
	})

	t.Run("negative quantity is invalid", func(t *testing.T) {
		a := newAPI(t)
		item := a.createItem(t, "Paracetamol", 10, "")
		w := a.do(t, http.MethodPost, "/api/v1/inventory/items/"+item.ID+"/release", gin.H{
			"quantity": -2, "recipient": "Ward 3",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_QUANTITY", decode[any](t, w).Error.Code)
	})

	t.Run("unknown item is 404", func(t *testing.T) {
		a := newAPI(t)
		w := a.do(t, http.MethodPost, "/api/v1/inventory/items/missing/release", gin.H{
			"quantity": 1, "recipient": "Ward 3",
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestInventoryHandler_Consume(t *testing.T) {
	a := newAPI(t)
	item := a.createItem(t, "Gauze", 10, "")

	t.Run("requires a reason", func(t *testing.T) {
		w := a.do(t, http.MethodPost, "/api/v1/inventory/items/"+item.ID+"/consume", gin.H{"quantity": 2})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "VALIDATION_ERROR", decode[any](t, w).Error.Code)
	})

	t.Run("takes stock out with the requested strategy", func(t *testing.T) {
		w := a.do(t, http.MethodPost, "/api/v1/inventory/items/"+item.ID+"/consume", gin.H{
			"quantity": 2, "reason": "Dressing change", "strategy": "fifo",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		res := decode[inventoryapp.DepletionResult](t, w).Data
		assert.Equal(t, "fifo", res.Plan.Strategy)
		assert.Equal(t, int64(8), res.Item.TotalQuantity)
	})

	t.Run("unknown strategy is a validation error", func(t *testing.T) {
		w := a.do(t, http.MethodPost, "/api/v1/inventory/items/"+item.ID+"/consume", gin.H{
			"quantity": 1, "reason": "x", "strategy": "lifo",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestInventoryHandler_Bulk(t *testing.T) {
	t.Run("bulk release answers 200 with per-entry errors", func(t *testing.T) {
		a := newAPI(t)
		first := a.createItem(t, "Paracetamol", 10, "2025-06-30")
		second := a.createItem(t, "Gauze", 3, "")

		w := a.do(t, http.MethodPost, "/api/v1/inventory/bulk/release", gin.H{
			"recipient": "Field Hospital",
			"date":      "2025-01-30",
			"entries": []gin.H{
				{"item_id": first.ID, "quantity": 4},
				{"item_id": second.ID, "quantity": 999999},
			},
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		env := decode[inventoryapp.BulkReleaseResult](t, w)
		assert.True(t, env.Success)

		res := env.Data
		assert.False(t, res.Success)
		assert.True(t, strings.HasPrefix(res.VoucherID, "BRV-20250130-"))
		require.Len(t, res.ProcessedItems, 1)
		assert.Equal(t, first.ID, res.ProcessedItems[0].ItemID)
		require.Len(t, res.Errors, 1)
		assert.Equal(t, 1, res.Errors[0].Index)
		assert.Equal(t, "INSUFFICIENT_STOCK", res.Errors[0].Code)

		assert.Equal(t, int64(6), a.getItem(t, first.ID).TotalQuantity)
		assert.Equal(t, int64(3), a.getItem(t, second.ID).TotalQuantity)
	})

	t.Run("bulk release without entries is rejected", func(t *testing.T) {
		a := newAPI(t)
		w := a.do(t, http.MethodPost, "/api/v1/inventory/bulk/release", gin.H{
			"recipient": "Field Hospital", "entries": []gin.H{},
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("bulk add tags each new batch", func(t *testing.T) {
		a := newAPI(t)
		item := a.createItem(t, "Paracetamol", 10, "")

		w := a.do(t, http.MethodPost, "/api/v1/inventory/bulk/add", gin.H{
			"entries": []gin.H{
				{"item_id": item.ID, "quantity": 6, "expiry_date": "2026-01-01", "notes": "Donation"},
				{"item_id": "", "quantity": 1},
			},
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		res := decode[inventoryapp.BulkAddResult](t, w).Data
		assert.False(t, res.Success)
		require.Len(t, res.UpdatedItems, 1)
		require.Len(t, res.Errors, 1)
		assert.Equal(t, "VALIDATION_ERROR", res.Errors[0].Code)

		got := a.getItem(t, item.ID)
		assert.Equal(t, int64(16), got.TotalQuantity)
		require.Len(t, got.Batches, 2)
		assert.Equal(t, 1, strings.Count(got.Batches[1].Notes, "Bulk Add Stock"))
	})
}

func TestInventoryHandler_ListExpiring(t *testing.T) {
	a := newAPI(t)
	item := a.createItem(t, "Blood Tubes", 6, "2025-02-14")
	a.addBatch(t, item.ID, 4, "2025-12-31")

	t.Run("defaults to a 30 day window", func(t *testing.T) {
		w := a.do(t, http.MethodGet, "/api/v1/inventory/batches/expiring", nil)
		require.Equal(t, http.StatusOK, w.Code)
		batches := decode[[]inventoryapp.ExpiringBatch](t, w).Data
		require.Len(t, batches, 1)
		assert.Equal(t, 14, batches[0].DaysUntilExpiry)
		assert.False(t, batches[0].Expired)
	})

	t.Run("honours within_days", func(t *testing.T) {
		w := a.do(t, http.MethodGet, "/api/v1/inventory/batches/expiring?within_days=365", nil)
		batches := decode[[]inventoryapp.ExpiringBatch](t, w).Data
		require.Len(t, batches, 2)
		assert.Equal(t, "2025-02-14", batches[0].ExpiryDate.String())
	})

	t.Run("rejects a negative window", func(t *testing.T) {
		w := a.do(t, http.MethodGet, "/api/v1/inventory/batches/expiring?within_days=-1", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestInventoryHandler_ListStrategies(t *testing.T) {
	a := newAPI(t)

	w := a.do(t, http.MethodGet, "/api/v1/inventory/strategies", nil)
	require.Equal(t, http.StatusOK, w.Code)
	strategies := decode[[]inventoryapp.StrategyInfo](t, w).Data
	require.Len(t, strategies, 2)
	assert.Equal(t, "fefo", strategies[0].Name)
	assert.True(t, strategies[0].Default)
	assert.Equal(t, "fifo", strategies[1].Name)
	assert.False(t, strategies[1].Default)
	assert.NotEmpty(t, strategies[1].Description)
}

func TestReportHandler_Movements(t *testing.T) {
	a := newAPI(t)
	item := a.createItem(t, "Paracetamol", 10, "2025-06-30")
	a.addBatch(t, item.ID, 5, "2025-03-01")
	w := a.do(t, http.MethodPost, "/api/v1/inventory/items/"+item.ID+"/release", gin.H{
		"quantity": 8, "recipient": "District Clinic",
	})
	require.Equal(t, http.StatusOK, w.Code)

	for _, source := range []string{"notes", "ledger"} {
		t.Run("aggregates today's movements from "+source, func(t *testing.T) {
			w := a.do(t, http.MethodGet, "/api/v1/reports/movements?start=2025-01-31&end=2025-01-31&source="+source, nil)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			report := decode[inventory.MovementReport](t, w).Data
			assert.Equal(t, int64(15), report.Summary.QuantityIn)
			assert.Equal(t, int64(8), report.Summary.QuantityOut)
			assert.Equal(t, int64(7), report.Summary.NetChange)
			require.Len(t, report.Items, 1)
		})
	}

	t.Run("a range before any movement is empty", func(t *testing.T) {
		w := a.do(t, http.MethodGet, "/api/v1/reports/movements?start=2024-01-01&end=2024-12-31", nil)
		require.Equal(t, http.StatusOK, w.Code)
		report := decode[inventory.MovementReport](t, w).Data
		assert.Zero(t, report.Summary.QuantityIn)
	})

	tests := []struct {
		name  string
		query string
	}{
		{"missing end", "start=2025-01-01"},
		{"malformed start", "start=01/01/2025&end=2025-01-31"},
		{"start after end", "start=2025-02-01&end=2025-01-31"},
		{"unknown source", "start=2025-01-01&end=2025-01-31&source=audit"},
	}
	for _, tt := range tests {
		t.Run("rejects "+tt.name, func(t *testing.T) {
			w := a.do(t, http.MethodGet, "/api/v1/reports/movements?"+tt.query, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "VALIDATION_ERROR", decode[any](t, w).Error.Code)
		})
	}
}
