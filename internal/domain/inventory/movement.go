package inventory

import (
	"github.com/google/uuid"
	"github.com/medstock/backend/internal/domain/shared/valueobject"
)

// Direction of a stock movement
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// MovementKind identifies one of the six ledger events
type MovementKind string

const (
	MovementInitialStock     MovementKind = "initial_stock"
	MovementStockAddition    MovementKind = "stock_addition"
	MovementBulkAddStock     MovementKind = "bulk_add_stock"
	MovementStockOut         MovementKind = "stock_out"
	MovementStockRelease     MovementKind = "stock_release"
	MovementBulkStockRelease MovementKind = "bulk_stock_release"
)

// IsValid checks if the kind is known
func (k MovementKind) IsValid() bool {
	return k.Tag() != ""
}

// Direction returns whether the kind adds or removes stock
func (k MovementKind) Direction() Direction {
	switch k {
	case MovementStockOut, MovementStockRelease, MovementBulkStockRelease:
		return DirectionOut
	default:
		return DirectionIn
	}
}

// Tag returns the label used inside ledger note brackets
func (k MovementKind) Tag() string {
	switch k {
	case MovementInitialStock:
		return "Initial Stock"
	case MovementStockAddition:
		return "Stock Addition"
	case MovementBulkAddStock:
		return "Bulk Add Stock"
	case MovementStockOut:
		return "Stock Out"
	case MovementStockRelease:
		return "Stock Release"
	case MovementBulkStockRelease:
		return "Bulk Stock Release"
	}
	return ""
}

// Movement is the structured record of one quantity change on one batch.
// It is written alongside the human-readable note line.
type Movement struct {
	ID        string           `json:"id"`
	Kind      MovementKind     `json:"kind"`
	Date      valueobject.Date `json:"date"`
	Quantity  int64            `json:"quantity"`
	Unit      string           `json:"unit"`
	BatchID   string           `json:"batch_id"`
	Recipient string           `json:"recipient,omitempty"`
	Reason    string           `json:"reason,omitempty"`
	VoucherID string           `json:"voucher_id,omitempty"`
}

// forBatch returns a copy of the template bound to a batch and quantity
func (m Movement) forBatch(batchID string, quantity int64) Movement {
	m.ID = uuid.NewString()
	m.BatchID = batchID
	m.Quantity = quantity
	return m
}
