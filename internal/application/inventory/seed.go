package inventory

import (
	"context"

	"github.com/medstock/backend/internal/domain/inventory"
	"github.com/medstock/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type seedBatch struct {
	quantity int64
	// expiry offset in days from today; nil means no expiry
	expiresIn *int
	// days before today the batch was received
	receivedAgo int
	supplier    string
}

type seedItem struct {
	name      string
	category  inventory.Category
	unit      string
	threshold string
	origin    string
	batches   []seedBatch
}

func days(n int) *int { return &n }

var seedCatalogue = []seedItem{
	{
		name: "Paracetamol 500mg", category: inventory.CategoryMedication, unit: "boxes", threshold: "20", origin: "India",
		batches: []seedBatch{
			{quantity: 40, expiresIn: days(25), receivedAgo: 120, supplier: "MedSupply Co."},
			{quantity: 60, expiresIn: days(300), receivedAgo: 10, supplier: "MedSupply Co."},
		},
	},
	{
		name: "Amoxicillin 250mg", category: inventory.CategoryMedication, unit: "boxes", threshold: "15", origin: "Germany",
		batches: []seedBatch{
			{quantity: 12, expiresIn: days(-5), receivedAgo: 400, supplier: "PharmaLink"},
			{quantity: 30, expiresIn: days(180), receivedAgo: 30, supplier: "PharmaLink"},
		},
	},
	{
		name: "Sterile Gauze 10x10cm", category: inventory.CategoryConsumable, unit: "packs", threshold: "50", origin: "China",
		batches: []seedBatch{
			{quantity: 35, expiresIn: days(720), receivedAgo: 60, supplier: "CareWrap Ltd."},
		},
	},
	{
		name: "Nitrile Gloves (M)", category: inventory.CategoryPPE, unit: "boxes", threshold: "25.5", origin: "Malaysia",
		batches: []seedBatch{
			{quantity: 80, expiresIn: days(540), receivedAgo: 45, supplier: "SafeHands"},
		},
	},
	{
		name: "Digital Thermometer", category: inventory.CategoryEquipment, unit: "units", threshold: "5", origin: "Japan",
		batches: []seedBatch{
			{quantity: 8, receivedAgo: 200, supplier: "ClinTech"},
		},
	},
	{
		name: "Blood Collection Tubes", category: inventory.CategoryLaboratory, unit: "racks", threshold: "10", origin: "USA",
		batches: []seedBatch{
			{quantity: 6, expiresIn: days(14), receivedAgo: 90, supplier: "LabLine"},
		},
	},
}

func buildSeedItem(s seedItem, today valueobject.Date, svc *InventoryService) (*inventory.Item, error) {
	def := inventory.Definition{
		Name:          s.name,
		Category:      s.category,
		Unit:          s.unit,
		MinThreshold:  decimal.RequireFromString(s.threshold),
		OriginCountry: s.origin,
	}

	batches := make([]*inventory.Batch, 0, len(s.batches))
	for _, sb := range s.batches {
		var expiry *valueobject.Date
		if sb.expiresIn != nil {
			d := today.AddDays(*sb.expiresIn)
			expiry = &d
		}
		received := today.AddDays(-sb.receivedAgo)
		b, err := inventory.NewBatch(sb.quantity, expiry, sb.supplier, received)
		if err != nil {
			return nil, err
		}
		kind := inventory.MovementStockAddition
		if len(batches) == 0 {
			kind = inventory.MovementInitialStock
		}
		if err := b.Receive(kind, received, s.unit, "Sample data."); err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}

	item, err := inventory.NewItem(def, batches[0], svc.now())
	if err != nil {
		return nil, err
	}
	for _, b := range batches[1:] {
		if err := item.AddBatch(b, svc.now()); err != nil {
			return nil, err
		}
	}
	return item, nil
}

// SeedIfEmpty loads the sample catalogue the first time the ledger starts.
// A persisted sentinel prevents reseeding; an existing collection is never overwritten.
// It returns the number of items written.
func (s *InventoryService) SeedIfEmpty(ctx context.Context) (int, error) {
	seeded, err := s.repo.IsSeeded(ctx)
	if err != nil {
		return 0, err
	}
	if seeded {
		return 0, nil
	}

	existing, err := s.repo.FindAll(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		s.log(ctx).Info("Inventory already populated, skipping seed", zap.Int("items", len(existing)))
		return 0, s.repo.MarkSeeded(ctx)
	}

	today := s.Today()
	items := make([]*inventory.Item, 0, len(seedCatalogue))
	for _, entry := range seedCatalogue {
		item, err := buildSeedItem(entry, today, s)
		if err != nil {
			return 0, err
		}
		items = append(items, item)
	}
	if err := s.repo.SaveAll(ctx, items); err != nil {
		return 0, err
	}
	if err := s.repo.MarkSeeded(ctx); err != nil {
		return 0, err
	}

	s.log(ctx).Info("Seeded sample inventory", zap.Int("items", len(items)))
	return len(items), nil
}
