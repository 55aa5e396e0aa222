package inventory

import (
	"context"
	"fmt"

	"github.com/ukydev/fleet-maintenance/internal/apperr"
	"github.com/ukydev/fleet-maintenance/internal/db"
	"github.com/ukydev/fleet-maintenance/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func validatePart(req *models.PartRequest) error {
	if req.Name == "" {
		return apperr.Invalid("part name is required")
	}
	if !models.IsValidPartCategory(req.Category) {
		return apperr.Invalid("unknown part category %q", req.Category)
	}
	if req.Value != nil && *req.Value < 0 {
		return apperr.Invalid("part value cannot be negative")
	}
	if req.MinimumStock < 0 {
		return apperr.Invalid("minimum stock cannot be negative")
	}
	return nil
}

// CreatePart adds a catalog entry and, when InitialQuantity is set, its first batch of items.
func (s *Service) CreatePart(ctx context.Context, actor *models.Claims, req *models.PartRequest) (*models.Part, []*models.InventoryItem, error) {
	if err := validatePart(req); err != nil {
		return nil, nil, err
	}
	if req.InitialQuantity < 0 {
		return nil, nil, apperr.Invalid("initial quantity cannot be negative")
	}
	part := &models.Part{ID: primitive.NewObjectID(), TenantID: actor.TenantID}
	req.Apply(part)
	if err := s.store.Parts().InsertPart(ctx, part); err != nil {
		return nil, nil, apperr.FromStore(err, "part "+part.Name)
	}
	if req.InitialQuantity == 0 {
		return part, nil, nil
	}
	items, err := s.CreateItems(ctx, actor, part, req.InitialQuantity,
		fmt.Sprintf("Initial intake of %d items", req.InitialQuantity))
	if err != nil {
		return nil, nil, err
	}
	part.Stock = len(items)
	return part, items, nil
}

// UpdatePart rewrites the editable fields of a catalog entry.
func (s *Service) UpdatePart(ctx context.Context, actor *models.Claims, partID primitive.ObjectID, req *models.PartRequest) (*models.Part, error) {
	if err := validatePart(req); err != nil {
		return nil, err
	}
	part, err := s.store.Parts().FindPartByID(ctx, actor.TenantID, partID)
	if err != nil {
		return nil, apperr.FromStore(err, "part "+partID.Hex())
	}
	req.Apply(part)
	if err := s.store.Parts().UpdatePart(ctx, part); err != nil {
		return nil, apperr.FromStore(err, "part "+partID.Hex())
	}
	if part.Stock, err = s.availableStock(ctx, actor.TenantID, partID); err != nil {
		return nil, err
	}
	return part, nil
}

// DeletePart removes a catalog entry that no item references.
func (s *Service) DeletePart(ctx context.Context, actor *models.Claims, partID primitive.ObjectID) error {
	if _, err := s.store.Parts().FindPartByID(ctx, actor.TenantID, partID); err != nil {
		return apperr.FromStore(err, "part "+partID.Hex())
	}
	n, err := s.store.Items().CountItems(ctx, db.ItemFilter{TenantID: actor.TenantID, PartID: &partID})
	if err != nil {
		return fmt.Errorf("count items of part: %w", err)
	}
	if n > 0 {
		return apperr.Conflict(nil, "part %s still has %d items", partID.Hex(), n)
	}
	return apperr.FromStore(s.store.Parts().DeletePart(ctx, actor.TenantID, partID), "part "+partID.Hex())
}

// GetPart returns a catalog entry with its available stock.
func (s *Service) GetPart(ctx context.Context, actor *models.Claims, partID primitive.ObjectID) (*models.Part, error) {
	part, err := s.store.Parts().FindPartByID(ctx, actor.TenantID, partID)
	if err != nil {
		return nil, apperr.FromStore(err, "part "+partID.Hex())
	}
	if part.Stock, err = s.availableStock(ctx, actor.TenantID, partID); err != nil {
		return nil, err
	}
	return part, nil
}

// ListParts lists the catalog by name with stock, optionally filtered by search.
func (s *Service) ListParts(ctx context.Context, actor *models.Claims, search string) ([]models.Part, error) {
	parts, err := s.store.Parts().FindParts(ctx, actor.TenantID, search)
	if err != nil {
		return nil, fmt.Errorf("list parts: %w", err)
	}
	for i := range parts {
		if parts[i].Stock, err = s.availableStock(ctx, actor.TenantID, parts[i].ID); err != nil {
			return nil, err
		}
	}
	return parts, nil
}

// StockLevel reports a part's available units and whether it is below its minimum.
type StockLevel struct {
	PartID       primitive.ObjectID `json:"part_id"`
	PartName     string             `json:"part_name"`
	Available    int                `json:"available"`
	MinimumStock int                `json:"minimum_stock"`
}

// Low reports whether the available count fell under the configured minimum.
func (l StockLevel) Low() bool {
	return l.MinimumStock > 0 && l.Available < l.MinimumStock
}

// StockLevel computes the stock level of a part.
func (s *Service) StockLevel(ctx context.Context, tenantID string, partID primitive.ObjectID) (*StockLevel, error) {
	part, err := s.store.Parts().FindPartByID(ctx, tenantID, partID)
	if err != nil {
		return nil, apperr.FromStore(err, "part "+partID.Hex())
	}
	available, err := s.availableStock(ctx, tenantID, partID)
	if err != nil {
		return nil, err
	}
	return &StockLevel{PartID: part.ID, PartName: part.Name, Available: available, MinimumStock: part.MinimumStock}, nil
}

func (s *Service) availableStock(ctx context.Context, tenantID string, partID primitive.ObjectID) (int, error) {
	status := models.StatusAvailable
	n, err := s.store.Items().CountItems(ctx, db.ItemFilter{TenantID: tenantID, PartID: &partID, Status: &status})
	if err != nil {
		return 0, fmt.Errorf("count available items: %w", err)
	}
	return int(n), nil
}
