package inventory

import (
	"context"
	"fmt"

	"github.com/ukydev/fleet-maintenance/internal/apperr"
	"github.com/ukydev/fleet-maintenance/internal/db"
	"github.com/ukydev/fleet-maintenance/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const defaultIntakeNote = "New item intake"

// CreateItems stages quantity new DISPONIVEL items of part, numbered from the part's
// counter, each with one ENTRADA transaction.
func (s *Service) CreateItems(ctx context.Context, actor *models.Claims, part *models.Part, quantity int, notes string) ([]*models.InventoryItem, error) {
	if quantity <= 0 {
		return nil, apperr.Invalid("quantity must be positive, got %d", quantity)
	}
	if part.TenantID != actor.TenantID {
		return nil, apperr.NotFound("part %s not found", part.ID.Hex())
	}
	first, err := s.store.Parts().ReserveItemIdentifiers(ctx, actor.TenantID, part.ID, quantity)
	if err != nil {
		return nil, apperr.FromStore(err, "part "+part.ID.Hex())
	}
	part.LastItemIdentifier = first + quantity - 1

	items := make([]*models.InventoryItem, quantity)
	for i := range items {
		items[i] = &models.InventoryItem{
			ID:             primitive.NewObjectID(),
			TenantID:       actor.TenantID,
			PartID:         part.ID,
			ItemIdentifier: first + i,
			Status:         models.StatusAvailable,
		}
	}
	if err := s.store.Items().InsertItems(ctx, items); err != nil {
		return nil, apperr.FromStore(err, "items of part "+part.ID.Hex())
	}

	if notes == "" {
		notes = defaultIntakeNote
	}
	at := s.now()
	userID := actor.UserObjectID()
	for _, item := range items {
		tx := &models.InventoryTransaction{
			ID:        primitive.NewObjectID(),
			TenantID:  actor.TenantID,
			ItemID:    item.ID,
			PartID:    part.ID,
			UserID:    userID,
			Type:      models.TxIntake,
			Notes:     notes,
			Timestamp: at,
		}
		if err := s.store.Transactions().InsertTransaction(ctx, tx); err != nil {
			return nil, fmt.Errorf("append intake transaction: %w", err)
		}
	}
	return items, nil
}

// AddItems loads a part of the organization and creates quantity items for it.
func (s *Service) AddItems(ctx context.Context, actor *models.Claims, partID primitive.ObjectID, quantity int, notes string) ([]*models.InventoryItem, error) {
	part, err := s.store.Parts().FindPartByID(ctx, actor.TenantID, partID)
	if err != nil {
		return nil, apperr.FromStore(err, "part "+partID.Hex())
	}
	return s.CreateItems(ctx, actor, part, quantity, notes)
}

// ItemQuery filters ListItems. Zero fields match everything.
type ItemQuery struct {
	Status    models.InventoryItemStatus
	PartID    *primitive.ObjectID
	VehicleID *primitive.ObjectID
}

// ListItems lists the organization's items ordered by part and identifier.
func (s *Service) ListItems(ctx context.Context, actor *models.Claims, q ItemQuery) ([]models.InventoryItem, error) {
	filter := db.ItemFilter{TenantID: actor.TenantID, PartID: q.PartID, VehicleID: q.VehicleID}
	if q.Status != "" {
		if !models.IsValidItemStatus(q.Status) {
			return nil, apperr.Invalid("unknown item status %q", q.Status)
		}
		status := q.Status
		filter.Status = &status
	}
	items, err := s.store.Items().FindItems(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

// GetItemDetails returns an item with its part and full history.
func (s *Service) GetItemDetails(ctx context.Context, actor *models.Claims, itemID primitive.ObjectID) (*models.ItemDetails, error) {
	item, err := s.store.Items().FindItemByID(ctx, actor.TenantID, itemID)
	if err != nil {
		return nil, apperr.FromStore(err, "item "+itemID.Hex())
	}
	part, err := s.store.Parts().FindPartByID(ctx, actor.TenantID, item.PartID)
	if err != nil {
		return nil, apperr.FromStore(err, "part "+item.PartID.Hex())
	}
	txs, err := s.store.Transactions().FindTransactionsByItem(ctx, actor.TenantID, item.ID)
	if err != nil {
		return nil, fmt.Errorf("load item history: %w", err)
	}
	return &models.ItemDetails{InventoryItem: *item, Part: *part, Transactions: txs}, nil
}

// PartTransactions returns the whole movement log of a part, oldest first.
func (s *Service) PartTransactions(ctx context.Context, actor *models.Claims, partID primitive.ObjectID) (*models.Part, []models.InventoryTransaction, error) {
	part, err := s.store.Parts().FindPartByID(ctx, actor.TenantID, partID)
	if err != nil {
		return nil, nil, apperr.FromStore(err, "part "+partID.Hex())
	}
	txs, err := s.store.Transactions().FindTransactionsByPart(ctx, actor.TenantID, partID)
	if err != nil {
		return nil, nil, fmt.Errorf("load part history: %w", err)
	}
	return part, txs, nil
}
