package maintenance

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-maintenance/internal/apperr"
	"github.com/ukydev/fleet-maintenance/internal/inventory"
	"github.com/ukydev/fleet-maintenance/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReplaceResult is what a component replacement staged.
type ReplaceResult struct {
	Request   *models.MaintenanceRequest  `json:"-"`
	Comment   *models.MaintenanceComment  `json:"new_comment"`
	Removed   *inventory.TransitionResult `json:"removed"`
	Installed *inventory.TransitionResult `json:"installed"`
}

// ReplaceComponent removes an installed item from the request's vehicle and installs an
// available one in its place, then records an audit comment on the request.
//
// Nothing is committed here. The caller must run it inside one unit of work so a failure
// at any step leaves neither item changed and no comment behind.
func (s *Service) ReplaceComponent(ctx context.Context, actor *models.Claims, requestID primitive.ObjectID, in *models.ReplaceComponentRequest) (*ReplaceResult, error) {
	target := in.OldItemStatus
	if target == "" {
		target = models.StatusEndOfLife
	}

	req, err := s.store.Requests().FindRequestByID(ctx, actor.TenantID, requestID)
	if err != nil {
		return nil, apperr.FromStore(err, "maintenance request "+requestID.Hex())
	}
	if req.VehicleID.IsZero() {
		return nil, apperr.PreconditionFailed("maintenance request %s has no vehicle", requestID.Hex())
	}

	oldItem, oldPart, err := s.loadItem(ctx, actor, in.OldItemID, "old")
	if err != nil {
		return nil, err
	}
	if oldItem.Status != models.StatusInUse {
		return nil, apperr.PreconditionFailed("old item %s is %s, expected %s",
			in.OldItemID.Hex(), oldItem.Status, models.StatusInUse)
	}
	if oldItem.InstalledOnVehicleID == nil || *oldItem.InstalledOnVehicleID != req.VehicleID {
		return nil, apperr.PreconditionFailed("old item %s is not installed on vehicle %s of request %s",
			in.OldItemID.Hex(), req.VehicleID.Hex(), requestID.Hex())
	}
	newItem, newPart, err := s.loadItem(ctx, actor, in.NewItemID, "new")
	if err != nil {
		return nil, err
	}
	if newItem.Status != models.StatusAvailable {
		return nil, apperr.PreconditionFailed("new item %s is %s, expected %s",
			in.NewItemID.Hex(), newItem.Status, models.StatusAvailable)
	}

	vehicleID := req.VehicleID
	removed, err := s.inventory.Transition(ctx, actor, oldItem, target, inventory.ChangeOptions{
		VehicleID: &vehicleID,
		Notes:     replacementNote("Removed", requestID, in.Notes),
	})
	if err != nil {
		return nil, err
	}
	installed, err := s.inventory.Transition(ctx, actor, newItem, models.StatusInUse, inventory.ChangeOptions{
		VehicleID: &vehicleID,
		Notes:     replacementNote("Installed", requestID, in.Notes),
	})
	if err != nil {
		return nil, err
	}

	text := fmt.Sprintf("Component replacement performed by %s:\n- [OUT] %s (item #%d) | Status: %s\n- [IN] %s (item #%d) | Status: %s",
		actor.Username,
		oldPart.Name, oldItem.ItemIdentifier, oldItem.Status,
		newPart.Name, newItem.ItemIdentifier, newItem.Status)
	comment, err := s.insertComment(ctx, actor, req, text, "", true)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"request":  requestID.Hex(),
		"vehicle":  vehicleID.Hex(),
		"old_item": oldItem.ID.Hex(),
		"new_item": newItem.ID.Hex(),
	}).Debug("component replacement staged")

	return &ReplaceResult{Request: req, Comment: comment, Removed: removed, Installed: installed}, nil
}

func (s *Service) loadItem(ctx context.Context, actor *models.Claims, itemID primitive.ObjectID, role string) (*models.InventoryItem, *models.Part, error) {
	item, err := s.store.Items().FindItemByID(ctx, actor.TenantID, itemID)
	if err != nil {
		return nil, nil, apperr.FromStore(err, role+" item "+itemID.Hex())
	}
	part, err := s.store.Parts().FindPartByID(ctx, actor.TenantID, item.PartID)
	if err != nil {
		return nil, nil, apperr.FromStore(err, "part "+item.PartID.Hex())
	}
	return item, part, nil
}

func replacementNote(verb string, requestID primitive.ObjectID, notes string) string {
	return strings.TrimSpace(fmt.Sprintf("%s via request #%s. %s", verb, requestID.Hex(), notes))
}
