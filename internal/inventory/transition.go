package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-maintenance/internal/apperr"
	"github.com/ukydev/fleet-maintenance/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChangeOptions carries the optional inputs of a status change.
type ChangeOptions struct {
	VehicleID *primitive.ObjectID
	Notes     string
}

// TransitionResult describes everything one status change staged.
type TransitionResult struct {
	Item        *models.InventoryItem        `json:"item"`
	From        models.InventoryItemStatus   `json:"from"`
	Transaction *models.InventoryTransaction `json:"transaction"`
	// Component is the episode opened by an installation or closed by a disposal.
	Component *models.VehicleComponent `json:"component,omitempty"`
	Cost      *models.Cost             `json:"cost,omitempty"`
}

// transition is the working state shared by the steps of one status change.
type transition struct {
	actor   *models.Claims
	item    *models.InventoryItem
	target  models.InventoryItemStatus
	txType  models.TransactionType
	opts    ChangeOptions
	at      time.Time
	vehicle *primitive.ObjectID // vehicle recorded on the log row
	closing *primitive.ObjectID // component to deactivate
	result  *TransitionResult
}

type step func(s *Service, ctx context.Context, t *transition) error

type edge struct {
	from, to models.InventoryItemStatus
}

type rule struct {
	txType models.TransactionType
	steps  []step
}

// transitions is the complete legality table. Absent edges are rejected.
var transitions = map[edge]rule{
	{models.StatusAvailable, models.StatusInUse}: {
		txType: models.TxInstallation,
		steps:  []step{(*Service).mount, (*Service).saveItem, (*Service).appendTransaction, (*Service).openComponent, (*Service).accrueCost},
	},
	{models.StatusAvailable, models.StatusEndOfLife}: {
		txType: models.TxEndOfLife,
		steps:  []step{(*Service).unmount, (*Service).saveItem, (*Service).appendTransaction, (*Service).closeComponent},
	},
	{models.StatusInUse, models.StatusEndOfLife}: {
		txType: models.TxEndOfLife,
		steps:  []step{(*Service).unmount, (*Service).saveItem, (*Service).appendTransaction, (*Service).closeComponent},
	},
}

// CanTransition reports whether the table allows from -> to.
func CanTransition(from, to models.InventoryItemStatus) bool {
	_, ok := transitions[edge{from, to}]
	return ok
}

// ChangeStatus loads an item of the actor's organization and moves it to target.
func (s *Service) ChangeStatus(ctx context.Context, actor *models.Claims, itemID primitive.ObjectID, target models.InventoryItemStatus, opts ChangeOptions) (*TransitionResult, error) {
	item, err := s.store.Items().FindItemByID(ctx, actor.TenantID, itemID)
	if err != nil {
		return nil, apperr.FromStore(err, "item "+itemID.Hex())
	}
	return s.Transition(ctx, actor, item, target, opts)
}

// Transition applies the state machine to an already loaded item. item is updated in place.
func (s *Service) Transition(ctx context.Context, actor *models.Claims, item *models.InventoryItem, target models.InventoryItemStatus, opts ChangeOptions) (*TransitionResult, error) {
	if !models.IsValidItemStatus(target) {
		return nil, apperr.Invalid("unknown item status %q", target)
	}
	r, ok := transitions[edge{item.Status, target}]
	if !ok {
		return nil, apperr.InvalidTransition("item %s (#%d) cannot change from %s to %s",
			item.ID.Hex(), item.ItemIdentifier, item.Status, target)
	}
	if r.txType == "" {
		return nil, fmt.Errorf("transition %s -> %s has no log category", item.Status, target)
	}

	t := &transition{
		actor:  actor,
		item:   item,
		target: target,
		txType: r.txType,
		opts:   opts,
		at:     s.now(),
		result: &TransitionResult{Item: item, From: item.Status},
	}
	for _, apply := range r.steps {
		if err := apply(s, ctx, t); err != nil {
			return nil, err
		}
	}

	s.log.WithFields(logrus.Fields{
		"item":    item.ID.Hex(),
		"part":    item.PartID.Hex(),
		"from":    t.result.From,
		"to":      target,
		"vehicle": vehicleHex(t.vehicle),
	}).Debug("item transition staged")
	return t.result, nil
}

// mount links the item to a vehicle of the organization.
func (s *Service) mount(ctx context.Context, t *transition) error {
	if t.opts.VehicleID == nil || t.opts.VehicleID.IsZero() {
		return apperr.Invalid("a vehicle is required to install item %s", t.item.ID.Hex())
	}
	vehicleID := *t.opts.VehicleID
	if _, err := s.store.Vehicles().FindVehicleByID(ctx, t.actor.TenantID, vehicleID); err != nil {
		return apperr.FromStore(err, "vehicle "+vehicleID.Hex())
	}
	componentID := primitive.NewObjectID()
	at := t.at
	t.item.Status = t.target
	t.item.InstalledOnVehicleID = &vehicleID
	t.item.InstalledAt = &at
	t.item.ActiveComponentID = &componentID
	t.vehicle = &vehicleID
	return nil
}

// unmount detaches the item from whatever vehicle it was on.
func (s *Service) unmount(_ context.Context, t *transition) error {
	t.vehicle = t.opts.VehicleID
	if t.vehicle == nil {
		t.vehicle = t.item.InstalledOnVehicleID
	}
	t.closing = t.item.ActiveComponentID
	t.item.Status = t.target
	t.item.InstalledOnVehicleID = nil
	t.item.InstalledAt = nil
	t.item.ActiveComponentID = nil
	return nil
}

func (s *Service) saveItem(ctx context.Context, t *transition) error {
	return apperr.FromStore(s.store.Items().UpdateItem(ctx, t.item), "item "+t.item.ID.Hex())
}

func (s *Service) appendTransaction(ctx context.Context, t *transition) error {
	tx := &models.InventoryTransaction{
		ID:               primitive.NewObjectID(),
		TenantID:         t.actor.TenantID,
		ItemID:           t.item.ID,
		PartID:           t.item.PartID,
		UserID:           t.actor.UserObjectID(),
		Type:             t.txType,
		RelatedVehicleID: t.vehicle,
		Notes:            t.opts.Notes,
		Timestamp:        t.at,
	}
	if err := s.store.Transactions().InsertTransaction(ctx, tx); err != nil {
		return fmt.Errorf("append %s transaction: %w", tx.Type, err)
	}
	t.result.Transaction = tx
	return nil
}

// openComponent starts the installation episode the item now points at.
func (s *Service) openComponent(ctx context.Context, t *transition) error {
	component := &models.VehicleComponent{
		ID:               *t.item.ActiveComponentID,
		TenantID:         t.actor.TenantID,
		VehicleID:        *t.vehicle,
		PartID:           t.item.PartID,
		ItemID:           t.item.ID,
		TransactionID:    t.result.Transaction.ID,
		IsActive:         true,
		InstallationDate: t.at,
	}
	if err := s.store.Components().InsertComponent(ctx, component); err != nil {
		return fmt.Errorf("open vehicle component: %w", err)
	}
	t.result.Component = component
	return nil
}

// closeComponent ends the episode the item pointed at. Items never installed have none.
func (s *Service) closeComponent(ctx context.Context, t *transition) error {
	if t.closing == nil {
		return nil
	}
	closed, err := s.store.Components().DeactivateComponent(ctx, t.actor.TenantID, *t.closing, t.at)
	if err != nil {
		return fmt.Errorf("close vehicle component: %w", err)
	}
	if closed {
		at := t.at
		t.result.Component = &models.VehicleComponent{
			ID:                 *t.closing,
			TenantID:           t.actor.TenantID,
			PartID:             t.item.PartID,
			ItemID:             t.item.ID,
			UninstallationDate: &at,
		}
		if t.vehicle != nil {
			t.result.Component.VehicleID = *t.vehicle
		}
	}
	return nil
}

// accrueCost books the part's unit value against the vehicle.
func (s *Service) accrueCost(ctx context.Context, t *transition) error {
	part, err := s.store.Parts().FindPartByID(ctx, t.actor.TenantID, t.item.PartID)
	if err != nil {
		return apperr.FromStore(err, "part "+t.item.PartID.Hex())
	}
	if !part.HasValue() {
		return nil
	}
	itemID := t.item.ID
	cost := &models.Cost{
		ID:          primitive.NewObjectID(),
		TenantID:    t.actor.TenantID,
		VehicleID:   *t.vehicle,
		Category:    models.CostParts,
		Description: fmt.Sprintf("Installation: %s (item #%d)", part.Name, t.item.ItemIdentifier),
		Amount:      *part.Value,
		Date:        t.at,
		ItemID:      &itemID,
	}
	if err := s.store.Costs().InsertCost(ctx, cost); err != nil {
		return fmt.Errorf("accrue installation cost: %w", err)
	}
	t.result.Cost = cost
	return nil
}

func vehicleHex(id *primitive.ObjectID) string {
	if id == nil {
		return ""
	}
	return id.Hex()
}
