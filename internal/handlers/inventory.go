package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-maintenance/internal/db"
	"github.com/ukydev/fleet-maintenance/internal/inventory"
	"github.com/ukydev/fleet-maintenance/internal/metrics"
	"github.com/ukydev/fleet-maintenance/internal/models"
	"github.com/ukydev/fleet-maintenance/internal/notify"
	"github.com/ukydev/fleet-maintenance/internal/reports"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// InventoryHandler serves the part catalog, items and vehicle ledgers.
type InventoryHandler struct {
	store    db.Store
	inv      *inventory.Service
	notifier Notifier
	log      *logrus.Entry
}

// NewInventoryHandler creates an inventory handler.
func NewInventoryHandler(store db.Store, inv *inventory.Service, notifier Notifier, log *logrus.Entry) *InventoryHandler {
	return &InventoryHandler{store: store, inv: inv, notifier: notifier, log: log.WithField("component", "inventory_http")}
}

// CreatePart adds a catalog entry, optionally with its first batch of items.
func (h *InventoryHandler) CreatePart(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}
	var in models.PartRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, h.log, err)
		return
	}

	var part *models.Part
	err = unitOfWork(r.Context(), h.store, h.log, "create_part", func(ctx context.Context) error {
		var err error
		part, _, err = h.inv.CreatePart(ctx, actor, &in)
		return err
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	h.log.WithFields(logrus.Fields{"part": part.ID.Hex(), "items": part.Stock}).Info("part created")
	writeJSON(w, http.StatusCreated, part)
}

// ListParts lists the catalog, filtered by ?search=.
func (h *InventoryHandler) ListParts(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}
	parts, err := h.inv.ListParts(r.Context(), actor, r.URL.Query().Get("search"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, parts)
}

// GetPart returns one catalog entry with its stock.
func (h *InventoryHandler) GetPart(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}
	partID, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	part, err := h.inv.GetPart(r.Context(), actor, partID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, part)
}

// UpdatePart rewrites a catalog entry.
func (h *InventoryHandler) UpdatePart(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}
	partID, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	var in models.PartRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, h.log, err)
		return
	}

	var part *models.Part
	err = unitOfWork(r.Context(), h.store, h.log, "update_part", func(ctx context.Context) error {
		var err error
		part, err = h.inv.UpdatePart(ctx, actor, partID, &in)
		return err
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	lowStockCheck(r.Context(), h.inv, h.notifier, h.log, actor.TenantID, partID)
	writeJSON(w, http.StatusOK, part)
}

// DeletePart removes a catalog entry without items.
func (h *InventoryHandler) DeletePart(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}
	partID, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	err = unitOfWork(r.Context(), h.store, h.log, "delete_part", func(ctx context.Context) error {
		return h.inv.DeletePart(ctx, actor, partID)
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddItems receives a batch of new units of a part.
func (h *InventoryHandler) AddItems(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}
	partID, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	var in models.AddItemsRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, h.log, err)
		return
	}

	var items []*models.InventoryItem
	err = unitOfWork(r.Context(), h.store, h.log, "add_items", func(ctx context.Context) error {
		var err error
		items, err = h.inv.AddItems(ctx, actor, partID, in.Quantity, in.Notes)
		return err
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	h.log.WithFields(logrus.Fields{
		"part":  partID.Hex(),
		"count": len(items),
		"first": items[0].ItemIdentifier,
		"last":  items[len(items)-1].ItemIdentifier,
	}).Info("items received")
	writeJSON(w, http.StatusCreated, items)
}

// ExportTransactions streams a part's movement log as an xlsx workbook.
func (h *InventoryHandler) ExportTransactions(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}
	partID, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	part, txs, err := h.inv.PartTransactions(r.Context(), actor, partID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	items, err := h.inv.ListItems(r.Context(), actor, inventory.ItemQuery{PartID: &partID})
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	var buf bytes.Buffer
	if err := reports.TransactionLog(&buf, part, items, txs); err != nil {
		writeError(w, h.log, fmt.Errorf("render transaction log: %w", err))
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="part-%s-transactions.xlsx"`, partID.Hex()))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// ListItems lists items, filtered by ?status=, ?part_id= and ?vehicle_id=.
func (h *InventoryHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}
	q := inventory.ItemQuery{Status: models.InventoryItemStatus(r.URL.Query().Get("status"))}
	if q.PartID, err = queryID(r, "part_id"); err != nil {
		writeError(w, h.log, err)
		return
	}
	if q.VehicleID, err = queryID(r, "vehicle_id"); err != nil {
		writeError(w, h.log, err)
		return
	}
	items, err := h.inv.ListItems(r.Context(), actor, q)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// GetItem returns an item with its part and history.
func (h *InventoryHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}
	itemID, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	details, err := h.inv.GetItemDetails(r.Context(), actor, itemID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

// ChangeItemStatus moves an item through the lifecycle.
func (h *InventoryHandler) ChangeItemStatus(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}
	itemID, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	var in models.StatusChangeRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, h.log, err)
		return
	}

	var result *inventory.TransitionResult
	err = unitOfWork(r.Context(), h.store, h.log, "change_item_status", func(ctx context.Context) error {
		var err error
		result, err = h.inv.ChangeStatus(ctx, actor, itemID, in.Status, inventory.ChangeOptions{
			VehicleID: in.VehicleID,
			Notes:     in.Notes,
		})
		return err
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	recordTransition(h.log, result)
	if result.From == models.StatusAvailable {
		lowStockCheck(r.Context(), h.inv, h.notifier, h.log, actor.TenantID, result.Item.PartID)
	}
	writeJSON(w, http.StatusOK, result.Item)
}

// recordTransition counts and logs a transition that is now durable.
func recordTransition(log *logrus.Entry, result *inventory.TransitionResult) {
	metrics.ItemTransitions.WithLabelValues(string(result.From), string(result.Item.Status)).Inc()
	fields := logrus.Fields{
		"item": result.Item.ID.Hex(),
		"part": result.Item.PartID.Hex(),
		"from": result.From,
		"to":   result.Item.Status,
	}
	if v := result.Transaction.RelatedVehicleID; v != nil {
		fields["vehicle"] = v.Hex()
	}
	log.WithFields(fields).Info("item transition committed")
}

// lowStockCheck warns the managers when a part dropped below its minimum. Runs after commit.
func lowStockCheck(ctx context.Context, inv *inventory.Service, notifier Notifier, log *logrus.Entry, tenantID string, partID primitive.ObjectID) {
	level, err := inv.StockLevel(ctx, tenantID, partID)
	if err != nil {
		log.WithError(err).WithField("part", partID.Hex()).Warn("stock check failed")
		return
	}
	if !level.Low() {
		return
	}
	if !notifier.Enqueue(notify.LowStock(tenantID, partID, level.PartName, level.Available, level.MinimumStock)) {
		log.WithField("part", partID.Hex()).Warn("low stock notification dropped")
	}
}

type vehicleCreate struct {
	Type         string `json:"type" validate:"omitempty,oneof=ICE EV"`
	Make         string `json:"make" validate:"max=60"`
	Model        string `json:"model" validate:"max=60"`
	Year         int    `json:"year" validate:"omitempty,gte=1900,lte=2100"`
	LicensePlate string `json:"license_plate" validate:"required,max=16"`
	Status       string `json:"status" validate:"omitempty,oneof=active inactive"`
}

// CreateVehicle registers a vehicle.
func (h *InventoryHandler) CreateVehicle(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}
	var in vehicleCreate
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, h.log, err)
		return
	}
	vehicle := &models.Vehicle{
		Type:         in.Type,
		Make:         in.Make,
		Model:        in.Model,
		Year:         in.Year,
		LicensePlate: in.LicensePlate,
		Status:       in.Status,
	}
	err = unitOfWork(r.Context(), h.store, h.log, "create_vehicle", func(ctx context.Context) error {
		return h.inv.CreateVehicle(ctx, actor, vehicle)
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, vehicle)
}

// ListVehicles lists the fleet.
func (h *InventoryHandler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}
	vehicles, err := h.inv.ListVehicles(r.Context(), actor)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicles)
}

// VehicleComponents lists installation episodes, only open ones with ?active=true.
func (h *InventoryHandler) VehicleComponents(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}
	vehicleID, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	activeOnly, _ := strconv.ParseBool(r.URL.Query().Get("active"))
	components, err := h.inv.VehicleComponents(r.Context(), actor, vehicleID, activeOnly)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, components)
}

// VehicleCosts lists the cost ledger of a vehicle.
func (h *InventoryHandler) VehicleCosts(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}
	vehicleID, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	costs, err := h.inv.VehicleCosts(r.Context(), actor, vehicleID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, costs)
}
