package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PartCategory groups catalog entries.
type PartCategory string

const (
	PartCategoryPart       PartCategory = "PECA"
	PartCategoryFluid      PartCategory = "FLUIDO"
	PartCategoryConsumable PartCategory = "CONSUMIVEL"
	PartCategoryTire       PartCategory = "PNEU"
	PartCategoryOther      PartCategory = "OUTRO"
)

// IsValidPartCategory checks a category against the catalog vocabulary.
func IsValidPartCategory(c PartCategory) bool {
	switch c {
	case PartCategoryPart, PartCategoryFluid, PartCategoryConsumable, PartCategoryTire, PartCategoryOther:
		return true
	default:
		return false
	}
}

// Part is a catalog template. Physical units are InventoryItems.
type Part struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	TenantID     string             `json:"tenant_id" bson:"tenant_id"`
	Name         string             `json:"name" bson:"name"`
	Category     PartCategory       `json:"category" bson:"category"`
	Brand        string             `json:"brand,omitempty" bson:"brand,omitempty"`
	PartNumber   string             `json:"part_number,omitempty" bson:"part_number,omitempty"`
	Location     string             `json:"location,omitempty" bson:"location,omitempty"`
	Notes        string             `json:"notes,omitempty" bson:"notes,omitempty"`
	Value        *float64           `json:"value,omitempty" bson:"value,omitempty"`
	MinimumStock int                `json:"minimum_stock" bson:"minimum_stock"`
	LifespanKM   *int               `json:"lifespan_km,omitempty" bson:"lifespan_km,omitempty"`
	PhotoURL     string             `json:"photo_url,omitempty" bson:"photo_url,omitempty"`
	InvoiceURL   string             `json:"invoice_url,omitempty" bson:"invoice_url,omitempty"`

	// LastItemIdentifier is the per-part counter behind InventoryItem.ItemIdentifier.
	LastItemIdentifier int `json:"last_item_identifier" bson:"last_item_identifier"`

	Stock     int       `json:"stock" bson:"-"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// HasValue reports whether installing the part accrues a cost.
func (p *Part) HasValue() bool {
	return p.Value != nil && *p.Value > 0
}

// PartRequest is the create/update payload of a catalog entry.
type PartRequest struct {
	Name            string       `json:"name" validate:"required,max=120"`
	Category        PartCategory `json:"category" validate:"required"`
	Brand           string       `json:"brand,omitempty"`
	PartNumber      string       `json:"part_number,omitempty"`
	Location        string       `json:"location,omitempty"`
	Notes           string       `json:"notes,omitempty"`
	Value           *float64     `json:"value,omitempty" validate:"omitempty,gte=0"`
	MinimumStock    int          `json:"minimum_stock" validate:"gte=0"`
	LifespanKM      *int         `json:"lifespan_km,omitempty" validate:"omitempty,gte=0"`
	PhotoURL        string       `json:"photo_url,omitempty"`
	InvoiceURL      string       `json:"invoice_url,omitempty"`
	InitialQuantity int          `json:"initial_quantity,omitempty" validate:"gte=0,lte=1000"`
}

// Apply copies the editable fields onto p.
func (r *PartRequest) Apply(p *Part) {
	p.Name = r.Name
	p.Category = r.Category
	p.Brand = r.Brand
	p.PartNumber = r.PartNumber
	p.Location = r.Location
	p.Notes = r.Notes
	p.Value = r.Value
	p.MinimumStock = r.MinimumStock
	p.LifespanKM = r.LifespanKM
	p.PhotoURL = r.PhotoURL
	p.InvoiceURL = r.InvoiceURL
}

// AddItemsRequest adds units to an existing part.
type AddItemsRequest struct {
	Quantity int    `json:"quantity" validate:"required,gt=0,lte=1000"`
	Notes    string `json:"notes,omitempty"`
}

// StatusChangeRequest moves one item through the lifecycle.
type StatusChangeRequest struct {
	Status    InventoryItemStatus `json:"new_status" validate:"required"`
	VehicleID *primitive.ObjectID `json:"vehicle_id,omitempty"`
	Notes     string              `json:"notes,omitempty"`
}

// InventoryItemStatus is the lifecycle state of one physical unit.
type InventoryItemStatus string

const (
	StatusAvailable InventoryItemStatus = "DISPONIVEL"
	StatusInUse     InventoryItemStatus = "EM_USO"
	StatusEndOfLife InventoryItemStatus = "FIM_DE_VIDA"
	// StatusMaintenance is accepted as input but no transition reaches or leaves it.
	StatusMaintenance InventoryItemStatus = "MANUTENCAO"
)

// IsValidItemStatus checks a status against the enumeration (reachable or not).
func IsValidItemStatus(s InventoryItemStatus) bool {
	switch s {
	case StatusAvailable, StatusInUse, StatusEndOfLife, StatusMaintenance:
		return true
	default:
		return false
	}
}

// InventoryItem is one serialized unit of a Part.
type InventoryItem struct {
	ID                   primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	TenantID             string              `json:"tenant_id" bson:"tenant_id"`
	PartID               primitive.ObjectID  `json:"part_id" bson:"part_id"`
	ItemIdentifier       int                 `json:"item_identifier" bson:"item_identifier"`
	Status               InventoryItemStatus `json:"status" bson:"status"`
	InstalledOnVehicleID *primitive.ObjectID `json:"installed_on_vehicle_id,omitempty" bson:"installed_on_vehicle_id,omitempty"`
	InstalledAt          *time.Time          `json:"installed_at,omitempty" bson:"installed_at,omitempty"`
	ActiveComponentID    *primitive.ObjectID `json:"active_component_id,omitempty" bson:"active_component_id,omitempty"`
	Version              int64               `json:"version" bson:"version"`
	CreatedAt            time.Time           `json:"created_at" bson:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at" bson:"updated_at"`
}

// TransactionType tags an inventory movement.
type TransactionType string

const (
	TxIntake       TransactionType = "ENTRADA"
	TxInstallation TransactionType = "INSTALACAO"
	TxRemoval      TransactionType = "SAIDA_USO"
	TxEndOfLife    TransactionType = "FIM_DE_VIDA"
)

// InventoryTransaction is an append-only movement log row.
type InventoryTransaction struct {
	ID               primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	TenantID         string              `json:"tenant_id" bson:"tenant_id"`
	ItemID           primitive.ObjectID  `json:"item_id" bson:"item_id"`
	PartID           primitive.ObjectID  `json:"part_id" bson:"part_id"`
	UserID           primitive.ObjectID  `json:"user_id" bson:"user_id"`
	Type             TransactionType     `json:"transaction_type" bson:"transaction_type"`
	RelatedVehicleID *primitive.ObjectID `json:"related_vehicle_id,omitempty" bson:"related_vehicle_id,omitempty"`
	Notes            string              `json:"notes,omitempty" bson:"notes,omitempty"`
	Timestamp        time.Time           `json:"timestamp" bson:"timestamp"`
}

// ItemDetails is an item with its template and full movement history.
type ItemDetails struct {
	InventoryItem
	Part         Part                   `json:"part"`
	Transactions []InventoryTransaction `json:"transactions"`
}
