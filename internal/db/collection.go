package db

import (
	"context"
	"time"

	"github.com/ukydev/fleet-maintenance/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Transactor runs a unit of work. fn must pass the ctx it receives to every collection call
// so the writes are staged in the same transaction; they become durable only if fn returns nil.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Store groups the tenant-scoped collections behind one transactional boundary.
type Store interface {
	Transactor
	Parts() PartCollection
	Items() ItemCollection
	Transactions() TransactionCollection
	Components() ComponentCollection
	Costs() CostCollection
	Requests() RequestCollection
	Comments() CommentCollection
	Vehicles() VehicleCollection
	Users() UserCollection
}

// PartCollection defines the interface for part catalog operations.
type PartCollection interface {
	InsertPart(ctx context.Context, part *models.Part) error
	FindPartByID(ctx context.Context, tenantID string, id primitive.ObjectID) (*models.Part, error)
	FindParts(ctx context.Context, tenantID, search string) ([]models.Part, error)
	UpdatePart(ctx context.Context, part *models.Part) error
	DeletePart(ctx context.Context, tenantID string, id primitive.ObjectID) error
	// ReserveItemIdentifiers atomically advances the part's identifier counter by n
	// and returns the first identifier of the reserved range.
	ReserveItemIdentifiers(ctx context.Context, tenantID string, partID primitive.ObjectID, n int) (int, error)
}

// ItemFilter narrows item listings. TenantID is mandatory.
type ItemFilter struct {
	TenantID  string
	PartID    *primitive.ObjectID
	Status    *models.InventoryItemStatus
	VehicleID *primitive.ObjectID
}

// ItemCollection defines the interface for serialized item operations.
type ItemCollection interface {
	InsertItems(ctx context.Context, items []*models.InventoryItem) error
	FindItemByID(ctx context.Context, tenantID string, id primitive.ObjectID) (*models.InventoryItem, error)
	FindItems(ctx context.Context, filter ItemFilter) ([]models.InventoryItem, error)
	CountItems(ctx context.Context, filter ItemFilter) (int64, error)
	// UpdateItem writes the mutable fields if the stored version still equals item.Version,
	// then bumps item.Version. A stale version yields ErrConflict.
	UpdateItem(ctx context.Context, item *models.InventoryItem) error
}

// TransactionCollection is the append-only inventory movement log.
type TransactionCollection interface {
	InsertTransaction(ctx context.Context, tx *models.InventoryTransaction) error
	FindTransactionsByItem(ctx context.Context, tenantID string, itemID primitive.ObjectID) ([]models.InventoryTransaction, error)
	FindTransactionsByPart(ctx context.Context, tenantID string, partID primitive.ObjectID) ([]models.InventoryTransaction, error)
}

// ComponentCollection defines the interface for the vehicle component ledger.
type ComponentCollection interface {
	InsertComponent(ctx context.Context, component *models.VehicleComponent) error
	// DeactivateComponent closes an active episode; it reports false if nothing was active.
	DeactivateComponent(ctx context.Context, tenantID string, id primitive.ObjectID, at time.Time) (bool, error)
	FindComponentsByVehicle(ctx context.Context, tenantID string, vehicleID primitive.ObjectID, activeOnly bool) ([]models.VehicleComponent, error)
}

// CostCollection defines the interface for the vehicle cost ledger.
type CostCollection interface {
	InsertCost(ctx context.Context, cost *models.Cost) error
	FindCostsByVehicle(ctx context.Context, tenantID string, vehicleID primitive.ObjectID) ([]models.Cost, error)
}

// RequestFilter narrows maintenance request listings. TenantID is mandatory.
type RequestFilter struct {
	TenantID     string
	ReportedByID *primitive.ObjectID
}

// RequestCollection defines the interface for maintenance request operations.
type RequestCollection interface {
	InsertRequest(ctx context.Context, req *models.MaintenanceRequest) error
	FindRequestByID(ctx context.Context, tenantID string, id primitive.ObjectID) (*models.MaintenanceRequest, error)
	FindRequests(ctx context.Context, filter RequestFilter) ([]models.MaintenanceRequest, error)
	UpdateRequest(ctx context.Context, req *models.MaintenanceRequest) error
	DeleteRequest(ctx context.Context, tenantID string, id primitive.ObjectID) error
}

// CommentCollection defines the interface for maintenance comments.
type CommentCollection interface {
	InsertComment(ctx context.Context, comment *models.MaintenanceComment) error
	FindCommentsByRequest(ctx context.Context, tenantID string, requestID primitive.ObjectID) ([]models.MaintenanceComment, error)
	DeleteCommentsByRequest(ctx context.Context, tenantID string, requestID primitive.ObjectID) error
}

// VehicleCollection defines the interface for vehicle data operations.
type VehicleCollection interface {
	InsertVehicle(ctx context.Context, vehicle *models.Vehicle) error
	FindVehicleByID(ctx context.Context, tenantID string, id primitive.ObjectID) (*models.Vehicle, error)
	FindVehicles(ctx context.Context, tenantID string) ([]models.Vehicle, error)
}

// UserCollection defines the interface for user database operations
type UserCollection interface {
	InsertUser(ctx context.Context, user *models.User) error
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUsersByRole(ctx context.Context, tenantID string, roles ...models.Role) ([]models.User, error)
	UpdateUser(ctx context.Context, id string, user models.User) error
	UpdateLastLogin(ctx context.Context, id string) error
}
