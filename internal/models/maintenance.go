package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaintenanceStatus is the lifecycle state of a maintenance request.
type MaintenanceStatus string

const (
	MaintenancePending    MaintenanceStatus = "PENDENTE"
	MaintenanceApproved   MaintenanceStatus = "APROVADA"
	MaintenanceRejected   MaintenanceStatus = "REJEITADA"
	MaintenanceInProgress MaintenanceStatus = "EM_ANDAMENTO"
	MaintenanceCompleted  MaintenanceStatus = "CONCLUIDA"
)

// IsValidMaintenanceStatus checks a status against the known vocabulary.
func IsValidMaintenanceStatus(s MaintenanceStatus) bool {
	switch s {
	case MaintenancePending, MaintenanceApproved, MaintenanceRejected, MaintenanceInProgress, MaintenanceCompleted:
		return true
	default:
		return false
	}
}

// MaintenanceCategory is the kind of problem reported.
type MaintenanceCategory string

const (
	CategoryMechanical MaintenanceCategory = "MECANICA"
	CategoryElectrical MaintenanceCategory = "ELETRICA"
	CategoryBodywork   MaintenanceCategory = "FUNILARIA"
	CategoryOther      MaintenanceCategory = "OUTRO"
)

// IsValidMaintenanceCategory checks a category against the known vocabulary.
func IsValidMaintenanceCategory(c MaintenanceCategory) bool {
	switch c {
	case CategoryMechanical, CategoryElectrical, CategoryBodywork, CategoryOther:
		return true
	default:
		return false
	}
}

// MaintenanceRequest is a ticket raised by a driver against a vehicle and resolved by a manager.
type MaintenanceRequest struct {
	ID                 primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	TenantID           string               `json:"tenant_id" bson:"tenant_id"`
	VehicleID          primitive.ObjectID   `json:"vehicle_id" bson:"vehicle_id"`
	ProblemDescription string               `json:"problem_description" bson:"problem_description"`
	Category           MaintenanceCategory  `json:"category" bson:"category"`
	Status             MaintenanceStatus    `json:"status" bson:"status"`
	ReportedByID       primitive.ObjectID   `json:"reported_by_id" bson:"reported_by_id"`
	ApproverID         *primitive.ObjectID  `json:"approver_id,omitempty" bson:"approver_id,omitempty"`
	ManagerNotes       string               `json:"manager_notes,omitempty" bson:"manager_notes,omitempty"`
	Comments           []MaintenanceComment `json:"comments,omitempty" bson:"-"`
	CreatedAt          time.Time            `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at" bson:"updated_at"`
}

// MaintenanceComment is a note attached to a request.
type MaintenanceComment struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	TenantID    string             `json:"tenant_id" bson:"tenant_id"`
	RequestID   primitive.ObjectID `json:"request_id" bson:"request_id"`
	UserID      primitive.ObjectID `json:"user_id" bson:"user_id"`
	CommentText string             `json:"comment_text" bson:"comment_text"`
	FileURL     string             `json:"file_url,omitempty" bson:"file_url,omitempty"`
	System      bool               `json:"system" bson:"system"` // generated by a workflow, e.g. component replacement
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
}

// MaintenanceRequestCreate is the payload a driver submits.
type MaintenanceRequestCreate struct {
	VehicleID          primitive.ObjectID  `json:"vehicle_id" validate:"required"`
	ProblemDescription string              `json:"problem_description" validate:"required,max=2000"`
	Category           MaintenanceCategory `json:"category" validate:"required"`
}

// MaintenanceStatusUpdate is the payload a manager submits to move a request.
type MaintenanceStatusUpdate struct {
	Status       MaintenanceStatus `json:"status" validate:"required"`
	ManagerNotes string            `json:"manager_notes,omitempty"`
}

// MaintenanceCommentCreate is the payload of a new comment.
type MaintenanceCommentCreate struct {
	CommentText string `json:"comment_text" validate:"required,max=4000"`
	FileURL     string `json:"file_url,omitempty"`
}

// ReplaceComponentRequest swaps an installed item for an available one.
// OldItemStatus defaults to FIM_DE_VIDA.
type ReplaceComponentRequest struct {
	OldItemID     primitive.ObjectID  `json:"old_item_id" validate:"required"`
	NewItemID     primitive.ObjectID  `json:"new_item_id" validate:"required"`
	OldItemStatus InventoryItemStatus `json:"old_item_status,omitempty"`
	Notes         string              `json:"notes,omitempty"`
}
