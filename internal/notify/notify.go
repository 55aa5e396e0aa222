// Package notify delivers notifications outside the request's unit of work.
// Nothing here can fail a committed inventory or maintenance operation.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/ukydev/fleet-maintenance/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Type tags a notification.
type Type string

const (
	TypeRequestNew          Type = "maintenance_request_new"
	TypeRequestStatusUpdate Type = "maintenance_request_status_update"
	TypeRequestNewComment   Type = "maintenance_request_new_comment"
	TypeLowStock            Type = "low_stock"
)

// Notification is routed either to one user or to every manager of the tenant.
type Notification struct {
	Type              Type                `json:"type"`
	TenantID          string              `json:"tenant_id"`
	UserID            *primitive.ObjectID `json:"user_id,omitempty"`
	ToManagers        bool                `json:"to_managers"`
	Message           string              `json:"message"`
	RelatedEntityType string              `json:"related_entity_type,omitempty"`
	RelatedEntityID   string              `json:"related_entity_id,omitempty"`
	RelatedVehicleID  string              `json:"related_vehicle_id,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
}

// Dispatcher delivers one notification over some channel.
type Dispatcher interface {
	Dispatch(ctx context.Context, n Notification) error
}

func forRequest(t Type, req *models.MaintenanceRequest, message string) Notification {
	return Notification{
		Type:              t,
		TenantID:          req.TenantID,
		Message:           message,
		RelatedEntityType: "maintenance_request",
		RelatedEntityID:   req.ID.Hex(),
		RelatedVehicleID:  req.VehicleID.Hex(),
		CreatedAt:         time.Now().UTC(),
	}
}

// RequestCreated tells the managers about a new request.
func RequestCreated(req *models.MaintenanceRequest, reporter string) Notification {
	n := forRequest(TypeRequestNew, req,
		fmt.Sprintf("New maintenance request from %s (%s): %s", reporter, req.Category, req.ProblemDescription))
	n.ToManagers = true
	return n
}

// StatusChanged tells the reporter their request moved.
func StatusChanged(req *models.MaintenanceRequest) Notification {
	n := forRequest(TypeRequestStatusUpdate, req,
		fmt.Sprintf("Your maintenance request #%s is now %s", req.ID.Hex(), req.Status))
	reporter := req.ReportedByID
	n.UserID = &reporter
	return n
}

// CommentAdded routes a comment to the other side of the conversation: managers'
// comments go to the reporter, everybody else's to the managers.
func CommentAdded(req *models.MaintenanceRequest, author *models.Claims) Notification {
	n := forRequest(TypeRequestNewComment, req,
		fmt.Sprintf("%s commented on maintenance request #%s", author.Username, req.ID.Hex()))
	if author.IsManager() {
		reporter := req.ReportedByID
		n.UserID = &reporter
	} else {
		n.ToManagers = true
	}
	return n
}

// ComponentReplaced tells the reporter a part was swapped on their vehicle.
func ComponentReplaced(req *models.MaintenanceRequest, author *models.Claims) Notification {
	n := forRequest(TypeRequestNewComment, req,
		fmt.Sprintf("%s replaced a component on the vehicle of request #%s", author.Username, req.ID.Hex()))
	reporter := req.ReportedByID
	n.UserID = &reporter
	return n
}

// LowStock warns the managers that a part fell below its minimum stock.
func LowStock(tenantID string, partID primitive.ObjectID, partName string, available, minimum int) Notification {
	return Notification{
		Type:              TypeLowStock,
		TenantID:          tenantID,
		ToManagers:        true,
		Message:           fmt.Sprintf("Stock of %s is low: %d available, minimum %d", partName, available, minimum),
		RelatedEntityType: "part",
		RelatedEntityID:   partID.Hex(),
		CreatedAt:         time.Now().UTC(),
	}
}
