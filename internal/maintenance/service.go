// Package maintenance implements maintenance requests, their comments and the atomic
// component replacement performed against a request.
package maintenance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-maintenance/internal/apperr"
	"github.com/ukydev/fleet-maintenance/internal/db"
	"github.com/ukydev/fleet-maintenance/internal/inventory"
	"github.com/ukydev/fleet-maintenance/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Service handles the maintenance request lifecycle.
type Service struct {
	store     db.Store
	inventory *inventory.Service
	log       *logrus.Entry
}

// NewService creates a maintenance service. Item transitions go through inv.
func NewService(store db.Store, inv *inventory.Service, log *logrus.Entry) *Service {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Service{store: store, inventory: inv, log: log.WithField("component", "maintenance")}
}

// CreateRequest opens a PENDENTE request for a vehicle of the actor's organization.
func (s *Service) CreateRequest(ctx context.Context, actor *models.Claims, in *models.MaintenanceRequestCreate) (*models.MaintenanceRequest, error) {
	if strings.TrimSpace(in.ProblemDescription) == "" {
		return nil, apperr.Invalid("problem description is required")
	}
	if !models.IsValidMaintenanceCategory(in.Category) {
		return nil, apperr.Invalid("unknown maintenance category %q", in.Category)
	}
	if _, err := s.store.Vehicles().FindVehicleByID(ctx, actor.TenantID, in.VehicleID); err != nil {
		return nil, apperr.FromStore(err, "vehicle "+in.VehicleID.Hex())
	}
	req := &models.MaintenanceRequest{
		ID:                 primitive.NewObjectID(),
		TenantID:           actor.TenantID,
		VehicleID:          in.VehicleID,
		ProblemDescription: in.ProblemDescription,
		Category:           in.Category,
		Status:             models.MaintenancePending,
		ReportedByID:       actor.UserObjectID(),
	}
	if err := s.store.Requests().InsertRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("insert maintenance request: %w", err)
	}
	return req, nil
}

// loadRequest finds a request the actor may see. Drivers only see their own.
func (s *Service) loadRequest(ctx context.Context, actor *models.Claims, requestID primitive.ObjectID) (*models.MaintenanceRequest, error) {
	req, err := s.store.Requests().FindRequestByID(ctx, actor.TenantID, requestID)
	if err != nil {
		return nil, apperr.FromStore(err, "maintenance request "+requestID.Hex())
	}
	if actor.Role == models.RoleOperator && req.ReportedByID != actor.UserObjectID() {
		return nil, apperr.Forbidden("maintenance request %s belongs to another driver", requestID.Hex())
	}
	return req, nil
}

// GetRequest returns a request with its comments in posting order.
func (s *Service) GetRequest(ctx context.Context, actor *models.Claims, requestID primitive.ObjectID) (*models.MaintenanceRequest, error) {
	req, err := s.loadRequest(ctx, actor, requestID)
	if err != nil {
		return nil, err
	}
	if req.Comments, err = s.store.Comments().FindCommentsByRequest(ctx, actor.TenantID, requestID); err != nil {
		return nil, fmt.Errorf("load comments: %w", err)
	}
	return req, nil
}

// ListRequests lists requests newest first.
func (s *Service) ListRequests(ctx context.Context, actor *models.Claims) ([]models.MaintenanceRequest, error) {
	filter := db.RequestFilter{TenantID: actor.TenantID}
	if actor.Role == models.RoleOperator {
		reporter := actor.UserObjectID()
		filter.ReportedByID = &reporter
	}
	reqs, err := s.store.Requests().FindRequests(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list maintenance requests: %w", err)
	}
	return reqs, nil
}

// UpdateStatus moves a request to a new status. Only managers resolve requests.
func (s *Service) UpdateStatus(ctx context.Context, actor *models.Claims, requestID primitive.ObjectID, in *models.MaintenanceStatusUpdate) (*models.MaintenanceRequest, error) {
	if !actor.IsManager() {
		return nil, apperr.Forbidden("only managers can change the status of a maintenance request")
	}
	if !models.IsValidMaintenanceStatus(in.Status) {
		return nil, apperr.Invalid("unknown maintenance status %q", in.Status)
	}
	req, err := s.loadRequest(ctx, actor, requestID)
	if err != nil {
		return nil, err
	}
	approver := actor.UserObjectID()
	req.Status = in.Status
	req.ApproverID = &approver
	if in.ManagerNotes != "" {
		req.ManagerNotes = in.ManagerNotes
	}
	if err := s.store.Requests().UpdateRequest(ctx, req); err != nil {
		return nil, apperr.FromStore(err, "maintenance request "+requestID.Hex())
	}
	return req, nil
}

// DeleteRequest removes a request and its comments.
func (s *Service) DeleteRequest(ctx context.Context, actor *models.Claims, requestID primitive.ObjectID) error {
	if !actor.IsManager() {
		return apperr.Forbidden("only managers can delete maintenance requests")
	}
	if _, err := s.loadRequest(ctx, actor, requestID); err != nil {
		return err
	}
	if err := s.store.Comments().DeleteCommentsByRequest(ctx, actor.TenantID, requestID); err != nil {
		return fmt.Errorf("delete comments: %w", err)
	}
	return apperr.FromStore(s.store.Requests().DeleteRequest(ctx, actor.TenantID, requestID), "maintenance request "+requestID.Hex())
}

// AddComment appends an attributed comment to a request.
func (s *Service) AddComment(ctx context.Context, actor *models.Claims, requestID primitive.ObjectID, in *models.MaintenanceCommentCreate) (*models.MaintenanceComment, *models.MaintenanceRequest, error) {
	if strings.TrimSpace(in.CommentText) == "" {
		return nil, nil, apperr.Invalid("comment text is required")
	}
	req, err := s.loadRequest(ctx, actor, requestID)
	if err != nil {
		return nil, nil, err
	}
	comment, err := s.insertComment(ctx, actor, req, in.CommentText, in.FileURL, false)
	if err != nil {
		return nil, nil, err
	}
	return comment, req, nil
}

// ListComments returns a request's comments in posting order.
func (s *Service) ListComments(ctx context.Context, actor *models.Claims, requestID primitive.ObjectID) ([]models.MaintenanceComment, error) {
	if _, err := s.loadRequest(ctx, actor, requestID); err != nil {
		return nil, err
	}
	comments, err := s.store.Comments().FindCommentsByRequest(ctx, actor.TenantID, requestID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

func (s *Service) insertComment(ctx context.Context, actor *models.Claims, req *models.MaintenanceRequest, text, fileURL string, system bool) (*models.MaintenanceComment, error) {
	comment := &models.MaintenanceComment{
		ID:          primitive.NewObjectID(),
		TenantID:    actor.TenantID,
		RequestID:   req.ID,
		UserID:      actor.UserObjectID(),
		CommentText: text,
		FileURL:     fileURL,
		System:      system,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.Comments().InsertComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}
	return comment, nil
}
