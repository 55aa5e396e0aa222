package handlers

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-maintenance/internal/db"
	"github.com/ukydev/fleet-maintenance/internal/inventory"
	"github.com/ukydev/fleet-maintenance/internal/maintenance"
	"github.com/ukydev/fleet-maintenance/internal/metrics"
	"github.com/ukydev/fleet-maintenance/internal/models"
	"github.com/ukydev/fleet-maintenance/internal/notify"
)

// MaintenanceHandler serves maintenance requests, comments and component replacement.
type MaintenanceHandler struct {
	store    db.Store
	svc      *maintenance.Service
	inv      *inventory.Service
	notifier Notifier
	log      *logrus.Entry
}

// NewMaintenanceHandler creates a maintenance handler.
func NewMaintenanceHandler(store db.Store, svc *maintenance.Service, inv *inventory.Service, notifier Notifier, log *logrus.Entry) *MaintenanceHandler {
	return &MaintenanceHandler{
		store:    store,
		svc:      svc,
		inv:      inv,
		notifier: notifier,
		log:      log.WithField("component", "maintenance_http"),
	}
}

func (h *MaintenanceHandler) send(n notify.Notification) {
	if !h.notifier.Enqueue(n) {
		h.log.WithFields(logrus.Fields{"type": n.Type, "entity": n.RelatedEntityID}).Warn("notification dropped")
	}
}

// CreateRequest opens a maintenance request and tells the managers.
func (h *MaintenanceHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}
	var in models.MaintenanceRequestCreate
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, h.log, err)
		return
	}

	var req *models.MaintenanceRequest
	err = unitOfWork(r.Context(), h.store, h.log, "create_request", func(ctx context.Context) error {
		var err error
		req, err = h.svc.CreateRequest(ctx, actor, &in)
		return err
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	h.send(notify.RequestCreated(req, actor.Username))
	writeJSON(w, http.StatusCreated, req)
}

// ListRequests lists requests visible to the caller.
func (h *MaintenanceHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}
	reqs, err := h.svc.ListRequests(r.Context(), actor)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, reqs)
}

// GetRequest returns a request with its comments.
func (h *MaintenanceHandler) GetRequest(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}
	requestID, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	req, err := h.svc.GetRequest(r.Context(), actor, requestID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// UpdateStatus resolves a request and tells its reporter.
func (h *MaintenanceHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}
	requestID, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	var in models.MaintenanceStatusUpdate
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, h.log, err)
		return
	}

	var req *models.MaintenanceRequest
	err = unitOfWork(r.Context(), h.store, h.log, "update_request_status", func(ctx context.Context) error {
		var err error
		req, err = h.svc.UpdateStatus(ctx, actor, requestID, &in)
		return err
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	h.send(notify.StatusChanged(req))
	writeJSON(w, http.StatusOK, req)
}

// DeleteRequest removes a request and its comments.
func (h *MaintenanceHandler) DeleteRequest(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}
	requestID, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	err = unitOfWork(r.Context(), h.store, h.log, "delete_request", func(ctx context.Context) error {
		return h.svc.DeleteRequest(ctx, actor, requestID)
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddComment posts a comment and tells the other side of the conversation.
func (h *MaintenanceHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}
	requestID, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	var in models.MaintenanceCommentCreate
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, h.log, err)
		return
	}

	var (
		comment *models.MaintenanceComment
		req     *models.MaintenanceRequest
	)
	err = unitOfWork(r.Context(), h.store, h.log, "add_comment", func(ctx context.Context) error {
		var err error
		comment, req, err = h.svc.AddComment(ctx, actor, requestID, &in)
		return err
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	h.send(notify.CommentAdded(req, actor))
	writeJSON(w, http.StatusCreated, comment)
}

// ListComments lists a request's comments.
func (h *MaintenanceHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}
	requestID, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	comments, err := h.svc.ListComments(r.Context(), actor, requestID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

// ReplaceComponent swaps an installed item for an available one in a single unit of work.
func (h *MaintenanceHandler) ReplaceComponent(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}
	requestID, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	var in models.ReplaceComponentRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, h.log, err)
		return
	}

	var result *maintenance.ReplaceResult
	err = unitOfWork(r.Context(), h.store, h.log, "replace_component", func(ctx context.Context) error {
		var err error
		result, err = h.svc.ReplaceComponent(ctx, actor, requestID, &in)
		return err
	})
	if err != nil {
		metrics.ComponentReplacements.WithLabelValues(metrics.ResultFailed).Inc()
		writeError(w, h.log, err)
		return
	}

	metrics.ComponentReplacements.WithLabelValues(metrics.ResultOK).Inc()
	recordTransition(h.log, result.Removed)
	recordTransition(h.log, result.Installed)
	h.send(notify.ComponentReplaced(result.Request, actor))
	lowStockCheck(r.Context(), h.inv, h.notifier, h.log, actor.TenantID, result.Installed.Item.PartID)
	writeJSON(w, http.StatusOK, result)
}
