package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-maintenance/internal/apperr"
	"github.com/ukydev/fleet-maintenance/internal/db"
	"github.com/ukydev/fleet-maintenance/internal/metrics"
	"github.com/ukydev/fleet-maintenance/internal/middleware"
	"github.com/ukydev/fleet-maintenance/internal/models"
	"github.com/ukydev/fleet-maintenance/internal/notify"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxBodyBytes = 1 << 20

var validate = validator.New()

// Notifier accepts notifications for delivery after a commit.
type Notifier interface {
	Enqueue(n notify.Notification) bool
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindInvalidTransition, apperr.KindPreconditionFailed, apperr.KindInvalid:
		return http.StatusBadRequest
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err. Internal errors are logged and replaced by a generic message.
func writeError(w http.ResponseWriter, log *logrus.Entry, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal && errors.Is(err, db.ErrConflict) {
		kind = apperr.KindConflict
	}
	status := statusFor(kind)
	if status == http.StatusInternalServerError {
		log.WithError(err).Error("request failed")
		writeJSON(w, status, errorResponse{Error: "internal server error"})
		return
	}
	msg := err.Error()
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	writeJSON(w, status, errorResponse{Error: msg, Kind: kind.String()})
}

// decodeJSON reads a size-limited JSON body into dst and validates its tags.
func decodeJSON(r *http.Request, dst interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return apperr.Invalid("failed to read request body")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return apperr.Invalid("invalid JSON: %v", err)
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return apperr.Invalid("field %s failed on %q", fe.Field(), fe.Tag())
		}
		return apperr.Invalid("invalid payload: %v", err)
	}
	return nil
}

func pathID(r *http.Request, name string) (primitive.ObjectID, error) {
	raw := r.PathValue(name)
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, apperr.Invalid("invalid %s %q", name, raw)
	}
	return id, nil
}

func queryID(r *http.Request, name string) (*primitive.ObjectID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return nil, apperr.Invalid("invalid %s %q", name, raw)
	}
	return &id, nil
}

func actorFrom(r *http.Request) (*models.Claims, error) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		return nil, fmt.Errorf("user context not found")
	}
	return claims, nil
}

// unitOfWork runs fn in one transaction and counts the ones lost to concurrent writers.
func unitOfWork(ctx context.Context, store db.Transactor, log *logrus.Entry, op string, fn func(ctx context.Context) error) error {
	err := store.WithTransaction(ctx, fn)
	if err == nil {
		return nil
	}
	if errors.Is(err, db.ErrConflict) {
		metrics.UnitOfWorkConflicts.Inc()
	}
	log.WithError(err).WithField("operation", op).Warn("unit of work rejected")
	return err
}
