package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-maintenance/internal/auth"
	"github.com/ukydev/fleet-maintenance/internal/db"
	"github.com/ukydev/fleet-maintenance/internal/inventory"
	"github.com/ukydev/fleet-maintenance/internal/maintenance"
	"github.com/ukydev/fleet-maintenance/internal/middleware"
	"github.com/ukydev/fleet-maintenance/internal/models"
)

// Login attempts allowed per client IP and window.
const (
	loginRateLimit  = 10
	loginRateWindow = 60
)

// Dependencies is everything the HTTP surface needs.
type Dependencies struct {
	Auth        *auth.Service
	Store       db.Store
	Inventory   *inventory.Service
	Maintenance *maintenance.Service
	Notifier    Notifier
	Files       FileSaver
	UploadDir   string
	MaxUpload   int64
	Metrics     bool
	Log         *logrus.Entry
}

type pinger interface {
	Ping(ctx context.Context) error
}

// NewRouter builds the full handler tree.
func NewRouter(d Dependencies) http.Handler {
	authMW := middleware.NewAuthMiddleware(d.Auth)
	limiter := middleware.NewRateLimitMiddleware()

	authH := NewAuthHandler(d.Auth, d.Store.Users(), d.Log)
	invH := NewInventoryHandler(d.Store, d.Inventory, d.Notifier, d.Log)
	mntH := NewMaintenanceHandler(d.Store, d.Maintenance, d.Inventory, d.Notifier, d.Log)

	manager := authMW.RequireRole(models.RoleManager)
	can := authMW.RequirePermission
	handle := func(mux *http.ServeMux, pattern string, guard func(http.Handler) http.Handler, fn http.HandlerFunc) {
		mux.Handle(pattern, guard(fn))
	}

	mux := http.NewServeMux()
	mux.Handle("POST /api/auth/login", limiter.RateLimit(loginRateLimit, loginRateWindow)(http.HandlerFunc(authH.Login)))
	mux.Handle("POST /api/auth/signup", limiter.RateLimit(loginRateLimit, loginRateWindow)(http.HandlerFunc(authH.Signup)))
	handle(mux, "POST /api/auth/register", manager, authH.Register)
	mux.HandleFunc("GET /api/auth/profile", authH.GetProfile)
	mux.HandleFunc("PUT /api/auth/profile", authH.UpdateProfile)
	mux.HandleFunc("POST /api/auth/change-password", authH.ChangePassword)

	handle(mux, "POST /api/vehicles", manager, invH.CreateVehicle)
	handle(mux, "GET /api/vehicles", can("view_vehicles"), invH.ListVehicles)
	handle(mux, "GET /api/vehicles/{id}/components", can("view_vehicles"), invH.VehicleComponents)
	handle(mux, "GET /api/vehicles/{id}/costs", can("view_costs"), invH.VehicleCosts)

	handle(mux, "POST /api/parts", manager, invH.CreatePart)
	handle(mux, "GET /api/parts", can("view_inventory"), invH.ListParts)
	handle(mux, "GET /api/parts/{id}", can("view_inventory"), invH.GetPart)
	handle(mux, "PUT /api/parts/{id}", manager, invH.UpdatePart)
	handle(mux, "DELETE /api/parts/{id}", manager, invH.DeletePart)
	handle(mux, "POST /api/parts/{id}/items", manager, invH.AddItems)
	handle(mux, "GET /api/parts/{id}/transactions.xlsx", manager, invH.ExportTransactions)

	handle(mux, "GET /api/items", can("view_inventory"), invH.ListItems)
	handle(mux, "GET /api/items/{id}", can("view_inventory"), invH.GetItem)
	handle(mux, "PUT /api/items/{id}/status", manager, invH.ChangeItemStatus)

	handle(mux, "POST /api/maintenance", can("create_maintenance"), mntH.CreateRequest)
	handle(mux, "GET /api/maintenance", can("view_maintenance"), mntH.ListRequests)
	handle(mux, "GET /api/maintenance/{id}", can("view_maintenance"), mntH.GetRequest)
	handle(mux, "DELETE /api/maintenance/{id}", manager, mntH.DeleteRequest)
	handle(mux, "PUT /api/maintenance/{id}/status", manager, mntH.UpdateStatus)
	handle(mux, "POST /api/maintenance/{id}/comments", can("comment_maintenance"), mntH.AddComment)
	handle(mux, "GET /api/maintenance/{id}/comments", can("view_maintenance"), mntH.ListComments)
	handle(mux, "POST /api/maintenance/{id}/replace-component", manager, mntH.ReplaceComponent)

	if d.Files != nil {
		upH := NewUploadHandler(d.Files, d.MaxUpload, d.Log)
		mux.HandleFunc("POST /api/uploads", upH.Upload)
	}
	if d.UploadDir != "" {
		mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(d.UploadDir))))
	}

	mux.HandleFunc("GET /health", health(d.Store))
	if d.Metrics {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	var h http.Handler = authMW.Authenticate(mux)
	h = middleware.RequestLogger(d.Log.WithField("component", "http"))(h)
	return middleware.Recover(d.Log)(h)
}

func health(store db.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if p, ok := store.(pinger); ok {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := p.Ping(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "database": err.Error()})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
