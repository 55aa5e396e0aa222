package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/ukydev/fleet-maintenance/internal/models"
)

// apiClient talks to the fleet maintenance API as one authenticated user.
type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newAPIClient(baseURL, token string) *apiClient {
	return &apiClient{baseURL: baseURL, token: token, http: &http.Client{Timeout: 10 * time.Second}}
}

// apiError is a non-2xx answer from the API.
type apiError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

func (c *apiClient) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &apiError{Method: method, Path: path, Status: resp.StatusCode, Body: string(bytes.TrimSpace(raw))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *apiClient) login(ctx context.Context, username, password string) error {
	var resp models.LoginResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", models.LoginRequest{Username: username, Password: password}, &resp)
	if err != nil {
		return fmt.Errorf("login as %s: %w", username, err)
	}
	c.token = resp.Token
	return nil
}

var (
	makes = map[string][]string{
		"ICE": {"Ford", "Volvo", "Scania", "Mercedes-Benz", "Iveco"},
		"EV":  {"BYD", "Volvo", "Renault", "Ford", "Mercedes-Benz"},
	}
	vehicleModels = map[string][]string{
		"ICE": {"Cargo 816", "FH 540", "R 450", "Atego", "Daily"},
		"EV":  {"eT7", "FL Electric", "Master E-Tech", "E-Transit", "eSprinter"},
	}
)

func (c *apiClient) createVehicle(ctx context.Context, rng *rand.Rand, vtype string) (*models.Vehicle, error) {
	brand := makes[vtype][rng.Intn(len(makes[vtype]))]
	model := vehicleModels[vtype][rng.Intn(len(vehicleModels[vtype]))]
	payload := map[string]interface{}{
		"type":          vtype,
		"make":          brand,
		"model":         model,
		"year":          2018 + rng.Intn(7),
		"license_plate": fmt.Sprintf("SIM%c%03d", 'A'+rune(rng.Intn(26)), rng.Intn(1000)),
		"status":        "active",
	}

	var vehicle models.Vehicle
	if err := c.do(ctx, http.MethodPost, "/vehicles", payload, &vehicle); err != nil {
		return nil, fmt.Errorf("failed to create vehicle: %w", err)
	}
	log.WithFields(log.Fields{
		"vehicle_id": vehicle.ID.Hex(),
		"plate":      vehicle.LicensePlate,
		"type":       vtype,
		"make":       brand,
		"model":      model,
	}).Info("Created vehicle")
	return &vehicle, nil
}

// catalog is the stock the simulated workshop starts with.
var catalog = []models.PartRequest{
	{Name: "Brake Pad", Category: models.PartCategoryPart, Brand: "Fras-le", Value: price(180), MinimumStock: 4, InitialQuantity: 8},
	{Name: "Oil Filter", Category: models.PartCategoryConsumable, Brand: "Mann", Value: price(45), MinimumStock: 6, InitialQuantity: 10},
	{Name: "Drive Tire 295/80R22.5", Category: models.PartCategoryTire, Brand: "Michelin", Value: price(2100), MinimumStock: 2, InitialQuantity: 4},
	{Name: "Starter Battery 150Ah", Category: models.PartCategoryPart, Brand: "Moura", Value: price(890), MinimumStock: 1, InitialQuantity: 2},
}

func price(v float64) *float64 { return &v }

func (c *apiClient) createPart(ctx context.Context, req models.PartRequest) (*models.Part, error) {
	var part models.Part
	if err := c.do(ctx, http.MethodPost, "/parts", req, &part); err != nil {
		return nil, fmt.Errorf("failed to create part %s: %w", req.Name, err)
	}
	log.WithFields(log.Fields{"part_id": part.ID.Hex(), "name": part.Name, "stock": part.Stock}).Info("Created part")
	return &part, nil
}

func (c *apiClient) addItems(ctx context.Context, partID string, quantity int) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	payload := models.AddItemsRequest{Quantity: quantity, Notes: "Restock by workshop simulator"}
	if err := c.do(ctx, http.MethodPost, "/parts/"+partID+"/items", payload, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *apiClient) listItems(ctx context.Context, partID, vehicleID string, status models.InventoryItemStatus) ([]models.InventoryItem, error) {
	q := url.Values{}
	q.Set("part_id", partID)
	if vehicleID != "" {
		q.Set("vehicle_id", vehicleID)
	}
	q.Set("status", string(status))

	var items []models.InventoryItem
	if err := c.do(ctx, http.MethodGet, "/items?"+q.Encode(), nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *apiClient) install(ctx context.Context, itemID, vehicleID string) error {
	payload := map[string]string{
		"new_status": string(models.StatusInUse),
		"vehicle_id": vehicleID,
		"notes":      "Installed by workshop simulator",
	}
	return c.do(ctx, http.MethodPut, "/items/"+itemID+"/status", payload, nil)
}

func (c *apiClient) openRequest(ctx context.Context, vehicleID, problem string) (*models.MaintenanceRequest, error) {
	payload := map[string]string{
		"vehicle_id":          vehicleID,
		"problem_description": problem,
		"category":            string(models.CategoryMechanical),
	}
	var req models.MaintenanceRequest
	if err := c.do(ctx, http.MethodPost, "/maintenance", payload, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func (c *apiClient) replaceComponent(ctx context.Context, requestID, oldItemID, newItemID string) error {
	payload := map[string]string{"old_item_id": oldItemID, "new_item_id": newItemID}
	return c.do(ctx, http.MethodPost, "/maintenance/"+requestID+"/replace-component", payload, nil)
}

func (c *apiClient) setRequestStatus(ctx context.Context, requestID string, status models.MaintenanceStatus, notes string) error {
	payload := map[string]string{"status": string(status), "manager_notes": notes}
	return c.do(ctx, http.MethodPut, "/maintenance/"+requestID+"/status", payload, nil)
}

// workshop drives a fleet through install, wear and replacement cycles.
type workshop struct {
	api      *apiClient
	rng      *rand.Rand
	vehicles []models.Vehicle
	parts    []models.Part
	restock  int
}

// setup creates the fleet and the part catalog.
func (w *workshop) setup(ctx context.Context, fleetSize int) error {
	for i := 0; i < fleetSize; i++ {
		vtype := []string{"ICE", "EV"}[w.rng.Intn(2)]
		v, err := w.api.createVehicle(ctx, w.rng, vtype)
		if err != nil {
			log.WithError(err).Error("Failed to create vehicle")
			continue
		}
		w.vehicles = append(w.vehicles, *v)
	}
	for _, entry := range catalog {
		p, err := w.api.createPart(ctx, entry)
		if err != nil {
			return err
		}
		w.parts = append(w.parts, *p)
	}
	if len(w.vehicles) == 0 {
		return fmt.Errorf("no vehicles created")
	}
	return nil
}

// tick advances one random vehicle/part pair by one step: restock when
// the shelf is empty, install when nothing is mounted, otherwise open a
// request and replace the worn component.
func (w *workshop) tick(ctx context.Context) error {
	vehicle := w.vehicles[w.rng.Intn(len(w.vehicles))]
	part := w.parts[w.rng.Intn(len(w.parts))]
	vehicleID, partID := vehicle.ID.Hex(), part.ID.Hex()
	entry := log.WithFields(log.Fields{"vehicle": vehicle.LicensePlate, "part": part.Name})

	available, err := w.api.listItems(ctx, partID, "", models.StatusAvailable)
	if err != nil {
		return err
	}
	if len(available) == 0 {
		items, err := w.api.addItems(ctx, partID, w.restock)
		if err != nil {
			return err
		}
		entry.WithField("items", len(items)).Info("Restocked part")
		return nil
	}
	fresh := available[0]

	mounted, err := w.api.listItems(ctx, partID, vehicleID, models.StatusInUse)
	if err != nil {
		return err
	}
	if len(mounted) == 0 {
		if err := w.api.install(ctx, fresh.ID.Hex(), vehicleID); err != nil {
			return err
		}
		entry.WithField("item", fresh.ItemIdentifier).Info("Installed component")
		return nil
	}
	worn := mounted[0]

	req, err := w.api.openRequest(ctx, vehicleID, fmt.Sprintf("%s #%d worn out", part.Name, worn.ItemIdentifier))
	if err != nil {
		return err
	}
	requestID := req.ID.Hex()
	if err := w.api.setRequestStatus(ctx, requestID, models.MaintenanceInProgress, "Replacing in workshop"); err != nil {
		return err
	}
	if err := w.api.replaceComponent(ctx, requestID, worn.ID.Hex(), fresh.ID.Hex()); err != nil {
		return err
	}
	if err := w.api.setRequestStatus(ctx, requestID, models.MaintenanceCompleted, ""); err != nil {
		return err
	}
	entry.WithFields(log.Fields{
		"request":  requestID,
		"old_item": worn.ItemIdentifier,
		"new_item": fresh.ItemIdentifier,
	}).Info("Replaced component")
	return nil
}

func (w *workshop) run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := w.tick(ctx); err != nil {
				log.WithError(err).Warn("Workshop step failed")
			}
		}
	}
}

func loadSettings() *viper.Viper {
	v := viper.New()
	v.SetDefault("API_BASE_URL", "http://localhost:8080/api")
	v.SetDefault("FLEET_SIZE", 5)
	v.SetDefault("SIM_TICK_SECONDS", 2)
	v.SetDefault("SIM_RESTOCK", 5)
	v.SetDefault("SIM_SEED", time.Now().UnixNano())
	v.AutomaticEnv()
	return v
}

func main() {
	settings := loadSettings()
	apiURL := settings.GetString("API_BASE_URL")
	fleetSize := settings.GetInt("FLEET_SIZE")
	interval := time.Duration(max(settings.GetInt("SIM_TICK_SECONDS"), 1)) * time.Second

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api := newAPIClient(apiURL, settings.GetString("SIM_AUTH_TOKEN"))
	if api.token == "" {
		if err := api.login(ctx, settings.GetString("SIM_USERNAME"), settings.GetString("SIM_PASSWORD")); err != nil {
			log.WithError(err).Error("Set SIM_AUTH_TOKEN or SIM_USERNAME/SIM_PASSWORD for a manager or admin account")
			os.Exit(1)
		}
	}

	log.WithFields(log.Fields{
		"fleet_size": fleetSize,
		"api_url":    apiURL,
		"interval":   interval,
	}).Info("Starting workshop simulation")

	w := &workshop{
		api:     api,
		rng:     rand.New(rand.NewSource(settings.GetInt64("SIM_SEED"))),
		restock: max(settings.GetInt("SIM_RESTOCK"), 1),
	}
	if err := w.setup(ctx, fleetSize); err != nil {
		log.WithError(err).Error("Setup failed. Ensure the token belongs to a manager and the API is reachable.")
		os.Exit(1)
	}

	w.run(ctx, interval)
	log.Info("Workshop simulation stopped")
}
