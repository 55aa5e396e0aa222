package inventory

import (
	"context"
	"fmt"

	"github.com/ukydev/fleet-maintenance/internal/apperr"
	"github.com/ukydev/fleet-maintenance/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CreateVehicle registers a vehicle in the actor's organization.
func (s *Service) CreateVehicle(ctx context.Context, actor *models.Claims, vehicle *models.Vehicle) error {
	if vehicle.LicensePlate == "" {
		return apperr.Invalid("license plate is required")
	}
	vehicle.ID = primitive.NewObjectID()
	vehicle.TenantID = actor.TenantID
	if vehicle.Status == "" {
		vehicle.Status = "active"
	}
	return apperr.FromStore(s.store.Vehicles().InsertVehicle(ctx, vehicle), "vehicle "+vehicle.LicensePlate)
}

// ListVehicles lists the organization's fleet.
func (s *Service) ListVehicles(ctx context.Context, actor *models.Claims) ([]models.Vehicle, error) {
	vehicles, err := s.store.Vehicles().FindVehicles(ctx, actor.TenantID)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	return vehicles, nil
}

// VehicleComponents returns a vehicle's installation episodes, newest first.
func (s *Service) VehicleComponents(ctx context.Context, actor *models.Claims, vehicleID primitive.ObjectID, activeOnly bool) ([]models.VehicleComponent, error) {
	if _, err := s.store.Vehicles().FindVehicleByID(ctx, actor.TenantID, vehicleID); err != nil {
		return nil, apperr.FromStore(err, "vehicle "+vehicleID.Hex())
	}
	components, err := s.store.Components().FindComponentsByVehicle(ctx, actor.TenantID, vehicleID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list vehicle components: %w", err)
	}
	return components, nil
}

// VehicleCosts returns a vehicle's cost ledger, newest first.
func (s *Service) VehicleCosts(ctx context.Context, actor *models.Claims, vehicleID primitive.ObjectID) ([]models.Cost, error) {
	if _, err := s.store.Vehicles().FindVehicleByID(ctx, actor.TenantID, vehicleID); err != nil {
		return nil, apperr.FromStore(err, "vehicle "+vehicleID.Hex())
	}
	costs, err := s.store.Costs().FindCostsByVehicle(ctx, actor.TenantID, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("list vehicle costs: %w", err)
	}
	return costs, nil
}
