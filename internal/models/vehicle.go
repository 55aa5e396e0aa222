package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Location represents a geographical location with latitude and longitude coordinates.
type Location struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lon float64 `bson:"lon" json:"lon"`
}

// Vehicle represents a fleet vehicle.
type Vehicle struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TenantID        string             `bson:"tenant_id" json:"tenant_id"`
	Type            string             `bson:"type" json:"type"` // "ICE" or "EV"
	Make            string             `bson:"make" json:"make"`
	Model           string             `bson:"model" json:"model"`
	Year            int                `bson:"year" json:"year"`
	LicensePlate    string             `bson:"license_plate" json:"license_plate"`
	CurrentLocation Location           `bson:"current_location" json:"current_location"`
	Status          string             `bson:"status" json:"status"` // "active" or "inactive"
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
}

// VehicleComponent is one installation episode of a part on a vehicle.
// Removal deactivates the episode instead of deleting it.
type VehicleComponent struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TenantID           string             `bson:"tenant_id" json:"tenant_id"`
	VehicleID          primitive.ObjectID `bson:"vehicle_id" json:"vehicle_id"`
	PartID             primitive.ObjectID `bson:"part_id" json:"part_id"`
	ItemID             primitive.ObjectID `bson:"item_id" json:"item_id"`
	TransactionID      primitive.ObjectID `bson:"transaction_id" json:"transaction_id"`
	IsActive           bool               `bson:"is_active" json:"is_active"`
	InstallationDate   time.Time          `bson:"installation_date" json:"installation_date"`
	UninstallationDate *time.Time         `bson:"uninstallation_date,omitempty" json:"uninstallation_date,omitempty"`
}
