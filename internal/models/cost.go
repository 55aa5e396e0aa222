package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CostCategory classifies a vehicle cost entry.
type CostCategory string

const (
	CostFuel        CostCategory = "fuel"
	CostMaintenance CostCategory = "maintenance"
	CostParts       CostCategory = "parts"
	CostInsurance   CostCategory = "insurance"
	CostTolls       CostCategory = "tolls"
	CostFine        CostCategory = "fine"
	CostOther       CostCategory = "other"
)

// Cost represents a fleet cost record.
type Cost struct {
	ID          primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	TenantID    string              `json:"tenant_id" bson:"tenant_id"`
	VehicleID   primitive.ObjectID  `json:"vehicle_id" bson:"vehicle_id"`
	Category    CostCategory        `json:"category" bson:"category"`
	Description string              `json:"description" bson:"description"`
	Amount      float64             `json:"amount" bson:"amount"`
	Date        time.Time           `json:"date" bson:"date"`
	ItemID      *primitive.ObjectID `json:"item_id,omitempty" bson:"item_id,omitempty"` // set for part installations
	CreatedAt   time.Time           `json:"created_at" bson:"created_at"`
}
