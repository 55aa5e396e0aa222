package db

import (
	"context"
	"fmt"
	"time"

	"github.com/ukydev/fleet-maintenance/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoVehicleCollection implements VehicleCollection for MongoDB.
type MongoVehicleCollection struct {
	Collection *mongo.Collection
}

// InsertVehicle inserts a new vehicle.
func (c *MongoVehicleCollection) InsertVehicle(ctx context.Context, vehicle *models.Vehicle) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	if vehicle.ID.IsZero() {
		vehicle.ID = primitive.NewObjectID()
	}
	vehicle.CreatedAt = time.Now().UTC()
	_, err := c.Collection.InsertOne(ctx, vehicle)
	return translateError(err)
}

// FindVehicleByID finds a vehicle of the tenant.
func (c *MongoVehicleCollection) FindVehicleByID(ctx context.Context, tenantID string, id primitive.ObjectID) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	err := c.Collection.FindOne(ctx, bson.M{"_id": id, "tenant_id": tenantID}).Decode(&vehicle)
	if err != nil {
		return nil, translateError(err)
	}
	return &vehicle, nil
}

// FindVehicles lists the tenant's fleet.
func (c *MongoVehicleCollection) FindVehicles(ctx context.Context, tenantID string) ([]models.Vehicle, error) {
	cursor, err := c.Collection.Find(ctx, bson.M{"tenant_id": tenantID}, options.Find().SetSort(bson.D{{Key: "license_plate", Value: 1}}))
	if err != nil {
		return nil, translateError(err)
	}
	vehicles := []models.Vehicle{}
	if err := cursor.All(ctx, &vehicles); err != nil {
		return nil, err
	}
	return vehicles, nil
}
