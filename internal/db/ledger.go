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

// MongoTransactionCollection wraps inventory_transactions. It has no update or delete.
type MongoTransactionCollection struct {
	Collection *mongo.Collection
}

// InsertTransaction appends a movement to the log.
func (c *MongoTransactionCollection) InsertTransaction(ctx context.Context, tx *models.InventoryTransaction) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	if tx.ID.IsZero() {
		tx.ID = primitive.NewObjectID()
	}
	if tx.Timestamp.IsZero() {
		tx.Timestamp = time.Now().UTC()
	}
	_, err := c.Collection.InsertOne(ctx, tx)
	return translateError(err)
}

func (c *MongoTransactionCollection) find(ctx context.Context, filter bson.M) ([]models.InventoryTransaction, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := c.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, translateError(err)
	}
	txs := []models.InventoryTransaction{}
	if err := cursor.All(ctx, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// FindTransactionsByItem returns an item's history, oldest first.
func (c *MongoTransactionCollection) FindTransactionsByItem(ctx context.Context, tenantID string, itemID primitive.ObjectID) ([]models.InventoryTransaction, error) {
	return c.find(ctx, bson.M{"tenant_id": tenantID, "item_id": itemID})
}

// FindTransactionsByPart returns every movement of a part's items, oldest first.
func (c *MongoTransactionCollection) FindTransactionsByPart(ctx context.Context, tenantID string, partID primitive.ObjectID) ([]models.InventoryTransaction, error) {
	return c.find(ctx, bson.M{"tenant_id": tenantID, "part_id": partID})
}

// MongoComponentCollection wraps vehicle_components.
type MongoComponentCollection struct {
	Collection *mongo.Collection
}

// InsertComponent opens an installation episode.
func (c *MongoComponentCollection) InsertComponent(ctx context.Context, component *models.VehicleComponent) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	if component.ID.IsZero() {
		component.ID = primitive.NewObjectID()
	}
	_, err := c.Collection.InsertOne(ctx, component)
	return translateError(err)
}

// DeactivateComponent closes an episode if it is still active.
func (c *MongoComponentCollection) DeactivateComponent(ctx context.Context, tenantID string, id primitive.ObjectID, at time.Time) (bool, error) {
	result, err := c.Collection.UpdateOne(ctx,
		bson.M{"_id": id, "tenant_id": tenantID, "is_active": true},
		bson.M{"$set": bson.M{"is_active": false, "uninstallation_date": at}},
	)
	if err != nil {
		return false, translateError(err)
	}
	return result.ModifiedCount > 0, nil
}

// FindComponentsByVehicle lists a vehicle's episodes, newest installation first.
func (c *MongoComponentCollection) FindComponentsByVehicle(ctx context.Context, tenantID string, vehicleID primitive.ObjectID, activeOnly bool) ([]models.VehicleComponent, error) {
	filter := bson.M{"tenant_id": tenantID, "vehicle_id": vehicleID}
	if activeOnly {
		filter["is_active"] = true
	}
	cursor, err := c.Collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "installation_date", Value: -1}}))
	if err != nil {
		return nil, translateError(err)
	}
	components := []models.VehicleComponent{}
	if err := cursor.All(ctx, &components); err != nil {
		return nil, err
	}
	return components, nil
}

// MongoCostCollection wraps costs.
type MongoCostCollection struct {
	Collection *mongo.Collection
}

// InsertCost records a cost entry.
func (c *MongoCostCollection) InsertCost(ctx context.Context, cost *models.Cost) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	if cost.ID.IsZero() {
		cost.ID = primitive.NewObjectID()
	}
	cost.CreatedAt = time.Now().UTC()
	_, err := c.Collection.InsertOne(ctx, cost)
	return translateError(err)
}

// FindCostsByVehicle lists a vehicle's costs, newest first.
func (c *MongoCostCollection) FindCostsByVehicle(ctx context.Context, tenantID string, vehicleID primitive.ObjectID) ([]models.Cost, error) {
	cursor, err := c.Collection.Find(ctx,
		bson.M{"tenant_id": tenantID, "vehicle_id": vehicleID},
		options.Find().SetSort(bson.D{{Key: "date", Value: -1}}),
	)
	if err != nil {
		return nil, translateError(err)
	}
	costs := []models.Cost{}
	if err := cursor.All(ctx, &costs); err != nil {
		return nil, err
	}
	return costs, nil
}
