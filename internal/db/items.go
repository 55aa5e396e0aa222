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

// MongoItemCollection wraps the inventory_items collection.
type MongoItemCollection struct {
	Collection *mongo.Collection
}

// InsertItems inserts a batch of new items in one round trip.
func (c *MongoItemCollection) InsertItems(ctx context.Context, items []*models.InventoryItem) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	if len(items) == 0 {
		return nil
	}
	now := time.Now().UTC()
	docs := make([]interface{}, 0, len(items))
	for _, item := range items {
		if item.ID.IsZero() {
			item.ID = primitive.NewObjectID()
		}
		item.CreatedAt, item.UpdatedAt = now, now
		docs = append(docs, item)
	}
	_, err := c.Collection.InsertMany(ctx, docs)
	return translateError(err)
}

// FindItemByID finds an item of the tenant.
func (c *MongoItemCollection) FindItemByID(ctx context.Context, tenantID string, id primitive.ObjectID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := c.Collection.FindOne(ctx, bson.M{"_id": id, "tenant_id": tenantID}).Decode(&item)
	if err != nil {
		return nil, translateError(err)
	}
	return &item, nil
}

func itemFilterDoc(f ItemFilter) bson.M {
	filter := bson.M{"tenant_id": f.TenantID}
	if f.PartID != nil {
		filter["part_id"] = *f.PartID
	}
	if f.Status != nil {
		filter["status"] = *f.Status
	}
	if f.VehicleID != nil {
		filter["installed_on_vehicle_id"] = *f.VehicleID
	}
	return filter
}

// FindItems lists items ordered by part and identifier.
func (c *MongoItemCollection) FindItems(ctx context.Context, f ItemFilter) ([]models.InventoryItem, error) {
	opts := options.Find().SetSort(bson.D{{Key: "part_id", Value: 1}, {Key: "item_identifier", Value: 1}})
	cursor, err := c.Collection.Find(ctx, itemFilterDoc(f), opts)
	if err != nil {
		return nil, translateError(err)
	}
	items := []models.InventoryItem{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// CountItems counts items matching the filter.
func (c *MongoItemCollection) CountItems(ctx context.Context, f ItemFilter) (int64, error) {
	n, err := c.Collection.CountDocuments(ctx, itemFilterDoc(f))
	return n, translateError(err)
}

// UpdateItem performs the optimistic-version write of an item's lifecycle fields.
func (c *MongoItemCollection) UpdateItem(ctx context.Context, item *models.InventoryItem) error {
	updatedAt := time.Now().UTC()
	result, err := c.Collection.UpdateOne(ctx,
		bson.M{"_id": item.ID, "tenant_id": item.TenantID, "version": item.Version},
		bson.M{
			"$set": bson.M{
				"status":                  item.Status,
				"installed_on_vehicle_id": item.InstalledOnVehicleID,
				"installed_at":            item.InstalledAt,
				"active_component_id":     item.ActiveComponentID,
				"updated_at":              updatedAt,
			},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return translateError(err)
	}
	if result.MatchedCount == 0 {
		n, err := c.Collection.CountDocuments(ctx, bson.M{"_id": item.ID, "tenant_id": item.TenantID})
		if err != nil {
			return translateError(err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return fmt.Errorf("%w: item %s changed since version %d", ErrConflict, item.ID.Hex(), item.Version)
	}
	item.Version++
	item.UpdatedAt = updatedAt
	return nil
}
