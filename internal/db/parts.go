package db

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/ukydev/fleet-maintenance/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoPartCollection wraps the parts collection.
type MongoPartCollection struct {
	Collection *mongo.Collection
}

// InsertPart inserts a catalog entry with a fresh identifier counter.
func (c *MongoPartCollection) InsertPart(ctx context.Context, part *models.Part) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	if part.ID.IsZero() {
		part.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	part.CreatedAt, part.UpdatedAt = now, now
	_, err := c.Collection.InsertOne(ctx, part)
	return translateError(err)
}

// FindPartByID finds a part of the tenant.
func (c *MongoPartCollection) FindPartByID(ctx context.Context, tenantID string, id primitive.ObjectID) (*models.Part, error) {
	var part models.Part
	err := c.Collection.FindOne(ctx, bson.M{"_id": id, "tenant_id": tenantID}).Decode(&part)
	if err != nil {
		return nil, translateError(err)
	}
	return &part, nil
}

// FindParts lists the tenant's catalog ordered by name, optionally matching search
// against name, brand or part number.
func (c *MongoPartCollection) FindParts(ctx context.Context, tenantID, search string) ([]models.Part, error) {
	filter := bson.M{"tenant_id": tenantID}
	if search != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"name": re},
			bson.M{"brand": re},
			bson.M{"part_number": re},
		}
	}
	cursor, err := c.Collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, translateError(err)
	}
	parts := []models.Part{}
	if err := cursor.All(ctx, &parts); err != nil {
		return nil, err
	}
	return parts, nil
}

// UpdatePart replaces the editable catalog fields. The identifier counter is left alone.
func (c *MongoPartCollection) UpdatePart(ctx context.Context, part *models.Part) error {
	part.UpdatedAt = time.Now().UTC()
	result, err := c.Collection.UpdateOne(ctx,
		bson.M{"_id": part.ID, "tenant_id": part.TenantID},
		bson.M{"$set": bson.M{
			"name":          part.Name,
			"category":      part.Category,
			"brand":         part.Brand,
			"part_number":   part.PartNumber,
			"location":      part.Location,
			"notes":         part.Notes,
			"value":         part.Value,
			"minimum_stock": part.MinimumStock,
			"lifespan_km":   part.LifespanKM,
			"photo_url":     part.PhotoURL,
			"invoice_url":   part.InvoiceURL,
			"updated_at":    part.UpdatedAt,
		}},
	)
	if err != nil {
		return translateError(err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePart removes a catalog entry.
func (c *MongoPartCollection) DeletePart(ctx context.Context, tenantID string, id primitive.ObjectID) error {
	result, err := c.Collection.DeleteOne(ctx, bson.M{"_id": id, "tenant_id": tenantID})
	if err != nil {
		return translateError(err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ReserveItemIdentifiers increments last_item_identifier by n in one atomic update.
// Inside a transaction the part document stays write-locked until commit, so a
// concurrent batch for the same part aborts with ErrConflict instead of reusing numbers.
func (c *MongoPartCollection) ReserveItemIdentifiers(ctx context.Context, tenantID string, partID primitive.ObjectID, n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("reserve item identifiers: n must be positive, got %d", n)
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"last_item_identifier": 1})
	var out struct {
		Last int `bson:"last_item_identifier"`
	}
	err := c.Collection.FindOneAndUpdate(ctx,
		bson.M{"_id": partID, "tenant_id": tenantID},
		bson.M{"$inc": bson.M{"last_item_identifier": n}},
		opts,
	).Decode(&out)
	if err != nil {
		return 0, translateError(err)
	}
	return out.Last - n + 1, nil
}
