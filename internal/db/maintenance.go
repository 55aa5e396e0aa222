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

// MongoRequestCollection wraps maintenance_requests.
type MongoRequestCollection struct {
	Collection *mongo.Collection
}

// InsertRequest stores a new maintenance request.
func (c *MongoRequestCollection) InsertRequest(ctx context.Context, req *models.MaintenanceRequest) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	if req.ID.IsZero() {
		req.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	req.CreatedAt, req.UpdatedAt = now, now
	_, err := c.Collection.InsertOne(ctx, req)
	return translateError(err)
}

// FindRequestByID finds a request of the tenant.
func (c *MongoRequestCollection) FindRequestByID(ctx context.Context, tenantID string, id primitive.ObjectID) (*models.MaintenanceRequest, error) {
	var req models.MaintenanceRequest
	err := c.Collection.FindOne(ctx, bson.M{"_id": id, "tenant_id": tenantID}).Decode(&req)
	if err != nil {
		return nil, translateError(err)
	}
	return &req, nil
}

// FindRequests lists requests, newest first.
func (c *MongoRequestCollection) FindRequests(ctx context.Context, f RequestFilter) ([]models.MaintenanceRequest, error) {
	filter := bson.M{"tenant_id": f.TenantID}
	if f.ReportedByID != nil {
		filter["reported_by_id"] = *f.ReportedByID
	}
	cursor, err := c.Collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, translateError(err)
	}
	reqs := []models.MaintenanceRequest{}
	if err := cursor.All(ctx, &reqs); err != nil {
		return nil, err
	}
	return reqs, nil
}

// UpdateRequest writes the status, approver and manager notes.
func (c *MongoRequestCollection) UpdateRequest(ctx context.Context, req *models.MaintenanceRequest) error {
	req.UpdatedAt = time.Now().UTC()
	result, err := c.Collection.UpdateOne(ctx,
		bson.M{"_id": req.ID, "tenant_id": req.TenantID},
		bson.M{"$set": bson.M{
			"status":        req.Status,
			"approver_id":   req.ApproverID,
			"manager_notes": req.ManagerNotes,
			"updated_at":    req.UpdatedAt,
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

// DeleteRequest removes a request. Comments are removed separately.
func (c *MongoRequestCollection) DeleteRequest(ctx context.Context, tenantID string, id primitive.ObjectID) error {
	result, err := c.Collection.DeleteOne(ctx, bson.M{"_id": id, "tenant_id": tenantID})
	if err != nil {
		return translateError(err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MongoCommentCollection wraps maintenance_comments.
type MongoCommentCollection struct {
	Collection *mongo.Collection
}

// InsertComment appends a comment to a request.
func (c *MongoCommentCollection) InsertComment(ctx context.Context, comment *models.MaintenanceComment) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	if comment.ID.IsZero() {
		comment.ID = primitive.NewObjectID()
	}
	comment.CreatedAt = time.Now().UTC()
	_, err := c.Collection.InsertOne(ctx, comment)
	return translateError(err)
}

// FindCommentsByRequest lists a request's comments in posting order.
func (c *MongoCommentCollection) FindCommentsByRequest(ctx context.Context, tenantID string, requestID primitive.ObjectID) ([]models.MaintenanceComment, error) {
	cursor, err := c.Collection.Find(ctx,
		bson.M{"tenant_id": tenantID, "request_id": requestID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, translateError(err)
	}
	comments := []models.MaintenanceComment{}
	if err := cursor.All(ctx, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// DeleteCommentsByRequest removes every comment of a request.
func (c *MongoCommentCollection) DeleteCommentsByRequest(ctx context.Context, tenantID string, requestID primitive.ObjectID) error {
	_, err := c.Collection.DeleteMany(ctx, bson.M{"tenant_id": tenantID, "request_id": requestID})
	return translateError(err)
}
