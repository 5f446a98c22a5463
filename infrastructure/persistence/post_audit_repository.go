package persistence

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/logger"
)

const postAuditCollection = "post_audit"

type PostAuditRepository struct {
	collection *mongo.Collection
}

// NewPostAuditRepository returns a no-op audit log when Mongo is unavailable.
func NewPostAuditRepository(client *mongo.Client, database string) repository.IPostAudit {
	if client == nil {
		logger.GetLogger().Info("MongoDB client is nil - post audit trail disabled")
		return noopPostAudit{}
	}
	return &PostAuditRepository{collection: client.Database(database).Collection(postAuditCollection)}
}

func (r *PostAuditRepository) Record(ctx context.Context, entry model.PostAudit) error {
	_, err := r.collection.InsertOne(ctx, entry)
	return err
}

type noopPostAudit struct{}

func (noopPostAudit) Record(context.Context, model.PostAudit) error { return nil }
