package repositories

import (
	"context"
	"time"

	"lifeline/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ReportRepository struct {
	collection *mongo.Collection
}

func NewReportRepository(db *mongo.Database) *ReportRepository {
	return &ReportRepository{
		collection: db.Collection("incident_reports"),
	}
}

// SaveReport archives a post-emergency report. A second save for the same incident is ignored.
func (rr *ReportRepository) SaveReport(ctx context.Context, userID, sessionID string, report *models.PostEmergencySupport) error {
	record := models.IncidentReportRecord{
		ID:         primitive.NewObjectID(),
		UserID:     userID,
		SessionID:  sessionID,
		IncidentID: report.Summary.IncidentID,
		CategoryID: report.Summary.CategoryID,
		Report:     *report,
		CreatedAt:  time.Now(),
	}

	filter := bson.M{"incidentId": record.IncidentID}
	update := bson.M{"$setOnInsert": record}
	_, err := rr.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func (rr *ReportRepository) ListByUser(ctx context.Context, userID string, limit int64) ([]models.IncidentReportRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit)

	cursor, err := rr.collection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	reports := []models.IncidentReportRecord{}
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, err
	}
	return reports, nil
}
