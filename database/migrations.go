package database

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const migrationsCollection = "migrations"

// Migration is one versioned schema step. Steps only ever add indexes, so there is no Down.
type Migration struct {
	Version     int
	Description string
	Collection  string
	Indexes     []mongo.IndexModel
}

type migrationRecord struct {
	Version     int       `bson:"version"`
	Description string    `bson:"description"`
	AppliedAt   time.Time `bson:"appliedAt"`
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Emergency contacts by user, unique phone per user",
		Collection:  "emergency_contacts",
		Indexes: []mongo.IndexModel{
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: 1}}},
			{
				Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "phone", Value: 1}},
				Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{"phone": bson.M{"$type": "string"}}),
			},
		},
	},
	{
		Version:     2,
		Description: "Facilities with 2dsphere location",
		Collection:  "facilities",
		Indexes: []mongo.IndexModel{
			{Keys: bson.D{{Key: "location", Value: "2dsphere"}}},
			{Keys: bson.D{{Key: "name", Value: 1}, {Key: "kind", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "kind", Value: 1}, {Key: "active", Value: 1}}},
		},
	},
	{
		Version:     3,
		Description: "Incident reports, one per incident",
		Collection:  "incident_reports",
		Indexes: []mongo.IndexModel{
			{Keys: bson.D{{Key: "incidentId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
	},
}

// RunMigrations applies every migration newer than the last recorded one, in order
func RunMigrations(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	history := db.Collection(migrationsCollection)
	current := appliedVersion(ctx, history)

	pending := 0
	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		pending++

		if _, err := db.Collection(m.Collection).Indexes().CreateMany(ctx, m.Indexes); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Collection, err)
		}
		if _, err := history.InsertOne(ctx, migrationRecord{
			Version:     m.Version,
			Description: m.Description,
			AppliedAt:   time.Now(),
		}); err != nil {
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		logrus.WithFields(logrus.Fields{
			"version":    m.Version,
			"collection": m.Collection,
		}).Info("✅ Migration applied")
	}

	if pending == 0 {
		logrus.Debugf("Schema up to date at version %d", current)
	}
	return nil
}

// appliedVersion is 0 when nothing has been recorded
func appliedVersion(ctx context.Context, history *mongo.Collection) int {
	var record migrationRecord
	opts := options.FindOne().SetSort(bson.D{{Key: "version", Value: -1}})
	if err := history.FindOne(ctx, bson.D{}, opts).Decode(&record); err != nil {
		return 0
	}
	return record.Version
}
