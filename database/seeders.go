package database

import (
	"context"
	"fmt"
	"time"

	"lifeline/models"
	"lifeline/repositories"
	"lifeline/services"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Seeder loads reference data once per database
type Seeder struct {
	Name string
	Seed func(ctx context.Context, db *mongo.Database) (int, error)
}

var seeders = []Seeder{
	{Name: "demo_facilities", Seed: seedDemoFacilities},
}

// RunSeeders runs each seeder not yet recorded in the seeders collection.
// A failed seeder is logged and retried on the next start.
func RunSeeders(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	done := db.Collection("seeders")
	for _, seeder := range seeders {
		if n, err := done.CountDocuments(ctx, bson.M{"name": seeder.Name}); err == nil && n > 0 {
			continue
		}

		count, err := seeder.Seed(ctx, db)
		if err != nil {
			logrus.WithField("seeder", seeder.Name).Errorf("❌ Seeder failed: %v", err)
			continue
		}

		if _, err := done.InsertOne(ctx, bson.M{"name": seeder.Name, "records": count, "createdAt": time.Now()}); err != nil {
			logrus.Warnf("Failed to record seeder %s: %v", seeder.Name, err)
		}
		logrus.WithFields(logrus.Fields{
			"seeder":  seeder.Name,
			"records": count,
		}).Info("🌱 Seeder completed")
	}

	return nil
}

// seedDemoFacilities upserts the built-in facility list so Mongo and the
// in-memory provider answer the same lookups
func seedDemoFacilities(ctx context.Context, db *mongo.Database) (int, error) {
	repo := repositories.NewFacilityRepository(db, 0)

	demo := services.DemoFacilities()
	for _, sf := range demo {
		record := &models.FacilityRecord{
			Name:        sf.Facility.Name,
			Kind:        sf.Facility.Kind,
			Location:    models.NewGeoPoint(sf.Latitude, sf.Longitude),
			Phone:       sf.Facility.Phone,
			Specialties: sf.Facility.Specialties,
			Active:      true,
		}
		if err := repo.Upsert(ctx, record); err != nil {
			return 0, fmt.Errorf("upsert %s: %w", record.Name, err)
		}
	}
	return len(demo), nil
}
