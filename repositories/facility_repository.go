package repositories

import (
	"context"

	"lifeline/models"
	"lifeline/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultFacilitySearchLimit = 20

// FacilityRepository finds facilities with a 2dsphere query on the facilities collection
type FacilityRepository struct {
	collection *mongo.Collection
	radiusKm   float64
}

func NewFacilityRepository(db *mongo.Database, radiusKm float64) *FacilityRepository {
	if radiusKm <= 0 {
		radiusKm = 25
	}
	return &FacilityRepository{
		collection: db.Collection("facilities"),
		radiusKm:   radiusKm,
	}
}

// FindNearby returns active facilities within the search radius, nearest first.
// The kind is left to the caller's ranking.
func (fr *FacilityRepository) FindNearby(ctx context.Context, location models.EmergencyLocation, kind models.FacilityKind) ([]models.Facility, error) {
	filter := bson.M{
		"active": true,
		"location": bson.M{
			"$nearSphere": bson.M{
				"$geometry":    models.NewGeoPoint(location.Latitude, location.Longitude),
				"$maxDistance": fr.radiusKm * 1000,
			},
		},
	}

	cursor, err := fr.collection.Find(ctx, filter, options.Find().SetLimit(defaultFacilitySearchLimit))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []models.FacilityRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}

	facilities := make([]models.Facility, 0, len(records))
	for _, record := range records {
		facilities = append(facilities, toFacility(record, location))
	}
	return facilities, nil
}

func (fr *FacilityRepository) Upsert(ctx context.Context, record *models.FacilityRecord) error {
	filter := bson.M{"name": record.Name, "kind": record.Kind}
	update := bson.M{"$set": bson.M{
		"name":        record.Name,
		"kind":        record.Kind,
		"location":    record.Location,
		"address":     record.Address,
		"phone":       record.Phone,
		"specialties": record.Specialties,
		"active":      record.Active,
	}}

	_, err := fr.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func toFacility(record models.FacilityRecord, from models.EmergencyLocation) models.Facility {
	f := models.Facility{
		ID:          record.ID.Hex(),
		Name:        record.Name,
		Kind:        record.Kind,
		Phone:       record.Phone,
		Specialties: record.Specialties,
	}
	if len(record.Location.Coordinates) == 2 {
		lng, lat := record.Location.Coordinates[0], record.Location.Coordinates[1]
		distance := utils.DistanceKm(from.Latitude, from.Longitude, lat, lng)
		f.DistanceKm = utils.RoundToDecimalPlaces(distance, 2)
		f.ETARange = utils.EstimateETARange(distance)
	}
	return f
}
