package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Facility is a candidate healthcare facility returned by a lookup provider
type Facility struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Kind        FacilityKind `json:"kind"`
	DistanceKm  float64      `json:"distanceKm"`
	ETARange    string       `json:"etaRange"`
	Specialties []string     `json:"specialties,omitempty"`
	Phone       string       `json:"phone,omitempty"`
}

// GeoPoint is a GeoJSON point as stored by MongoDB ([lng, lat])
type GeoPoint struct {
	Type        string    `json:"type" bson:"type"`
	Coordinates []float64 `json:"coordinates" bson:"coordinates"`
}

func NewGeoPoint(lat, lng float64) GeoPoint {
	return GeoPoint{Type: "Point", Coordinates: []float64{lng, lat}}
}

// FacilityRecord is the persisted form of a facility in the facilities collection
type FacilityRecord struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name"`
	Kind        FacilityKind       `json:"kind" bson:"kind"`
	Location    GeoPoint           `json:"location" bson:"location"`
	Address     string             `json:"address,omitempty" bson:"address,omitempty"`
	Phone       string             `json:"phone,omitempty" bson:"phone,omitempty"`
	Specialties []string           `json:"specialties,omitempty" bson:"specialties,omitempty"`
	Active      bool               `json:"active" bson:"active"`
}
