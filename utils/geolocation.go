package utils

import (
	"fmt"
	"math"
)

const (
	EarthRadiusKm = 6371.0
	DegToRad      = math.Pi / 180.0
)

// DistanceKm calculates the great-circle distance between two coordinates using the Haversine formula
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * DegToRad
	lon1Rad := lon1 * DegToRad
	lat2Rad := lat2 * DegToRad
	lon2Rad := lon2 * DegToRad

	dlat := lat2Rad - lat1Rad
	dlon := lon2Rad - lon1Rad

	a := math.Sin(dlat/2)*math.Sin(dlat/2) + math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

func IsValidCoordinate(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// FormatCoordinates renders a position as the address used when no geocoder is available
func FormatCoordinates(lat, lon float64) string {
	return fmt.Sprintf("%.6f, %.6f", lat, lon)
}

// RoundToDecimalPlaces rounds for display
func RoundToDecimalPlaces(value float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(value*pow) / pow
}

// EstimateETARange turns a distance into a coarse travel window at urban ambulance speeds
func EstimateETARange(distanceKm float64) string {
	// 40 km/h best case, 25 km/h in traffic
	low := int(math.Ceil(distanceKm / 40 * 60))
	high := int(math.Ceil(distanceKm / 25 * 60))
	if low < 1 {
		low = 1
	}
	if high <= low {
		high = low + 1
	}
	return fmt.Sprintf("%d-%d min", low, high)
}
