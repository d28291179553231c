package services

import (
	"context"
	"sort"

	"lifeline/models"
	"lifeline/utils"
)

// FacilityLookup returns candidate facilities near a location
type FacilityLookup interface {
	FindNearby(ctx context.Context, location models.EmergencyLocation, kind models.FacilityKind) ([]models.Facility, error)
}

// ContactDirectory lists the caller's registered family contacts
type ContactDirectory interface {
	ListContacts(ctx context.Context) ([]models.EmergencyContact, error)
}

// StaticFacility is a facility with a fixed position
type StaticFacility struct {
	Facility  models.Facility
	Latitude  float64
	Longitude float64
}

// StaticFacilityProvider ranks an in-memory facility list by haversine distance.
// It is the lookup used when no database is configured.
type StaticFacilityProvider struct {
	facilities []StaticFacility
	radiusKm   float64
}

func NewStaticFacilityProvider(facilities []StaticFacility, radiusKm float64) *StaticFacilityProvider {
	if radiusKm <= 0 {
		radiusKm = 25
	}
	return &StaticFacilityProvider{facilities: facilities, radiusKm: radiusKm}
}

// FindNearby returns every facility within the radius, nearest first. The kind
// is a preference for the caller's ranking, not a filter.
func (sp *StaticFacilityProvider) FindNearby(ctx context.Context, location models.EmergencyLocation, kind models.FacilityKind) ([]models.Facility, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []models.Facility
	for _, sf := range sp.facilities {
		distance := utils.DistanceKm(location.Latitude, location.Longitude, sf.Latitude, sf.Longitude)
		if distance > sp.radiusKm {
			continue
		}
		f := sf.Facility
		f.Specialties = append([]string(nil), sf.Facility.Specialties...)
		f.DistanceKm = utils.RoundToDecimalPlaces(distance, 2)
		f.ETARange = utils.EstimateETARange(distance)
		out = append(out, f)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DistanceKm < out[j].DistanceKm
	})
	return out, nil
}

// StaticContactDirectory is a fixed contact list
type StaticContactDirectory []models.EmergencyContact

func (sd StaticContactDirectory) ListContacts(ctx context.Context) ([]models.EmergencyContact, error) {
	return append([]models.EmergencyContact(nil), sd...), nil
}

// DemoFacilities is a small Bengaluru set used for local development and seeding
func DemoFacilities() []StaticFacility {
	return []StaticFacility{
		{Facility: models.Facility{ID: "blr-victoria", Name: "Victoria Hospital", Kind: models.FacilityHospital, Phone: "+918026701150", Specialties: []string{"Emergency Medicine", "General Medicine", "Burns"}}, Latitude: 12.9629, Longitude: 77.5736},
		{Facility: models.Facility{ID: "blr-nimhans", Name: "NIMHANS", Kind: models.FacilityHospital, Phone: "+918026995000", Specialties: []string{"Neurology", "Stroke"}}, Latitude: 12.9431, Longitude: 77.5967},
		{Facility: models.Facility{ID: "blr-jayadeva", Name: "Sri Jayadeva Institute of Cardiology", Kind: models.FacilityHospital, Phone: "+918022977400", Specialties: []string{"Cardiology"}}, Latitude: 12.9177, Longitude: 77.5990},
		{Facility: models.Facility{ID: "blr-trauma", Name: "Bowring Trauma Care Centre", Kind: models.FacilityTraumaCenter, Phone: "+918025591325", Specialties: []string{"Orthopedics", "Trauma Surgery"}}, Latitude: 12.9830, Longitude: 77.6050},
		{Facility: models.Facility{ID: "blr-vani-vilas", Name: "Vani Vilas Women and Children Hospital", Kind: models.FacilityMaternity, Phone: "+918026703208", Specialties: []string{"Obstetrics & Gynecology"}}, Latitude: 12.9606, Longitude: 77.5742},
		{Facility: models.Facility{ID: "blr-igich", Name: "Indira Gandhi Institute of Child Health", Kind: models.FacilityPediatric, Phone: "+918026564224", Specialties: []string{"Pediatrics"}}, Latitude: 12.9412, Longitude: 77.5960},
		{Facility: models.Facility{ID: "blr-poison", Name: "Poison Information Centre", Kind: models.FacilityPoisonControl, Phone: "+918026702120", Specialties: []string{"Toxicology"}}, Latitude: 12.9625, Longitude: 77.5750},
		{Facility: models.Facility{ID: "blr-jayanagar-clinic", Name: "Jayanagar Family Clinic", Kind: models.FacilityClinic, Phone: "+918026634455", Specialties: []string{"General Medicine"}}, Latitude: 12.9250, Longitude: 77.5938},
		{Facility: models.Facility{ID: "blr-indiranagar-clinic", Name: "Indiranagar Health Clinic", Kind: models.FacilityClinic, Phone: "+918025201122", Specialties: []string{"General Medicine"}}, Latitude: 12.9719, Longitude: 77.6412},
	}
}
