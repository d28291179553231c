package services

import (
	"fmt"

	"lifeline/models"
	"lifeline/utils"
)

// CategoryCatalog is the static, immutable list of emergency categories
type CategoryCatalog interface {
	List() []models.EmergencyCategory
	Get(id models.CategoryID) (models.EmergencyCategory, bool)
}

type CatalogService struct {
	categories []models.EmergencyCategory
	byID       map[models.CategoryID]int
}

// NewCatalogService validates the categories once and indexes them by id
func NewCatalogService(categories []models.EmergencyCategory, validator *utils.ValidationService) (*CatalogService, error) {
	byID := make(map[models.CategoryID]int, len(categories))
	for i, category := range categories {
		if errs := validator.ValidateStruct(category); len(errs) > 0 {
			return nil, fmt.Errorf("category %q: %s %s", category.ID, errs[0].Field, errs[0].Message)
		}
		if _, dup := byID[category.ID]; dup {
			return nil, fmt.Errorf("duplicate category %q", category.ID)
		}
		for n, step := range category.FirstAidSteps {
			if step.Number != n+1 {
				return nil, fmt.Errorf("category %q: first-aid step %d is numbered %d", category.ID, n+1, step.Number)
			}
		}
		byID[category.ID] = i
	}

	return &CatalogService{
		categories: categories,
		byID:       byID,
	}, nil
}

// NewDefaultCatalogService loads the built-in catalog
func NewDefaultCatalogService(validator *utils.ValidationService) (*CatalogService, error) {
	return NewCatalogService(DefaultCategories(), validator)
}

func (cs *CatalogService) List() []models.EmergencyCategory {
	out := make([]models.EmergencyCategory, len(cs.categories))
	copy(out, cs.categories)
	return out
}

func (cs *CatalogService) Get(id models.CategoryID) (models.EmergencyCategory, bool) {
	i, ok := cs.byID[id]
	if !ok {
		return models.EmergencyCategory{}, false
	}
	return cs.categories[i], true
}

func steps(instructions ...[2]string) []models.FirstAidStep {
	out := make([]models.FirstAidStep, 0, len(instructions))
	for i, s := range instructions {
		out = append(out, models.FirstAidStep{
			Number:      i + 1,
			Instruction: s[0],
			Warning:     s[1],
			AudioKey:    fmt.Sprintf("step_%d", i+1),
		})
	}
	return out
}

func ambulanceAction() models.SpecializedAction {
	return models.SpecializedAction{ID: "call_ambulance", Label: "Call Ambulance (108)", Kind: models.ActionRequestAmbulance, Priority: models.PriorityHigh}
}

func familyAction() models.SpecializedAction {
	return models.SpecializedAction{ID: "alert_family", Label: "Alert Family Contacts", Kind: models.ActionContactFamily, Priority: models.PriorityMedium}
}

// DefaultCategories is the built-in catalog in display order
func DefaultCategories() []models.EmergencyCategory {
	return []models.EmergencyCategory{
		{
			ID:    models.CategoryChestPain,
			Title: "Chest Pain",
			Color: "#E53935",
			Emoji: "💔",
			FirstAidSteps: steps(
				[2]string{"Help the person sit down and rest in a comfortable position", ""},
				[2]string{"Loosen any tight clothing around the neck and chest", ""},
				[2]string{"If not allergic, give one adult aspirin (325 mg) to chew slowly", "Do not give aspirin to anyone allergic to it or with a bleeding disorder"},
				[2]string{"Keep the person calm and monitor breathing until help arrives", ""},
			),
			Actions: []models.SpecializedAction{
				ambulanceAction(),
				{ID: "call_cardiologist", Label: "Call Cardiologist", Kind: models.ActionCallSpecialist, Priority: models.PriorityHigh},
				{ID: "nearest_cardiac", Label: "Nearest Cardiac Center", Kind: models.ActionLocateFacility, Priority: models.PriorityMedium},
				familyAction(),
			},
			TargetFacility: models.FacilityHospital,
		},
		{
			ID:    models.CategoryHeartAttack,
			Title: "Heart Attack",
			Color: "#C62828",
			Emoji: "❤️",
			FirstAidSteps: steps(
				[2]string{"Call for emergency help immediately", ""},
				[2]string{"Have the person sit down, rest and stay calm", ""},
				[2]string{"Give aspirin to chew if the person is not allergic", "Never give aspirin to a person who is allergic to it"},
				[2]string{"If the person becomes unresponsive and is not breathing, begin CPR", "Push hard and fast in the center of the chest, 100 to 120 compressions a minute"},
			),
			Actions: []models.SpecializedAction{
				ambulanceAction(),
				{ID: "cpr_guide", Label: "CPR Guide", Kind: models.ActionShowGuide, Priority: models.PriorityHigh},
				{ID: "nearest_cardiac", Label: "Nearest Cardiac Center", Kind: models.ActionLocateFacility, Priority: models.PriorityHigh},
				familyAction(),
			},
			TargetFacility: models.FacilityHospital,
		},
		{
			ID:    models.CategoryStroke,
			Title: "Stroke",
			Color: "#6A1B9A",
			Emoji: "🧠",
			FirstAidSteps: steps(
				[2]string{"Note the time when symptoms started", ""},
				[2]string{"Check FAST: face drooping, arm weakness, speech difficulty", ""},
				[2]string{"Keep the person lying on their side with the head slightly raised", ""},
				[2]string{"Do not give anything to eat or drink", "Swallowing may be impaired and food or water can block the airway"},
			),
			Actions: []models.SpecializedAction{
				ambulanceAction(),
				{ID: "call_neurologist", Label: "Call Neurologist", Kind: models.ActionCallSpecialist, Priority: models.PriorityHigh},
				{ID: "nearest_stroke", Label: "Nearest Stroke Unit", Kind: models.ActionLocateFacility, Priority: models.PriorityHigh},
				familyAction(),
			},
			TargetFacility: models.FacilityHospital,
		},
		{
			ID:    models.CategoryBreathingDifficulty,
			Title: "Breathing Difficulty",
			Color: "#1E88E5",
			Emoji: "🫁",
			FirstAidSteps: steps(
				[2]string{"Help the person sit upright and lean slightly forward", ""},
				[2]string{"Help them use their inhaler if they have one", ""},
				[2]string{"Loosen tight clothing and open windows for fresh air", ""},
				[2]string{"Encourage slow, deep breaths", "If lips or face turn blue, emergency help is needed immediately"},
			),
			Actions: []models.SpecializedAction{
				ambulanceAction(),
				{ID: "call_pulmonologist", Label: "Call Pulmonologist", Kind: models.ActionCallSpecialist, Priority: models.PriorityMedium},
				{ID: "breathing_guide", Label: "Breathing Exercises", Kind: models.ActionShowGuide, Priority: models.PriorityLow},
				familyAction(),
			},
			TargetFacility: models.FacilityHospital,
		},
		{
			ID:    models.CategoryRoadAccident,
			Title: "Road Accident",
			Color: "#F4511E",
			Emoji: "🚗",
			FirstAidSteps: steps(
				[2]string{"Make sure the scene is safe and switch on hazard lights", "Do not approach if there is fire or fuel leakage"},
				[2]string{"Do not move the injured person unless there is immediate danger", "Moving a person with a spinal injury can cause paralysis"},
				[2]string{"Apply firm pressure to any bleeding with a clean cloth", ""},
				[2]string{"Keep the person warm and talk to them until help arrives", ""},
			),
			Actions: []models.SpecializedAction{
				ambulanceAction(),
				{ID: "nearest_trauma", Label: "Nearest Trauma Center", Kind: models.ActionLocateFacility, Priority: models.PriorityHigh},
				{ID: "bleeding_guide", Label: "Bleeding Control Guide", Kind: models.ActionShowGuide, Priority: models.PriorityMedium},
				familyAction(),
			},
			TargetFacility: models.FacilityTraumaCenter,
		},
		{
			ID:    models.CategorySevereInjury,
			Title: "Severe Injury",
			Color: "#D84315",
			Emoji: "🩸",
			FirstAidSteps: steps(
				[2]string{"Apply direct pressure to the wound with a clean cloth", ""},
				[2]string{"Raise the injured part above the heart if possible", "Do not raise a limb you suspect is broken"},
				[2]string{"Do not remove objects stuck in the wound", ""},
				[2]string{"Keep the person lying down and warm", ""},
			),
			Actions: []models.SpecializedAction{
				ambulanceAction(),
				{ID: "nearest_trauma", Label: "Nearest Trauma Center", Kind: models.ActionLocateFacility, Priority: models.PriorityHigh},
				{ID: "call_surgeon", Label: "Call Surgeon", Kind: models.ActionCallSpecialist, Priority: models.PriorityMedium},
				familyAction(),
			},
			TargetFacility: models.FacilityTraumaCenter,
		},
		{
			ID:    models.CategorySevereTrauma,
			Title: "Severe Trauma",
			Color: "#B71C1C",
			Emoji: "🚑",
			FirstAidSteps: steps(
				[2]string{"Check for responsiveness and breathing", ""},
				[2]string{"Keep the head, neck and back in line", "Do not move the person unless their life is in danger"},
				[2]string{"Control heavy bleeding with firm pressure", ""},
				[2]string{"If not breathing, begin CPR", ""},
			),
			Actions: []models.SpecializedAction{
				ambulanceAction(),
				{ID: "nearest_trauma", Label: "Nearest Trauma Center", Kind: models.ActionLocateFacility, Priority: models.PriorityHigh},
				{ID: "cpr_guide", Label: "CPR Guide", Kind: models.ActionShowGuide, Priority: models.PriorityHigh},
				familyAction(),
			},
			TargetFacility: models.FacilityTraumaCenter,
		},
		{
			ID:    models.CategoryBurns,
			Title: "Burns",
			Color: "#FB8C00",
			Emoji: "🔥",
			FirstAidSteps: steps(
				[2]string{"Cool the burn under cool running water for 20 minutes", "Do not use ice, butter or toothpaste on a burn"},
				[2]string{"Remove rings or tight items before swelling starts", ""},
				[2]string{"Cover the burn loosely with cling film or a clean cloth", ""},
				[2]string{"Do not burst any blisters", ""},
			),
			Actions: []models.SpecializedAction{
				ambulanceAction(),
				{ID: "nearest_burn_unit", Label: "Nearest Burn Unit", Kind: models.ActionLocateFacility, Priority: models.PriorityHigh},
				{ID: "call_dermatologist", Label: "Call Dermatologist", Kind: models.ActionCallSpecialist, Priority: models.PriorityLow},
				familyAction(),
			},
			TargetFacility: models.FacilityHospital,
		},
		{
			ID:    models.CategorySnakeBite,
			Title: "Snake Bite",
			Color: "#2E7D32",
			Emoji: "🐍",
			FirstAidSteps: steps(
				[2]string{"Move away from the snake and keep the person calm", ""},
				[2]string{"Keep the bitten limb still and below heart level", ""},
				[2]string{"Remove rings, watches and tight clothing near the bite", ""},
				[2]string{"Get to a hospital with anti-venom quickly", "Do not cut the wound, suck out venom or apply a tight tourniquet"},
			),
			Actions: []models.SpecializedAction{
				ambulanceAction(),
				{ID: "antivenom_hospital", Label: "Hospitals with Anti-venom", Kind: models.ActionLocateFacility, Priority: models.PriorityHigh},
				{ID: "snake_guide", Label: "Snake Bite Guide", Kind: models.ActionShowGuide, Priority: models.PriorityMedium},
				familyAction(),
			},
			TargetFacility: models.FacilityHospital,
		},
		{
			ID:    models.CategoryPoisoning,
			Title: "Poisoning",
			Color: "#7CB342",
			Emoji: "☠️",
			FirstAidSteps: steps(
				[2]string{"Find out what was swallowed, how much and when", ""},
				[2]string{"Keep the container or label to show medical staff", ""},
				[2]string{"If the person is unconscious, place them in the recovery position", ""},
				[2]string{"Do not make the person vomit", "Vomiting can cause more damage with corrosive substances"},
			),
			Actions: []models.SpecializedAction{
				ambulanceAction(),
				{ID: "poison_control", Label: "Call Poison Control", Kind: models.ActionCallSpecialist, Priority: models.PriorityHigh},
				{ID: "nearest_poison_center", Label: "Nearest Poison Center", Kind: models.ActionLocateFacility, Priority: models.PriorityMedium},
				familyAction(),
			},
			TargetFacility: models.FacilityPoisonControl,
		},
		{
			ID:    models.CategoryPregnancyDelivery,
			Title: "Pregnancy / Delivery",
			Color: "#EC407A",
			Emoji: "🤰",
			FirstAidSteps: steps(
				[2]string{"Help the mother lie down on her left side", ""},
				[2]string{"Time the contractions and note when they began", ""},
				[2]string{"Prepare clean towels and keep the area warm", ""},
				[2]string{"If the baby is coming, support the head gently", "Do not pull the baby or the umbilical cord"},
			),
			Actions: []models.SpecializedAction{
				ambulanceAction(),
				{ID: "nearest_maternity", Label: "Nearest Maternity Hospital", Kind: models.ActionLocateFacility, Priority: models.PriorityHigh},
				{ID: "call_gynecologist", Label: "Call Gynecologist", Kind: models.ActionCallSpecialist, Priority: models.PriorityHigh},
				familyAction(),
			},
			TargetFacility: models.FacilityMaternity,
		},
		{
			ID:    models.CategoryChildEmergency,
			Title: "Child Emergency",
			Color: "#00ACC1",
			Emoji: "👶",
			FirstAidSteps: steps(
				[2]string{"Check whether the child is responsive and breathing", ""},
				[2]string{"If choking, give five back blows between the shoulder blades", "For infants use two fingers for chest thrusts, never abdominal thrusts"},
				[2]string{"For a high fever, remove extra clothing and sponge with lukewarm water", ""},
				[2]string{"Keep the child calm and stay with them", ""},
			),
			Actions: []models.SpecializedAction{
				ambulanceAction(),
				{ID: "call_pediatrician", Label: "Call Pediatrician", Kind: models.ActionCallSpecialist, Priority: models.PriorityHigh},
				{ID: "nearest_pediatric", Label: "Nearest Children's Hospital", Kind: models.ActionLocateFacility, Priority: models.PriorityMedium},
				familyAction(),
			},
			TargetFacility: models.FacilityPediatric,
		},
	}
}
