package utils

import (
	"fmt"
	"regexp"
	"strings"

	"lifeline/models"

	"github.com/go-playground/validator/v10"
)

type ValidationService struct {
	validator *validator.Validate
}

type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

var (
	phoneDigits = regexp.MustCompile(`\D`)
	phoneRegex  = regexp.MustCompile(`^\+?[1-9]\d{9,14}$`)
)

func NewValidationService() *ValidationService {
	v := validator.New()

	// Register custom validators
	v.RegisterValidation("phone", validatePhone)
	v.RegisterValidation("coordinate", validateCoordinate)
	v.RegisterValidation("language", validateLanguage)
	v.RegisterValidation("category_id", validateCategoryID)
	v.RegisterValidation("action_kind", validateActionKind)
	v.RegisterValidation("facility_kind", validateFacilityKind)

	return &ValidationService{
		validator: v,
	}
}

func (vs *ValidationService) ValidateStruct(s interface{}) []ValidationError {
	var validationErrors []ValidationError

	err := vs.validator.Struct(s)
	if err != nil {
		fieldErrors, ok := err.(validator.ValidationErrors)
		if !ok {
			return []ValidationError{{Tag: "invalid", Message: err.Error()}}
		}
		for _, fe := range fieldErrors {
			validationErrors = append(validationErrors, ValidationError{
				Field:   fe.Field(),
				Tag:     fe.Tag(),
				Value:   fmt.Sprintf("%v", fe.Value()),
				Message: vs.getErrorMessage(fe),
			})
		}
	}

	return validationErrors
}

func (vs *ValidationService) getErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "Invalid email format"
	case "phone":
		return "Invalid phone number format"
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", fe.Field(), fe.Param())
	case "coordinate":
		return "Invalid coordinate value"
	case "language":
		return "Unsupported language"
	case "category_id":
		return "Unknown emergency category"
	case "action_kind":
		return "Invalid action kind"
	case "facility_kind":
		return "Invalid facility kind"
	case "hexcolor":
		return "Invalid color"
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// Custom validation functions

// validatePhone accepts formatted input ("+91 98000 00001") by checking the
// same normalized form the contact store keeps
func validatePhone(fl validator.FieldLevel) bool {
	return phoneRegex.MatchString(NormalizePhoneNumber(fl.Field().String()))
}

func validateCoordinate(fl validator.FieldLevel) bool {
	coord := fl.Field().Float()
	fieldName := strings.ToLower(fl.FieldName())

	if strings.Contains(fieldName, "lat") {
		return coord >= -90 && coord <= 90
	}
	if strings.Contains(fieldName, "lon") || strings.Contains(fieldName, "lng") {
		return coord >= -180 && coord <= 180
	}

	return true
}

// Requests are strict even though the wizard itself normalizes unknown languages
func validateLanguage(fl validator.FieldLevel) bool {
	lang := models.Language(fl.Field().String())
	return lang.Normalize() == lang
}

func validateCategoryID(fl validator.FieldLevel) bool {
	return models.CategoryID(fl.Field().String()).Valid()
}

func validateActionKind(fl validator.FieldLevel) bool {
	return models.ActionKind(fl.Field().String()).Valid()
}

func validateFacilityKind(fl validator.FieldLevel) bool {
	return models.FacilityKind(fl.Field().String()).Valid()
}

// NormalizePhoneNumber strips formatting, keeping a leading +
func NormalizePhoneNumber(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}
	prefix := ""
	if strings.HasPrefix(phone, "+") {
		prefix = "+"
	}
	return prefix + phoneDigits.ReplaceAllString(phone, "")
}
