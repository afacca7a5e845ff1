package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Register custom validations
	registerCustomValidations()
}

func registerCustomValidations() {
	// Book condition validation
	validate.RegisterValidation("condition", func(fl validator.FieldLevel) bool {
		condition := fl.Field().String()
		validConditions := []string{"excellent", "good", "fair", "poor"}
		for _, c := range validConditions {
			if condition == c {
				return true
			}
		}
		return false
	})

	// History action validation (empty defaults to "read")
	validate.RegisterValidation("history_action", func(fl validator.FieldLevel) bool {
		action := fl.Field().String()
		validActions := []string{"read", "exchanged", "listed", ""}
		for _, a := range validActions {
			if action == a {
				return true
			}
		}
		return false
	})
}

// Validate validates a struct and returns a map of field errors
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	errors := make(map[string]string)
	for _, err := range err.(validator.ValidationErrors) {
		field := err.Field()
		switch err.Tag() {
		case "required":
			errors[field] = "This field is required"
		case "min":
			errors[field] = "Value is too short (min: " + err.Param() + ")"
		case "max":
			errors[field] = "Value is too long (max: " + err.Param() + ")"
		case "gt":
			errors[field] = "Value must be greater than " + err.Param()
		case "gte":
			errors[field] = "Value must be at least " + err.Param()
		case "lte":
			errors[field] = "Value must be at most " + err.Param()
		case "uuid":
			errors[field] = "Invalid identifier format"
		case "condition":
			errors[field] = "Invalid condition. Must be: excellent, good, fair, or poor"
		case "history_action":
			errors[field] = "Invalid action. Must be: read, exchanged, or listed"
		default:
			errors[field] = "Invalid value"
		}
	}

	return errors
}

// ValidateVar validates a single variable
func ValidateVar(field interface{}, tag string) error {
	return validate.Var(field, tag)
}
