package validation

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"triphub/internal/models"
	"triphub/internal/services"
)

// Validator wraps struct validation behind one shared instance.
type Validator struct {
	validate *validator.Validate
}

// New creates the validator with the custom action_type rule registered.
func New() (*Validator, error) {
	v := validator.New(validator.WithRequiredStructEnabled())

	err := v.RegisterValidation("action_type", func(fl validator.FieldLevel) bool {
		return models.ActionType(fl.Field().String()).Valid()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register action_type validation: %w", err)
	}

	return &Validator{validate: v}, nil
}

// ValidateStruct checks the struct tags and converts failures into a
// validation service error with per-field details.
func (v *Validator) ValidateStruct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return services.NewValidationError("invalid request", err)
	}

	serviceErr := services.NewValidationError("request validation failed", err)
	for _, fieldErr := range validationErrs {
		serviceErr = serviceErr.WithDetail(
			strings.ToLower(fieldErr.Field()),
			fmt.Sprintf("failed %s validation", fieldErr.Tag()),
		)
	}
	return serviceErr
}
