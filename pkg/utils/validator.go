package utils

import (
	"github.com/go-playground/validator/v10"

	"github.com/vidora/vidora-backend/internal/pricing"
)

type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()

	// Custom validations
	v.RegisterValidation("sub_plan", validatePlan)
	v.RegisterValidation("topup_package", validateTopupPackage)

	return &Validator{
		validate: v,
	}
}

func (v *Validator) Struct(s interface{}) error {
	return v.validate.Struct(s)
}

func validatePlan(fl validator.FieldLevel) bool {
	_, ok := pricing.Plans[fl.Field().String()]
	return ok
}

func validateTopupPackage(fl validator.FieldLevel) bool {
	_, ok := pricing.TopupPackages[fl.Field().String()]
	return ok
}
