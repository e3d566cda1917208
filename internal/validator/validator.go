package validator

import (
	"github.com/go-playground/validator/v10"

	"solartrack/internal/model"
)

type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New()

	// Domain enum validators, usable as `validate:"fault_status"` etc.
	v.RegisterValidation("role", validateRole)
	v.RegisterValidation("fault_status", validateFaultStatus)
	v.RegisterValidation("priority", validatePriority)
	v.RegisterValidation("patrol_shift", validatePatrolShift)

	return &Validator{validate: v}
}

func (v *Validator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

func validateRole(fl validator.FieldLevel) bool {
	return model.Role(fl.Field().String()).Valid()
}

func validateFaultStatus(fl validator.FieldLevel) bool {
	return model.FaultStatus(fl.Field().String()).Valid()
}

func validatePriority(fl validator.FieldLevel) bool {
	return model.Priority(fl.Field().String()).Valid()
}

func validatePatrolShift(fl validator.FieldLevel) bool {
	shift := model.PatrolShift(fl.Field().String())
	return shift == model.PatrolShiftDay || shift == model.PatrolShiftNight
}
