package validator

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/drawclub/draw-promo-service/internal/promo"
)

// New creates a new validator instance with custom validations registered.
// This ensures consistent validation across the application and tests.
func New() *validator.Validate {
	v := validator.New()

	// Register custom "notblank" validator - rejects whitespace-only strings
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		str, ok := fl.Field().Interface().(string)
		if !ok {
			return true // Not a string, let other validators handle it
		}
		return strings.TrimSpace(str) != ""
	})

	// "localminute" accepts zone-naive timestamps in promo.Layout (YYYY-MM-DDTHH:mm)
	_ = v.RegisterValidation("localminute", func(fl validator.FieldLevel) bool {
		str, ok := fl.Field().Interface().(string)
		if !ok {
			return true
		}
		_, err := time.Parse(promo.Layout, str)
		return err == nil
	})

	return v
}
