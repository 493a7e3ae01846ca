package config

import (
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	environmentPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)
	packagePattern     = regexp.MustCompile(`^(@[a-z0-9][a-z0-9._-]*/)?[a-z0-9][a-z0-9._-]*$`)
)

// Validator returns the shared validator with the deployline rules registered:
//   - environment: an environment key such as "production" or "staging-eu"
//   - package_name: an addon package name, optionally scoped
func Validator() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("environment", func(fl validator.FieldLevel) bool {
			return environmentPattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("package_name", func(fl validator.FieldLevel) bool {
			return packagePattern.MatchString(fl.Field().String())
		})

		validateInst = v
	})

	return validateInst
}
