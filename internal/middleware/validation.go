package middleware

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/pobredward/inschoolz-push-api/internal/model"
)

// RegisterValidators installs custom binding validators on gin's
// validator engine. Call once at startup.
func RegisterValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("platform", func(fl validator.FieldLevel) bool {
			return model.Platform(fl.Field().String()).Valid()
		})
	}
}
