package serverutils

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

func ValidateRequest(req interface{}) error {
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("validation failed: %v", err))
	}
	return nil
}
