package handlers

import (
	"encoding/json"
	"errors"
	"reflect"

	"librarian/internal/services"

	"github.com/gofiber/fiber/v2"
)

// bindJSON parses the request body into out. A value of the wrong JSON type is reported
// as a validation failure on that field; any other malformed body is a plain 400.
func bindJSON(c *fiber.Ctx, out any) error {
	err := c.BodyParser(out)
	if err == nil {
		return nil
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		verr := &services.ValidationError{}
		verr.Add(typeErr.Field, typeMessage(typeErr.Type))
		return verr.Err()
	}
	return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
}

func typeMessage(t reflect.Type) string {
	if t == nil {
		return "has the wrong type"
	}
	switch t.Kind() {
	case reflect.String:
		return "must be a string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "must be an integer"
	case reflect.Bool:
		return "must be a boolean"
	default:
		return "has the wrong type"
	}
}
