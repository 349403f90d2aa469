package utils

import (
	"github.com/gofiber/fiber/v2"
)

// Response is the JSON envelope of every API reply
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func SuccessResponse(c *fiber.Ctx, message string, data interface{}) error {
	return c.JSON(Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func ErrorResponse(c *fiber.Ctx, status int, message string, err error) error {
	resp := Response{
		Success: false,
		Message: message,
	}
	if err != nil {
		resp.Error = err.Error()
		GetLogger().WithError(err).WithFields(map[string]interface{}{
			"status": status,
			"path":   c.Path(),
		}).Warn(message)
	}
	return c.Status(status).JSON(resp)
}

// ErrorResponseWithData is ErrorResponse carrying a payload, used when a request
// failed part way and the caller still needs the partial result.
func ErrorResponseWithData(c *fiber.Ctx, status int, message string, data interface{}, err error) error {
	resp := Response{
		Success: false,
		Message: message,
		Data:    data,
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return c.Status(status).JSON(resp)
}
