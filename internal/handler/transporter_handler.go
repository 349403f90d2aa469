package handler

import (
	"bytes"
	"errors"
	"fmt"

	"transporter-onboarding/internal/models"
	"transporter-onboarding/internal/repository"
	"transporter-onboarding/internal/service"
	"transporter-onboarding/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type TransporterHandler struct {
	intake *service.IntakeService
}

func NewTransporterHandler(intake *service.IntakeService) *TransporterHandler {
	return &TransporterHandler{intake: intake}
}

func (h *TransporterHandler) GetTransporters(c *fiber.Ctx) error {
	params := utils.GetPaginationParams(c)
	offset := utils.GetOffset(params.Page, params.Limit)

	transporters, total, err := repository.FindPage(c.UserContext(), h.intake.Store(), params.Search, params.Limit, offset)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve transporters", err)
	}

	pagination := utils.CalculatePagination(params.Page, params.Limit, int64(total))

	responseData := fiber.Map{
		"transporters": transporters,
		"pagination":   pagination,
	}

	return utils.PaginatedResponseBuilder(c, "Transporters retrieved successfully", responseData, pagination)
}

// CreateTransporter runs a single manually entered row through the same rules as an upload.
func (h *TransporterHandler) CreateTransporter(c *fiber.Ctx) error {
	var req models.TransporterRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	result, err := h.intake.CreateManual(c.UserContext(), req)
	if err != nil {
		if result != nil && errors.Is(err, repository.ErrStoreWriteFailed) {
			return utils.ErrorResponseWithData(c, fiber.StatusInternalServerError, result.Message(), result, err)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create transporter", err)
	}

	if result.RejectedCount > 0 {
		return utils.ErrorResponseWithData(c, fiber.StatusUnprocessableEntity, result.Message(), result, nil)
	}

	c.Status(fiber.StatusCreated)
	return utils.SuccessResponse(c, result.Message(), result)
}

// DownloadTemplate sends an empty intake table, xlsx unless ?format=csv.
func (h *TransporterHandler) DownloadTemplate(c *fiber.Ctx) error {
	format, err := service.ParseFormat(c.Query("format"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Unsupported template format", err)
	}

	var buf bytes.Buffer
	if err := h.intake.WriteTemplate(&buf, format); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate template", err)
	}

	c.Attachment(fmt.Sprintf("transporter_template.%s", format))
	return c.Send(buf.Bytes())
}
