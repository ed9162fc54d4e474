package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/mediagrab/api/internal/engine"
	"github.com/mediagrab/api/internal/model"
	"github.com/mediagrab/api/pkg/response"
)

type MediaHandler struct {
	engine    engine.Engine
	validator *validator.Validate
}

func NewMediaHandler(eng engine.Engine, v *validator.Validate) *MediaHandler {
	return &MediaHandler{
		engine:    eng,
		validator: v,
	}
}

// Probe handles POST /api/media/probe. It returns basic metadata so
// the user can preview before submitting a job.
func (h *MediaHandler) Probe(c *fiber.Ctx) error {
	var req model.ProbeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	info, err := h.engine.Probe(c.Context(), req.URL)
	if err != nil {
		return response.ProbeError(c, err.Error())
	}

	return response.OK(c, model.ProbeResponse{
		Title:     info.Title,
		Thumbnail: info.Thumbnail,
		Duration:  info.Duration,
		Uploader:  info.Uploader,
	})
}
