package controller

import (
	"bufio"

	"blueprint-research-be/internal/dto"
	"blueprint-research-be/internal/pkg/logger"
	"blueprint-research-be/internal/pkg/serverutils"
	"blueprint-research-be/internal/service"
	"blueprint-research-be/pkg/pipeline"
	"blueprint-research-be/pkg/sse"

	"github.com/gofiber/fiber/v2"
)

type IResearchController interface {
	RegisterRoutes(r fiber.Router, middleware ...fiber.Handler)
	Start(ctx *fiber.Ctx) error
	Select(ctx *fiber.Ctx) error
}

type researchController struct {
	service service.IResearchService
	log     logger.ILogger
}

func NewResearchController(service service.IResearchService, log logger.ILogger) IResearchController {
	return &researchController{service: service, log: log}
}

func (c *researchController) RegisterRoutes(r fiber.Router, middleware ...fiber.Handler) {
	h := r.Group("/research", middleware...)
	h.Post("", c.Start)
	h.Post(":id/selection", c.Select)
}

func (c *researchController) Start(ctx *fiber.Ctx) error {
	var req dto.StartResearchRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	events, err := c.service.Start(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return c.stream(ctx, events)
}

func (c *researchController) Select(ctx *fiber.Ctx) error {
	var req dto.SelectionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	events, err := c.service.Select(ctx.UserContext(), ctx.Params("id"), &req)
	if err != nil {
		return err
	}
	return c.stream(ctx, events)
}

// stream hands events to the response body writer. The writer runs after the
// handler returns, so it must not touch ctx.
func (c *researchController) stream(ctx *fiber.Ctx, events <-chan pipeline.Event) error {
	sse.SetHeaders(ctx)
	requestID := ctx.Locals("requestid")
	path := ctx.Path()

	ctx.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		sse.Pump(w, events, func(err error) {
			c.log.Info("HTTP", "Client left the event stream", map[string]interface{}{
				"path":       path,
				"request_id": requestID,
				"error":      err.Error(),
			})
		})
	})
	return nil
}
