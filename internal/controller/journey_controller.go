package controller

import (
	"blueprint-research-be/internal/pkg/serverutils"
	"blueprint-research-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IJourneyController interface {
	RegisterRoutes(r fiber.Router)
	GetAll(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
}

type journeyController struct {
	service service.IJourneyService
}

func NewJourneyController(service service.IJourneyService) IJourneyController {
	return &journeyController{service: service}
}

func (c *journeyController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/journeys")
	h.Get("", c.GetAll)
	h.Get(":id", c.Show)
}

func (c *journeyController) GetAll(ctx *fiber.Ctx) error {
	res, err := c.service.List(ctx.UserContext(), ctx.QueryInt("limit", 50), ctx.QueryInt("offset", 0))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get all journeys", res))
}

func (c *journeyController) Show(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.NotFound("Journey not found")
	}

	res, err := c.service.Detail(ctx.UserContext(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get journey", res))
}
