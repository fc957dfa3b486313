package controller

import (
	"blueprint-research-be/internal/pkg/logger"
	"blueprint-research-be/internal/pkg/serverutils"

	"github.com/gofiber/fiber/v2"
)

// ILogController exposes the application log for support lookups by error code.
// It is only registered outside production.
type ILogController interface {
	RegisterRoutes(r fiber.Router)
	GetAll(ctx *fiber.Ctx) error
}

type logController struct {
	log logger.ILogger
}

func NewLogController(log logger.ILogger) ILogController {
	return &logController{log: log}
}

func (c *logController) RegisterRoutes(r fiber.Router) {
	r.Get("/logs", c.GetAll)
}

func (c *logController) GetAll(ctx *fiber.Ctx) error {
	entries, err := c.log.ReadLogs(logger.LogFilter{
		Level:     ctx.Query("level"),
		ErrorCode: ctx.Query("error_code"),
		Limit:     ctx.QueryInt("limit", 100),
		Offset:    ctx.QueryInt("offset", 0),
	})
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get logs", entries))
}
