package controller

import (
	"io"

	"medconsult-be/internal/pkg/serverutils"
	"medconsult-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IVisionController interface {
	RegisterRoutes(r fiber.Router)
	Analyze(ctx *fiber.Ctx) error
}

type visionController struct {
	visionService service.IVisionService
	auth          fiber.Handler
}

func NewVisionController(visionService service.IVisionService, auth fiber.Handler) IVisionController {
	return &visionController{visionService: visionService, auth: auth}
}

func (c *visionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/vision/v1")
	h.Use(c.auth)
	h.Post("analyze", c.Analyze)
}

// Analyze expects multipart fields "image" and optional "prompt".
func (c *visionController) Analyze(ctx *fiber.Ctx) error {
	fh, err := ctx.FormFile("image")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "missing multipart field 'image'")
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()
	image, err := io.ReadAll(f)
	if err != nil {
		return err
	}

	res, err := c.visionService.Analyze(ctx.UserContext(), image, ctx.FormValue("prompt"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success analyze image", res))
}
