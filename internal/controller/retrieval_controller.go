package controller

import (
	"medconsult-be/internal/dto"
	"medconsult-be/internal/pkg/serverutils"
	"medconsult-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IRetrievalController interface {
	RegisterRoutes(r fiber.Router)
	Query(ctx *fiber.Ctx) error
	History(ctx *fiber.Ctx) error
}

type retrievalController struct {
	retrievalService service.IRetrievalService
	auth             fiber.Handler
}

func NewRetrievalController(retrievalService service.IRetrievalService, auth fiber.Handler) IRetrievalController {
	return &retrievalController{retrievalService: retrievalService, auth: auth}
}

func (c *retrievalController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/retrieval/v1")
	h.Use(c.auth)
	h.Post("query", c.Query)
	h.Get("history/:id", c.History)
}

// Query always answers 200 for knowledge-server failures; the failure is in the body.
func (c *retrievalController) Query(ctx *fiber.Ctx) error {
	req := dto.NewRetrievalQueryRequest()
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.retrievalService.Query(ctx.UserContext(), serverutils.UserID(ctx), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success query knowledge base", res))
}

func (c *retrievalController) History(ctx *fiber.Ctx) error {
	res, err := c.retrievalService.History(ctx.UserContext(), serverutils.UserID(ctx), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get retrieval history", res))
}
