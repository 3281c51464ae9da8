package controller

import (
	"github.com/gofiber/fiber/v2"

	"deep-nexus-be/internal/dto"
	"deep-nexus-be/internal/pkg/serverutils"
	"deep-nexus-be/internal/service"
)

type IMailController interface {
	RegisterRoutes(r fiber.Router)
	Send(ctx *fiber.Ctx) error
}

type mailController struct {
	mailService service.IMailService
}

func NewMailController(mailService service.IMailService) IMailController {
	return &mailController{
		mailService: mailService,
	}
}

func (c *mailController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/mail/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("send", c.Send)
}

func (c *mailController) Send(ctx *fiber.Ctx) error {
	senderEmail := localString(ctx, "company_email")

	var req dto.SendMailRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.mailService.Send(ctx.Context(), senderEmail, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success send mail", res))
}
