package controller

import (
	"bufio"
	"context"

	"github.com/gofiber/fiber/v2"

	"deep-nexus-be/internal/dto"
	"deep-nexus-be/internal/entity"
	"deep-nexus-be/internal/pkg/serverutils"
	"deep-nexus-be/internal/service"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	SendChat(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService service.IChatService
}

func NewChatController(chatService service.IChatService) IChatController {
	return &chatController{
		chatService: chatService,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("", c.SendChat)
}

func (c *chatController) SendChat(ctx *fiber.Ctx) error {
	sec := securityContextFromLocals(ctx)

	var req dto.SendChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	ctx.Set(fiber.HeaderContentType, "text/event-stream")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set(fiber.HeaderConnection, "keep-alive")

	// The stream writer runs after this handler returns, so it cannot
	// reuse the request context.
	ctx.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		err := c.chatService.StreamChat(context.Background(), sec, &req, func(chunk string) error {
			if _, err := w.WriteString(chunk); err != nil {
				return err
			}
			return w.Flush()
		})
		if err != nil {
			_, _ = w.WriteString("\n[error] " + err.Error())
			_ = w.Flush()
		}
	})

	return nil
}

func securityContextFromLocals(ctx *fiber.Ctx) entity.SecurityContext {
	return entity.SecurityContext{
		EmployeeID:           localString(ctx, "employee_id"),
		JobRankID:            localString(ctx, "job_rank_id"),
		DepartmentCode:       localString(ctx, "department_code"),
		ParentDepartmentCode: localString(ctx, "parent_department"),
		CompanyEmail:         localString(ctx, "company_email"),
	}
}

func localString(ctx *fiber.Ctx, key string) string {
	if v, ok := ctx.Locals(key).(string); ok {
		return v
	}
	return ""
}
