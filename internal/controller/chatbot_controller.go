package controller

import (
	"context"
	"encoding/json"
	"io"

	"medconsult-be/internal/dto"
	"medconsult-be/internal/pkg/logger"
	"medconsult-be/internal/pkg/serverutils"
	"medconsult-be/internal/service"
	"medconsult-be/pkg/upload"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sourcegraph/conc"
)

type IChatbotController interface {
	RegisterRoutes(r fiber.Router)
	CreateSession(ctx *fiber.Ctx) error
	GetSession(ctx *fiber.Ctx) error
	DeleteSession(ctx *fiber.Ctx) error
	SelectBackend(ctx *fiber.Ctx) error
	Upload(ctx *fiber.Ctx) error
	SendChat(ctx *fiber.Ctx) error
}

type chatbotController struct {
	chatbotService service.IChatbotService
	auth           fiber.Handler
	logger         logger.ILogger
}

func NewChatbotController(chatbotService service.IChatbotService, auth fiber.Handler, log logger.ILogger) IChatbotController {
	return &chatbotController{
		chatbotService: chatbotService,
		auth:           auth,
		logger:         log,
	}
}

func (c *chatbotController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Use(c.auth)
	h.Post("session", c.CreateSession)
	h.Get("session/:id", c.GetSession)
	h.Delete("session/:id", c.DeleteSession)
	h.Put("session/:id/backend", c.SelectBackend)
	h.Post("session/:id/upload", c.Upload)
	h.Post("send", c.SendChat)
	h.Get("ws/:id", c.upgrade, websocket.New(c.streamChat))
}

func (c *chatbotController) CreateSession(ctx *fiber.Ctx) error {
	var req dto.CreateSessionRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatbotService.CreateSession(ctx.UserContext(), serverutils.UserID(ctx), &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success create session", res))
}

func (c *chatbotController) GetSession(ctx *fiber.Ctx) error {
	res, err := c.chatbotService.GetSession(ctx.UserContext(), serverutils.UserID(ctx), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get session", res))
}

func (c *chatbotController) DeleteSession(ctx *fiber.Ctx) error {
	if err := c.chatbotService.DeleteSession(ctx.UserContext(), serverutils.UserID(ctx), ctx.Params("id")); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success delete session", nil))
}

func (c *chatbotController) SelectBackend(ctx *fiber.Ctx) error {
	var req dto.SelectBackendRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatbotService.SelectBackend(ctx.UserContext(), serverutils.UserID(ctx), ctx.Params("id"), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success select backend", res))
}

func (c *chatbotController) Upload(ctx *fiber.Ctx) error {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "missing multipart field 'file'")
	}
	if fh.Size > upload.MaxSize {
		return upload.ErrTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return err
	}

	res, err := c.chatbotService.Upload(ctx.UserContext(), serverutils.UserID(ctx), ctx.Params("id"), fh.Filename, data)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success upload document", res))
}

// SendChat answers one turn and returns the whole reply.
func (c *chatbotController) SendChat(ctx *fiber.Ctx) error {
	var req dto.SendChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatbotService.SendChat(ctx.UserContext(), serverutils.UserID(ctx), &req, nil)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success send chat", res))
}

func (c *chatbotController) upgrade(ctx *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(ctx) {
		return fiber.ErrUpgradeRequired
	}
	ctx.Locals("session_id", ctx.Params("id"))
	return ctx.Next()
}

// streamChat handles one turn per inbound frame, forwarding fragments as
// they arrive and closing each turn with a done frame.
func (c *chatbotController) streamChat(conn *websocket.Conn) {
	userID, _ := conn.Locals("user_id").(string)
	sessionID, _ := conn.Locals("session_id").(string)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var in dto.WsChatRequest
		if err := json.Unmarshal(raw, &in); err != nil {
			_ = conn.WriteJSON(dto.WsFrame{Type: dto.WsFrameError, Content: "invalid frame: " + err.Error()})
			continue
		}
		if err := serverutils.ValidateRequest(in); err != nil {
			_ = conn.WriteJSON(dto.WsFrame{Type: dto.WsFrameError, Content: err.Error()})
			continue
		}

		c.streamTurn(conn, userID, &dto.SendChatRequest{
			ChatSessionId:    sessionID,
			Chat:             in.Chat,
			GenerationParams: in.GenerationParams,
		})
	}
}

func (c *chatbotController) streamTurn(conn *websocket.Conn, userID string, req *dto.SendChatRequest) {
	frames := make(chan dto.WsFrame, 16)

	wg := conc.NewWaitGroup()
	wg.Go(func() {
		defer close(frames)
		res, err := c.chatbotService.SendChat(context.Background(), userID, req, func(fragment string) {
			frames <- dto.WsFrame{Type: dto.WsFrameFragment, Content: fragment}
		})
		if err != nil {
			frames <- dto.WsFrame{Type: dto.WsFrameError, Content: err.Error()}
			return
		}
		frames <- dto.WsFrame{Type: dto.WsFrameDone, Reply: res}
	})
	wg.Go(func() {
		broken := false
		for frame := range frames {
			if broken {
				continue // drain so the producer never blocks
			}
			if err := conn.WriteJSON(frame); err != nil {
				broken = true
				c.logger.Warn("CHATBOT", "Websocket write failed", map[string]interface{}{
					"session_id": req.ChatSessionId,
					"error":      err.Error(),
				})
			}
		}
	})
	wg.Wait()
}
