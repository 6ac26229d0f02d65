package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/zapdesk/zapdesk/internal/config"
	"github.com/zapdesk/zapdesk/internal/inbound"
	"github.com/zapdesk/zapdesk/internal/whatsapp"
)

// deliveryTimeout bounds the background processing of one webhook payload
// after the channel has already been acknowledged.
const deliveryTimeout = 5 * time.Minute

// Dispatcher turns one webhook payload into the replies to deliver.
type Dispatcher interface {
	Dispatch(ctx context.Context, payload whatsapp.WebhookPayload) []inbound.Reply
}

// Sender delivers one outbound text over the channel.
type Sender interface {
	SendText(ctx context.Context, to, text string) error
}

// WebhookHandler receives WhatsApp Cloud API callbacks: the subscription
// verification handshake and message deliveries.
type WebhookHandler struct {
	logger      *slog.Logger
	dispatcher  Dispatcher
	sender      Sender
	verifyToken string
}

func NewWebhookHandler(log *slog.Logger, dispatcher Dispatcher, sender Sender, cfg config.WhatsAppConfig) *WebhookHandler {
	return &WebhookHandler{
		logger:      log.With(slog.String("handler", "webhook")),
		dispatcher:  dispatcher,
		sender:      sender,
		verifyToken: cfg.VerifyToken,
	}
}

func (h *WebhookHandler) Register(e *echo.Echo) {
	e.GET("/webhook", h.Verify)
	e.POST("/webhook", h.Receive)
}

// Verify answers the Cloud API subscription handshake by echoing the
// challenge when the verify token matches.
func (h *WebhookHandler) Verify(c echo.Context) error {
	mode := c.QueryParam("hub.mode")
	token := c.QueryParam("hub.verify_token")
	challenge := c.QueryParam("hub.challenge")

	if mode == "subscribe" && token == h.verifyToken {
		h.logger.Info("webhook subscription verified")
		return c.String(http.StatusOK, challenge)
	}

	h.logger.Warn("webhook verification rejected", slog.String("mode", mode))
	return c.NoContent(http.StatusForbidden)
}

// Receive acknowledges the delivery immediately and processes it in the
// background. The channel always gets a success response; processing
// failures only surface to the user as a fallback reply, never as a
// webhook error that would trigger redelivery.
func (h *WebhookHandler) Receive(c echo.Context) error {
	var payload whatsapp.WebhookPayload
	if err := c.Bind(&payload); err != nil {
		h.logger.Warn("unparseable webhook payload", slog.Any("error", err))
		return c.JSON(http.StatusOK, map[string]string{"status": "success"})
	}

	go h.process(payload)

	return c.JSON(http.StatusOK, map[string]string{"status": "success"})
}

func (h *WebhookHandler) process(payload whatsapp.WebhookPayload) {
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	for _, reply := range h.dispatcher.Dispatch(ctx, payload) {
		if err := h.sender.SendText(ctx, reply.To, reply.Text); err != nil {
			h.logger.Error("reply delivery failed",
				slog.String("to", reply.To),
				slog.Any("error", err))
		}
	}
}
