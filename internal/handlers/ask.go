package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/zapdesk/zapdesk/internal/auth"
)

// Conversation answers one question for a profile.
type Conversation interface {
	Process(ctx context.Context, profileID, question string) (string, error)
}

// AskRequest is the direct question API body. OverrideConfig lets an
// integration ask on behalf of another session it owns.
type AskRequest struct {
	Question       string `json:"question"`
	OverrideConfig struct {
		SessionID string `json:"sessionId"`
	} `json:"overrideConfig"`
}

type AskResponse struct {
	Response string `json:"response"`
}

// AskHandler exposes the conversation engine to non-channel callers.
type AskHandler struct {
	logger       *slog.Logger
	conversation Conversation
}

func NewAskHandler(log *slog.Logger, conversation Conversation) *AskHandler {
	return &AskHandler{
		logger:       log.With(slog.String("handler", "ask")),
		conversation: conversation,
	}
}

func (h *AskHandler) Register(e *echo.Echo) {
	e.POST("/ask", h.Ask)
}

func (h *AskHandler) Ask(c echo.Context) error {
	var req AskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Question) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question is required")
	}

	profileID := strings.TrimSpace(req.OverrideConfig.SessionID)
	if profileID == "" {
		var err error
		profileID, err = auth.ProfileIDFromContext(c)
		if err != nil {
			return err
		}
	}

	answer, err := h.conversation.Process(c.Request().Context(), profileID, req.Question)
	if err != nil {
		h.logger.Error("direct question failed",
			slog.String("profile_id", profileID),
			slog.Any("error", err))
		return echo.NewHTTPError(http.StatusInternalServerError, "processing failed")
	}

	return c.JSON(http.StatusOK, AskResponse{Response: answer})
}
