package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/product-support-bot/web"
)

// WelcomeMessage is returned by the liveness endpoint.
const WelcomeMessage = "Welcome to the Product Information Bot API. Use the /get endpoint to chat with the bot."

// ChatService answers one user message with user-facing text.
type ChatService interface {
	Reply(ctx context.Context, message string) string
}

// Handler wires the HTTP transport to the chat domain.
type Handler struct {
	chatSvc ChatService
	logger  *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(chatSvc ChatService, logger *slog.Logger) *Handler {
	return &Handler{
		chatSvc: chatSvc,
		logger:  logger.With("component", "http.handler"),
	}
}

// Home reports that the API is up.
func (h *Handler) Home(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": WelcomeMessage})
}

// Chat answers the form field msg. Domain failures already arrive as an apology.
func (h *Handler) Chat(c *gin.Context) {
	msg, ok := c.GetPostForm("msg")
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "form field msg is required", nil))
		return
	}
	reply := h.chatSvc.Reply(c.Request.Context(), msg)
	c.JSON(http.StatusOK, gin.H{"response": reply})
}

// ChatPage serves the browser client.
func (h *Handler) ChatPage(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", web.IndexHTML())
}
