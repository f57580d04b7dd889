package response

import (
	"net/http"

	"chat-relay/internal/models"

	"github.com/gin-gonic/gin"
)

// Default messages per status, used when a handler passes an empty message.
var msg = map[int]string{
	http.StatusBadRequest:          "Invalid input data",
	http.StatusUnauthorized:        "Unauthorized",
	http.StatusForbidden:           "Forbidden",
	http.StatusNotFound:            "Not found",
	http.StatusConflict:            "Already exists",
	http.StatusTooManyRequests:     "Rate limit exceeded",
	http.StatusInternalServerError: "An unexpected error occurred",
}

func Message(status int) string {
	if m, ok := msg[status]; ok {
		return m
	}
	return http.StatusText(status)
}

func body(status int, message, details string) models.ErrorResponse {
	if message == "" {
		message = Message(status)
	}
	return models.ErrorResponse{Code: status, Message: message, Details: details}
}

// Error writes a models.ErrorResponse with status.
func Error(c *gin.Context, status int, message, details string) {
	c.JSON(status, body(status, message, details))
}

// Abort is Error for middleware: it also stops the handler chain.
func Abort(c *gin.Context, status int, message, details string) {
	c.AbortWithStatusJSON(status, body(status, message, details))
}
