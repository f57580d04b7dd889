package middleware

import (
	"net/http"
	"strings"

	"chat-relay/pkg/response"

	"github.com/gin-gonic/gin"
)

// UsernameKey is the gin context key holding the authenticated username.
const UsernameKey = "username"

type TokenVerifier interface {
	VerifyToken(token string) (string, error)
}

type AuthMiddleware struct {
	verifier TokenVerifier
}

func NewAuthMiddleware(verifier TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
	}
}

// RequireAuth rejects requests without a valid bearer token.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !am.authenticate(c) {
			return
		}
		if c.GetString(UsernameKey) == "" {
			response.Abort(c, http.StatusUnauthorized, "", "authorization header is required")
			return
		}
		c.Next()
	}
}

// OptionalAuth sets the username when a bearer token is present and valid.
// A present but invalid token is still rejected.
func (am *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !am.authenticate(c) {
			return
		}
		c.Next()
	}
}

func (am *AuthMiddleware) authenticate(c *gin.Context) bool {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return true
	}

	tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok {
		response.Abort(c, http.StatusUnauthorized, "", "authorization header must use the Bearer scheme")
		return false
	}
	username, err := am.verifier.VerifyToken(strings.TrimSpace(tokenString))
	if err != nil {
		response.Abort(c, http.StatusUnauthorized, "", "invalid token")
		return false
	}

	c.Set(UsernameKey, username)
	return true
}
