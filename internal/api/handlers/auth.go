package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"chat-relay/internal/models"
	"chat-relay/internal/services"
	"chat-relay/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	userService *services.UserService
}

func NewAuthHandler(userService *services.UserService) *AuthHandler {
	return &AuthHandler{userService: userService}
}

// Register godoc
// @Summary Register a new user
// @Description Register a new user with username, password and optional email
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.RegisterRequest true "User registration data"
// @Success 201 {object} models.UserResponse "User created successfully"
// @Failure 400 {object} models.ErrorResponse "Bad request - invalid input data"
// @Failure 409 {object} models.ErrorResponse "Username already exists"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "", err.Error())
		return
	}

	user, err := h.userService.Register(c.Request.Context(), &req)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, user)
	case errors.Is(err, services.ErrUserAlreadyExists):
		response.Error(c, http.StatusConflict, "Username already exists", "")
	case errors.Is(err, services.ErrInvalidRequest):
		response.Error(c, http.StatusBadRequest, "", err.Error())
	default:
		slog.Error("Register failed", "username", req.Username, "error", err)
		response.Error(c, http.StatusInternalServerError, "Register failed", "")
	}
}

// Login godoc
// @Summary User login
// @Description Authenticate with username and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "User login credentials"
// @Success 200 {object} models.LoginResponse "Login successful - returns JWT token"
// @Failure 400 {object} models.ErrorResponse "Bad request - invalid input data"
// @Failure 401 {object} models.ErrorResponse "Unauthorized - invalid credentials"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "", err.Error())
		return
	}

	loginResponse, err := h.userService.Login(c.Request.Context(), &req)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, loginResponse)
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrInvalidRequest):
		response.Error(c, http.StatusUnauthorized, "Invalid username or password", "")
	default:
		slog.Error("Login failed", "username", req.Username, "error", err)
		response.Error(c, http.StatusInternalServerError, "Login failed", "")
	}
}
