package handlers

import (
	"strings"

	"github.com/amirphl/academy-ledger/app/dto"
	businessflow "github.com/amirphl/academy-ledger/business_flow"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

// AuthHandlerInterface defines the contract for authentication handlers
type AuthHandlerInterface interface {
	Login(c fiber.Ctx) error
	Refresh(c fiber.Ctx) error
	Logout(c fiber.Ctx) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	baseHandler
	authFlow businessflow.AuthFlow
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authFlow businessflow.AuthFlow, logger *logrus.Logger) AuthHandlerInterface {
	return &AuthHandler{
		baseHandler: newBaseHandler(logger),
		authFlow:    authFlow,
	}
}

// Login handles the login process
// @Summary User Login
// @Description Authenticate an owner or seller with email and password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login credentials"
// @Success 200 {object} dto.APIResponse{data=dto.AuthTokensResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 401 {object} dto.APIResponse
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c fiber.Ctx) error {
	var req dto.LoginRequest
	if ok, err := h.bindAndValidate(c, &req); !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/auth/login", defaultRequestTimeout)
	defer cancel()

	result, err := h.authFlow.Login(ctx, &req, clientMetadata(c))
	if err != nil {
		return h.FlowErrorResponse(c, err, "/api/v1/auth/login", "Login failed", "LOGIN_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// Refresh exchanges a refresh token for a new token pair
// @Summary Refresh Tokens
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.RefreshTokenRequest true "Refresh token"
// @Success 200 {object} dto.APIResponse{data=dto.AuthTokensResponse}
// @Failure 401 {object} dto.APIResponse
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) Refresh(c fiber.Ctx) error {
	var req dto.RefreshTokenRequest
	if ok, err := h.bindAndValidate(c, &req); !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/auth/refresh", defaultRequestTimeout)
	defer cancel()

	result, err := h.authFlow.Refresh(ctx, &req, clientMetadata(c))
	if err != nil {
		return h.FlowErrorResponse(c, err, "/api/v1/auth/refresh", "Token refresh failed", "REFRESH_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// Logout revokes the access token of the request and optionally the refresh token
// @Summary Logout
// @Tags Authentication
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.LogoutRequest false "Refresh token to revoke"
// @Success 200 {object} dto.APIResponse{data=dto.LogoutResponse}
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c fiber.Ctx) error {
	var req dto.LogoutRequest
	if len(c.Body()) > 0 {
		if ok, err := h.bindAndValidate(c, &req); !ok {
			return err
		}
	}
	req.AccessToken = strings.TrimPrefix(c.Get("Authorization"), "Bearer ")

	ctx, cancel := createRequestContext(c, "/api/v1/auth/logout", defaultRequestTimeout)
	defer cancel()

	result, err := h.authFlow.Logout(ctx, &req, clientMetadata(c))
	if err != nil {
		return h.FlowErrorResponse(c, err, "/api/v1/auth/logout", "Logout failed", "LOGOUT_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}
