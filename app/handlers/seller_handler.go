package handlers

import (
	"github.com/amirphl/academy-ledger/app/dto"
	businessflow "github.com/amirphl/academy-ledger/business_flow"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

// SellerHandlerInterface defines the seller and level rule endpoints
type SellerHandlerInterface interface {
	CreateSeller(c fiber.Ctx) error
	ListSellers(c fiber.Ctx) error
	GetSeller(c fiber.Ctx) error
	GetOwnSeller(c fiber.Ctx) error
	GetLevelHistory(c fiber.Ctx) error
	DeleteSeller(c fiber.Ctx) error

	GetLevelRules(c fiber.Ctx) error
	UpdateLevelRules(c fiber.Ctx) error
}

// SellerHandler manages sellers and the leveling table
type SellerHandler struct {
	baseHandler
	sellerFlow businessflow.SellerFlow
}

func NewSellerHandler(sellerFlow businessflow.SellerFlow, logger *logrus.Logger) SellerHandlerInterface {
	return &SellerHandler{
		baseHandler: newBaseHandler(logger),
		sellerFlow:  sellerFlow,
	}
}

// CreateSeller creates a seller account and its profile at the lowest tier
// @Summary Create Seller
// @Tags Sellers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateSellerRequest true "Seller"
// @Success 201 {object} dto.APIResponse{data=dto.SellerResponse}
// @Failure 409 {object} dto.APIResponse
// @Router /api/v1/sellers [post]
func (h *SellerHandler) CreateSeller(c fiber.Ctx) error {
	var req dto.CreateSellerRequest
	if ok, err := h.bindAndValidate(c, &req); !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/sellers", defaultRequestTimeout)
	defer cancel()

	result, err := h.sellerFlow.CreateSeller(ctx, &req, clientMetadata(c))
	if err != nil {
		return h.FlowErrorResponse(c, err, "/api/v1/sellers", "Failed to create seller", "CREATE_SELLER_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, result.Message, result)
}

// ListSellers lists sellers with their standing in the current month
// @Summary List Sellers
// @Tags Sellers
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.ListSellersResponse}
// @Router /api/v1/sellers [get]
func (h *SellerHandler) ListSellers(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/api/v1/sellers", defaultRequestTimeout)
	defer cancel()

	result, err := h.sellerFlow.ListSellers(ctx)
	if err != nil {
		return h.FlowErrorResponse(c, err, "/api/v1/sellers", "Failed to list sellers", "LIST_SELLERS_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// GetSeller returns one seller
// @Summary Get Seller
// @Tags Sellers
// @Produce json
// @Security BearerAuth
// @Param id path int true "Seller ID"
// @Success 200 {object} dto.APIResponse{data=dto.SellerResponse}
// @Router /api/v1/sellers/{id} [get]
func (h *SellerHandler) GetSeller(c fiber.Ctx) error {
	id, ok, err := h.parseIDParam(c, "id")
	if !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/sellers/:id", defaultRequestTimeout)
	defer cancel()

	result, err := h.sellerFlow.GetSeller(ctx, id, clientMetadata(c))
	if err != nil {
		return h.FlowErrorResponse(c, err, "/api/v1/sellers/:id", "Failed to get seller", "GET_SELLER_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// GetOwnSeller returns the profile of the calling seller
// @Summary My Seller Profile
// @Tags Sellers
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.SellerResponse}
// @Router /api/v1/sellers/me [get]
func (h *SellerHandler) GetOwnSeller(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/api/v1/sellers/me", defaultRequestTimeout)
	defer cancel()

	result, err := h.sellerFlow.GetOwnSeller(ctx, clientMetadata(c))
	if err != nil {
		return h.FlowErrorResponse(c, err, "/api/v1/sellers/me", "Failed to get seller", "GET_SELLER_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// GetLevelHistory lists the tier changes of a seller
// @Summary Seller Level History
// @Tags Sellers
// @Produce json
// @Security BearerAuth
// @Param id path int true "Seller ID"
// @Success 200 {object} dto.APIResponse{data=dto.LevelHistoryResponse}
// @Router /api/v1/sellers/{id}/level-history [get]
func (h *SellerHandler) GetLevelHistory(c fiber.Ctx) error {
	id, ok, err := h.parseIDParam(c, "id")
	if !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/sellers/:id/level-history", defaultRequestTimeout)
	defer cancel()

	result, err := h.sellerFlow.GetLevelHistory(ctx, id, clientMetadata(c))
	if err != nil {
		return h.FlowErrorResponse(c, err, "/api/v1/sellers/:id/level-history", "Failed to get level history", "LEVEL_HISTORY_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// DeleteSeller removes a seller and its account; recorded sales keep their figures
// @Summary Delete Seller
// @Tags Sellers
// @Produce json
// @Security BearerAuth
// @Param id path int true "Seller ID"
// @Success 200 {object} dto.APIResponse{data=dto.MessageResponse}
// @Router /api/v1/sellers/{id} [delete]
func (h *SellerHandler) DeleteSeller(c fiber.Ctx) error {
	id, ok, err := h.parseIDParam(c, "id")
	if !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/sellers/:id", defaultRequestTimeout)
	defer cancel()

	result, err := h.sellerFlow.DeleteSeller(ctx, id, clientMetadata(c))
	if err != nil {
		return h.FlowErrorResponse(c, err, "/api/v1/sellers/:id", "Failed to delete seller", "DELETE_SELLER_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// GetLevelRules returns the leveling table
// @Summary Level Rules
// @Tags Sellers
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.LevelRulesResponse}
// @Router /api/v1/level-rules [get]
func (h *SellerHandler) GetLevelRules(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/api/v1/level-rules", defaultRequestTimeout)
	defer cancel()

	result, err := h.sellerFlow.GetLevelRules(ctx)
	if err != nil {
		return h.FlowErrorResponse(c, err, "/api/v1/level-rules", "Failed to get level rules", "LEVEL_RULES_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// UpdateLevelRules replaces the leveling table
// @Summary Update Level Rules
// @Tags Sellers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.UpdateLevelRulesRequest true "Rules"
// @Success 200 {object} dto.APIResponse{data=dto.LevelRulesResponse}
// @Failure 422 {object} dto.APIResponse
// @Router /api/v1/level-rules [put]
func (h *SellerHandler) UpdateLevelRules(c fiber.Ctx) error {
	var req dto.UpdateLevelRulesRequest
	if ok, err := h.bindAndValidate(c, &req); !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/level-rules", defaultRequestTimeout)
	defer cancel()

	result, err := h.sellerFlow.UpdateLevelRules(ctx, &req, clientMetadata(c))
	if err != nil {
		return h.FlowErrorResponse(c, err, "/api/v1/level-rules", "Failed to update level rules", "UPDATE_LEVEL_RULES_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}
