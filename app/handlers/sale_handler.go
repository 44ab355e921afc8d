package handlers

import (
	"github.com/amirphl/academy-ledger/app/dto"
	businessflow "github.com/amirphl/academy-ledger/business_flow"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

// SaleHandlerInterface defines the sales register endpoints
type SaleHandlerInterface interface {
	RecordSale(c fiber.Ctx) error
	DeleteSale(c fiber.Ctx) error
	GetSale(c fiber.Ctx) error
	ListSales(c fiber.Ctx) error
	ExportSales(c fiber.Ctx) error
}

// SaleHandler handles sale recording and the sales register
type SaleHandler struct {
	baseHandler
	saleFlow businessflow.SaleFlow
}

func NewSaleHandler(saleFlow businessflow.SaleFlow, logger *logrus.Logger) SaleHandlerInterface {
	return &SaleHandler{
		baseHandler: newBaseHandler(logger),
		saleFlow:    saleFlow,
	}
}

// RecordSale prices a course sale, applies the seller commission and splits the profit into buckets
// @Summary Record Sale
// @Tags Sales
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.RecordSaleRequest true "Sale"
// @Success 201 {object} dto.APIResponse{data=dto.RecordSaleResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 403 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Failure 422 {object} dto.APIResponse
// @Router /api/v1/sales [post]
func (h *SaleHandler) RecordSale(c fiber.Ctx) error {
	var req dto.RecordSaleRequest
	if ok, err := h.bindAndValidate(c, &req); !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/sales", defaultRequestTimeout)
	defer cancel()

	result, err := h.saleFlow.RecordSale(ctx, &req, clientMetadata(c))
	if err != nil {
		return h.FlowErrorResponse(c, err, "/api/v1/sales", "Failed to record sale", "RECORD_SALE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, result.Message, result)
}

// DeleteSale removes a sale together with its distributions
// @Summary Delete Sale
// @Tags Sales
// @Produce json
// @Security BearerAuth
// @Param id path int true "Sale ID"
// @Success 200 {object} dto.APIResponse{data=dto.DeleteSaleResponse}
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/sales/{id} [delete]
func (h *SaleHandler) DeleteSale(c fiber.Ctx) error {
	id, ok, err := h.parseIDParam(c, "id")
	if !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/sales/:id", defaultRequestTimeout)
	defer cancel()

	result, err := h.saleFlow.DeleteSale(ctx, id, clientMetadata(c))
	if err != nil {
		return h.FlowErrorResponse(c, err, "/api/v1/sales/:id", "Failed to delete sale", "DELETE_SALE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// GetSale returns one sale with its distributions
// @Summary Get Sale
// @Tags Sales
// @Produce json
// @Security BearerAuth
// @Param id path int true "Sale ID"
// @Success 200 {object} dto.APIResponse{data=dto.GetSaleResponse}
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/sales/{id} [get]
func (h *SaleHandler) GetSale(c fiber.Ctx) error {
	id, ok, err := h.parseIDParam(c, "id")
	if !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/sales/:id", defaultRequestTimeout)
	defer cancel()

	result, err := h.saleFlow.GetSale(ctx, id, clientMetadata(c))
	if err != nil {
		return h.FlowErrorResponse(c, err, "/api/v1/sales/:id", "Failed to get sale", "GET_SALE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// ListSales pages through the sales register
// @Summary List Sales
// @Tags Sales
// @Produce json
// @Security BearerAuth
// @Param month_key query string false "YYYY-MM"
// @Param course_id query int false "Course ID"
// @Param seller_id query int false "Seller ID"
// @Param discount_id query int false "Discount ID"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} dto.APIResponse{data=dto.ListSalesResponse}
// @Router /api/v1/sales [get]
func (h *SaleHandler) ListSales(c fiber.Ctx) error {
	var req dto.ListSalesRequest
	if ok, err := h.bindQueryAndValidate(c, &req); !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/sales", defaultRequestTimeout)
	defer cancel()

	result, err := h.saleFlow.ListSales(ctx, &req, clientMetadata(c))
	if err != nil {
		return h.FlowErrorResponse(c, err, "/api/v1/sales", "Failed to list sales", "LIST_SALES_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// ExportSales downloads the filtered register as an Excel workbook
// @Summary Export Sales
// @Tags Sales
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param month_key query string false "YYYY-MM"
// @Success 200 {string} string "Excel file"
// @Router /api/v1/sales/export [get]
func (h *SaleHandler) ExportSales(c fiber.Ctx) error {
	var req dto.ListSalesRequest
	if ok, err := h.bindQueryAndValidate(c, &req); !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/sales/export", exportRequestTimeout)
	defer cancel()

	filename, data, err := h.saleFlow.ExportSales(ctx, &req, clientMetadata(c))
	if err != nil {
		return h.FlowErrorResponse(c, err, "/api/v1/sales/export", "Failed to generate Excel", "DOWNLOAD_FAILED")
	}

	return sendWorkbook(c, filename, data)
}
