package handlers

import (
	"github.com/amirphl/academy-ledger/app/dto"
	businessflow "github.com/amirphl/academy-ledger/business_flow"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

// KpiHandlerInterface defines the monthly KPI endpoints
type KpiHandlerInterface interface {
	ComputeMonthlyMetrics(c fiber.Ctx) error
	GetMonthlyKpiSeries(c fiber.Ctx) error
	ExportMonthlyKpiSeries(c fiber.Ctx) error
}

// KpiHandler serves monthly KPI snapshots
type KpiHandler struct {
	baseHandler
	kpiFlow businessflow.KpiFlow
}

func NewKpiHandler(kpiFlow businessflow.KpiFlow, logger *logrus.Logger) KpiHandlerInterface {
	return &KpiHandler{
		baseHandler: newBaseHandler(logger),
		kpiFlow:     kpiFlow,
	}
}

// ComputeMonthlyMetrics recomputes the snapshot of one month
// @Summary Compute Monthly KPI
// @Tags KPI
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ComputeKpiRequest true "Month"
// @Success 200 {object} dto.APIResponse{data=dto.ComputeKpiResponse}
// @Failure 400 {object} dto.APIResponse
// @Router /api/v1/kpi/compute [post]
func (h *KpiHandler) ComputeMonthlyMetrics(c fiber.Ctx) error {
	var req dto.ComputeKpiRequest
	if ok, err := h.bindAndValidate(c, &req); !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/kpi/compute", defaultRequestTimeout)
	defer cancel()

	result, err := h.kpiFlow.ComputeMonthlyMetrics(ctx, &req, clientMetadata(c))
	if err != nil {
		return h.FlowErrorResponse(c, err, "/api/v1/kpi/compute", "Failed to compute KPI", "COMPUTE_KPI_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// GetMonthlyKpiSeries returns the latest stored snapshots in ascending month order
// @Summary Monthly KPI Series
// @Tags KPI
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Number of months (1-120)"
// @Success 200 {object} dto.APIResponse{data=dto.KpiSeriesResponse}
// @Router /api/v1/kpi [get]
func (h *KpiHandler) GetMonthlyKpiSeries(c fiber.Ctx) error {
	var req dto.KpiSeriesRequest
	if ok, err := h.bindQueryAndValidate(c, &req); !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/kpi", defaultRequestTimeout)
	defer cancel()

	result, err := h.kpiFlow.GetMonthlyKpiSeries(ctx, &req)
	if err != nil {
		return h.FlowErrorResponse(c, err, "/api/v1/kpi", "Failed to get KPI series", "KPI_SERIES_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// ExportMonthlyKpiSeries downloads the KPI series as an Excel workbook
// @Summary Export Monthly KPI Series
// @Tags KPI
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param limit query int false "Number of months (1-120)"
// @Success 200 {string} string "Excel file"
// @Router /api/v1/kpi/export [get]
func (h *KpiHandler) ExportMonthlyKpiSeries(c fiber.Ctx) error {
	var req dto.KpiSeriesRequest
	if ok, err := h.bindQueryAndValidate(c, &req); !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/kpi/export", exportRequestTimeout)
	defer cancel()

	filename, data, err := h.kpiFlow.ExportMonthlyKpiSeries(ctx, &req)
	if err != nil {
		return h.FlowErrorResponse(c, err, "/api/v1/kpi/export", "Failed to generate Excel", "DOWNLOAD_FAILED")
	}

	return sendWorkbook(c, filename, data)
}
