package handlers

import (
	"strconv"

	"github.com/amirphl/academy-ledger/app/dto"
	businessflow "github.com/amirphl/academy-ledger/business_flow"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

// CatalogHandlerInterface defines the course, discount and distribution template endpoints
type CatalogHandlerInterface interface {
	CreateCourse(c fiber.Ctx) error
	UpdateCourse(c fiber.Ctx) error
	ListCourses(c fiber.Ctx) error
	DeleteCourse(c fiber.Ctx) error

	CreateDiscount(c fiber.Ctx) error
	ListDiscounts(c fiber.Ctx) error
	SetDiscountActive(c fiber.Ctx) error
	DeleteDiscount(c fiber.Ctx) error

	CreateTemplate(c fiber.Ctx) error
	UpdateTemplate(c fiber.Ctx) error
	ListTemplates(c fiber.Ctx) error
}

// CatalogHandler manages what can be sold and how its profit is split
type CatalogHandler struct {
	baseHandler
	catalogFlow businessflow.CatalogFlow
}

func NewCatalogHandler(catalogFlow businessflow.CatalogFlow, logger *logrus.Logger) CatalogHandlerInterface {
	return &CatalogHandler{
		baseHandler: newBaseHandler(logger),
		catalogFlow: catalogFlow,
	}
}

// CreateCourse adds a course to the catalog
// @Summary Create Course
// @Tags Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateCourseRequest true "Course"
// @Success 201 {object} dto.APIResponse{data=dto.CourseResponse}
// @Router /api/v1/courses [post]
func (h *CatalogHandler) CreateCourse(c fiber.Ctx) error {
	var req dto.CreateCourseRequest
	if ok, err := h.bindAndValidate(c, &req); !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/courses", defaultRequestTimeout)
	defer cancel()

	result, err := h.catalogFlow.CreateCourse(ctx, &req, clientMetadata(c))
	if err != nil {
		return h.FlowErrorResponse(c, err, "/api/v1/courses", "Failed to create course", "CREATE_COURSE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, result.Message, result)
}

// UpdateCourse changes course fields; prices of recorded sales are unaffected
// @Summary Update Course
// @Tags Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Param request body dto.UpdateCourseRequest true "Course fields"
// @Success 200 {object} dto.APIResponse{data=dto.CourseResponse}
// @Router /api/v1/courses/{id} [put]
func (h *CatalogHandler) UpdateCourse(c fiber.Ctx) error {
	id, ok, err := h.parseIDParam(c, "id")
	if !ok {
		return err
	}

	var req dto.UpdateCourseRequest
	if ok, err := h.bindAndValidate(c, &req); !ok {
		return err
	}
	req.ID = id

	ctx, cancel := createRequestContext(c, "/api/v1/courses/:id", defaultRequestTimeout)
	defer cancel()

	result, err := h.catalogFlow.UpdateCourse(ctx, &req, clientMetadata(c))
	if err != nil {
		return h.FlowErrorResponse(c, err, "/api/v1/courses/:id", "Failed to update course", "UPDATE_COURSE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// ListCourses lists the catalog
// @Summary List Courses
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.ListCoursesResponse}
// @Router /api/v1/courses [get]
func (h *CatalogHandler) ListCourses(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/api/v1/courses", defaultRequestTimeout)
	defer cancel()

	result, err := h.catalogFlow.ListCourses(ctx)
	if err != nil {
		return h.FlowErrorResponse(c, err, "/api/v1/courses", "Failed to list courses", "LIST_COURSES_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// DeleteCourse removes a course that has no sales
// @Summary Delete Course
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Success 200 {object} dto.APIResponse{data=dto.MessageResponse}
// @Failure 409 {object} dto.APIResponse
// @Router /api/v1/courses/{id} [delete]
func (h *CatalogHandler) DeleteCourse(c fiber.Ctx) error {
	id, ok, err := h.parseIDParam(c, "id")
	if !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/courses/:id", defaultRequestTimeout)
	defer cancel()

	result, err := h.catalogFlow.DeleteCourse(ctx, id, clientMetadata(c))
	if err != nil {
		return h.FlowErrorResponse(c, err, "/api/v1/courses/:id", "Failed to delete course", "DELETE_COURSE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// CreateDiscount adds a flat or percentage discount
// @Summary Create Discount
// @Tags Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateDiscountRequest true "Discount"
// @Success 201 {object} dto.APIResponse{data=dto.DiscountResponse}
// @Router /api/v1/discounts [post]
func (h *CatalogHandler) CreateDiscount(c fiber.Ctx) error {
	var req dto.CreateDiscountRequest
	if ok, err := h.bindAndValidate(c, &req); !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/discounts", defaultRequestTimeout)
	defer cancel()

	result, err := h.catalogFlow.CreateDiscount(ctx, &req, clientMetadata(c))
	if err != nil {
		return h.FlowErrorResponse(c, err, "/api/v1/discounts", "Failed to create discount", "CREATE_DISCOUNT_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, result.Message, result)
}

// ListDiscounts lists discounts, optionally only active ones
// @Summary List Discounts
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Param active_only query bool false "Only active discounts"
// @Success 200 {object} dto.APIResponse{data=dto.ListDiscountsResponse}
// @Router /api/v1/discounts [get]
func (h *CatalogHandler) ListDiscounts(c fiber.Ctx) error {
	activeOnly := false
	if raw := c.Query("active_only"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid active_only", "INVALID_REQUEST", raw)
		}
		activeOnly = parsed
	}

	ctx, cancel := createRequestContext(c, "/api/v1/discounts", defaultRequestTimeout)
	defer cancel()

	result, err := h.catalogFlow.ListDiscounts(ctx, activeOnly)
	if err != nil {
		return h.FlowErrorResponse(c, err, "/api/v1/discounts", "Failed to list discounts", "LIST_DISCOUNTS_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// SetDiscountActive activates or deactivates a discount
// @Summary Toggle Discount
// @Tags Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Discount ID"
// @Param request body dto.SetDiscountActiveRequest true "Active flag"
// @Success 200 {object} dto.APIResponse{data=dto.DiscountResponse}
// @Router /api/v1/discounts/{id}/active [put]
func (h *CatalogHandler) SetDiscountActive(c fiber.Ctx) error {
	id, ok, err := h.parseIDParam(c, "id")
	if !ok {
		return err
	}

	var req dto.SetDiscountActiveRequest
	if ok, err := h.bindAndValidate(c, &req); !ok {
		return err
	}
	req.ID = id

	ctx, cancel := createRequestContext(c, "/api/v1/discounts/:id/active", defaultRequestTimeout)
	defer cancel()

	result, err := h.catalogFlow.SetDiscountActive(ctx, &req, clientMetadata(c))
	if err != nil {
		return h.FlowErrorResponse(c, err, "/api/v1/discounts/:id/active", "Failed to update discount", "UPDATE_DISCOUNT_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// DeleteDiscount deletes an unused discount or deactivates a referenced one
// @Summary Delete Discount
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Param id path int true "Discount ID"
// @Success 200 {object} dto.APIResponse{data=dto.DeleteDiscountResponse}
// @Router /api/v1/discounts/{id} [delete]
func (h *CatalogHandler) DeleteDiscount(c fiber.Ctx) error {
	id, ok, err := h.parseIDParam(c, "id")
	if !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/discounts/:id", defaultRequestTimeout)
	defer cancel()

	result, err := h.catalogFlow.DeleteDiscount(ctx, id, clientMetadata(c))
	if err != nil {
		return h.FlowErrorResponse(c, err, "/api/v1/discounts/:id", "Failed to delete discount", "DELETE_DISCOUNT_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// CreateTemplate stores a new distribution template
// @Summary Create Distribution Template
// @Tags Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.SaveTemplateRequest true "Template"
// @Success 201 {object} dto.APIResponse{data=dto.TemplateResponse}
// @Failure 422 {object} dto.APIResponse
// @Router /api/v1/templates [post]
func (h *CatalogHandler) CreateTemplate(c fiber.Ctx) error {
	var req dto.SaveTemplateRequest
	if ok, err := h.bindAndValidate(c, &req); !ok {
		return err
	}
	req.ID = 0

	return h.saveTemplate(c, &req, fiber.StatusCreated, "/api/v1/templates")
}

// UpdateTemplate replaces the allocations of an existing template
// @Summary Update Distribution Template
// @Tags Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Template ID"
// @Param request body dto.SaveTemplateRequest true "Template"
// @Success 200 {object} dto.APIResponse{data=dto.TemplateResponse}
// @Failure 422 {object} dto.APIResponse
// @Router /api/v1/templates/{id} [put]
func (h *CatalogHandler) UpdateTemplate(c fiber.Ctx) error {
	id, ok, err := h.parseIDParam(c, "id")
	if !ok {
		return err
	}

	var req dto.SaveTemplateRequest
	if ok, err := h.bindAndValidate(c, &req); !ok {
		return err
	}
	req.ID = id

	return h.saveTemplate(c, &req, fiber.StatusOK, "/api/v1/templates/:id")
}

func (h *CatalogHandler) saveTemplate(c fiber.Ctx, req *dto.SaveTemplateRequest, status int, endpoint string) error {
	ctx, cancel := createRequestContext(c, endpoint, defaultRequestTimeout)
	defer cancel()

	result, err := h.catalogFlow.SaveTemplate(ctx, req, clientMetadata(c))
	if err != nil {
		return h.FlowErrorResponse(c, err, endpoint, "Failed to save template", "SAVE_TEMPLATE_FAILED")
	}

	return h.SuccessResponse(c, status, result.Message, result)
}

// ListTemplates lists distribution templates with their allocations
// @Summary List Distribution Templates
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.ListTemplatesResponse}
// @Router /api/v1/templates [get]
func (h *CatalogHandler) ListTemplates(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/api/v1/templates", defaultRequestTimeout)
	defer cancel()

	result, err := h.catalogFlow.ListTemplates(ctx)
	if err != nil {
		return h.FlowErrorResponse(c, err, "/api/v1/templates", "Failed to list templates", "LIST_TEMPLATES_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}
