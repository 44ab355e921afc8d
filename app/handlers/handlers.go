// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/amirphl/academy-ledger/app/dto"
	businessflow "github.com/amirphl/academy-ledger/business_flow"
	"github.com/amirphl/academy-ledger/models"
	"github.com/amirphl/academy-ledger/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

const (
	defaultRequestTimeout = 30 * time.Second
	exportRequestTimeout  = 60 * time.Second

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// baseHandler carries what every handler needs to decode, validate and answer a request
type baseHandler struct {
	validator *validator.Validate
	logger    *logrus.Logger
}

func newBaseHandler(logger *logrus.Logger) baseHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return baseHandler{validator: validator.New(), logger: logger}
}

func (h baseHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, code string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    code,
			Details: details,
		},
	})
}

func (h baseHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// bindAndValidate decodes the body into req and runs struct validation.
// It writes the error response itself and reports whether the handler may continue.
func (h baseHandler) bindAndValidate(c fiber.Ctx, req any) (bool, error) {
	if err := c.Bind().JSON(req); err != nil {
		return false, h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	return h.validate(c, req)
}

// bindQueryAndValidate is bindAndValidate for query string parameters
func (h baseHandler) bindQueryAndValidate(c fiber.Ctx, req any) (bool, error) {
	if err := c.Bind().Query(req); err != nil {
		return false, h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}
	return h.validate(c, req)
}

func (h baseHandler) validate(c fiber.Ctx, req any) (bool, error) {
	if err := h.validator.Struct(req); err != nil {
		var validationErrors []string
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) {
			for _, e := range fieldErrors {
				validationErrors = append(validationErrors, getValidationErrorMessage(e))
			}
		} else {
			validationErrors = append(validationErrors, err.Error())
		}
		return false, h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}
	return true, nil
}

// parseIDParam reads a positive numeric path parameter
func (h baseHandler) parseIDParam(c fiber.Ctx, name string) (uint, bool, error) {
	raw := c.Params(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false, h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid "+name, "INVALID_ID", raw)
	}
	return uint(id), true, nil
}

// FlowErrorResponse answers a failed business flow call with the status its error kind maps to
func (h baseHandler) FlowErrorResponse(c fiber.Ctx, err error, endpoint, fallbackMessage, fallbackCode string) error {
	status := statusForError(err)
	code := fallbackCode
	message := fallbackMessage

	var businessErr *businessflow.BusinessError
	if errors.As(err, &businessErr) && businessErr.Code != "" {
		code = businessErr.Code
	}

	fields := logrus.Fields{
		"endpoint":   endpoint,
		"status":     status,
		"kind":       businessflow.ErrorKind(err),
		"request_id": c.Get("X-Request-ID"),
	}
	if status >= fiber.StatusInternalServerError {
		h.logger.WithFields(fields).WithError(err).Error("request failed")
		return h.ErrorResponse(c, status, message, code, nil)
	}

	h.logger.WithFields(fields).WithError(err).Debug("request rejected")
	return h.ErrorResponse(c, status, message, code, fiber.Map{
		"kind":  businessflow.ErrorKind(err),
		"error": rootMessage(err),
	})
}

func statusForError(err error) int {
	switch businessflow.ErrorKind(err) {
	case businessflow.KindNotFound:
		return fiber.StatusNotFound
	case businessflow.KindNoTemplate, businessflow.KindConsistencyViolation:
		return fiber.StatusUnprocessableEntity
	case businessflow.KindValidation:
		return fiber.StatusBadRequest
	case businessflow.KindConflict:
		return fiber.StatusConflict
	case businessflow.KindUnauthorized:
		return fiber.StatusUnauthorized
	case businessflow.KindForbidden:
		return fiber.StatusForbidden
	default:
		if errors.Is(err, context.DeadlineExceeded) {
			return fiber.StatusGatewayTimeout
		}
		return fiber.StatusInternalServerError
	}
}

// rootMessage drops the business error envelope and keeps the cause a client can act on
func rootMessage(err error) string {
	var businessErr *businessflow.BusinessError
	if errors.As(err, &businessErr) && businessErr.Err != nil {
		return businessErr.Err.Error()
	}
	return err.Error()
}

// clientMetadata builds audit metadata for the request, including the authenticated actor if any
func clientMetadata(c fiber.Ctx) *businessflow.ClientMetadata {
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	if requestID := c.Get(businessflow.RequestIDKey); requestID != "" {
		metadata.SetRequestID(requestID)
	}
	userID, okID := c.Locals("user_id").(uint)
	role, okRole := c.Locals("user_role").(models.UserRole)
	if okID && okRole {
		metadata.SetActor(userID, role)
	}
	return metadata
}

// createRequestContext derives a bounded context carrying request-scoped values.
// The returned cancel func must be called once the flow returns.
func createRequestContext(c fiber.Ctx, endpoint string, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	if userID, ok := c.Locals("user_id").(uint); ok {
		ctx = context.WithValue(ctx, utils.UserIDKey, userID)
	}
	if role, ok := c.Locals("user_role").(models.UserRole); ok {
		ctx = context.WithValue(ctx, utils.UserRoleKey, role)
	}
	return ctx, cancel
}

// sendWorkbook streams an xlsx export as an attachment
func sendWorkbook(c fiber.Ctx, filename string, data []byte) error {
	c.Set("Content-Type", xlsxContentType)
	c.Set("Content-Disposition", "attachment; filename="+filename)
	return c.Send(data)
}

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "min":
		return err.Field() + " must be at least " + err.Param()
	case "max":
		return err.Field() + " must be at most " + err.Param()
	case "len":
		return err.Field() + " must be exactly " + err.Param() + " characters"
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "numeric":
		return err.Field() + " must be a number"
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
	default:
		return err.Field() + " is invalid"
	}
}
