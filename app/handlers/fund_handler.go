package handlers

import (
	"github.com/amirphl/academy-ledger/app/dto"
	businessflow "github.com/amirphl/academy-ledger/business_flow"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

// FundHandlerInterface defines the fund bucket, expense and salary endpoints
type FundHandlerInterface interface {
	CreateBucket(c fiber.Ctx) error
	GetBucketTree(c fiber.Ctx) error

	RecordExpense(c fiber.Ctx) error
	DeleteExpense(c fiber.Ctx) error
	ListExpenses(c fiber.Ctx) error

	CreateSalaryRecipient(c fiber.Ctx) error
	ListSalaryRecipients(c fiber.Ctx) error
	RecordSalaryPayment(c fiber.Ctx) error
	ListSalaryPayments(c fiber.Ctx) error
}

// FundHandler serves the bucket tree and the money leaving it
type FundHandler struct {
	baseHandler
	fundFlow businessflow.FundFlow
}

func NewFundHandler(fundFlow businessflow.FundFlow, logger *logrus.Logger) FundHandlerInterface {
	return &FundHandler{
		baseHandler: newBaseHandler(logger),
		fundFlow:    fundFlow,
	}
}

// CreateBucket adds a root or child fund bucket
// @Summary Create Fund Bucket
// @Tags Funds
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateBucketRequest true "Bucket"
// @Success 201 {object} dto.APIResponse{data=dto.CreateBucketResponse}
// @Failure 409 {object} dto.APIResponse
// @Router /api/v1/funds/buckets [post]
func (h *FundHandler) CreateBucket(c fiber.Ctx) error {
	var req dto.CreateBucketRequest
	if ok, err := h.bindAndValidate(c, &req); !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/funds/buckets", defaultRequestTimeout)
	defer cancel()

	result, err := h.fundFlow.CreateBucket(ctx, &req, clientMetadata(c))
	if err != nil {
		return h.FlowErrorResponse(c, err, "/api/v1/funds/buckets", "Failed to create bucket", "CREATE_BUCKET_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, result.Message, result)
}

// GetBucketTree returns the bucket tree with inflow, used and remaining rolled up to the roots
// @Summary Fund Bucket Tree
// @Tags Funds
// @Produce json
// @Security BearerAuth
// @Param month_keys query []string false "Months to include (YYYY-MM)"
// @Success 200 {object} dto.APIResponse{data=dto.BucketTreeResponse}
// @Router /api/v1/funds/tree [get]
func (h *FundHandler) GetBucketTree(c fiber.Ctx) error {
	var req dto.BucketTreeRequest
	if ok, err := h.bindQueryAndValidate(c, &req); !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/funds/tree", defaultRequestTimeout)
	defer cancel()

	result, err := h.fundFlow.GetBucketTree(ctx, &req)
	if err != nil {
		return h.FlowErrorResponse(c, err, "/api/v1/funds/tree", "Failed to build bucket tree", "BUCKET_TREE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// RecordExpense charges an expense to a bucket
// @Summary Record Expense
// @Tags Funds
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateExpenseRequest true "Expense"
// @Success 201 {object} dto.APIResponse{data=dto.CreateExpenseResponse}
// @Router /api/v1/funds/expenses [post]
func (h *FundHandler) RecordExpense(c fiber.Ctx) error {
	var req dto.CreateExpenseRequest
	if ok, err := h.bindAndValidate(c, &req); !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/funds/expenses", defaultRequestTimeout)
	defer cancel()

	result, err := h.fundFlow.RecordExpense(ctx, &req, clientMetadata(c))
	if err != nil {
		return h.FlowErrorResponse(c, err, "/api/v1/funds/expenses", "Failed to record expense", "RECORD_EXPENSE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, result.Message, result)
}

// DeleteExpense removes an expense
// @Summary Delete Expense
// @Tags Funds
// @Produce json
// @Security BearerAuth
// @Param id path int true "Expense ID"
// @Success 200 {object} dto.APIResponse{data=dto.MessageResponse}
// @Router /api/v1/funds/expenses/{id} [delete]
func (h *FundHandler) DeleteExpense(c fiber.Ctx) error {
	id, ok, err := h.parseIDParam(c, "id")
	if !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/funds/expenses/:id", defaultRequestTimeout)
	defer cancel()

	result, err := h.fundFlow.DeleteExpense(ctx, id, clientMetadata(c))
	if err != nil {
		return h.FlowErrorResponse(c, err, "/api/v1/funds/expenses/:id", "Failed to delete expense", "DELETE_EXPENSE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// ListExpenses lists expenses by month and bucket
// @Summary List Expenses
// @Tags Funds
// @Produce json
// @Security BearerAuth
// @Param month_key query string false "YYYY-MM"
// @Param bucket_id query int false "Bucket ID"
// @Success 200 {object} dto.APIResponse{data=dto.ListExpensesResponse}
// @Router /api/v1/funds/expenses [get]
func (h *FundHandler) ListExpenses(c fiber.Ctx) error {
	var req dto.ListExpensesRequest
	if ok, err := h.bindQueryAndValidate(c, &req); !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/funds/expenses", defaultRequestTimeout)
	defer cancel()

	result, err := h.fundFlow.ListExpenses(ctx, &req)
	if err != nil {
		return h.FlowErrorResponse(c, err, "/api/v1/funds/expenses", "Failed to list expenses", "LIST_EXPENSES_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// CreateSalaryRecipient registers someone paid out of the buckets
// @Summary Create Salary Recipient
// @Tags Salaries
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateSalaryRecipientRequest true "Recipient"
// @Success 201 {object} dto.APIResponse{data=dto.CreateSalaryRecipientResponse}
// @Router /api/v1/salaries/recipients [post]
func (h *FundHandler) CreateSalaryRecipient(c fiber.Ctx) error {
	var req dto.CreateSalaryRecipientRequest
	if ok, err := h.bindAndValidate(c, &req); !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/salaries/recipients", defaultRequestTimeout)
	defer cancel()

	result, err := h.fundFlow.CreateSalaryRecipient(ctx, &req, clientMetadata(c))
	if err != nil {
		return h.FlowErrorResponse(c, err, "/api/v1/salaries/recipients", "Failed to create salary recipient", "CREATE_RECIPIENT_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, result.Message, result)
}

// ListSalaryRecipients lists salary recipients
// @Summary List Salary Recipients
// @Tags Salaries
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.ListSalaryRecipientsResponse}
// @Router /api/v1/salaries/recipients [get]
func (h *FundHandler) ListSalaryRecipients(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/api/v1/salaries/recipients", defaultRequestTimeout)
	defer cancel()

	result, err := h.fundFlow.ListSalaryRecipients(ctx)
	if err != nil {
		return h.FlowErrorResponse(c, err, "/api/v1/salaries/recipients", "Failed to list salary recipients", "LIST_RECIPIENTS_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// RecordSalaryPayment records a payout, charged to a bucket as an expense
// @Summary Record Salary Payment
// @Tags Salaries
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.RecordSalaryPaymentRequest true "Payment"
// @Success 201 {object} dto.APIResponse{data=dto.RecordSalaryPaymentResponse}
// @Router /api/v1/salaries/payments [post]
func (h *FundHandler) RecordSalaryPayment(c fiber.Ctx) error {
	var req dto.RecordSalaryPaymentRequest
	if ok, err := h.bindAndValidate(c, &req); !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/salaries/payments", defaultRequestTimeout)
	defer cancel()

	result, err := h.fundFlow.RecordSalaryPayment(ctx, &req, clientMetadata(c))
	if err != nil {
		return h.FlowErrorResponse(c, err, "/api/v1/salaries/payments", "Failed to record salary payment", "RECORD_PAYMENT_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, result.Message, result)
}

// ListSalaryPayments lists payouts by recipient and period
// @Summary List Salary Payments
// @Tags Salaries
// @Produce json
// @Security BearerAuth
// @Param recipient_id query int false "Recipient ID"
// @Param period_key query string false "YYYY-MM"
// @Success 200 {object} dto.APIResponse{data=dto.ListSalaryPaymentsResponse}
// @Router /api/v1/salaries/payments [get]
func (h *FundHandler) ListSalaryPayments(c fiber.Ctx) error {
	var req dto.ListSalaryPaymentsRequest
	if ok, err := h.bindQueryAndValidate(c, &req); !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/salaries/payments", defaultRequestTimeout)
	defer cancel()

	result, err := h.fundFlow.ListSalaryPayments(ctx, &req)
	if err != nil {
		return h.FlowErrorResponse(c, err, "/api/v1/salaries/payments", "Failed to list salary payments", "LIST_PAYMENTS_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}
