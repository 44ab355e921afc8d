package businessflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/amirphl/academy-ledger/app/dto"
	"github.com/amirphl/academy-ledger/finance"
	"github.com/amirphl/academy-ledger/models"
	"github.com/amirphl/academy-ledger/repository"
	"github.com/amirphl/academy-ledger/utils"
	"github.com/shopspring/decimal"
)

// FundFlow manages the bucket tree and its outflows
type FundFlow interface {
	CreateBucket(ctx context.Context, req *dto.CreateBucketRequest, metadata *ClientMetadata) (*dto.CreateBucketResponse, error)
	GetBucketTree(ctx context.Context, req *dto.BucketTreeRequest) (*dto.BucketTreeResponse, error)

	RecordExpense(ctx context.Context, req *dto.CreateExpenseRequest, metadata *ClientMetadata) (*dto.CreateExpenseResponse, error)
	DeleteExpense(ctx context.Context, expenseID uint, metadata *ClientMetadata) (*dto.MessageResponse, error)
	ListExpenses(ctx context.Context, req *dto.ListExpensesRequest) (*dto.ListExpensesResponse, error)

	CreateSalaryRecipient(ctx context.Context, req *dto.CreateSalaryRecipientRequest, metadata *ClientMetadata) (*dto.CreateSalaryRecipientResponse, error)
	ListSalaryRecipients(ctx context.Context) (*dto.ListSalaryRecipientsResponse, error)
	RecordSalaryPayment(ctx context.Context, req *dto.RecordSalaryPaymentRequest, metadata *ClientMetadata) (*dto.RecordSalaryPaymentResponse, error)
	ListSalaryPayments(ctx context.Context, req *dto.ListSalaryPaymentsRequest) (*dto.ListSalaryPaymentsResponse, error)
}

// FundFlowImpl implements the fund business flow
type FundFlowImpl struct {
	bucketRepo    repository.FundBucketRepository
	distRepo      repository.SaleDistributionRepository
	expenseRepo   repository.ExpenseRepository
	recipientRepo repository.SalaryRecipientRepository
	paymentRepo   repository.SalaryPaymentRepository
	auditRepo     repository.AuditLogRepository
	transactor    repository.Transactor
}

// NewFundFlow creates a new fund flow instance
func NewFundFlow(
	bucketRepo repository.FundBucketRepository,
	distRepo repository.SaleDistributionRepository,
	expenseRepo repository.ExpenseRepository,
	recipientRepo repository.SalaryRecipientRepository,
	paymentRepo repository.SalaryPaymentRepository,
	auditRepo repository.AuditLogRepository,
	transactor repository.Transactor,
) FundFlow {
	return &FundFlowImpl{
		bucketRepo:    bucketRepo,
		distRepo:      distRepo,
		expenseRepo:   expenseRepo,
		recipientRepo: recipientRepo,
		paymentRepo:   paymentRepo,
		auditRepo:     auditRepo,
		transactor:    transactor,
	}
}

// CreateBucket adds a bucket under an existing parent, or as a root
func (f *FundFlowImpl) CreateBucket(ctx context.Context, req *dto.CreateBucketRequest, metadata *ClientMetadata) (*dto.CreateBucketResponse, error) {
	var bucket *models.FundBucket
	err := f.transactor.WithTransaction(ctx, func(txCtx context.Context) error {
		key := strings.TrimSpace(req.Key)
		existing, err := f.bucketRepo.ByKey(txCtx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrBucketKeyExists
		}

		if req.ParentID != nil {
			parent, err := f.bucketRepo.ByID(txCtx, *req.ParentID)
			if err != nil {
				return err
			}
			if parent == nil {
				return ErrParentBucketNotFound
			}
		}

		share, err := parseOptionalDecimal(req.DefaultShare)
		if err != nil {
			return err
		}
		if share.Valid && !finance.IsRate(share.Decimal) {
			return ErrInvalidDefaultShare
		}

		now := utils.UTCNow()
		bucket = &models.FundBucket{
			Key:          key,
			Label:        strings.TrimSpace(req.Label),
			ParentID:     req.ParentID,
			DefaultShare: share,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		return f.bucketRepo.Save(txCtx, bucket)
	})
	if err != nil {
		errMsg := fmt.Sprintf("Create bucket %q failed: %s", req.Key, err.Error())
		_ = createAuditLog(ctx, f.auditRepo, metadata.actorID(), models.AuditActionFundChangeFailed, errMsg, false, &errMsg, metadata)
		return nil, NewBusinessError("CREATE_BUCKET_FAILED", "Failed to create bucket", err)
	}

	msg := fmt.Sprintf("Bucket %d (%s) created", bucket.ID, bucket.Key)
	_ = createAuditLog(ctx, f.auditRepo, metadata.actorID(), models.AuditActionBucketCreated, msg, true, nil, metadata)

	return &dto.CreateBucketResponse{
		Message: "Bucket created successfully",
		Bucket:  toBucketItem(*bucket),
	}, nil
}

// GetBucketTree builds the aggregated fund forest. Sale inflow and expenses honour the month
// filter; salary payments always count in full.
func (f *FundFlowImpl) GetBucketTree(ctx context.Context, req *dto.BucketTreeRequest) (*dto.BucketTreeResponse, error) {
	var monthKeys []string
	if req != nil {
		for _, key := range req.MonthKeys {
			if _, err := finance.ParseMonthKey(key); err != nil {
				return nil, NewBusinessError("GET_BUCKET_TREE_FAILED", "Invalid month key", errors.Join(ErrValidation, err))
			}
			monthKeys = append(monthKeys, key)
		}
	}

	buckets, err := f.bucketRepo.ListAll(ctx)
	if err != nil {
		return nil, NewBusinessError("GET_BUCKET_TREE_FAILED", "Failed to load buckets", err)
	}
	inflow, err := f.distRepo.SumByBucket(ctx, monthKeys)
	if err != nil {
		return nil, NewBusinessError("GET_BUCKET_TREE_FAILED", "Failed to sum bucket inflow", err)
	}
	expenses, err := f.expenseRepo.SumByBucket(ctx, monthKeys)
	if err != nil {
		return nil, NewBusinessError("GET_BUCKET_TREE_FAILED", "Failed to sum bucket expenses", err)
	}
	salaries, err := f.paymentRepo.SumByBucket(ctx)
	if err != nil {
		return nil, NewBusinessError("GET_BUCKET_TREE_FAILED", "Failed to sum salary payments", err)
	}

	used := make(map[uint]decimal.Decimal, len(expenses)+len(salaries))
	for id, amount := range expenses {
		used[id] = used[id].Add(amount)
	}
	for id, amount := range salaries {
		used[id] = used[id].Add(amount)
	}

	flat := make([]models.FundBucket, 0, len(buckets))
	for _, b := range buckets {
		flat = append(flat, *b)
	}
	roots := finance.BuildBucketTree(flat, inflow, used)

	return &dto.BucketTreeResponse{
		Message:   "Bucket tree retrieved successfully",
		MonthKeys: monthKeys,
		Roots:     roots,
		Summary:   finance.FlattenBucketTree(roots),
	}, nil
}

// RecordExpense charges an amount to a bucket in the month of the expense date
func (f *FundFlowImpl) RecordExpense(ctx context.Context, req *dto.CreateExpenseRequest, metadata *ClientMetadata) (*dto.CreateExpenseResponse, error) {
	var expense *models.Expense
	err := f.transactor.WithTransaction(ctx, func(txCtx context.Context) error {
		bucket, err := f.bucketRepo.ByID(txCtx, req.BucketID)
		if err != nil {
			return err
		}
		if bucket == nil {
			return ErrBucketNotFound
		}

		amount, err := parseDecimal(req.Amount)
		if err != nil {
			return err
		}
		if !amount.IsPositive() {
			return ErrAmountNotPositive
		}

		date, err := utils.ParseDate(req.ExpenseDate)
		if err != nil {
			return ErrInvalidDate
		}

		expense = &models.Expense{
			BucketID:        bucket.ID,
			Bucket:          bucket,
			Description:     strings.TrimSpace(req.Description),
			Amount:          finance.Round2(amount),
			ExpenseDate:     date,
			MonthKey:        finance.MonthKey(date),
			CreatedByUserID: metadata.actorID(),
			CreatedAt:       utils.UTCNow(),
		}
		return f.expenseRepo.Save(txCtx, expense)
	})
	if err != nil {
		errMsg := fmt.Sprintf("Record expense on bucket %d failed: %s", req.BucketID, err.Error())
		_ = createAuditLog(ctx, f.auditRepo, metadata.actorID(), models.AuditActionFundChangeFailed, errMsg, false, &errMsg, metadata)
		return nil, NewBusinessError("RECORD_EXPENSE_FAILED", "Failed to record expense", err)
	}

	msg := fmt.Sprintf("Expense %d of %s recorded on bucket %d", expense.ID, expense.Amount.StringFixed(2), expense.BucketID)
	_ = createAuditLog(ctx, f.auditRepo, metadata.actorID(), models.AuditActionExpenseRecorded, msg, true, nil, metadata)

	return &dto.CreateExpenseResponse{
		Message: "Expense recorded successfully",
		Expense: toExpenseItem(*expense),
	}, nil
}

// DeleteExpense removes an expense
func (f *FundFlowImpl) DeleteExpense(ctx context.Context, expenseID uint, metadata *ClientMetadata) (*dto.MessageResponse, error) {
	err := f.transactor.WithTransaction(ctx, func(txCtx context.Context) error {
		expense, err := f.expenseRepo.ByID(txCtx, expenseID)
		if err != nil {
			return err
		}
		if expense == nil {
			return ErrExpenseNotFound
		}
		return f.expenseRepo.Delete(txCtx, expense.ID)
	})
	if err != nil {
		errMsg := fmt.Sprintf("Delete expense %d failed: %s", expenseID, err.Error())
		_ = createAuditLog(ctx, f.auditRepo, metadata.actorID(), models.AuditActionFundChangeFailed, errMsg, false, &errMsg, metadata)
		return nil, NewBusinessError("DELETE_EXPENSE_FAILED", "Failed to delete expense", err)
	}

	msg := fmt.Sprintf("Expense %d deleted", expenseID)
	_ = createAuditLog(ctx, f.auditRepo, metadata.actorID(), models.AuditActionExpenseDeleted, msg, true, nil, metadata)

	return &dto.MessageResponse{Message: "Expense deleted successfully"}, nil
}

// ListExpenses returns one page of expenses with the page's total amount
func (f *FundFlowImpl) ListExpenses(ctx context.Context, req *dto.ListExpensesRequest) (*dto.ListExpensesResponse, error) {
	filter := models.ExpenseFilter{
		MonthKey: req.MonthKey,
		BucketID: req.BucketID,
	}
	_, _, limit, offset := req.Normalize()

	expenses, err := f.expenseRepo.ByFilter(ctx, filter, "", limit, offset)
	if err != nil {
		return nil, NewBusinessError("LIST_EXPENSES_FAILED", "Failed to list expenses", err)
	}
	total, err := f.expenseRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("LIST_EXPENSES_FAILED", "Failed to count expenses", err)
	}

	items := make([]dto.ExpenseItem, 0, len(expenses))
	amount := decimal.Zero
	for _, e := range expenses {
		items = append(items, toExpenseItem(*e))
		amount = amount.Add(e.Amount)
	}

	return &dto.ListExpensesResponse{
		Message: "Expenses retrieved successfully",
		Items:   items,
		Total:   total,
		Amount:  amount,
	}, nil
}

// CreateSalaryRecipient registers a payee
func (f *FundFlowImpl) CreateSalaryRecipient(ctx context.Context, req *dto.CreateSalaryRecipientRequest, metadata *ClientMetadata) (*dto.CreateSalaryRecipientResponse, error) {
	var recipient *models.SalaryRecipient
	err := f.transactor.WithTransaction(ctx, func(txCtx context.Context) error {
		mode := models.SalaryMode(req.Mode)
		if !mode.IsValid() {
			return ErrInvalidSalaryMode
		}

		rate, err := parseOptionalDecimal(req.Rate)
		if err != nil {
			return err
		}
		fixed, err := parseOptionalDecimal(req.FixedAmount)
		if err != nil {
			return err
		}
		if (rate.Valid && rate.Decimal.IsNegative()) || (fixed.Valid && fixed.Decimal.IsNegative()) {
			return finance.ErrInvalidAmount
		}

		if req.BucketID != nil {
			bucket, err := f.bucketRepo.ByID(txCtx, *req.BucketID)
			if err != nil {
				return err
			}
			if bucket == nil {
				return ErrBucketNotFound
			}
		}

		now := utils.UTCNow()
		recipient = &models.SalaryRecipient{
			Name:        strings.TrimSpace(req.Name),
			Title:       req.Title,
			Mode:        mode,
			Rate:        rate,
			FixedAmount: fixed,
			BucketID:    req.BucketID,
			IsActive:    utils.ToPtr(true),
			Notes:       req.Notes,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return f.recipientRepo.Save(txCtx, recipient)
	})
	if err != nil {
		errMsg := fmt.Sprintf("Create salary recipient %q failed: %s", req.Name, err.Error())
		_ = createAuditLog(ctx, f.auditRepo, metadata.actorID(), models.AuditActionFundChangeFailed, errMsg, false, &errMsg, metadata)
		return nil, NewBusinessError("CREATE_SALARY_RECIPIENT_FAILED", "Failed to create salary recipient", err)
	}

	msg := fmt.Sprintf("Salary recipient %d (%s) created", recipient.ID, recipient.Name)
	_ = createAuditLog(ctx, f.auditRepo, metadata.actorID(), models.AuditActionSalaryRecipientCreated, msg, true, nil, metadata)

	return &dto.CreateSalaryRecipientResponse{
		Message:   "Salary recipient created successfully",
		Recipient: toSalaryRecipientItem(*recipient),
	}, nil
}

// ListSalaryRecipients lists payees by name
func (f *FundFlowImpl) ListSalaryRecipients(ctx context.Context) (*dto.ListSalaryRecipientsResponse, error) {
	recipients, err := f.recipientRepo.ByFilter(ctx, models.SalaryRecipientFilter{}, "name ASC, id ASC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("LIST_SALARY_RECIPIENTS_FAILED", "Failed to list salary recipients", err)
	}

	items := make([]dto.SalaryRecipientItem, 0, len(recipients))
	for _, r := range recipients {
		items = append(items, toSalaryRecipientItem(*r))
	}
	return &dto.ListSalaryRecipientsResponse{
		Message: "Salary recipients retrieved successfully",
		Items:   items,
	}, nil
}

// RecordSalaryPayment pays a recipient from a bucket, defaulting to the recipient's own bucket
func (f *FundFlowImpl) RecordSalaryPayment(ctx context.Context, req *dto.RecordSalaryPaymentRequest, metadata *ClientMetadata) (*dto.RecordSalaryPaymentResponse, error) {
	var payment *models.SalaryPayment
	err := f.transactor.WithTransaction(ctx, func(txCtx context.Context) error {
		recipient, err := f.recipientRepo.ByID(txCtx, req.RecipientID)
		if err != nil {
			return err
		}
		if recipient == nil {
			return ErrRecipientNotFound
		}

		bucketID := req.BucketID
		if bucketID == nil {
			bucketID = recipient.BucketID
		}
		if bucketID == nil {
			return ErrBucketNotFound
		}
		bucket, err := f.bucketRepo.ByID(txCtx, *bucketID)
		if err != nil {
			return err
		}
		if bucket == nil {
			return ErrBucketNotFound
		}

		amount, err := parseDecimal(req.Amount)
		if err != nil {
			return err
		}
		if !amount.IsPositive() {
			return ErrAmountNotPositive
		}

		if _, err := finance.ParseMonthKey(req.PeriodKey); err != nil {
			return errors.Join(ErrValidation, err)
		}

		paidAt := utils.UTCNow()
		if req.PaidAt != nil && strings.TrimSpace(*req.PaidAt) != "" {
			paidAt, err = utils.ParseDate(*req.PaidAt)
			if err != nil {
				return ErrInvalidDate
			}
		}

		payment = &models.SalaryPayment{
			RecipientID:  recipient.ID,
			Recipient:    recipient,
			BucketID:     bucket.ID,
			Bucket:       bucket,
			Amount:       finance.Round2(amount),
			PeriodKey:    req.PeriodKey,
			UnitsCovered: req.UnitsCovered,
			Notes:        req.Notes,
			PaidAt:       paidAt,
			PaidByUserID: metadata.actorID(),
			CreatedAt:    utils.UTCNow(),
		}
		return f.paymentRepo.Save(txCtx, payment)
	})
	if err != nil {
		errMsg := fmt.Sprintf("Salary payment to recipient %d failed: %s", req.RecipientID, err.Error())
		_ = createAuditLog(ctx, f.auditRepo, metadata.actorID(), models.AuditActionFundChangeFailed, errMsg, false, &errMsg, metadata)
		return nil, NewBusinessError("RECORD_SALARY_PAYMENT_FAILED", "Failed to record salary payment", err)
	}

	msg := fmt.Sprintf("Salary payment %d of %s to recipient %d for %s", payment.ID, payment.Amount.StringFixed(2), payment.RecipientID, payment.PeriodKey)
	_ = createAuditLog(ctx, f.auditRepo, metadata.actorID(), models.AuditActionSalaryPaymentRecorded, msg, true, nil, metadata)

	return &dto.RecordSalaryPaymentResponse{
		Message: "Salary payment recorded successfully",
		Payment: toSalaryPaymentItem(*payment),
	}, nil
}

// ListSalaryPayments returns one page of payments, newest first
func (f *FundFlowImpl) ListSalaryPayments(ctx context.Context, req *dto.ListSalaryPaymentsRequest) (*dto.ListSalaryPaymentsResponse, error) {
	filter := models.SalaryPaymentFilter{
		RecipientID: req.RecipientID,
		PeriodKey:   req.PeriodKey,
	}
	_, _, limit, offset := req.Normalize()

	payments, err := f.paymentRepo.ByFilter(ctx, filter, "", limit, offset)
	if err != nil {
		return nil, NewBusinessError("LIST_SALARY_PAYMENTS_FAILED", "Failed to list salary payments", err)
	}
	total, err := f.paymentRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("LIST_SALARY_PAYMENTS_FAILED", "Failed to count salary payments", err)
	}

	items := make([]dto.SalaryPaymentItem, 0, len(payments))
	for _, p := range payments {
		items = append(items, toSalaryPaymentItem(*p))
	}
	return &dto.ListSalaryPaymentsResponse{
		Message: "Salary payments retrieved successfully",
		Items:   items,
		Total:   total,
	}, nil
}

func toBucketItem(b models.FundBucket) dto.BucketItem {
	return dto.BucketItem{
		ID:           b.ID,
		Key:          b.Key,
		Label:        b.Label,
		ParentID:     b.ParentID,
		DefaultShare: b.DefaultShare,
		CreatedAt:    b.CreatedAt,
	}
}

func toExpenseItem(e models.Expense) dto.ExpenseItem {
	item := dto.ExpenseItem{
		ID:          e.ID,
		BucketID:    e.BucketID,
		Description: e.Description,
		Amount:      e.Amount,
		ExpenseDate: e.ExpenseDate,
		MonthKey:    e.MonthKey,
		CreatedAt:   e.CreatedAt,
	}
	if e.Bucket != nil {
		item.BucketLabel = e.Bucket.Label
	}
	return item
}

func toSalaryRecipientItem(r models.SalaryRecipient) dto.SalaryRecipientItem {
	return dto.SalaryRecipientItem{
		ID:          r.ID,
		Name:        r.Name,
		Title:       r.Title,
		Mode:        string(r.Mode),
		Rate:        r.Rate,
		FixedAmount: r.FixedAmount,
		BucketID:    r.BucketID,
		IsActive:    utils.IsTrue(r.IsActive),
		Notes:       r.Notes,
	}
}

func toSalaryPaymentItem(p models.SalaryPayment) dto.SalaryPaymentItem {
	item := dto.SalaryPaymentItem{
		ID:           p.ID,
		RecipientID:  p.RecipientID,
		BucketID:     p.BucketID,
		Amount:       p.Amount,
		PeriodKey:    p.PeriodKey,
		UnitsCovered: p.UnitsCovered,
		Notes:        p.Notes,
		PaidAt:       p.PaidAt,
	}
	if p.Recipient != nil {
		item.RecipientName = p.Recipient.Name
	}
	if p.Bucket != nil {
		item.BucketLabel = p.Bucket.Label
	}
	return item
}
