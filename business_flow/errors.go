// Package businessflow contains the core business logic and use cases of the academy ledger
package businessflow

import (
	"errors"
	"fmt"

	"github.com/amirphl/academy-ledger/finance"
)

// Error categories. Every business error wraps exactly one of them.
var (
	ErrNotFound             = errors.New("not found")
	ErrNoTemplate           = errors.New("no distribution template for course")
	ErrValidation           = errors.New("validation failed")
	ErrConsistencyViolation = errors.New("consistency violation")
	ErrConflict             = errors.New("conflict")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrForbidden            = errors.New("forbidden")
)

// Business flow error constants
var (
	// Lookup errors
	ErrCourseNotFound    = fmt.Errorf("course %w", ErrNotFound)
	ErrSellerNotFound    = fmt.Errorf("seller %w", ErrNotFound)
	ErrDiscountNotFound  = fmt.Errorf("discount %w", ErrNotFound)
	ErrTemplateNotFound  = fmt.Errorf("distribution template %w", ErrNotFound)
	ErrBucketNotFound    = fmt.Errorf("fund bucket %w", ErrNotFound)
	ErrSaleNotFound      = fmt.Errorf("sale %w", ErrNotFound)
	ErrExpenseNotFound   = fmt.Errorf("expense %w", ErrNotFound)
	ErrRecipientNotFound = fmt.Errorf("salary recipient %w", ErrNotFound)
	ErrUserNotFound      = fmt.Errorf("user %w", ErrNotFound)
	ErrKpiNotFound       = fmt.Errorf("KPI snapshot %w", ErrNotFound)

	// Input errors
	ErrDiscountInactive     = fmt.Errorf("discount is inactive: %w", ErrValidation)
	ErrInvalidSaleDate      = fmt.Errorf("sale date must be RFC3339 or YYYY-MM-DD: %w", ErrValidation)
	ErrInvalidDate          = fmt.Errorf("date must be RFC3339 or YYYY-MM-DD: %w", ErrValidation)
	ErrInvalidDecimal       = fmt.Errorf("invalid decimal value: %w", ErrValidation)
	ErrAmountNotPositive    = fmt.Errorf("amount must be greater than zero: %w", ErrValidation)
	ErrInvalidCourseType    = fmt.Errorf("unknown course type: %w", ErrValidation)
	ErrInvalidSalaryMode    = fmt.Errorf("unknown salary mode: %w", ErrValidation)
	ErrInvalidDefaultShare  = fmt.Errorf("default share must be between 0 and 1 with at most 4 decimal places: %w", ErrValidation)
	ErrKpiLimitOutOfRange   = fmt.Errorf("limit must be between 1 and 120: %w", ErrValidation)
	ErrSellerMustOwnSale    = fmt.Errorf("sellers may only record their own sales: %w", ErrForbidden)
	ErrParentBucketNotFound = fmt.Errorf("parent bucket does not exist: %w", ErrValidation)

	// Consistency errors
	ErrBucketNotLeaf        = fmt.Errorf("allocations must target leaf buckets: %w", ErrConsistencyViolation)
	ErrTemplateTypeTaken    = fmt.Errorf("another template already targets this course type: %w", ErrConsistencyViolation)
	ErrCourseHasSales       = fmt.Errorf("course has recorded sales: %w", ErrConflict)
	ErrBucketInUse          = fmt.Errorf("bucket is referenced: %w", ErrConflict)
	ErrNameAlreadyExists    = fmt.Errorf("name already exists: %w", ErrConflict)
	ErrEmailAlreadyExists   = fmt.Errorf("email already exists: %w", ErrConflict)
	ErrBucketKeyExists      = fmt.Errorf("bucket key already exists: %w", ErrConflict)
	ErrSellerProfileMissing = fmt.Errorf("user has no seller profile: %w", ErrForbidden)

	// Authentication errors
	ErrIncorrectPassword = fmt.Errorf("incorrect email or password: %w", ErrUnauthorized)
	ErrAccountInactive   = fmt.Errorf("account is inactive: %w", ErrUnauthorized)
	ErrInvalidToken      = fmt.Errorf("invalid or expired token: %w", ErrUnauthorized)
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

// Kind is the category a failure is reported as
type Kind string

const (
	KindNotFound             Kind = "NOT_FOUND"
	KindNoTemplate           Kind = "NO_TEMPLATE"
	KindValidation           Kind = "VALIDATION"
	KindConsistencyViolation Kind = "CONSISTENCY_VIOLATION"
	KindConflict             Kind = "CONFLICT"
	KindUnauthorized         Kind = "UNAUTHORIZED"
	KindForbidden            Kind = "FORBIDDEN"
	KindUnexpected           Kind = "UNEXPECTED"
)

// ErrorKind classifies err by the category it wraps; finance rule errors are mapped too
func ErrorKind(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoTemplate):
		return KindNoTemplate
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConsistencyViolation),
		errors.Is(err, finance.ErrAllocationSum),
		errors.Is(err, finance.ErrEmptyAllocations),
		errors.Is(err, finance.ErrAllocationPercentage),
		errors.Is(err, finance.ErrDuplicateAllocation),
		errors.Is(err, finance.ErrInvalidLevelRules):
		return KindConsistencyViolation
	case errors.Is(err, ErrValidation),
		errors.Is(err, finance.ErrInvalidAmount),
		errors.Is(err, finance.ErrInvalidRate),
		errors.Is(err, finance.ErrInvalidMonthKey),
		errors.Is(err, finance.ErrUnknownDiscountType),
		errors.Is(err, finance.ErrInvalidPercentageAmount):
		return KindValidation
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	}
	return KindUnexpected
}

func IsNotFound(err error) bool {
	return ErrorKind(err) == KindNotFound
}

func IsNoTemplate(err error) bool {
	return ErrorKind(err) == KindNoTemplate
}

func IsValidation(err error) bool {
	return ErrorKind(err) == KindValidation
}

func IsConsistencyViolation(err error) bool {
	return ErrorKind(err) == KindConsistencyViolation
}

func IsConflict(err error) bool {
	return ErrorKind(err) == KindConflict
}

func IsUnauthorized(err error) bool {
	return ErrorKind(err) == KindUnauthorized
}

func IsForbidden(err error) bool {
	return ErrorKind(err) == KindForbidden
}

func IsCourseNotFound(err error) bool {
	return errors.Is(err, ErrCourseNotFound)
}

func IsSellerNotFound(err error) bool {
	return errors.Is(err, ErrSellerNotFound)
}

func IsDiscountNotFound(err error) bool {
	return errors.Is(err, ErrDiscountNotFound)
}

func IsDiscountInactive(err error) bool {
	return errors.Is(err, ErrDiscountInactive)
}

func IsIncorrectPassword(err error) bool {
	return errors.Is(err, ErrIncorrectPassword)
}

func IsAccountInactive(err error) bool {
	return errors.Is(err, ErrAccountInactive)
}
