// Package businessflow contains the core business logic and use cases of the academy ledger
package businessflow

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/amirphl/academy-ledger/app/dto"
	"github.com/amirphl/academy-ledger/models"
	"github.com/amirphl/academy-ledger/repository"
	"github.com/amirphl/academy-ledger/utils"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds all client-related information for audit logging
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	UserID     *uint             `json:"user_id,omitempty"`
	Role       models.UserRole   `json:"role,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// SetActor records the authenticated caller
func (cm *ClientMetadata) SetActor(userID uint, role models.UserRole) {
	cm.UserID = &userID
	cm.Role = role
}

// actorID returns the authenticated caller, if any
func (cm *ClientMetadata) actorID() *uint {
	if cm == nil {
		return nil
	}
	return cm.UserID
}

// isSeller reports whether the caller acts with the restricted seller role
func (cm *ClientMetadata) isSeller() bool {
	return cm != nil && cm.Role == models.UserRoleSeller
}

// createAuditLog stores one audit row. Failures to audit never fail the operation.
func createAuditLog(
	ctx context.Context,
	auditRepo repository.AuditLogRepository,
	userID *uint,
	action string,
	description string,
	success bool,
	errMsg *string,
	metadata *ClientMetadata,
) error {
	audit := &models.AuditLog{
		UserID:       userID,
		Action:       action,
		Description:  &description,
		Success:      &success,
		ErrorMessage: errMsg,
	}

	if metadata != nil {
		if metadata.IPAddress != "" {
			audit.IPAddress = &metadata.IPAddress
		}
		if metadata.UserAgent != "" {
			audit.UserAgent = &metadata.UserAgent
		}
		if metadata.RequestID != "" {
			audit.RequestID = &metadata.RequestID
		}
		if raw, err := json.Marshal(metadata); err == nil {
			audit.Metadata = datatypes.JSON(raw)
		}
	}

	// The audit row is written outside any business transaction so failures are recorded too
	return auditRepo.Save(context.WithoutCancel(withoutTx(ctx)), audit)
}

// withoutTx detaches ctx from a transaction carried by the caller
func withoutTx(ctx context.Context) context.Context {
	return context.WithValue(ctx, repository.TxContextKey, nil)
}

// parseDecimal reads a decimal string from a request field
func parseDecimal(value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero, ErrInvalidDecimal
	}
	return d, nil
}

// parseOptionalDecimal reads an optional decimal string; nil or empty yields an invalid NullDecimal
func parseOptionalDecimal(value *string) (decimal.NullDecimal, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := parseDecimal(*value)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

func errString(err error) *string {
	if err == nil {
		return nil
	}
	return utils.ToPtr(err.Error())
}

// ToUserInfo converts a user model to its API representation
func ToUserInfo(user models.User, sellerID *uint) dto.UserInfo {
	return dto.UserInfo{
		ID:        user.ID,
		UUID:      user.UUID.String(),
		Email:     user.Email,
		Name:      user.Name,
		Role:      string(user.Role),
		SellerID:  sellerID,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
	}
}

// ToSaleItem converts a sale model to its API representation
func ToSaleItem(sale models.Sale) dto.SaleItem {
	item := dto.SaleItem{
		ID:                  sale.ID,
		UUID:                sale.UUID.String(),
		CourseID:            sale.CourseID,
		SellerID:            sale.SellerID,
		DiscountID:          sale.DiscountID,
		TemplateID:          sale.TemplateID,
		SaleDate:            sale.SaleDate,
		MonthKey:            sale.MonthKey,
		PriceBefore:         sale.PriceBefore,
		DiscountAmount:      sale.DiscountAmount,
		PriceAfterDiscount:  sale.PriceAfterDiscount,
		PlatformFeeRate:     sale.PlatformFeeRate,
		PlatformFee:         sale.PlatformFee,
		ProfitAfterPlatform: sale.ProfitAfterPlatform,
		CommissionRate:      sale.CommissionRate,
		SellerCommission:    sale.SellerCommission,
		NetProfit:           sale.NetProfit,
		Note:                sale.Note,
		CreatedAt:           sale.CreatedAt,
	}
	if sale.Course != nil {
		item.CourseName = sale.Course.Name
	}
	if sale.Seller != nil && sale.Seller.User != nil {
		item.SellerName = sale.Seller.User.Name
	}
	if sale.Discount != nil {
		item.DiscountName = sale.Discount.Name
	}
	for _, d := range sale.Distributions {
		dist := dto.SaleDistributionItem{
			BucketID:   d.BucketID,
			Percentage: d.Percentage,
			Amount:     d.Amount,
		}
		if d.Bucket != nil {
			dist.BucketKey = d.Bucket.Key
			dist.BucketLabel = d.Bucket.Label
		}
		item.Distributions = append(item.Distributions, dist)
	}
	return item
}

// ToMonthlyKpiItem converts a snapshot to its API representation
func ToMonthlyKpiItem(snap models.MonthlyKpiSnapshot) dto.MonthlyKpiItem {
	return dto.MonthlyKpiItem{
		MonthKey:                 snap.MonthKey,
		TotalPriceBefore:         snap.TotalPriceBefore,
		TotalRevenue:             snap.TotalRevenue,
		TotalProfitAfterPlatform: snap.TotalProfitAfterPlatform,
		TotalNetProfit:           snap.TotalNetProfit,
		TotalDiscount:            snap.TotalDiscount,
		TotalCommission:          snap.TotalCommission,
		SalesCount:               snap.SalesCount,
		AverageSaleValue:         snap.AverageSaleValue,
		DiscountRate:             snap.DiscountRate,
		GrossMargin:              snap.GrossMargin,
		RevenueGrowth:            snap.RevenueGrowth,
		ProfitGrowth:             snap.ProfitGrowth,
		NetProfitGrowth:          snap.NetProfitGrowth,
		SalesGrowth:              snap.SalesGrowth,
		ComputedAt:               snap.ComputedAt,
	}
}
