package models

import (
	"time"

	"gorm.io/datatypes"
)

type AuditLog struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	UserID       *uint          `gorm:"index:idx_audit_user_id" json:"user_id,omitempty"`
	User         *User          `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:SET NULL" json:"user,omitempty"`
	Action       string         `gorm:"size:100;not null;index:idx_audit_action" json:"action"`
	Description  *string        `gorm:"type:text" json:"description,omitempty"`
	IPAddress    *string        `gorm:"size:64;index:idx_audit_ip_address" json:"ip_address,omitempty"`
	UserAgent    *string        `gorm:"type:text" json:"user_agent,omitempty"`
	RequestID    *string        `gorm:"size:255;index:idx_audit_request_id" json:"request_id,omitempty"`
	Metadata     datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
	Success      *bool          `gorm:"default:true;index:idx_audit_success" json:"success"`
	ErrorMessage *string        `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time      `gorm:"default:CURRENT_TIMESTAMP;index:idx_audit_created_at" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_log"
}

// Audit action constants
const (
	AuditActionLoginSuccessful = "login_successful"
	AuditActionLoginFailed     = "login_failed"
	AuditActionLogout          = "logout"
	AuditActionOwnerBootstrap  = "owner_bootstrap"

	AuditActionSaleRecorded     = "sale_recorded"
	AuditActionSaleRecordFailed = "sale_record_failed"
	AuditActionSaleDeleted      = "sale_deleted"
	AuditActionSaleDeleteFailed = "sale_delete_failed"

	AuditActionCourseCreated   = "course_created"
	AuditActionCourseUpdated   = "course_updated"
	AuditActionCourseDeleted   = "course_deleted"
	AuditActionDiscountCreated = "discount_created"
	AuditActionDiscountUpdated = "discount_updated"
	AuditActionDiscountDeleted = "discount_deleted"
	AuditActionTemplateCreated = "template_created"
	AuditActionTemplateUpdated = "template_updated"
	AuditActionCatalogFailed   = "catalog_change_failed"

	AuditActionBucketCreated          = "bucket_created"
	AuditActionExpenseRecorded        = "expense_recorded"
	AuditActionExpenseDeleted         = "expense_deleted"
	AuditActionSalaryRecipientCreated = "salary_recipient_created"
	AuditActionSalaryPaymentRecorded  = "salary_payment_recorded"
	AuditActionFundChangeFailed       = "fund_change_failed"

	AuditActionSellerCreated      = "seller_created"
	AuditActionSellerDeleted      = "seller_deleted"
	AuditActionLevelRulesUpdated  = "level_rules_updated"
	AuditActionSellerChangeFailed = "seller_change_failed"
	AuditActionKpiRecomputed      = "kpi_recomputed"
)

// AuditLogFilter represents filter criteria for audit log queries
type AuditLogFilter struct {
	ID            *uint
	UserID        *uint
	Action        *string
	Success       *bool
	RequestID     *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

func (a *AuditLog) IsFailed() bool {
	return a.Success != nil && !*a.Success
}
