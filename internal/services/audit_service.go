package services

import (
	"encoding/json"

	"gorm.io/gorm"

	"budgethq/internal/logger"
	"budgethq/internal/models"
)

// Audit actions recorded by the handlers.
const (
	AuditCreatePayment  = "CREATE_PAYMENT"
	AuditUpdatePayment  = "UPDATE_PAYMENT"
	AuditDeletePayment  = "DELETE_PAYMENT"
	AuditCreateTransfer = "CREATE_TRANSFER"
	AuditDeleteTransfer = "DELETE_TRANSFER"
	AuditCreateBucket   = "CREATE_BUCKET"
	AuditDeleteBucket   = "DELETE_BUCKET"
	AuditFundBucket     = "FUND_BUCKET"
	AuditDeleteAccount  = "DELETE_ACCOUNT"
	AuditAdjustBalance  = "ADJUST_BALANCE"
	AuditSetLimit       = "SET_LIMIT"
	AuditCloseMonth     = "CLOSE_MONTH"
	AuditReopenMonth    = "REOPEN_MONTH"
	AuditMarkReconciled = "MARK_RECONCILED"
)

// auditService writes audit events best-effort.
type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Log records an audit event. Failures are logged and never reach the
// caller.
func (s *auditService) Log(userID string, action, resourceType string, resourceID string, ipAddress string, changes map[string]interface{}) {
	log := logger.Named("audit")

	changesJSON := "{}"
	if changes != nil {
		data, err := json.Marshal(changes)
		if err != nil {
			log.Errorw("Failed to marshal audit changes", "error", err, "action", action)
		} else {
			changesJSON = string(data)
		}
	}

	entry := &models.AuditLog{
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    ipAddress,
		Changes:      changesJSON,
	}
	if err := s.db.Create(entry).Error; err != nil {
		log.Errorw("Failed to write audit entry",
			"error", err,
			"user_id", userID,
			"action", action,
			"resource_type", resourceType,
			"resource_id", resourceID,
		)
	}
}
