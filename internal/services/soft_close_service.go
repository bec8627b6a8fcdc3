package services

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	apperrors "budgethq/internal/errors"
	"budgethq/internal/frequency"
	"budgethq/internal/logger"
	"budgethq/internal/models"
)

// checklistPredicate counts the rows that keep one checklist item from
// passing. A zero count passes.
type checklistPredicate struct {
	key   string
	label string
	count func(db *gorm.DB, userID string, start, end, today time.Time) (int64, error)
}

const (
	liveAccountIDs  = "SELECT id FROM accounts WHERE deleted_at IS NULL"
	liveCategoryIDs = "SELECT id FROM spending_categories WHERE deleted_at IS NULL"
)

var basePredicates = []checklistPredicate{
	{
		key:   "recurrings_processed",
		label: "All recurring deposits and payments generated",
		count: func(db *gorm.DB, userID string, start, end, today time.Time) (int64, error) {
			upTo := end
			if today.Before(upTo) {
				upTo = today
			}
			var total int64
			for _, model := range []interface{}{&models.IncomeRecurring{}, &models.PaymentRecurring{}} {
				var n int64
				if err := db.Model(model).Scopes(models.Live).
					Where("user_id = ? AND use_flag = ? AND next_date BETWEEN ? AND ?", userID, true, start, upTo).
					Count(&n).Error; err != nil {
					return 0, err
				}
				total += n
			}
			return total, nil
		},
	},
	{
		key:   "payments_accounts",
		label: "No payments against missing accounts",
		count: func(db *gorm.DB, userID string, start, end, _ time.Time) (int64, error) {
			var n int64
			err := db.Model(&models.Payment{}).Scopes(models.Live).
				Where("user_id = ? AND payment_date BETWEEN ? AND ?", userID, start, end).
				Where("account_id NOT IN (" + liveAccountIDs + ")").
				Count(&n).Error
			return n, err
		},
	},
	{
		key:   "payments_complete",
		label: "All payments have a category, description and amount",
		count: func(db *gorm.DB, userID string, start, end, _ time.Time) (int64, error) {
			var n int64
			err := db.Model(&models.Payment{}).Scopes(models.Live).
				Where("user_id = ? AND payment_date BETWEEN ? AND ?", userID, start, end).
				Where("spending_category_id NOT IN (" + liveCategoryIDs + ") OR description = '' OR amount <= 0").
				Count(&n).Error
			return n, err
		},
	},
	{
		key:   "deposits_complete",
		label: "All deposits have a source and amount",
		count: func(db *gorm.DB, userID string, start, end, _ time.Time) (int64, error) {
			var n int64
			err := db.Model(&models.IncomeEntry{}).Scopes(models.Live).
				Where("user_id = ? AND entry_date BETWEEN ? AND ?", userID, start, end).
				Where("source_name = '' OR amount <= 0 OR (received_flag = ? AND account_id IS NULL)", true).
				Count(&n).Error
			return n, err
		},
	},
	{
		key:   "transfers_valid",
		label: "All transfers have valid accounts and buckets",
		count: func(db *gorm.DB, userID string, start, end, _ time.Time) (int64, error) {
			invalid := "from_account_id NOT IN (" + liveAccountIDs + ") OR to_account_id NOT IN (" + liveAccountIDs + ") OR " +
				"(from_account_id = to_account_id AND (from_bucket_id IS NULL OR to_bucket_id IS NULL OR from_bucket_id = to_bucket_id)) OR amount <= 0"
			var n int64
			err := db.Model(&models.TransferMaster{}).Scopes(models.Live).
				Where("user_id = ? AND transfer_date BETWEEN ? AND ?", userID, start, end).
				Where(invalid).
				Count(&n).Error
			return n, err
		},
	},
}

var reconciliationPredicate = checklistPredicate{
	key:   "reconciliation_done",
	label: "All transactions reconciled",
	count: func(db *gorm.DB, userID string, start, end, _ time.Time) (int64, error) {
		tables := []struct {
			model  interface{}
			column string
		}{
			{&models.Payment{}, "payment_date"},
			{&models.IncomeEntry{}, "entry_date"},
			{&models.TransferMaster{}, "transfer_date"},
			{&models.BalanceAdjustment{}, "adjustment_date"},
		}
		var total int64
		for _, tbl := range tables {
			var n int64
			if err := db.Model(tbl.model).Scopes(models.Live).
				Where("user_id = ? AND reconciled = ?", userID, false).
				Where(tbl.column+" BETWEEN ? AND ?", start, end).
				Count(&n).Error; err != nil {
				return 0, err
			}
			total += n
		}
		return total, nil
	},
}

// softCloseService runs the month-end checklist and closes the open month.
type softCloseService struct {
	db                    *gorm.DB
	months                MonthServicer
	snapshots             SnapshotServicer
	requireReconciliation bool
}

// NewSoftCloseService creates a new SoftCloseServicer. When
// requireReconciliation is set, every transaction of the month must be
// reconciled before it can close.
func NewSoftCloseService(db *gorm.DB, months MonthServicer, snapshots SnapshotServicer, requireReconciliation bool) SoftCloseServicer {
	return &softCloseService{
		db:                    db,
		months:                months,
		snapshots:             snapshots,
		requireReconciliation: requireReconciliation,
	}
}

func (s *softCloseService) predicates() []checklistPredicate {
	if !s.requireReconciliation {
		return basePredicates
	}
	return append(append([]checklistPredicate{}, basePredicates...), reconciliationPredicate)
}

// GetStatus evaluates the checklist and the headline totals of the open month.
func (s *softCloseService) GetStatus(userID string, today time.Time) (*SoftCloseStatus, error) {
	om, err := s.months.ForUser(userID, today)
	if err != nil {
		return nil, err
	}
	return s.status(userID, om, frequency.Date(today))
}

func (s *softCloseService) status(userID string, om *models.OpenMonthMaster, today time.Time) (*SoftCloseStatus, error) {
	start, end := om.Start(), om.End()
	preds := s.predicates()
	items := make([]ChecklistItem, len(preds))

	var g errgroup.Group
	for i, p := range preds {
		i, p := i, p
		g.Go(func() error {
			n, err := p.count(s.db, userID, start, end, today)
			if err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			items[i] = ChecklistItem{Key: p.key, Label: p.label, Passed: n == 0, Count: n}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary, _, err := monthTotals(s.db, userID, om.CurrentYear, time.Month(om.CurrentMonth))
	if err != nil {
		return nil, err
	}

	ready := true
	for _, item := range items {
		ready = ready && item.Passed
	}
	return &SoftCloseStatus{
		Year:      om.CurrentYear,
		Month:     om.CurrentMonth,
		Checklist: items,
		Ready:     ready,
		Summary:   *summary,
	}, nil
}

// CloseMonth closes the open month once both attestations are given and every
// checklist item passes. Snapshots, the cursor advance and the close ledger
// row are written in one transaction.
func (s *softCloseService) CloseMonth(userID string, year int, month time.Month, att Attestation, today time.Time) (*models.OpenMonthMaster, error) {
	if !att.ReviewedTotals || !att.FinalConfirmation {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "both attestations are required to close the month")
	}

	om, err := s.months.ForUser(userID, today)
	if err != nil {
		return nil, err
	}
	if om.CurrentYear != year || om.CurrentMonth != int(month) {
		done, err := s.alreadyClosed(userID, year, month)
		if err != nil {
			return nil, err
		}
		if done {
			return nil, apperrors.ErrMonthAlreadyClosed
		}
		return nil, apperrors.ErrMonthNotOpen
	}

	status, err := s.status(userID, om, frequency.Date(today))
	if err != nil {
		return nil, err
	}
	if !status.Ready {
		var failing []string
		for _, item := range status.Checklist {
			if !item.Passed {
				failing = append(failing, item.Key)
			}
		}
		return nil, apperrors.WithMessage(apperrors.ErrChecklistFailed, "failing checklist items: "+strings.Join(failing, ", "))
	}

	var closed models.OpenMonthMaster
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).Where("id = ?", om.ID).First(&closed).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if closed.CurrentYear != year || closed.CurrentMonth != int(month) {
			return apperrors.ErrMonthAlreadyClosed
		}

		if err := s.snapshots.GenerateMonthWithDB(tx, userID, year, month); err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := tx.Create(&models.CloseMonthMaster{
			UserID:      userID,
			ClosedYear:  year,
			ClosedMonth: int(month),
			ClosedAt:    now,
		}).Error; err != nil {
			if isUniqueConstraintError(err) {
				return apperrors.ErrMonthAlreadyClosed
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		next := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC)
		if err := tx.Model(&closed).Updates(map[string]interface{}{
			"current_year":   next.Year(),
			"current_month":  int(next.Month()),
			"has_data":       false,
			"is_closed":      false,
			"last_closed_at": now,
		}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return tx.Where("id = ?", om.ID).First(&closed).Error
	})
	if err != nil {
		var appErr *apperrors.AppError
		if !errors.As(err, &appErr) {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil, err
	}

	logger.Named("softclose").Infow("Closed month",
		"user_id", userID, "year", year, "month", int(month),
		"next_year", closed.CurrentYear, "next_month", closed.CurrentMonth)
	return &closed, nil
}

func (s *softCloseService) alreadyClosed(userID string, year int, month time.Month) (bool, error) {
	var n int64
	if err := s.db.Model(&models.CloseMonthMaster{}).
		Where("user_id = ? AND closed_year = ? AND closed_month = ? AND reopened_at IS NULL", userID, year, int(month)).
		Count(&n).Error; err != nil {
		return false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return n > 0, nil
}
