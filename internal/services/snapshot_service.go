package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "budgethq/internal/errors"
	"budgethq/internal/models"
)

// snapshotService handles month-end snapshot operations.
type snapshotService struct {
	db *gorm.DB
}

// NewSnapshotService creates a new SnapshotServicer.
func NewSnapshotService(db *gorm.DB) SnapshotServicer {
	return &snapshotService{db: db}
}

// GenerateMonthWithDB computes and stores the account, dashboard and net worth
// snapshots of a month. Existing rows are overwritten and marked fresh.
func (s *snapshotService) GenerateMonthWithDB(tx *gorm.DB, userID string, year int, month time.Month) error {
	summary, accounts, err := monthTotals(tx, userID, year, month)
	if err != nil {
		return err
	}
	start, end := monthRange(year, month)

	for i := range accounts {
		beginning, err := balanceAsOf(tx, &accounts[i], start.AddDate(0, 0, -1))
		if err != nil {
			return err
		}
		ending, err := balanceAsOf(tx, &accounts[i], end)
		if err != nil {
			return err
		}

		// Upsert: check for existing snapshot for the same account and month
		var existing models.AccountMonthSnapshot
		result := tx.Where("account_id = ? AND year = ? AND month = ?", accounts[i].ID, year, int(month)).First(&existing)
		if result.Error == nil {
			if err := tx.Model(&existing).Updates(map[string]interface{}{
				"beginning_balance": beginning,
				"ending_balance":    ending,
				"is_stale":          false,
			}).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			continue
		}
		if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
		}
		snap := &models.AccountMonthSnapshot{
			UserID:           userID,
			AccountID:        accounts[i].ID,
			Year:             year,
			Month:            int(month),
			BeginningBalance: beginning,
			EndingBalance:    ending,
		}
		if err := tx.Create(snap).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	var dashboard models.DashboardMonthSnapshot
	result := tx.Where("user_id = ? AND year = ? AND month = ?", userID, year, int(month)).First(&dashboard)
	switch {
	case result.Error == nil:
		if err := tx.Model(&dashboard).Updates(map[string]interface{}{
			"total_spent":            summary.TotalSpent,
			"total_income":           summary.TotalIncome,
			"beginning_budget_total": summary.BeginningBudgetTotal,
			"ending_budget_total":    summary.EndingBudgetTotal,
			"net_worth":              summary.NetWorth,
			"is_stale":               false,
		}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	case errors.Is(result.Error, gorm.ErrRecordNotFound):
		dashboard = models.DashboardMonthSnapshot{
			UserID:               userID,
			Year:                 year,
			Month:                int(month),
			TotalSpent:           summary.TotalSpent,
			TotalIncome:          summary.TotalIncome,
			BeginningBudgetTotal: summary.BeginningBudgetTotal,
			EndingBudgetTotal:    summary.EndingBudgetTotal,
			NetWorth:             summary.NetWorth,
		}
		if err := tx.Create(&dashboard).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	default:
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}

	var worth models.NetWorthSnapshot
	result = tx.Where("user_id = ? AND snapshot_date = ?", userID, end).First(&worth)
	switch {
	case result.Error == nil:
		if err := tx.Model(&worth).Update("amount", summary.NetWorth).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	case errors.Is(result.Error, gorm.ErrRecordNotFound):
		worth = models.NetWorthSnapshot{UserID: userID, SnapshotDate: end, Amount: summary.NetWorth}
		if err := tx.Create(&worth).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	default:
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}

	return nil
}

// MarkStaleWithDB flags a month's snapshots as out of date.
func (s *snapshotService) MarkStaleWithDB(tx *gorm.DB, userID string, year int, month time.Month) error {
	for _, model := range []interface{}{&models.AccountMonthSnapshot{}, &models.DashboardMonthSnapshot{}} {
		if err := tx.Model(model).
			Where("user_id = ? AND year = ? AND month = ?", userID, year, int(month)).
			Update("is_stale", true).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return nil
}

// GetAccountSnapshots returns the per-account snapshots of a month.
func (s *snapshotService) GetAccountSnapshots(userID string, year int, month time.Month) ([]models.AccountMonthSnapshot, error) {
	var snaps []models.AccountMonthSnapshot
	if err := s.db.Where("user_id = ? AND year = ? AND month = ?", userID, year, int(month)).
		Order("created_at ASC").Find(&snaps).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return snaps, nil
}

// GetDashboardSnapshot returns the dashboard snapshot of a month.
func (s *snapshotService) GetDashboardSnapshot(userID string, year int, month time.Month) (*models.DashboardMonthSnapshot, error) {
	var snap models.DashboardMonthSnapshot
	if err := s.db.Where("user_id = ? AND year = ? AND month = ?", userID, year, int(month)).First(&snap).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.WithMessage(apperrors.ErrNotFound, "no snapshot for this month")
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &snap, nil
}

// GetNetWorthHistory returns net worth snapshots within a date range.
func (s *snapshotService) GetNetWorthHistory(userID string, from, to time.Time) ([]models.NetWorthSnapshot, error) {
	var snaps []models.NetWorthSnapshot
	if err := s.db.Where("user_id = ? AND snapshot_date >= ? AND snapshot_date <= ?", userID, from, to).
		Order("snapshot_date ASC").Find(&snaps).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return snaps, nil
}
