package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	apperrors "budgethq/internal/errors"
	"budgethq/internal/frequency"
	"budgethq/internal/models"
)

// monthService manages the per-user open month cursor.
type monthService struct {
	db        *gorm.DB
	snapshots SnapshotServicer
	now       func() time.Time
}

// NewMonthService creates a new MonthServicer. now supplies today's date when
// a cursor has to be created; nil means time.Now.
func NewMonthService(db *gorm.DB, snapshots SnapshotServicer, now func() time.Time) MonthServicer {
	if now == nil {
		now = time.Now
	}
	return &monthService{db: db, snapshots: snapshots, now: now}
}

// ForUser loads the user's open month, creating it at today's month on first
// access.
func (s *monthService) ForUser(userID string, today time.Time) (*models.OpenMonthMaster, error) {
	return loadOrInitMonth(s.db, userID, today, false)
}

// EnsureOpenWithDB checks that every date falls inside the open month and
// records that the month now has data. It must run inside the caller's
// transaction.
func (s *monthService) EnsureOpenWithDB(tx *gorm.DB, userID string, dates ...time.Time) error {
	om, err := loadOrInitMonth(tx, userID, s.now(), true)
	if err != nil {
		return err
	}
	for _, d := range dates {
		if !om.Contains(frequency.Date(d)) {
			return apperrors.WithMessage(apperrors.ErrMonthLocked, fmt.Sprintf(
				"transaction date %s is outside the open month %s", d.Format("2006-01-02"), om.Start().Format("2006-01")))
		}
	}
	if om.HasData {
		return nil
	}
	if err := tx.Model(om).Update("has_data", true).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// ReopenPrevious moves the cursor back one month. It is refused once the open
// month has data.
func (s *monthService) ReopenPrevious(userID string) (*models.OpenMonthMaster, error) {
	var om *models.OpenMonthMaster
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		om, err = loadOrInitMonth(tx, userID, s.now(), true)
		if err != nil {
			return err
		}
		if om.HasData {
			return apperrors.ErrReopenBlocked
		}

		prev := om.Start().AddDate(0, -1, 0)
		if err := s.snapshots.MarkStaleWithDB(tx, userID, prev.Year(), prev.Month()); err != nil {
			return err
		}

		now := s.now().UTC()
		if err := tx.Model(&models.CloseMonthMaster{}).
			Where("user_id = ? AND closed_year = ? AND closed_month = ? AND reopened_at IS NULL", userID, prev.Year(), int(prev.Month())).
			Update("reopened_at", now).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		// The month being reopened was closed with data in it.
		if err := tx.Model(om).Updates(map[string]interface{}{
			"current_year":  prev.Year(),
			"current_month": int(prev.Month()),
			"is_closed":     false,
			"has_data":      true,
			"reopen_count":  om.ReopenCount + 1,
		}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Where("id = ?", om.ID).First(om).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return om, nil
}

func loadOrInitMonth(db *gorm.DB, userID string, today time.Time, lock bool) (*models.OpenMonthMaster, error) {
	q := db
	if lock {
		q = forUpdate(db)
	}
	var om models.OpenMonthMaster
	err := q.Where("user_id = ?", userID).First(&om).Error
	if err == nil {
		return &om, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	today = frequency.Date(today)
	om = models.OpenMonthMaster{UserID: userID, CurrentYear: today.Year(), CurrentMonth: int(today.Month())}
	if err := db.Create(&om).Error; err != nil {
		if isUniqueConstraintError(err) {
			var existing models.OpenMonthMaster
			if err := db.Where("user_id = ?", userID).First(&existing).Error; err == nil {
				return &existing, nil
			}
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &om, nil
}
