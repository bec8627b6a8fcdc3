package services

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "budgethq/internal/errors"
	"budgethq/internal/frequency"
	"budgethq/internal/logger"
	"budgethq/internal/models"
)

// defaultFrequencies are the global rules every user can pick from.
var defaultFrequencies = []models.FrequencyMaster{
	{Name: frequency.Weekly, FrequencyType: frequency.TypeStandard, IntervalDays: 7},
	{Name: frequency.BiWeekly, FrequencyType: frequency.TypeStandard, IntervalDays: 14},
	{Name: frequency.Every4Weeks, FrequencyType: frequency.TypeStandard, IntervalDays: 28},
	{Name: frequency.SemiMonthly, FrequencyType: frequency.TypeStandard},
	{Name: frequency.Monthly, FrequencyType: frequency.TypeStandard},
	{Name: frequency.Quarterly, FrequencyType: frequency.TypeStandard},
	{Name: frequency.SemiAnnual, FrequencyType: frequency.TypeStandard},
	{Name: frequency.Annual, FrequencyType: frequency.TypeStandard},
	{Name: frequency.OneTime, FrequencyType: frequency.TypeStandard},
	{Name: frequency.Irregular, FrequencyType: frequency.TypeStandard},
	{Name: "1st of Month", FrequencyType: frequency.TypeExactDay, DayOfMonth: 1},
	{Name: "15th of Month", FrequencyType: frequency.TypeExactDay, DayOfMonth: 15},
	{Name: "Last Day of Month", FrequencyType: frequency.TypeExactDay, IsLastDay: true},
	{Name: "1st Friday", FrequencyType: frequency.TypeOrdinalWeekday, Weekday: 5, Ordinal: 1},
	{Name: "2nd Friday", FrequencyType: frequency.TypeOrdinalWeekday, Weekday: 5, Ordinal: 2},
	{Name: "Last Friday", FrequencyType: frequency.TypeOrdinalWeekday, Weekday: 5, Ordinal: 5},
}

// recurringService manages recurring definitions and materializes the ones
// that are due.
type recurringService struct {
	db       *gorm.DB
	accounts AccountServicer
}

// NewRecurringService creates a new RecurringServicer.
func NewRecurringService(db *gorm.DB, accounts AccountServicer) RecurringServicer {
	return &recurringService{db: db, accounts: accounts}
}

// SeedFrequencies inserts the global frequency rules when none exist yet.
func (s *recurringService) SeedFrequencies() error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.FrequencyMaster{}).Where("user_id IS NULL").Count(&count).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count > 0 {
			return nil
		}
		rows := make([]models.FrequencyMaster, len(defaultFrequencies))
		for i, f := range defaultFrequencies {
			f.SortOrder = i + 1
			f.Active = true
			rows[i] = f
		}
		if err := tx.Create(&rows).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// GetFrequencies lists the global rules plus the user's own.
func (s *recurringService) GetFrequencies(userID string) ([]models.FrequencyMaster, error) {
	if err := s.SeedFrequencies(); err != nil {
		return nil, err
	}
	var rows []models.FrequencyMaster
	if err := s.db.Where("(user_id IS NULL OR user_id = ?) AND active = ?", userID, true).
		Order("sort_order ASC").Find(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return rows, nil
}

// CreateFrequency stores a user-defined rule after validating it.
func (s *recurringService) CreateFrequency(userID string, in FrequencyInput) (*models.FrequencyMaster, error) {
	name := strings.TrimSpace(in.Name)
	if err := validateName(name, "frequency name"); err != nil {
		return nil, err
	}
	rule := in.Rule
	if rule.Name == "" {
		rule.Name = name
	}
	if err := rule.Validate(); err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidFrequency, err.Error())
	}

	var maxSort int
	if err := s.db.Model(&models.FrequencyMaster{}).Select("COALESCE(MAX(sort_order), 0)").Scan(&maxSort).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	// Named standard cadences are keyed by name; every other rule keeps the
	// user's label.
	stored := name
	if rule.Type == frequency.TypeStandard && rule.IntervalDays == 0 {
		stored = rule.Name
	}

	fm := &models.FrequencyMaster{
		UserID:        &userID,
		Name:          stored,
		FrequencyType: rule.Type,
		IntervalDays:  rule.IntervalDays,
		DayOfMonth:    rule.DayOfMonth,
		IsLastDay:     rule.IsLastDay,
		Weekday:       rule.Weekday,
		Ordinal:       rule.Ordinal,
		SortOrder:     maxSort + 1,
		Active:        true,
	}
	if err := s.db.Create(fm).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return fm, nil
}

// CreateIncomeRecurring stores a recurring income definition.
func (s *recurringService) CreateIncomeRecurring(userID string, in IncomeRecurringInput) (*models.IncomeRecurring, error) {
	def := &models.IncomeRecurring{UserID: userID, UseFlag: true}
	if err := s.assignIncomeRecurring(s.db, def, in); err != nil {
		return nil, err
	}
	if err := s.db.Create(def).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return def, nil
}

// GetIncomeRecurrings lists live recurring income definitions by next date.
func (s *recurringService) GetIncomeRecurrings(userID string) ([]models.IncomeRecurring, error) {
	var defs []models.IncomeRecurring
	if err := s.db.Scopes(models.Live).Where("user_id = ?", userID).Order("next_date ASC, name ASC").Find(&defs).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return defs, nil
}

// UpdateIncomeRecurring replaces a recurring income definition's fields.
func (s *recurringService) UpdateIncomeRecurring(userID, id string, in IncomeRecurringInput) (*models.IncomeRecurring, error) {
	var def models.IncomeRecurring
	if err := findLiveRecurring(s.db, userID, id, &def); err != nil {
		return nil, err
	}
	if err := s.assignIncomeRecurring(s.db, &def, in); err != nil {
		return nil, err
	}
	if err := s.db.Select("*").Omit("created_at").Save(&def).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &def, nil
}

// CreatePaymentRecurring stores a recurring payment definition.
func (s *recurringService) CreatePaymentRecurring(userID string, in PaymentRecurringInput) (*models.PaymentRecurring, error) {
	def := &models.PaymentRecurring{UserID: userID, UseFlag: true}
	if err := s.assignPaymentRecurring(s.db, def, in); err != nil {
		return nil, err
	}
	if err := s.db.Create(def).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return def, nil
}

// GetPaymentRecurrings lists live recurring payment definitions by next date.
func (s *recurringService) GetPaymentRecurrings(userID string) ([]models.PaymentRecurring, error) {
	var defs []models.PaymentRecurring
	if err := s.db.Scopes(models.Live).Where("user_id = ?", userID).Order("next_date ASC, description ASC").Find(&defs).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return defs, nil
}

// UpdatePaymentRecurring replaces a recurring payment definition's fields.
func (s *recurringService) UpdatePaymentRecurring(userID, id string, in PaymentRecurringInput) (*models.PaymentRecurring, error) {
	var def models.PaymentRecurring
	if err := findLiveRecurring(s.db, userID, id, &def); err != nil {
		return nil, err
	}
	if err := s.assignPaymentRecurring(s.db, &def, in); err != nil {
		return nil, err
	}
	if err := s.db.Select("*").Omit("created_at").Save(&def).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &def, nil
}

// CreateObligation stores a projection-only recurring obligation.
func (s *recurringService) CreateObligation(userID string, in ObligationInput) (*models.RecurringObligation, error) {
	ob := &models.RecurringObligation{UserID: userID, UseFlag: true}
	if err := s.assignObligation(s.db, ob, in); err != nil {
		return nil, err
	}
	if err := s.db.Create(ob).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return ob, nil
}

// GetObligations lists live obligations.
func (s *recurringService) GetObligations(userID string) ([]models.RecurringObligation, error) {
	var obs []models.RecurringObligation
	if err := s.db.Scopes(models.Live).Where("user_id = ?", userID).Order("name ASC").Find(&obs).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return obs, nil
}

// UpdateObligation replaces an obligation's fields.
func (s *recurringService) UpdateObligation(userID, id string, in ObligationInput) (*models.RecurringObligation, error) {
	var ob models.RecurringObligation
	if err := findLiveRecurring(s.db, userID, id, &ob); err != nil {
		return nil, err
	}
	if err := s.assignObligation(s.db, &ob, in); err != nil {
		return nil, err
	}
	if err := s.db.Select("*").Omit("created_at").Save(&ob).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &ob, nil
}

// ObligationsForMonth projects the due dates of active obligations in a
// month, ordered by due date. Nothing is generated.
func (s *recurringService) ObligationsForMonth(userID string, year int, month time.Month) ([]ObligationDue, error) {
	var obs []models.RecurringObligation
	if err := s.db.Scopes(models.Live).Where("user_id = ? AND use_flag = ?", userID, true).Find(&obs).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	rules := make(map[string]models.FrequencyMaster)
	dues := make([]ObligationDue, 0, len(obs))
	for _, ob := range obs {
		fm, ok := rules[ob.FrequencyMasterID]
		if !ok {
			loaded, err := findFrequency(s.db, userID, ob.FrequencyMasterID)
			if err != nil {
				if errors.Is(err, apperrors.ErrFrequencyNotFound) {
					continue
				}
				return nil, err
			}
			fm = *loaded
			rules[fm.ID] = fm
		}
		rule := fm.Rule()
		if !frequency.FallsInMonth(rule, ob.StartDate, year, month) {
			continue
		}
		dues = append(dues, ObligationDue{
			ObligationID: ob.ID,
			Name:         ob.Name,
			Amount:       ob.Amount,
			DueDate:      frequency.DueDateInMonth(rule, ob.StartDate, ob.DueDay, year, month),
			Frequency:    rule.Describe(),
		})
	}

	sort.SliceStable(dues, func(i, j int) bool { return dues[i].DueDate.Before(dues[j].DueDate) })
	return dues, nil
}

// DeleteRecurring soft-deletes a recurring definition of the given kind.
// Entries it already generated are kept.
func (s *recurringService) DeleteRecurring(userID string, kind RecurringKind, id string) error {
	var model interface{}
	switch kind {
	case RecurringIncome:
		model = &models.IncomeRecurring{}
	case RecurringPayment:
		model = &models.PaymentRecurring{}
	case RecurringObligation:
		model = &models.RecurringObligation{}
	default:
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown recurring kind")
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := findLiveRecurring(forUpdate(tx), userID, id, model); err != nil {
			return err
		}
		return softDelete(tx, model)
	})
}

// GenerateDuePayments materializes one payment for every active payment
// definition whose next date has arrived, then advances its cursor.
//
// Only one occurrence per definition is produced per call, even if several
// periods have elapsed; later calls catch up the rest.
func (s *recurringService) GenerateDuePayments(userID string, today time.Time) (*GenerationResult, error) {
	log := logger.Named("recurring")
	today = frequency.Date(today)
	result := &GenerationResult{}

	var due []models.PaymentRecurring
	if err := s.db.Scopes(models.Live).
		Where("user_id = ? AND use_flag = ? AND next_date <= ?", userID, true, today).
		Order("next_date ASC").Find(&due).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	for _, d := range due {
		err := s.db.Transaction(func(tx *gorm.DB) error {
			var def models.PaymentRecurring
			if err := findLiveRecurring(forUpdate(tx), userID, d.ID, &def); err != nil {
				return err
			}
			if !def.UseFlag || def.NextDate.After(today) {
				return nil
			}

			if _, err := findLiveAccount(tx, userID, def.AccountID); err != nil {
				if errors.Is(err, apperrors.ErrAccountNotFound) {
					log.Warnw("Skipping recurring payment with missing account",
						"recurring_id", def.ID, "account_id", def.AccountID)
					result.Skipped++
					return nil
				}
				return err
			}
			if _, err := findLiveCategory(tx, userID, def.SpendingCategoryID); err != nil {
				if errors.Is(err, apperrors.ErrCategoryNotFound) {
					log.Warnw("Skipping recurring payment with missing category",
						"recurring_id", def.ID, "category_id", def.SpendingCategoryID)
					result.Skipped++
					return nil
				}
				return err
			}
			fm, err := findFrequency(tx, userID, def.FrequencyMasterID)
			if err != nil {
				if errors.Is(err, apperrors.ErrFrequencyNotFound) {
					log.Warnw("Skipping recurring payment with missing frequency",
						"recurring_id", def.ID, "frequency_id", def.FrequencyMasterID)
					result.Skipped++
					return nil
				}
				return err
			}

			dup, err := entryExists(tx, &models.Payment{}, "payment_recurring_id = ? AND payment_date = ?", def.ID, def.NextDate)
			if err != nil {
				return err
			}
			if !dup {
				payment := &models.Payment{
					UserID:             userID,
					AccountID:          def.AccountID,
					SpendingCategoryID: def.SpendingCategoryID,
					PaymentRecurringID: strPtr(def.ID),
					PaymentDate:        def.NextDate,
					Description:        def.Description,
					Amount:             def.Amount,
				}
				if err := tx.Create(payment).Error; err != nil {
					return apperrors.Wrap(apperrors.ErrInternalServer, err)
				}
				if err := s.accounts.Adjust(tx, def.AccountID, def.Amount.Neg()); err != nil {
					return err
				}
				result.Created++
				log.Infow("Created payment from recurring definition",
					"recurring_id", def.ID, "payment_id", payment.ID,
					"date", def.NextDate.Format("2006-01-02"), "amount", def.Amount.StringFixed(2))
			}

			return s.advance(tx, &def, fm.Rule(), def.NextDate, result)
		})
		if err != nil {
			return nil, err
		}
	}

	if len(due) > 0 {
		log.Infow("Recurring payment pass complete",
			"user_id", userID, "checked", len(due), "created", result.Created, "skipped", result.Skipped)
	}
	return result, nil
}

// GenerateDueIncome materializes one pending income entry for every active
// income definition whose next date has arrived. Generated entries are not
// received, so balances are untouched until the user confirms them.
func (s *recurringService) GenerateDueIncome(userID string, today time.Time) (*GenerationResult, error) {
	log := logger.Named("recurring")
	today = frequency.Date(today)
	result := &GenerationResult{}

	var due []models.IncomeRecurring
	if err := s.db.Scopes(models.Live).
		Where("user_id = ? AND use_flag = ? AND next_date <= ?", userID, true, today).
		Order("next_date ASC").Find(&due).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	for _, d := range due {
		err := s.db.Transaction(func(tx *gorm.DB) error {
			var def models.IncomeRecurring
			if err := findLiveRecurring(forUpdate(tx), userID, d.ID, &def); err != nil {
				return err
			}
			if !def.UseFlag || def.NextDate.After(today) {
				return nil
			}

			if def.AccountID != nil {
				if _, err := findLiveAccount(tx, userID, *def.AccountID); err != nil {
					if errors.Is(err, apperrors.ErrAccountNotFound) {
						log.Warnw("Skipping recurring income with missing account",
							"recurring_id", def.ID, "account_id", *def.AccountID)
						result.Skipped++
						return nil
					}
					return err
				}
			}
			fm, err := findFrequency(tx, userID, def.FrequencyMasterID)
			if err != nil {
				if errors.Is(err, apperrors.ErrFrequencyNotFound) {
					log.Warnw("Skipping recurring income with missing frequency",
						"recurring_id", def.ID, "frequency_id", def.FrequencyMasterID)
					result.Skipped++
					return nil
				}
				return err
			}

			dup, err := entryExists(tx, &models.IncomeEntry{}, "income_recurring_id = ? AND entry_date = ?", def.ID, def.NextDate)
			if err != nil {
				return err
			}
			if !dup {
				entry := &models.IncomeEntry{
					UserID:            userID,
					AccountID:         def.AccountID,
					IncomeRecurringID: strPtr(def.ID),
					FrequencyMasterID: strPtr(def.FrequencyMasterID),
					SourceName:        def.Name,
					Description:       def.Description,
					EntryDate:         def.NextDate,
					Amount:            def.Amount,
				}
				if err := tx.Create(entry).Error; err != nil {
					return apperrors.Wrap(apperrors.ErrInternalServer, err)
				}
				result.Created++
				log.Infow("Created income entry from recurring definition",
					"recurring_id", def.ID, "income_id", entry.ID,
					"date", def.NextDate.Format("2006-01-02"), "amount", def.Amount.StringFixed(2))
			}

			return s.advance(tx, &def, fm.Rule(), def.NextDate, result)
		})
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// advance moves a definition's cursor to its next occurrence. A rule that
// does not move forward retires the definition.
func (s *recurringService) advance(tx *gorm.DB, def interface{}, rule frequency.Rule, current time.Time, result *GenerationResult) error {
	next := frequency.NextDateFrom(rule, current)
	if !next.After(current) {
		if err := tx.Model(def).Update("use_flag", false).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		result.Retired++
		return nil
	}
	if err := tx.Model(def).Update("next_date", next).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	result.Advanced++
	return nil
}

func (s *recurringService) assignIncomeRecurring(db *gorm.DB, def *models.IncomeRecurring, in IncomeRecurringInput) error {
	name := strings.TrimSpace(in.Name)
	if err := validateName(name, "name"); err != nil {
		return err
	}
	if err := validateRecurringAmount(in.Amount, in.NextDate, "next date"); err != nil {
		return err
	}
	if _, err := findFrequency(db, def.UserID, in.FrequencyMasterID); err != nil {
		return err
	}
	accountID := in.AccountID
	if accountID != nil && *accountID == "" {
		accountID = nil
	}
	if accountID != nil {
		if _, err := findLiveAccount(db, def.UserID, *accountID); err != nil {
			return err
		}
	}

	def.AccountID = accountID
	def.FrequencyMasterID = in.FrequencyMasterID
	def.Name = name
	def.Description = in.Description
	def.Amount = cents(in.Amount)
	def.NextDate = frequency.Date(in.NextDate)
	if in.UseFlag != nil {
		def.UseFlag = *in.UseFlag
	}
	return nil
}

func (s *recurringService) assignPaymentRecurring(db *gorm.DB, def *models.PaymentRecurring, in PaymentRecurringInput) error {
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "description is required")
	}
	if err := validateRecurringAmount(in.Amount, in.NextDate, "next date"); err != nil {
		return err
	}
	if _, err := findFrequency(db, def.UserID, in.FrequencyMasterID); err != nil {
		return err
	}
	if _, err := findLiveAccount(db, def.UserID, in.AccountID); err != nil {
		return err
	}
	if _, err := findLiveCategory(db, def.UserID, in.SpendingCategoryID); err != nil {
		return err
	}

	def.AccountID = in.AccountID
	def.SpendingCategoryID = in.SpendingCategoryID
	def.FrequencyMasterID = in.FrequencyMasterID
	def.Description = description
	def.Amount = cents(in.Amount)
	def.NextDate = frequency.Date(in.NextDate)
	if in.UseFlag != nil {
		def.UseFlag = *in.UseFlag
	}
	return nil
}

func (s *recurringService) assignObligation(db *gorm.DB, ob *models.RecurringObligation, in ObligationInput) error {
	name := strings.TrimSpace(in.Name)
	if err := validateName(name, "name"); err != nil {
		return err
	}
	if err := validateRecurringAmount(in.Amount, in.StartDate, "start date"); err != nil {
		return err
	}
	if in.DueDay < 0 || in.DueDay > 31 {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "due day must be between 1 and 31")
	}
	if _, err := findFrequency(db, ob.UserID, in.FrequencyMasterID); err != nil {
		return err
	}
	if in.AccountID != nil && *in.AccountID != "" {
		if _, err := findLiveAccount(db, ob.UserID, *in.AccountID); err != nil {
			return err
		}
		ob.AccountID = in.AccountID
	} else {
		ob.AccountID = nil
	}
	if in.SpendingCategoryID != nil && *in.SpendingCategoryID != "" {
		if _, err := findLiveCategory(db, ob.UserID, *in.SpendingCategoryID); err != nil {
			return err
		}
		ob.SpendingCategoryID = in.SpendingCategoryID
	} else {
		ob.SpendingCategoryID = nil
	}

	ob.FrequencyMasterID = in.FrequencyMasterID
	ob.Name = name
	ob.Amount = cents(in.Amount)
	ob.StartDate = frequency.Date(in.StartDate)
	ob.DueDay = in.DueDay
	if in.UseFlag != nil {
		ob.UseFlag = *in.UseFlag
	}
	return nil
}

func validateRecurringAmount(amount decimal.Decimal, d time.Time, dateField string) error {
	if err := requirePositive(amount, "amount"); err != nil {
		return err
	}
	if d.IsZero() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, dateField+" is required")
	}
	return nil
}

// findFrequency loads an active global rule or one owned by userID.
func findFrequency(db *gorm.DB, userID, id string) (*models.FrequencyMaster, error) {
	var fm models.FrequencyMaster
	err := db.Where("id = ? AND (user_id IS NULL OR user_id = ?)", id, userID).First(&fm).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrFrequencyNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &fm, nil
}

func findLiveRecurring(db *gorm.DB, userID, id string, dest interface{}) error {
	if err := db.Scopes(models.Live).Where("id = ? AND user_id = ?", id, userID).First(dest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrRecurringNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

func entryExists(tx *gorm.DB, model interface{}, query string, args ...interface{}) (bool, error) {
	var n int64
	if err := tx.Model(model).Scopes(models.Live).Where(query, args...).Count(&n).Error; err != nil {
		return false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return n > 0, nil
}
